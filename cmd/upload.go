package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/framelabel/internal/models"
	"github.com/desertthunder/framelabel/internal/shared"
	"github.com/desertthunder/framelabel/internal/tasks"
	"github.com/desertthunder/framelabel/internal/ui"
	"github.com/urfave/cli/v3"
)

func (r *Runner) newUploadWizard() *tasks.UploadWizard {
	return tasks.NewUploadWizard(r.api, tasks.UploadWizardOpts{
		MaxSizeMB:       r.config.Upload.MaxSizeMB,
		DefaultInterval: r.config.Upload.DefaultInterval,
		Logger:          r.logger,
	})
}

// UploadRun walks the wizard without prompts and prints the new project.
func (r *Runner) UploadRun(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("path")
	if path == "" {
		return fmt.Errorf("%w: path", shared.ErrMissingArgument)
	}

	wizard := r.newUploadWizard()
	if err := wizard.SelectFile(path); err != nil {
		return err
	}
	if err := wizard.Next(); err != nil {
		return err
	}

	if name := cmd.String("name"); name != "" {
		wizard.SetProjectName(name)
	}
	if cmd.IsSet("interval") {
		if err := wizard.SetFrameInterval(cmd.Float("interval")); err != nil {
			return err
		}
	}
	if err := wizard.Next(); err != nil {
		return err
	}

	est := wizard.Estimates()
	r.writePlainHeader(fmt.Sprintf("Upload: %s", wizard.File().Name))
	r.writePlain("Project:          %s\n", wizard.ProjectName())
	r.writePlain("Frame interval:   %gs\n", wizard.FrameInterval())
	r.writePlain("Estimated frames: %d\n", est.Frames)
	r.writePlain("Estimated size:   %s\n\n", est.Storage())

	progress, wait := r.printProgress()
	result, err := wizard.Submit(ctx, progress)
	wait()
	if err != nil {
		return err
	}

	r.logger.Info("project created", "project", result.ProjectID, "frames", result.ExtractedCount)
	r.writePlainln("✓ Project created!")
	r.writePlain("Project:          %s\n", result.ProjectID)
	r.writePlain("Frames extracted: %d\n", result.ExtractedCount)
	return r.writePlain("Open:             %s\n", models.DeepLink(r.api.BaseURL(), result.ProjectID, -1))
}

// UploadUI opens the upload wizard, prefilled with the path argument.
func (r *Runner) UploadUI(ctx context.Context, cmd *cli.Command) error {
	var wizard *tasks.UploadWizard
	err := r.runTUI(ctx, func() (tea.Model, error) {
		wizard = r.newUploadWizard()
		return ui.NewUploadModel(ctx, wizard, cmd.StringArg("path"), r.api.BaseURL()), nil
	})
	if err != nil {
		return err
	}

	if res := wizard.Result(); res != nil {
		return r.writePlain("✓ Project %s: %s\n", res.ProjectID, models.DeepLink(r.api.BaseURL(), res.ProjectID, -1))
	}
	return nil
}
