package main

import (
	"context"
	"fmt"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/framelabel/internal/models"
	"github.com/desertthunder/framelabel/internal/shared"
	"github.com/desertthunder/framelabel/internal/tasks"
	"github.com/desertthunder/framelabel/internal/ui"
	"github.com/urfave/cli/v3"
)

// newExportSession builds a session from the export flags.
//
// With withDefault set, a missing --format falls back to the configured default; otherwise the
// format is left for the export screen to ask.
func (r *Runner) newExportSession(ctx context.Context, cmd *cli.Command, withDefault bool) (*tasks.ExportSession, string, error) {
	projectID := cmd.StringArg("project")
	if projectID == "" {
		return nil, "", fmt.Errorf("%w: project", shared.ErrMissingArgument)
	}

	selection, err := models.ParseFrameSelection(cmd.String("frames"))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", shared.ErrInvalidFlag, err)
	}

	stats, err := r.projectStats(ctx, projectID)
	if err != nil {
		return nil, "", err
	}

	session := tasks.NewExportSession(r.api, projectID, *stats, tasks.ExportSessionOpts{
		Quality:      r.config.Export.DefaultQuality,
		Selection:    selection,
		PollInterval: r.config.Export.PollInterval(),
		Logger:       r.logger,
	})

	if cmd.IsSet("quality") {
		if err := session.SetQuality(int(cmd.Int("quality"))); err != nil {
			return nil, "", fmt.Errorf("%w: %v", shared.ErrInvalidFlag, err)
		}
	}

	name := cmd.String("format")
	if name == "" && withDefault {
		name = r.config.Export.DefaultFormat
	}
	if name != "" {
		format, err := models.ParseExportFormat(name)
		if err != nil {
			return nil, "", fmt.Errorf("%w: %v", shared.ErrInvalidFlag, err)
		}
		if err := session.SelectFormat(format); err != nil {
			return nil, "", err
		}
	}
	return session, projectID, nil
}

// ExportEstimate prints what an export would contain.
func (r *Runner) ExportEstimate(ctx context.Context, cmd *cli.Command) error {
	session, projectID, err := r.newExportSession(ctx, cmd, true)
	if err != nil {
		return err
	}

	summary := session.Summary()
	if cmd.Bool("json") {
		return r.writeJSON(summary, cmd.Bool("pretty"))
	}

	r.writePlainHeader(fmt.Sprintf("Export estimate: %s", projectID))
	r.writePlain("Format:         %s\n", summary.Format)
	r.writePlain("Frames:         %s (%d)\n", session.FrameSelection(), summary.Frames)
	r.writePlain("Image quality:  %d\n", session.Quality())
	return r.writePlain("Estimated size: %s\n", summary.EstimatedSize)
}

// ExportRun starts the job, prints its progress and downloads the archive.
func (r *Runner) ExportRun(ctx context.Context, cmd *cli.Command) error {
	session, projectID, err := r.newExportSession(ctx, cmd, true)
	if err != nil {
		return err
	}

	format, _ := session.Format()
	path := cmd.String("output")
	if path == "" {
		path = tasks.DefaultArchiveName(projectID, format)
	}

	r.logger.Info("starting export", "project", projectID, "format", format, "frames", session.FrameSelection())

	progress, wait := r.printProgress()
	status, err := session.Run(ctx, progress)
	if err == nil {
		_, err = session.Download(ctx, path, progress)
		if err != nil {
			err = fmt.Errorf("download failed: %w", err)
		}
	}
	wait()
	if err != nil {
		return err
	}

	r.logger.Info("export downloaded", "project", projectID, "path", path)
	if status != nil && status.Message != "" {
		r.writePlain("%s\n", status.Message)
	}
	return r.writePlain("✓ Export saved to %s\n", path)
}

// ExportUI opens the export screen.
func (r *Runner) ExportUI(ctx context.Context, cmd *cli.Command) error {
	return r.runTUI(ctx, func() (tea.Model, error) {
		session, projectID, err := r.newExportSession(ctx, cmd, false)
		if err != nil {
			return nil, err
		}
		return ui.NewExportModel(ctx, ui.ExportOpts{Session: session, ProjectID: projectID, Output: cmd.String("output")}), nil
	})
}

// printProgress returns a channel whose updates are written to the output, and a func that
// closes it and waits for the last line.
func (r *Runner) printProgress() (chan tasks.ProgressUpdate, func()) {
	progress := make(chan tasks.ProgressUpdate, 50)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for u := range progress {
			if u.Message != "" {
				r.writePlain("  %s\n", u.Message)
			}
		}
	}()
	return progress, func() {
		close(progress)
		wg.Wait()
	}
}
