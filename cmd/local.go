package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/desertthunder/framelabel/internal/formatter"
	"github.com/desertthunder/framelabel/internal/shared"
	"github.com/desertthunder/framelabel/internal/tasks"
	"github.com/urfave/cli/v3"
)

// History lists the last frame visited per project, or forgets one project.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	if err := r.store(); err != nil {
		return err
	}

	if project := cmd.String("forget"); project != "" {
		if err := r.history.Forget(ctx, project); err != nil {
			return fmt.Errorf("failed to forget %s: %w", project, err)
		}
		return r.writePlain("✓ Forgot history of %s\n", project)
	}

	entries, err := r.history.List(ctx, int(cmd.Int("limit")))
	if err != nil {
		return fmt.Errorf("failed to list history: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(entries, cmd.Bool("pretty"))
	}
	if len(entries) == 0 {
		return r.writePlain("No projects visited yet\n")
	}
	return r.writePlain("%s\n", formatter.HistoryTable(entries, r.api.BaseURL()))
}

// DraftsList prints the frames whose save failed.
func (r *Runner) DraftsList(ctx context.Context, cmd *cli.Command) error {
	if err := r.store(); err != nil {
		return err
	}

	drafts, err := r.drafts.List(ctx, cmd.String("project"))
	if err != nil {
		return fmt.Errorf("failed to list drafts: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(drafts, cmd.Bool("pretty"))
	}
	if len(drafts) == 0 {
		return r.writePlain("No drafts\n")
	}
	return r.writePlain("%s\n", formatter.DraftsTable(drafts))
}

// DraftsPush retries every draft against the server and keeps the ones that fail again.
func (r *Runner) DraftsPush(ctx context.Context, cmd *cli.Command) error {
	if err := r.store(); err != nil {
		return err
	}

	progress, wait := r.printProgress()
	result, err := tasks.PushDrafts(ctx, progress, r.drafts, r.api, tasks.PushOpts{
		ProjectID:  cmd.String("project"),
		NumWorkers: int(cmd.Int("workers")),
		RateLimit:  cmd.Float("rate"),
		Logger:     r.logger,
	})
	wait()
	if err != nil {
		return err
	}

	if result.Total == 0 {
		return r.writePlain("No drafts to push\n")
	}
	r.writePlainln("Pushed %d of %d draft(s)", result.Pushed, result.Total)
	if result.Failed > 0 {
		return fmt.Errorf("%w: %d draft(s) still failing", shared.ErrSave, result.Failed)
	}
	return nil
}

// DraftsDiscard deletes the draft of one frame.
func (r *Runner) DraftsDiscard(ctx context.Context, cmd *cli.Command) error {
	projectID := cmd.StringArg("project")
	if projectID == "" {
		return fmt.Errorf("%w: project", shared.ErrMissingArgument)
	}
	if err := r.store(); err != nil {
		return err
	}

	frame := int(cmd.Int("frame"))
	if err := r.drafts.Delete(ctx, projectID, frame); err != nil {
		if errors.Is(err, shared.ErrDraftNotFound) {
			return err
		}
		return fmt.Errorf("failed to discard draft: %w", err)
	}
	return r.writePlain("✓ Discarded draft of %s frame %d\n", projectID, frame)
}
