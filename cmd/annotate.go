package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/desertthunder/framelabel/internal/formatter"
	"github.com/desertthunder/framelabel/internal/models"
	"github.com/desertthunder/framelabel/internal/services"
	"github.com/desertthunder/framelabel/internal/shared"
	"github.com/desertthunder/framelabel/internal/ui"
	"github.com/desertthunder/framelabel/internal/workspace"
	"github.com/urfave/cli/v3"
)

// Annotate opens the annotation workspace on a project.
//
// The start frame is, in order: --frame, the frame of --link, the last visited frame, 0.
func (r *Runner) Annotate(ctx context.Context, cmd *cli.Command) error {
	projectID, frame, err := resolveTarget(cmd.StringArg("project"), cmd.String("link"), int(cmd.Int("frame")))
	if err != nil {
		return err
	}

	stats, err := r.projectStats(ctx, projectID)
	if err != nil {
		return err
	}

	if err := r.store(); err != nil {
		r.logger.Warn("local database unavailable, drafts and history disabled", "error", err)
	}

	if frame < 0 {
		frame = r.lastFrame(ctx, projectID, stats.TotalFrames)
	}
	if frame >= stats.TotalFrames {
		return fmt.Errorf("%w: frame %d of %d", shared.ErrFrameOutOfRange, frame, stats.TotalFrames)
	}

	wcfg := models.WorkspaceConfig{
		ProjectID:        projectID,
		TotalFrames:      stats.TotalFrames,
		AutoSave:         r.config.Workspace.AutoSave,
		DefaultLabel:     r.config.Workspace.DefaultLabel,
		SingleObjectMode: r.config.Workspace.SingleObjectMode,
	}
	if cmd.IsSet("auto-save") {
		wcfg.AutoSave = cmd.Bool("auto-save")
	}
	if cmd.IsSet("single") {
		wcfg.SingleObjectMode = cmd.Bool("single")
	}
	if label := strings.TrimSpace(cmd.String("label")); label != "" {
		wcfg.DefaultLabel = label
	}

	var model *ui.AnnotateModel
	err = r.runTUI(ctx, func() (tea.Model, error) {
		opts := workspace.Options{
			Config:  wcfg,
			API:     r.api,
			BaseURL: r.api.BaseURL(),
			Logger:  r.logger,
		}
		if r.db != nil {
			opts.Drafts = r.drafts
			opts.History = r.history
		}

		m, err := ui.NewAnnotateModel(ctx, ui.AnnotateOpts{Workspace: opts, Start: frame, Classes: stats.Classes})
		if err != nil {
			return nil, err
		}
		model = m
		return m, nil
	})
	if err != nil {
		return err
	}

	snap := model.Workspace().Snapshot()
	r.writePlain("Stopped at frame %d/%d: %s\n", snap.Frame+1, snap.TotalFrames, snap.DeepLink)
	if snap.Dirty {
		r.writePlain("⚠ Unsaved changes remain on this frame\n")
	}
	if r.db != nil {
		if drafts, err := r.drafts.List(ctx, projectID); err == nil && len(drafts) > 0 {
			r.writePlain("⚠ %d frame(s) failed to save; run 'framelabel drafts push -p %s'\n", len(drafts), projectID)
		}
	}
	return nil
}

// resolveTarget picks the project and start frame from the argument, the link and the --frame flag.
// A frame of -1 means none was given.
func resolveTarget(project, link string, frame int) (string, int, error) {
	start := -1
	if link != "" {
		p, f, err := models.ParseDeepLink(link)
		if err != nil {
			return "", -1, fmt.Errorf("%w: %v", shared.ErrInvalidFlag, err)
		}
		if project != "" && project != p {
			return "", -1, fmt.Errorf("%w: link is for project %s, not %s", shared.ErrInvalidArgument, p, project)
		}
		project, start = p, f
	}
	if project == "" {
		return "", -1, fmt.Errorf("%w: project", shared.ErrMissingArgument)
	}
	if frame >= 0 {
		start = frame
	}
	return project, start, nil
}

// lastFrame returns the frame recorded for projectID, or 0 when none is usable.
func (r *Runner) lastFrame(ctx context.Context, projectID string, total int) int {
	if r.db == nil {
		return 0
	}
	entry, err := r.history.Last(ctx, projectID)
	if err != nil || entry == nil {
		return 0
	}
	if entry.Frame < 0 || entry.Frame >= total {
		r.logger.Debug("ignoring stale history entry", "project", projectID, "frame", entry.Frame, "total", total)
		return 0
	}
	return entry.Frame
}

// projectStats fetches stats, mapping a 404 onto [shared.ErrProjectNotFound].
func (r *Runner) projectStats(ctx context.Context, projectID string) (*models.ProjectStats, error) {
	stats, err := r.api.ProjectStats(ctx, projectID)
	if err != nil {
		if services.StatusCode(err) == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", shared.ErrProjectNotFound, projectID)
		}
		return nil, err
	}
	return stats, nil
}

// AnnotationsDump fetches the annotations of a frame range and writes them to a file.
func (r *Runner) AnnotationsDump(ctx context.Context, cmd *cli.Command) error {
	projectID := cmd.StringArg("project")
	if projectID == "" {
		return fmt.Errorf("%w: project", shared.ErrMissingArgument)
	}

	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	stats, err := r.projectStats(ctx, projectID)
	if err != nil {
		return err
	}

	from, to := int(cmd.Int("from")), int(cmd.Int("to"))
	if to < 0 || to >= stats.TotalFrames {
		to = stats.TotalFrames - 1
	}
	if from < 0 || from > to {
		return fmt.Errorf("%w: frame range %d..%d of %d", shared.ErrFrameOutOfRange, from, to, stats.TotalFrames)
	}

	workers := int(cmd.Int("workers"))
	if workers <= 0 {
		workers = 1
	}

	r.logger.Info("dumping annotations", "project", projectID, "from", from, "to", to, "format", format)

	lists := make([][]models.Annotation, to-from+1)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range lists {
		g.Go(func() error {
			list, err := r.api.LoadAnnotations(gctx, projectID, from+i)
			if err != nil {
				return fmt.Errorf("frame %d: %w", from+i, err)
			}
			lists[i] = list
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("failed to load annotations: %w", err)
	}

	dump := &formatter.ProjectDump{ProjectID: projectID, Stats: stats}
	for i, list := range lists {
		dump.Add(from+i, list)
	}

	path, err := formatter.WriteDump(dump, format, cmd.String("output"))
	if err != nil {
		return err
	}

	r.logger.Info("dump written", "path", path, "annotations", dump.Count())
	return r.writePlain("✓ %d annotation(s) from %d frame(s) written to %s\n", dump.Count(), len(lists), path)
}

// AnnotationsDelete removes one stored annotation.
func (r *Runner) AnnotationsDelete(ctx context.Context, cmd *cli.Command) error {
	projectID, id := cmd.StringArg("project"), cmd.StringArg("id")
	if projectID == "" || id == "" {
		return fmt.Errorf("%w: project and id", shared.ErrMissingArgument)
	}
	frame := int(cmd.Int("frame"))
	if frame < 0 {
		return fmt.Errorf("%w: --frame must not be negative", shared.ErrInvalidFlag)
	}

	if err := r.api.DeleteAnnotation(ctx, projectID, frame, id); err != nil {
		if services.StatusCode(err) == http.StatusNotFound {
			return fmt.Errorf("%w: annotation %s on frame %d of %s: %w", shared.ErrInvalidArgument, id, frame, projectID, err)
		}
		return err
	}
	r.logger.Info("annotation deleted", "project", projectID, "frame", frame, "id", id)
	return r.writePlain("✓ Deleted annotation %s from frame %d\n", id, frame)
}
