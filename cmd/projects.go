package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/desertthunder/framelabel/internal/formatter"
	"github.com/desertthunder/framelabel/internal/models"
	"github.com/desertthunder/framelabel/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

// statsWorkers bounds the stats requests of a --sort progress listing.
const statsWorkers = 4

// Stats prints the annotation progress of a project.
func (r *Runner) Stats(ctx context.Context, cmd *cli.Command) error {
	projectID := cmd.StringArg("project")
	if projectID == "" {
		return fmt.Errorf("%w: project", shared.ErrMissingArgument)
	}

	stats, err := r.projectStats(ctx, projectID)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(stats, cmd.Bool("pretty"))
	}
	return r.writePlain("%s\n", formatter.StatsTable(projectID, stats))
}

// Projects lists the projects on the server, optionally sorted by --sort.
func (r *Runner) Projects(ctx context.Context, cmd *cli.Command) error {
	order, err := models.ParseProjectOrder(cmd.String("sort"))
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidFlag, err)
	}

	projects, err := r.api.ListProjects(ctx)
	if err != nil {
		return fmt.Errorf("failed to list projects: %w", err)
	}

	var progress map[string]float64
	if order == models.OrderByProgress {
		if progress, err = r.completion(ctx, projects); err != nil {
			return err
		}
	}
	models.SortProjects(projects, order, progress)

	if cmd.Bool("json") {
		return r.writeJSON(projects, cmd.Bool("pretty"))
	}
	if len(projects) == 0 {
		return r.writePlain("No projects yet. Create one with 'framelabel upload run <video>'\n")
	}
	return r.writePlain("%s\n", formatter.ProjectsTable(projects))
}

// completion fetches the completion percentage of every project.
func (r *Runner) completion(ctx context.Context, projects []models.Project) (map[string]float64, error) {
	var mu sync.Mutex
	progress := make(map[string]float64, len(projects))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(statsWorkers)
	for _, p := range projects {
		g.Go(func() error {
			stats, err := r.projectStats(gctx, p.ID)
			if err != nil {
				return fmt.Errorf("failed to load progress of %s: %w", p.ID, err)
			}
			mu.Lock()
			progress[p.ID] = stats.CompletionPercentage
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return progress, nil
}

// ProjectsDelete removes a project and everything annotated in it.
func (r *Runner) ProjectsDelete(ctx context.Context, cmd *cli.Command) error {
	projectID := cmd.StringArg("project")
	if projectID == "" {
		return fmt.Errorf("%w: project", shared.ErrMissingArgument)
	}

	if err := r.api.DeleteProject(ctx, projectID); err != nil {
		return err
	}
	r.logger.Info("project deleted", "project", projectID)

	if err := r.store(); err != nil {
		r.logger.Warn("local history kept", "project", projectID, "error", err)
	} else if err := r.history.Forget(ctx, projectID); err != nil {
		r.logger.Warn("failed to forget history", "project", projectID, "error", err)
	}
	return r.writePlain("✓ Deleted project %s\n", projectID)
}
