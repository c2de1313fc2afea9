package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/desertthunder/framelabel/internal/models"
	"github.com/desertthunder/framelabel/internal/shared"
)

// ProjectStats fetches frame and annotation counts plus the class vocabulary of a project.
func (a *APIService) ProjectStats(ctx context.Context, projectID string) (*models.ProjectStats, error) {
	var stats models.ProjectStats
	if err := a.getJSON(ctx, fmt.Sprintf("/api/project/%s/stats", url.PathEscape(projectID)), &stats); err != nil {
		if StatusCode(err) == 404 {
			return nil, fmt.Errorf("%w: %s: %w", shared.ErrProjectNotFound, projectID, err)
		}
		return nil, err
	}
	if stats.Classes == nil {
		stats.Classes = []string{}
	}
	return &stats, nil
}

// ListProjects fetches every project known to the server.
func (a *APIService) ListProjects(ctx context.Context) ([]models.Project, error) {
	var list models.ProjectList
	if err := a.getJSON(ctx, "/api/projects", &list); err != nil {
		return nil, err
	}
	return list.Projects, nil
}

// DeleteProject removes a project with its frames and annotations from the server.
func (a *APIService) DeleteProject(ctx context.Context, projectID string) error {
	resp, err := a.do(ctx, http.MethodDelete, "/api/project/"+url.PathEscape(projectID), nil, "")
	if err != nil {
		if StatusCode(err) == http.StatusNotFound {
			return fmt.Errorf("%w: %s: %w", shared.ErrProjectNotFound, projectID, err)
		}
		return err
	}
	return resp.Body.Close()
}
