// package services implements the HTTP client for the annotation server
package services

import (
	"context"
	"io"

	"github.com/desertthunder/framelabel/internal/models"
)

// Client is the full surface of [APIService] used by the CLI and TUI.
//
// Consumers depend on the narrower interfaces declared next to them (workspace.Persistence,
// tasks.ExportAPI, tasks.UploadAPI); Client exists so tests can assert [APIService] satisfies all of them.
type Client interface {
	LoadAnnotations(ctx context.Context, projectID string, frame int) ([]models.Annotation, error)
	SaveAnnotations(ctx context.Context, projectID string, frame int, annotations []models.Annotation) error
	DeleteAnnotation(ctx context.Context, projectID string, frame int, id string) error
	FrameImage(ctx context.Context, projectID string, frame int) (*models.Frame, error)
	FrameURL(projectID string, frame int) string

	ProjectStats(ctx context.Context, projectID string) (*models.ProjectStats, error)
	ListProjects(ctx context.Context) ([]models.Project, error)
	DeleteProject(ctx context.Context, projectID string) error

	StartExport(ctx context.Context, projectID string, req models.ExportRequest) error
	ExportStatus(ctx context.Context, projectID string, format models.ExportFormat) (*models.ExportStatus, error)
	DownloadExport(ctx context.Context, projectID string, format models.ExportFormat, w io.Writer) (int64, error)

	Upload(ctx context.Context, req UploadRequest) (*models.UploadResult, error)
}

var _ Client = (*APIService)(nil)
