package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/desertthunder/framelabel/internal/models"
)

func exportPath(projectID string, format models.ExportFormat) string {
	return fmt.Sprintf("/api/export/%s/%s", url.PathEscape(projectID), url.PathEscape(string(format)))
}

// StartExport asks the server to build a dataset archive. A 2xx reply means the job started.
func (a *APIService) StartExport(ctx context.Context, projectID string, req models.ExportRequest) error {
	return a.postJSON(ctx, exportPath(projectID, req.Format), req, nil)
}

// ExportStatus polls the state of the export job for a project and format.
func (a *APIService) ExportStatus(ctx context.Context, projectID string, format models.ExportFormat) (*models.ExportStatus, error) {
	var status models.ExportStatus
	if err := a.getJSON(ctx, exportPath(projectID, format)+"/status", &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// ExportURL returns the archive download URL.
func (a *APIService) ExportURL(projectID string, format models.ExportFormat) string {
	return a.baseURL + exportPath(projectID, format)
}

// DownloadExport streams the finished archive into w and returns the byte count.
func (a *APIService) DownloadExport(ctx context.Context, projectID string, format models.ExportFormat, w io.Writer) (int64, error) {
	path := exportPath(projectID, format)
	resp, err := a.do(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, &FetchError{Method: http.MethodGet, URL: a.baseURL + path, Err: fmt.Errorf("failed to download archive: %w", err)}
	}
	return n, nil
}
