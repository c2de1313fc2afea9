package services

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"

	"github.com/desertthunder/framelabel/internal/models"
	"github.com/desertthunder/framelabel/internal/shared"
)

// maxFrameBytes bounds a single frame download.
const maxFrameBytes = 64 << 20

func annotationsPath(projectID string, frame int) string {
	return fmt.Sprintf("/api/annotations/%s/%d", url.PathEscape(projectID), frame)
}

func framePath(projectID string, frame int) string {
	return fmt.Sprintf("/api/frame/%s/%d", url.PathEscape(projectID), frame)
}

// LoadAnnotations fetches the annotations stored for one frame.
//
// A frame with no stored record yields an empty, non-nil slice.
func (a *APIService) LoadAnnotations(ctx context.Context, projectID string, frame int) ([]models.Annotation, error) {
	var body models.FrameAnnotations
	if err := a.getJSON(ctx, annotationsPath(projectID, frame), &body); err != nil {
		return nil, err
	}
	if body.Annotations == nil {
		body.Annotations = []models.Annotation{}
	}
	return body.Annotations, nil
}

// SaveAnnotations replaces the stored annotations of one frame. Last write wins.
func (a *APIService) SaveAnnotations(ctx context.Context, projectID string, frame int, annotations []models.Annotation) error {
	if annotations == nil {
		annotations = []models.Annotation{}
	}
	body := models.FrameAnnotations{Annotations: annotations}
	if err := a.postJSON(ctx, annotationsPath(projectID, frame), body, nil); err != nil {
		return fmt.Errorf("%w: frame %d: %w", shared.ErrSave, frame, err)
	}
	return nil
}

// DeleteAnnotation removes one annotation of a frame by id.
//
// The server answers 404 both for an unknown project and for an unknown id; the returned FetchError carries its message.
func (a *APIService) DeleteAnnotation(ctx context.Context, projectID string, frame int, id string) error {
	path := annotationsPath(projectID, frame) + "/" + url.PathEscape(id)
	resp, err := a.do(ctx, http.MethodDelete, path, nil, "")
	if err != nil {
		return err
	}
	return resp.Body.Close()
}

// FrameURL returns the absolute image URL of a frame.
func (a *APIService) FrameURL(projectID string, frame int) string {
	return a.baseURL + framePath(projectID, frame)
}

// FrameImage downloads a frame and decodes its dimensions.
//
// The pixels themselves are not kept; the workspace only needs the geometry to map the canvas onto image space.
func (a *APIService) FrameImage(ctx context.Context, projectID string, frame int) (*models.Frame, error) {
	path := framePath(projectID, frame)
	resp, err := a.do(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFrameBytes))
	if err != nil {
		return nil, &FetchError{Method: http.MethodGet, URL: a.baseURL + path, Err: fmt.Errorf("failed to read frame: %w", err)}
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, &FetchError{Method: http.MethodGet, URL: a.baseURL + path, Err: fmt.Errorf("failed to decode frame: %w", err)}
	}

	return &models.Frame{
		Index:    frame,
		ImageURL: a.baseURL + path,
		Width:    cfg.Width,
		Height:   cfg.Height,
		Size:     len(data),
		Format:   format,
	}, nil
}
