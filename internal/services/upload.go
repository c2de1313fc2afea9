package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/desertthunder/framelabel/internal/models"
)

// UploadRequest is the multipart form sent to POST /upload.
type UploadRequest struct {
	Path          string
	ProjectName   string
	FrameInterval float64
}

// Upload streams the video at req.Path together with the project parameters.
//
// The file is never buffered in memory: a goroutine writes the multipart body into a pipe that the request reads.
func (a *APIService) Upload(ctx context.Context, req UploadRequest) (*models.UploadResult, error) {
	f, err := os.Open(req.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open video: %w", err)
	}
	defer f.Close()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		pw.CloseWithError(writeUploadForm(mw, f, req))
	}()

	resp, err := a.do(ctx, http.MethodPost, "/upload", pr, mw.FormDataContentType())
	// Unblocks the writer goroutine when the request ended before draining the pipe.
	pr.Close()
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result models.UploadResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &FetchError{Method: http.MethodPost, URL: a.baseURL + "/upload", Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	if result.Error != "" {
		return nil, &FetchError{Method: http.MethodPost, URL: a.baseURL + "/upload", StatusCode: resp.StatusCode, Message: result.Error}
	}
	if result.ProjectID == "" {
		return nil, &FetchError{Method: http.MethodPost, URL: a.baseURL + "/upload", Err: fmt.Errorf("response carried no project id")}
	}
	return &result, nil
}

func writeUploadForm(mw *multipart.Writer, video io.Reader, req UploadRequest) error {
	part, err := mw.CreateFormFile("video", filepath.Base(req.Path))
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, video); err != nil {
		return err
	}
	if err := mw.WriteField("project_name", req.ProjectName); err != nil {
		return err
	}
	if err := mw.WriteField("frame_interval", strconv.FormatFloat(req.FrameInterval, 'f', -1, 64)); err != nil {
		return err
	}
	return mw.Close()
}
