package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/framelabel/internal/models"
	"github.com/desertthunder/framelabel/internal/tasks"
)

// UploadHandler accepts multipart video uploads and creates a project from them.
//
// The video part is streamed and counted, never stored; the frame count comes from the
// same size heuristic the upload wizard shows.
type UploadHandler struct {
	store    *Store
	maxBytes int64
	logger   *log.Logger
}

func NewUploadHandler(store *Store, maxMB int, logger *log.Logger) *UploadHandler {
	return &UploadHandler{store: store, maxBytes: int64(maxMB) << 20, logger: logger}
}

// Routes implements [RouteGroup].
func (h *UploadHandler) Routes() []string {
	return []string{"POST /upload"}
}

type uploadForm struct {
	filename    string
	size        int64
	projectName string
	interval    float64
}

// ServeHTTP reads the form parts in any order and replies with {project_id} or {error}.
func (h *UploadHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	form, status, err := h.read(r)
	if err != nil {
		h.logger.Warn("upload rejected", "error", err)
		writeError(w, status, err.Error())
		return
	}

	est := tasks.EstimateUpload(form.size, form.interval)
	p := h.store.AddProject(form.projectName, max(est.Frames, 1), form.interval)
	h.logger.Info("project created", "project", p.ID, "name", p.Name, "frames", p.ExtractedCount)

	writeJSON(w, http.StatusOK, models.UploadResult{Success: true, ProjectID: p.ID, ExtractedCount: p.ExtractedCount})
}

func (h *UploadHandler) read(r *http.Request) (*uploadForm, int, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, http.StatusBadRequest, fmt.Errorf("expected a multipart form: %w", err)
	}

	form := &uploadForm{interval: tasks.DefaultFrameInterval}
	haveVideo := false
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, http.StatusBadRequest, fmt.Errorf("malformed form: %w", err)
		}

		switch part.FormName() {
		case "video":
			if part.FileName() == "" {
				return nil, http.StatusBadRequest, errors.New("No file selected")
			}
			form.filename = filepath.Base(part.FileName())
			n, err := io.Copy(io.Discard, part)
			if err != nil {
				return nil, http.StatusBadRequest, fmt.Errorf("failed to read video: %w", err)
			}
			if n > h.maxBytes {
				return nil, http.StatusRequestEntityTooLarge, fmt.Errorf("File size must be less than %dMB", h.maxBytes>>20)
			}
			form.size = n
			haveVideo = true
		case "project_name":
			v, _ := io.ReadAll(io.LimitReader(part, 1024))
			form.projectName = strings.TrimSpace(string(v))
		case "frame_interval":
			v, _ := io.ReadAll(io.LimitReader(part, 64))
			f, err := strconv.ParseFloat(strings.TrimSpace(string(v)), 64)
			if err != nil {
				return nil, http.StatusBadRequest, fmt.Errorf("invalid frame_interval %q", v)
			}
			form.interval = f
		}
		part.Close()
	}

	if !haveVideo {
		return nil, http.StatusBadRequest, errors.New("No video file provided")
	}
	if err := tasks.ValidateVideo(form.filename, form.size, h.maxBytes); err != nil {
		return nil, http.StatusBadRequest, err
	}
	if err := tasks.ValidateInterval(form.interval); err != nil {
		return nil, http.StatusBadRequest, err
	}
	if form.projectName == "" {
		form.projectName = strings.TrimSuffix(form.filename, filepath.Ext(form.filename))
	}
	return form, http.StatusOK, nil
}
