package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/desertthunder/framelabel/internal/models"
	"github.com/desertthunder/framelabel/internal/shared"
)

const maxJSONBody = 4 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeStoreError maps store sentinels onto HTTP statuses.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrProjectNotFound), errors.Is(err, shared.ErrFrameOutOfRange):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, shared.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// frameParam reads the {frame} wildcard, writing a 400 when it is not a non-negative integer.
func frameParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	frame, err := strconv.Atoi(r.PathValue("frame"))
	if err != nil || frame < 0 {
		writeError(w, http.StatusBadRequest, "frame must be a non-negative integer")
		return 0, false
	}
	return frame, true
}

// formatParam reads the {format} wildcard, writing a 400 for an unknown format.
func formatParam(w http.ResponseWriter, r *http.Request) (models.ExportFormat, bool) {
	f, err := models.ParseExportFormat(r.PathValue("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid export format")
		return "", false
	}
	return f, true
}

func (s *DevServer) handleProjects(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.ProjectList{Projects: s.store.Projects()})
}

func (s *DevServer) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.PathValue("project"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *DevServer) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteProject(r.PathValue("project")); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Project deleted successfully"})
}

func (s *DevServer) handleFrame(w http.ResponseWriter, r *http.Request) {
	frame, ok := frameParam(w, r)
	if !ok {
		return
	}
	width, height, err := s.store.FrameSize(r.PathValue("project"), frame)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := EncodeFrame(&buf, width, height, frame); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = buf.WriteTo(w)
}

func (s *DevServer) handleGetAnnotations(w http.ResponseWriter, r *http.Request) {
	frame, ok := frameParam(w, r)
	if !ok {
		return
	}
	list, err := s.store.Annotations(r.PathValue("project"), frame)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if list == nil {
		list = []models.Annotation{}
	}
	writeJSON(w, http.StatusOK, models.FrameAnnotations{Annotations: list})
}

func (s *DevServer) handleSaveAnnotations(w http.ResponseWriter, r *http.Request) {
	frame, ok := frameParam(w, r)
	if !ok {
		return
	}

	var body models.FrameAnnotations
	if err := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid annotations payload")
		return
	}
	if err := s.store.SaveAnnotations(r.PathValue("project"), frame, body.Annotations); err != nil {
		writeStoreError(w, err)
		return
	}
	s.logger.Debug("annotations saved", "project", r.PathValue("project"), "frame", frame, "count", len(body.Annotations))
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *DevServer) handleDeleteAnnotation(w http.ResponseWriter, r *http.Request) {
	frame, ok := frameParam(w, r)
	if !ok {
		return
	}
	found, err := s.store.DeleteAnnotation(r.PathValue("project"), frame, r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "Annotation not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *DevServer) handleStartExport(w http.ResponseWriter, r *http.Request) {
	format, ok := formatParam(w, r)
	if !ok {
		return
	}

	req := models.ExportRequest{Format: format, FrameSelection: models.SelectAll, ImageQuality: 80}
	if err := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid export request")
		return
	}
	req.Format = format
	if _, err := models.ParseFrameSelection(string(req.FrameSelection)); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.ImageQuality < 1 || req.ImageQuality > 100 {
		writeError(w, http.StatusBadRequest, "image_quality must be within 1..100")
		return
	}

	if err := s.store.StartExport(r.PathValue("project"), req, s.opts.FailExports); err != nil {
		writeStoreError(w, err)
		return
	}
	s.logger.Info("export started", "project", r.PathValue("project"), "format", format, "selection", req.FrameSelection)
	writeJSON(w, http.StatusAccepted, models.ExportStatus{State: models.ExportPending})
}

func (s *DevServer) handleExportStatus(w http.ResponseWriter, r *http.Request) {
	format, ok := formatParam(w, r)
	if !ok {
		return
	}
	status, err := s.store.ExportStatus(r.PathValue("project"), format, s.opts.ExportStep)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *DevServer) handleDownload(w http.ResponseWriter, r *http.Request) {
	format, ok := formatParam(w, r)
	if !ok {
		return
	}
	project := r.PathValue("project")
	archive, err := s.store.Archive(project, format)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="`+project+"_"+string(format)+`.zip"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(archive)))
	_, _ = w.Write(archive)
}
