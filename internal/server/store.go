package server

import (
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/desertthunder/framelabel/internal/models"
	"github.com/desertthunder/framelabel/internal/shared"
)

// project is one uploaded video with its extracted frames and stored annotations.
type project struct {
	info   models.Project
	width  int
	height int
	frames map[int][]models.Annotation
	jobs   map[models.ExportFormat]*exportJob
}

// exportJob advances by a fixed step every time its status is read.
type exportJob struct {
	req     models.ExportRequest
	percent float64
	fail    string
	archive []byte
}

// Store keeps every project in memory. It is safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	projects map[string]*project
	width    int
	height   int
}

// NewStore creates an empty store whose frames render at width×height.
func NewStore(width, height int) *Store {
	if width <= 0 {
		width = 640
	}
	if height <= 0 {
		height = 360
	}
	return &Store{projects: make(map[string]*project), width: width, height: height}
}

// AddProject registers a project with frames extracted frames and returns its listing entry.
func (s *Store) AddProject(name string, frames int, interval float64) models.Project {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := &project{
		info: models.Project{
			ID:             shared.GenerateID(),
			Name:           name,
			ExtractedCount: frames,
			FrameInterval:  interval,
			CreatedAt:      time.Now().UTC().Format(time.RFC3339),
		},
		width:  s.width,
		height: s.height,
		frames: make(map[int][]models.Annotation),
		jobs:   make(map[models.ExportFormat]*exportJob),
	}
	s.projects[p.info.ID] = p
	return p.info
}

// Projects lists every project, oldest first.
func (s *Store) Projects() []models.Project {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]models.Project, 0, len(s.projects))
	for _, p := range s.projects {
		list = append(list, p.info)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt == list[j].CreatedAt {
			return list[i].ID < list[j].ID
		}
		return list[i].CreatedAt < list[j].CreatedAt
	})
	return list
}

// DeleteProject removes a project and its annotations.
func (s *Store) DeleteProject(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[id]; !ok {
		return fmt.Errorf("%w: %s", shared.ErrProjectNotFound, id)
	}
	delete(s.projects, id)
	return nil
}

// lookup returns the project and checks frame against its frame count. A negative frame skips the check.
func (s *Store) lookup(id string, frame int) (*project, error) {
	p, ok := s.projects[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrProjectNotFound, id)
	}
	if frame >= 0 && frame >= p.info.ExtractedCount {
		return nil, fmt.Errorf("%w: %d of %d", shared.ErrFrameOutOfRange, frame, p.info.ExtractedCount)
	}
	return p, nil
}

// FrameSize returns the pixel size of a project's frames.
func (s *Store) FrameSize(id string, frame int) (int, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, err := s.lookup(id, frame)
	if err != nil {
		return 0, 0, err
	}
	return p.width, p.height, nil
}

// Annotations returns a copy of the stored list for a frame.
func (s *Store) Annotations(id string, frame int) ([]models.Annotation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, err := s.lookup(id, frame)
	if err != nil {
		return nil, err
	}
	return slices.Clone(p.frames[frame]), nil
}

// SaveAnnotations replaces a frame's list. An empty list keeps the frame as visited with no objects.
func (s *Store) SaveAnnotations(id string, frame int, list []models.Annotation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.lookup(id, frame)
	if err != nil {
		return err
	}
	stored := make([]models.Annotation, len(list))
	for i, a := range list {
		a.Selected = false
		if a.ID == "" {
			a.ID = shared.GenerateID()
		}
		stored[i] = a
	}
	p.frames[frame] = stored
	return nil
}

// DeleteAnnotation removes one annotation by id.
func (s *Store) DeleteAnnotation(id string, frame int, annotationID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.lookup(id, frame)
	if err != nil {
		return false, err
	}
	list := p.frames[frame]
	i := slices.IndexFunc(list, func(a models.Annotation) bool { return a.ID == annotationID })
	if i < 0 {
		return false, nil
	}
	p.frames[frame] = slices.Delete(list, i, i+1)
	return true, nil
}

// Stats computes the project counters served by the stats endpoint.
func (s *Store) Stats(id string) (*models.ProjectStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, err := s.lookup(id, -1)
	if err != nil {
		return nil, err
	}
	return p.stats(), nil
}

func (p *project) stats() *models.ProjectStats {
	st := &models.ProjectStats{TotalFrames: p.info.ExtractedCount, Classes: p.classes()}
	for _, list := range p.frames {
		if len(list) > 0 {
			st.AnnotatedFrames++
		}
		st.TotalAnnotations += len(list)
	}
	st.UniqueClasses = len(st.Classes)
	if st.TotalFrames > 0 {
		st.CompletionPercentage = float64(st.AnnotatedFrames) / float64(st.TotalFrames) * 100
	}
	return st
}

// classes returns the sorted label vocabulary of a project.
func (p *project) classes() []string {
	seen := map[string]bool{}
	for _, list := range p.frames {
		for _, a := range list {
			seen[a.Label()] = true
		}
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// exportFrames returns the frame indexes to export for sel, ascending.
func (p *project) exportFrames(sel models.FrameSelection) []int {
	var out []int
	for i := range p.info.ExtractedCount {
		if sel == models.SelectAnnotated && len(p.frames[i]) == 0 {
			continue
		}
		out = append(out, i)
	}
	return out
}

// StartExport creates or restarts the job of a format. failMessage makes the job fail instead of completing.
func (s *Store) StartExport(id string, req models.ExportRequest, failMessage string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.lookup(id, -1)
	if err != nil {
		return err
	}
	p.jobs[req.Format] = &exportJob{req: req, fail: failMessage}
	return nil
}

// ExportStatus advances the job by step percent and reports it. The archive is built when it completes.
func (s *Store) ExportStatus(id string, format models.ExportFormat, step float64) (*models.ExportStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.lookup(id, -1)
	if err != nil {
		return nil, err
	}
	job, ok := p.jobs[format]
	if !ok {
		return nil, fmt.Errorf("%w: no %s export started", shared.ErrInvalidInput, format)
	}

	if job.archive == nil && job.percent < 100 {
		job.percent = min(job.percent+step, 100)
	}
	if job.fail != "" && job.percent >= 50 {
		return &models.ExportStatus{State: models.ExportFailed, Percent: job.percent, Message: job.fail}, nil
	}
	if job.percent < 100 {
		return &models.ExportStatus{State: models.ExportRunning, Percent: job.percent}, nil
	}
	if job.archive == nil {
		archive, err := buildArchive(p, job.req)
		if err != nil {
			return &models.ExportStatus{State: models.ExportFailed, Percent: 100, Message: err.Error()}, nil
		}
		job.archive = archive
	}
	return &models.ExportStatus{State: models.ExportComplete, Percent: 100}, nil
}

// Archive returns the finished archive of a format. An export requested without a job is built on the spot.
func (s *Store) Archive(id string, format models.ExportFormat) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.lookup(id, -1)
	if err != nil {
		return nil, err
	}
	if job, ok := p.jobs[format]; ok && job.archive != nil {
		return job.archive, nil
	}
	return buildArchive(p, models.ExportRequest{Format: format, FrameSelection: models.SelectAll, ImageQuality: 80})
}
