package workspace

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/framelabel/internal/models"
	"github.com/desertthunder/framelabel/internal/shared"
)

// Persistence loads and saves the annotations of a single frame.
type Persistence interface {
	LoadAnnotations(ctx context.Context, projectID string, frame int) ([]models.Annotation, error)
	SaveAnnotations(ctx context.Context, projectID string, frame int, annotations []models.Annotation) error
}

// DraftJournal keeps annotations whose save failed.
type DraftJournal interface {
	Put(ctx context.Context, projectID string, frame int, annotations []models.Annotation, cause error) error
	Delete(ctx context.Context, projectID string, frame int) error
}

// FrameStore holds the annotations of the current frame.
//
// Dirty is tracked as a revision counter compared against the revision of the last successful save,
// so a save that completes after further edits leaves the store dirty.
type FrameStore struct {
	cfg      models.WorkspaceConfig
	api      Persistence
	drafts   DraftJournal
	notifier Notifier
	logger   *log.Logger

	mu          sync.Mutex
	frame       int
	epoch       uint64
	annotations []models.Annotation
	revision    uint64
	saved       uint64
	listeners   []func(models.FrameState)
	inflight    int
	idle        *sync.Cond

	saveMu sync.Mutex
}

// StoreOpts configures [NewFrameStore]. Drafts, Notifier and Logger are optional.
type StoreOpts struct {
	Config   models.WorkspaceConfig
	API      Persistence
	Drafts   DraftJournal
	Notifier Notifier
	Logger   *log.Logger
}

func NewFrameStore(opts StoreOpts) *FrameStore {
	s := &FrameStore{
		cfg:         opts.Config,
		api:         opts.API,
		drafts:      opts.Drafts,
		notifier:    opts.Notifier,
		logger:      opts.Logger,
		annotations: []models.Annotation{},
	}
	s.idle = sync.NewCond(&s.mu)
	if s.notifier == nil {
		s.notifier = nopNotifier{}
	}
	if s.logger == nil {
		s.logger = shared.NewLogger(io.Discard)
	}
	return s
}

// OnChange registers fn to run after every change to the list or dirty flag.
//
// Listeners run synchronously on the mutating goroutine and must not call back into navigation.
func (s *FrameStore) OnChange(fn func(models.FrameState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// State returns a copy of the current frame state.
func (s *FrameStore) State() models.FrameState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *FrameStore) stateLocked() models.FrameState {
	return models.FrameState{
		Index:       s.frame,
		Annotations: slices.Clone(s.annotations),
		Dirty:       s.revision != s.saved,
	}
}

// Dirty reports whether the list changed since the last successful save.
func (s *FrameStore) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revision != s.saved
}

// Len returns the number of annotations on the current frame.
func (s *FrameStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.annotations)
}

// Load fetches the annotations of frame and replaces the list.
//
// On failure the list is emptied, the error is reported to the notifier and returned.
func (s *FrameStore) Load(ctx context.Context, frame int) error {
	annotations, err := s.api.LoadAnnotations(ctx, s.cfg.ProjectID, frame)
	if err != nil {
		s.Reset(frame)
		s.logger.Error("failed to load annotations", "project", s.cfg.ProjectID, "frame", frame, "error", err)
		s.notifier.Notify(failure("Failed to load annotations", err))
		return err
	}
	s.Replace(frame, annotations)
	return nil
}

// Replace installs annotations as the clean state of frame.
func (s *FrameStore) Replace(frame int, annotations []models.Annotation) {
	list := make([]models.Annotation, 0, len(annotations))
	for _, a := range annotations {
		a.Selected = false
		list = append(list, a)
	}

	s.mu.Lock()
	s.frame = frame
	s.epoch++
	s.annotations = list
	s.saved = s.revision
	s.changedLocked()
}

// Reset empties the list for frame without marking it dirty.
func (s *FrameStore) Reset(frame int) {
	s.Replace(frame, nil)
}

// Create appends a and marks the frame dirty.
func (s *FrameStore) Create(a models.Annotation) {
	a.Selected = false
	s.mutate(func() bool {
		s.annotations = append(s.annotations, a)
		return true
	})
}

// Update replaces the annotation with a.ID. Unknown ids are ignored and reported false.
func (s *FrameStore) Update(a models.Annotation) bool {
	return s.mutate(func() bool {
		i := s.indexLocked(a.ID)
		if i < 0 {
			return false
		}
		a.Selected = s.annotations[i].Selected
		s.annotations[i] = a
		return true
	})
}

// Delete removes the annotation with id. Unknown ids are ignored and reported false.
func (s *FrameStore) Delete(id string) bool {
	return s.mutate(func() bool {
		i := s.indexLocked(id)
		if i < 0 {
			return false
		}
		s.annotations = slices.Delete(s.annotations, i, i+1)
		return true
	})
}

// ClearAll empties the list. The frame becomes dirty even when it was already empty,
// which is how a frame is recorded as having no objects.
func (s *FrameStore) ClearAll() {
	s.mutate(func() bool {
		s.annotations = []models.Annotation{}
		return true
	})
}

// Select flags the annotation with id and clears every other flag. An empty or unknown id clears all.
func (s *FrameStore) Select(id string) bool {
	s.mu.Lock()
	found := false
	for i := range s.annotations {
		s.annotations[i].Selected = id != "" && s.annotations[i].ID == id
		found = found || s.annotations[i].Selected
	}
	s.changedLocked()
	return found
}

// Selected returns the selected annotation, if any.
func (s *FrameStore) Selected() (models.Annotation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.annotations {
		if a.Selected {
			return a, true
		}
	}
	return models.Annotation{}, false
}

// Save posts the current list when dirty. Concurrent calls are serialized and each posts
// the latest state at the time it acquires the save lock.
//
// A failure keeps the frame dirty, journals a draft and is reported to the notifier.
func (s *FrameStore) Save(ctx context.Context) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	if s.revision == s.saved {
		s.mu.Unlock()
		return nil
	}
	frame, epoch, rev := s.frame, s.epoch, s.revision
	annotations := slices.Clone(s.annotations)
	s.mu.Unlock()

	err := s.api.SaveAnnotations(ctx, s.cfg.ProjectID, frame, annotations)
	if err != nil {
		if !errors.Is(err, shared.ErrSave) {
			err = fmt.Errorf("%w: frame %d: %w", shared.ErrSave, frame, err)
		}
		s.logger.Error("failed to save annotations", "project", s.cfg.ProjectID, "frame", frame, "error", err)
		s.journal(ctx, frame, annotations, err)
		s.notifier.Notify(failure("Failed to save annotations", err))
		return err
	}

	s.mu.Lock()
	if s.epoch == epoch && rev > s.saved {
		s.saved = rev
	}
	s.changedLocked()
	s.logger.Debug("annotations saved", "project", s.cfg.ProjectID, "frame", frame, "count", len(annotations))
	s.discardDraft(ctx, frame)
	return nil
}

// Wait blocks until every background auto-save has finished, including saves started while waiting.
func (s *FrameStore) Wait() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.inflight > 0 {
		s.idle.Wait()
	}
}

func (s *FrameStore) mutate(fn func() bool) bool {
	s.mu.Lock()
	if !fn() {
		s.mu.Unlock()
		return false
	}
	s.revision++
	autoSave := s.cfg.AutoSave
	if autoSave {
		s.inflight++
	}
	s.changedLocked()

	if autoSave {
		go func() {
			defer s.saveDone()
			_ = s.Save(context.Background())
		}()
	}
	return true
}

func (s *FrameStore) saveDone() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight--
	if s.inflight == 0 {
		s.idle.Broadcast()
	}
}

// changedLocked releases s.mu and notifies listeners with the state it held.
func (s *FrameStore) changedLocked() {
	state := s.stateLocked()
	listeners := slices.Clone(s.listeners)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(state)
	}
}

func (s *FrameStore) indexLocked(id string) int {
	return slices.IndexFunc(s.annotations, func(a models.Annotation) bool { return a.ID == id })
}

func (s *FrameStore) journal(ctx context.Context, frame int, annotations []models.Annotation, cause error) {
	if s.drafts == nil {
		return
	}
	if err := s.drafts.Put(context.WithoutCancel(ctx), s.cfg.ProjectID, frame, annotations, cause); err != nil {
		s.logger.Warn("failed to journal draft", "project", s.cfg.ProjectID, "frame", frame, "error", err)
	}
}

func (s *FrameStore) discardDraft(ctx context.Context, frame int) {
	if s.drafts == nil {
		return
	}
	if err := s.drafts.Delete(context.WithoutCancel(ctx), s.cfg.ProjectID, frame); err != nil && !errors.Is(err, shared.ErrDraftNotFound) {
		s.logger.Warn("failed to discard draft", "project", s.cfg.ProjectID, "frame", frame, "error", err)
	}
}
