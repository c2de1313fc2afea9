package workspace

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/desertthunder/framelabel/internal/models"
)

type saveCall struct {
	frame       int
	annotations []models.Annotation
}

type fakeAPI struct {
	mu       sync.Mutex
	frames   map[int][]models.Annotation
	saves    []saveCall
	loads    []int
	saveErr  error
	loadErr  error
	imageErr error
	gates    map[int]chan struct{}
	started  chan int
	imaged   chan int // receives the frame of every finished image fetch when set
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{frames: map[int][]models.Annotation{}, gates: map[int]chan struct{}{}, started: make(chan int, 16)}
}

func (f *fakeAPI) LoadAnnotations(ctx context.Context, projectID string, frame int) ([]models.Annotation, error) {
	f.mu.Lock()
	f.loads = append(f.loads, frame)
	gate, gated := f.gates[frame]
	err := f.loadErr
	list := slices.Clone(f.frames[frame])
	f.mu.Unlock()

	if gated {
		f.started <- frame
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []models.Annotation{}
	}
	return list, nil
}

func (f *fakeAPI) SaveAnnotations(ctx context.Context, projectID string, frame int, annotations []models.Annotation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves = append(f.saves, saveCall{frame: frame, annotations: slices.Clone(annotations)})
	if f.saveErr != nil {
		return f.saveErr
	}
	f.frames[frame] = slices.Clone(annotations)
	return nil
}

func (f *fakeAPI) FrameImage(ctx context.Context, projectID string, frame int) (*models.Frame, error) {
	f.mu.Lock()
	err, imaged := f.imageErr, f.imaged
	f.mu.Unlock()
	if imaged != nil {
		defer func() { imaged <- frame }()
	}
	if err != nil {
		return nil, err
	}
	return &models.Frame{Index: frame, ImageURL: fmt.Sprintf("/api/frame/%s/%d", projectID, frame), Width: 640, Height: 480}, nil
}

func (f *fakeAPI) gate(frame int) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[frame] = ch
	return ch
}

func (f *fakeAPI) saveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saves)
}

func (f *fakeAPI) lastSave() saveCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saves[len(f.saves)-1]
}

func (f *fakeAPI) setSaveErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saveErr = err
}

type fakeWidget struct {
	mu       sync.Mutex
	handlers map[EventKind]func(models.Annotation)
	shown    []models.Annotation
	calls    []string
}

func newFakeWidget() *fakeWidget {
	return &fakeWidget{handlers: map[EventKind]func(models.Annotation){}}
}

func (w *fakeWidget) On(kind EventKind, fn func(models.Annotation)) { w.handlers[kind] = fn }

func (w *fakeWidget) emit(kind EventKind, a models.Annotation) { w.handlers[kind](a) }

func (w *fakeWidget) record(call string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls = append(w.calls, call)
}

func (w *fakeWidget) called(call string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Contains(w.calls, call)
}

func (w *fakeWidget) SetAnnotations(a []models.Annotation) {
	w.mu.Lock()
	w.shown = slices.Clone(a)
	w.mu.Unlock()
	w.record("set")
}

func (w *fakeWidget) Select(id string) { w.record("select:" + id) }
func (w *fakeWidget) Remove(id string) { w.record("remove:" + id) }
func (w *fakeWidget) Clear()           { w.record("clear") }
func (w *fakeWidget) CancelSelected()  { w.record("cancel") }
func (w *fakeWidget) ToggleMode()      { w.record("toggle") }

type recordingNotifier struct {
	mu    sync.Mutex
	items []Notification
}

func (r *recordingNotifier) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
}

func (r *recordingNotifier) last() (Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.items) == 0 {
		return Notification{}, false
	}
	return r.items[len(r.items)-1], true
}

func (r *recordingNotifier) count(level Level) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, it := range r.items {
		if it.Level == level {
			n++
		}
	}
	return n
}

type fakeJournal struct {
	mu     sync.Mutex
	drafts map[int][]models.Annotation
}

func (j *fakeJournal) Put(ctx context.Context, projectID string, frame int, annotations []models.Annotation, cause error) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.drafts == nil {
		j.drafts = map[int][]models.Annotation{}
	}
	j.drafts[frame] = slices.Clone(annotations)
	return nil
}

func (j *fakeJournal) Delete(ctx context.Context, projectID string, frame int) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	delete(j.drafts, frame)
	return nil
}

func (j *fakeJournal) has(frame int) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	_, ok := j.drafts[frame]
	return ok
}

type fakeHistory struct {
	mu     sync.Mutex
	frames []int
}

func (h *fakeHistory) Record(ctx context.Context, projectID string, frame, total int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.frames = append(h.frames, frame)
	return nil
}

// manualClock collects delayed callbacks so tests can fire them deterministically.
type manualClock struct {
	mu      sync.Mutex
	pending []func()
	delays  []time.Duration
}

func (c *manualClock) After(d time.Duration, fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = append(c.pending, fn)
	c.delays = append(c.delays, d)
}

func (c *manualClock) Fire() {
	c.mu.Lock()
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()
	for _, fn := range pending {
		fn()
	}
}

var errBoom = errors.New("boom")

func box(id string) models.Annotation {
	return models.Annotation{ID: id, X: 10, Y: 20, Width: 30, Height: 40}
}

func testConfig(total int, autoSave bool) models.WorkspaceConfig {
	return models.WorkspaceConfig{ProjectID: "proj", TotalFrames: total, AutoSave: autoSave, DefaultLabel: models.DefaultLabel}
}
