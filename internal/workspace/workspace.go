package workspace

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/framelabel/internal/models"
	"github.com/desertthunder/framelabel/internal/shared"
)

const (
	// NoObjectDelay separates clearing a frame from advancing past it.
	NoObjectDelay = 200 * time.Millisecond
	// SingleObjectDelay separates the first box of a frame from advancing past it.
	SingleObjectDelay = 500 * time.Millisecond
)

// Mode is what a pointer gesture on the canvas does.
type Mode int

const (
	ModeDraw Mode = iota
	ModeSelect
)

func (m Mode) String() string {
	if m == ModeSelect {
		return "select"
	}
	return "draw"
}

// API is the server surface the workspace needs.
type API interface {
	Persistence
	FrameSource
}

// Options configures [New].
type Options struct {
	Config   models.WorkspaceConfig
	API      API
	Widget   Widget
	Drafts   DraftJournal
	History  HistoryRecorder
	BaseURL  string
	Notifier Notifier
	Logger   *log.Logger
	// Label returns the text of the label input; nil uses Config.DefaultLabel.
	Label func() string
	// After schedules fn after d. Defaults to [time.AfterFunc].
	After func(d time.Duration, fn func())
	Keys  *KeyMap
}

// Snapshot is the typed view model the UI renders.
type Snapshot struct {
	ProjectID   string
	Frame       int
	Target      int // frame being loaded; equals Frame when idle
	TotalFrames int
	Progress    float64
	State       NavState
	Image       *models.Frame
	Annotations []models.Annotation
	Dirty       bool
	Mode        Mode
	ShowHelp    bool
	AutoSave    bool
	SingleMode  bool
	DeepLink    string
	CanPrevious bool
	CanNext     bool
}

// SaveStatus renders the dirty flag for the status line.
func (s Snapshot) SaveStatus() string {
	switch {
	case s.State == Saving:
		return "Saving..."
	case s.Dirty:
		return "Unsaved changes"
	default:
		return "All changes saved"
	}
}

// Workspace wires the store, adapter, navigation and keyboard router of one project.
type Workspace struct {
	cfg      models.WorkspaceConfig
	Store    *FrameStore
	Adapter  *Adapter
	Nav      *NavigationController
	Keys     *KeyboardRouter
	notifier Notifier
	logger   *log.Logger
	after    func(time.Duration, func())

	mu       sync.Mutex
	mode     Mode
	showHelp bool
	single   bool
}

func New(opts Options) (*Workspace, error) {
	if err := opts.Config.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrInvalidInput, err)
	}
	if opts.API == nil || opts.Widget == nil {
		return nil, fmt.Errorf("%w: workspace needs an API client and a widget", shared.ErrInvalidInput)
	}
	if opts.Notifier == nil {
		opts.Notifier = nopNotifier{}
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(io.Discard)
	}
	logger := shared.WithLogger(opts.Logger, "project", opts.Config.ProjectID)

	after := opts.After
	if after == nil {
		after = func(d time.Duration, fn func()) { time.AfterFunc(d, fn) }
	}
	keys := DefaultKeyMap()
	if opts.Keys != nil {
		keys = *opts.Keys
	}

	store := NewFrameStore(StoreOpts{
		Config:   opts.Config,
		API:      opts.API,
		Drafts:   opts.Drafts,
		Notifier: opts.Notifier,
		Logger:   logger,
	})
	nav := NewNavigationController(NavigatorOpts{
		Config:   opts.Config,
		Store:    store,
		Frames:   opts.API,
		History:  opts.History,
		BaseURL:  opts.BaseURL,
		Notifier: opts.Notifier,
		Logger:   logger,
	})

	w := &Workspace{
		cfg:      opts.Config,
		Store:    store,
		Adapter:  NewAdapter(store, opts.Widget, opts.Label, opts.Config.DefaultLabel),
		Nav:      nav,
		Keys:     NewKeyboardRouter(keys),
		notifier: opts.Notifier,
		logger:   logger,
		after:    after,
		single:   opts.Config.SingleObjectMode,
	}
	w.Adapter.OnCreated(w.created)
	nav.OnNavigate(func(int) { w.Adapter.Sync() })
	return w, nil
}

// Open loads the initial frame, clamped into range.
func (w *Workspace) Open(ctx context.Context, frame int) error {
	frame = min(max(frame, 0), w.cfg.TotalFrames-1)
	return w.Nav.NavigateTo(ctx, frame)
}

// HandleKey routes k and performs the resulting action.
func (w *Workspace) HandleKey(ctx context.Context, k fmt.Stringer) (Action, error) {
	a := w.Keys.Route(k)
	return a, w.Perform(ctx, a)
}

// Perform executes a single action. Navigation errors are returned; everything else is reported
// through the notifier.
func (w *Workspace) Perform(ctx context.Context, a Action) error {
	switch a {
	case ActionNone:
		return nil
	case ActionPrevious:
		return w.Nav.Previous(ctx)
	case ActionNext:
		return w.Nav.Next(ctx)
	case ActionFirst:
		return w.Nav.First(ctx)
	case ActionLast:
		return w.Nav.Last(ctx)
	case ActionToggleMode:
		w.Adapter.widget.ToggleMode()
		w.mu.Lock()
		if w.mode == ModeDraw {
			w.mode = ModeSelect
		} else {
			w.mode = ModeDraw
		}
		w.mu.Unlock()
	case ActionDeleteSelected:
		w.Adapter.RemoveSelected()
	case ActionNoObject:
		w.NoObject(ctx)
	case ActionClearAll:
		w.Adapter.ClearAll()
	case ActionShowShortcuts:
		w.mu.Lock()
		w.showHelp = !w.showHelp
		w.mu.Unlock()
	case ActionCancel:
		w.mu.Lock()
		w.showHelp = false
		w.mu.Unlock()
		w.Adapter.Cancel()
	case ActionSave:
		return w.Save(ctx)
	case ActionUndo:
		w.notifier.Notify(info("Undo functionality coming soon"))
	default:
		return fmt.Errorf("%w: %s", shared.ErrNotImplemented, a)
	}
	return nil
}

// Save waits for background saves and then flushes the frame.
func (w *Workspace) Save(ctx context.Context) error {
	w.Store.Wait()
	if !w.Store.Dirty() {
		return nil
	}
	if err := w.Store.Save(ctx); err != nil {
		return err
	}
	w.notifier.Notify(Notification{Level: LevelSuccess, Message: "All changes saved"})
	return nil
}

// NoObject records the frame as empty and advances after [NoObjectDelay].
func (w *Workspace) NoObject(ctx context.Context) {
	w.Adapter.ClearAll()
	w.advanceAfter(ctx, NoObjectDelay)
}

// SetSingleObjectMode toggles advancing to the next frame after each created annotation.
func (w *Workspace) SetSingleObjectMode(on bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.single = on
}

func (w *Workspace) created(models.Annotation) {
	w.mu.Lock()
	single := w.single
	w.mu.Unlock()
	if single {
		w.advanceAfter(context.Background(), SingleObjectDelay)
	}
}

func (w *Workspace) advanceAfter(ctx context.Context, d time.Duration) {
	ctx = context.WithoutCancel(ctx)
	w.after(d, func() {
		if err := w.Nav.Next(ctx); err != nil && !IsSuperseded(err) {
			w.logger.Warn("delayed advance failed", "error", err)
		}
	})
}

// Mode returns the pointer mode.
func (w *Workspace) Mode() Mode {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.mode
}

// Snapshot collects the current state for rendering.
func (w *Workspace) Snapshot() Snapshot {
	state := w.Store.State()
	w.mu.Lock()
	mode, help, single := w.mode, w.showHelp, w.single
	w.mu.Unlock()

	return Snapshot{
		ProjectID:   w.cfg.ProjectID,
		Frame:       w.Nav.Current(),
		Target:      w.Nav.Target(),
		TotalFrames: w.cfg.TotalFrames,
		Progress:    w.Nav.Progress(),
		State:       w.Nav.State(),
		Image:       w.Nav.Frame(),
		Annotations: state.Annotations,
		Dirty:       state.Dirty,
		Mode:        mode,
		ShowHelp:    help,
		AutoSave:    w.cfg.AutoSave,
		SingleMode:  single,
		DeepLink:    w.Nav.DeepLink(),
		CanPrevious: w.Nav.CanPrevious(),
		CanNext:     w.Nav.CanNext(),
	}
}

// Config returns the workspace configuration.
func (w *Workspace) Config() models.WorkspaceConfig { return w.cfg }
