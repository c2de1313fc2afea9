package workspace

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/desertthunder/framelabel/internal/models"
	"github.com/desertthunder/framelabel/internal/shared"
)

// NavState is the navigation state machine.
type NavState int

const (
	Idle NavState = iota
	Saving
	Loading
)

func (s NavState) String() string {
	switch s {
	case Saving:
		return "saving"
	case Loading:
		return "loading"
	default:
		return "idle"
	}
}

// FrameSource fetches the image behind a frame index.
type FrameSource interface {
	FrameImage(ctx context.Context, projectID string, frame int) (*models.Frame, error)
}

// HistoryRecorder remembers the last frame visited per project.
type HistoryRecorder interface {
	Record(ctx context.Context, projectID string, frame, totalFrames int) error
}

// NavigationController moves the workspace between frames.
type NavigationController struct {
	cfg      models.WorkspaceConfig
	store    *FrameStore
	frames   FrameSource
	history  HistoryRecorder
	baseURL  string
	notifier Notifier
	logger   *log.Logger

	mu        sync.Mutex
	state     NavState
	current   int
	target    int
	frame     *models.Frame
	token     uint64
	cancel    context.CancelFunc
	listeners []func(int)
}

// NavigatorOpts configures [NewNavigationController]. History, Notifier and Logger are optional.
type NavigatorOpts struct {
	Config   models.WorkspaceConfig
	Store    *FrameStore
	Frames   FrameSource
	History  HistoryRecorder
	BaseURL  string
	Notifier Notifier
	Logger   *log.Logger
}

func NewNavigationController(opts NavigatorOpts) *NavigationController {
	n := &NavigationController{
		cfg:      opts.Config,
		store:    opts.Store,
		frames:   opts.Frames,
		history:  opts.History,
		baseURL:  opts.BaseURL,
		notifier: opts.Notifier,
		logger:   opts.Logger,
	}
	if n.notifier == nil {
		n.notifier = nopNotifier{}
	}
	if n.logger == nil {
		n.logger = shared.NewLogger(io.Discard)
	}
	return n
}

// OnNavigate registers fn to run with the new index after each completed navigation.
func (n *NavigationController) OnNavigate(fn func(int)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.listeners = append(n.listeners, fn)
}

// Current returns the displayed frame index.
func (n *NavigationController) Current() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

// State returns the navigation state.
func (n *NavigationController) State() NavState {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

// Frame returns the image metadata of the displayed frame, nil until one loaded.
func (n *NavigationController) Frame() *models.Frame {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.frame
}

// Total returns the fixed frame count of the project.
func (n *NavigationController) Total() int { return n.cfg.TotalFrames }

// Progress is the position of the displayed frame as a percentage of the project.
func (n *NavigationController) Progress() float64 {
	cur := n.Current()
	if n.cfg.TotalFrames <= 1 {
		return 100
	}
	return float64(cur) / float64(n.cfg.TotalFrames-1) * 100
}

// DeepLink returns the workspace URL of the displayed frame.
func (n *NavigationController) DeepLink() string {
	return models.DeepLink(n.baseURL, n.cfg.ProjectID, n.Current())
}

// Target returns the frame the latest navigation is heading to, or the displayed frame when idle.
func (n *NavigationController) Target() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.target
}

// CanPrevious reports whether a frame exists before the navigation target.
func (n *NavigationController) CanPrevious() bool { return n.Target() > 0 }

// CanNext reports whether a frame exists after the navigation target.
func (n *NavigationController) CanNext() bool { return n.Target() < n.cfg.TotalFrames-1 }

// Previous moves one frame back from the navigation target. At the first frame it does nothing.
//
// Presses made while a frame is still loading accumulate: three calls from frame 0 land on frame 3.
func (n *NavigationController) Previous(ctx context.Context) error { return n.step(ctx, -1) }

// Next moves one frame forward from the navigation target. At the last frame it does nothing.
func (n *NavigationController) Next(ctx context.Context) error { return n.step(ctx, 1) }

// GoTo moves to frame i.
func (n *NavigationController) GoTo(ctx context.Context, i int) error {
	return n.NavigateTo(ctx, i)
}

// First moves to frame 0.
func (n *NavigationController) First(ctx context.Context) error { return n.NavigateTo(ctx, 0) }

// Last moves to the final frame.
func (n *NavigationController) Last(ctx context.Context) error {
	return n.NavigateTo(ctx, n.cfg.TotalFrames-1)
}

// step reads the target and takes the navigation token under one lock, so concurrent steps never
// land on the same frame.
func (n *NavigationController) step(ctx context.Context, delta int) error {
	n.mu.Lock()
	i := n.target + delta
	if !n.cfg.InRange(i) {
		n.mu.Unlock()
		return nil
	}
	navCtx, token := n.beginLocked(ctx, i)
	n.mu.Unlock()
	return n.run(ctx, navCtx, token, i)
}

// NavigateTo flushes a dirty frame when auto-save is on, then loads the image and annotations of frame i.
//
// An out-of-range index is rejected with [shared.ErrFrameOutOfRange] and changes nothing.
// Starting another navigation cancels this one's load; it then returns [shared.ErrSuperseded]
// and its results are discarded.
func (n *NavigationController) NavigateTo(ctx context.Context, i int) error {
	if !n.cfg.InRange(i) {
		return fmt.Errorf("%w: %d not in [0, %d)", shared.ErrFrameOutOfRange, i, n.cfg.TotalFrames)
	}

	n.mu.Lock()
	navCtx, token := n.beginLocked(ctx, i)
	n.mu.Unlock()
	return n.run(ctx, navCtx, token, i)
}

// beginLocked cancels the navigation in flight and claims a token for frame i. Callers hold n.mu.
func (n *NavigationController) beginLocked(ctx context.Context, i int) (context.Context, uint64) {
	if n.cancel != nil {
		n.cancel()
	}
	navCtx, cancel := context.WithCancel(ctx)
	n.token++
	n.cancel = cancel
	n.target = i
	return navCtx, n.token
}

func (n *NavigationController) run(ctx, navCtx context.Context, token uint64, i int) error {
	defer n.release(token)

	if n.cfg.AutoSave {
		n.store.Wait()
		if n.store.Dirty() {
			n.setState(token, Saving)
			// Best effort: the store already reports the failure and keeps a draft.
			_ = n.store.Save(context.WithoutCancel(navCtx))
		}
	}

	if !n.setState(token, Loading) {
		return shared.ErrSuperseded
	}

	// The two fetches do not share cancellation: a missing image must not cost the frame its annotations.
	var (
		frame       *models.Frame
		annotations []models.Annotation
		imageErr    error
		loadErr     error
		g           errgroup.Group
	)
	g.Go(func() error {
		frame, imageErr = n.frames.FrameImage(navCtx, n.cfg.ProjectID, i)
		if imageErr != nil {
			imageErr = fmt.Errorf("failed to load frame image: %w", imageErr)
		}
		return imageErr
	})
	g.Go(func() error {
		annotations, loadErr = n.store.api.LoadAnnotations(navCtx, n.cfg.ProjectID, i)
		if loadErr != nil {
			loadErr = fmt.Errorf("failed to load annotations: %w", loadErr)
		}
		return loadErr
	})
	_ = g.Wait()
	err := errors.Join(imageErr, loadErr)

	n.mu.Lock()
	if n.token != token {
		n.mu.Unlock()
		n.logger.Debug("navigation superseded", "project", n.cfg.ProjectID, "frame", i)
		return shared.ErrSuperseded
	}

	if err != nil && ctx.Err() != nil {
		n.state = Idle
		n.target = n.current
		n.mu.Unlock()
		return ctx.Err()
	}

	n.current = i
	n.frame = frame
	if loadErr != nil {
		n.store.Reset(i)
	} else {
		n.store.Replace(i, annotations)
	}
	n.state = Idle
	listeners := append([]func(int){}, n.listeners...)
	n.mu.Unlock()

	if imageErr != nil {
		n.logger.Error("failed to load frame image", "project", n.cfg.ProjectID, "frame", i, "error", imageErr)
		n.notifier.Notify(failure(fmt.Sprintf("Failed to load image of frame %d", i), imageErr))
	}
	if loadErr != nil {
		n.logger.Error("failed to load frame", "project", n.cfg.ProjectID, "frame", i, "error", loadErr)
		n.notifier.Notify(failure(fmt.Sprintf("Failed to load frame %d", i), loadErr))
	}
	n.record(ctx, i)
	for _, fn := range listeners {
		fn(i)
	}
	return err
}

// release drops the cancel func of token once its navigation is over.
func (n *NavigationController) release(token uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.token == token && n.cancel != nil {
		n.cancel()
		n.cancel = nil
	}
}

// setState moves to s unless token was superseded.
func (n *NavigationController) setState(token uint64, s NavState) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.token != token {
		return false
	}
	n.state = s
	return true
}

func (n *NavigationController) record(ctx context.Context, i int) {
	if n.history == nil {
		return
	}
	if err := n.history.Record(context.WithoutCancel(ctx), n.cfg.ProjectID, i, n.cfg.TotalFrames); err != nil {
		n.logger.Warn("failed to record navigation history", "project", n.cfg.ProjectID, "frame", i, "error", err)
	}
}

// IsSuperseded reports whether err came from a navigation that a newer one replaced.
func IsSuperseded(err error) bool { return errors.Is(err, shared.ErrSuperseded) }
