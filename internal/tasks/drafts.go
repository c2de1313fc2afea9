package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/desertthunder/framelabel/internal/models"
	"github.com/desertthunder/framelabel/internal/shared"
)

// DraftStore is where failed saves were journaled.
type DraftStore interface {
	List(ctx context.Context, projectID string) ([]models.Draft, error)
	Delete(ctx context.Context, projectID string, frame int) error
}

// DraftSaver writes a frame's annotation list to the server.
type DraftSaver interface {
	SaveAnnotations(ctx context.Context, projectID string, frame int, annotations []models.Annotation) error
}

// PushOpts configures [PushDrafts].
type PushOpts struct {
	ProjectID  string  // Only push drafts of this project; empty pushes all
	NumWorkers int     // Concurrent workers (default: 3, max: 10)
	RateLimit  float64 // Saves per second (default: 5)
	Logger     *log.Logger
}

// DraftPushResult is the outcome for one draft.
type DraftPushResult struct {
	Draft models.Draft
	Error error
}

// Success reports whether the draft reached the server.
func (r DraftPushResult) Success() bool { return r.Error == nil }

// PushResult summarizes a [PushDrafts] run.
type PushResult struct {
	Total   int
	Pushed  int
	Failed  int
	Results []DraftPushResult
}

// PushDrafts replays journaled saves against the server with a rate-limited worker pool.
//
// A draft is removed from the store only after the server accepted it. Failures are kept for
// the next run and reported in the result; they do not abort the others.
func PushDrafts(
	ctx context.Context,
	progress chan<- ProgressUpdate,
	store DraftStore,
	saver DraftSaver,
	opts PushOpts,
) (*PushResult, error) {
	if store == nil || saver == nil {
		return nil, fmt.Errorf("%w: draft store or server not initialized", shared.ErrServiceUnavailable)
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 3
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(io.Discard)
	}

	drafts, err := store.List(ctx, opts.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list drafts: %w", err)
	}

	result := &PushResult{Total: len(drafts), Results: make([]DraftPushResult, 0, len(drafts))}
	if len(drafts) == 0 {
		return result, nil
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	jobs := make(chan models.Draft, len(drafts))
	results := make(chan DraftPushResult, len(drafts))

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go pushWorker(ctx, &wg, limiter, store, saver, jobs, results)
	}

	for _, d := range drafts {
		jobs <- d
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	for res := range results {
		result.Results = append(result.Results, res)
		if res.Success() {
			result.Pushed++
		} else {
			result.Failed++
			opts.Logger.Warn("draft push failed", "project", res.Draft.ProjectID, "frame", res.Draft.Frame, "error", res.Error)
		}
		sendProgress(progress, pushDraftUpdate(len(result.Results), result.Total, res.Draft, res.Error))
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}
	opts.Logger.Info("drafts pushed", "total", result.Total, "pushed", result.Pushed, "failed", result.Failed)
	return result, nil
}

func pushWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	limiter *rate.Limiter,
	store DraftStore,
	saver DraftSaver,
	jobs <-chan models.Draft,
	results chan<- DraftPushResult,
) {
	defer wg.Done()

	for d := range jobs {
		if err := limiter.Wait(ctx); err != nil {
			results <- DraftPushResult{Draft: d, Error: err}
			continue
		}
		results <- DraftPushResult{Draft: d, Error: pushDraft(ctx, store, saver, d)}
	}
}

func pushDraft(ctx context.Context, store DraftStore, saver DraftSaver, d models.Draft) error {
	if err := saver.SaveAnnotations(ctx, d.ProjectID, d.Frame, d.Annotations); err != nil {
		return fmt.Errorf("%w: frame %d: %w", shared.ErrSave, d.Frame, err)
	}
	if err := store.Delete(ctx, d.ProjectID, d.Frame); err != nil && !errors.Is(err, shared.ErrDraftNotFound) {
		return fmt.Errorf("pushed but failed to discard draft: %w", err)
	}
	return nil
}
