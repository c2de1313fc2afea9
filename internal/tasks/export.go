package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/desertthunder/framelabel/internal/models"
	"github.com/desertthunder/framelabel/internal/shared"
)

const (
	// imageKBAtFullQuality is the estimated size of one exported frame at quality 100.
	imageKBAtFullQuality = 200.0
	// annotationKBPerFrame is the estimated size of the label file written for each frame.
	annotationKBPerFrame = 5.0

	defaultPollInterval = 500 * time.Millisecond
	maxPollErrors       = 3
)

// ExportStages are shown while a job runs, each covering an equal share of the percentage.
var ExportStages = []string{
	"Preparing images...",
	"Generating annotations...",
	"Creating archive...",
	"Finalizing export...",
}

// StageForPercent maps job progress onto [ExportStages].
func StageForPercent(p float64) string {
	if p >= 100 {
		return "Export Complete!"
	}
	i := int(p / 100 * float64(len(ExportStages)))
	return ExportStages[min(max(i, 0), len(ExportStages)-1)]
}

// StageLabel prefers the server's stage and falls back to [StageForPercent].
func StageLabel(s models.ExportStatus) string {
	switch {
	case s.State == models.ExportFailed:
		return "Export failed"
	case s.Stage != "":
		return s.Stage
	default:
		return StageForPercent(s.Percent)
	}
}

// EstimateExportKB approximates the archive size as frames × (quality/100 × 200 + 5) KB.
func EstimateExportKB(frames, quality int) float64 {
	return float64(frames) * (float64(quality)/100*imageKBAtFullQuality + annotationKBPerFrame)
}

// ExportAPI is the server surface an export needs.
type ExportAPI interface {
	StartExport(ctx context.Context, projectID string, req models.ExportRequest) error
	ExportStatus(ctx context.Context, projectID string, format models.ExportFormat) (*models.ExportStatus, error)
	DownloadExport(ctx context.Context, projectID string, format models.ExportFormat, w io.Writer) (int64, error)
}

// ExportSessionOpts configures [NewExportSession].
type ExportSessionOpts struct {
	Quality      int
	Selection    models.FrameSelection
	PollInterval time.Duration
	Logger       *log.Logger
}

// ExportSummary is what the export screen shows before starting.
type ExportSummary struct {
	Format        string
	Frames        int
	EstimatedKB   float64
	EstimatedSize string
}

// ExportSession tracks the selected format and options of one project export and drives the job.
type ExportSession struct {
	api       ExportAPI
	projectID string
	stats     models.ProjectStats
	interval  time.Duration
	logger    *log.Logger

	mu        sync.Mutex
	format    models.ExportFormat
	selection models.FrameSelection
	quality   int
	status    models.ExportStatus
}

func NewExportSession(api ExportAPI, projectID string, stats models.ProjectStats, opts ExportSessionOpts) *ExportSession {
	s := &ExportSession{
		api:       api,
		projectID: projectID,
		stats:     stats,
		interval:  opts.PollInterval,
		logger:    opts.Logger,
		selection: opts.Selection,
		quality:   opts.Quality,
	}
	if s.interval <= 0 {
		s.interval = defaultPollInterval
	}
	if s.logger == nil {
		s.logger = shared.NewLogger(io.Discard)
	}
	if s.selection == "" {
		s.selection = models.SelectAll
	}
	if s.quality < 1 || s.quality > 100 {
		s.quality = 80
	}
	return s
}

// SelectFormat chooses the dataset layout.
func (s *ExportSession) SelectFormat(f models.ExportFormat) error {
	if _, err := models.ParseExportFormat(string(f)); err != nil {
		return fmt.Errorf("%w: %w", shared.ErrInvalidInput, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.format = f
	return nil
}

// Format returns the selected format and whether one is selected.
func (s *ExportSession) Format() (models.ExportFormat, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.format, s.format != ""
}

// SetFrameSelection chooses between every frame and annotated frames only.
func (s *ExportSession) SetFrameSelection(sel models.FrameSelection) error {
	if _, err := models.ParseFrameSelection(string(sel)); err != nil {
		return fmt.Errorf("%w: %w", shared.ErrInvalidInput, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection = sel
	return nil
}

// FrameSelection returns the current frame selection.
func (s *ExportSession) FrameSelection() models.FrameSelection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection
}

// SetQuality sets the image quality, 1 to 100.
func (s *ExportSession) SetQuality(q int) error {
	if q < 1 || q > 100 {
		return fmt.Errorf("%w: image quality %d not in 1..100", shared.ErrInvalidInput, q)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quality = q
	return nil
}

// Quality returns the image quality.
func (s *ExportSession) Quality() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quality
}

// FramesToExport is the frame count the current selection covers.
func (s *ExportSession) FramesToExport() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.framesLocked()
}

func (s *ExportSession) framesLocked() int {
	if s.selection == models.SelectAnnotated {
		return s.stats.AnnotatedFrames
	}
	return s.stats.TotalFrames
}

// Summary computes the pre-export summary for the current options.
func (s *ExportSession) Summary() ExportSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	frames := s.framesLocked()
	kb := EstimateExportKB(frames, s.quality)
	return ExportSummary{
		Format:        s.format.DisplayName(),
		Frames:        frames,
		EstimatedKB:   kb,
		EstimatedSize: shared.FormatFileSize(kb * 1024),
	}
}

// Request builds the POST body. It fails until a format is selected.
func (s *ExportSession) Request() (models.ExportRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.format == "" {
		return models.ExportRequest{}, fmt.Errorf("%w: select an export format first", shared.ErrMissingArgument)
	}
	return models.ExportRequest{Format: s.format, FrameSelection: s.selection, ImageQuality: s.quality}, nil
}

// Status returns the last polled job status.
func (s *ExportSession) Status() models.ExportStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Reset clears the format selection and the job status.
func (s *ExportSession) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.format = ""
	s.status = models.ExportStatus{}
}

// Start posts the export configuration. The job then runs on the server.
func (s *ExportSession) Start(ctx context.Context, progress chan<- ProgressUpdate) error {
	req, err := s.Request()
	if err != nil {
		return err
	}

	sendProgress(progress, startExportUpdate(req))
	if err := s.api.StartExport(ctx, s.projectID, req); err != nil {
		s.logger.Error("export failed to start", "project", s.projectID, "format", req.Format, "error", err)
		return fmt.Errorf("%w: failed to start: %w", shared.ErrExportFailed, err)
	}
	s.setStatus(models.ExportStatus{State: models.ExportPending})
	return nil
}

// Poll reads the job status until it completes, fails or ctx is cancelled.
//
// Polling is paced by a rate limiter at the session's poll interval. A few consecutive status
// errors are tolerated before giving up.
func (s *ExportSession) Poll(ctx context.Context, progress chan<- ProgressUpdate) (*models.ExportStatus, error) {
	format, ok := s.Format()
	if !ok {
		return nil, fmt.Errorf("%w: select an export format first", shared.ErrMissingArgument)
	}
	logger := s.logger.With("project", s.projectID, "format", format)

	limiter := rate.NewLimiter(rate.Every(s.interval), 1)
	failures := 0
	for {
		if err := limiter.Wait(ctx); err != nil {
			return nil, err
		}

		status, err := s.api.ExportStatus(ctx, s.projectID, format)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			failures++
			logger.Warn("export status poll failed", "attempt", failures, "error", err)
			if failures >= maxPollErrors {
				return nil, fmt.Errorf("%w: status unavailable: %w", shared.ErrExportFailed, err)
			}
			continue
		}
		failures = 0

		status.Percent = min(max(status.Percent, 0), 100)
		if status.State == models.ExportComplete {
			status.Percent = 100
		}
		if status.Stage == "" {
			status.Stage = StageLabel(*status)
		}
		s.setStatus(*status)
		sendProgress(progress, pollExportUpdate(*status))

		switch status.State {
		case models.ExportComplete:
			logger.Info("export complete")
			return status, nil
		case models.ExportFailed:
			msg := status.Message
			if msg == "" {
				msg = "server reported failure"
			}
			logger.Error("export failed", "message", msg)
			return status, fmt.Errorf("%w: %s", shared.ErrExportFailed, msg)
		}
	}
}

// Run is [ExportSession.Start] followed by [ExportSession.Poll].
func (s *ExportSession) Run(ctx context.Context, progress chan<- ProgressUpdate) (*models.ExportStatus, error) {
	if err := s.Start(ctx, progress); err != nil {
		return nil, err
	}
	return s.Poll(ctx, progress)
}

// Download streams the archive of the selected format to path, creating parent directories.
// A partial file is removed on failure.
func (s *ExportSession) Download(ctx context.Context, path string, progress chan<- ProgressUpdate) (int64, error) {
	format, ok := s.Format()
	if !ok {
		return 0, fmt.Errorf("%w: select an export format first", shared.ErrMissingArgument)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return 0, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", path, err)
	}

	n, err := s.api.DownloadExport(ctx, s.projectID, format, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return n, err
	}

	sendProgress(progress, downloadUpdate(path, n))
	return n, nil
}

// DefaultArchiveName is the file name used when the user gives no output path.
func DefaultArchiveName(projectID string, format models.ExportFormat) string {
	return fmt.Sprintf("%s_%s.zip", projectID, format)
}

func (s *ExportSession) setStatus(st models.ExportStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = st
}

// IsExportFailure reports whether err is a job failure rather than a cancellation.
func IsExportFailure(err error) bool { return errors.Is(err, shared.ErrExportFailed) }
