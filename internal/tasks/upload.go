package tasks

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/framelabel/internal/models"
	"github.com/desertthunder/framelabel/internal/services"
	"github.com/desertthunder/framelabel/internal/shared"
)

const (
	DefaultMaxUploadMB   = 500
	DefaultFrameInterval = 1.0
	MinFrameInterval     = 0.1
	MaxFrameInterval     = 10.0
	UntitledProject      = "Untitled Project"

	// minEstimatedSeconds floors the duration guessed from the file size.
	minEstimatedSeconds = 10.0
	// secondsPerMB is the duration guessed for each megabyte of video.
	secondsPerMB = 2.0
	// storageMBPerFrame is the estimated size of one extracted frame.
	storageMBPerFrame = 0.1
)

// VideoExtensions lists the accepted upload extensions, lowercase with the dot.
var VideoExtensions = []string{".mp4", ".avi", ".mov", ".mkv", ".flv", ".wmv", ".webm"}

// ValidationError is a client-side rejection of wizard input. It wraps [shared.ErrValidation].
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return shared.ErrValidation }

// WizardStep is a state of the upload wizard.
type WizardStep int

const (
	StepSelectFile WizardStep = iota + 1
	StepConfigure
	StepConfirm
	StepCreated
)

func (s WizardStep) String() string {
	switch s {
	case StepSelectFile:
		return "Select video"
	case StepConfigure:
		return "Configure"
	case StepConfirm:
		return "Confirm"
	case StepCreated:
		return "Created"
	default:
		return "unknown"
	}
}

// VideoFile is the file picked on the first step.
type VideoFile struct {
	Path string
	Name string
	Size int64
}

// SizeMB is the file size in mebibytes.
func (v VideoFile) SizeMB() float64 { return float64(v.Size) / (1024 * 1024) }

// BaseName is the file name without its extension.
func (v VideoFile) BaseName() string {
	return strings.TrimSuffix(v.Name, filepath.Ext(v.Name))
}

// UploadEstimates are heuristics derived from the file size, not the real video duration.
type UploadEstimates struct {
	DurationSeconds float64
	Frames          int
	StorageMB       float64
}

// Storage renders StorageMB for display.
func (e UploadEstimates) Storage() string {
	return shared.FormatFileSize(e.StorageMB * 1024 * 1024)
}

// EstimateUpload computes the frame and storage estimates for a video of sizeBytes at interval seconds.
func EstimateUpload(sizeBytes int64, interval float64) UploadEstimates {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	duration := math.Max(minEstimatedSeconds, float64(sizeBytes)/(1024*1024)*secondsPerMB)
	frames := int(math.Floor(duration / interval))
	return UploadEstimates{
		DurationSeconds: duration,
		Frames:          frames,
		StorageMB:       float64(frames) * storageMBPerFrame,
	}
}

// ValidateVideo checks the extension and size of a candidate upload.
func ValidateVideo(name string, size, maxBytes int64) error {
	ext := strings.ToLower(filepath.Ext(name))
	if !slices.Contains(VideoExtensions, ext) {
		return &ValidationError{Field: "video", Message: "Please select a valid video file (MP4, AVI, MOV, MKV, WebM)"}
	}
	if size > maxBytes {
		return &ValidationError{
			Field:   "video",
			Message: fmt.Sprintf("File size must be less than %dMB", maxBytes/(1024*1024)),
		}
	}
	return nil
}

// ValidateInterval checks a frame extraction interval in seconds.
func ValidateInterval(v float64) error {
	if math.IsNaN(v) || v < MinFrameInterval || v > MaxFrameInterval {
		return &ValidationError{
			Field:   "frame_interval",
			Message: fmt.Sprintf("Frame interval must be between %.1f and %.0f seconds", MinFrameInterval, MaxFrameInterval),
		}
	}
	return nil
}

// UploadAPI is the server surface the wizard needs.
type UploadAPI interface {
	Upload(ctx context.Context, req services.UploadRequest) (*models.UploadResult, error)
}

// UploadWizardOpts configures [NewUploadWizard].
type UploadWizardOpts struct {
	MaxSizeMB       int
	DefaultInterval float64
	Logger          *log.Logger
}

// UploadWizard is the linear SelectFile → Configure → Confirm flow ending in a multipart upload.
type UploadWizard struct {
	api      UploadAPI
	maxBytes int64
	logger   *log.Logger

	mu          sync.Mutex
	step        WizardStep
	file        *VideoFile
	projectName string
	interval    float64
	result      *models.UploadResult
	submitting  bool
}

func NewUploadWizard(api UploadAPI, opts UploadWizardOpts) *UploadWizard {
	if opts.MaxSizeMB <= 0 {
		opts.MaxSizeMB = DefaultMaxUploadMB
	}
	if ValidateInterval(opts.DefaultInterval) != nil {
		opts.DefaultInterval = DefaultFrameInterval
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(io.Discard)
	}
	return &UploadWizard{
		api:      api,
		maxBytes: int64(opts.MaxSizeMB) * 1024 * 1024,
		logger:   opts.Logger,
		step:     StepSelectFile,
		interval: opts.DefaultInterval,
	}
}

// Step returns the current state.
func (w *UploadWizard) Step() WizardStep {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

// File returns the selected video, nil until one passed validation.
func (w *UploadWizard) File() *VideoFile {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file
}

// SelectFile validates the video at path and selects it. A rejected file leaves the wizard
// unchanged, keeping any previous selection. An empty project name is filled from the file name.
func (w *UploadWizard) SelectFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return &ValidationError{Field: "video", Message: fmt.Sprintf("Cannot read %s: %v", path, err)}
	}
	if info.IsDir() {
		return &ValidationError{Field: "video", Message: fmt.Sprintf("%s is a directory", path)}
	}
	return w.SelectVideo(VideoFile{Path: path, Name: info.Name(), Size: info.Size()})
}

// SelectVideo is [UploadWizard.SelectFile] for a file already described.
func (w *UploadWizard) SelectVideo(v VideoFile) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step != StepSelectFile {
		return fmt.Errorf("%w: a video can only be selected on the first step", shared.ErrInvalidInput)
	}
	if err := ValidateVideo(v.Name, v.Size, w.maxBytes); err != nil {
		w.logger.Warn("video rejected", "file", v.Name, "size", v.Size, "error", err)
		return err
	}
	w.file = &v
	if strings.TrimSpace(w.projectName) == "" {
		w.projectName = v.BaseName()
	}
	return nil
}

// SetProjectName sets the name of the project to create.
func (w *UploadWizard) SetProjectName(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.projectName = strings.TrimSpace(name)
}

// ProjectName returns the name that will be submitted.
func (w *UploadWizard) ProjectName() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.projectNameLocked()
}

func (w *UploadWizard) projectNameLocked() string {
	if w.projectName != "" {
		return w.projectName
	}
	return UntitledProject
}

// SetFrameInterval sets the extraction interval in seconds.
func (w *UploadWizard) SetFrameInterval(v float64) error {
	if err := ValidateInterval(v); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.interval = v
	return nil
}

// FrameInterval returns the extraction interval in seconds.
func (w *UploadWizard) FrameInterval() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.interval
}

// Estimates returns the heuristics for the selected file, zero before one is selected.
func (w *UploadWizard) Estimates() UploadEstimates {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return UploadEstimates{}
	}
	return EstimateUpload(w.file.Size, w.interval)
}

// Next moves one step forward. Leaving the first step needs a selected file.
func (w *UploadWizard) Next() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	switch w.step {
	case StepSelectFile:
		if w.file == nil {
			return &ValidationError{Field: "video", Message: "Please select a video file"}
		}
		w.step = StepConfigure
	case StepConfigure:
		if err := ValidateInterval(w.interval); err != nil {
			return err
		}
		w.step = StepConfirm
	default:
		return fmt.Errorf("%w: no step after %s", shared.ErrInvalidInput, w.step)
	}
	return nil
}

// Back moves one step backward.
func (w *UploadWizard) Back() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	switch w.step {
	case StepConfigure:
		w.step = StepSelectFile
	case StepConfirm:
		if w.submitting {
			return fmt.Errorf("%w: upload in progress", shared.ErrInvalidInput)
		}
		w.step = StepConfigure
	default:
		return fmt.Errorf("%w: no step before %s", shared.ErrInvalidInput, w.step)
	}
	return nil
}

// Submit uploads the video from the Confirm step. Success moves to [StepCreated];
// failure stays on Confirm so the submission can be retried.
func (w *UploadWizard) Submit(ctx context.Context, progress chan<- ProgressUpdate) (*models.UploadResult, error) {
	w.mu.Lock()
	if w.step != StepConfirm {
		w.mu.Unlock()
		return nil, fmt.Errorf("%w: submit is only available on the confirm step", shared.ErrInvalidInput)
	}
	if w.submitting {
		w.mu.Unlock()
		return nil, fmt.Errorf("%w: upload already in progress", shared.ErrInvalidInput)
	}
	if w.file == nil {
		w.mu.Unlock()
		return nil, &ValidationError{Field: "video", Message: "Please select a video file"}
	}
	w.submitting = true
	req := services.UploadRequest{Path: w.file.Path, ProjectName: w.projectNameLocked(), FrameInterval: w.interval}
	name := w.file.Name
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.submitting = false
		w.mu.Unlock()
	}()

	sendProgress(progress, validateUploadUpdate(name))
	sendProgress(progress, uploadingUpdate(name))

	result, err := w.api.Upload(ctx, req)
	if err != nil {
		w.logger.Error("upload failed", "file", name, "project_name", req.ProjectName, "error", err)
		return nil, err
	}

	w.mu.Lock()
	w.result = result
	w.step = StepCreated
	w.mu.Unlock()

	w.logger.Info("project created", "project", result.ProjectID, "frames", result.ExtractedCount)
	sendProgress(progress, uploadedUpdate(result))
	return result, nil
}

// Submitting reports whether an upload is in flight.
func (w *UploadWizard) Submitting() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.submitting
}

// Result returns the created project, nil before a successful submit.
func (w *UploadWizard) Result() *models.UploadResult {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.result
}

// AnnotatePath is the workspace path of the created project, empty before a successful submit.
func (w *UploadWizard) AnnotatePath() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.result == nil {
		return ""
	}
	return models.AnnotatePath(w.result.ProjectID, -1)
}
