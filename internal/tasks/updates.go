package tasks

import (
	"fmt"

	"github.com/desertthunder/framelabel/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Percent returns Step/Total as a 0..1 fraction for progress bars.
func (u ProgressUpdate) Percent() float64 {
	if u.Total <= 0 {
		return 0
	}
	return min(max(float64(u.Step)/float64(u.Total), 0), 1)
}

// Operation phase enumeration
type Phase int

const (
	StartExport Phase = iota
	PollExport
	DownloadExport
	ValidateUpload
	UploadVideo
	PushDraft
)

func (p Phase) String() string {
	switch p {
	case StartExport:
		return "start_export"
	case PollExport:
		return "poll_export"
	case DownloadExport:
		return "download_export"
	case ValidateUpload:
		return "validate_upload"
	case UploadVideo:
		return "upload_video"
	case PushDraft:
		return "push_draft"
	default:
		return ""
	}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func startExportUpdate(req models.ExportRequest) ProgressUpdate {
	return ProgressUpdate{
		Phase:   StartExport,
		Step:    0,
		Total:   100,
		Message: fmt.Sprintf("Starting %s export...", req.Format.DisplayName()),
	}
}

func pollExportUpdate(status models.ExportStatus) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PollExport,
		Step:    int(status.Percent),
		Total:   100,
		Message: fmt.Sprintf("%s %d%%", StageLabel(status), int(status.Percent)),
		Data:    status,
	}
}

func downloadUpdate(path string, n int64) ProgressUpdate {
	return ProgressUpdate{
		Phase:   DownloadExport,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Saved %s (%d bytes)", path, n),
	}
}

func validateUploadUpdate(name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ValidateUpload,
		Step:    1,
		Total:   2,
		Message: fmt.Sprintf("Validated %s", name),
	}
}

func uploadingUpdate(name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   UploadVideo,
		Step:    1,
		Total:   2,
		Message: fmt.Sprintf("Uploading %s and extracting frames...", name),
	}
}

func uploadedUpdate(result *models.UploadResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   UploadVideo,
		Step:    2,
		Total:   2,
		Message: fmt.Sprintf("Project created: %s (%d frames)", result.ProjectID, result.ExtractedCount),
		Data:    result,
	}
}

func pushDraftUpdate(step, total int, d models.Draft, err error) ProgressUpdate {
	if err != nil {
		return ProgressUpdate{
			Phase:   PushDraft,
			Step:    step,
			Total:   total,
			Message: fmt.Sprintf("[%d/%d] ✗ %s frame %d: %v", step, total, d.ProjectID, d.Frame, err),
		}
	}
	return ProgressUpdate{
		Phase:   PushDraft,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s frame %d (%d annotations)", step, total, d.ProjectID, d.Frame, len(d.Annotations)),
	}
}
