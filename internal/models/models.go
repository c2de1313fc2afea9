package models

import (
	"cmp"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"
)

// DefaultLabel is attached to annotations created without a label.
const DefaultLabel = "object"

// Annotation is a labeled bounding box on a single frame.
type Annotation struct {
	ID       string  `json:"id" yaml:"id"`
	X        float64 `json:"x" yaml:"x"`
	Y        float64 `json:"y" yaml:"y"`
	Width    float64 `json:"width" yaml:"width"`
	Height   float64 `json:"height" yaml:"height"`
	Class    string  `json:"class" yaml:"class"`
	Selected bool    `json:"selected,omitempty" yaml:"-"`
}

// Label returns the class, falling back to [DefaultLabel].
func (a Annotation) Label() string {
	if strings.TrimSpace(a.Class) == "" {
		return DefaultLabel
	}
	return a.Class
}

// Area is width × height in square pixels.
func (a Annotation) Area() float64 { return a.Width * a.Height }

// Contains reports whether the point (x, y) lies inside the box.
func (a Annotation) Contains(x, y float64) bool {
	return x >= a.X && x <= a.X+a.Width && y >= a.Y && y <= a.Y+a.Height
}

// Describe renders "label  W × Hpx" for list views.
func (a Annotation) Describe() string {
	return fmt.Sprintf("%s  %d × %dpx", a.Label(), int(a.Width+0.5), int(a.Height+0.5))
}

// FrameAnnotations is the body of GET and POST /api/annotations/{project}/{frame}.
type FrameAnnotations struct {
	Annotations []Annotation `json:"annotations"`
}

// FrameState is the workspace view of the current frame.
type FrameState struct {
	Index       int
	Annotations []Annotation
	Dirty       bool
}

// SelectedCount returns the number of annotations flagged as selected.
func (f FrameState) SelectedCount() int {
	n := 0
	for _, a := range f.Annotations {
		if a.Selected {
			n++
		}
	}
	return n
}

// WorkspaceConfig is fixed for the lifetime of an annotation session.
type WorkspaceConfig struct {
	ProjectID        string
	TotalFrames      int
	AutoSave         bool
	DefaultLabel     string
	SingleObjectMode bool
}

// Validate checks that the project and frame count are usable.
func (c WorkspaceConfig) Validate() error {
	if c.ProjectID == "" {
		return fmt.Errorf("project id is required")
	}
	if c.TotalFrames <= 0 {
		return fmt.Errorf("project %s has no frames", c.ProjectID)
	}
	return nil
}

// InRange reports whether i is a valid frame index.
func (c WorkspaceConfig) InRange(i int) bool {
	return i >= 0 && i < c.TotalFrames
}

// Frame describes the image behind a frame index.
type Frame struct {
	Index    int
	ImageURL string
	Width    int
	Height   int
	Size     int
	Format   string
}

// ProjectStats is the body of GET /api/project/{project}/stats.
type ProjectStats struct {
	TotalFrames          int      `json:"total_frames" yaml:"total_frames"`
	AnnotatedFrames      int      `json:"annotated_frames" yaml:"annotated_frames"`
	CompletionPercentage float64  `json:"completion_percentage" yaml:"completion_percentage"`
	TotalAnnotations     int      `json:"total_annotations" yaml:"total_annotations"`
	UniqueClasses        int      `json:"unique_classes" yaml:"unique_classes"`
	Classes              []string `json:"classes" yaml:"classes"`
}

// Project is an entry of GET /api/projects.
type Project struct {
	ID             string  `json:"project_id"`
	Name           string  `json:"project_name"`
	ExtractedCount int     `json:"extracted_count"`
	FrameInterval  float64 `json:"frame_interval"`
	CreatedAt      string  `json:"created_at,omitempty"`
}

// ProjectList is the body of GET /api/projects.
type ProjectList struct {
	Projects []Project `json:"projects"`
}

// ProjectOrder is the sort key of a project listing.
type ProjectOrder string

const (
	OrderByName     ProjectOrder = "name"
	OrderByDate     ProjectOrder = "date"
	OrderByProgress ProjectOrder = "progress"
)

// ParseProjectOrder validates a --sort value. The empty string keeps server order.
func ParseProjectOrder(s string) (ProjectOrder, error) {
	switch o := ProjectOrder(strings.ToLower(strings.TrimSpace(s))); o {
	case "", OrderByName, OrderByDate, OrderByProgress:
		return o, nil
	}
	return "", fmt.Errorf("unsupported sort order %q (want name, date or progress)", s)
}

// SortProjects orders projects in place.
//
// Names sort A to Z ignoring case, dates newest first, progress most complete first; ties fall back to name.
// progress maps project id to completion percentage and is only read for [OrderByProgress].
func SortProjects(projects []Project, order ProjectOrder, progress map[string]float64) {
	byName := func(a, b Project) int {
		return cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	}

	switch order {
	case OrderByName:
		slices.SortStableFunc(projects, byName)
	case OrderByDate:
		slices.SortStableFunc(projects, func(a, b Project) int {
			return cmp.Or(cmp.Compare(b.CreatedAt, a.CreatedAt), byName(a, b))
		})
	case OrderByProgress:
		slices.SortStableFunc(projects, func(a, b Project) int {
			return cmp.Or(cmp.Compare(progress[b.ID], progress[a.ID]), byName(a, b))
		})
	}
}

// ExportFormat names a dataset layout the server can produce.
type ExportFormat string

const (
	FormatYOLO      ExportFormat = "yolo"
	FormatCOCO      ExportFormat = "coco"
	FormatPascalVOC ExportFormat = "pascal_voc"
)

// ExportFormats lists every supported format in display order.
var ExportFormats = []ExportFormat{FormatYOLO, FormatCOCO, FormatPascalVOC}

// DisplayName returns the human label shown on the export screen.
func (f ExportFormat) DisplayName() string {
	switch f {
	case FormatYOLO:
		return "YOLO (Darknet)"
	case FormatCOCO:
		return "COCO JSON"
	case FormatPascalVOC:
		return "Pascal VOC XML"
	default:
		return string(f)
	}
}

// ParseExportFormat validates s against [ExportFormats].
func ParseExportFormat(s string) (ExportFormat, error) {
	for _, f := range ExportFormats {
		if string(f) == strings.ToLower(strings.TrimSpace(s)) {
			return f, nil
		}
	}
	return "", fmt.Errorf("unsupported export format %q", s)
}

// FrameSelection picks which frames an export includes.
type FrameSelection string

const (
	SelectAll       FrameSelection = "all"
	SelectAnnotated FrameSelection = "annotated"
)

// ParseFrameSelection validates s.
func ParseFrameSelection(s string) (FrameSelection, error) {
	switch FrameSelection(strings.ToLower(strings.TrimSpace(s))) {
	case SelectAll:
		return SelectAll, nil
	case SelectAnnotated:
		return SelectAnnotated, nil
	}
	return "", fmt.Errorf("unsupported frame selection %q", s)
}

// ExportRequest is the body of POST /api/export/{project}/{format}.
type ExportRequest struct {
	Format         ExportFormat   `json:"format"`
	FrameSelection FrameSelection `json:"frame_selection"`
	ImageQuality   int            `json:"image_quality"`
}

// ExportState is the lifecycle of a server-side export job.
type ExportState string

const (
	ExportPending  ExportState = "pending"
	ExportRunning  ExportState = "running"
	ExportComplete ExportState = "complete"
	ExportFailed   ExportState = "failed"
)

// Done reports whether the job reached a terminal state.
func (s ExportState) Done() bool {
	return s == ExportComplete || s == ExportFailed
}

// ExportStatus is the body of GET /api/export/{project}/{format}/status.
type ExportStatus struct {
	State   ExportState `json:"state"`
	Stage   string      `json:"stage,omitempty"`
	Percent float64     `json:"percent"`
	Message string      `json:"message,omitempty"`
}

// UploadResult is the body returned by POST /upload.
type UploadResult struct {
	Success        bool   `json:"success,omitempty"`
	ProjectID      string `json:"project_id,omitempty"`
	ExtractedCount int    `json:"extracted_count,omitempty"`
	Error          string `json:"error,omitempty"`
}

// AnnotatePath returns the workspace path for project, with the frame query when frame >= 0.
func AnnotatePath(projectID string, frame int) string {
	p := "/annotate/" + url.PathEscape(projectID)
	if frame < 0 {
		return p
	}
	q := url.Values{}
	q.Set("frame", strconv.Itoa(frame))
	return p + "?" + q.Encode()
}

// DeepLink joins baseURL with [AnnotatePath].
func DeepLink(baseURL, projectID string, frame int) string {
	return strings.TrimRight(baseURL, "/") + AnnotatePath(projectID, frame)
}

// ParseDeepLink extracts the project id and frame from a workspace URL. Frame is -1 when absent.
func ParseDeepLink(raw string) (string, int, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", -1, fmt.Errorf("invalid link: %w", err)
	}

	rest, ok := strings.CutPrefix(u.Path, "/annotate/")
	if !ok || rest == "" || strings.Contains(rest, "/") {
		return "", -1, fmt.Errorf("not a workspace link: %s", raw)
	}

	project, err := url.PathUnescape(rest)
	if err != nil {
		return "", -1, fmt.Errorf("invalid project id: %w", err)
	}

	frame := -1
	if v := u.Query().Get("frame"); v != "" {
		if frame, err = strconv.Atoi(v); err != nil || frame < 0 {
			return "", -1, fmt.Errorf("invalid frame %q", v)
		}
	}
	return project, frame, nil
}

// HistoryEntry is the last frame visited in a project.
type HistoryEntry struct {
	ProjectID   string    `json:"project_id"`
	Frame       int       `json:"frame"`
	TotalFrames int       `json:"total_frames"`
	VisitedAt   time.Time `json:"visited_at"`
}

// Draft holds the annotations of a frame whose save to the server failed.
type Draft struct {
	ID          string       `json:"id"`
	ProjectID   string       `json:"project_id"`
	Frame       int          `json:"frame"`
	Annotations []Annotation `json:"annotations"`
	LastError   string       `json:"last_error,omitempty"`
	Attempts    int          `json:"attempts"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}
