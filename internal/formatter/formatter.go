// package formatter renders annotation dumps (CSV, JSON, YAML, Markdown) and the tables printed by the CLI
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"gopkg.in/yaml.v3"

	"github.com/desertthunder/framelabel/internal/models"
	"github.com/desertthunder/framelabel/internal/shared"
)

// Format names an annotation dump layout.
type Format string

const (
	FormatCSV      Format = "csv"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatMarkdown Format = "markdown"
)

// ParseFormat validates a --format flag value.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatJSON, FormatYAML, FormatMarkdown:
		return f, nil
	case "md":
		return FormatMarkdown, nil
	case "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("%w: unsupported dump format %q (csv, json, yaml, markdown)", shared.ErrInvalidFlag, s)
}

// Ext returns the file extension of f, with the dot.
func (f Format) Ext() string {
	if f == FormatMarkdown {
		return ".md"
	}
	return "." + string(f)
}

// FrameDump is the stored list of one frame.
type FrameDump struct {
	Frame       int                 `json:"frame" yaml:"frame"`
	Annotations []models.Annotation `json:"annotations" yaml:"annotations"`
}

// ProjectDump holds the stored annotations of a range of frames.
type ProjectDump struct {
	ProjectID string               `json:"project_id" yaml:"project_id"`
	Stats     *models.ProjectStats `json:"stats,omitempty" yaml:"stats,omitempty"`
	Frames    []FrameDump          `json:"frames" yaml:"frames"`
}

// Count returns the number of annotations across every frame.
func (d *ProjectDump) Count() int {
	n := 0
	for _, f := range d.Frames {
		n += len(f.Annotations)
	}
	return n
}

// Add appends one frame's list.
func (d *ProjectDump) Add(frame int, list []models.Annotation) {
	if list == nil {
		list = []models.Annotation{}
	}
	d.Frames = append(d.Frames, FrameDump{Frame: frame, Annotations: list})
}

func ftoa(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

// ToCSV converts a dump to CSV with columns: Frame, ID, Class, X, Y, Width, Height
func ToCSV(d *ProjectDump) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Frame", "ID", "Class", "X", "Y", "Width", "Height"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, frame := range d.Frames {
		for _, a := range frame.Annotations {
			record := []string{
				strconv.Itoa(frame.Frame),
				a.ID,
				a.Label(),
				ftoa(a.X),
				ftoa(a.Y),
				ftoa(a.Width),
				ftoa(a.Height),
			}
			if err := writer.Write(record); err != nil {
				return nil, fmt.Errorf("failed to write CSV record: %w", err)
			}
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ToJSON converts a dump to indented JSON.
func ToJSON(d *ProjectDump) ([]byte, error) {
	out := *d
	if out.Frames == nil {
		out.Frames = []FrameDump{}
	}
	return shared.MarshalJSON(out, true)
}

// ToYAML converts a dump to YAML with the same keys as [ToJSON].
func ToYAML(d *ProjectDump) ([]byte, error) {
	out := *d
	if out.Frames == nil {
		out.Frames = []FrameDump{}
	}
	data, err := yaml.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("YAML encoding error: %w", err)
	}
	return data, nil
}

// ToMarkdown renders a dump as a report with a per-frame list, skipping empty frames.
func ToMarkdown(d *ProjectDump) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# Project %s\n\n", d.ProjectID))
	if d.Stats != nil {
		buf.WriteString(fmt.Sprintf("**Frames**: %d (%d annotated, %.1f%%)\n", d.Stats.TotalFrames, d.Stats.AnnotatedFrames, d.Stats.CompletionPercentage))
		buf.WriteString(fmt.Sprintf("**Annotations**: %d\n", d.Stats.TotalAnnotations))
		if len(d.Stats.Classes) > 0 {
			buf.WriteString(fmt.Sprintf("**Classes**: %s\n", strings.Join(d.Stats.Classes, ", ")))
		}
		buf.WriteString("\n")
	}

	buf.WriteString("## Frames\n\n")
	for _, f := range d.Frames {
		if len(f.Annotations) == 0 {
			continue
		}
		buf.WriteString(fmt.Sprintf("### Frame %d\n\n", f.Frame))
		for j, a := range f.Annotations {
			buf.WriteString(fmt.Sprintf("%d. %s\n", j+1, a.Describe()))
		}
		buf.WriteString("\n")
	}

	return buf.Bytes(), nil
}

// Render dispatches to the renderer of f.
func Render(d *ProjectDump, f Format) ([]byte, error) {
	switch f {
	case FormatCSV:
		return ToCSV(d)
	case FormatJSON:
		return ToJSON(d)
	case FormatYAML:
		return ToYAML(d)
	case FormatMarkdown:
		return ToMarkdown(d)
	}
	return nil, fmt.Errorf("%w: unsupported dump format %q", shared.ErrInvalidFlag, f)
}

// WriteDump renders d into path, creating parent directories.
//
// Defaults to {project}_annotations{ext} as the filename.
func WriteDump(d *ProjectDump, f Format, path string) (string, error) {
	if path == "" {
		path = d.ProjectID + "_annotations" + f.Ext()
	}

	data, err := Render(d, f)
	if err != nil {
		return "", fmt.Errorf("failed to render dump: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write dump file: %w", err)
	}
	return path, nil
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

// Table renders rows under headers with a rounded border.
func Table(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	return t.Render()
}

// StatsTable renders project statistics as a two-column table.
func StatsTable(projectID string, s *models.ProjectStats) string {
	classes := strings.Join(s.Classes, ", ")
	if classes == "" {
		classes = "-"
	}
	return Table([]string{"Project", projectID}, [][]string{
		{"Total frames", strconv.Itoa(s.TotalFrames)},
		{"Annotated frames", strconv.Itoa(s.AnnotatedFrames)},
		{"Completion", fmt.Sprintf("%.1f%%", s.CompletionPercentage)},
		{"Annotations", strconv.Itoa(s.TotalAnnotations)},
		{"Classes", fmt.Sprintf("%d (%s)", s.UniqueClasses, classes)},
	})
}

// HistoryTable renders the last visited frame of each project.
func HistoryTable(entries []models.HistoryEntry, baseURL string) string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			e.ProjectID,
			fmt.Sprintf("%d/%d", e.Frame+1, e.TotalFrames),
			e.VisitedAt.Local().Format(time.DateTime),
			models.DeepLink(baseURL, e.ProjectID, e.Frame),
		})
	}
	return Table([]string{"Project", "Frame", "Visited", "Link"}, rows)
}

// DraftsTable renders journaled saves waiting to be pushed.
func DraftsTable(drafts []models.Draft) string {
	rows := make([][]string, 0, len(drafts))
	for _, d := range drafts {
		rows = append(rows, []string{
			d.ProjectID,
			strconv.Itoa(d.Frame),
			strconv.Itoa(len(d.Annotations)),
			strconv.Itoa(d.Attempts),
			truncate(d.LastError, 48),
		})
	}
	return Table([]string{"Project", "Frame", "Annotations", "Attempts", "Last error"}, rows)
}

// ProjectsTable renders the server's project listing.
func ProjectsTable(projects []models.Project) string {
	rows := make([][]string, 0, len(projects))
	for _, p := range projects {
		rows = append(rows, []string{p.ID, p.Name, strconv.Itoa(p.ExtractedCount), ftoa(p.FrameInterval) + "s"})
	}
	return Table([]string{"ID", "Name", "Frames", "Interval"}, rows)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
