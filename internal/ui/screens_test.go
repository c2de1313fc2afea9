package ui

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/framelabel/internal/models"
	"github.com/desertthunder/framelabel/internal/services"
	"github.com/desertthunder/framelabel/internal/tasks"
	tu "github.com/desertthunder/framelabel/internal/testing"
	"github.com/desertthunder/framelabel/internal/workspace"
)

type screenAPI struct {
	mu    sync.Mutex
	saved map[int][]models.Annotation
	saves int
}

func newScreenAPI() *screenAPI { return &screenAPI{saved: map[int][]models.Annotation{}} }

func (a *screenAPI) LoadAnnotations(ctx context.Context, projectID string, frame int) ([]models.Annotation, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]models.Annotation{}, a.saved[frame]...), nil
}

func (a *screenAPI) SaveAnnotations(ctx context.Context, projectID string, frame int, list []models.Annotation) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.saves++
	a.saved[frame] = list
	return nil
}

func (a *screenAPI) FrameImage(ctx context.Context, projectID string, frame int) (*models.Frame, error) {
	return &models.Frame{Index: frame, Width: 100, Height: 100, Size: 2048, Format: "png"}, nil
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "delete":
		return tea.KeyMsg{Type: tea.KeyDelete}
	case "ctrl+s":
		return tea.KeyMsg{Type: tea.KeyCtrlS}
	case "ctrl+u":
		return tea.KeyMsg{Type: tea.KeyCtrlU}
	case "ctrl+z":
		return tea.KeyMsg{Type: tea.KeyCtrlZ}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
}

// press sends each key and returns the command of the last one.
func press(m tea.Model, keys ...string) tea.Cmd {
	var cmd tea.Cmd
	for _, k := range keys {
		_, cmd = m.Update(keyMsg(k))
	}
	return cmd
}

// run executes cmd and feeds its message back, as the program loop would.
func run(t *testing.T, m tea.Model, cmd tea.Cmd) tea.Msg {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	msg := cmd()
	m.Update(msg)
	return msg
}

func newAnnotateModel(t *testing.T, api *screenAPI) *AnnotateModel {
	t.Helper()
	m, err := NewAnnotateModel(context.Background(), AnnotateOpts{
		Workspace: workspace.Options{
			Config: models.WorkspaceConfig{ProjectID: "p", TotalFrames: 3, DefaultLabel: "object"},
			API:    api,
		},
		Classes:    []string{"car", "bus"},
		CanvasCols: 10,
		CanvasRows: 10,
	})
	if err != nil {
		t.Fatalf("NewAnnotateModel failed: %v", err)
	}
	run(t, m, m.open())
	return m
}

func TestAnnotateModel(t *testing.T) {
	t.Run("Draw Save Navigate", func(t *testing.T) {
		api := newScreenAPI()
		m := newAnnotateModel(t, api)
		ws := m.Workspace()

		press(m, "enter", "l", "l", "j", "enter")
		state := ws.Store.State()
		if len(state.Annotations) != 1 || !state.Dirty {
			t.Fatalf("expected one dirty annotation, got %+v", state)
		}
		if a := state.Annotations[0]; a.Class != "object" || a.Width != 30 || a.Height != 20 {
			t.Errorf("unexpected annotation %+v", a)
		}

		run(t, m, press(m, "ctrl+s"))
		if api.saves != 1 || ws.Store.Dirty() {
			t.Errorf("expected one save and a clean store, got %d saves", api.saves)
		}

		run(t, m, press(m, "d"))
		if got := ws.Nav.Current(); got != 1 {
			t.Errorf("expected frame 1, got %d", got)
		}
		if !strings.Contains(m.View(), "Frame 2/3") {
			t.Errorf("unexpected view:\n%s", m.View())
		}
	})

	t.Run("Label Input Captures Keys", func(t *testing.T) {
		m := newAnnotateModel(t, newScreenAPI())
		ws := m.Workspace()

		press(m, "tab")
		if !ws.Keys.TextFocused() {
			t.Fatal("expected router to see text focus")
		}
		press(m, "ctrl+u", "c", "a", "r", "d")
		if got := m.label.Value(); got != "card" {
			t.Fatalf("expected keys typed into the label, got %q", got)
		}
		press(m, "enter")
		if ws.Keys.TextFocused() {
			t.Fatal("expected focus released")
		}

		press(m, "enter", "enter")
		list := ws.Store.State().Annotations
		if len(list) != 1 || list[0].Class != "card" {
			t.Errorf("expected box labeled card, got %+v", list)
		}
	})

	t.Run("Select And Delete", func(t *testing.T) {
		m := newAnnotateModel(t, newScreenAPI())
		ws := m.Workspace()

		press(m, "enter", "enter", "l", "l", "enter", "enter")
		if n := ws.Store.Len(); n != 2 {
			t.Fatalf("expected 2 annotations, got %d", n)
		}

		press(m, "2")
		sel, ok := ws.Store.Selected()
		if !ok || sel.ID != ws.Store.State().Annotations[1].ID {
			t.Fatalf("expected second annotation selected, got %+v", sel)
		}

		press(m, "delete")
		if n := ws.Store.Len(); n != 1 {
			t.Errorf("expected 1 annotation after delete, got %d", n)
		}
	})

	t.Run("Quit Flushes", func(t *testing.T) {
		api := newScreenAPI()
		m := newAnnotateModel(t, api)

		press(m, "enter", "enter")
		msg := press(m, "q")()
		_, cmd := m.Update(msg)
		if cmd == nil {
			t.Fatal("expected quit command")
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Error("expected tea.QuitMsg")
		}
		if api.saves != 1 {
			t.Errorf("expected the dirty frame flushed on quit, got %d saves", api.saves)
		}
	})

	t.Run("Notifications Shown", func(t *testing.T) {
		m := newAnnotateModel(t, newScreenAPI())
		press(m, "ctrl+z")
		run(t, m, m.waitForNotification())
		if !strings.Contains(m.View(), "Undo functionality coming soon") {
			t.Errorf("expected undo notice in view:\n%s", m.View())
		}
	})
}

type screenExportAPI struct {
	startErr error
}

func (a *screenExportAPI) StartExport(ctx context.Context, projectID string, req models.ExportRequest) error {
	return a.startErr
}

func (a *screenExportAPI) ExportStatus(ctx context.Context, projectID string, format models.ExportFormat) (*models.ExportStatus, error) {
	return &models.ExportStatus{State: models.ExportComplete, Percent: 100}, nil
}

func (a *screenExportAPI) DownloadExport(ctx context.Context, projectID string, format models.ExportFormat, w io.Writer) (int64, error) {
	n, err := io.WriteString(w, "PK")
	return int64(n), err
}

// drain feeds progress messages back until the job reports completion.
func drain(t *testing.T, m tea.Model, wait func() tea.Cmd) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for cmd := wait(); cmd != nil; cmd = wait() {
		select {
		case <-deadline:
			t.Fatal("job did not finish")
		default:
		}
		msg := cmd()
		m.Update(msg)
		if msg, ok := msg.(Msg); ok && (msg.kind == MsgExportComplete || msg.kind == MsgUploadComplete) {
			return
		}
	}
}

func TestRenderStatus(t *testing.T) {
	tests := []struct {
		name string
		snap workspace.Snapshot
		want string
		not  string
	}{
		{"Idle", workspace.Snapshot{Frame: 2, Target: 2, State: workspace.Idle}, "auto-save", "loading"},
		{"Loading Same Frame", workspace.Snapshot{Frame: 2, Target: 2, State: workspace.Loading}, "loading...", "loading frame"},
		{"Heading Elsewhere", workspace.Snapshot{Frame: 0, Target: 3, State: workspace.Loading}, "loading frame 4...", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := renderStatus(tt.snap)
			if !strings.Contains(got, tt.want) {
				t.Errorf("expected %q in %q", tt.want, got)
			}
			if tt.not != "" && strings.Contains(got, tt.not) {
				t.Errorf("expected no %q in %q", tt.not, got)
			}
		})
	}
}

func TestExportModel(t *testing.T) {
	stats := models.ProjectStats{TotalFrames: 100, AnnotatedFrames: 40}

	t.Run("Complete Flow", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "out.zip")
		session := tasks.NewExportSession(&screenExportAPI{}, "p", stats, tasks.ExportSessionOpts{PollInterval: time.Millisecond})
		m := NewExportModel(context.Background(), ExportOpts{Session: session, ProjectID: "p", Output: out})

		press(m, "enter")
		if m.Step() != ExportOptionsView {
			t.Fatalf("expected options view, got %d", m.Step())
		}
		if f, _ := session.Format(); f != models.FormatYOLO {
			t.Errorf("expected first format selected, got %s", f)
		}

		press(m, "s", "+")
		if session.FrameSelection() != models.SelectAnnotated || session.Quality() != 85 {
			t.Errorf("unexpected options %s/%d", session.FrameSelection(), session.Quality())
		}
		if !strings.Contains(m.View(), "(40)") {
			t.Errorf("expected annotated frame count in summary:\n%s", m.View())
		}

		press(m, "enter")
		drain(t, m, m.waitForProgress)

		if m.Step() != ExportResultView {
			t.Fatalf("expected result view, got %d", m.Step())
		}
		tu.AssertFileExists(t, out)
		if !strings.Contains(m.View(), "Export Complete") {
			t.Errorf("unexpected result:\n%s", m.View())
		}

		press(m, "r")
		if _, ok := session.Format(); ok || m.Step() != FormatListView {
			t.Error("restart should clear the format and return to the list")
		}
	})

	t.Run("Start Failure", func(t *testing.T) {
		session := tasks.NewExportSession(&screenExportAPI{startErr: errors.New("boom")}, "p", stats, tasks.ExportSessionOpts{PollInterval: time.Millisecond})
		_ = session.SelectFormat(models.FormatCOCO)
		m := NewExportModel(context.Background(), ExportOpts{Session: session, ProjectID: "p", Output: filepath.Join(t.TempDir(), "x.zip")})
		if m.Step() != ExportOptionsView {
			t.Fatal("a preselected format should skip the list")
		}

		press(m, "y")
		drain(t, m, m.waitForProgress)
		if !strings.Contains(m.View(), "boom") {
			t.Errorf("expected error in view:\n%s", m.View())
		}
	})
}

type screenUploadAPI struct {
	got services.UploadRequest
}

func (a *screenUploadAPI) Upload(ctx context.Context, req services.UploadRequest) (*models.UploadResult, error) {
	a.got = req
	return &models.UploadResult{Success: true, ProjectID: "p-9", ExtractedCount: 12}, nil
}

func TestUploadModel(t *testing.T) {
	t.Run("Wizard Flow", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "clip.mp4")
		tu.MustWriteSized(t, path, 1<<20)
		api := &screenUploadAPI{}
		wizard := tasks.NewUploadWizard(api, tasks.UploadWizardOpts{})
		m := NewUploadModel(context.Background(), wizard, path, "http://localhost:5000")

		press(m, "enter")
		if wizard.Step() != tasks.StepConfigure {
			t.Fatalf("expected configure step, got %s", wizard.Step())
		}
		if m.name.Value() != "clip" {
			t.Errorf("expected name defaulted to clip, got %q", m.name.Value())
		}

		press(m, "enter")
		if wizard.Step() != tasks.StepConfirm {
			t.Fatalf("expected confirm step, got %s", wizard.Step())
		}
		if !strings.Contains(m.View(), "Estimated frames") {
			t.Errorf("unexpected confirm view:\n%s", m.View())
		}

		press(m, "y")
		drain(t, m, m.waitForProgress)

		if wizard.Step() != tasks.StepCreated {
			t.Fatalf("expected created step, got %s", wizard.Step())
		}
		if api.got.ProjectName != "clip" || api.got.FrameInterval != tasks.DefaultFrameInterval {
			t.Errorf("unexpected request %+v", api.got)
		}
		if !strings.Contains(m.View(), "http://localhost:5000/annotate/p-9") {
			t.Errorf("expected deep link in view:\n%s", m.View())
		}
	})

	t.Run("Rejected File Stays On First Step", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "notes.txt")
		tu.MustWriteSized(t, path, 10)
		wizard := tasks.NewUploadWizard(&screenUploadAPI{}, tasks.UploadWizardOpts{})
		m := NewUploadModel(context.Background(), wizard, path, "")

		press(m, "enter")
		if wizard.Step() != tasks.StepSelectFile {
			t.Errorf("expected to stay on step 1, got %s", wizard.Step())
		}
		if !strings.Contains(m.View(), "Please select a valid video file") {
			t.Errorf("expected validation message:\n%s", m.View())
		}
	})

	t.Run("Invalid Interval", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "clip.mov")
		tu.MustWriteSized(t, path, 10)
		wizard := tasks.NewUploadWizard(&screenUploadAPI{}, tasks.UploadWizardOpts{})
		m := NewUploadModel(context.Background(), wizard, path, "")

		press(m, "enter")
		m.interval.SetValue("30")
		press(m, "enter")
		if wizard.Step() != tasks.StepConfigure {
			t.Errorf("expected to stay on configure, got %s", wizard.Step())
		}
	})
}
