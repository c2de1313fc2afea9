package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/desertthunder/framelabel/internal/models"
	"github.com/desertthunder/framelabel/internal/shared"
	"github.com/desertthunder/framelabel/internal/workspace"
)

const panelWidth = 34

// AnnotateOpts configures [NewAnnotateModel]. Widget, Label and Notifier of Workspace are
// supplied by the model; a Notifier already set is still called.
type AnnotateOpts struct {
	Workspace  workspace.Options
	Start      int
	Classes    []string
	CanvasCols int
	CanvasRows int
}

// AnnotateModel is the annotation workspace screen.
type AnnotateModel struct {
	ctx     context.Context
	ws      *workspace.Workspace
	canvas  *Canvas
	label   *labelInput
	help    help.Model
	keys    keyMap
	bar     progress.Model
	notes   chan workspace.Notification
	changes chan struct{}
	start   int
	note    *workspace.Notification
	opened  bool
	width   int
}

// ChannelNotifier forwards notifications into ch without blocking; a full channel drops them.
func ChannelNotifier(ch chan<- workspace.Notification) workspace.Notifier {
	return workspace.NotifierFunc(func(n workspace.Notification) {
		select {
		case ch <- n:
		default:
		}
	})
}

func NewAnnotateModel(ctx context.Context, opts AnnotateOpts) (*AnnotateModel, error) {
	m := &AnnotateModel{
		ctx:     ctx,
		canvas:  NewCanvas(opts.CanvasCols, opts.CanvasRows),
		label:   newLabelInput(opts.Workspace.Config.DefaultLabel, opts.Classes),
		help:    help.New(),
		keys:    newKeyMap(),
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(panelWidth)),
		notes:   make(chan workspace.Notification, 16),
		changes: make(chan struct{}, 1),
		start:   opts.Start,
	}

	wo := opts.Workspace
	wo.Widget = m.canvas
	wo.Label = m.label.Value
	notify := ChannelNotifier(m.notes)
	if wo.Notifier != nil {
		outer := wo.Notifier
		wo.Notifier = workspace.NotifierFunc(func(n workspace.Notification) {
			outer.Notify(n)
			notify.Notify(n)
		})
	} else {
		wo.Notifier = notify
	}

	ws, err := workspace.New(wo)
	if err != nil {
		return nil, err
	}
	m.ws = ws
	m.label.focus = ws.Keys.SetTextFocus
	ws.Store.OnChange(func(models.FrameState) { m.signal() })
	ws.Nav.OnNavigate(func(int) { m.signal() })
	return m, nil
}

// Workspace exposes the state machine behind the screen.
func (m *AnnotateModel) Workspace() *workspace.Workspace { return m.ws }

func (m *AnnotateModel) signal() {
	select {
	case m.changes <- struct{}{}:
	default:
	}
}

func (m *AnnotateModel) Init() tea.Cmd {
	return tea.Batch(m.open(), m.waitForNotification(), m.waitForChange())
}

func (m *AnnotateModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.canvas.Resize(msg.Width-panelWidth-4, msg.Height-12)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case Msg:
		switch msg.kind {
		case MsgFrameOpened:
			m.opened = true
			m.report("Failed to open workspace", errOf(msg))
			m.syncFrame()
		case MsgActionDone:
			r := msg.data.(actionResult)
			m.report(fmt.Sprintf("%s failed", r.action), r.err)
			m.syncFrame()
		case MsgStateChanged:
			m.syncFrame()
			return m, m.waitForChange()
		case MsgNotification:
			n := msg.data.(workspace.Notification)
			m.note = &n
			return m, m.waitForNotification()
		case MsgSaved:
			return m, tea.Quit
		}
	}
	return m, nil
}

// report shows errors the workspace did not already notify about.
func (m *AnnotateModel) report(msg string, err error) {
	if err == nil || workspace.IsSuperseded(err) || errors.Is(err, context.Canceled) {
		return
	}
	if errors.Is(err, shared.ErrFetch) || errors.Is(err, shared.ErrSave) {
		return
	}
	m.note = &workspace.Notification{Level: workspace.LevelError, Message: msg, Err: err}
}

func (m *AnnotateModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, m.quit()
	}

	if m.label.Focused() {
		switch msg.String() {
		case "enter", "esc":
			m.label.Blur()
			return m, nil
		case "tab":
			m.label.Complete()
			return m, nil
		}
		return m, m.label.Update(msg)
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, m.quit()
	case key.Matches(msg, m.keys.label):
		return m, m.label.Focus()
	case key.Matches(msg, m.keys.up):
		m.canvas.MoveCursor(0, -1)
	case key.Matches(msg, m.keys.down):
		m.canvas.MoveCursor(0, 1)
	case key.Matches(msg, m.keys.left):
		m.canvas.MoveCursor(-1, 0)
	case key.Matches(msg, m.keys.right):
		m.canvas.MoveCursor(1, 0)
	case key.Matches(msg, m.keys.nudge):
		m.nudge(msg.String())
	case key.Matches(msg, m.keys.mark):
		m.canvas.Mark()
	case key.Matches(msg, m.keys.erase):
		m.canvas.Erase()
	case key.Matches(msg, m.keys.pick):
		m.ws.Adapter.SelectIndex(int(msg.String()[0] - '1'))
	default:
		return m, m.perform(msg)
	}
	return m, nil
}

var nudges = map[string][2]int{"H": {-1, 0}, "J": {0, 1}, "K": {0, -1}, "L": {1, 0}}

// nudge moves the selected box, or the cursor by five cells when nothing is selected.
func (m *AnnotateModel) nudge(k string) {
	d := nudges[k]
	if !m.canvas.Nudge(d[0], d[1]) {
		m.canvas.MoveCursor(d[0]*5, d[1]*5)
	}
}

// perform runs navigation and saves in a command; everything else is applied in place so it
// stays ordered with the keys that follow.
func (m *AnnotateModel) perform(msg tea.KeyMsg) tea.Cmd {
	a := m.ws.Keys.Route(msg)
	switch a {
	case workspace.ActionNone:
		return nil
	case workspace.ActionPrevious, workspace.ActionNext, workspace.ActionFirst, workspace.ActionLast, workspace.ActionSave:
		return func() tea.Msg {
			return actionDoneMsg(a, m.ws.Perform(m.ctx, a))
		}
	}
	m.report(fmt.Sprintf("%s failed", a), m.ws.Perform(m.ctx, a))
	return nil
}

func (m *AnnotateModel) open() tea.Cmd {
	return func() tea.Msg {
		return frameOpenedMsg(m.ws.Open(m.ctx, m.start))
	}
}

// quit flushes pending changes before leaving.
func (m *AnnotateModel) quit() tea.Cmd {
	return func() tea.Msg {
		return savedMsg(m.ws.Save(context.WithoutCancel(m.ctx)))
	}
}

func (m *AnnotateModel) waitForNotification() tea.Cmd {
	return func() tea.Msg {
		return notificationMsg(<-m.notes)
	}
}

func (m *AnnotateModel) waitForChange() tea.Cmd {
	return func() tea.Msg {
		<-m.changes
		return stateChangedMsg()
	}
}

func (m *AnnotateModel) syncFrame() {
	snap := m.ws.Snapshot()
	if snap.Image != nil {
		m.canvas.SetFrameSize(snap.Image.Width, snap.Image.Height)
	}
	for _, a := range snap.Annotations {
		m.label.AddClass(a.Class)
	}
}

func (m *AnnotateModel) View() string {
	if !m.opened {
		return styles.help.Render("Loading workspace...")
	}
	return m.render(m.ws.Snapshot())
}

// render is a function of the snapshot plus the view-local widgets.
func (m *AnnotateModel) render(s workspace.Snapshot) string {
	var b strings.Builder

	header := fmt.Sprintf("Project %s · Frame %d/%d", s.ProjectID, s.Frame+1, s.TotalFrames)
	b.WriteString(styles.title.Render(header))
	b.WriteString("\n")
	b.WriteString(m.bar.ViewAs(s.Progress / 100))
	b.WriteString("\n\n")

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, m.canvas.View(), m.renderPanel(s)))
	b.WriteString("\n\n")

	b.WriteString(m.label.View())
	if m.label.Focused() {
		if sugg := m.label.Suggestions(); len(sugg) > 0 {
			b.WriteString(styles.help.Render("  " + strings.Join(sugg, " · ")))
		}
	}
	b.WriteString("\n")

	b.WriteString(renderStatus(s))
	b.WriteString("\n")
	if m.note != nil {
		b.WriteString(renderNotification(*m.note))
	}
	b.WriteString("\n\n")

	keys := m.ws.Keys.Keys()
	if s.ShowHelp {
		b.WriteString(m.help.FullHelpView(keys.FullHelp()))
		b.WriteString("\n")
		b.WriteString(m.help.ShortHelpView(m.keys.canvasHelp()))
	} else {
		b.WriteString(m.help.ShortHelpView(keys.ShortHelp()))
	}
	return b.String()
}

func (m *AnnotateModel) renderPanel(s workspace.Snapshot) string {
	var b strings.Builder
	b.WriteString(styles.ok.Render(fmt.Sprintf("Annotations (%d)", len(s.Annotations))))
	b.WriteString("\n")
	if len(s.Annotations) == 0 {
		b.WriteString(styles.help.Render("No annotations on this frame"))
	}
	for i, a := range s.Annotations {
		line := fmt.Sprintf("%d. %s", i+1, a.Describe())
		if a.Selected {
			b.WriteString(styles.selected.Render("▸ " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if img := s.Image; img != nil {
		b.WriteString(styles.help.Render(fmt.Sprintf("%dx%d %s, %s", img.Width, img.Height, img.Format, shared.FormatFileSize(float64(img.Size)))))
		b.WriteString("\n")
	}
	col, row := m.canvas.Cursor()
	cursor := fmt.Sprintf("cursor %d,%d", col, row)
	if m.canvas.Drawing() {
		cursor += " (drawing)"
	}
	b.WriteString(styles.help.Render(cursor))
	b.WriteString("\n")
	b.WriteString(styles.help.Render(s.DeepLink))
	return styles.panel.Width(panelWidth).Render(b.String())
}

func renderStatus(s workspace.Snapshot) string {
	parts := []string{
		"mode: " + s.Mode.String(),
		onOff("auto-save", s.AutoSave),
		onOff("single-object", s.SingleMode),
	}
	if s.Target != s.Frame {
		parts = append(parts, fmt.Sprintf("loading frame %d...", s.Target+1))
	} else if s.State == workspace.Loading {
		parts = append(parts, "loading...")
	}

	status := s.SaveStatus()
	switch {
	case s.State == workspace.Saving:
		status = styles.warn.Render(status)
	case s.Dirty:
		status = styles.err.Render(status)
	default:
		status = styles.ok.Render(status)
	}
	return status + styles.help.Render("  "+strings.Join(parts, " | "))
}

func renderNotification(n workspace.Notification) string {
	switch n.Level {
	case workspace.LevelError:
		return styles.err.Render(n.String())
	case workspace.LevelSuccess:
		return styles.ok.Render(n.String())
	default:
		return styles.warn.Render(n.String())
	}
}

func onOff(name string, on bool) string {
	if on {
		return name + " on"
	}
	return name + " off"
}
