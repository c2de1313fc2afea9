package ui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/framelabel/internal/models"
	"github.com/desertthunder/framelabel/internal/tasks"
)

// UploadModel walks a [tasks.UploadWizard] through its steps.
type UploadModel struct {
	ctx          context.Context
	wizard       *tasks.UploadWizard
	baseURL      string
	path         textinput.Model
	name         textinput.Model
	interval     textinput.Model
	spin         spinner.Model
	help         help.Model
	keys         keyMap
	progressChan chan tasks.ProgressUpdate
	done         chan Msg
	progress     tasks.ProgressUpdate
	err          error
}

// NewUploadModel starts on the file step, prefilled with initialPath when given.
func NewUploadModel(ctx context.Context, wizard *tasks.UploadWizard, initialPath, baseURL string) *UploadModel {
	path := textinput.New()
	path.Prompt = "video> "
	path.Placeholder = "/path/to/video.mp4"
	path.SetValue(initialPath)
	path.Focus()

	name := textinput.New()
	name.Prompt = "project name> "
	name.Placeholder = tasks.UntitledProject
	name.CharLimit = 128

	interval := textinput.New()
	interval.Prompt = "frame interval (s)> "
	interval.CharLimit = 8
	interval.SetValue(strconv.FormatFloat(wizard.FrameInterval(), 'f', -1, 64))

	return &UploadModel{
		ctx:      ctx,
		wizard:   wizard,
		baseURL:  baseURL,
		path:     path,
		name:     name,
		interval: interval,
		spin:     spinner.New(spinner.WithSpinner(spinner.Dot)),
		help:     help.New(),
		keys:     newKeyMap(),
	}
}

func (m *UploadModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *UploadModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.wizard.Step() {
		case tasks.StepSelectFile:
			return m.handleFileKeys(msg)
		case tasks.StepConfigure:
			return m.handleConfigureKeys(msg)
		case tasks.StepConfirm:
			return m.handleConfirmKeys(msg)
		case tasks.StepCreated:
			if key.Matches(msg, m.keys.quit) || key.Matches(msg, m.keys.enter) {
				return m, tea.Quit
			}
		}
		return m, nil

	case spinner.TickMsg:
		if !m.wizard.Submitting() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case Msg:
		switch msg.kind {
		case MsgProgressUpdate:
			m.progress = msg.data.(tasks.ProgressUpdate)
			return m, m.waitForProgress()
		case MsgUploadComplete:
			m.err = msg.data.(uploadResult).err
			m.progressChan, m.done = nil, nil
			return m, nil
		}
	}

	return m.updateInputs(msg)
}

func (m *UploadModel) handleFileKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return m, tea.Quit
	case "enter":
		if err := m.wizard.SelectFile(strings.TrimSpace(m.path.Value())); err != nil {
			m.err = err
			return m, nil
		}
		if err := m.wizard.Next(); err != nil {
			m.err = err
			return m, nil
		}
		m.err = nil
		m.name.SetValue(m.wizard.ProjectName())
		m.path.Blur()
		return m, m.name.Focus()
	}
	var cmd tea.Cmd
	m.path, cmd = m.path.Update(msg)
	return m, cmd
}

func (m *UploadModel) handleConfigureKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		_ = m.wizard.Back()
		m.name.Blur()
		m.interval.Blur()
		m.err = nil
		return m, m.path.Focus()
	case "tab", "shift+tab":
		if m.name.Focused() {
			m.name.Blur()
			return m, m.interval.Focus()
		}
		m.interval.Blur()
		return m, m.name.Focus()
	case "enter":
		if err := m.applyConfig(); err != nil {
			m.err = err
			return m, nil
		}
		if err := m.wizard.Next(); err != nil {
			m.err = err
			return m, nil
		}
		m.err = nil
		m.name.Blur()
		m.interval.Blur()
		return m, nil
	}
	return m.updateInputs(msg)
}

func (m *UploadModel) applyConfig() error {
	m.wizard.SetProjectName(m.name.Value())
	v, err := strconv.ParseFloat(strings.TrimSpace(m.interval.Value()), 64)
	if err != nil {
		return &tasks.ValidationError{Field: "frame_interval", Message: "Frame interval must be a number"}
	}
	return m.wizard.SetFrameInterval(v)
}

func (m *UploadModel) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.wizard.Submitting() {
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.back), key.Matches(msg, m.keys.no):
		if err := m.wizard.Back(); err == nil {
			m.err = nil
			return m, m.name.Focus()
		}
	case key.Matches(msg, m.keys.yes), key.Matches(msg, m.keys.enter):
		m.err = nil
		return m, tea.Batch(m.startUpload(), m.spin.Tick)
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	}
	return m, nil
}

func (m *UploadModel) updateInputs(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds [3]tea.Cmd
	m.path, cmds[0] = m.path.Update(msg)
	m.name, cmds[1] = m.name.Update(msg)
	m.interval, cmds[2] = m.interval.Update(msg)
	return m, tea.Batch(cmds[:]...)
}

func (m *UploadModel) startUpload() tea.Cmd {
	m.progressChan = make(chan tasks.ProgressUpdate, 10)
	m.done = make(chan Msg, 1)

	progressChan, done := m.progressChan, m.done
	go func() {
		result, err := m.wizard.Submit(m.ctx, progressChan)
		done <- uploadCompleteMsg(result, err)
	}()
	return m.waitForProgress()
}

func (m *UploadModel) waitForProgress() tea.Cmd {
	progressChan, done := m.progressChan, m.done
	if done == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case update := <-progressChan:
			return progressUpdateMsg(update)
		case msg := <-done:
			return msg
		}
	}
}

func (m *UploadModel) View() string {
	var b strings.Builder
	b.WriteString(styles.title.Render("Upload video"))
	b.WriteString("\n")
	b.WriteString(renderSteps(m.wizard.Step()))
	b.WriteString("\n\n")

	switch m.wizard.Step() {
	case tasks.StepSelectFile:
		b.WriteString(m.path.View())
		b.WriteString("\n\n")
		b.WriteString(styles.help.Render(fmt.Sprintf("Supported: %s", strings.Join(tasks.VideoExtensions, " "))))
		b.WriteString("\n\n")
		b.WriteString(m.help.ShortHelpView([]key.Binding{m.keys.enter, m.keys.back}))
	case tasks.StepConfigure:
		if f := m.wizard.File(); f != nil {
			b.WriteString(fmt.Sprintf("%s (%.1f MB)\n\n", f.Name, f.SizeMB()))
		}
		b.WriteString(m.name.View())
		b.WriteString("\n")
		b.WriteString(m.interval.View())
		b.WriteString("\n\n")
		b.WriteString(m.help.ShortHelpView([]key.Binding{m.keys.next, m.keys.enter, m.keys.back}))
	case tasks.StepConfirm:
		b.WriteString(m.renderConfirm())
	case tasks.StepCreated:
		b.WriteString(m.renderCreated())
	}

	if m.err != nil {
		b.WriteString("\n\n")
		b.WriteString(styles.err.Render(m.err.Error()))
	}
	return b.String()
}

func renderSteps(current tasks.WizardStep) string {
	steps := []tasks.WizardStep{tasks.StepSelectFile, tasks.StepConfigure, tasks.StepConfirm}
	parts := make([]string, len(steps))
	for i, s := range steps {
		label := fmt.Sprintf("%d %s", int(s), s)
		switch {
		case s == current:
			parts[i] = styles.ok.Render(label)
		case s < current:
			parts[i] = styles.box.Render("✓ " + s.String())
		default:
			parts[i] = styles.help.Render(label)
		}
	}
	return strings.Join(parts, styles.help.Render(" › "))
}

func (m *UploadModel) renderConfirm() string {
	var b strings.Builder
	est := m.wizard.Estimates()
	if f := m.wizard.File(); f != nil {
		b.WriteString(fmt.Sprintf("File: %s (%.1f MB)\n", f.Name, f.SizeMB()))
	}
	b.WriteString(fmt.Sprintf("Project: %s\n", m.wizard.ProjectName()))
	b.WriteString(fmt.Sprintf("Frame interval: %gs\n", m.wizard.FrameInterval()))
	b.WriteString(fmt.Sprintf("Estimated frames: %d\n", est.Frames))
	b.WriteString(fmt.Sprintf("Estimated storage: %s\n\n", est.Storage()))

	if m.wizard.Submitting() {
		b.WriteString(fmt.Sprintf("%s %s", m.spin.View(), m.progress.Message))
		return b.String()
	}
	b.WriteString(m.help.ShortHelpView([]key.Binding{m.keys.yes, m.keys.back, m.keys.quit}))
	return b.String()
}

func (m *UploadModel) renderCreated() string {
	res := m.wizard.Result()
	if res == nil {
		return ""
	}
	path := m.wizard.AnnotatePath()
	if m.baseURL != "" {
		path = models.DeepLink(m.baseURL, res.ProjectID, -1)
	}
	return fmt.Sprintf("%s\n\nProject: %s\nFrames extracted: %d\nOpen: %s\n\n%s",
		styles.ok.Render("✓ Project created!"), res.ProjectID, res.ExtractedCount, path,
		m.help.ShortHelpView([]key.Binding{m.keys.quit}))
}
