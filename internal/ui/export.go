package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/framelabel/internal/models"
	"github.com/desertthunder/framelabel/internal/shared"
	"github.com/desertthunder/framelabel/internal/tasks"
)

// ExportView represents the current step of the export screen.
type ExportView int

const (
	FormatListView ExportView = iota
	ExportOptionsView
	ExportRunView
	ExportResultView
)

const qualityStep = 5

// ExportModel drives an [tasks.ExportSession] from format choice to downloaded archive.
type ExportModel struct {
	ctx          context.Context
	cancel       context.CancelFunc
	session      *tasks.ExportSession
	projectID    string
	output       string
	view         ExportView
	formats      list.Model
	bar          progress.Model
	spin         spinner.Model
	help         help.Model
	keys         keyMap
	progressChan chan tasks.ProgressUpdate
	done         chan Msg
	progress     tasks.ProgressUpdate
	result       exportResult
}

// ExportOpts configures [NewExportModel]. An empty Output downloads to [tasks.DefaultArchiveName].
type ExportOpts struct {
	Session   *tasks.ExportSession
	ProjectID string
	Output    string
}

func NewExportModel(ctx context.Context, opts ExportOpts) *ExportModel {
	formats := list.New(formatItems(), list.NewDefaultDelegate(), 0, 0)
	formats.Title = fmt.Sprintf("Export project %s", opts.ProjectID)
	formats.SetShowStatusBar(false)
	formats.SetFilteringEnabled(false)

	m := &ExportModel{
		ctx:       ctx,
		session:   opts.Session,
		projectID: opts.ProjectID,
		output:    opts.Output,
		view:      FormatListView,
		formats:   formats,
		bar:       progress.New(progress.WithDefaultGradient()),
		spin:      spinner.New(spinner.WithSpinner(spinner.Dot)),
		help:      help.New(),
		keys:      newKeyMap(),
	}
	if f, ok := opts.Session.Format(); ok {
		m.selectListFormat(f)
		m.view = ExportOptionsView
	}
	return m
}

// Step returns the current step.
func (m *ExportModel) Step() ExportView { return m.view }

func (m *ExportModel) Init() tea.Cmd {
	return nil
}

func (m *ExportModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.formats.SetSize(msg.Width-4, msg.Height-8)
		m.bar.Width = min(max(msg.Width-8, 20), 80)
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case FormatListView:
			return m.handleFormatKeys(msg)
		case ExportOptionsView:
			return m.handleOptionKeys(msg)
		case ExportRunView:
			return m.handleRunKeys(msg)
		case ExportResultView:
			return m.handleResultKeys(msg)
		}

	case spinner.TickMsg:
		if m.view != ExportRunView {
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
		case MsgExportComplete:
			m.result = msg.data.(exportResult)
			m.view = ExportResultView
			m.progressChan, m.done = nil, nil
			return m, nil
		}
	}

	if m.view == FormatListView {
		var cmd tea.Cmd
		m.formats, cmd = m.formats.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *ExportModel) handleFormatKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.enter):
		if item, ok := m.formats.SelectedItem().(formatItem); ok {
			if err := m.session.SelectFormat(item.format); err == nil {
				m.view = ExportOptionsView
			}
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.formats, cmd = m.formats.Update(msg)
	return m, cmd
}

func (m *ExportModel) handleOptionKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.view = FormatListView
	case key.Matches(msg, m.keys.cycle):
		next := models.SelectAnnotated
		if m.session.FrameSelection() == models.SelectAnnotated {
			next = models.SelectAll
		}
		_ = m.session.SetFrameSelection(next)
	case key.Matches(msg, m.keys.more):
		_ = m.session.SetQuality(min(m.session.Quality()+qualityStep, 100))
	case key.Matches(msg, m.keys.less):
		_ = m.session.SetQuality(max(m.session.Quality()-qualityStep, 1))
	case key.Matches(msg, m.keys.enter), key.Matches(msg, m.keys.yes):
		m.view = ExportRunView
		return m, tea.Batch(m.startExport(), m.spin.Tick)
	}
	return m, nil
}

func (m *ExportModel) handleRunKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.back) || key.Matches(msg, m.keys.quit) {
		if m.cancel != nil {
			m.cancel()
		}
	}
	return m, nil
}

func (m *ExportModel) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.restart):
		m.session.Reset()
		m.result = exportResult{}
		m.progress = tasks.ProgressUpdate{}
		m.view = FormatListView
	}
	return m, nil
}

func (m *ExportModel) selectListFormat(f models.ExportFormat) {
	for i, it := range m.formats.Items() {
		if it.(formatItem).format == f {
			m.formats.Select(i)
		}
	}
}

func (m *ExportModel) outputPath() string {
	if m.output != "" {
		return m.output
	}
	f, _ := m.session.Format()
	return tasks.DefaultArchiveName(m.projectID, f)
}

// startExport runs the job and the download in a goroutine that reports through the channels.
func (m *ExportModel) startExport() tea.Cmd {
	ctx, cancel := context.WithCancel(m.ctx)
	m.cancel = cancel
	m.progressChan = make(chan tasks.ProgressUpdate, 50)
	m.done = make(chan Msg, 1)

	progressChan, done, path := m.progressChan, m.done, m.outputPath()
	go func() {
		defer cancel()
		status, err := m.session.Run(ctx, progressChan)
		if err != nil {
			done <- exportCompleteMsg(status, "", err)
			return
		}
		if _, err := m.session.Download(ctx, path, progressChan); err != nil {
			done <- exportCompleteMsg(status, "", fmt.Errorf("download failed: %w", err))
			return
		}
		done <- exportCompleteMsg(status, path, nil)
	}()

	return m.waitForProgress()
}

func (m *ExportModel) waitForProgress() tea.Cmd {
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

func (m *ExportModel) View() string {
	switch m.view {
	case FormatListView:
		return fmt.Sprintf("%s\n\n%s", m.formats.View(), m.help.ShortHelpView([]key.Binding{m.keys.enter, m.keys.quit}))
	case ExportOptionsView:
		return m.renderOptions()
	case ExportRunView:
		return m.renderRun()
	case ExportResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *ExportModel) renderOptions() string {
	sum := m.session.Summary()
	title := styles.title.Render(fmt.Sprintf("Export as %s", sum.Format))
	info := fmt.Sprintf(
		"Frames: %s (%d)\nImage quality: %d\nEstimated size: %s\nOutput: %s",
		m.session.FrameSelection(), sum.Frames, m.session.Quality(), sum.EstimatedSize, m.outputPath(),
	)
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.enter, m.keys.cycle, m.keys.more, m.keys.less, m.keys.back, m.keys.quit})
	return fmt.Sprintf("%s\n%s\n\n%s", title, info, helpView)
}

func (m *ExportModel) renderRun() string {
	title := styles.title.Render("Exporting")
	status := m.session.Status()

	var phase string
	switch m.progress.Phase {
	case tasks.StartExport:
		phase = m.progress.Message
	case tasks.PollExport:
		phase = tasks.StageLabel(status)
	case tasks.DownloadExport:
		phase = "Downloading archive..."
	default:
		phase = "Starting..."
	}

	return fmt.Sprintf("%s\n%s %s\n\n%s\n\n%s", title, m.spin.View(), phase, m.bar.ViewAs(status.Percent/100),
		m.help.ShortHelpView([]key.Binding{m.keys.back}))
}

func (m *ExportModel) renderResult() string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.restart, m.keys.quit})
	if err := m.result.err; err != nil {
		msg := "Export failed"
		if !tasks.IsExportFailure(err) {
			msg = "Export stopped"
		}
		return styles.err.Render(fmt.Sprintf("%s: %v", msg, err)) + "\n\n" + helpView
	}

	var b strings.Builder
	b.WriteString(styles.ok.Render("✓ Export Complete!"))
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("Archive: %s\n", m.result.path))
	if m.result.status != nil && m.result.status.Message != "" {
		b.WriteString(m.result.status.Message + "\n")
	}
	b.WriteString(fmt.Sprintf("Estimated size was %s\n", shared.FormatFileSize(m.session.Summary().EstimatedKB*1024)))
	b.WriteString("\n")
	b.WriteString(helpView)
	return b.String()
}
