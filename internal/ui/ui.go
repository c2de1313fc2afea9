package ui

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

var (
	_ tea.Model = (*AnnotateModel)(nil)
	_ tea.Model = (*ExportModel)(nil)
	_ tea.Model = (*UploadModel)(nil)
)

// Run starts m on the alternate screen and blocks until it quits or ctx is cancelled.
func Run(ctx context.Context, m tea.Model, opts ...tea.ProgramOption) error {
	opts = append([]tea.ProgramOption{tea.WithContext(ctx), tea.WithAltScreen()}, opts...)
	p := tea.NewProgram(m, opts...)

	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}
