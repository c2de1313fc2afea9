package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/framelabel/internal/shared"
	"github.com/desertthunder/framelabel/internal/ui"
)

// redirectLogs points the runner's logger at the configured file so logs do not corrupt the TUI.
// The returned func restores the previous logger.
func (r *Runner) redirectLogs() (func(), error) {
	fileLogger, err := shared.NewFileLogger(r.config.Log.File)
	if err != nil {
		return nil, fmt.Errorf("failed to create file logger: %w", err)
	}
	shared.SetLogLevel(fileLogger, shared.ParseLogLevel(r.config.Log.Level))

	previous := r.logger
	r.SetLogger(fileLogger)
	return func() { r.SetLogger(previous) }, nil
}

// runTUI runs a model built with the redirected logger.
func (r *Runner) runTUI(ctx context.Context, build func() (tea.Model, error)) error {
	restore, err := r.redirectLogs()
	if err != nil {
		return err
	}
	defer restore()

	m, err := build()
	if err != nil {
		return err
	}
	if err := ui.Run(ctx, m); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}
