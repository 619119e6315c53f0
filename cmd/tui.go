package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/todox/internal/shared"
	"github.com/desertthunder/todox/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive todo browser.
//
// Notifications go to the browser's status line and logs go to --log-file while it owns the terminal.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	fileLogger, err := shared.NewFileLogger(cmd.String("log-file"))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	feed := ui.NewFeed(32)
	r.SetNotifier(feed)
	r.SetNavigator(shared.NopNavigator{})

	if err := r.requireSession(ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := ui.NewModel(ctx, r.board, feed)
	p := tea.NewProgram(model, tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
