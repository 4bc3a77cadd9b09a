package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/mustx/internal/shared"
	"github.com/desertthunder/mustx/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive list browser for one user.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	username, err := requireUsername(cmd)
	if err != nil {
		return err
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(cmd.String("log-file"))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	fileLogger.SetLevel(r.logger.GetLevel())
	r.SetLogger(fileLogger)

	loader, err := r.Loader(ctx)
	if err != nil {
		return err
	}

	model := ui.NewModel(ctx, loader, ui.ModelOpts{
		Username:  username,
		Update:    cmd.Bool("update"),
		ExportDir: r.config.Export.Dir,
		Now:       r.now,
	})
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return model.Err()
}
