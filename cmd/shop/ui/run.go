package ui

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/app"
	"storefront/internal/logging"

	tea "github.com/charmbracelet/bubbletea"
)

// Run starts the terminal UI at path and blocks until the user quits or ctx ends.
func Run(ctx context.Context, a *app.App, styles Styles, path string) error {
	m := New(ctx, a, styles, path)
	defer m.Close()

	logging.UI("starting ui at %s", m.Route())
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("error running program: %w", err)
	}
	return nil
}
