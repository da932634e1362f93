package tui

import (
	"context"
	"errors"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"pointmap/internal/pointsapi"
	"pointmap/internal/scene"
	"pointmap/internal/tiles"
)

// Renderer shows a scene in the terminal until the user quits.
type Renderer struct {
	Loader  tiles.Loader
	Reload  ReloadFunc
	Request pointsapi.Request
	Logger  *slog.Logger
}

// Render runs the interactive program on the alternate screen. It returns
// when the user quits or ctx is cancelled.
func (r *Renderer) Render(ctx context.Context, s scene.Scene) error {
	profile := termenv.EnvColorProfile()
	lipgloss.SetColorProfile(profile)

	m := New(ctx, s, Options{
		Loader:  r.Loader,
		Reload:  r.Reload,
		Request: r.Request,
		Profile: profile,
		Logger:  r.Logger,
	})
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseAllMotion(), tea.WithContext(ctx))
	final, err := p.Run()
	if fm, ok := final.(Model); ok {
		fm.Close()
	}
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}
