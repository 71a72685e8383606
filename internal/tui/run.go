package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/osmia/marginalia/internal/engine"
	"github.com/osmia/marginalia/internal/mutation"
	"github.com/osmia/marginalia/internal/stream"
)

// Config holds the demo's collaborators.
type Config struct {
	// Client streams annotation text. Required.
	Client stream.Client
	// Archive, when set, receives cleanly completed annotations.
	Archive engine.Archive
}

// Run builds an engine around cfg and drives the demo until the user quits
// or ctx is cancelled. The engine is closed on the way out, which also
// revokes any stream still in flight.
func Run(ctx context.Context, cfg Config) error {
	if cfg.Client == nil {
		return fmt.Errorf("stream client is required")
	}

	recorder := mutation.NewRecorder()
	notifier := NewNotifier()

	eng, err := engine.NewWithConfig(cfg.Client, engine.Config{
		Tracker:  recorder,
		Notifier: notifier,
		Archive:  cfg.Archive,
	})
	if err != nil {
		return fmt.Errorf("failed to create annotation engine: %w", err)
	}
	defer func() { _ = eng.Close() }()

	p := tea.NewProgram(
		NewModel(eng, recorder, notifier),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("demo TUI failed: %w", err)
	}
	return nil
}
