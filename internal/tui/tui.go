package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/meshsim/meshsim/internal/driver"
	"github.com/meshsim/meshsim/internal/simworld"
)

// Run starts the dashboard alongside a Driver running the given World.
// The Driver runs to completion (or until ctx is cancelled) in its own
// goroutine while the dashboard polls live state each tick; quitting
// the dashboard ("q"/ctrl+c/esc) cancels a derived context so the
// Driver winds down too.
func Run(world *simworld.World, drv *driver.Driver, ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- drv.Run(runCtx)
	}()

	model := New(world, drv, cancel)
	program := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	if _, err := program.Run(); err != nil {
		cancel()
		<-errCh
		return fmt.Errorf("failed to run dashboard: %w", err)
	}

	cancel()
	return <-errCh
}
