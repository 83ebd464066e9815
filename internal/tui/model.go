// Package tui provides the terminal dashboard for a running simulation.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/meshsim/meshsim/internal/driver"
	"github.com/meshsim/meshsim/internal/metricsexport"
	"github.com/meshsim/meshsim/internal/simworld"
)

// MaxFeedEntries is the maximum number of delivery/drop lines to keep
// in the scrolling feed.
const MaxFeedEntries = 200

// pollInterval is how often the dashboard reads a fresh Snapshot off
// the running simulation.
const pollInterval = 250 * time.Millisecond

// Model represents the dashboard state
type Model struct {
	world  *simworld.World
	drv    *driver.Driver
	cancel context.CancelFunc

	width    int
	height   int
	ready    bool
	quitting bool

	spinner  spinner.Model
	viewport viewport.Model

	prevSnap   metricsexport.Snapshot
	havePrev   bool
	feed       []FeedEntry
	nodeCount  int
	runningCnt int
	startTime  time.Time
	lastUpdate time.Time
	simTimeMs  int64
	errMsg     string
}

// FeedEntry is one line in the scrolling delivery/drop feed.
type FeedEntry struct {
	Time time.Time
	Text string
}

// New creates a new dashboard model bound to a running simulation.
// cancel is called when the user quits ("q"/ctrl+c/esc), so the Driver
// loop it's racing against can wind down.
func New(world *simworld.World, drv *driver.Driver, cancel context.CancelFunc) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = spinnerStyle

	return Model{
		world:     world,
		drv:       drv,
		cancel:    cancel,
		spinner:   s,
		feed:      make([]FeedEntry, 0),
		startTime: time.Now(),
	}
}

// Init initializes the model
//
//nolint:gocritic // hugeParam: Model must be value receiver to implement tea.Model interface
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		tickCmd(),
	)
}

// tickMsg is sent periodically to refresh the dashboard from live state
type tickMsg time.Time

// errMsg is sent when polling encounters an error
type errMsg error

func tickCmd() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
