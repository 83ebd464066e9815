package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/meshsim/meshsim/internal/metricsexport"
)

// Update handles messages and updates the model
//
//nolint:gocritic // hugeParam: Model must be value receiver to implement tea.Model interface
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		case "c":
			m.feed = make([]FeedEntry, 0)
			m.viewport.SetContent(m.renderFeed())
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		headerHeight := 8
		footerHeight := 3
		verticalMargins := headerHeight + footerHeight

		if !m.ready {
			m.viewport = viewport.New(msg.Width-4, msg.Height-verticalMargins)
			m.viewport.YPosition = headerHeight
			m.ready = true
		} else {
			m.viewport.Width = msg.Width - 4
			m.viewport.Height = msg.Height - verticalMargins
		}
		m.viewport.SetContent(m.renderFeed())

	case tickMsg:
		m.lastUpdate = time.Time(msg)
		m.refresh()
		m.viewport.SetContent(m.renderFeed())
		m.viewport.GotoBottom()
		cmds = append(cmds, tickCmd())

	case errMsg:
		m.errMsg = msg.Error()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// refresh pulls a fresh Snapshot from the live World and diffs it
// against the previous poll to produce delivery/drop feed lines. The
// dashboard has no direct hook into the NetworkPlane's delivery path,
// so per-link counter deltas stand in for a live event stream.
func (m *Model) refresh() {
	if m.world == nil {
		return
	}
	if m.drv != nil {
		m.simTimeMs = m.drv.Now()
	}

	snap := metricsexport.Build(m.world, m.simTimeMs)

	m.nodeCount = len(snap.Nodes)
	running := 0
	for _, n := range snap.Nodes {
		if n.Running {
			running++
		}
	}
	m.runningCnt = running

	if m.havePrev {
		prevByKey := make(map[[2]uint32]metricsexport.LinkSample, len(m.prevSnap.Links))
		for _, l := range m.prevSnap.Links {
			prevByKey[[2]uint32{l.From, l.To}] = l
		}
		for _, l := range snap.Links {
			prev := prevByKey[[2]uint32{l.From, l.To}]
			deliveredDelta := l.MessagesDelivered - prev.MessagesDelivered
			lossDelta := l.MessagesDroppedLoss - prev.MessagesDroppedLoss
			throttleDelta := l.MessagesThrottledBandwidth - prev.MessagesThrottledBandwidth
			if deliveredDelta == 0 && lossDelta == 0 && throttleDelta == 0 {
				continue
			}
			m.addFeed(fmt.Sprintf("%d -> %d  delivered=%d dropped=%d throttled=%d  (%.0fms avg)",
				l.From, l.To, deliveredDelta, lossDelta, throttleDelta, l.LatencyMeanMs))
		}
	}

	m.prevSnap = snap
	m.havePrev = true
}

func (m *Model) addFeed(text string) {
	m.feed = append(m.feed, FeedEntry{Time: time.Now(), Text: text})
	if len(m.feed) > MaxFeedEntries {
		m.feed = m.feed[len(m.feed)-MaxFeedEntries:]
	}
}
