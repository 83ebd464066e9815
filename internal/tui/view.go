package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// View renders the UI
func (m Model) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}

	if !m.ready {
		return fmt.Sprintf("%s Initializing...\n", m.spinner.View())
	}

	var b strings.Builder

	title := titleStyle.Render("\U0001F310 meshsim")
	b.WriteString(title)
	b.WriteString("\n")

	b.WriteString(m.renderStatusBar())
	b.WriteString("\n")

	b.WriteString(m.renderStats())
	b.WriteString("\n")

	feedBox := boxStyle.Width(m.width - 4).Render(m.viewport.View())
	b.WriteString(feedBox)
	b.WriteString("\n")

	if m.errMsg != "" {
		b.WriteString(errorStyle.Render("Error: " + m.errMsg))
		b.WriteString("\n")
	}

	help := helpStyle.Render("q: quit • c: clear feed • ↑/↓: scroll")
	b.WriteString(help)

	return b.String()
}

func (m Model) renderStatusBar() string {
	status := StatusIndicator(m.runningCnt > 0)

	simTime := statLabelStyle.Render(" | Sim time: ") + statValueStyle.Render(fmt.Sprintf("%.1fs", float64(m.simTimeMs)/1000))
	nodes := statLabelStyle.Render(" | Nodes: ") + statValueStyle.Render(fmt.Sprintf("%d/%d running", m.runningCnt, m.nodeCount))

	uptime := time.Since(m.startTime).Round(time.Second)
	uptimeInfo := statLabelStyle.Render(" | Wall time: ") + statValueStyle.Render(uptime.String())

	return status + simTime + nodes + uptimeInfo
}

func (m Model) renderStats() string {
	var sent, delivered, dropped, throttled, blocked uint64
	for _, l := range m.prevSnap.Links {
		sent += l.MessagesSent
		delivered += l.MessagesDelivered
		dropped += l.MessagesDroppedLoss
		throttled += l.MessagesThrottledBandwidth
		blocked += l.MessagesBlockedPartition
	}

	sentStr := statLabelStyle.Render("Sent: ") + statValueStyle.Render(fmt.Sprintf("%d", sent))
	deliveredStr := statLabelStyle.Render(" | Delivered: ") + statValueStyle.Render(fmt.Sprintf("%d", delivered))
	droppedStr := statLabelStyle.Render(" | Dropped: ")
	if dropped > 0 {
		droppedStr += errorStyle.Render(fmt.Sprintf("%d", dropped))
	} else {
		droppedStr += statValueStyle.Render("0")
	}
	throttledStr := statLabelStyle.Render(" | Throttled: ") + statValueStyle.Render(fmt.Sprintf("%d", throttled))
	blockedStr := statLabelStyle.Render(" | Blocked (partition): ") + statValueStyle.Render(fmt.Sprintf("%d", blocked))

	return sentStr + deliveredStr + droppedStr + throttledStr + blockedStr
}

func (m Model) renderFeed() string {
	if len(m.feed) == 0 {
		return statLabelStyle.Render("No link activity yet. Waiting for the first tick...")
	}

	var b strings.Builder
	for _, entry := range m.feed {
		b.WriteString(m.renderFeedEntry(entry))
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) renderFeedEntry(entry FeedEntry) string {
	timeStr := messageTimeStyle.Render(entry.Time.Format("15:04:05"))
	content := messageContentStyle.Render(entry.Text)
	return lipgloss.JoinHorizontal(lipgloss.Top, timeStr, " ", content)
}
