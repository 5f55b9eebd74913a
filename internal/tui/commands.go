package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ssrsss/API-Check/internal/models"
	"github.com/ssrsss/API-Check/internal/runner"
)

// Messages for the TUI

// progressMsg is sent after each task completes
type progressMsg struct {
	progress runner.Progress
}

// updateMsg is sent after each completed round with the task's aggregate
type updateMsg struct {
	id  string
	agg models.AggregatedResult
}

// completeMsg is sent when the whole run has drained
type completeMsg struct {
	results map[string]models.AggregatedResult
}

// waitForMsg relays the next event from the run goroutine into the program
func waitForMsg(ch <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-ch
	}
}
