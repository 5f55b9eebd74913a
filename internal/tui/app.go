package tui

import (
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ssrsss/API-Check/internal/models"
	"github.com/ssrsss/API-Check/internal/runner"
)

// RunFunc executes a scheduler run, reporting progress and per-round updates
// through the callbacks, and returns the final aggregate per task id.
type RunFunc func(onProgress func(runner.Progress), onUpdate func(runner.Task, models.AggregatedResult)) map[string]models.AggregatedResult

// App represents the TUI application for watching a test run live
type App struct {
	title string
	run   RunFunc

	results map[string]models.AggregatedResult
}

// NewApp creates a new TUI application
func NewApp(title string, run RunFunc) *App {
	return &App{title: title, run: run}
}

// Run starts the run and the TUI, returning the final results once the user
// leaves the results screen.
func (a *App) Run() (map[string]models.AggregatedResult, error) {
	ch := make(chan tea.Msg, 64)

	go func() {
		results := a.run(
			func(p runner.Progress) { ch <- progressMsg{progress: p} },
			func(t runner.Task, agg models.AggregatedResult) { ch <- updateMsg{id: t.ID(), agg: agg} },
		)
		ch <- completeMsg{results: results}
	}()

	model := newModel(a.title, ch)
	p := tea.NewProgram(model, tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return nil, err
	}
	if m, ok := final.(Model); ok {
		a.results = m.results
	}
	return a.results, nil
}

// State represents the current state of the application
type State int

const (
	StateRunning State = iota
	StateResults
)

// Model represents the TUI model
type Model struct {
	state State
	title string
	ch    <-chan tea.Msg

	progress runner.Progress
	results  map[string]models.AggregatedResult

	width  int
	height int
}

// newModel creates a new model
func newModel(title string, ch <-chan tea.Msg) Model {
	return Model{
		state:   StateRunning,
		title:   title,
		ch:      ch,
		results: make(map[string]models.AggregatedResult),
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return waitForMsg(m.ch)
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "esc", "enter":
			if m.state == StateResults {
				return m, tea.Quit
			}
		}
		return m, nil

	case progressMsg:
		m.progress = msg.progress
		return m, waitForMsg(m.ch)

	case updateMsg:
		m.results[msg.id] = msg.agg
		return m, waitForMsg(m.ch)

	case completeMsg:
		m.results = msg.results
		m.state = StateResults
		return m, nil
	}

	return m, nil
}

// View renders the current view
func (m Model) View() string {
	switch m.state {
	case StateRunning:
		return m.renderRunning()
	case StateResults:
		return m.renderResults()
	}
	return ""
}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F87"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFB454"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#5A56E0"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#874BFD")).
			Padding(1, 2)
)

// renderRunning renders the live progress screen
func (m Model) renderRunning() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n\n")

	total := m.progress.Total
	if total == 0 {
		b.WriteString("Starting workers...\n")
	} else {
		percentage := float64(m.progress.Completed) / float64(total) * 100
		b.WriteString(fmt.Sprintf("Progress: %d/%d (%.1f%%)\n", m.progress.Completed, total, percentage))

		barWidth := 30
		filled := int(float64(barWidth) * percentage / 100)
		bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
		b.WriteString(fmt.Sprintf("[%s]\n", bar))
	}

	b.WriteString("\n")
	for _, id := range sortedKeys(m.results) {
		b.WriteString(m.renderResultLine(id, m.results[id]))
	}

	b.WriteString("\n")
	b.WriteString(infoStyle.Render("Press q to quit (requests already in flight still complete)"))

	return boxStyle.Render(b.String())
}

// renderResults renders the final results screen
func (m Model) renderResults() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(m.title + " - Results"))
	b.WriteString("\n\n")

	for _, id := range sortedKeys(m.results) {
		b.WriteString(m.renderResultLine(id, m.results[id]))
	}

	b.WriteString("\n")
	b.WriteString(infoStyle.Render("Press Enter or q to exit"))

	return boxStyle.Render(b.String())
}

func (m Model) renderResultLine(id string, agg models.AggregatedResult) string {
	var status string
	switch agg.Status {
	case models.StatusSuccess, models.StatusSupported:
		status = successStyle.Render(string(agg.Status))
	case models.StatusUnsupported:
		status = warnStyle.Render(string(agg.Status))
	default:
		status = errorStyle.Render(string(agg.Status))
	}

	line := fmt.Sprintf("%-40s %s  %dms  %d/%d", id, status, agg.AvgLatencyMs, agg.SuccessCount, agg.Rounds)
	if agg.Message != "" && !agg.Status.OK() {
		line += "  " + errorStyle.Render(truncate(agg.Message, 60))
	}
	return line + "\n"
}

func sortedKeys(results map[string]models.AggregatedResult) []string {
	keys := make([]string, 0, len(results))
	for k := range results {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
