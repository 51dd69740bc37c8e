package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	barFullStyle  = lipgloss.NewStyle().Foreground(colorCyan)
	barEmptyStyle = lipgloss.NewStyle().Foreground(colorDim)
	runningStyle  = lipgloss.NewStyle().Foreground(colorCyan)
)

const barWidth = 30

type jobState int

const (
	jobPending jobState = iota
	jobRunning
	jobDone
	jobFailed
)

type batchRow struct {
	job      batchJob
	state    jobState
	detail   string
	duration time.Duration
}

// batchDoneMsg tells the view that every job has finished.
type batchDoneMsg struct{}

type tickMsg time.Time

// batchModel is the bubbletea model for batch progress.
type batchModel struct {
	rows     []batchRow
	finished int
	failed   int
	frame    int
	height   int
	done     bool
	cancel   context.CancelFunc
}

func newBatchModel(jobs []batchJob, cancel context.CancelFunc) batchModel {
	rows := make([]batchRow, len(jobs))
	for i, j := range jobs {
		rows[i] = batchRow{job: j}
	}
	return batchModel{rows: rows, height: 12, cancel: cancel}
}

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m batchModel) Init() tea.Cmd {
	return tick()
}

func (m batchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.height = max(msg.Height-6, 3)
	case tickMsg:
		if m.done {
			return m, nil
		}
		m.frame++
		return m, tick()
	case jobEvent:
		m = m.apply(msg)
	case batchDoneMsg:
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

func (m batchModel) apply(ev jobEvent) batchModel {
	if ev.Index < 0 || ev.Index >= len(m.rows) {
		return m
	}
	row := &m.rows[ev.Index]
	switch {
	case ev.Started:
		row.state = jobRunning
	case ev.Outcome != nil && ev.Outcome.Err != nil:
		row.state = jobFailed
		row.detail = ev.Outcome.Err.Error()
		row.duration = ev.Outcome.Duration
		m.finished++
		m.failed++
	case ev.Outcome != nil:
		row.state = jobDone
		row.detail = resultStats(ev.Outcome.Result)
		row.duration = ev.Outcome.Duration
		m.finished++
	}
	return m
}

func (m batchModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Captioning"))
	b.WriteString("  ")
	b.WriteString(progressBar(m.finished, len(m.rows)))
	b.WriteString(StyleDim.Render(fmt.Sprintf("  %d/%d", m.finished, len(m.rows))))
	if m.failed > 0 {
		b.WriteString(StyleError.Render(fmt.Sprintf("  %d failed", m.failed)))
	}
	b.WriteString("\n\n")

	for _, row := range m.visibleRows() {
		b.WriteString(m.renderRow(row))
		b.WriteString("\n")
	}

	if !m.done {
		b.WriteString("\n")
		b.WriteString(StyleDim.Render("q to cancel"))
	}
	return b.String()
}

// visibleRows keeps running and recently finished jobs on screen when the
// batch is taller than the terminal.
func (m batchModel) visibleRows() []batchRow {
	if len(m.rows) <= m.height {
		return m.rows
	}
	first := 0
	for i, row := range m.rows {
		if row.state == jobRunning || row.state == jobPending {
			first = i
			break
		}
		first = i
	}
	start := max(0, min(first-m.height/2, len(m.rows)-m.height))
	return m.rows[start : start+m.height]
}

func (m batchModel) renderRow(row batchRow) string {
	var icon string
	switch row.state {
	case jobPending:
		icon = StyleDim.Render(iconPending)
	case jobRunning:
		icon = runningStyle.Render(spinnerFrames[m.frame%len(spinnerFrames)])
	case jobDone:
		icon = styleIconSuccess.Render(iconSuccess)
	case jobFailed:
		icon = styleIconError.Render(iconError)
	}
	line := fmt.Sprintf("%s %s %s", icon, StyleDim.Render(row.job.ID), StyleValue.Render(row.job.Input))
	switch row.state {
	case jobDone:
		line += "  " + row.detail
	case jobFailed:
		line += "  " + StyleError.Render(row.detail)
	}
	return line
}

func progressBar(done, total int) string {
	if total <= 0 {
		return ""
	}
	full := done * barWidth / total
	return barFullStyle.Render(strings.Repeat("█", full)) + barEmptyStyle.Render(strings.Repeat("░", barWidth-full))
}
