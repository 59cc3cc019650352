// Package tui provides the live progress view for arbor runs.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ShayCichocki/arbor/internal/scheduler"
)

// EventMsg wraps a scheduler event for the TUI.
type EventMsg scheduler.Event

// DoneMsg signals that the run finished.
type DoneMsg struct {
	// Result is the root's final text.
	Result string
	// Err is the hard failure, if any.
	Err error
}

const maxLogLines = 12

var (
	titleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("69")).Bold(true)
	nodeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("243")).Italic(true)
)

// Model is the bubbletea model for a running solve.
type Model struct {
	spinner      spinner.Model
	problem      string
	current      string
	currentVerb  string
	log          []string
	nodesCreated int
	done         bool
	err          error
}

// New creates a progress model for the given problem.
func New(problem string) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = nodeStyle
	return Model{spinner: sp, problem: problem}
}

// Init starts the spinner.
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles scheduler events, completion, and key presses.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case EventMsg:
		m.nodesCreated = msg.NodesCreated
		switch msg.Type {
		case scheduler.EventDecomposing:
			m.current, m.currentVerb = msg.NodeID, "decomposing"
		case scheduler.EventSolving:
			m.current, m.currentVerb = msg.NodeID, "solving"
		case scheduler.EventIntegrating:
			m.current, m.currentVerb = msg.NodeID, "integrating"
		case scheduler.EventNodeCreated:
			m.appendLog(mutedStyle.Render(fmt.Sprintf("+ %s  %s", msg.NodeID, truncate(msg.Message, 50))))
		case scheduler.EventNodeSolved:
			m.appendLog(okStyle.Render("✓ ") + msg.NodeID)
		case scheduler.EventNodeFailed:
			m.appendLog(errStyle.Render("✗ ") + fmt.Sprintf("%s  %v", msg.NodeID, msg.Err))
		case scheduler.EventDependencySkipped:
			m.appendLog(mutedStyle.Render("~ " + msg.Message))
		}
		return m, nil

	case DoneMsg:
		m.done = true
		m.err = msg.Err
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the progress panel.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("arbor") + "  " + truncate(m.problem, 60) + "\n\n")

	if m.done {
		if m.err != nil {
			b.WriteString(errStyle.Render("run failed: "+m.err.Error()) + "\n")
		} else {
			b.WriteString(okStyle.Render("run complete") + "\n")
		}
	} else if m.current != "" {
		fmt.Fprintf(&b, "%s %s %s\n", m.spinner.View(), m.currentVerb, nodeStyle.Render(m.current))
	} else {
		fmt.Fprintf(&b, "%s starting...\n", m.spinner.View())
	}

	fmt.Fprintf(&b, "%s\n\n", mutedStyle.Render(fmt.Sprintf("nodes created: %d", m.nodesCreated)))

	for _, line := range m.log {
		b.WriteString("  " + line + "\n")
	}

	b.WriteString("\n" + footerStyle.Render("q to quit"))
	return b.String()
}

func (m *Model) appendLog(line string) {
	m.log = append(m.log, line)
	if len(m.log) > maxLogLines {
		m.log = m.log[len(m.log)-maxLogLines:]
	}
}

func truncate(s string, n int) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[:idx]
	}
	if len(s) > n {
		return s[:n-3] + "..."
	}
	return s
}
