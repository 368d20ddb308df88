// Package tui provides the moderator console: a live view of the running
// session, polled from the server.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/brandtiboy/prototype-test/internal/models"
	"github.com/brandtiboy/prototype-test/internal/session"
)

var (
	// Colors
	primaryColor = lipgloss.Color("#6366F1")
	successColor = lipgloss.Color("#10B981")
	warningColor = lipgloss.Color("#F59E0B")
	errorColor   = lipgloss.Color("#EF4444")
	mutedColor   = lipgloss.Color("#6B7280")
	fgColor      = lipgloss.Color("#F9FAFB")

	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			Padding(0, 1)

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#374151")).
			Foreground(fgColor).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor).
			Padding(0, 1)

	helpStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Italic(true)

	onlineStyle  = lipgloss.NewStyle().Foreground(successColor).Bold(true)
	offlineStyle = lipgloss.NewStyle().Foreground(errorColor)
)

// App is the moderator console model.
type App struct {
	client   *Client
	snap     *session.Snapshot
	online   bool
	message  string
	width    int
	height   int
	viewport viewport.Model
}

// New creates a moderator console for the given server address.
func New(apiAddr string) *App {
	return &App{
		client:   NewClient(apiAddr),
		viewport: viewport.New(80, 20),
	}
}

// Run starts the console.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// Init implements tea.Model
func (a *App) Init() tea.Cmd {
	return a.fetchSnapshot()
}

// Update implements tea.Model
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return a, tea.Quit
		case "r":
			return a, a.fetchSnapshot()
		case "n":
			return a, a.resetSession()
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.viewport.Width = msg.Width
		a.viewport.Height = max(msg.Height-5, 5)

	case snapshotMsg:
		a.snap = msg.snap
		a.online = true
		// Schedule the next poll only after the current fetch is complete.
		return a, a.tickCmd()

	case resetMsg:
		a.snap = msg.snap
		a.message = fmt.Sprintf("✓ New session %s ready", msg.snap.SessionID)
		return a, a.tickCmd()

	case tickMsg:
		return a, a.fetchSnapshot()

	case errMsg:
		a.online = false
		a.message = "Error: " + msg.err.Error()
		return a, a.tickCmd()
	}

	// Scroll keys fall through to the viewport.
	var cmd tea.Cmd
	a.viewport, cmd = a.viewport.Update(msg)
	return a, cmd
}

// View implements tea.Model
func (a *App) View() string {
	var b strings.Builder

	serverStatus := onlineStyle.Render("● SERVER")
	if !a.online {
		serverStatus = offlineStyle.Render("○ SERVER")
	}

	header := titleStyle.Render("prototest moderator console")
	header += "  " + serverStatus
	if a.snap != nil {
		header += "  " + lipgloss.NewStyle().Foreground(mutedColor).Render(a.snap.SessionID)
	}
	b.WriteString(header + "\n")
	b.WriteString(strings.Repeat("─", max(a.width, 20)) + "\n")

	if a.snap == nil {
		b.WriteString("\n  Waiting for server...\n")
	} else {
		a.viewport.SetContent(a.renderSession())
		b.WriteString(a.viewport.View())
	}

	if a.message != "" {
		msgStyle := lipgloss.NewStyle().Foreground(successColor)
		if strings.HasPrefix(a.message, "Error") {
			msgStyle = lipgloss.NewStyle().Foreground(errorColor)
		}
		b.WriteString("\n" + msgStyle.Render(a.message) + "\n")
	}

	b.WriteString("\n" + statusBarStyle.Width(max(a.width, 20)).Render(" r:refresh | n:new session | q:quit"))
	return b.String()
}

func (a *App) renderSession() string {
	var b strings.Builder
	s := a.snap

	b.WriteString(fmt.Sprintf("\n  %s\n", lipgloss.NewStyle().Bold(true).Render(s.Project)))
	if s.TesterName != "" {
		b.WriteString(fmt.Sprintf("  Tester: %s\n", s.TesterName))
	}
	b.WriteString(fmt.Sprintf("  Phase:  %s\n", a.formatPhase(s.Phase)))
	b.WriteString("  " + a.renderProgress() + "\n")

	if s.Task != nil {
		b.WriteString(fmt.Sprintf("\n  Task %d/%d: %s\n", s.TaskIndex+1, s.TotalTasks, s.Task.Title))
		switch s.Phase {
		case session.PhaseTaskActive:
			b.WriteString(fmt.Sprintf("  Elapsed: %s   Clicks: %d\n",
				models.FormatDurationMs(s.ElapsedMs), s.ClickCount))
		case session.PhaseRecallCountdown:
			left := (s.CountdownMs + 999) / 1000
			style := lipgloss.NewStyle().Foreground(successColor)
			if left <= 2 {
				style = lipgloss.NewStyle().Foreground(errorColor).Bold(true)
			}
			b.WriteString(fmt.Sprintf("  Look window: %s\n", style.Render(fmt.Sprintf("%ds", left))))
		}
	}

	if len(s.Results) > 0 {
		b.WriteString("\n  Results so far:\n")
		for _, r := range s.Results {
			icon := lipgloss.NewStyle().Foreground(successColor).Render("✓")
			if !r.Completed {
				icon = lipgloss.NewStyle().Foreground(warningColor).Render("→")
			}
			line := fmt.Sprintf("    %s %-30s %8s", icon, truncate(r.TaskTitle, 30), r.DurationFmt)
			if r.EaseRating > 0 {
				line += fmt.Sprintf("  %d/5", r.EaseRating)
			}
			if r.RecallCorrect != nil {
				if *r.RecallCorrect {
					line += "  recall:correct"
				} else {
					line += "  recall:wrong"
				}
			}
			b.WriteString(line + "\n")
		}
	}

	if s.Phase == session.PhaseSubmitted {
		b.WriteString("\n  " + panelStyle.Render(fmt.Sprintf(
			"Session submitted — %d/%d tasks completed", s.CompletedTasks, s.TotalTasks)) + "\n")
		b.WriteString("  " + helpStyle.Render("Press n to start a session for the next tester") + "\n")
	}

	return b.String()
}

func (a *App) renderProgress() string {
	s := a.snap
	width := 30
	done := 0
	if s.TotalTasks > 0 {
		done = len(s.Results) * width / s.TotalTasks
	}
	bar := lipgloss.NewStyle().Foreground(primaryColor).Render(strings.Repeat("█", done)) +
		lipgloss.NewStyle().Foreground(mutedColor).Render(strings.Repeat("░", width-done))
	return fmt.Sprintf("%s %d/%d", bar, len(s.Results), s.TotalTasks)
}

func (a *App) formatPhase(p session.Phase) string {
	switch p {
	case session.PhaseWelcome:
		return lipgloss.NewStyle().Foreground(mutedColor).Render("○ WAITING FOR TESTER")
	case session.PhaseTaskIntro:
		return lipgloss.NewStyle().Foreground(warningColor).Render("◐ READING INSTRUCTIONS")
	case session.PhaseTaskActive:
		return lipgloss.NewStyle().Foreground(primaryColor).Render("◑ ON TASK")
	case session.PhaseGoalModal, session.PhaseSkipModal:
		return lipgloss.NewStyle().Foreground(warningColor).Render("◐ RATING")
	case session.PhaseRecallReady, session.PhaseRecallCountdown,
		session.PhaseRecallQuestion, session.PhaseRecallFeedback:
		return lipgloss.NewStyle().Foreground(primaryColor).Render("◑ RECALL")
	case session.PhaseFinalFeedback:
		return lipgloss.NewStyle().Foreground(warningColor).Render("◐ FINAL FEEDBACK")
	case session.PhaseSubmitted:
		return lipgloss.NewStyle().Foreground(successColor).Render("● SUBMITTED")
	default:
		return string(p)
	}
}

func (a *App) fetchSnapshot() tea.Cmd {
	return func() tea.Msg {
		snap, err := a.client.Snapshot()
		if err != nil {
			return errMsg{err}
		}
		return snapshotMsg{snap}
	}
}

func (a *App) resetSession() tea.Cmd {
	return func() tea.Msg {
		snap, err := a.client.Reset()
		if err != nil {
			return errMsg{err}
		}
		return resetMsg{snap}
	}
}

func (a *App) tickCmd() tea.Cmd {
	return tea.Tick(1*time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

type snapshotMsg struct {
	snap *session.Snapshot
}

type resetMsg struct {
	snap *session.Snapshot
}

type errMsg struct {
	err error
}

type tickMsg time.Time
