package ui

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/melocuore/internal/logtail"
)

// logState holds state for the client log view.
type logState struct {
	viewport viewport.Model
	records  []logtail.Record
	level    slog.Level
	follow   bool
	lastRead time.Time
	err      error
}

type logsMsg struct {
	records []logtail.Record
	err     error
}

var logLevels = []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError}

func newLogState() logState {
	vp := viewport.New(80, 20)
	return logState{viewport: vp, level: slog.LevelInfo, follow: true}
}

func (m *Model) resizeLogViewport() {
	m.logs.viewport.Width = max(m.width-2, 1)
	m.logs.viewport.Height = max(m.contentHeight()-2, 1)
	m.refreshLogContent()
}

func (m Model) readLogsCmd() tea.Cmd {
	path := m.logPath
	return func() tea.Msg {
		if path == "" {
			return logsMsg{}
		}
		records, err := logtail.ReadRecords(path, LogTailLines)
		return logsMsg{records: records, err: err}
	}
}

func (m *Model) handleLogs(msg logsMsg) {
	m.logs.lastRead = time.Now()
	m.logs.err = msg.err
	if msg.err == nil {
		m.logs.records = msg.records
	}
	m.refreshLogContent()
}

func (m *Model) refreshLogContent() {
	records := logtail.Filter(m.logs.records, m.logs.level, "")
	lines := make([]string, 0, len(records))
	for _, r := range records {
		lines = append(lines, m.formatRecord(r))
	}
	if m.logs.err != nil {
		lines = append(lines, m.theme.Styles().DangerText.Render("Cannot read log: "+m.logs.err.Error()))
	}
	if len(lines) == 0 {
		lines = append(lines, m.theme.Styles().MutedText.Render("Nothing logged at this level yet"))
	}
	m.logs.viewport.SetContent(strings.Join(lines, "\n"))
	if m.logs.follow {
		m.logs.viewport.GotoBottom()
	}
}

func (m Model) formatRecord(r logtail.Record) string {
	styles := m.theme.Styles()
	if !r.Structured {
		return styles.Text.Render(r.Raw)
	}
	var b strings.Builder
	if !r.Time.IsZero() {
		b.WriteString(styles.FaintText.Render(r.Time.Local().Format("15:04:05")))
		b.WriteString(" ")
	}
	b.WriteString(m.levelStyle(r.Level).Render(fmt.Sprintf("%-5s", r.Level)))
	b.WriteString(" ")
	if r.Component != "" {
		b.WriteString(styles.AccentText.Render("[" + r.Component + "]"))
		b.WriteString(" ")
	}
	b.WriteString(styles.Text.Render(r.Message))
	for _, a := range r.Attrs {
		b.WriteString(" ")
		b.WriteString(styles.MutedText.Render(a.Key + "=" + a.Value))
	}
	return b.String()
}

func (m Model) levelStyle(level string) lipgloss.Style {
	styles := m.theme.Styles()
	switch level {
	case "ERROR":
		return styles.DangerText
	case "WARN":
		return styles.WarningText.Bold(true)
	case "DEBUG":
		return styles.InfoText
	default:
		return styles.SuccessText
	}
}

func (m Model) logsTitle() string {
	follow := "paused"
	if m.logs.follow {
		follow = "following"
	}
	return fmt.Sprintf("Client log · %s and above · %s", m.logs.level.String(), follow)
}

// handleLogsKey processes keyboard input for the log view.
func (m Model) handleLogsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	vp := &m.logs.viewport
	switch {
	case key.Matches(msg, m.keys.Top):
		m.logs.follow = false
		vp.GotoTop()
	case key.Matches(msg, m.keys.Bottom):
		vp.GotoBottom()
	case key.Matches(msg, m.keys.Down):
		vp.ScrollDown(1)
	case key.Matches(msg, m.keys.Up):
		m.logs.follow = false
		vp.ScrollUp(1)
	case key.Matches(msg, m.keys.PageDown):
		vp.HalfPageDown()
	case key.Matches(msg, m.keys.PageUp):
		m.logs.follow = false
		vp.HalfPageUp()
	case key.Matches(msg, m.keys.Follow):
		m.logs.follow = !m.logs.follow
		if m.logs.follow {
			vp.GotoBottom()
		}
	case key.Matches(msg, m.keys.Level):
		m.logs.level = nextLevel(m.logs.level)
		m.refreshLogContent()
	case key.Matches(msg, m.keys.Reload):
		return m, m.readLogsCmd()
	}
	return m, nil
}

func nextLevel(current slog.Level) slog.Level {
	for i, l := range logLevels {
		if l == current {
			return logLevels[(i+1)%len(logLevels)]
		}
	}
	return slog.LevelInfo
}
