package ui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/five82/melocuore/internal/audiofile"
	"github.com/five82/melocuore/internal/prefs"
	"github.com/five82/melocuore/internal/recognize"
	"github.com/five82/melocuore/internal/state"
)

// uploadState holds the file chooser and the pre-upload summary.
type uploadState struct {
	input   textinput.Model
	editing bool
	preview *audiofile.Info
	// previewPath is the path preview describes.
	previewPath string
	previewErr  string
}

type previewMsg struct {
	path string
	info audiofile.Info
	err  error
}

func newUploadState() uploadState {
	in := textinput.New()
	in.Prompt = "› "
	in.Placeholder = "path to an .mp3 or .wav file"
	in.CharLimit = 4096
	in.Width = 60
	return uploadState{input: in}
}

func (m Model) handleUploadKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Open):
		m.upload.editing = true
		if m.upload.input.Value() == "" {
			m.upload.input.SetValue(m.startDir())
			m.upload.input.CursorEnd()
		}
		cmd := m.upload.input.Focus()
		return m, cmd
	case key.Matches(msg, m.keys.Cancel):
		if m.runCancel != nil {
			m.cancelRun()
			return m, fetchSnapshotCmd(m.store)
		}
	case key.Matches(msg, m.keys.Reload):
		if m.upload.previewErr != "" {
			return m, nil
		}
		if path := strings.TrimSpace(m.upload.previewPath); path != "" && !m.snapshot.Run.Phase.Busy() {
			cmd := m.startRun(path)
			return m, cmd
		}
	}
	return m, nil
}

func (m Model) handleUploadInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.upload.editing = false
		m.upload.input.Blur()
		return m, nil
	case "enter":
		path := expandHome(strings.TrimSpace(m.upload.input.Value()))
		if path == "" {
			return m, nil
		}
		m.upload.editing = false
		m.upload.input.Blur()
		m.upload.preview = nil
		m.upload.previewPath = path
		m.upload.previewErr = ""
		if !audiofile.Allowed(path) {
			m.upload.previewErr = "only MP3/WAV allowed"
			return m, nil
		}
		m.rememberDir(path)
		cmd := m.startRun(path)
		return m, tea.Batch(inspectCmd(path), cmd)
	}
	var cmd tea.Cmd
	m.upload.input, cmd = m.upload.input.Update(msg)
	return m, cmd
}

func inspectCmd(path string) tea.Cmd {
	return func() tea.Msg {
		info, err := audiofile.Inspect(path)
		return previewMsg{path: path, info: info, err: err}
	}
}

func (m *Model) handlePreview(msg previewMsg) {
	if msg.path != m.upload.previewPath {
		return
	}
	if msg.err != nil {
		m.upload.previewErr = msg.err.Error()
		return
	}
	info := msg.info
	m.upload.preview = &info
}

// startRun supersedes any recognition in flight and starts a new one bound
// to its own cancel func.
func (m *Model) startRun(path string) tea.Cmd {
	if m.recognize == nil {
		return nil
	}
	m.cancelRun()

	store := m.store
	id := store.BeginRun(filepath.Base(path))
	ctx, cancel := context.WithCancel(m.ctx)
	m.runCancel = cancel
	m.runID = id
	m.flash = ""

	run := m.recognize
	observe := func(ev recognize.Event) {
		switch ev.Kind {
		case recognize.EventUploaded:
			store.PrependUpload(id, ev.Asset)
		case recognize.EventPolling:
			store.Polling(id, ev.Attempt, ev.MaxQueries)
		}
	}
	return tea.Batch(
		fetchSnapshotCmd(store),
		func() tea.Msg {
			out, err := run(ctx, path, observe)
			return runDoneMsg{id: id, outcome: out, err: err}
		},
	)
}

// cancelRun stops the recognition in flight, if any.
func (m *Model) cancelRun() {
	if m.runCancel == nil {
		return
	}
	m.runCancel()
	m.runCancel = nil
	m.store.CancelRun()
}

func (m Model) handleRunDone(msg runDoneMsg) (tea.Model, tea.Cmd) {
	if msg.id != m.runID || m.runCancel == nil {
		// Superseded or cancelled.
		return m, nil
	}
	m.runCancel()
	m.runCancel = nil

	if msg.err != nil {
		if errors.Is(msg.err, context.Canceled) {
			return m, nil
		}
		m.store.Fail(msg.id, errorText(msg.err, "upload failed"))
		if expired(msg.err) {
			return m.signedOut(errorText(msg.err, ""))
		}
		return m, fetchSnapshotCmd(m.store)
	}

	m.store.Resolve(msg.id, msg.outcome)
	cmds := []tea.Cmd{fetchSnapshotCmd(m.store)}
	if msg.outcome.HistorySaved {
		cmds = append(cmds, m.loadHistoryCmd())
	}
	return m, tea.Batch(cmds...)
}

func (m Model) startDir() string {
	if p, err := prefs.Load(m.prefsPath); err == nil && p.LastDir != "" {
		return strings.TrimSuffix(p.LastDir, string(os.PathSeparator)) + string(os.PathSeparator)
	}
	if wd, err := os.Getwd(); err == nil {
		return wd + string(os.PathSeparator)
	}
	return ""
}

func (m Model) rememberDir(path string) {
	dir := filepath.Dir(path)
	if err := prefs.Update(m.prefsPath, func(p *prefs.Prefs) { p.LastDir = dir }); err != nil {
		m.logger.Warn("save directory preference failed", "error", err)
	}
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

func (m Model) renderUpload() string {
	styles := m.theme.Styles()
	var b strings.Builder

	b.WriteString(styles.MutedText.Render("File"))
	b.WriteString("\n")
	if m.upload.editing {
		b.WriteString(m.upload.input.View())
	} else if v := m.upload.input.Value(); v != "" {
		b.WriteString(styles.Text.Render(truncateMiddle(v, m.width-6)))
	} else {
		b.WriteString(styles.FaintText.Render("press o to choose an .mp3 or .wav file"))
	}
	b.WriteString("\n\n")

	if m.upload.previewErr != "" {
		b.WriteString(styles.DangerText.Render(m.upload.previewErr))
		b.WriteString("\n\n")
	} else if info := m.upload.preview; info != nil {
		b.WriteString(m.renderFileSummary(*info))
		b.WriteString("\n")
	}

	b.WriteString(m.renderRun(m.snapshot.Run))
	return b.String()
}

func (m Model) renderFileSummary(info audiofile.Info) string {
	styles := m.theme.Styles()
	rows := [][2]string{
		{"Name", info.Name},
		{"Type", info.ContentType},
		{"Size", humanize.IBytes(uint64(info.Size))},
	}
	if info.Title != "" || info.Artist != "" {
		rows = append(rows, [2]string{"Tags", info.Label()})
	}
	if info.Album != "" {
		rows = append(rows, [2]string{"Album", info.Album})
	}
	var b strings.Builder
	for _, r := range rows {
		b.WriteString(styles.FaintText.Render(padRight(r[0], 7)))
		b.WriteString(styles.Text.Render(r[1]))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderRun(run state.Run) string {
	styles := m.theme.Styles()
	if run.ID == 0 && run.Message == "" {
		return ""
	}
	var b strings.Builder
	b.WriteString(styles.StateStyle(run.Phase.String()).Render(run.Phase.String()))
	if run.File != "" {
		b.WriteString(" ")
		b.WriteString(styles.Text.Render(run.File))
	}
	b.WriteString("\n\n")

	if run.Phase == state.PhasePolling && run.MaxQueries > 0 {
		b.WriteString(progressBar(run.Attempt, run.MaxQueries, 30, m.theme))
		b.WriteString(" ")
	}

	if !run.HasOutcome {
		if run.Message != "" {
			b.WriteString(styles.MutedText.Render(run.Message))
		}
		return b.String()
	}

	out := run.Outcome
	lines := recognize.Describe(out)
	headline := styles.Text.Bold(true)
	switch out.State {
	case recognize.StateFound:
		headline = styles.SuccessText
	case recognize.StateError:
		headline = styles.DangerText
	case recognize.StateNotFound, recognize.StateExhausted:
		headline = styles.WarningText
	}
	b.WriteString(styles.StateStyle(out.State.String()).Render(out.State.String()))
	b.WriteString(" ")
	b.WriteString(headline.Render(lines[0]))
	b.WriteString("\n")
	for _, line := range lines[1:] {
		b.WriteString(styles.MutedText.Render(line))
		b.WriteString("\n")
	}
	if out.State == recognize.StateFound {
		b.WriteString("\n")
		if out.HistorySaved {
			b.WriteString(styles.FaintText.Render("Saved to history"))
		} else {
			b.WriteString(styles.FaintText.Render("Not saved to history"))
		}
	}
	return b.String()
}

// progressBar renders "[####------] 2/6".
func progressBar(done, total, width int, theme Theme) string {
	if total <= 0 {
		return ""
	}
	if done > total {
		done = total
	}
	filled := width * done / total
	bar := lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Accent)).Render(strings.Repeat("█", filled)) +
		lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Faint)).Render(strings.Repeat("░", width-filled))
	return bar + " " + fmt.Sprintf("%d/%d", done, total)
}
