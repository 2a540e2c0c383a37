package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/five82/melocuore/internal/api"
)

func (m Model) filesTitle() string {
	return fmt.Sprintf("My files (%d)", len(m.snapshot.Uploads))
}

func (m Model) historyTitle() string {
	return fmt.Sprintf("History (%d)", len(m.snapshot.History))
}

// moveCursor applies the shared list navigation keys.
func (m Model) moveCursor(msg tea.KeyMsg, cursor, n int) (int, bool) {
	page := m.contentHeight() - 3
	if page < 1 {
		page = 1
	}
	switch {
	case key.Matches(msg, m.keys.Up):
		cursor--
	case key.Matches(msg, m.keys.Down):
		cursor++
	case key.Matches(msg, m.keys.Top):
		cursor = 0
	case key.Matches(msg, m.keys.Bottom):
		cursor = n - 1
	case key.Matches(msg, m.keys.PageUp):
		cursor -= page
	case key.Matches(msg, m.keys.PageDown):
		cursor += page
	default:
		return cursor, false
	}
	return clampCursor(cursor, n), true
}

func (m Model) handleFilesKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	uploads := m.snapshot.Uploads
	if cursor, ok := m.moveCursor(msg, m.files.cursor, len(uploads)); ok {
		m.files.cursor = cursor
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.Reload):
		return m, m.loadFilesCmd()
	case key.Matches(msg, m.keys.Delete):
		if len(uploads) == 0 {
			return m, nil
		}
		asset := uploads[m.files.cursor]
		m.modal = confirmModal{
			prompt:    fmt.Sprintf("Delete file %q (#%d)?", fileName(asset), asset.ID),
			onConfirm: m.deleteFileCmd(asset),
		}
	}
	return m, nil
}

func (m Model) deleteFileCmd(asset api.UploadedAsset) tea.Cmd {
	library, ctx := m.library, m.ctx
	if library == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, RequestTimeout)
		defer cancel()
		err := library.DeleteFile(ctx, asset.ID)
		return fileDeletedMsg{id: asset.ID, name: fileName(asset), err: err}
	}
}

func (m Model) handleFileDeleted(msg fileDeletedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		if expired(msg.err) {
			return m.signedOut(errorText(msg.err, ""))
		}
		m.setFlash(errorText(msg.err, "Could not delete "+msg.name), true)
		return m, nil
	}
	m.store.RemoveUpload(msg.id)
	m.setFlash("Deleted "+msg.name, false)
	return m, fetchSnapshotCmd(m.store)
}

func (m Model) handleHistoryKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if cursor, ok := m.moveCursor(msg, m.history.cursor, len(m.snapshot.History)); ok {
		m.history.cursor = cursor
		return m, nil
	}
	if key.Matches(msg, m.keys.Reload) {
		return m, m.loadHistoryCmd()
	}
	return m, nil
}

func fileName(a api.UploadedAsset) string {
	if name := strings.TrimSpace(a.Name); name != "" {
		return name
	}
	if a.File != "" {
		parts := strings.Split(strings.TrimRight(a.File, "/"), "/")
		return parts[len(parts)-1]
	}
	return fmt.Sprintf("file #%d", a.ID)
}

func (m Model) renderFiles(height int) string {
	uploads := m.snapshot.Uploads
	if len(uploads) == 0 {
		return m.theme.Styles().MutedText.Render("No uploads yet. Press u to upload a file.")
	}
	columns := []column{
		{title: "ID", width: 6},
		{title: "Name", flex: true},
		{title: "Type", width: 12},
		{title: "Size", width: 10},
		{title: "Uploaded", width: 16},
	}
	rows := make([][]string, len(uploads))
	for i, a := range uploads {
		uploaded := ""
		if t := a.ParsedUploadedAt(); !t.IsZero() {
			uploaded = humanize.Time(t)
		}
		rows[i] = []string{
			fmt.Sprintf("%d", a.ID),
			fileName(a),
			a.ContentType,
			humanize.IBytes(uint64(max(a.Size, 0))),
			uploaded,
		}
	}
	return m.renderTable(columns, rows, m.files.cursor, height)
}

func (m Model) renderHistory(height int) string {
	records := m.snapshot.History
	if len(records) == 0 {
		return m.theme.Styles().MutedText.Render("No analyses yet. Recognized tracks are saved here.")
	}
	columns := []column{
		{title: "Title", flex: true},
		{title: "Artist", width: 22},
		{title: "Genre", width: 12},
		{title: "Conf.", width: 6},
		{title: "When", width: 16},
	}
	rows := make([][]string, len(records))
	for i, r := range records {
		when := ""
		if t := r.ParsedCreatedAt(); !t.IsZero() {
			when = humanize.Time(t)
		}
		rows[i] = []string{
			r.Title,
			r.Artist,
			r.Genre,
			confidenceText(r.Confidence),
			when,
		}
	}
	return m.renderTable(columns, rows, m.history.cursor, height)
}

func confidenceText(c float64) string {
	if c <= 0 {
		return ""
	}
	if c <= 1 {
		c *= 100
	}
	return fmt.Sprintf("%.0f%%", c)
}
