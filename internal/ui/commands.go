package ui

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/melocuore/internal/admin"
	"github.com/five82/melocuore/internal/api"
	"github.com/five82/melocuore/internal/recognize"
	"github.com/five82/melocuore/internal/session"
	"github.com/five82/melocuore/internal/state"
)

// Messages

type tickMsg time.Time

type snapshotMsg state.Snapshot

type guardMsg struct {
	session session.Session
	err     error
}

type authMsg struct {
	session session.Session
	err     error
}

type registeredMsg struct {
	username string
	err      error
}

type filesLoadedMsg struct {
	assets []api.UploadedAsset
	err    error
}

type historyLoadedMsg struct {
	records []api.AnalysisRecord
	err     error
}

type fileDeletedMsg struct {
	id   int64
	name string
	err  error
}

type runDoneMsg struct {
	id      uint64
	outcome recognize.Outcome
	err     error
}

type adminTableMsg struct {
	tab   admin.Tab
	table admin.Table
	// note is flashed on success.
	note string
	// fromForm marks results of a form submission.
	fromForm bool
	err      error
}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchSnapshotCmd(store *state.Store) tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(store.Snapshot())
	}
}

func (m Model) guardCmd() tea.Cmd {
	sessions, ctx := m.sessions, m.ctx
	if sessions == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, RequestTimeout)
		defer cancel()
		sess, err := sessions.Guard(ctx)
		return guardMsg{session: sess, err: err}
	}
}

func (m Model) loadFilesCmd() tea.Cmd {
	library, ctx := m.library, m.ctx
	if library == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, RequestTimeout)
		defer cancel()
		assets, err := library.ListFiles(ctx)
		return filesLoadedMsg{assets: assets, err: err}
	}
}

func (m Model) loadHistoryCmd() tea.Cmd {
	library, ctx := m.library, m.ctx
	if library == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, RequestTimeout)
		defer cancel()
		records, err := library.ListAnalyses(ctx)
		return historyLoadedMsg{records: records, err: err}
	}
}

func (m Model) loadLibraryCmd() tea.Cmd {
	return tea.Batch(m.loadFilesCmd(), m.loadHistoryCmd())
}

// errorText turns an error into the one line shown to the user.
func errorText(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var sessionErr *session.ValidationError
	if errors.As(err, &sessionErr) {
		return sessionErr.Message
	}
	var adminErr *admin.ValidationError
	if errors.As(err, &adminErr) {
		return adminErr.Message
	}
	var fileErr *recognize.ValidationError
	if errors.As(err, &fileErr) {
		return fileErr.Message
	}
	var submitErr *recognize.SubmitError
	if errors.As(err, &submitErr) {
		return submitErr.Message
	}
	switch {
	case errors.Is(err, session.ErrNotAdmin):
		return "Administrator access required"
	case errors.Is(err, session.ErrDenied), errors.Is(err, api.ErrUnauthorized):
		return "Session expired; sign in again"
	case errors.Is(err, session.ErrNoCredential):
		return "Sign in to continue"
	case errors.Is(err, admin.ErrUnsupported):
		return "That action is not available on this tab"
	}
	return api.Message(err, fallback)
}

// expired reports whether err means the credential is no longer accepted.
func expired(err error) bool {
	return errors.Is(err, api.ErrUnauthorized) || errors.Is(err, session.ErrDenied)
}
