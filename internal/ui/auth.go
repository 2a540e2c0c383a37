package ui

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/melocuore/internal/api"
	"github.com/five82/melocuore/internal/prefs"
	"github.com/five82/melocuore/internal/session"
)

func (m Model) loginForm() form {
	values := map[string]string{}
	if m.sessions != nil {
		values["username"] = m.sessions.LastUsername()
	}
	f := newForm("Sign in to Melocuore", []formField{
		{key: "username", label: "Username"},
		{key: "password", label: "Password", secret: true},
	}, values)
	if values["username"] != "" {
		f.setFocus(1)
	}
	return f
}

func registerForm() form {
	return newForm("Create an account", []formField{
		{key: "username", label: "Username"},
		{key: "email", label: "Email", hint: "optional"},
		{key: "password", label: "Password", secret: true},
		{key: "confirm_password", label: "Confirm password", secret: true},
	}, nil)
}

func (m Model) handleAuthKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.String() == "esc":
		return m, nil
	case key.Matches(msg, m.keys.Switch):
		if m.view == ViewLogin {
			m.view = ViewRegister
			m.auth = registerForm()
		} else {
			m.view = ViewLogin
			m.auth = m.loginForm()
		}
		return m, nil
	case key.Matches(msg, m.keys.NextField):
		cmd := m.auth.next()
		return m, cmd
	case key.Matches(msg, m.keys.PrevField):
		cmd := m.auth.prev()
		return m, cmd
	case key.Matches(msg, m.keys.Submit):
		if !m.auth.onLast() {
			cmd := m.auth.next()
			return m, cmd
		}
		return m.submitAuth()
	}
	cmd := m.auth.update(msg)
	return m, cmd
}

func (m Model) submitAuth() (tea.Model, tea.Cmd) {
	if m.sessions == nil {
		return m, nil
	}
	m.auth.err = ""
	sessions, ctx := m.sessions, m.ctx
	values := m.auth.Values()

	if m.view == ViewRegister {
		reg := api.Registration{
			Username:        values["username"],
			Email:           values["email"],
			Password:        values["password"],
			ConfirmPassword: values["confirm_password"],
		}
		return m, func() tea.Msg {
			ctx, cancel := context.WithTimeout(ctx, RequestTimeout)
			defer cancel()
			err := sessions.Register(ctx, reg)
			return registeredMsg{username: strings.TrimSpace(reg.Username), err: err}
		}
	}

	username, password := values["username"], values["password"]
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, RequestTimeout)
		defer cancel()
		sess, err := sessions.Login(ctx, username, password)
		return authMsg{session: sess, err: err}
	}
}

func (m Model) handleGuard(msg guardMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		text := ""
		if !errors.Is(msg.err, session.ErrNoCredential) {
			text = errorText(msg.err, "")
		}
		return m.signedOut(text)
	}
	return m.signedIn(msg.session)
}

func (m Model) handleAuth(msg authMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		var verr *session.ValidationError
		if errors.As(msg.err, &verr) {
			m.auth.err = verr.Message
		} else if errors.Is(msg.err, api.ErrUnauthorized) {
			// The token endpoint answers 401 for bad credentials.
			m.auth.err = api.Message(msg.err, "Invalid username or password")
		} else {
			m.auth.err = errorText(msg.err, "Sign-in failed")
		}
		return m, nil
	}
	username := msg.session.Username()
	if err := prefs.Update(m.prefsPath, func(p *prefs.Prefs) { p.LastUsername = username }); err != nil {
		m.logger.Warn("save username preference failed", "error", err)
	}
	model, cmd := m.signedIn(msg.session)
	mm := model.(Model)
	mm.setFlash("Signed in as "+username, false)
	return mm, cmd
}

func (m Model) handleRegistered(msg registeredMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.auth.err = errorText(msg.err, "Registration failed")
		return m, nil
	}
	m.view = ViewLogin
	m.auth = newForm("Sign in to Melocuore", []formField{
		{key: "username", label: "Username"},
		{key: "password", label: "Password", secret: true},
	}, map[string]string{"username": msg.username})
	m.auth.setFocus(1)
	m.setFlash("Account created; sign in to continue", false)
	return m, nil
}

func (m Model) signedIn(sess session.Session) (tea.Model, tea.Cmd) {
	m.session = sess
	if m.view == ViewLogin || m.view == ViewRegister {
		m.view = ViewUpload
	}
	m.flash = ""
	return m, m.loadLibraryCmd()
}

// signedOut drops to the sign-in form, cancelling any recognition in flight.
func (m Model) signedOut(notice string) (tea.Model, tea.Cmd) {
	m.cancelRun()
	m.session = session.Session{}
	m.view = ViewLogin
	m.auth = m.loginForm()
	m.modal = nil
	m.admin = adminState{}
	m.setFlash(notice, notice != "")
	return m, nil
}

func (m Model) logout() (tea.Model, tea.Cmd) {
	if m.sessions != nil {
		if err := m.sessions.Logout(); err != nil {
			m.logger.Warn("sign out failed", "error", err)
		}
	}
	m.store.SetUploads(nil, nil)
	m.store.SetHistory(nil, nil)
	model, _ := m.signedOut("")
	mm := model.(Model)
	mm.setFlash("Signed out", false)
	return mm, fetchSnapshotCmd(m.store)
}

func (m Model) renderAuth() string {
	styles := m.theme.Styles()
	var b strings.Builder
	b.WriteString(m.auth.view(m.theme))
	b.WriteString("\n")
	other := "Register a new account"
	if m.view == ViewRegister {
		other = "Back to sign in"
	}
	b.WriteString(styles.FaintText.Render("enter submit · tab next field · ctrl+r " + other + " · ctrl+c quit"))
	return b.String()
}
