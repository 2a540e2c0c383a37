package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/melocuore/internal/admin"
)

// adminState is the admin view: the active tab, its loaded table and an
// optional create/edit form.
type adminState struct {
	tab     admin.Tab
	table   admin.Table
	loaded  bool
	loading bool
	cursor  int

	form *form
	// editID is the entry the form edits; zero means create.
	editID int64
}

func (m Model) adminLoadCmd(tab admin.Tab) tea.Cmd {
	svc, ctx := m.adminSvc, m.ctx
	if svc == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, RequestTimeout)
		defer cancel()
		table, err := svc.Load(ctx, tab)
		return adminTableMsg{tab: tab, table: table, err: err}
	}
}

func (m Model) handleAdminTable(msg adminTableMsg) (tea.Model, tea.Cmd) {
	m.admin.loading = false
	if msg.err != nil {
		if expired(msg.err) {
			return m.signedOut(errorText(msg.err, ""))
		}
		text := errorText(msg.err, "Admin request failed")
		if msg.fromForm && m.admin.form != nil {
			m.admin.form.err = text
			return m, nil
		}
		m.setFlash(text, true)
		return m, nil
	}
	if msg.tab != m.admin.tab {
		return m, nil
	}
	m.admin.table = msg.table
	m.admin.loaded = true
	m.admin.cursor = clampCursor(m.admin.cursor, len(msg.table.Rows))
	if msg.fromForm {
		m.admin.form = nil
		m.admin.editID = 0
	}
	if msg.note != "" {
		m.setFlash(msg.note, false)
	}
	return m, nil
}

func (m Model) selectedRow() (admin.Row, bool) {
	rows := m.admin.table.Rows
	if len(rows) == 0 || m.admin.cursor >= len(rows) {
		return admin.Row{}, false
	}
	return rows[m.admin.cursor], true
}

func (m Model) switchTab(step int) (tea.Model, tea.Cmd) {
	tabs := admin.Tabs()
	idx := 0
	for i, t := range tabs {
		if t == m.admin.tab {
			idx = i
		}
	}
	m.admin = adminState{tab: tabs[(idx+step+len(tabs))%len(tabs)], loading: true}
	m.flash = ""
	return m, m.adminLoadCmd(m.admin.tab)
}

func (m Model) handleAdminKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if cursor, ok := m.moveCursor(msg, m.admin.cursor, len(m.admin.table.Rows)); ok {
		m.admin.cursor = cursor
		return m, nil
	}

	tab := m.admin.tab
	switch {
	case key.Matches(msg, m.keys.NextTab):
		return m.switchTab(1)
	case key.Matches(msg, m.keys.PrevTab):
		return m.switchTab(-1)
	case key.Matches(msg, m.keys.Reload):
		m.admin.loading = true
		return m, m.adminLoadCmd(tab)

	case key.Matches(msg, m.keys.New):
		if !tab.CanCreate() {
			return m, nil
		}
		f := newForm("New entry in "+tab.Title(), adminFields(tab, false), nil)
		m.admin.form = &f
		m.admin.editID = 0
		return m, nil

	case key.Matches(msg, m.keys.Edit):
		row, ok := m.selectedRow()
		if !ok || row.ID == 0 || !tab.CanUpdate() {
			return m, nil
		}
		f := newForm(fmt.Sprintf("Edit #%d %s", row.ID, row.Label), adminFields(tab, true), row.Values)
		m.admin.form = &f
		m.admin.editID = row.ID
		return m, nil

	case key.Matches(msg, m.keys.Delete):
		row, ok := m.selectedRow()
		if !ok || row.ID == 0 || !tab.CanDelete() {
			return m, nil
		}
		m.modal = confirmModal{
			prompt:    admin.DeletePrompt(tab, row.ID, row.Label),
			onConfirm: m.adminDeleteCmd(tab, row),
		}
		return m, nil

	case key.Matches(msg, m.keys.Superuser):
		row, ok := m.selectedRow()
		if !ok || tab != admin.TabUsers || row.ID == 0 {
			return m, nil
		}
		svc, ctx := m.adminSvc, m.ctx
		return m, func() tea.Msg {
			ctx, cancel := context.WithTimeout(ctx, RequestTimeout)
			defer cancel()
			table, err := svc.ToggleSuperuser(ctx, row.ID, row.Superuser)
			return adminTableMsg{tab: admin.TabUsers, table: table, note: "Updated " + row.Label, err: err}
		}
	}
	return m, nil
}

// adminFields maps admin form fields to inputs. Passwords cannot be edited.
func adminFields(tab admin.Tab, editing bool) []formField {
	var out []formField
	for _, f := range admin.Fields(tab) {
		if editing && f.Secret {
			continue
		}
		label := f.Label
		if f.Required {
			label += " *"
		}
		out = append(out, formField{key: f.Key, label: label, secret: f.Secret, hint: f.Hint})
	}
	return out
}

// adminDeleteCmd runs after the confirmation modal was accepted, so the
// service is handed an approving Confirmer.
func (m Model) adminDeleteCmd(tab admin.Tab, row admin.Row) tea.Cmd {
	svc, ctx := m.adminSvc, m.ctx
	if svc == nil {
		return nil
	}
	approved := admin.ConfirmFunc(func(string) bool { return true })
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, RequestTimeout)
		defer cancel()
		table, err := svc.Delete(ctx, tab, row.ID, row.Label, approved)
		return adminTableMsg{tab: tab, table: table, note: "Deleted " + row.Label, err: err}
	}
}

func (m Model) handleAdminFormKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	f := m.admin.form
	switch {
	case msg.String() == "esc":
		m.admin.form = nil
		m.admin.editID = 0
		return m, nil
	case key.Matches(msg, m.keys.NextField):
		return m, f.next()
	case key.Matches(msg, m.keys.PrevField):
		return m, f.prev()
	case key.Matches(msg, m.keys.Submit):
		if !f.onLast() {
			return m, f.next()
		}
		return m.submitAdminForm()
	}
	return m, f.update(msg)
}

func (m Model) submitAdminForm() (tea.Model, tea.Cmd) {
	f := m.admin.form
	tab, id := m.admin.tab, m.admin.editID
	values := admin.Values(f.Values())
	if err := admin.Validate(tab, values); err != nil {
		f.err = errorText(err, "")
		return m, nil
	}
	f.err = ""
	svc, ctx := m.adminSvc, m.ctx
	if svc == nil {
		return m, nil
	}
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, RequestTimeout)
		defer cancel()
		var (
			table admin.Table
			err   error
			note  string
		)
		if id > 0 {
			table, err = svc.Update(ctx, tab, id, values)
			note = "Saved changes"
		} else {
			table, err = svc.Create(ctx, tab, values)
			note = "Created entry"
		}
		return adminTableMsg{tab: tab, table: table, note: note, fromForm: true, err: err}
	}
}

func (m Model) renderAdmin(height int) string {
	styles := m.theme.Styles()
	var b strings.Builder

	tabs := make([]string, 0, len(admin.Tabs()))
	for _, t := range admin.Tabs() {
		if t == m.admin.tab {
			tabs = append(tabs, styles.Selected.Render(" "+t.Title()+" "))
		} else {
			tabs = append(tabs, styles.MutedText.Render(" "+t.Title()+" "))
		}
	}
	b.WriteString(strings.Join(tabs, ""))
	b.WriteString("\n\n")
	height -= 2

	if m.admin.form != nil {
		b.WriteString(m.admin.form.view(m.theme))
		b.WriteString("\n")
		b.WriteString(styles.FaintText.Render("enter next/submit · tab next field · esc cancel"))
		return b.String()
	}

	if !m.admin.loaded {
		b.WriteString(styles.MutedText.Render("Loading..."))
		return b.String()
	}

	table := m.admin.table
	summary := len(table.Summary)
	if summary > 0 {
		summary++
	}
	if len(table.Rows) == 0 {
		b.WriteString(styles.MutedText.Render("Nothing here yet."))
	} else {
		columns := make([]column, len(table.Columns))
		for i, title := range table.Columns {
			columns[i] = column{title: title, width: columnWidth(table, i)}
		}
		if len(columns) > 1 {
			columns[1].flex = true
		}
		b.WriteString(m.renderTable(columns, rowCells(table), m.admin.cursor, height-summary-1))
	}

	if len(table.Summary) > 0 {
		b.WriteString("\n\n")
		for _, line := range table.Summary {
			b.WriteString(styles.MutedText.Render(line))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render(adminHints(m.admin.tab)))
	return b.String()
}

func rowCells(t admin.Table) [][]string {
	out := make([][]string, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r.Cells
	}
	return out
}

// columnWidth sizes a column to its widest cell, capped.
func columnWidth(t admin.Table, idx int) int {
	w := len([]rune(t.Columns[idx]))
	for _, r := range t.Rows {
		if idx < len(r.Cells) {
			w = max(w, len([]rune(r.Cells[idx])))
		}
	}
	return min(w, 28)
}

func adminHints(tab admin.Tab) string {
	hints := []string{"[ ] tabs", "r reload"}
	if tab.CanCreate() {
		hints = append(hints, "n new")
	}
	if tab.CanUpdate() {
		hints = append(hints, "enter edit")
	}
	if tab.CanDelete() {
		hints = append(hints, "d delete")
	}
	if tab == admin.TabUsers {
		hints = append(hints, "s superuser")
	}
	return strings.Join(hints, " · ")
}
