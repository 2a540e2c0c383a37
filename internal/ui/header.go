package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/melocuore/internal/state"
)

// renderHeader renders the status bar: logo, account, run phase and
// connectivity.
func (m Model) renderHeader() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)
	sep := bg.Spaces(2)

	parts := []string{bg.Render("melocuore", styles.Logo)}

	if m.session.Authenticated() {
		user := bg.Render(m.session.Username(), styles.Text)
		if m.session.IsSuperuser() {
			user += bg.Space() + styles.StateStyle("superuser").Render("admin")
		}
		parts = append(parts, user)
	} else {
		parts = append(parts, bg.Render("signed out", styles.MutedText))
	}

	run := m.snapshot.Run
	if run.Phase.Busy() {
		status := run.Phase.String()
		if run.Phase == state.PhasePolling && run.MaxQueries > 0 {
			status = fmt.Sprintf("%s %d/%d", status, run.Attempt, run.MaxQueries)
		}
		parts = append(parts, styles.StateStyle(run.Phase.String()).Render(status))
	}

	if m.snapshot.IsOffline() {
		parts = append(parts, bg.Render("● OFFLINE", styles.DangerText))
	} else if m.snapshot.LastError != nil && m.width >= LayoutCompactWidth {
		parts = append(parts, bg.Render(truncate(errorText(m.snapshot.LastError, "request failed"), 40), styles.WarningText))
	}

	if !m.lastUpdated.IsZero() && m.width >= LayoutWideWidth {
		parts = append(parts, bg.Render(m.lastUpdated.Format("15:04:05"), styles.FaintText))
	}

	return styles.Header.Width(m.width).Render(bg.Join(parts, "  ") + sep)
}

// renderCommandBar lists the views with their keys, highlighting the active one.
func (m Model) renderCommandBar() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	if !m.session.Authenticated() {
		return styles.Footer.Width(m.width).Render(
			bg.Render("ctrl+r", styles.WarningText) + bg.Space() + bg.Render("sign in / register", styles.MutedText) + bg.Spaces(2) +
				bg.Render("ctrl+c", styles.WarningText) + bg.Space() + bg.Render("quit", styles.MutedText),
		)
	}

	hotkeys := map[View]string{
		ViewUpload:  m.keys.ViewUpload.Help().Key,
		ViewFiles:   m.keys.ViewFiles.Help().Key,
		ViewHistory: m.keys.ViewHistory.Help().Key,
		ViewAdmin:   m.keys.ViewAdmin.Help().Key,
		ViewLogs:    m.keys.ViewLogs.Help().Key,
	}
	var parts []string
	for _, v := range m.navViews() {
		label := bg.Render(hotkeys[v], styles.WarningText) + bg.Space()
		if v == m.view {
			label += styles.Selected.Render(" " + v.String() + " ")
		} else {
			label += bg.Render(v.String(), styles.MutedText)
		}
		parts = append(parts, label)
	}
	parts = append(parts,
		bg.Render("L", styles.WarningText)+bg.Space()+bg.Render("sign out", styles.MutedText),
		bg.Render("h", styles.WarningText)+bg.Space()+bg.Render("help", styles.MutedText),
	)
	return styles.Footer.Width(m.width).Render(bg.Join(parts, "  "))
}

// renderFooter shows the latest flash message.
func (m Model) renderFooter() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	text := m.flash
	style := styles.MutedText
	if m.flashErr {
		style = styles.DangerText
	}
	if text == "" {
		text = m.viewHint()
		style = styles.FaintText
	}
	return styles.Footer.Width(m.width).Render(style.Render(truncate(text, m.width-2)))
}

func (m Model) viewHint() string {
	switch m.view {
	case ViewUpload:
		if m.upload.editing {
			return "enter upload · esc cancel"
		}
		return "o choose file · r run again · c cancel recognition"
	case ViewFiles:
		return "j/k move · d delete · r reload"
	case ViewHistory:
		return "j/k move · r reload"
	case ViewLogs:
		return "space follow · v level · r reload · g/G top/bottom"
	}
	return ""
}

// renderTitledBox renders content in a box with the title embedded in the top border.
// Focused boxes use the focus border and background.
func (m Model) renderTitledBox(title, content string, width, height int, focused bool) string {
	borderColorStr, bgColorStr := m.theme.Border, m.theme.SurfaceAlt
	if focused {
		borderColorStr, bgColorStr = m.theme.BorderFocus, m.theme.FocusBg
	}
	bg := NewBgStyle(bgColorStr)
	borderStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(borderColorStr))
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(m.theme.Text))

	innerWidth := max(width-2, 4)
	title = truncate(title, innerWidth-4)
	titleLen := lipgloss.Width(title)
	leftPad := max((innerWidth-titleLen-2)/2, 0)
	rightPad := max(innerWidth-titleLen-2-leftPad, 0)

	topBorder := bg.Render("┌", borderStyle) +
		bg.Render(strings.Repeat("─", leftPad), borderStyle) +
		bg.Render(" "+title+" ", titleStyle) +
		bg.Render(strings.Repeat("─", rightPad), borderStyle) +
		bg.Render("┐", borderStyle)

	bottomBorder := bg.Render("└", borderStyle) +
		bg.Render(strings.Repeat("─", innerWidth), borderStyle) +
		bg.Render("┘", borderStyle)

	contentStyle := lipgloss.NewStyle().Width(innerWidth).MaxWidth(innerWidth).Background(lipgloss.Color(bgColorStr))

	contentLines := strings.Split(content, "\n")
	boxHeight := max(height-2, 1)

	lines := make([]string, 0, boxHeight)
	for i := 0; i < boxHeight; i++ {
		var line string
		if i < len(contentLines) {
			line = contentLines[i]
		}
		lines = append(lines,
			bg.Render("│", borderStyle)+
				contentStyle.Render(line)+
				bg.Render("│", borderStyle))
	}

	return topBorder + "\n" + strings.Join(lines, "\n") + "\n" + bottomBorder
}
