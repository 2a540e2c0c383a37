package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

type helpSection struct {
	title string
	items []helpItem
}

type helpItem struct {
	key  string
	desc string
}

func (m Model) helpSections() []helpSection {
	sections := []helpSection{
		{
			title: "Views",
			items: []helpItem{
				{"u", "Upload and recognize"},
				{"f", "My files"},
				{"y", "Recognition history"},
				{"l", "Client log"},
				{"tab", "Cycle views"},
			},
		},
		{
			title: "Navigation",
			items: []helpItem{
				{"j/k", "Move up/down"},
				{"g/G", "Go to top/bottom"},
				{"ctrl+d/u", "Page down/up"},
			},
		},
		{
			title: "Upload",
			items: []helpItem{
				{"o/enter", "Choose a file"},
				{"c", "Cancel recognition"},
			},
		},
		{
			title: "Lists",
			items: []helpItem{
				{"r", "Reload"},
				{"d", "Delete selected"},
			},
		},
		{
			title: "Logs",
			items: []helpItem{
				{"space", "Toggle follow mode"},
				{"v", "Cycle minimum level"},
			},
		},
		{
			title: "General",
			items: []helpItem{
				{"T", "Cycle theme"},
				{"L", "Sign out"},
				{"h/?", "Toggle help"},
				{"e/ctrl+c", "Quit"},
			},
		},
	}
	if m.session.IsSuperuser() {
		admin := helpSection{
			title: "Admin",
			items: []helpItem{
				{"a", "Open admin"},
				{"[ ]", "Previous/next table"},
				{"n", "New entry"},
				{"enter", "Edit selected"},
				{"s", "Toggle superuser"},
			},
		}
		sections = append(sections[:len(sections)-1], admin, sections[len(sections)-1])
	}
	return sections
}

// renderHelp renders the help overlay.
func (m Model) renderHelp() string {
	styles := m.theme.Styles()
	sections := m.helpSections()

	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render("Keyboard Shortcuts"))
	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render(strings.Repeat("─", 30)))
	b.WriteString("\n\n")

	keyStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(m.theme.Warning)).
		Width(12)
	for i, section := range sections {
		b.WriteString(styles.AccentText.Bold(true).Render(section.title))
		b.WriteString("\n")
		for _, item := range section.items {
			b.WriteString(keyStyle.Render(item.key))
			b.WriteString(styles.Text.Render(item.desc))
			b.WriteString("\n")
		}
		if i < len(sections)-1 {
			b.WriteString("\n")
		}
	}

	modal := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(m.theme.Accent)).
		Padding(1, 2).
		Width(42)

	return lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Center,
		lipgloss.Center,
		modal.Render(b.String()),
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceForeground(lipgloss.Color(m.theme.Background)),
	)
}
