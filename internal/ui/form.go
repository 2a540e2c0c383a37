package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// formField describes one input of a form.
type formField struct {
	key    string
	label  string
	secret bool
	hint   string
}

// form is a vertical stack of text inputs with a single focused field.
type form struct {
	title  string
	fields []formField
	inputs []textinput.Model
	focus  int
	err    string
}

func newForm(title string, fields []formField, values map[string]string) form {
	f := form{title: title, fields: fields}
	for i, field := range fields {
		in := textinput.New()
		in.Prompt = ""
		in.CharLimit = 512
		in.Width = 40
		in.Placeholder = field.hint
		if field.secret {
			in.EchoMode = textinput.EchoPassword
			in.EchoCharacter = '•'
		}
		if v, ok := values[field.key]; ok {
			in.SetValue(v)
		}
		if i == 0 {
			in.Focus()
		}
		f.inputs = append(f.inputs, in)
	}
	return f
}

// Values returns the raw input keyed by field.
func (f form) Values() map[string]string {
	out := make(map[string]string, len(f.fields))
	for i, field := range f.fields {
		out[field.key] = f.inputs[i].Value()
	}
	return out
}

// Value returns the raw input of one field.
func (f form) Value(key string) string {
	for i, field := range f.fields {
		if field.key == key {
			return f.inputs[i].Value()
		}
	}
	return ""
}

func (f *form) setFocus(idx int) tea.Cmd {
	if len(f.inputs) == 0 {
		return nil
	}
	idx = (idx + len(f.inputs)) % len(f.inputs)
	f.inputs[f.focus].Blur()
	f.focus = idx
	return f.inputs[f.focus].Focus()
}

func (f *form) next() tea.Cmd { return f.setFocus(f.focus + 1) }
func (f *form) prev() tea.Cmd { return f.setFocus(f.focus - 1) }

// onLast reports whether the last field is focused.
func (f form) onLast() bool {
	return f.focus == len(f.inputs)-1
}

func (f *form) update(msg tea.Msg) tea.Cmd {
	if len(f.inputs) == 0 {
		return nil
	}
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return cmd
}

func (f form) view(theme Theme) string {
	styles := theme.Styles()
	labelWidth := 0
	for _, field := range f.fields {
		if w := lipgloss.Width(field.label); w > labelWidth {
			labelWidth = w
		}
	}

	var b strings.Builder
	if f.title != "" {
		b.WriteString(styles.AccentText.Bold(true).Render(f.title))
		b.WriteString("\n\n")
	}
	for i, field := range f.fields {
		label := styles.MutedText
		marker := "  "
		if i == f.focus {
			label = styles.Text.Bold(true)
			marker = styles.AccentText.Render("› ")
		}
		b.WriteString(marker)
		b.WriteString(label.Render(padRight(field.label, labelWidth)))
		b.WriteString("  ")
		b.WriteString(f.inputs[i].View())
		b.WriteString("\n")
	}
	if f.err != "" {
		b.WriteString("\n")
		b.WriteString(styles.DangerText.Render(f.err))
		b.WriteString("\n")
	}
	return b.String()
}
