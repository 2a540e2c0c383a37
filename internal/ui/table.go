package ui

import (
	"strings"
)

// column is one table column. A flex column takes the width left over by
// the fixed ones.
type column struct {
	title string
	width int
	flex  bool
}

// layoutColumns resolves flex widths for the given total width. Fixed
// columns are dropped from the right when space runs out.
func layoutColumns(columns []column, total int) []column {
	out := make([]column, len(columns))
	copy(out, columns)

	const gap = 1
	const minFlex = 12
	for {
		fixed, flex := 0, 0
		for _, c := range out {
			if c.flex {
				flex++
			} else {
				fixed += c.width
			}
		}
		fixed += gap * (len(out) - 1)
		remaining := total - fixed
		if flex == 0 || remaining >= minFlex*flex || len(out) <= flex+1 {
			if flex > 0 {
				each := max(remaining/flex, 1)
				for i := range out {
					if out[i].flex {
						out[i].width = each
					}
				}
			}
			return out
		}
		// Drop the last fixed column and retry.
		for i := len(out) - 1; i >= 0; i-- {
			if !out[i].flex {
				out = append(out[:i], out[i+1:]...)
				break
			}
		}
	}
}

// renderTable renders a header and the rows around cursor that fit height.
func (m Model) renderTable(columns []column, rows [][]string, cursor, height int) string {
	styles := m.theme.Styles()
	laid := layoutColumns(columns, m.width-4)
	index := make([]int, len(laid))
	for i, c := range laid {
		for j, orig := range columns {
			if orig.title == c.title {
				index[i] = j
				break
			}
		}
	}

	line := func(cells []string) string {
		parts := make([]string, len(laid))
		for i, c := range laid {
			value := ""
			if index[i] < len(cells) {
				value = cells[index[i]]
			}
			parts[i] = fit(value, c.width)
		}
		return strings.Join(parts, " ")
	}

	var b strings.Builder
	header := make([]string, len(columns))
	for i, c := range columns {
		header[i] = c.title
	}
	b.WriteString(styles.MutedText.Bold(true).Render(line(header)))

	start, end := window(len(rows), cursor, height-1)
	for i := start; i < end; i++ {
		b.WriteString("\n")
		text := line(rows[i])
		if i == cursor {
			b.WriteString(styles.Selected.Render(text))
		} else {
			b.WriteString(styles.Text.Render(text))
		}
	}
	return b.String()
}
