package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// SimpleTable renders static rows such as cart lines or an order summary.
// Columns listed in RightAlign are right aligned; a Footer row is drawn in bold
// under a rule.
type SimpleTable struct {
	Title      string
	Headers    []string
	Rows       [][]string
	Footer     []string
	RightAlign map[int]bool
	Highlight  int // row index drawn with the Selected style, -1 for none
}

// NewSimpleTable creates a table with the given title and headers. Headers may be nil.
func NewSimpleTable(title string, headers ...string) *SimpleTable {
	return &SimpleTable{
		Title:      title,
		Headers:    headers,
		Rows:       make([][]string, 0),
		RightAlign: make(map[int]bool),
		Highlight:  -1,
	}
}

// AddRow appends a row.
func (t *SimpleTable) AddRow(cells ...string) *SimpleTable {
	t.Rows = append(t.Rows, cells)
	return t
}

// AlignRight right-aligns the given columns.
func (t *SimpleTable) AlignRight(cols ...int) *SimpleTable {
	for _, c := range cols {
		t.RightAlign[c] = true
	}
	return t
}

// SetFooter sets the emphasized last row.
func (t *SimpleTable) SetFooter(cells ...string) *SimpleTable {
	t.Footer = cells
	return t
}

func (t *SimpleTable) columns() int {
	n := len(t.Headers)
	for _, r := range t.Rows {
		if len(r) > n {
			n = len(r)
		}
	}
	if len(t.Footer) > n {
		n = len(t.Footer)
	}
	return n
}

func (t *SimpleTable) widths(n int) []int {
	w := make([]int, n)
	measure := func(row []string) {
		for i, cell := range row {
			if cw := lipgloss.Width(cell); cw > w[i] {
				w[i] = cw
			}
		}
	}
	measure(t.Headers)
	for _, r := range t.Rows {
		measure(r)
	}
	measure(t.Footer)
	return w
}

// View renders the table with styles. An empty table renders nothing.
func (t *SimpleTable) View(styles Styles) string {
	if len(t.Rows) == 0 && len(t.Footer) == 0 {
		return ""
	}

	n := t.columns()
	w := t.widths(n)

	line := func(row []string, style lipgloss.Style) string {
		cells := make([]string, n)
		for i := 0; i < n; i++ {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			s := style.Width(w[i])
			if t.RightAlign[i] {
				s = s.Align(lipgloss.Right)
			}
			cells[i] = s.Render(cell)
		}
		return strings.Join(cells, "  ")
	}

	total := 0
	for _, cw := range w {
		total += cw
	}
	total += 2 * (n - 1)

	var sb strings.Builder
	if t.Title != "" {
		sb.WriteString(styles.Title.Render(t.Title))
		sb.WriteString("\n")
	}
	if len(t.Headers) > 0 {
		sb.WriteString(line(t.Headers, styles.Muted))
		sb.WriteString("\n")
		sb.WriteString(styles.RenderDivider(total))
		sb.WriteString("\n")
	}
	for i, r := range t.Rows {
		style := styles.Body
		if i == t.Highlight {
			style = styles.Selected
		}
		sb.WriteString(line(r, style))
		sb.WriteString("\n")
	}
	if len(t.Footer) > 0 {
		sb.WriteString(styles.RenderDivider(total))
		sb.WriteString("\n")
		sb.WriteString(line(t.Footer, styles.Bold))
		sb.WriteString("\n")
	}
	return sb.String()
}
