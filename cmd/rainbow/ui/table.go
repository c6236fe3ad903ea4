package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Table renders static rows as aligned columns with a dashed header rule.
// It is meant for short result listings, not interactive display.
type Table struct {
	headers []string
	rows    [][]string
}

// NewTable creates a table with the given column headers.
func NewTable(headers ...string) *Table {
	return &Table{headers: headers}
}

// AddRow appends one row. Missing cells render empty, extra cells are dropped.
func (t *Table) AddRow(cells ...string) {
	row := make([]string, len(t.headers))
	copy(row, cells)
	t.rows = append(t.rows, row)
}

// Len returns the number of rows added so far.
func (t *Table) Len() int {
	return len(t.rows)
}

// View renders the table using the provided styles.
func (t *Table) View(styles Styles) string {
	if len(t.headers) == 0 {
		return ""
	}

	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if w := lipgloss.Width(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	var sb strings.Builder
	sb.WriteString(styles.Bold.Render(joinRow(t.headers, widths)))
	sb.WriteString("\n")

	rule := make([]string, len(widths))
	for i, w := range widths {
		rule[i] = strings.Repeat("-", w)
	}
	sb.WriteString(styles.Muted.Render(strings.Join(rule, "  ")))
	sb.WriteString("\n")

	for _, row := range t.rows {
		sb.WriteString(styles.Body.Render(joinRow(row, widths)))
		sb.WriteString("\n")
	}

	return sb.String()
}

// joinRow pads each cell to its column width with a two space gutter.
// Trailing padding is trimmed so rows never carry invisible width.
func joinRow(cells []string, widths []int) string {
	padded := make([]string, len(cells))
	for i, cell := range cells {
		pad := widths[i] - lipgloss.Width(cell)
		if pad < 0 {
			pad = 0
		}
		padded[i] = cell + strings.Repeat(" ", pad)
	}
	return strings.TrimRight(strings.Join(padded, "  "), " ")
}
