package tui

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// TableColumn defines a fixed-width column.
type TableColumn struct {
	Name  string
	Width int
	Align Alignment
}

// Alignment defines text alignment in a column.
type Alignment int

// Alignment constants.
const (
	AlignLeft Alignment = iota
	AlignRight
)

// Table writes fixed-width rows one at a time, so rows can be printed as
// jobs finish instead of after the whole pass.
type Table struct {
	w       io.Writer
	styles  *TableStyles
	columns []TableColumn
}

// NewTable creates a table with the given columns.
func NewTable(w io.Writer, columns []TableColumn) *Table {
	return &Table{
		w:       w,
		styles:  NewTableStyles(),
		columns: columns,
	}
}

// WriteHeader writes the header row.
func (t *Table) WriteHeader() {
	names := make([]string, len(t.columns))
	for i, col := range t.columns {
		names[i] = col.Name
	}
	_, _ = fmt.Fprintln(t.w, t.styles.Header.Render(t.join(names, -1, 0)))
}

// WriteRow writes a row of plain values. Values wider than their column are
// truncated with an ellipsis.
func (t *Table) WriteRow(values ...string) {
	_, _ = fmt.Fprintln(t.w, t.join(values, -1, 0))
}

// WriteStyledRow writes a row whose cell at styledIndex carries ANSI codes.
// plainValue is the same cell without styling, used for width accounting.
func (t *Table) WriteStyledRow(values []string, styledIndex int, styledValue, plainValue string) {
	cells := make([]string, len(t.columns))
	copy(cells, values)
	if styledIndex >= 0 && styledIndex < len(cells) {
		cells[styledIndex] = styledValue
	}
	_, _ = fmt.Fprintln(t.w, t.join(cells, styledIndex, ColorOffset(styledValue, plainValue)))
}

func (t *Table) join(values []string, styledIndex, offset int) string {
	var b strings.Builder
	for i, col := range t.columns {
		if i > 0 {
			b.WriteByte(' ')
		}
		value := ""
		if i < len(values) {
			value = values[i]
		}
		width := col.Width
		if i == styledIndex {
			width += offset
		} else {
			value = truncate(value, col.Width)
		}
		b.WriteString(fmt.Sprintf(formatSpec(col.Align, width), value))
	}
	return strings.TrimRight(b.String(), " ")
}

func formatSpec(align Alignment, width int) string {
	if align == AlignRight {
		return fmt.Sprintf("%%%ds", width)
	}
	return fmt.Sprintf("%%-%ds", width)
}

// truncate shortens s to width runes, replacing the last one with "…".
func truncate(s string, width int) string {
	if width <= 1 || utf8.RuneCountInString(s) <= width {
		return s
	}
	runes := []rune(s)
	return string(runes[:width-1]) + "…"
}

// ColorOffset is the number of bytes ANSI codes add to rendered compared to plain.
func ColorOffset(rendered, plain string) int {
	return len(rendered) - len(plain)
}
