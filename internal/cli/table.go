// Package cli implements the swatchpath command-line interface.
package cli

import (
	"regexp"
	"strings"

	"github.com/mattn/go-runewidth"
)

const columnGap = "  "

var ansiEscape = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// displayWidth returns the terminal width of s, ignoring SGR escapes.
func displayWidth(s string) int {
	return runewidth.StringWidth(ansiEscape.ReplaceAllString(s, ""))
}

// Table lays out rows under headers. Cells may carry colour escapes; widths
// are measured on what the terminal shows.
type Table struct {
	headers []string
	rows    [][]string
	wrap    map[int]int
}

// NewTable creates a table with the given headers.
func NewTable(headers []string) *Table {
	return &Table{headers: headers, wrap: make(map[int]int)}
}

// SetColumnMaxWidth word-wraps column col at width. Words longer than width
// are kept whole.
func (t *Table) SetColumnMaxWidth(col, width int) {
	t.wrap[col] = width
}

// AddRow appends a row, padded or truncated to the header count.
func (t *Table) AddRow(row []string) {
	cells := make([]string, len(t.headers))
	copy(cells, row)
	t.rows = append(t.rows, cells)
}

// Render returns the header, a dashed rule and every row, one line each.
// Wrapped cells continue on the following lines.
func (t *Table) Render() string {
	if len(t.headers) == 0 {
		return ""
	}

	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = displayWidth(h)
	}
	lines := make([][][]string, len(t.rows))
	for r, row := range t.rows {
		lines[r] = make([][]string, len(row))
		for c, cell := range row {
			lines[r][c] = wrapWords(cell, t.wrap[c])
			for _, l := range lines[r][c] {
				widths[c] = max(widths[c], displayWidth(l))
			}
		}
	}

	var sb strings.Builder
	writeLine := func(cells func(c int) string) {
		parts := make([]string, len(widths))
		for c, w := range widths {
			parts[c] = padRight(cells(c), w)
		}
		sb.WriteString(strings.TrimRight(strings.Join(parts, columnGap), " "))
		sb.WriteByte('\n')
	}

	writeLine(func(c int) string { return t.headers[c] })
	writeLine(func(c int) string { return strings.Repeat("-", widths[c]) })
	for _, row := range lines {
		height := 1
		for _, cell := range row {
			height = max(height, len(cell))
		}
		for i := range height {
			writeLine(func(c int) string {
				if i < len(row[c]) {
					return row[c][i]
				}
				return ""
			})
		}
	}
	return sb.String()
}

// padRight pads s with spaces to the given display width.
func padRight(s string, width int) string {
	if w := displayWidth(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}

// wrapWords splits text into lines of at most width columns at spaces.
// A width of zero or less disables wrapping.
func wrapWords(text string, width int) []string {
	if width <= 0 || displayWidth(text) <= width {
		return []string{text}
	}
	var lines []string
	line := ""
	for _, word := range strings.Fields(text) {
		switch {
		case line == "":
			line = word
		case displayWidth(line)+1+displayWidth(word) <= width:
			line += " " + word
		default:
			lines = append(lines, line)
			line = word
		}
	}
	if line != "" {
		lines = append(lines, line)
	}
	return lines
}
