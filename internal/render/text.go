package render

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/jmylchreest/swatchpath/internal/colour"
	"github.com/jmylchreest/swatchpath/internal/gradient"
)

// TerminalWidth returns the width of the terminal on f, or 0 if f is not a
// terminal.
func TerminalWidth(f *os.File) int {
	fd := int(f.Fd()) // #nosec G115 - file descriptors fit in int
	if !term.IsTerminal(fd) {
		return 0
	}
	w, _, err := term.GetSize(fd)
	if err != nil {
		return 0
	}
	return w
}

// Text writes one line of colour swatches per row. With Labels set, each row
// is followed by its item labels.
func Text(w io.Writer, rows []gradient.Row, opts Options) error {
	cw := opts.cellWidth()
	for y, row := range rows {
		cells := row
		if opts.Width > 0 {
			if fit := opts.Width / cw; fit < len(cells) {
				cells = cells[:max(fit, 1)]
			}
		}

		var line strings.Builder
		for _, cell := range cells {
			line.WriteString(colour.ColourPreview(CellColour(cell.Entry, opts.Variant), cw))
		}
		if _, err := fmt.Fprintln(w, line.String()); err != nil {
			return fmt.Errorf("failed to write row %d: %w", y, err)
		}

		if !opts.Labels {
			continue
		}
		labels := make([]string, len(row))
		for i, cell := range row {
			c := CellColour(cell.Entry, opts.Variant)
			labels[i] = colour.ColourString(c, c.Hex()) + " " + cell.Entry.Label()
		}
		if _, err := fmt.Fprintf(w, "  %s\n", strings.Join(labels, " -> ")); err != nil {
			return fmt.Errorf("failed to write row %d: %w", y, err)
		}
	}
	return nil
}
