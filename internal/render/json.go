package render

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jmylchreest/swatchpath/internal/gradient"
)

// Document is the JSON form of a set of gradient rows.
type Document struct {
	Variant string    `json:"variant"`
	Rows    []JSONRow `json:"rows"`
}

// JSONRow is one gradient row.
type JSONRow struct {
	Y     int        `json:"y"`
	Cells []JSONCell `json:"cells"`
}

// JSONCell is one cell of a row.
type JSONCell struct {
	X       int               `json:"x"`
	ID      int               `json:"id"`
	Hex     string            `json:"hex"`
	Items   []string          `json:"items"`
	Facings map[string]string `json:"facings,omitempty"`
}

// NewDocument converts rows to their JSON form.
func NewDocument(rows []gradient.Row, opts Options) Document {
	doc := Document{Variant: opts.Variant.String(), Rows: make([]JSONRow, 0, len(rows))}
	for y, row := range rows {
		jr := JSONRow{Y: y, Cells: make([]JSONCell, 0, len(row))}
		for _, cell := range row {
			e := cell.Entry
			jc := JSONCell{X: cell.X, ID: e.ID, Hex: CellColour(e, opts.Variant).Hex()}
			for _, item := range e.Items() {
				jc.Items = append(jc.Items, string(item))
				if faces, ok := e.Facings(item); ok && faces != nil {
					if jc.Facings == nil {
						jc.Facings = make(map[string]string)
					}
					jc.Facings[string(item)] = faces.String()
				}
			}
			jr.Cells = append(jr.Cells, jc)
		}
		doc.Rows = append(doc.Rows, jr)
	}
	return doc
}

// JSON writes rows as an indented JSON document.
func JSON(w io.Writer, rows []gradient.Row, opts Options) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(NewDocument(rows, opts)); err != nil {
		return fmt.Errorf("failed to encode rows: %w", err)
	}
	return nil
}
