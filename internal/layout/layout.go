// Package layout renders cell sets for people and programs.
package layout

import (
	"encoding/json"
	"io"

	"duck-olap/internal/domain"
)

// Formatter writes a rendered cell set to w.
type Formatter interface {
	Format(cs *domain.CellSet, w io.Writer) error
}

// Document is the structured form of a cell set. Data is row-major and has
// one entry per row, each holding one cell per column position.
type Document struct {
	Cube    string            `json:"cube"`
	Columns []domain.Position `json:"columns"`
	Rows    []domain.Position `json:"rows,omitempty"`
	Data    [][]domain.Cell   `json:"data"`
}

// NewDocument reshapes cs into a Document.
func NewDocument(cs *domain.CellSet) Document {
	doc := Document{
		Cube:    cs.Cube,
		Columns: cs.Columns.Positions,
		Data:    make([][]domain.Cell, 0, cs.RowCount()),
	}
	if doc.Columns == nil {
		doc.Columns = []domain.Position{}
	}
	if cs.Rows != nil {
		doc.Rows = cs.Rows.Positions
	}
	for r := 0; r < cs.RowCount(); r++ {
		row := make([]domain.Cell, len(cs.Columns.Positions))
		for c := range row {
			row[c] = cs.Cell(c, r)
		}
		doc.Data = append(doc.Data, row)
	}
	return doc
}

// JSONFormatter writes the cell set as a Document.
type JSONFormatter struct {
	Indent bool
}

// Format implements Formatter.
func (f JSONFormatter) Format(cs *domain.CellSet, w io.Writer) error {
	enc := json.NewEncoder(w)
	if f.Indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(NewDocument(cs))
}
