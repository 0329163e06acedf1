package layout

import (
	"bufio"
	"io"
	"strings"

	"golang.org/x/text/width"

	"duck-olap/internal/domain"
)

// RectangularFormatter draws the cell set as a text grid: row headers on
// the left, one header line per column-tuple member on top, and a rule
// between the headers and the data.
//
// With Compact set, members are captioned by name and a header label is
// blanked when it repeats the label of the previous position. Otherwise
// every label is printed as a unique name.
type RectangularFormatter struct {
	Compact bool
}

// Format implements Formatter.
func (f RectangularFormatter) Format(cs *domain.CellSet, w io.Writer) error {
	g := f.grid(cs)
	if g.width == 0 {
		return nil
	}

	widths := make([]int, g.width)
	for _, line := range g.cells {
		for i, s := range line {
			widths[i] = max(widths[i], displayWidth(s))
		}
	}

	bw := bufio.NewWriter(w)
	for i, line := range g.cells {
		if i == g.headerRows {
			writeRule(bw, widths)
		}
		bw.WriteString("|")
		for j, s := range line {
			bw.WriteByte(' ')
			if i >= g.headerRows && j >= g.rowHeaderCols {
				pad(bw, widths[j]-displayWidth(s))
				bw.WriteString(s)
			} else {
				bw.WriteString(s)
				pad(bw, widths[j]-displayWidth(s))
			}
			bw.WriteString(" |")
		}
		bw.WriteByte('\n')
	}
	if g.headerRows == len(g.cells) && g.headerRows > 0 {
		writeRule(bw, widths)
	}
	return bw.Flush()
}

type grid struct {
	cells         [][]string
	width         int
	headerRows    int
	rowHeaderCols int
}

func (f RectangularFormatter) grid(cs *domain.CellSet) grid {
	cols := cs.Columns.Positions
	var rows []domain.Position
	if cs.Rows != nil {
		rows = cs.Rows.Positions
	}

	g := grid{
		headerRows:    depth(cols),
		rowHeaderCols: depth(rows),
	}
	g.width = g.rowHeaderCols + len(cols)

	for k := 0; k < g.headerRows; k++ {
		line := make([]string, g.width)
		for c := range cols {
			line[g.rowHeaderCols+c] = f.label(cols, c, k)
		}
		g.cells = append(g.cells, line)
	}

	for r := 0; r < cs.RowCount(); r++ {
		line := make([]string, g.width)
		for k := 0; k < g.rowHeaderCols; k++ {
			line[k] = f.label(rows, r, k)
		}
		for c := range cols {
			line[g.rowHeaderCols+c] = cs.Cell(c, r).FormattedValue
		}
		g.cells = append(g.cells, line)
	}
	return g
}

// label returns the caption of member k of position i.
func (f RectangularFormatter) label(positions []domain.Position, i, k int) string {
	members := positions[i].Members
	if k >= len(members) {
		return ""
	}
	if !f.Compact {
		return members[k].UniqueName()
	}
	if i > 0 && samePrefix(positions[i-1].Members, members, k+1) {
		return ""
	}
	return members[k].Name
}

func samePrefix(a, b []domain.Member, n int) bool {
	if len(a) < n || len(b) < n {
		return false
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func depth(positions []domain.Position) int {
	d := 0
	for _, p := range positions {
		d = max(d, len(p.Members))
	}
	return d
}

func writeRule(w *bufio.Writer, widths []int) {
	w.WriteByte('+')
	for _, n := range widths {
		w.WriteString(strings.Repeat("-", n+2))
		w.WriteByte('+')
	}
	w.WriteByte('\n')
}

func pad(w *bufio.Writer, n int) {
	if n > 0 {
		w.WriteString(strings.Repeat(" ", n))
	}
}

// displayWidth counts terminal columns: East Asian wide and fullwidth
// runes take two.
func displayWidth(s string) int {
	n := 0
	for _, r := range s {
		switch width.LookupRune(r).Kind() {
		case width.EastAsianWide, width.EastAsianFullwidth:
			n += 2
		default:
			n++
		}
	}
	return n
}
