package domain

// MeasuresDimension is the name of the implicit dimension holding measures.
const MeasuresDimension = "Measures"

// Member is one coordinate on an axis: a measure, a dimension value or the
// All member of a dimension.
type Member struct {
	Dimension string `json:"dimension"`
	Name      string `json:"name"`
	All       bool   `json:"all,omitempty"`
	Null      bool   `json:"null,omitempty"`
}

// UniqueName returns the MDX unique name of the member, e.g. "[country].[US]".
func (m Member) UniqueName() string {
	return "[" + m.Dimension + "].[" + m.Name + "]"
}

// IsMeasure reports whether the member belongs to the Measures dimension.
func (m Member) IsMeasure() bool {
	return m.Dimension == MeasuresDimension
}

// Position is a tuple of members occupying one slot on an axis.
type Position struct {
	Members []Member `json:"members"`
}

// Axis is an ordered list of positions.
type Axis struct {
	Name      string     `json:"name"`
	Positions []Position `json:"positions"`
}

// Cell is one value of the result grid.
type Cell struct {
	Value          interface{} `json:"value"`
	FormattedValue string      `json:"formatted_value"`
}

// CellSet is the result of an MDX query. Cells are stored row-major: the
// cell at (column c, row r) is Cells[r*len(Columns.Positions)+c]. A query
// without a rows axis has exactly one row.
type CellSet struct {
	Cube    string `json:"cube"`
	Columns Axis   `json:"columns"`
	Rows    *Axis  `json:"rows,omitempty"`
	Cells   []Cell `json:"cells"`
}

// RowCount returns the number of rows in the grid.
func (cs *CellSet) RowCount() int {
	if cs.Rows == nil {
		return 1
	}
	return len(cs.Rows.Positions)
}

// Cell returns the cell at the given column and row.
func (cs *CellSet) Cell(col, row int) Cell {
	return cs.Cells[row*len(cs.Columns.Positions)+col]
}
