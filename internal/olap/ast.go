package olap

// Query is a parsed MDX SELECT statement.
type Query struct {
	Axes   []AxisSpec
	Cube   string
	Slicer *TupleExpr // nil without WHERE
}

// AxisSpec is one "<set> ON <axis>" clause.
type AxisSpec struct {
	Ordinal  int // 0 = COLUMNS, 1 = ROWS
	NonEmpty bool
	Set      SetExpr
}

// SetExpr is any expression that evaluates to a set of tuples.
type SetExpr interface {
	setNode()
}

// MemberRef names a member by its path segments, e.g. [Measures].[added]
// or [countryName].[France].
type MemberRef struct {
	Segments []string
}

// MembersExpr is <path>.Members. Levels is true for the two-segment form
// [d].[d].Members, which excludes the All member.
type MembersExpr struct {
	Dimension string
	Levels    bool
}

// TupleExpr is a parenthesized list of members, or a single member.
type TupleExpr struct {
	Members []MemberRef
}

// SetLiteral is { item, item, ... }.
type SetLiteral struct {
	Items []SetExpr
}

// OrderExpr is Order(set, value [, flag]).
type OrderExpr struct {
	Set  SetExpr
	By   *TupleExpr
	Flag OrderFlag
}

// TopExpr is TopCount(set, n [, value]) or BottomCount(set, n [, value]).
type TopExpr struct {
	Bottom bool
	Set    SetExpr
	Count  int
	By     *TupleExpr // nil keeps set order
}

// HeadExpr is Head(set [, n]) or Tail(set [, n]).
type HeadExpr struct {
	Tail  bool
	Set   SetExpr
	Count int
}

// CrossJoinExpr is CrossJoin(a, b) or a * b.
type CrossJoinExpr struct {
	Left, Right SetExpr
}

func (*MembersExpr) setNode()   {}
func (*TupleExpr) setNode()     {}
func (*SetLiteral) setNode()    {}
func (*OrderExpr) setNode()     {}
func (*TopExpr) setNode()       {}
func (*HeadExpr) setNode()      {}
func (*CrossJoinExpr) setNode() {}

// OrderFlag selects the sort direction of Order.
type OrderFlag int

const (
	OrderAsc OrderFlag = iota
	OrderDesc
	OrderBAsc
	OrderBDesc
)

// Breaks reports whether the flag ignores the hierarchy.
func (f OrderFlag) Breaks() bool { return f == OrderBAsc || f == OrderBDesc }

// Descending reports whether larger values sort first.
func (f OrderFlag) Descending() bool { return f == OrderDesc || f == OrderBDesc }
