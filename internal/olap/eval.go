package olap

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"duck-olap/internal/domain"
	"duck-olap/internal/schemagen"
	"duck-olap/internal/source"
)

// NullMemberName names the member holding NULL keys.
const NullMemberName = "#null"

// nullKey encodes a NULL key inside a group key. Non-NULL values are
// quoted, so no value can produce it.
const nullKey = "null"

// tuple is an ordered list of members, at most one per dimension.
type tuple []domain.Member

// evaluator evaluates one query. It caches member lists and grouped
// aggregates for the duration of the query.
type evaluator struct {
	conn     source.Conn
	cube     *schemagen.Cube
	dbSchema string
	logger   *slog.Logger

	slicer  tuple                      // slicer measure, if any
	filters []domain.Member            // slicer members pushed into WHERE
	members map[string][]domain.Member // dimension name -> level members
	groups  map[string]map[string]map[string]interface{}
}

func newEvaluator(conn source.Conn, cube *schemagen.Cube, dbSchema string, logger *slog.Logger) *evaluator {
	return &evaluator{
		conn:     conn,
		cube:     cube,
		dbSchema: dbSchema,
		logger:   logger,
		members:  map[string][]domain.Member{},
		groups:   map[string]map[string]map[string]interface{}{},
	}
}

func (e *evaluator) run(ctx context.Context, q *Query) (*domain.CellSet, error) {
	var colSpec, rowSpec *AxisSpec
	for i := range q.Axes {
		switch q.Axes[i].Ordinal {
		case 0:
			colSpec = &q.Axes[i]
		case 1:
			rowSpec = &q.Axes[i]
		default:
			return nil, fmt.Errorf("axis %d is not supported", q.Axes[i].Ordinal)
		}
	}
	if colSpec == nil {
		return nil, fmt.Errorf("query has a ROWS axis but no COLUMNS axis")
	}

	var slicerDims []string
	if q.Slicer != nil {
		t, err := e.resolveTuple(ctx, q.Slicer)
		if err != nil {
			return nil, err
		}
		slicerDims = dimensionsOf(t)
		for _, m := range t {
			if m.IsMeasure() {
				e.slicer = append(e.slicer, m)
			} else if !m.All {
				e.filters = append(e.filters, m)
			}
		}
	}

	cols, err := e.evalSet(ctx, colSpec.Set)
	if err != nil {
		return nil, err
	}
	rows := []tuple{nil}
	if rowSpec != nil {
		if rows, err = e.evalSet(ctx, rowSpec.Set); err != nil {
			return nil, err
		}
	}

	if err := checkIndependentAxes(firstDims(cols), firstDims(rows), slicerDims); err != nil {
		return nil, err
	}

	cellTuples := make([]tuple, 0, len(cols)*len(rows))
	for _, r := range rows {
		for _, c := range cols {
			t := make(tuple, 0, len(c)+len(r)+len(e.slicer))
			t = append(append(append(t, c...), r...), e.slicer...)
			cellTuples = append(cellTuples, t)
		}
	}
	values, err := e.values(ctx, cellTuples)
	if err != nil {
		return nil, err
	}

	keepCols := allIndexes(len(cols))
	keepRows := allIndexes(len(rows))
	if colSpec.NonEmpty {
		keepCols = nonEmpty(len(cols), keepRows, func(c, r int) bool { return values[r*len(cols)+c] != nil })
	}
	if rowSpec != nil && rowSpec.NonEmpty {
		keepRows = nonEmpty(len(rows), keepCols, func(r, c int) bool { return values[r*len(cols)+c] != nil })
	}

	cs := &domain.CellSet{Cube: e.cube.Name, Columns: domain.Axis{Name: "COLUMNS", Positions: []domain.Position{}}}
	for _, c := range keepCols {
		cs.Columns.Positions = append(cs.Columns.Positions, domain.Position{Members: cols[c]})
	}
	if rowSpec != nil {
		cs.Rows = &domain.Axis{Name: "ROWS", Positions: []domain.Position{}}
		for _, r := range keepRows {
			cs.Rows.Positions = append(cs.Rows.Positions, domain.Position{Members: rows[r]})
		}
	}
	cs.Cells = make([]domain.Cell, 0, len(keepCols)*len(keepRows))
	for _, r := range keepRows {
		for _, c := range keepCols {
			v := values[r*len(cols)+c]
			cs.Cells = append(cs.Cells, domain.Cell{Value: v, FormattedValue: formatValue(v)})
		}
	}
	return cs, nil
}

// === Set evaluation ===

func (e *evaluator) evalSet(ctx context.Context, expr SetExpr) ([]tuple, error) {
	switch x := expr.(type) {
	case *MembersExpr:
		return e.evalMembers(ctx, x)
	case *TupleExpr:
		t, err := e.resolveTuple(ctx, x)
		if err != nil {
			return nil, err
		}
		return []tuple{t}, nil
	case *SetLiteral:
		var out []tuple
		for _, item := range x.Items {
			ts, err := e.evalSet(ctx, item)
			if err != nil {
				return nil, err
			}
			out = append(out, ts...)
		}
		if err := checkDimensionality(out); err != nil {
			return nil, err
		}
		return out, nil
	case *CrossJoinExpr:
		return e.evalCrossJoin(ctx, x)
	case *OrderExpr:
		set, err := e.evalSet(ctx, x.Set)
		if err != nil {
			return nil, err
		}
		return e.order(ctx, set, x.By, x.Flag)
	case *TopExpr:
		return e.evalTop(ctx, x)
	case *HeadExpr:
		set, err := e.evalSet(ctx, x.Set)
		if err != nil {
			return nil, err
		}
		if x.Tail {
			return tail(set, x.Count), nil
		}
		return head(set, x.Count), nil
	default:
		return nil, fmt.Errorf("unsupported set expression %T", expr)
	}
}

func (e *evaluator) evalMembers(ctx context.Context, x *MembersExpr) ([]tuple, error) {
	if strings.EqualFold(x.Dimension, domain.MeasuresDimension) {
		var out []tuple
		for _, m := range e.cube.AllMeasures() {
			out = append(out, tuple{measureMember(m.Name)})
		}
		return out, nil
	}

	dim, ok := e.cube.Dimension(x.Dimension)
	if !ok {
		return nil, fmt.Errorf("dimension %q not found in cube %q", x.Dimension, e.cube.Name)
	}
	members, err := e.levelMembers(ctx, dim)
	if err != nil {
		return nil, err
	}

	out := make([]tuple, 0, len(members)+1)
	if !x.Levels {
		out = append(out, tuple{allMember(dim)})
	}
	for _, m := range members {
		out = append(out, tuple{m})
	}
	return out, nil
}

func (e *evaluator) evalCrossJoin(ctx context.Context, x *CrossJoinExpr) ([]tuple, error) {
	left, err := e.evalSet(ctx, x.Left)
	if err != nil {
		return nil, err
	}
	right, err := e.evalSet(ctx, x.Right)
	if err != nil {
		return nil, err
	}
	if len(left) == 0 || len(right) == 0 {
		return []tuple{}, nil
	}
	if d := overlap(dimensionsOf(left[0]), dimensionsOf(right[0])); d != "" {
		return nil, fmt.Errorf("CrossJoin: dimension %q appears in both sets", d)
	}

	out := make([]tuple, 0, len(left)*len(right))
	for _, l := range left {
		for _, r := range right {
			t := make(tuple, 0, len(l)+len(r))
			out = append(out, append(append(t, l...), r...))
		}
	}
	return out, nil
}

// evalTop sorts by the value expression, largest first for TopCount and
// smallest first for BottomCount, then keeps the first Count tuples.
// Without a value expression the set order is kept.
func (e *evaluator) evalTop(ctx context.Context, x *TopExpr) ([]tuple, error) {
	set, err := e.evalSet(ctx, x.Set)
	if err != nil {
		return nil, err
	}
	if x.By != nil {
		flag := OrderBDesc
		if x.Bottom {
			flag = OrderBAsc
		}
		if set, err = e.order(ctx, set, x.By, flag); err != nil {
			return nil, err
		}
	}
	return head(set, x.Count), nil
}

// order sorts set by the value of each tuple overridden by by. Hierarchical
// flags keep tuples led by an All member ahead of their children.
func (e *evaluator) order(ctx context.Context, set []tuple, by *TupleExpr, flag OrderFlag) ([]tuple, error) {
	override, err := e.resolveTuple(ctx, by)
	if err != nil {
		return nil, err
	}

	contexts := make([]tuple, len(set))
	for i, t := range set {
		contexts[i] = merge(merge(e.slicer, t), override)
	}
	vals, err := e.values(ctx, contexts)
	if err != nil {
		return nil, err
	}

	idx := allIndexes(len(set))
	sort.SliceStable(idx, func(i, j int) bool {
		a, b := idx[i], idx[j]
		if !flag.Breaks() {
			pa, pb := leadsWithAll(set[a]), leadsWithAll(set[b])
			if pa != pb {
				return pa
			}
		}
		c := compareValues(vals[a], vals[b])
		if flag.Descending() {
			return c > 0
		}
		return c < 0
	})

	out := make([]tuple, len(set))
	for i, k := range idx {
		out[i] = set[k]
	}
	return out, nil
}

// === Member resolution ===

func (e *evaluator) resolveTuple(ctx context.Context, x *TupleExpr) (tuple, error) {
	t := make(tuple, 0, len(x.Members))
	seen := map[string]bool{}
	for _, ref := range x.Members {
		m, err := e.resolveMember(ctx, ref)
		if err != nil {
			return nil, err
		}
		if seen[m.Dimension] {
			return nil, fmt.Errorf("tuple contains more than one member of dimension %q", m.Dimension)
		}
		seen[m.Dimension] = true
		t = append(t, m)
	}
	return t, nil
}

func (e *evaluator) resolveMember(ctx context.Context, ref MemberRef) (domain.Member, error) {
	segs := ref.Segments
	switch len(segs) {
	case 1:
		if dim, ok := e.cube.Dimension(segs[0]); ok {
			return allMember(dim), nil
		}
		if m, _, ok := e.cube.Measure(segs[0]); ok {
			return measureMember(m.Name), nil
		}
		return domain.Member{}, fmt.Errorf("member %s not found in cube %q", joinPath(segs), e.cube.Name)
	case 2:
	case 3:
		if !strings.EqualFold(segs[0], segs[1]) {
			return domain.Member{}, fmt.Errorf("level %s not found", joinPath(segs[:2]))
		}
		segs = []string{segs[0], segs[2]}
	default:
		return domain.Member{}, fmt.Errorf("member %s not found in cube %q", joinPath(segs), e.cube.Name)
	}

	if strings.EqualFold(segs[0], domain.MeasuresDimension) {
		m, _, ok := e.cube.Measure(segs[1])
		if !ok {
			return domain.Member{}, fmt.Errorf("measure %q not found in cube %q", segs[1], e.cube.Name)
		}
		return measureMember(m.Name), nil
	}

	dim, ok := e.cube.Dimension(segs[0])
	if !ok {
		return domain.Member{}, fmt.Errorf("dimension %q not found in cube %q", segs[0], e.cube.Name)
	}
	if all := allMember(dim); strings.EqualFold(segs[1], all.Name) {
		return all, nil
	}

	members, err := e.levelMembers(ctx, dim)
	if err != nil {
		return domain.Member{}, err
	}
	// A stored value spelled like the NULL member shadows it: level
	// members list the NULL member last.
	for _, m := range members {
		if m.Name == segs[1] {
			return m, nil
		}
	}
	return domain.Member{}, fmt.Errorf("member %s not found in cube %q", joinPath(ref.Segments), e.cube.Name)
}

// levelMembers returns the distinct key values of dim ordered by key, with
// the NULL member last.
func (e *evaluator) levelMembers(ctx context.Context, dim *schemagen.Dimension) ([]domain.Member, error) {
	if ms, ok := e.members[dim.Name]; ok {
		return ms, nil
	}

	d := e.conn.Dialect()
	col := d.QuoteIdent(dim.KeyColumn())
	query := fmt.Sprintf("SELECT %s AS %s FROM %s GROUP BY %s ORDER BY %s",
		d.Text(col), d.QuoteIdent("k"), d.Table(e.dbSchema, e.factTable()), col, col)
	e.logger.Debug("olap members query", "dimension", dim.Name, "sql", query)

	res, err := e.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("read members of %q: %w", dim.Name, err)
	}

	members := make([]domain.Member, 0, len(res.Rows))
	hasNull := false
	for _, row := range res.Rows {
		if row[0] == nil {
			hasNull = true
			continue
		}
		members = append(members, domain.Member{Dimension: dim.Name, Name: fmt.Sprint(row[0])})
	}
	if hasNull {
		members = append(members, domain.Member{Dimension: dim.Name, Name: NullMemberName, Null: true})
	}
	e.members[dim.Name] = members
	return members, nil
}

// factTable returns the table of the cube's first measure group.
func (e *evaluator) factTable() string {
	if len(e.cube.MeasureGroups.List) > 0 {
		return e.cube.MeasureGroups.List[0].Table
	}
	return e.cube.Name
}

// === Cell values ===

// cellRequest is one cell to compute: a measure within a group of
// constrained dimensions.
type cellRequest struct {
	table    string
	measure  *schemagen.Measure
	dims     []*schemagen.Dimension
	shapeKey string
	rowKey   string
}

// values computes the cell value of every tuple, issuing one grouped query
// per distinct (table, dimension set).
func (e *evaluator) values(ctx context.Context, tuples []tuple) ([]interface{}, error) {
	reqs := make([]cellRequest, len(tuples))
	pending := map[string][]cellRequest{}
	for i, t := range tuples {
		req, err := e.request(t)
		if err != nil {
			return nil, err
		}
		reqs[i] = req
		if req.measure == nil {
			continue
		}
		if _, ok := e.groups[req.shapeKey][req.measure.Name]; !ok {
			pending[req.shapeKey] = append(pending[req.shapeKey], req)
		}
	}

	keys := make([]string, 0, len(pending))
	for k := range pending {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := e.fetch(ctx, pending[k]); err != nil {
			return nil, err
		}
	}

	out := make([]interface{}, len(reqs))
	for i, req := range reqs {
		if req.measure == nil {
			continue
		}
		out[i] = e.groups[req.shapeKey][req.measure.Name][req.rowKey]
	}
	return out, nil
}

func (e *evaluator) request(t tuple) (cellRequest, error) {
	var (
		measure *schemagen.Measure
		group   *schemagen.MeasureGroup
		keyed   = map[string]domain.Member{}
	)
	for _, m := range t {
		switch {
		case m.IsMeasure():
			if measure != nil {
				return cellRequest{}, fmt.Errorf("tuple contains more than one measure")
			}
			measure, group, _ = e.cube.Measure(m.Name)
		case !m.All:
			keyed[m.Dimension] = m
		}
	}
	if measure == nil {
		all := e.cube.AllMeasures()
		if len(all) == 0 {
			// A cube without measures has only empty cells.
			return cellRequest{}, nil
		}
		measure, group, _ = e.cube.Measure(all[0].Name)
	}

	req := cellRequest{table: group.Table, measure: measure}
	var shape, row []string
	for i := range e.cube.Dimensions.List {
		dim := &e.cube.Dimensions.List[i]
		m, ok := keyed[dim.Name]
		if !ok {
			continue
		}
		req.dims = append(req.dims, dim)
		shape = append(shape, dim.Name)
		row = append(row, memberKey(m))
	}
	req.shapeKey = joinKey(append([]string{strconv.Quote(group.Table)}, quoteAll(shape)...))
	req.rowKey = joinKey(row)
	return req, nil
}

// fetch runs one grouped query for requests sharing a shape and stores the
// aggregates of every requested measure.
func (e *evaluator) fetch(ctx context.Context, reqs []cellRequest) error {
	first := reqs[0]
	var measures []*schemagen.Measure
	seen := map[string]bool{}
	for _, r := range reqs {
		if !seen[r.measure.Name] {
			seen[r.measure.Name] = true
			measures = append(measures, r.measure)
		}
	}

	query, args := e.aggregateSQL(first.table, first.dims, measures)
	e.logger.Debug("olap cell query", "sql", query, "args", args)

	res, err := e.conn.Query(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("compute cells: %w", err)
	}

	byMeasure := e.groups[first.shapeKey]
	if byMeasure == nil {
		byMeasure = map[string]map[string]interface{}{}
		e.groups[first.shapeKey] = byMeasure
	}
	for _, m := range measures {
		byMeasure[m.Name] = map[string]interface{}{}
	}

	n := len(first.dims)
	for _, row := range res.Rows {
		key := make([]string, n)
		for i := 0; i < n; i++ {
			if row[i] == nil {
				key[i] = nullKey
			} else {
				key[i] = strconv.Quote(fmt.Sprint(row[i]))
			}
		}
		rowKey := joinKey(key)
		for j, m := range measures {
			byMeasure[m.Name][rowKey] = normalize(row[n+j])
		}
	}
	return nil
}

// aggregateSQL builds the grouped SUM query for a shape. Slicer filters
// become WHERE predicates.
func (e *evaluator) aggregateSQL(table string, dims []*schemagen.Dimension, measures []*schemagen.Measure) (string, []interface{}) {
	d := e.conn.Dialect()

	var sel, groupBy []string
	for i, dim := range dims {
		expr := d.Text(d.QuoteIdent(dim.KeyColumn()))
		sel = append(sel, expr+" AS "+d.QuoteIdent(fmt.Sprintf("k%d", i)))
		groupBy = append(groupBy, expr)
	}
	for i, m := range measures {
		sel = append(sel, "SUM("+d.QuoteIdent(m.Column)+") AS "+d.QuoteIdent(fmt.Sprintf("v%d", i)))
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(sel, ", "))
	b.WriteString(" FROM ")
	b.WriteString(d.Table(e.dbSchema, table))

	var (
		where []string
		args  []interface{}
	)
	for _, f := range e.filters {
		dim, _ := e.cube.Dimension(f.Dimension)
		col := d.QuoteIdent(dim.KeyColumn())
		if f.Null {
			where = append(where, col+" IS NULL")
			continue
		}
		args = append(args, f.Name)
		where = append(where, d.Text(col)+" = "+d.Placeholder(len(args)))
	}
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	if len(groupBy) > 0 {
		b.WriteString(" GROUP BY ")
		b.WriteString(strings.Join(groupBy, ", "))
	}
	return b.String(), args
}

// === Helpers ===

func measureMember(name string) domain.Member {
	return domain.Member{Dimension: domain.MeasuresDimension, Name: name}
}

// allMember returns the All member of dim, named "All <dim>s".
func allMember(dim *schemagen.Dimension) domain.Member {
	return domain.Member{Dimension: dim.Name, Name: "All " + dim.Name + "s", All: true}
}

func memberKey(m domain.Member) string {
	if m.Null {
		return nullKey
	}
	return strconv.Quote(m.Name)
}

// joinKey joins encoded key parts. Parts are either nullKey or quoted
// strings, so the result is unambiguous whatever the values contain.
func joinKey(parts []string) string {
	return strings.Join(parts, ",")
}

func quoteAll(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = strconv.Quote(n)
	}
	return out
}

// merge returns base with every member of override replacing the member of
// the same dimension, or appended when base has none.
func merge(base, override tuple) tuple {
	out := append(tuple{}, base...)
	for _, o := range override {
		replaced := false
		for i := range out {
			if out[i].Dimension == o.Dimension || (out[i].IsMeasure() && o.IsMeasure()) {
				out[i] = o
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, o)
		}
	}
	return out
}

func leadsWithAll(t tuple) bool {
	return len(t) > 0 && t[0].All
}

func dimensionsOf(t tuple) []string {
	dims := make([]string, len(t))
	for i, m := range t {
		dims[i] = m.Dimension
	}
	return dims
}

func firstDims(set []tuple) []string {
	if len(set) == 0 {
		return nil
	}
	return dimensionsOf(set[0])
}

func overlap(a, b []string) string {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return x
			}
		}
	}
	return ""
}

// checkIndependentAxes rejects a dimension used on more than one axis or
// on an axis and in the slicer.
func checkIndependentAxes(cols, rows, slicer []string) error {
	if d := overlap(cols, rows); d != "" {
		return fmt.Errorf("dimension %q appears on more than one axis", d)
	}
	if d := overlap(append(append([]string{}, cols...), rows...), slicer); d != "" {
		return fmt.Errorf("dimension %q appears on an axis and in the slicer", d)
	}
	return nil
}

// checkDimensionality requires every tuple of a set to range over the same
// dimensions in the same order.
func checkDimensionality(set []tuple) error {
	if len(set) == 0 {
		return nil
	}
	want := strings.Join(dimensionsOf(set[0]), ",")
	for _, t := range set[1:] {
		if got := strings.Join(dimensionsOf(t), ","); got != want {
			return fmt.Errorf("set mixes tuples of (%s) and (%s)", want, got)
		}
	}
	return nil
}

func allIndexes(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

// nonEmpty returns the positions of an axis of length n that have at least
// one non-empty cell across the kept positions of the other axis.
func nonEmpty(n int, other []int, filled func(pos, o int) bool) []int {
	keep := []int{}
	for p := 0; p < n; p++ {
		for _, o := range other {
			if filled(p, o) {
				keep = append(keep, p)
				break
			}
		}
	}
	return keep
}

func head(set []tuple, n int) []tuple {
	if n < 0 {
		n = 0
	}
	if n > len(set) {
		n = len(set)
	}
	return set[:n]
}

func tail(set []tuple, n int) []tuple {
	if n < 0 {
		n = 0
	}
	if n > len(set) {
		n = len(set)
	}
	return set[len(set)-n:]
}
