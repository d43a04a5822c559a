package ir

import "github.com/lsst-qserv/qserv-core/ir/render"

// SelectList is the ordered list of projected value expressions.
type SelectList struct {
	Items []*ValueExpr
}

func (s *SelectList) Render(qt *render.QueryTemplate) {
	for i, item := range s.Items {
		if i > 0 {
			qt.Comma()
		}
		item.Render(qt)
	}
}

// FromList is the ordered list of table references in a FROM clause.
type FromList struct {
	Tables []*TableRef
}

func (f *FromList) Render(qt *render.QueryTemplate) {
	qt.Append("FROM")
	for i, t := range f.Tables {
		if i > 0 {
			qt.Comma()
		}
		t.Render(qt)
	}
}

// OrderDirection is ASC (default) or DESC.
type OrderDirection int

const (
	OrderAsc OrderDirection = iota
	OrderDesc
)

// OrderByTerm is one `expr [ASC|DESC]` entry.
type OrderByTerm struct {
	Expr      *ValueExpr
	Direction OrderDirection
}

// OrderByClause is the ordered list of ORDER BY terms.
type OrderByClause struct {
	Terms []OrderByTerm
}

func (o *OrderByClause) Render(qt *render.QueryTemplate) {
	qt.Append("ORDER BY")
	for i, t := range o.Terms {
		if i > 0 {
			qt.Comma()
		}
		t.Expr.Render(qt)
		if t.Direction == OrderDesc {
			qt.Append("DESC")
		}
	}
}

// GroupByClause is the ordered list of GROUP BY expressions.
type GroupByClause struct {
	Items []*ValueExpr
}

func (g *GroupByClause) Render(qt *render.QueryTemplate) {
	qt.Append("GROUP BY")
	for i, item := range g.Items {
		if i > 0 {
			qt.Comma()
		}
		item.Render(qt)
	}
}

// HavingClause wraps a boolean predicate evaluated after grouping.
type HavingClause struct {
	Root BoolTerm
}

func (h *HavingClause) Render(qt *render.QueryTemplate) {
	qt.Append("HAVING")
	h.Root.Render(qt)
}

// NoLimit is the sentinel Limit value meaning "no LIMIT clause".
const NoLimit = -1

// SelectStmt is the root IR node for a SELECT-family query.
type SelectStmt struct {
	SelectList *SelectList
	FromList   *FromList
	Where      *WhereClause
	GroupBy    *GroupByClause
	Having     *HavingClause
	OrderBy    *OrderByClause
	Distinct   bool
	Limit      int
}

// NewSelectStmt builds a SelectStmt with Limit defaulted to NoLimit.
func NewSelectStmt() *SelectStmt {
	return &SelectStmt{Limit: NoLimit}
}

// Render serializes the full SELECT statement in clause order.
func (s *SelectStmt) Render(qt *render.QueryTemplate) {
	qt.Append("SELECT")
	if s.Distinct {
		qt.Append("DISTINCT")
	}
	if s.SelectList != nil {
		s.SelectList.Render(qt)
	}
	if s.FromList != nil {
		s.FromList.Render(qt)
	}
	if s.Where != nil {
		s.Where.Render(qt)
	}
	if s.GroupBy != nil {
		s.GroupBy.Render(qt)
	}
	if s.Having != nil {
		s.Having.Render(qt)
	}
	if s.OrderBy != nil {
		s.OrderBy.Render(qt)
	}
	if s.Limit >= 0 {
		qt.Append("LIMIT")
		qt.Append(itoa(s.Limit))
	}
}

// itoa avoids pulling in strconv at every call site that just wants an int
// rendered as a SQL literal token.
func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// AdminStmt represents the two administrative statement forms accepted by
// the parse driver: `CALL QSERV_MANAGER('<string>')` and
// `SET GLOBAL <name> = <literal>`.
type AdminStmt struct {
	// Kind is either "CALL" or "SET".
	Kind string

	// CALL QSERV_MANAGER fields.
	CallArg string

	// SET GLOBAL fields.
	VarName  string
	VarValue string
}

func (a *AdminStmt) Render(qt *render.QueryTemplate) {
	switch a.Kind {
	case "CALL":
		qt.Append("CALL")
		qt.Append("QSERV_MANAGER")
		qt.OpenParen()
		qt.Append("'" + a.CallArg + "'")
		qt.CloseParen()
	case "SET":
		qt.Append("SET")
		qt.Append("GLOBAL")
		qt.AppendIdentifier(a.VarName)
		qt.Append("=")
		qt.Append(a.VarValue)
	}
}
