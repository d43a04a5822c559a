package parse

import (
	"github.com/lsst-qserv/qserv-core/ir"
)

func init() {
	registerAdapter("Root", func(parent Adapter, d *Driver) Adapter {
		return &rootAdapter{driver: d}
	})
	registerAdapter("Select", func(parent Adapter, d *Driver) Adapter {
		return &selectAdapter{parent: parent, driver: d}
	})
	registerAdapter("SelectElements", func(parent Adapter, d *Driver) Adapter {
		return &selectElementsAdapter{parent: parent, driver: d}
	})
	registerAdapter("SelectElement", func(parent Adapter, d *Driver) Adapter {
		return &selectElementAdapter{parent: parent, driver: d}
	})
}

// selectStatementHandler is implemented by whatever adapter is the parent
// of a "Select" rule (Root, for this driver — nesting is not supported).
type selectStatementHandler interface {
	HandleSelectStatement(*ir.SelectStmt)
}

// adminStatementHandler is implemented by Root for CallStatement/SetGlobal
// children.
type adminStatementHandler interface {
	HandleAdminStatement(*ir.AdminStmt)
}

// rootAdapter is the base of the stack: exactly one child produces either
// a SelectStmt or an AdminStmt.
type rootAdapter struct {
	driver *Driver
	ctx    *RuleCtx
	stmt   *ir.SelectStmt
	admin  *ir.AdminStmt
}

func (a *rootAdapter) Name() string { return "Root" }
func (a *rootAdapter) OnEnter()      {}

func (a *rootAdapter) CheckContext(ctx *RuleCtx) error {
	a.ctx = ctx
	if !ctx.Has("EOF") {
		return ErrAdapterExecution.New("Root", "missing EOF")
	}
	return nil
}

func (a *rootAdapter) HandleSelectStatement(stmt *ir.SelectStmt) {
	a.stmt = stmt
}

func (a *rootAdapter) HandleAdminStatement(admin *ir.AdminStmt) {
	a.admin = admin
}

func (a *rootAdapter) OnExit() error {
	if a.stmt == nil && a.admin == nil {
		return ErrAdapterExecution.New("Root", "could not parse query")
	}
	a.driver.result = Result{Select: a.stmt, Admin: a.admin}
	return nil
}

// selectAdapter merges the source's SimpleSelectAdapter and
// QuerySpecificationAdapter.
// DISTINCT and LIMIT are simple grammar tokens with no sub-rule of their
// own in this driver's rule set, so they are read directly off this rule's
// ctx rather than via dedicated SelectSpec/LimitClause adapters.
type selectAdapter struct {
	parent Adapter
	driver *Driver
	ctx    *RuleCtx

	selectList *ir.SelectList
	fromList   *ir.FromList
	where      *ir.WhereClause
	groupBy    *ir.GroupByClause
	having     *ir.HavingClause
	orderBy    *ir.OrderByClause
}

func (a *selectAdapter) Name() string { return "Select" }
func (a *selectAdapter) OnEnter()      {}

func (a *selectAdapter) CheckContext(ctx *RuleCtx) error {
	a.ctx = ctx
	return nil
}

func (a *selectAdapter) HandleSelectList(sl *ir.SelectList) {
	a.selectList = sl
}

func (a *selectAdapter) HandleFromClause(fl *ir.FromList, w *ir.WhereClause, g *ir.GroupByClause, h *ir.HavingClause) {
	a.fromList = fl
	a.where = w
	a.groupBy = g
	a.having = h
}

func (a *selectAdapter) HandleOrderByClause(o *ir.OrderByClause) {
	a.orderBy = o
}

func (a *selectAdapter) OnExit() error {
	if a.selectList == nil {
		return ErrAdapterExecution.New("Select", "failed to build a select list")
	}
	stmt := ir.NewSelectStmt()
	stmt.SelectList = a.selectList
	stmt.FromList = a.fromList
	stmt.Where = a.where
	stmt.GroupBy = a.groupBy
	stmt.Having = a.having
	stmt.OrderBy = a.orderBy
	stmt.Distinct = a.ctx.Bool("distinct")
	if limit := a.ctx.Int("limit"); limit > 0 || a.ctx.Attrs["limit"] != nil {
		stmt.Limit = limit
	}
	parent, ok := a.parent.(selectStatementHandler)
	if !ok {
		return ErrAdapterExecution.New("Select", "parent does not accept a select statement")
	}
	parent.HandleSelectStatement(stmt)
	return nil
}

// selectElementsAdapter gathers SelectElement children into a SelectList.
type selectElementsAdapter struct {
	parent Adapter
	driver *Driver

	items []*ir.ValueExpr
}

func (a *selectElementsAdapter) Name() string                     { return "SelectElements" }
func (a *selectElementsAdapter) OnEnter()                          {}
func (a *selectElementsAdapter) CheckContext(ctx *RuleCtx) error { return nil }

func (a *selectElementsAdapter) HandleSelectElement(v *ir.ValueExpr) {
	a.items = append(a.items, v)
}

func (a *selectElementsAdapter) OnExit() error {
	parent, ok := a.parent.(interface{ HandleSelectList(*ir.SelectList) })
	if !ok {
		return ErrAdapterExecution.New("SelectElements", "parent does not accept a select list")
	}
	parent.HandleSelectList(&ir.SelectList{Items: a.items})
	return nil
}

// selectElementAdapter builds one SELECT-list item. Its ctx carries the
// fully-resolved ValueExpr directly in Attrs["value"] (for star/aggregate/
// expression elements, which this driver does not further decompose) or
// leaves it nil to be supplied by a FullColumnName child for the plain
// column-reference case.
type selectElementAdapter struct {
	parent Adapter
	driver *Driver
	ctx    *RuleCtx

	value *ir.ValueExpr
}

func (a *selectElementAdapter) Name() string { return "SelectElement" }
func (a *selectElementAdapter) OnEnter()      {}

func (a *selectElementAdapter) CheckContext(ctx *RuleCtx) error {
	a.ctx = ctx
	if v, ok := ctx.Attrs["value"].(*ir.ValueExpr); ok {
		a.value = v
	}
	return nil
}

func (a *selectElementAdapter) HandleFullColumnName(f *ir.ValueFactor) {
	a.value = ir.NewValueExpr(f)
}

func (a *selectElementAdapter) OnExit() error {
	if a.value == nil {
		return ErrAdapterExecution.New("SelectElement", "select element was not populated")
	}
	if alias := a.ctx.Str("alias"); alias != "" {
		a.value.Alias = alias
	}
	parent, ok := a.parent.(interface{ HandleSelectElement(*ir.ValueExpr) })
	if !ok {
		return ErrAdapterExecution.New("SelectElement", "parent does not accept a select element")
	}
	parent.HandleSelectElement(a.value)
	return nil
}
