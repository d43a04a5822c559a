package parse

import (
	"strings"

	"github.com/lsst-qserv/qserv-core/ir"
)

func init() {
	registerAdapter("FromClause", func(parent Adapter, d *Driver) Adapter {
		return &fromClauseAdapter{parent: parent, driver: d}
	})
	registerAdapter("TableSources", func(parent Adapter, d *Driver) Adapter {
		return &tableSourcesAdapter{parent: parent, driver: d}
	})
	registerAdapter("TableSource", func(parent Adapter, d *Driver) Adapter {
		return &tableSourceAdapter{parent: parent, driver: d}
	})
	registerAdapter("Join", func(parent Adapter, d *Driver) Adapter {
		return &joinAdapter{parent: parent, driver: d}
	})
	registerAdapter("QservFunctionSpec", func(parent Adapter, d *Driver) Adapter {
		return &qservFunctionSpecAdapter{parent: parent, driver: d}
	})
	registerAdapter("GroupByItem", func(parent Adapter, d *Driver) Adapter {
		return &groupByItemAdapter{parent: parent, driver: d}
	})
}

// whereHavingTermHandler is implemented by anything that can accept a
// completed BoolTerm destined for a WHERE or HAVING root: FromClause
// itself, and LogicalExpression for nested AND/OR groups.
type whereHavingTermHandler interface {
	HandleWhereOrHavingTerm(t ir.BoolTerm, slot string) error
}

// joinOnHandler accepts the BoolTerm produced by an ON predicate inside a
// join clause.
type joinOnHandler interface {
	HandleJoinOn(t ir.BoolTerm) error
}

// valueExprPredicateHandler accepts a bare ValueExpr produced by a
// PredicateExpression rule used in a non-boolean context (ORDER BY
// expressions; a GROUP BY item carries its ValueExpr in its own ctx instead).
type valueExprPredicateHandler interface {
	HandleValueExprPredicate(v *ir.ValueExpr) error
}

// fromClauseAdapter aggregates the FROM list plus any WHERE/GROUP
// BY/HAVING clauses that hang off the same grammar rule.
type fromClauseAdapter struct {
	parent Adapter
	driver *Driver
	ctx    *RuleCtx

	tableRefs []*ir.TableRef
	where     *ir.WhereClause
	groupBy   *ir.GroupByClause
	having    *ir.HavingClause
}

func (a *fromClauseAdapter) Name() string { return "FromClause" }
func (a *fromClauseAdapter) OnEnter()      {}

func (a *fromClauseAdapter) CheckContext(ctx *RuleCtx) error {
	a.ctx = ctx
	if !ctx.Has("FROM") {
		return ErrAdapterExecution.New("FromClause", "missing FROM")
	}
	if ctx.Has("WITH") {
		return ErrAdapterOrder.New(ctx.Text, "WITH is not supported")
	}
	if ctx.Has("ROLLUP") {
		return ErrAdapterOrder.New(ctx.Text, "ROLLUP is not supported")
	}
	return nil
}

func (a *fromClauseAdapter) HandleTableSources(refs []*ir.TableRef) {
	a.tableRefs = refs
}

func (a *fromClauseAdapter) getWhereClause() *ir.WhereClause {
	if a.where == nil {
		a.where = &ir.WhereClause{}
	}
	return a.where
}

func (a *fromClauseAdapter) HandleWhereOrHavingTerm(t ir.BoolTerm, slot string) error {
	// A term already shaped as an AndTerm (the common case once it has
	// passed through a top-level "AND"-kind LogicalExpression) becomes the
	// OrTerm child directly; anything else (a bare BoolFactor, or an
	// OrTerm) gets wrapped in a new single-child AndTerm so the OrTerm
	// root's CNF-shape invariant holds.
	andTerm, ok := t.(*ir.AndTerm)
	if !ok {
		andTerm = ir.NewAndTerm(t)
	}
	switch slot {
	case "where":
		wc := a.getWhereClause()
		if wc.Root == nil {
			wc.Root = ir.NewOrTerm()
		}
		wc.Root.Terms = append(wc.Root.Terms, andTerm)
	case "having":
		if a.having != nil {
			return ErrAdapterExecution.New("FromClause", "having clause should only be set once")
		}
		a.having = &ir.HavingClause{Root: ir.NewOrTerm(andTerm)}
	default:
		return ErrAdapterExecution.New("FromClause", "this predicate expression is not yet supported")
	}
	return nil
}

func (a *fromClauseAdapter) HandleQservFunctionSpec(function string, args []string) error {
	kind, ok := parseRestrictorKind(function)
	if !ok {
		return ErrAdapterOrder.New(function, "unhandled restrictor function")
	}
	a.getWhereClause().AreaRestrictors = append(a.getWhereClause().AreaRestrictors, &ir.AreaRestrictor{Kind: kind, Args: args})
	return nil
}

func (a *fromClauseAdapter) HandleGroupByItem(v *ir.ValueExpr) {
	if a.groupBy == nil {
		a.groupBy = &ir.GroupByClause{}
	}
	a.groupBy.Items = append(a.groupBy.Items, v)
}

func (a *fromClauseAdapter) OnExit() error {
	parent, ok := a.parent.(interface {
		HandleFromClause(*ir.FromList, *ir.WhereClause, *ir.GroupByClause, *ir.HavingClause)
	})
	if !ok {
		return ErrAdapterExecution.New("FromClause", "parent does not accept a from clause")
	}
	parent.HandleFromClause(&ir.FromList{Tables: a.tableRefs}, a.where, a.groupBy, a.having)
	return nil
}

func parseRestrictorKind(function string) (ir.RestrictorKind, bool) {
	switch strings.ToLower(function) {
	case "qserv_areaspec_box":
		return ir.RestrictorBox, true
	case "qserv_areaspec_circle":
		return ir.RestrictorCircle, true
	case "qserv_areaspec_ellipse":
		return ir.RestrictorEllipse, true
	case "qserv_areaspec_poly":
		return ir.RestrictorPoly, true
	default:
		return 0, false
	}
}

// tableSourcesAdapter gathers TableSource children into an ordered list.
type tableSourcesAdapter struct {
	parent Adapter
	driver *Driver

	refs []*ir.TableRef
}

func (a *tableSourcesAdapter) Name() string                     { return "TableSources" }
func (a *tableSourcesAdapter) OnEnter()                          {}
func (a *tableSourcesAdapter) CheckContext(ctx *RuleCtx) error { return nil }

func (a *tableSourcesAdapter) HandleTableSource(t *ir.TableRef) {
	a.refs = append(a.refs, t)
}

func (a *tableSourcesAdapter) OnExit() error {
	parent, ok := a.parent.(interface{ HandleTableSources([]*ir.TableRef) })
	if !ok {
		return ErrAdapterExecution.New("TableSources", "parent does not accept table sources")
	}
	parent.HandleTableSources(a.refs)
	return nil
}

// tableSourceAdapter merges the source's TableSourceBaseAdapter and
// AtomTableItemAdapter: db/table/alias are read directly off this rule's ctx rather
// than via a TableName/FullId/Uid sub-chain.
type tableSourceAdapter struct {
	parent Adapter
	driver *Driver
	ctx    *RuleCtx

	joins []*ir.JoinRef
}

func (a *tableSourceAdapter) Name() string { return "TableSource" }
func (a *tableSourceAdapter) OnEnter()      {}

func (a *tableSourceAdapter) CheckContext(ctx *RuleCtx) error {
	a.ctx = ctx
	if ctx.Has("PARTITION") {
		return ErrAdapterOrder.New(ctx.Text, "PARTITION is not supported")
	}
	return nil
}

func (a *tableSourceAdapter) HandleJoin(j *ir.JoinRef) {
	a.joins = append(a.joins, j)
}

func (a *tableSourceAdapter) OnExit() error {
	db, err := normalizeOrEmpty(a.ctx.Str("db"))
	if err != nil {
		return err
	}
	table, err := normalizeIdentifier(a.ctx.Str("table"))
	if err != nil {
		return err
	}
	alias, err := normalizeOrEmpty(a.ctx.Str("alias"))
	if err != nil {
		return err
	}
	tableRef := &ir.TableRef{Db: db, Table: table, Alias: alias, Joins: a.joins}
	if err := tableRef.Validate(); err != nil {
		return err
	}
	parent, ok := a.parent.(interface{ HandleTableSource(*ir.TableRef) })
	if !ok {
		return ErrAdapterExecution.New("TableSource", "parent does not accept a table source")
	}
	parent.HandleTableSource(tableRef)
	return nil
}

func normalizeOrEmpty(raw string) (string, error) {
	if raw == "" {
		return "", nil
	}
	return normalizeIdentifier(raw)
}

// joinAdapter merges the source's InnerJoinAdapter and NaturalJoinAdapter:
// ctx carries "kind" (JOIN|INNER|CROSS), "natural" and a "using" column
// list as direct attrs, and an ON predicate arrives as a nested
// PredicateExpression/LogicalExpression child through joinOnHandler.
type joinAdapter struct {
	parent Adapter
	driver *Driver
	ctx    *RuleCtx

	right *ir.TableRef
	on    ir.BoolTerm
}

func (a *joinAdapter) Name() string { return "Join" }
func (a *joinAdapter) OnEnter()      {}

func (a *joinAdapter) CheckContext(ctx *RuleCtx) error {
	a.ctx = ctx
	return nil
}

func (a *joinAdapter) HandleTableSource(t *ir.TableRef) {
	a.right = t
}

func (a *joinAdapter) HandleJoinOn(t ir.BoolTerm) error {
	if a.on != nil {
		return ErrAdapterExecution.New("Join", "unexpected second ON predicate")
	}
	a.on = unwrapParenthesizedBoolTerm(t)
	return nil
}

func (a *joinAdapter) OnExit() error {
	if a.right == nil {
		return ErrAdapterExecution.New("Join", "table ref was not populated")
	}
	kind := parseJoinKind(a.ctx.Str("kind"))
	var spec *ir.JoinSpec
	if cols, ok := a.ctx.Attrs["using"].([]ir.ColumnRef); ok && len(cols) > 0 {
		spec = &ir.JoinSpec{Using: cols}
	} else if a.on != nil {
		spec = &ir.JoinSpec{On: a.on}
	}
	jr := &ir.JoinRef{Right: a.right, Kind: kind, Natural: a.ctx.Bool("natural"), Spec: spec}
	if err := jr.Validate(); err != nil {
		return err
	}
	parent, ok := a.parent.(interface{ HandleJoin(*ir.JoinRef) })
	if !ok {
		return ErrAdapterExecution.New("Join", "parent does not accept a join")
	}
	parent.HandleJoin(jr)
	return nil
}

func parseJoinKind(tok string) ir.JoinKind {
	switch strings.ToUpper(tok) {
	case "INNER":
		return ir.JoinInner
	case "CROSS":
		return ir.JoinCross
	case "LEFT":
		return ir.JoinLeft
	case "RIGHT":
		return ir.JoinRight
	case "FULL":
		return ir.JoinFull
	case "UNION":
		return ir.JoinUnion
	default:
		return ir.JoinDefault
	}
}

// unwrapParenthesizedBoolTerm extracts the inner BoolTerm out of a
// single-element parenthesized BoolFactor, mirroring
// InnerJoinAdapter::_getNestedBoolTerm in the C++ source: a JOIN's ON
// clause does not expect the HasParentheses wrapping that WHERE-clause
// parenthesization produces.
func unwrapParenthesizedBoolTerm(t ir.BoolTerm) ir.BoolTerm {
	bf, ok := t.(*ir.BoolFactor)
	if !ok || !bf.HasParentheses || bf.HasNot || len(bf.Terms) != 1 {
		return t
	}
	if inner, ok := bf.Terms[0].(*ir.BoolTermFactor); ok {
		return inner.Term
	}
	return t
}

// qservFunctionSpecAdapter builds an area restrictor's (name, args) pair
// from its ctx, leaving kind resolution and WhereClause attachment to
// FromClause.
type qservFunctionSpecAdapter struct {
	parent Adapter
	driver *Driver
	ctx    *RuleCtx
}

func (a *qservFunctionSpecAdapter) Name() string { return "QservFunctionSpec" }
func (a *qservFunctionSpecAdapter) OnEnter()      {}

func (a *qservFunctionSpecAdapter) CheckContext(ctx *RuleCtx) error {
	a.ctx = ctx
	function := ctx.Str("function")
	if _, ok := parseRestrictorKind(function); !ok {
		return ErrAdapterExecution.New("QservFunctionSpec", "context check failure: no recognized restrictor function")
	}
	return nil
}

func (a *qservFunctionSpecAdapter) OnExit() error {
	args, _ := a.ctx.Attrs["args"].([]string)
	parent, ok := a.parent.(interface {
		HandleQservFunctionSpec(string, []string) error
	})
	if !ok {
		return ErrAdapterExecution.New("QservFunctionSpec", "parent does not accept a restrictor")
	}
	return parent.HandleQservFunctionSpec(a.ctx.Str("function"), args)
}

// groupByItemAdapter carries its resolved ValueExpr directly in ctx.Attrs.
type groupByItemAdapter struct {
	parent Adapter
	driver *Driver
	ctx    *RuleCtx
}

func (a *groupByItemAdapter) Name() string { return "GroupByItem" }
func (a *groupByItemAdapter) OnEnter()      {}

func (a *groupByItemAdapter) CheckContext(ctx *RuleCtx) error {
	a.ctx = ctx
	return nil
}

func (a *groupByItemAdapter) OnExit() error {
	v, _ := a.ctx.Attrs["value"].(*ir.ValueExpr)
	if v == nil {
		return ErrAdapterExecution.New("GroupByItem", "group by item was not populated")
	}
	parent, ok := a.parent.(interface{ HandleGroupByItem(*ir.ValueExpr) })
	if !ok {
		return ErrAdapterExecution.New("GroupByItem", "parent does not accept a group by item")
	}
	parent.HandleGroupByItem(v)
	return nil
}
