package parse

import (
	"github.com/lsst-qserv/qserv-core/ir"
)

func init() {
	registerAdapter("FullColumnName", func(parent Adapter, d *Driver) Adapter {
		return &fullColumnNameAdapter{parent: parent, driver: d}
	})
	registerAdapter("OrderByClause", func(parent Adapter, d *Driver) Adapter {
		return &orderByClauseAdapter{parent: parent, driver: d}
	})
	registerAdapter("OrderByExpression", func(parent Adapter, d *Driver) Adapter {
		return &orderByExpressionAdapter{parent: parent, driver: d}
	})
}

// fullColumnNameAdapter resolves a possibly-qualified column name off its
// ctx's db/table/column attrs directly: the FullId/Uid sub-chain collapses
// into these three strings since this driver has no separate token-level
// rule for each identifier component.
type fullColumnNameAdapter struct {
	parent Adapter
	driver *Driver
	ctx    *RuleCtx
}

func (a *fullColumnNameAdapter) Name() string { return "FullColumnName" }
func (a *fullColumnNameAdapter) OnEnter()      {}

func (a *fullColumnNameAdapter) CheckContext(ctx *RuleCtx) error {
	a.ctx = ctx
	return nil
}

func (a *fullColumnNameAdapter) OnExit() error {
	db, err := normalizeOrEmpty(a.ctx.Str("db"))
	if err != nil {
		return err
	}
	table, err := normalizeOrEmpty(a.ctx.Str("table"))
	if err != nil {
		return err
	}
	column, err := normalizeIdentifier(a.ctx.Str("column"))
	if err != nil {
		return err
	}
	factor := ir.NewColumnRefFactor(ir.ColumnRef{Db: db, Table: table, Column: column})
	parent, ok := a.parent.(interface{ HandleFullColumnName(*ir.ValueFactor) })
	if !ok {
		return ErrAdapterExecution.New("FullColumnName", "parent does not accept a column reference")
	}
	parent.HandleFullColumnName(factor)
	return nil
}

// orderByClauseAdapter gathers OrderByExpression children into an
// OrderByClause.
type orderByClauseAdapter struct {
	parent Adapter
	driver *Driver

	terms []ir.OrderByTerm
}

func (a *orderByClauseAdapter) Name() string                     { return "OrderByClause" }
func (a *orderByClauseAdapter) OnEnter()                          {}
func (a *orderByClauseAdapter) CheckContext(ctx *RuleCtx) error { return nil }

func (a *orderByClauseAdapter) HandleOrderByExpression(t ir.OrderByTerm) {
	a.terms = append(a.terms, t)
}

func (a *orderByClauseAdapter) OnExit() error {
	if len(a.terms) == 0 {
		return ErrAdapterExecution.New("OrderByClause", "no order by terms were collected")
	}
	parent, ok := a.parent.(interface{ HandleOrderByClause(*ir.OrderByClause) })
	if !ok {
		return ErrAdapterExecution.New("OrderByClause", "parent does not accept an order by clause")
	}
	parent.HandleOrderByClause(&ir.OrderByClause{Terms: a.terms})
	return nil
}

// orderByExpressionAdapter builds one `expr [ASC|DESC]` term. Its
// expression arrives precomputed in ctx.Attrs["value"], matching the
// PredicateExpression-in-non-boolean-context pattern used elsewhere in
// this driver.
type orderByExpressionAdapter struct {
	parent Adapter
	driver *Driver
	ctx    *RuleCtx
}

func (a *orderByExpressionAdapter) Name() string { return "OrderByExpression" }
func (a *orderByExpressionAdapter) OnEnter()      {}

func (a *orderByExpressionAdapter) CheckContext(ctx *RuleCtx) error {
	a.ctx = ctx
	return nil
}

func (a *orderByExpressionAdapter) HandleValueExprPredicate(v *ir.ValueExpr) error {
	if a.ctx.Attrs == nil {
		a.ctx.Attrs = map[string]interface{}{}
	}
	a.ctx.Attrs["value"] = v
	return nil
}

func (a *orderByExpressionAdapter) OnExit() error {
	v, _ := a.ctx.Attrs["value"].(*ir.ValueExpr)
	if v == nil {
		return ErrAdapterExecution.New("OrderByExpression", "expression was not populated")
	}
	dir := ir.OrderAsc
	if a.ctx.Has("DESC") {
		dir = ir.OrderDesc
	}
	parent, ok := a.parent.(interface{ HandleOrderByExpression(ir.OrderByTerm) })
	if !ok {
		return ErrAdapterExecution.New("OrderByExpression", "parent does not accept an order by expression")
	}
	parent.HandleOrderByExpression(ir.OrderByTerm{Expr: v, Direction: dir})
	return nil
}
