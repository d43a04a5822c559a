package parse

import (
	"github.com/lsst-qserv/qserv-core/ir"
)

func init() {
	registerAdapter("LogicalExpression", func(parent Adapter, d *Driver) Adapter {
		return &logicalExpressionAdapter{parent: parent, driver: d}
	})
	registerAdapter("PredicateExpression", func(parent Adapter, d *Driver) Adapter {
		return &predicateExpressionAdapter{parent: parent, driver: d}
	})
	registerAdapter("BinaryComparasionPredicate", func(parent Adapter, d *Driver) Adapter {
		return &binaryComparisonAdapter{parent: parent, driver: d}
	})
	registerAdapter("InPredicate", func(parent Adapter, d *Driver) Adapter {
		return &inPredicateAdapter{parent: parent, driver: d}
	})
	registerAdapter("BetweenPredicate", func(parent Adapter, d *Driver) Adapter {
		return &betweenPredicateAdapter{parent: parent, driver: d}
	})
	registerAdapter("LikePredicate", func(parent Adapter, d *Driver) Adapter {
		return &likePredicateAdapter{parent: parent, driver: d}
	})
	registerAdapter("IsNullPredicate", func(parent Adapter, d *Driver) Adapter {
		return &isNullPredicateAdapter{parent: parent, driver: d}
	})
	registerAdapter("NestedExpressionAtom", func(parent Adapter, d *Driver) Adapter {
		return &nestedExpressionAtomAdapter{parent: parent, driver: d}
	})
}

// boolFactorTermHandler accepts one completed BoolFactorTerm from a leaf
// predicate adapter, destined for the enclosing PredicateExpression's
// BoolFactor.
type boolFactorTermHandler interface {
	HandleBoolFactorTerm(t ir.BoolFactorTerm)
}

// logicalExpressionAdapter implements AND/OR grouping over PredicateExpression
// and nested LogicalExpression children, folding adjacent same-kind terms.
type logicalExpressionAdapter struct {
	parent Adapter
	driver *Driver
	ctx    *RuleCtx

	kind  ir.LogicalKind
	terms []ir.BoolTerm
}

func (a *logicalExpressionAdapter) Name() string { return "LogicalExpression" }
func (a *logicalExpressionAdapter) OnEnter()      {}

func (a *logicalExpressionAdapter) CheckContext(ctx *RuleCtx) error {
	a.ctx = ctx
	if ctx.Has("OR") {
		a.kind = ir.LogicalOr
	} else {
		a.kind = ir.LogicalAnd
	}
	return nil
}

// addTerm flattens an adjacent same-kind term's children into this one,
// matching AndTerm.Merge/OrTerm.Merge's fold behavior, rather than nesting
// a same-kind BoolTerm one level deeper for no semantic reason.
func (a *logicalExpressionAdapter) addTerm(t ir.BoolTerm) {
	switch a.kind {
	case ir.LogicalAnd:
		if o, ok := t.(*ir.AndTerm); ok {
			a.terms = append(a.terms, o.Terms...)
			return
		}
	case ir.LogicalOr:
		if o, ok := t.(*ir.OrTerm); ok {
			a.terms = append(a.terms, o.Terms...)
			return
		}
	}
	a.terms = append(a.terms, t)
}

func (a *logicalExpressionAdapter) HandleWhereOrHavingTerm(t ir.BoolTerm, slot string) error {
	a.addTerm(t)
	return nil
}

func (a *logicalExpressionAdapter) OnExit() error {
	if len(a.terms) == 0 {
		return ErrAdapterExecution.New("LogicalExpression", "no child bool terms were collected")
	}
	var built ir.BoolTerm
	if a.kind == ir.LogicalOr {
		built = ir.NewOrTerm(a.terms...)
	} else {
		built = ir.NewAndTerm(a.terms...)
	}
	slot := a.ctx.Str("slot")
	parent, ok := a.parent.(whereHavingTermHandler)
	if !ok {
		return ErrAdapterExecution.New("LogicalExpression", "parent does not accept a logical term")
	}
	return parent.HandleWhereOrHavingTerm(built, slot)
}

// predicateExpressionAdapter builds one BoolFactor out of exactly one
// predicate child (comparison/IN/BETWEEN/LIKE/IS NULL/nested), or passes
// through a bare ValueExpr for non-boolean uses of this same rule.
type predicateExpressionAdapter struct {
	parent Adapter
	driver *Driver
	ctx    *RuleCtx

	term  ir.BoolFactorTerm
	value *ir.ValueExpr
}

func (a *predicateExpressionAdapter) Name() string { return "PredicateExpression" }
func (a *predicateExpressionAdapter) OnEnter()      {}

func (a *predicateExpressionAdapter) CheckContext(ctx *RuleCtx) error {
	a.ctx = ctx
	if v, ok := ctx.Attrs["value"].(*ir.ValueExpr); ok {
		a.value = v
	}
	return nil
}

func (a *predicateExpressionAdapter) HandleBoolFactorTerm(t ir.BoolFactorTerm) {
	a.term = t
}

func (a *predicateExpressionAdapter) OnExit() error {
	switch {
	case a.term != nil:
		hasNot := a.ctx.Has("NOT")
		bf := ir.NewBoolFactor(a.term)
		bf.HasNot = hasNot
		return a.exitBoolFactor(bf)
	case a.value != nil:
		return a.exitValueExpr(a.value)
	default:
		return ErrAdapterExecution.New("PredicateExpression", "neither a predicate nor a value expression was populated")
	}
}

func (a *predicateExpressionAdapter) exitBoolFactor(bf *ir.BoolFactor) error {
	if p, ok := a.parent.(whereHavingTermHandler); ok {
		return p.HandleWhereOrHavingTerm(bf, a.ctx.Str("slot"))
	}
	if p, ok := a.parent.(joinOnHandler); ok {
		return p.HandleJoinOn(bf)
	}
	return ErrAdapterExecution.New("PredicateExpression", "parent does not accept a bool term")
}

func (a *predicateExpressionAdapter) exitValueExpr(v *ir.ValueExpr) error {
	p, ok := a.parent.(valueExprPredicateHandler)
	if !ok {
		return ErrAdapterExecution.New("PredicateExpression", "parent does not accept a value expression")
	}
	return p.HandleValueExprPredicate(v)
}

// binaryComparisonAdapter builds a CompPredicate from left/op/right ctx
// attrs. The comparison operator is read directly off this
// rule's ctx rather than via a separate ComparisonOperator adapter — it is
// a single terminal token with no further structure.
type binaryComparisonAdapter struct {
	parent Adapter
	driver *Driver
	ctx    *RuleCtx
}

func (a *binaryComparisonAdapter) Name() string { return "BinaryComparasionPredicate" }
func (a *binaryComparisonAdapter) OnEnter()      {}

func (a *binaryComparisonAdapter) CheckContext(ctx *RuleCtx) error {
	a.ctx = ctx
	if _, ok := ir.ParseCompOp(ctx.Str("op")); !ok {
		return ErrAdapterOrder.New(ctx.Text, "unsupported comparison operator")
	}
	return nil
}

func (a *binaryComparisonAdapter) OnExit() error {
	left, _ := a.ctx.Attrs["left"].(*ir.ValueExpr)
	right, _ := a.ctx.Attrs["right"].(*ir.ValueExpr)
	if left == nil || right == nil {
		return ErrAdapterExecution.New("BinaryComparasionPredicate", "left or right operand was not populated")
	}
	op, _ := ir.ParseCompOp(a.ctx.Str("op"))
	parent, ok := a.parent.(boolFactorTermHandler)
	if !ok {
		return ErrAdapterExecution.New("BinaryComparasionPredicate", "parent does not accept a predicate")
	}
	parent.HandleBoolFactorTerm(&ir.CompPredicate{Left: left, Op: op, Right: right})
	return nil
}

// inPredicateAdapter builds an InPredicate.
type inPredicateAdapter struct {
	parent Adapter
	driver *Driver
	ctx    *RuleCtx
}

func (a *inPredicateAdapter) Name() string { return "InPredicate" }
func (a *inPredicateAdapter) OnEnter()      {}

func (a *inPredicateAdapter) CheckContext(ctx *RuleCtx) error {
	a.ctx = ctx
	return nil
}

func (a *inPredicateAdapter) OnExit() error {
	value, _ := a.ctx.Attrs["value"].(*ir.ValueExpr)
	values, _ := a.ctx.Attrs["values"].([]*ir.ValueExpr)
	if value == nil || len(values) == 0 {
		return ErrAdapterExecution.New("InPredicate", "operand or value list was not populated")
	}
	parent, ok := a.parent.(boolFactorTermHandler)
	if !ok {
		return ErrAdapterExecution.New("InPredicate", "parent does not accept a predicate")
	}
	parent.HandleBoolFactorTerm(&ir.InPredicate{Value: value, Not: a.ctx.Has("NOT"), Values: values})
	return nil
}

// betweenPredicateAdapter builds a BetweenPredicate.
type betweenPredicateAdapter struct {
	parent Adapter
	driver *Driver
	ctx    *RuleCtx
}

func (a *betweenPredicateAdapter) Name() string { return "BetweenPredicate" }
func (a *betweenPredicateAdapter) OnEnter()      {}

func (a *betweenPredicateAdapter) CheckContext(ctx *RuleCtx) error {
	a.ctx = ctx
	return nil
}

func (a *betweenPredicateAdapter) OnExit() error {
	value, _ := a.ctx.Attrs["value"].(*ir.ValueExpr)
	lo, _ := a.ctx.Attrs["lo"].(*ir.ValueExpr)
	hi, _ := a.ctx.Attrs["hi"].(*ir.ValueExpr)
	if value == nil || lo == nil || hi == nil {
		return ErrAdapterExecution.New("BetweenPredicate", "operand, lo, or hi was not populated")
	}
	parent, ok := a.parent.(boolFactorTermHandler)
	if !ok {
		return ErrAdapterExecution.New("BetweenPredicate", "parent does not accept a predicate")
	}
	parent.HandleBoolFactorTerm(&ir.BetweenPredicate{Value: value, Not: a.ctx.Has("NOT"), Lo: lo, Hi: hi})
	return nil
}

// likePredicateAdapter builds a LikePredicate, rejecting the ESCAPE clause.
type likePredicateAdapter struct {
	parent Adapter
	driver *Driver
	ctx    *RuleCtx
}

func (a *likePredicateAdapter) Name() string { return "LikePredicate" }
func (a *likePredicateAdapter) OnEnter()      {}

func (a *likePredicateAdapter) CheckContext(ctx *RuleCtx) error {
	a.ctx = ctx
	if ctx.Has("ESCAPE") {
		return ErrAdapterOrder.New(ctx.Text, "LIKE ... ESCAPE is not supported")
	}
	return nil
}

func (a *likePredicateAdapter) OnExit() error {
	value, _ := a.ctx.Attrs["value"].(*ir.ValueExpr)
	pattern, _ := a.ctx.Attrs["pattern"].(*ir.ValueExpr)
	if value == nil || pattern == nil {
		return ErrAdapterExecution.New("LikePredicate", "operand or pattern was not populated")
	}
	parent, ok := a.parent.(boolFactorTermHandler)
	if !ok {
		return ErrAdapterExecution.New("LikePredicate", "parent does not accept a predicate")
	}
	parent.HandleBoolFactorTerm(&ir.LikePredicate{Value: value, Not: a.ctx.Has("NOT"), Pattern: pattern})
	return nil
}

// isNullPredicateAdapter builds a NullPredicate.
type isNullPredicateAdapter struct {
	parent Adapter
	driver *Driver
	ctx    *RuleCtx
}

func (a *isNullPredicateAdapter) Name() string { return "IsNullPredicate" }
func (a *isNullPredicateAdapter) OnEnter()      {}

func (a *isNullPredicateAdapter) CheckContext(ctx *RuleCtx) error {
	a.ctx = ctx
	return nil
}

func (a *isNullPredicateAdapter) OnExit() error {
	value, _ := a.ctx.Attrs["value"].(*ir.ValueExpr)
	if value == nil {
		return ErrAdapterExecution.New("IsNullPredicate", "operand was not populated")
	}
	parent, ok := a.parent.(boolFactorTermHandler)
	if !ok {
		return ErrAdapterExecution.New("IsNullPredicate", "parent does not accept a predicate")
	}
	parent.HandleBoolFactorTerm(&ir.NullPredicate{Value: value, Not: a.ctx.Has("NOT")})
	return nil
}

// nestedExpressionAtomAdapter preserves explicit parenthesization around a
// nested boolean expression by wrapping its child LogicalExpression/
// PredicateExpression result in a parenthesized BoolFactor.
type nestedExpressionAtomAdapter struct {
	parent Adapter
	driver *Driver
	ctx    *RuleCtx

	inner ir.BoolTerm
}

func (a *nestedExpressionAtomAdapter) Name() string { return "NestedExpressionAtom" }
func (a *nestedExpressionAtomAdapter) OnEnter()      {}

func (a *nestedExpressionAtomAdapter) CheckContext(ctx *RuleCtx) error {
	a.ctx = ctx
	return nil
}

func (a *nestedExpressionAtomAdapter) HandleWhereOrHavingTerm(t ir.BoolTerm, slot string) error {
	a.inner = t
	return nil
}

func (a *nestedExpressionAtomAdapter) OnExit() error {
	if a.inner == nil {
		return ErrAdapterExecution.New("NestedExpressionAtom", "nested bool term was not populated")
	}
	bf := ir.NewBoolFactor(&ir.BoolTermFactor{Term: a.inner})
	bf.HasParentheses = true
	parent, ok := a.parent.(boolFactorTermHandler)
	if !ok {
		return ErrAdapterExecution.New("NestedExpressionAtom", "parent does not accept a predicate")
	}
	parent.HandleBoolFactorTerm(bf)
	return nil
}
