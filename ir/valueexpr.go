package ir

import (
	"github.com/lsst-qserv/qserv-core/ir/render"
)

// FactorKind tags the variant carried by a ValueFactor.
type FactorKind int

const (
	ColumnRefFactor FactorKind = iota
	ConstFactor
	StarFactor
	FunctionFactor
	AggFuncFactor
	ExprFactor
)

// aggregateNames is the recognized aggregate function name whitelist.
var aggregateNames = map[string]bool{
	"AVG": true, "MIN": true, "MAX": true, "SUM": true, "COUNT": true,
}

// IsAggregateName reports whether name (case-sensitive, as parsed) is one
// of the recognized aggregate function names.
func IsAggregateName(name string) bool {
	return aggregateNames[name]
}

// ValueFactor is a tagged variant over {COLUMNREF, CONST, STAR, FUNCTION,
// AGGFUNC, EXPR}. Exactly one of the typed fields is set,
// selected by Kind.
type ValueFactor struct {
	Kind FactorKind

	ColumnRef ColumnRef   // Kind == ColumnRefFactor
	Const     string      // Kind == ConstFactor
	StarTable string      // Kind == StarFactor; empty means unqualified "*"
	Func      *FuncExpr   // Kind == FunctionFactor or AggFuncFactor
	Expr      *ValueExpr  // Kind == ExprFactor
}

// NewColumnRefFactor builds a COLUMNREF ValueFactor.
func NewColumnRefFactor(c ColumnRef) *ValueFactor {
	return &ValueFactor{Kind: ColumnRefFactor, ColumnRef: c}
}

// NewConstFactor builds a CONST ValueFactor from its literal source text.
func NewConstFactor(lit string) *ValueFactor {
	return &ValueFactor{Kind: ConstFactor, Const: lit}
}

// NewStarFactor builds a STAR ValueFactor, table empty for a bare "*".
func NewStarFactor(table string) *ValueFactor {
	return &ValueFactor{Kind: StarFactor, StarTable: table}
}

// NewFunctionFactor builds a FUNCTION ValueFactor.
func NewFunctionFactor(f *FuncExpr) *ValueFactor {
	return &ValueFactor{Kind: FunctionFactor, Func: f}
}

// NewAggFuncFactor builds an AGGFUNC ValueFactor. It returns ErrInvalidIR if
// f.Name is not one of the recognized aggregate names.
func NewAggFuncFactor(f *FuncExpr) (*ValueFactor, error) {
	if !IsAggregateName(f.Name) {
		return nil, ErrInvalidIR.New("unrecognized aggregate function: " + f.Name)
	}
	return &ValueFactor{Kind: AggFuncFactor, Func: f}, nil
}

// NewExprFactor builds an EXPR ValueFactor wrapping a parenthesized
// sub-expression.
func NewExprFactor(e *ValueExpr) *ValueFactor {
	return &ValueFactor{Kind: ExprFactor, Expr: e}
}

// Render serializes the selected variant.
func (f *ValueFactor) Render(qt *render.QueryTemplate) {
	switch f.Kind {
	case ColumnRefFactor:
		f.ColumnRef.Render(qt)
	case ConstFactor:
		qt.Append(f.Const)
	case StarFactor:
		if f.StarTable != "" {
			qt.AppendIdentifier(f.StarTable)
			qt.NoSpaceBefore()
			qt.Append(".")
			qt.NoSpaceBefore()
		}
		qt.Append("*")
	case FunctionFactor, AggFuncFactor:
		f.Func.Render(qt)
	case ExprFactor:
		qt.Append("(")
		qt.NoSpaceBefore()
		f.Expr.Render(qt)
		qt.CloseParen()
	}
}

// ValueExprTerm is one (factor, operator) pair in a ValueExpr sequence.
type ValueExprTerm struct {
	Factor *ValueFactor
	Op     Op
}

// ValueExpr is an ordered, non-empty sequence of (ValueFactor, Op) pairs
// where Op == NONE appears exactly at the tail.
// An optional alias names the expression in a SELECT list.
type ValueExpr struct {
	Terms []ValueExprTerm
	Alias string
}

// NewValueExpr builds a ValueExpr from a single factor (the common case: a
// bare column reference or constant with no arithmetic).
func NewValueExpr(f *ValueFactor) *ValueExpr {
	return &ValueExpr{Terms: []ValueExprTerm{{Factor: f, Op: NONE}}}
}

// Validate checks the non-empty / single-tail-NONE invariant.
func (v *ValueExpr) Validate() error {
	if len(v.Terms) == 0 {
		return ErrInvalidIR.New("ValueExpr must have at least one term")
	}
	for i, t := range v.Terms {
		isLast := i == len(v.Terms)-1
		if (t.Op == NONE) != isLast {
			return ErrInvalidIR.New("ValueExpr Op=NONE must appear exactly at the tail")
		}
	}
	return nil
}

// IsSimple reports whether this expression is a single factor with no
// arithmetic operators — i.e. it never needs parenthesizing as a compound
// expression.
func (v *ValueExpr) IsSimple() bool {
	return len(v.Terms) == 1
}

// Render serializes factor op factor op ... factor, followed by AS `alias`
// when an alias is set. It adds no parentheses of its own; callers rendering
// v as an operand of an enclosing expression call RenderAsOperand instead.
func (v *ValueExpr) Render(qt *render.QueryTemplate) {
	for i, t := range v.Terms {
		if i > 0 {
			qt.Append(v.Terms[i-1].Op.String())
		}
		t.Factor.Render(qt)
	}
	if v.Alias != "" {
		qt.Append("AS")
		qt.AppendIdentifier(v.Alias)
	}
}

// minPrecedence returns the lowest-binding operator used in this
// expression, or a sentinel high value for a simple (single-factor)
// expression that never needs parenthesization.
func (v *ValueExpr) minPrecedence() int {
	if v.IsSimple() {
		return 1 << 30
	}
	min := 1 << 30
	for _, t := range v.Terms[:len(v.Terms)-1] {
		if p := t.Op.precedence(); p < min {
			min = p
		}
	}
	return min
}

// RenderAsOperand serializes v as an operand of an enclosing expression
// whose tightest-binding operator is enclosingOp, parenthesizing v when its
// own precedence is lower than enclosingOp's.
func (v *ValueExpr) RenderAsOperand(qt *render.QueryTemplate, enclosingOp Op) {
	if v.minPrecedence() < enclosingOp.precedence() {
		qt.Append("(")
		qt.NoSpaceBefore()
		v.renderTerms(qt)
		qt.CloseParen()
		return
	}
	v.renderTerms(qt)
}

func (v *ValueExpr) renderTerms(qt *render.QueryTemplate) {
	for i, t := range v.Terms {
		if i > 0 {
			qt.Append(v.Terms[i-1].Op.String())
		}
		t.Factor.Render(qt)
	}
}
