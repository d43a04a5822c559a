package ir

import "github.com/lsst-qserv/qserv-core/ir/render"

// BoolFactorTerm is the variant over {CompPredicate, InPredicate,
// BetweenPredicate, LikePredicate, NullPredicate, PassTerm, BoolTermFactor}.
type BoolFactorTerm interface {
	render.Renderable
	boolFactorTerm()
	Clone() BoolFactorTerm
}

// CompPredicate is a binary comparison: left <op> right, built by the
// BinaryComparasionPredicate adapter.
type CompPredicate struct {
	Left  *ValueExpr
	Op    CompOp
	Right *ValueExpr
}

func (*CompPredicate) boolFactorTerm() {}

func (c *CompPredicate) Clone() BoolFactorTerm {
	cp := *c
	return &cp
}

func (c *CompPredicate) Render(qt *render.QueryTemplate) {
	c.Left.Render(qt)
	qt.Append(c.Op.String())
	c.Right.Render(qt)
}

// InPredicate is `col [NOT] IN (lit, lit, ...)`.
type InPredicate struct {
	Value  *ValueExpr
	Not    bool
	Values []*ValueExpr
}

func (*InPredicate) boolFactorTerm() {}

func (p *InPredicate) Clone() BoolFactorTerm {
	cp := *p
	cp.Values = append([]*ValueExpr{}, p.Values...)
	return &cp
}

func (p *InPredicate) Render(qt *render.QueryTemplate) {
	p.Value.Render(qt)
	if p.Not {
		qt.Append("NOT")
	}
	qt.Append("IN")
	qt.OpenParen()
	for i, v := range p.Values {
		if i > 0 {
			qt.Comma()
		}
		v.Render(qt)
	}
	qt.CloseParen()
}

// BetweenPredicate is `col [NOT] BETWEEN lo AND hi`.
type BetweenPredicate struct {
	Value *ValueExpr
	Not   bool
	Lo    *ValueExpr
	Hi    *ValueExpr
}

func (*BetweenPredicate) boolFactorTerm() {}

func (p *BetweenPredicate) Clone() BoolFactorTerm {
	cp := *p
	return &cp
}

func (p *BetweenPredicate) Render(qt *render.QueryTemplate) {
	p.Value.Render(qt)
	if p.Not {
		qt.Append("NOT")
	}
	qt.Append("BETWEEN")
	p.Lo.Render(qt)
	qt.Append("AND")
	p.Hi.Render(qt)
}

// LikePredicate is `col [NOT] LIKE pattern`.
type LikePredicate struct {
	Value   *ValueExpr
	Not     bool
	Pattern *ValueExpr
}

func (*LikePredicate) boolFactorTerm() {}

func (p *LikePredicate) Clone() BoolFactorTerm {
	cp := *p
	return &cp
}

func (p *LikePredicate) Render(qt *render.QueryTemplate) {
	p.Value.Render(qt)
	if p.Not {
		qt.Append("NOT")
	}
	qt.Append("LIKE")
	p.Pattern.Render(qt)
}

// NullPredicate is `col IS [NOT] NULL`.
type NullPredicate struct {
	Value *ValueExpr
	Not   bool
}

func (*NullPredicate) boolFactorTerm() {}

func (p *NullPredicate) Clone() BoolFactorTerm {
	cp := *p
	return &cp
}

func (p *NullPredicate) Render(qt *render.QueryTemplate) {
	p.Value.Render(qt)
	qt.Append("IS")
	if p.Not {
		qt.Append("NOT")
	}
	qt.Append("NULL")
}

// PassTerm is opaque punctuation carried through unchanged; "(" and ")"
// render glued to their neighbors. The NestedExpressionAtom adapter does
// not use it: it marks its BoolFactor HasParentheses instead.
type PassTerm struct {
	Text string
}

func (*PassTerm) boolFactorTerm() {}

func (p *PassTerm) Clone() BoolFactorTerm {
	cp := *p
	return &cp
}

func (p *PassTerm) Render(qt *render.QueryTemplate) {
	switch p.Text {
	case "(":
		qt.OpenParen()
	case ")":
		qt.CloseParen()
	default:
		qt.Append(p.Text)
	}
}

// BoolTermFactor wraps a BoolTerm so it can appear where a BoolFactorTerm
// is expected — e.g. a parenthesized inner expression nested inside an
// outer BoolFactor's term list.
type BoolTermFactor struct {
	Term BoolTerm
}

func (*BoolTermFactor) boolFactorTerm() {}

func (f *BoolTermFactor) Clone() BoolFactorTerm {
	return &BoolTermFactor{Term: f.Term.Clone()}
}

func (f *BoolTermFactor) Render(qt *render.QueryTemplate) {
	f.Term.Render(qt)
}

// BoolFactor is a leaf BoolTerm: a sequence of BoolFactorTerms, optionally
// negated and/or parenthesized.
type BoolFactor struct {
	Terms           []BoolFactorTerm
	HasNot          bool
	HasParentheses  bool
}

func (*BoolFactor) boolTerm() {}

// NewBoolFactor builds a BoolFactor from the given terms.
func NewBoolFactor(terms ...BoolFactorTerm) *BoolFactor {
	return &BoolFactor{Terms: terms}
}

func (f *BoolFactor) Clone() BoolTerm {
	out := make([]BoolFactorTerm, len(f.Terms))
	for i, t := range f.Terms {
		out[i] = t.Clone()
	}
	return &BoolFactor{Terms: out, HasNot: f.HasNot, HasParentheses: f.HasParentheses}
}

func (f *BoolFactor) Render(qt *render.QueryTemplate) {
	if f.HasNot {
		qt.Append("NOT")
	}
	open := f.HasParentheses
	if open {
		qt.Append("(")
		qt.NoSpaceBefore()
	}
	for _, t := range f.Terms {
		t.Render(qt)
	}
	if open {
		qt.CloseParen()
	}
}
