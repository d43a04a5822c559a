package ir

import "github.com/lsst-qserv/qserv-core/ir/render"

// BoolTerm is the variant over {BoolFactor, AndTerm, OrTerm}. AndTerm/OrTerm each hold a sequence of BoolTerms; BoolFactor is
// the leaf case, a sequence of BoolFactorTerms.
type BoolTerm interface {
	render.Renderable
	// boolTerm is unexported so BoolTerm can only be implemented within
	// this package — the set of variants is closed.
	boolTerm()
	// Clone returns a deep copy, used by analysis passes that must not
	// mutate the IR they were handed (they build a new tree instead).
	Clone() BoolTerm
}

// LogicalKind distinguishes AndTerm from OrTerm without a type switch at
// every call site that only cares about "is this a logical term".
type LogicalKind int

const (
	LogicalAnd LogicalKind = iota
	LogicalOr
)

// LogicalTerm is the shared shape of AndTerm and OrTerm: an ordered,
// non-empty sequence of child BoolTerms. It is not itself a BoolTerm
// variant — AndTerm and OrTerm each embed it and supply their own Kind.
type LogicalTerm struct {
	Terms []BoolTerm
}

// mergeAnd flattens an adjacent AndTerm into this one, per the parse
// driver's LogicalExpression adapter. It returns true if other was an
// AndTerm and its terms were absorbed.
func (l *LogicalTerm) mergeAnd(other BoolTerm, behavior MergeBehavior) bool {
	o, ok := other.(*AndTerm)
	if !ok {
		return false
	}
	l.absorb(o.Terms, behavior)
	return true
}

func (l *LogicalTerm) mergeOr(other BoolTerm, behavior MergeBehavior) bool {
	o, ok := other.(*OrTerm)
	if !ok {
		return false
	}
	l.absorb(o.Terms, behavior)
	return true
}

// MergeBehavior controls whether an absorbed term's children are placed
// before or after this term's existing children.
type MergeBehavior int

const (
	MergeAppend MergeBehavior = iota
	MergePrepend
)

func (l *LogicalTerm) absorb(terms []BoolTerm, behavior MergeBehavior) {
	switch behavior {
	case MergePrepend:
		l.Terms = append(append([]BoolTerm{}, terms...), l.Terms...)
	default:
		l.Terms = append(l.Terms, terms...)
	}
}

func (l *LogicalTerm) cloneTerms() []BoolTerm {
	out := make([]BoolTerm, len(l.Terms))
	for i, t := range l.Terms {
		out[i] = t.Clone()
	}
	return out
}

// AndTerm is a set of AND-connected BoolTerms.
type AndTerm struct{ LogicalTerm }

func (*AndTerm) boolTerm() {}

// NewAndTerm builds an AndTerm from the given children.
func NewAndTerm(terms ...BoolTerm) *AndTerm {
	return &AndTerm{LogicalTerm{Terms: terms}}
}

// Merge absorbs other's children if other is also an AndTerm, appending
// them after this term's own children. Returns true if merged.
func (a *AndTerm) Merge(other BoolTerm) bool {
	return a.mergeAnd(other, MergeAppend)
}

// MergeWith absorbs other's children if other is also an AndTerm, in the
// order given by behavior. Used by the spatial-restrictor pass, which must
// prepend its synthesized AndTerm ahead of the existing WHERE root.
func (a *AndTerm) MergeWith(other BoolTerm, behavior MergeBehavior) bool {
	return a.mergeAnd(other, behavior)
}

// Clone deep-copies this AndTerm.
func (a *AndTerm) Clone() BoolTerm {
	return &AndTerm{LogicalTerm{Terms: a.cloneTerms()}}
}

// Render serializes "term AND term AND ...".
func (a *AndTerm) Render(qt *render.QueryTemplate) {
	renderLogical(qt, a.Terms, "AND")
}

// OrTerm is a set of OR-connected BoolTerms. A WhereClause's
// root, when present, is always an OrTerm of AndTerms ("CNF-shape").
type OrTerm struct{ LogicalTerm }

func (*OrTerm) boolTerm() {}

// NewOrTerm builds an OrTerm from the given children.
func NewOrTerm(terms ...BoolTerm) *OrTerm {
	return &OrTerm{LogicalTerm{Terms: terms}}
}

// Merge absorbs other's children if other is also an OrTerm.
func (o *OrTerm) Merge(other BoolTerm) bool {
	return o.mergeOr(other, MergeAppend)
}

// Clone deep-copies this OrTerm.
func (o *OrTerm) Clone() BoolTerm {
	return &OrTerm{LogicalTerm{Terms: o.cloneTerms()}}
}

// Render serializes "term OR term OR ...".
func (o *OrTerm) Render(qt *render.QueryTemplate) {
	renderLogical(qt, o.Terms, "OR")
}

func renderLogical(qt *render.QueryTemplate, terms []BoolTerm, joiner string) {
	for i, t := range terms {
		if i > 0 {
			qt.Append(joiner)
		}
		t.Render(qt)
	}
}

// IsCNFShape reports whether root is a well-formed CNF root: an OrTerm
// whose every child is an AndTerm. A nil root
// trivially satisfies the invariant (no WHERE clause at all).
func IsCNFShape(root BoolTerm) bool {
	if root == nil {
		return true
	}
	or, ok := root.(*OrTerm)
	if !ok {
		return false
	}
	for _, t := range or.Terms {
		if _, ok := t.(*AndTerm); !ok {
			return false
		}
	}
	return true
}
