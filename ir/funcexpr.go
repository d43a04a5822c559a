package ir

import "github.com/lsst-qserv/qserv-core/ir/render"

// FuncExpr is a function call: a name plus an ordered sequence of ValueExpr
// parameters. Used both for scalar functions (FUNCTION
// ValueFactor) and aggregates (AGGFUNC ValueFactor).
type FuncExpr struct {
	Name   string
	Params []*ValueExpr
}

// IsStarCall reports whether this is a COUNT(*)-shaped call: zero params
// with a STAR marker is represented by the caller passing a single
// NewStarFactor(“”) param, so IsStarCall simply checks for that shape.
func (f *FuncExpr) IsStarCall() bool {
	return len(f.Params) == 1 &&
		f.Params[0].IsSimple() &&
		f.Params[0].Terms[0].Factor.Kind == StarFactor &&
		f.Params[0].Terms[0].Factor.StarTable == ""
}

// Render serializes `name(param, param, ...)`.
func (f *FuncExpr) Render(qt *render.QueryTemplate) {
	qt.Append(f.Name)
	qt.OpenParen()
	for i, p := range f.Params {
		if i > 0 {
			qt.Comma()
		}
		p.Render(qt)
	}
	qt.CloseParen()
}
