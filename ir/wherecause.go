package ir

import "github.com/lsst-qserv/qserv-core/ir/render"

// RestrictorKind tags the shape carried by an AreaRestrictor.
type RestrictorKind int

const (
	RestrictorBox RestrictorKind = iota
	RestrictorCircle
	RestrictorEllipse
	RestrictorPoly
)

func (k RestrictorKind) udfName() string {
	switch k {
	case RestrictorBox:
		return "qserv_areaspec_box"
	case RestrictorCircle:
		return "qserv_areaspec_circle"
	case RestrictorEllipse:
		return "qserv_areaspec_ellipse"
	case RestrictorPoly:
		return "qserv_areaspec_poly"
	default:
		return "qserv_areaspec_unknown"
	}
}

// AreaRestrictor is a spatial predicate attached to a WHERE clause: Box (4
// angles), Circle (lon, lat, radius), Ellipse (lon, lat, semiMajorArcsec,
// semiMinorArcsec, posAngleDeg), or Poly (vertex list). Each carries its
// argument list as strings, the raw literal source text.
type AreaRestrictor struct {
	Kind RestrictorKind
	Args []string
}

// Render serializes `qserv_areaspec_<shape>(a,b,c,...)`.
func (r *AreaRestrictor) Render(qt *render.QueryTemplate) {
	qt.Append(r.Kind.udfName())
	qt.OpenParen()
	for i, a := range r.Args {
		if i > 0 {
			qt.Comma()
		}
		qt.Append(a)
	}
	qt.CloseParen()
}

// WhereClause is the root of a SELECT statement's WHERE predicate, plus
// any area restrictors still awaiting expansion by the spatial analysis
// pass.
type WhereClause struct {
	Root             *OrTerm
	AreaRestrictors  []*AreaRestrictor
}

// ClearAreaRestrictors drops the restrictor list after the spatial pass has
// dispatched them to the query context.
func (w *WhereClause) ClearAreaRestrictors() {
	w.AreaRestrictors = nil
}

// Render serializes "WHERE <area-restrictor-prefix> <root>". Area
// restrictors render ahead of the boolean root when both are present,
// joined by AND: qserv_areaspec_box(a,b,c,d) etc., placed inside the
// WHERE clause prefix.
func (w *WhereClause) Render(qt *render.QueryTemplate) {
	qt.Append("WHERE")
	first := true
	for _, r := range w.AreaRestrictors {
		if !first {
			qt.Append("AND")
		}
		r.Render(qt)
		first = false
	}
	if w.Root != nil {
		if !first {
			qt.Append("AND")
		}
		w.Root.Render(qt)
	}
}
