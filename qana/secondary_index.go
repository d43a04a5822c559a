package qana

import "github.com/lsst-qserv/qserv-core/ir"

// RestrictorKind tags the two secondary-index restrictor shapes produced by
// this pass.
type RestrictorKind int

const (
	SIndex        RestrictorKind = iota // equality / IN
	SIndexBetween                       // BETWEEN
)

func (k RestrictorKind) String() string {
	if k == SIndexBetween {
		return "sIndexBetween"
	}
	return "sIndex"
}

// SecondaryIndexRestrictor is one discovered restrictor: `(db, table, col,
// lit1, lit2, ...)`, director-column-rewritten when applicable.
type SecondaryIndexRestrictor struct {
	Kind   RestrictorKind
	Params []string // db, table, col, lit...
}

// resolveColumnOrigins resolves a (possibly unqualified) column reference
// to every (db, table) pairing in the FROM list that could be its origin.
// Ambiguity is tolerated deliberately: the first candidate
// whose table exposes the column as a secondary index wins, mirroring
// getSecIndexRestrictors' "break; // Only want one per column" in the C++
// source.
func resolveColumnOrigins(cr ir.ColumnRef, from *ir.FromList, defaultDB string) []ir.ColumnRef {
	var out []ir.ColumnRef
	var walk func(t *ir.TableRef)
	walk = func(t *ir.TableRef) {
		db := t.Db
		if db == "" {
			db = defaultDB
		}
		if cr.Table == "" || cr.Table == t.QualifiedName() || cr.Table == t.Table {
			out = append(out, ir.ColumnRef{Db: db, Table: t.Table, Column: cr.Column})
		}
		for _, j := range t.Joins {
			walk(j.Right)
		}
	}
	for _, t := range from.Tables {
		walk(t)
	}
	return out
}

// columnRefFromExpr extracts a bare ColumnRef if v is a simple
// single-factor COLUMNREF expression, mirroring copyAsColumnRef() in the
// C++ source.
func columnRefFromExpr(v *ir.ValueExpr) (ir.ColumnRef, bool) {
	if v == nil || !v.IsSimple() {
		return ir.ColumnRef{}, false
	}
	f := v.Terms[0].Factor
	if f.Kind != ir.ColumnRefFactor {
		return ir.ColumnRef{}, false
	}
	return f.ColumnRef, true
}

// literalFromExpr extracts the raw literal source text if v is a simple
// CONST expression, mirroring copyAsLiteral(). Non-literal operands abort
// the match without error.
func literalFromExpr(v *ir.ValueExpr) (string, bool) {
	if v == nil || !v.IsSimple() {
		return "", false
	}
	f := v.Terms[0].Factor
	if f.Kind != ir.ConstFactor {
		return "", false
	}
	return f.Const, true
}

// buildRestrictor resolves cr's possible origins, finds the first one
// exposing col as a secondary index (rewriting to the director's (db,
// table, col) when cr names the director column of a table with a
// distinct director table), and returns the restrictor with literals
// appended. ok is false if no candidate origin matched.
func buildRestrictor(kind RestrictorKind, cr ir.ColumnRef, from *ir.FromList, md Metadata, defaultDB string, literals []string) (SecondaryIndexRestrictor, bool) {
	for _, origin := range resolveColumnOrigins(cr, from, defaultDB) {
		params, err := md.PartTableParams(origin.Db, origin.Table)
		if err != nil {
			continue
		}
		if !params.HasSecIndexCol(origin.Column) {
			continue
		}
		db, table, col := origin.Db, origin.Table, origin.Column
		if col == params.DirCol && params.HasDistinctDirector(origin.Db, origin.Table) {
			dirParams, err := md.PartTableParams(params.DirDb, params.DirTable)
			if err != nil || dirParams.DirCol == "" {
				continue
			}
			db, table, col = params.DirDb, params.DirTable, dirParams.DirCol
		}
		restrictorParams := append([]string{db, table, col}, literals...)
		return SecondaryIndexRestrictor{Kind: kind, Params: restrictorParams}, true
	}
	return SecondaryIndexRestrictor{}, false
}

// DiscoverSecondaryIndexRestrictors scans the global AndTerm's BoolFactor
// factor terms for equality, IN, and BETWEEN shapes over a literal-valued
// operand set, and resolves each matching column to a secondary-index
// restrictor. A single column yields at most one restrictor per
// top-level predicate (scanning stops at the first matching origin per
// factor term — a column appearing in two different top-level AND terms
// can still yield two restrictors).
func DiscoverSecondaryIndexRestrictors(and *ir.AndTerm, from *ir.FromList, md Metadata, defaultDB string) []SecondaryIndexRestrictor {
	if and == nil {
		return nil
	}
	var out []SecondaryIndexRestrictor
	for _, term := range and.Terms {
		factor, ok := term.(*ir.BoolFactor)
		if !ok {
			continue
		}
		for _, factorTerm := range factor.Terms {
			if r, ok := discoverOne(factorTerm, from, md, defaultDB); ok {
				out = append(out, r)
			}
		}
	}
	return out
}

func discoverOne(term ir.BoolFactorTerm, from *ir.FromList, md Metadata, defaultDB string) (SecondaryIndexRestrictor, bool) {
	switch p := term.(type) {
	case *ir.InPredicate:
		cr, ok := columnRefFromExpr(p.Value)
		if !ok {
			return SecondaryIndexRestrictor{}, false
		}
		var literals []string
		for _, v := range p.Values {
			lit, ok := literalFromExpr(v)
			if !ok {
				return SecondaryIndexRestrictor{}, false
			}
			literals = append(literals, lit)
		}
		return buildRestrictor(SIndex, cr, from, md, defaultDB, literals)

	case *ir.CompPredicate:
		if p.Op != ir.CompEq {
			return SecondaryIndexRestrictor{}, false
		}
		cr, ok := columnRefFromExpr(p.Left)
		var litExpr *ir.ValueExpr
		if ok {
			litExpr = p.Right
		} else {
			cr, ok = columnRefFromExpr(p.Right)
			if !ok {
				return SecondaryIndexRestrictor{}, false
			}
			litExpr = p.Left
		}
		lit, ok := literalFromExpr(litExpr)
		if !ok {
			return SecondaryIndexRestrictor{}, false
		}
		return buildRestrictor(SIndex, cr, from, md, defaultDB, []string{lit})

	case *ir.BetweenPredicate:
		cr, ok := columnRefFromExpr(p.Value)
		if !ok {
			return SecondaryIndexRestrictor{}, false
		}
		lo, ok := literalFromExpr(p.Lo)
		if !ok {
			return SecondaryIndexRestrictor{}, false
		}
		hi, ok := literalFromExpr(p.Hi)
		if !ok {
			return SecondaryIndexRestrictor{}, false
		}
		return buildRestrictor(SIndexBetween, cr, from, md, defaultDB, []string{lo, hi})

	default:
		return SecondaryIndexRestrictor{}, false
	}
}
