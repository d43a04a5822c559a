package qana

import (
	"strings"

	"github.com/lsst-qserv/qserv-core/ir"
)

// udfName maps an AreaRestrictor's parsed kind to the scisql_ comparison
// function used in the expanded predicate. Grounded on
// core/modules/qana/QservRestrictorPlugin.cc's AreaGenerator table: box →
// s2PtInBox, circle → s2PtInCircle, ellipse → s2PtInEllipse, poly →
// s2PtInCPoly, all prefixed with "scisql_".
func udfName(kind ir.RestrictorKind) string {
	switch kind {
	case ir.RestrictorBox:
		return "scisql_s2PtInBox"
	case ir.RestrictorCircle:
		return "scisql_s2PtInCircle"
	case ir.RestrictorEllipse:
		return "scisql_s2PtInEllipse"
	case ir.RestrictorPoly:
		return "scisql_s2PtInCPoly"
	default:
		return "scisql_s2PtInUnknown"
	}
}

// restrictorArgs returns the UDF argument list for one (restrictor, table)
// pairing: the table's (lonCol, latCol) columns followed by the
// restrictor's own arguments. Poly packs its variable-length vertex list
// into a single comma-joined string argument (see DESIGN.md for the
// packing decision).
func restrictorArgs(alias string, partCols [3]string, r *ir.AreaRestrictor) []string {
	lon := qualify(alias, partCols[0])
	lat := qualify(alias, partCols[1])
	if r.Kind == ir.RestrictorPoly {
		return []string{lon, lat, "'" + strings.Join(r.Args, ",") + "'"}
	}
	args := append([]string{lon, lat}, r.Args...)
	return args
}

func qualify(alias, col string) string {
	return "`" + alias + "`.`" + col + "`"
}

// chunkedTableEntry is one chunked table reference found while walking the
// FROM list, resolved to its effective alias and partitioning columns.
type chunkedTableEntry struct {
	alias    string
	partCols [3]string
}

// collectChunkedTables walks the FROM list, including every trailing
// join, and resolves the partitioning params of every table that is
// chunked. Non-chunked tables are silently skipped.
func collectChunkedTables(from *ir.FromList, md Metadata, defaultDB string) ([]chunkedTableEntry, error) {
	var entries []chunkedTableEntry
	var walk func(t *ir.TableRef) error
	walk = func(t *ir.TableRef) error {
		db := t.Db
		if db == "" {
			db = defaultDB
		}
		if !md.IsKnownDB(db) {
			return ErrMissingMetadata.New("database " + db)
		}
		if !md.IsKnownTable(db, t.Table) {
			return ErrMissingMetadata.New("table " + db + "." + t.Table)
		}
		params, err := md.PartTableParams(db, t.Table)
		if err != nil {
			return err
		}
		if params.IsChunked {
			entries = append(entries, chunkedTableEntry{
				alias:    t.QualifiedName(),
				partCols: params.PartCols,
			})
		}
		for _, j := range t.Joins {
			if err := walk(j.Right); err != nil {
				return err
			}
		}
		return nil
	}
	for _, t := range from.Tables {
		if err := walk(t); err != nil {
			return nil, err
		}
	}
	return entries, nil
}

// comparisonFor builds `scisql_<shape>(alias.lonCol, alias.latCol, args...) = 1`
// as a ready-to-insert BoolFactorTerm.
func comparisonFor(alias string, partCols [3]string, r *ir.AreaRestrictor) *ir.CompPredicate {
	args := restrictorArgs(alias, partCols, r)
	params := make([]*ir.ValueExpr, len(args))
	for i, a := range args {
		params[i] = ir.NewValueExpr(ir.NewConstFactor(a))
	}
	fn := &ir.FuncExpr{Name: udfName(r.Kind), Params: params}
	return &ir.CompPredicate{
		Left:  ir.NewValueExpr(ir.NewFunctionFactor(fn)),
		Op:    ir.CompEq,
		Right: ir.NewValueExpr(ir.NewConstFactor("1")),
	}
}

// ExpandSpatialRestrictors, for every chunked table reference in the FROM
// list, synthesizes a `scisql_<shape>(...) = 1` comparison from each area
// restrictor attached to the WHERE clause. All synthesized comparisons
// for every restrictor/table pairing are conjoined into one AndTerm,
// prepended ahead of the existing WHERE root. Restrictors are then
// cleared and returned: dispatch to the query context happens once,
// after both analysis sub-passes run, so the caller is expected to hold
// onto the returned slice and dispatch it itself.
//
// If restrictors are present but no chunked table appears in the FROM list,
// ErrRestrictorNoChunkedTable is returned.
func ExpandSpatialRestrictors(stmt *ir.SelectStmt, md Metadata, defaultDB string) ([]*ir.AreaRestrictor, error) {
	if stmt.Where == nil || len(stmt.Where.AreaRestrictors) == 0 {
		return nil, nil
	}
	entries, err := collectChunkedTables(stmt.FromList, md, defaultDB)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, ErrRestrictorNoChunkedTable.New("")
	}

	var synthesized []ir.BoolTerm
	dispatched := append([]*ir.AreaRestrictor{}, stmt.Where.AreaRestrictors...)
	for _, r := range dispatched {
		for _, e := range entries {
			cmp := comparisonFor(e.alias, e.partCols, r)
			synthesized = append(synthesized, ir.NewBoolFactor(cmp))
		}
	}
	newAnd := &ir.AndTerm{}
	newAnd.Terms = synthesized

	if stmt.Where.Root == nil {
		stmt.Where.Root = ir.NewOrTerm(newAnd)
	} else {
		prependAndToRoot(stmt.Where.Root, newAnd)
	}
	stmt.Where.ClearAreaRestrictors()
	return dispatched, nil
}

// prependAndToRoot merges newAnd ahead of every AndTerm disjunct of root,
// preserving CNF-shape. root is itself an OrTerm of AndTerms, so the
// synthesized term is merged into each disjunct (in the single-disjunct
// case, the common one, this is exactly "prepend to the global AndTerm").
func prependAndToRoot(root *ir.OrTerm, newAnd *ir.AndTerm) {
	for i, t := range root.Terms {
		and, ok := t.(*ir.AndTerm)
		if !ok {
			continue
		}
		merged := ir.NewAndTerm(append(append([]ir.BoolTerm{}, newAnd.Terms...), and.Terms...)...)
		root.Terms[i] = merged
	}
}
