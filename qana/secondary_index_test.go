package qana

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lsst-qserv/qserv-core/ir"
)

func childMetadata() *fakeMetadata {
	return newFakeMetadata().
		addTable("LSST", "Object", PartTableParams{
			DirCol:       "objectId",
			SecIndexCols: []string{"objectId"},
			IsChunked:    true,
		}).
		addTable("LSST", "Source", PartTableParams{
			DirDb:        "LSST",
			DirTable:     "Object",
			DirCol:       "objectId",
			SecIndexCols: []string{"objectId"},
			IsChunked:    true,
		})
}

func colEq(col, lit string) *ir.CompPredicate {
	return &ir.CompPredicate{
		Left:  ir.NewValueExpr(ir.NewColumnRefFactor(ir.ColumnRef{Column: col})),
		Op:    ir.CompEq,
		Right: ir.NewValueExpr(ir.NewConstFactor(lit)),
	}
}

func TestDiscoverSecondaryIndexRestrictors_Equality(t *testing.T) {
	md := childMetadata()
	from := &ir.FromList{Tables: []*ir.TableRef{{Table: "Object"}}}
	and := ir.NewAndTerm(ir.NewBoolFactor(colEq("objectId", "430209779186076")))

	restrictors := DiscoverSecondaryIndexRestrictors(and, from, md, "LSST")
	require.Len(t, restrictors, 1)
	assert.Equal(t, SIndex, restrictors[0].Kind)
	assert.Equal(t, []string{"LSST", "Object", "objectId", "430209779186076"}, restrictors[0].Params)
}

func TestDiscoverSecondaryIndexRestrictors_IN(t *testing.T) {
	md := childMetadata()
	from := &ir.FromList{Tables: []*ir.TableRef{{Table: "Object"}}}
	in := &ir.InPredicate{
		Value: ir.NewValueExpr(ir.NewColumnRefFactor(ir.ColumnRef{Column: "objectId"})),
		Values: []*ir.ValueExpr{
			ir.NewValueExpr(ir.NewConstFactor("1")),
			ir.NewValueExpr(ir.NewConstFactor("2")),
		},
	}
	and := ir.NewAndTerm(ir.NewBoolFactor(in))

	restrictors := DiscoverSecondaryIndexRestrictors(and, from, md, "LSST")
	require.Len(t, restrictors, 1)
	assert.Equal(t, SIndex, restrictors[0].Kind)
	assert.Equal(t, []string{"LSST", "Object", "objectId", "1", "2"}, restrictors[0].Params)
}

func TestDiscoverSecondaryIndexRestrictors_Between(t *testing.T) {
	md := childMetadata()
	from := &ir.FromList{Tables: []*ir.TableRef{{Table: "Object"}}}
	between := &ir.BetweenPredicate{
		Value: ir.NewValueExpr(ir.NewColumnRefFactor(ir.ColumnRef{Column: "objectId"})),
		Lo:    ir.NewValueExpr(ir.NewConstFactor("1")),
		Hi:    ir.NewValueExpr(ir.NewConstFactor("100")),
	}
	and := ir.NewAndTerm(ir.NewBoolFactor(between))

	restrictors := DiscoverSecondaryIndexRestrictors(and, from, md, "LSST")
	require.Len(t, restrictors, 1)
	assert.Equal(t, SIndexBetween, restrictors[0].Kind)
	assert.Equal(t, []string{"LSST", "Object", "objectId", "1", "100"}, restrictors[0].Params)
}

// A child table's director-column equality is rewritten to the director
// table's own (db, table, col).
func TestDiscoverSecondaryIndexRestrictors_DirectorRewrite(t *testing.T) {
	md := childMetadata()
	from := &ir.FromList{Tables: []*ir.TableRef{{Table: "Source"}}}
	and := ir.NewAndTerm(ir.NewBoolFactor(colEq("objectId", "430209779186076")))

	restrictors := DiscoverSecondaryIndexRestrictors(and, from, md, "LSST")
	require.Len(t, restrictors, 1)
	assert.Equal(t, []string{"LSST", "Object", "objectId", "430209779186076"}, restrictors[0].Params)
}

func TestDiscoverSecondaryIndexRestrictors_NonLiteralOperandAbortsWithoutError(t *testing.T) {
	md := childMetadata()
	from := &ir.FromList{Tables: []*ir.TableRef{{Table: "Object"}}}
	cmp := &ir.CompPredicate{
		Left:  ir.NewValueExpr(ir.NewColumnRefFactor(ir.ColumnRef{Column: "objectId"})),
		Op:    ir.CompEq,
		Right: ir.NewValueExpr(ir.NewColumnRefFactor(ir.ColumnRef{Column: "otherId"})),
	}
	and := ir.NewAndTerm(ir.NewBoolFactor(cmp))

	restrictors := DiscoverSecondaryIndexRestrictors(and, from, md, "LSST")
	assert.Empty(t, restrictors)
}

func TestDiscoverSecondaryIndexRestrictors_NonIndexedColumnSkipped(t *testing.T) {
	md := childMetadata()
	from := &ir.FromList{Tables: []*ir.TableRef{{Table: "Object"}}}
	and := ir.NewAndTerm(ir.NewBoolFactor(colEq("ra_PS", "1.0")))

	restrictors := DiscoverSecondaryIndexRestrictors(and, from, md, "LSST")
	assert.Empty(t, restrictors)
}

func TestDiscoverSecondaryIndexRestrictors_NonEqualityComparisonIgnored(t *testing.T) {
	md := childMetadata()
	from := &ir.FromList{Tables: []*ir.TableRef{{Table: "Object"}}}
	gt := &ir.CompPredicate{
		Left:  ir.NewValueExpr(ir.NewColumnRefFactor(ir.ColumnRef{Column: "objectId"})),
		Op:    ir.CompGt,
		Right: ir.NewValueExpr(ir.NewConstFactor("1")),
	}
	and := ir.NewAndTerm(ir.NewBoolFactor(gt))

	restrictors := DiscoverSecondaryIndexRestrictors(and, from, md, "LSST")
	assert.Empty(t, restrictors)
}
