package parse

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lsst-qserv/qserv-core/ir"
	"github.com/lsst-qserv/qserv-core/ir/render"
)

func attrs(kv ...interface{}) map[string]interface{} {
	m := map[string]interface{}{}
	for i := 0; i+1 < len(kv); i += 2 {
		m[kv[i].(string)] = kv[i+1]
	}
	return m
}

func tokens(names ...string) map[string]bool {
	m := map[string]bool{}
	for _, n := range names {
		m[n] = true
	}
	return m
}

// Driven through the adapter stack rather than built directly:
// SELECT objectId FROM Object WHERE objectId = 100.
func TestDriver_SimpleSelectWithComparison(t *testing.T) {
	d := NewDriver("SELECT objectId FROM Object WHERE objectId = 100")

	require.NoError(t, d.EnterRule("Root", &RuleCtx{Tokens: tokens("EOF")}))
	require.NoError(t, d.EnterRule("Select", &RuleCtx{}))

	require.NoError(t, d.EnterRule("SelectElements", &RuleCtx{}))
	require.NoError(t, d.EnterRule("SelectElement", &RuleCtx{}))
	require.NoError(t, d.EnterRule("FullColumnName", &RuleCtx{Attrs: attrs("column", "objectId")}))
	require.NoError(t, d.ExitRule("FullColumnName", &RuleCtx{}))
	require.NoError(t, d.ExitRule("SelectElement", &RuleCtx{}))
	require.NoError(t, d.ExitRule("SelectElements", &RuleCtx{}))

	require.NoError(t, d.EnterRule("FromClause", &RuleCtx{Tokens: tokens("FROM")}))
	require.NoError(t, d.EnterRule("TableSources", &RuleCtx{}))
	require.NoError(t, d.EnterRule("TableSource", &RuleCtx{Attrs: attrs("table", "Object")}))
	require.NoError(t, d.ExitRule("TableSource", &RuleCtx{}))
	require.NoError(t, d.ExitRule("TableSources", &RuleCtx{}))

	left := ir.NewValueExpr(ir.NewColumnRefFactor(ir.ColumnRef{Column: "objectId"}))
	right := ir.NewValueExpr(ir.NewConstFactor("100"))
	require.NoError(t, d.EnterRule("PredicateExpression", &RuleCtx{Attrs: attrs("slot", "where")}))
	require.NoError(t, d.EnterRule("BinaryComparasionPredicate", &RuleCtx{
		Attrs: attrs("op", "=", "left", left, "right", right),
	}))
	require.NoError(t, d.ExitRule("BinaryComparasionPredicate", &RuleCtx{}))
	require.NoError(t, d.ExitRule("PredicateExpression", &RuleCtx{}))

	require.NoError(t, d.ExitRule("FromClause", &RuleCtx{}))
	require.NoError(t, d.ExitRule("Select", &RuleCtx{}))
	require.NoError(t, d.ExitRule("Root", &RuleCtx{Tokens: tokens("EOF")}))

	result := d.Result()
	require.NotNil(t, result.Select)
	assert.Nil(t, result.Admin)

	want := ir.NewSelectStmt()
	want.SelectList = &ir.SelectList{Items: []*ir.ValueExpr{
		ir.NewValueExpr(ir.NewColumnRefFactor(ir.ColumnRef{Column: "objectId"})),
	}}
	want.FromList = &ir.FromList{Tables: []*ir.TableRef{{Table: "Object"}}}
	comp := &ir.CompPredicate{Left: left, Op: ir.CompEq, Right: right}
	want.Where = &ir.WhereClause{Root: ir.NewOrTerm(ir.NewAndTerm(ir.NewBoolFactor(comp)))}

	if diff := cmp.Diff(want, result.Select); diff != "" {
		t.Fatalf("select stmt mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, ir.IsCNFShape(result.Select.Where.Root))

	qt := render.New()
	result.Select.Render(qt)
	assert.Equal(t, "SELECT `objectId` FROM `Object` WHERE `objectId` = 100", qt.String())
}

func TestDriver_UnrecognizedRuleIsUnsupported(t *testing.T) {
	d := NewDriver("SELECT 1")
	err := d.EnterRule("SomeFutureRule", &RuleCtx{Text: "SELECT 1"})
	require.Error(t, err)
	assert.True(t, ErrAdapterOrder.Is(err))
}

func TestDriver_UnsupportedFromClauseConstructRejected(t *testing.T) {
	d := NewDriver("SELECT * FROM t WITH r AS (...)")
	require.NoError(t, d.EnterRule("Root", &RuleCtx{Tokens: tokens("EOF")}))
	require.NoError(t, d.EnterRule("Select", &RuleCtx{}))
	err := d.EnterRule("FromClause", &RuleCtx{Text: "FROM t WITH r AS (...)", Tokens: tokens("FROM", "WITH")})
	require.Error(t, err)
	assert.True(t, ErrAdapterOrder.Is(err))
}

func TestDriver_UnbalancedExitIsRejected(t *testing.T) {
	d := NewDriver("SELECT 1")
	require.NoError(t, d.EnterRule("Root", &RuleCtx{Tokens: tokens("EOF")}))
	err := d.ExitRule("Select", &RuleCtx{})
	require.Error(t, err)
	assert.True(t, ErrAdapterExecution.Is(err))
}

func TestDriver_SetGlobalRejectsBooleanLiteral(t *testing.T) {
	d := NewDriver("SET GLOBAL QSERV_FOO = true")
	require.NoError(t, d.EnterRule("Root", &RuleCtx{Tokens: tokens("EOF")}))
	err := d.EnterRule("SetGlobal", &RuleCtx{
		Text:   "SET GLOBAL QSERV_FOO = true",
		Tokens: tokens("GLOBAL"),
		Attrs:  attrs("name", "QSERV_FOO", "value", "true"),
	})
	require.Error(t, err)
	assert.True(t, ErrAdapterOrder.Is(err))
}

func TestDriver_SetGlobalAcceptsNonBooleanLiteral(t *testing.T) {
	d := NewDriver("SET GLOBAL QSERV_ROW_COUNTER_OPTIMIZATION = 0")
	require.NoError(t, d.EnterRule("Root", &RuleCtx{Tokens: tokens("EOF")}))
	require.NoError(t, d.EnterRule("SetGlobal", &RuleCtx{
		Tokens: tokens("GLOBAL"),
		Attrs:  attrs("name", "QSERV_ROW_COUNTER_OPTIMIZATION", "value", "0"),
	}))
	require.NoError(t, d.ExitRule("SetGlobal", &RuleCtx{}))
	require.NoError(t, d.ExitRule("Root", &RuleCtx{Tokens: tokens("EOF")}))

	result := d.Result()
	require.NotNil(t, result.Admin)
	assert.Nil(t, result.Select)
	assert.Equal(t, "SET", result.Admin.Kind)
	assert.Equal(t, "QSERV_ROW_COUNTER_OPTIMIZATION", result.Admin.VarName)
	assert.Equal(t, "0", result.Admin.VarValue)
}

func TestDriver_CallStatement(t *testing.T) {
	d := NewDriver(`CALL QSERV_MANAGER('{"service":"..."}')`)
	require.NoError(t, d.EnterRule("Root", &RuleCtx{Tokens: tokens("EOF")}))
	require.NoError(t, d.EnterRule("CallStatement", &RuleCtx{
		Attrs: attrs("procedure", "QSERV_MANAGER", "arg", `{"service":"..."}`),
	}))
	require.NoError(t, d.ExitRule("CallStatement", &RuleCtx{}))
	require.NoError(t, d.ExitRule("Root", &RuleCtx{Tokens: tokens("EOF")}))

	result := d.Result()
	require.NotNil(t, result.Admin)
	assert.Equal(t, "CALL", result.Admin.Kind)
	assert.Equal(t, `{"service":"..."}`, result.Admin.CallArg)
}

func TestDriver_CallStatementRejectsUnknownProcedure(t *testing.T) {
	d := NewDriver("CALL OTHER_PROC()")
	require.NoError(t, d.EnterRule("Root", &RuleCtx{Tokens: tokens("EOF")}))
	err := d.EnterRule("CallStatement", &RuleCtx{Text: "CALL OTHER_PROC()", Attrs: attrs("procedure", "OTHER_PROC")})
	require.Error(t, err)
	assert.True(t, ErrAdapterOrder.Is(err))
}

func TestDriver_LikeEscapeRejected(t *testing.T) {
	d := NewDriver("SELECT * FROM t WHERE x LIKE '%a%' ESCAPE '\\'")
	require.NoError(t, d.EnterRule("Root", &RuleCtx{Tokens: tokens("EOF")}))
	require.NoError(t, d.EnterRule("Select", &RuleCtx{}))
	require.NoError(t, d.EnterRule("FromClause", &RuleCtx{Tokens: tokens("FROM")}))
	require.NoError(t, d.EnterRule("PredicateExpression", &RuleCtx{Attrs: attrs("slot", "where")}))
	err := d.EnterRule("LikePredicate", &RuleCtx{Text: "x LIKE '%a%' ESCAPE '\\'", Tokens: tokens("ESCAPE")})
	require.Error(t, err)
	assert.True(t, ErrAdapterOrder.Is(err))
}

func TestDriver_IdentifierWithLeadingUnderscoreRejected(t *testing.T) {
	_, err := normalizeIdentifier("_hidden")
	require.Error(t, err)
	assert.True(t, ErrAdapterOrder.Is(err))
}

func TestDriver_BacktickIdentifierUnquoted(t *testing.T) {
	got, err := normalizeIdentifier("`Object`")
	require.NoError(t, err)
	assert.Equal(t, "Object", got)
}

// A logical AND of two comparisons folds into one AndTerm rather than
// nesting.
func TestDriver_LogicalAndFoldsSiblingPredicates(t *testing.T) {
	d := NewDriver("SELECT * FROM t WHERE a = 1 AND b = 2")
	require.NoError(t, d.EnterRule("Root", &RuleCtx{Tokens: tokens("EOF")}))
	require.NoError(t, d.EnterRule("Select", &RuleCtx{}))
	require.NoError(t, d.EnterRule("FromClause", &RuleCtx{Tokens: tokens("FROM")}))

	require.NoError(t, d.EnterRule("LogicalExpression", &RuleCtx{Attrs: attrs("slot", "where")}))

	require.NoError(t, d.EnterRule("PredicateExpression", &RuleCtx{}))
	require.NoError(t, d.EnterRule("BinaryComparasionPredicate", &RuleCtx{Attrs: attrs(
		"op", "=",
		"left", ir.NewValueExpr(ir.NewColumnRefFactor(ir.ColumnRef{Column: "a"})),
		"right", ir.NewValueExpr(ir.NewConstFactor("1")),
	)}))
	require.NoError(t, d.ExitRule("BinaryComparasionPredicate", &RuleCtx{}))
	require.NoError(t, d.ExitRule("PredicateExpression", &RuleCtx{}))

	require.NoError(t, d.EnterRule("PredicateExpression", &RuleCtx{}))
	require.NoError(t, d.EnterRule("BinaryComparasionPredicate", &RuleCtx{Attrs: attrs(
		"op", "=",
		"left", ir.NewValueExpr(ir.NewColumnRefFactor(ir.ColumnRef{Column: "b"})),
		"right", ir.NewValueExpr(ir.NewConstFactor("2")),
	)}))
	require.NoError(t, d.ExitRule("BinaryComparasionPredicate", &RuleCtx{}))
	require.NoError(t, d.ExitRule("PredicateExpression", &RuleCtx{}))

	require.NoError(t, d.ExitRule("LogicalExpression", &RuleCtx{}))
	require.NoError(t, d.ExitRule("FromClause", &RuleCtx{}))
	require.NoError(t, d.ExitRule("Select", &RuleCtx{}))
	require.NoError(t, d.ExitRule("Root", &RuleCtx{Tokens: tokens("EOF")}))

	result := d.Result()
	require.NotNil(t, result.Select)
	require.NotNil(t, result.Select.Where)
	or := result.Select.Where.Root
	require.Len(t, or.Terms, 1)
	and, ok := or.Terms[0].(*ir.AndTerm)
	require.True(t, ok)
	assert.Len(t, and.Terms, 2)
}
