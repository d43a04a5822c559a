package parse

import (
	"strings"

	"github.com/lsst-qserv/qserv-core/ir"
)

func init() {
	registerAdapter("CallStatement", func(parent Adapter, d *Driver) Adapter {
		return &callStatementAdapter{parent: parent, driver: d}
	})
	registerAdapter("SetGlobal", func(parent Adapter, d *Driver) Adapter {
		return &setGlobalAdapter{parent: parent, driver: d}
	})
}

// callStatementAdapter handles `CALL QSERV_MANAGER('<string>')`.
type callStatementAdapter struct {
	parent Adapter
	driver *Driver
	ctx    *RuleCtx
}

func (a *callStatementAdapter) Name() string { return "CallStatement" }
func (a *callStatementAdapter) OnEnter()      {}

func (a *callStatementAdapter) CheckContext(ctx *RuleCtx) error {
	a.ctx = ctx
	if ctx.Str("procedure") != "QSERV_MANAGER" {
		return ErrAdapterOrder.New(ctx.Text, "only CALL QSERV_MANAGER is supported")
	}
	return nil
}

func (a *callStatementAdapter) OnExit() error {
	admin := &ir.AdminStmt{Kind: "CALL", CallArg: a.ctx.Str("arg")}
	parent, ok := a.parent.(adminStatementHandler)
	if !ok {
		return ErrAdapterExecution.New("CallStatement", "parent does not accept an admin statement")
	}
	parent.HandleAdminStatement(admin)
	return nil
}

// setGlobalAdapter handles `SET GLOBAL <name> = <literal>`, rejecting the
// boolean keyword literals TRUE/FALSE up front. Numeric spellings like 0
// and 1 are accepted as ordinary literal values, not coerced to a bool.
type setGlobalAdapter struct {
	parent Adapter
	driver *Driver
	ctx    *RuleCtx
}

func (a *setGlobalAdapter) Name() string { return "SetGlobal" }
func (a *setGlobalAdapter) OnEnter()      {}

func (a *setGlobalAdapter) CheckContext(ctx *RuleCtx) error {
	a.ctx = ctx
	if !ctx.Has("GLOBAL") {
		return ErrAdapterExecution.New("SetGlobal", "missing GLOBAL")
	}
	if value := ctx.Str("value"); strings.EqualFold(value, "true") || strings.EqualFold(value, "false") {
		return ErrAdapterOrder.New(ctx.Text, "SET GLOBAL does not accept a boolean literal")
	}
	return nil
}

func (a *setGlobalAdapter) OnExit() error {
	name, err := normalizeIdentifier(a.ctx.Str("name"))
	if err != nil {
		return err
	}
	admin := &ir.AdminStmt{Kind: "SET", VarName: name, VarValue: a.ctx.Str("value")}
	parent, ok := a.parent.(adminStatementHandler)
	if !ok {
		return ErrAdapterExecution.New("SetGlobal", "parent does not accept an admin statement")
	}
	parent.HandleAdminStatement(admin)
	return nil
}
