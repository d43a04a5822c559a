package parse

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/lsst-qserv/qserv-core/ir"
)

// Adapter is the interface every node on the driver's stack implements
//. CheckContext runs once on enter; OnExit runs once on exit
// and is where the adapter calls back into its parent with the IR it has
// assembled.
type Adapter interface {
	CheckContext(ctx *RuleCtx) error
	Name() string
	OnEnter()
	OnExit() error
}

// Listener is the external dependency boundary a generated parse walker
// drives. An ANTLR-style listener (out of scope for this
// repository) would call EnterRule/ExitRule once per grammar rule instance.
type Listener interface {
	EnterRule(rule string, ctx *RuleCtx) error
	ExitRule(rule string, ctx *RuleCtx) error
}

// Result is the driver's completed output: exactly one of Select or Admin
// is set.
type Result struct {
	Select *ir.SelectStmt
	Admin  *ir.AdminStmt
}

// adapterFactory builds the Adapter for a named grammar rule, given its
// parent (the adapter currently on top of the stack, possibly nil for
// Root) and the owning driver (adapters that build leaf IR need back a
// reference for error context).
type adapterFactory func(parent Adapter, d *Driver) Adapter

var adapterFactories = map[string]adapterFactory{}

func registerAdapter(rule string, f adapterFactory) {
	adapterFactories[rule] = f
}

// Driver holds the adapter stack and drives it from parse events. It implements Listener. The "weak reference to parent" design note
// in §9 becomes a plain Adapter field set at push time — Go's garbage
// collector makes the C++ source's weak_ptr precaution unnecessary; the
// driver's stack slice is the sole owner either way.
type Driver struct {
	QueryText string

	stack []Adapter
	names []string

	result Result
}

// NewDriver returns a Driver ready to receive EnterRule/ExitRule events for
// one query's worth of parse tree.
func NewDriver(queryText string) *Driver {
	return &Driver{QueryText: queryText}
}

// top returns the adapter currently on top of the stack, or nil if empty
// (only Root has no parent).
func (d *Driver) top() Adapter {
	if len(d.stack) == 0 {
		return nil
	}
	return d.stack[len(d.stack)-1]
}

// stackString joins the current adapter stack's names, comma-delimited,
// for the Trace-level enter/exit log lines. Adapter errors do not carry it.
func (d *Driver) stackString() string {
	return strings.Join(d.names, ", ")
}

// EnterRule looks up the adapter factory for rule, constructs it with the
// current stack top as parent, runs its context check, and pushes it.
func (d *Driver) EnterRule(rule string, ctx *RuleCtx) error {
	factory, ok := adapterFactories[rule]
	if !ok {
		return ErrAdapterOrder.New(fragment(ctx), "unrecognized rule "+rule)
	}
	a := factory(d.top(), d)
	if err := a.CheckContext(ctx); err != nil {
		return err
	}
	a.OnEnter()
	d.stack = append(d.stack, a)
	d.names = append(d.names, a.Name())
	logrus.WithFields(logrus.Fields{"rule": rule, "stack": d.stackString()}).Trace("parse: enter")
	return nil
}

// ExitRule pops the top adapter, verifying it matches rule by name (a
// name comparison stands in for a typed downcast check, since Go
// adapters are concrete types, not downcast targets), and runs its exit
// callback.
func (d *Driver) ExitRule(rule string, ctx *RuleCtx) error {
	if len(d.stack) == 0 {
		return ErrAdapterExecution.New("Driver", "exit with empty adapter stack for rule "+rule)
	}
	a := d.stack[len(d.stack)-1]
	if a.Name() != rule {
		return ErrAdapterExecution.New("Driver", "unbalanced enter/exit: top is "+a.Name()+", exiting "+rule)
	}
	d.stack = d.stack[:len(d.stack)-1]
	d.names = d.names[:len(d.names)-1]
	logrus.WithFields(logrus.Fields{"rule": rule, "stack": d.stackString()}).Trace("parse: exit")
	return a.OnExit()
}

// Result returns the completed parse result. Valid only after the Root
// rule's ExitRule has run without error.
func (d *Driver) Result() Result {
	return d.result
}

func fragment(ctx *RuleCtx) string {
	if ctx == nil {
		return ""
	}
	return ctx.Text
}
