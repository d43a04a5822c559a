// Package parse implements the adapter-stack parse driver: a
// stateful consumer of enter/exit events, one pair per grammar rule
// instance, that builds a query IR one handle... callback at a time.
package parse

import "gopkg.in/src-d/go-errors.v1"

var (
	// ErrAdapterExecution is the internal assertion failure: a required
	// token was missing, or a child callback arrived in a state the
	// adapter cannot be in. Signals a parse-IR bug, not a rejected query.
	ErrAdapterExecution = errors.NewKind("parse: execution condition failed in %s: %s")

	// ErrAdapterOrder is the user-facing "not supported" error: the
	// grammar reached a construct this driver does not handle.
	ErrAdapterOrder = errors.NewKind("qserv cannot parse query near \"%s\": %s")
)
