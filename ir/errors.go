package ir

import "gopkg.in/src-d/go-errors.v1"

// ErrInvalidIR reports an IR node that violates one of its documented
// invariants: an empty ValueExpr or one whose Op=NONE is not exactly at the
// tail, a natural join carrying a spec, a join spec without exactly one of
// USING/ON, or an unrecognized aggregate name. It is returned by the
// Validate methods and NewAggFuncFactor; the CNF shape of a WHERE root is
// checked by IsCNFShape, which returns a bool instead.
var ErrInvalidIR = errors.NewKind("invalid query IR: %s")
