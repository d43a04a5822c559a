package ir

import (
	"strings"

	"github.com/lsst-qserv/qserv-core/ir/render"
)

// ColumnRef is a possibly-qualified column reference: db.table.column. Any
// prefix may be empty, in which case it is omitted from rendered SQL.
// Identity is tuple equality: an empty prefix only equals another empty
// prefix, so ColumnRef{"", "", "objectId"} does not equal
// ColumnRef{"", "Object", "objectId"} (table differs), while
// ColumnRef{"", "", "x"} equals ColumnRef{"", "", "x"}.
type ColumnRef struct {
	Db     string
	Table  string
	Column string
}

// Equal implements ColumnRef identity: tuple equality, where an empty
// prefix component is treated as itself (not as a wildcard) — two
// ColumnRefs are equal only if every non-empty-or-not component matches.
func (c ColumnRef) Equal(o ColumnRef) bool {
	return c.Db == o.Db && c.Table == o.Table && c.Column == o.Column
}

// Render serializes the reference as `db`.`table`.`column`, omitting any
// empty prefix component and its following dot.
func (c ColumnRef) Render(qt *render.QueryTemplate) {
	var parts []string
	for _, part := range []string{c.Db, c.Table, c.Column} {
		if part != "" {
			parts = append(parts, "`"+part+"`")
		}
	}
	qt.Append(strings.Join(parts, "."))
}
