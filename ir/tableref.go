package ir

import (
	"github.com/lsst-qserv/qserv-core/ir/render"
)

// TableRef represents `db.table [AS alias]` and any number of trailing
// joins, forming a left-linear join chain.
type TableRef struct {
	Db    string
	Table string
	Alias string
	Joins []*JoinRef
}

// JoinSpec holds exactly one of Using or On, the two forms of join
// condition accepted after an inner/outer join's table reference.
// Multi-column USING is represented as a list (see DESIGN.md for the
// resolution of this).
type JoinSpec struct {
	Using []ColumnRef
	On    BoolTerm
}

// HasUsing reports whether this join condition is a USING(...) form.
func (s *JoinSpec) HasUsing() bool {
	return s != nil && len(s.Using) > 0
}

// HasOn reports whether this join condition is an ON <pred> form.
func (s *JoinSpec) HasOn() bool {
	return s != nil && s.On != nil
}

// JoinRef combines a join kind with the target table and an optional join
// specification. A natural join must carry a nil Spec;
// Validate checks this invariant.
type JoinRef struct {
	Right   *TableRef
	Kind    JoinKind
	Natural bool
	Spec    *JoinSpec
}

// Validate checks the "a natural join must carry no spec" invariant
// and that JoinSpec carries exactly one of Using/On.
func (j *JoinRef) Validate() error {
	if j.Natural && j.Spec != nil {
		return ErrInvalidIR.New("natural join must not carry a join spec")
	}
	if j.Spec != nil {
		if j.Spec.HasUsing() == j.Spec.HasOn() {
			return ErrInvalidIR.New("join spec must carry exactly one of USING or ON")
		}
	}
	return nil
}

// Validate walks the join chain checking each JoinRef's invariant.
func (t *TableRef) Validate() error {
	for _, j := range t.Joins {
		if err := j.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// QualifiedName returns the effective alias used to refer to this table in
// expressions: the explicit alias if set, else the bare table name.
func (t *TableRef) QualifiedName() string {
	if t.Alias != "" {
		return t.Alias
	}
	return t.Table
}

// Render serializes `db`.`table` [AS `alias`] followed by each trailing
// join, in order.
func (t *TableRef) Render(qt *render.QueryTemplate) {
	if t.Db != "" {
		qt.AppendIdentifier(t.Db)
		qt.AppendRaw(".")
		qt.Append("`" + t.Table + "`")
	} else {
		qt.AppendIdentifier(t.Table)
	}
	if t.Alias != "" {
		qt.Append("AS")
		qt.AppendIdentifier(t.Alias)
	}
	for _, j := range t.Joins {
		j.Render(qt)
	}
}

// Render serializes one join clause: [NATURAL] <kind> <table> [USING(...)|ON <pred>].
func (j *JoinRef) Render(qt *render.QueryTemplate) {
	if j.Natural {
		qt.Append("NATURAL")
	}
	qt.Append(j.Kind.String())
	j.Right.Render(qt)
	if j.Spec.HasUsing() {
		qt.Append("USING")
		qt.OpenParen()
		for i, col := range j.Spec.Using {
			if i > 0 {
				qt.Comma()
			}
			col.Render(qt)
		}
		qt.CloseParen()
	} else if j.Spec.HasOn() {
		qt.Append("ON")
		j.Spec.On.Render(qt)
	}
}
