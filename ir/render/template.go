// Package render implements the IR serializer: a deterministic, lossless
// rewrite of a parsed query IR back into canonical SQL text.
package render

import "strings"

// QueryTemplate accumulates rendered tokens and joins them with single
// spaces by default, the way the C++ source's QueryTemplate buffers a token
// stream rather than building the SQL string via ad hoc concatenation. The
// canonical rendering glues commas and parentheses tightly to their
// neighbors (`` `objectId` IN(100,200) ``) while every other token pair gets
// exactly one separating space.
type QueryTemplate struct {
	tokens      []string
	pendingGlue bool // next Append call glues to the previous token, no separating space
}

// New returns an empty QueryTemplate.
func New() *QueryTemplate {
	return &QueryTemplate{}
}

// Append adds a token. Unless a glue was pending (from OpenParen, Comma, or
// NoSpaceBefore), it is rendered separated from its predecessor by a single
// space.
func (qt *QueryTemplate) Append(tok string) *QueryTemplate {
	if qt.pendingGlue && len(qt.tokens) > 0 {
		qt.tokens[len(qt.tokens)-1] += tok
	} else {
		qt.tokens = append(qt.tokens, tok)
	}
	qt.pendingGlue = false
	return qt
}

// NoSpaceBefore suppresses the separator before the next Append call,
// gluing it to whatever was appended last.
func (qt *QueryTemplate) NoSpaceBefore() *QueryTemplate {
	qt.pendingGlue = true
	return qt
}

// AppendRaw appends tok glued to the previous token with no separating
// space and no back-tick quoting, for punctuation like the "." joining a
// qualified `db`.`table` reference.
func (qt *QueryTemplate) AppendRaw(tok string) *QueryTemplate {
	qt.NoSpaceBefore().Append(tok)
	qt.pendingGlue = true
	return qt
}

// AppendIdentifier appends a back-ticked identifier, qserv's canonical
// identifier form.
func (qt *QueryTemplate) AppendIdentifier(name string) *QueryTemplate {
	return qt.Append("`" + name + "`")
}

// OpenParen appends "(" glued to the previous token (e.g. `IN(`,
// `qserv_areaspec_box(`) and arranges for the next Append to glue too, so
// the first argument hugs the paren.
func (qt *QueryTemplate) OpenParen() *QueryTemplate {
	qt.NoSpaceBefore().Append("(")
	qt.pendingGlue = true
	return qt
}

// CloseParen appends ")" glued to the previous token.
func (qt *QueryTemplate) CloseParen() *QueryTemplate {
	return qt.NoSpaceBefore().Append(")")
}

// Comma appends "," glued to the previous token and arranges for the next
// Append to glue too, so the list reads `a,b,c` with no interior spaces.
func (qt *QueryTemplate) Comma() *QueryTemplate {
	qt.NoSpaceBefore().Append(",")
	qt.pendingGlue = true
	return qt
}

// String renders the accumulated tokens, single-spaced except where glued.
func (qt *QueryTemplate) String() string {
	return strings.Join(qt.tokens, " ")
}

// Renderable is implemented by every IR node capable of serializing itself
// back to canonical SQL.
type Renderable interface {
	Render(qt *QueryTemplate)
}
