package parse

// RuleCtx is the minimal context object passed to EnterRule/ExitRule by an
// external push-style parse walker. A generated ANTLR listener is out of scope for this
// repository; RuleCtx stands in for the typed per-rule context classes the
// original grammar produces, collapsed into one flexible shape so every
// adapter can run its context check the same way.
type RuleCtx struct {
	// Text is the source span this rule covers, used to build the
	// "offending fragment" of an error message.
	Text string

	// Tokens records which grammar terminals were present on this node
	// (e.g. "FROM", "WITH", "ROLLUP", "EOF", "DISTINCT"). Adapters assert
	// required tokens and reject unsupported ones from this set.
	Tokens map[string]bool

	// Attrs carries rule-specific scalar data that in the original grammar
	// comes from dedicated token accessors: a comparison operator's text,
	// a constant's literal value, an identifier string, a precomputed
	// limit integer, and so on.
	Attrs map[string]interface{}
}

// Has reports whether token was recorded present on this node.
func (c *RuleCtx) Has(token string) bool {
	return c != nil && c.Tokens[token]
}

// Str returns the named string attribute, or "" if absent or not a string.
func (c *RuleCtx) Str(key string) string {
	if c == nil {
		return ""
	}
	s, _ := c.Attrs[key].(string)
	return s
}

// Bool returns the named bool attribute.
func (c *RuleCtx) Bool(key string) bool {
	if c == nil {
		return false
	}
	b, _ := c.Attrs[key].(bool)
	return b
}

// Int returns the named int attribute.
func (c *RuleCtx) Int(key string) int {
	if c == nil {
		return 0
	}
	i, _ := c.Attrs[key].(int)
	return i
}
