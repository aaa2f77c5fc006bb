package tokens

// Counts holds the input/output token totals for a classified subtree.
type Counts struct {
	Input  int
	Output int
}

func (c *Counts) add(other Counts) {
	c.Input += other.Input
	c.Output += other.Output
}

// Ruleset parameterizes the classifier. The extraction algorithm went
// through incompatible revisions in production; rather than keeping
// divergent copies, each revision is expressed as a ruleset over one
// walk.
type Ruleset struct {
	// InputRoles and OutputRoles route plain-text content by the role of
	// the enclosing node. Roles are compared lowercased; anything outside
	// both sets contributes nothing.
	InputRoles  map[string]bool
	OutputRoles map[string]bool

	// Tools enables content_type dispatch for toolUse (always output)
	// and toolResult (always input) items.
	Tools bool
}

// V2Ruleset matches the current table format, with tool-call support.
func V2Ruleset() Ruleset {
	return Ruleset{
		InputRoles:  map[string]bool{"user": true, "system": true, "instruction": true},
		OutputRoles: map[string]bool{"assistant": true, "bot": true},
		Tools:       true,
	}
}

// LegacyRuleset matches the original table format. It keeps the literal
// role "used_chunks" in the input set: the historical extractor routed
// that role to input on top of processing the used_chunks field itself,
// and frozen reprocessing must reproduce it.
func LegacyRuleset() Ruleset {
	return Ruleset{
		InputRoles:  map[string]bool{"user": true, "system": true, "instruction": true, "used_chunks": true},
		OutputRoles: map[string]bool{"assistant": true, "bot": true},
		Tools:       false,
	}
}
