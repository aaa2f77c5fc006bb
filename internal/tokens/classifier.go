package tokens

import "encoding/json"

// ClassifyContent returns the token counts for one node's content value,
// routed by the role of the enclosing node. Content is polymorphic:
// absent, a plain string, a single item, or an ordered list of items.
func (rs Ruleset) ClassifyContent(content any, role string) Counts {
	var c Counts
	switch v := content.(type) {
	case string:
		rs.route(&c, role, Estimate(v))
	case []any:
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				c.add(rs.classifyItem(m, role))
			}
		}
	case map[string]any:
		c.add(rs.classifyItem(v, role))
	}
	return c
}

// classifyItem handles one content item. Typed tool items route
// unconditionally: a tool invocation is the agent's output no matter
// which node carries it, and the tool's result feeds the next turn's
// input. An item that is itself a role-bearing node contributes both
// its typed leaf and its recursive subtree.
func (rs Ruleset) classifyItem(item map[string]any, role string) Counts {
	var c Counts

	contentType, _ := item["content_type"].(string)
	if contentType == "" {
		contentType = "text"
	}

	switch contentType {
	case "text":
		if body, ok := item["body"].(string); ok {
			rs.route(&c, role, Estimate(body))
		}
	case "toolUse":
		if rs.Tools {
			c.Output += toolUseTokens(item["body"])
		}
	case "toolResult":
		if rs.Tools {
			c.Input += toolResultTokens(item["body"])
		}
	}

	if _, hasRole := item["role"]; hasRole {
		if nested, hasContent := item["content"]; hasContent {
			c.add(rs.ClassifyContent(nested, lowerRole(item["role"])))
		}
	}
	return c
}

func (rs Ruleset) route(c *Counts, role string, tokens int) {
	switch {
	case rs.InputRoles[role]:
		c.Input += tokens
	case rs.OutputRoles[role]:
		c.Output += tokens
	}
}

// toolUseTokens estimates the serialized form of the invocation's input
// payload. encoding/json sorts map keys, so the estimate is deterministic
// per item.
func toolUseTokens(body any) int {
	m, ok := body.(map[string]any)
	if !ok {
		return 0
	}
	input, ok := m["input"]
	if !ok || input == nil {
		return 0
	}
	if im, ok := input.(map[string]any); ok && len(im) == 0 {
		return 0
	}
	text, err := json.Marshal(input)
	if err != nil {
		return 0
	}
	return Estimate(string(text))
}

// toolResultTokens sums the text content of each result entry, skipping
// entries without the json.content path.
func toolResultTokens(body any) int {
	m, ok := body.(map[string]any)
	if !ok {
		return 0
	}
	entries, ok := m["content"].([]any)
	if !ok {
		return 0
	}
	total := 0
	for _, entry := range entries {
		em, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		jm, ok := em["json"].(map[string]any)
		if !ok {
			continue
		}
		if text, ok := jm["content"].(string); ok && text != "" {
			total += Estimate(text)
		}
	}
	return total
}
