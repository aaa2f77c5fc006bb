package tokens

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnclassified reports that a message map was present but yielded no
// measurable content, so the (1,1) floor was substituted for the counts.
var ErrUnclassified = errors.New("tokens: message map yielded no classifiable content")

// floorCounts is the documented fallback for unclassifiable maps. It is
// a marker, not a measurement.
var floorCounts = Counts{Input: 1, Output: 1}

// lowerRole normalizes a node's role value; non-string roles read as "".
func lowerRole(v any) string {
	s, _ := v.(string)
	return strings.ToLower(s)
}

// Walk classifies every node of a message map and returns the summed
// token counts. Node identifiers are visited in sorted order so totals
// are reproducible within a run.
//
// Degradation contract: a map that is malformed, structurally alien, or
// yields nothing measurable produces the floor counts together with a
// non-nil error. The error distinguishes "recovered with fallback" from
// a clean walk; the counts are always usable either way.
func (rs Ruleset) Walk(messageMap any) (c Counts, err error) {
	defer func() {
		if r := recover(); r != nil {
			c = floorCounts
			err = fmt.Errorf("tokens: walk panicked: %v", r)
		}
	}()

	m, ok := messageMap.(map[string]any)
	if !ok || len(m) == 0 {
		return floorCounts, ErrUnclassified
	}

	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		node, ok := m[id].(map[string]any)
		if !ok {
			continue
		}

		c.add(rs.ClassifyContent(node["content"], lowerRole(node["role"])))

		// used_chunks bypass role routing: always input.
		chunks, _ := node["used_chunks"].([]any)
		for _, chunk := range chunks {
			cm, ok := chunk.(map[string]any)
			if !ok {
				continue
			}
			if text, ok := cm["content"].(string); ok && text != "" {
				c.Input += Estimate(text)
			}
		}
	}

	if c.Input == 0 && c.Output == 0 {
		return floorCounts, ErrUnclassified
	}
	return c, nil
}
