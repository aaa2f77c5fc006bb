package tokens

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWalk_MixedRoles(t *testing.T) {
	rs := V2Ruleset()
	m := map[string]any{
		"node-1": map[string]any{"role": "user", "content": "hello world"},
		"node-2": map[string]any{"role": "assistant", "content": strings.Repeat("a", 400)},
	}
	c, err := rs.Walk(m)
	require.NoError(t, err)
	require.Equal(t, Counts{Input: 2, Output: 100}, c)
}

func TestWalk_RoleCaseInsensitive(t *testing.T) {
	rs := V2Ruleset()
	m := map[string]any{
		"n": map[string]any{"role": "User", "content": "hello world"},
	}
	c, err := rs.Walk(m)
	require.NoError(t, err)
	require.Equal(t, Counts{Input: 2, Output: 0}, c)
}

func TestWalk_UsedChunksAlwaysInput(t *testing.T) {
	rs := V2Ruleset()
	m := map[string]any{
		"n": map[string]any{
			"role":    "assistant",
			"content": "hello world",
			"used_chunks": []any{
				map[string]any{"content": strings.Repeat("x", 40)},
				map[string]any{"content": ""},
				"not a chunk record",
			},
		},
	}
	c, err := rs.Walk(m)
	require.NoError(t, err)
	require.Equal(t, Counts{Input: 10, Output: 2}, c)
}

func TestWalk_UnrecognizedRolesHitTheFloor(t *testing.T) {
	rs := V2Ruleset()
	m := map[string]any{
		"n1": map[string]any{"role": "narrator", "content": "hello world"},
		"n2": map[string]any{"role": "observer", "content": "more text here"},
	}
	c, err := rs.Walk(m)
	require.ErrorIs(t, err, ErrUnclassified)
	require.Equal(t, Counts{Input: 1, Output: 1}, c)
}

func TestWalk_EmptyOrAlienMapHitsTheFloor(t *testing.T) {
	rs := V2Ruleset()

	for name, in := range map[string]any{
		"nil":      nil,
		"empty":    map[string]any{},
		"not-a-map": []any{"x"},
	} {
		c, err := rs.Walk(in)
		require.ErrorIs(t, err, ErrUnclassified, name)
		require.Equal(t, Counts{Input: 1, Output: 1}, c, name)
	}
}

func TestWalk_NonMapNodesSkipped(t *testing.T) {
	rs := V2Ruleset()
	m := map[string]any{
		"bad":  "just a string",
		"good": map[string]any{"role": "user", "content": "hello world"},
	}
	c, err := rs.Walk(m)
	require.NoError(t, err)
	require.Equal(t, Counts{Input: 2, Output: 0}, c)
}

func TestWalk_DeterministicAcrossRuns(t *testing.T) {
	rs := V2Ruleset()
	m := map[string]any{
		"a": map[string]any{"role": "user", "content": "one two three four"},
		"b": map[string]any{"role": "assistant", "content": "five six seven eight"},
		"c": map[string]any{"role": "user", "content": "nine ten"},
	}
	first, err := rs.Walk(m)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		c, err := rs.Walk(m)
		require.NoError(t, err)
		require.Equal(t, first, c)
	}
}
