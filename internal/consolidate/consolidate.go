// Package consolidate merges a freshly computed row set with the
// previously published historical set.
package consolidate

import (
	"sort"

	"tokens-report/internal/domain"
)

// Merge unions historical and fresh rows. An empty historical set returns
// the fresh set verbatim, in its original order. Otherwise the sets are
// concatenated historical-first, stable-sorted descending by create_date
// (the fixed date format sorts lexicographically), and deduplicated on
// (pk, sk) keeping the first occurrence.
//
// Tie-break: the stable sort preserves concatenation order, so two rows
// sharing a create_date keep historical before fresh, and dedup keeps the
// historical one. Rows with differing dates keep the later date.
func Merge(historical, fresh []domain.Row) []domain.Row {
	if len(historical) == 0 {
		return fresh
	}

	merged := make([]domain.Row, 0, len(historical)+len(fresh))
	merged = append(merged, historical...)
	merged = append(merged, fresh...)

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].CreateDate > merged[j].CreateDate
	})

	type key struct{ pk, sk string }
	seen := make(map[key]bool, len(merged))
	out := merged[:0]
	for _, row := range merged {
		k := key{row.PK, row.SK}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, row)
	}
	return out
}
