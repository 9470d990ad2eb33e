// Package suggest offers local item-name completions for the name-filter
// box, without a round trip upstream.
package suggest

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/mkrasov/foundry/internal/upstream"
)

type scored struct {
	name  string
	score float64
}

// distanceLimit scales the tolerated edit distance with candidate length,
// so short names stay strict and long names forgive more typos.
func distanceLimit(length int) int {
	switch {
	case length <= 4:
		return 1
	case length <= 8:
		return 2
	default:
		return 3
	}
}

// Names returns up to limit item names from entries matching query, best
// first. Exact matches rank above prefix matches, which rank above
// Levenshtein-close ones; ties break alphabetically. Matching is
// case-insensitive. An empty query yields nothing.
func Names(entries []upstream.CatalogEntry, query string, limit int) []string {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" || limit <= 0 {
		return nil
	}

	seen := make(map[string]bool, len(entries))
	results := make([]scored, 0, len(entries))
	for _, e := range entries {
		if e.TypeName == "" || seen[e.TypeName] {
			continue
		}
		seen[e.TypeName] = true

		cand := strings.ToLower(e.TypeName)
		var score float64
		switch {
		case cand == query:
			score = 1.0
		case strings.HasPrefix(cand, query) && len(query) >= 2:
			score = 0.9
		case strings.Contains(cand, query) && len(query) >= 3:
			score = 0.8
		default:
			dist := levenshtein.ComputeDistance(query, cand)
			if dist > distanceLimit(len(cand)) {
				continue
			}
			score = 0.7 - 0.1*float64(dist)
		}
		results = append(results, scored{name: e.TypeName, score: score})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].score == results[j].score {
			return results[i].name < results[j].name
		}
		return results[i].score > results[j].score
	})

	if len(results) > limit {
		results = results[:limit]
	}
	names := make([]string, len(results))
	for i, r := range results {
		names[i] = r.name
	}
	return names
}
