package filter

import "sort"

// Query is the normalized parameter set sent upstream. Optional fields use
// a deliberate asymmetry mirroring the upstream contract: NameFilter and
// MaxProductionCost are omitted from the wire when falsy (an empty string is
// "no filter", a ceiling of zero is indistinguishable from "unset" and is
// dropped), while HasRequiredSkillsOnly is always sent.
type Query struct {
	CategoryIDs           []int32
	SortBy                SortKey
	NameFilter            string
	MaxProductionCost     float64
	HasRequiredSkillsOnly bool
}

// Query builds the normalized upstream query for the current configuration.
// Selected ids not present in the catalog are stale leftovers from an older
// catalog version and are dropped here; the persisted selection keeps them.
// Ids are sorted ascending so the result is deterministic for a given map.
func (c *Config) Query(catalog Catalog) Query {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := make([]int32, 0, len(c.selectedCategories))
	for id, selected := range c.selectedCategories {
		if !selected {
			continue
		}
		if _, ok := catalog[id]; !ok {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return Query{
		CategoryIDs:           ids,
		SortBy:                c.sortBy,
		NameFilter:            c.nameFilter,
		MaxProductionCost:     c.maxProductionCost,
		HasRequiredSkillsOnly: c.hasRequiredSkillsOnly,
	}
}
