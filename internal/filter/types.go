package filter

import "fmt"

// Category is one manufacturable-item grouping, immutable once fetched.
type Category struct {
	CategoryID   int32  `json:"categoryID"`
	CategoryName string `json:"categoryName"`
}

// Catalog maps category id to Category. It is populated once at session
// start and only ever replaced wholesale, never mutated in place.
type Catalog map[int32]Category

// NewCatalog builds a Catalog from a fetched category list.
func NewCatalog(categories []Category) Catalog {
	c := make(Catalog, len(categories))
	for _, cat := range categories {
		c[cat.CategoryID] = cat
	}
	return c
}

// SortKey selects the profitability ordering applied by the upstream service.
// The values are the upstream wire strings.
type SortKey string

const (
	SortProfitPerDayBySellPrice SortKey = "Profit.PerDay.BasedOnSellPrice:DESC"
	SortProfitPerDayByBuyPrice  SortKey = "Profit.PerDay.BasedOnBuyPrice:DESC"
)

// DefaultSortKey is used when no sort key has been persisted.
const DefaultSortKey = SortProfitPerDayBySellPrice

// SortKeys returns all valid sort keys in display order.
func SortKeys() []SortKey {
	return []SortKey{SortProfitPerDayBySellPrice, SortProfitPerDayByBuyPrice}
}

// ParseSortKey validates a raw sort key string.
func ParseSortKey(raw string) (SortKey, error) {
	for _, k := range SortKeys() {
		if string(k) == raw {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown sort key %q", raw)
}
