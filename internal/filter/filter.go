package filter

import (
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
)

// Store is the durable key/value persistence behind a Config.
// Implemented by storage.Store; tests use an in-memory map.
type Store interface {
	// Load returns the value for key; a missing key is reported via ok,
	// never as an error.
	Load(key string) (value string, ok bool, err error)
	Save(key, value string) error
	// Delete removes a key; deleting a missing key is a no-op.
	Delete(key string) error
}

// Preference keys, one per persisted field.
const (
	keySelectedCategories    = "manufacturing:selectedCategories"
	keyNameFilter            = "manufacturing:nameFilter"
	keyMaxProductionCosts    = "manufacturing:maxProductionCosts"
	keySortBy                = "manufacturing:sortBy"
	keyHasRequiredSkillsOnly = "manufacturing:hasRequiredSkillsOnly"
)

// Config is the persisted view configuration: which categories are shown,
// the name substring, the cost ceiling, the skill gate, and the sort key.
// Every mutation writes through to the Store before the caller can trigger
// a re-fetch, so persistence never depends on fetch success.
type Config struct {
	store Store

	mu                    sync.Mutex
	selectedCategories    map[int32]bool
	nameFilter            string
	maxProductionCost     float64 // zero means no ceiling
	hasRequiredSkillsOnly bool
	sortBy                SortKey
}

// Hydrate builds a Config from persisted state. Fields missing from the
// store fall back to their defaults; a missing category selection defaults
// to every catalog category selected. A persisted selection is adopted
// verbatim: ids from an older catalog are carried along (the query builder
// drops them), and ids new to the catalog stay excluded until the user acts.
func Hydrate(store Store, catalog Catalog) (*Config, error) {
	c := &Config{
		store:      store,
		nameFilter: "",
		sortBy:     DefaultSortKey,
	}

	if raw, ok, err := store.Load(keyNameFilter); err != nil {
		return nil, fmt.Errorf("loading name filter: %w", err)
	} else if ok {
		c.nameFilter = raw
	}

	if raw, ok, err := store.Load(keyMaxProductionCosts); err != nil {
		return nil, fmt.Errorf("loading cost ceiling: %w", err)
	} else if ok {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing cost ceiling %q: %w", raw, err)
		}
		c.maxProductionCost = v
	}

	if raw, ok, err := store.Load(keyHasRequiredSkillsOnly); err != nil {
		return nil, fmt.Errorf("loading skill gate: %w", err)
	} else if ok {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("parsing skill gate %q: %w", raw, err)
		}
		c.hasRequiredSkillsOnly = v
	}

	if raw, ok, err := store.Load(keySortBy); err != nil {
		return nil, fmt.Errorf("loading sort key: %w", err)
	} else if ok && raw != "" {
		key, err := ParseSortKey(raw)
		if err != nil {
			return nil, err
		}
		c.sortBy = key
	}

	raw, ok, err := store.Load(keySelectedCategories)
	if err != nil {
		return nil, fmt.Errorf("loading category selection: %w", err)
	}
	if !ok {
		c.selectedCategories = make(map[int32]bool, len(catalog))
		for id := range catalog {
			c.selectedCategories[id] = true
		}
	} else {
		if err := json.Unmarshal([]byte(raw), &c.selectedCategories); err != nil {
			return nil, fmt.Errorf("parsing category selection: %w", err)
		}
		if c.selectedCategories == nil {
			c.selectedCategories = make(map[int32]bool)
		}
	}

	return c, nil
}

// NameFilter returns the current name substring; empty means no filter.
func (c *Config) NameFilter() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nameFilter
}

// SetNameFilter persists the name substring.
func (c *Config) SetNameFilter(v string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.store.Save(keyNameFilter, v); err != nil {
		return err
	}
	c.nameFilter = v
	return nil
}

// MaxProductionCost returns the cost ceiling; zero means no ceiling.
func (c *Config) MaxProductionCost() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.maxProductionCost
}

// SetMaxProductionCost persists the cost ceiling. Zero clears the ceiling;
// a ceiling of exactly zero is not representable, matching the query policy.
func (c *Config) SetMaxProductionCost(v float64) error {
	if v < 0 {
		return fmt.Errorf("cost ceiling must be non-negative, got %v", v)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.store.Save(keyMaxProductionCosts, strconv.FormatFloat(v, 'f', -1, 64)); err != nil {
		return err
	}
	c.maxProductionCost = v
	return nil
}

// HasRequiredSkillsOnly returns the skill gate flag.
func (c *Config) HasRequiredSkillsOnly() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hasRequiredSkillsOnly
}

// SetHasRequiredSkillsOnly persists the skill gate flag.
func (c *Config) SetHasRequiredSkillsOnly(v bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.store.Save(keyHasRequiredSkillsOnly, strconv.FormatBool(v)); err != nil {
		return err
	}
	c.hasRequiredSkillsOnly = v
	return nil
}

// SortBy returns the current sort key.
func (c *Config) SortBy() SortKey {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sortBy
}

// SetSortBy persists the sort key.
func (c *Config) SetSortBy(k SortKey) error {
	if _, err := ParseSortKey(string(k)); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.store.Save(keySortBy, string(k)); err != nil {
		return err
	}
	c.sortBy = k
	return nil
}

// SelectedCategories returns a copy of the selection map.
func (c *Config) SelectedCategories() map[int32]bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := make(map[int32]bool, len(c.selectedCategories))
	for id, sel := range c.selectedCategories {
		cp[id] = sel
	}
	return cp
}

// SetCategory persists a single category's selection flag.
func (c *Config) SetCategory(id int32, selected bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev, had := c.selectedCategories[id]
	c.selectedCategories[id] = selected
	if err := c.saveSelectionLocked(); err != nil {
		if had {
			c.selectedCategories[id] = prev
		} else {
			delete(c.selectedCategories, id)
		}
		return err
	}
	return nil
}

// SelectAll marks every catalog category selected and persists.
func (c *Config) SelectAll(catalog Catalog) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id := range catalog {
		c.selectedCategories[id] = true
	}
	return c.saveSelectionLocked()
}

// DeselectAll marks every known category deselected and persists. Known
// means present in the catalog or already carried in the selection map.
func (c *Config) DeselectAll(catalog Catalog) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id := range c.selectedCategories {
		c.selectedCategories[id] = false
	}
	for id := range catalog {
		c.selectedCategories[id] = false
	}
	return c.saveSelectionLocked()
}

// Reset deletes every persisted preference and returns the configuration to
// its defaults: all catalog categories selected, no name filter, no cost
// ceiling, skill gate off, default sort. A fresh session hydrating from the
// same store afterwards sees the same defaults.
func (c *Config) Reset(catalog Catalog) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := []string{
		keySelectedCategories,
		keyNameFilter,
		keyMaxProductionCosts,
		keySortBy,
		keyHasRequiredSkillsOnly,
	}
	for _, key := range keys {
		if err := c.store.Delete(key); err != nil {
			return err
		}
	}

	c.selectedCategories = make(map[int32]bool, len(catalog))
	for id := range catalog {
		c.selectedCategories[id] = true
	}
	c.nameFilter = ""
	c.maxProductionCost = 0
	c.hasRequiredSkillsOnly = false
	c.sortBy = DefaultSortKey
	return nil
}

func (c *Config) saveSelectionLocked() error {
	raw, err := json.Marshal(c.selectedCategories)
	if err != nil {
		return fmt.Errorf("encoding category selection: %w", err)
	}
	return c.store.Save(keySelectedCategories, string(raw))
}
