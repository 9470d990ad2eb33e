package filter

import (
	"errors"
	"reflect"
	"testing"

	"github.com/mkrasov/foundry/internal/storage"
)

// --- Mock store ---

type memStore struct {
	data map[string]string

	saveCalls int
	failSaves bool
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string]string)}
}

func (m *memStore) Load(key string) (string, bool, error) {
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memStore) Save(key, value string) error {
	if m.failSaves {
		return errors.New("save failed")
	}
	m.saveCalls++
	m.data[key] = value
	return nil
}

func (m *memStore) Delete(key string) error {
	delete(m.data, key)
	return nil
}

func testCatalog() Catalog {
	return NewCatalog([]Category{
		{CategoryID: 10, CategoryName: "Ship"},
		{CategoryID: 20, CategoryName: "Drone"},
		{CategoryID: 30, CategoryName: "Module"},
	})
}

// --- Tests ---

func TestHydrate_Defaults(t *testing.T) {
	store := newMemStore()
	cfg, err := Hydrate(store, testCatalog())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.NameFilter() != "" {
		t.Errorf("NameFilter = %q, want empty", cfg.NameFilter())
	}
	if cfg.MaxProductionCost() != 0 {
		t.Errorf("MaxProductionCost = %v, want 0", cfg.MaxProductionCost())
	}
	if cfg.HasRequiredSkillsOnly() {
		t.Error("HasRequiredSkillsOnly = true, want false")
	}
	if cfg.SortBy() != DefaultSortKey {
		t.Errorf("SortBy = %q, want %q", cfg.SortBy(), DefaultSortKey)
	}

	want := map[int32]bool{10: true, 20: true, 30: true}
	if got := cfg.SelectedCategories(); !reflect.DeepEqual(got, want) {
		t.Errorf("SelectedCategories = %v, want %v", got, want)
	}
}

func TestHydrate_PersistedSelectionAdoptedVerbatim(t *testing.T) {
	store := newMemStore()
	// 99 is from an older catalog; 30 is new to the catalog and absent here.
	store.data[keySelectedCategories] = `{"10":true,"20":false,"99":true}`

	cfg, err := Hydrate(store, testCatalog())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := map[int32]bool{10: true, 20: false, 99: true}
	if got := cfg.SelectedCategories(); !reflect.DeepEqual(got, want) {
		t.Errorf("SelectedCategories = %v, want %v", got, want)
	}
}

func TestHydrate_PersistedFields(t *testing.T) {
	store := newMemStore()
	store.data[keyNameFilter] = "drone"
	store.data[keyMaxProductionCosts] = "5000000"
	store.data[keyHasRequiredSkillsOnly] = "true"
	store.data[keySortBy] = string(SortProfitPerDayByBuyPrice)

	cfg, err := Hydrate(store, testCatalog())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.NameFilter() != "drone" {
		t.Errorf("NameFilter = %q, want %q", cfg.NameFilter(), "drone")
	}
	if cfg.MaxProductionCost() != 5000000 {
		t.Errorf("MaxProductionCost = %v, want 5000000", cfg.MaxProductionCost())
	}
	if !cfg.HasRequiredSkillsOnly() {
		t.Error("HasRequiredSkillsOnly = false, want true")
	}
	if cfg.SortBy() != SortProfitPerDayByBuyPrice {
		t.Errorf("SortBy = %q, want %q", cfg.SortBy(), SortProfitPerDayByBuyPrice)
	}
}

func TestHydrate_InvalidPersistedValues(t *testing.T) {
	for name, data := range map[string]map[string]string{
		"bad cost":      {keyMaxProductionCosts: "not-a-number"},
		"bad bool":      {keyHasRequiredSkillsOnly: "maybe"},
		"bad sort":      {keySortBy: "Profit.Total:ASC"},
		"bad selection": {keySelectedCategories: "{broken"},
	} {
		t.Run(name, func(t *testing.T) {
			store := newMemStore()
			store.data = data
			if _, err := Hydrate(store, testCatalog()); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestMutators_WriteThrough(t *testing.T) {
	store := newMemStore()
	cfg, err := Hydrate(store, testCatalog())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := cfg.SetNameFilter("rifter"); err != nil {
		t.Fatalf("SetNameFilter: %v", err)
	}
	if got := store.data[keyNameFilter]; got != "rifter" {
		t.Errorf("persisted name filter = %q, want %q", got, "rifter")
	}

	if err := cfg.SetMaxProductionCost(1500.5); err != nil {
		t.Fatalf("SetMaxProductionCost: %v", err)
	}
	if got := store.data[keyMaxProductionCosts]; got != "1500.5" {
		t.Errorf("persisted cost ceiling = %q, want %q", got, "1500.5")
	}

	if err := cfg.SetHasRequiredSkillsOnly(true); err != nil {
		t.Fatalf("SetHasRequiredSkillsOnly: %v", err)
	}
	if got := store.data[keyHasRequiredSkillsOnly]; got != "true" {
		t.Errorf("persisted skill gate = %q, want %q", got, "true")
	}

	if err := cfg.SetSortBy(SortProfitPerDayByBuyPrice); err != nil {
		t.Fatalf("SetSortBy: %v", err)
	}
	if got := store.data[keySortBy]; got != string(SortProfitPerDayByBuyPrice) {
		t.Errorf("persisted sort key = %q, want %q", got, SortProfitPerDayByBuyPrice)
	}

	if err := cfg.SetCategory(20, false); err != nil {
		t.Fatalf("SetCategory: %v", err)
	}
	if _, ok := store.data[keySelectedCategories]; !ok {
		t.Error("category selection was not persisted")
	}
}

func TestSetMaxProductionCost_RejectsNegative(t *testing.T) {
	cfg, err := Hydrate(newMemStore(), testCatalog())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := cfg.SetMaxProductionCost(-1); err == nil {
		t.Error("expected error for negative ceiling, got nil")
	}
}

func TestSetSortBy_RejectsUnknownKey(t *testing.T) {
	cfg, err := Hydrate(newMemStore(), testCatalog())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := cfg.SetSortBy(SortKey("Volume:ASC")); err == nil {
		t.Error("expected error for unknown sort key, got nil")
	}
}

func TestSelectAllDeselectAll(t *testing.T) {
	cat := testCatalog()
	store := newMemStore()
	store.data[keySelectedCategories] = `{"10":false,"99":true}`

	cfg, err := Hydrate(store, cat)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := cfg.SelectAll(cat); err != nil {
		t.Fatalf("SelectAll: %v", err)
	}
	got := cfg.SelectedCategories()
	for id := range cat {
		if !got[id] {
			t.Errorf("SelectAll left category %d deselected", id)
		}
	}

	if err := cfg.DeselectAll(cat); err != nil {
		t.Fatalf("DeselectAll: %v", err)
	}
	for id, selected := range cfg.SelectedCategories() {
		if selected {
			t.Errorf("DeselectAll left category %d selected", id)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	cat := testCatalog()
	store := newMemStore()

	first, err := Hydrate(store, cat)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := first.SetNameFilter("hulk"); err != nil {
		t.Fatal(err)
	}
	if err := first.SetMaxProductionCost(42); err != nil {
		t.Fatal(err)
	}
	if err := first.SetHasRequiredSkillsOnly(true); err != nil {
		t.Fatal(err)
	}
	if err := first.SetSortBy(SortProfitPerDayByBuyPrice); err != nil {
		t.Fatal(err)
	}
	if err := first.SetCategory(20, false); err != nil {
		t.Fatal(err)
	}

	// A fresh hydration over the same store must observe the same state.
	second, err := Hydrate(store, cat)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if second.NameFilter() != first.NameFilter() ||
		second.MaxProductionCost() != first.MaxProductionCost() ||
		second.HasRequiredSkillsOnly() != first.HasRequiredSkillsOnly() ||
		second.SortBy() != first.SortBy() {
		t.Error("rehydrated scalar fields differ from the saved configuration")
	}
	if !reflect.DeepEqual(second.SelectedCategories(), first.SelectedCategories()) {
		t.Errorf("rehydrated selection = %v, want %v",
			second.SelectedCategories(), first.SelectedCategories())
	}
}

func TestReset(t *testing.T) {
	cat := testCatalog()
	store := newMemStore()

	cfg, err := Hydrate(store, cat)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := cfg.SetNameFilter("hulk"); err != nil {
		t.Fatal(err)
	}
	if err := cfg.SetCategory(20, false); err != nil {
		t.Fatal(err)
	}

	if err := cfg.Reset(cat); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	if cfg.NameFilter() != "" || cfg.SortBy() != DefaultSortKey {
		t.Errorf("state not back at defaults: name=%q sort=%q", cfg.NameFilter(), cfg.SortBy())
	}
	want := map[int32]bool{10: true, 20: true, 30: true}
	if got := cfg.SelectedCategories(); !reflect.DeepEqual(got, want) {
		t.Errorf("SelectedCategories = %v, want %v", got, want)
	}
	if len(store.data) != 0 {
		t.Errorf("store still holds %v after reset", store.data)
	}

	// A fresh session sees the defaults too.
	fresh, err := Hydrate(store, cat)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(fresh.SelectedCategories(), want) {
		t.Errorf("rehydrated selection = %v, want %v", fresh.SelectedCategories(), want)
	}
}

// TestHydrate_SQLiteStore runs hydration against the real storage backend,
// covering the seam the in-memory fakes bypass: a second session over the
// same database observes the first session's mutations.
func TestHydrate_SQLiteStore(t *testing.T) {
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	cat := testCatalog()
	first, err := Hydrate(store, cat)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := first.SetNameFilter("drone"); err != nil {
		t.Fatal(err)
	}
	if err := first.SetCategory(20, false); err != nil {
		t.Fatal(err)
	}

	second, err := Hydrate(store, cat)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.NameFilter() != "drone" {
		t.Errorf("NameFilter = %q, want drone", second.NameFilter())
	}
	want := map[int32]bool{10: true, 20: false, 30: true}
	if got := second.SelectedCategories(); !reflect.DeepEqual(got, want) {
		t.Errorf("SelectedCategories = %v, want %v", got, want)
	}
}

func TestMutators_FailedSaveLeavesStateUnchanged(t *testing.T) {
	store := newMemStore()
	cfg, err := Hydrate(store, testCatalog())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	store.failSaves = true
	if err := cfg.SetNameFilter("x"); err == nil {
		t.Fatal("expected save error, got nil")
	}
	if cfg.NameFilter() != "" {
		t.Errorf("NameFilter changed despite failed save: %q", cfg.NameFilter())
	}
	if err := cfg.SetCategory(10, false); err == nil {
		t.Fatal("expected save error, got nil")
	}
	if !cfg.SelectedCategories()[10] {
		t.Error("category selection changed despite failed save")
	}
}
