package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mkrasov/foundry/internal/build"
	"github.com/mkrasov/foundry/internal/catalog"
	"github.com/mkrasov/foundry/internal/filter"
	"github.com/mkrasov/foundry/internal/upstream"
)

// fakeUpstream serves both catalog and manufacturing queries in-memory.
type fakeUpstream struct {
	entries       []upstream.CatalogEntry
	manufacturing map[int32]*upstream.ManufacturingResult
	lastQuery     filter.Query
}

func (f *fakeUpstream) FetchCatalog(_ context.Context, q filter.Query) ([]upstream.CatalogEntry, error) {
	f.lastQuery = q
	return f.entries, nil
}

func (f *fakeUpstream) FetchManufacturing(_ context.Context, typeID int32, me, te int, _ float64) (*upstream.ManufacturingResult, error) {
	result, ok := f.manufacturing[typeID]
	if !ok {
		return &upstream.ManufacturingResult{ME: me, TE: te}, nil
	}
	cp := *result
	return &cp, nil
}

type memStore map[string]string

func (m memStore) Load(key string) (string, bool, error) { v, ok := m[key]; return v, ok, nil }
func (m memStore) Save(key, value string) error          { m[key] = value; return nil }
func (m memStore) Delete(key string) error               { delete(m, key); return nil }

func newTestServer(t *testing.T, up *fakeUpstream, token string) (*httptest.Server, memStore) {
	t.Helper()

	cat := filter.NewCatalog([]filter.Category{
		{CategoryID: 4, CategoryName: "Material"},
		{CategoryID: 6, CategoryName: "Ship"},
	})
	store := memStore{}
	cfg, err := filter.Hydrate(store, cat)
	if err != nil {
		t.Fatal(err)
	}

	deps := Deps{
		Catalog:      cat,
		Config:       cfg,
		Engine:       catalog.NewEngine(up),
		Configurator: build.NewConfigurator(up, 0.1),
		Fetcher:      up,
		Token:        token,
	}
	srv := httptest.NewServer(NewHandler(deps))
	t.Cleanup(srv.Close)
	return srv, store
}

func doJSON(t *testing.T, method, url, body string, out any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decoding %s %s: %v", method, url, err)
		}
	}
	return resp
}

func TestCategories(t *testing.T) {
	srv, _ := newTestServer(t, &fakeUpstream{}, "")

	var categories []filter.Category
	resp := doJSON(t, http.MethodGet, srv.URL+"/categories", "", &categories)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if len(categories) != 2 || categories[0].CategoryID != 4 || categories[1].CategoryID != 6 {
		t.Errorf("categories = %+v", categories)
	}
}

func TestPatchFilters_PersistsAndRefreshes(t *testing.T) {
	up := &fakeUpstream{entries: []upstream.CatalogEntry{{TypeID: 603, TypeName: "Merlin"}}}
	srv, store := newTestServer(t, up, "")

	var view filtersView
	resp := doJSON(t, http.MethodPatch, srv.URL+"/filters",
		`{"nameFilter":"merlin","maxProductionCosts":5000000,"categories":{"4":false}}`, &view)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	if view.NameFilter != "merlin" || view.MaxProductionCosts != 5000000 {
		t.Errorf("view = %+v", view)
	}
	if view.SelectedCategories[4] || !view.SelectedCategories[6] {
		t.Errorf("selection = %v", view.SelectedCategories)
	}

	// Each field landed in the store under its own key.
	if store["manufacturing:nameFilter"] != "merlin" {
		t.Errorf("persisted nameFilter = %q", store["manufacturing:nameFilter"])
	}
	if store["manufacturing:maxProductionCosts"] != "5000000" {
		t.Errorf("persisted maxProductionCosts = %q", store["manufacturing:maxProductionCosts"])
	}

	// The patch triggered a refresh with the narrowed selection.
	if len(up.lastQuery.CategoryIDs) != 1 || up.lastQuery.CategoryIDs[0] != 6 {
		t.Errorf("refresh query = %+v", up.lastQuery)
	}

	var entries []upstream.CatalogEntry
	doJSON(t, http.MethodGet, srv.URL+"/catalog", "", &entries)
	if len(entries) != 1 || entries[0].TypeName != "Merlin" {
		t.Errorf("catalog = %+v", entries)
	}
}

func TestPatchFilters_RejectsBadValues(t *testing.T) {
	srv, _ := newTestServer(t, &fakeUpstream{}, "")

	for _, body := range []string{
		`{"maxProductionCosts":-1}`,
		`{"sortBy":"Profit.PerHour:ASC"}`,
		`not json`,
	} {
		resp := doJSON(t, http.MethodPatch, srv.URL+"/filters", body, nil)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("PATCH %s: status = %d, want 400", body, resp.StatusCode)
		}
	}
}

func TestSelectAllDeselectAll(t *testing.T) {
	srv, _ := newTestServer(t, &fakeUpstream{}, "")

	var view filtersView
	doJSON(t, http.MethodPost, srv.URL+"/filters/deselect-all", "", &view)
	for id, selected := range view.SelectedCategories {
		if selected {
			t.Errorf("category %d still selected after deselect-all", id)
		}
	}

	doJSON(t, http.MethodPost, srv.URL+"/filters/select-all", "", &view)
	if !view.SelectedCategories[4] || !view.SelectedCategories[6] {
		t.Errorf("selection after select-all = %v", view.SelectedCategories)
	}
}

func TestResetFilters(t *testing.T) {
	srv, store := newTestServer(t, &fakeUpstream{}, "")

	doJSON(t, http.MethodPatch, srv.URL+"/filters", `{"nameFilter":"merlin","categories":{"4":false}}`, nil)
	if len(store) == 0 {
		t.Fatal("patch persisted nothing")
	}

	var view filtersView
	resp := doJSON(t, http.MethodPost, srv.URL+"/filters/reset", "", &view)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	if view.NameFilter != "" || !view.SelectedCategories[4] || !view.SelectedCategories[6] {
		t.Errorf("view after reset = %+v", view)
	}
	if len(store) != 0 {
		t.Errorf("store still holds %v after reset", store)
	}
}

func TestSuggest(t *testing.T) {
	up := &fakeUpstream{entries: []upstream.CatalogEntry{
		{TypeID: 603, TypeName: "Merlin"},
		{TypeID: 587, TypeName: "Rifter"},
	}}
	srv, _ := newTestServer(t, up, "")

	doJSON(t, http.MethodPost, srv.URL+"/catalog/refresh", "", nil)

	var names []string
	doJSON(t, http.MethodGet, srv.URL+"/suggest?q=merl", "", &names)
	if len(names) != 1 || names[0] != "Merlin" {
		t.Errorf("suggest = %v", names)
	}

	resp := doJSON(t, http.MethodGet, srv.URL+"/suggest?q=merl&limit=x", "", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad limit: status = %d, want 400", resp.StatusCode)
	}
}

func TestBuildFlow(t *testing.T) {
	up := &fakeUpstream{manufacturing: map[int32]*upstream.ManufacturingResult{
		603: {IsTech2: false},
		11993: {IsTech2: true, ME: 10, TE: 20, Materials: upstream.MaterialList{
			{Key: "34", Quantity: 3, Name: upstream.LocalizedName{EN: "Tritanium"}},
			{Key: "36", Quantity: 1, Name: upstream.LocalizedName{EN: "Mexallon"}},
		}},
	}}
	srv, _ := newTestServer(t, up, "")

	var view buildView
	resp := doJSON(t, http.MethodPost, srv.URL+"/build/603", "", &view)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if view.State != "editable" || view.TypeID != 603 {
		t.Errorf("view = %+v", view)
	}

	doJSON(t, http.MethodPatch, srv.URL+"/build", `{"me":5,"te":4}`, &view)
	if view.ME != 5 || view.TE != 4 || view.State != "editable" {
		t.Errorf("after patch: %+v", view)
	}

	resp = doJSON(t, http.MethodPatch, srv.URL+"/build", `{"me":11}`, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("invalid ME: status = %d, want 400", resp.StatusCode)
	}

	// Tech-2 item locks; further parameter edits conflict.
	doJSON(t, http.MethodPost, srv.URL+"/build/11993", "", &view)
	if view.State != "locked" || view.ME != 10 || view.TE != 20 {
		t.Errorf("tech-2 view = %+v", view)
	}
	resp = doJSON(t, http.MethodPatch, srv.URL+"/build", `{"me":5}`, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("locked edit: status = %d, want 409", resp.StatusCode)
	}

	// Tax stays editable while locked.
	doJSON(t, http.MethodPatch, srv.URL+"/build", `{"facilityTax":0.05}`, &view)
	if view.FacilityTax != 0.05 || view.ME != 10 {
		t.Errorf("after tax patch: %+v", view)
	}
}

func TestExportMaterials(t *testing.T) {
	up := &fakeUpstream{manufacturing: map[int32]*upstream.ManufacturingResult{
		603: {Materials: upstream.MaterialList{
			{Key: "34", Quantity: 3, Name: upstream.LocalizedName{EN: "Tritanium"}},
			{Key: "36", Quantity: 1, Name: upstream.LocalizedName{EN: "Mexallon"}},
		}},
	}}
	srv, _ := newTestServer(t, up, "")

	resp := doJSON(t, http.MethodGet, srv.URL+"/build/materials", "", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("export before a build: status = %d, want 404", resp.StatusCode)
	}

	doJSON(t, http.MethodPost, srv.URL+"/build/603", "", nil)

	resp = doJSON(t, http.MethodGet, srv.URL+"/build/materials", "", nil)
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := string(body), "3 Tritanium\n1 Mexallon\n"; got != want {
		t.Errorf("export = %q, want %q", got, want)
	}
}

func TestSweepEndpoint(t *testing.T) {
	up := &fakeUpstream{}
	srv, _ := newTestServer(t, up, "")

	var points []build.SweepPoint
	resp := doJSON(t, http.MethodGet, srv.URL+"/build/603/sweep?te=4", "", &points)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if len(points) != 11 {
		t.Errorf("points = %d, want 11", len(points))
	}
}

func TestBearerAuth(t *testing.T) {
	srv, _ := newTestServer(t, &fakeUpstream{}, "sekrit")

	// Health stays open.
	resp := doJSON(t, http.MethodGet, srv.URL+"/health", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health: status = %d", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodGet, srv.URL+"/filters", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("no token: status = %d, want 401", resp.StatusCode)
	}

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/filters", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Authorization", "Bearer sekrit")
	authed, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer authed.Body.Close()
	if authed.StatusCode != http.StatusOK {
		t.Errorf("with token: status = %d", authed.StatusCode)
	}

	req.Header.Set("Authorization", "Bearer wrong")
	denied, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer denied.Body.Close()
	if denied.StatusCode != http.StatusUnauthorized {
		t.Errorf("wrong token: status = %d, want 401", denied.StatusCode)
	}
}
