package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mkrasov/foundry/internal/build"
	"github.com/mkrasov/foundry/internal/catalog"
	"github.com/mkrasov/foundry/internal/export"
	"github.com/mkrasov/foundry/internal/filter"
	"github.com/mkrasov/foundry/internal/suggest"
)

// Deps holds the wired core components behind the local HTTP API.
type Deps struct {
	Catalog      filter.Catalog
	Config       *filter.Config
	Engine       *catalog.Engine
	Configurator *build.Configurator
	Fetcher      build.ManufacturingFetcher
	Token        string // empty disables bearer auth
}

// NewHandler builds the dashboard router.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		r.Get("/categories", handleCategories(deps))
		r.Get("/filters", handleGetFilters(deps))
		r.Patch("/filters", handlePatchFilters(deps))
		r.Post("/filters/select-all", handleSelectAll(deps))
		r.Post("/filters/deselect-all", handleDeselectAll(deps))
		r.Post("/filters/reset", handleResetFilters(deps))
		r.Get("/catalog", handleCatalog(deps))
		r.Post("/catalog/refresh", handleRefresh(deps))
		r.Get("/suggest", handleSuggest(deps))
		r.Get("/build", handleGetBuild(deps))
		r.Post("/build/{typeID}", handleSelectItem(deps))
		r.Patch("/build", handlePatchBuild(deps))
		r.Get("/build/materials", handleExportMaterials(deps))
		r.Get("/build/{typeID}/sweep", handleSweep(deps))
	})

	return r
}

func handleCategories(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		categories := make([]filter.Category, 0, len(deps.Catalog))
		for _, c := range deps.Catalog {
			categories = append(categories, c)
		}
		sort.Slice(categories, func(i, j int) bool {
			return categories[i].CategoryID < categories[j].CategoryID
		})
		writeJSON(w, categories)
	}
}

// filtersView is the JSON shape of the current filter configuration.
type filtersView struct {
	SelectedCategories    map[int32]bool `json:"selectedCategories"`
	NameFilter            string         `json:"nameFilter"`
	MaxProductionCosts    float64        `json:"maxProductionCosts"`
	HasRequiredSkillsOnly bool           `json:"hasRequiredSkillsOnly"`
	SortBy                string         `json:"sortBy"`
}

func currentFilters(deps Deps) filtersView {
	return filtersView{
		SelectedCategories:    deps.Config.SelectedCategories(),
		NameFilter:            deps.Config.NameFilter(),
		MaxProductionCosts:    deps.Config.MaxProductionCost(),
		HasRequiredSkillsOnly: deps.Config.HasRequiredSkillsOnly(),
		SortBy:                string(deps.Config.SortBy()),
	}
}

func handleGetFilters(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, currentFilters(deps))
	}
}

// filtersPatch is a partial filter update; nil fields are untouched.
type filtersPatch struct {
	NameFilter            *string        `json:"nameFilter"`
	MaxProductionCosts    *float64       `json:"maxProductionCosts"`
	HasRequiredSkillsOnly *bool          `json:"hasRequiredSkillsOnly"`
	SortBy                *string        `json:"sortBy"`
	Categories            map[int32]bool `json:"categories"`
}

func handlePatchFilters(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var patch filtersPatch
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		if err := applyFiltersPatch(deps, patch); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}

		refreshAndRespond(w, r, deps)
	}
}

func applyFiltersPatch(deps Deps, patch filtersPatch) error {
	if patch.NameFilter != nil {
		if err := deps.Config.SetNameFilter(*patch.NameFilter); err != nil {
			return err
		}
	}
	if patch.MaxProductionCosts != nil {
		if err := deps.Config.SetMaxProductionCost(*patch.MaxProductionCosts); err != nil {
			return err
		}
	}
	if patch.HasRequiredSkillsOnly != nil {
		if err := deps.Config.SetHasRequiredSkillsOnly(*patch.HasRequiredSkillsOnly); err != nil {
			return err
		}
	}
	if patch.SortBy != nil {
		key, err := filter.ParseSortKey(*patch.SortBy)
		if err != nil {
			return err
		}
		if err := deps.Config.SetSortBy(key); err != nil {
			return err
		}
	}
	for id, selected := range patch.Categories {
		if err := deps.Config.SetCategory(id, selected); err != nil {
			return err
		}
	}
	return nil
}

func handleSelectAll(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Config.SelectAll(deps.Catalog); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "persisting selection: %v", err)
			return
		}
		refreshAndRespond(w, r, deps)
	}
}

func handleDeselectAll(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Config.DeselectAll(deps.Catalog); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "persisting selection: %v", err)
			return
		}
		refreshAndRespond(w, r, deps)
	}
}

func handleResetFilters(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Config.Reset(deps.Catalog); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "resetting filters: %v", err)
			return
		}
		refreshAndRespond(w, r, deps)
	}
}

// refreshAndRespond triggers a catalog refresh and answers with the updated
// filter view. The refresh outcome is awaited so the client sees a settled
// result set on its next read, but a fetch failure does not fail the
// request: the configuration change is already persisted and stale results
// stay displayed.
func refreshAndRespond(w http.ResponseWriter, r *http.Request, deps Deps) {
	<-deps.Engine.Refresh(r.Context(), deps.Config, deps.Catalog)
	writeJSON(w, currentFilters(deps))
}

func handleCatalog(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, deps.Engine.Entries())
	}
}

func handleRefresh(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := <-deps.Engine.Refresh(r.Context(), deps.Config, deps.Catalog); err != nil {
			httpError(w, http.StatusBadGateway, "api_error", "refreshing catalog: %v", err)
			return
		}
		writeJSON(w, deps.Engine.Entries())
	}
}

func handleSuggest(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		limit := 10
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed <= 0 {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid limit %q", raw)
				return
			}
			limit = parsed
		}
		writeJSON(w, suggest.Names(deps.Engine.Entries(), q, limit))
	}
}

// buildView is the JSON shape of the configurator state.
type buildView struct {
	State       string  `json:"state"`
	TypeID      int32   `json:"typeID"`
	ME          int     `json:"me"`
	TE          int     `json:"te"`
	FacilityTax float64 `json:"facilityTax"`
	Result      any     `json:"result"`
}

func currentBuild(deps Deps) buildView {
	state, typeID, me, te, tax := deps.Configurator.Snapshot()
	view := buildView{
		State:       state.String(),
		TypeID:      typeID,
		ME:          me,
		TE:          te,
		FacilityTax: tax,
	}
	if result := deps.Configurator.Result(); result != nil {
		view.Result = result
	}
	return view
}

func handleGetBuild(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, currentBuild(deps))
	}
}

func handleSelectItem(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		typeID, err := strconv.ParseInt(chi.URLParam(r, "typeID"), 10, 32)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid typeID: %v", err)
			return
		}

		if err := <-deps.Configurator.SetTypeID(r.Context(), int32(typeID)); err != nil {
			httpError(w, http.StatusBadGateway, "api_error", "fetching manufacturing: %v", err)
			return
		}
		writeJSON(w, currentBuild(deps))
	}
}

// buildPatch is a partial parameter update; nil fields are untouched.
type buildPatch struct {
	ME          *int     `json:"me"`
	TE          *int     `json:"te"`
	FacilityTax *float64 `json:"facilityTax"`
}

func handlePatchBuild(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var patch buildPatch
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		if patch.ME != nil || patch.TE != nil {
			state, _, me, te, _ := deps.Configurator.Snapshot()
			if state == build.StateLocked {
				httpError(w, http.StatusConflict, "invalid_request_error", "parameters are locked for tech-2 items")
				return
			}
			if patch.ME != nil {
				me = *patch.ME
			}
			if patch.TE != nil {
				te = *patch.TE
			}
			done, err := deps.Configurator.SetParameters(r.Context(), me, te)
			if err != nil {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
				return
			}
			if err := <-done; err != nil {
				httpError(w, http.StatusBadGateway, "api_error", "fetching manufacturing: %v", err)
				return
			}
		}

		if patch.FacilityTax != nil {
			done, err := deps.Configurator.SetFacilityTax(r.Context(), *patch.FacilityTax)
			if err != nil {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
				return
			}
			if err := <-done; err != nil {
				httpError(w, http.StatusBadGateway, "api_error", "fetching manufacturing: %v", err)
				return
			}
		}

		writeJSON(w, currentBuild(deps))
	}
}

func handleExportMaterials(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		result := deps.Configurator.Result()
		if result == nil {
			httpError(w, http.StatusNotFound, "not_found", "no build result to export")
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprint(w, export.MaterialList(result.Materials))
	}
}

func handleSweep(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		typeID, err := strconv.ParseInt(chi.URLParam(r, "typeID"), 10, 32)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid typeID: %v", err)
			return
		}

		te := 0
		if raw := r.URL.Query().Get("te"); raw != "" {
			if te, err = strconv.Atoi(raw); err != nil {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid te: %v", err)
				return
			}
		}
		_, _, _, _, tax := deps.Configurator.Snapshot()
		if raw := r.URL.Query().Get("facilityTax"); raw != "" {
			if tax, err = strconv.ParseFloat(raw, 64); err != nil {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid facilityTax: %v", err)
				return
			}
		}

		points, err := build.Sweep(r.Context(), deps.Fetcher, int32(typeID), te, tax)
		if err != nil {
			httpError(w, http.StatusBadGateway, "api_error", "sweeping ME levels: %v", err)
			return
		}
		writeJSON(w, points)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
