package main

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mkrasov/foundry/internal/config"
)

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change foundry configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show all config keys and values",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		for _, info := range config.ShowAll(cfg) {
			printStatus(info.Key, "%s (env %s)", info.Value, info.EnvVar)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config key",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.SetKey(config.NewFileBackend(), args[0], args[1]); err != nil {
			return fmt.Errorf("%w (valid keys: %s)", err, strings.Join(config.ValidKeys(), ", "))
		}
		printSuccess("Set %s = %s", args[0], args[1])
		return nil
	},
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Remove a config key, reverting it to its default",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.UnsetKey(config.NewFileBackend(), args[0]); err != nil {
			return fmt.Errorf("%w (valid keys: %s)", err, strings.Join(config.ValidKeys(), ", "))
		}
		printSuccess("Unset %s", args[0])
		return nil
	},
}

// --- filter ---

var filterCmd = &cobra.Command{
	Use:   "filter",
	Short: "Show or change the catalog filter configuration",
}

// filterState mirrors the server's filter view.
type filterState struct {
	SelectedCategories    map[int32]bool `json:"selectedCategories"`
	NameFilter            string         `json:"nameFilter"`
	MaxProductionCosts    float64        `json:"maxProductionCosts"`
	HasRequiredSkillsOnly bool           `json:"hasRequiredSkillsOnly"`
	SortBy                string         `json:"sortBy"`
}

var filterShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current filter configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(context.Background(), "/filters")
		if err != nil {
			return err
		}
		var state filterState
		if err := decodeJSON(resp, &state); err != nil {
			return err
		}

		printStatus("Sort by", "%s", state.SortBy)
		printStatus("Name filter", "%s", orNone(state.NameFilter))
		if state.MaxProductionCosts > 0 {
			printStatus("Max production costs", "%v", state.MaxProductionCosts)
		} else {
			printStatus("Max production costs", "none")
		}
		printStatus("Required skills only", "%v", state.HasRequiredSkillsOnly)

		ids := make([]int32, 0, len(state.SelectedCategories))
		for id, selected := range state.SelectedCategories {
			if selected {
				ids = append(ids, id)
			}
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		parts := make([]string, len(ids))
		for i, id := range ids {
			parts[i] = strconv.FormatInt(int64(id), 10)
		}
		printStatus("Selected categories", "%s", orNone(strings.Join(parts, ", ")))
		return nil
	},
}

var filterSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Change filter fields and refresh the catalog",
	Long: `Change filter fields and refresh the catalog.

Examples:
  foundry filter set --name drone
  foundry filter set --max-costs 5000000 --skills-only
  foundry filter set --sort-by Profit.PerDay.BasedOnBuyPrice:DESC
  foundry filter set --category 6=true --category 18=false`,
	RunE: func(cmd *cobra.Command, args []string) error {
		patch := map[string]any{}

		if cmd.Flags().Changed("name") {
			v, _ := cmd.Flags().GetString("name")
			patch["nameFilter"] = v
		}
		if cmd.Flags().Changed("max-costs") {
			v, _ := cmd.Flags().GetFloat64("max-costs")
			patch["maxProductionCosts"] = v
		}
		if cmd.Flags().Changed("skills-only") {
			v, _ := cmd.Flags().GetBool("skills-only")
			patch["hasRequiredSkillsOnly"] = v
		}
		if cmd.Flags().Changed("sort-by") {
			v, _ := cmd.Flags().GetString("sort-by")
			patch["sortBy"] = v
		}
		if cmd.Flags().Changed("category") {
			raw, _ := cmd.Flags().GetStringSlice("category")
			categories := map[string]bool{}
			for _, pair := range raw {
				id, val, ok := strings.Cut(pair, "=")
				if !ok {
					return fmt.Errorf("invalid --category %q, expected id=true|false", pair)
				}
				selected, err := strconv.ParseBool(val)
				if err != nil {
					return fmt.Errorf("invalid --category %q: %w", pair, err)
				}
				categories[id] = selected
			}
			patch["categories"] = categories
		}

		if len(patch) == 0 {
			return fmt.Errorf("nothing to change; see --help for flags")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.patch(context.Background(), "/filters", patch)
		if err != nil {
			return err
		}
		var state filterState
		if err := decodeJSON(resp, &state); err != nil {
			return err
		}
		printSuccess("Filter updated")
		return nil
	},
}

var filterSelectAllCmd = &cobra.Command{
	Use:   "select-all",
	Short: "Select every category and refresh",
	RunE: func(cmd *cobra.Command, args []string) error {
		return postFilters("/filters/select-all", "Selection updated")
	},
}

var filterDeselectAllCmd = &cobra.Command{
	Use:   "deselect-all",
	Short: "Deselect every category and refresh",
	RunE: func(cmd *cobra.Command, args []string) error {
		return postFilters("/filters/deselect-all", "Selection updated")
	},
}

var filterResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear all persisted filter preferences and return to defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		return postFilters("/filters/reset", "Filter reset to defaults")
	},
}

func postFilters(path, successMsg string) error {
	client, err := newAPIClient()
	if err != nil {
		return err
	}
	resp, err := client.post(context.Background(), path, nil)
	if err != nil {
		return err
	}
	var state filterState
	if err := decodeJSON(resp, &state); err != nil {
		return err
	}
	printSuccess("%s", successMsg)
	return nil
}

// --- catalog ---

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List the current catalog result set",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		var resp *http.Response
		if refresh, _ := cmd.Flags().GetBool("refresh"); refresh {
			resp, err = client.post(context.Background(), "/catalog/refresh", nil)
		} else {
			resp, err = client.get(context.Background(), "/catalog")
		}
		if err != nil {
			return err
		}

		// Catalog rows nest the item under "product"; tolerate both shapes.
		var entries []struct {
			Product struct {
				TypeID   int32  `json:"typeID"`
				TypeName string `json:"typeName"`
			} `json:"product"`
			TypeID   int32  `json:"typeID"`
			TypeName string `json:"typeName"`
		}
		if err := decodeJSON(resp, &entries); err != nil {
			return err
		}

		if len(entries) == 0 {
			printWarning("No catalog entries; adjust the filter or refresh")
			return nil
		}
		for _, e := range entries {
			typeID, typeName := e.TypeID, e.TypeName
			if e.Product.TypeID != 0 {
				typeID, typeName = e.Product.TypeID, e.Product.TypeName
			}
			fmt.Printf("%8d  %s\n", typeID, typeName)
		}
		return nil
	},
}

// --- build ---

var buildCmd = &cobra.Command{
	Use:   "build [typeID]",
	Short: "Show or configure the build parameters for an item",
	Long: `Show or configure the build parameters for an item.

Examples:
  foundry build 12345
  foundry build 12345 --me 5 --te 4
  foundry build --tax 0.05`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		ctx := context.Background()

		type buildState struct {
			State       string  `json:"state"`
			TypeID      int32   `json:"typeID"`
			ME          int     `json:"me"`
			TE          int     `json:"te"`
			FacilityTax float64 `json:"facilityTax"`
		}
		var state buildState

		if len(args) == 1 {
			typeID, err := strconv.ParseInt(args[0], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid typeID %q: %w", args[0], err)
			}
			resp, err := client.post(ctx, fmt.Sprintf("/build/%d", typeID), nil)
			if err != nil {
				return err
			}
			if err := decodeJSON(resp, &state); err != nil {
				return err
			}
		}

		patch := map[string]any{}
		if cmd.Flags().Changed("me") {
			v, _ := cmd.Flags().GetInt("me")
			patch["me"] = v
		}
		if cmd.Flags().Changed("te") {
			v, _ := cmd.Flags().GetInt("te")
			patch["te"] = v
		}
		if cmd.Flags().Changed("tax") {
			v, _ := cmd.Flags().GetFloat64("tax")
			patch["facilityTax"] = v
		}
		if len(patch) > 0 {
			resp, err := client.patch(ctx, "/build", patch)
			if err != nil {
				return err
			}
			if err := decodeJSON(resp, &state); err != nil {
				return err
			}
		}

		if len(args) == 0 && len(patch) == 0 {
			resp, err := client.get(ctx, "/build")
			if err != nil {
				return err
			}
			if err := decodeJSON(resp, &state); err != nil {
				return err
			}
		}

		printStatus("Item", "%d", state.TypeID)
		printStatus("State", "%s", state.State)
		printStatus("ME/TE", "%d / %d", state.ME, state.TE)
		printStatus("Facility tax", "%v", state.FacilityTax)
		if state.State == "locked" {
			printWarning("Tech-2 item: ME/TE are fixed by the blueprint")
		}
		return nil
	},
}

// --- export ---

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the current build's material list as text",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(context.Background(), "/build/materials")
		if err != nil {
			return err
		}
		text, err := readText(resp)
		if err != nil {
			return err
		}
		fmt.Print(text)
		return nil
	},
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configUnsetCmd)

	filterCmd.AddCommand(filterShowCmd)
	filterCmd.AddCommand(filterSetCmd)
	filterCmd.AddCommand(filterSelectAllCmd)
	filterCmd.AddCommand(filterDeselectAllCmd)
	filterCmd.AddCommand(filterResetCmd)

	filterSetCmd.Flags().String("name", "", "name substring filter (empty clears)")
	filterSetCmd.Flags().Float64("max-costs", 0, "production cost ceiling (0 clears)")
	filterSetCmd.Flags().Bool("skills-only", false, "only items with learned skills")
	filterSetCmd.Flags().String("sort-by", "", "sort key")
	filterSetCmd.Flags().StringSlice("category", nil, "category selection as id=true|false (repeatable)")

	catalogCmd.Flags().Bool("refresh", false, "force a refresh before listing")

	buildCmd.Flags().Int("me", 0, "material efficiency (0-10)")
	buildCmd.Flags().Int("te", 0, "time efficiency (even, 0-20)")
	buildCmd.Flags().Float64("tax", 0, "facility tax (0-1)")
}
