package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mkrasov/foundry/internal/export"
	"github.com/mkrasov/foundry/internal/filter"
)

// NewMCPServer exposes the dashboard core as MCP tools, so assistants can
// query the catalog and derive build material lists.
func NewMCPServer(deps Deps) *server.MCPServer {
	s := server.NewMCPServer(
		"foundry",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("foundry — industry dashboard: catalog filtering by profitability and per-item build material breakdowns."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("search_catalog",
			mcp.WithDescription("List catalog entries from the latest result set, optionally narrowed by a name substring."),
			mcp.WithString("name", mcp.Description("Case-insensitive name substring")),
			mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 10)")),
		),
		mcpSearchCatalog(deps),
	)

	s.AddTool(
		mcp.NewTool("set_filter",
			mcp.WithDescription("Update one catalog filter field and refresh. Keys: nameFilter, maxProductionCosts, hasRequiredSkillsOnly, sortBy."),
			mcp.WithString("key", mcp.Description("Filter field key"), mcp.Required()),
			mcp.WithString("value", mcp.Description("Value to set"), mcp.Required()),
		),
		mcpSetFilter(deps),
	)

	s.AddTool(
		mcp.NewTool("build_materials",
			mcp.WithDescription("Fetch the build answer for an item and return its material list as text."),
			mcp.WithNumber("typeID", mcp.Description("Item type id"), mcp.Required()),
			mcp.WithNumber("me", mcp.Description("Material efficiency 0-10 (default 0)")),
			mcp.WithNumber("te", mcp.Description("Time efficiency, even 0-20 (default 0)")),
		),
		mcpBuildMaterials(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"foundry://filters",
			"Filter Configuration",
			mcp.WithResourceDescription("Current catalog filter configuration as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceFilters(deps),
	)

	return s
}

func mcpSearchCatalog(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name := strings.ToLower(req.GetString("name", ""))
		limit := req.GetInt("limit", 10)
		if limit <= 0 {
			limit = 10
		}
		if limit > 100 {
			limit = 100
		}

		type entryResult struct {
			TypeID   int32  `json:"typeID"`
			TypeName string `json:"typeName"`
		}

		var results []entryResult
		for _, e := range deps.Engine.Entries() {
			if name != "" && !strings.Contains(strings.ToLower(e.TypeName), name) {
				continue
			}
			results = append(results, entryResult{TypeID: e.TypeID, TypeName: e.TypeName})
			if len(results) >= limit {
				break
			}
		}

		b, err := json.Marshal(results)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpSetFilter(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		key, err := req.RequireString("key")
		if err != nil {
			return mcpError("key is required"), nil
		}
		value, err := req.RequireString("value")
		if err != nil {
			return mcpError("value is required"), nil
		}

		patch := filtersPatch{}
		switch key {
		case "nameFilter":
			patch.NameFilter = &value
		case "maxProductionCosts":
			var v float64
			if _, err := fmt.Sscanf(value, "%g", &v); err != nil {
				return mcpError(fmt.Sprintf("invalid number %q", value)), nil
			}
			patch.MaxProductionCosts = &v
		case "hasRequiredSkillsOnly":
			v := value == "true"
			patch.HasRequiredSkillsOnly = &v
		case "sortBy":
			if _, err := filter.ParseSortKey(value); err != nil {
				return mcpError(err.Error()), nil
			}
			patch.SortBy = &value
		default:
			return mcpError(fmt.Sprintf("unknown filter key %q", key)), nil
		}

		if err := applyFiltersPatch(deps, patch); err != nil {
			return mcpError(fmt.Sprintf("failed to set filter: %v", err)), nil
		}
		if err := <-deps.Engine.Refresh(ctx, deps.Config, deps.Catalog); err != nil {
			return mcpError(fmt.Sprintf("filter saved but refresh failed: %v", err)), nil
		}

		return mcpText(fmt.Sprintf("Set %s = %s (%d entries)", key, value, len(deps.Engine.Entries()))), nil
	}
}

func mcpBuildMaterials(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		typeID, err := req.RequireInt("typeID")
		if err != nil {
			return mcpError("typeID is required"), nil
		}
		me := req.GetInt("me", 0)
		te := req.GetInt("te", 0)

		_, _, _, _, tax := deps.Configurator.Snapshot()
		result, err := deps.Fetcher.FetchManufacturing(ctx, int32(typeID), me, te, tax)
		if err != nil {
			return mcpError(fmt.Sprintf("fetching manufacturing: %v", err)), nil
		}

		return mcpText(export.MaterialList(result.Materials)), nil
	}
}

func mcpResourceFilters(deps Deps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		b, err := json.Marshal(currentFilters(deps))
		if err != nil {
			return nil, fmt.Errorf("failed to marshal filters: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
