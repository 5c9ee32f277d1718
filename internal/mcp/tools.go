package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"

	"medialib/internal/listing"
	"medialib/pkg/search"
)

var queryHelp = "Search query. Free text matches titles (names for characters). " +
	"Keys: title, name, year, type, status, tag, score, media, appearances. " +
	`Prefix a key with - to exclude, quote values with spaces (tag:"slice of life"), ` +
	"numbers accept >n and <n (year:>2010)."

func searchMediaTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_media",
		Description: "Search the media catalog or its characters with a structured query string",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": queryHelp,
				},
				"context": map[string]interface{}{
					"type":        "string",
					"description": "What to search",
					"enum":        []string{"media", "character"},
					"default":     "media",
				},
				"sort": map[string]interface{}{
					"type":        "string",
					"description": "Sort field (media: title, release_year, created_at; character: name, created_at, appearances)",
				},
				"order": map[string]interface{}{
					"type":    "string",
					"enum":    []string{"asc", "desc"},
					"default": "desc",
				},
				"page": map[string]interface{}{
					"type":    "integer",
					"default": 1,
					"minimum": 1,
				},
				"page_size": map[string]interface{}{
					"type":    "integer",
					"default": listing.DefaultPageSize,
					"minimum": 1,
					"maximum": listing.MaxPageSize,
				},
			},
			Required: []string{"query"},
		},
	}
}

func explainQueryTool() mcp.Tool {
	return mcp.Tool{
		Name:        "explain_query",
		Description: "Show how a structured query string is understood without running it",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": queryHelp,
				},
				"context": map[string]interface{}{
					"type":    "string",
					"enum":    []string{"media", "character", "library"},
					"default": "media",
				},
			},
			Required: []string{"query"},
		},
	}
}

func (s *Server) handleSearchMedia(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("arguments must be an object"), nil
	}
	query, ok := args["query"].(string)
	if !ok {
		return mcp.NewToolResultError("query is required"), nil
	}
	sctx, ok := search.ParseContext(getStringDefault(args, "context", "media"))
	if !ok || sctx == search.ContextLibrary {
		return mcp.NewToolResultError("context must be media or character"), nil
	}

	parsed := search.Parse(query, sctx)
	params := search.ToParams(parsed.Filters, &search.Sort{
		Field: getStringDefault(args, "sort", ""),
		Order: getStringDefault(args, "order", ""),
	})
	if n := getIntDefault(args, "page", 0); n > 0 {
		params.Set(search.ParamPage, strconv.Itoa(n))
	}
	if n := getIntDefault(args, "page_size", 0); n > 0 {
		params.Set(search.ParamPageSize, strconv.Itoa(n))
	}

	response := map[string]interface{}{
		"query":   search.ToQuery(params),
		"filters": parsed.Filters,
		"chips":   chipStrings(parsed.Chips()),
	}

	var total, size int
	if sctx == search.ContextCharacter {
		res, err := s.Characters.List(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("search characters: %w", err)
		}
		response["characters"] = res.Items
		total, size = res.Total, res.Page.Size
		response["page"] = res.Page.Number
	} else {
		res, err := s.Media.List(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("search media: %w", err)
		}
		response["media"] = res.Items
		total, size = res.Total, res.Page.Size
		response["page"] = res.Page.Number
	}
	response["total"] = total
	response["total_pages"] = listing.TotalPages(total, size)

	return mcp.NewToolResultText(formatJSON(response)), nil
}

func (s *Server) handleExplainQuery(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("arguments must be an object"), nil
	}
	query, ok := args["query"].(string)
	if !ok {
		return mcp.NewToolResultError("query is required"), nil
	}
	sctx, ok := search.ParseContext(getStringDefault(args, "context", "media"))
	if !ok {
		return mcp.NewToolResultError("context must be media, character or library"), nil
	}

	parsed := search.Parse(query, sctx)
	params := search.ToParams(parsed.Filters, nil)
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"filters":    parsed.Filters,
		"chips":      chipStrings(parsed.Chips()),
		"params":     params.Encode(),
		"canonical":  search.ToQuery(params),
		"plain_text": parsed.Plain,
	})), nil
}

func chipStrings(chips []search.Chip) []string {
	out := make([]string, len(chips))
	for i, c := range chips {
		out[i] = c.String()
	}
	return out
}

func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}
