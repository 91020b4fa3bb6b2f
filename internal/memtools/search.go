package memtools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/yejune/do-worker/internal/store"
)

// SearchTool handles the do_search MCP tool.
type SearchTool struct {
	store *store.Store
}

// NewSearchTool creates a SearchTool.
func NewSearchTool(st *store.Store) *SearchTool {
	return &SearchTool{store: st}
}

// Definition returns the MCP tool definition for do_search.
func (t *SearchTool) Definition() mcp.Tool {
	return mcp.NewTool("do_search",
		mcp.WithDescription(
			"Search observations recorded across all coding sessions. Use this to find past "+
				"decisions, errors hit, insights, and open questions from previous work.",
		),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search query (natural language or keywords)"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Max results (default: 10)"),
		),
	)
}

// Handle processes the do_search tool call. Results are ranked by FTS5
// relevance rather than recency.
func (t *SearchTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := req.GetString("query", "")
	if query == "" {
		return mcp.NewToolResultError("'query' is required"), nil
	}
	limit := intArg(req, "limit", 10)

	results, err := t.store.SearchRanked(query, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	if len(results) == 0 {
		return mcp.NewToolResultText("No observations found matching your query."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d observations:\n\n", len(results))
	for i, o := range results {
		fmt.Fprintf(&b, "[%d] #%d (%s) %s\n    session: %s | %s\n\n",
			i+1, o.ID, o.Type,
			store.Truncate(o.Content, 300),
			o.SessionID, o.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	return mcp.NewToolResultText(b.String()), nil
}
