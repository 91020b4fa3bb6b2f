package memtools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/yejune/do-worker/internal/event"
	"github.com/yejune/do-worker/internal/store"
)

// RecentTool handles the do_recent MCP tool.
type RecentTool struct {
	store *store.Store
}

// NewRecentTool creates a RecentTool.
func NewRecentTool(st *store.Store) *RecentTool {
	return &RecentTool{store: st}
}

// Definition returns the MCP tool definition for do_recent.
func (t *RecentTool) Definition() mcp.Tool {
	return mcp.NewTool("do_recent",
		mcp.WithDescription(
			"List the most recent observations, newest first. Useful at session start to "+
				"recover context from the last working session.",
		),
		mcp.WithString("type",
			mcp.Description("Filter by type: decision, error, success, insight, question"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Max results (default: 20)"),
		),
	)
}

// Handle processes the do_recent tool call.
func (t *RecentTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	typ := req.GetString("type", "")
	if typ != "" && !event.ValidObservationType(typ) {
		return mcp.NewToolResultError(fmt.Sprintf("unknown type %q", typ)), nil
	}
	limit := intArg(req, "limit", 20)

	results, err := t.store.ListObservations(typ, nil, nil, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("listing failed: %v", err)), nil
	}
	if len(results) == 0 {
		return mcp.NewToolResultText("No observations recorded yet."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Last %d observations:\n\n", len(results))
	for _, o := range results {
		fmt.Fprintf(&b, "- #%d [%s] %s (%s)\n",
			o.ID, o.Type,
			store.Truncate(o.Content, 200),
			o.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	return mcp.NewToolResultText(b.String()), nil
}
