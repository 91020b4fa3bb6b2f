package memtools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/yejune/do-worker/internal/store"
)

// SessionsTool handles the do_sessions MCP tool.
type SessionsTool struct {
	store *store.Store
}

// NewSessionsTool creates a SessionsTool.
func NewSessionsTool(st *store.Store) *SessionsTool {
	return &SessionsTool{store: st}
}

// Definition returns the MCP tool definition for do_sessions.
func (t *SessionsTool) Definition() mcp.Tool {
	return mcp.NewTool("do_sessions",
		mcp.WithDescription(
			"List recorded working sessions, newest first, with project and summary.",
		),
		mcp.WithString("status",
			mcp.Description("Filter: active or ended (default: all)"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Max results (default: 10)"),
		),
	)
}

// Handle processes the do_sessions tool call.
func (t *SessionsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status := req.GetString("status", "")
	switch status {
	case "", "active", "ended":
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown status %q", status)), nil
	}
	limit := intArg(req, "limit", 10)

	sessions, err := t.store.ListSessions(status)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("listing failed: %v", err)), nil
	}
	if len(sessions) == 0 {
		return mcp.NewToolResultText("No sessions recorded yet."), nil
	}
	if len(sessions) > limit {
		sessions = sessions[:limit]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d sessions:\n\n", len(sessions))
	for _, sess := range sessions {
		summary := ""
		if sess.Summary != nil {
			summary = ": " + store.Truncate(*sess.Summary, 200)
		}
		fmt.Fprintf(&b, "- %s [%s] %s (started %s)%s\n",
			sess.ID, sess.Status, sess.ProjectPath,
			sess.StartedAt.Format("2006-01-02 15:04"), summary,
		)
	}
	return mcp.NewToolResultText(b.String()), nil
}
