package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// GetStatus returns a handler that summarizes the service state.
func GetStatus(c Controller) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		s := c.Status()

		var sb strings.Builder
		if s.Connected {
			fmt.Fprintf(&sb, "🟢 Connected to %s\n", s.Device)
		} else {
			sb.WriteString("⚪ Disconnected\n")
		}
		fmt.Fprintf(&sb, "Learn mode: %s\n", s.Learn)
		if s.LastNote != nil {
			fmt.Fprintf(&sb, "Last note: %d\n", *s.LastNote)
		}
		fmt.Fprintf(&sb, "Mappings: %d\n", s.Mappings)
		if s.CredentialsSet {
			sb.WriteString("Pushover: configured\n")
		} else {
			sb.WriteString("Pushover: not configured\n")
		}
		if s.QueuePending > 0 {
			fmt.Fprintf(&sb, "Queued notifications: %d\n", s.QueuePending)
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}
