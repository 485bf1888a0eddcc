package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/btouchard/midicue/internal/pushover"
)

// ListMappings returns a handler that lists note mappings in display order.
func ListMappings(c Controller) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ms := c.ListMappings()
		if len(ms) == 0 {
			return mcp.NewToolResultText("No mappings configured."), nil
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "📋 Mappings (%d)\n\n", len(ms))
		for _, m := range ms {
			fmt.Fprintf(&sb, "%s Note %d: %s (%s)\n", priorityIcon(m.Priority), m.Note, m.Message, pushover.Priority(m.Priority).Label())
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

// ClearMappings returns a handler that removes every mapping once confirmed.
func ClearMappings(c Controller) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()

		if confirm, _ := args["confirm"].(bool); !confirm {
			return mcp.NewToolResultError("This removes every mapping. Call again with confirm=true."), nil
		}
		if err := c.ClearMappings(); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Clearing mappings failed: %s", err)), nil
		}
		return mcp.NewToolResultText("All mappings cleared."), nil
	}
}

func priorityIcon(p int) string {
	switch pushover.Priority(p) {
	case pushover.PriorityEmergency:
		return "🚨"
	case pushover.PriorityHigh:
		return "❗"
	case pushover.PriorityNormal:
		return "🔔"
	default:
		return "🔕"
	}
}
