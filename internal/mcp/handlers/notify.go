package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/btouchard/midicue/internal/pushover"
)

// TestNotification returns a handler that sends the fixed test message.
func TestNotification(c Controller) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		err := c.TestNotification(ctx)

		var de *pushover.DeliveryError
		switch {
		case err == nil:
			return mcp.NewToolResultText("✅ Test notification sent."), nil
		case errors.Is(err, pushover.ErrMissingCredentials):
			return mcp.NewToolResultError("Pushover is not configured. Call set_credentials first."), nil
		case errors.As(err, &de) && de.Status != 0:
			return mcp.NewToolResultError(fmt.Sprintf("Pushover rejected the message (HTTP %d): %s", de.Status, de.Body)), nil
		default:
			return mcp.NewToolResultError(fmt.Sprintf("Sending failed: %s", err)), nil
		}
	}
}

// SetCredentials returns a handler that stores the Pushover user key and API token.
func SetCredentials(c Controller) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()

		userKey, _ := args["user_key"].(string)
		apiToken, _ := args["api_token"].(string)
		if userKey == "" || apiToken == "" {
			return mcp.NewToolResultError("user_key and api_token are required"), nil
		}

		if err := c.SetCredentials(userKey, apiToken); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Saving credentials failed: %s", err)), nil
		}
		return mcp.NewToolResultText("Pushover credentials saved."), nil
	}
}
