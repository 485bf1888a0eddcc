package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// ListDevices returns a handler that lists the available MIDI inputs.
func ListDevices(c Controller) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		names, err := c.ListDevices()
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Listing devices failed: %s", err)), nil
		}
		if len(names) == 0 {
			return mcp.NewToolResultText("No MIDI input devices found."), nil
		}

		current := c.Status().Device
		var sb strings.Builder
		fmt.Fprintf(&sb, "🎹 MIDI inputs (%d found)\n\n", len(names))
		for _, n := range names {
			mark := "  "
			if n == current {
				mark = "✔ "
			}
			sb.WriteString(mark + n + "\n")
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

// ConnectDevice returns a handler that switches the listener to a device.
func ConnectDevice(c Controller) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()

		device, _ := args["device"].(string)
		if device == "" {
			return mcp.NewToolResultError("device is required"), nil
		}

		if err := c.Connect(device); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Connection error: %s", err)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Connected to %s", device)), nil
	}
}
