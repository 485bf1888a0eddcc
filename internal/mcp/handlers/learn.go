package handlers

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/btouchard/midicue/internal/learn"
	"github.com/btouchard/midicue/internal/mapping"
	"github.com/btouchard/midicue/internal/pushover"
)

// ArmLearnMode returns a handler that waits for the next pressed note.
func ArmLearnMode(c Controller) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		c.ArmLearnMode()
		return mcp.NewToolResultText("Learn mode armed. Press a note on the controller, then call capture_mapping."), nil
	}
}

// CaptureMapping returns a handler that assigns a message to the captured note.
func CaptureMapping(c Controller) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()

		message, _ := args["message"].(string)
		if message == "" {
			return mcp.NewToolResultError("message is required"), nil
		}

		priority := 0
		if p, ok := args["priority"].(float64); ok {
			priority = priorityArg(p)
		}

		m, err := c.CaptureMapping(message, priority)
		if errors.Is(err, learn.ErrNoCaptureAvailable) {
			return mcp.NewToolResultError("No note captured yet. Call arm_learn_mode and press a note first."), nil
		}
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Mapping failed: %s", err)), nil
		}

		return mcp.NewToolResultText(fmt.Sprintf("Note %d mapped to %q (priority %d, %s)",
			m.Note, m.Message, m.Priority, pushover.Priority(m.Priority).Label())), nil
	}
}

// priorityArg bounds a JSON number before the int conversion, which would
// otherwise wrap for huge values.
func priorityArg(p float64) int {
	switch {
	case math.IsNaN(p):
		return 0
	case p < mapping.MinPriority:
		return mapping.MinPriority
	case p > mapping.MaxPriority:
		return mapping.MaxPriority
	}
	return int(p)
}
