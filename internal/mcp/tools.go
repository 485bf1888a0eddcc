package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/btouchard/midicue/internal/mcp/handlers"
)

func registerTools(s *server.MCPServer, deps *Deps) {
	c := deps.Controller

	// list_devices
	s.AddTool(
		mcp.NewTool("list_devices",
			mcp.WithDescription("List the MIDI input devices available on this machine. The connected device is marked."),
		),
		handlers.ListDevices(c),
	)

	// connect_device
	s.AddTool(
		mcp.NewTool("connect_device",
			mcp.WithDescription("Connect to a MIDI input device by name. The choice is remembered for the next start."),
			mcp.WithString("device",
				mcp.Required(),
				mcp.Description("Device name exactly as returned by list_devices"),
			),
		),
		handlers.ConnectDevice(c),
	)

	// arm_learn_mode
	s.AddTool(
		mcp.NewTool("arm_learn_mode",
			mcp.WithDescription("Capture the next pressed note instead of sending its notification. Follow with capture_mapping."),
		),
		handlers.ArmLearnMode(c),
	)

	// capture_mapping
	s.AddTool(
		mcp.NewTool("capture_mapping",
			mcp.WithDescription("Assign a notification message to the note captured by arm_learn_mode. Replaces any existing mapping for that note."),
			mcp.WithString("message",
				mcp.Required(),
				mcp.Description("Notification text sent when the note is pressed"),
			),
			mcp.WithNumber("priority",
				mcp.Description("Pushover priority from -2 (lowest) to 2 (emergency). Out of range values are clamped. Default 0."),
			),
		),
		handlers.CaptureMapping(c),
	)

	// list_mappings
	s.AddTool(
		mcp.NewTool("list_mappings",
			mcp.WithDescription("List note to message mappings in display order."),
		),
		handlers.ListMappings(c),
	)

	// clear_mappings
	s.AddTool(
		mcp.NewTool("clear_mappings",
			mcp.WithDescription("Remove every mapping. Requires confirm=true."),
			mcp.WithBoolean("confirm",
				mcp.Required(),
				mcp.Description("Must be true to proceed"),
			),
		),
		handlers.ClearMappings(c),
	)

	// test_notification
	s.AddTool(
		mcp.NewTool("test_notification",
			mcp.WithDescription("Send a test notification through Pushover and report the outcome."),
		),
		handlers.TestNotification(c),
	)

	// set_credentials
	s.AddTool(
		mcp.NewTool("set_credentials",
			mcp.WithDescription("Store the Pushover user key and application API token."),
			mcp.WithString("user_key",
				mcp.Required(),
				mcp.Description("Pushover user key"),
			),
			mcp.WithString("api_token",
				mcp.Required(),
				mcp.Description("Pushover application API token"),
			),
		),
		handlers.SetCredentials(c),
	)

	// get_status
	s.AddTool(
		mcp.NewTool("get_status",
			mcp.WithDescription("Show connection, learn mode, mapping count and credential status."),
		),
		handlers.GetStatus(c),
	)
}
