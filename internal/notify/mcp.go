package notify

import (
	"log/slog"
	"sync"
	"time"
)

// MCPSender abstracts the mcp-go server notification methods.
// Defined consumer-side per Go convention.
type MCPSender interface {
	SendNotificationToAllClients(method string, params map[string]any)
}

// MCPNotifier pushes alerts, banners and status changes to connected MCP
// clients as notifications/message.
type MCPNotifier struct {
	sender   MCPSender
	debounce time.Duration

	mu         sync.Mutex
	lastStatus time.Time
	lastBody   string
}

// NewMCPNotifier creates an MCPNotifier. A status repeating the previous text
// within debounce is dropped; changed statuses, alerts and banners are always sent.
func NewMCPNotifier(sender MCPSender, debounce time.Duration) *MCPNotifier {
	if debounce <= 0 {
		debounce = time.Second
	}
	return &MCPNotifier{
		sender:   sender,
		debounce: debounce,
	}
}

// Notify sends an MCP notification for the given event.
func (n *MCPNotifier) Notify(event Event) {
	switch event.Type {
	case EventAlert:
		n.send(event, "error")
	case EventBanner:
		n.send(event, "info")
	case EventStatus:
		n.mu.Lock()
		if event.Body == n.lastBody && !n.lastStatus.IsZero() && time.Since(n.lastStatus) < n.debounce {
			n.mu.Unlock()
			return
		}
		n.lastStatus = time.Now()
		n.lastBody = event.Body
		n.mu.Unlock()
		n.send(event, "debug")
	default:
		slog.Debug("mcp notifier: event not forwarded", "type", event.Type)
	}
}

func (n *MCPNotifier) send(event Event, level string) {
	data := map[string]any{
		"type":  string(event.Type),
		"title": event.Title,
		"body":  event.Body,
	}
	if event.Subtitle != "" {
		data["subtitle"] = event.Subtitle
	}
	n.sender.SendNotificationToAllClients("notifications/message", map[string]any{
		"level":  level,
		"logger": "midicue",
		"data":   data,
	})
}
