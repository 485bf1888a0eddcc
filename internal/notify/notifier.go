package notify

import (
	"log/slog"
	"time"

	"github.com/btouchard/midicue/internal/mapping"
)

// EventType names the outbound UI call an Event stands for.
type EventType string

const (
	EventStatus   EventType = "status"   // updateStatus(text)
	EventAlert    EventType = "alert"    // showAlert(title, body)
	EventBanner   EventType = "banner"   // showBanner(title, subtitle, body)
	EventDevices  EventType = "devices"  // refreshDeviceList(names, selected)
	EventMappings EventType = "mappings" // refreshMappingList(mappings)
)

// Event is one outbound call to the user interface.
type Event struct {
	Type     EventType
	Title    string
	Subtitle string
	Body     string
	Devices  []string
	Selected string
	Mappings []mapping.Mapping
	Time     time.Time
}

// Notifier receives UI events.
type Notifier interface {
	Notify(event Event)
}

// Hub dispatches events to multiple notifiers, in registration order.
type Hub struct {
	notifiers []Notifier
}

// NewHub creates a Hub with the given notifiers.
func NewHub(notifiers ...Notifier) *Hub {
	return &Hub{notifiers: notifiers}
}

// Add registers another notifier. Not safe for use once events are flowing.
func (h *Hub) Add(n Notifier) {
	h.notifiers = append(h.notifiers, n)
}

// Notify sends an event to all registered notifiers.
func (h *Hub) Notify(event Event) {
	if event.Time.IsZero() {
		event.Time = time.Now()
	}
	for _, n := range h.notifiers {
		n.Notify(event)
	}
}

// Adapter exposes the UI callback surface on top of a Notifier.
type Adapter struct {
	n Notifier
}

// NewAdapter wraps n.
func NewAdapter(n Notifier) *Adapter {
	return &Adapter{n: n}
}

func (a *Adapter) UpdateStatus(text string) {
	a.n.Notify(Event{Type: EventStatus, Body: text})
}

func (a *Adapter) ShowAlert(title, body string) {
	a.n.Notify(Event{Type: EventAlert, Title: title, Body: body})
}

func (a *Adapter) ShowBanner(title, subtitle, body string) {
	a.n.Notify(Event{Type: EventBanner, Title: title, Subtitle: subtitle, Body: body})
}

func (a *Adapter) RefreshDeviceList(names []string, selected string) {
	a.n.Notify(Event{Type: EventDevices, Devices: names, Selected: selected})
}

func (a *Adapter) RefreshMappingList(mappings []mapping.Mapping) {
	a.n.Notify(Event{Type: EventMappings, Mappings: mappings})
}

// LogNotifier writes events to the default slog logger.
type LogNotifier struct{}

func (LogNotifier) Notify(event Event) {
	switch event.Type {
	case EventAlert:
		slog.Warn("alert", "title", event.Title, "body", event.Body)
	case EventBanner:
		slog.Info("banner", "title", event.Title, "subtitle", event.Subtitle, "body", event.Body)
	case EventStatus:
		slog.Info("status", "text", event.Body)
	case EventDevices:
		slog.Debug("device list refreshed", "count", len(event.Devices), "selected", event.Selected)
	case EventMappings:
		slog.Debug("mapping list refreshed", "count", len(event.Mappings))
	default:
		slog.Debug("unknown ui event", "type", event.Type)
	}
}
