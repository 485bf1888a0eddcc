package notify

import (
	"sync"
	"time"

	"github.com/btouchard/midicue/internal/mapping"
)

const recentLimit = 10

// Message is an alert or banner as last shown to the operator.
type Message struct {
	Type     EventType `json:"type"`
	Title    string    `json:"title"`
	Subtitle string    `json:"subtitle,omitempty"`
	Body     string    `json:"body"`
	Time     time.Time `json:"time"`
}

// Snapshot is what the Board currently displays.
type Snapshot struct {
	Status   string            `json:"status"`
	Devices  []string          `json:"devices"`
	Selected string            `json:"selected_device"`
	Mappings []mapping.Mapping `json:"mappings"`
	Recent   []Message         `json:"recent"`
}

// Board keeps the latest UI state in memory for polling clients.
type Board struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewBoard returns an empty Board.
func NewBoard() *Board {
	return &Board{snap: Snapshot{Status: "Disconnected"}}
}

func (b *Board) Notify(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch event.Type {
	case EventStatus:
		b.snap.Status = event.Body
	case EventDevices:
		b.snap.Devices = append([]string(nil), event.Devices...)
		b.snap.Selected = event.Selected
	case EventMappings:
		b.snap.Mappings = append([]mapping.Mapping(nil), event.Mappings...)
	case EventAlert, EventBanner:
		b.snap.Recent = append(b.snap.Recent, Message{
			Type:     event.Type,
			Title:    event.Title,
			Subtitle: event.Subtitle,
			Body:     event.Body,
			Time:     event.Time,
		})
		if over := len(b.snap.Recent) - recentLimit; over > 0 {
			b.snap.Recent = append([]Message(nil), b.snap.Recent[over:]...)
		}
	}
}

// Snapshot returns a copy of the current state.
func (b *Board) Snapshot() Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()

	s := b.snap
	s.Devices = append([]string(nil), s.Devices...)
	s.Mappings = append([]mapping.Mapping(nil), s.Mappings...)
	s.Recent = append([]Message(nil), s.Recent...)
	return s
}
