package midi

import (
	"fmt"

	"gitlab.com/gomidi/midi/v2"
)

// EventKind distinguishes presses from releases.
type EventKind int

const (
	NotePressed EventKind = iota + 1
	NoteReleased
)

func (k EventKind) String() string {
	switch k {
	case NotePressed:
		return "pressed"
	case NoteReleased:
		return "released"
	default:
		return "unknown"
	}
}

// Event is a normalized note event from the active device.
type Event struct {
	Kind     EventKind
	Device   string
	Channel  uint8
	Note     int
	Velocity uint8
}

func (e Event) String() string {
	return fmt.Sprintf("Note %d %s (ch %d, vel %d)", e.Note, e.Kind, e.Channel, e.Velocity)
}

// Decode classifies a raw message. Note-on with velocity 0 counts as a
// release. Anything other than note-on/note-off is ignored.
func Decode(msg midi.Message) (Event, bool) {
	var channel, key, velocity uint8
	switch {
	case msg.GetNoteStart(&channel, &key, &velocity):
		return Event{Kind: NotePressed, Channel: channel, Note: int(key), Velocity: velocity}, true
	case msg.GetNoteEnd(&channel, &key):
		return Event{Kind: NoteReleased, Channel: channel, Note: int(key)}, true
	}
	return Event{}, false
}
