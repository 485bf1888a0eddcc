package state

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/btouchard/midicue/internal/mapping"
)

// Entry is the on-disk form of a single note mapping.
type Entry struct {
	Message  string `json:"message"`
	Priority int    `json:"priority"`
}

// Document is the persisted configuration. Unknown fields are ignored and
// missing fields keep their zero value.
type Document struct {
	UserKey        string                               `json:"pushover_user_key"`
	APIToken       string                               `json:"pushover_api_token"`
	SelectedDevice *string                              `json:"selected_device"`
	Mappings       *orderedmap.OrderedMap[string, Entry] `json:"midi_mappings"`
}

// Default returns the document written when no valid configuration exists.
func Default() Document {
	m := orderedmap.New[string, Entry]()
	m.Set("60", Entry{Message: "Stage needs assistance!", Priority: 1})
	m.Set("62", Entry{Message: "Technical issue on stage", Priority: 0})
	m.Set("64", Entry{Message: "Sound check requested", Priority: -1})
	return Document{Mappings: m}
}

// Decode parses and validates a configuration document.
func Decode(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("parsing JSON: %w", err)
	}
	if doc.Mappings == nil {
		doc.Mappings = orderedmap.New[string, Entry]()
	}
	if err := validate(doc); err != nil {
		return Document{}, err
	}
	return doc, nil
}

// Encode renders the document as indented JSON.
func Encode(doc Document) ([]byte, error) {
	if doc.Mappings == nil {
		doc.Mappings = orderedmap.New[string, Entry]()
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding JSON: %w", err)
	}
	return append(data, '\n'), nil
}

func validate(doc Document) error {
	for pair := doc.Mappings.Oldest(); pair != nil; pair = pair.Next() {
		note, err := strconv.Atoi(pair.Key)
		if err != nil {
			return fmt.Errorf("midi_mappings: key %q is not a note number", pair.Key)
		}
		if note < mapping.MinNote || note > mapping.MaxNote {
			return fmt.Errorf("midi_mappings: note %d outside [%d,%d]", note, mapping.MinNote, mapping.MaxNote)
		}
		if strings.TrimSpace(pair.Value.Message) == "" {
			return fmt.Errorf("midi_mappings: note %d has an empty message", note)
		}
	}
	return nil
}

func toMappings(m *orderedmap.OrderedMap[string, Entry]) []mapping.Mapping {
	out := make([]mapping.Mapping, 0, m.Len())
	for pair := m.Oldest(); pair != nil; pair = pair.Next() {
		note, err := strconv.Atoi(pair.Key)
		if err != nil {
			continue
		}
		out = append(out, mapping.Mapping{
			Note:     note,
			Message:  pair.Value.Message,
			Priority: mapping.ClampPriority(pair.Value.Priority),
		})
	}
	return out
}

func fromMappings(ms []mapping.Mapping) *orderedmap.OrderedMap[string, Entry] {
	m := orderedmap.New[string, Entry]()
	for _, v := range ms {
		m.Set(strconv.Itoa(v.Note), Entry{Message: v.Message, Priority: v.Priority})
	}
	return m
}
