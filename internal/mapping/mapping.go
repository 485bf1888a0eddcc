package mapping

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

const (
	MinNote     = 0
	MaxNote     = 127
	MinPriority = -2
	MaxPriority = 2
)

// ErrInvalidMapping is returned for an out-of-range note or an empty message.
var ErrInvalidMapping = errors.New("invalid mapping")

// Mapping associates a MIDI note with an alert message and priority.
type Mapping struct {
	Note     int    `json:"note"`
	Message  string `json:"message"`
	Priority int    `json:"priority"`
}

// Persister saves the full mapping set.
type Persister interface {
	PersistMappings(mappings []Mapping) error
}

// ClampPriority bounds p to [MinPriority, MaxPriority].
func ClampPriority(p int) int {
	if p < MinPriority {
		return MinPriority
	}
	if p > MaxPriority {
		return MaxPriority
	}
	return p
}

// Validate checks note range and message presence and returns the mapping
// with its priority clamped.
func Validate(note int, message string, priority int) (Mapping, error) {
	if note < MinNote || note > MaxNote {
		return Mapping{}, fmt.Errorf("%w: note %d outside [%d,%d]", ErrInvalidMapping, note, MinNote, MaxNote)
	}
	if strings.TrimSpace(message) == "" {
		return Mapping{}, fmt.Errorf("%w: message is empty", ErrInvalidMapping)
	}
	return Mapping{Note: note, Message: message, Priority: ClampPriority(priority)}, nil
}

// Store holds note mappings in insertion order and writes through to a Persister.
type Store struct {
	mu        sync.RWMutex
	entries   *orderedmap.OrderedMap[int, Mapping]
	persister Persister
}

// NewStore creates an empty Store. persister may be nil for an in-memory store.
func NewStore(persister Persister) *Store {
	return &Store{
		entries:   orderedmap.New[int, Mapping](),
		persister: persister,
	}
}

// Load replaces the store contents without persisting. Invalid entries are
// skipped and reported in the returned error.
func (s *Store) Load(mappings []Mapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = orderedmap.New[int, Mapping]()
	var errs []error
	for _, m := range mappings {
		v, err := Validate(m.Note, m.Message, m.Priority)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		s.entries.Set(v.Note, v)
	}
	return errors.Join(errs...)
}

// Set validates and stores a mapping, replacing any prior mapping for the note.
// The change is persisted before Set returns; if persisting fails the store
// is left as it was.
func (s *Store) Set(note int, message string, priority int) (Mapping, error) {
	m, err := Validate(note, message, priority)
	if err != nil {
		return Mapping{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, existed := s.entries.Set(m.Note, m)
	if err := s.persistLocked(); err != nil {
		if existed {
			s.entries.Set(m.Note, prev)
		} else {
			s.entries.Delete(m.Note)
		}
		return Mapping{}, err
	}
	return m, nil
}

// Get returns the mapping for note, if any.
func (s *Store) Get(note int) (Mapping, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries.Get(note)
}

// Clear removes every mapping and persists the empty set.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.entries
	s.entries = orderedmap.New[int, Mapping]()
	if err := s.persistLocked(); err != nil {
		s.entries = prev
		return err
	}
	return nil
}

// List returns the mappings in insertion order.
func (s *Store) List() []Mapping {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listLocked()
}

// Len returns the number of mappings.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries.Len()
}

func (s *Store) listLocked() []Mapping {
	out := make([]Mapping, 0, s.entries.Len())
	for pair := s.entries.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value)
	}
	return out
}

func (s *Store) persistLocked() error {
	if s.persister == nil {
		return nil
	}
	if err := s.persister.PersistMappings(s.listLocked()); err != nil {
		return fmt.Errorf("persisting mappings: %w", err)
	}
	return nil
}
