package learn

import (
	"errors"
	"fmt"
	"sync"
)

// ErrNoCaptureAvailable is returned when a mapping action runs without a captured note.
var ErrNoCaptureAvailable = errors.New("no captured note available")

// Phase is the learn mode state.
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseArmed    Phase = "armed"
	PhaseCaptured Phase = "captured"
)

// State is a snapshot of the machine. Note is meaningful only in PhaseCaptured.
type State struct {
	Phase Phase `json:"phase"`
	Note  int   `json:"note"`
}

func (s State) String() string {
	if s.Phase == PhaseCaptured {
		return fmt.Sprintf("%s(%d)", s.Phase, s.Note)
	}
	return string(s.Phase)
}

// Machine captures the next pressed note for mapping assignment.
// All transitions happen under its lock, so it is safe to call from the
// MIDI poller and from control handlers at the same time.
type Machine struct {
	mu    sync.Mutex
	state State
}

// New returns a Machine in PhaseIdle.
func New() *Machine {
	return &Machine{state: State{Phase: PhaseIdle}}
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Arm waits for the next pressed note. Any previous capture is discarded.
func (m *Machine) Arm() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = State{Phase: PhaseArmed}
}

// Cancel returns to PhaseIdle from any state.
func (m *Machine) Cancel() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = State{Phase: PhaseIdle}
}

// Observe offers a pressed note to the machine. It returns true when the note
// was captured; false means the caller should route it to normal dispatch.
func (m *Machine) Observe(note int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state.Phase != PhaseArmed {
		return false
	}
	m.state = State{Phase: PhaseCaptured, Note: note}
	return true
}

// Complete runs fn with the captured note and returns to PhaseIdle when fn
// succeeds. If fn fails the capture is kept so the action can be retried.
func (m *Machine) Complete(fn func(note int) error) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state.Phase != PhaseCaptured {
		return 0, fmt.Errorf("%w (learn mode is %s)", ErrNoCaptureAvailable, m.state.Phase)
	}
	note := m.state.Note
	if err := fn(note); err != nil {
		return note, err
	}
	m.state = State{Phase: PhaseIdle}
	return note, nil
}
