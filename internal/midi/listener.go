package midi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

var (
	ErrDeviceUnavailable = errors.New("MIDI device unavailable")
	ErrConnectionLost    = errors.New("MIDI connection lost")
)

const (
	DefaultPollInterval = 10 * time.Millisecond
	DefaultErrorBackoff = 100 * time.Millisecond
	defaultEventBuffer  = 256
)

// Config tunes the polling loop. Zero values select the defaults.
type Config struct {
	PollInterval time.Duration
	ErrorBackoff time.Duration
	EventBuffer  int
	// OnError is called from the polling goroutine when a tick fails.
	OnError func(device string, err error)
}

// Listener owns at most one device connection and publishes its note events
// on Events in arrival order.
type Listener struct {
	driver Driver
	cfg    Config
	events chan Event

	mu   sync.Mutex // serializes Connect and Disconnect
	conn atomic.Pointer[connection]

	lastNote atomic.Int32
}

type connection struct {
	device string
	input  Input
	cancel context.CancelFunc
	done   chan struct{}
}

// NewListener creates a disconnected Listener.
func NewListener(driver Driver, cfg Config) *Listener {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.ErrorBackoff <= 0 {
		cfg.ErrorBackoff = DefaultErrorBackoff
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = defaultEventBuffer
	}
	l := &Listener{
		driver: driver,
		cfg:    cfg,
		events: make(chan Event, cfg.EventBuffer),
	}
	l.lastNote.Store(-1)
	return l
}

// Events returns the channel note events are published on.
func (l *Listener) Events() <-chan Event { return l.events }

// Devices lists the available input names.
func (l *Listener) Devices() ([]string, error) {
	names, err := l.driver.Inputs()
	if err != nil {
		return nil, fmt.Errorf("listing MIDI inputs: %w", err)
	}
	return names, nil
}

// Device returns the connected device name, or "" when disconnected.
func (l *Listener) Device() string {
	if c := l.conn.Load(); c != nil {
		return c.device
	}
	return ""
}

// LastNote returns the most recently pressed note.
func (l *Listener) LastNote() (int, bool) {
	n := l.lastNote.Load()
	return int(n), n >= 0
}

// Connect closes any current connection, waits for its poller to stop, then
// opens name. If the new device cannot be opened the listener stays
// disconnected.
func (l *Listener) Connect(name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.teardownLocked()

	names, err := l.driver.Inputs()
	if err != nil {
		return fmt.Errorf("%w: listing inputs: %v", ErrDeviceUnavailable, err)
	}
	if !slices.Contains(names, name) {
		return fmt.Errorf("%w: %q not found", ErrDeviceUnavailable, name)
	}

	input, err := l.driver.Open(name)
	if err != nil {
		return fmt.Errorf("%w: opening %q: %v", ErrDeviceUnavailable, name, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &connection{
		device: name,
		input:  input,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	l.conn.Store(c)
	go l.poll(ctx, c)

	slog.Info("midi: connected", "device", name)
	return nil
}

// Disconnect stops the poller and releases the device. Safe to call when
// already disconnected.
func (l *Listener) Disconnect() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.teardownLocked()
}

func (l *Listener) teardownLocked() {
	c := l.conn.Load()
	if c == nil {
		return
	}
	c.cancel()
	<-c.done
	if err := c.input.Close(); err != nil {
		slog.Warn("midi: closing device failed", "device", c.device, "error", err)
	}
	l.conn.Store(nil)
	slog.Info("midi: disconnected", "device", c.device)
}

func (l *Listener) poll(ctx context.Context, c *connection) {
	defer close(c.done)

	ticker := time.NewTicker(l.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		msgs, err := c.input.Pending()
		for _, msg := range msgs {
			ev, ok := Decode(msg)
			if !ok {
				slog.Debug("midi: ignoring message", "device", c.device, "msg", msg.String())
				continue
			}
			ev.Device = c.device
			if ev.Kind == NotePressed {
				l.lastNote.Store(int32(ev.Note))
			}
			select {
			case l.events <- ev:
			case <-ctx.Done():
				return
			}
		}

		if err != nil {
			err = fmt.Errorf("%w: %v", ErrConnectionLost, err)
			slog.Warn("midi: poll failed", "device", c.device, "error", err)
			if l.cfg.OnError != nil {
				l.cfg.OnError(c.device, err)
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(l.cfg.ErrorBackoff):
			}
		}
	}
}
