package midi

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// maxPending bounds the messages buffered between two poll ticks.
const maxPending = 1024

// Driver enumerates and opens MIDI inputs.
type Driver interface {
	Inputs() ([]string, error)
	Open(name string) (Input, error)
}

// Input is an open device. Pending returns every message received since the
// previous call.
type Input interface {
	Pending() ([]midi.Message, error)
	Close() error
}

// SystemDriver uses the gomidi driver registered by the binary
// (see the rtmididrv blank import in cmd/midicue).
type SystemDriver struct{}

// Inputs returns the names of the available input ports.
func (SystemDriver) Inputs() ([]string, error) {
	ports := midi.GetInPorts()
	names := make([]string, 0, len(ports))
	for _, p := range ports {
		names = append(names, p.String())
	}
	return names, nil
}

// Open finds the port with exactly this name and starts buffering its messages.
func (SystemDriver) Open(name string) (Input, error) {
	var port drivers.In
	for _, p := range midi.GetInPorts() {
		if p.String() == name {
			port = p
			break
		}
	}
	if port == nil {
		return nil, fmt.Errorf("no MIDI input port named %q", name)
	}

	in := &portInput{name: name, port: port}
	stop, err := midi.ListenTo(port, in.receive, midi.HandleError(in.fail))
	if err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("listen %q: %w", name, err)
	}
	in.stop = stop
	return in, nil
}

// portInput collects messages delivered by the gomidi listener until the
// next Pending call.
type portInput struct {
	name string
	port drivers.In
	stop func()

	mu      sync.Mutex
	pending []midi.Message
	err     error
	dropped int
	once    sync.Once
}

func (p *portInput) receive(msg midi.Message, _ int32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.pending) >= maxPending {
		p.dropped++
		return
	}
	p.pending = append(p.pending, msg)
}

func (p *portInput) fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = errors.Join(p.err, err)
}

func (p *portInput) Pending() ([]midi.Message, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	msgs := p.pending
	p.pending = nil
	err := p.err
	p.err = nil
	if p.dropped > 0 {
		slog.Warn("midi: input buffer overflow", "device", p.name, "dropped", p.dropped)
		p.dropped = 0
	}
	return msgs, err
}

func (p *portInput) Close() error {
	var err error
	p.once.Do(func() {
		if p.stop != nil {
			p.stop()
		}
		err = p.port.Close()
	})
	return err
}
