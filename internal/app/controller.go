package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/btouchard/midicue/internal/dispatch"
	"github.com/btouchard/midicue/internal/learn"
	"github.com/btouchard/midicue/internal/mapping"
	"github.com/btouchard/midicue/internal/metrics"
	"github.com/btouchard/midicue/internal/midi"
	"github.com/btouchard/midicue/internal/pushover"
)

// TestMessage is sent by TestNotification.
const TestMessage = "Test notification from MIDI Pushover"

const bannerBodyLimit = 50

// ConfigStore is the persisted configuration the controller reads and updates.
// Defined at the consumer side per Go convention.
type ConfigStore interface {
	Credentials() (userKey, apiToken string)
	SetCredentials(userKey, apiToken string) error
	SelectedDevice() string
	SetSelectedDevice(name string) error
}

// UI receives the controller's outbound calls.
type UI interface {
	UpdateStatus(text string)
	ShowAlert(title, body string)
	ShowBanner(title, subtitle, body string)
	RefreshDeviceList(names []string, selected string)
	RefreshMappingList(mappings []mapping.Mapping)
}

// Options wires a Controller.
type Options struct {
	Driver      midi.Driver
	MIDI        midi.Config
	Mappings    *mapping.Store
	Config      ConfigStore
	Sender      dispatch.Sender
	UI          UI
	Metrics     *metrics.Metrics
	QueueSize   int
	SendTimeout time.Duration
}

// Controller routes MIDI events to learn mode or dispatch and implements the
// operations exposed to the control surfaces.
type Controller struct {
	listener    *midi.Listener
	learn       *learn.Machine
	mappings    *mapping.Store
	config      ConfigStore
	sender      dispatch.Sender
	queue       *dispatch.Queue
	ui          UI
	metrics     *metrics.Metrics
	sendTimeout time.Duration
}

// Status is a point-in-time view of the controller.
type Status struct {
	Device         string      `json:"device"`
	Connected      bool        `json:"connected"`
	Learn          learn.State `json:"learn"`
	LastNote       *int        `json:"last_note"`
	Mappings       int         `json:"mappings"`
	CredentialsSet bool        `json:"credentials_set"`
	QueuePending   int         `json:"queue_pending"`
}

// New creates a Controller and starts its dispatch worker.
func New(opts Options) *Controller {
	c := &Controller{
		learn:       learn.New(),
		mappings:    opts.Mappings,
		config:      opts.Config,
		sender:      opts.Sender,
		ui:          opts.UI,
		metrics:     opts.Metrics,
		sendTimeout: opts.SendTimeout,
	}
	if c.sendTimeout <= 0 {
		c.sendTimeout = pushover.DefaultTimeout + 5*time.Second
	}

	midiCfg := opts.MIDI
	userOnError := midiCfg.OnError
	midiCfg.OnError = func(device string, err error) {
		c.pollError(device, err)
		if userOnError != nil {
			userOnError(device, err)
		}
	}
	c.listener = midi.NewListener(opts.Driver, midiCfg)
	c.queue = dispatch.NewQueue(opts.Sender, opts.QueueSize, c.sendTimeout, c.onResult)
	return c
}

// Run reconnects to the saved device, then handles MIDI events until ctx is done.
func (c *Controller) Run(ctx context.Context) {
	c.mappingsChanged()
	if _, err := c.ListDevices(); err != nil {
		slog.Warn("listing MIDI devices failed", "error", err)
	}
	if device := c.config.SelectedDevice(); device != "" {
		slog.Info("reconnecting to saved device", "device", device)
		_ = c.Connect(device)
	} else {
		c.ui.UpdateStatus("Disconnected")
	}

	events := c.listener.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			c.HandleEvent(ev)
		}
	}
}

// Close disconnects the device and delivers any queued notifications.
func (c *Controller) Close() {
	c.listener.Disconnect()
	c.metrics.SetConnected(false)
	c.queue.Close()
}

// HandleEvent routes one MIDI event. Exported for tests and for callers that
// drain the listener themselves.
func (c *Controller) HandleEvent(ev midi.Event) {
	c.metrics.Note(ev.Kind.String())
	if ev.Kind != midi.NotePressed {
		return
	}

	if c.learn.Observe(ev.Note) {
		c.metrics.Captured()
		slog.Info("learn mode captured note", "note", ev.Note, "device", ev.Device)
		c.ui.UpdateStatus(fmt.Sprintf("Last note = %d", ev.Note))
		c.ui.ShowBanner("MIDI Learn", fmt.Sprintf("Note %d detected", ev.Note), "Assign a message to map it")
		return
	}

	m, ok := c.mappings.Get(ev.Note)
	if !ok {
		c.metrics.Unmapped()
		slog.Debug("no mapping for note", "note", ev.Note)
		return
	}

	err := c.queue.Enqueue(dispatch.Job{
		Note:     m.Note,
		Message:  m.Message,
		Priority: pushover.Priority(m.Priority),
	})
	if err != nil {
		c.metrics.Dispatch(metrics.ResultDropped, 0)
		c.ui.ShowAlert("Error", fmt.Sprintf("Notification for note %d dropped: %v", m.Note, err))
	}
}

// Connect switches to deviceName and remembers it for the next start.
func (c *Controller) Connect(deviceName string) error {
	if err := c.listener.Connect(deviceName); err != nil {
		c.metrics.SetConnected(false)
		c.ui.UpdateStatus("Disconnected")
		c.ui.ShowAlert("Connection Error", err.Error())
		return err
	}
	c.metrics.SetConnected(true)

	if err := c.config.SetSelectedDevice(deviceName); err != nil {
		slog.Warn("saving selected device failed", "device", deviceName, "error", err)
	}
	c.ui.UpdateStatus("Connected to " + deviceName)
	if _, err := c.ListDevices(); err != nil {
		slog.Warn("listing MIDI devices failed", "error", err)
	}
	return nil
}

// Disconnect releases the current device, if any.
func (c *Controller) Disconnect() {
	c.listener.Disconnect()
	c.metrics.SetConnected(false)
	c.ui.UpdateStatus("Disconnected")
}

// ArmLearnMode captures the next pressed note instead of dispatching it.
func (c *Controller) ArmLearnMode() {
	c.learn.Arm()
	c.ui.UpdateStatus("Press a MIDI note...")
	c.ui.ShowBanner("MIDI Learn", "Press a note", "Then assign a message to it")
}

// CancelLearnMode abandons a pending capture.
func (c *Controller) CancelLearnMode() {
	c.learn.Cancel()
	c.ui.UpdateStatus(c.connectionStatus())
}

// CaptureMapping assigns message and priority to the captured note.
func (c *Controller) CaptureMapping(message string, priority int) (mapping.Mapping, error) {
	var stored mapping.Mapping
	_, err := c.learn.Complete(func(note int) error {
		m, err := c.mappings.Set(note, message, priority)
		if err != nil {
			return err
		}
		stored = m
		return nil
	})

	switch {
	case errors.Is(err, learn.ErrNoCaptureAvailable):
		c.ui.ShowAlert("No Note", "Listen for the next note and press it on your MIDI controller first")
		return mapping.Mapping{}, err
	case errors.Is(err, mapping.ErrInvalidMapping):
		c.ui.ShowAlert("Invalid Mapping", err.Error())
		return mapping.Mapping{}, err
	case err != nil:
		c.ui.ShowAlert("Error", fmt.Sprintf("Failed to save mapping: %v", err))
		return mapping.Mapping{}, err
	}

	slog.Info("mapping saved",
		"note", stored.Note,
		"priority", stored.Priority)
	c.mappingsChanged()
	c.ui.UpdateStatus(c.connectionStatus())
	c.ui.ShowBanner("Success", fmt.Sprintf("Note %d mapped", stored.Note), stored.Message)
	return stored, nil
}

// ClearMappings removes every mapping. Confirmation is the caller's job.
func (c *Controller) ClearMappings() error {
	if err := c.mappings.Clear(); err != nil {
		c.ui.ShowAlert("Error", fmt.Sprintf("Failed to clear mappings: %v", err))
		return err
	}
	slog.Info("mappings cleared")
	c.mappingsChanged()
	return nil
}

// TestNotification sends a fixed message synchronously and reports the outcome.
func (c *Controller) TestNotification(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.sendTimeout)
	defer cancel()

	start := time.Now()
	receipt, err := c.sender.Send(ctx, TestMessage, pushover.PriorityNormal)
	c.onResult(dispatch.Result{
		Job:      dispatch.Job{Note: -1, Message: TestMessage, Priority: pushover.PriorityNormal},
		Receipt:  receipt,
		Err:      err,
		Duration: time.Since(start),
	})
	return err
}

// SetCredentials stores new Pushover credentials.
func (c *Controller) SetCredentials(userKey, apiToken string) error {
	if err := c.config.SetCredentials(userKey, apiToken); err != nil {
		c.ui.ShowAlert("Error", fmt.Sprintf("Failed to save credentials: %v", err))
		return err
	}
	c.ui.ShowBanner("Saved", "Pushover credentials saved", "")
	return nil
}

// ListDevices returns the available MIDI inputs and refreshes the device list.
func (c *Controller) ListDevices() ([]string, error) {
	names, err := c.listener.Devices()
	if err != nil {
		c.ui.RefreshDeviceList(nil, c.listener.Device())
		return nil, err
	}
	c.ui.RefreshDeviceList(names, c.listener.Device())
	return names, nil
}

// ListMappings returns the mappings in display order.
func (c *Controller) ListMappings() []mapping.Mapping {
	return c.mappings.List()
}

// Status reports the current state.
func (c *Controller) Status() Status {
	s := Status{
		Device:       c.listener.Device(),
		Learn:        c.learn.State(),
		Mappings:     c.mappings.Len(),
		QueuePending: c.queue.Pending(),
	}
	s.Connected = s.Device != ""
	if n, ok := c.listener.LastNote(); ok {
		s.LastNote = &n
	}
	user, token := c.config.Credentials()
	s.CredentialsSet = user != "" && token != ""
	return s
}

func (c *Controller) mappingsChanged() {
	c.ui.RefreshMappingList(c.mappings.List())
}

func (c *Controller) connectionStatus() string {
	if d := c.listener.Device(); d != "" {
		return "Connected to " + d
	}
	return "Disconnected"
}

func (c *Controller) pollError(device string, err error) {
	c.metrics.PollError()
	c.ui.UpdateStatus(fmt.Sprintf("Connection problem on %s, retrying", device))
}

func (c *Controller) onResult(res dispatch.Result) {
	var de *pushover.DeliveryError
	switch {
	case res.Err == nil:
		c.metrics.Dispatch(metrics.ResultSent, res.Duration)
		request := ""
		if res.Receipt != nil {
			request = res.Receipt.Request
		}
		slog.Info("notification sent",
			"note", res.Job.Note,
			"priority", int(res.Job.Priority),
			"request", request,
			"duration", res.Duration)
		c.ui.ShowBanner("Success", "Notification sent", truncate(res.Job.Message, bannerBodyLimit))

	case errors.Is(res.Err, pushover.ErrMissingCredentials):
		c.metrics.Dispatch(metrics.ResultMissingCredentials, 0)
		slog.Warn("notification skipped, credentials missing", "note", res.Job.Note)
		c.ui.ShowAlert("Error", "Please configure Pushover first")

	case errors.As(res.Err, &de) && de.Status != 0:
		c.metrics.Dispatch(metrics.ResultRejected, res.Duration)
		slog.Warn("notification rejected",
			"note", res.Job.Note,
			"status", de.Status,
			"body", de.Body)
		c.ui.ShowAlert("Pushover Error", "Failed to send: "+de.Body)

	default:
		c.metrics.Dispatch(metrics.ResultFailed, res.Duration)
		slog.Warn("notification failed", "note", res.Job.Note, "error", res.Err)
		c.ui.ShowAlert("Error", fmt.Sprintf("Failed to send notification: %v", res.Err))
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
