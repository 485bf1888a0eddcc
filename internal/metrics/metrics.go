package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dispatch results.
const (
	ResultSent               = "sent"
	ResultRejected           = "rejected"
	ResultFailed             = "failed"
	ResultMissingCredentials = "missing_credentials"
	ResultDropped            = "dropped"
)

// Metrics holds the service collectors on a private registry.
// All methods are safe on a nil receiver.
type Metrics struct {
	registry *prometheus.Registry

	notesTotal       *prometheus.CounterVec // MIDI note events (by kind)
	unmappedTotal    prometheus.Counter     // pressed notes with no mapping
	capturesTotal    prometheus.Counter     // notes captured by learn mode
	dispatchTotal    *prometheus.CounterVec // deliveries (by result)
	dispatchDuration prometheus.Histogram   // delivery latency
	pollErrorsTotal  prometheus.Counter     // failed poll ticks
	deviceConnected  prometheus.Gauge       // 1 while a device is connected
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		notesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "midicue_midi_notes_total",
			Help: "MIDI note events received, by kind",
		}, []string{"kind"}),
		unmappedTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "midicue_unmapped_notes_total",
			Help: "Pressed notes without a mapping",
		}),
		capturesTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "midicue_learn_captures_total",
			Help: "Notes captured in learn mode",
		}),
		dispatchTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "midicue_dispatch_total",
			Help: "Notification deliveries, by result",
		}, []string{"result"}),
		dispatchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "midicue_dispatch_duration_seconds",
			Help:    "Time spent delivering a notification",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		pollErrorsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "midicue_midi_poll_errors_total",
			Help: "MIDI poll ticks that failed",
		}),
		deviceConnected: f.NewGauge(prometheus.GaugeOpts{
			Name: "midicue_midi_device_connected",
			Help: "1 while a MIDI device is connected",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Note(kind string) {
	if m == nil {
		return
	}
	m.notesTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) Unmapped() {
	if m == nil {
		return
	}
	m.unmappedTotal.Inc()
}

func (m *Metrics) Captured() {
	if m == nil {
		return
	}
	m.capturesTotal.Inc()
}

func (m *Metrics) Dispatch(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.dispatchTotal.WithLabelValues(result).Inc()
	if d > 0 {
		m.dispatchDuration.Observe(d.Seconds())
	}
}

func (m *Metrics) PollError() {
	if m == nil {
		return
	}
	m.pollErrorsTotal.Inc()
}

func (m *Metrics) SetConnected(connected bool) {
	if m == nil {
		return
	}
	if connected {
		m.deviceConnected.Set(1)
		return
	}
	m.deviceConnected.Set(0)
}
