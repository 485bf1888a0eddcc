package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/btouchard/midicue/internal/app"
	"github.com/btouchard/midicue/internal/mapping"
	authmw "github.com/btouchard/midicue/internal/mcp/middleware"
	"github.com/btouchard/midicue/internal/notify"
)

// Controller is the set of operations the control API exposes.
type Controller interface {
	ListDevices() ([]string, error)
	Connect(deviceName string) error
	Disconnect()
	ArmLearnMode()
	CancelLearnMode()
	CaptureMapping(message string, priority int) (mapping.Mapping, error)
	ListMappings() []mapping.Mapping
	ClearMappings() error
	TestNotification(ctx context.Context) error
	SetCredentials(userKey, apiToken string) error
	Status() app.Status
}

// SnapshotSource provides the latest UI state.
type SnapshotSource interface {
	Snapshot() notify.Snapshot
}

// Deps holds what the router serves.
type Deps struct {
	Controller Controller
	Board      SnapshotSource
	Token      string

	// Metrics and MCP are mounted when non-nil.
	Metrics http.Handler
	MCP     http.Handler
}

// NewRouter builds the HTTP surface. /health and /metrics are open, /api and
// /mcp require the control token.
func NewRouter(d Deps) http.Handler {
	h := &handler{c: d.Controller, board: d.Board}

	r := chi.NewRouter()
	r.Use(authmw.SecurityHeaders)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(authmw.BearerAuth(d.Token))

		r.Route("/api", func(r chi.Router) {
			r.Get("/status", h.status)

			r.Get("/devices", h.listDevices)
			r.Post("/devices/connect", h.connect)
			r.Post("/devices/disconnect", h.disconnect)

			r.Get("/mappings", h.listMappings)
			r.Delete("/mappings", h.clearMappings)

			r.Post("/learn", h.armLearn)
			r.Delete("/learn", h.cancelLearn)
			r.Post("/learn/capture", h.capture)

			r.Post("/test", h.testNotification)
			r.Put("/credentials", h.setCredentials)
		})

		if d.MCP != nil {
			r.Handle("/mcp", d.MCP)
		}
	})

	return r
}
