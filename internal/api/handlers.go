package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/btouchard/midicue/internal/app"
	"github.com/btouchard/midicue/internal/dispatch"
	"github.com/btouchard/midicue/internal/learn"
	"github.com/btouchard/midicue/internal/mapping"
	"github.com/btouchard/midicue/internal/midi"
	"github.com/btouchard/midicue/internal/notify"
	"github.com/btouchard/midicue/internal/pushover"
)

const maxBodySize = 64 << 10

type handler struct {
	c     Controller
	board SnapshotSource
}

type statusResponse struct {
	Controller app.Status       `json:"controller"`
	Board      *notify.Snapshot `json:"board,omitempty"`
}

type devicesResponse struct {
	Devices  []string `json:"devices"`
	Selected string   `json:"selected"`
}

type connectRequest struct {
	Device string `json:"device"`
}

type captureRequest struct {
	Message  string `json:"message"`
	Priority *int   `json:"priority"`
}

type credentialsRequest struct {
	UserKey  string `json:"user_key"`
	APIToken string `json:"api_token"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *handler) status(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{Controller: h.c.Status()}
	if h.board != nil {
		snap := h.board.Snapshot()
		resp.Board = &snap
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) listDevices(w http.ResponseWriter, r *http.Request) {
	names, err := h.c.ListDevices()
	if err != nil {
		writeError(w, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, devicesResponse{Devices: names, Selected: h.c.Status().Device})
}

func (h *handler) connect(w http.ResponseWriter, r *http.Request) {
	var req connectRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Device == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "device is required"})
		return
	}
	if err := h.c.Connect(req.Device); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.c.Status())
}

func (h *handler) disconnect(w http.ResponseWriter, r *http.Request) {
	h.c.Disconnect()
	writeJSON(w, http.StatusOK, h.c.Status())
}

func (h *handler) listMappings(w http.ResponseWriter, r *http.Request) {
	ms := h.c.ListMappings()
	if ms == nil {
		ms = []mapping.Mapping{}
	}
	writeJSON(w, http.StatusOK, ms)
}

func (h *handler) clearMappings(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("confirm") != "true" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "pass confirm=true to remove every mapping"})
		return
	}
	if err := h.c.ClearMappings(); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) armLearn(w http.ResponseWriter, r *http.Request) {
	h.c.ArmLearnMode()
	writeJSON(w, http.StatusOK, h.c.Status().Learn)
}

func (h *handler) cancelLearn(w http.ResponseWriter, r *http.Request) {
	h.c.CancelLearnMode()
	writeJSON(w, http.StatusOK, h.c.Status().Learn)
}

func (h *handler) capture(w http.ResponseWriter, r *http.Request) {
	var req captureRequest
	if !decode(w, r, &req) {
		return
	}
	priority := 0
	if req.Priority != nil {
		priority = *req.Priority
	}

	m, err := h.c.CaptureMapping(req.Message, priority)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (h *handler) testNotification(w http.ResponseWriter, r *http.Request) {
	if err := h.c.TestNotification(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

func (h *handler) setCredentials(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decode(w, r, &req) {
		return
	}
	if req.UserKey == "" || req.APIToken == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "user_key and api_token are required"})
		return
	}
	if err := h.c.SetCredentials(req.UserKey, req.APIToken); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid request body: %v", err)})
		return false
	}
	return true
}

// statusFor maps controller errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, midi.ErrDeviceUnavailable):
		return http.StatusNotFound
	case errors.Is(err, mapping.ErrInvalidMapping):
		return http.StatusBadRequest
	case errors.Is(err, learn.ErrNoCaptureAvailable):
		return http.StatusConflict
	case errors.Is(err, pushover.ErrMissingCredentials):
		return http.StatusPreconditionFailed
	case errors.Is(err, pushover.ErrDeliveryFailed):
		return http.StatusBadGateway
	case errors.Is(err, dispatch.ErrQueueFull):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		slog.Error("control request failed", "error", err)
	}
	writeJSON(w, code, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("writing response failed", "error", err)
	}
}
