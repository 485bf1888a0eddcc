package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/btouchard/midicue/internal/app"
	"github.com/btouchard/midicue/internal/learn"
	"github.com/btouchard/midicue/internal/mapping"
	"github.com/btouchard/midicue/internal/midi"
	"github.com/btouchard/midicue/internal/notify"
	"github.com/btouchard/midicue/internal/pushover"
)

const testToken = "secret-token"

type fakeController struct {
	devices    []string
	connectErr error
	device     string
	learnState learn.State

	captureErr error
	gotMessage string
	gotPrio    int

	mappings []mapping.Mapping
	cleared  bool

	testErr error

	userKey  string
	apiToken string
}

func (f *fakeController) ListDevices() ([]string, error) { return f.devices, nil }

func (f *fakeController) Connect(name string) error {
	if f.connectErr != nil {
		return f.connectErr
	}
	f.device = name
	return nil
}

func (f *fakeController) Disconnect()      { f.device = "" }
func (f *fakeController) ArmLearnMode()    { f.learnState = learn.State{Phase: learn.PhaseArmed} }
func (f *fakeController) CancelLearnMode() { f.learnState = learn.State{Phase: learn.PhaseIdle} }

func (f *fakeController) CaptureMapping(message string, priority int) (mapping.Mapping, error) {
	f.gotMessage, f.gotPrio = message, priority
	if f.captureErr != nil {
		return mapping.Mapping{}, f.captureErr
	}
	return mapping.Mapping{Note: 72, Message: message, Priority: mapping.ClampPriority(priority)}, nil
}

func (f *fakeController) ListMappings() []mapping.Mapping { return f.mappings }

func (f *fakeController) ClearMappings() error {
	f.cleared = true
	return nil
}

func (f *fakeController) TestNotification(_ context.Context) error { return f.testErr }

func (f *fakeController) SetCredentials(userKey, apiToken string) error {
	f.userKey, f.apiToken = userKey, apiToken
	return nil
}

func (f *fakeController) Status() app.Status {
	return app.Status{Device: f.device, Connected: f.device != "", Learn: f.learnState}
}

func newTestRouter(c Controller) http.Handler {
	board := notify.NewBoard()
	board.Notify(notify.Event{Type: notify.EventStatus, Body: "Connected to IAC Bus 1"})
	return NewRouter(Deps{
		Controller: c,
		Board:      board,
		Token:      testToken,
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("midicue_notes_total 0\n"))
		}),
	})
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+testToken)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouter_Health_NoAuth(t *testing.T) {
	t.Parallel()

	h := newTestRouter(&fakeController{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestRouter_Metrics_NoAuth(t *testing.T) {
	t.Parallel()

	h := newTestRouter(&fakeController{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "midicue_notes_total")
}

func TestRouter_API_RequiresToken(t *testing.T) {
	t.Parallel()

	h := newTestRouter(&fakeController{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_Status_IncludesBoard(t *testing.T) {
	t.Parallel()

	h := newTestRouter(&fakeController{device: "IAC Bus 1"})
	rec := do(t, h, http.MethodGet, "/api/status", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Controller.Connected)
	require.NotNil(t, resp.Board)
	assert.Equal(t, "Connected to IAC Bus 1", resp.Board.Status)
}

func TestRouter_Devices_ListsAndConnects(t *testing.T) {
	t.Parallel()

	c := &fakeController{devices: []string{"Keystation 49", "IAC Bus 1"}}
	h := newTestRouter(c)

	rec := do(t, h, http.MethodGet, "/api/devices", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"devices":["Keystation 49","IAC Bus 1"],"selected":""}`, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/api/devices/connect", `{"device":"IAC Bus 1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "IAC Bus 1", c.device)

	rec = do(t, h, http.MethodPost, "/api/devices/disconnect", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, c.device)
}

func TestRouter_Connect_WhenUnavailable_Returns404(t *testing.T) {
	t.Parallel()

	c := &fakeController{connectErr: fmt.Errorf("%w: %q not found", midi.ErrDeviceUnavailable, "Ghost")}
	rec := do(t, newTestRouter(c), http.MethodPost, "/api/devices/connect", `{"device":"Ghost"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "not found")
}

func TestRouter_Connect_RejectsBadBody(t *testing.T) {
	t.Parallel()

	h := newTestRouter(&fakeController{})
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/api/devices/connect", `{`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, "/api/devices/connect", `{}`).Code)
}

func TestRouter_Learn_ArmAndCancel(t *testing.T) {
	t.Parallel()

	c := &fakeController{}
	h := newTestRouter(c)

	rec := do(t, h, http.MethodPost, "/api/learn", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"armed"`)

	rec = do(t, h, http.MethodDelete, "/api/learn", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"idle"`)
}

func TestRouter_Capture_CreatesMapping(t *testing.T) {
	t.Parallel()

	c := &fakeController{}
	rec := do(t, newTestRouter(c), http.MethodPost, "/api/learn/capture", `{"message":"Drink Water","priority":1}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"note":72,"message":"Drink Water","priority":1}`, rec.Body.String())
	assert.Equal(t, 1, c.gotPrio)
}

func TestRouter_Capture_DefaultsPriority(t *testing.T) {
	t.Parallel()

	c := &fakeController{gotPrio: 99}
	rec := do(t, newTestRouter(c), http.MethodPost, "/api/learn/capture", `{"message":"Go"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 0, c.gotPrio)
}

func TestRouter_ErrorStatusCodes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"no capture", learn.ErrNoCaptureAvailable, http.StatusConflict},
		{"invalid", fmt.Errorf("%w: message is empty", mapping.ErrInvalidMapping), http.StatusBadRequest},
		{"other", fmt.Errorf("disk full"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := &fakeController{captureErr: tt.err}
			rec := do(t, newTestRouter(c), http.MethodPost, "/api/learn/capture", `{"message":"x"}`)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestRouter_Mappings_ListAndClear(t *testing.T) {
	t.Parallel()

	c := &fakeController{mappings: []mapping.Mapping{
		{Note: 64, Message: "Wrap Up", Priority: 1},
		{Note: 60, Message: "Speed Up", Priority: 0},
	}}
	h := newTestRouter(c)

	rec := do(t, h, http.MethodGet, "/api/mappings", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"note":64,"message":"Wrap Up","priority":1},{"note":60,"message":"Speed Up","priority":0}]`, rec.Body.String())

	rec = do(t, h, http.MethodDelete, "/api/mappings", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, c.cleared)

	rec = do(t, h, http.MethodDelete, "/api/mappings?confirm=true", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, c.cleared)
}

func TestRouter_Mappings_EmptyIsArray(t *testing.T) {
	t.Parallel()

	rec := do(t, newTestRouter(&fakeController{}), http.MethodGet, "/api/mappings", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestRouter_TestNotification_MapsErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"sent", nil, http.StatusOK},
		{"missing credentials", pushover.ErrMissingCredentials, http.StatusPreconditionFailed},
		{"rejected", &pushover.DeliveryError{Status: 400, Body: "bad user"}, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := &fakeController{testErr: tt.err}
			rec := do(t, newTestRouter(c), http.MethodPost, "/api/test", "")
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestRouter_Credentials(t *testing.T) {
	t.Parallel()

	c := &fakeController{}
	h := newTestRouter(c)

	rec := do(t, h, http.MethodPut, "/api/credentials", `{"user_key":"u1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPut, "/api/credentials", `{"user_key":"u1","api_token":"a2"}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "u1", c.userKey)
	assert.Equal(t, "a2", c.apiToken)
}
