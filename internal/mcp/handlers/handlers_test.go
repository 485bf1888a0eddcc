package handlers

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/btouchard/midicue/internal/app"
	"github.com/btouchard/midicue/internal/learn"
	"github.com/btouchard/midicue/internal/mapping"
	"github.com/btouchard/midicue/internal/pushover"
)

type fakeController struct {
	devices    []string
	devicesErr error
	connectErr error
	connected  string
	armed      bool

	captureErr error
	captured   mapping.Mapping
	gotMessage string
	gotPrio    int

	mappings []mapping.Mapping
	cleared  bool

	testErr  error
	tested   bool
	userKey  string
	apiToken string

	status app.Status
}

func (f *fakeController) ListDevices() ([]string, error) { return f.devices, f.devicesErr }

func (f *fakeController) Connect(name string) error {
	if f.connectErr != nil {
		return f.connectErr
	}
	f.connected = name
	return nil
}

func (f *fakeController) ArmLearnMode() { f.armed = true }

func (f *fakeController) CaptureMapping(message string, priority int) (mapping.Mapping, error) {
	f.gotMessage, f.gotPrio = message, priority
	if f.captureErr != nil {
		return mapping.Mapping{}, f.captureErr
	}
	return f.captured, nil
}

func (f *fakeController) ListMappings() []mapping.Mapping { return f.mappings }

func (f *fakeController) ClearMappings() error {
	f.cleared = true
	return nil
}

func (f *fakeController) TestNotification(_ context.Context) error {
	f.tested = true
	return f.testErr
}

func (f *fakeController) SetCredentials(userKey, apiToken string) error {
	f.userKey, f.apiToken = userKey, apiToken
	return nil
}

func (f *fakeController) Status() app.Status { return f.status }

func makeReq(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	return result.Content[0].(mcp.TextContent).Text
}

func TestListDevices_MarksSelectedDevice(t *testing.T) {
	t.Parallel()

	c := &fakeController{
		devices: []string{"Keystation 49", "IAC Bus 1"},
		status:  app.Status{Device: "IAC Bus 1", Connected: true},
	}
	result, err := ListDevices(c)(context.Background(), makeReq(map[string]any{}))
	require.NoError(t, err)

	text := resultText(t, result)
	assert.Contains(t, text, "2 found")
	assert.Contains(t, text, "✔ IAC Bus 1")
	assert.Contains(t, text, "  Keystation 49")
}

func TestListDevices_WhenNone_SaysSo(t *testing.T) {
	t.Parallel()

	result, err := ListDevices(&fakeController{})(context.Background(), makeReq(nil))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), "No MIDI input devices")
}

func TestListDevices_WhenDriverFails_ReturnsToolError(t *testing.T) {
	t.Parallel()

	c := &fakeController{devicesErr: errors.New("no backend")}
	result, err := ListDevices(c)(context.Background(), makeReq(nil))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "no backend")
}

func TestConnectDevice_RequiresDevice(t *testing.T) {
	t.Parallel()

	result, err := ConnectDevice(&fakeController{})(context.Background(), makeReq(map[string]any{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "device is required")
}

func TestConnectDevice_Connects(t *testing.T) {
	t.Parallel()

	c := &fakeController{}
	result, err := ConnectDevice(c)(context.Background(), makeReq(map[string]any{"device": "IAC Bus 1"}))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Equal(t, "IAC Bus 1", c.connected)
}

func TestConnectDevice_WhenUnavailable_ReportsError(t *testing.T) {
	t.Parallel()

	c := &fakeController{connectErr: errors.New("device unavailable: Ghost")}
	result, err := ConnectDevice(c)(context.Background(), makeReq(map[string]any{"device": "Ghost"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "Connection error")
}

func TestArmLearnMode_ArmsController(t *testing.T) {
	t.Parallel()

	c := &fakeController{}
	result, err := ArmLearnMode(c)(context.Background(), makeReq(nil))
	require.NoError(t, err)
	assert.True(t, c.armed)
	assert.Contains(t, resultText(t, result), "capture_mapping")
}

func TestCaptureMapping_PassesPriorityFromNumber(t *testing.T) {
	t.Parallel()

	c := &fakeController{captured: mapping.Mapping{Note: 72, Message: "Drink Water", Priority: 1}}
	result, err := CaptureMapping(c)(context.Background(), makeReq(map[string]any{
		"message":  "Drink Water",
		"priority": float64(1),
	}))
	require.NoError(t, err)

	assert.Equal(t, "Drink Water", c.gotMessage)
	assert.Equal(t, 1, c.gotPrio)
	text := resultText(t, result)
	assert.Contains(t, text, "Note 72")
	assert.Contains(t, text, "high")
}

func TestCaptureMapping_DefaultsPriorityToNormal(t *testing.T) {
	t.Parallel()

	c := &fakeController{captured: mapping.Mapping{Note: 60, Message: "Go", Priority: 0}}
	_, err := CaptureMapping(c)(context.Background(), makeReq(map[string]any{"message": "Go"}))
	require.NoError(t, err)
	assert.Equal(t, 0, c.gotPrio)
}

func TestCaptureMapping_ClampsHugePriorityToNearestBound(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   float64
		want int
	}{
		{"huge positive", 1e20, mapping.MaxPriority},
		{"huge negative", -1e20, mapping.MinPriority},
		{"slightly high", 7, mapping.MaxPriority},
		{"in range", -1, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := &fakeController{}
			_, err := CaptureMapping(c)(context.Background(), makeReq(map[string]any{
				"message":  "Go",
				"priority": tt.in,
			}))
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.gotPrio)
		})
	}
}

func TestCaptureMapping_WhenNothingCaptured_ExplainsNextStep(t *testing.T) {
	t.Parallel()

	c := &fakeController{captureErr: learn.ErrNoCaptureAvailable}
	result, err := CaptureMapping(c)(context.Background(), makeReq(map[string]any{"message": "Go"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "arm_learn_mode")
}

func TestCaptureMapping_RequiresMessage(t *testing.T) {
	t.Parallel()

	c := &fakeController{}
	result, err := CaptureMapping(c)(context.Background(), makeReq(map[string]any{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Empty(t, c.gotMessage)
}

func TestListMappings_ShowsEachMappingInOrder(t *testing.T) {
	t.Parallel()

	c := &fakeController{mappings: []mapping.Mapping{
		{Note: 64, Message: "Wrap Up", Priority: 1},
		{Note: 60, Message: "Speed Up", Priority: 0},
	}}
	result, err := ListMappings(c)(context.Background(), makeReq(nil))
	require.NoError(t, err)

	text := resultText(t, result)
	assert.Contains(t, text, "Mappings (2)")
	assert.Less(t, strings.Index(text, "Note 64"), strings.Index(text, "Note 60"))
}

func TestClearMappings_RequiresConfirm(t *testing.T) {
	t.Parallel()

	c := &fakeController{}
	result, err := ClearMappings(c)(context.Background(), makeReq(map[string]any{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.False(t, c.cleared)

	result, err = ClearMappings(c)(context.Background(), makeReq(map[string]any{"confirm": true}))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.True(t, c.cleared)
}

func TestTestNotification_ReportsOutcome(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		err     error
		isError bool
		want    string
	}{
		{"sent", nil, false, "sent"},
		{"missing credentials", pushover.ErrMissingCredentials, true, "set_credentials"},
		{"rejected", &pushover.DeliveryError{Status: 400, Body: "user key is invalid"}, true, "HTTP 400"},
		{"transport", errors.New("dial tcp: timeout"), true, "Sending failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := &fakeController{testErr: tt.err}
			result, err := TestNotification(c)(context.Background(), makeReq(nil))
			require.NoError(t, err)
			assert.True(t, c.tested)
			assert.Equal(t, tt.isError, result.IsError)
			assert.Contains(t, resultText(t, result), tt.want)
		})
	}
}

func TestSetCredentials_StoresBoth(t *testing.T) {
	t.Parallel()

	c := &fakeController{}
	result, err := SetCredentials(c)(context.Background(), makeReq(map[string]any{
		"user_key":  "u123",
		"api_token": "a456",
	}))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Equal(t, "u123", c.userKey)
	assert.Equal(t, "a456", c.apiToken)
}

func TestSetCredentials_RequiresBoth(t *testing.T) {
	t.Parallel()

	c := &fakeController{}
	result, err := SetCredentials(c)(context.Background(), makeReq(map[string]any{"user_key": "u123"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Empty(t, c.userKey)
}

func TestGetStatus_DescribesState(t *testing.T) {
	t.Parallel()

	note := 64
	c := &fakeController{status: app.Status{
		Device:         "IAC Bus 1",
		Connected:      true,
		Learn:          learn.State{Phase: learn.PhaseCaptured, Note: 64},
		LastNote:       &note,
		Mappings:       3,
		CredentialsSet: false,
	}}
	result, err := GetStatus(c)(context.Background(), makeReq(nil))
	require.NoError(t, err)

	text := resultText(t, result)
	assert.Contains(t, text, "Connected to IAC Bus 1")
	assert.Contains(t, text, "captured(64)")
	assert.Contains(t, text, "Last note: 64")
	assert.Contains(t, text, "Mappings: 3")
	assert.Contains(t, text, "not configured")
}
