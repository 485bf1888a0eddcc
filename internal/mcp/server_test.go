package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/btouchard/midicue/internal/app"
	"github.com/btouchard/midicue/internal/mapping"
)

type stubController struct{}

func (stubController) ListDevices() ([]string, error) { return nil, nil }
func (stubController) Connect(string) error { return nil }
func (stubController) ArmLearnMode() {}
func (stubController) CaptureMapping(string, int) (mapping.Mapping, error) {
	return mapping.Mapping{}, nil
}
func (stubController) ListMappings() []mapping.Mapping { return nil }
func (stubController) ClearMappings() error { return nil }
func (stubController) TestNotification(context.Context) error { return nil }
func (stubController) SetCredentials(string, string) error { return nil }
func (stubController) Status() app.Status { return app.Status{} }

func TestNewServer_RegistersAllTools(t *testing.T) {
	t.Parallel()

	s := NewServer(&Deps{Controller: stubController{}, Version: "test"})

	msg := s.HandleMessage(context.Background(), json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	raw, err := json.Marshal(msg)
	require.NoError(t, err)

	var resp struct {
		Result struct {
			Tools []struct {
				Name string `json:"name"`
			} `json:"tools"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(raw, &resp))

	var names []string
	for _, tool := range resp.Result.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{
		"list_devices",
		"connect_device",
		"arm_learn_mode",
		"capture_mapping",
		"list_mappings",
		"clear_mappings",
		"test_notification",
		"set_credentials",
		"get_status",
	}, names)
}
