package handlers

import (
	"context"

	"github.com/btouchard/midicue/internal/app"
	"github.com/btouchard/midicue/internal/mapping"
)

// Controller is the subset of the app controller the tools drive.
type Controller interface {
	ListDevices() ([]string, error)
	Connect(deviceName string) error
	ArmLearnMode()
	CaptureMapping(message string, priority int) (mapping.Mapping, error)
	ListMappings() []mapping.Mapping
	ClearMappings() error
	TestNotification(ctx context.Context) error
	SetCredentials(userKey, apiToken string) error
	Status() app.Status
}
