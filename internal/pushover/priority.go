package pushover

// Priority is the Pushover message priority, -2 through 2.
type Priority int

const (
	PriorityLowest    Priority = -2 // no notification
	PriorityLow       Priority = -1 // no sound
	PriorityNormal    Priority = 0
	PriorityHigh      Priority = 1 // bypasses quiet hours
	PriorityEmergency Priority = 2 // repeats until acknowledged
)

// Emergency delivery contract: the service re-sends every EmergencyRetry
// seconds until acknowledged or EmergencyExpire seconds have passed.
const (
	EmergencyRetry  = 30
	EmergencyExpire = 3600
)

// Label returns a human readable name, or "unknown" outside the valid range.
func (p Priority) Label() string {
	switch p {
	case PriorityLowest:
		return "lowest"
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	case PriorityEmergency:
		return "emergency"
	default:
		return "unknown"
	}
}
