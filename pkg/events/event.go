package events

import "time"

// Event defines the contract for all session events crossing process boundaries.
type Event interface {
	// EventType returns the subject suffix for this event (e.g. "session.reset").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

const (
	SessionResetType = "session.reset"

	// OriginKey names the publishing core instance, so it can ignore its own events.
	OriginKey = "origin"
)

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// NewSessionReset announces that the shared credentials were cleared by origin.
func NewSessionReset(origin string, at time.Time) BaseEvent {
	return BaseEvent{
		Type:       SessionResetType,
		Data:       map[string]interface{}{OriginKey: origin},
		OccurredAt: at,
	}
}

// Origin returns the publishing instance id, or "" when absent.
func Origin(e Event) string {
	origin, _ := e.Payload()[OriginKey].(string)
	return origin
}
