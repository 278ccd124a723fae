package model

import (
	"strings"
	"time"
)

// EventType represents different types of events
type EventType string

// Domain events published after successful writes.
const (
	EventCallLogCreated    EventType = "call_log.created"
	EventFollowupCreated   EventType = "followup.created"
	EventFollowupCompleted EventType = "followup.completed"
	EventItemsAssigned     EventType = "items.assigned"
)

// Inbound subjects consumed by the import pipeline.
const (
	V1ItemsImport EventType = "v1.calllist.items.import"
)

// MapToBaseEventType maps an inbound subject, optionally suffixed with a
// workspace id, back to a known EventType.
func MapToBaseEventType(input string) (EventType, bool) {
	if EventType(input) == V1ItemsImport {
		return V1ItemsImport, true
	}

	lastDotIndex := strings.LastIndex(input, ".")
	if lastDotIndex <= 0 {
		return "", false
	}

	if EventType(input[:lastDotIndex]) == V1ItemsImport {
		return V1ItemsImport, true
	}
	return "", false
}

// Subject builds the publish subject for a workspace scoped event.
func (e EventType) Subject(prefix, workspaceID string) string {
	return prefix + "." + workspaceID + "." + string(e)
}

// DomainEvent is the envelope published for every domain event.
type DomainEvent struct {
	ID          string      `json:"id"`
	Type        EventType   `json:"type"`
	WorkspaceID string      `json:"workspace_id"`
	ActorID     string      `json:"actor_id,omitempty"`
	OccurredAt  time.Time   `json:"occurred_at"`
	Data        interface{} `json:"data"`
}

// ImportItemsPayload is the body of an import pipeline message.
type ImportItemsPayload struct {
	WorkspaceID string         `json:"workspace_id" validate:"required"`
	CallListID  string         `json:"call_list_id" validate:"required"`
	Items       []NewItemInput `json:"items" validate:"required,min=1,dive"`
}

// MessageMetadata is the JetStream delivery metadata of a consumed message.
type MessageMetadata struct {
	ConsumerSequence uint64
	StreamSequence   uint64
	NumDelivered     uint64
	NumPending       uint64
	Timestamp        time.Time
	Stream           string
	Consumer         string
	Domain           string
	MessageID        string
	MessageSubject   string
	WorkspaceID      string
}
