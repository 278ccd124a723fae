package ingestion

import (
	"context"

	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/model"
)

// RouterInterface defines the interface for an event router
type RouterInterface interface {
	// Register registers a handler for an event type
	Register(eventType model.EventType, handler EventHandler)

	// RegisterDefault registers a default handler for unknown event types
	RegisterDefault(handler EventHandler)

	// Route routes an event to the appropriate handler
	Route(ctx context.Context, metadata *model.MessageMetadata, rawEvent []byte) error
}

// ConsumerInterface defines the basic methods for a NATS consumer
type ConsumerInterface interface {
	// Setup provisions the stream and the durable consumer
	Setup() error

	// Start subscribes and begins delivery
	Start() error

	// Stop drains the subscription
	Stop()
}

var _ RouterInterface = (*Router)(nil)

var _ ConsumerInterface = (*ImportConsumer)(nil)
