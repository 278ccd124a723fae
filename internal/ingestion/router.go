package ingestion

import (
	"context"

	"go.uber.org/zap"

	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/model"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/tenant"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/pkg/logger"
)

// EventHandler defines a function that processes events
type EventHandler func(ctx context.Context, eventType model.EventType, metadata *model.MessageMetadata, rawEvent []byte) error

// Router routes events to the appropriate handler based on event type
type Router struct {
	handlers       map[model.EventType]EventHandler
	defaultHandler EventHandler
}

// NewRouter creates a new event router
func NewRouter() *Router {
	return &Router{
		handlers: make(map[model.EventType]EventHandler),
	}
}

// Register registers a handler for an event type
func (r *Router) Register(eventType model.EventType, handler EventHandler) {
	r.handlers[eventType] = handler
}

// RegisterDefault registers a default handler for unknown event types
func (r *Router) RegisterDefault(handler EventHandler) {
	r.defaultHandler = handler
}

// Route scopes ctx to the message's workspace and dispatches on the subject.
func (r *Router) Route(ctx context.Context, metadata *model.MessageMetadata, rawEvent []byte) error {
	log := logger.FromContext(ctx).With(
		zap.String("subject", metadata.MessageSubject),
		zap.String("nats_message_id", metadata.MessageID),
		zap.String("workspace_id", metadata.WorkspaceID),
	)
	ctx = logger.WithLogger(ctx, log)
	if metadata.WorkspaceID != "" {
		ctx = tenant.WithWorkspaceID(ctx, metadata.WorkspaceID)
	}

	eventType, found := model.MapToBaseEventType(metadata.MessageSubject)
	if !found {
		log.Warn("Could not map subject to a known event type")
	}

	log.Debug("Event received", zap.Int("payload_bytes", len(rawEvent)))

	handler, ok := r.handlers[eventType]
	if !ok {
		if r.defaultHandler != nil {
			return r.defaultHandler(ctx, eventType, metadata, rawEvent)
		}
		log.Error("No handler registered for event type")
		return nil
	}
	return handler(ctx, eventType, metadata, rawEvent)
}
