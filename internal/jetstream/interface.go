package jetstream

import (
	"context"

	"github.com/nats-io/nats.go"
)

// ClientInterface is the slice of JetStream the engine uses: stream and
// consumer provisioning, a push subscription for imports and publication of
// domain events.
type ClientInterface interface {
	// SetupStream creates the stream or updates it when its core settings drift.
	SetupStream(ctx context.Context, streamConfig *nats.StreamConfig) error

	// SetupConsumer creates the durable consumer on streamName, recreating it
	// when its core settings drift.
	SetupConsumer(ctx context.Context, streamName string, consumerConfig *nats.ConsumerConfig) error

	// SubscribePush binds a queue subscription to an existing push consumer.
	SubscribePush(subject, consumer, group, stream string, handler nats.MsgHandler) (*nats.Subscription, error)

	// Publish publishes to subject and waits for the stream ack. msgID, when
	// set, is used for JetStream de-duplication.
	Publish(ctx context.Context, subject string, data []byte, msgID string) error

	// Ping reports whether the connection is usable.
	Ping() error

	// Close drains and closes the NATS connection
	Close()
}
