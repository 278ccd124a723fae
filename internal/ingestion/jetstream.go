package ingestion

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/apperrors"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/config"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/jetstream"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/model"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/observer"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/pkg/logger"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/pkg/utils"
)

// AckNakAction represents the decision made after processing a message
type AckNakAction int

const (
	ActionAck      AckNakAction = iota // processed, ACK it
	ActionNakDelay                     // retryable failure, redeliver later
	ActionTerm                         // fatal failure or out of attempts, stop redelivery
)

func (a AckNakAction) String() string {
	switch a {
	case ActionAck:
		return "ack"
	case ActionNakDelay:
		return "nak"
	default:
		return "term"
	}
}

const (
	importAckWait       = 30 * time.Second
	importMaxAckPending = 256
	importDupWindow     = 2 * time.Minute
)

// determineAckNakAction decides the fate of a message from the processing
// result and its delivery count. Retry delays grow exponentially from
// nakBaseDelay up to nakMaxDelay.
func determineAckNakAction(processingErr error, numDelivered uint64, maxDeliver int, nakBaseDelay, nakMaxDelay time.Duration) (AckNakAction, time.Duration) {
	if processingErr == nil {
		return ActionAck, 0
	}
	if !apperrors.IsRetryable(processingErr) || (maxDeliver > 0 && numDelivered >= uint64(maxDeliver)) {
		return ActionTerm, 0
	}

	delay := nakBaseDelay
	for i := uint64(1); i < numDelivered && delay < nakMaxDelay; i++ {
		delay *= 2
	}
	if delay > nakMaxDelay {
		delay = nakMaxDelay
	}
	return ActionNakDelay, delay
}

// workspaceFromSubject extracts the workspace token that suffixes an import
// subject.
func workspaceFromSubject(subject string) string {
	prefix := string(model.V1ItemsImport) + "."
	if !strings.HasPrefix(subject, prefix) {
		return ""
	}
	return strings.TrimPrefix(subject, prefix)
}

// ImportConsumer consumes call list item imports from JetStream. One
// consumer serves every workspace; the workspace is taken from the subject.
type ImportConsumer struct {
	client jetstream.ClientInterface
	router RouterInterface
	cfg    config.ConsumerNatsConfig
	ctx    context.Context
	cancel context.CancelFunc
	sub    *nats.Subscription
}

// NewImportConsumer creates the import consumer.
func NewImportConsumer(client jetstream.ClientInterface, router RouterInterface, cfg config.ConsumerNatsConfig) *ImportConsumer {
	ctx, cancel := context.WithCancel(context.Background())
	ctx = logger.WithLogger(ctx, logger.Log.With(zap.String("consumer", cfg.Consumer)))
	return &ImportConsumer{
		client: client,
		router: router,
		cfg:    cfg,
		ctx:    ctx,
		cancel: cancel,
	}
}

func (c *ImportConsumer) streamConfig() *nats.StreamConfig {
	return &nats.StreamConfig{
		Name:       c.cfg.Stream,
		Subjects:   c.cfg.SubjectList,
		Storage:    nats.FileStorage,
		Retention:  nats.WorkQueuePolicy,
		MaxAge:     time.Duration(c.cfg.MaxAge*24) * time.Hour,
		Duplicates: importDupWindow,
	}
}

func (c *ImportConsumer) consumerConfig() *nats.ConsumerConfig {
	return &nats.ConsumerConfig{
		Durable:        c.cfg.Consumer,
		DeliverGroup:   c.cfg.QueueGroup,
		FilterSubjects: c.cfg.SubjectList,
		AckPolicy:      nats.AckExplicitPolicy,
		DeliverSubject: nats.NewInbox(),
		MaxDeliver:     c.cfg.MaxDeliver,
		AckWait:        importAckWait,
		MaxAckPending:  importMaxAckPending,
		ReplayPolicy:   nats.ReplayInstantPolicy,
		DeliverPolicy:  nats.DeliverAllPolicy,
	}
}

// Setup provisions the import stream and its durable push consumer.
func (c *ImportConsumer) Setup() error {
	log := logger.FromContext(c.ctx)
	log.Info("Setting up import consumer", zap.String("stream", c.cfg.Stream))

	if err := c.client.SetupStream(c.ctx, c.streamConfig()); err != nil {
		return fmt.Errorf("failed to setup import stream '%s': %w", c.cfg.Stream, err)
	}
	if err := c.client.SetupConsumer(c.ctx, c.cfg.Stream, c.consumerConfig()); err != nil {
		return fmt.Errorf("failed to setup import consumer '%s' for stream '%s': %w", c.cfg.Consumer, c.cfg.Stream, err)
	}
	log.Info("Import consumer setup complete")
	return nil
}

// Start subscribes to the import stream
func (c *ImportConsumer) Start() error {
	sub, err := c.client.SubscribePush(string(model.V1ItemsImport)+".>", c.cfg.Consumer, c.cfg.QueueGroup, c.cfg.Stream, c.handleMessage)
	if err != nil {
		return fmt.Errorf("failed to subscribe import consumer '%s': %w", c.cfg.Consumer, err)
	}
	c.sub = sub
	logger.FromContext(c.ctx).Info("Import consumer subscribed", zap.String("group", c.cfg.QueueGroup))
	return nil
}

// Stop drains the subscription and cancels in-flight handlers.
func (c *ImportConsumer) Stop() {
	log := logger.FromContext(c.ctx)
	if c.sub != nil {
		if err := c.sub.Drain(); err != nil {
			log.Error("Error draining import subscription", zap.Error(err))
		}
	}
	if c.cancel != nil {
		c.cancel()
	}
	log.Info("Import consumer stopped")
}

// handleMessage routes one delivery and acknowledges it.
func (c *ImportConsumer) handleMessage(msg *nats.Msg) {
	start := utils.Now()
	workspaceID := workspaceFromSubject(msg.Subject)
	log := logger.FromContext(c.ctx).With(zap.String("subject", msg.Subject))

	defer func() {
		if r := recover(); r != nil {
			log.Error("[panic] Recovered from panic in import handler", zap.Any("panic", r), zap.Stack("stack"))
			observer.IncImportMessage(workspaceID, "panic_nak")
			if err := msg.Nak(); err != nil {
				log.Error("Failed to NAK message after panic", zap.Error(err))
			}
		}
	}()

	meta, err := msg.Metadata()
	if err != nil {
		log.Error("Failed to read message metadata", zap.Error(err))
		observer.IncImportMessage(workspaceID, ActionTerm.String())
		if termErr := msg.Term(); termErr != nil {
			log.Error("Failed to TERM message", zap.Error(termErr))
		}
		return
	}

	msgID := msg.Header.Get(nats.MsgIdHdr)
	if msgID == "" {
		msgID = fmt.Sprintf("msg-%d", meta.Sequence.Stream)
	}
	metadata := &model.MessageMetadata{
		StreamSequence:   meta.Sequence.Stream,
		ConsumerSequence: meta.Sequence.Consumer,
		NumDelivered:     meta.NumDelivered,
		NumPending:       meta.NumPending,
		Timestamp:        meta.Timestamp,
		Stream:           meta.Stream,
		Consumer:         meta.Consumer,
		Domain:           meta.Domain,
		MessageID:        msgID,
		MessageSubject:   msg.Subject,
		WorkspaceID:      workspaceID,
	}

	processingErr := c.router.Route(c.ctx, metadata, msg.Data)
	action, delay := determineAckNakAction(processingErr, meta.NumDelivered, c.cfg.MaxDeliver, c.cfg.NakBaseDelay, c.cfg.NakMaxDelay)
	observer.IncImportMessage(workspaceID, action.String())

	log = log.With(
		zap.String("nats_message_id", msgID),
		zap.Uint64("num_delivered", meta.NumDelivered),
		zap.Duration("duration", time.Since(start)),
	)
	switch action {
	case ActionAck:
		log.Debug("Import message processed")
		err = msg.Ack()
	case ActionNakDelay:
		log.Warn("Import failed, scheduling redelivery", zap.Error(processingErr), zap.Duration("nak_delay", delay))
		err = msg.NakWithDelay(delay)
	case ActionTerm:
		log.Error("Import failed permanently", zap.Error(processingErr), zap.Int("max_deliver", c.cfg.MaxDeliver))
		err = msg.Term()
	}
	if err != nil {
		log.Error("Failed to acknowledge import message", zap.String("action", action.String()), zap.Error(err))
	}
}
