package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/config"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/model"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/observer"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/tenant"
)

const (
	eventPublishTimeout    = 5 * time.Second
	eventPublishMaxElapsed = 20 * time.Second
)

// EventSink delivers an encoded domain event. The JetStream client
// implements it.
type EventSink interface {
	Publish(ctx context.Context, subject string, data []byte, msgID string) error
}

// eventTask is one event waiting in the pool.
type eventTask struct {
	ctx   context.Context // detached from the request
	event model.DomainEvent
}

// IEventWorker defines the interface for the domain event worker pool.
type IEventWorker interface {
	EventPublisher
	Stop()
}

// EventWorker publishes domain events from a worker pool so that request
// handling never waits on the broker.
type EventWorker struct {
	pool          *ants.PoolWithFunc
	sink          EventSink
	subjectPrefix string
	cfg           config.WorkerPoolConfig
	baseLogger    *zap.Logger
}

var _ IEventWorker = (*EventWorker)(nil)

// NewEventWorker creates and initializes the event publisher pool.
func NewEventWorker(cfg config.WorkerPoolConfig, sink EventSink, subjectPrefix string, baseLogger *zap.Logger) (*EventWorker, error) {
	worker := &EventWorker{
		sink:          sink,
		subjectPrefix: subjectPrefix,
		cfg:           cfg,
		baseLogger:    baseLogger.Named("event_worker"),
	}

	pool, err := ants.NewPoolWithFunc(cfg.PoolSize, func(i interface{}) {
		task, ok := i.(eventTask)
		if !ok {
			worker.baseLogger.Error("Invalid task data type received", zap.Any("data", i))
			return
		}
		worker.process(task)
	},
		ants.WithExpiryDuration(cfg.ExpiryTime),
		ants.WithNonblocking(false),
		ants.WithMaxBlockingTasks(cfg.QueueSize),
		ants.WithPanicHandler(func(err interface{}) {
			worker.baseLogger.Error("Panic recovered in event worker", zap.Any("panic_error", err), zap.Stack("stack"))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create event worker pool: %w", err)
	}
	worker.pool = pool
	worker.baseLogger.Info("Event worker pool initialized",
		zap.Int("pool_size", cfg.PoolSize),
		zap.Int("queue_size", cfg.QueueSize),
		zap.Duration("expiry_time", cfg.ExpiryTime),
	)
	return worker, nil
}

// Publish queues the event. It only fails when the pool is closed or its
// queue is full.
func (w *EventWorker) Publish(ctx context.Context, event model.DomainEvent) error {
	observer.IncEventTasksSubmitted(string(event.Type))
	observer.SetEventQueueLength(w.pool.Waiting())

	err := w.pool.Invoke(eventTask{ctx: context.WithoutCancel(ctx), event: event})
	if err == nil {
		return nil
	}
	observer.IncEventTasksProcessed(string(event.Type), "submit_error")
	if errors.Is(err, ants.ErrPoolOverload) {
		return fmt.Errorf("event pool overload: %w", err)
	}
	return fmt.Errorf("failed to queue event %s: %w", event.Type, err)
}

func (w *EventWorker) process(task eventTask) {
	evt := task.event
	log := w.baseLogger.With(
		zap.String("event_id", evt.ID),
		zap.String("event_type", string(evt.Type)),
		zap.String("workspace_id", evt.WorkspaceID),
	)
	if requestID, err := tenant.FromRequestIDContext(task.ctx); err == nil {
		log = log.With(zap.String("request_id", requestID))
	}

	data, err := json.Marshal(evt)
	if err != nil {
		log.Error("Failed to encode domain event", zap.Error(err))
		observer.IncEventTasksProcessed(string(evt.Type), "encode_error")
		return
	}

	subject := evt.Type.Subject(w.subjectPrefix, evt.WorkspaceID)
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = eventPublishMaxElapsed
	err = backoff.RetryNotify(func() error {
		ctx, cancel := context.WithTimeout(task.ctx, eventPublishTimeout)
		defer cancel()
		return w.sink.Publish(ctx, subject, data, evt.ID)
	}, backoff.WithContext(policy, task.ctx), func(err error, d time.Duration) {
		log.Debug("Retrying domain event publication", zap.Error(err), zap.Duration("after", d))
	})
	if err != nil {
		log.Warn("Dropping domain event after retries", zap.String("subject", subject), zap.Error(err))
		observer.IncEventTasksProcessed(string(evt.Type), "failed")
		return
	}
	observer.IncEventTasksProcessed(string(evt.Type), "published")
}

// Stop gracefully shuts down the worker pool, waiting for queued events.
func (w *EventWorker) Stop() {
	if w.pool == nil {
		return
	}
	start := time.Now()
	timeout := w.cfg.MaxBlock + eventPublishMaxElapsed
	if err := w.pool.ReleaseTimeout(timeout); err != nil {
		w.baseLogger.Warn("Event worker pool did not drain in time", zap.Error(err))
	}
	w.baseLogger.Info("Event worker pool released", zap.Duration("duration", time.Since(start)))
}
