package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/config"
	jsmock "gitlab.com/timkado/api/daisi-call-campaign-engine/internal/jetstream/mock"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/model"
)

const testSubjectPrefix = "crm.callcampaign"

func testEvent() model.DomainEvent {
	return model.DomainEvent{
		ID:          "evt_1",
		Type:        model.EventCallLogCreated,
		WorkspaceID: testWorkspace,
		ActorID:     alice.MemberID,
		OccurredAt:  time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC),
		Data:        map[string]interface{}{"call_log_id": "log_1"},
	}
}

// setupEventWorkerTest builds a worker without a pool for exercising process.
func setupEventWorkerTest(t *testing.T) (*EventWorker, *jsmock.ClientMock, *observer.ObservedLogs) {
	sink := new(jsmock.ClientMock)
	core, logs := observer.New(zapcore.DebugLevel)
	worker := &EventWorker{
		sink:          sink,
		subjectPrefix: testSubjectPrefix,
		baseLogger:    zap.New(core),
	}
	return worker, sink, logs
}

func TestEventWorker_Process(t *testing.T) {
	worker, sink, _ := setupEventWorkerTest(t)
	evt := testEvent()

	var published []byte
	sink.On("Publish", mock.Anything, "crm.callcampaign.ws_test.call_log.created", mock.Anything, "evt_1").
		Run(func(args mock.Arguments) { published = args.Get(2).([]byte) }).
		Return(nil).Once()

	worker.process(eventTask{ctx: context.Background(), event: evt})

	sink.AssertExpectations(t)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(published, &decoded))
	assert.Equal(t, "call_log.created", decoded["type"])
	assert.Equal(t, testWorkspace, decoded["workspace_id"])
	assert.Equal(t, "log_1", decoded["data"].(map[string]interface{})["call_log_id"])
}

func TestEventWorker_ProcessRetriesTransientFailures(t *testing.T) {
	worker, sink, logs := setupEventWorkerTest(t)

	sink.On("Publish", mock.Anything, mock.Anything, mock.Anything, "evt_1").Return(errors.New("no responders")).Twice()
	sink.On("Publish", mock.Anything, mock.Anything, mock.Anything, "evt_1").Return(nil).Once()

	worker.process(eventTask{ctx: context.Background(), event: testEvent()})

	sink.AssertNumberOfCalls(t, "Publish", 3)
	assert.Equal(t, 2, logs.FilterMessage("Retrying domain event publication").Len())
	assert.Zero(t, logs.FilterMessage("Dropping domain event after retries").Len())
}

func TestEventWorker_ProcessGivesUpWhenContextEnds(t *testing.T) {
	worker, sink, logs := setupEventWorkerTest(t)
	sink.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("stream down"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	worker.process(eventTask{ctx: ctx, event: testEvent()})

	dropped := logs.FilterMessage("Dropping domain event after retries")
	require.Equal(t, 1, dropped.Len())
	fields := dropped.All()[0].ContextMap()
	assert.Equal(t, "evt_1", fields["event_id"])
	assert.Equal(t, testWorkspace, fields["workspace_id"])
}

func TestEventWorker_PublishThroughPool(t *testing.T) {
	sink := new(jsmock.ClientMock)
	delivered := make(chan struct{})
	sink.On("Publish", mock.Anything, "crm.callcampaign.ws_test.call_log.created", mock.Anything, "evt_1").
		Run(func(mock.Arguments) { close(delivered) }).
		Return(nil).Once()

	worker, err := NewEventWorker(config.WorkerPoolConfig{
		PoolSize:   2,
		QueueSize:  10,
		MaxBlock:   time.Second,
		ExpiryTime: time.Second,
	}, sink, testSubjectPrefix, zaptest.NewLogger(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, worker.Publish(ctx, testEvent()))
	cancel() // the request ending must not cancel delivery

	select {
	case <-delivered:
	case <-time.After(2 * time.Second):
		t.Fatal("event was not delivered")
	}
	worker.Stop()
	sink.AssertExpectations(t)
}

func TestEventWorker_PublishAfterStop(t *testing.T) {
	worker, err := NewEventWorker(config.WorkerPoolConfig{PoolSize: 1, QueueSize: 1, ExpiryTime: time.Second}, new(jsmock.ClientMock), testSubjectPrefix, zaptest.NewLogger(t))
	require.NoError(t, err)
	worker.Stop()

	assert.Error(t, worker.Publish(context.Background(), testEvent()))
}
