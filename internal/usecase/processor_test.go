package usecase

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/config"
	ingestionmock "gitlab.com/timkado/api/daisi-call-campaign-engine/internal/ingestion/mock"
	jsmock "gitlab.com/timkado/api/daisi-call-campaign-engine/internal/jetstream/mock"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/model"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/storage"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/pkg/logger"
)

func processorConfig() *config.Config {
	var cfg config.Config
	cfg.NATS.Import = config.ConsumerNatsConfig{
		Stream:      "calllist_import",
		Consumer:    "calllist-import-consumer",
		QueueGroup:  "calllist-import",
		SubjectList: []string{"v1.calllist.items.import.>"},
		MaxDeliver:  5,
	}
	return &cfg
}

func newTestProcessor(t *testing.T) (*Processor, *ingestionmock.RouterMock, *ingestionmock.ConsumerMock) {
	original := logger.Log
	logger.Log = zaptest.NewLogger(t)
	t.Cleanup(func() { logger.Log = original })

	svc := NewService(storage.NewMemoryRepo(), nil, nil, nil)
	p := NewProcessor(svc, new(jsmock.ClientMock), processorConfig())
	router := new(ingestionmock.RouterMock)
	consumer := new(ingestionmock.ConsumerMock)
	p.eventRouter = router
	p.consumer = consumer
	return p, router, consumer
}

func TestNewProcessor(t *testing.T) {
	svc := NewService(storage.NewMemoryRepo(), nil, nil, nil)
	p := NewProcessor(svc, new(jsmock.ClientMock), processorConfig())

	assert.Same(t, svc, p.service)
	assert.NotNil(t, p.consumer)
	assert.NotNil(t, p.GetRouter())
	assert.NotNil(t, p.importHandler)
}

func TestProcessor_Setup(t *testing.T) {
	p, router, consumer := newTestProcessor(t)
	router.On("Register", model.V1ItemsImport, mock.Anything).Return().Once()
	router.On("RegisterDefault", mock.Anything).Return().Once()
	consumer.On("Setup").Return(nil).Once()

	require.NoError(t, p.Setup())
	router.AssertExpectations(t)
	consumer.AssertExpectations(t)
}

func TestProcessor_SetupFailure(t *testing.T) {
	p, router, consumer := newTestProcessor(t)
	router.On("Register", mock.Anything, mock.Anything).Return()
	router.On("RegisterDefault", mock.Anything).Return()
	consumer.On("Setup").Return(errors.New("stream unavailable")).Once()

	err := p.Setup()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stream unavailable")
}

func TestProcessor_StartStop(t *testing.T) {
	p, _, consumer := newTestProcessor(t)
	consumer.On("Start").Return(nil).Once()
	consumer.On("Stop").Return().Once()

	require.NoError(t, p.Start())
	p.Stop()
	consumer.AssertExpectations(t)
}
