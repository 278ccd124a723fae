package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/apperrors"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/config"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/ingestion"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/ingestion/handler"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/jetstream"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/model"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/pkg/logger"
)

// Processor wires the item import pipeline: consumer, router and handler.
type Processor struct {
	service       *Service
	jsClient      jetstream.ClientInterface
	consumer      ingestion.ConsumerInterface
	eventRouter   ingestion.RouterInterface
	importHandler handler.EventHandlerInterface
}

// NewProcessor creates the import processor on top of service.
func NewProcessor(service *Service, jsClient jetstream.ClientInterface, cfg *config.Config) *Processor {
	router := ingestion.NewRouter()
	return &Processor{
		service:       service,
		jsClient:      jsClient,
		consumer:      ingestion.NewImportConsumer(jsClient, router, cfg.NATS.Import),
		eventRouter:   router,
		importHandler: handler.NewImportHandler(service),
	}
}

// GetRouter returns the processor's event router.
func (p *Processor) GetRouter() ingestion.RouterInterface {
	return p.eventRouter
}

// Setup registers handlers and provisions the consumer.
func (p *Processor) Setup() error {
	p.eventRouter.Register(model.V1ItemsImport, p.importHandler.HandleEvent)
	p.eventRouter.RegisterDefault(func(ctx context.Context, eventType model.EventType, metadata *model.MessageMetadata, rawEvent []byte) error {
		logger.FromContext(ctx).Warn("Unhandled event type", zap.String("subject", metadata.MessageSubject))
		return apperrors.NewFatal(apperrors.ErrBadRequest, "unhandled subject %s", metadata.MessageSubject)
	})

	if err := p.consumer.Setup(); err != nil {
		return fmt.Errorf("failed to setup import consumer: %w", err)
	}
	logger.Log.Info("Processor setup complete")
	return nil
}

// Start begins consuming imports.
func (p *Processor) Start() error {
	if err := p.consumer.Start(); err != nil {
		return fmt.Errorf("failed to start import consumer: %w", err)
	}
	logger.Log.Info("Import consumer started")
	return nil
}

// Stop drains the import consumer.
func (p *Processor) Stop() {
	p.consumer.Stop()
	logger.Log.Info("Import consumer stopped")
}
