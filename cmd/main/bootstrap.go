package main

import (
	"fmt"

	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/config"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/jetstream"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/pkg/logger"
)

// loadRuntime loads configuration and initializes the global logger.
func loadRuntime(configPath string) (*config.Config, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := logger.Initialize(cfg.LogLevel); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, nil
}

// initJetStreamClient connects to NATS.
func initJetStreamClient(url string) (*jetstream.Client, error) {
	client, err := jetstream.NewClient(url)
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream client: %w", err)
	}
	return client, nil
}
