package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/cache"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/config"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/healthcheck"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/httpapi"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/jetstream"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/observer"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/storage"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/internal/usecase"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/pkg/logger"
	"gitlab.com/timkado/api/daisi-call-campaign-engine/pkg/utils"
)

const shutdownTimeout = 30 * time.Second

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the import consumer and the event publisher",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadRuntime(*configPath)
			if err != nil {
				return err
			}
			defer logger.Sync()
			return serve(cmd.Context(), cfg)
		},
	}
}

// eventsStreamConfig keeps published domain events for downstream consumers.
func eventsStreamConfig(cfg config.EventsNatsConfig) *nats.StreamConfig {
	return &nats.StreamConfig{
		Name:      cfg.Stream,
		Subjects:  []string{cfg.SubjectPrefix + ".>"},
		Storage:   nats.FileStorage,
		Retention: nats.LimitsPolicy,
		MaxAge:    time.Duration(cfg.MaxAge*24) * time.Hour,
	}
}

func serve(parent context.Context, cfg *config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	observer.InitMetrics(cfg.Metrics.Enabled)

	logger.Log.Info("Starting call campaign engine",
		zap.String("environment", cfg.Environment),
		zap.String("database_driver", cfg.Database.Driver),
		zap.String("nats_url", cfg.NATS.URL),
	)

	repo, err := storage.NewRepository(ctx, cfg)
	if err != nil {
		return err
	}

	healthServer := healthcheck.NewServer(strconv.Itoa(cfg.Metrics.Port), logger.Log)
	healthServer.AddChecker("database", repo.Ping)

	var (
		jsClient    *jetstream.Client
		events      usecase.EventPublisher
		eventWorker *usecase.EventWorker
		stats       usecase.StatsCache
		processor   *usecase.Processor
		closers     []func()
	)

	needsNATS := cfg.NATS.Events.Enabled || cfg.NATS.Import.Enabled
	if needsNATS {
		jsClient, err = initJetStreamClient(cfg.NATS.URL)
		if err != nil {
			return err
		}
		closers = append(closers, jsClient.Close)
		healthServer.AddChecker("nats", func(context.Context) error { return jsClient.Ping() })
	}

	if cfg.NATS.Events.Enabled {
		if err := jsClient.SetupStream(ctx, eventsStreamConfig(cfg.NATS.Events)); err != nil {
			return fmt.Errorf("failed to setup events stream: %w", err)
		}
		eventWorker, err = usecase.NewEventWorker(cfg.WorkerPools.Events, jsClient, cfg.NATS.Events.SubjectPrefix, logger.Log)
		if err != nil {
			return err
		}
		events = eventWorker
	}

	if cfg.Redis.Addr != "" {
		rdb, err := cache.Connect(ctx, cfg.Redis.Addr)
		if err != nil {
			return err
		}
		closers = append(closers, func() { _ = rdb.Close() })
		healthServer.AddChecker("redis", func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
		stats = cache.NewStatsCache(rdb, cfg.Redis.StatsTTL)
	}

	service := usecase.NewService(repo, nil, events, stats)

	if cfg.NATS.Import.Enabled {
		processor = usecase.NewProcessor(service, jsClient, cfg)
		if err := processor.Setup(); err != nil {
			return fmt.Errorf("failed to set up processor: %w", err)
		}
	}

	verifier, err := httpapi.NewTokenVerifier(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.JWTAudience)
	if err != nil {
		return err
	}
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	apiServer := &http.Server{
		Addr: ":" + strconv.Itoa(cfg.Server.Port),
		Handler: httpapi.NewRouter(httpapi.RouterDeps{
			Service:        service,
			Verifier:       verifier,
			Members:        repo.Members(),
			Logger:         logger.Log,
			RequestTimeout: cfg.Server.RequestTimeout,
		}),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	if cfg.Metrics.Enabled {
		healthServer.RegisterMetricsHandler(promhttp.Handler())
	}
	healthServer.Start()

	if processor != nil {
		if err := processor.Start(); err != nil {
			return fmt.Errorf("failed to start processor: %w", err)
		}
	}

	utils.SafeGo(func() {
		logger.Log.Info("API listening", zap.String("addr", apiServer.Addr))
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Error("API server failed, initiating shutdown", zap.Error(err))
			stop()
		}
	}, nil)

	<-ctx.Done()
	logger.Log.Info("Received termination signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	logger.Log.Info("Starting graceful shutdown", zap.Duration("timeout", shutdownTimeout))

	// Stop intake first, then drain the event pool, then close connections.
	var wg sync.WaitGroup
	stopComponent := func(name string, fn func()) {
		wg.Add(1)
		utils.SafeGo(func() {
			defer wg.Done()
			start := time.Now()
			fn()
			logger.Log.Info("[shutdown] Stopped "+name, zap.Duration("duration", time.Since(start)))
		}, func(r interface{}, stack []byte) {
			// wg.Done already ran in the deferred call above.
			logger.Log.Error("[shutdown] Panic while stopping "+name, zap.Any("panic", r), zap.ByteString("stack", stack))
		})
	}

	stopComponent("API server", func() {
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			logger.Log.Error("[shutdown] Error stopping API server", zap.Error(err))
		}
	})
	if processor != nil {
		stopComponent("import processor", processor.Stop)
	}
	stopComponent("health check server", func() {
		if err := healthServer.Stop(shutdownCtx); err != nil {
			logger.Log.Error("[shutdown] Error stopping health check server", zap.Error(err))
		}
	})

	done := make(chan struct{})
	go func() {
		wg.Wait()
		if eventWorker != nil {
			eventWorker.Stop()
		}
		for _, closeFn := range closers {
			closeFn()
		}
		if err := repo.Close(shutdownCtx); err != nil {
			logger.Log.Error("[shutdown] Failed to close repository", zap.Error(err))
		}
		close(done)
	}()

	select {
	case <-done:
		logger.Log.Info("[shutdown] All components stopped gracefully")
	case <-shutdownCtx.Done():
		logger.Log.Warn("[shutdown] Graceful shutdown timed out, forcing exit")
	}
	return nil
}
