package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"tally/voteboard/internal/config"
	"tally/voteboard/internal/event"
	"tally/voteboard/internal/handler"
	"tally/voteboard/internal/metrics"
	"tally/voteboard/internal/repository"
	"tally/voteboard/internal/service"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file (optional)")
	flag.Parse()

	// 1. Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// 2. Initialize logger
	logger, err := newLogger(cfg.Log)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()

	// 3. Open the vote store
	store, err := openStore(cfg, logger)
	if err != nil {
		logger.Fatal("failed to open vote store",
			zap.String("backend", cfg.Store.Backend), zap.Error(err))
	}

	// 4. Migrate and seed; no traffic is accepted if this fails
	initCtx, cancelInit := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdownTimeout)
	err = store.Initialize(initCtx)
	cancelInit()
	if err != nil {
		store.Close()
		logger.Fatal("failed to initialize vote store", zap.Error(err))
	}
	logger.Info("vote store ready", zap.String("backend", cfg.Store.Backend))

	// 5. Event publisher (Kafka or no-op)
	var publisher event.VotePublisher = event.NewNoopPublisher()
	if cfg.Events.Kafka.Enabled {
		kp, err := event.NewKafkaPublisher(cfg.Events.Kafka.Brokers, cfg.Events.Kafka.Topic, logger)
		if err != nil {
			logger.Fatal("failed to create kafka publisher", zap.Error(err))
		}
		publisher = kp
		logger.Info("publishing vote events",
			zap.Strings("brokers", cfg.Events.Kafka.Brokers), zap.String("topic", cfg.Events.Kafka.Topic))
	}

	// 6. Metrics
	var voteMetrics *metrics.VoteMetrics
	var metricsHandler http.Handler
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		voteMetrics = metrics.New(reg, "voteboard")
		metricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}

	// 7. Service and handlers
	voteService := service.NewVoteService(store, publisher, voteMetrics, logger)
	voteHandler := handler.NewVoteHandler(voteService, logger)

	// 8. Setup router
	router := handler.SetupRouter(cfg, logger, voteHandler, metricsHandler)

	// 9. Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 10. Start server with graceful shutdown
	go func() {
		logger.Info("server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// 11. Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	// 12. Flush events, then close the store so the last write is on disk
	if err := publisher.Close(); err != nil {
		logger.Error("failed to close event publisher", zap.Error(err))
	}
	if err := store.Close(); err != nil {
		logger.Error("failed to close vote store", zap.Error(err))
	} else {
		logger.Info("vote store closed")
	}
	logger.Info("server exited gracefully")
}

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zcfg zap.Config
	if cfg.Format == "json" {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
	}
	if cfg.Level != "" {
		level, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, err
		}
		zcfg.Level = zap.NewAtomicLevelAt(level)
	}
	return zcfg.Build()
}

func openStore(cfg *config.Config, logger *zap.Logger) (repository.VoteStore, error) {
	switch cfg.Store.Backend {
	case config.BackendSQLite:
		db, err := config.NewSQLiteDB(cfg.Database.SQLite)
		if err != nil {
			return nil, err
		}
		return repository.NewGormVoteStore(db, logger), nil
	case config.BackendPostgres:
		db, err := config.NewPostgresDB(cfg.Database.Postgres)
		if err != nil {
			return nil, err
		}
		return repository.NewGormVoteStore(db, logger), nil
	case config.BackendRedis:
		client, err := config.NewRedisClient(cfg.Database.Redis)
		if err != nil {
			return nil, err
		}
		return repository.NewRedisVoteStore(client, cfg.Database.Redis.Key), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}
