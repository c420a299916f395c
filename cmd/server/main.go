package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/banking/activity-graph-service/internal/cache"
	"github.com/banking/activity-graph-service/internal/config"
	"github.com/banking/activity-graph-service/internal/events"
	"github.com/banking/activity-graph-service/internal/pkg/logger"
	"github.com/banking/activity-graph-service/internal/pkg/telemetry"
	"github.com/banking/activity-graph-service/internal/server"
	"github.com/banking/activity-graph-service/internal/service"
	"github.com/banking/activity-graph-service/internal/storage/postgres"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	// 2. Initialize Logger
	log, err := logger.New(cfg.Telemetry.ServiceName, cfg.Telemetry.Environment, false)
	if err != nil {
		os.Stderr.WriteString("failed to initialize logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Sync()

	ctx := context.Background()

	// 3. Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.Init(ctx, cfg.Telemetry)
		if err != nil {
			log.Fatal("failed to initialize telemetry", logger.ErrorField(err))
		}
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(flushCtx); err != nil {
				log.Warn("telemetry shutdown failed", logger.ErrorField(err))
			}
		}()
	}

	// 4. Optional infrastructure
	var opts []service.Option

	if cfg.Kafka.Enabled {
		publisher, err := events.NewPublisher(cfg.Kafka, log)
		if err != nil {
			log.Fatal("failed to connect alert publisher", logger.ErrorField(err))
		}
		defer publisher.Close()
		opts = append(opts, service.WithAlertSink(publisher))
	}

	if cfg.Redis.Enabled {
		riskCache, err := cache.New(cfg.Redis, log)
		if err != nil {
			log.Fatal("failed to connect risk cache", logger.ErrorField(err))
		}
		defer riskCache.Close()
		opts = append(opts, service.WithReportCache(riskCache))
	}

	// 5. Engine
	engine := service.NewEngine(cfg.Detection, cfg.Risk, cfg.Similarity, log, opts...)

	// 6. Snapshot replay
	if cfg.Database.Enabled {
		loader, err := postgres.New(ctx, cfg.Database, log)
		if err != nil {
			log.Fatal("failed to connect snapshot store", logger.ErrorField(err))
		}
		snapshot, err := loader.LoadWithTimeout(ctx, cfg.Database.LoadTimeout)
		if err != nil {
			log.Fatal("failed to load snapshot", logger.ErrorField(err))
		}
		if err := engine.Rebuild(ctx, snapshot.Entities, snapshot.Transactions, snapshot.SARs); err != nil {
			log.Fatal("failed to replay snapshot", logger.ErrorField(err))
		}
		loader.Close()
	}

	// 7. HTTP server with graceful shutdown
	srv := server.New(engine, cfg, log)

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server failed", logger.ErrorField(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("shutdown failed", logger.ErrorField(err))
	}

	log.Info("server exited")
}
