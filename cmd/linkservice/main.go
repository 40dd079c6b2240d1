package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/link-service/internal/broker"
	"github.com/mmeshcher/link-service/internal/config"
	"github.com/mmeshcher/link-service/internal/events"
	"github.com/mmeshcher/link-service/internal/geoip"
	"github.com/mmeshcher/link-service/internal/handler"
	"github.com/mmeshcher/link-service/internal/repository"
	"github.com/mmeshcher/link-service/internal/service"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	sugar := logger.Sugar()

	sugar.Infow("Starting link service")

	cfg, err := config.ParseFlags()
	if err != nil {
		sugar.Fatalw("Configuration error",
			"error", err.Error())
	}

	sugar.Infow("Configuration loaded",
		"server_address", cfg.ServerAddress,
		"base_url", cfg.BaseURL,
		"nats_url", cfg.NATSUrl,
		"database", cfg.DatabaseDSN != "",
	)

	var store repository.Store
	if cfg.DatabaseDSN != "" {
		pgStore, err := repository.NewPostgresStore(cfg.DatabaseDSN)
		if err != nil {
			sugar.Fatalw("Failed to initialize PostgreSQL store",
				"error", err.Error())
		}
		store = pgStore
	} else {
		logger.Warn("No database DSN configured, using in-memory store")
		store = repository.NewMemoryStore()
	}
	defer store.Close()

	conn, err := broker.Connect(cfg.NATSUrl, logger)
	if err != nil {
		sugar.Fatalw("Failed to connect to broker",
			"error", err.Error())
	}
	defer conn.Close()

	geo := geoip.NewClient(cfg.GeoAPIURL, logger)

	linksService := service.NewLinksService(store, geo, conn.Publisher(), logger)

	consumer := conn.Consumer()
	consumer.Register(events.KindLinkRedirect, linksService.HandleRedirectEvent)
	consumer.Register(events.KindAccountsMerged, linksService.HandleAccountsMerged)
	consumer.Register(events.KindUserDeleted, linksService.HandleUserDeleted)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// stream provisioning retries until the broker is reachable, so a down
	// broker delays consumption but never crashes the process
	go func() {
		if err := conn.EnsureStream(ctx); err != nil {
			logger.Error("Stream provisioning abandoned", zap.Error(err))
			return
		}
		if err := consumer.Start(ctx); err != nil {
			logger.Error("Failed to start consumer", zap.Error(err))
			return
		}
		logger.Info("Event consumer running")
	}()

	h := handler.NewHandler(linksService, logger)

	server := &http.Server{
		Addr:    cfg.ServerAddress,
		Handler: h.SetupRouter(),
	}

	go func() {
		sugar.Infow("Server starting", "address", cfg.ServerAddress)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalw(err.Error(), "event", "start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")
	cancel()
	consumer.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", zap.Error(err))
	}

	logger.Info("Stopped")
}
