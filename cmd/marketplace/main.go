package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/infinitydotxyz/nftcompany-backend-sub000/internal/api"
	"github.com/infinitydotxyz/nftcompany-backend-sub000/internal/config"
	"github.com/infinitydotxyz/nftcompany-backend-sub000/internal/core"
	"github.com/infinitydotxyz/nftcompany-backend-sub000/internal/events"
	"github.com/infinitydotxyz/nftcompany-backend-sub000/internal/store"
	"github.com/infinitydotxyz/nftcompany-backend-sub000/pkg/logger"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("loading configuration: %v", err)
	}

	zapLogger, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("creating logger: %v", err)
	}
	defer zapLogger.Sync()

	if err := run(cfg, zapLogger); err != nil {
		zapLogger.Fatal("service failed", zap.Error(err))
	}
}

func run(cfg *config.Config, zapLogger *zap.Logger) error {
	st, err := openStore(cfg, zapLogger)
	if err != nil {
		return fmt.Errorf("opening order store: %w", err)
	}
	defer st.Close()

	var pub events.Publisher = events.NoopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		kp := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, zapLogger)
		defer kp.Close()
		pub = kp
	}

	loadCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
	book, err := core.NewOrderBook(loadCtx, st, pub, zapLogger)
	cancel()
	if err != nil {
		return fmt.Errorf("building order book: %w", err)
	}

	registry := prometheus.NewRegistry()
	scheduler := core.NewScheduler(book, cfg.Sweep.Interval, zapLogger, registry)
	scheduler.Start()
	defer scheduler.Stop()

	server := api.NewServer(zapLogger, book, registry)
	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: server.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		zapLogger.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		zapLogger.Info("shutting down", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

func openStore(cfg *config.Config, zapLogger *zap.Logger) (store.Store, error) {
	switch cfg.Storage.Driver {
	case "badger":
		return store.NewBadgerStore(cfg.Storage.Path, zapLogger)
	case "sqlite", "postgres":
		return store.NewGormStore(cfg.Storage.Driver, cfg.Storage.DSN)
	case "memory":
		return store.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}
