package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jogardn/orders-client/internal/config"
	"github.com/jogardn/orders-client/internal/events"
	"github.com/jogardn/orders-client/internal/metrics"
	"github.com/jogardn/orders-client/internal/mockapi"
	"github.com/jogardn/orders-client/internal/websocket"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to a config file (env, yaml or json)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	logger, logCloser, err := config.NewLogger(cfg.Logger)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to create logger")
	}
	defer logCloser.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if flag.Arg(0) == "migrate" {
		if err := runMigrate(ctx, cfg, logger, flag.Args()[1:], os.Stdout); err != nil {
			logger.WithError(err).Fatal("Migration failed")
		}
		return
	}

	var store mockapi.Store = mockapi.NewMemoryStore()
	if cfg.Mock.DatabaseURL != "" {
		pg, err := mockapi.NewPostgresStore(ctx, cfg.Mock.DatabaseURL, cfg.Mock.DBConnAttempts, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to open Postgres store")
		}
		store = pg
	}
	defer store.Close()

	var publisher events.Publisher
	if cfg.Kafka.Brokers != "" {
		producer, err := connectProducer(cfg.Kafka.Brokers, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to create Kafka producer after retries")
		}
		defer producer.Close()
		publisher = producer
	}

	hub := websocket.NewHub(logger)
	go hub.Run(ctx)

	registry := metrics.New()
	server := mockapi.NewServer(mockapi.Options{
		Store:     store,
		Publisher: publisher,
		Hub:       hub,
		Metrics:   registry,
		APIKey:    cfg.Mock.APIKey,
		Logger:    logger,
	})

	if cfg.Mock.SeedOrders > 0 {
		if err := mockapi.Seed(ctx, server, cfg.Mock.SeedOrders, nil); err != nil {
			logger.WithError(err).Fatal("Failed to seed orders")
		}
	}

	port := strconv.Itoa(cfg.Mock.Port)
	srv := &http.Server{
		Addr:        ":" + port,
		Handler:     server.Handler(),
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		logger.WithFields(logrus.Fields{
			"port":     port,
			"postgres": cfg.Mock.DatabaseURL != "",
			"kafka":    cfg.Kafka.Brokers != "",
		}).Info("Starting orders mock API")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Failed to start HTTP server")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down orders mock API...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Mock.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("HTTP server forced to shutdown")
	}
	cancel()

	logger.Info("Orders mock API gracefully stopped")
}

func connectProducer(brokers string, logger *logrus.Logger) (*events.KafkaProducer, error) {
	var (
		producer *events.KafkaProducer
		err      error
	)
	for i := 0; i < 10; i++ {
		producer, err = events.NewKafkaProducer(brokers, logger)
		if err == nil {
			logger.Info("Successfully connected to Kafka")
			return producer, nil
		}
		logger.WithError(err).WithField("attempt", i+1).Warn("Failed to connect to Kafka, retrying...")
		time.Sleep(5 * time.Second)
	}
	return nil, err
}
