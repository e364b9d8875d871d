package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/spf13/viper"

	"profile-service/internal/api"
	"profile-service/internal/config"
	"profile-service/internal/domain/customer"
	"profile-service/internal/event"
	"profile-service/internal/infrastructure/logging"
	"profile-service/internal/infrastructure/memstore"
)

func main() {
	cfg, logger := initializeApp()

	pingBroker(cfg, logger)

	publisher, customerService := initializeServices(cfg, logger)
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Error("Failed to close Kafka writer", "error", err)
		}
	}()

	consumer := startConsumer(cfg, customerService, logger)

	router := api.SetupRouter(customerService, cfg, logger)

	srv, serverErrors, shutdownChan := startServer(cfg, router, logger)
	handleShutdown(srv, consumer, shutdownChan, serverErrors, logger)
}

func initializeApp() (*config.Config, *slog.Logger) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg.Logger)
	slog.SetDefault(logger)
	logger.Info("Application starting...", "config_source", viper.ConfigFileUsed())

	return cfg, logger
}

// pingBroker verifies the primary broker is reachable before serving. A
// broker that cannot be dialed is a fatal startup error; publish connections
// themselves are still established lazily.
func pingBroker(cfg *config.Config, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("Checking Kafka broker connectivity...", "brokers", cfg.Kafka.Brokers)
	conn, err := kafka.DialContext(ctx, "tcp", cfg.Kafka.Brokers[0])
	if err != nil {
		logger.Error("Failed to reach Kafka broker", "broker", cfg.Kafka.Brokers[0], "error", err)
		os.Exit(1)
	}
	conn.Close()
}

func initializeServices(cfg *config.Config, logger *slog.Logger) (*event.KafkaPublisher, customer.CustomerService) {
	logger.Info("Initializing application components...")

	repo := memstore.NewCustomerRepository(logger)
	publisher := event.NewKafkaPublisher(cfg.Kafka.Brokers, event.Topics{
		ProfileUpdated: cfg.Kafka.Topics.ProfileUpdated,
		SyncReply:      cfg.Kafka.Topics.SyncReply,
		Notification:   cfg.Kafka.Topics.Notification,
	}, logger)

	var notifier customer.Notifier
	if cfg.Notifier.Enabled {
		logger.Info("Secondary MQTT notifier enabled", "broker", cfg.Notifier.BrokerURL, "topic", cfg.Notifier.Topic)
		notifier = event.NewMQTTNotifier(
			cfg.Notifier.BrokerURL,
			cfg.Notifier.Topic,
			cfg.Notifier.ConnectTimeout,
			cfg.Notifier.CompleteTimeout,
			logger,
		)
	}

	customerService := customer.NewCustomerService(repo, publisher, notifier, logger)
	return publisher, customerService
}

func startConsumer(cfg *config.Config, svc customer.CustomerService, logger *slog.Logger) *event.SyncConsumer {
	if !cfg.Consumer.Enabled {
		logger.Info("Preference sync consumer disabled")
		return nil
	}

	consumer, err := event.NewSyncConsumer(
		cfg.Kafka.Brokers,
		cfg.Kafka.Topics.SyncRequest,
		cfg.Kafka.ConsumerGroup,
		svc.HandleSyncRequest,
		logger,
	)
	if err != nil {
		logger.Error("Failed to initialize preference sync consumer", "error", err)
		os.Exit(1)
	}

	consumer.Start(context.Background())
	logger.Info("Preference sync consumer started", "topic", cfg.Kafka.Topics.SyncRequest, "group", cfg.Kafka.ConsumerGroup)
	return consumer
}

func startServer(cfg *config.Config, router http.Handler, logger *slog.Logger) (*http.Server, <-chan error, <-chan os.Signal) {
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info("Setting up HTTP server...", "addr", addr)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info(fmt.Sprintf("Server listening on %s", addr))
		err := srv.ListenAndServe()
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", "error", err)
			serverErrors <- err
		} else {
			logger.Info("Server closed gracefully.")
			serverErrors <- nil
		}
	}()
	return srv, serverErrors, shutdownChan
}

func handleShutdown(srv *http.Server, consumer *event.SyncConsumer, shutdownChan <-chan os.Signal, serverErrors <-chan error, logger *slog.Logger) {
	logger.Info("Shutdown handler started. Waiting for signal or server error...")

	var triggerReason string
	select {
	case sig := <-shutdownChan:
		triggerReason = "signal: " + sig.String()
		logger.Info("Shutdown signal received.", "signal", sig.String())
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server exited unexpectedly before signal", "error", err)
			os.Exit(1)
		}
		triggerReason = "server exited"
		logger.Info("Server goroutine finished before signal.", "error", err)
	}

	logger.Info("Starting graceful shutdown...", "trigger", triggerReason)

	if consumer != nil {
		logger.Info("Stopping preference sync consumer...")
		consumer.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	logger.Info("Shutting down HTTP server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server graceful shutdown failed", "error", err)
		if err := srv.Close(); err != nil {
			logger.Error("HTTP server forced close failed", "error", err)
		}
	} else {
		logger.Info("HTTP server gracefully stopped.")
	}

	logger.Info("Waiting for server goroutine to confirm exit...")
	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("Server goroutine exited with unexpected error after shutdown", "error", err)
		} else {
			logger.Info("Server goroutine confirmed exit.")
		}
	case <-time.After(5 * time.Second):
		logger.Warn("Timed out waiting for server goroutine confirmation.")
	}

	logger.Info("Application shutdown process complete.")
}
