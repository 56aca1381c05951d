package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/salonhq/booking-api/internal/config"
	"github.com/salonhq/booking-api/internal/repository/postgres"
	"github.com/salonhq/booking-api/internal/service/notification"
	"github.com/salonhq/booking-api/pkg/logger"
	"github.com/salonhq/booking-api/pkg/messaging/redis"
	"github.com/salonhq/booking-api/pkg/metrics"
	"github.com/salonhq/booking-api/pkg/worker"
)

// Config is read from the environment; the worker runs headless and
// does not ship a config file.
type Config struct {
	DBHost     string `envconfig:"DB_HOST" default:"localhost"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"postgres"`
	DBPassword string `envconfig:"DB_PASSWORD" default:""`
	DBName     string `envconfig:"DB_NAME" default:"booking"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`

	RedisURL string `envconfig:"REDIS_URL" default:"redis://localhost:6379"`

	BatchSize    int           `envconfig:"OUTBOX_BATCH_SIZE" default:"50"`
	PollInterval time.Duration `envconfig:"OUTBOX_POLL_INTERVAL" default:"2s"`
	Channel      string        `envconfig:"OUTBOX_CHANNEL" default:"booking-events"`

	SMTPHost     string `envconfig:"SMTP_HOST" default:""`
	SMTPPort     int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPUsername string `envconfig:"SMTP_USERNAME" default:""`
	SMTPPassword string `envconfig:"SMTP_PASSWORD" default:""`
	SMTPFrom     string `envconfig:"SMTP_FROM" default:"bookings@example.com"`

	MetricsPort int `envconfig:"METRICS_PORT" default:"9091"`
}

func main() {
	var cfg Config
	if err := envconfig.Process("booking", &cfg); err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	db, err := postgres.NewDB(config.DatabaseConfig{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		Name:     cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	zl := log.Logger
	broker, err := redis.NewRedisBroker(redis.Config{URL: cfg.RedisURL}, &zl)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer broker.Close()

	m := metrics.NewMetrics("booking_worker")
	outboxRepo := postgres.NewOutboxRepository(db)
	userRepo := postgres.NewUserRepository(db)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	processor := worker.NewOutboxProcessor(outboxRepo, broker, worker.OutboxProcessorConfig{
		BatchSize:    cfg.BatchSize,
		PollInterval: cfg.PollInterval,
		Channel:      cfg.Channel,
	}, logger.NewLogger(nil), m)
	go processor.Start(ctx)

	var sender notification.Sender = notification.NopSender{}
	if cfg.SMTPHost != "" {
		sender = notification.NewEmailSender(config.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		})
	}

	messages, err := broker.Subscribe(ctx, cfg.Channel)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to subscribe to booking events")
	}
	consumer := notification.NewConsumer(userRepo, sender)
	go consumer.Run(ctx, messages)

	metricsSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.MetricsPort),
		Handler: promhttp.Handler(),
	}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start metrics server")
		}
	}()

	log.Info().Str("channel", cfg.Channel).Msg("worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down worker...")

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("metrics server forced to shutdown")
	}

	log.Info().Msg("worker exited properly")
}
