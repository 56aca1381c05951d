package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/salonhq/booking-api/internal/config"
	bookingHandler "github.com/salonhq/booking-api/internal/handler/booking"
	healthHandler "github.com/salonhq/booking-api/internal/handler/health"
	vendorHandler "github.com/salonhq/booking-api/internal/handler/vendor"
	"github.com/salonhq/booking-api/internal/middleware"
	"github.com/salonhq/booking-api/internal/repository/postgres"
	"github.com/salonhq/booking-api/internal/router"
	availabilityService "github.com/salonhq/booking-api/internal/service/availability"
	bookingService "github.com/salonhq/booking-api/internal/service/booking"
	eventService "github.com/salonhq/booking-api/internal/service/event"
	scheduleService "github.com/salonhq/booking-api/internal/service/schedule"
	vendorService "github.com/salonhq/booking-api/internal/service/vendor"
	"github.com/salonhq/booking-api/pkg/auth"
	"github.com/salonhq/booking-api/pkg/logger"
	"github.com/salonhq/booking-api/pkg/messaging/redis"
	"github.com/salonhq/booking-api/pkg/metrics"
	"github.com/salonhq/booking-api/pkg/worker"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	m := metrics.NewMetrics("booking_api")

	vendorRepo := postgres.NewVendorRepository(db)
	workerRepo := postgres.NewWorkerRepository(db)
	appointmentRepo := postgres.NewAppointmentRepository(db)
	outboxRepo := postgres.NewOutboxRepository(db)

	eventSvc := eventService.NewService(outboxRepo)
	availabilitySvc := availabilityService.NewService(vendorRepo, workerRepo, appointmentRepo, m, availabilityService.Config{
		MinLeadTime: cfg.Booking.MinLeadTime,
		CacheTTL:    cfg.Booking.CacheTTL,
	})
	bookingSvc := bookingService.NewService(vendorRepo, workerRepo, appointmentRepo, availabilitySvc, eventSvc, m, bookingService.Config{
		MinLeadTime: cfg.Booking.MinLeadTime,
	})
	scheduleSvc := scheduleService.NewService(workerRepo, availabilitySvc)
	vendorSvc := vendorService.NewService(vendorRepo, workerRepo, availabilitySvc)

	tokens := auth.NewTokenService(cfg.JWT.Secret, cfg.JWT.ExpiryHours)
	authMiddleware := middleware.NewAuthMiddleware(tokens)

	healthH := healthHandler.NewHandler(db)
	bookingH := bookingHandler.NewHandler(bookingSvc, availabilitySvc)
	vendorH := vendorHandler.NewHandler(vendorSvc, scheduleSvc)

	r := router.NewRouter(authMiddleware, router.DefaultConfig())
	r.Setup(healthH, bookingH, vendorH)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	processorCtx, stopProcessor := context.WithCancel(context.Background())
	defer stopProcessor()

	zl := log.Logger
	broker, err := redis.NewRedisBroker(redis.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, &zl)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer broker.Close()

	outboxProcessor := worker.NewOutboxProcessor(outboxRepo, broker, worker.OutboxProcessorConfig{
		BatchSize:    cfg.Outbox.BatchSize,
		PollInterval: cfg.Outbox.PollInterval,
		Channel:      cfg.Outbox.Channel,
	}, logger.NewLogger(nil), m)
	go outboxProcessor.Start(processorCtx)

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	stopProcessor()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}
