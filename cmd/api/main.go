package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/hospital-booking/backend/internal/api/handlers"
	"github.com/zatekoja/hospital-booking/backend/internal/api/routes"
	"github.com/zatekoja/hospital-booking/backend/internal/app"
	"github.com/zatekoja/hospital-booking/backend/internal/application/services"
	"github.com/zatekoja/hospital-booking/backend/internal/infrastructure/observability"
	"github.com/zatekoja/hospital-booking/backend/pkg/config"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Environment, cfg.LogLevel)

	// Set up context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Error().Err(err).Msg("Error shutting down OpenTelemetry")
				}
			}()
			log.Info().Str("endpoint", cfg.OTEL.Endpoint).Msg("OpenTelemetry initialized")
		}
	}

	// Initialize metrics
	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize metrics")
	}

	application, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer func() {
		if err := application.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing backends")
		}
	}()

	if cfg.Booking.SeedOnStart {
		res, err := application.Seeder.Run(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to seed demo data")
		}
		log.Info().
			Int("specialties", res.Specialties).
			Int("accounts", res.Accounts).
			Int("appointments", res.Appointments).
			Msg("Seed finished")
	}

	scheduler, err := services.NewSweepScheduler(application.Reconciler, cfg.Booking.SweepCron, application.Clock.Location())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule overdue sweep")
	}
	scheduler.Start()

	// Set up router
	router := routes.NewRouter(routes.Handlers{
		Auth:        handlers.NewAuthHandler(application.Accounts, application.Sessions),
		Catalog:     handlers.NewCatalogHandler(application.Catalog, application.Directory, application.Specialties, application.Availability),
		Appointment: handlers.NewAppointmentHandler(application.Appointments),
		Booking:     handlers.NewBookingHandler(application.Wizard),
		Dashboard:   handlers.NewDashboardHandler(application.Dashboard),
		Admin:       handlers.NewAdminHandler(application.Accounts, application.Specialties),
		SSE:         handlers.NewSSEHandler(application.EventBus, metrics),
	}, application.Sessions, application.Repos.Accounts, cfg.Server.AllowedOrigins, metrics)

	// Create HTTP server. WriteTimeout stays zero so event streams are not cut off.
	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:              serverAddr,
		Handler:           router.SetupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("addr", serverAddr).Str("storage", cfg.Storage.Driver).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Server shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// request contexts derive from ctx, so this ends open event streams
	cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during server shutdown")
	}
	scheduler.Stop(shutdownCtx)

	log.Info().Msg("Server stopped")
}
