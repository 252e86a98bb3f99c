// Package main is the entry point for the cookplane API server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cookplane/internal/breakdown"
	"cookplane/internal/config"
	"cookplane/internal/logger"
	"cookplane/internal/notify"
	"cookplane/internal/observability"
	"cookplane/internal/room"
	"cookplane/internal/server"
	"cookplane/internal/session"
	"cookplane/internal/store/postgres"
	"cookplane/internal/timer"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

func main() {
	// Parse flags
	migrateFlag := flag.Bool("migrate", false, "Run database migrations before starting")
	flag.Parse()

	// Load Config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logg := logger.New()

	// Setup Database
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer pg.Close()

	// Run migrations if requested
	if *migrateFlag {
		log.Println("Running database migrations...")
		if err := postgres.Migrate(pg.DB()); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		log.Println("Migrations completed successfully")
	}

	// Tracing
	if cfg.OTELEndpoint != "" {
		shutdownTracer, err := observability.InitTracer(ctx, "cookplane-server", cfg.OTELEndpoint)
		if err != nil {
			log.Fatalf("Failed to init tracing: %v", err)
		}
		defer func() {
			if err := shutdownTracer(context.Background()); err != nil {
				log.Printf("Failed to shutdown tracer: %v", err)
			}
		}()
	}

	// Metrics
	metricsHandler, shutdownMetrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatalf("Failed to init metrics: %v", err)
	}
	defer func() {
		if err := shutdownMetrics(context.Background()); err != nil {
			log.Printf("Failed to shutdown metrics: %v", err)
		}
	}()

	// Domain services
	generator := breakdown.NewHTTPGenerator(cfg.GeneratorURL)
	cache := breakdown.NewCache(pg, generator, logger.ForComponent(logg, "breakdown"))
	rooms := room.NewCoordinator(pg, logger.ForComponent(logg, "room"))
	sessions := session.NewManager(pg, cache, rooms, logger.ForComponent(logg, "session"))
	engine := timer.NewEngine(pg, pg, notify.NewLogNotifier(logger.ForComponent(logg, "notify")),
		cfg.TimerTickInterval, logger.ForComponent(logg, "timer"))

	// Rebuild the countdown arena from whatever was live at last shutdown.
	if err := engine.Restore(ctx); err != nil {
		log.Fatalf("Failed to restore timers: %v", err)
	}
	go engine.Run(ctx)
	go rooms.RunSweeper(ctx, cfg.RoomSweepInterval, cfg.RoomInactivityWindow)

	// Observable gauges that query live state only when scraped.
	meter := otel.Meter("cookplane-server")
	_, err = meter.Int64ObservableGauge("cookplane.sessions.active",
		metric.WithDescription("Current number of non-terminal cooking sessions"),
		metric.WithInt64Callback(func(ctx context.Context, obs metric.Int64Observer) error {
			count, err := pg.CountActiveSessions(ctx)
			if err != nil {
				log.Printf("Failed to count active sessions: %v", err)
				return nil // Don't crash metrics scrape on DB error
			}
			obs.Observe(count)
			return nil
		}),
	)
	if err != nil {
		log.Printf("Failed to register active sessions metric: %v", err)
	}
	_, err = meter.Int64ObservableGauge("cookplane.timers.running",
		metric.WithDescription("Current number of running timers"),
		metric.WithInt64Callback(func(ctx context.Context, obs metric.Int64Observer) error {
			obs.Observe(int64(engine.RunningCount()))
			return nil
		}),
	)
	if err != nil {
		log.Printf("Failed to register running timers metric: %v", err)
	}
	_, err = meter.Int64ObservableGauge("cookplane.rooms.participants",
		metric.WithDescription("People currently active in body doubling rooms"),
		metric.WithInt64Callback(func(ctx context.Context, obs metric.Int64Observer) error {
			count, err := pg.CountParticipantsInActiveRooms(ctx)
			if err != nil {
				log.Printf("Failed to count room participants: %v", err)
				return nil
			}
			obs.Observe(count)
			return nil
		}),
	)
	if err != nil {
		log.Printf("Failed to register room participants metric: %v", err)
	}

	// Start Server
	addr := fmt.Sprintf(":%d", cfg.HTTPPort)
	srv := server.New(addr, sessions, engine, rooms, pg, pg, metricsHandler)

	go func() {
		log.Printf("Cookplane server starting on %s", addr)
		if err := srv.Run(ctx); err != nil {
			log.Printf("Server stopped: %v", err)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	cancel() // stop the timer engine and room sweeper
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	log.Println("Server exited properly")
}
