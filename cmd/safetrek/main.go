package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/mr1hm/safetrek/internal/api"
	"github.com/mr1hm/safetrek/internal/config"
	"github.com/mr1hm/safetrek/internal/dashboard"
	"github.com/mr1hm/safetrek/internal/events"
	internalgrpc "github.com/mr1hm/safetrek/internal/grpc"
	"github.com/mr1hm/safetrek/internal/logging"
	"github.com/mr1hm/safetrek/internal/repository"
	"github.com/mr1hm/safetrek/internal/schedule"
	"github.com/mr1hm/safetrek/internal/simulation"
	"github.com/mr1hm/safetrek/internal/store"
	"github.com/mr1hm/safetrek/internal/worker"
)

const loopBufferSize = 256

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("Fatal while loading config: %v", err)
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("Server starting", "host", cfg.Server.Host, "port", cfg.Server.Port)

	db, err := repository.NewSQLiteDB(cfg.DB.Path)
	if err != nil {
		logging.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Incident journal
	journal := repository.NewJournal(db, cfg.Journal.Workers, cfg.Journal.BufferSize)
	journal.Start(ctx)

	// Broadcaster for the SSE event stream
	broadcaster := events.NewBroadcaster()

	// Command loop: every core call and timer callback runs here
	loop := worker.NewLoop(loopBufferSize)
	loop.Start(ctx)

	runner := schedule.NewRunner(ctx, func(ctx context.Context, fn func()) {
		if err := loop.Post(ctx, fn); err != nil {
			slog.Debug("dropped timer callback", "error", err)
		}
	})

	rng := schedule.NewRand(cfg.Simulation.Seed)
	clock := schedule.SystemClock{}
	s := store.Seed(rng, clock.Now(), cfg.Simulation.Tourists, cfg.Simulation.Teams)

	center := dashboard.New(s, rng, clock, runner, dashboardConfig(cfg), dashboard.Observers{broadcaster, journal})
	if err := loop.Do(ctx, center.Start); err != nil {
		logging.Fatalf("Failed to start command center: %v", err)
	}
	slog.Info("command center started",
		"tourists", len(s.Tourists()),
		"teams", len(s.Teams()),
		"alerts", len(s.Alerts()),
	)

	// gRPC health server
	var grpcServer *internalgrpc.Server
	if cfg.GRPC.Enabled {
		grpcServer = internalgrpc.NewServer()
		grpcServer.SetServing(true)
		go func() {
			grpcAddr := fmt.Sprintf(":%d", cfg.GRPC.Port)
			if err := grpcServer.Start(grpcAddr); err != nil {
				logging.Fatalf("gRPC server error: %v", err)
			}
		}()
	}

	// Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.Server.AllowedOrigin},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false, // Set to false when using wildcard origins
	}))
	router.Use(api.RateLimitMiddleware(cfg.Server.RateLimitRPS))

	handler := api.NewHandler(loop, center, db, broadcaster)
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	go func() {
		slog.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down...")

	if grpcServer != nil {
		grpcServer.SetServing(false)
	}
	broadcaster.Close() // Close all streams gracefully

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	runner.Close()
	if err := loop.Do(shutdownCtx, center.Stop); err != nil {
		slog.Error("command center stop error", "error", err)
	}
	loop.Stop()
	journal.Stop()

	if grpcServer != nil {
		grpcServer.Stop()
	}
	cancel()

	slog.Info("shutdown complete")
}

func dashboardConfig(cfg *config.Config) dashboard.Config {
	return dashboard.Config{
		EmergencyTick:     cfg.Emergency.Tick,
		ConfirmationDelay: cfg.Emergency.ConfirmationDelay,
		DemoOpenDelay:     cfg.Emergency.DemoOpenDelay,
		ContactDelay:      cfg.Emergency.ContactDelay,
		Simulation: simulation.Config{
			PositionInterval: cfg.Simulation.PositionInterval,
			DriftInterval:    cfg.Simulation.DriftInterval,
			StreamInterval:   cfg.Simulation.StreamInterval,
			ReconnectDelay:   cfg.Simulation.ReconnectDelay,
		},
	}
}
