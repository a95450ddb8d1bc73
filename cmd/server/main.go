package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nekogravitycat/plot-booking-backend/internal/app"
	"github.com/nekogravitycat/plot-booking-backend/internal/availability"
	"github.com/nekogravitycat/plot-booking-backend/internal/config"
	"github.com/nekogravitycat/plot-booking-backend/internal/db"
	"github.com/nekogravitycat/plot-booking-backend/internal/events"
	"github.com/nekogravitycat/plot-booking-backend/internal/expiry"
	"github.com/nekogravitycat/plot-booking-backend/internal/notify"
	"github.com/nekogravitycat/plot-booking-backend/internal/pkg/storage"
)

const jwtTTL = 24 * time.Hour

func main() {
	// For receiving Ctrl+C / SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load config
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	setupLogger(cfg)

	// Connect DB
	pool, err := db.NewPool(ctx, cfg.DBDSN)
	if err != nil {
		slog.Error("failed to connect to db", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		slog.Error("failed to apply schema", "error", err)
		os.Exit(1)
	}

	// Proof of payment storage
	store, err := storage.NewLocalStorage(cfg.StoragePath)
	if err != nil {
		slog.Error("failed to init storage", "path", cfg.StoragePath, "error", err)
		os.Exit(1)
	}

	appCfg := app.Config{
		IsProduction:  cfg.IsProduction,
		ProdOrigins:   cfg.ProdOrigins,
		DBPool:        pool,
		JWTSecret:     cfg.JWTSecret,
		JWTTTL:        jwtTTL,
		Storage:       store,
		MaxProofBytes: cfg.MaxProofBytes,
		Notifier:      newNotifier(cfg),
		NotifyTimeout: cfg.NotifyTimeout,
		CacheTTL:      cfg.AvailabilityCacheTTL,
		PendingTTL:    cfg.PendingTTL,
	}

	// Optional availability cache
	if cfg.RedisAddr != "" {
		if rdb := availability.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB); rdb != nil {
			defer rdb.Close()
			appCfg.Cache = availability.NewRedisCache(rdb)
		}
	}

	// Optional event broker
	var broker *events.AMQPPublisher
	if cfg.RabbitMQURL != "" {
		broker = events.NewAMQPPublisher(cfg.RabbitMQURL)
		appCfg.Broker = broker
	}

	container := app.NewContainer(appCfg)

	// Pending expiry
	if container.Sweeper != nil {
		scheduler, err := expiry.Schedule(ctx, cfg.ExpirySchedule, container.Sweeper)
		if err != nil {
			slog.Error("failed to schedule pending expiry", "error", err)
			os.Exit(1)
		}
		defer func() { <-scheduler.Stop().Done() }()
		slog.Info("pending expiry enabled", "ttl", cfg.PendingTTL, "schedule", cfg.ExpirySchedule)
	}

	// Use http.Server for graceful shutdown
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           container.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Run server in separate goroutine
	go func() {
		slog.Info("server running", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			stop()
		}
	}()

	// Wait for Ctrl+C
	<-ctx.Done()
	slog.Info("shutdown signal received")

	// Create a shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown HTTP server
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Warn("server forced to shutdown", "error", err)
	}

	// Let in-flight event deliveries finish before closing the broker
	container.Events.Wait()
	if broker != nil {
		if err := broker.Close(); err != nil {
			slog.Warn("close event broker", "error", err)
		}
	}

	slog.Info("server exited gracefully")
}

func setupLogger(cfg *config.Config) {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	var handler slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if cfg.IsProduction {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// newNotifier sends email through SendGrid, with SMS through Twilio as a
// best-effort extra. Without SendGrid (development only) messages are logged.
func newNotifier(cfg *config.Config) notify.Notifier {
	if !cfg.SendGridEnabled() {
		slog.Warn("SendGrid not configured, confirmations are logged instead of sent")
		return notify.LogNotifier{}
	}
	fanout := notify.Fanout{
		Required: notify.NewSendGridNotifier(cfg.SendGridAPIKey, cfg.SendGridFromEmail, cfg.SendGridFromName),
	}
	if cfg.TwilioEnabled() {
		fanout.BestEffort = append(fanout.BestEffort, notify.NewTwilioNotifier(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber))
	}
	return fanout
}
