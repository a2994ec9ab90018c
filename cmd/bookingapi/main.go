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

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/holidayhomes/bookingapi/internal/adapter/email"
	"github.com/holidayhomes/bookingapi/internal/adapter/gcal"
	bkhttp "github.com/holidayhomes/bookingapi/internal/adapter/http"
	bkotel "github.com/holidayhomes/bookingapi/internal/adapter/otel"
	"github.com/holidayhomes/bookingapi/internal/adapter/postgres"
	"github.com/holidayhomes/bookingapi/internal/adapter/ristretto"
	"github.com/holidayhomes/bookingapi/internal/config"
	"github.com/holidayhomes/bookingapi/internal/logger"
	"github.com/holidayhomes/bookingapi/internal/middleware"
	"github.com/holidayhomes/bookingapi/internal/resilience"
	"github.com/holidayhomes/bookingapi/internal/service"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	if len(os.Args) > 1 && os.Args[1] == "admin" {
		if err := runAdmin(os.Args[2:]); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		return
	}

	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, closeLog := logger.New(cfg.Logging)
	defer closeLog.Close()
	slog.SetDefault(log)

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"tenants", cfg.TenantSlugs(),
		"default_tenant", cfg.DefaultTenant,
	)

	ctx := context.Background()

	// --- Observability ---
	shutdownOtel, err := bkotel.Init(ctx, cfg.OTEL)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOtel(sctx); err != nil {
			slog.Warn("otel shutdown", "error", err)
		}
	}()
	metrics, err := bkotel.NewMetrics()
	if err != nil {
		return fmt.Errorf("otel metrics: %w", err)
	}

	// --- Infrastructure ---

	// PostgreSQL
	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	slog.Info("postgres connected")

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	slog.Info("migrations applied")

	store := postgres.NewStore(pool)

	// Tenants and their external clients
	tenants, err := service.NewTenantRegistry(cfg)
	if err != nil {
		return fmt.Errorf("tenants: %w", err)
	}
	calendars, err := gcal.NewRegistry(ctx, tenants.All(), cfg.Breaker)
	if err != nil {
		return fmt.Errorf("calendar clients: %w", err)
	}
	smtpBreaker := resilience.NewBreaker("smtp", cfg.Breaker.MaxFailures, cfg.Breaker.Timeout,
		resilience.WithStateChange(func(name string, from, to resilience.State) {
			slog.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		}),
	)
	mailer := email.NewMailer(cfg.Email, smtpBreaker)

	idemCache, err := ristretto.New(cfg.Idempotency.MaxCostBytes)
	if err != nil {
		return fmt.Errorf("idempotency cache: %w", err)
	}
	defer idemCache.Close()

	// --- Services ---
	authSvc := service.NewAuthService(store, cfg.Auth, tenants)
	authSvc.SetMetrics(metrics)
	pricingSvc := service.NewPricingService(store, cfg.Pricing)
	pricingSvc.SetMetrics(metrics)
	calendarSvc := service.NewCalendarService(tenants, calendars)
	calendarSvc.SetMetrics(metrics)
	notifySvc := service.NewNotificationService(tenants, mailer)
	notifySvc.SetMetrics(metrics)

	scheduler, err := service.NewScheduler(cfg.Pricing.CleanupSchedule, pricingSvc, tenants)
	if err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}
	scheduler.Start()
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		scheduler.Stop(sctx)
	}()

	limiter := middleware.NewRateLimiter(cfg.Rate.RequestsPerSecond, cfg.Rate.Burst)
	stopLimiterCleanup := limiter.StartCleanup(cfg.Rate.CleanupInterval, cfg.Rate.MaxIdleTime)
	defer stopLimiterCleanup()

	// --- HTTP ---
	handlers := &bkhttp.Handlers{
		Auth:          authSvc,
		Pricing:       pricingSvc,
		Calendar:      calendarSvc,
		Notifications: notifySvc,
		DB:            store,
	}

	r := bkhttp.NewRouter(handlers,
		bkhttp.RouteConfig{
			ServiceKey:     cfg.Auth.ServiceKey,
			IdempotencyTTL: cfg.Idempotency.TTL,
			Cache:          idemCache,
			Limiter:        limiter,
		},
		middleware.RequestID,
		chimw.RealIP,
		bkhttp.Logger,
		chimw.Recoverer,
		bkhttp.SecurityHeaders,
		bkhttp.CORS(cfg.Server.CORSOrigins),
		bkotel.HTTPMiddleware(cfg.OTEL.ServiceName),
		chimw.Timeout(cfg.Server.RequestTimeout),
	)

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-done:
	case err := <-serveErr:
		return fmt.Errorf("server: %w", err)
	}
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
