package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/lmittmann/tint"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/artisanhubapp/artisanhub/internal/auth"
	"github.com/artisanhubapp/artisanhub/internal/cache"
	"github.com/artisanhubapp/artisanhub/internal/config"
	"github.com/artisanhubapp/artisanhub/internal/db"
	"github.com/artisanhubapp/artisanhub/internal/email"
	"github.com/artisanhubapp/artisanhub/internal/handlers"
	"github.com/artisanhubapp/artisanhub/internal/lifecycle"
	"github.com/artisanhubapp/artisanhub/internal/logging"
	"github.com/artisanhubapp/artisanhub/internal/payments"
	"github.com/artisanhubapp/artisanhub/internal/policy"
	"github.com/artisanhubapp/artisanhub/internal/services"
)

type App struct {
	Config        *config.Config
	Logger        *slog.Logger
	DB            *pgxpool.Pool
	CacheProvider cache.Provider
	Handlers      *handlers.Handlers

	orderService   *services.OrderService
	bookingService *services.BookingService
	logFile        *os.File
	sentryInited   bool
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	sentryInited := false
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			Environment:      cfg.Environment,
			EnableTracing:    true,
			TracesSampleRate: 1.0,
		}); err != nil {
			return nil, fmt.Errorf("failed to initialize sentry: %w", err)
		}
		sentryInited = true
	}

	logger, logFile, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	fail := func(err error) (*App, error) {
		if logFile != nil {
			_ = logFile.Close()
		}
		return nil, err
	}

	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	if err := db.Migrate(cfg.MigrationsPath, cfg.DatabaseURL); err != nil {
		return fail(fmt.Errorf("failed to run migrations: %w", err))
	}

	database, err := db.Connect(startupCtx, cfg.DatabaseURL)
	if err != nil {
		return fail(err)
	}

	cacheProvider, err := cache.NewProvider(cache.Config{
		Provider:              cfg.CacheProvider,
		RedisConnectionString: cfg.RedisConnectionString,
	})
	if err != nil {
		database.Close()
		return fail(fmt.Errorf("failed to initialize cache provider: %w", err))
	}

	pol, err := policy.Load(cfg.PolicyFile)
	if err != nil {
		closeCacheProvider(logger, cacheProvider)
		database.Close()
		return fail(fmt.Errorf("failed to load policy: %w", err))
	}

	emailProvider, err := email.NewProvider(email.Config{
		Provider: cfg.EmailProvider,
		APIKey:   cfg.ResendAPIKey,
		From:     cfg.EmailFrom,
	})
	if err != nil {
		closeCacheProvider(logger, cacheProvider)
		database.Close()
		return fail(fmt.Errorf("failed to initialize email provider: %w", err))
	}
	if err := emailProvider.ValidateAPIKey(startupCtx); err != nil {
		closeCacheProvider(logger, cacheProvider)
		database.Close()
		return fail(fmt.Errorf("failed to validate email API key: %w", err))
	}

	var reverser payments.Reverser
	if cfg.StripeSecretKey != "" {
		reverser = payments.NewStripeReverser(cfg.StripeSecretKey)
	} else {
		reverser = payments.NoopReverser{}
		logger.Warn("no Stripe key configured, refund approvals will not reverse payments")
	}

	engine := lifecycle.NewEngine(pol.OrderWaiver())
	refundPolicy := pol.RefundPolicy()

	orderStore := db.NewOrderStore(database)
	bookingStore := db.NewBookingStore(database)

	orderService := services.NewOrderService(
		orderStore,
		engine,
		refundPolicy,
		reverser,
		emailProvider,
		cacheProvider,
		logger.With("component", "order_service"),
	)
	bookingService := services.NewBookingService(
		bookingStore,
		engine,
		refundPolicy,
		reverser,
		emailProvider,
		cacheProvider,
		logger.With("component", "booking_service"),
	)
	dashboardService := services.NewDashboardService(
		orderStore,
		bookingStore,
		cacheProvider,
		time.Duration(cfg.MetricsCacheTTLSecs)*time.Second,
		logger.With("component", "dashboard_service"),
	)

	h, err := handlers.New(handlers.Dependencies{
		Config:           cfg,
		DB:               database,
		Verifier:         auth.NewVerifier(cfg.AuthSigningKey),
		OrderService:     orderService,
		BookingService:   bookingService,
		DashboardService: dashboardService,
		Logger:           logger,
	})
	if err != nil {
		closeCacheProvider(logger, cacheProvider)
		database.Close()
		return fail(fmt.Errorf("failed to initialize handlers: %w", err))
	}

	return &App{
		Config:         cfg,
		Logger:         logger,
		DB:             database,
		CacheProvider:  cacheProvider,
		Handlers:       h,
		orderService:   orderService,
		bookingService: bookingService,
		logFile:        logFile,
		sentryInited:   sentryInited,
	}, nil
}

func (a *App) Close() {
	if a == nil {
		return
	}
	drainCtx, drainCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer drainCancel()
	if a.orderService != nil {
		if err := a.orderService.Drain(drainCtx); err != nil {
			a.Logger.Warn("order notifications still in flight at shutdown", "error", err)
		}
	}
	if a.bookingService != nil {
		if err := a.bookingService.Drain(drainCtx); err != nil {
			a.Logger.Warn("booking notifications still in flight at shutdown", "error", err)
		}
	}
	if a.CacheProvider != nil {
		closeCacheProvider(a.Logger, a.CacheProvider)
	}
	if a.DB != nil {
		a.DB.Close()
	}
	if a.sentryInited {
		sentry.Flush(2 * time.Second)
	}
	if a.logFile != nil {
		_ = a.logFile.Close()
	}
}

func newLogger(cfg *config.Config) (*slog.Logger, *os.File, error) {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var console slog.Handler
	format := strings.ToLower(strings.TrimSpace(cfg.LogFormat))
	switch format {
	case "json":
		console = slog.NewJSONHandler(os.Stdout, opts)
	default:
		console = tint.NewHandler(os.Stdout, &tint.Options{Level: cfg.LogLevel})
	}

	if cfg.LogFile == "" {
		return slog.New(console), nil, nil
	}

	file, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return slog.New(logging.MultiHandler(console, slog.NewJSONHandler(file, opts))), file, nil
}

func closeCacheProvider(logger *slog.Logger, provider cache.Provider) {
	if provider == nil {
		return
	}
	if err := provider.Close(); err != nil && logger != nil {
		logger.Warn("failed to close cache provider", "error", err)
	}
}
