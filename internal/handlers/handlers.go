package handlers

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/artisanhubapp/artisanhub/internal/auth"
	"github.com/artisanhubapp/artisanhub/internal/config"
	"github.com/artisanhubapp/artisanhub/internal/logging"
	"github.com/artisanhubapp/artisanhub/internal/services"
)

const maxRequestBodyBytes = 1 << 20 // 1 MB

// Handlers provides the JSON API request handlers.
type Handlers struct {
	config           *config.Config
	db               *pgxpool.Pool
	verifier         *auth.Verifier
	orderService     *services.OrderService
	bookingService   *services.BookingService
	dashboardService *services.DashboardService
	logger           *slog.Logger
}

type Dependencies struct {
	Config           *config.Config
	DB               *pgxpool.Pool
	Verifier         *auth.Verifier
	OrderService     *services.OrderService
	BookingService   *services.BookingService
	DashboardService *services.DashboardService
	Logger           *slog.Logger
}

func New(deps Dependencies) (*Handlers, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if deps.Config == nil {
		return nil, fmt.Errorf("handlers dependencies: config is required")
	}
	if deps.Verifier == nil {
		return nil, fmt.Errorf("handlers dependencies: verifier is required")
	}
	if deps.OrderService == nil {
		return nil, fmt.Errorf("handlers dependencies: orderService is required")
	}
	if deps.BookingService == nil {
		return nil, fmt.Errorf("handlers dependencies: bookingService is required")
	}
	if deps.DashboardService == nil {
		return nil, fmt.Errorf("handlers dependencies: dashboardService is required")
	}

	return &Handlers{
		config:           deps.Config,
		db:               deps.DB,
		verifier:         deps.Verifier,
		orderService:     deps.OrderService,
		bookingService:   deps.BookingService,
		dashboardService: deps.DashboardService,
		logger:           logger,
	}, nil
}

func (h *Handlers) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, h.logger)
}
