package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"

	"github.com/artisanhubapp/artisanhub/internal/cache"
	"github.com/artisanhubapp/artisanhub/internal/dashboard"
	"github.com/artisanhubapp/artisanhub/internal/lifecycle"
	"github.com/artisanhubapp/artisanhub/internal/logging"
	"github.com/artisanhubapp/artisanhub/internal/models"
	"github.com/artisanhubapp/artisanhub/internal/observability"
)

type orderLister interface {
	ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]*models.Order, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]*models.Order, error)
}

type bookingLister interface {
	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]*models.Booking, error)
	ListByProvider(ctx context.Context, providerID uuid.UUID) ([]*models.Booking, error)
}

type DashboardService struct {
	orders   orderLister
	bookings bookingLister
	cache    cache.Provider
	cacheTTL time.Duration
	logger   *slog.Logger
}

func NewDashboardService(orders orderLister, bookings bookingLister, cacheProvider cache.Provider, cacheTTL time.Duration, logger *slog.Logger) *DashboardService {
	return &DashboardService{
		orders:   orders,
		bookings: bookings,
		cache:    cacheProvider,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

func (s *DashboardService) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, s.logger)
}

// Metrics computes the actor's dashboard summary for the given window. The
// all-time view (zero window) is served from cache when possible; windowed
// views are always computed fresh.
func (s *DashboardService) Metrics(ctx context.Context, actor lifecycle.Actor, window dashboard.Window) (*dashboard.RoleMetrics, error) {
	span := sentry.StartSpan(
		ctx,
		"service.dashboard.metrics",
		sentry.WithOpName("service.dashboard"),
		sentry.WithDescription("Metrics"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	if actor.Role == models.RoleAdmin {
		return nil, fmt.Errorf("%w: admins have no personal dashboard", lifecycle.ErrValidation)
	}

	meter := observability.MeterFromContext(ctx)
	cacheable := window == (dashboard.Window{})
	key := cache.MetricsKey(actor.Role, actor.ID)

	if cacheable && s.cache != nil {
		if cached, err := s.cache.Get(ctx, key); err == nil {
			var metrics dashboard.RoleMetrics
			if err := json.Unmarshal([]byte(cached), &metrics); err == nil {
				meter.Count("dashboard.metrics.cache_hit", 1)
				return &metrics, nil
			}
		} else if !errors.Is(err, cache.ErrNotFound) {
			s.loggerFromContext(ctx).Warn("failed to read metrics cache", "key", key, "error", err)
		}
	}

	metrics, err := s.compute(ctx, actor, window)
	if err != nil {
		return nil, err
	}
	meter.Count("dashboard.metrics.computed", 1)

	if cacheable && s.cache != nil {
		if payload, err := json.Marshal(metrics); err == nil {
			if err := s.cache.Set(ctx, key, string(payload), s.cacheTTL); err != nil {
				s.loggerFromContext(ctx).Warn("failed to write metrics cache", "key", key, "error", err)
			}
		}
	}
	return metrics, nil
}

func (s *DashboardService) compute(ctx context.Context, actor lifecycle.Actor, window dashboard.Window) (*dashboard.RoleMetrics, error) {
	var (
		orders   []*models.Order
		bookings []*models.Booking
		err      error
	)

	switch actor.Role {
	case models.RoleCustomer:
		if orders, err = s.orders.ListByBuyer(ctx, actor.ID); err != nil {
			return nil, err
		}
		if bookings, err = s.bookings.ListByCustomer(ctx, actor.ID); err != nil {
			return nil, err
		}
	case models.RoleVendor:
		if orders, err = s.orders.ListBySeller(ctx, actor.ID); err != nil {
			return nil, err
		}
	case models.RoleArtisan:
		if orders, err = s.orders.ListBySeller(ctx, actor.ID); err != nil {
			return nil, err
		}
		if bookings, err = s.bookings.ListByProvider(ctx, actor.ID); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: unknown role %s", lifecycle.ErrValidation, actor.Role)
	}

	metrics := dashboard.AggregateAll(orders, bookings, actor.Role, window)
	return &metrics, nil
}
