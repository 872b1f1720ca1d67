package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"
	"github.com/google/uuid"

	"github.com/artisanhubapp/artisanhub/internal/cache"
	"github.com/artisanhubapp/artisanhub/internal/email"
	"github.com/artisanhubapp/artisanhub/internal/lifecycle"
	"github.com/artisanhubapp/artisanhub/internal/logging"
	"github.com/artisanhubapp/artisanhub/internal/models"
	"github.com/artisanhubapp/artisanhub/internal/observability"
	"github.com/artisanhubapp/artisanhub/internal/payments"
)

type bookingStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Booking, error)
	Update(ctx context.Context, booking *models.Booking, expectedUpdatedAt time.Time) error
}

type BookingService struct {
	store    bookingStore
	engine   *lifecycle.Engine
	policy   lifecycle.RefundPolicy
	reverser payments.Reverser
	emailer  email.Provider
	cache    cache.Provider
	logger   *slog.Logger

	notifications sync.WaitGroup
}

func NewBookingService(store bookingStore, engine *lifecycle.Engine, policy lifecycle.RefundPolicy, reverser payments.Reverser, emailer email.Provider, cacheProvider cache.Provider, logger *slog.Logger) *BookingService {
	if reverser == nil {
		reverser = payments.NoopReverser{}
	}
	if emailer == nil {
		emailer = email.NoopProvider{}
	}

	return &BookingService{
		store:    store,
		engine:   engine,
		policy:   policy,
		reverser: reverser,
		emailer:  emailer,
		cache:    cacheProvider,
		logger:   logger,
	}
}

func (s *BookingService) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, s.logger)
}

// Get returns a booking visible to the actor: its customer, its provider,
// or an admin.
func (s *BookingService) Get(ctx context.Context, id uuid.UUID, actor lifecycle.Actor) (*models.Booking, error) {
	booking, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkVisibility(booking, actor); err != nil {
		return nil, err
	}
	return booking, nil
}

// ApplyAction runs a lifecycle transition and persists the result under the
// optimistic-concurrency guard.
func (s *BookingService) ApplyAction(ctx context.Context, id uuid.UUID, actor lifecycle.Actor, action lifecycle.Action) (*models.Booking, error) {
	span := sentry.StartSpan(
		ctx,
		"service.booking.apply_action",
		sentry.WithOpName("service.booking"),
		sentry.WithDescription("ApplyAction"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	logger := s.loggerFromContext(ctx)
	meter := observability.MeterFromContext(ctx)
	meter.SetAttributes(attribute.String("action", string(action)))

	booking, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updated, _, err := s.engine.ApplyBooking(booking, actor, action)
	if err != nil {
		meter.Count("booking.transition.rejected", 1, sentry.WithAttributes(
			attribute.String("reason", rejectionReason(err)),
		))
		return nil, err
	}

	if err := s.store.Update(ctx, updated, booking.UpdatedAt); err != nil {
		return nil, err
	}
	meter.Count("booking.transition.applied", 1, sentry.WithAttributes(
		attribute.String("status", string(updated.Status)),
	))
	logger.Info("booking transition applied",
		"booking_id", booking.ID, "action", action,
		"from", booking.Status, "to", updated.Status, "actor_role", actor.Role)

	s.invalidateMetrics(ctx, updated)
	s.notifyStatusChanged(ctx, updated)
	return updated, nil
}

// Reschedule replaces the booking's date and time without changing status.
func (s *BookingService) Reschedule(ctx context.Context, id uuid.UUID, actor lifecycle.Actor, input lifecycle.RescheduleInput) (*models.Booking, error) {
	span := sentry.StartSpan(
		ctx,
		"service.booking.reschedule",
		sentry.WithOpName("service.booking"),
		sentry.WithDescription("Reschedule"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	booking, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updated, _, err := s.engine.RescheduleBooking(booking, actor, input)
	if err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, updated, booking.UpdatedAt); err != nil {
		return nil, err
	}

	observability.MeterFromContext(ctx).Count("booking.rescheduled", 1)
	s.loggerFromContext(ctx).Info("booking rescheduled",
		"booking_id", booking.ID, "date", updated.Date, "start_time", updated.StartTime)

	s.sendAsyncBooking(ctx, updated, func(ctx context.Context, info *email.StatusInfo) error {
		info.Detail = fmt.Sprintf("New schedule: %s at %s", updated.Date, updated.StartTime)
		info.Status = string(updated.Status)
		return email.SendStatusChanged(ctx, s.emailer, info)
	})
	return updated, nil
}

// RequestRefund opens the dispute sub-flow for the customer.
func (s *BookingService) RequestRefund(ctx context.Context, id uuid.UUID, actor lifecycle.Actor) (*models.Booking, error) {
	span := sentry.StartSpan(
		ctx,
		"service.booking.request_refund",
		sentry.WithOpName("service.booking"),
		sentry.WithDescription("RequestRefund"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	booking, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updated, _, err := s.engine.RequestBookingRefund(booking, actor, s.policy)
	if err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, updated, booking.UpdatedAt); err != nil {
		return nil, err
	}

	observability.MeterFromContext(ctx).Count("booking.refund.requested", 1)
	s.loggerFromContext(ctx).Info("booking refund requested", "booking_id", booking.ID, "actor_id", actor.ID)
	return updated, nil
}

// ResolveRefund records the admin decision, reversing the payment first on
// approval.
func (s *BookingService) ResolveRefund(ctx context.Context, id uuid.UUID, actor lifecycle.Actor, approve bool) (*models.Booking, error) {
	span := sentry.StartSpan(
		ctx,
		"service.booking.resolve_refund",
		sentry.WithOpName("service.booking"),
		sentry.WithDescription("ResolveRefund"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	logger := s.loggerFromContext(ctx)
	meter := observability.MeterFromContext(ctx)

	booking, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updated, _, err := s.engine.ResolveBookingRefund(booking, actor, approve)
	if err != nil {
		return nil, err
	}

	if approve {
		reversal := payments.Reversal{
			RecordID:   booking.ID,
			PaymentRef: booking.PaymentRef,
			Amount:     booking.Price,
			Currency:   booking.Currency,
		}
		if err := s.reverser.Reverse(ctx, reversal); err != nil {
			meter.Count("booking.refund.reversal_failed", 1)
			return nil, fmt.Errorf("failed to reverse payment for booking %s: %w", booking.ID, err)
		}
	}

	if err := s.store.Update(ctx, updated, booking.UpdatedAt); err != nil {
		return nil, err
	}

	outcome := "denied"
	if approve {
		outcome = "approved"
	}
	meter.Count("booking.refund.resolved", 1, sentry.WithAttributes(
		attribute.String("outcome", outcome),
	))
	logger.Info("booking refund resolved", "booking_id", booking.ID, "outcome", outcome)

	s.invalidateMetrics(ctx, updated)
	s.sendAsyncBooking(ctx, updated, func(ctx context.Context, info *email.StatusInfo) error {
		info.Status = outcome
		return email.SendRefundResolved(ctx, s.emailer, info)
	})
	return updated, nil
}

func (s *BookingService) checkVisibility(booking *models.Booking, actor lifecycle.Actor) error {
	if actor.Role == models.RoleAdmin || actor.ID == booking.CustomerID || actor.ID == booking.ProviderID {
		return nil
	}
	return fmt.Errorf("%w: booking %s is not visible to this user", lifecycle.ErrForbidden, booking.ID)
}

func (s *BookingService) invalidateMetrics(ctx context.Context, booking *models.Booking) {
	if s.cache == nil {
		return
	}
	keys := []string{
		cache.MetricsKey(models.RoleCustomer, booking.CustomerID),
		cache.MetricsKey(models.RoleArtisan, booking.ProviderID),
	}
	for _, key := range keys {
		if err := s.cache.Delete(ctx, key); err != nil {
			s.loggerFromContext(ctx).Warn("failed to invalidate metrics cache", "key", key, "error", err)
		}
	}
}

func (s *BookingService) notifyStatusChanged(ctx context.Context, booking *models.Booking) {
	s.sendAsyncBooking(ctx, booking, func(ctx context.Context, info *email.StatusInfo) error {
		return email.SendStatusChanged(ctx, s.emailer, info)
	})
}

func (s *BookingService) sendAsyncBooking(ctx context.Context, booking *models.Booking, send func(ctx context.Context, info *email.StatusInfo) error) {
	logger := s.loggerFromContext(ctx)
	info := &email.StatusInfo{
		RecipientEmail: booking.CustomerEmail,
		RecipientName:  booking.CustomerName,
		RecordLabel:    fmt.Sprintf("Booking: %s", booking.ServiceName),
		Status:         string(booking.Status),
		Amount:         booking.Price.StringFixed(2),
		Currency:       booking.Currency,
	}
	ctx = context.WithoutCancel(ctx)
	s.notifications.Add(1)
	go func() {
		defer s.notifications.Done()
		if err := send(ctx, info); err != nil {
			logger.Warn("failed to send notification", "error", err)
		}
	}()
}

// Drain blocks until every in-flight notification has finished or the
// context expires.
func (s *BookingService) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.notifications.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
