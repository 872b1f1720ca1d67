package services

import (
	"context"
	"errors"
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

type orderStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	Update(ctx context.Context, order *models.Order, expectedUpdatedAt time.Time) error
}

type OrderService struct {
	store    orderStore
	engine   *lifecycle.Engine
	policy   lifecycle.RefundPolicy
	reverser payments.Reverser
	emailer  email.Provider
	cache    cache.Provider
	logger   *slog.Logger

	notifications sync.WaitGroup
}

func NewOrderService(store orderStore, engine *lifecycle.Engine, policy lifecycle.RefundPolicy, reverser payments.Reverser, emailer email.Provider, cacheProvider cache.Provider, logger *slog.Logger) *OrderService {
	if reverser == nil {
		reverser = payments.NoopReverser{}
	}
	if emailer == nil {
		emailer = email.NoopProvider{}
	}

	return &OrderService{
		store:    store,
		engine:   engine,
		policy:   policy,
		reverser: reverser,
		emailer:  emailer,
		cache:    cacheProvider,
		logger:   logger,
	}
}

func (s *OrderService) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, s.logger)
}

// Get returns an order visible to the actor. Buyers, the order's seller, and
// admins may view; everyone else gets Forbidden.
func (s *OrderService) Get(ctx context.Context, id uuid.UUID, actor lifecycle.Actor) (*models.Order, error) {
	order, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkVisibility(order, actor); err != nil {
		return nil, err
	}
	return order, nil
}

// ApplyAction runs a lifecycle transition and persists the result under the
// optimistic-concurrency guard. A concurrent writer surfaces as Conflict;
// the caller retries with fresh state.
func (s *OrderService) ApplyAction(ctx context.Context, id uuid.UUID, actor lifecycle.Actor, action lifecycle.Action) (*models.Order, error) {
	span := sentry.StartSpan(
		ctx,
		"service.order.apply_action",
		sentry.WithOpName("service.order"),
		sentry.WithDescription("ApplyAction"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	logger := s.loggerFromContext(ctx)
	meter := observability.MeterFromContext(ctx)
	meter.SetAttributes(attribute.String("action", string(action)))

	order, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updated, _, err := s.engine.ApplyOrder(order, actor, action)
	if err != nil {
		meter.Count("order.transition.rejected", 1, sentry.WithAttributes(
			attribute.String("reason", rejectionReason(err)),
		))
		return nil, err
	}

	if err := s.store.Update(ctx, updated, order.UpdatedAt); err != nil {
		return nil, err
	}
	meter.Count("order.transition.applied", 1, sentry.WithAttributes(
		attribute.String("status", string(updated.Status)),
	))
	logger.Info("order transition applied",
		"order_id", order.ID, "action", action,
		"from", order.Status, "to", updated.Status, "actor_role", actor.Role)

	s.invalidateMetrics(ctx, updated)
	s.notifyStatusChanged(ctx, updated)
	return updated, nil
}

// AttachSpecs replaces the bespoke specification of a custom order while it
// is still pending.
func (s *OrderService) AttachSpecs(ctx context.Context, id uuid.UUID, actor lifecycle.Actor, specs *models.CustomSpecs) (*models.Order, error) {
	span := sentry.StartSpan(
		ctx,
		"service.order.attach_specs",
		sentry.WithOpName("service.order"),
		sentry.WithDescription("AttachSpecs"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	order, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updated, _, err := s.engine.AttachOrderSpecs(order, actor, specs)
	if err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, updated, order.UpdatedAt); err != nil {
		return nil, err
	}

	observability.MeterFromContext(ctx).Count("order.specs.attached", 1)
	s.loggerFromContext(ctx).Info("order specs attached", "order_id", order.ID, "actor_role", actor.Role)
	return updated, nil
}

// RequestRefund opens the dispute sub-flow for the buyer.
func (s *OrderService) RequestRefund(ctx context.Context, id uuid.UUID, actor lifecycle.Actor) (*models.Order, error) {
	span := sentry.StartSpan(
		ctx,
		"service.order.request_refund",
		sentry.WithOpName("service.order"),
		sentry.WithDescription("RequestRefund"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	order, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updated, _, err := s.engine.RequestOrderRefund(order, actor, s.policy)
	if err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, updated, order.UpdatedAt); err != nil {
		return nil, err
	}

	observability.MeterFromContext(ctx).Count("order.refund.requested", 1)
	s.loggerFromContext(ctx).Info("order refund requested", "order_id", order.ID, "actor_id", actor.ID)
	return updated, nil
}

// ResolveRefund records the admin decision. An approval reverses the payment
// before the decision is persisted, so an unreachable gateway leaves the
// request open instead of approved-but-unpaid.
func (s *OrderService) ResolveRefund(ctx context.Context, id uuid.UUID, actor lifecycle.Actor, approve bool) (*models.Order, error) {
	span := sentry.StartSpan(
		ctx,
		"service.order.resolve_refund",
		sentry.WithOpName("service.order"),
		sentry.WithDescription("ResolveRefund"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	logger := s.loggerFromContext(ctx)
	meter := observability.MeterFromContext(ctx)

	order, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updated, _, err := s.engine.ResolveOrderRefund(order, actor, approve)
	if err != nil {
		return nil, err
	}

	if approve {
		reversal := payments.Reversal{
			RecordID:   order.ID,
			PaymentRef: order.PaymentRef,
			Amount:     order.Total,
			Currency:   order.Currency,
		}
		if err := s.reverser.Reverse(ctx, reversal); err != nil {
			meter.Count("order.refund.reversal_failed", 1)
			return nil, fmt.Errorf("failed to reverse payment for order %s: %w", order.ID, err)
		}
	}

	if err := s.store.Update(ctx, updated, order.UpdatedAt); err != nil {
		return nil, err
	}

	outcome := "denied"
	if approve {
		outcome = "approved"
	}
	meter.Count("order.refund.resolved", 1, sentry.WithAttributes(
		attribute.String("outcome", outcome),
	))
	logger.Info("order refund resolved", "order_id", order.ID, "outcome", outcome)

	s.invalidateMetrics(ctx, updated)
	s.notifyRefundResolved(ctx, updated, outcome)
	return updated, nil
}

func (s *OrderService) checkVisibility(order *models.Order, actor lifecycle.Actor) error {
	if actor.Role == models.RoleAdmin || actor.ID == order.BuyerID || actor.ID == order.SellerID {
		return nil
	}
	return fmt.Errorf("%w: order %s is not visible to this user", lifecycle.ErrForbidden, order.ID)
}

func (s *OrderService) invalidateMetrics(ctx context.Context, order *models.Order) {
	if s.cache == nil {
		return
	}
	keys := []string{
		cache.MetricsKey(models.RoleCustomer, order.BuyerID),
		cache.MetricsKey(order.SellerRole, order.SellerID),
	}
	for _, key := range keys {
		if err := s.cache.Delete(ctx, key); err != nil {
			s.loggerFromContext(ctx).Warn("failed to invalidate metrics cache", "key", key, "error", err)
		}
	}
}

func (s *OrderService) notifyStatusChanged(ctx context.Context, order *models.Order) {
	s.sendAsync(ctx, func(ctx context.Context) error {
		return email.SendStatusChanged(ctx, s.emailer, orderStatusInfo(order, string(order.Status), ""))
	})
}

func (s *OrderService) notifyRefundResolved(ctx context.Context, order *models.Order, outcome string) {
	s.sendAsync(ctx, func(ctx context.Context) error {
		return email.SendRefundResolved(ctx, s.emailer, orderStatusInfo(order, outcome, ""))
	})
}

// sendAsync dispatches a notification without blocking or failing the
// request. The detached context survives the request ending; Drain waits for
// the in-flight sends at shutdown.
func (s *OrderService) sendAsync(ctx context.Context, send func(ctx context.Context) error) {
	logger := s.loggerFromContext(ctx)
	ctx = context.WithoutCancel(ctx)
	s.notifications.Add(1)
	go func() {
		defer s.notifications.Done()
		if err := send(ctx); err != nil {
			logger.Warn("failed to send notification", "error", err)
		}
	}()
}

// Drain blocks until every in-flight notification has finished or the
// context expires.
func (s *OrderService) Drain(ctx context.Context) error {
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

func orderStatusInfo(order *models.Order, status, detail string) *email.StatusInfo {
	return &email.StatusInfo{
		RecipientEmail: order.BuyerEmail,
		RecipientName:  order.BuyerName,
		RecordLabel:    fmt.Sprintf("Order #%d", order.OrderNumber),
		Status:         status,
		Amount:         order.Total.StringFixed(2),
		Currency:       order.Currency,
		Detail:         detail,
	}
}

// rejectionReason flattens an engine error to a low-cardinality metric tag.
func rejectionReason(err error) string {
	switch {
	case errors.Is(err, lifecycle.ErrForbidden):
		return "forbidden"
	case errors.Is(err, lifecycle.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, lifecycle.ErrPolicyViolation):
		return "policy_violation"
	case errors.Is(err, lifecycle.ErrConflict):
		return "conflict"
	case errors.Is(err, lifecycle.ErrValidation):
		return "validation"
	default:
		return "internal"
	}
}
