package lifecycle

import (
	"fmt"
	"time"

	"github.com/artisanhubapp/artisanhub/internal/models"
)

// RefundPolicy is deployment configuration for the dispute sub-flow: which
// parent statuses allow a refund request and for how long after the record
// reached that status. Supplied by the caller, never hardcoded here.
type RefundPolicy struct {
	Window          time.Duration
	OrderStatuses   []models.OrderStatus
	BookingStatuses []models.BookingStatus
}

func (p RefundPolicy) orderEligible(s models.OrderStatus) bool {
	for _, eligible := range p.OrderStatuses {
		if eligible == s {
			return true
		}
	}
	return false
}

func (p RefundPolicy) bookingEligible(s models.BookingStatus) bool {
	for _, eligible := range p.BookingStatuses {
		if eligible == s {
			return true
		}
	}
	return false
}

// RequestOrderRefund moves an order's refund state none -> requested. Legal
// only for the customer, only from a policy-eligible status, and only within
// the policy window measured from when the order reached that status. A
// denied refund can never be re-requested.
func (e *Engine) RequestOrderRefund(order *models.Order, actor Actor, policy RefundPolicy) (*models.Order, models.ActivityEntry, error) {
	if order == nil {
		return nil, models.ActivityEntry{}, fmt.Errorf("%w: order is required", ErrValidation)
	}
	if err := authorizeRefundAction(actor.Role, ActionRequestRefund); err != nil {
		return nil, models.ActivityEntry{}, err
	}
	if err := checkRefundRequestable(order.Refund); err != nil {
		return nil, models.ActivityEntry{}, err
	}
	if !policy.orderEligible(order.Status) {
		return nil, models.ActivityEntry{}, fmt.Errorf("%w: refunds are not available for orders in status %s", ErrPolicyViolation, order.Status)
	}
	now := e.now()
	if err := checkRefundWindow(refundAnchor(order.CancelledAt, order.DeliveredAt, order.UpdatedAt), now, policy.Window); err != nil {
		return nil, models.ActivityEntry{}, err
	}

	updated := order.Clone()
	entry := e.newEntry(updated.Activities, models.ActivityRefundRequested, "refund requested", actor, now)
	updated.Activities = append(updated.Activities, entry)
	updated.Refund = models.RefundRequested
	updated.RefundAt = now
	updated.UpdatedAt = now
	return updated, entry, nil
}

// RequestBookingRefund is the booking counterpart of RequestOrderRefund.
func (e *Engine) RequestBookingRefund(booking *models.Booking, actor Actor, policy RefundPolicy) (*models.Booking, models.ActivityEntry, error) {
	if booking == nil {
		return nil, models.ActivityEntry{}, fmt.Errorf("%w: booking is required", ErrValidation)
	}
	if err := authorizeRefundAction(actor.Role, ActionRequestRefund); err != nil {
		return nil, models.ActivityEntry{}, err
	}
	if err := checkRefundRequestable(booking.Refund); err != nil {
		return nil, models.ActivityEntry{}, err
	}
	if !policy.bookingEligible(booking.Status) {
		return nil, models.ActivityEntry{}, fmt.Errorf("%w: refunds are not available for bookings in status %s", ErrPolicyViolation, booking.Status)
	}
	now := e.now()
	if err := checkRefundWindow(refundAnchor(booking.CancelledAt, booking.CompletedAt, booking.UpdatedAt), now, policy.Window); err != nil {
		return nil, models.ActivityEntry{}, err
	}

	updated := booking.Clone()
	entry := e.newEntry(updated.Activities, models.ActivityRefundRequested, "refund requested", actor, now)
	updated.Activities = append(updated.Activities, entry)
	updated.Refund = models.RefundRequested
	updated.RefundAt = now
	updated.UpdatedAt = now
	return updated, entry, nil
}

// ResolveOrderRefund moves requested -> approved | denied. Admin only. Both
// outcomes are terminal; an approval's payment reversal is dispatched by the
// caller, not here.
func (e *Engine) ResolveOrderRefund(order *models.Order, actor Actor, approve bool) (*models.Order, models.ActivityEntry, error) {
	if order == nil {
		return nil, models.ActivityEntry{}, fmt.Errorf("%w: order is required", ErrValidation)
	}
	action := ActionDenyRefund
	if approve {
		action = ActionApproveRefund
	}
	if err := authorizeRefundAction(actor.Role, action); err != nil {
		return nil, models.ActivityEntry{}, err
	}
	if order.Refund != models.RefundRequested {
		return nil, models.ActivityEntry{}, fmt.Errorf("%w: no refund request to resolve (state %s)", ErrPolicyViolation, order.Refund)
	}

	now := e.now()
	updated := order.Clone()
	state, message := models.RefundDenied, "refund denied"
	if approve {
		state, message = models.RefundApproved, "refund approved"
	}
	entry := e.newEntry(updated.Activities, models.ActivityRefundResolved, message, actor, now)
	updated.Activities = append(updated.Activities, entry)
	updated.Refund = state
	updated.UpdatedAt = now
	return updated, entry, nil
}

// ResolveBookingRefund is the booking counterpart of ResolveOrderRefund.
func (e *Engine) ResolveBookingRefund(booking *models.Booking, actor Actor, approve bool) (*models.Booking, models.ActivityEntry, error) {
	if booking == nil {
		return nil, models.ActivityEntry{}, fmt.Errorf("%w: booking is required", ErrValidation)
	}
	action := ActionDenyRefund
	if approve {
		action = ActionApproveRefund
	}
	if err := authorizeRefundAction(actor.Role, action); err != nil {
		return nil, models.ActivityEntry{}, err
	}
	if booking.Refund != models.RefundRequested {
		return nil, models.ActivityEntry{}, fmt.Errorf("%w: no refund request to resolve (state %s)", ErrPolicyViolation, booking.Refund)
	}

	now := e.now()
	updated := booking.Clone()
	state, message := models.RefundDenied, "refund denied"
	if approve {
		state, message = models.RefundApproved, "refund approved"
	}
	entry := e.newEntry(updated.Activities, models.ActivityRefundResolved, message, actor, now)
	updated.Activities = append(updated.Activities, entry)
	updated.Refund = state
	updated.UpdatedAt = now
	return updated, entry, nil
}

func checkRefundRequestable(state models.RefundState) error {
	switch state {
	case models.RefundNone:
		return nil
	case models.RefundDenied:
		return fmt.Errorf("%w: a denied refund cannot be re-requested", ErrPolicyViolation)
	default:
		return fmt.Errorf("%w: a refund was already requested (state %s)", ErrPolicyViolation, state)
	}
}

func checkRefundWindow(anchor, now time.Time, window time.Duration) error {
	if window <= 0 {
		return nil
	}
	if now.Sub(anchor) > window {
		return fmt.Errorf("%w: refund window of %s has passed", ErrPolicyViolation, window)
	}
	return nil
}

// refundAnchor picks the moment the record became refund-eligible: the
// cancellation time, otherwise the completion/delivery time, otherwise the
// last update.
func refundAnchor(cancelled, finished, updated time.Time) time.Time {
	if !cancelled.IsZero() {
		return cancelled
	}
	if !finished.IsZero() {
		return finished
	}
	return updated
}
