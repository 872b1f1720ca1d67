package lifecycle

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/artisanhubapp/artisanhub/internal/models"
)

// Actor is the explicit acting identity. Nothing in this package reads
// ambient session state; the caller always says who is acting.
type Actor struct {
	ID   uuid.UUID
	Role models.Role
}

// OrderWaiverFunc adjusts an order's tax/shipping when a rejection or
// cancellation waives them. The engine recomputes the total afterwards, so
// the hook only touches the component fields.
type OrderWaiverFunc func(order *models.Order, target models.OrderStatus)

// Engine is the single mutation entry point for status changes. It is
// stateless and request-scoped: Apply validates against the permission
// matrix and the status graph, mutates a clone, and returns it together with
// the new activity entry. Persistence and notifications are the caller's
// job.
type Engine struct {
	orderWaiver OrderWaiverFunc
	now         func() time.Time
}

func NewEngine(orderWaiver OrderWaiverFunc) *Engine {
	return &Engine{
		orderWaiver: orderWaiver,
		now:         time.Now,
	}
}

// ApplyOrder runs a transition action against an order. The input order is
// never mutated; on success the returned clone carries the new status, a
// bumped UpdatedAt, and the appended activity entry (also returned on its
// own for the persistence write).
func (e *Engine) ApplyOrder(order *models.Order, actor Actor, action Action) (*models.Order, models.ActivityEntry, error) {
	if order == nil {
		return nil, models.ActivityEntry{}, fmt.Errorf("%w: order is required", ErrValidation)
	}
	target, ok := OrderTarget(action)
	if !ok {
		return nil, models.ActivityEntry{}, fmt.Errorf("%w: %s is not an order transition", ErrValidation, action)
	}
	if err := AuthorizeOrderAction(actor.Role, action); err != nil {
		return nil, models.ActivityEntry{}, err
	}
	if !CanTransitionOrder(order.Status, target) {
		return nil, models.ActivityEntry{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.Status, target)
	}
	if err := AuthorizeOrderStatus(actor.Role, order.Status, action); err != nil {
		return nil, models.ActivityEntry{}, err
	}

	now := e.now()
	updated := order.Clone()
	if e.orderWaiver != nil && target == models.OrderStatusCancelled {
		e.orderWaiver(updated, target)
	}
	updated.RecomputeTotal()

	entry := e.newEntry(updated.Activities, models.ActivityStatusChanged,
		fmt.Sprintf("status changed from %s to %s", order.Status, target), actor, now)
	updated.Activities = append(updated.Activities, entry)
	updated.Status = target
	updated.UpdatedAt = now
	switch target {
	case models.OrderStatusCancelled:
		updated.CancelledAt = now
	case models.OrderStatusDelivered:
		updated.DeliveredAt = now
	}
	return updated, entry, nil
}

// ApplyBooking runs a transition action against a booking.
func (e *Engine) ApplyBooking(booking *models.Booking, actor Actor, action Action) (*models.Booking, models.ActivityEntry, error) {
	if booking == nil {
		return nil, models.ActivityEntry{}, fmt.Errorf("%w: booking is required", ErrValidation)
	}
	target, ok := BookingTarget(action)
	if !ok {
		return nil, models.ActivityEntry{}, fmt.Errorf("%w: %s is not a booking transition", ErrValidation, action)
	}
	if err := AuthorizeBookingAction(actor.Role, action); err != nil {
		return nil, models.ActivityEntry{}, err
	}
	if !CanTransitionBooking(booking.Status, target) {
		return nil, models.ActivityEntry{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, booking.Status, target)
	}
	if err := AuthorizeBookingStatus(actor.Role, booking.Status, action); err != nil {
		return nil, models.ActivityEntry{}, err
	}

	now := e.now()
	updated := booking.Clone()
	entry := e.newEntry(updated.Activities, models.ActivityStatusChanged,
		fmt.Sprintf("status changed from %s to %s", booking.Status, target), actor, now)
	updated.Activities = append(updated.Activities, entry)
	updated.Status = target
	updated.UpdatedAt = now
	switch target {
	case models.BookingStatusCancelled:
		updated.CancelledAt = now
	case models.BookingStatusCompleted:
		updated.CompletedAt = now
	}
	return updated, entry, nil
}

// RescheduleInput carries the replacement schedule. Date and StartTime must
// be supplied together; a partial reschedule is rejected.
type RescheduleInput struct {
	Date      string
	StartTime string
	EndTime   string
}

// RescheduleBooking changes the scheduled date/time of a booking without
// touching its status. Artisan/admin only, and only while the booking is not
// terminal.
func (e *Engine) RescheduleBooking(booking *models.Booking, actor Actor, input RescheduleInput) (*models.Booking, models.ActivityEntry, error) {
	if booking == nil {
		return nil, models.ActivityEntry{}, fmt.Errorf("%w: booking is required", ErrValidation)
	}
	if input.Date == "" || input.StartTime == "" {
		return nil, models.ActivityEntry{}, fmt.Errorf("%w: reschedule requires both a new date and a new time", ErrValidation)
	}
	if _, err := time.Parse("2006-01-02", input.Date); err != nil {
		return nil, models.ActivityEntry{}, fmt.Errorf("%w: date must be YYYY-MM-DD: %v", ErrValidation, err)
	}
	if _, err := time.Parse("15:04", input.StartTime); err != nil {
		return nil, models.ActivityEntry{}, fmt.Errorf("%w: start time must be HH:MM: %v", ErrValidation, err)
	}
	if input.EndTime != "" {
		if _, err := time.Parse("15:04", input.EndTime); err != nil {
			return nil, models.ActivityEntry{}, fmt.Errorf("%w: end time must be HH:MM: %v", ErrValidation, err)
		}
	}
	if err := AuthorizeBookingAction(actor.Role, ActionReschedule); err != nil {
		return nil, models.ActivityEntry{}, err
	}
	if BookingStatusTerminal(booking.Status) {
		return nil, models.ActivityEntry{}, fmt.Errorf("%w: booking in status %s cannot be rescheduled", ErrInvalidTransition, booking.Status)
	}
	if err := AuthorizeBookingStatus(actor.Role, booking.Status, ActionReschedule); err != nil {
		return nil, models.ActivityEntry{}, err
	}

	now := e.now()
	updated := booking.Clone()
	entry := e.newEntry(updated.Activities, models.ActivityRescheduled,
		fmt.Sprintf("rescheduled from %s %s to %s %s", booking.Date, booking.StartTime, input.Date, input.StartTime),
		actor, now)
	updated.Activities = append(updated.Activities, entry)
	updated.Date = input.Date
	updated.StartTime = input.StartTime
	if input.EndTime != "" {
		updated.EndTime = input.EndTime
	}
	updated.UpdatedAt = now
	return updated, entry, nil
}

// AttachOrderSpecs replaces the bespoke specification of a custom order
// without touching its status. The specs can only change while the order is
// still pending; once the seller has accepted, the agreed specification is
// fixed.
func (e *Engine) AttachOrderSpecs(order *models.Order, actor Actor, specs *models.CustomSpecs) (*models.Order, models.ActivityEntry, error) {
	if order == nil {
		return nil, models.ActivityEntry{}, fmt.Errorf("%w: order is required", ErrValidation)
	}
	if specs == nil {
		return nil, models.ActivityEntry{}, fmt.Errorf("%w: specs are required", ErrValidation)
	}
	if specs.TimelineDays < 0 {
		return nil, models.ActivityEntry{}, fmt.Errorf("%w: timeline days must not be negative", ErrValidation)
	}
	if !order.IsCustom() {
		return nil, models.ActivityEntry{}, fmt.Errorf("%w: only custom orders carry specs", ErrValidation)
	}
	if err := AuthorizeOrderAction(actor.Role, ActionAttachSpecs); err != nil {
		return nil, models.ActivityEntry{}, err
	}
	if order.Status != models.OrderStatusPending {
		return nil, models.ActivityEntry{}, fmt.Errorf("%w: specs are fixed once the order leaves pending", ErrInvalidTransition)
	}
	if err := AuthorizeOrderStatus(actor.Role, order.Status, ActionAttachSpecs); err != nil {
		return nil, models.ActivityEntry{}, err
	}

	now := e.now()
	updated := order.Clone()
	attached := *specs
	attached.Materials = append([]string(nil), specs.Materials...)
	attached.ReferenceImages = append([]string(nil), specs.ReferenceImages...)
	updated.CustomSpecs = &attached

	entry := e.newEntry(updated.Activities, models.ActivitySpecsAttached,
		fmt.Sprintf("custom specs attached with a %d day timeline", attached.TimelineDays), actor, now)
	updated.Activities = append(updated.Activities, entry)
	updated.UpdatedAt = now
	return updated, entry, nil
}

// newEntry builds an activity entry whose timestamp never goes backwards
// relative to the existing log.
func (e *Engine) newEntry(existing []models.ActivityEntry, kind models.ActivityKind, message string, actor Actor, now time.Time) models.ActivityEntry {
	if n := len(existing); n > 0 && now.Before(existing[n-1].Timestamp) {
		now = existing[n-1].Timestamp
	}
	return models.ActivityEntry{
		ID:        uuid.New(),
		Kind:      kind,
		Message:   message,
		ActorRole: actor.Role,
		ActorID:   actor.ID,
		Timestamp: now,
	}
}
