package lifecycle

import "github.com/artisanhubapp/artisanhub/internal/models"

// The transition graphs are deliberately minimal: no skipping of intermediate
// states (pending -> delivered directly is rejected), so the activity log
// always records every stage a record passed through.

var orderTransitions = map[models.OrderStatus][]models.OrderStatus{
	models.OrderStatusPending:   {models.OrderStatusInTransit, models.OrderStatusCancelled},
	models.OrderStatusInTransit: {models.OrderStatusDelivered, models.OrderStatusCancelled},
	models.OrderStatusDelivered: {},
	models.OrderStatusCancelled: {},
}

var bookingTransitions = map[models.BookingStatus][]models.BookingStatus{
	models.BookingStatusPending:    {models.BookingStatusInProgress, models.BookingStatusCancelled},
	models.BookingStatusInProgress: {models.BookingStatusCompleted, models.BookingStatusCancelled},
	models.BookingStatusCompleted:  {},
	models.BookingStatusCancelled:  {},
}

// CanTransitionOrder reports whether the order status graph allows moving
// from current to requested. Pure over the enumeration; no role knowledge.
func CanTransitionOrder(current, requested models.OrderStatus) bool {
	for _, s := range orderTransitions[current] {
		if s == requested {
			return true
		}
	}
	return false
}

// CanTransitionBooking is CanTransitionOrder for the booking machine.
func CanTransitionBooking(current, requested models.BookingStatus) bool {
	for _, s := range bookingTransitions[current] {
		if s == requested {
			return true
		}
	}
	return false
}

// OrderStatusTerminal reports whether the primary machine is done. A
// terminal cancelled order may still enter the refund sub-flow.
func OrderStatusTerminal(s models.OrderStatus) bool {
	next, ok := orderTransitions[s]
	return ok && len(next) == 0
}

func BookingStatusTerminal(s models.BookingStatus) bool {
	next, ok := bookingTransitions[s]
	return ok && len(next) == 0
}

// AllowedOrderTransitions returns a copy of the legal next statuses.
func AllowedOrderTransitions(s models.OrderStatus) []models.OrderStatus {
	return append([]models.OrderStatus(nil), orderTransitions[s]...)
}

func AllowedBookingTransitions(s models.BookingStatus) []models.BookingStatus {
	return append([]models.BookingStatus(nil), bookingTransitions[s]...)
}
