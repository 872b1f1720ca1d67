package lifecycle

import (
	"fmt"

	"github.com/artisanhubapp/artisanhub/internal/models"
)

// RecordKind selects which of the two lifecycle machines applies.
type RecordKind string

const (
	KindOrder   RecordKind = "order"
	KindBooking RecordKind = "booking"
)

// Action is a role-initiated request against a record. Transition actions
// resolve to a target status; side actions (reschedule, refund handling)
// never go through the status graph.
type Action string

const (
	ActionAccept       Action = "accept"
	ActionReject       Action = "reject"
	ActionCancel       Action = "cancel"
	ActionMarkComplete Action = "mark_complete"

	ActionReschedule    Action = "reschedule"
	ActionAttachSpecs   Action = "attach_specs"
	ActionRequestRefund Action = "request_refund"
	ActionApproveRefund Action = "approve_refund"
	ActionDenyRefund    Action = "deny_refund"
)

func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case ActionAccept, ActionReject, ActionCancel, ActionMarkComplete,
		ActionReschedule, ActionAttachSpecs, ActionRequestRefund, ActionApproveRefund, ActionDenyRefund:
		return Action(s), nil
	default:
		return "", fmt.Errorf("unknown action: %s", s)
	}
}

// IsTransition reports whether the action moves the record through the
// status graph.
func (a Action) IsTransition() bool {
	switch a {
	case ActionAccept, ActionReject, ActionCancel, ActionMarkComplete:
		return true
	default:
		return false
	}
}

var orderTargets = map[Action]models.OrderStatus{
	ActionAccept:       models.OrderStatusInTransit,
	ActionReject:       models.OrderStatusCancelled,
	ActionCancel:       models.OrderStatusCancelled,
	ActionMarkComplete: models.OrderStatusDelivered,
}

var bookingTargets = map[Action]models.BookingStatus{
	ActionAccept:       models.BookingStatusInProgress,
	ActionReject:       models.BookingStatusCancelled,
	ActionCancel:       models.BookingStatusCancelled,
	ActionMarkComplete: models.BookingStatusCompleted,
}

// OrderTarget resolves a transition action to its target order status.
func OrderTarget(a Action) (models.OrderStatus, bool) {
	s, ok := orderTargets[a]
	return s, ok
}

// BookingTarget resolves a transition action to its target booking status.
func BookingTarget(a Action) (models.BookingStatus, bool) {
	s, ok := bookingTargets[a]
	return s, ok
}
