package lifecycle

import (
	"fmt"

	"github.com/artisanhubapp/artisanhub/internal/models"
)

// The permission matrix: for each record kind, which statuses a role may take
// an action from. The matrix is evaluated in two stages around the status
// graph: whether the role may ever take the action comes first, so a
// role-illegal action fails with ErrForbidden even when the transition itself
// would be graph-legal; the per-status column comes after the graph, so a
// role-legal action on a graph-illegal transition surfaces the status error
// (ErrInvalidTransition) instead of being dressed up as a role problem.
//
// Admin is handled outside the tables: both stages always pass for admin
// (except initiating refund requests, which stay customer-initiated), but the
// status graph still applies, so an admin cannot produce a transition the
// graph does not contain.

var orderPermissions = map[models.Role]map[Action][]models.OrderStatus{
	models.RoleCustomer: {
		ActionCancel: {models.OrderStatusPending},
	},
	models.RoleVendor: {
		ActionAccept:       {models.OrderStatusPending},
		ActionReject:       {models.OrderStatusPending},
		ActionMarkComplete: {models.OrderStatusInTransit},
	},
	models.RoleArtisan: {
		ActionAccept:       {models.OrderStatusPending},
		ActionReject:       {models.OrderStatusPending},
		ActionMarkComplete: {models.OrderStatusInTransit},
		ActionAttachSpecs:  {models.OrderStatusPending},
	},
}

var bookingPermissions = map[models.Role]map[Action][]models.BookingStatus{
	models.RoleCustomer: {
		ActionCancel: {models.BookingStatusPending},
	},
	models.RoleArtisan: {
		ActionAccept:       {models.BookingStatusPending},
		ActionReject:       {models.BookingStatusPending},
		ActionMarkComplete: {models.BookingStatusInProgress},
		ActionReschedule:   {models.BookingStatusPending, models.BookingStatusInProgress},
	},
}

// Refund actions are role-gated here; whether the record's status and
// timing make a refund legal is policy-driven and checked by the dispute
// flow, which keeps a single source of truth for refund eligibility.
func authorizeRefundAction(role models.Role, action Action) error {
	switch action {
	case ActionRequestRefund:
		if role != models.RoleCustomer {
			return fmt.Errorf("%w: refund requests are customer-initiated", ErrForbidden)
		}
	case ActionApproveRefund, ActionDenyRefund:
		if role != models.RoleAdmin {
			return fmt.Errorf("%w: %s requires admin", ErrForbidden, action)
		}
	}
	return nil
}

func isRefundAction(action Action) bool {
	switch action {
	case ActionRequestRefund, ActionApproveRefund, ActionDenyRefund:
		return true
	default:
		return false
	}
}

// AuthorizeOrderAction checks whether the role may ever take the action on
// an order, in any status.
func AuthorizeOrderAction(role models.Role, action Action) error {
	if isRefundAction(action) {
		return authorizeRefundAction(role, action)
	}
	if role == models.RoleAdmin {
		return nil
	}
	if _, ok := orderPermissions[role][action]; !ok {
		return fmt.Errorf("%w: %s may not %s an order", ErrForbidden, role, action)
	}
	return nil
}

// AuthorizeOrderStatus checks the matrix's status column for an action the
// role is otherwise allowed to take.
func AuthorizeOrderStatus(role models.Role, status models.OrderStatus, action Action) error {
	if isRefundAction(action) || role == models.RoleAdmin {
		return nil
	}
	for _, s := range orderPermissions[role][action] {
		if s == status {
			return nil
		}
	}
	return fmt.Errorf("%w: %s may not %s an order in status %s", ErrForbidden, role, action, status)
}

// AuthorizeOrder runs both matrix stages for an order action.
func AuthorizeOrder(role models.Role, status models.OrderStatus, action Action) error {
	if err := AuthorizeOrderAction(role, action); err != nil {
		return err
	}
	return AuthorizeOrderStatus(role, status, action)
}

// AuthorizeBookingAction checks whether the role may ever take the action on
// a booking, in any status.
func AuthorizeBookingAction(role models.Role, action Action) error {
	if isRefundAction(action) {
		return authorizeRefundAction(role, action)
	}
	if role == models.RoleAdmin {
		return nil
	}
	if _, ok := bookingPermissions[role][action]; !ok {
		return fmt.Errorf("%w: %s may not %s a booking", ErrForbidden, role, action)
	}
	return nil
}

// AuthorizeBookingStatus checks the matrix's status column for an action the
// role is otherwise allowed to take.
func AuthorizeBookingStatus(role models.Role, status models.BookingStatus, action Action) error {
	if isRefundAction(action) || role == models.RoleAdmin {
		return nil
	}
	for _, s := range bookingPermissions[role][action] {
		if s == status {
			return nil
		}
	}
	return fmt.Errorf("%w: %s may not %s a booking in status %s", ErrForbidden, role, action, status)
}

// AuthorizeBooking runs both matrix stages for a booking action.
func AuthorizeBooking(role models.Role, status models.BookingStatus, action Action) error {
	if err := AuthorizeBookingAction(role, action); err != nil {
		return err
	}
	return AuthorizeBookingStatus(role, status, action)
}

// Authorize dispatches on record kind. Status is the record's current status
// as stored.
func Authorize(role models.Role, kind RecordKind, status string, action Action) error {
	switch kind {
	case KindOrder:
		parsed, err := models.ParseOrderStatus(status)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrValidation, err)
		}
		return AuthorizeOrder(role, parsed, action)
	case KindBooking:
		parsed, err := models.ParseBookingStatus(status)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrValidation, err)
		}
		return AuthorizeBooking(role, parsed, action)
	default:
		return fmt.Errorf("%w: unknown record kind %s", ErrValidation, kind)
	}
}
