package lifecycle

import (
	"errors"
	"testing"

	"github.com/artisanhubapp/artisanhub/internal/models"
)

func TestAuthorizeOrder(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		role    models.Role
		status  models.OrderStatus
		action  Action
		allowed bool
	}{
		{name: "customer cancels pending", role: models.RoleCustomer, status: models.OrderStatusPending, action: ActionCancel, allowed: true},
		{name: "customer cannot cancel in-transit", role: models.RoleCustomer, status: models.OrderStatusInTransit, action: ActionCancel, allowed: false},
		{name: "customer cannot accept", role: models.RoleCustomer, status: models.OrderStatusPending, action: ActionAccept, allowed: false},
		{name: "vendor accepts pending", role: models.RoleVendor, status: models.OrderStatusPending, action: ActionAccept, allowed: true},
		{name: "vendor rejects pending", role: models.RoleVendor, status: models.OrderStatusPending, action: ActionReject, allowed: true},
		{name: "vendor completes in-transit", role: models.RoleVendor, status: models.OrderStatusInTransit, action: ActionMarkComplete, allowed: true},
		{name: "vendor cannot complete pending", role: models.RoleVendor, status: models.OrderStatusPending, action: ActionMarkComplete, allowed: false},
		{name: "vendor cannot cancel for customer", role: models.RoleVendor, status: models.OrderStatusPending, action: ActionCancel, allowed: false},
		{name: "artisan accepts pending", role: models.RoleArtisan, status: models.OrderStatusPending, action: ActionAccept, allowed: true},
		{name: "artisan completes in-transit", role: models.RoleArtisan, status: models.OrderStatusInTransit, action: ActionMarkComplete, allowed: true},
		{name: "artisan attaches specs to pending", role: models.RoleArtisan, status: models.OrderStatusPending, action: ActionAttachSpecs, allowed: true},
		{name: "artisan cannot attach specs after accept", role: models.RoleArtisan, status: models.OrderStatusInTransit, action: ActionAttachSpecs, allowed: false},
		{name: "vendor cannot attach specs", role: models.RoleVendor, status: models.OrderStatusPending, action: ActionAttachSpecs, allowed: false},
		{name: "admin overrides any transition", role: models.RoleAdmin, status: models.OrderStatusInTransit, action: ActionCancel, allowed: true},
		{name: "admin cannot request refund", role: models.RoleAdmin, status: models.OrderStatusCancelled, action: ActionRequestRefund, allowed: false},
		{name: "customer requests refund", role: models.RoleCustomer, status: models.OrderStatusCancelled, action: ActionRequestRefund, allowed: true},
		{name: "vendor cannot approve refund", role: models.RoleVendor, status: models.OrderStatusCancelled, action: ActionApproveRefund, allowed: false},
		{name: "admin approves refund", role: models.RoleAdmin, status: models.OrderStatusCancelled, action: ActionApproveRefund, allowed: true},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			err := AuthorizeOrder(tc.role, tc.status, tc.action)
			if tc.allowed && err != nil {
				t.Fatalf("AuthorizeOrder(%s, %s, %s) = %v, want allowed", tc.role, tc.status, tc.action, err)
			}
			if !tc.allowed {
				if err == nil {
					t.Fatalf("AuthorizeOrder(%s, %s, %s) allowed, want denied", tc.role, tc.status, tc.action)
				}
				if !errors.Is(err, ErrForbidden) {
					t.Fatalf("denial kind = %v, want ErrForbidden", err)
				}
			}
		})
	}
}

func TestAuthorizeOrderStages(t *testing.T) {
	t.Parallel()

	// The action stage only asks whether the role may ever take the
	// action; the status column is checked separately.
	if err := AuthorizeOrderAction(models.RoleVendor, ActionMarkComplete); err != nil {
		t.Fatalf("action stage = %v, want allowed regardless of status", err)
	}
	if err := AuthorizeOrderAction(models.RoleCustomer, ActionAccept); !errors.Is(err, ErrForbidden) {
		t.Fatalf("action stage = %v, want ErrForbidden", err)
	}
	if err := AuthorizeOrderStatus(models.RoleVendor, models.OrderStatusPending, ActionMarkComplete); !errors.Is(err, ErrForbidden) {
		t.Fatalf("status stage = %v, want ErrForbidden for pending", err)
	}
	if err := AuthorizeOrderStatus(models.RoleVendor, models.OrderStatusInTransit, ActionMarkComplete); err != nil {
		t.Fatalf("status stage = %v, want allowed for in-transit", err)
	}
}

func TestAuthorizeBooking(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		role    models.Role
		status  models.BookingStatus
		action  Action
		allowed bool
	}{
		{name: "customer cancels pending", role: models.RoleCustomer, status: models.BookingStatusPending, action: ActionCancel, allowed: true},
		{name: "vendor has no booking actions", role: models.RoleVendor, status: models.BookingStatusPending, action: ActionAccept, allowed: false},
		{name: "artisan accepts pending", role: models.RoleArtisan, status: models.BookingStatusPending, action: ActionAccept, allowed: true},
		{name: "artisan completes inprogress", role: models.RoleArtisan, status: models.BookingStatusInProgress, action: ActionMarkComplete, allowed: true},
		{name: "artisan reschedules pending", role: models.RoleArtisan, status: models.BookingStatusPending, action: ActionReschedule, allowed: true},
		{name: "artisan reschedules inprogress", role: models.RoleArtisan, status: models.BookingStatusInProgress, action: ActionReschedule, allowed: true},
		{name: "customer cannot reschedule", role: models.RoleCustomer, status: models.BookingStatusPending, action: ActionReschedule, allowed: false},
		{name: "admin reschedules", role: models.RoleAdmin, status: models.BookingStatusPending, action: ActionReschedule, allowed: true},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			err := AuthorizeBooking(tc.role, tc.status, tc.action)
			if tc.allowed && err != nil {
				t.Fatalf("AuthorizeBooking(%s, %s, %s) = %v, want allowed", tc.role, tc.status, tc.action, err)
			}
			if !tc.allowed && !errors.Is(err, ErrForbidden) {
				t.Fatalf("AuthorizeBooking(%s, %s, %s) = %v, want ErrForbidden", tc.role, tc.status, tc.action, err)
			}
		})
	}
}

func TestAuthorizeKindDispatch(t *testing.T) {
	t.Parallel()

	if err := Authorize(models.RoleVendor, KindOrder, "pending", ActionAccept); err != nil {
		t.Fatalf("Authorize order dispatch = %v, want nil", err)
	}
	if err := Authorize(models.RoleArtisan, KindBooking, "pending", ActionAccept); err != nil {
		t.Fatalf("Authorize booking dispatch = %v, want nil", err)
	}
	if err := Authorize(models.RoleVendor, KindOrder, "nonsense", ActionAccept); !errors.Is(err, ErrValidation) {
		t.Fatalf("Authorize with bad status = %v, want ErrValidation", err)
	}
	if err := Authorize(models.RoleVendor, "widget", "pending", ActionAccept); !errors.Is(err, ErrValidation) {
		t.Fatalf("Authorize with bad kind = %v, want ErrValidation", err)
	}
}
