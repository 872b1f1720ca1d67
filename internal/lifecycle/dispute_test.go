package lifecycle

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/artisanhubapp/artisanhub/internal/models"
)

func testRefundPolicy() RefundPolicy {
	return RefundPolicy{
		Window:          7 * 24 * time.Hour,
		OrderStatuses:   []models.OrderStatus{models.OrderStatusCancelled, models.OrderStatusDelivered},
		BookingStatuses: []models.BookingStatus{models.BookingStatusCancelled},
	}
}

func TestRefundFlowOnCancelledBooking(t *testing.T) {
	t.Parallel()

	e := newTestEngine(nil)
	booking := newTestBooking(models.BookingStatusCancelled)
	booking.CancelledAt = testNow.Add(-24 * time.Hour)
	customer := Actor{ID: booking.CustomerID, Role: models.RoleCustomer}
	admin := Actor{Role: models.RoleAdmin}
	policy := testRefundPolicy()

	requested, entry, err := e.RequestBookingRefund(booking, customer, policy)
	if err != nil {
		t.Fatalf("RequestBookingRefund = %v, want nil", err)
	}
	if requested.Refund != models.RefundRequested {
		t.Fatalf("refund state = %s, want requested", requested.Refund)
	}
	if entry.Kind != models.ActivityRefundRequested {
		t.Fatalf("activity kind = %s, want refund_requested", entry.Kind)
	}

	approved, _, err := e.ResolveBookingRefund(requested, admin, true)
	if err != nil {
		t.Fatalf("ResolveBookingRefund(approve) = %v, want nil", err)
	}
	if approved.Refund != models.RefundApproved {
		t.Fatalf("refund state = %s, want approved", approved.Refund)
	}

	// Approved is terminal for the sub-flow; a second request must fail.
	if _, _, err := e.RequestBookingRefund(approved, customer, policy); !errors.Is(err, ErrPolicyViolation) {
		t.Fatalf("second request = %v, want ErrPolicyViolation", err)
	}
	if _, _, err := e.ResolveBookingRefund(approved, admin, false); !errors.Is(err, ErrPolicyViolation) {
		t.Fatalf("resolve after approval = %v, want ErrPolicyViolation", err)
	}
}

func TestRequestOrderRefund(t *testing.T) {
	t.Parallel()

	policy := testRefundPolicy()

	tests := []struct {
		name    string
		prepare func(o *models.Order)
		actor   Actor
		want    error
	}{
		{
			name:    "within window on cancelled order",
			prepare: func(o *models.Order) { o.Status = models.OrderStatusCancelled; o.CancelledAt = testNow.Add(-time.Hour) },
			actor:   Actor{Role: models.RoleCustomer},
		},
		{
			name:    "within window on delivered order",
			prepare: func(o *models.Order) { o.Status = models.OrderStatusDelivered; o.DeliveredAt = testNow.Add(-time.Hour) },
			actor:   Actor{Role: models.RoleCustomer},
		},
		{
			name:    "outside window",
			prepare: func(o *models.Order) { o.Status = models.OrderStatusCancelled; o.CancelledAt = testNow.Add(-8 * 24 * time.Hour) },
			actor:   Actor{Role: models.RoleCustomer},
			want:    ErrPolicyViolation,
		},
		{
			name:    "ineligible status",
			prepare: func(o *models.Order) { o.Status = models.OrderStatusInTransit },
			actor:   Actor{Role: models.RoleCustomer},
			want:    ErrPolicyViolation,
		},
		{
			name:    "denied cannot be re-requested",
			prepare: func(o *models.Order) { o.Status = models.OrderStatusCancelled; o.CancelledAt = testNow.Add(-time.Hour); o.Refund = models.RefundDenied },
			actor:   Actor{Role: models.RoleCustomer},
			want:    ErrPolicyViolation,
		},
		{
			name:    "vendor may not request",
			prepare: func(o *models.Order) { o.Status = models.OrderStatusCancelled; o.CancelledAt = testNow.Add(-time.Hour) },
			actor:   Actor{Role: models.RoleVendor},
			want:    ErrForbidden,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			e := newTestEngine(nil)
			order := newTestOrder(models.OrderStatusPending)
			tc.prepare(order)
			snapshot := order.Clone()

			updated, _, err := e.RequestOrderRefund(order, tc.actor, policy)
			if tc.want != nil {
				if !errors.Is(err, tc.want) {
					t.Fatalf("RequestOrderRefund error = %v, want %v", err, tc.want)
				}
				if !reflect.DeepEqual(order, snapshot) {
					t.Fatal("failed request mutated the order")
				}
				return
			}
			if err != nil {
				t.Fatalf("RequestOrderRefund = %v, want nil", err)
			}
			if updated.Refund != models.RefundRequested {
				t.Fatalf("refund state = %s, want requested", updated.Refund)
			}
			if updated.RefundAt.IsZero() {
				t.Fatal("RefundAt not set")
			}
		})
	}
}
