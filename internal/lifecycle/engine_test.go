package lifecycle

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/artisanhubapp/artisanhub/internal/models"
)

var testNow = time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)

func newTestEngine(waiver OrderWaiverFunc) *Engine {
	e := NewEngine(waiver)
	e.now = func() time.Time { return testNow }
	return e
}

func newTestOrder(status models.OrderStatus) *models.Order {
	created := testNow.Add(-48 * time.Hour)
	o := &models.Order{
		ID:          uuid.New(),
		OrderNumber: 1042,
		Kind:        models.OrderKindStandard,
		Items: []models.OrderItem{
			{ProductID: uuid.New(), Name: "walnut bowl", Quantity: 2, UnitPrice: decimal.NewFromInt(45)},
		},
		Subtotal:   decimal.NewFromInt(90),
		Tax:        decimal.NewFromInt(7),
		Shipping:   decimal.NewFromInt(12),
		Currency:   "usd",
		Status:     status,
		BuyerID:    uuid.New(),
		SellerID:   uuid.New(),
		SellerRole: models.RoleVendor,
		Refund:     models.RefundNone,
		Activities: []models.ActivityEntry{
			{ID: uuid.New(), Kind: models.ActivityCreated, Message: "order placed", ActorRole: models.RoleCustomer, Timestamp: created},
		},
		CreatedAt: created,
		UpdatedAt: created,
	}
	o.RecomputeTotal()
	return o
}

func newTestBooking(status models.BookingStatus) *models.Booking {
	created := testNow.Add(-24 * time.Hour)
	return &models.Booking{
		ID:          uuid.New(),
		ServiceID:   uuid.New(),
		ServiceName: "pottery workshop",
		Date:        "2026-03-20",
		StartTime:   "14:00",
		EndTime:     "16:00",
		Price:       decimal.NewFromInt(120),
		Currency:    "usd",
		Status:      status,
		CustomerID:  uuid.New(),
		ProviderID:  uuid.New(),
		Refund:      models.RefundNone,
		Activities: []models.ActivityEntry{
			{ID: uuid.New(), Kind: models.ActivityCreated, Message: "booking requested", ActorRole: models.RoleCustomer, Timestamp: created},
		},
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func TestEngineApplyOrderAccept(t *testing.T) {
	t.Parallel()

	e := newTestEngine(nil)
	order := newTestOrder(models.OrderStatusPending)
	vendor := Actor{ID: order.SellerID, Role: models.RoleVendor}

	updated, entry, err := e.ApplyOrder(order, vendor, ActionAccept)
	if err != nil {
		t.Fatalf("ApplyOrder(accept) = %v, want nil", err)
	}
	if updated.Status != models.OrderStatusInTransit {
		t.Fatalf("status = %s, want in-transit", updated.Status)
	}
	if len(updated.Activities) != len(order.Activities)+1 {
		t.Fatalf("activities = %d, want %d", len(updated.Activities), len(order.Activities)+1)
	}
	if got := updated.Activities[len(updated.Activities)-1]; got.ID != entry.ID || got.ActorRole != models.RoleVendor {
		t.Fatalf("appended entry = %+v, want returned entry by vendor", got)
	}
	if !updated.UpdatedAt.After(order.UpdatedAt) {
		t.Fatalf("UpdatedAt did not advance: %s -> %s", order.UpdatedAt, updated.UpdatedAt)
	}
	if !updated.Total.Equal(order.Total) || !updated.Subtotal.Equal(order.Subtotal) {
		t.Fatal("money fields changed on accept")
	}
	if order.Status != models.OrderStatusPending {
		t.Fatal("input order was mutated")
	}
}

func TestEngineApplyOrderCancelledIsFinal(t *testing.T) {
	t.Parallel()

	e := newTestEngine(nil)
	order := newTestOrder(models.OrderStatusPending)
	customer := Actor{ID: order.BuyerID, Role: models.RoleCustomer}

	cancelled, _, err := e.ApplyOrder(order, customer, ActionCancel)
	if err != nil {
		t.Fatalf("ApplyOrder(cancel) = %v, want nil", err)
	}
	if cancelled.Status != models.OrderStatusCancelled {
		t.Fatalf("status = %s, want cancelled", cancelled.Status)
	}
	if cancelled.CancelledAt.IsZero() {
		t.Fatal("CancelledAt not set")
	}

	vendor := Actor{ID: order.SellerID, Role: models.RoleVendor}
	if _, _, err := e.ApplyOrder(cancelled, vendor, ActionAccept); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("accept after cancel = %v, want ErrInvalidTransition", err)
	}
}

func TestEngineApplyOrderErrorLeavesRecordUnchanged(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status models.OrderStatus
		actor  Actor
		action Action
		want   error
	}{
		{name: "forbidden role", status: models.OrderStatusPending, actor: Actor{Role: models.RoleCustomer}, action: ActionAccept, want: ErrForbidden},
		{name: "graph violation as admin", status: models.OrderStatusPending, actor: Actor{Role: models.RoleAdmin}, action: ActionMarkComplete, want: ErrInvalidTransition},
		{name: "graph violation outranks status column", status: models.OrderStatusPending, actor: Actor{Role: models.RoleVendor}, action: ActionMarkComplete, want: ErrInvalidTransition},
		{name: "status column constrains a graph-legal move", status: models.OrderStatusInTransit, actor: Actor{Role: models.RoleCustomer}, action: ActionCancel, want: ErrForbidden},
		{name: "side action through transition path", status: models.OrderStatusPending, actor: Actor{Role: models.RoleAdmin}, action: ActionReschedule, want: ErrValidation},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			e := newTestEngine(nil)
			order := newTestOrder(tc.status)
			snapshot := order.Clone()

			updated, _, err := e.ApplyOrder(order, tc.actor, tc.action)
			if !errors.Is(err, tc.want) {
				t.Fatalf("ApplyOrder error = %v, want %v", err, tc.want)
			}
			if updated != nil {
				t.Fatal("failed Apply returned an updated record")
			}
			if !reflect.DeepEqual(order, snapshot) {
				t.Fatal("failed Apply mutated the input record")
			}
		})
	}
}

func TestEngineCancelWaiverRecomputesTotal(t *testing.T) {
	t.Parallel()

	waiver := func(o *models.Order, target models.OrderStatus) {
		o.Shipping = decimal.Zero
		o.Tax = decimal.Zero
	}
	e := newTestEngine(waiver)
	order := newTestOrder(models.OrderStatusPending)
	vendor := Actor{ID: order.SellerID, Role: models.RoleVendor}

	updated, _, err := e.ApplyOrder(order, vendor, ActionReject)
	if err != nil {
		t.Fatalf("ApplyOrder(reject) = %v, want nil", err)
	}
	if !updated.Total.Equal(updated.Subtotal) {
		t.Fatalf("total = %s, want subtotal %s after waiver", updated.Total, updated.Subtotal)
	}
	if !order.Total.Equal(order.Subtotal.Add(order.Tax).Add(order.Shipping)) {
		t.Fatal("input order money fields were mutated")
	}
}

func TestEngineApplyBooking(t *testing.T) {
	t.Parallel()

	e := newTestEngine(nil)
	booking := newTestBooking(models.BookingStatusPending)
	artisan := Actor{ID: booking.ProviderID, Role: models.RoleArtisan}

	accepted, _, err := e.ApplyBooking(booking, artisan, ActionAccept)
	if err != nil {
		t.Fatalf("ApplyBooking(accept) = %v, want nil", err)
	}
	if accepted.Status != models.BookingStatusInProgress {
		t.Fatalf("status = %s, want inprogress", accepted.Status)
	}

	completed, _, err := e.ApplyBooking(accepted, artisan, ActionMarkComplete)
	if err != nil {
		t.Fatalf("ApplyBooking(mark_complete) = %v, want nil", err)
	}
	if completed.Status != models.BookingStatusCompleted {
		t.Fatalf("status = %s, want completed", completed.Status)
	}
	if completed.CompletedAt.IsZero() {
		t.Fatal("CompletedAt not set")
	}
	if len(completed.Activities) != 3 {
		t.Fatalf("activities = %d, want 3", len(completed.Activities))
	}
	for i := 1; i < len(completed.Activities); i++ {
		if completed.Activities[i].Timestamp.Before(completed.Activities[i-1].Timestamp) {
			t.Fatal("activity log timestamps are not monotonic")
		}
	}
}

func TestEngineRescheduleBooking(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status models.BookingStatus
		actor  Actor
		input  RescheduleInput
		want   error
	}{
		{
			name:   "artisan reschedules with full input",
			status: models.BookingStatusPending,
			actor:  Actor{Role: models.RoleArtisan},
			input:  RescheduleInput{Date: "2026-04-01", StartTime: "09:00", EndTime: "11:00"},
		},
		{
			name:   "date without time rejected",
			status: models.BookingStatusPending,
			actor:  Actor{Role: models.RoleArtisan},
			input:  RescheduleInput{Date: "2026-04-01"},
			want:   ErrValidation,
		},
		{
			name:   "time without date rejected",
			status: models.BookingStatusPending,
			actor:  Actor{Role: models.RoleArtisan},
			input:  RescheduleInput{StartTime: "09:00"},
			want:   ErrValidation,
		},
		{
			name:   "malformed date rejected",
			status: models.BookingStatusPending,
			actor:  Actor{Role: models.RoleArtisan},
			input:  RescheduleInput{Date: "April 1st", StartTime: "09:00"},
			want:   ErrValidation,
		},
		{
			name:   "customer may not reschedule",
			status: models.BookingStatusPending,
			actor:  Actor{Role: models.RoleCustomer},
			input:  RescheduleInput{Date: "2026-04-01", StartTime: "09:00"},
			want:   ErrForbidden,
		},
		{
			name:   "terminal booking may not be rescheduled",
			status: models.BookingStatusCompleted,
			actor:  Actor{Role: models.RoleAdmin},
			input:  RescheduleInput{Date: "2026-04-01", StartTime: "09:00"},
			want:   ErrInvalidTransition,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			e := newTestEngine(nil)
			booking := newTestBooking(tc.status)
			snapshot := booking.Clone()

			updated, _, err := e.RescheduleBooking(booking, tc.actor, tc.input)
			if tc.want != nil {
				if !errors.Is(err, tc.want) {
					t.Fatalf("RescheduleBooking error = %v, want %v", err, tc.want)
				}
				if !reflect.DeepEqual(booking, snapshot) {
					t.Fatal("failed reschedule mutated the booking")
				}
				return
			}
			if err != nil {
				t.Fatalf("RescheduleBooking = %v, want nil", err)
			}
			if updated.Status != tc.status {
				t.Fatalf("reschedule changed status to %s", updated.Status)
			}
			if updated.Date != tc.input.Date || updated.StartTime != tc.input.StartTime {
				t.Fatalf("schedule = %s %s, want %s %s", updated.Date, updated.StartTime, tc.input.Date, tc.input.StartTime)
			}
			if got := updated.Activities[len(updated.Activities)-1].Kind; got != models.ActivityRescheduled {
				t.Fatalf("activity kind = %s, want rescheduled", got)
			}
		})
	}
}

func newTestCustomOrder(status models.OrderStatus) *models.Order {
	o := newTestOrder(status)
	o.Kind = models.OrderKindCustom
	o.SellerRole = models.RoleArtisan
	o.CustomSpecs = &models.CustomSpecs{Materials: []string{"cherry"}, TimelineDays: 21}
	return o
}

func TestEngineAttachOrderSpecs(t *testing.T) {
	t.Parallel()

	specs := &models.CustomSpecs{
		Materials:       []string{"walnut", "brass"},
		TimelineDays:    30,
		ReferenceImages: []string{"https://example.test/sketch.png"},
		Notes:           "matte finish",
	}

	e := newTestEngine(nil)
	order := newTestCustomOrder(models.OrderStatusPending)
	artisan := Actor{ID: order.SellerID, Role: models.RoleArtisan}

	updated, entry, err := e.AttachOrderSpecs(order, artisan, specs)
	if err != nil {
		t.Fatalf("AttachOrderSpecs = %v, want nil", err)
	}
	if updated.Status != models.OrderStatusPending {
		t.Fatalf("attach changed status to %s", updated.Status)
	}
	if !reflect.DeepEqual(updated.CustomSpecs, specs) {
		t.Fatalf("specs = %+v, want %+v", updated.CustomSpecs, specs)
	}
	if updated.CustomSpecs == specs {
		t.Fatal("record aliases the caller's specs")
	}
	if entry.Kind != models.ActivitySpecsAttached {
		t.Fatalf("activity kind = %s, want specs_attached", entry.Kind)
	}
	if order.CustomSpecs.TimelineDays != 21 {
		t.Fatal("input order specs were mutated")
	}
}

func TestEngineAttachOrderSpecsRejections(t *testing.T) {
	t.Parallel()

	valid := &models.CustomSpecs{Materials: []string{"oak"}, TimelineDays: 14}
	tests := []struct {
		name  string
		order *models.Order
		actor Actor
		specs *models.CustomSpecs
		want  error
	}{
		{name: "nil specs", order: newTestCustomOrder(models.OrderStatusPending), actor: Actor{Role: models.RoleArtisan}, want: ErrValidation},
		{name: "negative timeline", order: newTestCustomOrder(models.OrderStatusPending), actor: Actor{Role: models.RoleArtisan}, specs: &models.CustomSpecs{TimelineDays: -1}, want: ErrValidation},
		{name: "standard order", order: newTestOrder(models.OrderStatusPending), actor: Actor{Role: models.RoleArtisan}, specs: valid, want: ErrValidation},
		{name: "vendor may not attach", order: newTestCustomOrder(models.OrderStatusPending), actor: Actor{Role: models.RoleVendor}, specs: valid, want: ErrForbidden},
		{name: "customer may not attach", order: newTestCustomOrder(models.OrderStatusPending), actor: Actor{Role: models.RoleCustomer}, specs: valid, want: ErrForbidden},
		{name: "accepted order is fixed", order: newTestCustomOrder(models.OrderStatusInTransit), actor: Actor{Role: models.RoleArtisan}, specs: valid, want: ErrInvalidTransition},
		{name: "admin still bound by pending", order: newTestCustomOrder(models.OrderStatusDelivered), actor: Actor{Role: models.RoleAdmin}, specs: valid, want: ErrInvalidTransition},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			e := newTestEngine(nil)
			snapshot := tc.order.Clone()

			updated, _, err := e.AttachOrderSpecs(tc.order, tc.actor, tc.specs)
			if !errors.Is(err, tc.want) {
				t.Fatalf("AttachOrderSpecs error = %v, want %v", err, tc.want)
			}
			if updated != nil {
				t.Fatal("failed attach returned an updated record")
			}
			if !reflect.DeepEqual(tc.order, snapshot) {
				t.Fatal("failed attach mutated the input record")
			}
		})
	}
}
