package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/artisanhubapp/artisanhub/internal/lifecycle"
	"github.com/artisanhubapp/artisanhub/internal/models"
)

func bookingRequest(t *testing.T, method, body string, id uuid.UUID, actor lifecycle.Actor) *http.Request {
	t.Helper()

	req := httptest.NewRequest(method, "/api/bookings/"+id.String(), strings.NewReader(body))
	req = req.WithContext(actorContext(actor))
	return mux.SetURLVars(req, map[string]string{"id": id.String()})
}

func decodeBooking(t *testing.T, rec *httptest.ResponseRecorder) *models.Booking {
	t.Helper()

	var booking models.Booking
	if err := json.NewDecoder(rec.Body).Decode(&booking); err != nil {
		t.Fatalf("failed to decode booking response: %v", err)
	}
	return &booking
}

func TestBookingActionAppliesTransition(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	provider := lifecycle.Actor{ID: env.bookings.booking.ProviderID, Role: models.RoleArtisan}

	rec := httptest.NewRecorder()
	env.handlers.BookingAction(rec, bookingRequest(t, http.MethodPost, `{"action":"accept"}`, env.bookings.booking.ID, provider))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}
	if got := decodeBooking(t, rec); got.Status != models.BookingStatusInProgress {
		t.Fatalf("expected status %s, got %s", models.BookingStatusInProgress, got.Status)
	}
}

func TestBookingActionRejectsVendor(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	vendor := lifecycle.Actor{ID: env.bookings.booking.ProviderID, Role: models.RoleVendor}

	rec := httptest.NewRecorder()
	env.handlers.BookingAction(rec, bookingRequest(t, http.MethodPost, `{"action":"accept"}`, env.bookings.booking.ID, vendor))

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected status %d, got %d", http.StatusForbidden, rec.Code)
	}
}

func TestBookingRescheduleUpdatesSchedule(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	provider := lifecycle.Actor{ID: env.bookings.booking.ProviderID, Role: models.RoleArtisan}
	body := `{"date":"2026-04-09","start_time":"14:00","end_time":"16:00"}`

	rec := httptest.NewRecorder()
	env.handlers.BookingReschedule(rec, bookingRequest(t, http.MethodPost, body, env.bookings.booking.ID, provider))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}
	got := decodeBooking(t, rec)
	if got.Date != "2026-04-09" || got.StartTime != "14:00" || got.EndTime != "16:00" {
		t.Fatalf("expected rescheduled slot, got %s %s-%s", got.Date, got.StartTime, got.EndTime)
	}
	if got.Status != models.BookingStatusPending {
		t.Fatalf("expected status unchanged, got %s", got.Status)
	}
}

func TestBookingRescheduleRejectsPartialSlot(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	provider := lifecycle.Actor{ID: env.bookings.booking.ProviderID, Role: models.RoleArtisan}

	rec := httptest.NewRecorder()
	env.handlers.BookingReschedule(rec, bookingRequest(t, http.MethodPost, `{"date":"2026-04-09"}`, env.bookings.booking.ID, provider))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestBookingRefundRequestOpensDispute(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.bookings.booking.Status = models.BookingStatusCancelled
	env.bookings.booking.CancelledAt = time.Now().Add(-time.Hour)
	customer := lifecycle.Actor{ID: env.bookings.booking.CustomerID, Role: models.RoleCustomer}

	rec := httptest.NewRecorder()
	env.handlers.BookingRefundRequest(rec, bookingRequest(t, http.MethodPost, "", env.bookings.booking.ID, customer))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}
	if got := decodeBooking(t, rec); got.Refund != models.RefundRequested {
		t.Fatalf("expected refund %s, got %s", models.RefundRequested, got.Refund)
	}
}

func TestBookingRefundRequestMapsPolicyViolation(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.bookings.booking.Status = models.BookingStatusCompleted
	env.bookings.booking.CompletedAt = time.Now().Add(-time.Hour)
	customer := lifecycle.Actor{ID: env.bookings.booking.CustomerID, Role: models.RoleCustomer}

	rec := httptest.NewRecorder()
	env.handlers.BookingRefundRequest(rec, bookingRequest(t, http.MethodPost, "", env.bookings.booking.ID, customer))

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status %d, got %d", http.StatusUnprocessableEntity, rec.Code)
	}
	if code := decodeErrorCode(t, rec); code != "policy_violation" {
		t.Fatalf("expected error code policy_violation, got %s", code)
	}
}

func TestBookingRefundResolveApprove(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.bookings.booking.Status = models.BookingStatusCancelled
	env.bookings.booking.Refund = models.RefundRequested
	admin := lifecycle.Actor{ID: uuid.New(), Role: models.RoleAdmin}

	rec := httptest.NewRecorder()
	env.handlers.BookingRefundResolve(rec, bookingRequest(t, http.MethodPost, `{"decision":"approve"}`, env.bookings.booking.ID, admin))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}
	if got := decodeBooking(t, rec); got.Refund != models.RefundApproved {
		t.Fatalf("expected refund %s, got %s", models.RefundApproved, got.Refund)
	}
}
