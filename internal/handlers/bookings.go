package handlers

import (
	"net/http"

	"github.com/artisanhubapp/artisanhub/internal/auth"
	"github.com/artisanhubapp/artisanhub/internal/lifecycle"
)

type rescheduleRequest struct {
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// BookingGet returns a single booking visible to the caller.
func (h *Handlers) BookingGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := auth.ActorFromContext(ctx)
	if !ok {
		writeAPIError(w, http.StatusUnauthorized, "unauthorized", "missing actor")
		return
	}
	id, err := recordID(r)
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	booking, err := h.bookingService.Get(ctx, id, actor)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

// BookingAction applies a lifecycle transition to a booking.
func (h *Handlers) BookingAction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := auth.ActorFromContext(ctx)
	if !ok {
		writeAPIError(w, http.StatusUnauthorized, "unauthorized", "missing actor")
		return
	}
	id, err := recordID(r)
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	var req actionRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeAPIError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}
	action, err := lifecycle.ParseAction(req.Action)
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	booking, err := h.bookingService.ApplyAction(ctx, id, actor, action)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

// BookingReschedule replaces the booking's date and time.
func (h *Handlers) BookingReschedule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := auth.ActorFromContext(ctx)
	if !ok {
		writeAPIError(w, http.StatusUnauthorized, "unauthorized", "missing actor")
		return
	}
	id, err := recordID(r)
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	var req rescheduleRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeAPIError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	booking, err := h.bookingService.Reschedule(ctx, id, actor, lifecycle.RescheduleInput{
		Date:      req.Date,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	})
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

// BookingRefundRequest opens the dispute sub-flow on a booking.
func (h *Handlers) BookingRefundRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := auth.ActorFromContext(ctx)
	if !ok {
		writeAPIError(w, http.StatusUnauthorized, "unauthorized", "missing actor")
		return
	}
	id, err := recordID(r)
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	booking, err := h.bookingService.RequestRefund(ctx, id, actor)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

// BookingRefundResolve records the admin's approve/deny decision.
func (h *Handlers) BookingRefundResolve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := auth.ActorFromContext(ctx)
	if !ok {
		writeAPIError(w, http.StatusUnauthorized, "unauthorized", "missing actor")
		return
	}
	id, err := recordID(r)
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	var req resolveRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeAPIError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}
	approve, err := parseDecision(req.Decision)
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	booking, err := h.bookingService.ResolveRefund(ctx, id, actor, approve)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}
