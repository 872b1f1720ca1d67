package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/artisanhubapp/artisanhub/internal/auth"
	"github.com/artisanhubapp/artisanhub/internal/lifecycle"
	"github.com/artisanhubapp/artisanhub/internal/models"
)

type actionRequest struct {
	Action string `json:"action"`
}

type resolveRequest struct {
	Decision string `json:"decision"`
}

type attachSpecsRequest struct {
	Materials       []string `json:"materials"`
	TimelineDays    int      `json:"timeline_days"`
	ReferenceImages []string `json:"reference_images"`
	Notes           string   `json:"notes"`
}

// OrderGet returns a single order visible to the caller.
func (h *Handlers) OrderGet(w http.ResponseWriter, r *http.Request) {
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

	order, err := h.orderService.Get(ctx, id, actor)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// OrderAction applies a lifecycle transition to an order.
func (h *Handlers) OrderAction(w http.ResponseWriter, r *http.Request) {
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

	order, err := h.orderService.ApplyAction(ctx, id, actor, action)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// OrderAttachSpecs replaces the bespoke specification of a pending custom
// order.
func (h *Handlers) OrderAttachSpecs(w http.ResponseWriter, r *http.Request) {
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

	var req attachSpecsRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeAPIError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	specs := &models.CustomSpecs{
		Materials:       req.Materials,
		TimelineDays:    req.TimelineDays,
		ReferenceImages: req.ReferenceImages,
		Notes:           req.Notes,
	}
	order, err := h.orderService.AttachSpecs(ctx, id, actor, specs)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// OrderRefundRequest opens the dispute sub-flow on an order.
func (h *Handlers) OrderRefundRequest(w http.ResponseWriter, r *http.Request) {
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

	order, err := h.orderService.RequestRefund(ctx, id, actor)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// OrderRefundResolve records the admin's approve/deny decision.
func (h *Handlers) OrderRefundResolve(w http.ResponseWriter, r *http.Request) {
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

	order, err := h.orderService.ResolveRefund(ctx, id, actor, approve)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func recordID(r *http.Request) (uuid.UUID, error) {
	raw := mux.Vars(r)["id"]
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid record id %q", raw)
	}
	return id, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func parseDecision(decision string) (bool, error) {
	switch decision {
	case "approve":
		return true, nil
	case "deny":
		return false, nil
	default:
		return false, fmt.Errorf("decision must be 'approve' or 'deny', got %q", decision)
	}
}
