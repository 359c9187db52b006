package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/scanbite/api/internal/database"
	"github.com/scanbite/api/internal/middleware"
	"github.com/scanbite/api/internal/service"
)

// CallServicer defines the service methods needed by waiter-call handlers.
// Satisfied by *service.WaiterCallService.
type CallServicer interface {
	RequestCall(ctx context.Context, tenantID, tableID uuid.UUID, reason string) (*service.RequestCallResult, error)
	Attend(ctx context.Context, tenantID, callID, staffID uuid.UUID) (database.WaiterCall, error)
	Complete(ctx context.Context, tenantID, callID uuid.UUID) (database.WaiterCall, error)
}

// CallStore defines the database methods needed by waiter-call read handlers.
// Satisfied by *database.Queries.
type CallStore interface {
	ListWaiterCalls(ctx context.Context, arg database.ListWaiterCallsParams) ([]database.WaiterCall, error)
	GetOpenWaiterCallByTable(ctx context.Context, arg database.GetOpenWaiterCallByTableParams) (database.WaiterCall, error)
}

// CallHandler handles waiter-call endpoints for customers and staff.
type CallHandler struct {
	svc   CallServicer
	store CallStore
}

// NewCallHandler creates a new CallHandler.
func NewCallHandler(svc CallServicer, store CallStore) *CallHandler {
	return &CallHandler{svc: svc, store: store}
}

// RegisterCustomerRoutes registers the session-gated customer endpoints.
func (h *CallHandler) RegisterCustomerRoutes(r chi.Router) {
	r.Post("/calls", h.Request)
	r.Get("/calls", h.OpenForTable)
}

// RegisterStaffRoutes registers the authenticated staff endpoints.
func (h *CallHandler) RegisterStaffRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Patch("/{id}/attend", h.Attend)
	r.Patch("/{id}/complete", h.Complete)
}

// --- Request / Response types ---

type requestCallRequest struct {
	Reason string `json:"reason"`
}

type callResponse struct {
	ID            uuid.UUID  `json:"id"`
	TenantID      uuid.UUID  `json:"tenant_id"`
	TableID       uuid.UUID  `json:"table_id"`
	Reason        *string    `json:"reason"`
	Status        string     `json:"status"`
	AttendedBy    *uuid.UUID `json:"attended_by"`
	AttendedAt    *time.Time `json:"attended_at"`
	RequestedAgo  string     `json:"requested_ago"`
	CreatedAt     time.Time  `json:"created_at"`
	AlreadyCalled bool       `json:"already_called,omitempty"`
}

// --- Customer handlers ---

// Request handles POST /t/calls. Pressing the button twice is answered with
// the same open call and already_called=true instead of an error.
func (h *CallHandler) Request(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())
	if sess == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "no_active_session"})
		return
	}

	var req requestCallRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}
	}

	result, err := h.svc.RequestCall(r.Context(), sess.TenantID, sess.TableID, req.Reason)
	if err != nil {
		if errors.Is(err, service.ErrOpenCallGone) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
			return
		}
		log.Printf("ERROR: request waiter call: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := dbCallToResponse(result.Call)
	resp.AlreadyCalled = result.AlreadyCalled
	status := http.StatusCreated
	if result.AlreadyCalled {
		status = http.StatusOK
	}
	writeJSON(w, status, resp)
}

// OpenForTable handles GET /t/calls: the customer's view of their own open
// call, if any.
func (h *CallHandler) OpenForTable(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())
	if sess == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "no_active_session"})
		return
	}

	call, err := h.store.GetOpenWaiterCallByTable(r.Context(), database.GetOpenWaiterCallByTableParams{
		TableID:  sess.TableID,
		TenantID: sess.TenantID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusOK, map[string]any{"call": nil})
			return
		}
		log.Printf("ERROR: get open call: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := dbCallToResponse(call)
	writeJSON(w, http.StatusOK, map[string]any{"call": resp})
}

// --- Staff handlers ---

// List handles GET /calls. The waiter board polls with ?open=true; history
// views omit it.
func (h *CallHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	onlyOpen := r.URL.Query().Get("open") == "true"

	calls, err := h.store.ListWaiterCalls(r.Context(), database.ListWaiterCallsParams{
		TenantID: claims.TenantID,
		OnlyOpen: onlyOpen,
	})
	if err != nil {
		log.Printf("ERROR: list waiter calls: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]callResponse, len(calls))
	for i, c := range calls {
		resp[i] = dbCallToResponse(c)
	}
	writeJSON(w, http.StatusOK, map[string]any{"calls": resp})
}

// Attend handles PATCH /calls/{id}/attend.
func (h *CallHandler) Attend(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	callID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid call ID"})
		return
	}

	call, err := h.svc.Attend(r.Context(), claims.TenantID, callID, claims.UserID)
	if err != nil {
		if errors.Is(err, service.ErrCallNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "call not found"})
			return
		}
		if errors.Is(err, service.ErrInvalidTransition) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
			return
		}
		log.Printf("ERROR: attend call: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, dbCallToResponse(call))
}

// Complete handles PATCH /calls/{id}/complete.
func (h *CallHandler) Complete(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	callID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid call ID"})
		return
	}

	call, err := h.svc.Complete(r.Context(), claims.TenantID, callID)
	if err != nil {
		if errors.Is(err, service.ErrCallNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "call not found"})
			return
		}
		if errors.Is(err, service.ErrInvalidTransition) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
			return
		}
		log.Printf("ERROR: complete call: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, dbCallToResponse(call))
}

// --- Helpers ---

func dbCallToResponse(c database.WaiterCall) callResponse {
	resp := callResponse{
		ID:           c.ID,
		TenantID:     c.TenantID,
		TableID:      c.TableID,
		Status:       string(c.Status),
		RequestedAgo: service.FormatAge(c.CreatedAt, time.Now()),
		CreatedAt:    c.CreatedAt,
	}
	if c.Reason.Valid {
		resp.Reason = &c.Reason.String
	}
	if c.AttendedBy.Valid {
		id := uuid.UUID(c.AttendedBy.Bytes)
		resp.AttendedBy = &id
	}
	if c.AttendedAt.Valid {
		t := c.AttendedAt.Time
		resp.AttendedAt = &t
	}
	return resp
}
