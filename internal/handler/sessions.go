package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/scanbite/api/internal/database"
	"github.com/scanbite/api/internal/service"
)

// SessionBinder defines the service methods needed by session handlers.
// Satisfied by *service.SessionService.
type SessionBinder interface {
	BindByToken(ctx context.Context, qrToken string) (*service.Binding, error)
	BindByNumber(ctx context.Context, arg database.GetTableByNumberParams) (*service.Binding, error)
}

// SessionHandler binds customer devices to tables.
type SessionHandler struct {
	svc SessionBinder
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(svc SessionBinder) *SessionHandler {
	return &SessionHandler{svc: svc}
}

// RegisterRoutes registers the public session endpoints.
func (h *SessionHandler) RegisterRoutes(r chi.Router) {
	r.Post("/sessions", h.Bind)
}

// --- Request / Response types ---

type bindSessionRequest struct {
	QrToken     string `json:"qr_token"`
	TenantID    string `json:"tenant_id"`
	TableNumber int32  `json:"table_number"`
}

type bindSessionResponse struct {
	SessionToken   string    `json:"session_token"`
	TableID        uuid.UUID `json:"table_id"`
	TableNumber    int32     `json:"table_number"`
	DisplayName    *string   `json:"display_name"`
	RestaurantName string    `json:"restaurant_name"`
}

// --- Handlers ---

// Bind handles POST /sessions. A scanned QR token takes precedence; the
// manual flow sends tenant_id + table_number instead. Re-binding replaces
// whatever token the client held before — a customer sits at one table.
func (h *SessionHandler) Bind(w http.ResponseWriter, r *http.Request) {
	var req bindSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	var (
		binding *service.Binding
		err     error
	)
	switch {
	case req.QrToken != "":
		binding, err = h.svc.BindByToken(r.Context(), req.QrToken)
	case req.TenantID != "" && req.TableNumber > 0:
		tenantID, parseErr := uuid.Parse(req.TenantID)
		if parseErr != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid tenant_id"})
			return
		}
		binding, err = h.svc.BindByNumber(r.Context(), database.GetTableByNumberParams{
			Number:   req.TableNumber,
			TenantID: tenantID,
		})
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "qr_token or tenant_id + table_number is required"})
		return
	}
	if err != nil {
		if errors.Is(err, service.ErrInvalidTable) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "table not found or inactive"})
			return
		}
		log.Printf("ERROR: bind session: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := bindSessionResponse{
		SessionToken:   binding.SessionToken,
		TableID:        binding.Table.ID,
		TableNumber:    binding.Table.Number,
		RestaurantName: binding.Tenant.Name,
	}
	if binding.Table.DisplayName.Valid {
		resp.DisplayName = &binding.Table.DisplayName.String
	}
	writeJSON(w, http.StatusOK, resp)
}
