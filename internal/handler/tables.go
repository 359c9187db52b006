package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/scanbite/api/internal/database"
	"github.com/scanbite/api/internal/middleware"
)

// TableStore defines the database methods needed by table admin handlers.
// Satisfied by *database.Queries.
type TableStore interface {
	ListTables(ctx context.Context, tenantID uuid.UUID) ([]database.Table, error)
	GetTable(ctx context.Context, arg database.GetTableParams) (database.Table, error)
	CreateTable(ctx context.Context, arg database.CreateTableParams) (database.Table, error)
	SetTableActive(ctx context.Context, arg database.SetTableActiveParams) (database.Table, error)
	CountOpenOrdersByTable(ctx context.Context, tableID uuid.UUID) (int64, error)
	DeleteTable(ctx context.Context, arg database.DeleteTableParams) error
}

// TableHandler handles the admin table endpoints.
type TableHandler struct {
	store TableStore
}

// NewTableHandler creates a new TableHandler.
func NewTableHandler(store TableStore) *TableHandler {
	return &TableHandler{store: store}
}

// RegisterRoutes registers the admin table endpoints.
func (h *TableHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Patch("/{id}/active", h.SetActive)
	r.Delete("/{id}", h.Delete)
}

// --- Request / Response types ---

type createTableRequest struct {
	Number      int32  `json:"number"`
	DisplayName string `json:"display_name"`
}

type setTableActiveRequest struct {
	IsActive bool `json:"is_active"`
}

type tableResponse struct {
	ID          uuid.UUID `json:"id"`
	TenantID    uuid.UUID `json:"tenant_id"`
	Number      int32     `json:"number"`
	DisplayName *string   `json:"display_name"`
	QrToken     string    `json:"qr_token"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// --- Handlers ---

// List handles GET /tables.
func (h *TableHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	tables, err := h.store.ListTables(r.Context(), claims.TenantID)
	if err != nil {
		log.Printf("ERROR: list tables: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]tableResponse, len(tables))
	for i, t := range tables {
		resp[i] = dbTableToResponse(t)
	}
	writeJSON(w, http.StatusOK, map[string]any{"tables": resp})
}

// Create handles POST /tables. Each table gets a fresh opaque QR token;
// reprinting a QR code means creating a new table or rotating the token.
func (h *TableHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req createTableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Number <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "number must be positive"})
		return
	}

	displayName := pgtype.Text{}
	if req.DisplayName != "" {
		displayName = pgtype.Text{String: req.DisplayName, Valid: true}
	}

	table, err := h.store.CreateTable(r.Context(), database.CreateTableParams{
		TenantID:    claims.TenantID,
		Number:      req.Number,
		DisplayName: displayName,
		QrToken:     newQrToken(),
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "table number already exists"})
			return
		}
		log.Printf("ERROR: create table: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, dbTableToResponse(table))
}

// SetActive handles PATCH /tables/{id}/active. Deactivating a table blocks
// new session binds without touching existing orders.
func (h *TableHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	tableID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid table ID"})
		return
	}

	var req setTableActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	table, err := h.store.SetTableActive(r.Context(), database.SetTableActiveParams{
		ID:       tableID,
		TenantID: claims.TenantID,
		IsActive: req.IsActive,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "table not found"})
			return
		}
		log.Printf("ERROR: set table active: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, dbTableToResponse(table))
}

// Delete handles DELETE /tables/{id}. Refuses while the table still has
// orders in flight.
func (h *TableHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	tableID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid table ID"})
		return
	}

	if _, err := h.store.GetTable(r.Context(), database.GetTableParams{ID: tableID, TenantID: claims.TenantID}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "table not found"})
			return
		}
		log.Printf("ERROR: get table: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	openCount, err := h.store.CountOpenOrdersByTable(r.Context(), tableID)
	if err != nil {
		log.Printf("ERROR: count open orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if openCount > 0 {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "table has open orders"})
		return
	}

	if err := h.store.DeleteTable(r.Context(), database.DeleteTableParams{ID: tableID, TenantID: claims.TenantID}); err != nil {
		log.Printf("ERROR: delete table: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- Helpers ---

func newQrToken() string {
	buf := make([]byte, 16)
	rand.Read(buf) //nolint:errcheck
	return hex.EncodeToString(buf)
}

func dbTableToResponse(t database.Table) tableResponse {
	resp := tableResponse{
		ID:        t.ID,
		TenantID:  t.TenantID,
		Number:    t.Number,
		QrToken:   t.QrToken,
		IsActive:  t.IsActive,
		CreatedAt: t.CreatedAt,
	}
	if t.DisplayName.Valid {
		resp.DisplayName = &t.DisplayName.String
	}
	return resp
}
