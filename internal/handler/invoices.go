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
	"github.com/scanbite/api/internal/enum"
	"github.com/scanbite/api/internal/middleware"
	"github.com/scanbite/api/internal/service"
	"github.com/shopspring/decimal"
)

// InvoiceServicer defines the service methods needed by invoice handlers.
// Satisfied by *service.InvoiceService.
type InvoiceServicer interface {
	BuildInvoice(ctx context.Context, req service.BuildInvoiceRequest) (*service.BuildInvoiceResult, error)
}

// InvoiceStore defines the database methods needed by invoice read handlers.
// Satisfied by *database.Queries.
type InvoiceStore interface {
	GetInvoice(ctx context.Context, arg database.GetInvoiceParams) (database.Invoice, error)
	ListInvoicesByOrder(ctx context.Context, arg database.ListInvoicesByOrderParams) ([]database.Invoice, error)
	ListInvoiceTaxLines(ctx context.Context, invoiceID uuid.UUID) ([]database.InvoiceTaxLine, error)
}

// InvoiceHandler handles the staff billing endpoints.
type InvoiceHandler struct {
	svc   InvoiceServicer
	store InvoiceStore
}

// NewInvoiceHandler creates a new InvoiceHandler.
func NewInvoiceHandler(svc InvoiceServicer, store InvoiceStore) *InvoiceHandler {
	return &InvoiceHandler{svc: svc, store: store}
}

// RegisterRoutes registers the authenticated invoice endpoints.
func (h *InvoiceHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.ListForOrder)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
}

// --- Request / Response types ---

type createInvoiceRequest struct {
	OrderID       string `json:"order_id"`
	Discount      string `json:"discount"`
	Tip           string `json:"tip"`
	PaymentMethod string `json:"payment_method"`
}

type invoiceResponse struct {
	ID            uuid.UUID             `json:"id"`
	TenantID      uuid.UUID             `json:"tenant_id"`
	OrderID       uuid.UUID             `json:"order_id"`
	InvoiceNumber string                `json:"invoice_number"`
	CustomerName  *string               `json:"customer_name"`
	CustomerPhone *string               `json:"customer_phone"`
	Subtotal      string                `json:"subtotal"`
	Discount      string                `json:"discount"`
	Tip           string                `json:"tip"`
	GrandTotal    string                `json:"grand_total"`
	PaymentMethod string                `json:"payment_method"`
	PaymentStatus string                `json:"payment_status"`
	CreatedAt     time.Time             `json:"created_at"`
	TaxLines      []invoiceTaxLineReply `json:"tax_lines"`
}

type invoiceTaxLineReply struct {
	Name   string `json:"name"`
	Rate   string `json:"rate"`
	Amount string `json:"amount"`
}

// --- Handlers ---

// Create handles POST /invoices: freezes an order into a billing snapshot.
// Invoicing the same order twice produces two invoices with distinct numbers
// but identical amounts; the frontend guards double-submits.
func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req createInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order_id"})
		return
	}

	discount, err := parseAmount(req.Discount)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid discount"})
		return
	}
	tip, err := parseAmount(req.Tip)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid tip"})
		return
	}

	switch req.PaymentMethod {
	case enum.PaymentMethodCash, enum.PaymentMethodCard, enum.PaymentMethodUPI:
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payment_method"})
		return
	}

	result, err := h.svc.BuildInvoice(r.Context(), service.BuildInvoiceRequest{
		TenantID:      claims.TenantID,
		OrderID:       orderID,
		Discount:      discount,
		Tip:           tip,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
		case errors.Is(err, service.ErrNegativeAdjustment), errors.Is(err, service.ErrInvalidPaymentMethod):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		default:
			log.Printf("ERROR: build invoice: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	writeJSON(w, http.StatusCreated, dbInvoiceToResponse(result.Invoice, result.TaxLines))
}

// ListForOrder handles GET /invoices?order_id=... Lets staff check whether an
// order was already invoiced before freezing it again.
func (h *InvoiceHandler) ListForOrder(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	orderID, err := uuid.Parse(r.URL.Query().Get("order_id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order_id"})
		return
	}

	invoices, err := h.store.ListInvoicesByOrder(r.Context(), database.ListInvoicesByOrderParams{
		OrderID:  orderID,
		TenantID: claims.TenantID,
	})
	if err != nil {
		log.Printf("ERROR: list invoices: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]invoiceResponse, len(invoices))
	for i, inv := range invoices {
		lines, err := h.store.ListInvoiceTaxLines(r.Context(), inv.ID)
		if err != nil {
			log.Printf("ERROR: list invoice tax lines: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}
		resp[i] = dbInvoiceToResponse(inv, lines)
	}
	writeJSON(w, http.StatusOK, map[string]any{"invoices": resp})
}

// Get handles GET /invoices/{id}.
func (h *InvoiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	invoiceID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid invoice ID"})
		return
	}

	invoice, err := h.store.GetInvoice(r.Context(), database.GetInvoiceParams{ID: invoiceID, TenantID: claims.TenantID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "invoice not found"})
			return
		}
		log.Printf("ERROR: get invoice: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	lines, err := h.store.ListInvoiceTaxLines(r.Context(), invoice.ID)
	if err != nil {
		log.Printf("ERROR: list invoice tax lines: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, dbInvoiceToResponse(invoice, lines))
}

// --- Helpers ---

func parseAmount(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

func dbInvoiceToResponse(inv database.Invoice, lines []database.InvoiceTaxLine) invoiceResponse {
	resp := invoiceResponse{
		ID:            inv.ID,
		TenantID:      inv.TenantID,
		OrderID:       inv.OrderID,
		InvoiceNumber: inv.InvoiceNumber,
		Subtotal:      numericToString(inv.Subtotal),
		Discount:      numericToString(inv.Discount),
		Tip:           numericToString(inv.Tip),
		GrandTotal:    numericToString(inv.GrandTotal),
		PaymentMethod: inv.PaymentMethod,
		PaymentStatus: string(inv.PaymentStatus),
		CreatedAt:     inv.CreatedAt,
		TaxLines:      make([]invoiceTaxLineReply, len(lines)),
	}
	if inv.CustomerName.Valid {
		resp.CustomerName = &inv.CustomerName.String
	}
	if inv.CustomerPhone.Valid {
		resp.CustomerPhone = &inv.CustomerPhone.String
	}
	for i, l := range lines {
		resp.TaxLines[i] = invoiceTaxLineReply{
			Name:   l.Name,
			Rate:   numericToString(l.Rate),
			Amount: numericToString(l.Amount),
		}
	}
	return resp
}
