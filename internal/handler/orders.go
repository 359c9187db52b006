package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/scanbite/api/internal/database"
	"github.com/scanbite/api/internal/middleware"
	"github.com/scanbite/api/internal/service"
	"github.com/shopspring/decimal"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.CreateOrderResult, error)
}

// OrderStore defines the database methods needed by order read/update
// handlers. Satisfied by *database.Queries.
type OrderStore interface {
	GetOrder(ctx context.Context, arg database.GetOrderParams) (database.Order, error)
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	ListOrdersByTable(ctx context.Context, arg database.ListOrdersByTableParams) ([]database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	SetOrderPaymentStatus(ctx context.Context, arg database.SetOrderPaymentStatusParams) (database.Order, error)
}

// OrderHandler handles order endpoints for both the customer surface and
// the staff surface.
type OrderHandler struct {
	svc   OrderServicer
	store OrderStore
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServicer, store OrderStore) *OrderHandler {
	return &OrderHandler{svc: svc, store: store}
}

// RegisterCustomerRoutes registers the session-gated customer endpoints.
// Expected to be mounted behind the TableSession middleware.
func (h *OrderHandler) RegisterCustomerRoutes(r chi.Router) {
	r.Post("/orders", h.CreateFromSession)
	r.Get("/orders", h.TrackBySession)
}

// RegisterStaffRoutes registers the authenticated staff endpoints.
func (h *OrderHandler) RegisterStaffRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Patch("/{id}/status", h.UpdateStatus)
	r.Patch("/{id}/payment", h.UpdatePayment)
	r.Delete("/{id}", h.Cancel)
}

// --- Request / Response types ---

type createOrderRequest struct {
	CustomerName    string                   `json:"customer_name"`
	CustomerPhone   string                   `json:"customer_phone"`
	SpecialRequests string                   `json:"special_requests"`
	Items           []createOrderItemRequest `json:"items"`
}

type createOrderItemRequest struct {
	MenuItemID     string            `json:"menu_item_id"`
	Quantity       int32             `json:"quantity"`
	Customizations map[string]string `json:"customizations"`
	Notes          string            `json:"notes"`
}

type orderResponse struct {
	ID              uuid.UUID           `json:"id"`
	TenantID        uuid.UUID           `json:"tenant_id"`
	TableID         uuid.UUID           `json:"table_id"`
	OrderNumber     string              `json:"order_number"`
	CustomerName    *string             `json:"customer_name"`
	CustomerPhone   *string             `json:"customer_phone"`
	Status          string              `json:"status"`
	PaymentStatus   string              `json:"payment_status"`
	Subtotal        string              `json:"subtotal"`
	TaxAmount       string              `json:"tax_amount"`
	TotalAmount     string              `json:"total_amount"`
	EstimatedTime   int32               `json:"estimated_time"`
	SpecialRequests *string             `json:"special_requests"`
	PlacedAgo       string              `json:"placed_ago"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
	Items           []orderItemResponse `json:"items,omitempty"`
}

type orderItemResponse struct {
	ID             uuid.UUID         `json:"id"`
	MenuItemID     uuid.UUID         `json:"menu_item_id"`
	Name           string            `json:"name"`
	Quantity       int32             `json:"quantity"`
	UnitPrice      string            `json:"unit_price"`
	Customizations map[string]string `json:"customizations,omitempty"`
	Notes          *string           `json:"notes"`
}

type orderListResponse struct {
	Orders []orderResponse `json:"orders"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type updatePaymentRequest struct {
	PaymentStatus string `json:"payment_status"`
}

// --- Customer handlers ---

// CreateFromSession handles POST /t/orders. The table binding comes from the
// session token, never from the request body.
func (h *OrderHandler) CreateFromSession(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())
	if sess == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "no_active_session"})
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	items := make([]service.CartLine, len(req.Items))
	for i, it := range req.Items {
		items[i] = service.CartLine{
			MenuItemID:     it.MenuItemID,
			Quantity:       it.Quantity,
			Customizations: it.Customizations,
			Notes:          it.Notes,
		}
	}

	result, err := h.svc.CreateOrder(r.Context(), service.CreateOrderRequest{
		Session:         sess,
		CustomerName:    req.CustomerName,
		CustomerPhone:   req.CustomerPhone,
		SpecialRequests: req.SpecialRequests,
		Items:           items,
	})
	if err != nil {
		if errors.Is(err, service.ErrNoActiveSession) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "no_active_session"})
			return
		}
		if isOrderValidationError(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		log.Printf("ERROR: create order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := dbOrderToResponse(result.Order)
	resp.Items = make([]orderItemResponse, len(result.Items))
	for i, item := range result.Items {
		resp.Items[i] = dbOrderItemToResponse(item)
	}
	writeJSON(w, http.StatusCreated, resp)
}

// TrackBySession handles GET /t/orders: the customer tracker's poll target,
// scoped to the bound table.
func (h *OrderHandler) TrackBySession(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())
	if sess == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "no_active_session"})
		return
	}

	orders, err := h.store.ListOrdersByTable(r.Context(), database.ListOrdersByTableParams{
		TableID:  sess.TableID,
		TenantID: sess.TenantID,
	})
	if err != nil {
		log.Printf("ERROR: list orders by table: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = dbOrderToResponse(o)
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": resp})
}

// --- Staff handlers ---

// List handles GET /orders with optional status and table filters. This is
// the poll target for the kitchen display and the order dashboard.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > 200 {
		limit = 200
	}

	offset := 0
	if s := r.URL.Query().Get("offset"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			offset = v
		}
	}

	params := database.ListOrdersParams{
		TenantID: claims.TenantID,
		Limit:    int32(limit),
		Offset:   int32(offset),
	}
	if s := r.URL.Query().Get("status"); s != "" {
		status := database.OrderStatus(s)
		if !service.IsValidOrderStatus(status) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status filter"})
			return
		}
		params.Status = database.NullOrderStatus{OrderStatus: status, Valid: true}
	}
	if s := r.URL.Query().Get("table_id"); s != "" {
		tableID, err := uuid.Parse(s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid table_id filter"})
			return
		}
		params.TableID = pgtype.UUID{Bytes: tableID, Valid: true}
	}

	orders, err := h.store.ListOrders(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: list orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = dbOrderToResponse(o)
	}
	writeJSON(w, http.StatusOK, orderListResponse{Orders: resp, Limit: limit, Offset: offset})
}

// Get handles GET /orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	order, err := h.store.GetOrder(r.Context(), database.GetOrderParams{ID: orderID, TenantID: claims.TenantID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: get order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	items, err := h.store.ListOrderItemsByOrder(r.Context(), orderID)
	if err != nil {
		log.Printf("ERROR: list order items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := dbOrderToResponse(order)
	resp.Items = make([]orderItemResponse, len(items))
	for i, item := range items {
		resp.Items[i] = dbOrderItemToResponse(item)
	}
	writeJSON(w, http.StatusOK, resp)
}

// UpdateStatus handles PATCH /orders/{id}/status. Any authenticated staff
// view may request any transition the table allows; the transition table is
// the only gate.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Status == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status is required"})
		return
	}

	newStatus := database.OrderStatus(req.Status)
	if !service.IsValidOrderStatus(newStatus) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
		return
	}

	h.transition(w, r, orderID, claims.TenantID, newStatus)
}

// Cancel handles DELETE /orders/{id}: a transition to CANCELLED through the
// same validation path as any other status move.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	h.transition(w, r, orderID, claims.TenantID, database.OrderStatusCANCELLED)
}

// transition validates the move against the current status, then applies it
// with a compare-and-set so a racing writer loses with a retryable conflict
// instead of clobbering the winner.
func (h *OrderHandler) transition(w http.ResponseWriter, r *http.Request, orderID, tenantID uuid.UUID, newStatus database.OrderStatus) {
	current, err := h.store.GetOrder(r.Context(), database.GetOrderParams{ID: orderID, TenantID: tenantID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: get order for status update: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	if err := service.ValidateTransition(current.Status, newStatus); err != nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	}

	updated, err := h.store.UpdateOrderStatus(r.Context(), database.UpdateOrderStatusParams{
		ID:         orderID,
		TenantID:   tenantID,
		Status:     newStatus,
		FromStatus: current.Status,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Status changed between our read and write; the loser retries.
			writeJSON(w, http.StatusConflict, map[string]string{"error": "order status changed, please retry"})
			return
		}
		log.Printf("ERROR: update order status: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, dbOrderToResponse(updated))
}

// UpdatePayment handles PATCH /orders/{id}/payment.
func (h *OrderHandler) UpdatePayment(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req updatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	status := database.PaymentStatus(req.PaymentStatus)
	switch status {
	case database.PaymentStatusPENDING, database.PaymentStatusPAID,
		database.PaymentStatusFAILED, database.PaymentStatusREFUNDED:
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payment_status"})
		return
	}

	updated, err := h.store.SetOrderPaymentStatus(r.Context(), database.SetOrderPaymentStatusParams{
		ID:            orderID,
		TenantID:      claims.TenantID,
		PaymentStatus: status,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: set payment status: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, dbOrderToResponse(updated))
}

// --- Helpers ---

// isOrderValidationError checks for user-correctable service errors that
// should result in 400 Bad Request.
func isOrderValidationError(err error) bool {
	return errors.Is(err, service.ErrEmptyCart) ||
		errors.Is(err, service.ErrInvalidQuantity) ||
		errors.Is(err, service.ErrInvalidPhone) ||
		errors.Is(err, service.ErrInvalidMenuItemID) ||
		errors.Is(err, service.ErrMenuItemNotFound)
}

func dbOrderToResponse(o database.Order) orderResponse {
	resp := orderResponse{
		ID:            o.ID,
		TenantID:      o.TenantID,
		TableID:       o.TableID,
		OrderNumber:   o.OrderNumber,
		Status:        string(o.Status),
		PaymentStatus: string(o.PaymentStatus),
		Subtotal:      numericToString(o.Subtotal),
		TaxAmount:     numericToString(o.TaxAmount),
		TotalAmount:   numericToString(o.TotalAmount),
		EstimatedTime: o.EstimatedTime,
		PlacedAgo:     service.FormatAge(o.CreatedAt, time.Now()),
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
	if o.CustomerName.Valid {
		resp.CustomerName = &o.CustomerName.String
	}
	if o.CustomerPhone.Valid {
		resp.CustomerPhone = &o.CustomerPhone.String
	}
	if o.SpecialRequests.Valid {
		resp.SpecialRequests = &o.SpecialRequests.String
	}
	return resp
}

func dbOrderItemToResponse(item database.OrderItem) orderItemResponse {
	resp := orderItemResponse{
		ID:         item.ID,
		MenuItemID: item.MenuItemID,
		Name:       item.NameSnapshot,
		Quantity:   item.Quantity,
		UnitPrice:  numericToString(item.UnitPrice),
	}
	if len(item.Customizations) > 0 {
		var customizations map[string]string
		if err := json.Unmarshal(item.Customizations, &customizations); err == nil {
			resp.Customizations = customizations
		}
	}
	if item.Notes.Valid {
		resp.Notes = &item.Notes.String
	}
	return resp
}

func numericToString(n pgtype.Numeric) string {
	if !n.Valid {
		return "0.00"
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return "0.00"
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return "0.00"
	}
	return d.StringFixed(2)
}
