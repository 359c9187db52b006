package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/scanbite/api/internal/database"
	"github.com/scanbite/api/internal/enum"
	"github.com/scanbite/api/internal/handler"
	"github.com/scanbite/api/internal/middleware"
	"github.com/scanbite/api/internal/service"
)

// --- Mock InvoiceServicer ---

type mockInvoiceService struct {
	buildFn func(ctx context.Context, req service.BuildInvoiceRequest) (*service.BuildInvoiceResult, error)
}

func (m *mockInvoiceService) BuildInvoice(ctx context.Context, req service.BuildInvoiceRequest) (*service.BuildInvoiceResult, error) {
	return m.buildFn(ctx, req)
}

// --- Mock InvoiceStore ---

type mockInvoiceStore struct {
	getInvoiceFn          func(ctx context.Context, arg database.GetInvoiceParams) (database.Invoice, error)
	listInvoicesByOrderFn func(ctx context.Context, arg database.ListInvoicesByOrderParams) ([]database.Invoice, error)
	listInvoiceTaxLinesFn func(ctx context.Context, invoiceID uuid.UUID) ([]database.InvoiceTaxLine, error)
}

func (m *mockInvoiceStore) GetInvoice(ctx context.Context, arg database.GetInvoiceParams) (database.Invoice, error) {
	if m.getInvoiceFn != nil {
		return m.getInvoiceFn(ctx, arg)
	}
	return database.Invoice{}, pgx.ErrNoRows
}

func (m *mockInvoiceStore) ListInvoicesByOrder(ctx context.Context, arg database.ListInvoicesByOrderParams) ([]database.Invoice, error) {
	if m.listInvoicesByOrderFn != nil {
		return m.listInvoicesByOrderFn(ctx, arg)
	}
	return []database.Invoice{}, nil
}

func (m *mockInvoiceStore) ListInvoiceTaxLines(ctx context.Context, invoiceID uuid.UUID) ([]database.InvoiceTaxLine, error) {
	if m.listInvoiceTaxLinesFn != nil {
		return m.listInvoiceTaxLinesFn(ctx, invoiceID)
	}
	return []database.InvoiceTaxLine{}, nil
}

func newInvoiceRouter(h *handler.InvoiceHandler) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Authenticate(testJWTSecret))
	r.Route("/invoices", h.RegisterRoutes)
	return r
}

func testInvoice(tenantID uuid.UUID) database.Invoice {
	var subtotal, discount, tip, grand pgtype.Numeric
	_ = subtotal.Scan("997.00")
	_ = discount.Scan("50.00")
	_ = tip.Scan("20.00")
	_ = grand.Scan("1016.85")
	return database.Invoice{
		ID:            uuid.New(),
		TenantID:      tenantID,
		OrderID:       uuid.New(),
		InvoiceNumber: "INV-X1Y2Z3",
		Subtotal:      subtotal,
		Discount:      discount,
		Tip:           tip,
		GrandTotal:    grand,
		PaymentMethod: enum.PaymentMethodUPI,
		PaymentStatus: database.PaymentStatusPENDING,
		CreatedAt:     time.Now(),
	}
}

func testTaxLine(invoiceID uuid.UUID) database.InvoiceTaxLine {
	var rate, amount pgtype.Numeric
	_ = rate.Scan("5.00")
	_ = amount.Scan("49.85")
	return database.InvoiceTaxLine{
		ID:        uuid.New(),
		InvoiceID: invoiceID,
		Name:      "GST",
		Rate:      rate,
		Amount:    amount,
	}
}

func TestCreateInvoice_FreezesOrder(t *testing.T) {
	tenantID := uuid.New()
	orderID := uuid.New()

	var gotReq service.BuildInvoiceRequest
	svc := &mockInvoiceService{
		buildFn: func(ctx context.Context, req service.BuildInvoiceRequest) (*service.BuildInvoiceResult, error) {
			gotReq = req
			inv := testInvoice(tenantID)
			inv.OrderID = req.OrderID
			return &service.BuildInvoiceResult{
				Invoice:  inv,
				TaxLines: []database.InvoiceTaxLine{testTaxLine(inv.ID)},
			}, nil
		},
	}
	h := handler.NewInvoiceHandler(svc, &mockInvoiceStore{})
	r := newInvoiceRouter(h)

	body := bytes.NewBufferString(`{"order_id":"` + orderID.String() + `","discount":"50.00","tip":"20.00","payment_method":"UPI"}`)
	req := httptest.NewRequest("POST", "/invoices", body)
	req.Header.Set("Authorization", "Bearer "+staffToken(t, tenantID, enum.UserRoleWaiter))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body: %s", rec.Code, rec.Body.String())
	}
	if gotReq.TenantID != tenantID || gotReq.OrderID != orderID {
		t.Errorf("request not scoped: tenant %s order %s", gotReq.TenantID, gotReq.OrderID)
	}
	if gotReq.Discount.String() != "50" || gotReq.Tip.String() != "20" {
		t.Errorf("adjustments not parsed: discount %s tip %s", gotReq.Discount, gotReq.Tip)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["grand_total"] != "1016.85" {
		t.Errorf("grand_total = %v, want 1016.85", resp["grand_total"])
	}
	lines, _ := resp["tax_lines"].([]any)
	if len(lines) != 1 {
		t.Fatalf("expected 1 tax line, got %d", len(lines))
	}
}

func TestCreateInvoice_UnknownPaymentMethod(t *testing.T) {
	svc := &mockInvoiceService{
		buildFn: func(ctx context.Context, req service.BuildInvoiceRequest) (*service.BuildInvoiceResult, error) {
			t.Error("service called despite invalid payment_method")
			return nil, nil
		},
	}
	h := handler.NewInvoiceHandler(svc, &mockInvoiceStore{})
	r := newInvoiceRouter(h)

	body := bytes.NewBufferString(`{"order_id":"` + uuid.New().String() + `","payment_method":"CHEQUE"}`)
	req := httptest.NewRequest("POST", "/invoices", body)
	req.Header.Set("Authorization", "Bearer "+staffToken(t, uuid.New(), enum.UserRoleWaiter))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400; body: %s", rec.Code, rec.Body.String())
	}
}

func TestCreateInvoice_NegativeAdjustment(t *testing.T) {
	svc := &mockInvoiceService{
		buildFn: func(ctx context.Context, req service.BuildInvoiceRequest) (*service.BuildInvoiceResult, error) {
			return nil, service.ErrNegativeAdjustment
		},
	}
	h := handler.NewInvoiceHandler(svc, &mockInvoiceStore{})
	r := newInvoiceRouter(h)

	body := bytes.NewBufferString(`{"order_id":"` + uuid.New().String() + `","discount":"-10","payment_method":"CASH"}`)
	req := httptest.NewRequest("POST", "/invoices", body)
	req.Header.Set("Authorization", "Bearer "+staffToken(t, uuid.New(), enum.UserRoleWaiter))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400; body: %s", rec.Code, rec.Body.String())
	}
}

func TestCreateInvoice_OrderNotFound(t *testing.T) {
	svc := &mockInvoiceService{
		buildFn: func(ctx context.Context, req service.BuildInvoiceRequest) (*service.BuildInvoiceResult, error) {
			return nil, service.ErrOrderNotFound
		},
	}
	h := handler.NewInvoiceHandler(svc, &mockInvoiceStore{})
	r := newInvoiceRouter(h)

	body := bytes.NewBufferString(`{"order_id":"` + uuid.New().String() + `","payment_method":"CARD"}`)
	req := httptest.NewRequest("POST", "/invoices", body)
	req.Header.Set("Authorization", "Bearer "+staffToken(t, uuid.New(), enum.UserRoleWaiter))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404; body: %s", rec.Code, rec.Body.String())
	}
}

func TestGetInvoice_IncludesTaxBreakdown(t *testing.T) {
	tenantID := uuid.New()
	invoice := testInvoice(tenantID)

	store := &mockInvoiceStore{
		getInvoiceFn: func(ctx context.Context, arg database.GetInvoiceParams) (database.Invoice, error) {
			if arg.ID == invoice.ID && arg.TenantID == tenantID {
				return invoice, nil
			}
			return database.Invoice{}, pgx.ErrNoRows
		},
		listInvoiceTaxLinesFn: func(ctx context.Context, invoiceID uuid.UUID) ([]database.InvoiceTaxLine, error) {
			return []database.InvoiceTaxLine{testTaxLine(invoiceID)}, nil
		},
	}
	h := handler.NewInvoiceHandler(&mockInvoiceService{}, store)
	r := newInvoiceRouter(h)

	req := httptest.NewRequest("GET", "/invoices/"+invoice.ID.String(), nil)
	req.Header.Set("Authorization", "Bearer "+staffToken(t, tenantID, enum.UserRoleWaiter))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		InvoiceNumber string `json:"invoice_number"`
		TaxLines      []struct {
			Name   string `json:"name"`
			Rate   string `json:"rate"`
			Amount string `json:"amount"`
		} `json:"tax_lines"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.InvoiceNumber != "INV-X1Y2Z3" {
		t.Errorf("invoice_number = %q", resp.InvoiceNumber)
	}
	if len(resp.TaxLines) != 1 || resp.TaxLines[0].Name != "GST" || resp.TaxLines[0].Amount != "49.85" {
		t.Errorf("tax lines = %+v", resp.TaxLines)
	}
}

func TestListInvoicesForOrder_ScopedToTenant(t *testing.T) {
	tenantID := uuid.New()
	orderID := uuid.New()

	var gotParams database.ListInvoicesByOrderParams
	store := &mockInvoiceStore{
		listInvoicesByOrderFn: func(ctx context.Context, arg database.ListInvoicesByOrderParams) ([]database.Invoice, error) {
			gotParams = arg
			inv := testInvoice(tenantID)
			inv.OrderID = arg.OrderID
			return []database.Invoice{inv}, nil
		},
	}
	h := handler.NewInvoiceHandler(&mockInvoiceService{}, store)
	r := newInvoiceRouter(h)

	req := httptest.NewRequest("GET", "/invoices?order_id="+orderID.String(), nil)
	req.Header.Set("Authorization", "Bearer "+staffToken(t, tenantID, enum.UserRoleWaiter))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}
	if gotParams.OrderID != orderID || gotParams.TenantID != tenantID {
		t.Errorf("query not scoped: %+v", gotParams)
	}
	var resp struct {
		Invoices []map[string]any `json:"invoices"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Invoices) != 1 {
		t.Fatalf("expected 1 invoice, got %d", len(resp.Invoices))
	}
}

func TestGetInvoice_WrongTenantIs404(t *testing.T) {
	invoice := testInvoice(uuid.New())
	store := &mockInvoiceStore{
		getInvoiceFn: func(ctx context.Context, arg database.GetInvoiceParams) (database.Invoice, error) {
			// Tenant scoping happens in the query; a foreign tenant sees no row.
			return database.Invoice{}, pgx.ErrNoRows
		},
	}
	h := handler.NewInvoiceHandler(&mockInvoiceService{}, store)
	r := newInvoiceRouter(h)

	req := httptest.NewRequest("GET", "/invoices/"+invoice.ID.String(), nil)
	req.Header.Set("Authorization", "Bearer "+staffToken(t, uuid.New(), enum.UserRoleWaiter))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
