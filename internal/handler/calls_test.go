package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/scanbite/api/internal/database"
	"github.com/scanbite/api/internal/enum"
	"github.com/scanbite/api/internal/handler"
	"github.com/scanbite/api/internal/middleware"
	"github.com/scanbite/api/internal/service"
)

// --- Mock CallServicer ---

type mockCallService struct {
	requestCallFn func(ctx context.Context, tenantID, tableID uuid.UUID, reason string) (*service.RequestCallResult, error)
	attendFn      func(ctx context.Context, tenantID, callID, staffID uuid.UUID) (database.WaiterCall, error)
	completeFn    func(ctx context.Context, tenantID, callID uuid.UUID) (database.WaiterCall, error)
}

func (m *mockCallService) RequestCall(ctx context.Context, tenantID, tableID uuid.UUID, reason string) (*service.RequestCallResult, error) {
	return m.requestCallFn(ctx, tenantID, tableID, reason)
}
func (m *mockCallService) Attend(ctx context.Context, tenantID, callID, staffID uuid.UUID) (database.WaiterCall, error) {
	return m.attendFn(ctx, tenantID, callID, staffID)
}
func (m *mockCallService) Complete(ctx context.Context, tenantID, callID uuid.UUID) (database.WaiterCall, error) {
	return m.completeFn(ctx, tenantID, callID)
}

// --- Mock CallStore ---

type mockCallStore struct {
	listWaiterCallsFn          func(ctx context.Context, arg database.ListWaiterCallsParams) ([]database.WaiterCall, error)
	getOpenWaiterCallByTableFn func(ctx context.Context, arg database.GetOpenWaiterCallByTableParams) (database.WaiterCall, error)
}

func (m *mockCallStore) ListWaiterCalls(ctx context.Context, arg database.ListWaiterCallsParams) ([]database.WaiterCall, error) {
	if m.listWaiterCallsFn != nil {
		return m.listWaiterCallsFn(ctx, arg)
	}
	return []database.WaiterCall{}, nil
}

func (m *mockCallStore) GetOpenWaiterCallByTable(ctx context.Context, arg database.GetOpenWaiterCallByTableParams) (database.WaiterCall, error) {
	if m.getOpenWaiterCallByTableFn != nil {
		return m.getOpenWaiterCallByTableFn(ctx, arg)
	}
	return database.WaiterCall{}, pgx.ErrNoRows
}

func newCustomerCallRouter(h *handler.CallHandler) chi.Router {
	r := chi.NewRouter()
	r.Route("/t", func(r chi.Router) {
		r.Use(middleware.TableSession(testJWTSecret))
		h.RegisterCustomerRoutes(r)
	})
	return r
}

func newStaffCallRouter(h *handler.CallHandler) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Authenticate(testJWTSecret))
	r.Route("/calls", h.RegisterStaffRoutes)
	return r
}

func pendingCall(tenantID, tableID uuid.UUID) database.WaiterCall {
	return database.WaiterCall{
		ID:        uuid.New(),
		TenantID:  tenantID,
		TableID:   tableID,
		Status:    database.CallStatusPENDING,
		CreatedAt: time.Now().Add(-2 * time.Minute),
	}
}

func TestRequestCall_Fresh(t *testing.T) {
	tenantID := uuid.New()
	tableID := uuid.New()

	svc := &mockCallService{
		requestCallFn: func(ctx context.Context, tid, tbid uuid.UUID, reason string) (*service.RequestCallResult, error) {
			if tid != tenantID || tbid != tableID {
				t.Errorf("call not scoped to session: tenant %s table %s", tid, tbid)
			}
			return &service.RequestCallResult{Call: pendingCall(tid, tbid)}, nil
		},
	}
	h := handler.NewCallHandler(svc, &mockCallStore{})
	r := newCustomerCallRouter(h)

	req := httptest.NewRequest("POST", "/t/calls", nil)
	req.Header.Set("X-Table-Session", sessionToken(t, tenantID, tableID))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body: %s", rec.Code, rec.Body.String())
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if already, _ := resp["already_called"].(bool); already {
		t.Error("fresh call marked already_called")
	}
}

func TestRequestCall_DuplicateIsPositiveAck(t *testing.T) {
	tenantID := uuid.New()
	tableID := uuid.New()

	svc := &mockCallService{
		requestCallFn: func(ctx context.Context, tid, tbid uuid.UUID, reason string) (*service.RequestCallResult, error) {
			return &service.RequestCallResult{Call: pendingCall(tid, tbid), AlreadyCalled: true}, nil
		},
	}
	h := handler.NewCallHandler(svc, &mockCallStore{})
	r := newCustomerCallRouter(h)

	req := httptest.NewRequest("POST", "/t/calls", nil)
	req.Header.Set("X-Table-Session", sessionToken(t, tenantID, tableID))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	// Not an error: the customer just sees "a waiter is on the way".
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if already, _ := resp["already_called"].(bool); !already {
		t.Error("expected already_called=true for a duplicate press")
	}
}

func TestRequestCall_RaceIsRetryableConflict(t *testing.T) {
	svc := &mockCallService{
		requestCallFn: func(ctx context.Context, tid, tbid uuid.UUID, reason string) (*service.RequestCallResult, error) {
			return nil, service.ErrOpenCallGone
		},
	}
	h := handler.NewCallHandler(svc, &mockCallStore{})
	r := newCustomerCallRouter(h)

	req := httptest.NewRequest("POST", "/t/calls", nil)
	req.Header.Set("X-Table-Session", sessionToken(t, uuid.New(), uuid.New()))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	// Not a server fault: the open call closed mid-flight, press again.
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409; body: %s", rec.Code, rec.Body.String())
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["error"] != "call state changed, please retry" {
		t.Errorf("error = %q, want a retry hint", resp["error"])
	}
}

func TestRequestCall_NoSession(t *testing.T) {
	h := handler.NewCallHandler(&mockCallService{}, &mockCallStore{})
	r := newCustomerCallRouter(h)

	req := httptest.NewRequest("POST", "/t/calls", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestAttend_InvalidTransitionIs409(t *testing.T) {
	tenantID := uuid.New()
	svc := &mockCallService{
		attendFn: func(ctx context.Context, tid, callID, staffID uuid.UUID) (database.WaiterCall, error) {
			return database.WaiterCall{}, service.ErrInvalidTransition
		},
	}
	h := handler.NewCallHandler(svc, &mockCallStore{})
	r := newStaffCallRouter(h)

	req := httptest.NewRequest("PATCH", "/calls/"+uuid.New().String()+"/attend", nil)
	req.Header.Set("Authorization", "Bearer "+staffToken(t, tenantID, enum.UserRoleWaiter))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409; body: %s", rec.Code, rec.Body.String())
	}
}

func TestAttend_UnknownCallIs404(t *testing.T) {
	svc := &mockCallService{
		attendFn: func(ctx context.Context, tid, callID, staffID uuid.UUID) (database.WaiterCall, error) {
			return database.WaiterCall{}, service.ErrCallNotFound
		},
	}
	h := handler.NewCallHandler(svc, &mockCallStore{})
	r := newStaffCallRouter(h)

	req := httptest.NewRequest("PATCH", "/calls/"+uuid.New().String()+"/attend", nil)
	req.Header.Set("Authorization", "Bearer "+staffToken(t, uuid.New(), enum.UserRoleWaiter))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404; body: %s", rec.Code, rec.Body.String())
	}
}

func TestComplete_Succeeds(t *testing.T) {
	tenantID := uuid.New()
	svc := &mockCallService{
		completeFn: func(ctx context.Context, tid, callID uuid.UUID) (database.WaiterCall, error) {
			return database.WaiterCall{ID: callID, TenantID: tid, Status: database.CallStatusCOMPLETED, CreatedAt: time.Now()}, nil
		},
	}
	h := handler.NewCallHandler(svc, &mockCallStore{})
	r := newStaffCallRouter(h)

	req := httptest.NewRequest("PATCH", "/calls/"+uuid.New().String()+"/complete", nil)
	req.Header.Set("Authorization", "Bearer "+staffToken(t, tenantID, enum.UserRoleWaiter))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}
}

func TestListCalls_OpenFilter(t *testing.T) {
	tenantID := uuid.New()
	var gotParams database.ListWaiterCallsParams
	store := &mockCallStore{
		listWaiterCallsFn: func(ctx context.Context, arg database.ListWaiterCallsParams) ([]database.WaiterCall, error) {
			gotParams = arg
			return []database.WaiterCall{pendingCall(tenantID, uuid.New())}, nil
		},
	}
	h := handler.NewCallHandler(&mockCallService{}, store)
	r := newStaffCallRouter(h)

	req := httptest.NewRequest("GET", "/calls?open=true", nil)
	req.Header.Set("Authorization", "Bearer "+staffToken(t, tenantID, enum.UserRoleWaiter))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !gotParams.OnlyOpen {
		t.Error("open=true not passed through")
	}
	if gotParams.TenantID != tenantID {
		t.Errorf("tenant scope not applied: %s", gotParams.TenantID)
	}

	var resp struct {
		Calls []map[string]any `json:"calls"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(resp.Calls))
	}
	if _, ok := resp.Calls[0]["requested_ago"].(string); !ok {
		t.Error("expected requested_ago in list response")
	}
}

func TestOpenForTable_NullWhenNone(t *testing.T) {
	h := handler.NewCallHandler(&mockCallService{}, &mockCallStore{})
	r := newCustomerCallRouter(h)

	req := httptest.NewRequest("GET", "/t/calls", nil)
	req.Header.Set("X-Table-Session", sessionToken(t, uuid.New(), uuid.New()))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["call"] != nil {
		t.Errorf("expected null call, got %v", resp["call"])
	}
}
