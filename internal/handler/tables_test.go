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
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/scanbite/api/internal/database"
	"github.com/scanbite/api/internal/enum"
	"github.com/scanbite/api/internal/handler"
	"github.com/scanbite/api/internal/middleware"
)

// --- Mock TableStore ---

type mockTableStore struct {
	listTablesFn             func(ctx context.Context, tenantID uuid.UUID) ([]database.Table, error)
	getTableFn               func(ctx context.Context, arg database.GetTableParams) (database.Table, error)
	createTableFn            func(ctx context.Context, arg database.CreateTableParams) (database.Table, error)
	setTableActiveFn         func(ctx context.Context, arg database.SetTableActiveParams) (database.Table, error)
	countOpenOrdersByTableFn func(ctx context.Context, tableID uuid.UUID) (int64, error)
	deleteTableFn            func(ctx context.Context, arg database.DeleteTableParams) error
}

func (m *mockTableStore) ListTables(ctx context.Context, tenantID uuid.UUID) ([]database.Table, error) {
	if m.listTablesFn != nil {
		return m.listTablesFn(ctx, tenantID)
	}
	return []database.Table{}, nil
}

func (m *mockTableStore) GetTable(ctx context.Context, arg database.GetTableParams) (database.Table, error) {
	if m.getTableFn != nil {
		return m.getTableFn(ctx, arg)
	}
	return database.Table{}, pgx.ErrNoRows
}

func (m *mockTableStore) CreateTable(ctx context.Context, arg database.CreateTableParams) (database.Table, error) {
	if m.createTableFn != nil {
		return m.createTableFn(ctx, arg)
	}
	return database.Table{}, pgx.ErrNoRows
}

func (m *mockTableStore) SetTableActive(ctx context.Context, arg database.SetTableActiveParams) (database.Table, error) {
	if m.setTableActiveFn != nil {
		return m.setTableActiveFn(ctx, arg)
	}
	return database.Table{}, pgx.ErrNoRows
}

func (m *mockTableStore) CountOpenOrdersByTable(ctx context.Context, tableID uuid.UUID) (int64, error) {
	if m.countOpenOrdersByTableFn != nil {
		return m.countOpenOrdersByTableFn(ctx, tableID)
	}
	return 0, nil
}

func (m *mockTableStore) DeleteTable(ctx context.Context, arg database.DeleteTableParams) error {
	if m.deleteTableFn != nil {
		return m.deleteTableFn(ctx, arg)
	}
	return nil
}

func newTableRouter(h *handler.TableHandler) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Authenticate(testJWTSecret))
	r.Use(middleware.RequireRole(enum.UserRoleAdmin))
	r.Route("/tables", h.RegisterRoutes)
	return r
}

func testTable(tenantID uuid.UUID) database.Table {
	return database.Table{
		ID:        uuid.New(),
		TenantID:  tenantID,
		Number:    4,
		QrToken:   "0123456789abcdef0123456789abcdef",
		IsActive:  true,
		CreatedAt: time.Now(),
	}
}

func TestCreateTable_GeneratesQrToken(t *testing.T) {
	tenantID := uuid.New()

	var gotParams database.CreateTableParams
	store := &mockTableStore{
		createTableFn: func(ctx context.Context, arg database.CreateTableParams) (database.Table, error) {
			gotParams = arg
			return database.Table{
				ID:        uuid.New(),
				TenantID:  arg.TenantID,
				Number:    arg.Number,
				QrToken:   arg.QrToken,
				IsActive:  true,
				CreatedAt: time.Now(),
			}, nil
		},
	}
	h := handler.NewTableHandler(store)
	r := newTableRouter(h)

	body := bytes.NewBufferString(`{"number":7}`)
	req := httptest.NewRequest("POST", "/tables", body)
	req.Header.Set("Authorization", "Bearer "+staffToken(t, tenantID, enum.UserRoleAdmin))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body: %s", rec.Code, rec.Body.String())
	}
	if gotParams.TenantID != tenantID || gotParams.Number != 7 {
		t.Errorf("params = %+v", gotParams)
	}
	// The token is opaque to clients; it just has to be fresh and non-empty.
	if len(gotParams.QrToken) != 32 {
		t.Errorf("qr_token length = %d, want 32 hex chars", len(gotParams.QrToken))
	}
}

func TestCreateTable_DuplicateNumber(t *testing.T) {
	store := &mockTableStore{
		createTableFn: func(ctx context.Context, arg database.CreateTableParams) (database.Table, error) {
			return database.Table{}, &pgconn.PgError{Code: "23505", ConstraintName: "tables_tenant_id_number_key"}
		},
	}
	h := handler.NewTableHandler(store)
	r := newTableRouter(h)

	body := bytes.NewBufferString(`{"number":4}`)
	req := httptest.NewRequest("POST", "/tables", body)
	req.Header.Set("Authorization", "Bearer "+staffToken(t, uuid.New(), enum.UserRoleAdmin))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409; body: %s", rec.Code, rec.Body.String())
	}
}

func TestCreateTable_NonAdminForbidden(t *testing.T) {
	h := handler.NewTableHandler(&mockTableStore{})
	r := newTableRouter(h)

	body := bytes.NewBufferString(`{"number":4}`)
	req := httptest.NewRequest("POST", "/tables", body)
	req.Header.Set("Authorization", "Bearer "+staffToken(t, uuid.New(), enum.UserRoleWaiter))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestDeleteTable_BlockedByOpenOrders(t *testing.T) {
	tenantID := uuid.New()
	table := testTable(tenantID)

	store := &mockTableStore{
		getTableFn: func(ctx context.Context, arg database.GetTableParams) (database.Table, error) {
			return table, nil
		},
		countOpenOrdersByTableFn: func(ctx context.Context, tableID uuid.UUID) (int64, error) {
			return 2, nil
		},
		deleteTableFn: func(ctx context.Context, arg database.DeleteTableParams) error {
			t.Error("delete called despite open orders")
			return nil
		},
	}
	h := handler.NewTableHandler(store)
	r := newTableRouter(h)

	req := httptest.NewRequest("DELETE", "/tables/"+table.ID.String(), nil)
	req.Header.Set("Authorization", "Bearer "+staffToken(t, tenantID, enum.UserRoleAdmin))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409; body: %s", rec.Code, rec.Body.String())
	}
}

func TestDeleteTable_Succeeds(t *testing.T) {
	tenantID := uuid.New()
	table := testTable(tenantID)

	var deleted bool
	store := &mockTableStore{
		getTableFn: func(ctx context.Context, arg database.GetTableParams) (database.Table, error) {
			return table, nil
		},
		deleteTableFn: func(ctx context.Context, arg database.DeleteTableParams) error {
			if arg.ID != table.ID || arg.TenantID != tenantID {
				t.Errorf("delete not scoped: %+v", arg)
			}
			deleted = true
			return nil
		},
	}
	h := handler.NewTableHandler(store)
	r := newTableRouter(h)

	req := httptest.NewRequest("DELETE", "/tables/"+table.ID.String(), nil)
	req.Header.Set("Authorization", "Bearer "+staffToken(t, tenantID, enum.UserRoleAdmin))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204; body: %s", rec.Code, rec.Body.String())
	}
	if !deleted {
		t.Error("delete never reached the store")
	}
}

func TestDeleteTable_Unknown(t *testing.T) {
	h := handler.NewTableHandler(&mockTableStore{})
	r := newTableRouter(h)

	req := httptest.NewRequest("DELETE", "/tables/"+uuid.New().String(), nil)
	req.Header.Set("Authorization", "Bearer "+staffToken(t, uuid.New(), enum.UserRoleAdmin))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestSetTableActive_TogglesBinding(t *testing.T) {
	tenantID := uuid.New()
	table := testTable(tenantID)

	store := &mockTableStore{
		setTableActiveFn: func(ctx context.Context, arg database.SetTableActiveParams) (database.Table, error) {
			updated := table
			updated.IsActive = arg.IsActive
			return updated, nil
		},
	}
	h := handler.NewTableHandler(store)
	r := newTableRouter(h)

	body := bytes.NewBufferString(`{"is_active":false}`)
	req := httptest.NewRequest("PATCH", "/tables/"+table.ID.String()+"/active", body)
	req.Header.Set("Authorization", "Bearer "+staffToken(t, tenantID, enum.UserRoleAdmin))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if active, _ := resp["is_active"].(bool); active {
		t.Error("table still active after deactivation")
	}
}
