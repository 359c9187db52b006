package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/scanbite/api/internal/auth"
	"github.com/scanbite/api/internal/enum"
)

const testSecret = "test-secret"

func okHandler(hit *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*hit = true
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthenticate_MissingHeader(t *testing.T) {
	var hit bool
	h := Authenticate(testSecret)(okHandler(&hit))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/orders", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
	if hit {
		t.Error("handler reached without a token")
	}
}

func TestAuthenticate_BadFormat(t *testing.T) {
	var hit bool
	h := Authenticate(testSecret)(okHandler(&hit))

	req := httptest.NewRequest("GET", "/orders", nil)
	req.Header.Set("Authorization", "Token abc")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestAuthenticate_ValidToken(t *testing.T) {
	userID := uuid.New()
	tenantID := uuid.New()
	token, err := auth.GenerateToken(testSecret, userID, tenantID, enum.UserRoleWaiter)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	var got *auth.Claims
	h := Authenticate(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = ClaimsFromContext(r.Context())
	}))

	req := httptest.NewRequest("GET", "/orders", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got == nil || got.UserID != userID || got.TenantID != tenantID || got.Role != enum.UserRoleWaiter {
		t.Errorf("claims = %+v", got)
	}
}

func TestRequireRole(t *testing.T) {
	token, err := auth.GenerateToken(testSecret, uuid.New(), uuid.New(), enum.UserRoleKitchen)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	run := func(roles ...string) int {
		var hit bool
		h := Authenticate(testSecret)(RequireRole(roles...)(okHandler(&hit)))
		req := httptest.NewRequest("GET", "/tables", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := run(enum.UserRoleKitchen); code != http.StatusOK {
		t.Errorf("matching role: status = %d, want 200", code)
	}
	if code := run(enum.UserRoleAdmin); code != http.StatusForbidden {
		t.Errorf("wrong role: status = %d, want 403", code)
	}
	if code := run(enum.UserRoleAdmin, enum.UserRoleKitchen); code != http.StatusOK {
		t.Errorf("one of several roles: status = %d, want 200", code)
	}
}

func TestTableSession_MissingHeader(t *testing.T) {
	var hit bool
	h := TableSession(testSecret)(okHandler(&hit))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/t/orders", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
	if hit {
		t.Error("handler reached without a session token")
	}
}

func TestTableSession_ValidToken(t *testing.T) {
	tenantID := uuid.New()
	tableID := uuid.New()
	token, err := auth.GenerateSessionToken(testSecret, tenantID, tableID, 9)
	if err != nil {
		t.Fatalf("generate session token: %v", err)
	}

	var got *auth.SessionClaims
	h := TableSession(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = SessionFromContext(r.Context())
	}))
	req := httptest.NewRequest("GET", "/t/orders", nil)
	req.Header.Set("X-Table-Session", token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got == nil || got.TenantID != tenantID || got.TableID != tableID || got.TableNumber != 9 {
		t.Errorf("session claims = %+v", got)
	}
}

func TestTableSession_GarbageToken(t *testing.T) {
	var hit bool
	h := TableSession(testSecret)(okHandler(&hit))
	req := httptest.NewRequest("GET", "/t/orders", nil)
	req.Header.Set("X-Table-Session", "not-a-jwt")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
	if hit {
		t.Error("handler reached with a garbage token")
	}
}
