package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/xelth-com/protocolos/internal/models"
	"github.com/xelth-com/protocolos/internal/utils"
)

const secret = "middleware-test-secret"

func tokenFor(t *testing.T, role string) string {
	t.Helper()
	access, _, err := utils.GenerateTokens(&models.UserAuth{ID: "u1", Username: "ana", Role: role, UnitCode: "U01"}, secret)
	if err != nil {
		t.Fatalf("GenerateTokens: %v", err)
	}
	return access
}

func TestAuthAndRequireRole(t *testing.T) {
	var seen Principal
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = CurrentUser(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	h := Auth(secret)(RequireRole(models.RoleStaff, models.RoleAdmin)(final))

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"garbage token", "Bearer nope", http.StatusUnauthorized},
		{"driver forbidden", "Bearer " + tokenFor(t, models.RoleDriver), http.StatusForbidden},
		{"staff allowed", "Bearer " + tokenFor(t, models.RoleStaff), http.StatusNoContent},
	}
	for _, c := range cases {
		req := httptest.NewRequest(http.MethodGet, "/api/protocolos", nil)
		if c.header != "" {
			req.Header.Set("Authorization", c.header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != c.want {
			t.Errorf("%s: status %d, want %d", c.name, rec.Code, c.want)
		}
	}
	if seen.ID != "u1" || seen.Unit != "U01" || seen.Role != models.RoleStaff {
		t.Errorf("principal not propagated: %+v", seen)
	}
}

func TestRefreshTokenIsNotAccessToken(t *testing.T) {
	_, refresh, _ := utils.GenerateTokens(&models.UserAuth{ID: "u1"}, secret)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+refresh)
	rec := httptest.NewRecorder()
	Auth(secret)(http.NotFoundHandler()).ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status %d, want 401", rec.Code)
	}
}

func TestWebsocketTokenFromQuery(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/ws?token="+tokenFor(t, models.RoleDriver), nil)
	req.Header.Set("Upgrade", "websocket")
	rec := httptest.NewRecorder()
	Auth(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("status %d, want 200", rec.Code)
	}
}
