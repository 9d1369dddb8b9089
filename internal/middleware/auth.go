package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/xelth-com/protocolos/internal/utils"
)

type contextKey string

const UserContextKey contextKey = "user"

// Principal is the authenticated caller extracted from the access token.
type Principal struct {
	ID       string
	Username string
	Name     string
	Role     string
	Unit     string
}

// Auth verifies bearer JWTs signed with secret and stores the Principal in
// the request context.
func Auth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := bearerToken(r)
			if tokenString == "" {
				deny(w, http.StatusUnauthorized, "Authorization header required")
				return
			}

			claims, err := utils.ValidateToken(tokenString, secret)
			if err != nil || claims["type"] != "access" {
				deny(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			p := Principal{}
			p.ID, _ = claims["id"].(string)
			p.Username, _ = claims["username"].(string)
			p.Name, _ = claims["name"].(string)
			p.Role, _ = claims["role"].(string)
			p.Unit, _ = claims["unit"].(string)

			ctx := context.WithValue(r.Context(), UserContextKey, p)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole lets the request through only for the given roles. It must run
// after Auth.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := CurrentUser(r.Context())
			if !ok {
				deny(w, http.StatusUnauthorized, "Authentication required")
				return
			}
			for _, role := range roles {
				if p.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			deny(w, http.StatusForbidden, "Insufficient permissions")
		})
	}
}

// CurrentUser returns the Principal stored by Auth.
func CurrentUser(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(UserContextKey).(Principal)
	return p, ok
}

// WithUser stores p in ctx. Used by handlers tests and internal callers.
func WithUser(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, UserContextKey, p)
}

func bearerToken(r *http.Request) string {
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	// browsers cannot set headers on websocket upgrades
	if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
		return r.URL.Query().Get("token")
	}
	return ""
}

func deny(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
