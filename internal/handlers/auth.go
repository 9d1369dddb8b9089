package handlers

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/xelth-com/protocolos/internal/models"
	"github.com/xelth-com/protocolos/internal/store"
	"github.com/xelth-com/protocolos/internal/utils"
)

const maxFailedLogins = 5

// LoginRequest represents a login request
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// login handles user login
func (r *Router) login(w http.ResponseWriter, req *http.Request) {
	var loginReq LoginRequest
	if !decodeJSON(w, req, &loginReq) {
		return
	}
	ctx := req.Context()

	user, err := r.users.FindByUsername(ctx, strings.TrimSpace(loginReq.Username))
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			r.logger.Error("login lookup failed", zap.Error(err))
		}
		respondError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if !user.IsActive || user.FailedLoginAttempts >= maxFailedLogins {
		respondError(w, http.StatusForbidden, "Account disabled")
		return
	}
	if !utils.CheckPasswordHash(loginReq.Password, user.Password) {
		if err := r.users.RecordFailedLogin(ctx, user.ID); err != nil {
			r.logger.Warn("failed to record failed login", zap.Error(err))
		}
		respondError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	now := r.now().UTC()
	if err := r.users.RecordLogin(ctx, user.ID, now); err != nil {
		r.logger.Warn("failed to record login", zap.Error(err))
	}
	user.LastLogin = &now
	r.respondTokens(w, user)
}

// refresh exchanges a refresh token for a new token pair.
func (r *Router) refresh(w http.ResponseWriter, req *http.Request) {
	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	if !decodeJSON(w, req, &body) {
		return
	}
	id, err := utils.ValidateRefreshToken(body.RefreshToken, r.secret)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Invalid or expired token")
		return
	}
	user, err := r.users.Get(req.Context(), id)
	if err != nil || !user.IsActive {
		respondError(w, http.StatusUnauthorized, "Invalid or expired token")
		return
	}
	r.respondTokens(w, user)
}

func (r *Router) respondTokens(w http.ResponseWriter, user *models.UserAuth) {
	accessToken, refreshToken, err := utils.GenerateTokens(user, r.secret)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to generate tokens")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"tokens": map[string]string{
			"accessToken":  accessToken,
			"refreshToken": refreshToken,
		},
		"user": user,
	})
}

// me returns the account behind the token.
func (r *Router) me(w http.ResponseWriter, req *http.Request) {
	user, err := r.users.Get(req.Context(), principal(req).ID)
	if err != nil {
		r.respondStoreError(w, err, "User")
		return
	}
	respondJSON(w, http.StatusOK, user)
}
