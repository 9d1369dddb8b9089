package handlers

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/xelth-com/protocolos/internal/models"
	"github.com/xelth-com/protocolos/internal/utils"
)

const minPasswordLength = 8

type userRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Role     string `json:"role"`
	UnitCode string `json:"unitCode"`
	IsActive *bool  `json:"isActive"`
}

func (r *Router) listUsers(w http.ResponseWriter, req *http.Request) {
	users, err := r.users.List(req.Context())
	if err != nil {
		r.respondStoreError(w, err, "Users")
		return
	}
	respondJSON(w, http.StatusOK, users)
}

func (r *Router) createUser(w http.ResponseWriter, req *http.Request) {
	var body userRequest
	if !decodeJSON(w, req, &body) {
		return
	}
	body.Username = strings.TrimSpace(body.Username)
	if body.Username == "" || len(body.Password) < minPasswordLength {
		respondError(w, http.StatusBadRequest, "Username and a password of at least 8 characters are required")
		return
	}
	if body.Role == "" {
		body.Role = models.RoleDriver
	}
	if !models.ValidRole(body.Role) {
		respondError(w, http.StatusBadRequest, "Invalid role")
		return
	}

	hashedPassword, err := utils.HashPassword(body.Password)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to hash password")
		return
	}
	user := &models.UserAuth{
		Username: body.Username,
		Password: hashedPassword,
		Name:     body.Name,
		Phone:    body.Phone,
		Role:     body.Role,
		UnitCode: body.UnitCode,
		IsActive: true,
	}
	if err := r.users.Create(req.Context(), user); err != nil {
		respondError(w, http.StatusBadRequest, "Failed to create user (username might exist)")
		return
	}
	respondJSON(w, http.StatusCreated, user)
}

// updateUser changes role, unit, activation or password.
func (r *Router) updateUser(w http.ResponseWriter, req *http.Request) {
	var body userRequest
	if !decodeJSON(w, req, &body) {
		return
	}
	user, err := r.users.Get(req.Context(), mux.Vars(req)["id"])
	if err != nil {
		r.respondStoreError(w, err, "User")
		return
	}

	if body.Role != "" {
		if !models.ValidRole(body.Role) {
			respondError(w, http.StatusBadRequest, "Invalid role")
			return
		}
		user.Role = body.Role
	}
	if body.Name != "" {
		user.Name = body.Name
	}
	if body.Phone != "" {
		user.Phone = body.Phone
	}
	if body.UnitCode != "" {
		user.UnitCode = body.UnitCode
	}
	if body.IsActive != nil {
		user.IsActive = *body.IsActive
		if user.IsActive {
			user.FailedLoginAttempts = 0
		}
	}
	if body.Password != "" {
		if len(body.Password) < minPasswordLength {
			respondError(w, http.StatusBadRequest, "Password must have at least 8 characters")
			return
		}
		if user.Password, err = utils.HashPassword(body.Password); err != nil {
			respondError(w, http.StatusInternalServerError, "Failed to hash password")
			return
		}
	}

	if err := r.users.Save(req.Context(), user); err != nil {
		r.respondStoreError(w, err, "User")
		return
	}
	respondJSON(w, http.StatusOK, user)
}
