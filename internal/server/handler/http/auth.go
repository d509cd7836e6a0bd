// Package http provides the HTTP handlers and routing of the HanziDeck API.
package http

import (
	"context"
	"net/http"

	"github.com/atinyakov/HanziDeck/internal/models"
	"go.uber.org/zap"
)

// AuthService defines the login operations required by the HTTP handlers.
type AuthService interface {
	AdminLogin(ctx context.Context, username, password string) (string, *models.AdminUser, error)
	UserLogin(ctx context.Context, email, password string) (string, *models.User, error)
}

// AuthHandler handles staff and app user login.
type AuthHandler struct {
	AuthService AuthService
	Log         *zap.Logger
}

// AdminLoginRequest is the JSON payload of POST /api/admin/auth/login.
type AdminLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type adminSummary struct {
	ID       string           `json:"id"`
	Username string           `json:"username"`
	Role     models.AdminRole `json:"role"`
}

func summarizeAdmin(a *models.AdminUser) adminSummary {
	return adminSummary{ID: a.ID, Username: a.Username, Role: a.Role}
}

// AdminLogin checks staff credentials and returns a bearer token along
// with the account.
func (h *AuthHandler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	var req AdminLoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.Log, err, nil)
		return
	}

	token, admin, err := h.AuthService.AdminLogin(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, r, h.Log, err, map[string]any{"username": req.Username, "password": req.Password})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"admin": summarizeAdmin(admin),
	})
}

// UserLoginRequest is the JSON payload of POST /api/auth/login.
type UserLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) UserLogin(w http.ResponseWriter, r *http.Request) {
	var req UserLoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.Log, err, nil)
		return
	}

	token, user, err := h.AuthService.UserLogin(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, h.Log, err, map[string]any{"email": req.Email, "password": req.Password})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user": map[string]any{
			"id":     user.ID,
			"name":   user.Name,
			"email":  user.Email,
			"avatar": user.Avatar,
		},
	})
}

// Logout is stateless; clients drop their token.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, successBody)
}
