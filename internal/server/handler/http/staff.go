package http

import (
	"context"
	"net/http"

	"github.com/atinyakov/HanziDeck/internal/middleware"
	"github.com/atinyakov/HanziDeck/internal/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// StaffService defines the admin account operations used by the handlers.
type StaffService interface {
	List(ctx context.Context) ([]models.AdminUser, error)
	Get(ctx context.Context, id string) (*models.AdminUser, error)
	Create(ctx context.Context, username, password string, role models.AdminRole) (*models.AdminUser, error)
	Update(ctx context.Context, id, username string, role models.AdminRole) (*models.AdminUser, error)
	Delete(ctx context.Context, id string) error
	ChangePassword(ctx context.Context, callerID string, callerRole models.AdminRole, id, newPassword string) error
}

// StaffHandler serves /api/admin/admin-users.
type StaffHandler struct {
	Staff StaffService
	Log   *zap.Logger
}

// StaffRequest is the body of admin account writes.
type StaffRequest struct {
	Username string           `json:"username"`
	Password string           `json:"password"`
	Role     models.AdminRole `json:"role"`
}

// PasswordRequest is the body of a password change.
type PasswordRequest struct {
	NewPassword string `json:"newPassword"`
}

func (h *StaffHandler) List(w http.ResponseWriter, r *http.Request) {
	admins, err := h.Staff.List(r.Context())
	if err != nil {
		writeError(w, r, h.Log, err, nil)
		return
	}
	out := make([]adminSummary, len(admins))
	for i := range admins {
		out[i] = summarizeAdmin(&admins[i])
	}
	writeJSON(w, http.StatusOK, dataResponse{Data: out})
}

func (h *StaffHandler) Get(w http.ResponseWriter, r *http.Request) {
	admin, err := h.Staff.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.Log, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, admin)
}

func (h *StaffHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req StaffRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.Log, err, nil)
		return
	}
	admin, err := h.Staff.Create(r.Context(), req.Username, req.Password, req.Role)
	if err != nil {
		writeError(w, r, h.Log, err, map[string]any{"username": req.Username, "password": req.Password})
		return
	}
	writeJSON(w, http.StatusCreated, summarizeAdmin(admin))
}

func (h *StaffHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req StaffRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.Log, err, nil)
		return
	}
	admin, err := h.Staff.Update(r.Context(), chi.URLParam(r, "id"), req.Username, req.Role)
	if err != nil {
		writeError(w, r, h.Log, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, summarizeAdmin(admin))
}

func (h *StaffHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Staff.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, h.Log, err, nil)
		return
	}
	writeJSON(w, http.StatusOK, successBody)
}

// ChangePassword lets staff change their own password, and admins anyone's.
func (h *StaffHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req PasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.Log, err, nil)
		return
	}
	caller, _ := middleware.GetIdentityFromContext(r.Context())
	err := h.Staff.ChangePassword(r.Context(), caller.SubjectID, models.AdminRole(caller.Role), chi.URLParam(r, "id"), req.NewPassword)
	if err != nil {
		writeError(w, r, h.Log, err, map[string]any{"newPassword": req.NewPassword})
		return
	}
	writeJSON(w, http.StatusOK, successBody)
}
