package http

import (
	"context"
	"net/http"

	"github.com/atinyakov/HanziDeck/internal/apperr"
	"github.com/atinyakov/HanziDeck/internal/middleware"
	"github.com/atinyakov/HanziDeck/internal/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// AccountService defines the app user operations used by the handlers.
type AccountService interface {
	List(ctx context.Context, page, size int) (*models.UserPage, error)
	Profile(ctx context.Context, id string) (*models.UserProfile, error)
	Register(ctx context.Context, name, email, password string) (*models.User, error)
	Update(ctx context.Context, id, name, email string, avatar *string) (*models.User, error)
	Delete(ctx context.Context, id string) error
	Badges(ctx context.Context, userID string) ([]models.Badge, error)
	Bookmarks(ctx context.Context, userID string) ([]string, error)
	ReplaceBookmarks(ctx context.Context, userID string, ids []string) ([]string, error)
	Streak(ctx context.Context, userID string) (*models.Streak, error)
	CheckIn(ctx context.Context, userID string) (*models.Streak, error)
}

// AccountHandler serves the signed-in user's own data and the admin user
// management endpoints.
type AccountHandler struct {
	Accounts AccountService
	Log      *zap.Logger
}

// UserRequest is the body of admin user writes.
type UserRequest struct {
	Name     string  `json:"name"`
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Avatar   *string `json:"avatar"`
}

// BookmarksRequest is the body of PUT /api/bookmarks.
type BookmarksRequest struct {
	Bookmarks []string `json:"bookmarks"`
}

type bookmarksBody struct {
	Bookmarks []string `json:"bookmarks"`
}

func (h *AccountHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	writeError(w, r, h.Log, err, nil)
}

// Me handles GET /api/user.
func (h *AccountHandler) Me(w http.ResponseWriter, r *http.Request) {
	profile, err := h.Accounts.Profile(r.Context(), middleware.GetUserIDFromContext(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// MyBadges handles GET /api/badges.
func (h *AccountHandler) MyBadges(w http.ResponseWriter, r *http.Request) {
	badges, err := h.Accounts.Badges(r.Context(), middleware.GetUserIDFromContext(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Data: badges})
}

func (h *AccountHandler) GetBookmarks(w http.ResponseWriter, r *http.Request) {
	ids, err := h.Accounts.Bookmarks(r.Context(), middleware.GetUserIDFromContext(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Data: bookmarksBody{Bookmarks: ids}})
}

// PutBookmarks replaces the bookmark set of the caller.
func (h *AccountHandler) PutBookmarks(w http.ResponseWriter, r *http.Request) {
	var req BookmarksRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if req.Bookmarks == nil {
		h.fail(w, r, apperr.Invalid("Bookmarks must be an array"))
		return
	}
	ids, err := h.Accounts.ReplaceBookmarks(r.Context(), middleware.GetUserIDFromContext(r.Context()), req.Bookmarks)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Data: bookmarksBody{Bookmarks: ids}})
}

func (h *AccountHandler) GetStreak(w http.ResponseWriter, r *http.Request) {
	streak, err := h.Accounts.Streak(r.Context(), middleware.GetUserIDFromContext(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, streak)
}

func (h *AccountHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	streak, err := h.Accounts.CheckIn(r.Context(), middleware.GetUserIDFromContext(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, streak)
}

// ListUsers handles GET /api/admin/users.
func (h *AccountHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := h.Accounts.List(r.Context(), atoi(q.Get("page")), atoi(q.Get("pageSize")))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{
		Data: page.Items,
		Meta: listMeta{Page: page.Page, PageSize: page.PageSize, Total: page.Total, TotalPages: page.TotalPages},
	})
}

func (h *AccountHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	profile, err := h.Accounts.Profile(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *AccountHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req UserRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	user, err := h.Accounts.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		writeError(w, r, h.Log, err, map[string]any{"email": req.Email, "password": req.Password})
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (h *AccountHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var req UserRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	user, err := h.Accounts.Update(r.Context(), chi.URLParam(r, "id"), req.Name, req.Email, req.Avatar)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *AccountHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.Accounts.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, successBody)
}
