package http

import (
	"context"
	"net/http"

	"github.com/atinyakov/HanziDeck/internal/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CatalogService defines the topic, level and badge operations used by the
// handlers.
type CatalogService interface {
	Topics(ctx context.Context) ([]models.Topic, error)
	Topic(ctx context.Context, id string) (*models.Topic, error)
	CreateTopic(ctx context.Context, id, label string) (*models.Topic, error)
	UpdateTopic(ctx context.Context, id, label string) (*models.Topic, error)
	DeleteTopic(ctx context.Context, id string) error

	Levels(ctx context.Context) ([]models.Level, error)
	Level(ctx context.Context, id string) (*models.Level, error)
	CreateLevel(ctx context.Context, id, label string) (*models.Level, error)
	UpdateLevel(ctx context.Context, id, label string) (*models.Level, error)
	DeleteLevel(ctx context.Context, id string) error

	Badges(ctx context.Context) ([]models.Badge, error)
	Badge(ctx context.Context, id string) (*models.Badge, error)
	CreateBadge(ctx context.Context, b models.Badge) (*models.Badge, error)
	UpdateBadge(ctx context.Context, b models.Badge) (*models.Badge, error)
	DeleteBadge(ctx context.Context, id string) error
	AssignBadge(ctx context.Context, badgeID, userID string) error
	UnassignBadge(ctx context.Context, badgeID, userID string) error
}

// CatalogHandler serves topics, levels and badges.
type CatalogHandler struct {
	Catalog CatalogService
	Log     *zap.Logger
}

// LabelRequest is the body of topic and level writes.
type LabelRequest struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// BadgeRequest is the body of badge writes.
type BadgeRequest struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Icon        *string `json:"icon"`
	Description *string `json:"description"`
}

type assignRequest struct {
	UserID string `json:"userId"`
}

// respond writes v, or the error when err is set.
func (h *CatalogHandler) respond(w http.ResponseWriter, r *http.Request, status int, v any, err error) {
	if err != nil {
		writeError(w, r, h.Log, err, nil)
		return
	}
	writeJSON(w, status, v)
}

func (h *CatalogHandler) ListTopics(w http.ResponseWriter, r *http.Request) {
	topics, err := h.Catalog.Topics(r.Context())
	h.respond(w, r, http.StatusOK, dataResponse{Data: topics}, err)
}

func (h *CatalogHandler) GetTopic(w http.ResponseWriter, r *http.Request) {
	topic, err := h.Catalog.Topic(r.Context(), chi.URLParam(r, "id"))
	h.respond(w, r, http.StatusOK, topic, err)
}

func (h *CatalogHandler) CreateTopic(w http.ResponseWriter, r *http.Request) {
	var req LabelRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.Log, err, nil)
		return
	}
	topic, err := h.Catalog.CreateTopic(r.Context(), req.ID, req.Label)
	h.respond(w, r, http.StatusCreated, topic, err)
}

func (h *CatalogHandler) UpdateTopic(w http.ResponseWriter, r *http.Request) {
	var req LabelRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.Log, err, nil)
		return
	}
	topic, err := h.Catalog.UpdateTopic(r.Context(), chi.URLParam(r, "id"), req.Label)
	h.respond(w, r, http.StatusOK, topic, err)
}

func (h *CatalogHandler) DeleteTopic(w http.ResponseWriter, r *http.Request) {
	err := h.Catalog.DeleteTopic(r.Context(), chi.URLParam(r, "id"))
	h.respond(w, r, http.StatusOK, successBody, err)
}

func (h *CatalogHandler) ListLevels(w http.ResponseWriter, r *http.Request) {
	levels, err := h.Catalog.Levels(r.Context())
	h.respond(w, r, http.StatusOK, dataResponse{Data: levels}, err)
}

func (h *CatalogHandler) GetLevel(w http.ResponseWriter, r *http.Request) {
	level, err := h.Catalog.Level(r.Context(), chi.URLParam(r, "id"))
	h.respond(w, r, http.StatusOK, level, err)
}

func (h *CatalogHandler) CreateLevel(w http.ResponseWriter, r *http.Request) {
	var req LabelRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.Log, err, nil)
		return
	}
	level, err := h.Catalog.CreateLevel(r.Context(), req.ID, req.Label)
	h.respond(w, r, http.StatusCreated, level, err)
}

func (h *CatalogHandler) UpdateLevel(w http.ResponseWriter, r *http.Request) {
	var req LabelRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.Log, err, nil)
		return
	}
	level, err := h.Catalog.UpdateLevel(r.Context(), chi.URLParam(r, "id"), req.Label)
	h.respond(w, r, http.StatusOK, level, err)
}

func (h *CatalogHandler) DeleteLevel(w http.ResponseWriter, r *http.Request) {
	err := h.Catalog.DeleteLevel(r.Context(), chi.URLParam(r, "id"))
	h.respond(w, r, http.StatusOK, successBody, err)
}

func (h *CatalogHandler) ListBadges(w http.ResponseWriter, r *http.Request) {
	badges, err := h.Catalog.Badges(r.Context())
	h.respond(w, r, http.StatusOK, dataResponse{Data: badges}, err)
}

func (h *CatalogHandler) GetBadge(w http.ResponseWriter, r *http.Request) {
	badge, err := h.Catalog.Badge(r.Context(), chi.URLParam(r, "id"))
	h.respond(w, r, http.StatusOK, badge, err)
}

func (h *CatalogHandler) CreateBadge(w http.ResponseWriter, r *http.Request) {
	var req BadgeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.Log, err, nil)
		return
	}
	badge, err := h.Catalog.CreateBadge(r.Context(), models.Badge{
		ID:          req.ID,
		Name:        req.Name,
		Icon:        req.Icon,
		Description: req.Description,
	})
	h.respond(w, r, http.StatusCreated, badge, err)
}

func (h *CatalogHandler) UpdateBadge(w http.ResponseWriter, r *http.Request) {
	var req BadgeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.Log, err, nil)
		return
	}
	badge, err := h.Catalog.UpdateBadge(r.Context(), models.Badge{
		ID:          chi.URLParam(r, "id"),
		Name:        req.Name,
		Icon:        req.Icon,
		Description: req.Description,
	})
	h.respond(w, r, http.StatusOK, badge, err)
}

func (h *CatalogHandler) DeleteBadge(w http.ResponseWriter, r *http.Request) {
	err := h.Catalog.DeleteBadge(r.Context(), chi.URLParam(r, "id"))
	h.respond(w, r, http.StatusOK, successBody, err)
}

func (h *CatalogHandler) AssignBadge(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.Log, err, nil)
		return
	}
	err := h.Catalog.AssignBadge(r.Context(), chi.URLParam(r, "id"), req.UserID)
	h.respond(w, r, http.StatusOK, successBody, err)
}

func (h *CatalogHandler) UnassignBadge(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, h.Log, err, nil)
		return
	}
	err := h.Catalog.UnassignBadge(r.Context(), chi.URLParam(r, "id"), req.UserID)
	h.respond(w, r, http.StatusOK, successBody, err)
}
