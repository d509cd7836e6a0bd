package service

import (
	"context"
	"strings"

	"github.com/atinyakov/HanziDeck/internal/apperr"
	"github.com/atinyakov/HanziDeck/internal/models"
)

// TopicRepository defines the topic persistence operations.
type TopicRepository interface {
	Get(ctx context.Context, id string) (*models.Topic, error)
	List(ctx context.Context) ([]models.Topic, error)
	Create(ctx context.Context, id, label string) (*models.Topic, error)
	Update(ctx context.Context, id, label string) (*models.Topic, error)
	Delete(ctx context.Context, id string) error
}

// LevelRepository defines the level persistence operations.
type LevelRepository interface {
	Get(ctx context.Context, id string) (*models.Level, error)
	List(ctx context.Context) ([]models.Level, error)
	Create(ctx context.Context, id, label string) (*models.Level, error)
	Update(ctx context.Context, id, label string) (*models.Level, error)
	Delete(ctx context.Context, id string) error
}

// BadgeRepository defines the badge persistence operations.
type BadgeRepository interface {
	List(ctx context.Context) ([]models.Badge, error)
	Get(ctx context.Context, id string) (*models.Badge, error)
	Create(ctx context.Context, b models.Badge) (*models.Badge, error)
	Update(ctx context.Context, b models.Badge) (*models.Badge, error)
	Delete(ctx context.Context, id string) error
	ListForUser(ctx context.Context, userID string) ([]models.Badge, error)
	Assign(ctx context.Context, userID, badgeID string) error
	Unassign(ctx context.Context, userID, badgeID string) error
}

// CatalogService manages topics, levels and badges.
type CatalogService struct {
	topics TopicRepository
	levels LevelRepository
	badges BadgeRepository
}

// NewCatalogService constructs a new CatalogService.
func NewCatalogService(topics TopicRepository, levels LevelRepository, badges BadgeRepository) *CatalogService {
	return &CatalogService{topics: topics, levels: levels, badges: badges}
}

func (s *CatalogService) Topics(ctx context.Context) ([]models.Topic, error) {
	return s.topics.List(ctx)
}

func (s *CatalogService) Topic(ctx context.Context, id string) (*models.Topic, error) {
	return s.topics.Get(ctx, id)
}

func (s *CatalogService) CreateTopic(ctx context.Context, id, label string) (*models.Topic, error) {
	id, label = strings.TrimSpace(id), strings.TrimSpace(label)
	if id == "" || label == "" {
		return nil, apperr.Invalid("ID and label are required")
	}
	return s.topics.Create(ctx, id, label)
}

func (s *CatalogService) UpdateTopic(ctx context.Context, id, label string) (*models.Topic, error) {
	if label = strings.TrimSpace(label); label == "" {
		return nil, apperr.Invalid("Label is required")
	}
	return s.topics.Update(ctx, id, label)
}

// DeleteTopic removes a topic. Topics still referenced by flashcards are
// reported as a conflict.
func (s *CatalogService) DeleteTopic(ctx context.Context, id string) error {
	return s.topics.Delete(ctx, id)
}

func (s *CatalogService) Levels(ctx context.Context) ([]models.Level, error) {
	return s.levels.List(ctx)
}

func (s *CatalogService) Level(ctx context.Context, id string) (*models.Level, error) {
	return s.levels.Get(ctx, id)
}

// CreateLevel adds a level. Only the allowed HSK ids are accepted.
func (s *CatalogService) CreateLevel(ctx context.Context, id, label string) (*models.Level, error) {
	id, label = strings.TrimSpace(id), strings.TrimSpace(label)
	if id == "" || label == "" {
		return nil, apperr.Invalid("ID and label are required")
	}
	if _, ok := models.LevelLabel(id); !ok {
		return nil, apperr.Reference("Invalid level: %s", id)
	}
	return s.levels.Create(ctx, id, label)
}

func (s *CatalogService) UpdateLevel(ctx context.Context, id, label string) (*models.Level, error) {
	if label = strings.TrimSpace(label); label == "" {
		return nil, apperr.Invalid("Label is required")
	}
	return s.levels.Update(ctx, id, label)
}

func (s *CatalogService) DeleteLevel(ctx context.Context, id string) error {
	return s.levels.Delete(ctx, id)
}

// Facets returns the ids of every topic and level, for list metadata.
func (s *CatalogService) Facets(ctx context.Context) (topicIDs, levelIDs []string, err error) {
	topics, err := s.topics.List(ctx)
	if err != nil {
		return nil, nil, err
	}
	levels, err := s.levels.List(ctx)
	if err != nil {
		return nil, nil, err
	}
	topicIDs = make([]string, len(topics))
	for i, t := range topics {
		topicIDs[i] = t.ID
	}
	levelIDs = make([]string, len(levels))
	for i, l := range levels {
		levelIDs[i] = l.ID
	}
	return topicIDs, levelIDs, nil
}

func (s *CatalogService) Badges(ctx context.Context) ([]models.Badge, error) {
	return s.badges.List(ctx)
}

func (s *CatalogService) Badge(ctx context.Context, id string) (*models.Badge, error) {
	return s.badges.Get(ctx, id)
}

func (s *CatalogService) CreateBadge(ctx context.Context, b models.Badge) (*models.Badge, error) {
	b.ID, b.Name = strings.TrimSpace(b.ID), strings.TrimSpace(b.Name)
	if b.ID == "" || b.Name == "" {
		return nil, apperr.Invalid("ID and name are required")
	}
	return s.badges.Create(ctx, b)
}

func (s *CatalogService) UpdateBadge(ctx context.Context, b models.Badge) (*models.Badge, error) {
	if b.Name = strings.TrimSpace(b.Name); b.Name == "" {
		return nil, apperr.Invalid("Name is required")
	}
	return s.badges.Update(ctx, b)
}

func (s *CatalogService) DeleteBadge(ctx context.Context, id string) error {
	return s.badges.Delete(ctx, id)
}

func (s *CatalogService) AssignBadge(ctx context.Context, badgeID, userID string) error {
	if userID == "" {
		return apperr.Invalid("User ID is required")
	}
	return s.badges.Assign(ctx, userID, badgeID)
}

func (s *CatalogService) UnassignBadge(ctx context.Context, badgeID, userID string) error {
	if userID == "" {
		return apperr.Invalid("User ID is required")
	}
	return s.badges.Unassign(ctx, userID, badgeID)
}
