package service

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/atinyakov/HanziDeck/internal/apperr"
	"github.com/atinyakov/HanziDeck/internal/auth"
	"github.com/atinyakov/HanziDeck/internal/models"
	"github.com/google/uuid"
)

// UserRepository defines the app user persistence operations.
type UserRepository interface {
	Get(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context, page, size int) (*models.UserPage, error)
	Create(ctx context.Context, u models.User) (*models.User, error)
	Update(ctx context.Context, u models.User) (*models.User, error)
	Delete(ctx context.Context, id string) error
}

// BookmarkRepository defines bookmark persistence.
type BookmarkRepository interface {
	List(ctx context.Context, userID string) ([]string, error)
	Replace(ctx context.Context, userID string, flashcardIDs []string) error
}

// StreakRepository defines streak persistence.
type StreakRepository interface {
	Get(ctx context.Context, userID string) (*models.Streak, error)
	Save(ctx context.Context, userID string, s models.Streak) error
}

// BadgeLister lists the badges a user earned.
type BadgeLister interface {
	ListForUser(ctx context.Context, userID string) ([]models.Badge, error)
}

// AccountService manages app users and their study progress.
type AccountService struct {
	users     UserRepository
	badges    BadgeLister
	bookmarks BookmarkRepository
	streaks   StreakRepository
	now       func() time.Time
}

// NewAccountService constructs a new AccountService.
func NewAccountService(users UserRepository, badges BadgeLister, bookmarks BookmarkRepository, streaks StreakRepository) *AccountService {
	return &AccountService{users: users, badges: badges, bookmarks: bookmarks, streaks: streaks, now: time.Now}
}

func (s *AccountService) List(ctx context.Context, page, size int) (*models.UserPage, error) {
	page, size = models.NormalizePaging(page, size)
	return s.users.List(ctx, page, size)
}

// Profile returns a user with earned badges, bookmarks and streak. A user
// without a stored streak gets a zero streak.
func (s *AccountService) Profile(ctx context.Context, id string) (*models.UserProfile, error) {
	u, err := s.users.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	badges, err := s.badges.ListForUser(ctx, id)
	if err != nil {
		return nil, err
	}
	bookmarks, err := s.bookmarks.List(ctx, id)
	if err != nil {
		return nil, err
	}
	streak, err := s.Streak(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.UserProfile{User: *u, Badges: badges, Bookmarks: bookmarks, Streak: *streak}, nil
}

// Register creates an app user with a hashed password.
func (s *AccountService) Register(ctx context.Context, name, email, password string) (*models.User, error) {
	name, email = strings.TrimSpace(name), strings.TrimSpace(email)
	if name == "" || email == "" || password == "" {
		return nil, apperr.Invalid("Name, email and password are required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperr.Invalid("Invalid email address")
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	return s.users.Create(ctx, models.User{ID: uuid.NewString(), Name: name, Email: email, PasswordHash: hash})
}

// Update overwrites name, email and avatar. Name and email are required.
func (s *AccountService) Update(ctx context.Context, id, name, email string, avatar *string) (*models.User, error) {
	name, email = strings.TrimSpace(name), strings.TrimSpace(email)
	if name == "" || email == "" {
		return nil, apperr.Invalid("Name and email are required")
	}
	return s.users.Update(ctx, models.User{ID: id, Name: name, Email: email, Avatar: avatar})
}

// Delete removes a user; bookmarks, badges and streak go with it.
func (s *AccountService) Delete(ctx context.Context, id string) error {
	return s.users.Delete(ctx, id)
}

// Badges lists the badges the user earned, most recent first.
func (s *AccountService) Badges(ctx context.Context, userID string) ([]models.Badge, error) {
	return s.badges.ListForUser(ctx, userID)
}

func (s *AccountService) Bookmarks(ctx context.Context, userID string) ([]string, error) {
	return s.bookmarks.List(ctx, userID)
}

// ReplaceBookmarks sets the user's bookmarks to ids and returns the stored
// set.
func (s *AccountService) ReplaceBookmarks(ctx context.Context, userID string, ids []string) ([]string, error) {
	clean := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		clean = append(clean, id)
	}
	if err := s.bookmarks.Replace(ctx, userID, clean); err != nil {
		return nil, err
	}
	return clean, nil
}

// Streak returns the stored streak, or a zero streak.
func (s *AccountService) Streak(ctx context.Context, userID string) (*models.Streak, error) {
	st, err := s.streaks.Get(ctx, userID)
	if apperr.Is(err, apperr.KindNotFound) {
		return &models.Streak{}, nil
	}
	return st, err
}

// CheckIn records study for today. A second check-in on the same day
// changes nothing; a check-in the day after the last one extends the
// streak; any later check-in starts over at 1.
func (s *AccountService) CheckIn(ctx context.Context, userID string) (*models.Streak, error) {
	st, err := s.Streak(ctx, userID)
	if err != nil {
		return nil, err
	}

	today := s.now()
	todayStr := today.Format(time.DateOnly)
	if st.LastUpdated == todayStr {
		return st, nil
	}

	next := *st
	if st.LastUpdated == today.AddDate(0, 0, -1).Format(time.DateOnly) {
		next.Current++
	} else {
		next.Current = 1
	}
	next.Best = max(next.Best, next.Current)
	next.LastUpdated = todayStr

	if err := s.streaks.Save(ctx, userID, next); err != nil {
		return nil, err
	}
	return &next, nil
}
