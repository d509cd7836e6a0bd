package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/atinyakov/HanziDeck/internal/apperr"
	"github.com/atinyakov/HanziDeck/internal/db"
	"github.com/atinyakov/HanziDeck/internal/models"
)

// BookmarkRepository implements a learner's saved flashcards.
type BookmarkRepository struct {
	DB      *sql.DB
	Dialect db.Dialect
}

// NewBookmarkRepository creates a BookmarkRepository over conn.
func NewBookmarkRepository(conn *sql.DB, dialect db.Dialect) *BookmarkRepository {
	return &BookmarkRepository{DB: conn, Dialect: dialect}
}

// List returns the bookmarked flashcard ids of a user, oldest first.
func (r *BookmarkRepository) List(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, r.Dialect.Rebind(
		`SELECT flashcard_id FROM bookmarks WHERE user_id = $1 ORDER BY created_at, flashcard_id`,
	), userID)
	if err != nil {
		return nil, fmt.Errorf("list bookmarks: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Replace sets the user's bookmarks to exactly flashcardIDs in one
// transaction. Duplicates in the input are stored once.
func (r *BookmarkRepository) Replace(ctx context.Context, userID string, flashcardIDs []string) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, r.Dialect.Rebind(`DELETE FROM bookmarks WHERE user_id = $1`), userID); err != nil {
		return fmt.Errorf("clear bookmarks: %w", err)
	}

	insert := r.Dialect.Rebind(`INSERT INTO bookmarks (user_id, flashcard_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`)
	for _, id := range flashcardIDs {
		if _, err := tx.ExecContext(ctx, insert, userID, id); err != nil {
			if db.IsForeignKeyViolation(err) {
				return apperr.Reference("Unknown flashcard: %s", id)
			}
			return fmt.Errorf("insert bookmark: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// StreakRepository implements daily study streaks.
type StreakRepository struct {
	DB      *sql.DB
	Dialect db.Dialect
}

// NewStreakRepository creates a StreakRepository over conn.
func NewStreakRepository(conn *sql.DB, dialect db.Dialect) *StreakRepository {
	return &StreakRepository{DB: conn, Dialect: dialect}
}

// Get returns the stored streak of a user or a not-found error.
func (r *StreakRepository) Get(ctx context.Context, userID string) (*models.Streak, error) {
	var (
		s    models.Streak
		last time.Time
	)
	err := r.DB.QueryRowContext(ctx, r.Dialect.Rebind(
		`SELECT current, best, last_updated FROM streaks WHERE user_id = $1`,
	), userID).Scan(&s.Current, &s.Best, &last)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("Streak")
	}
	if err != nil {
		return nil, fmt.Errorf("get streak: %w", err)
	}
	s.LastUpdated = last.Format(time.DateOnly)
	return &s, nil
}

// Save stores s for the user, inserting the row on first use.
func (r *StreakRepository) Save(ctx context.Context, userID string, s models.Streak) error {
	_, err := r.DB.ExecContext(ctx, r.Dialect.Rebind(`
		INSERT INTO streaks (user_id, current, best, last_updated)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET
			current = EXCLUDED.current,
			best = EXCLUDED.best,
			last_updated = EXCLUDED.last_updated
	`), userID, s.Current, s.Best, s.LastUpdated)
	if db.IsForeignKeyViolation(err) {
		return apperr.NotFound("User")
	}
	if err != nil {
		return fmt.Errorf("save streak: %w", err)
	}
	return nil
}
