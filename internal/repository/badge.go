package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/atinyakov/HanziDeck/internal/apperr"
	"github.com/atinyakov/HanziDeck/internal/db"
	"github.com/atinyakov/HanziDeck/internal/models"
)

// BadgeRepository implements badge storage and awarding.
type BadgeRepository struct {
	DB      *sql.DB
	Dialect db.Dialect
}

// NewBadgeRepository creates a BadgeRepository over conn.
func NewBadgeRepository(conn *sql.DB, dialect db.Dialect) *BadgeRepository {
	return &BadgeRepository{DB: conn, Dialect: dialect}
}

// List returns all badges, newest first.
func (r *BadgeRepository) List(ctx context.Context) ([]models.Badge, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id, name, icon, description FROM badges ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list badges: %w", err)
	}
	defer rows.Close()

	badges := []models.Badge{}
	for rows.Next() {
		var b models.Badge
		if err := rows.Scan(&b.ID, &b.Name, &b.Icon, &b.Description); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		badges = append(badges, b)
	}
	return badges, rows.Err()
}

// Get returns a badge or a not-found error.
func (r *BadgeRepository) Get(ctx context.Context, id string) (*models.Badge, error) {
	var b models.Badge
	err := r.DB.QueryRowContext(ctx, r.Dialect.Rebind(`SELECT id, name, icon, description FROM badges WHERE id = $1`), id).
		Scan(&b.ID, &b.Name, &b.Icon, &b.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("Badge")
	}
	if err != nil {
		return nil, fmt.Errorf("get badge: %w", err)
	}
	return &b, nil
}

// Create inserts b.
func (r *BadgeRepository) Create(ctx context.Context, b models.Badge) (*models.Badge, error) {
	_, err := r.DB.ExecContext(ctx, r.Dialect.Rebind(`INSERT INTO badges (id, name, icon, description) VALUES ($1, $2, $3, $4)`),
		b.ID, b.Name, b.Icon, b.Description)
	if db.IsUniqueViolation(err) {
		return nil, apperr.Conflict("Badge already exists", err)
	}
	if err != nil {
		return nil, fmt.Errorf("create badge: %w", err)
	}
	return &b, nil
}

// Update overwrites name, icon and description of b.ID.
func (r *BadgeRepository) Update(ctx context.Context, b models.Badge) (*models.Badge, error) {
	res, err := r.DB.ExecContext(ctx, r.Dialect.Rebind(`
		UPDATE badges
		SET name = $1, icon = $2, description = $3, updated_at = CURRENT_TIMESTAMP
		WHERE id = $4
	`), b.Name, b.Icon, b.Description, b.ID)
	if err != nil {
		return nil, fmt.Errorf("update badge: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, apperr.NotFound("Badge")
	}
	return &b, nil
}

// Delete removes a badge and, by cascade, its awards.
func (r *BadgeRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.DB.ExecContext(ctx, r.Dialect.Rebind(`DELETE FROM badges WHERE id = $1`), id); err != nil {
		return fmt.Errorf("delete badge: %w", err)
	}
	return nil
}

// ListForUser returns the badges a user earned, most recent first.
func (r *BadgeRepository) ListForUser(ctx context.Context, userID string) ([]models.Badge, error) {
	rows, err := r.DB.QueryContext(ctx, r.Dialect.Rebind(`
		SELECT b.id, b.name, b.icon, b.description, ub.earned_at
		FROM badges b
		JOIN user_badges ub ON b.id = ub.badge_id
		WHERE ub.user_id = $1
		ORDER BY ub.earned_at DESC, b.id
	`), userID)
	if err != nil {
		return nil, fmt.Errorf("list user badges: %w", err)
	}
	defer rows.Close()

	badges := []models.Badge{}
	for rows.Next() {
		var b models.Badge
		if err := rows.Scan(&b.ID, &b.Name, &b.Icon, &b.Description, &b.EarnedAt); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		badges = append(badges, b)
	}
	return badges, rows.Err()
}

// Assign awards a badge to a user. Awarding it twice is a no-op. An unknown
// user or badge is reported as not found.
func (r *BadgeRepository) Assign(ctx context.Context, userID, badgeID string) error {
	_, err := r.DB.ExecContext(ctx, r.Dialect.Rebind(
		`INSERT INTO user_badges (user_id, badge_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
	), userID, badgeID)
	if db.IsForeignKeyViolation(err) {
		return apperr.NotFound("User or badge")
	}
	if err != nil {
		return fmt.Errorf("assign badge: %w", err)
	}
	return nil
}

// Unassign revokes a badge from a user.
func (r *BadgeRepository) Unassign(ctx context.Context, userID, badgeID string) error {
	_, err := r.DB.ExecContext(ctx, r.Dialect.Rebind(`DELETE FROM user_badges WHERE user_id = $1 AND badge_id = $2`), userID, badgeID)
	if err != nil {
		return fmt.Errorf("unassign badge: %w", err)
	}
	return nil
}
