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

const userColumns = `id, name, email, password, avatar, created_at`

// UserRepository implements learner account storage.
type UserRepository struct {
	DB      *sql.DB
	Dialect db.Dialect
}

// NewUserRepository creates a UserRepository over conn.
func NewUserRepository(conn *sql.DB, dialect db.Dialect) *UserRepository {
	return &UserRepository{DB: conn, Dialect: dialect}
}

func scanUser(row scanner) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Avatar, &u.CreatedAt)
	return u, err
}

func (r *UserRepository) getBy(ctx context.Context, column, value string) (*models.User, error) {
	row := r.DB.QueryRowContext(ctx, r.Dialect.Rebind(`SELECT `+userColumns+` FROM users WHERE `+column+` = $1`), value)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("User")
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

// Get returns a user by id.
func (r *UserRepository) Get(ctx context.Context, id string) (*models.User, error) {
	return r.getBy(ctx, "id", id)
}

// GetByEmail returns a user by login email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getBy(ctx, "email", email)
}

// List returns one page of users, newest first.
func (r *UserRepository) List(ctx context.Context, page, size int) (*models.UserPage, error) {
	page, size = models.NormalizePaging(page, size)

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}

	result := &models.UserPage{
		Items:      []models.User{},
		Total:      total,
		TotalPages: models.TotalPages(total, size),
		Page:       page,
		PageSize:   size,
	}
	offset := (page - 1) * size
	if offset >= total {
		return result, nil
	}

	rows, err := r.DB.QueryContext(ctx, r.Dialect.Rebind(
		`SELECT `+userColumns+` FROM users ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`,
	), size, offset)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		result.Items = append(result.Items, u)
	}
	return result, rows.Err()
}

// Create inserts u. A taken email is a conflict.
func (r *UserRepository) Create(ctx context.Context, u models.User) (*models.User, error) {
	_, err := r.DB.ExecContext(ctx, r.Dialect.Rebind(
		`INSERT INTO users (id, name, email, password, avatar) VALUES ($1, $2, $3, $4, $5)`,
	), u.ID, u.Name, u.Email, u.PasswordHash, u.Avatar)
	if db.IsUniqueViolation(err) {
		return nil, apperr.Conflict("Email already registered", err)
	}
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return r.Get(ctx, u.ID)
}

// Update overwrites name, email and avatar of u.ID.
func (r *UserRepository) Update(ctx context.Context, u models.User) (*models.User, error) {
	res, err := r.DB.ExecContext(ctx, r.Dialect.Rebind(`
		UPDATE users
		SET name = $1, email = $2, avatar = $3, updated_at = CURRENT_TIMESTAMP
		WHERE id = $4
	`), u.Name, u.Email, u.Avatar, u.ID)
	if db.IsUniqueViolation(err) {
		return nil, apperr.Conflict("Email already registered", err)
	}
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, apperr.NotFound("User")
	}
	return r.Get(ctx, u.ID)
}

// Delete removes a user together with bookmarks, badges and streak.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.DB.ExecContext(ctx, r.Dialect.Rebind(`DELETE FROM users WHERE id = $1`), id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}
