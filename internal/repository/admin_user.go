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

const adminColumns = `id, username, password, role, created_at, updated_at`

// AdminUserRepository implements staff account storage.
type AdminUserRepository struct {
	DB      *sql.DB
	Dialect db.Dialect
}

// NewAdminUserRepository creates an AdminUserRepository over conn.
func NewAdminUserRepository(conn *sql.DB, dialect db.Dialect) *AdminUserRepository {
	return &AdminUserRepository{DB: conn, Dialect: dialect}
}

func scanAdmin(row scanner) (models.AdminUser, error) {
	var a models.AdminUser
	err := row.Scan(&a.ID, &a.Username, &a.PasswordHash, &a.Role, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func (r *AdminUserRepository) getBy(ctx context.Context, column, value string) (*models.AdminUser, error) {
	row := r.DB.QueryRowContext(ctx, r.Dialect.Rebind(`SELECT `+adminColumns+` FROM admin_users WHERE `+column+` = $1`), value)
	a, err := scanAdmin(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("Admin user")
	}
	if err != nil {
		return nil, fmt.Errorf("get admin user: %w", err)
	}
	return &a, nil
}

// Get returns a staff account by id.
func (r *AdminUserRepository) Get(ctx context.Context, id string) (*models.AdminUser, error) {
	return r.getBy(ctx, "id", id)
}

// GetByUsername returns a staff account by login name.
func (r *AdminUserRepository) GetByUsername(ctx context.Context, username string) (*models.AdminUser, error) {
	return r.getBy(ctx, "username", username)
}

// List returns all staff accounts ordered by username.
func (r *AdminUserRepository) List(ctx context.Context) ([]models.AdminUser, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+adminColumns+` FROM admin_users ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("list admin users: %w", err)
	}
	defer rows.Close()

	admins := []models.AdminUser{}
	for rows.Next() {
		a, err := scanAdmin(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		admins = append(admins, a)
	}
	return admins, rows.Err()
}

// Create inserts a. A taken username is a conflict.
func (r *AdminUserRepository) Create(ctx context.Context, a models.AdminUser) (*models.AdminUser, error) {
	_, err := r.DB.ExecContext(ctx, r.Dialect.Rebind(
		`INSERT INTO admin_users (id, username, password, role) VALUES ($1, $2, $3, $4)`,
	), a.ID, a.Username, a.PasswordHash, a.Role)
	if db.IsUniqueViolation(err) {
		return nil, apperr.Conflict("Username already exists", err)
	}
	if err != nil {
		return nil, fmt.Errorf("create admin user: %w", err)
	}
	return r.Get(ctx, a.ID)
}

// Update changes username and role of a.ID.
func (r *AdminUserRepository) Update(ctx context.Context, a models.AdminUser) (*models.AdminUser, error) {
	res, err := r.DB.ExecContext(ctx, r.Dialect.Rebind(`
		UPDATE admin_users
		SET username = $1, role = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $3
	`), a.Username, a.Role, a.ID)
	if db.IsUniqueViolation(err) {
		return nil, apperr.Conflict("Username already exists", err)
	}
	if err != nil {
		return nil, fmt.Errorf("update admin user: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, apperr.NotFound("Admin user")
	}
	return r.Get(ctx, a.ID)
}

// UpdatePassword stores a new password hash for id.
func (r *AdminUserRepository) UpdatePassword(ctx context.Context, id, hash string) error {
	res, err := r.DB.ExecContext(ctx, r.Dialect.Rebind(
		`UPDATE admin_users SET password = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`,
	), hash, id)
	if err != nil {
		return fmt.Errorf("update admin password: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperr.NotFound("Admin user")
	}
	return nil
}

// Delete removes a staff account.
func (r *AdminUserRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.DB.ExecContext(ctx, r.Dialect.Rebind(`DELETE FROM admin_users WHERE id = $1`), id); err != nil {
		return fmt.Errorf("delete admin user: %w", err)
	}
	return nil
}
