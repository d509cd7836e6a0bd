package service

import (
	"context"
	"strings"

	"github.com/atinyakov/HanziDeck/internal/apperr"
	"github.com/atinyakov/HanziDeck/internal/auth"
	"github.com/atinyakov/HanziDeck/internal/models"
	"github.com/google/uuid"
)

// StaffService manages admin panel accounts.
type StaffService struct {
	admins AdminRepository
}

// NewStaffService constructs a new StaffService.
func NewStaffService(admins AdminRepository) *StaffService {
	return &StaffService{admins: admins}
}

func (s *StaffService) List(ctx context.Context) ([]models.AdminUser, error) {
	return s.admins.List(ctx)
}

func (s *StaffService) Get(ctx context.Context, id string) (*models.AdminUser, error) {
	return s.admins.Get(ctx, id)
}

// Create adds a staff account with a hashed password.
func (s *StaffService) Create(ctx context.Context, username, password string, role models.AdminRole) (*models.AdminUser, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" || role == "" {
		return nil, apperr.Invalid("Username, password, and role are required")
	}
	if !role.Valid() {
		return nil, apperr.Invalid(`Role must be "admin" or "moderator"`)
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	return s.admins.Create(ctx, models.AdminUser{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
		Role:         role,
	})
}

// Update changes username and role.
func (s *StaffService) Update(ctx context.Context, id, username string, role models.AdminRole) (*models.AdminUser, error) {
	username = strings.TrimSpace(username)
	if username == "" || role == "" {
		return nil, apperr.Invalid("Username and role are required")
	}
	if !role.Valid() {
		return nil, apperr.Invalid(`Role must be "admin" or "moderator"`)
	}
	return s.admins.Update(ctx, models.AdminUser{ID: id, Username: username, Role: role})
}

func (s *StaffService) Delete(ctx context.Context, id string) error {
	return s.admins.Delete(ctx, id)
}

// ChangePassword sets a new password for id. Staff may change their own
// password; changing someone else's requires the admin role.
func (s *StaffService) ChangePassword(ctx context.Context, callerID string, callerRole models.AdminRole, id, newPassword string) error {
	if newPassword == "" {
		return apperr.Invalid("New password is required")
	}
	if callerID != id && callerRole != models.RoleAdmin {
		return apperr.Forbidden("Admin access required")
	}
	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.admins.UpdatePassword(ctx, id, hash)
}
