package service

import (
	"context"
	"strings"

	"github.com/atinyakov/HanziDeck/internal/apperr"
	"github.com/atinyakov/HanziDeck/internal/auth"
	"github.com/atinyakov/HanziDeck/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AdminRepository defines the staff account operations used by the
// authentication and staff services.
type AdminRepository interface {
	Get(ctx context.Context, id string) (*models.AdminUser, error)
	GetByUsername(ctx context.Context, username string) (*models.AdminUser, error)
	List(ctx context.Context) ([]models.AdminUser, error)
	Create(ctx context.Context, a models.AdminUser) (*models.AdminUser, error)
	Update(ctx context.Context, a models.AdminUser) (*models.AdminUser, error)
	UpdatePassword(ctx context.Context, id, hash string) error
	Delete(ctx context.Context, id string) error
}

// UserCredentials looks up app users by login email.
type UserCredentials interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// TokenIssuer signs bearer tokens.
type TokenIssuer interface {
	Issue(subject string, c auth.Claims) (string, error)
}

// AuthService implements login for staff and app users.
type AuthService struct {
	admins AdminRepository
	users  UserCredentials
	tokens TokenIssuer
	log    *zap.Logger
}

// NewAuthService constructs a new AuthService.
func NewAuthService(admins AdminRepository, users UserCredentials, tokens TokenIssuer, log *zap.Logger) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthService{admins: admins, users: users, tokens: tokens, log: log}
}

// AdminLogin checks staff credentials and returns a token carrying the
// account's role.
func (s *AuthService) AdminLogin(ctx context.Context, username, password string) (string, *models.AdminUser, error) {
	if username == "" || password == "" {
		return "", nil, apperr.Invalid("Username and password are required")
	}
	admin, err := s.admins.GetByUsername(ctx, username)
	if apperr.Is(err, apperr.KindNotFound) {
		return "", nil, apperr.Unauthorized("Invalid credentials")
	}
	if err != nil {
		return "", nil, err
	}
	if !auth.CheckPassword(admin.PasswordHash, password) {
		return "", nil, apperr.Unauthorized("Invalid credentials")
	}

	token, err := s.tokens.Issue(admin.ID, auth.Claims{Kind: auth.KindAdmin, Role: string(admin.Role)})
	if err != nil {
		return "", nil, err
	}
	return token, admin, nil
}

// UserLogin checks app user credentials.
func (s *AuthService) UserLogin(ctx context.Context, email, password string) (string, *models.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return "", nil, apperr.Invalid("Email and password are required")
	}
	user, err := s.users.GetByEmail(ctx, email)
	if apperr.Is(err, apperr.KindNotFound) {
		return "", nil, apperr.Unauthorized("Invalid credentials")
	}
	if err != nil {
		return "", nil, err
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return "", nil, apperr.Unauthorized("Invalid credentials")
	}

	token, err := s.tokens.Issue(user.ID, auth.Claims{Kind: auth.KindUser})
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// EnsureDefaultAdmin creates an admin account named username when it does
// not exist yet. An empty username or password disables the bootstrap.
func (s *AuthService) EnsureDefaultAdmin(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return nil
	}
	_, err := s.admins.GetByUsername(ctx, username)
	if err == nil {
		return nil
	}
	if !apperr.Is(err, apperr.KindNotFound) {
		return err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	_, err = s.admins.Create(ctx, models.AdminUser{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
		Role:         models.RoleAdmin,
	})
	if err != nil {
		return err
	}
	s.log.Info("created default admin account", zap.String("username", username))
	return nil
}
