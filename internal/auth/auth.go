// Package auth issues and validates bearer tokens and hashes passwords for
// admin staff and app users.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Token subject kinds.
const (
	KindAdmin = "admin"
	KindUser  = "user"
)

// Claims are the application claims carried next to the registered ones.
type Claims struct {
	Kind string `json:"kind"`
	// Role is set for admin tokens only.
	Role string `json:"role,omitempty"`
}

// Validate implements validator.CustomClaims.
func (c *Claims) Validate(context.Context) error {
	switch c.Kind {
	case KindAdmin:
		if c.Role == "" {
			return errors.New("admin token without role")
		}
	case KindUser:
	default:
		return fmt.Errorf("unknown token kind %q", c.Kind)
	}
	return nil
}

type tokenClaims struct {
	Claims
	jwt.RegisteredClaims
}

// Issuer signs HS256 tokens.
type Issuer struct {
	secret   []byte
	issuer   string
	audience string
	expiry   time.Duration
	now      func() time.Time
}

// NewIssuer creates an Issuer. A zero expiry means 24 hours.
func NewIssuer(secret, issuer, audience string, expiry time.Duration) *Issuer {
	if expiry <= 0 {
		expiry = 24 * time.Hour
	}
	return &Issuer{secret: []byte(secret), issuer: issuer, audience: audience, expiry: expiry, now: time.Now}
}

// Issue returns a signed token for subject.
func (i *Issuer) Issue(subject string, c Claims) (string, error) {
	now := i.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		Claims: c,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			Issuer:    i.issuer,
			Audience:  jwt.ClaimStrings{i.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.expiry)),
		},
	})
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// NewValidator returns a validator accepting tokens produced by an Issuer
// with the same secret, issuer and audience.
func NewValidator(secret, issuer, audience string) (*validator.Validator, error) {
	key := []byte(secret)
	return validator.New(
		func(context.Context) (any, error) { return key, nil },
		validator.HS256,
		issuer,
		[]string{audience},
		validator.WithCustomClaims(func() validator.CustomClaims { return &Claims{} }),
		validator.WithAllowedClockSkew(30*time.Second),
	)
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

// CheckPassword reports whether password matches hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
