// Package middleware provides HTTP middlewares for authentication,
// authorization, request hygiene and logging.
package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/atinyakov/HanziDeck/internal/auth"
	"github.com/atinyakov/HanziDeck/internal/models"
	jwtmiddleware "github.com/auth0/go-jwt-middleware/v2"
	"github.com/auth0/go-jwt-middleware/v2/validator"
)

type ctxKey string

const identityKey ctxKey = "identity"

// Identity is the authenticated caller of a request.
type Identity struct {
	SubjectID string
	// Role is empty for app users.
	Role string
	Kind string
}

// IsAdmin reports whether the caller is staff with the admin role.
func (i Identity) IsAdmin() bool {
	return i.Kind == auth.KindAdmin && i.Role == string(models.RoleAdmin)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// Authenticate validates the bearer token with v and stores the caller's
// Identity in the request context. Requests without a valid token get 401.
func Authenticate(v *validator.Validator) func(http.Handler) http.Handler {
	checker := jwtmiddleware.New(v.ValidateToken,
		jwtmiddleware.WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
			if errors.Is(err, jwtmiddleware.ErrJWTMissing) {
				writeError(w, http.StatusUnauthorized, "No token provided")
				return
			}
			writeError(w, http.StatusUnauthorized, "Invalid or expired token")
		}),
	)

	return func(next http.Handler) http.Handler {
		return checker.CheckJWT(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := r.Context().Value(jwtmiddleware.ContextKey{}).(*validator.ValidatedClaims)
			if !ok || claims.RegisteredClaims.Subject == "" {
				writeError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}
			id := Identity{SubjectID: claims.RegisteredClaims.Subject}
			if c, ok := claims.CustomClaims.(*auth.Claims); ok && c != nil {
				id.Kind = c.Kind
				id.Role = c.Role
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		}))
	}
}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// GetIdentityFromContext extracts the caller stored by Authenticate.
func GetIdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

// GetUserIDFromContext returns the subject of the caller, or "".
func GetUserIDFromContext(ctx context.Context) string {
	id, _ := GetIdentityFromContext(ctx)
	return id.SubjectID
}

func requireKind(kind string, roles ...models.AdminRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := GetIdentityFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "Authentication required")
				return
			}
			if id.Kind != kind {
				writeError(w, http.StatusForbidden, "Access denied")
				return
			}
			if len(roles) > 0 && !hasRole(id.Role, roles) {
				writeError(w, http.StatusForbidden, "Insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func hasRole(role string, roles []models.AdminRole) bool {
	for _, r := range roles {
		if role == string(r) {
			return true
		}
	}
	return false
}

// RequireUser admits app users only.
func RequireUser(next http.Handler) http.Handler {
	return requireKind(auth.KindUser)(next)
}

// RequireAdmin admits staff with the admin role.
func RequireAdmin(next http.Handler) http.Handler {
	return requireKind(auth.KindAdmin, models.RoleAdmin)(next)
}

// RequireAdminOrModerator admits any staff account.
func RequireAdminOrModerator(next http.Handler) http.Handler {
	return requireKind(auth.KindAdmin, models.RoleAdmin, models.RoleModerator)(next)
}
