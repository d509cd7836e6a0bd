package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/atinyakov/HanziDeck/internal/middleware"
	"github.com/atinyakov/HanziDeck/internal/ratelimit"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"go.uber.org/zap"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// Handlers groups the endpoint handlers mounted by NewRouter.
type Handlers struct {
	Auth       *AuthHandler
	Flashcards *FlashcardHandler
	Catalog    *CatalogHandler
	Accounts   *AccountHandler
	Staff      *StaffHandler
}

// RouterOptions configures the cross-cutting parts of the router.
type RouterOptions struct {
	// Validator checks bearer tokens on protected routes.
	Validator *validator.Validator
	// Limiter backs the per-client rate limit. Nil disables limiting.
	Limiter    ratelimit.Store
	RateLimit  int
	RateWindow time.Duration
	// MediaDir, when set, is served read-only under MediaURL.
	MediaDir string
	MediaURL string
}

// NewRouter constructs the HTTP handler of the HanziDeck API.
//
// Routes:
//
//	GET  /health
//	POST /api/auth/login, /api/auth/logout
//	GET  /api/flashcards, /api/flashcards/{id}, /api/topics, /api/levels
//	GET  /api/user, /api/badges, /api/streak; GET|PUT /api/bookmarks;
//	POST /api/streak/check-in                       (app users)
//	POST /api/admin/auth/login, /api/admin/auth/logout
//	     /api/admin/admin-users, /api/admin/users   (admin role)
//	     /api/admin/flashcards, topics, levels, badges (any staff)
//
// Middleware chain (applied in order): RealIP, RequestID, request logging,
// sensitive path block, bearer format check, rate limit, content type.
func NewRouter(h Handlers, opts RouterOptions, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.RequestID)
	r.Use(middleware.WithRequestLogging(logger))
	r.Use(middleware.BlockSensitivePaths)
	r.Use(middleware.ValidateBearerFormat)
	if opts.Limiter != nil && opts.RateLimit > 0 {
		r.Use(middleware.RateLimit(opts.Limiter, opts.RateLimit, opts.RateWindow, logger))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if opts.MediaDir != "" {
		prefix := "/" + strings.Trim(opts.MediaURL, "/")
		if prefix == "/" {
			prefix = "/uploads"
		}
		fs := http.StripPrefix(prefix+"/", http.FileServer(http.Dir(opts.MediaDir)))
		r.Get(prefix+"/*", fs.ServeHTTP)
	}

	authenticate := middleware.Authenticate(opts.Validator)

	r.Route("/api", func(r chi.Router) {
		r.Use(chiMiddleware.AllowContentType("application/json", "multipart/form-data"))

		// Public endpoints
		r.Post("/auth/login", h.Auth.UserLogin)
		r.Post("/auth/logout", h.Auth.Logout)
		r.Get("/flashcards", h.Flashcards.PublicList)
		r.Get("/flashcards/{id}", h.Flashcards.Get)
		r.Get("/topics", h.Catalog.ListTopics)
		r.Get("/levels", h.Catalog.ListLevels)

		// App user endpoints
		r.Group(func(r chi.Router) {
			r.Use(authenticate, middleware.RequireUser)
			r.Get("/user", h.Accounts.Me)
			r.Get("/bookmarks", h.Accounts.GetBookmarks)
			r.Put("/bookmarks", h.Accounts.PutBookmarks)
			r.Get("/streak", h.Accounts.GetStreak)
			r.Post("/streak/check-in", h.Accounts.CheckIn)
			r.Get("/badges", h.Accounts.MyBadges)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/auth/login", h.Auth.AdminLogin)
			r.Post("/auth/logout", h.Auth.Logout)

			r.Group(func(r chi.Router) {
				r.Use(authenticate)

				// Any staff account may change its own password.
				r.With(middleware.RequireAdminOrModerator).Put("/admin-users/{id}/password", h.Staff.ChangePassword)

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireAdmin)
					r.Get("/admin-users", h.Staff.List)
					r.Get("/admin-users/{id}", h.Staff.Get)
					r.Post("/admin-users", h.Staff.Create)
					r.Put("/admin-users/{id}", h.Staff.Update)
					r.Delete("/admin-users/{id}", h.Staff.Delete)

					r.Get("/users", h.Accounts.ListUsers)
					r.Post("/users", h.Accounts.CreateUser)
					r.Get("/users/{id}", h.Accounts.GetUser)
					r.Put("/users/{id}", h.Accounts.UpdateUser)
					r.Delete("/users/{id}", h.Accounts.DeleteUser)
				})

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireAdminOrModerator)
					r.Get("/flashcards", h.Flashcards.List)
					r.Get("/flashcards/{id}", h.Flashcards.Get)
					r.Post("/flashcards", h.Flashcards.Create)
					r.Put("/flashcards/{id}", h.Flashcards.Update)
					r.Delete("/flashcards/{id}", h.Flashcards.Delete)
					r.Post("/flashcards/{id}/image", h.Flashcards.UploadImage)
					r.Post("/flashcards/{id}/audio", h.Flashcards.UploadAudio)
					r.Post("/flashcards/{id}/upload-image", h.Flashcards.UploadImage)
					r.Post("/flashcards/{id}/upload-audio", h.Flashcards.UploadAudio)

					r.Get("/topics", h.Catalog.ListTopics)
					r.Get("/topics/{id}", h.Catalog.GetTopic)
					r.Post("/topics", h.Catalog.CreateTopic)
					r.Put("/topics/{id}", h.Catalog.UpdateTopic)
					r.Delete("/topics/{id}", h.Catalog.DeleteTopic)

					r.Get("/levels", h.Catalog.ListLevels)
					r.Get("/levels/{id}", h.Catalog.GetLevel)
					r.Post("/levels", h.Catalog.CreateLevel)
					r.Put("/levels/{id}", h.Catalog.UpdateLevel)
					r.Delete("/levels/{id}", h.Catalog.DeleteLevel)

					r.Get("/badges", h.Catalog.ListBadges)
					r.Get("/badges/{id}", h.Catalog.GetBadge)
					r.Post("/badges", h.Catalog.CreateBadge)
					r.Put("/badges/{id}", h.Catalog.UpdateBadge)
					r.Delete("/badges/{id}", h.Catalog.DeleteBadge)
					r.Post("/badges/{id}/assign", h.Catalog.AssignBadge)
					r.Delete("/badges/{id}/unassign", h.Catalog.UnassignBadge)
				})
			})
		})
	})

	return r
}
