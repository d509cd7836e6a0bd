// Package main initializes and starts the HanziDeck API server, setting up
// configuration, logging, the database, media backends, repositories,
// services and handlers.
package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	nethttp "net/http"

	"github.com/atinyakov/HanziDeck/internal/auth"
	"github.com/atinyakov/HanziDeck/internal/config"
	"github.com/atinyakov/HanziDeck/internal/db"
	"github.com/atinyakov/HanziDeck/internal/logger"
	"github.com/atinyakov/HanziDeck/internal/media"
	"github.com/atinyakov/HanziDeck/internal/ratelimit"
	"github.com/atinyakov/HanziDeck/internal/repository"
	"github.com/atinyakov/HanziDeck/internal/server/handler/http"
	"github.com/atinyakov/HanziDeck/internal/service"
	"github.com/atinyakov/HanziDeck/internal/tts"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	// Parse command-line and environment configuration.
	options := config.Parse()

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(options.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	zapLogger := log.Log

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, dialect, err := db.Open(ctx, options.DatabaseDriver, options.DatabaseDSN)
	if err != nil {
		zapLogger.Fatal("cannot init database", zap.Error(err))
	}
	defer conn.Close()

	db.StartStreakSweeper(ctx, conn, dialect, options.StreakSweepInterval, zapLogger)

	// Media backends.
	store, closeStore, err := newMediaStore(ctx, options)
	if err != nil {
		zapLogger.Fatal("cannot init media store", zap.Error(err))
	}
	defer closeStore()

	var synth tts.Synthesizer
	if options.TTSEnabled {
		google, err := tts.NewGoogle(ctx, options.GoogleCredentialsFile)
		if err != nil {
			zapLogger.Fatal("cannot init text-to-speech", zap.Error(err))
		}
		defer google.Close()
		synth = google
	}

	limiter := newLimiter(ctx, options, zapLogger)

	// Repositories.
	flashcardRepo := repository.NewFlashcardRepository(conn, dialect)
	topicRepo := repository.NewTopicRepository(conn, dialect)
	levelRepo := repository.NewLevelRepository(conn, dialect)
	badgeRepo := repository.NewBadgeRepository(conn, dialect)
	userRepo := repository.NewUserRepository(conn, dialect)
	adminRepo := repository.NewAdminUserRepository(conn, dialect)
	bookmarkRepo := repository.NewBookmarkRepository(conn, dialect)
	streakRepo := repository.NewStreakRepository(conn, dialect)

	// Business-logic services.
	issuer := auth.NewIssuer(options.JWTSecret, options.JWTIssuer, options.JWTAudience, options.JWTExpiry)
	authService := service.NewAuthService(adminRepo, userRepo, issuer, zapLogger)
	staffService := service.NewStaffService(adminRepo)
	catalogService := service.NewCatalogService(topicRepo, levelRepo, badgeRepo)
	accountService := service.NewAccountService(userRepo, badgeRepo, bookmarkRepo, streakRepo)
	flashcardService := service.NewFlashcardService(
		flashcardRepo, topicRepo, levelRepo, store, synth, options.MediaTimeout, zapLogger,
	)

	if err := authService.EnsureDefaultAdmin(ctx, options.DefaultAdminUsername, options.DefaultAdminPassword); err != nil {
		zapLogger.Fatal("cannot create default admin", zap.Error(err))
	}

	validator, err := auth.NewValidator(options.JWTSecret, options.JWTIssuer, options.JWTAudience)
	if err != nil {
		zapLogger.Fatal("cannot init token validator", zap.Error(err))
	}

	routerOpts := http.RouterOptions{
		Validator:  validator,
		Limiter:    limiter,
		RateLimit:  options.RateLimitRequests,
		RateWindow: options.RateLimitWindow,
	}
	if usesLocalMedia(options.MediaBackend) {
		routerOpts.MediaDir = options.MediaDir
		routerOpts.MediaURL = options.MediaBaseURL
	}

	// Build the router with middleware and routes.
	router := http.NewRouter(http.Handlers{
		Auth:       &http.AuthHandler{AuthService: authService, Log: zapLogger},
		Flashcards: &http.FlashcardHandler{Flashcards: flashcardService, Facets: catalogService, UploadDir: options.UploadDir, Log: zapLogger},
		Catalog:    &http.CatalogHandler{Catalog: catalogService, Log: zapLogger},
		Accounts:   &http.AccountHandler{Accounts: accountService, Log: zapLogger},
		Staff:      &http.StaffHandler{Staff: staffService, Log: zapLogger},
	}, routerOpts, zapLogger)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   options.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Requested-With", "Accept", "Origin"},
		AllowCredentials: true,
		MaxAge:           86400,
	}).Handler(router)

	server := &nethttp.Server{
		Addr:              options.Address,
		Handler:           corsHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			zapLogger.Error("graceful shutdown failed", zap.Error(err))
		}
	}()

	zapLogger.Info("starting HTTP server",
		zap.String("addr", options.Address),
		zap.String("db", dialect.String()),
		zap.String("media", options.MediaBackend),
		zap.Bool("tts", synth != nil),
	)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
		zapLogger.Fatal("failed to start HTTP server", zap.Error(err))
	}
	zapLogger.Info("server stopped")
}

// usesLocalMedia reports whether uploads go to disk and are served by this
// process. An unset backend means local.
func usesLocalMedia(backend string) bool {
	return backend == "local" || backend == ""
}

func newMediaStore(ctx context.Context, options *config.Options) (media.Store, func(), error) {
	switch {
	case usesLocalMedia(options.MediaBackend):
		return media.NewLocalStore(options.MediaDir, options.MediaBaseURL), func() {}, nil
	case options.MediaBackend == "gcs":
		s, err := media.NewGCSStore(ctx, options.GCSBucket, options.GCSPublicBaseURL, options.GoogleCredentialsFile)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown media backend %q", options.MediaBackend)
	}
}

// newLimiter prefers the shared Redis store and falls back to process
// memory when Redis is not configured or unreachable.
func newLimiter(ctx context.Context, options *config.Options, log *zap.Logger) ratelimit.Store {
	if options.RedisURL == "" {
		return ratelimit.NewMemory()
	}
	r, err := ratelimit.NewRedis(options.RedisURL)
	if err != nil {
		log.Warn("invalid redis URL, using in-memory rate limit", zap.Error(err))
		return ratelimit.NewMemory()
	}
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := r.Ping(pingCtx); err != nil {
		log.Warn("redis unreachable, using in-memory rate limit", zap.Error(err))
		_ = r.Close()
		return ratelimit.NewMemory()
	}
	return r
}
