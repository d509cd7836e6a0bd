// Package config provides functionality for managing configuration options
// for the application using command-line flags, an optional JSON file,
// a .env file and environment variables.
package config

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Options holds the configuration values for the application.
type Options struct {
	// Address defines the server's listening address (ip:port).
	Address string

	// DatabaseDriver selects the storage engine: "postgres" or "sqlite".
	DatabaseDriver string
	// DatabaseDSN holds the database connection string for the application.
	DatabaseDSN string

	// JWTSecret signs and verifies bearer tokens.
	JWTSecret   string
	JWTIssuer   string
	JWTAudience string
	JWTExpiry   time.Duration

	// MediaBackend selects where uploaded media goes: "local" or "gcs".
	MediaBackend string
	// MediaDir is the root directory of the local media backend.
	MediaDir string
	// MediaBaseURL prefixes object keys of the local media backend.
	MediaBaseURL string
	GCSBucket    string
	// GCSPublicBaseURL overrides https://storage.googleapis.com/<bucket>.
	GCSPublicBaseURL string
	// GoogleCredentialsFile is used by the GCS and TTS clients when set.
	GoogleCredentialsFile string
	TTSEnabled            bool
	// MediaTimeout bounds every media upload and TTS call.
	MediaTimeout time.Duration
	// UploadDir holds temporary multipart uploads.
	UploadDir string

	// RedisURL enables the shared rate-limit store when set.
	RedisURL          string
	RateLimitRequests int
	RateLimitWindow   time.Duration

	CORSOrigins []string

	DefaultAdminUsername string
	DefaultAdminPassword string

	LogLevel            string
	StreakSweepInterval time.Duration

	// Config is the path to the Config file.
	Config string
}

// options holds the current configuration values.
var options = &Options{}

var corsOrigins string

// init initializes command-line flags and sets default values.
func init() {
	flag.StringVar(&options.Address, "a", "localhost:3000", "run on ip:port server")
	flag.StringVar(&options.DatabaseDriver, "driver", "sqlite", "database driver (postgres|sqlite)")
	flag.StringVar(&options.DatabaseDSN, "d", "file:data/flashcard.db?_pragma=foreign_keys(1)", "db address")
	flag.StringVar(&options.JWTSecret, "jwt-secret", "your_secret_key", "token signing secret")
	flag.StringVar(&options.JWTIssuer, "jwt-issuer", "hanzideck", "token issuer")
	flag.StringVar(&options.JWTAudience, "jwt-audience", "hanzideck-api", "token audience")
	flag.DurationVar(&options.JWTExpiry, "jwt-expiry", 7*24*time.Hour, "token lifetime")
	flag.StringVar(&options.MediaBackend, "media", "local", "media backend (local|gcs)")
	flag.StringVar(&options.MediaDir, "media-dir", "public/uploads", "local media directory")
	flag.StringVar(&options.MediaBaseURL, "media-url", "/uploads", "local media public URL prefix")
	flag.StringVar(&options.GCSBucket, "gcs-bucket", "", "GCS bucket for media")
	flag.StringVar(&options.GCSPublicBaseURL, "gcs-url", "", "public base URL of the GCS bucket")
	flag.StringVar(&options.GoogleCredentialsFile, "google-creds", "", "path to Google service account key")
	flag.BoolVar(&options.TTSEnabled, "tts", false, "generate flashcard audio with text-to-speech")
	flag.DurationVar(&options.MediaTimeout, "media-timeout", 60*time.Second, "timeout of a media or TTS call")
	flag.StringVar(&options.UploadDir, "upload-dir", "uploads", "temporary upload directory")
	flag.StringVar(&options.RedisURL, "redis", "", "redis URL for the shared rate limiter")
	flag.IntVar(&options.RateLimitRequests, "rate", 100, "requests per window per client")
	flag.DurationVar(&options.RateLimitWindow, "rate-window", time.Minute, "rate limit window")
	flag.StringVar(&corsOrigins, "cors", "*", "comma separated allowed origins")
	flag.StringVar(&options.DefaultAdminUsername, "admin-user", "admin", "default admin username")
	flag.StringVar(&options.DefaultAdminPassword, "admin-password", "admin123", "default admin password")
	flag.StringVar(&options.LogLevel, "log-level", "info", "log level")
	flag.DurationVar(&options.StreakSweepInterval, "streak-sweep", time.Hour, "streak reset interval")
	flag.StringVar(&options.Config, "config", "config.json", "path to config file")
	flag.StringVar(&options.Config, "c", "config.json", "path to config file (shorthand)")
}

// Parse parses the command-line flags and environment variables to set
// configuration values. It returns a pointer to the Options struct containing
// the parsed configuration values.
func Parse() *Options {
	flag.Parse()
	options.CORSOrigins = splitList(corsOrigins)

	// Missing .env is normal outside local development.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("warning: cannot load .env: %v", err)
	}

	// Override flags with environment variables if set
	if configPath := os.Getenv("CONFIG"); configPath != "" {
		options.Config = configPath
	}

	if options.Config != "" {
		if _, err := os.Stat(options.Config); err == nil {
			if err := loadFile(options.Config, options); err != nil {
				log.Fatalf("error while loading config file: %v", err)
			}
		}
	}

	applyEnv(options)
	return options
}

func loadFile(path string, o *Options) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, o)
}

func applyEnv(o *Options) {
	str := func(name string, dst *string) {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}
	dur := func(name string, dst *time.Duration) {
		if v := os.Getenv(name); v != "" {
			if d, err := time.ParseDuration(v); err == nil && d > 0 {
				*dst = d
			}
		}
	}

	str("SERVER_ADDRESS", &o.Address)
	if port := os.Getenv("PORT"); port != "" && os.Getenv("SERVER_ADDRESS") == "" {
		o.Address = "0.0.0.0:" + port
	}
	str("DATABASE_DRIVER", &o.DatabaseDriver)
	str("DATABASE_DSN", &o.DatabaseDSN)
	str("JWT_SECRET", &o.JWTSecret)
	str("JWT_ISSUER", &o.JWTIssuer)
	str("JWT_AUDIENCE", &o.JWTAudience)
	dur("JWT_EXPIRY", &o.JWTExpiry)
	str("MEDIA_BACKEND", &o.MediaBackend)
	str("MEDIA_DIR", &o.MediaDir)
	str("MEDIA_BASE_URL", &o.MediaBaseURL)
	str("GCS_BUCKET", &o.GCSBucket)
	str("GCS_PUBLIC_BASE_URL", &o.GCSPublicBaseURL)
	str("GOOGLE_APPLICATION_CREDENTIALS", &o.GoogleCredentialsFile)
	if v := os.Getenv("TTS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			o.TTSEnabled = b
		}
	}
	dur("MEDIA_TIMEOUT", &o.MediaTimeout)
	str("UPLOAD_DIR", &o.UploadDir)
	str("REDIS_URL", &o.RedisURL)
	if v := os.Getenv("RATE_LIMIT_REQUESTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			o.RateLimitRequests = n
		}
	}
	dur("RATE_LIMIT_WINDOW", &o.RateLimitWindow)
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		o.CORSOrigins = splitList(v)
	}
	str("DEFAULT_ADMIN_USERNAME", &o.DefaultAdminUsername)
	str("DEFAULT_ADMIN_PASSWORD", &o.DefaultAdminPassword)
	str("LOG_LEVEL", &o.LogLevel)
	dur("STREAK_SWEEP_INTERVAL", &o.StreakSweepInterval)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
