package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/tracelog"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Config is filled from the environment (and an optional .env file) when the
// package is first imported.
var Config NewsdeskConfig

func init() {
	// A missing .env file is normal outside of local development.
	_ = godotenv.Load()

	cfg, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	Config = cfg
}

// Load reads the configuration from the process environment.
func Load() (NewsdeskConfig, error) {
	cfg := NewsdeskConfig{
		Env:     Environment(envString("NEWSDESK_ENV", string(Dev))),
		Addr:    envString("NEWSDESK_ADDR", ":9001"),
		BaseUrl: strings.TrimSuffix(envString("NEWSDESK_BASE_URL", "http://localhost:9001"), "/"),
		Postgres: PostgresConfig{
			User:     envString("POSTGRES_USER", "newsdesk"),
			Password: envString("POSTGRES_PASSWORD", "password"),
			Hostname: envString("POSTGRES_HOST", "localhost"),
			Port:     envInt("POSTGRES_PORT", 5432),
			DbName:   envString("POSTGRES_DB", "newsdesk"),
			MinConn:  int32(envInt("POSTGRES_MIN_CONN", 2)),
			MaxConn:  int32(envInt("POSTGRES_MAX_CONN", 10)),
		},
		Auth: AuthConfig{
			JWTSecret:       os.Getenv("JWT_SECRET"),
			SessionTTL:      envDuration("SESSION_TTL", time.Hour),
			VerificationTTL: envDuration("EMAIL_VERIFICATION_TTL", 24*time.Hour),
			ResetTTL:        envDuration("PASSWORD_RESET_TTL", 15*time.Minute),
		},
		Presence: PresenceConfig{
			SweepInterval: envDuration("PRESENCE_SWEEP_INTERVAL", 5*time.Minute),
			StaleAfter:    envDuration("PRESENCE_STALE_AFTER", 30*time.Minute),
		},
		Email: EmailConfig{
			ServerAddress:  os.Getenv("SMTP_HOST"),
			ServerPort:     envInt("SMTP_PORT", 587),
			MailerUsername: os.Getenv("SMTP_USER"),
			MailerPassword: os.Getenv("SMTP_PASSWORD"),
			FromAddress:    envString("MAIL_FROM_ADDRESS", "noreply@newsdesk.local"),
			FromName:       envString("MAIL_FROM_NAME", "Newsdesk"),
			ForceToAddress: os.Getenv("MAIL_FORCE_TO"),
			AdminAddress:   os.Getenv("ADMIN_EMAIL"),
			FrontendUrl:    strings.TrimSuffix(envString("FRONTEND_URL", "http://localhost:3000"), "/"),
		},
		Images: ImagesConfig{
			Endpoint:  os.Getenv("IMAGES_S3_ENDPOINT"),
			Region:    envString("IMAGES_S3_REGION", "us-east-1"),
			KeyID:     os.Getenv("IMAGES_S3_KEY"),
			Secret:    os.Getenv("IMAGES_S3_SECRET"),
			Bucket:    os.Getenv("IMAGES_S3_BUCKET"),
			PublicUrl: strings.TrimSuffix(os.Getenv("IMAGES_PUBLIC_URL"), "/"),
		},
		Maps: MapsConfig{
			EmbedKey: os.Getenv("MAP_API_KEY"),
		},
	}

	switch cfg.Env {
	case Live, Beta, Dev:
	default:
		return cfg, fmt.Errorf("unknown environment %q", cfg.Env)
	}

	level, err := zerolog.ParseLevel(envString("LOG_LEVEL", "info"))
	if err != nil {
		return cfg, fmt.Errorf("bad LOG_LEVEL: %w", err)
	}
	cfg.LogLevel = level

	pgLevel, err := tracelog.LogLevelFromString(envString("POSTGRES_LOG_LEVEL", "warn"))
	if err != nil {
		return cfg, fmt.Errorf("bad POSTGRES_LOG_LEVEL: %w", err)
	}
	cfg.Postgres.LogLevel = pgLevel

	if cfg.Auth.JWTSecret == "" {
		if cfg.Env == Live {
			return cfg, fmt.Errorf("JWT_SECRET must be set in %s", cfg.Env)
		}
		cfg.Auth.JWTSecret = "dev-secret-do-not-use-in-production"
	}

	return cfg, nil
}

func envString(name, def string) string {
	if v, ok := os.LookupEnv(name); ok && v != "" {
		return v
	}
	return def
}

func envInt(name string, def int) int {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envDuration(name string, def time.Duration) time.Duration {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
