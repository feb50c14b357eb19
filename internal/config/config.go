package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv         string
	Port           string
	AllowedOrigins string

	JWTSecret string
	JWTTTL    time.Duration

	RedisURL string

	MeiliSearchHost string
	MeiliMasterKey  string

	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string

	// Rate limit window / max requests for auth and public routes.
	RateLimitWindow time.Duration
	RateLimitMax    int

	// Behavior flags for gaps the original system left open.
	// AllowRefinalize restores overwrite semantics for transitions on an
	// already VERIFIED/REJECTED certificate; default treats them as no-ops.
	AllowRefinalize bool
	// ScopeTeacherToClasses restricts teachers to certificates owned by
	// students enrolled in their classes.
	ScopeTeacherToClasses bool
	// AutoCreateClassOnRegister creates a missing class named at student
	// registration instead of rejecting it.
	AutoCreateClassOnRegister bool
	// PrettyErrors exposes raw internal error text in responses.
	PrettyErrors bool
}

func Load() (*Config, error) {
	// Don't fail if .env doesn't exist (might be prod env vars)
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:         getEnv("APP_ENV", "development"),
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: getEnv("ALLOWED_ORIGINS", "http://localhost:3000"),

		JWTSecret: os.Getenv("JWT_SECRET"),

		RedisURL: os.Getenv("REDIS_URL"),

		MeiliSearchHost: getEnv("MEILISEARCH_HOST", ""),
		MeiliMasterKey:  os.Getenv("MEILI_MASTER_KEY"),

		CloudinaryCloudName:    os.Getenv("CLOUDINARY_CLOUD_NAME"),
		CloudinaryAPIKey:       os.Getenv("CLOUDINARY_API_KEY"),
		CloudinaryAPISecret:    os.Getenv("CLOUDINARY_API_SECRET"),
		CloudinaryUploadFolder: getEnv("CLOUDINARY_UPLOAD_FOLDER", "certhub_certificates"),

		RateLimitMax: getEnvInt("RATE_LIMIT_MAX", 100),

		AllowRefinalize:           getEnvBool("ALLOW_REFINALIZE", false),
		ScopeTeacherToClasses:     getEnvBool("SCOPE_TEACHER_TO_CLASSES", false),
		AutoCreateClassOnRegister: getEnvBool("AUTO_CREATE_CLASS_ON_REGISTER", true),
		PrettyErrors:              getEnvBool("PRETTY_ERRORS", true),
	}

	if cfg.JWTSecret == "" {
		if cfg.AppEnv == "production" {
			return nil, fmt.Errorf("JWT_SECRET is required in production")
		}
		cfg.JWTSecret = "change-me"
	}

	var err error
	cfg.RateLimitWindow, err = time.ParseDuration(getEnv("RATE_LIMIT_WINDOW", "15m"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_WINDOW: %w", err)
	}
	cfg.JWTTTL, err = time.ParseDuration(getEnv("JWT_TTL", "24h"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_TTL: %w", err)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
