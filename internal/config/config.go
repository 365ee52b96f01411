package config

import (
	"errors"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds every setting the API reads from the environment.
type Config struct {
	HTTPAddr   string
	DSN        string
	JWTSecret  string
	CORSOrigin string
	BaseURL    string
	LogLevel   string

	// EscrowSecret keys the support password escrow. Empty disables it.
	EscrowSecret string

	S3Endpoint  string
	S3Region    string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
	S3PublicURL string

	SESRegion    string
	SESEndpoint  string
	SESAccessKey string
	SESSecretKey string
	EmailFrom    string
	AdminEmail   string

	BasePlanID        int64
	InvoiceOnApproval bool

	SeedAdminEmail    string
	SeedAdminPassword string
}

// Load reads .env (if present) and then the process environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Warn("could not load .env file, relying on system environment variables")
	}

	return &Config{
		HTTPAddr:   getEnv("HTTP_ADDR", ":8080"),
		DSN:        os.Getenv("DB_DSN_PRIMARY"),
		JWTSecret:  os.Getenv("JWT_SECRET"),
		CORSOrigin: getEnv("CORS_ORIGIN", "http://localhost:5173"),
		BaseURL:    strings.TrimRight(getEnv("BASE_URL", "http://localhost:8080"), "/"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),

		EscrowSecret: os.Getenv("ESCROW_SECRET"),

		S3Endpoint:  os.Getenv("S3_ENDPOINT"),
		S3Region:    getEnv("S3_REGION", "us-east-1"),
		S3Bucket:    os.Getenv("S3_BUCKET"),
		S3AccessKey: os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey: os.Getenv("S3_SECRET_KEY"),
		S3PublicURL: strings.TrimRight(os.Getenv("S3_PUBLIC_URL"), "/"),

		SESRegion:    getEnv("SES_REGION", "us-east-1"),
		SESEndpoint:  os.Getenv("SES_ENDPOINT"),
		SESAccessKey: os.Getenv("SES_ACCESS_KEY"),
		SESSecretKey: os.Getenv("SES_SECRET_KEY"),
		EmailFrom:    getEnv("EMAIL_FROM", "no-reply@techxchange.local"),
		AdminEmail:   os.Getenv("ADMIN_EMAIL"),

		BasePlanID:        getEnvInt64("BASE_PLAN_ID", 1),
		InvoiceOnApproval: getEnvBool("INVOICE_ON_APPROVAL", false),

		SeedAdminEmail:    os.Getenv("SEED_ADMIN_EMAIL"),
		SeedAdminPassword: os.Getenv("SEED_ADMIN_PASSWORD"),
	}
}

// Validate reports the first missing setting the server cannot start without.
func (c *Config) Validate() error {
	if c.DSN == "" {
		return errors.New("DB_DSN_PRIMARY environment variable is not set")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET environment variable is not set")
	}
	return nil
}

// StorageConfigured reports whether S3 credentials and a bucket are present.
func (c *Config) StorageConfigured() bool {
	return c.S3Bucket != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

// EmailConfigured reports whether SES credentials are present.
func (c *Config) EmailConfigured() bool {
	return c.SESAccessKey != "" && c.SESSecretKey != ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		slog.Warn("invalid integer in environment, using default", "key", key, "value", v)
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("invalid boolean in environment, using default", "key", key, "value", v)
		return fallback
	}
	return b
}
