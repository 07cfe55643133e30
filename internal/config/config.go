// Package config loads runtime settings from the environment.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port    string
	DBPath  string
	Debug   bool // relaxes cookie Secure, enables log-backend email default
	BaseURL string

	// Browser clients
	FrontendURL    string
	AllowedOrigins []string

	// Logging
	LogLevel string

	// Email
	EmailBackend  string // "postmark" or "log"
	PostmarkToken string
	FromEmail     string

	// Password reset token signing key
	ResetSecret string

	// Stripe
	StripeSecretKey     string
	StripeWebhookSecret string

	// Web push
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	VAPIDSubject    string

	// Backups
	BackupBucket     string
	BackupRegion     string
	BackupEndpoint   string
	BackupAccessKey  string
	BackupSecretKey  string
	BackupPassphrase string
}

// Load reads configuration from the environment, after loading a .env file
// when one exists in the working directory.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:          getEnv("GNET_PORT", "8080"),
		DBPath:        getEnv("GNET_DB_PATH", "gnet.db"),
		Debug:         getEnv("GNET_DEBUG", "") == "true",
		BaseURL:       getEnv("GNET_BASE_URL", "http://localhost:8080"),
		FrontendURL:   getEnv("GNET_FRONTEND_URL", "http://localhost:5173"),
		LogLevel:      getEnv("GNET_LOG_LEVEL", "info"),
		EmailBackend:  getEnv("GNET_EMAIL_BACKEND", "log"),
		PostmarkToken: os.Getenv("GNET_POSTMARK_TOKEN"),
		FromEmail:     getEnv("GNET_FROM_EMAIL", "noreply@gnet.example.com"),
		ResetSecret:   os.Getenv("GNET_RESET_SECRET"),

		StripeSecretKey:     os.Getenv("GNET_STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("GNET_STRIPE_WEBHOOK_SECRET"),

		VAPIDPublicKey:  os.Getenv("GNET_VAPID_PUBLIC_KEY"),
		VAPIDPrivateKey: os.Getenv("GNET_VAPID_PRIVATE_KEY"),
		VAPIDSubject:    getEnv("GNET_VAPID_SUBJECT", "mailto:admin@gnet.example.com"),

		BackupBucket:     os.Getenv("GNET_BACKUP_BUCKET"),
		BackupRegion:     getEnv("GNET_BACKUP_REGION", "auto"),
		BackupEndpoint:   os.Getenv("GNET_BACKUP_ENDPOINT"),
		BackupAccessKey:  os.Getenv("GNET_BACKUP_ACCESS_KEY"),
		BackupSecretKey:  os.Getenv("GNET_BACKUP_SECRET_KEY"),
		BackupPassphrase: os.Getenv("GNET_BACKUP_PASSPHRASE"),
	}

	origins := getEnv("GNET_ALLOWED_ORIGINS", cfg.FrontendURL)
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.ResetSecret == "" {
		if !c.Debug {
			return fmt.Errorf("GNET_RESET_SECRET is required outside debug mode")
		}
		c.ResetSecret = "insecure-debug-secret"
	}
	if c.EmailBackend != "postmark" && c.EmailBackend != "log" {
		return fmt.Errorf("unknown email backend %q", c.EmailBackend)
	}
	if c.EmailBackend == "postmark" && c.PostmarkToken == "" {
		return fmt.Errorf("GNET_POSTMARK_TOKEN is required for the postmark backend")
	}
	return nil
}

// BackupEnabled reports whether S3 backup settings are present.
func (c *Config) BackupEnabled() bool {
	return c.BackupBucket != "" && c.BackupAccessKey != "" && c.BackupSecretKey != "" && c.BackupPassphrase != ""
}

// PushEnabled reports whether web push keys are present.
func (c *Config) PushEnabled() bool {
	return c.VAPIDPublicKey != "" && c.VAPIDPrivateKey != ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
