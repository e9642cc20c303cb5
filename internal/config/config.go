// Package config loads runtime settings from the environment.
//
// Every setting has a development default so `aayam serve` works out of
// the box against a local SQLite file. A .env file in the working
// directory is loaded first when present; real environment variables win.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	// Embedded zone database so TIMEZONE resolves in minimal containers.
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// SMTPConfig configures the approval e-mail transport. Secure selects
// implicit TLS (usually port 465); otherwise STARTTLS is required.
type SMTPConfig struct {
	Host   string
	Port   int `validate:"min=1,max=65535"`
	User   string
	Pass   string
	From   string `validate:"required_with=Host"`
	Secure bool
}

// Enabled reports whether an SMTP relay was configured.
func (s SMTPConfig) Enabled() bool { return s.Host != "" }

// R2Config configures the Cloudflare R2 bucket used for proof uploads.
type R2Config struct {
	AccountID       string
	AccessKeyID     string `validate:"required_with=AccountID"`
	AccessKeySecret string `validate:"required_with=AccountID"`
	Bucket          string `validate:"required_with=AccountID"`
	CDNBaseURL      string `validate:"omitempty,url"`
}

// Enabled reports whether object storage was configured.
func (r R2Config) Enabled() bool { return r.AccountID != "" }

// Config holds all runtime settings.
type Config struct {
	Addr            string `validate:"required"`
	DatabaseURL     string `validate:"required"`
	JWTSecret       string
	SiteURL         string         `validate:"required,url"`
	PointsPerSignup int            `validate:"min=1"`
	Timezone        string         `validate:"required"`
	Location        *time.Location `validate:"-"`
	StoreTimeout    time.Duration  `validate:"gt=0s"`
	NotifyTimeout   time.Duration  `validate:"gt=0s"`
	TasksFile       string
	LogLevel        string   `validate:"oneof=debug info warn error"`
	LogFormat       string   `validate:"oneof=text json"`
	AllowedOrigins  []string `validate:"dive,required"`
	SMTP            SMTPConfig
	R2              R2Config
}

var validate = validator.New()

// Load reads .env (if any) and the environment, then validates the result.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function, typically os.Getenv.
func FromEnv(lookup func(string) string) (*Config, error) {
	get := func(key, fallback string) string {
		if v := strings.TrimSpace(lookup(key)); v != "" {
			return v
		}
		return fallback
	}

	cfg := &Config{
		Addr: get("ADDR", ":8080"),
		DatabaseURL: get("DATABASE_URL",
			"aayam.db?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_time_format=sqlite"),
		JWTSecret: lookup("JWT_SECRET"),
		SiteURL:   strings.TrimRight(get("SITE_URL", "http://localhost:3000"), "/"),
		Timezone:  get("TIMEZONE", "UTC"),
		TasksFile: get("TASKS_FILE", ""),
		LogLevel:  strings.ToLower(get("LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(get("LOG_FORMAT", "text")),
		SMTP: SMTPConfig{
			Host: get("SMTP_HOST", ""),
			User: get("SMTP_USER", ""),
			Pass: lookup("SMTP_PASS"),
			From: get("SMTP_FROM", `"AAYAM 2026" <noreply@aayam.com>`),
		},
		R2: R2Config{
			AccountID:       get("R2_ACCOUNT_ID", ""),
			AccessKeyID:     get("R2_ACCESS_KEY_ID", ""),
			AccessKeySecret: get("R2_ACCESS_KEY_SECRET", ""),
			Bucket:          get("R2_BUCKET_NAME", ""),
			CDNBaseURL:      strings.TrimRight(get("CDN_BASE_URL", ""), "/"),
		},
	}

	var err error
	if cfg.PointsPerSignup, err = strconv.Atoi(get("POINTS_PER_SIGNUP", "12")); err != nil {
		return nil, fmt.Errorf("POINTS_PER_SIGNUP: %w", err)
	}
	if cfg.StoreTimeout, err = time.ParseDuration(get("STORE_TIMEOUT", "5s")); err != nil {
		return nil, fmt.Errorf("STORE_TIMEOUT: %w", err)
	}
	if cfg.NotifyTimeout, err = time.ParseDuration(get("NOTIFY_TIMEOUT", "10s")); err != nil {
		return nil, fmt.Errorf("NOTIFY_TIMEOUT: %w", err)
	}
	if cfg.SMTP.Port, err = strconv.Atoi(get("SMTP_PORT", "587")); err != nil {
		return nil, fmt.Errorf("SMTP_PORT: %w", err)
	}
	if cfg.SMTP.Secure, err = strconv.ParseBool(get("SMTP_SECURE", "false")); err != nil {
		return nil, fmt.Errorf("SMTP_SECURE: %w", err)
	}
	if cfg.Location, err = time.LoadLocation(cfg.Timezone); err != nil {
		return nil, fmt.Errorf("TIMEZONE: %w", err)
	}

	origins := get("ALLOWED_ORIGINS", "*")
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
		}
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// RequireSecret checks the settings only the HTTP server needs.
func (c *Config) RequireSecret() error {
	if err := validate.Var(c.JWTSecret, "required,min=16"); err != nil {
		return fmt.Errorf("JWT_SECRET must be set to at least 16 characters: %w", err)
	}
	return nil
}
