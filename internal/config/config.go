package config

import (
	"time"

	"github.com/spf13/viper"
)

type AuthMode string

const (
	AuthModeNone  AuthMode = "none"  // No authentication required (default)
	AuthModeLocal AuthMode = "local" // Local user database with sessions
)

type (
	Config struct {
		HTTP
		Gate
		Global
		Database
		UI
		Audit
		Tasks
		Auth
		Retention
	}

	HTTP struct {
		Port int32
		Host string
	}

	// Gate configures the site-wide access gateway. The secret and the
	// maintenance flag are loaded once at startup; changing them requires
	// a restart.
	Gate struct {
		Secret      string // Shared bypass secret, compared verbatim
		Maintenance bool   // When true, uncredentialed traffic sees the holding page
		HoldingPath string // Route the holding page is served from
	}

	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Database struct {
		Path string
	}
	UI struct {
		TemplatesPath string
		StaticPath    string
	}
	Audit struct {
		Dir string
	}
	Tasks struct {
		Enabled         bool
		Workers         int
		TaskTimeout     time.Duration
		ReleaseAfter    time.Duration
		CleanupInterval time.Duration
	}
	Auth struct {
		Mode            AuthMode
		SessionSecret   string
		SessionLifetime time.Duration
		BcryptCost      int
		SecureCookies   bool // Set to false for local dev without HTTPS
	}
	// Retention controls the background pruning of resolved moderation data
	// (read notifications, acknowledged warnings).
	Retention struct {
		Enabled  bool
		Schedule string        // Cron format: "30 3 * * *" = daily at 03:30
		MaxAge   time.Duration // Rows resolved longer ago than this are pruned
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8177)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 2)
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("templates_path", "./templates")
	v.SetDefault("static_path", "./static")
	v.SetDefault("audit_dir", "./audit")

	// Access gate defaults
	v.SetDefault("gate_secret", "")
	v.SetDefault("gate_maintenance", false)
	v.SetDefault("gate_holding_path", DefaultHoldingPath)

	// Auth defaults
	v.SetDefault("auth_mode", "local")
	v.SetDefault("auth_session_secret", "")      // Auto-generated if empty
	v.SetDefault("auth_session_lifetime", "24h") // 24 hours
	v.SetDefault("auth_bcrypt_cost", 12)         // bcrypt cost factor
	v.SetDefault("auth_secure_cookies", true)    // HTTPS-only cookies

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_timeout", "1m")
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")

	// Retention defaults
	v.SetDefault("retention_enabled", true)
	v.SetDefault("retention_schedule", "30 3 * * *") // Daily at 03:30
	v.SetDefault("retention_max_age", "2160h")       // 90 days

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Gate: Gate{
			Secret:      v.GetString("GATE_SECRET"),
			Maintenance: v.GetBool("GATE_MAINTENANCE"),
			HoldingPath: v.GetString("GATE_HOLDING_PATH"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		UI: UI{
			TemplatesPath: v.GetString("TEMPLATES_PATH"),
			StaticPath:    v.GetString("STATIC_PATH"),
		},
		Audit: Audit{
			Dir: v.GetString("AUDIT_DIR"),
		},
		Tasks: Tasks{
			Enabled:         v.GetBool("TASKS_ENABLED"),
			Workers:         v.GetInt("TASK_WORKERS"),
			TaskTimeout:     v.GetDuration("TASK_TIMEOUT"),
			ReleaseAfter:    v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval: v.GetDuration("TASK_CLEANUP_INTERVAL"),
		},
		Auth: Auth{
			Mode:            AuthMode(v.GetString("AUTH_MODE")),
			SessionSecret:   v.GetString("AUTH_SESSION_SECRET"),
			SessionLifetime: v.GetDuration("AUTH_SESSION_LIFETIME"),
			BcryptCost:      v.GetInt("AUTH_BCRYPT_COST"),
			SecureCookies:   v.GetBool("AUTH_SECURE_COOKIES"),
		},
		Retention: Retention{
			Enabled:  v.GetBool("RETENTION_ENABLED"),
			Schedule: v.GetString("RETENTION_SCHEDULE"),
			MaxAge:   v.GetDuration("RETENTION_MAX_AGE"),
		},
	}
}
