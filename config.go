package eduAuth

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/MrEthical07/eduAuth/internal/logging"
	"github.com/MrEthical07/eduAuth/session"
	"github.com/MrEthical07/eduAuth/transport"
	"github.com/MrEthical07/eduAuth/validation"
)

// Config is the full client configuration. Start from [DefaultConfig] and
// override fields, or load it with [LoadConfig].
type Config struct {
	API        APIConfig        `mapstructure:"api"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Views      ViewsConfig      `mapstructure:"views"`
	Validation ValidationConfig `mapstructure:"validation"`
	Audit      AuditConfig      `mapstructure:"audit"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Log        LogConfig        `mapstructure:"log"`
}

/*
====================================
API CONFIG
====================================
*/

// APIConfig locates the remote service and bounds each request.
type APIConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`

	// RateLimit is the sustained request rate per second; zero disables the
	// client-side throttle.
	RateLimit float64 `mapstructure:"rate_limit"`
	Burst     int     `mapstructure:"burst"`

	LoginPath    string `mapstructure:"login_path"`
	RegisterPath string `mapstructure:"register_path"`
	MePath       string `mapstructure:"me_path"`
}

/*
====================================
STORAGE CONFIG
====================================
*/

// StorageBackend selects where the session snapshot is kept.
type StorageBackend string

const (
	StorageMemory StorageBackend = "memory"
	StorageFile   StorageBackend = "file"
	StorageRedis  StorageBackend = "redis"
	StorageSQLite StorageBackend = "sqlite"
)

// StorageConfig configures snapshot persistence.
type StorageConfig struct {
	Backend StorageBackend `mapstructure:"backend"`
	// Path is the directory for the file backend and the database file for
	// the sqlite backend.
	Path string `mapstructure:"path"`

	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	RedisPrefix   string        `mapstructure:"redis_prefix"`
	RedisTTL      time.Duration `mapstructure:"redis_ttl"`

	SnapshotKey string `mapstructure:"snapshot_key"`
	// LegacyTokenKey is deleted on startup when present; its value is never
	// read. Empty means session.DefaultLegacyTokenKey.
	LegacyTokenKey string `mapstructure:"legacy_token_key"`
}

// ViewsConfig names the navigation targets.
type ViewsConfig struct {
	Login     string `mapstructure:"login"`
	Register  string `mapstructure:"register"`
	Dashboard string `mapstructure:"dashboard"`
}

// ValidationConfig selects the message locale.
type ValidationConfig struct {
	Locale string `mapstructure:"locale"`
}

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	BufferSize int  `mapstructure:"buffer_size"`
	DropIfFull bool `mapstructure:"drop_if_full"`
}

// MetricsConfig controls the in-process counters.
type MetricsConfig struct {
	Enabled                 bool `mapstructure:"enabled"`
	EnableLatencyHistograms bool `mapstructure:"enable_latency_histograms"`
}

// LogConfig is used by hosts that build their logger from configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		API: APIConfig{
			BaseURL:      transport.DefaultBaseURL,
			Timeout:      transport.DefaultTimeout,
			UserAgent:    transport.DefaultUserAgent,
			Burst:        1,
			LoginPath:    "/auth/login",
			RegisterPath: "/auth/register",
			MePath:       "/auth/me",
		},
		Storage: StorageConfig{
			Backend:        StorageMemory,
			RedisPrefix:    "eduauth",
			SnapshotKey:    session.DefaultSnapshotKey,
			LegacyTokenKey: session.DefaultLegacyTokenKey,
		},
		Views: ViewsConfig{
			Login:     session.ViewLogin,
			Register:  session.ViewRegister,
			Dashboard: session.ViewDashboard,
		},
		Validation: ValidationConfig{
			Locale: validation.DefaultLocale,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// cloneConfig copies cfg. Config holds no reference types today; the copy
// point is kept so the builder never aliases caller state.
func cloneConfig(cfg Config) Config {
	out := cfg
	return out
}

// Validate checks cfg and returns the first problem found.
func (c *Config) Validate() error {
	// API
	base, err := url.Parse(strings.TrimSpace(c.API.BaseURL))
	if err != nil || c.API.BaseURL == "" {
		return errors.New("API BaseURL must be a valid URL")
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return errors.New("API BaseURL must use http or https")
	}
	if base.Host == "" {
		return errors.New("API BaseURL must include a host")
	}
	if c.API.Timeout <= 0 {
		return errors.New("API Timeout must be > 0")
	}
	if c.API.RateLimit < 0 {
		return errors.New("API RateLimit must be >= 0")
	}
	if c.API.RateLimit > 0 && c.API.Burst <= 0 {
		return errors.New("API Burst must be > 0 when RateLimit is set")
	}
	for name, p := range map[string]string{
		"LoginPath":    c.API.LoginPath,
		"RegisterPath": c.API.RegisterPath,
		"MePath":       c.API.MePath,
	} {
		if !strings.HasPrefix(p, "/") {
			return errors.New("API " + name + " must start with /")
		}
	}

	// Storage
	switch c.Storage.Backend {
	case StorageMemory, StorageRedis:
	case StorageFile, StorageSQLite:
		if strings.TrimSpace(c.Storage.Path) == "" {
			return errors.New("Storage Path is required for the " + string(c.Storage.Backend) + " backend")
		}
	default:
		return errors.New("unsupported Storage Backend")
	}
	if c.Storage.RedisTTL < 0 {
		return errors.New("Storage RedisTTL must be >= 0")
	}
	if strings.TrimSpace(c.Storage.SnapshotKey) == "" {
		return errors.New("Storage SnapshotKey must not be empty")
	}
	if c.Storage.SnapshotKey == c.Storage.LegacyTokenKey {
		return errors.New("Storage LegacyTokenKey must differ from SnapshotKey")
	}

	// Views
	if c.Views.Login == "" || c.Views.Dashboard == "" || c.Views.Register == "" {
		return errors.New("Views Login, Register and Dashboard must be set")
	}
	if c.Views.Login == c.Views.Dashboard {
		return errors.New("Views Login and Dashboard must differ")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when enabled")
	}

	// Log
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return errors.New("Log Level is not recognized")
	}
	if f := strings.ToLower(c.Log.Format); f != "" && f != "text" && f != "json" {
		return errors.New("Log Format must be text or json")
	}

	return nil
}
