package eduAuth

import (
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. EDUAUTH_API_BASE_URL.
const EnvPrefix = "EDUAUTH"

// LoadConfig reads configuration from the optional file at path (YAML, JSON
// or TOML by extension) and from the environment, on top of [DefaultConfig].
// Environment values win over the file. The result is validated.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	setDefaults(v, defaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// The web build read its base URL from NEXT_PUBLIC_API_URL.
	_ = v.BindEnv("api.base_url", EnvPrefix+"_API_BASE_URL", "NEXT_PUBLIC_API_URL")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.TextUnmarshallerHookFunc(),
	))
	if err := v.Unmarshal(&cfg, hook); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override keys that the
// file does not mention.
func setDefaults(v *viper.Viper, cfg Config) {
	defaults := map[string]any{
		"api.base_url":      cfg.API.BaseURL,
		"api.timeout":       cfg.API.Timeout,
		"api.user_agent":    cfg.API.UserAgent,
		"api.rate_limit":    cfg.API.RateLimit,
		"api.burst":         cfg.API.Burst,
		"api.login_path":    cfg.API.LoginPath,
		"api.register_path": cfg.API.RegisterPath,
		"api.me_path":       cfg.API.MePath,

		"storage.backend":          string(cfg.Storage.Backend),
		"storage.path":             cfg.Storage.Path,
		"storage.redis_addr":       cfg.Storage.RedisAddr,
		"storage.redis_password":   cfg.Storage.RedisPassword,
		"storage.redis_db":         cfg.Storage.RedisDB,
		"storage.redis_prefix":     cfg.Storage.RedisPrefix,
		"storage.redis_ttl":        cfg.Storage.RedisTTL,
		"storage.snapshot_key":     cfg.Storage.SnapshotKey,
		"storage.legacy_token_key": cfg.Storage.LegacyTokenKey,

		"views.login":     cfg.Views.Login,
		"views.register":  cfg.Views.Register,
		"views.dashboard": cfg.Views.Dashboard,

		"validation.locale": cfg.Validation.Locale,

		"audit.enabled":      cfg.Audit.Enabled,
		"audit.buffer_size":  cfg.Audit.BufferSize,
		"audit.drop_if_full": cfg.Audit.DropIfFull,

		"metrics.enabled":                   cfg.Metrics.Enabled,
		"metrics.enable_latency_histograms": cfg.Metrics.EnableLatencyHistograms,

		"log.level":  cfg.Log.Level,
		"log.format": cfg.Log.Format,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}
