// Package config loads and validates archiver configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Archive    ArchiveConfig    `mapstructure:"archive"`
	Render     RenderConfig     `mapstructure:"render"`
	Social     SocialConfig     `mapstructure:"social"`
	Screenshot ScreenshotConfig `mapstructure:"screenshot"`
	Content    ContentConfig    `mapstructure:"content"`
	Fetch      FetchConfig      `mapstructure:"fetch"`
	Storage    StorageConfig    `mapstructure:"storage"`
	DB         DBConfig         `mapstructure:"db"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// ArchiveConfig governs capture pipeline acceptance policy and layout.
type ArchiveConfig struct {
	BaseDir             string `mapstructure:"base_dir"`
	MinSocialHTMLBytes  int    `mapstructure:"min_social_html_bytes"`
	MinGenericHTMLBytes int    `mapstructure:"min_generic_html_bytes"`
}

// RenderConfig configures the headless rendering subsystem.
type RenderConfig struct {
	Enabled        bool    `mapstructure:"enabled"`
	MaxParallel    int     `mapstructure:"max_parallel"`
	NavTimeoutSec  int     `mapstructure:"nav_timeout_seconds"`
	SettleDelaySec int     `mapstructure:"settle_delay_seconds"`
	UserAgent      string  `mapstructure:"user_agent"`
	ViewportWidth  int64   `mapstructure:"viewport_width"`
	ViewportHeight int64   `mapstructure:"viewport_height"`
	DomainQPS      float64 `mapstructure:"domain_qps"`
}

// SocialConfig identifies social-post hosts and their render credentials.
// CookiesJSON holds a browser-exported cookie list verbatim.
type SocialConfig struct {
	Domains     []string `mapstructure:"domains"`
	CookiesJSON string   `mapstructure:"cookies_json"`
}

// ScreenshotConfig tunes the hosted screenshot provider chain.
type ScreenshotConfig struct {
	MinBytes         int    `mapstructure:"min_bytes"`
	TimeoutSec       int    `mapstructure:"timeout_seconds"`
	ThumWidth        int    `mapstructure:"thum_width"`
	ThumCrop         int    `mapstructure:"thum_crop"`
	MachineKey       string `mapstructure:"machine_key"`
	MachineDimension string `mapstructure:"machine_dimension"`
	MachineDelayMS   int    `mapstructure:"machine_delay_ms"`
}

// ContentConfig points at the script-free content APIs.
type ContentConfig struct {
	OEmbedEndpoint    string `mapstructure:"oembed_endpoint"`
	MicrolinkEndpoint string `mapstructure:"microlink_endpoint"`
	TimeoutSec        int    `mapstructure:"timeout_seconds"`
}

// FetchConfig configures the plain HTTP fallback client.
type FetchConfig struct {
	UserAgent  string `mapstructure:"user_agent"`
	TimeoutSec int    `mapstructure:"timeout_seconds"`
}

// StorageConfig selects and parameterizes persistence backends.
// Blob picks where artifact files are uploaded (local or supabase);
// Index picks where archive rows are recorded (memory, postgres, supabase).
type StorageConfig struct {
	Blob     string         `mapstructure:"blob"`
	Index    string         `mapstructure:"index"`
	Local    LocalConfig    `mapstructure:"local"`
	Supabase SupabaseConfig `mapstructure:"supabase"`
}

// LocalConfig sets paths for filesystem blob persistence.
type LocalConfig struct {
	BaseDir       string `mapstructure:"base_dir"`
	PublicBaseURL string `mapstructure:"public_base_url"`
}

// SupabaseConfig holds hosted Supabase project coordinates.
type SupabaseConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Bucket  string `mapstructure:"bucket"`
	Table   string `mapstructure:"table"`
}

// DBConfig controls access to the relational database index.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ARCHIVE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("archive.base_dir", "archives")
	v.SetDefault("archive.min_social_html_bytes", 3000)
	v.SetDefault("archive.min_generic_html_bytes", 500)
	v.SetDefault("render.enabled", true)
	v.SetDefault("render.max_parallel", 2)
	v.SetDefault("render.nav_timeout_seconds", 35)
	v.SetDefault("render.settle_delay_seconds", 5)
	v.SetDefault("render.viewport_width", 1280)
	v.SetDefault("render.viewport_height", 900)
	v.SetDefault("render.domain_qps", 1.0)
	v.SetDefault("social.domains", []string{"x.com", "twitter.com"})
	v.SetDefault("screenshot.min_bytes", 8000)
	v.SetDefault("screenshot.timeout_seconds", 35)
	v.SetDefault("screenshot.thum_width", 1280)
	v.SetDefault("content.timeout_seconds", 15)
	v.SetDefault("fetch.timeout_seconds", 20)
	v.SetDefault("storage.blob", "local")
	v.SetDefault("storage.index", "memory")
	v.SetDefault("storage.local.base_dir", "archives")
	v.SetDefault("storage.supabase.bucket", "archives")
	v.SetDefault("storage.supabase.table", "archives")
	v.SetDefault("db.table", "archives")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Archive.BaseDir == "" {
		return fmt.Errorf("archive.base_dir must be set")
	}
	if c.Render.Enabled && c.Render.MaxParallel <= 0 {
		return fmt.Errorf("render.max_parallel must be > 0 when rendering is enabled")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	switch c.Storage.Blob {
	case "local", "supabase":
	default:
		return fmt.Errorf("storage.blob must be local or supabase, got %q", c.Storage.Blob)
	}
	switch c.Storage.Index {
	case "memory", "postgres", "supabase":
	default:
		return fmt.Errorf("storage.index must be memory, postgres, or supabase, got %q", c.Storage.Index)
	}
	if c.Storage.Index == "postgres" && c.DB.DSN == "" {
		return fmt.Errorf("db.dsn must be set when storage.index is postgres")
	}
	if c.Storage.Blob == "supabase" || c.Storage.Index == "supabase" {
		if c.Storage.Supabase.BaseURL == "" || c.Storage.Supabase.APIKey == "" {
			return fmt.Errorf("storage.supabase.base_url and api_key must be set for the supabase backend")
		}
	}
	return nil
}

// NavTimeout converts the render timeout into a duration.
func (c RenderConfig) NavTimeout() time.Duration {
	return time.Duration(c.NavTimeoutSec) * time.Second
}

// SettleDelay converts the post-load settle pause into a duration.
func (c RenderConfig) SettleDelay() time.Duration {
	return time.Duration(c.SettleDelaySec) * time.Second
}

// Timeout converts the screenshot budget into a duration.
func (c ScreenshotConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// Timeout converts the content API budget into a duration.
func (c ContentConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// Timeout converts the fetch budget into a duration.
func (c FetchConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}
