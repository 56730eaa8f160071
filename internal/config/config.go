// Package config loads and validates service configuration via Viper.
// Secrets come from the environment (optionally seeded from a .env file);
// everything else has file or default values.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config captures all service configuration knobs.
type Config struct {
	Logging   LoggingConfig   `mapstructure:"logging"`
	Server    ServerConfig    `mapstructure:"server"`
	Sources   SourcesConfig   `mapstructure:"sources"`
	Fetch     FetchConfig     `mapstructure:"fetch"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Publisher PublisherConfig `mapstructure:"publisher"`
	State     StateConfig     `mapstructure:"state"`
	Store     StoreConfig     `mapstructure:"store"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Schedule  ScheduleConfig  `mapstructure:"schedule"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// ServerConfig controls the operational HTTP endpoint.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// SourcesConfig sets the listing URLs, in priority order of the fields.
type SourcesConfig struct {
	TimepadURL    string `mapstructure:"timepad_url"`
	GorodzovetURL string `mapstructure:"gorodzovet_url"`
}

// FetchConfig configures page retrieval.
type FetchConfig struct {
	UserAgent          string `mapstructure:"user_agent"`
	TimeoutSeconds     int    `mapstructure:"timeout_seconds"`
	Rendered           bool   `mapstructure:"rendered"`
	NavTimeoutSeconds  int    `mapstructure:"nav_timeout_seconds"`
	SettleDelaySeconds int    `mapstructure:"settle_delay_seconds"`
}

// GeminiConfig holds the annotator credentials and model chain.
type GeminiConfig struct {
	APIKey string   `mapstructure:"api_key"`
	Models []string `mapstructure:"models"`
}

// TelegramConfig holds the channel credentials.
type TelegramConfig struct {
	Token     string `mapstructure:"token"`
	ChannelID string `mapstructure:"channel_id"`
	APIBase   string `mapstructure:"api_base"`
}

// PublisherConfig selects where posts go: "telegram", "pubsub", or "log"
// (dry run, posts only appear in the logs).
type PublisherConfig struct {
	Provider  string `mapstructure:"provider"`
	ProjectID string `mapstructure:"project_id"`
	TopicID   string `mapstructure:"topic_id"`
}

// StateConfig selects the blob backend for the ledger and file store:
// "local", "gcs", or "memory".
type StateConfig struct {
	Provider  string `mapstructure:"provider"`
	LocalDir  string `mapstructure:"local_dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	GCSPrefix string `mapstructure:"gcs_prefix"`
}

// StoreConfig selects the event-record backend: "file" (on the state
// provider) or "postgres".
type StoreConfig struct {
	Provider    string `mapstructure:"provider"`
	PostgresDSN string `mapstructure:"postgres_dsn"`
}

// PipelineConfig governs aggregation and publication behavior.
type PipelineConfig struct {
	SimilarityThreshold float64 `mapstructure:"similarity_threshold"`
	PublishDelaySeconds int     `mapstructure:"publish_delay_seconds"`
}

// ScheduleConfig holds cron expressions for serve mode.
type ScheduleConfig struct {
	Pipeline string `mapstructure:"pipeline"`
	Digest   string `mapstructure:"digest"`
}

// Load builds a Config from an optional file plus the environment.
// Environment variables use the EVENTWIRE_ prefix with underscores, e.g.
// EVENTWIRE_TELEGRAM_TOKEN overrides telegram.token. A .env file in the
// working directory is applied first when present.
func Load(path string) (Config, error) {
	// Missing .env is fine; it only exists in local development.
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("EVENTWIRE")
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
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.level", "info")
	v.SetDefault("server.port", 8080)
	v.SetDefault("sources.timepad_url", "https://afisha.timepad.ru/kazan/categories/biznes")
	v.SetDefault("sources.gorodzovet_url", "https://gorodzovet.ru/kazan/biznes/")
	v.SetDefault("fetch.user_agent", "eventwire/1.0 (+https://github.com/bizkazan/eventwire)")
	v.SetDefault("fetch.timeout_seconds", 30)
	v.SetDefault("fetch.rendered", true)
	v.SetDefault("fetch.nav_timeout_seconds", 45)
	v.SetDefault("fetch.settle_delay_seconds", 3)
	v.SetDefault("gemini.models", []string{"gemini-2.5-flash", "gemini-2.5-flash-lite"})
	v.SetDefault("publisher.provider", "telegram")
	// Secret-bearing keys need explicit (empty) defaults so AutomaticEnv
	// can surface them through Unmarshal.
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.channel_id", "")
	v.SetDefault("telegram.api_base", "")
	v.SetDefault("publisher.project_id", "")
	v.SetDefault("publisher.topic_id", "")
	v.SetDefault("state.gcs_bucket", "")
	v.SetDefault("state.gcs_prefix", "")
	v.SetDefault("store.postgres_dsn", "")
	v.SetDefault("state.provider", "local")
	v.SetDefault("state.local_dir", "data")
	v.SetDefault("store.provider", "file")
	v.SetDefault("pipeline.similarity_threshold", 0.85)
	v.SetDefault("pipeline.publish_delay_seconds", 3)
	v.SetDefault("schedule.pipeline", "0 */2 * * *")
	v.SetDefault("schedule.digest", "0 10 * * 1")
}

// Validate enforces required values and reasonable limits. Credential
// checks for the annotator and publisher happen at service construction
// since dry-run modes do not need them.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Pipeline.SimilarityThreshold <= 0 || c.Pipeline.SimilarityThreshold > 1 {
		return fmt.Errorf("pipeline.similarity_threshold must be in (0, 1]")
	}
	if c.Fetch.TimeoutSeconds <= 0 {
		return fmt.Errorf("fetch.timeout_seconds must be > 0")
	}
	switch c.Publisher.Provider {
	case "telegram", "pubsub", "log":
	default:
		return fmt.Errorf("unknown publisher provider: %s", c.Publisher.Provider)
	}
	switch c.State.Provider {
	case "local", "gcs", "memory":
	default:
		return fmt.Errorf("unknown state provider: %s", c.State.Provider)
	}
	switch c.Store.Provider {
	case "file", "postgres", "memory":
	default:
		return fmt.Errorf("unknown store provider: %s", c.Store.Provider)
	}
	if c.State.Provider == "gcs" && c.State.GCSBucket == "" {
		return fmt.Errorf("state.gcs_bucket must be set when state provider is gcs")
	}
	if c.Store.Provider == "postgres" && c.Store.PostgresDSN == "" {
		return fmt.Errorf("store.postgres_dsn must be set when store provider is postgres")
	}
	return nil
}

// PublishDelay converts the configured delay into a duration.
func (c Config) PublishDelay() time.Duration {
	return time.Duration(c.Pipeline.PublishDelaySeconds) * time.Second
}

// FetchTimeout converts the fetch timeout into a duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutSeconds) * time.Second
}
