// Package config loads and validates monitor configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Monitor  MonitorConfig  `mapstructure:"monitor"`
	Headless HeadlessConfig `mapstructure:"headless"`
	OCR      OCRConfig      `mapstructure:"ocr"`
	Snapshot SnapshotConfig `mapstructure:"snapshot"`
	DB       DBConfig       `mapstructure:"db"`
	PubSub   PubSubConfig   `mapstructure:"pubsub"`
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// MonitorConfig governs the crawl pipeline.
type MonitorConfig struct {
	RegistryPath   string `mapstructure:"registry_path"`
	EventsPath     string `mapstructure:"events_path"`
	StatePath      string `mapstructure:"state_path"`
	UserAgent      string `mapstructure:"user_agent"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	DelayMillis    int    `mapstructure:"delay_millis"`
	Concurrency    int    `mapstructure:"concurrency"`
	MinPDFTextLen  int    `mapstructure:"min_pdf_text_len"`
}

// RequestTimeout returns the per-request fetch timeout.
func (c MonitorConfig) RequestTimeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Delay returns the per-target inter-request politeness delay.
func (c MonitorConfig) Delay() time.Duration {
	return time.Duration(c.DelayMillis) * time.Millisecond
}

// HeadlessConfig configures the optional chromedp renderer.
type HeadlessConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	NavTimeoutSec  int      `mapstructure:"nav_timeout_seconds"`
	MaxConcurrency int      `mapstructure:"max_concurrency"`
	DomainQPS      float64  `mapstructure:"domain_qps"`
	MinHTMLBytes   int      `mapstructure:"min_html_bytes"`
	Keywords       []string `mapstructure:"keywords"`
}

// NavTimeout returns the per-page render deadline.
func (c HeadlessConfig) NavTimeout() time.Duration {
	return time.Duration(c.NavTimeoutSec) * time.Second
}

// OCRConfig configures the Tesseract engine for scanned PDFs and images.
type OCRConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Language string `mapstructure:"language"`
}

// SnapshotConfig selects where raw fetched bodies are archived.
// Backend "local" writes under Dir; "gcs" writes to Bucket; "" disables.
type SnapshotConfig struct {
	Backend string `mapstructure:"backend"`
	Dir     string `mapstructure:"dir"`
	Bucket  string `mapstructure:"bucket"`
	Prefix  string `mapstructure:"prefix"`
}

// DBConfig controls the optional Postgres mirror of the event store.
type DBConfig struct {
	DSN   string `mapstructure:"dsn"`
	Table string `mapstructure:"table"`
}

// PubSubConfig holds metadata for run-summary notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// ServerConfig controls the read API.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("RINDO")
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
	v.SetDefault("monitor.registry_path", "registry/agencies.json")
	v.SetDefault("monitor.events_path", "data/out/reg_events.json")
	v.SetDefault("monitor.state_path", "data/monitor/state.json")
	v.SetDefault("monitor.user_agent", "rindo-monitor/0.7 (+https://github.com/endou0310-byte/rindo)")
	v.SetDefault("monitor.timeout_seconds", 20)
	v.SetDefault("monitor.delay_millis", 500)
	v.SetDefault("monitor.concurrency", 4)
	v.SetDefault("monitor.min_pdf_text_len", 30)
	v.SetDefault("headless.enabled", false)
	v.SetDefault("headless.nav_timeout_seconds", 25)
	v.SetDefault("headless.max_concurrency", 1)
	v.SetDefault("headless.domain_qps", 0.5)
	v.SetDefault("headless.min_html_bytes", 2000)
	v.SetDefault("headless.keywords", []string{"__NEXT_DATA__", "data-reactroot", "ng-app"})
	v.SetDefault("ocr.enabled", false)
	v.SetDefault("ocr.language", "jpn")
	v.SetDefault("snapshot.backend", "")
	v.SetDefault("snapshot.dir", "data/monitor/pages")
	v.SetDefault("snapshot.prefix", "snapshots")
	v.SetDefault("db.table", "reg_events")
	v.SetDefault("server.port", 8080)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Monitor.RegistryPath == "" {
		return fmt.Errorf("monitor.registry_path must be set")
	}
	if c.Monitor.EventsPath == "" {
		return fmt.Errorf("monitor.events_path must be set")
	}
	if c.Monitor.StatePath == "" {
		return fmt.Errorf("monitor.state_path must be set")
	}
	if c.Monitor.UserAgent == "" {
		return fmt.Errorf("monitor.user_agent must be set")
	}
	if c.Monitor.TimeoutSeconds <= 0 {
		return fmt.Errorf("monitor.timeout_seconds must be > 0")
	}
	if c.Monitor.Concurrency <= 0 {
		return fmt.Errorf("monitor.concurrency must be > 0")
	}
	if c.Headless.Enabled && c.Headless.MaxConcurrency <= 0 {
		return fmt.Errorf("headless.max_concurrency must be > 0 when headless is enabled")
	}
	switch c.Snapshot.Backend {
	case "", "local":
	case "gcs":
		if c.Snapshot.Bucket == "" {
			return fmt.Errorf("snapshot.bucket must be set for the gcs backend")
		}
	default:
		return fmt.Errorf("snapshot.backend must be empty, local, or gcs")
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	return nil
}
