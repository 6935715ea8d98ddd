package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"rate-monitor/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App         AppConfig        `mapstructure:"app"`
	Logging     logging.Config   `mapstructure:"logging"`
	Storage     StorageConfig    `mapstructure:"storage"`
	Monitoring  MonitoringConfig `mapstructure:"monitoring"`
	Analysis    AnalysisConfig   `mapstructure:"analysis"`
	Fetch       FetchConfig      `mapstructure:"fetch"`
	Alerting    AlertingConfig   `mapstructure:"alerting"`
	Export      ExportConfig     `mapstructure:"export"`
	TargetsFile string           `mapstructure:"targets_file"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// StorageConfig selects and parameterises the time-series store backend.
type StorageConfig struct {
	Driver          string        `mapstructure:"driver"`
	Path            string        `mapstructure:"path"`
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// MonitoringConfig governs the run loop and history lookback.
type MonitoringConfig struct {
	Interval      time.Duration `mapstructure:"interval"`
	AlignToBucket bool          `mapstructure:"align_to_bucket"`
	Lookback      time.Duration `mapstructure:"lookback"`
	Concurrency   int           `mapstructure:"concurrency"`
}

// AnalysisConfig sets moving-average window sizes.
type AnalysisConfig struct {
	WindowShort int `mapstructure:"window_short"`
	WindowLong  int `mapstructure:"window_long"`
}

// FetchConfig parameterises the HTTP fetcher.
type FetchConfig struct {
	Timeout        time.Duration     `mapstructure:"timeout"`
	MaxRetries     int               `mapstructure:"max_retries"`
	RetryDelay     time.Duration     `mapstructure:"retry_delay"`
	RequestsPerSec int               `mapstructure:"requests_per_sec"`
	UserAgent      string            `mapstructure:"user_agent"`
	Headers        map[string]string `mapstructure:"headers"`
}

// AlertingConfig defines alert thresholds and routing.
type AlertingConfig struct {
	Enabled      bool           `mapstructure:"enabled"`
	ThresholdPct float64        `mapstructure:"threshold_pct"`
	Channels     []string       `mapstructure:"channels"`
	Webhook      WebhookConfig  `mapstructure:"webhook"`
	Telegram     TelegramConfig `mapstructure:"telegram"`
}

// WebhookConfig describes the webhook notification channel.
type WebhookConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// TelegramConfig describes the Telegram notification channel.
type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
}

// ExportConfig sets export behaviour.
type ExportConfig struct {
	OutputDir     string `mapstructure:"output_dir"`
	MaxDataPoints int    `mapstructure:"max_data_points"`
}

// Target describes one monitored page.
type Target struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	URL      string `yaml:"url"`
	Selector string `yaml:"selector"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("RATEMONITOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("config")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "rate-monitor")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.path", "./data/rates.db")
	v.SetDefault("storage.max_open_conns", 10)
	v.SetDefault("storage.max_idle_conns", 5)
	v.SetDefault("storage.conn_max_lifetime", "30m")

	v.SetDefault("monitoring.interval", "5m")
	v.SetDefault("monitoring.align_to_bucket", true)
	v.SetDefault("monitoring.lookback", "168h")
	v.SetDefault("monitoring.concurrency", 4)

	v.SetDefault("analysis.window_short", 3)
	v.SetDefault("analysis.window_long", 7)

	v.SetDefault("fetch.timeout", "10s")
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("fetch.retry_delay", "0s")
	v.SetDefault("fetch.requests_per_sec", 0)
	v.SetDefault("fetch.user_agent", "rate-monitor/1.0 (+https://example.com)")

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.threshold_pct", 0.0)
	v.SetDefault("alerting.channels", []string{"console"})
	v.SetDefault("alerting.webhook.timeout", "5s")

	v.SetDefault("export.output_dir", "sample_output")
	v.SetDefault("export.max_data_points", 100000)

	v.SetDefault("targets_file", "config/targets.yml")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "", "sqlite", "postgres":
	default:
		return fmt.Errorf("storage.driver must be sqlite or postgres")
	}
	if c.Storage.Driver == "postgres" && c.Storage.DSN == "" {
		return fmt.Errorf("storage.dsn is required for the postgres driver")
	}
	if c.Monitoring.Interval <= 0 {
		return fmt.Errorf("monitoring.interval must be greater than zero")
	}
	if c.Monitoring.Lookback <= 0 {
		return fmt.Errorf("monitoring.lookback must be greater than zero")
	}
	if c.Analysis.WindowShort < 1 || c.Analysis.WindowLong < 1 {
		return fmt.Errorf("analysis windows must be at least 1")
	}
	if c.Fetch.MaxRetries < 1 {
		return fmt.Errorf("fetch.max_retries must be at least 1")
	}
	if c.Alerting.ThresholdPct < 0 {
		return fmt.Errorf("alerting.threshold_pct cannot be negative")
	}
	for _, channel := range c.Alerting.Channels {
		switch channel {
		case "console", "webhook", "telegram":
		default:
			return fmt.Errorf("unknown alerting channel %q", channel)
		}
	}
	if c.Alerting.Enabled {
		if hasChannel(c.Alerting.Channels, "webhook") && c.Alerting.Webhook.URL == "" {
			return fmt.Errorf("alerting.webhook.url is required for the webhook channel")
		}
		if hasChannel(c.Alerting.Channels, "telegram") {
			if c.Alerting.Telegram.BotToken == "" || c.Alerting.Telegram.ChatID == "" {
				return fmt.Errorf("alerting.telegram.bot_token and chat_id are required for the telegram channel")
			}
		}
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	return nil
}

func hasChannel(channels []string, name string) bool {
	for _, c := range channels {
		if c == name {
			return true
		}
	}
	return false
}

// LoadTargets reads target definitions from a YAML file. The file may hold
// either a top-level list or a "targets" key.
func LoadTargets(path string) ([]Target, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read targets file: %w", err)
	}

	var wrapper struct {
		Targets []Target `yaml:"targets"`
	}
	if err := yaml.Unmarshal(raw, &wrapper); err != nil || wrapper.Targets == nil {
		var list []Target
		if listErr := yaml.Unmarshal(raw, &list); listErr != nil {
			return nil, fmt.Errorf("parse targets file: %w", listErr)
		}
		wrapper.Targets = list
	}

	for i, target := range wrapper.Targets {
		if target.ID == "" || target.Name == "" || target.URL == "" || target.Selector == "" {
			return nil, fmt.Errorf("target %d: id, name, url, and selector are all required", i)
		}
	}
	return wrapper.Targets, nil
}
