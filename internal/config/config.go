package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config aggregates application configuration values.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Logging  LoggingConfig  `yaml:"logging"`
	Store    StoreConfig    `yaml:"store"`
	Telegram TelegramConfig `yaml:"telegram"`
	Gemini   GeminiConfig   `yaml:"gemini"`
	Scrape   ScrapeConfig   `yaml:"scrape"`
	Tracker  TrackerConfig  `yaml:"tracker"`
}

// HTTPConfig governs the health/status HTTP server.
type HTTPConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	IdleTimeout     time.Duration `yaml:"idleTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// LoggingConfig controls structured logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text|json
}

// StoreConfig selects and configures the user store backend.
type StoreConfig struct {
	Driver      string `yaml:"driver"` // memory|postgres
	PostgresDSN string `yaml:"postgresDsn"`
	MaxConns    int    `yaml:"maxConns"`
}

// TelegramConfig configures the chat transport.
type TelegramConfig struct {
	Token           string        `yaml:"token"`
	PollTimeout     time.Duration `yaml:"pollTimeout"`
	DownloadTimeout time.Duration `yaml:"downloadTimeout"`
}

// GeminiConfig configures the receipt-extraction collaborator.
type GeminiConfig struct {
	APIKey  string        `yaml:"apiKey"`
	Model   string        `yaml:"model"`
	BaseURL string        `yaml:"baseUrl"`
	Timeout time.Duration `yaml:"timeout"`
}

// ScrapeConfig governs marketplace page fetches.
type ScrapeConfig struct {
	UserAgent    string        `yaml:"userAgent"`
	FetchTimeout time.Duration `yaml:"fetchTimeout"`
}

// TrackerConfig governs the reconciliation loop cadence.
type TrackerConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
}

const (
	defaultHost            = "0.0.0.0"
	defaultPort            = 8080
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 15 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultLoggingLevel    = "info"
	defaultLoggingFormat   = "text"
	defaultStoreDriver     = "memory"
	defaultStoreMaxConns   = 4
	defaultPollTimeout     = 30 * time.Second
	defaultDownloadTimeout = 30 * time.Second
	defaultGeminiModel     = "gemini-1.5-flash"
	defaultGeminiBaseURL   = "https://generativelanguage.googleapis.com"
	defaultGeminiTimeout   = 60 * time.Second
	defaultFetchTimeout    = 15 * time.Second
	defaultTrackerInterval = 12 * time.Hour
	defaultUserAgent       = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Load reads configuration from the environment, applying defaults and, when
// PRICEWATCH_CONFIG points at a YAML file, overlaying that file first. The
// precedence is: defaults < config file < environment.
func Load() (Config, error) {
	cfg := defaults()

	if path := strings.TrimSpace(os.Getenv("PRICEWATCH_CONFIG")); path != "" {
		if err := overlayFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}

	if err := overlayEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func defaults() Config {
	return Config{
		HTTP: HTTPConfig{
			Host:            defaultHost,
			Port:            defaultPort,
			ReadTimeout:     defaultReadTimeout,
			WriteTimeout:    defaultWriteTimeout,
			IdleTimeout:     defaultIdleTimeout,
			ShutdownTimeout: defaultShutdownTimeout,
		},
		Logging: LoggingConfig{
			Level:  defaultLoggingLevel,
			Format: defaultLoggingFormat,
		},
		Store: StoreConfig{
			Driver:   defaultStoreDriver,
			MaxConns: defaultStoreMaxConns,
		},
		Telegram: TelegramConfig{
			PollTimeout:     defaultPollTimeout,
			DownloadTimeout: defaultDownloadTimeout,
		},
		Gemini: GeminiConfig{
			Model:   defaultGeminiModel,
			BaseURL: defaultGeminiBaseURL,
			Timeout: defaultGeminiTimeout,
		},
		Scrape: ScrapeConfig{
			UserAgent:    defaultUserAgent,
			FetchTimeout: defaultFetchTimeout,
		},
		Tracker: TrackerConfig{
			Enabled:  true,
			Interval: defaultTrackerInterval,
		},
	}
}

func overlayFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

func overlayEnv(cfg *Config) error {
	cfg.HTTP.Host = envString("SERVER_HOST", cfg.HTTP.Host)

	port, err := envPort("SERVER_PORT", cfg.HTTP.Port)
	if err != nil {
		return err
	}
	cfg.HTTP.Port = port

	for _, d := range []struct {
		key string
		dst *time.Duration
	}{
		{"SERVER_READ_TIMEOUT", &cfg.HTTP.ReadTimeout},
		{"SERVER_WRITE_TIMEOUT", &cfg.HTTP.WriteTimeout},
		{"SERVER_IDLE_TIMEOUT", &cfg.HTTP.IdleTimeout},
		{"SERVER_SHUTDOWN_TIMEOUT", &cfg.HTTP.ShutdownTimeout},
		{"TELEGRAM_POLL_TIMEOUT", &cfg.Telegram.PollTimeout},
		{"TELEGRAM_DOWNLOAD_TIMEOUT", &cfg.Telegram.DownloadTimeout},
		{"GEMINI_TIMEOUT", &cfg.Gemini.Timeout},
		{"SCRAPE_FETCH_TIMEOUT", &cfg.Scrape.FetchTimeout},
		{"TRACKER_INTERVAL", &cfg.Tracker.Interval},
	} {
		if err := envDuration(d.key, d.dst); err != nil {
			return err
		}
	}

	cfg.Logging.Level = envString("LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = envString("LOG_FORMAT", cfg.Logging.Format)

	cfg.Store.Driver = strings.ToLower(envString("STORE_DRIVER", cfg.Store.Driver))
	cfg.Store.PostgresDSN = envString("STORE_POSTGRES_DSN", cfg.Store.PostgresDSN)
	cfg.Store.MaxConns = envInt("STORE_MAX_CONNS", cfg.Store.MaxConns)

	cfg.Telegram.Token = envString("TELEGRAM_API_KEY", cfg.Telegram.Token)

	cfg.Gemini.APIKey = envString("GEMINI_API_KEY", cfg.Gemini.APIKey)
	cfg.Gemini.Model = envString("GEMINI_API_MODEL", cfg.Gemini.Model)
	cfg.Gemini.BaseURL = strings.TrimRight(envString("GEMINI_BASE_URL", cfg.Gemini.BaseURL), "/")

	cfg.Scrape.UserAgent = envString("SCRAPE_USER_AGENT", cfg.Scrape.UserAgent)

	cfg.Tracker.Enabled = envBool("TRACKER_ENABLED", cfg.Tracker.Enabled)

	switch cfg.Store.Driver {
	case "memory":
	case "postgres":
		if cfg.Store.PostgresDSN == "" {
			return fmt.Errorf("STORE_POSTGRES_DSN is required when STORE_DRIVER=postgres")
		}
	default:
		return fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}

	return nil
}

func envString(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, dst *time.Duration) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = d
	return nil
}

func envPort(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	port, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, v, err)
	}
	if port <= 0 || port > 65535 {
		return 0, fmt.Errorf("port %d is out of range", port)
	}
	return port, nil
}
