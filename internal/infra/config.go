package infra

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds every setting for the client. Secrets never live here;
// identity comes from the login collaborator at session start.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Server struct {
		// BaseURL is the REST collaborator (login, snapshot,
		// leaderboard).
		BaseURL string `yaml:"base_url"`
		// WSURL is the per-asset channel endpoint; %s is replaced
		// with the lowercase asset name.
		WSURL string `yaml:"ws_url"`
	} `yaml:"server"`

	Session struct {
		InboxSize   int  `yaml:"inbox_size"`
		Journal     bool `yaml:"journal"`
		NoticeLimit int  `yaml:"notice_limit"`
	} `yaml:"session"`

	Display struct {
		LeaderboardPollSec int `yaml:"leaderboard_poll_sec"`
		RenderIntervalMS   int `yaml:"render_interval_ms"`
	} `yaml:"display"`

	Limits struct {
		MinPrice     int64   `yaml:"min_price"`
		MaxPrice     int64   `yaml:"max_price"`
		OrdersPerSec float64 `yaml:"orders_per_sec"`
		OrderBurst   int     `yaml:"order_burst"`
	} `yaml:"limits"`

	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Addr    string `yaml:"addr"`
	} `yaml:"metrics"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
}

// LoadConfig reads and parses the config file, applies environment
// overrides, and validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	overrideWithEnv(&cfg)
	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks configuration validity.
func (c *Config) Validate() error {
	if c.Server.BaseURL == "" ||
		(!strings.HasPrefix(c.Server.BaseURL, "http://") && !strings.HasPrefix(c.Server.BaseURL, "https://")) {
		return fmt.Errorf("invalid server base URL: %q", c.Server.BaseURL)
	}
	if c.Server.WSURL == "" ||
		(!strings.HasPrefix(c.Server.WSURL, "ws://") && !strings.HasPrefix(c.Server.WSURL, "wss://")) {
		return fmt.Errorf("invalid channel WS URL: %q", c.Server.WSURL)
	}
	if !strings.Contains(c.Server.WSURL, "%s") {
		return fmt.Errorf("channel WS URL must contain an asset placeholder (%%s): %q", c.Server.WSURL)
	}
	if c.Limits.MinPrice < 1 || c.Limits.MaxPrice < c.Limits.MinPrice {
		return fmt.Errorf("invalid price limits: min=%d max=%d", c.Limits.MinPrice, c.Limits.MaxPrice)
	}
	if c.Session.InboxSize <= 0 {
		return fmt.Errorf("inbox size must be positive")
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Session.InboxSize == 0 {
		cfg.Session.InboxSize = 1024
	}
	if cfg.Session.NoticeLimit == 0 {
		cfg.Session.NoticeLimit = 64
	}
	if cfg.Display.LeaderboardPollSec == 0 {
		cfg.Display.LeaderboardPollSec = 10
	}
	if cfg.Display.RenderIntervalMS == 0 {
		cfg.Display.RenderIntervalMS = 1000
	}
	if cfg.Limits.MinPrice == 0 {
		cfg.Limits.MinPrice = 1
	}
	if cfg.Limits.MaxPrice == 0 {
		cfg.Limits.MaxPrice = 200
	}
	if cfg.Limits.OrdersPerSec == 0 {
		cfg.Limits.OrdersPerSec = 10
	}
	if cfg.Limits.OrderBurst == 0 {
		cfg.Limits.OrderBurst = 5
	}
	if cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = "localhost:9180"
	}
}

// overrideWithEnv lets deployment environments point the client at a
// different venue without editing the config file.
func overrideWithEnv(cfg *Config) {
	if v := os.Getenv("ZINGERS_SERVER_URL"); v != "" {
		cfg.Server.BaseURL = v
	}
	if v := os.Getenv("ZINGERS_WS_URL"); v != "" {
		cfg.Server.WSURL = v
	}
	if v := os.Getenv("ZINGERS_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}
