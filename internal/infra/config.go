package infra

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"betexec/internal/domain"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const (
	defaultInboxSize  = 64
	defaultSinkBuffer = 256
	defaultLogDir     = "logs"
	defaultLogFile    = "betexec.log"
)

// ClientConfig describes one venue account.
type ClientConfig struct {
	Name             string          `yaml:"name"`
	Exchange         string          `yaml:"exchange"`
	MinBetSize       decimal.Decimal `yaml:"min_bet_size"`
	MinBetPayout     decimal.Decimal `yaml:"min_bet_payout"`
	MinBSPLiability  decimal.Decimal `yaml:"min_bsp_liability"`
	MinBetValidation *bool           `yaml:"min_bet_validation"`
}

// Limits converts the config into the limits used by order validation.
// Minimum size checks are on unless explicitly disabled.
func (c ClientConfig) Limits() domain.ClientLimits {
	validation := true
	if c.MinBetValidation != nil {
		validation = *c.MinBetValidation
	}
	return domain.ClientLimits{
		MinBetSize:       c.MinBetSize,
		MinBetPayout:     c.MinBetPayout,
		MinBSPLiability:  c.MinBSPLiability,
		MinBetValidation: validation,
	}
}

// StrategyConfig describes one strategy instance built through the registry.
type StrategyConfig struct {
	Name                 string          `yaml:"name"`
	Kind                 string          `yaml:"kind"`
	Client               string          `yaml:"client"`
	MaxOrderExposure     decimal.Decimal `yaml:"max_order_exposure"`
	MaxSelectionExposure decimal.Decimal `yaml:"max_selection_exposure"`
	MaxTradeCount        int             `yaml:"max_trade_count"`
	MaxLiveTradeCount    int             `yaml:"max_live_trade_count"`
	Markets              []string        `yaml:"markets"`
}

// Config holds the whole application configuration. Values from the YAML
// file are overridden by BETEXEC_* environment variables, optionally loaded
// from a .env file.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Logging struct {
		Level      string `yaml:"level"`
		Dir        string `yaml:"dir"`
		File       string `yaml:"file"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAgeDays int    `yaml:"max_age_days"`
		Compress   bool   `yaml:"compress"`
	} `yaml:"logging"`

	Execution struct {
		InboxSize int  `yaml:"inbox_size"`
		Simulated bool `yaml:"simulated"`
	} `yaml:"execution"`

	Clients    []ClientConfig   `yaml:"clients"`
	Strategies []StrategyConfig `yaml:"strategies"`

	Controls struct {
		SinkBuffer int `yaml:"sink_buffer"`
		Redis      struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Channel  string `yaml:"channel"`
		} `yaml:"redis"`
	} `yaml:"controls"`

	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Addr    string `yaml:"addr"`
	} `yaml:"metrics"`
}

// LoadConfig reads and validates the configuration file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrConfigNotFound, path)
		}
		return nil, err
	}
	return ParseConfig(data)
}

// ParseConfig parses YAML, applies defaults and env overrides, then validates.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	_ = godotenv.Load() // .env is optional
	overrideWithEnv(&cfg)
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Dir == "" {
		c.Logging.Dir = defaultLogDir
	}
	if c.Logging.File == "" {
		c.Logging.File = defaultLogFile
	}
	if c.Execution.InboxSize <= 0 {
		c.Execution.InboxSize = defaultInboxSize
	}
	if c.Controls.SinkBuffer <= 0 {
		c.Controls.SinkBuffer = defaultSinkBuffer
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9102"
	}
}

// Validate checks configuration validity.
func (c *Config) Validate() error {
	if len(c.Clients) == 0 {
		return &domain.ConfigError{Field: "clients", Err: errors.New("at least one client is required")}
	}
	seen := make(map[string]bool, len(c.Clients))
	for i, cl := range c.Clients {
		field := fmt.Sprintf("clients[%d]", i)
		if cl.Name == "" {
			return &domain.ConfigError{Field: field + ".name", Err: errors.New("name is required")}
		}
		if seen[cl.Name] {
			return &domain.ConfigError{Field: field + ".name", Err: fmt.Errorf("duplicate client %q", cl.Name)}
		}
		seen[cl.Name] = true
		switch domain.ExchangeType(cl.Exchange) {
		case domain.ExchangeBetfair, domain.ExchangeBetdaq, domain.ExchangeSimulated:
		default:
			return &domain.ConfigError{Field: field + ".exchange", Err: fmt.Errorf("unknown exchange %q", cl.Exchange)}
		}
		if cl.MinBetSize.IsNegative() || cl.MinBetPayout.IsNegative() || cl.MinBSPLiability.IsNegative() {
			return &domain.ConfigError{Field: field, Err: errors.New("minimums must not be negative")}
		}
	}

	names := make(map[string]bool, len(c.Strategies))
	for i, s := range c.Strategies {
		field := fmt.Sprintf("strategies[%d]", i)
		if s.Name == "" {
			return &domain.ConfigError{Field: field + ".name", Err: errors.New("name is required")}
		}
		if names[s.Name] {
			return &domain.ConfigError{Field: field + ".name", Err: fmt.Errorf("duplicate strategy %q", s.Name)}
		}
		names[s.Name] = true
		if s.Client != "" && !seen[s.Client] {
			return &domain.ConfigError{Field: field + ".client", Err: fmt.Errorf("unknown client %q", s.Client)}
		}
		if !s.MaxOrderExposure.IsPositive() || !s.MaxSelectionExposure.IsPositive() {
			return &domain.ConfigError{Field: field, Err: errors.New("exposure limits must be positive")}
		}
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error", "critical":
	default:
		return &domain.ConfigError{Field: "logging.level", Err: fmt.Errorf("unknown level %q", c.Logging.Level)}
	}
	return nil
}

// Client returns the config of a named client.
func (c *Config) Client(name string) (ClientConfig, bool) {
	for _, cl := range c.Clients {
		if cl.Name == name {
			return cl, true
		}
	}
	return ClientConfig{}, false
}

// overrideWithEnv overwrites settings from BETEXEC_* environment variables.
func overrideWithEnv(cfg *Config) {
	if level := os.Getenv("BETEXEC_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if dir := os.Getenv("BETEXEC_LOG_DIR"); dir != "" {
		cfg.Logging.Dir = dir
	}
	if addr := os.Getenv("BETEXEC_REDIS_ADDR"); addr != "" {
		cfg.Controls.Redis.Addr = addr
	}
	if pass := os.Getenv("BETEXEC_REDIS_PASSWORD"); pass != "" {
		cfg.Controls.Redis.Password = pass
	}
	if v := os.Getenv("BETEXEC_SIMULATED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Execution.Simulated = b
		}
	}
	if v := os.Getenv("BETEXEC_INBOX_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Execution.InboxSize = n
		}
	}
	if addr := os.Getenv("BETEXEC_METRICS_ADDR"); addr != "" {
		cfg.Metrics.Addr = addr
	}
}
