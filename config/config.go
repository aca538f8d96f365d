// Package config loads runtime configuration: broker credentials and
// infrastructure endpoints come from environment variables, strategy and
// risk tuning from an optional YAML file.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"option-traderv1/internal/execution"
	"option-traderv1/internal/portfolio"
	"option-traderv1/internal/scanner"
	"option-traderv1/internal/strategy"
)

// Config holds all application configuration.
type Config struct {
	// Broker bridge credentials
	BridgeURL       string
	AccountID       string
	AccountPassword string
	TOTPSecret      string

	// Infrastructure
	RedisAddr     string
	RedisPassword string
	JournalPath   string
	MetricsAddr   string

	// Telegram alerts; empty token disables them
	TelegramToken  string
	TelegramChatID string

	// Trading
	PaperMode     bool
	FixedLots     int
	CycleInterval time.Duration
	BarCount      int
	LogLevel      string

	// Tunables loaded from the YAML file (or defaults)
	Strategy  strategy.Params
	Execution execution.Config
	Risk      portfolio.Limits
	Scanner   scanner.Config
}

// Load reads environment variables and the optional strategy file named by
// STRATEGY_FILE. In paper mode the broker credentials may be empty.
func Load() *Config {
	cfg := &Config{
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		JournalPath:   getEnv("JOURNAL_PATH", "data/trades.db"),
		MetricsAddr:   getEnv("METRICS_ADDR", ":9090"),

		TelegramToken:  getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID: getEnv("TELEGRAM_CHAT_ID", ""),

		PaperMode:     getEnvBool("PAPER_MODE", false),
		FixedLots:     getEnvInt("FIXED_LOTS", 1),
		CycleInterval: getEnvDuration("CYCLE_INTERVAL", 3*time.Minute),
		BarCount:      getEnvInt("BAR_COUNT", 150),
		LogLevel:      getEnv("LOG_LEVEL", "info"),

		Strategy:  strategy.DefaultParams(),
		Execution: execution.DefaultConfig(),
		Risk:      portfolio.DefaultLimits(),
		Scanner:   scanner.DefaultConfig(),
	}

	if cfg.PaperMode {
		cfg.BridgeURL = getEnv("BRIDGE_URL", "")
		cfg.AccountID = getEnv("BRIDGE_ACCOUNT_ID", "")
		cfg.AccountPassword = getEnv("BRIDGE_PASSWORD", "")
		cfg.TOTPSecret = getEnv("BRIDGE_TOTP_SECRET", "")
	} else {
		cfg.BridgeURL = mustEnv("BRIDGE_URL")
		cfg.AccountID = mustEnv("BRIDGE_ACCOUNT_ID")
		cfg.AccountPassword = mustEnv("BRIDGE_PASSWORD")
		cfg.TOTPSecret = mustEnv("BRIDGE_TOTP_SECRET")
	}

	if path := getEnv("STRATEGY_FILE", ""); path != "" {
		if err := cfg.loadStrategyFile(path); err != nil {
			log.Fatalf("[config] strategy file %s: %v", path, err)
		}
	}

	return cfg
}

// strategyFile is the YAML layout for tunables. Every section is optional;
// absent fields keep their defaults.
type strategyFile struct {
	Strategy *struct {
		ShortPeriod      *int     `yaml:"short_period"`
		MidPeriod        *int     `yaml:"mid_period"`
		LongPeriod       *int     `yaml:"long_period"`
		BandPeriod       *int     `yaml:"band_period"`
		BandMult         *float64 `yaml:"band_mult"`
		Lookback         *int     `yaml:"lookback"`
		ConvergenceRatio *float64 `yaml:"convergence_ratio"`
		SqueezeTolerance *float64 `yaml:"squeeze_tolerance"`
		MinPrice         *float64 `yaml:"min_price"`
		MaxPrice         *float64 `yaml:"max_price"`
		StopLossRate     *float64 `yaml:"stop_loss_rate"`
		ExitMAPeriod     *int     `yaml:"exit_ma_period"`
	} `yaml:"strategy"`
	Execution *struct {
		MaxAttempts *int     `yaml:"max_attempts"`
		Step        *float64 `yaml:"step"`
		DelaySec    *int     `yaml:"delay_sec"`
	} `yaml:"execution"`
	Risk *portfolio.Limits `yaml:"risk"`
	Scanner *struct {
		MinPrice       *float64 `yaml:"min_price"`
		MaxPrice       *float64 `yaml:"max_price"`
		OTMMinDistance *float64 `yaml:"otm_min_distance"`
		OTMMaxDistance *float64 `yaml:"otm_max_distance"`
		MaxCandidates  *int     `yaml:"max_candidates"`
	} `yaml:"scanner"`
}

func (c *Config) loadStrategyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var f strategyFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("parse: %w", err)
	}

	if s := f.Strategy; s != nil {
		setInt(&c.Strategy.Indicator.ShortPeriod, s.ShortPeriod)
		setInt(&c.Strategy.Indicator.MidPeriod, s.MidPeriod)
		setInt(&c.Strategy.Indicator.LongPeriod, s.LongPeriod)
		setInt(&c.Strategy.Indicator.BandPeriod, s.BandPeriod)
		setFloat(&c.Strategy.Indicator.BandMult, s.BandMult)
		setInt(&c.Strategy.Indicator.Lookback, s.Lookback)
		setFloat(&c.Strategy.ConvergenceRatio, s.ConvergenceRatio)
		setFloat(&c.Strategy.SqueezeTolerance, s.SqueezeTolerance)
		setFloat(&c.Strategy.MinPrice, s.MinPrice)
		setFloat(&c.Strategy.MaxPrice, s.MaxPrice)
		setFloat(&c.Strategy.StopLossRate, s.StopLossRate)
		setInt(&c.Strategy.ExitMAPeriod, s.ExitMAPeriod)
	}
	if e := f.Execution; e != nil {
		setInt(&c.Execution.MaxAttempts, e.MaxAttempts)
		setFloat(&c.Execution.Step, e.Step)
		if e.DelaySec != nil {
			c.Execution.Delay = time.Duration(*e.DelaySec) * time.Second
		}
	}
	if f.Risk != nil {
		c.Risk = *f.Risk
	}
	if s := f.Scanner; s != nil {
		setFloat(&c.Scanner.MinPrice, s.MinPrice)
		setFloat(&c.Scanner.MaxPrice, s.MaxPrice)
		setFloat(&c.Scanner.OTMMinDistance, s.OTMMinDistance)
		setFloat(&c.Scanner.OTMMaxDistance, s.OTMMaxDistance)
		setInt(&c.Scanner.MaxCandidates, s.MaxCandidates)
	}
	return nil
}

// Validate checks every tunable section once at startup.
func (c *Config) Validate() error {
	if c.BarCount < c.Strategy.Indicator.MinBars() {
		return fmt.Errorf("config: BAR_COUNT %d is below the indicator minimum %d",
			c.BarCount, c.Strategy.Indicator.MinBars())
	}
	if c.CycleInterval <= 0 {
		return fmt.Errorf("config: cycle interval must be positive, got %v", c.CycleInterval)
	}
	if c.FixedLots < 1 {
		return fmt.Errorf("config: fixed lots must be >= 1, got %d", c.FixedLots)
	}
	if err := c.Strategy.Validate(); err != nil {
		return err
	}
	if err := c.Execution.Validate(); err != nil {
		return err
	}
	if err := c.Risk.Validate(); err != nil {
		return err
	}
	return c.Scanner.Validate()
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("[config] required env var %s not set", key)
	}
	return v
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("[config] %s must be an integer, got %q", key, v)
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Fatalf("[config] %s must be a boolean, got %q", key, v)
	}
	return b
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Fatalf("[config] %s must be a duration like 3m, got %q", key, v)
	}
	return d
}
