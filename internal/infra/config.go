package infra

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// timeframeDurations lists the bar intervals the data gateway
// understands. A calendar month is approximated; only the sim feed uses
// the duration, the bridge treats the label as opaque.
var timeframeDurations = map[string]time.Duration{
	"1min": time.Minute, "2min": 2 * time.Minute, "3min": 3 * time.Minute,
	"4min": 4 * time.Minute, "5min": 5 * time.Minute, "6min": 6 * time.Minute,
	"10min": 10 * time.Minute, "12min": 12 * time.Minute, "15min": 15 * time.Minute,
	"20min": 20 * time.Minute, "30min": 30 * time.Minute,
	"1h": time.Hour, "2h": 2 * time.Hour, "3h": 3 * time.Hour, "4h": 4 * time.Hour,
	"6h": 6 * time.Hour, "8h": 8 * time.Hour, "12h": 12 * time.Hour,
	"1d": 24 * time.Hour, "1w": 7 * 24 * time.Hour, "1M": 30 * 24 * time.Hour,
}

// TimeframeDuration maps a timeframe label to its bar interval.
func TimeframeDuration(timeframe string) (time.Duration, bool) {
	d, ok := timeframeDurations[timeframe]
	return d, ok
}

// Config holds every operating parameter of the trading system.
// Secrets may be overridden through environment variables after load.
type Config struct {
	App struct {
		Name string `yaml:"name"`
	} `yaml:"app"`

	Trading struct {
		Mode       string   `yaml:"mode"` // "paper" or "bridge"
		Symbols    []string `yaml:"symbols"`
		Timeframe  string   `yaml:"timeframe"`
		StrategyID int64    `yaml:"strategy_id"`
	} `yaml:"trading"`

	Strategy struct {
		RSIPeriod int     `yaml:"rsi_period"`
		RSIUpper  float64 `yaml:"rsi_upper"`
		RSILower  float64 `yaml:"rsi_lower"`
		SLPoints  int     `yaml:"sl_points"`
		TPPoints  int     `yaml:"tp_points"`
	} `yaml:"strategy"`

	Sizing struct {
		FixedVolume float64 `yaml:"fixed_volume"`
	} `yaml:"sizing"`

	Risk struct {
		MaxLeverageFactor float64 `yaml:"max_leverage_factor"`
	} `yaml:"risk"`

	Paper struct {
		Equity   float64 `yaml:"equity"`
		Currency string  `yaml:"currency"`
	} `yaml:"paper"`

	Bridge struct {
		WSURL string `yaml:"ws_url"`
	} `yaml:"bridge"`

	Telegram struct {
		Enabled bool   `yaml:"enabled"`
		Token   string `yaml:"token"`
		ChatID  string `yaml:"chat_id"`
	} `yaml:"telegram"`

	Journal struct {
		Path string `yaml:"path"`
	} `yaml:"journal"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// DefaultConfig returns the stock configuration the system ships with.
func DefaultConfig() *Config {
	var cfg Config
	cfg.App.Name = "lia_trading"
	cfg.Trading.Mode = "paper"
	cfg.Trading.Symbols = []string{"EURUSD", "GBPUSD", "USDJPY"}
	cfg.Trading.Timeframe = "1min"
	cfg.Trading.StrategyID = 12345
	cfg.Strategy.RSIPeriod = 14
	cfg.Strategy.RSIUpper = 70.0
	cfg.Strategy.RSILower = 30.0
	cfg.Strategy.SLPoints = 50
	cfg.Strategy.TPPoints = 100
	cfg.Sizing.FixedVolume = 0.01
	cfg.Risk.MaxLeverageFactor = 3.0
	cfg.Paper.Equity = 10000
	cfg.Paper.Currency = "USD"
	cfg.Journal.Path = "trades.db"
	cfg.Logging.Level = "info"
	return &cfg
}

// LoadConfig reads and parses the configuration file, applies environment
// overrides for secrets, and validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	overrideWithEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks configuration validity. Threshold ordering is enforced
// here, once, so the signal stage never has to re-check it.
func (c *Config) Validate() error {
	if c.Trading.Mode != "paper" && c.Trading.Mode != "bridge" {
		return fmt.Errorf("trading mode must be \"paper\" or \"bridge\", got %q", c.Trading.Mode)
	}
	if len(c.Trading.Symbols) == 0 {
		return fmt.Errorf("at least one symbol is required")
	}
	if _, ok := timeframeDurations[c.Trading.Timeframe]; !ok {
		return fmt.Errorf("invalid timeframe: %q", c.Trading.Timeframe)
	}
	if c.Trading.StrategyID <= 0 {
		return fmt.Errorf("strategy_id must be positive")
	}

	if c.Strategy.RSIPeriod < 2 {
		return fmt.Errorf("rsi_period must be >= 2")
	}
	if !(0 < c.Strategy.RSILower && c.Strategy.RSILower < c.Strategy.RSIUpper && c.Strategy.RSIUpper < 100) {
		return fmt.Errorf("rsi thresholds must satisfy 0 < lower < upper < 100")
	}
	if c.Strategy.SLPoints <= 0 || c.Strategy.TPPoints <= 0 {
		return fmt.Errorf("sl_points and tp_points must be positive")
	}

	if c.Sizing.FixedVolume <= 0 {
		return fmt.Errorf("fixed_volume must be positive")
	}
	if c.Risk.MaxLeverageFactor <= 0 {
		return fmt.Errorf("max_leverage_factor must be positive")
	}

	if c.Trading.Mode == "bridge" {
		if !hasPrefix(c.Bridge.WSURL, "ws://") && !hasPrefix(c.Bridge.WSURL, "wss://") {
			return fmt.Errorf("invalid bridge WS URL: %q", c.Bridge.WSURL)
		}
	} else if c.Paper.Equity <= 0 || c.Paper.Currency == "" {
		return fmt.Errorf("paper mode requires positive equity and an account currency")
	}

	if c.Telegram.Enabled && (c.Telegram.Token == "" || c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram notifications require both token and chat_id")
	}
	return nil
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[0:len(prefix)] == prefix
}

// overrideWithEnv lets environment variables take precedence over the
// config file so secrets never need to live on disk.
func overrideWithEnv(cfg *Config) {
	if cfg.Telegram.Token != "" {
		fmt.Println("WARNING: telegram token found in config file; prefer LIA_TELEGRAM_TOKEN")
	}
	if token := os.Getenv("LIA_TELEGRAM_TOKEN"); token != "" {
		cfg.Telegram.Token = token
	}
	if chat := os.Getenv("LIA_TELEGRAM_CHAT_ID"); chat != "" {
		cfg.Telegram.ChatID = chat
	}
	if url := os.Getenv("LIA_BRIDGE_WS_URL"); url != "" {
		cfg.Bridge.WSURL = url
	}
}
