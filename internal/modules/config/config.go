package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const configFileEnv = "CONFIG_FILE"

// timeframes maps the supported candle buckets to their wall-clock length.
var timeframes = map[string]time.Duration{
	"1m":  time.Minute,
	"5m":  5 * time.Minute,
	"15m": 15 * time.Minute,
	"30m": 30 * time.Minute,
	"1H":  time.Hour,
	"4H":  4 * time.Hour,
	"1D":  24 * time.Hour,
}

type ExchangeConfig struct {
	APIKey     string `mapstructure:"api_key"`
	APISecret  string `mapstructure:"api_secret"`
	Passphrase string `mapstructure:"passphrase"`
	Testnet    bool   `mapstructure:"testnet"`
}

type TelegramConfig struct {
	Token  string `mapstructure:"token"`
	ChatID int64  `mapstructure:"chat_id"`
}

type JaegerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type Config struct {
	Exchange ExchangeConfig `mapstructure:"exchange"`

	// SymbolsRaw is a comma-separated instrument list, e.g.
	// "BTC-USDT-SWAP,ETH-USDT-SWAP". Parsed into Symbols at load.
	SymbolsRaw string   `mapstructure:"symbols"`
	Symbols    []string `mapstructure:"-"`

	Timeframe       string `mapstructure:"timeframe"`
	LookbackCandles int    `mapstructure:"lookback_candles"`

	CollateralUSD float64 `mapstructure:"collateral_usd"`
	// Leverage is the requested leverage; the runner caps it at the
	// exchange's per-asset maximum discovered at startup.
	Leverage            int `mapstructure:"leverage"`
	MaxLeverageFallback int `mapstructure:"max_leverage_fallback"`

	StopLossPct   float64 `mapstructure:"stop_loss_pct"`
	TakeProfitPct float64 `mapstructure:"take_profit_pct"`
	// SLMode picks how protection distances are derived:
	// "percent" from the entry price, "atr" from the ATR indicator.
	SLMode    string  `mapstructure:"sl_mode"`
	ATRPeriod int     `mapstructure:"atr_period"`
	ATRMultSL float64 `mapstructure:"atr_mult_sl"`
	ATRMultTP float64 `mapstructure:"atr_mult_tp"`

	Strategy            string `mapstructure:"strategy"`
	EMAFast             int    `mapstructure:"ema_fast"`
	EMASlow             int    `mapstructure:"ema_slow"`
	RequireConfirmation bool   `mapstructure:"require_confirmation"`

	HealthAddr    string `mapstructure:"health_addr"`
	JournalDSN    string `mapstructure:"journal_dsn"`
	OverridesFile string `mapstructure:"overrides_file"`

	Telegram TelegramConfig `mapstructure:"telegram"`
	Jaeger   JaegerConfig   `mapstructure:"jaeger"`
}

func setDefaults(v *viper.Viper) {
	// Viper only resolves env vars for keys it already knows about, so
	// every key gets a default, empty where there is no sensible one.
	v.SetDefault("exchange.api_key", "")
	v.SetDefault("exchange.api_secret", "")
	v.SetDefault("exchange.passphrase", "")
	v.SetDefault("exchange.testnet", false)
	v.SetDefault("journal_dsn", "")
	v.SetDefault("overrides_file", "")
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.chat_id", 0)
	v.SetDefault("jaeger.host", "")
	v.SetDefault("jaeger.port", 6831)
	v.SetDefault("symbols", "BTC-USDT-SWAP,ETH-USDT-SWAP,SOL-USDT-SWAP")
	v.SetDefault("timeframe", "15m")
	v.SetDefault("lookback_candles", 100)
	v.SetDefault("collateral_usd", 25.0)
	v.SetDefault("leverage", 20)
	v.SetDefault("max_leverage_fallback", 20)
	v.SetDefault("stop_loss_pct", 30.0)
	v.SetDefault("take_profit_pct", 60.0)
	v.SetDefault("sl_mode", "percent")
	v.SetDefault("atr_period", 14)
	v.SetDefault("atr_mult_sl", 2.0)
	v.SetDefault("atr_mult_tp", 6.0)
	v.SetDefault("strategy", "emacross")
	v.SetDefault("ema_fast", 9)
	v.SetDefault("ema_slow", 20)
	v.SetDefault("require_confirmation", false)
	v.SetDefault("health_addr", ":8080")
}

// NewConfig loads the YAML file named by CONFIG_FILE (optional) with env
// overrides (EXCHANGE_API_KEY, COLLATERAL_USD, ...), then validates.
// A bad config is a fatal startup error: the caller must exit non-zero.
func NewConfig() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if path := os.Getenv(configFileEnv); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}

	for _, s := range strings.Split(cfg.SymbolsRaw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			cfg.Symbols = append(cfg.Symbols, s)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Exchange.APIKey == "" || c.Exchange.APISecret == "" || c.Exchange.Passphrase == "" {
		return fmt.Errorf("exchange credentials are required (EXCHANGE_API_KEY / EXCHANGE_API_SECRET / EXCHANGE_PASSPHRASE)")
	}
	if len(c.Symbols) == 0 {
		return fmt.Errorf("at least one symbol is required")
	}
	if _, ok := timeframes[c.Timeframe]; !ok {
		return fmt.Errorf("unsupported timeframe %q", c.Timeframe)
	}
	if c.CollateralUSD <= 0 {
		return fmt.Errorf("collateral_usd must be > 0, got %v", c.CollateralUSD)
	}
	if c.Leverage <= 0 {
		return fmt.Errorf("leverage must be > 0, got %d", c.Leverage)
	}
	if c.EMAFast <= 0 || c.EMAFast >= c.EMASlow {
		return fmt.Errorf("ema_fast (%d) must be positive and < ema_slow (%d)", c.EMAFast, c.EMASlow)
	}
	if c.LookbackCandles < c.EMASlow+2 {
		return fmt.Errorf("lookback_candles %d too small for ema_slow %d", c.LookbackCandles, c.EMASlow)
	}
	switch c.SLMode {
	case "percent":
		if c.StopLossPct <= 0 || c.TakeProfitPct <= 0 {
			return fmt.Errorf("stop_loss_pct and take_profit_pct must be > 0")
		}
		// At 100% one direction's exit price lands at or below zero.
		if c.StopLossPct >= 100 || c.TakeProfitPct >= 100 {
			return fmt.Errorf("stop_loss_pct and take_profit_pct must be below 100 in percent mode")
		}
	case "atr":
		if c.ATRPeriod <= 0 || c.ATRMultSL <= 0 || c.ATRMultTP <= 0 {
			return fmt.Errorf("atr_period and atr multipliers must be > 0")
		}
	default:
		return fmt.Errorf("sl_mode must be \"percent\" or \"atr\", got %q", c.SLMode)
	}
	return nil
}

// Interval returns the wall-clock length of the configured timeframe.
func (c *Config) Interval() time.Duration {
	return timeframes[c.Timeframe]
}
