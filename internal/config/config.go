// Package config defines all configuration for the market-making bot.
// Config is loaded from a YAML file (default: configs/config.yaml) with
// sensitive fields overridable via STANDX_* environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"standx-mm/pkg/types"
)

// Config is the top-level configuration. Maps directly to the YAML file structure.
type Config struct {
	DryRun    bool            `mapstructure:"dry_run"`
	Wallet    WalletConfig    `mapstructure:"wallet"`
	API       APIConfig       `mapstructure:"api"`
	Symbols   SymbolsConfig   `mapstructure:"symbols"`
	Strategy  StrategyConfig  `mapstructure:"strategy"`
	Risk      RiskConfig      `mapstructure:"risk"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
}

// WalletConfig holds the credentials used to authenticate REST/WS requests.
// PrivateKey may be base58 or hex encoded; the signer auto-detects which.
type WalletConfig struct {
	PrivateKey   string `mapstructure:"private_key"`
	BearerToken  string `mapstructure:"bearer_token"`
	WalletAddress string `mapstructure:"wallet_address"`
	ChainLabel   string `mapstructure:"chain_label"`
}

// APIConfig holds StandX API endpoints.
type APIConfig struct {
	BaseURL string `mapstructure:"base_url"`
	WSURL   string `mapstructure:"ws_url"`
}

// SymbolsConfig defines the closed set of tradeable symbols and their tick
// tables. An unknown symbol is rejected by Validate and by any runtime
// config update.
type SymbolsConfig struct {
	Active    string             `mapstructure:"active"`
	Supported []types.SymbolSpec `mapstructure:"supported"`
}

// Lookup returns the SymbolSpec for a symbol, or false if unsupported.
func (s SymbolsConfig) Lookup(symbol string) (types.SymbolSpec, bool) {
	for _, spec := range s.Supported {
		if spec.Symbol == symbol {
			return spec, true
		}
	}
	return types.SymbolSpec{}, false
}

// StrategyConfig tunes the quote generator and the reconciliation loop.
//
//   - SpreadBps: half-spread floor, in basis points of mid, applied to each side.
//   - BidNotional / AskNotional: target USD notional for the bid and ask resting orders.
//   - RequoteThresholdBps: how far (in bps of mid) a resting order may drift
//     from the desired quote before it is cancelled and replaced.
//   - RefreshInterval: tick cadence for the control loop.
//   - StaleBookTimeout: treat the book as stale if no update arrives within
//     this window; a stale-book tick places and replaces nothing and leaves
//     already-resting orders in place.
//   - MaxSpreadDeviationBps: cancel a resting order if its distance from mid
//     exceeds this, independent of the requote threshold (a hard safety rail).
//   - InventorySkewEnabled / SkewFactorBps: optional linear inventory skew
//     (design note: off by default, see SPEC_FULL.md §11).
type StrategyConfig struct {
	SpreadBps              int           `mapstructure:"spread_bps"`
	BidNotional            float64       `mapstructure:"bid_notional"`
	AskNotional            float64       `mapstructure:"ask_notional"`
	RequoteThresholdBps    float64       `mapstructure:"requote_threshold_bps"`
	RefreshInterval        time.Duration `mapstructure:"refresh_interval"`
	StaleBookTimeout       time.Duration `mapstructure:"stale_book_timeout"`
	MaxSpreadDeviationBps  float64       `mapstructure:"max_spread_deviation_bps"`
	InventorySkewEnabled   bool          `mapstructure:"inventory_skew_enabled"`
	SkewFactorBps          float64       `mapstructure:"skew_factor_bps"`
}

// RiskConfig holds the risk-related settings. Only MaxConsecutiveFailures
// trips the kill switch; no order is rejected before placement on the
// basis of position size or notional.
//
//   - MaxPosition: position size in base asset that normalizes the quote
//     generator's inventory skew; it is not enforced as a position cap.
//   - MaxNotional: USD notional; Validate requires it to be > 0, and nothing
//     else reads it.
//   - MaxConsecutiveFailures: consecutive tick failures before tripping
//     the kill switch and cancelling everything.
//   - StaleOrderSeconds: cancel a resting order once it's been open longer
//     than this; 0 disables the check.
type RiskConfig struct {
	MaxPosition            float64 `mapstructure:"max_position"`
	MaxNotional            float64 `mapstructure:"max_notional"`
	MaxConsecutiveFailures int     `mapstructure:"max_consecutive_failures"`
	StaleOrderSeconds      int     `mapstructure:"stale_order_seconds"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DashboardConfig controls the local status/control HTTP+WS server.
type DashboardConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Load reads config from a YAML file with env var overrides.
// Sensitive fields use env vars: STANDX_PRIVATE_KEY, STANDX_BEARER_TOKEN.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("STANDX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if key := os.Getenv("STANDX_PRIVATE_KEY"); key != "" {
		cfg.Wallet.PrivateKey = key
	}
	if token := os.Getenv("STANDX_BEARER_TOKEN"); token != "" {
		cfg.Wallet.BearerToken = token
	}
	if os.Getenv("STANDX_DRY_RUN") == "true" || os.Getenv("STANDX_DRY_RUN") == "1" {
		cfg.DryRun = true
	}

	return &cfg, nil
}

// Validate checks all required fields, value ranges, and that the active
// symbol is one of the supported symbols.
func (c *Config) Validate() error {
	if c.Wallet.PrivateKey == "" {
		return fmt.Errorf("wallet.private_key is required (set STANDX_PRIVATE_KEY)")
	}
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	if c.API.WSURL == "" {
		return fmt.Errorf("api.ws_url is required")
	}
	if c.Symbols.Active == "" {
		return fmt.Errorf("symbols.active is required")
	}
	if _, ok := c.Symbols.Lookup(c.Symbols.Active); !ok {
		return fmt.Errorf("symbols.active %q is not in symbols.supported", c.Symbols.Active)
	}
	if c.Strategy.SpreadBps <= 0 {
		return fmt.Errorf("strategy.spread_bps must be > 0")
	}
	if c.Strategy.BidNotional <= 0 || c.Strategy.AskNotional <= 0 {
		return fmt.Errorf("strategy.bid_notional and ask_notional must be > 0")
	}
	if c.Strategy.RequoteThresholdBps <= 0 {
		return fmt.Errorf("strategy.requote_threshold_bps must be > 0")
	}
	if c.Strategy.RefreshInterval <= 0 {
		return fmt.Errorf("strategy.refresh_interval must be > 0")
	}
	if c.Risk.MaxPosition <= 0 {
		return fmt.Errorf("risk.max_position must be > 0")
	}
	if c.Risk.MaxNotional <= 0 {
		return fmt.Errorf("risk.max_notional must be > 0")
	}
	if c.Risk.MaxConsecutiveFailures <= 0 {
		return fmt.Errorf("risk.max_consecutive_failures must be > 0")
	}
	return nil
}

// ValidateSymbolSwitch checks whether newSymbol may be adopted at runtime
// without requiring a restart.
func (c *Config) ValidateSymbolSwitch(newSymbol string) (types.SymbolSpec, error) {
	spec, ok := c.Symbols.Lookup(newSymbol)
	if !ok {
		return types.SymbolSpec{}, fmt.Errorf("symbol %q is not supported", newSymbol)
	}
	return spec, nil
}

// RuntimeUpdate is the set of fields a POST /api/config request may change
// without a process restart. Nil fields are left unchanged.
type RuntimeUpdate struct {
	Symbol              *string  `json:"symbol,omitempty"`
	SpreadBps           *int     `json:"spread_bps,omitempty"`
	BidNotional         *float64 `json:"bid_notional,omitempty"`
	AskNotional         *float64 `json:"ask_notional,omitempty"`
	RequoteThresholdBps *float64 `json:"requote_threshold_bps,omitempty"`
	RefreshInterval     *string  `json:"refresh_interval,omitempty"`
}

// IsEmpty reports whether the update has no fields set, which the caller
// should treat as a bad request.
func (u RuntimeUpdate) IsEmpty() bool {
	return u.Symbol == nil && u.SpreadBps == nil && u.BidNotional == nil &&
		u.AskNotional == nil && u.RequoteThresholdBps == nil && u.RefreshInterval == nil
}

// ChangesSymbol reports whether the update targets a different active
// symbol, which triggers the stop/reset/resubscribe/restart barrier.
func (u RuntimeUpdate) ChangesSymbol(current string) bool {
	return u.Symbol != nil && *u.Symbol != current
}

// Apply merges non-nil fields from u into c. It does not validate the
// symbol — callers must call ValidateSymbolSwitch first when u.Symbol is set.
func (c *Config) Apply(u RuntimeUpdate) error {
	if u.Symbol != nil {
		c.Symbols.Active = *u.Symbol
	}
	if u.SpreadBps != nil {
		c.Strategy.SpreadBps = *u.SpreadBps
	}
	if u.BidNotional != nil {
		c.Strategy.BidNotional = *u.BidNotional
	}
	if u.AskNotional != nil {
		c.Strategy.AskNotional = *u.AskNotional
	}
	if u.RequoteThresholdBps != nil {
		c.Strategy.RequoteThresholdBps = *u.RequoteThresholdBps
	}
	if u.RefreshInterval != nil {
		d, err := time.ParseDuration(*u.RefreshInterval)
		if err != nil {
			return fmt.Errorf("invalid refresh_interval: %w", err)
		}
		c.Strategy.RefreshInterval = d
	}
	return nil
}
