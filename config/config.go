package config

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"ogxd/native/fixed"
)

// SynthConfig declares one synth tracked by the debt pool.
type SynthConfig struct {
	Currency string `toml:"Currency"`
	Name     string `toml:"Name"`
}

// Config is the daemon's on-disk configuration. Ratios are basis points,
// durations are seconds, and rates are decimal strings scaled to standard
// precision on parse.
type Config struct {
	ListenAddress  string `toml:"ListenAddress"`
	MetricsAddress string `toml:"MetricsAddress"`
	DataDir        string `toml:"DataDir"`
	LogFile        string `toml:"LogFile"`

	SnapshotIntervalSeconds int64 `toml:"SnapshotIntervalSeconds"`
	CacheStaleSeconds       int64 `toml:"CacheStaleSeconds"`

	BaseCurrency          string `toml:"BaseCurrency"`
	Stablecoin            string `toml:"Stablecoin"`
	IssuanceRatioBps      int64  `toml:"IssuanceRatioBps"`
	MinStakeSeconds       int64  `toml:"MinStakeSeconds"`
	LiquidationPenaltyBps int64  `toml:"LiquidationPenaltyBps"`

	Synths []SynthConfig     `toml:"Synths"`
	Rates  map[string]string `toml:"Rates"`
}

// Load loads the configuration from the given path, creating a default file
// when none exists.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the daemon cannot start with.
func (c *Config) Validate() error {
	if c.IssuanceRatioBps <= 0 || c.IssuanceRatioBps > 10_000 {
		return fmt.Errorf("config: IssuanceRatioBps must be in (0, 10000], got %d", c.IssuanceRatioBps)
	}
	if c.LiquidationPenaltyBps < 0 || c.LiquidationPenaltyBps > 10_000 {
		return fmt.Errorf("config: LiquidationPenaltyBps must be in [0, 10000], got %d", c.LiquidationPenaltyBps)
	}
	if c.MinStakeSeconds < 0 {
		return fmt.Errorf("config: MinStakeSeconds must not be negative")
	}
	if c.SnapshotIntervalSeconds <= 0 {
		return fmt.Errorf("config: SnapshotIntervalSeconds must be positive")
	}
	if c.CacheStaleSeconds <= 0 {
		return fmt.Errorf("config: CacheStaleSeconds must be positive")
	}
	if strings.TrimSpace(c.BaseCurrency) == "" {
		return fmt.Errorf("config: BaseCurrency must be set")
	}
	if strings.TrimSpace(c.Stablecoin) == "" {
		return fmt.Errorf("config: Stablecoin must be set")
	}

	stablecoinTracked := false
	seen := make(map[string]bool, len(c.Synths))
	for _, synth := range c.Synths {
		key := strings.TrimSpace(synth.Currency)
		if key == "" {
			return fmt.Errorf("config: synth with empty currency key")
		}
		if seen[key] {
			return fmt.Errorf("config: duplicate synth %s", key)
		}
		seen[key] = true
		if key == strings.TrimSpace(c.Stablecoin) {
			stablecoinTracked = true
		}
	}
	if !stablecoinTracked {
		return fmt.Errorf("config: stablecoin %s missing from Synths", c.Stablecoin)
	}

	if _, err := c.ParsedRates(); err != nil {
		return err
	}
	return nil
}

// SnapshotInterval returns the automatic snapshot cadence.
func (c *Config) SnapshotInterval() time.Duration {
	return time.Duration(c.SnapshotIntervalSeconds) * time.Second
}

// CacheStaleThreshold returns the age past which the debt cache reports
// stale.
func (c *Config) CacheStaleThreshold() time.Duration {
	return time.Duration(c.CacheStaleSeconds) * time.Second
}

// MinStakeTime returns the minimum wait between issuance and burn.
func (c *Config) MinStakeTime() time.Duration {
	return time.Duration(c.MinStakeSeconds) * time.Second
}

// IssuanceRatio returns the issuance ratio as a standard decimal.
func (c *Config) IssuanceRatio() *big.Int {
	return bpsToDecimal(c.IssuanceRatioBps)
}

// LiquidationPenalty returns the liquidation penalty as a standard decimal.
func (c *Config) LiquidationPenalty() *big.Int {
	return bpsToDecimal(c.LiquidationPenaltyBps)
}

// ParsedRates converts the configured decimal rate strings to standard
// decimals.
func (c *Config) ParsedRates() (map[string]*big.Int, error) {
	out := make(map[string]*big.Int, len(c.Rates))
	for currency, raw := range c.Rates {
		rate, err := ParseDecimal(raw)
		if err != nil {
			return nil, fmt.Errorf("config: rate for %s: %w", currency, err)
		}
		if rate.Sign() <= 0 {
			return nil, fmt.Errorf("config: rate for %s must be positive", currency)
		}
		out[strings.TrimSpace(currency)] = rate
	}
	return out, nil
}

// ParseDecimal parses a decimal string like "20000" or "1.25" into a
// standard-precision fixed-point integer. At most 18 fractional digits are
// accepted.
func ParseDecimal(raw string) (*big.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("empty decimal")
	}
	whole := trimmed
	frac := ""
	if idx := strings.IndexByte(trimmed, '.'); idx >= 0 {
		whole, frac = trimmed[:idx], trimmed[idx+1:]
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > 18 {
		return nil, fmt.Errorf("decimal %q has more than 18 fractional digits", raw)
	}
	frac += strings.Repeat("0", 18-len(frac))

	value, ok := new(big.Int).SetString(whole+frac, 10)
	if !ok {
		return nil, fmt.Errorf("invalid decimal %q", raw)
	}
	return value, nil
}

func bpsToDecimal(bps int64) *big.Int {
	scaled := new(big.Int).Mul(big.NewInt(bps), fixed.Unit)
	return scaled.Div(scaled, big.NewInt(10_000))
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := &Config{
		ListenAddress:           ":8645",
		MetricsAddress:          ":9645",
		DataDir:                 "./ogx-data",
		SnapshotIntervalSeconds: 600,
		CacheStaleSeconds:       3600,
		BaseCurrency:            "OGX",
		Stablecoin:              "oUSD",
		IssuanceRatioBps:        1_250,
		MinStakeSeconds:         86_400,
		LiquidationPenaltyBps:   1_000,
		Synths: []SynthConfig{
			{Currency: "oUSD", Name: "Synthetic USD"},
		},
		Rates: map[string]string{
			"OGX":  "2.0",
			"oUSD": "1.0",
		},
	}

	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.ListenAddress) == "" {
		cfg.ListenAddress = ":8645"
	}
	if strings.TrimSpace(cfg.MetricsAddress) == "" {
		cfg.MetricsAddress = ":9645"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./ogx-data"
	}
	if cfg.SnapshotIntervalSeconds == 0 {
		cfg.SnapshotIntervalSeconds = 600
	}
	if cfg.CacheStaleSeconds == 0 {
		cfg.CacheStaleSeconds = 3600
	}
	if strings.TrimSpace(cfg.BaseCurrency) == "" {
		cfg.BaseCurrency = "OGX"
	}
	if strings.TrimSpace(cfg.Stablecoin) == "" {
		cfg.Stablecoin = "oUSD"
	}
	if cfg.Rates == nil {
		cfg.Rates = map[string]string{}
	}
}
