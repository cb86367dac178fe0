package config

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"ogxd/native/fixed"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const validConfig = `ListenAddress = ":7000"
MetricsAddress = ":7001"
DataDir = "./data"
SnapshotIntervalSeconds = 300
CacheStaleSeconds = 1800
BaseCurrency = "OGX"
Stablecoin = "oUSD"
IssuanceRatioBps = 2000
MinStakeSeconds = 3600
LiquidationPenaltyBps = 500

[[Synths]]
Currency = "oUSD"
Name = "Synthetic USD"

[[Synths]]
Currency = "oBTC"
Name = "Synthetic Bitcoin"

[Rates]
OGX = "2.5"
oUSD = "1.0"
oBTC = "20000"
`

func TestLoadParsesFullConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.ListenAddress != ":7000" {
		t.Fatalf("unexpected listen address: %s", cfg.ListenAddress)
	}
	if cfg.SnapshotInterval() != 5*time.Minute {
		t.Fatalf("unexpected snapshot interval: %s", cfg.SnapshotInterval())
	}
	if cfg.CacheStaleThreshold() != 30*time.Minute {
		t.Fatalf("unexpected stale threshold: %s", cfg.CacheStaleThreshold())
	}
	if cfg.MinStakeTime() != time.Hour {
		t.Fatalf("unexpected min stake time: %s", cfg.MinStakeTime())
	}
	if len(cfg.Synths) != 2 {
		t.Fatalf("expected two synths, got %d", len(cfg.Synths))
	}

	// 2000 bps is a 0.2 ratio.
	expectedRatio := new(big.Int).Div(fixed.Unit, big.NewInt(5))
	if cfg.IssuanceRatio().Cmp(expectedRatio) != 0 {
		t.Fatalf("unexpected issuance ratio: %s", cfg.IssuanceRatio())
	}
	expectedPenalty := new(big.Int).Div(fixed.Unit, big.NewInt(20))
	if cfg.LiquidationPenalty().Cmp(expectedPenalty) != 0 {
		t.Fatalf("unexpected liquidation penalty: %s", cfg.LiquidationPenalty())
	}

	rates, err := cfg.ParsedRates()
	if err != nil {
		t.Fatalf("parse rates: %v", err)
	}
	expectedOGX, _ := new(big.Int).SetString("2500000000000000000", 10)
	if rates["OGX"].Cmp(expectedOGX) != 0 {
		t.Fatalf("unexpected OGX rate: %s", rates["OGX"])
	}
}

func TestLoadCreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config file must be written: %v", err)
	}
	if cfg.Stablecoin != "oUSD" || cfg.BaseCurrency != "OGX" {
		t.Fatalf("unexpected default currencies: %s/%s", cfg.BaseCurrency, cfg.Stablecoin)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.IssuanceRatioBps != cfg.IssuanceRatioBps {
		t.Fatalf("reload must round-trip the default config")
	}
}

func TestLoadRejectsMissingStablecoinSynth(t *testing.T) {
	contents := `SnapshotIntervalSeconds = 300
CacheStaleSeconds = 1800
IssuanceRatioBps = 2000
LiquidationPenaltyBps = 500

[[Synths]]
Currency = "oBTC"
Name = "Synthetic Bitcoin"
`
	if _, err := Load(writeConfig(t, contents)); err == nil {
		t.Fatalf("config without the stablecoin synth must be rejected")
	}
}

func TestLoadRejectsBadRatio(t *testing.T) {
	contents := `SnapshotIntervalSeconds = 300
CacheStaleSeconds = 1800
IssuanceRatioBps = 20000
LiquidationPenaltyBps = 500

[[Synths]]
Currency = "oUSD"
Name = "Synthetic USD"
`
	if _, err := Load(writeConfig(t, contents)); err == nil {
		t.Fatalf("ratio above 100%% must be rejected")
	}
}

func TestParseDecimal(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"1", "1000000000000000000", true},
		{"1.5", "1500000000000000000", true},
		{"0.000000000000000001", "1", true},
		{"20000", "20000000000000000000000", true},
		{".25", "250000000000000000", true},
		{"", "", false},
		{"abc", "", false},
		{"1.1234567890123456789", "", false},
	}
	for _, tc := range cases {
		got, err := ParseDecimal(tc.in)
		if tc.ok != (err == nil) {
			t.Fatalf("ParseDecimal(%q) error = %v, want ok=%v", tc.in, err, tc.ok)
		}
		if !tc.ok {
			continue
		}
		want, _ := new(big.Int).SetString(tc.want, 10)
		if got.Cmp(want) != 0 {
			t.Fatalf("ParseDecimal(%q) = %s, want %s", tc.in, got, want)
		}
	}
}
