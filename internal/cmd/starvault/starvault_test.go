package starvault

import (
	"flag"
	"testing"
	"time"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("starvault", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Port != 8090 {
		t.Fatalf("port = %d, want 8090", cfg.Port)
	}
	if cfg.UnitsPerCurrency != 1728 {
		t.Fatalf("units per currency = %d, want 1728", cfg.UnitsPerCurrency)
	}
	if cfg.DrainInterval != time.Minute {
		t.Fatalf("drain interval = %v, want 1m", cfg.DrainInterval)
	}

	runtime := RuntimeConfig(cfg)
	if err := runtime.Bank.Validate(); err != nil {
		t.Fatalf("default bank config invalid: %v", err)
	}
	if runtime.Bank.Symbol != "F$" {
		t.Fatalf("symbol = %q, want F$", runtime.Bank.Symbol)
	}
}

func TestParseConfigEnvAndFlags(t *testing.T) {
	t.Setenv("STARVAULT_SYMBOL", "V$")
	t.Setenv("STARVAULT_CRITICAL_RATIO", "0.10")

	fs := flag.NewFlagSet("starvault", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-port", "9100", "-withdrawal-cooldown", "30s"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Symbol != "V$" {
		t.Fatalf("symbol = %q, want V$", cfg.Symbol)
	}
	if cfg.CriticalRatio != 0.10 {
		t.Fatalf("critical ratio = %g, want 0.10", cfg.CriticalRatio)
	}
	if cfg.Port != 9100 {
		t.Fatalf("port = %d, want 9100", cfg.Port)
	}
	if cfg.WithdrawalCooldown != 30*time.Second {
		t.Fatalf("cooldown = %v, want 30s", cfg.WithdrawalCooldown)
	}
}
