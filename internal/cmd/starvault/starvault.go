// Package starvault parses vault command flags and launches the vault runtime.
package starvault

import (
	"context"
	"flag"
	"time"

	entrypoint "github.com/louisbranch/starvault/internal/platform/cmd"
	vaultapp "github.com/louisbranch/starvault/internal/vault/app"
	"github.com/louisbranch/starvault/internal/vault/service"
)

// Config holds vault command configuration.
type Config struct {
	Port                 int           `env:"STARVAULT_PORT" envDefault:"8090"`
	DBPath               string        `env:"STARVAULT_DB_PATH" envDefault:"data/starvault.db"`
	DrainInterval        time.Duration `env:"STARVAULT_DRAIN_INTERVAL" envDefault:"1m"`
	EvaluateInterval     time.Duration `env:"STARVAULT_EVALUATE_INTERVAL" envDefault:"5m"`
	RateLimitWindow      time.Duration `env:"STARVAULT_RATE_LIMIT_WINDOW" envDefault:"1h"`
	UnitsPerCurrency     int64         `env:"STARVAULT_UNITS_PER_CURRENCY" envDefault:"1728"`
	Symbol               string        `env:"STARVAULT_SYMBOL" envDefault:"F$"`
	BankName             string        `env:"STARVAULT_BANK_NAME" envDefault:"Starvault"`
	MaxTransactions      int           `env:"STARVAULT_MAX_TRANSACTIONS" envDefault:"20"`
	WithdrawalCooldown   time.Duration `env:"STARVAULT_WITHDRAWAL_COOLDOWN" envDefault:"300s"`
	CriticalRatio        float64       `env:"STARVAULT_CRITICAL_RATIO" envDefault:"0.05"`
	EmergencyWithdrawCap int64         `env:"STARVAULT_EMERGENCY_WITHDRAW_CAP" envDefault:"10"`
	EmergencyFeeRate     float64       `env:"STARVAULT_EMERGENCY_FEE_RATE" envDefault:"0.05"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The vault health gRPC server port")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "The vault SQLite database path")
	fs.DurationVar(&cfg.DrainInterval, "drain-interval", cfg.DrainInterval, "Withdrawal queue drain interval")
	fs.DurationVar(&cfg.EvaluateInterval, "evaluate-interval", cfg.EvaluateInterval, "Reserve ratio evaluation interval")
	fs.DurationVar(&cfg.RateLimitWindow, "rate-limit-window", cfg.RateLimitWindow, "Per-agent transaction window length")
	fs.Int64Var(&cfg.UnitsPerCurrency, "units-per-currency", cfg.UnitsPerCurrency, "Reserve asset units backing one currency unit")
	fs.StringVar(&cfg.Symbol, "symbol", cfg.Symbol, "Currency symbol on note titles")
	fs.StringVar(&cfg.BankName, "bank-name", cfg.BankName, "Bank name printed on note tokens")
	fs.IntVar(&cfg.MaxTransactions, "max-transactions", cfg.MaxTransactions, "Transactions allowed per agent per window")
	fs.DurationVar(&cfg.WithdrawalCooldown, "withdrawal-cooldown", cfg.WithdrawalCooldown, "Minimum gap between an agent's withdrawals")
	fs.Float64Var(&cfg.CriticalRatio, "critical-ratio", cfg.CriticalRatio, "Reserve ratio that trips emergency mode")
	fs.Int64Var(&cfg.EmergencyWithdrawCap, "emergency-withdraw-cap", cfg.EmergencyWithdrawCap, "Largest withdrawal while emergency mode is active")
	fs.Float64Var(&cfg.EmergencyFeeRate, "emergency-fee-rate", cfg.EmergencyFeeRate, "Fee fraction retained during emergency withdrawals")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the vault runtime. The standalone binary has no world engine
// attached, so it serves the ledger, monitor, and schedule; a hosting process
// supplies holdings and positions through vaultapp.Run directly.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceVault, func(context.Context) error {
		return vaultapp.Run(ctx, RuntimeConfig(cfg), vaultapp.Deps{})
	})
}

// RuntimeConfig maps command configuration onto the runtime's shape.
func RuntimeConfig(cfg Config) vaultapp.RuntimeConfig {
	bank := service.DefaultConfig()
	bank.UnitsPerCurrency = cfg.UnitsPerCurrency
	bank.Symbol = cfg.Symbol
	bank.BankName = cfg.BankName
	bank.MaxTransactionsPerWindow = cfg.MaxTransactions
	bank.WithdrawalCooldown = cfg.WithdrawalCooldown
	bank.CriticalRatio = cfg.CriticalRatio
	bank.EmergencyWithdrawCap = cfg.EmergencyWithdrawCap
	bank.EmergencyFeeRate = cfg.EmergencyFeeRate
	return vaultapp.RuntimeConfig{
		Port:             cfg.Port,
		DBPath:           cfg.DBPath,
		Bank:             bank,
		DrainInterval:    cfg.DrainInterval,
		EvaluateInterval: cfg.EvaluateInterval,
		RateLimitWindow:  cfg.RateLimitWindow,
	}
}
