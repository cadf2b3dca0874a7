package service

import (
	"fmt"
	"time"

	verrors "github.com/louisbranch/starvault/internal/errors"
	"github.com/louisbranch/starvault/internal/vault/domain"
)

// Config collects every tunable the bank consults, resolved once at startup
// and passed explicitly instead of read ad hoc inside business logic.
type Config struct {
	// Denominations is the set of valid note denominations.
	Denominations domain.Denominations
	// UnitsPerCurrency is the fixed exchange rate: reserve asset units
	// backing one whole currency unit.
	UnitsPerCurrency int64
	// Symbol prefixes note titles, e.g. "F$".
	Symbol string
	// BankName appears on rendered note tokens.
	BankName string
	// MaxTransactionsPerWindow caps deposits plus withdrawals per agent per
	// rate-limit window.
	MaxTransactionsPerWindow int
	// WithdrawalCooldown is the minimum gap between an agent's withdrawals.
	WithdrawalCooldown time.Duration
	// CriticalRatio is the reserve ratio below which emergency mode
	// auto-activates.
	CriticalRatio float64
	// EmergencyWithdrawCap is the largest withdrawal value allowed while
	// emergency mode is active.
	EmergencyWithdrawCap int64
	// EmergencyFeeRate is the fraction of the delivered asset amount
	// retained by the vault while emergency mode is active.
	EmergencyFeeRate float64
}

// DefaultConfig returns the stock bank configuration.
func DefaultConfig() Config {
	return Config{
		Denominations:            domain.Denominations{1, 10, 100},
		UnitsPerCurrency:         1728,
		Symbol:                   "F$",
		BankName:                 "Starvault",
		MaxTransactionsPerWindow: 20,
		WithdrawalCooldown:       300 * time.Second,
		CriticalRatio:            0.05,
		EmergencyWithdrawCap:     10,
		EmergencyFeeRate:         0.05,
	}
}

// Validate reports whether the configuration is usable. An invalid
// configuration is a programming-contract violation and fails hard.
func (c Config) Validate() error {
	if err := c.Denominations.Validate(); err != nil {
		return verrors.Wrap(verrors.CodeInvalidConfiguration, "invalid denominations", err)
	}
	if c.UnitsPerCurrency <= 0 {
		return verrors.New(verrors.CodeInvalidConfiguration, fmt.Sprintf("units per currency must be positive, got %d", c.UnitsPerCurrency))
	}
	if c.Symbol == "" {
		return verrors.New(verrors.CodeInvalidConfiguration, "currency symbol is required")
	}
	if c.MaxTransactionsPerWindow <= 0 {
		return verrors.New(verrors.CodeInvalidConfiguration, "max transactions per window must be positive")
	}
	if c.WithdrawalCooldown < 0 {
		return verrors.New(verrors.CodeInvalidConfiguration, "withdrawal cooldown must not be negative")
	}
	if c.CriticalRatio <= 0 || c.CriticalRatio >= 1 {
		return verrors.New(verrors.CodeInvalidConfiguration, fmt.Sprintf("critical ratio must be in (0, 1), got %g", c.CriticalRatio))
	}
	if c.EmergencyWithdrawCap <= 0 {
		return verrors.New(verrors.CodeInvalidConfiguration, "emergency withdrawal cap must be positive")
	}
	if c.EmergencyFeeRate < 0 || c.EmergencyFeeRate >= 1 {
		return verrors.New(verrors.CodeInvalidConfiguration, fmt.Sprintf("emergency fee rate must be in [0, 1), got %g", c.EmergencyFeeRate))
	}
	return nil
}

// Exchange returns the configured asset exchange.
func (c Config) Exchange() domain.Exchange {
	return domain.Exchange{UnitsPerCurrency: c.UnitsPerCurrency}
}
