package service

import (
	"context"
	"fmt"
	"log"

	verrors "github.com/louisbranch/starvault/internal/errors"
	"github.com/louisbranch/starvault/internal/vault/domain"
	"github.com/louisbranch/starvault/internal/vault/storage"
)

// Monitor watches the reserve ratio and owns the emergency-mode switch. The
// periodic evaluation only ever turns the mode on; turning it off is always
// an operator action.
type Monitor struct {
	ledger   storage.LedgerStore
	reserve  storage.ReserveStore
	exchange domain.Exchange
	critical float64
	notifier Notifier
}

// ReserveStats is a point-in-time snapshot of the bank's backing.
type ReserveStats struct {
	ReserveUnits      int64
	CirculatingValue  int64
	CirculatingCounts map[int]int64
	Ratio             float64
	EmergencyActive   bool
}

// NewMonitor returns a monitor over the ledger and reserve using cfg's
// exchange rate and critical threshold.
func NewMonitor(ledger storage.LedgerStore, reserve storage.ReserveStore, cfg Config, notifier Notifier) *Monitor {
	return &Monitor{
		ledger:   ledger,
		reserve:  reserve,
		exchange: cfg.Exchange(),
		critical: cfg.CriticalRatio,
		notifier: notifier,
	}
}

// ComputeRatio returns reserve units divided by the asset equivalent of the
// circulating currency value. With nothing circulating the bank is fully
// backed and the ratio is 1.
func (m *Monitor) ComputeRatio(ctx context.Context) (float64, error) {
	circulating, err := m.ledger.CirculatingValue(ctx)
	if err != nil {
		return 0, verrors.Wrap(verrors.CodeStoreUnavailable, "sum circulating value", err)
	}
	if circulating == 0 {
		return 1.0, nil
	}
	units, err := m.reserve.ReserveUnits(ctx)
	if err != nil {
		return 0, verrors.Wrap(verrors.CodeStoreUnavailable, "read reserve", err)
	}
	return float64(units) / float64(m.exchange.CurrencyToAsset(circulating)), nil
}

// Evaluate recomputes the ratio and auto-activates emergency mode when it
// falls below the critical threshold. It never deactivates the mode.
func (m *Monitor) Evaluate(ctx context.Context) error {
	ratio, err := m.ComputeRatio(ctx)
	if err != nil {
		return err
	}
	if ratio >= m.critical {
		return nil
	}
	active, err := m.reserve.EmergencyActive(ctx)
	if err != nil {
		return verrors.Wrap(verrors.CodeStoreUnavailable, "read emergency flag", err)
	}
	if active {
		return nil
	}
	if err := m.reserve.SetEmergencyActive(ctx, true); err != nil {
		return verrors.Wrap(verrors.CodeStoreUnavailable, "activate emergency mode", err)
	}
	log.Printf("emergency mode activated: reserve ratio %.4f below critical %.4f", ratio, m.critical)
	if m.notifier != nil {
		message := fmt.Sprintf("The bank has entered emergency mode: reserves cover %.1f%% of circulating notes. Withdrawals are capped and may incur a fee.", ratio*100)
		if err := m.notifier.Broadcast(ctx, message); err != nil {
			log.Printf("broadcast emergency activation: %v", err)
		}
	}
	return nil
}

// SetEmergencyMode is the operator override, valid in either direction
// regardless of the current ratio.
func (m *Monitor) SetEmergencyMode(ctx context.Context, active bool) error {
	if err := m.reserve.SetEmergencyActive(ctx, active); err != nil {
		return verrors.Wrap(verrors.CodeStoreUnavailable, "set emergency mode", err)
	}
	log.Printf("emergency mode set to %t by operator", active)
	return nil
}

// EmergencyActive reports the persisted emergency-mode flag.
func (m *Monitor) EmergencyActive(ctx context.Context) (bool, error) {
	active, err := m.reserve.EmergencyActive(ctx)
	if err != nil {
		return false, verrors.Wrap(verrors.CodeStoreUnavailable, "read emergency flag", err)
	}
	return active, nil
}

// Stats assembles the operator-facing reserve snapshot.
func (m *Monitor) Stats(ctx context.Context) (ReserveStats, error) {
	units, err := m.reserve.ReserveUnits(ctx)
	if err != nil {
		return ReserveStats{}, verrors.Wrap(verrors.CodeStoreUnavailable, "read reserve", err)
	}
	circulating, err := m.ledger.CirculatingValue(ctx)
	if err != nil {
		return ReserveStats{}, verrors.Wrap(verrors.CodeStoreUnavailable, "sum circulating value", err)
	}
	counts, err := m.ledger.CirculatingCounts(ctx)
	if err != nil {
		return ReserveStats{}, verrors.Wrap(verrors.CodeStoreUnavailable, "count circulating notes", err)
	}
	active, err := m.reserve.EmergencyActive(ctx)
	if err != nil {
		return ReserveStats{}, verrors.Wrap(verrors.CodeStoreUnavailable, "read emergency flag", err)
	}
	ratio := 1.0
	if circulating > 0 {
		ratio = float64(units) / float64(m.exchange.CurrencyToAsset(circulating))
	}
	return ReserveStats{
		ReserveUnits:      units,
		CirculatingValue:  circulating,
		CirculatingCounts: counts,
		Ratio:             ratio,
		EmergencyActive:   active,
	}, nil
}
