// Package domain holds the currency types and value math for the vault:
// notes, denominations, breakdowns, and the asset exchange rate.
package domain

import (
	"fmt"
	"sort"
	"time"

	"github.com/louisbranch/starvault/internal/platform/id"
)

// NoteStatus describes where a note is in its lifecycle.
type NoteStatus string

const (
	// StatusCirculating marks an outstanding, redeemable note.
	StatusCirculating NoteStatus = "circulating"
	// StatusRedeemed marks a note exchanged back into reserve assets. Terminal.
	StatusRedeemed NoteStatus = "redeemed"
	// StatusConfiscated marks a note seized by security enforcement. Terminal.
	StatusConfiscated NoteStatus = "confiscated"
)

// Note is a serial-numbered currency unit recorded in the ledger.
// Notes are never deleted; redeemed and confiscated records remain as the
// permanent audit trail.
type Note struct {
	Serial          string
	Denomination    int
	IssuedTo        string
	Status          NoteStatus
	IssuedAt        time.Time
	StatusChangedAt *time.Time
	StatusChangedBy string
}

// NewSerial generates a fresh random note serial.
func NewSerial() (string, error) {
	return id.NewID()
}

// Denominations is the configured set of valid note denominations.
type Denominations []int

// Validate reports whether the set is usable: non-empty, positive, unique.
func (d Denominations) Validate() error {
	if len(d) == 0 {
		return fmt.Errorf("at least one denomination is required")
	}
	seen := make(map[int]bool, len(d))
	for _, denom := range d {
		if denom <= 0 {
			return fmt.Errorf("denomination %d must be positive", denom)
		}
		if seen[denom] {
			return fmt.Errorf("denomination %d is duplicated", denom)
		}
		seen[denom] = true
	}
	return nil
}

// Contains reports whether denom is a configured denomination.
func (d Denominations) Contains(denom int) bool {
	for _, value := range d {
		if value == denom {
			return true
		}
	}
	return false
}

// Smallest returns the smallest configured denomination.
func (d Denominations) Smallest() int {
	smallest := 0
	for _, value := range d {
		if smallest == 0 || value < smallest {
			smallest = value
		}
	}
	return smallest
}

// Descending returns the denominations ordered largest first.
func (d Denominations) Descending() []int {
	sorted := make([]int, len(d))
	copy(sorted, d)
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))
	return sorted
}

// DenominationCount pairs a denomination with a note count in a breakdown.
type DenominationCount struct {
	Denomination int
	Count        int64
}

// Breakdown splits value into notes greedily, largest denomination first.
// The result is ordered largest first, carries no zero counts, and its
// denomination-weighted sum equals the covered portion of value. Any
// remainder smaller than the smallest denomination is not representable
// and is left out of the result.
func (d Denominations) Breakdown(value int64) []DenominationCount {
	var breakdown []DenominationCount
	remaining := value
	for _, denom := range d.Descending() {
		count := remaining / int64(denom)
		if count > 0 {
			breakdown = append(breakdown, DenominationCount{Denomination: denom, Count: count})
			remaining -= count * int64(denom)
		}
	}
	return breakdown
}

// BreakdownValue sums denomination × count over a breakdown.
func BreakdownValue(breakdown []DenominationCount) int64 {
	var total int64
	for _, entry := range breakdown {
		total += int64(entry.Denomination) * entry.Count
	}
	return total
}

// Exchange converts between reserve asset units and currency value at a
// fixed integer rate of asset units per whole currency unit.
type Exchange struct {
	UnitsPerCurrency int64
}

// AssetToCurrency converts asset units to currency value, flooring to the
// nearest whole unit. The fractional remainder is intentionally not
// convertible: notes are only minted against fully backed whole units.
func (e Exchange) AssetToCurrency(units int64) int64 {
	if e.UnitsPerCurrency <= 0 {
		return 0
	}
	return units / e.UnitsPerCurrency
}

// CurrencyToAsset converts whole currency units to asset units.
func (e Exchange) CurrencyToAsset(value int64) int64 {
	return value * e.UnitsPerCurrency
}
