package sqlite

import (
	"context"
	"fmt"
	"time"
)

// ReserveUnits returns the current reserve asset units.
func (s *Store) ReserveUnits(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}

	row := s.sqlDB.QueryRowContext(ctx, `SELECT units FROM reserve WHERE id = 1`)
	var units int64
	if err := row.Scan(&units); err != nil {
		return 0, fmt.Errorf("get reserve: %w", err)
	}
	return units, nil
}

// AddToReserve unconditionally increments the reserve.
func (s *Store) AddToReserve(ctx context.Context, units int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if units < 0 {
		return fmt.Errorf("units must be non-negative")
	}

	result, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE reserve SET units = units + ?, last_updated = ? WHERE id = 1`,
		units,
		toMillis(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("add to reserve: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("add to reserve rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("reserve row is missing")
	}
	return nil
}

// RemoveFromReserve decrements the reserve only when the balance covers
// units. The sufficiency check lives in the WHERE clause so two concurrent
// withdrawals cannot both observe the same balance and overdraw.
func (s *Store) RemoveFromReserve(ctx context.Context, units int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if s == nil || s.sqlDB == nil {
		return false, fmt.Errorf("storage is not configured")
	}
	if units < 0 {
		return false, fmt.Errorf("units must be non-negative")
	}

	result, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE reserve SET units = units - ?, last_updated = ? WHERE id = 1 AND units >= ?`,
		units,
		toMillis(time.Now()),
		units,
	)
	if err != nil {
		return false, fmt.Errorf("remove from reserve: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("remove from reserve rows affected: %w", err)
	}
	return affected > 0, nil
}

// EmergencyActive reports the persisted emergency-mode flag.
func (s *Store) EmergencyActive(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if s == nil || s.sqlDB == nil {
		return false, fmt.Errorf("storage is not configured")
	}

	row := s.sqlDB.QueryRowContext(ctx, `SELECT emergency_active FROM bank_state WHERE id = 1`)
	var active int
	if err := row.Scan(&active); err != nil {
		return false, fmt.Errorf("get emergency flag: %w", err)
	}
	return active != 0, nil
}

// SetEmergencyActive persists the emergency-mode flag.
func (s *Store) SetEmergencyActive(ctx context.Context, active bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	value := 0
	if active {
		value = 1
	}
	_, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE bank_state SET emergency_active = ?, updated_at = ? WHERE id = 1`,
		value,
		toMillis(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("set emergency flag: %w", err)
	}
	return nil
}
