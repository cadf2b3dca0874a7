package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/starvault/internal/vault/storage"
)

// InsertLocation records a vault location. Names are unique.
func (s *Store) InsertLocation(ctx context.Context, loc storage.Location) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}
	name := strings.TrimSpace(loc.Name)
	if name == "" {
		return 0, fmt.Errorf("location name is required")
	}
	if loc.Radius <= 0 {
		return 0, fmt.Errorf("radius must be positive")
	}
	createdAt := loc.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	result, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO vault_locations (name, kind, world, x, y, z, radius, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		name,
		strings.ToLower(strings.TrimSpace(loc.Kind)),
		loc.World,
		loc.X,
		loc.Y,
		loc.Z,
		loc.Radius,
		toMillis(createdAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, storage.ErrAlreadyExists
		}
		return 0, fmt.Errorf("insert location: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert location id: %w", err)
	}
	return id, nil
}

// DeleteLocation removes a location by name.
func (s *Store) DeleteLocation(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if s == nil || s.sqlDB == nil {
		return false, fmt.Errorf("storage is not configured")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return false, fmt.Errorf("location name is required")
	}

	result, err := s.sqlDB.ExecContext(ctx, `DELETE FROM vault_locations WHERE name = ?`, name)
	if err != nil {
		return false, fmt.Errorf("delete location: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete location rows affected: %w", err)
	}
	return affected > 0, nil
}

// ListLocations returns every registered vault location.
func (s *Store) ListLocations(ctx context.Context) ([]storage.Location, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT id, name, kind, world, x, y, z, radius, created_at FROM vault_locations ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	defer rows.Close()

	var locations []storage.Location
	for rows.Next() {
		var loc storage.Location
		var createdAt int64
		if err := rows.Scan(&loc.ID, &loc.Name, &loc.Kind, &loc.World, &loc.X, &loc.Y, &loc.Z, &loc.Radius, &createdAt); err != nil {
			return nil, fmt.Errorf("scan location: %w", err)
		}
		loc.CreatedAt = fromMillis(createdAt)
		locations = append(locations, loc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read locations: %w", err)
	}
	return locations, nil
}
