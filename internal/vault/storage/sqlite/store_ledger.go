package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/starvault/internal/vault/domain"
	"github.com/louisbranch/starvault/internal/vault/storage"
)

// InsertNote records a freshly issued note. The serial primary key enforces
// issue-exactly-once.
func (s *Store) InsertNote(ctx context.Context, note domain.Note) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	serial := strings.TrimSpace(note.Serial)
	if serial == "" {
		return fmt.Errorf("serial is required")
	}
	if note.Denomination <= 0 {
		return fmt.Errorf("denomination must be positive")
	}
	status := note.Status
	if status == "" {
		status = domain.StatusCirculating
	}
	issuedAt := note.IssuedAt.UTC()
	if issuedAt.IsZero() {
		issuedAt = time.Now().UTC()
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO notes (serial, denomination, issued_to, status, issued_at, status_changed_at, status_changed_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		serial,
		note.Denomination,
		note.IssuedTo,
		string(status),
		toMillis(issuedAt),
		toNullMillis(note.StatusChangedAt),
		note.StatusChangedBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("insert note: %w", err)
	}
	return nil
}

// GetNote returns the note for a serial.
func (s *Store) GetNote(ctx context.Context, serial string) (domain.Note, error) {
	if err := ctx.Err(); err != nil {
		return domain.Note{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.Note{}, fmt.Errorf("storage is not configured")
	}
	serial = strings.TrimSpace(serial)
	if serial == "" {
		return domain.Note{}, fmt.Errorf("serial is required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT serial, denomination, issued_to, status, issued_at, status_changed_at, status_changed_by
		 FROM notes WHERE serial = ?`,
		serial,
	)

	var note domain.Note
	var status string
	var issuedAt int64
	var statusChangedAt sql.NullInt64
	err := row.Scan(
		&note.Serial,
		&note.Denomination,
		&note.IssuedTo,
		&status,
		&issuedAt,
		&statusChangedAt,
		&note.StatusChangedBy,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Note{}, storage.ErrNotFound
		}
		return domain.Note{}, fmt.Errorf("get note: %w", err)
	}
	note.Status = domain.NoteStatus(status)
	note.IssuedAt = fromMillis(issuedAt)
	note.StatusChangedAt = fromNullMillis(statusChangedAt)
	return note, nil
}

// RedeemNote transitions circulating → redeemed in one conditional update.
// The WHERE clause on status is what guarantees at-most-once redemption
// under concurrent redeemers presenting the same serial.
func (s *Store) RedeemNote(ctx context.Context, serial, redeemedBy string) (bool, error) {
	return s.transitionNote(ctx, serial, redeemedBy, domain.StatusRedeemed)
}

// ConfiscateNote transitions circulating → confiscated in one conditional update.
func (s *Store) ConfiscateNote(ctx context.Context, serial, confiscatedBy string) (bool, error) {
	return s.transitionNote(ctx, serial, confiscatedBy, domain.StatusConfiscated)
}

func (s *Store) transitionNote(ctx context.Context, serial, by string, to domain.NoteStatus) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if s == nil || s.sqlDB == nil {
		return false, fmt.Errorf("storage is not configured")
	}
	serial = strings.TrimSpace(serial)
	if serial == "" {
		return false, fmt.Errorf("serial is required")
	}

	result, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE notes SET status = ?, status_changed_at = ?, status_changed_by = ?
		 WHERE serial = ? AND status = ?`,
		string(to),
		toMillis(time.Now()),
		by,
		serial,
		string(domain.StatusCirculating),
	)
	if err != nil {
		return false, fmt.Errorf("transition note to %s: %w", to, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("transition note rows affected: %w", err)
	}
	return affected > 0, nil
}

// CirculatingValue sums denomination over all circulating notes.
func (s *Store) CirculatingValue(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT COALESCE(SUM(denomination), 0) FROM notes WHERE status = ?`,
		string(domain.StatusCirculating),
	)
	var total int64
	if err := row.Scan(&total); err != nil {
		return 0, fmt.Errorf("circulating value: %w", err)
	}
	return total, nil
}

// CirculatingCounts returns circulating note counts keyed by denomination.
func (s *Store) CirculatingCounts(ctx context.Context) (map[int]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT denomination, COUNT(*) FROM notes WHERE status = ? GROUP BY denomination`,
		string(domain.StatusCirculating),
	)
	if err != nil {
		return nil, fmt.Errorf("circulating counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[int]int64)
	for rows.Next() {
		var denomination int
		var count int64
		if err := rows.Scan(&denomination, &count); err != nil {
			return nil, fmt.Errorf("scan circulating count: %w", err)
		}
		counts[denomination] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read circulating counts: %w", err)
	}
	return counts, nil
}
