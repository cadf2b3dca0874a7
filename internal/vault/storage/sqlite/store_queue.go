package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/starvault/internal/vault/domain"
)

// EnqueueWithdrawal appends an unprocessed withdrawal request.
func (s *Store) EnqueueWithdrawal(ctx context.Context, agentID string, amount int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}
	agentID = strings.TrimSpace(agentID)
	if agentID == "" {
		return 0, fmt.Errorf("agent id is required")
	}
	if amount <= 0 {
		return 0, fmt.Errorf("amount must be positive")
	}

	result, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO withdrawal_queue (agent_id, amount, requested_at, processed) VALUES (?, ?, ?, 0)`,
		agentID,
		amount,
		toMillis(time.Now()),
	)
	if err != nil {
		return 0, fmt.Errorf("enqueue withdrawal: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("enqueue withdrawal id: %w", err)
	}
	return id, nil
}

// UnprocessedWithdrawals returns unprocessed requests in arrival order.
func (s *Store) UnprocessedWithdrawals(ctx context.Context) ([]domain.WithdrawalRequest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT id, agent_id, amount, requested_at, processed
		 FROM withdrawal_queue WHERE processed = 0 ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list unprocessed withdrawals: %w", err)
	}
	defer rows.Close()

	var requests []domain.WithdrawalRequest
	for rows.Next() {
		var request domain.WithdrawalRequest
		var requestedAt int64
		var processed int
		if err := rows.Scan(&request.ID, &request.AgentID, &request.Amount, &requestedAt, &processed); err != nil {
			return nil, fmt.Errorf("scan withdrawal request: %w", err)
		}
		request.RequestedAt = fromMillis(requestedAt)
		request.Processed = processed != 0
		requests = append(requests, request)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read withdrawal requests: %w", err)
	}
	return requests, nil
}

// MarkWithdrawalProcessed flags a request as satisfied. The record stays as
// history and drops out of active queue scans.
func (s *Store) MarkWithdrawalProcessed(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE withdrawal_queue SET processed = 1 WHERE id = ?`,
		id,
	)
	if err != nil {
		return fmt.Errorf("mark withdrawal processed: %w", err)
	}
	return nil
}

// CancelWithdrawals removes an agent's unprocessed requests.
func (s *Store) CancelWithdrawals(ctx context.Context, agentID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}
	agentID = strings.TrimSpace(agentID)
	if agentID == "" {
		return 0, fmt.Errorf("agent id is required")
	}

	result, err := s.sqlDB.ExecContext(
		ctx,
		`DELETE FROM withdrawal_queue WHERE agent_id = ? AND processed = 0`,
		agentID,
	)
	if err != nil {
		return 0, fmt.Errorf("cancel withdrawals: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("cancel withdrawals rows affected: %w", err)
	}
	return removed, nil
}

// QueuePosition returns the agent's 1-based rank among unprocessed requests
// ordered by enqueue time, or 0 when the agent has none. With duplicates the
// first unprocessed entry determines the position.
func (s *Store) QueuePosition(ctx context.Context, agentID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}
	agentID = strings.TrimSpace(agentID)
	if agentID == "" {
		return 0, fmt.Errorf("agent id is required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT COALESCE((
		   SELECT COUNT(*) FROM withdrawal_queue earlier
		   WHERE earlier.processed = 0 AND earlier.id <= mine.id
		 ), 0)
		 FROM (
		   SELECT id FROM withdrawal_queue
		   WHERE agent_id = ? AND processed = 0
		   ORDER BY id LIMIT 1
		 ) mine`,
		agentID,
	)
	var position int
	if err := row.Scan(&position); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("queue position: %w", err)
	}
	return position, nil
}
