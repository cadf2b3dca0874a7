package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/starvault/internal/vault/storage"
)

// AppendTransaction records one append-only audit entry.
func (s *Store) AppendTransaction(ctx context.Context, tx storage.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	kind := strings.TrimSpace(tx.Kind)
	if kind == "" {
		return fmt.Errorf("transaction kind is required")
	}
	createdAt := tx.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO transactions (kind, agent_id, amount_currency, amount_asset, details, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		kind,
		tx.AgentID,
		tx.AmountCurrency,
		tx.AmountAsset,
		tx.Details,
		toMillis(createdAt),
	)
	if err != nil {
		return fmt.Errorf("append transaction: %w", err)
	}
	return nil
}

// RecentTransactions returns the newest audit entries, newest first.
func (s *Store) RecentTransactions(ctx context.Context, limit int) ([]storage.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT id, kind, agent_id, amount_currency, amount_asset, details, created_at
		 FROM transactions ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent transactions: %w", err)
	}
	defer rows.Close()

	var transactions []storage.Transaction
	for rows.Next() {
		var tx storage.Transaction
		var createdAt int64
		if err := rows.Scan(&tx.ID, &tx.Kind, &tx.AgentID, &tx.AmountCurrency, &tx.AmountAsset, &tx.Details, &createdAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		tx.CreatedAt = fromMillis(createdAt)
		transactions = append(transactions, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read transactions: %w", err)
	}
	return transactions, nil
}
