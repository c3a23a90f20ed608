package ledger

import (
	"context"
	"fmt"
)

// BalanceStore persists per-account balances and applies deposited-order
// credits transactionally.
type BalanceStore struct {
	db *DB
}

// NewBalanceStore constructs a BalanceStore.
func NewBalanceStore(db *DB) *BalanceStore {
	return &BalanceStore{db: db}
}

// Get returns an account's balance, "0" if the account has never been
// credited.
func (s *BalanceStore) Get(ctx context.Context, accountID int64) (string, error) {
	var balance string
	row := s.db.QueryRow(ctx, `SELECT balance FROM balances WHERE account_id = $1`, accountID)
	if err := row.Scan(&balance); err != nil {
		return "0", nil
	}
	return balance, nil
}

// CreditOrder atomically adds order.Amount to order.AccountID's balance and
// advances the order to completed, in one SERIALIZABLE transaction: either
// both happen or neither does, and Postgres aborts either side of a
// concurrent double-credit attempt on the same account rather than letting
// both read-then-write interleavings commit. A mid-flight failure (including
// a serialization abort) is safe to retry on the next balancer tick without
// double-crediting.
func (s *BalanceStore) CreditOrder(ctx context.Context, order Order) error {
	tx, err := s.db.BeginSerializableTx(ctx)
	if err != nil {
		return fmt.Errorf("ledger: begin credit tx: %w", err)
	}
	defer tx.Rollback(ctx)

	const upsert = `
		INSERT INTO balances (account_id, balance)
		VALUES ($1, $2)
		ON CONFLICT (account_id) DO UPDATE SET balance = (balances.balance::numeric + excluded.balance::numeric)::text`
	if _, err := tx.Exec(ctx, upsert, order.AccountID, order.Amount); err != nil {
		return fmt.Errorf("ledger: credit balance: %w", err)
	}

	const updateOrder = `UPDATE orders SET status = $1, updated_at = now() WHERE order_id = $2`
	if _, err := tx.Exec(ctx, updateOrder, OrderCompleted, order.OrderID); err != nil {
		return fmt.Errorf("ledger: complete order: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("ledger: commit credit tx: %w", err)
	}
	return nil
}
