package ledger

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// DepositEventStore persists ingested on-chain deposit logs.
type DepositEventStore struct {
	db *DB
}

// NewDepositEventStore constructs a DepositEventStore.
func NewDepositEventStore(db *DB) *DepositEventStore {
	return &DepositEventStore{db: db}
}

// RecordDeposit ingests one on-chain deposit event and, in the same
// transaction, advances the matching order to deposited with the
// on-chain-observed amount. The insert and the order update either both
// commit or both roll back, so a retried pass over the same block range
// never leaves a deposit_events row recorded with its order still stuck in
// pending.
//
// It reports whether the event was newly recorded; false means this call
// observed a replay of an already-ingested (chain_id, transaction_hash,
// log_index) and made no changes. An error here — including the "order not
// found or not pending" case, which happens when a deposit is observed
// before its order row exists — is retryable: callers should not advance
// past this event until RecordDeposit succeeds.
func (s *DepositEventStore) RecordDeposit(ctx context.Context, orders *OrderStore, e DepositEvent) (bool, error) {
	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return false, fmt.Errorf("ledger: begin deposit tx: %w", err)
	}
	defer tx.Rollback(ctx)

	inserted, err := s.insertTx(ctx, tx, e)
	if err != nil {
		return false, err
	}
	if !inserted {
		return false, tx.Commit(ctx)
	}

	updated, err := orders.updateOrderWithDepositDetailsTx(ctx, tx, e.OrderID, e.TransactionHash, e.Amount, e.ChainID)
	if err != nil {
		return false, err
	}
	if !updated {
		return false, fmt.Errorf("ledger: deposit event for order %s matched no pending order", e.OrderID)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("ledger: commit deposit tx: %w", err)
	}
	return true, nil
}

// insertTx records a deposit event within tx, enforcing the
// (chain_id, transaction_hash, log_index) uniqueness invariant via a
// conflict-ignoring insert. It reports whether this call actually inserted
// a new row. processed is set true here rather than flipped by a later
// reconciliation pass: RecordDeposit only commits this row once the order
// update in the same transaction has also succeeded, so by the time it is
// visible to any other reader it has already been fully processed.
func (s *DepositEventStore) insertTx(ctx context.Context, tx pgx.Tx, e DepositEvent) (bool, error) {
	const q = `
		INSERT INTO deposit_events (chain_id, contract_address, order_id, payer, amount, transaction_hash, block_number, log_index, created_at, processed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), true)
		ON CONFLICT (chain_id, transaction_hash, log_index) DO NOTHING`
	tag, err := tx.Exec(ctx, q, e.ChainID, e.ContractAddress, e.OrderID, e.Payer, e.Amount, e.TransactionHash, e.BlockNumber, e.LogIndex)
	if err != nil {
		return false, fmt.Errorf("ledger: insert deposit event: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
