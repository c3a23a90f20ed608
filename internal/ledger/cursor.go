package ledger

import (
	"context"
	"fmt"
)

// CursorStore persists indexer scan progress, one row per
// (chainID, contractAddress) pair. Callers only advance the cursor after
// the corresponding batch is fully committed, so a crash mid-batch re-scans
// rather than skipping blocks.
type CursorStore struct {
	db *DB
}

// NewCursorStore constructs a CursorStore.
func NewCursorStore(db *DB) *CursorStore {
	return &CursorStore{db: db}
}

// Get returns the last fully-scanned block/checkpoint for a contract, or
// startBlock if no cursor row exists yet.
func (s *CursorStore) Get(ctx context.Context, chainID int64, contractAddress string, startBlock int64) (int64, error) {
	const q = `SELECT last_scanned_block FROM chain_states WHERE chain_id = $1 AND contract_address = $2`
	row := s.db.QueryRow(ctx, q, chainID, contractAddress)

	var last int64
	err := row.Scan(&last)
	if err == nil {
		return last, nil
	}
	return startBlock, nil
}

// Advance upserts the cursor to newBlock. It never moves the cursor
// backwards: a lower newBlock than what is stored is a no-op, preserving
// the monotonic-cursor invariant even if callers race.
func (s *CursorStore) Advance(ctx context.Context, chainID int64, contractAddress string, newBlock int64) error {
	const q = `
		INSERT INTO chain_states (chain_id, contract_address, last_scanned_block, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (chain_id, contract_address) DO UPDATE
		SET last_scanned_block = GREATEST(chain_states.last_scanned_block, excluded.last_scanned_block), updated_at = now()`
	if err := s.db.Exec(ctx, q, chainID, contractAddress, newBlock); err != nil {
		return fmt.Errorf("ledger: advance cursor: %w", err)
	}
	return nil
}
