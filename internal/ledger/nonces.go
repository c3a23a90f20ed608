package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/longcipher/ledgerflow/x402"
)

// NonceStore is a durable, HA-safe x402.NonceStore backed by a unique
// constraint on (network, nonce): reservation is an
// INSERT ... ON CONFLICT DO NOTHING, so concurrent facilitator instances
// racing on the same nonce still see exactly one winner.
type NonceStore struct {
	db  *DB
	ctx context.Context
}

// NewNonceStore builds a durable nonce store. ctx is the context Reserve
// runs its query under, since x402.NonceStore.Reserve takes none; Sweep
// uses the context passed to it.
func NewNonceStore(ctx context.Context, db *DB) *NonceStore {
	return &NonceStore{db: db, ctx: ctx}
}

// Reserve implements x402.NonceStore.
func (s *NonceStore) Reserve(network x402.Network, nonce x402.HexEncodedNonce, expiresAt time.Time) (bool, error) {
	const q = `
		INSERT INTO used_nonces (network, nonce, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (network, nonce) DO NOTHING`
	tag, err := s.db.ExecResult(s.ctx, q, network, nonce, expiresAt)
	if err != nil {
		return false, fmt.Errorf("ledger: reserve nonce: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Sweep deletes expired nonce rows; callers run this periodically to bound
// table growth.
func (s *NonceStore) Sweep(ctx context.Context) error {
	return s.db.Exec(ctx, `DELETE FROM used_nonces WHERE expires_at < now()`)
}
