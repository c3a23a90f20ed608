package ledger

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/jackc/pgx/v5"
)

// ErrTooManyPendingOrders is returned by CreateOrder when an account is
// already at its pending-order quota.
var ErrTooManyPendingOrders = errors.New("ledger: too many pending orders")

// GenerateOrderID computes keccak256(brokerID ‖ accountID_be ‖ orderNum_be),
// hex-encoded without a "0x" prefix, always 64 characters. This exact byte
// layout is what on-chain vault deposits and off-chain order rows must
// agree on for the indexer to match a DepositReceived log back to its
// order.
func GenerateOrderID(brokerID string, accountID, orderNum int64) string {
	var accountBuf, orderBuf [8]byte
	binary.BigEndian.PutUint64(accountBuf[:], uint64(accountID))
	binary.BigEndian.PutUint64(orderBuf[:], uint64(orderNum))

	data := make([]byte, 0, len(brokerID)+16)
	data = append(data, []byte(brokerID)...)
	data = append(data, accountBuf[:]...)
	data = append(data, orderBuf[:]...)

	sum := crypto.Keccak256(data)
	return hex.EncodeToString(sum)
}

// OrderStore persists Order rows.
type OrderStore struct {
	db               *DB
	maxPendingOrders int
}

// NewOrderStore constructs an OrderStore; maxPendingOrders bounds how many
// pending orders one account may hold at once.
func NewOrderStore(db *DB, maxPendingOrders int) *OrderStore {
	return &OrderStore{db: db, maxPendingOrders: maxPendingOrders}
}

// CreateOrder allocates a fresh order ID and inserts a pending order, after
// checking the account's pending-order quota.
func (s *OrderStore) CreateOrder(ctx context.Context, accountID int64, brokerID, amount, tokenAddress string, chainID int64) (*Order, error) {
	if brokerID == "" {
		brokerID = "ledgerflow"
	}

	pending, err := s.pendingOrdersCount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if pending >= s.maxPendingOrders {
		return nil, ErrTooManyPendingOrders
	}

	orderNum, err := s.nextOrderIDNum(ctx)
	if err != nil {
		return nil, err
	}
	orderID := GenerateOrderID(brokerID, accountID, orderNum)

	const q = `
		INSERT INTO orders (order_id, account_id, broker_id, amount, token_address, chain_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())`
	if err := s.db.Exec(ctx, q, orderID, accountID, brokerID, amount, tokenAddress, chainID, OrderPending); err != nil {
		return nil, fmt.Errorf("ledger: insert order: %w", err)
	}

	return s.GetOrder(ctx, orderID)
}

func (s *OrderStore) pendingOrdersCount(ctx context.Context, accountID int64) (int, error) {
	var count int
	row := s.db.QueryRow(ctx, `SELECT count(*) FROM orders WHERE account_id = $1 AND status = $2`, accountID, OrderPending)
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("ledger: count pending orders: %w", err)
	}
	return count, nil
}

// nextOrderIDNum allocates a monotonic per-account-independent sequence
// number from a dedicated Postgres sequence, mirroring the original
// service's atomic counter.
func (s *OrderStore) nextOrderIDNum(ctx context.Context) (int64, error) {
	var n int64
	row := s.db.QueryRow(ctx, `SELECT nextval('order_id_num_seq')`)
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("ledger: allocate order id num: %w", err)
	}
	return n, nil
}

// GetOrder fetches one order by ID.
func (s *OrderStore) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	const q = `
		SELECT order_id, account_id, broker_id, amount, token_address, chain_id, status, created_at, updated_at, transaction_hash, notified
		FROM orders WHERE order_id = $1`
	row := s.db.QueryRow(ctx, q, orderID)

	var o Order
	if err := row.Scan(&o.OrderID, &o.AccountID, &o.BrokerID, &o.Amount, &o.TokenAddress, &o.ChainID, &o.Status, &o.CreatedAt, &o.UpdatedAt, &o.TransactionHash, &o.Notified); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("ledger: order %s: %w", orderID, err)
		}
		return nil, fmt.Errorf("ledger: get order %s: %w", orderID, err)
	}
	return &o, nil
}

// updateOrderWithDepositDetailsTx moves an order from pending to deposited
// once its on-chain deposit has been observed, setting amount to the
// actually-observed deposit amount rather than the order's creation-time
// amount. It runs inside tx so DepositEventStore.RecordDeposit can commit it
// together with the deposit_events insert. It reports whether a pending
// order actually matched; zero rows means the deposit arrived before its
// order row existed, which the caller must treat as an error rather than a
// silent no-op.
func (s *OrderStore) updateOrderWithDepositDetailsTx(ctx context.Context, tx pgx.Tx, orderID, txHash, amount string, chainID int64) (bool, error) {
	const q = `
		UPDATE orders SET status = $1, transaction_hash = $2, chain_id = $3, amount = $4, updated_at = now()
		WHERE order_id = $5 AND status = $6`
	tag, err := tx.Exec(ctx, q, OrderDeposited, txHash, chainID, amount, orderID, OrderPending)
	if err != nil {
		return false, fmt.Errorf("ledger: update order %s with deposit details: %w", orderID, err)
	}
	return tag.RowsAffected() == 1, nil
}

// UpdateOrderStatus sets an order's status, optionally within an existing
// transaction (tx may be nil to run outside one).
func (s *OrderStore) UpdateOrderStatus(ctx context.Context, tx pgx.Tx, orderID string, status OrderStatus) error {
	const q = `UPDATE orders SET status = $1, updated_at = now() WHERE order_id = $2`
	if tx != nil {
		_, err := tx.Exec(ctx, q, status, orderID)
		return err
	}
	return s.db.Exec(ctx, q, status, orderID)
}

// MarkNotified flips the notified flag once a completed order's owner has
// been told about it.
func (s *OrderStore) MarkNotified(ctx context.Context, orderID string) error {
	return s.db.Exec(ctx, `UPDATE orders SET notified = true WHERE order_id = $1`, orderID)
}

// ListPendingOrders returns every order currently awaiting deposit.
func (s *OrderStore) ListPendingOrders(ctx context.Context) ([]Order, error) {
	return s.listByStatus(ctx, OrderPending)
}

// GetDepositedOrders returns every order whose deposit has landed but has
// not yet been credited to the user's balance.
func (s *OrderStore) GetDepositedOrders(ctx context.Context) ([]Order, error) {
	return s.listByStatus(ctx, OrderDeposited)
}

// GetCompletedUnnotifiedOrders returns completed orders whose owner has not
// yet been notified.
func (s *OrderStore) GetCompletedUnnotifiedOrders(ctx context.Context) ([]Order, error) {
	const q = `
		SELECT order_id, account_id, broker_id, amount, token_address, chain_id, status, created_at, updated_at, transaction_hash, notified
		FROM orders WHERE status = $1 AND notified = false`
	rows, err := s.db.Query(ctx, q, OrderCompleted)
	if err != nil {
		return nil, fmt.Errorf("ledger: list completed unnotified orders: %w", err)
	}
	defer rows.Close()
	return scanOrders(rows)
}

func (s *OrderStore) listByStatus(ctx context.Context, status OrderStatus) ([]Order, error) {
	const q = `
		SELECT order_id, account_id, broker_id, amount, token_address, chain_id, status, created_at, updated_at, transaction_hash, notified
		FROM orders WHERE status = $1`
	rows, err := s.db.Query(ctx, q, status)
	if err != nil {
		return nil, fmt.Errorf("ledger: list orders with status %s: %w", status, err)
	}
	defer rows.Close()
	return scanOrders(rows)
}

func scanOrders(rows pgx.Rows) ([]Order, error) {
	var orders []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.OrderID, &o.AccountID, &o.BrokerID, &o.Amount, &o.TokenAddress, &o.ChainID, &o.Status, &o.CreatedAt, &o.UpdatedAt, &o.TransactionHash, &o.Notified); err != nil {
			return nil, fmt.Errorf("ledger: scan order: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}
