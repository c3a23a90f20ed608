package ledger

import "time"

// OrderStatus is the state machine position of an Order. It only ever
// advances pending -> deposited -> completed, or diverts to failed or
// cancelled.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderDeposited OrderStatus = "deposited"
	OrderCompleted OrderStatus = "completed"
	OrderCancelled OrderStatus = "cancelled"
	OrderFailed    OrderStatus = "failed"
)

// Order is a user's pending or settled payment intent against the ledger.
type Order struct {
	OrderID         string
	AccountID       int64
	BrokerID        string
	Amount          string
	TokenAddress    string
	ChainID         int64
	Status          OrderStatus
	CreatedAt       time.Time
	UpdatedAt       time.Time
	TransactionHash *string
	Notified        bool
}

// DepositEvent is one on-chain DepositReceived log, ingested at most once
// per (ChainID, TransactionHash, LogIndex).
type DepositEvent struct {
	ID              int64
	ChainID         int64
	ContractAddress string
	OrderID         string
	Payer           string
	Amount          string
	TransactionHash string
	BlockNumber     int64
	LogIndex        int64
	CreatedAt       time.Time
	Processed       bool
}

// ChainCursor is the last block (EVM) or checkpoint (Sui) an indexer has
// fully scanned for one (chainID, contractAddress) pair.
type ChainCursor struct {
	ChainID         int64
	ContractAddress string
	LastScannedBlock int64
	UpdatedAt       time.Time
}

// Balance is a user's completed-order credit total.
type Balance struct {
	AccountID int64
	Balance   string
}
