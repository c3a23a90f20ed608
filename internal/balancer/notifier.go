package balancer

import (
	"context"
	"log"

	"github.com/longcipher/ledgerflow/internal/ledger"
)

// Notifier tells an account's owner that an order has completed. The
// original service does this over Telegram; this module only owns the
// credit-then-mark-notified state machine, so it depends on the interface
// rather than a bot client.
type Notifier interface {
	NotifyOrderCompleted(ctx context.Context, order ledger.Order) error
}

// LogNotifier is a Notifier that logs instead of delivering anywhere,
// standing in until a real delivery channel is wired up.
type LogNotifier struct{}

// NewLogNotifier constructs a LogNotifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

// NotifyOrderCompleted implements Notifier.
func (LogNotifier) NotifyOrderCompleted(_ context.Context, order ledger.Order) error {
	log.Printf("balancer: order %s credited to account %d, amount %s", order.OrderID, order.AccountID, order.Amount)
	return nil
}
