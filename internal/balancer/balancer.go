// Package balancer periodically credits deposited orders to account
// balances and notifies their owners once completed.
package balancer

import (
	"context"
	"log"
	"time"

	"github.com/longcipher/ledgerflow/internal/ledger"
)

// DefaultInterval is how often the balancer sweeps for deposited orders to
// credit, matching the original service's 5s tick.
const DefaultInterval = 5 * time.Second

// orderStore is the slice of ledger.OrderStore the balancer needs.
type orderStore interface {
	GetDepositedOrders(ctx context.Context) ([]ledger.Order, error)
	GetCompletedUnnotifiedOrders(ctx context.Context) ([]ledger.Order, error)
	MarkNotified(ctx context.Context, orderID string) error
}

// balanceStore is the slice of ledger.BalanceStore the balancer needs.
type balanceStore interface {
	CreditOrder(ctx context.Context, order ledger.Order) error
}

// Balancer credits deposited orders to their account's balance and
// notifies owners of newly completed orders.
type Balancer struct {
	orders   orderStore
	balances balanceStore
	notifier Notifier
	interval time.Duration
}

// New constructs a Balancer. interval <= 0 uses DefaultInterval.
func New(orders orderStore, balances balanceStore, notifier Notifier, interval time.Duration) *Balancer {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Balancer{orders: orders, balances: balances, notifier: notifier, interval: interval}
}

// Run ticks until ctx is cancelled, crediting deposited orders and
// notifying completed ones on every tick. A single order's failure is
// logged and skipped; it is retried on the next tick since its status is
// unchanged until CreditOrder actually commits.
func (b *Balancer) Run(ctx context.Context) error {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			b.processDeposited(ctx)
			b.notifyCompleted(ctx)
		}
	}
}

func (b *Balancer) processDeposited(ctx context.Context) {
	orders, err := b.orders.GetDepositedOrders(ctx)
	if err != nil {
		log.Printf("balancer: list deposited orders: %v", err)
		return
	}
	if len(orders) == 0 {
		return
	}

	log.Printf("balancer: processing %d deposited orders", len(orders))
	processed := 0
	for _, order := range orders {
		if err := b.balances.CreditOrder(ctx, order); err != nil {
			log.Printf("balancer: credit order %s failed: %v", order.OrderID, err)
			continue
		}
		processed++
		log.Printf("balancer: credited order %s amount=%s account=%d", order.OrderID, order.Amount, order.AccountID)
	}
	log.Printf("balancer: batch complete: %d/%d orders credited", processed, len(orders))
}

func (b *Balancer) notifyCompleted(ctx context.Context) {
	if b.notifier == nil {
		return
	}

	orders, err := b.orders.GetCompletedUnnotifiedOrders(ctx)
	if err != nil {
		log.Printf("balancer: list completed unnotified orders: %v", err)
		return
	}

	for _, order := range orders {
		if err := b.notifier.NotifyOrderCompleted(ctx, order); err != nil {
			log.Printf("balancer: notify order %s failed: %v", order.OrderID, err)
			continue
		}
		if err := b.orders.MarkNotified(ctx, order.OrderID); err != nil {
			log.Printf("balancer: mark order %s notified failed: %v", order.OrderID, err)
		}
	}
}
