package balancer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/longcipher/ledgerflow/internal/ledger"
)

type fakeOrders struct {
	deposited           []ledger.Order
	completedUnnotified []ledger.Order
	notified            map[string]bool
}

func (f *fakeOrders) GetDepositedOrders(ctx context.Context) ([]ledger.Order, error) {
	return f.deposited, nil
}

func (f *fakeOrders) GetCompletedUnnotifiedOrders(ctx context.Context) ([]ledger.Order, error) {
	return f.completedUnnotified, nil
}

func (f *fakeOrders) MarkNotified(ctx context.Context, orderID string) error {
	if f.notified == nil {
		f.notified = map[string]bool{}
	}
	f.notified[orderID] = true
	return nil
}

type fakeBalances struct {
	credited []string
	failFor  map[string]bool
}

func (f *fakeBalances) CreditOrder(ctx context.Context, order ledger.Order) error {
	if f.failFor[order.OrderID] {
		return errors.New("credit failed")
	}
	f.credited = append(f.credited, order.OrderID)
	return nil
}

type fakeNotifier struct {
	notified []string
}

func (f *fakeNotifier) NotifyOrderCompleted(ctx context.Context, order ledger.Order) error {
	f.notified = append(f.notified, order.OrderID)
	return nil
}

func TestBalancerCreditsDepositedOrders(t *testing.T) {
	orders := &fakeOrders{deposited: []ledger.Order{
		{OrderID: "a", AccountID: 1, Amount: "100"},
		{OrderID: "b", AccountID: 2, Amount: "200"},
	}}
	balances := &fakeBalances{}
	b := New(orders, balances, nil, time.Minute)

	b.processDeposited(context.Background())

	if len(balances.credited) != 2 {
		t.Fatalf("expected 2 orders credited, got %d", len(balances.credited))
	}
}

func TestBalancerSkipsFailedCreditsAndContinues(t *testing.T) {
	orders := &fakeOrders{deposited: []ledger.Order{
		{OrderID: "a", AccountID: 1, Amount: "100"},
		{OrderID: "b", AccountID: 2, Amount: "200"},
	}}
	balances := &fakeBalances{failFor: map[string]bool{"a": true}}
	b := New(orders, balances, nil, time.Minute)

	b.processDeposited(context.Background())

	if len(balances.credited) != 1 || balances.credited[0] != "b" {
		t.Fatalf("expected only order b credited, got %v", balances.credited)
	}
}

func TestBalancerNotifiesCompletedOrders(t *testing.T) {
	orders := &fakeOrders{completedUnnotified: []ledger.Order{
		{OrderID: "c", AccountID: 3, Amount: "50"},
	}}
	notifier := &fakeNotifier{}
	b := New(orders, &fakeBalances{}, notifier, time.Minute)

	b.notifyCompleted(context.Background())

	if len(notifier.notified) != 1 || notifier.notified[0] != "c" {
		t.Fatalf("expected order c notified, got %v", notifier.notified)
	}
	if !orders.notified["c"] {
		t.Fatal("expected order c marked notified")
	}
}

func TestBalancerNilNotifierSkipsNotification(t *testing.T) {
	orders := &fakeOrders{completedUnnotified: []ledger.Order{
		{OrderID: "c", AccountID: 3, Amount: "50"},
	}}
	b := New(orders, &fakeBalances{}, nil, time.Minute)

	b.notifyCompleted(context.Background())

	if orders.notified["c"] {
		t.Fatal("expected no notification attempted with nil notifier")
	}
}
