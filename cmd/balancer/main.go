// Command balancer periodically credits deposited orders to account
// balances and notifies owners once an order completes.
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/longcipher/ledgerflow/internal/balancer"
	"github.com/longcipher/ledgerflow/internal/config"
	"github.com/longcipher/ledgerflow/internal/ledger"
)

func main() {
	cfg := config.Load()

	log.Printf("Starting LedgerFlow balancer")
	log.Printf("Interval: %s", cfg.BalancerInterval)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := ledger.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Printf("fatal: connect database: %v", err)
		os.Exit(1)
	}
	defer db.Close()

	orders := ledger.NewOrderStore(db, cfg.MaxPendingOrders)
	balances := ledger.NewBalanceStore(db)

	b := balancer.New(orders, balances, balancer.NewLogNotifier(), cfg.BalancerInterval)

	done := make(chan error, 1)
	go func() {
		done <- b.Run(ctx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Println("Shutting down balancer...")
		cancel()
		<-done
		log.Println("Balancer stopped")
	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("fatal: balancer stopped: %v", err)
			os.Exit(1)
		}
	}
}
