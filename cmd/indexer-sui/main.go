// Command indexer-sui watches every configured Sui vault package for
// DepositReceived Move events and records them in the ledger, one
// goroutine per network.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/longcipher/ledgerflow/internal/config"
	"github.com/longcipher/ledgerflow/internal/indexer"
	"github.com/longcipher/ledgerflow/internal/ledger"
	"github.com/longcipher/ledgerflow/x402"
	"github.com/longcipher/ledgerflow/x402/mechanisms/sui"
)

// suiChainIDs assigns each Sui network a synthetic numeric chain ID for the
// ledger's chain_id column, which predates Sui support and is typed
// bigint throughout. Sui has no native integer chain ID.
var suiChainIDs = map[x402.Network]int64{
	x402.NetworkSuiMainnet: 101,
	x402.NetworkSuiTestnet: 102,
	x402.NetworkSuiDevnet:  103,
}

// depositModule is the Move module within the vault package that emits
// DepositReceived.
const depositModule = "payment_vault"

func main() {
	cfg := config.Load()

	log.Printf("Starting LedgerFlow Sui indexer")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := ledger.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Printf("fatal: connect database: %v", err)
		os.Exit(1)
	}
	defer db.Close()

	events := ledger.NewDepositEventStore(db)
	orders := ledger.NewOrderStore(db, cfg.MaxPendingOrders)

	type chainSpec struct {
		network        x402.Network
		rpcURL         string
		vaultPackageID string
	}
	specs := []chainSpec{
		{x402.NetworkSuiMainnet, cfg.SuiMainnetRPCURL, cfg.SuiMainnetVaultPackageID},
		{x402.NetworkSuiTestnet, cfg.SuiTestnetRPCURL, cfg.SuiTestnetVaultPackageID},
		{x402.NetworkSuiDevnet, cfg.SuiDevnetRPCURL, cfg.SuiDevnetVaultPackageID},
	}

	var wg sync.WaitGroup
	started := 0
	for _, spec := range specs {
		if spec.rpcURL == "" || spec.vaultPackageID == "" {
			continue
		}

		client := sui.NewHTTPClient(spec.rpcURL)
		ix := indexer.NewSuiIndexer(indexer.SuiChainConfig{
			ChainID:       suiChainIDs[spec.network],
			ContractLabel: spec.vaultPackageID,
			EventType:     fmt.Sprintf("%s::%s::DepositReceived", spec.vaultPackageID, depositModule),
		}, client, events, orders)

		started++
		wg.Add(1)
		go func(network x402.Network) {
			defer wg.Done()
			if err := ix.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("indexer: %s stopped: %v", network, err)
			}
		}(spec.network)
	}

	if started == 0 {
		log.Printf("fatal: no Sui networks configured (need both an rpc url and a vault package id)")
		os.Exit(1)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down Sui indexer...")
	cancel()
	wg.Wait()
	log.Println("Sui indexer stopped")
}
