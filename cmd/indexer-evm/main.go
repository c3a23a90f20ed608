// Command indexer-evm watches every configured EVM vault contract for
// DepositReceived events and records them in the ledger, one goroutine per
// chain.
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/ethereum/go-ethereum/common"

	"github.com/longcipher/ledgerflow/internal/config"
	"github.com/longcipher/ledgerflow/internal/indexer"
	"github.com/longcipher/ledgerflow/internal/ledger"
	"github.com/longcipher/ledgerflow/x402"
)

var evmChainIDs = map[x402.Network]int64{
	x402.NetworkBase:          8453,
	x402.NetworkBaseSepolia:   84532,
	x402.NetworkAvalanche:     43114,
	x402.NetworkAvalancheFuji: 43113,
	x402.NetworkXDCMainnet:    50,
}

func main() {
	cfg := config.Load()

	log.Printf("Starting LedgerFlow EVM indexer")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := ledger.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Printf("fatal: connect database: %v", err)
		os.Exit(1)
	}
	defer db.Close()

	cursors := ledger.NewCursorStore(db)
	events := ledger.NewDepositEventStore(db)
	orders := ledger.NewOrderStore(db, cfg.MaxPendingOrders)

	type chainSpec struct {
		network      x402.Network
		rpcURL       string
		vaultAddress string
		startBlock   int64
	}
	specs := []chainSpec{
		{x402.NetworkBase, cfg.RPCURLBase, cfg.VaultAddressBase, cfg.StartBlockBase},
		{x402.NetworkBaseSepolia, cfg.RPCURLBaseSepolia, cfg.VaultAddressBaseSepolia, cfg.StartBlockBaseSepolia},
		{x402.NetworkAvalanche, cfg.RPCURLAvalanche, cfg.VaultAddressAvalanche, cfg.StartBlockAvalanche},
		{x402.NetworkAvalancheFuji, cfg.RPCURLAvalancheFuji, cfg.VaultAddressAvalancheFuji, cfg.StartBlockAvalancheFuji},
		{x402.NetworkXDCMainnet, cfg.RPCURLXDC, cfg.VaultAddressXDC, cfg.StartBlockXDC},
	}

	var wg sync.WaitGroup
	started := 0
	for _, spec := range specs {
		if spec.rpcURL == "" || spec.vaultAddress == "" {
			continue
		}

		ix, err := indexer.NewEvmIndexer(ctx, indexer.EvmChainConfig{
			ChainID:         evmChainIDs[spec.network],
			RPCURL:          spec.rpcURL,
			ContractAddress: common.HexToAddress(spec.vaultAddress),
			StartBlock:      spec.startBlock,
		}, cursors, events, orders)
		if err != nil {
			log.Printf("fatal: build indexer for %s: %v", spec.network, err)
			os.Exit(1)
		}

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
		log.Printf("fatal: no EVM chains configured (need both an rpc url and a vault address)")
		os.Exit(1)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down EVM indexer...")
	cancel()
	wg.Wait()
	log.Println("EVM indexer stopped")
}
