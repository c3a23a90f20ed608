// Package indexer watches on-chain deposit events and feeds them into the
// ledger, one goroutine per configured chain.
package indexer

import (
	"context"
	"fmt"
	"log"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/longcipher/ledgerflow/internal/ledger"
)

// evmBatchSize is the maximum number of blocks scanned per eth_getLogs
// call, bounding both RPC response size and how much a single failed batch
// has to be retried.
const evmBatchSize = 100

// maxConsecutiveErrors is how many back-to-back poll failures an EVM
// indexer goroutine tolerates before giving up on that chain entirely.
const maxConsecutiveErrors = 10

// pollInterval is how often the indexer checks for new blocks once caught
// up.
const pollInterval = 5 * time.Second

// heartbeatEvery logs a "how far behind" status line every N poll
// iterations (5s * 12 ≈ 60s).
const heartbeatEvery = 12

// depositReceivedSignature is keccak256("DepositReceived(address,bytes32,uint256)").
var depositReceivedSignature = crypto.Keccak256Hash([]byte("DepositReceived(address,bytes32,uint256)"))

// EvmChainConfig identifies one chain's vault contract to watch.
type EvmChainConfig struct {
	ChainID         int64
	RPCURL          string
	ContractAddress common.Address
	StartBlock      int64
}

// EvmIndexer scans a single EVM chain's vault contract for DepositReceived
// logs and records them in the ledger.
type EvmIndexer struct {
	config  EvmChainConfig
	client  *ethclient.Client
	cursors *ledger.CursorStore
	events  *ledger.DepositEventStore
	orders  *ledger.OrderStore
}

// NewEvmIndexer dials the configured RPC endpoint.
func NewEvmIndexer(ctx context.Context, config EvmChainConfig, cursors *ledger.CursorStore, events *ledger.DepositEventStore, orders *ledger.OrderStore) (*EvmIndexer, error) {
	client, err := ethclient.DialContext(ctx, config.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("indexer: dial %s: %w", config.RPCURL, err)
	}
	return &EvmIndexer{config: config, client: client, cursors: cursors, events: events, orders: orders}, nil
}

// Run polls for new blocks until ctx is cancelled or the chain exceeds
// maxConsecutiveErrors back-to-back RPC failures.
func (ix *EvmIndexer) Run(ctx context.Context) error {
	contractHex := ix.config.ContractAddress.Hex()
	lastBlock, err := ix.cursors.Get(ctx, ix.config.ChainID, contractHex, ix.config.StartBlock)
	if err != nil {
		return fmt.Errorf("indexer: load cursor for chain %d: %w", ix.config.ChainID, err)
	}

	consecutiveErrors := 0
	iteration := 0

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		currentBlock, err := ix.client.BlockNumber(ctx)
		if err != nil {
			consecutiveErrors++
			log.Printf("indexer: chain %d: fetch current block failed (%d/%d): %v", ix.config.ChainID, consecutiveErrors, maxConsecutiveErrors, err)
			if consecutiveErrors >= maxConsecutiveErrors {
				return fmt.Errorf("indexer: chain %d: aborting after %d consecutive errors: %w", ix.config.ChainID, consecutiveErrors, err)
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(pollInterval):
			}
			continue
		}
		consecutiveErrors = 0

		if int64(currentBlock) > lastBlock {
			for from := lastBlock + 1; from <= int64(currentBlock); from += evmBatchSize {
				to := from + evmBatchSize - 1
				if to > int64(currentBlock) {
					to = int64(currentBlock)
				}

				if err := ix.processBlockRange(ctx, from, to); err != nil {
					log.Printf("indexer: chain %d: batch [%d,%d] failed: %v", ix.config.ChainID, from, to, err)
					break
				}

				if err := ix.cursors.Advance(ctx, ix.config.ChainID, contractHex, to); err != nil {
					log.Printf("indexer: chain %d: advance cursor to %d failed: %v", ix.config.ChainID, to, err)
					break
				}
				lastBlock = to
			}
		}

		iteration++
		if iteration%heartbeatEvery == 0 {
			log.Printf("indexer: chain %d: heartbeat, scanned up to block %d (%d behind head)", ix.config.ChainID, lastBlock, int64(currentBlock)-lastBlock)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

func (ix *EvmIndexer) processBlockRange(ctx context.Context, from, to int64) error {
	query := ethereum.FilterQuery{
		FromBlock: big.NewInt(from),
		ToBlock:   big.NewInt(to),
		Addresses: []common.Address{ix.config.ContractAddress},
		Topics:    [][]common.Hash{{depositReceivedSignature}},
	}

	logs, err := ix.client.FilterLogs(ctx, query)
	if err != nil {
		return fmt.Errorf("filter logs: %w", err)
	}

	var firstErr error
	for _, l := range logs {
		if err := ix.processLog(ctx, l); err != nil {
			log.Printf("indexer: chain %d: log tx=%s index=%d not recorded, will retry: %v", ix.config.ChainID, l.TxHash.Hex(), l.Index, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	// A non-nil return here keeps Run from advancing the cursor past this
	// range, so an unrecorded log (e.g. its order row does not exist yet) is
	// retried on the next pass instead of being skipped forever.
	return firstErr
}

// decodeDepositLog parses a raw DepositReceived log into a DepositEvent.
// It is pure and side-effect free so the topic/data layout can be tested
// without a chain connection.
func decodeDepositLog(l types.Log, contractAddress common.Address, chainID int64) (ledger.DepositEvent, error) {
	if len(l.Topics) < 3 {
		return ledger.DepositEvent{}, fmt.Errorf("expected 3 topics, got %d", len(l.Topics))
	}
	if len(l.Data) < 32 {
		return ledger.DepositEvent{}, fmt.Errorf("expected >=32 bytes of data, got %d", len(l.Data))
	}

	payer := common.BytesToAddress(l.Topics[1].Bytes())
	orderID := l.Topics[2].Hex()[2:]
	amount := new(big.Int).SetBytes(l.Data[0:32])

	return ledger.DepositEvent{
		ChainID:         chainID,
		ContractAddress: contractAddress.Hex(),
		OrderID:         orderID,
		Payer:           payer.Hex(),
		Amount:          amount.String(),
		TransactionHash: l.TxHash.Hex(),
		BlockNumber:     int64(l.BlockNumber),
		LogIndex:        int64(l.Index),
	}, nil
}

func (ix *EvmIndexer) processLog(ctx context.Context, l types.Log) error {
	event, err := decodeDepositLog(l, ix.config.ContractAddress, ix.config.ChainID)
	if err != nil {
		return err
	}

	if _, err := ix.events.RecordDeposit(ctx, ix.orders, event); err != nil {
		return fmt.Errorf("record deposit for order %s: %w", event.OrderID, err)
	}
	return nil
}
