package indexer

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/longcipher/ledgerflow/internal/ledger"
	"github.com/longcipher/ledgerflow/x402/mechanisms/sui"
)

// SuiChainConfig identifies which Move event type to watch for deposits.
type SuiChainConfig struct {
	ChainID       int64
	ContractLabel string
	EventType     string
}

// SuiIndexer watches a Sui vault package's deposit events and records them
// in the ledger. It cursors by (txDigest, eventSeq) instead of a block
// number, the Move-chain analogue of the EVM indexer's block cursor.
type SuiIndexer struct {
	chainID         int64
	contractAddress string
	client          sui.CheckpointClient
	events          *ledger.DepositEventStore
	orders          *ledger.OrderStore
	eventType       string
}

// NewSuiIndexer constructs a Sui deposit-event indexer.
func NewSuiIndexer(config SuiChainConfig, client sui.CheckpointClient, events *ledger.DepositEventStore, orders *ledger.OrderStore) *SuiIndexer {
	return &SuiIndexer{
		chainID:         config.ChainID,
		contractAddress: config.ContractLabel,
		client:          client,
		events:          events,
		orders:          orders,
		eventType:       config.EventType,
	}
}

// Run polls for new deposit events until ctx is cancelled or the chain
// exceeds maxConsecutiveErrors back-to-back RPC failures.
func (ix *SuiIndexer) Run(ctx context.Context) error {
	var cursor *sui.EventID
	consecutiveErrors := 0
	iteration := 0

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		events, next, err := ix.client.QueryDepositEvents(ctx, ix.eventType, cursor)
		if err != nil {
			consecutiveErrors++
			log.Printf("indexer: sui chain %d: query events failed (%d/%d): %v", ix.chainID, consecutiveErrors, maxConsecutiveErrors, err)
			if consecutiveErrors >= maxConsecutiveErrors {
				return fmt.Errorf("indexer: sui chain %d: aborting after %d consecutive errors: %w", ix.chainID, consecutiveErrors, err)
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(pollInterval):
			}
			continue
		}
		consecutiveErrors = 0

		var batchErr error
		for _, e := range events {
			if err := ix.processEvent(ctx, e); err != nil {
				log.Printf("indexer: sui chain %d: event tx=%s seq=%s not recorded, will retry: %v", ix.chainID, e.TxDigest, e.EventSeq, err)
				batchErr = err
			}
		}
		// Only advance the page cursor once every event in this page has been
		// recorded; otherwise the whole page is retried next poll rather than
		// silently skipping past an event whose order row was not ready yet.
		if batchErr == nil && next != nil {
			cursor = next
		}

		iteration++
		if iteration%heartbeatEvery == 0 {
			checkpoint, err := ix.client.LatestCheckpoint(ctx)
			if err == nil {
				log.Printf("indexer: sui chain %d: heartbeat, latest checkpoint %d", ix.chainID, checkpoint)
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

// decodeDepositEvent converts a Move deposit event into a DepositEvent. It
// is pure so the event-seq parsing and field mapping can be tested without
// a Sui RPC connection.
func decodeDepositEvent(e sui.MoveDepositEvent, chainID int64, contractAddress string) ledger.DepositEvent {
	var eventSeq int64
	fmt.Sscanf(e.EventSeq, "%d", &eventSeq)

	return ledger.DepositEvent{
		ChainID:         chainID,
		ContractAddress: contractAddress,
		OrderID:         e.OrderID,
		Payer:           e.Payer,
		Amount:          e.Amount,
		TransactionHash: e.TxDigest,
		BlockNumber:     int64(e.Checkpoint),
		LogIndex:        eventSeq,
	}
}

func (ix *SuiIndexer) processEvent(ctx context.Context, e sui.MoveDepositEvent) error {
	event := decodeDepositEvent(e, ix.chainID, ix.contractAddress)

	if _, err := ix.events.RecordDeposit(ctx, ix.orders, event); err != nil {
		return fmt.Errorf("record deposit for order %s: %w", e.OrderID, err)
	}
	return nil
}
