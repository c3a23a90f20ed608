package indexer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/longcipher/ledgerflow/x402/mechanisms/sui"
)

func TestDecodeDepositEventMapsFields(t *testing.T) {
	e := sui.MoveDepositEvent{
		TxDigest:   "abc123",
		EventSeq:   "42",
		Checkpoint: 9000,
		OrderID:    "orderABC",
		Payer:      "0x" + "11",
		Amount:     "500000",
	}

	event := decodeDepositEvent(e, 101, "0xvault")
	assert.Equal(t, int64(101), event.ChainID)
	assert.Equal(t, "0xvault", event.ContractAddress)
	assert.Equal(t, "orderABC", event.OrderID)
	assert.Equal(t, "0x11", event.Payer)
	assert.Equal(t, "500000", event.Amount)
	assert.Equal(t, "abc123", event.TransactionHash)
	assert.Equal(t, int64(9000), event.BlockNumber)
	assert.Equal(t, int64(42), event.LogIndex)
}

func TestDecodeDepositEventParsesNonNumericEventSeqAsZero(t *testing.T) {
	e := sui.MoveDepositEvent{TxDigest: "x", EventSeq: "not-a-number", Checkpoint: 1, OrderID: "o", Payer: "p", Amount: "1"}
	event := decodeDepositEvent(e, 101, "0xvault")
	assert.Equal(t, int64(0), event.LogIndex)
}
