package indexer

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleLog() types.Log {
	payer := common.HexToAddress("0x1111111111111111111111111111111111111111")
	var orderIDTopic common.Hash
	orderIDTopic[0] = 0xaa

	data := make([]byte, 32)
	amount := big.NewInt(1_000_000)
	amount.FillBytes(data)

	return types.Log{
		Topics: []common.Hash{
			depositReceivedSignature,
			common.BytesToHash(payer.Bytes()),
			orderIDTopic,
		},
		Data:        data,
		TxHash:      common.HexToHash("0xdeadbeef00000000000000000000000000000000000000000000000000000000"),
		BlockNumber: 12345,
		Index:       3,
	}
}

func TestDecodeDepositLogExtractsFields(t *testing.T) {
	l := sampleLog()
	contract := common.HexToAddress("0x2222222222222222222222222222222222222222")

	event, err := decodeDepositLog(l, contract, 8453)
	require.NoError(t, err)

	assert.Equal(t, int64(8453), event.ChainID)
	assert.Equal(t, contract.Hex(), event.ContractAddress)
	assert.Equal(t, "1000000", event.Amount)
	assert.Equal(t, l.TxHash.Hex(), event.TransactionHash)
	assert.Equal(t, int64(12345), event.BlockNumber)
	assert.Equal(t, int64(3), event.LogIndex)
	assert.Equal(t, common.HexToAddress("0x1111111111111111111111111111111111111111").Hex(), event.Payer)
}

func TestDecodeDepositLogRejectsTooFewTopics(t *testing.T) {
	l := sampleLog()
	l.Topics = l.Topics[:2]
	_, err := decodeDepositLog(l, common.Address{}, 8453)
	assert.Error(t, err)
}

func TestDecodeDepositLogRejectsShortData(t *testing.T) {
	l := sampleLog()
	l.Data = l.Data[:10]
	_, err := decodeDepositLog(l, common.Address{}, 8453)
	assert.Error(t, err)
}

func TestDecodeDepositLogOrderIDIsTopicHexWithoutPrefix(t *testing.T) {
	l := sampleLog()
	event, err := decodeDepositLog(l, common.Address{}, 8453)
	require.NoError(t, err)
	assert.Equal(t, l.Topics[2].Hex()[2:], event.OrderID)
}
