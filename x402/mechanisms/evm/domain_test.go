package evm

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDomain() TokenDomain {
	return TokenDomain{
		Name:              "USD Coin",
		Version:           "2",
		ChainID:           big.NewInt(8453),
		VerifyingContract: common.HexToAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"),
	}
}

func TestHashEIP3009AuthorizationIsDeterministic(t *testing.T) {
	domain := testDomain()
	from := common.HexToAddress("0x1111111111111111111111111111111111111111")
	to := common.HexToAddress("0x2222222222222222222222222222222222222222")
	var nonce [32]byte
	nonce[0] = 0xaa

	h1, err := HashEIP3009Authorization(domain, from, to, big.NewInt(1000), 0, 9999999999, nonce)
	require.NoError(t, err)
	h2, err := HashEIP3009Authorization(domain, from, to, big.NewInt(1000), 0, 9999999999, nonce)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
}

func TestHashEIP3009AuthorizationDiffersByValue(t *testing.T) {
	domain := testDomain()
	from := common.HexToAddress("0x1111111111111111111111111111111111111111")
	to := common.HexToAddress("0x2222222222222222222222222222222222222222")
	var nonce [32]byte

	h1, err := HashEIP3009Authorization(domain, from, to, big.NewInt(1000), 0, 9999999999, nonce)
	require.NoError(t, err)
	h2, err := HashEIP3009Authorization(domain, from, to, big.NewInt(2000), 0, 9999999999, nonce)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)
}

func TestHashEIP3009AuthorizationDiffersByChainID(t *testing.T) {
	domainA := testDomain()
	domainB := testDomain()
	domainB.ChainID = big.NewInt(84532)

	from := common.HexToAddress("0x1111111111111111111111111111111111111111")
	to := common.HexToAddress("0x2222222222222222222222222222222222222222")
	var nonce [32]byte

	h1, err := HashEIP3009Authorization(domainA, from, to, big.NewInt(1000), 0, 9999999999, nonce)
	require.NoError(t, err)
	h2, err := HashEIP3009Authorization(domainB, from, to, big.NewInt(1000), 0, 9999999999, nonce)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2, "chain id must be domain-separated")
}

func TestHashEIP3009AuthorizationDiffersByNonce(t *testing.T) {
	domain := testDomain()
	from := common.HexToAddress("0x1111111111111111111111111111111111111111")
	to := common.HexToAddress("0x2222222222222222222222222222222222222222")
	var nonceA, nonceB [32]byte
	nonceB[0] = 0x01

	h1, err := HashEIP3009Authorization(domain, from, to, big.NewInt(1000), 0, 9999999999, nonceA)
	require.NoError(t, err)
	h2, err := HashEIP3009Authorization(domain, from, to, big.NewInt(1000), 0, 9999999999, nonceB)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)
}
