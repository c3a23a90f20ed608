package evm

import (
	"context"
	"crypto/ecdsa"
	"encoding/hex"
	"encoding/json"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/longcipher/ledgerflow/x402"
)

// fakeSigner is a minimal Signer stub. GetBalance always reports a large
// balance so the "insufficient funds" branch never fires unless a test
// explicitly sets lowBalance.
type fakeSigner struct {
	address     common.Address
	chainID     *big.Int
	lowBalance  bool
	writeTxHash string
	writeErr    error
	lastMethod  string
	lastArgs    []interface{}
}

func (f *fakeSigner) Address() common.Address { return f.address }
func (f *fakeSigner) ChainID() *big.Int        { return f.chainID }

func (f *fakeSigner) ReadContract(ctx context.Context, contractAddress common.Address, abiJSON, method string, args ...interface{}) (interface{}, error) {
	return nil, nil
}

func (f *fakeSigner) WriteContract(ctx context.Context, contractAddress common.Address, abiJSON, method string, args ...interface{}) (string, error) {
	f.lastMethod = method
	f.lastArgs = args
	if f.writeErr != nil {
		return "", f.writeErr
	}
	return f.writeTxHash, nil
}

func (f *fakeSigner) WaitForTransactionReceipt(ctx context.Context, txHash string) (*TransactionReceipt, error) {
	return &TransactionReceipt{Status: 1, TxHash: txHash}, nil
}

func (f *fakeSigner) GetBalance(ctx context.Context, address, tokenAddress common.Address) (*big.Int, error) {
	if f.lowBalance {
		return big.NewInt(1), nil
	}
	return big.NewInt(1_000_000_000), nil
}

const testAssetAddress = "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"

type testFixture struct {
	adapter   *Adapter
	payerKey  *ecdsa.PrivateKey
	payerAddr common.Address
	vaultAddr common.Address
	payToAddr common.Address
	assetAddr common.Address
	signer    *fakeSigner
}

func newTestFixture(t *testing.T) *testFixture {
	t.Helper()
	payerKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	payerAddr := crypto.PubkeyToAddress(payerKey.PublicKey)
	payToAddr := common.HexToAddress("0x2222222222222222222222222222222222222222")
	assetAddr := common.HexToAddress(testAssetAddress)

	signer := &fakeSigner{address: common.HexToAddress("0x3333333333333333333333333333333333333333"), chainID: big.NewInt(8453)}

	nonces := x402.NewMemoryNonceStore()
	adapter, err := NewAdapter(nonces, Entry{
		Config: NetworkConfig{
			Network:      x402.NetworkBase,
			ChainID:      big.NewInt(8453),
			RPCURL:       "https://example.invalid",
			AssetName:    "USD Coin",
			AssetVersion: "2",
		},
		Signer: signer,
	})
	require.NoError(t, err)

	return &testFixture{
		adapter:   adapter,
		payerKey:  payerKey,
		payerAddr: payerAddr,
		payToAddr: payToAddr,
		assetAddr: assetAddr,
		signer:    signer,
	}
}

func (f *testFixture) buildSignedPayload(t *testing.T, value int64, validAfter, validBefore int64, nonceByte byte) x402.PaymentPayload {
	t.Helper()

	var nonceBytes [32]byte
	nonceBytes[0] = nonceByte
	nonce := x402.HexEncodedNonce("0x" + hex.EncodeToString(nonceBytes[:]))

	digest, err := HashEIP3009Authorization(
		TokenDomain{Name: "USD Coin", Version: "2", ChainID: big.NewInt(8453), VerifyingContract: f.assetAddr},
		f.payerAddr, f.payToAddr, big.NewInt(value), validAfter, validBefore, nonceBytes,
	)
	require.NoError(t, err)

	sig, err := crypto.Sign(digest[:], f.payerKey)
	require.NoError(t, err)
	sig[64] += 27

	payloadJSON, err := json.Marshal(x402.EvmPayload{
		Signature: "0x" + hex.EncodeToString(sig),
		Authorization: x402.EvmAuthorization{
			From:        x402.EvmAddress(f.payerAddr.Hex()),
			To:          x402.EvmAddress(f.payToAddr.Hex()),
			Value:       x402.MustTokenAmount(big.NewInt(value).String()),
			ValidAfter:  validAfter,
			ValidBefore: validBefore,
			Nonce:       nonce,
		},
	})
	require.NoError(t, err)

	return x402.PaymentPayload{
		X402Version: x402.CurrentX402Version,
		Scheme:      x402.SchemeExact,
		Network:     x402.NetworkBase,
		Payload:     payloadJSON,
	}
}

func (f *testFixture) requirements(maxAmount int64) x402.PaymentRequirements {
	return x402.PaymentRequirements{
		Scheme:            x402.SchemeExact,
		Network:           x402.NetworkBase,
		MaxAmountRequired: x402.MustTokenAmount(big.NewInt(maxAmount).String()),
		PayTo:             x402.PayToAddress(f.payToAddr.Hex()),
		Asset:             x402.AssetId(f.assetAddr.Hex()),
		MaxTimeoutSeconds: 300,
	}
}

func TestAdapterVerifyAcceptsValidPayload(t *testing.T) {
	f := newTestFixture(t)
	payload := f.buildSignedPayload(t, 1000, 0, 9999999999, 0x01)

	resp, vErr := f.adapter.Verify(context.Background(), x402.VerifyRequest{
		X402Version:         x402.CurrentX402Version,
		PaymentPayload:      payload,
		PaymentRequirements: f.requirements(1000),
	})
	require.Nil(t, vErr)
	assert.True(t, resp.IsValid)
	assert.Equal(t, f.payerAddr.Hex(), common.HexToAddress(resp.Payer).Hex())
}

func TestAdapterVerifyRejectsTamperedSignature(t *testing.T) {
	f := newTestFixture(t)
	payload := f.buildSignedPayload(t, 1000, 0, 9999999999, 0x02)

	var evmPayload x402.EvmPayload
	require.NoError(t, json.Unmarshal(payload.Payload, &evmPayload))
	// Corrupt the signature's r component.
	tampered := []byte(evmPayload.Signature)
	tampered[2] = 'f'
	tampered[3] = 'f'
	evmPayload.Signature = string(tampered)
	mutated, err := json.Marshal(evmPayload)
	require.NoError(t, err)
	payload.Payload = mutated

	resp, vErr := f.adapter.Verify(context.Background(), x402.VerifyRequest{
		X402Version:         x402.CurrentX402Version,
		PaymentPayload:      payload,
		PaymentRequirements: f.requirements(1000),
	})
	require.NotNil(t, vErr)
	assert.False(t, resp.IsValid)
}

func TestAdapterVerifyRejectsInsufficientAmount(t *testing.T) {
	f := newTestFixture(t)
	payload := f.buildSignedPayload(t, 500, 0, 9999999999, 0x03)

	resp, vErr := f.adapter.Verify(context.Background(), x402.VerifyRequest{
		X402Version:         x402.CurrentX402Version,
		PaymentPayload:      payload,
		PaymentRequirements: f.requirements(1000),
	})
	require.NotNil(t, vErr)
	assert.False(t, resp.IsValid)
}

func TestAdapterVerifyRejectsExpiredAuthorization(t *testing.T) {
	f := newTestFixture(t)
	payload := f.buildSignedPayload(t, 1000, 0, 1, 0x04)

	resp, vErr := f.adapter.Verify(context.Background(), x402.VerifyRequest{
		X402Version:         x402.CurrentX402Version,
		PaymentPayload:      payload,
		PaymentRequirements: f.requirements(1000),
	})
	require.NotNil(t, vErr)
	assert.Equal(t, x402.ReasonInvalidTiming, vErr.Reason)
	assert.False(t, resp.IsValid)
}

func TestAdapterVerifyRejectsReplayedNonce(t *testing.T) {
	f := newTestFixture(t)
	payload := f.buildSignedPayload(t, 1000, 0, 9999999999, 0x05)
	reqs := f.requirements(1000)

	_, vErr := f.adapter.Verify(context.Background(), x402.VerifyRequest{X402Version: x402.CurrentX402Version, PaymentPayload: payload, PaymentRequirements: reqs})
	require.Nil(t, vErr)

	_, vErr = f.adapter.Verify(context.Background(), x402.VerifyRequest{X402Version: x402.CurrentX402Version, PaymentPayload: payload, PaymentRequirements: reqs})
	require.NotNil(t, vErr)
	assert.Equal(t, x402.ReasonInvalidSignature, vErr.Reason)
}

func TestAdapterSettleSubmitsTransferWithAuthorizationWithoutVault(t *testing.T) {
	f := newTestFixture(t)
	f.signer.writeTxHash = "0xabc123"
	payload := f.buildSignedPayload(t, 1000, 0, 9999999999, 0x06)
	reqs := f.requirements(1000)

	resp, sErr := f.adapter.Settle(context.Background(), x402.SettleRequest{
		X402Version:         x402.CurrentX402Version,
		PaymentPayload:      payload,
		PaymentRequirements: reqs,
	})
	require.Nil(t, sErr)
	assert.True(t, resp.Success)
	assert.Equal(t, "0xabc123", resp.Transaction)
	assert.Equal(t, "transferWithAuthorization", f.signer.lastMethod)
}

func TestAdapterSettleRoutesThroughVaultWhenConfigured(t *testing.T) {
	payerKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	payerAddr := crypto.PubkeyToAddress(payerKey.PublicKey)
	payToAddr := common.HexToAddress("0x2222222222222222222222222222222222222222")
	assetAddr := common.HexToAddress(testAssetAddress)
	vaultAddr := common.HexToAddress("0x4444444444444444444444444444444444444444")

	signer := &fakeSigner{address: common.HexToAddress("0x3333333333333333333333333333333333333333"), chainID: big.NewInt(8453), writeTxHash: "0xvault"}
	nonces := x402.NewMemoryNonceStore()
	adapter, err := NewAdapter(nonces, Entry{
		Config: NetworkConfig{
			Network:      x402.NetworkBase,
			ChainID:      big.NewInt(8453),
			RPCURL:       "https://example.invalid",
			AssetName:    "USD Coin",
			AssetVersion: "2",
			VaultAddress: &vaultAddr,
		},
		Signer: signer,
	})
	require.NoError(t, err)

	f := &testFixture{adapter: adapter, payerKey: payerKey, payerAddr: payerAddr, payToAddr: payToAddr, assetAddr: assetAddr, signer: signer}
	payload := f.buildSignedPayload(t, 1000, 0, 9999999999, 0x07)
	reqs := f.requirements(1000)

	resp, sErr := adapter.Settle(context.Background(), x402.SettleRequest{
		X402Version:         x402.CurrentX402Version,
		PaymentPayload:      payload,
		PaymentRequirements: reqs,
	})
	require.Nil(t, sErr)
	assert.True(t, resp.Success)
	assert.Equal(t, "depositWithAuthorization", signer.lastMethod)
}

func TestAdapterVerifyUnregisteredNetworkYieldsInvalidNetwork(t *testing.T) {
	f := newTestFixture(t)
	payload := f.buildSignedPayload(t, 1000, 0, 9999999999, 0x08)
	payload.Network = x402.NetworkAvalanche
	reqs := f.requirements(1000)
	reqs.Network = x402.NetworkAvalanche

	resp, vErr := f.adapter.Verify(context.Background(), x402.VerifyRequest{
		X402Version:         x402.CurrentX402Version,
		PaymentPayload:      payload,
		PaymentRequirements: reqs,
	})
	require.NotNil(t, vErr)
	assert.Equal(t, x402.ReasonInvalidNetwork, vErr.Reason)
	assert.False(t, resp.IsValid)
}
