package evm

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/longcipher/ledgerflow/x402"
)

// timingGraceSeconds is the slack applied to validBefore so a request
// in flight does not expire mid-verification.
const timingGraceSeconds = 6

// Entry binds one network's configuration to the signer that talks to it.
type Entry struct {
	Config NetworkConfig
	Signer Signer
}

// Adapter is the EVM x402.ChainAdapter: it verifies ERC-3009
// transferWithAuthorization-shaped payloads and, on settle, submits them
// on-chain through the configured signer.
type Adapter struct {
	entries map[x402.Network]Entry
	nonces  x402.NonceStore
}

// NewAdapter builds an EVM adapter from one Entry per supported network.
func NewAdapter(nonces x402.NonceStore, entries ...Entry) (*Adapter, error) {
	m := make(map[x402.Network]Entry, len(entries))
	for _, e := range entries {
		if err := e.Config.validate(); err != nil {
			return nil, err
		}
		if !e.Config.Network.IsEVM() {
			return nil, fmt.Errorf("evm: network %s is not an EVM network", e.Config.Network)
		}
		m[e.Config.Network] = e
	}
	return &Adapter{entries: m, nonces: nonces}, nil
}

// SupportedNetworks implements x402.ChainAdapter.
func (a *Adapter) SupportedNetworks() []x402.Network {
	out := make([]x402.Network, 0, len(a.entries))
	for n := range a.entries {
		out = append(out, n)
	}
	return out
}

// checkResult is the outcome of the shared validation steps common to
// verify and settle.
type checkResult struct {
	payer       x402.EvmAddress
	payload     x402.EvmPayload
	entry       Entry
	valueWei    *big.Int
	nonceBytes  [32]byte
	validBefore int64
}

// runChecks performs steps 1-5 and 7-8 of the verify algorithm: variant
// decode, scheme/network match, receiver match, amount comparison, timing,
// and signature recovery. It does not touch the nonce store; callers apply
// nonce-uniqueness themselves since verify and settle treat it differently
// (see Adapter.Verify / Adapter.Settle).
func (a *Adapter) runChecks(ctx context.Context, payload x402.PaymentPayload, reqs x402.PaymentRequirements) (checkResult, FacilitatorCheckError) {
	if payload.Scheme != x402.SchemeExact || reqs.Scheme != x402.SchemeExact {
		return checkResult{}, FacilitatorCheckError{Reason: x402.ReasonInvalidScheme}
	}
	if payload.Network != reqs.Network {
		return checkResult{}, FacilitatorCheckError{Reason: x402.ReasonInvalidNetwork}
	}
	entry, ok := a.entries[payload.Network]
	if !ok {
		return checkResult{}, FacilitatorCheckError{Reason: x402.ReasonInvalidNetwork}
	}

	evmPayload, err := payload.EVM()
	if err != nil {
		return checkResult{}, FacilitatorCheckError{Reason: x402.ReasonInvalidScheme, Err: err}
	}

	payTo, err := x402.ParseEvmAddress(string(reqs.PayTo))
	if err != nil {
		return checkResult{}, FacilitatorCheckError{Reason: x402.ReasonInvalidScheme, Err: err}
	}
	if !evmPayload.Authorization.To.Equal(payTo) {
		return checkResult{}, FacilitatorCheckError{Reason: x402.ReasonInvalidScheme}
	}

	if evmPayload.Authorization.Value.Cmp(reqs.MaxAmountRequired) < 0 {
		reason := x402.ReasonInvalidScheme
		if assetAddr, err := x402.ParseEvmAddress(string(reqs.Asset)); err == nil {
			if balance, balErr := entry.Signer.GetBalance(ctx, common.HexToAddress(string(evmPayload.Authorization.From)), common.HexToAddress(string(assetAddr))); balErr == nil {
				if balance.Cmp(evmPayload.Authorization.Value.Big()) < 0 {
					reason = x402.ReasonInsufficientFunds
				}
			}
		}
		return checkResult{}, FacilitatorCheckError{Reason: reason}
	}

	now := time.Now().Unix()
	if evmPayload.Authorization.ValidBefore < now+timingGraceSeconds || evmPayload.Authorization.ValidAfter > now {
		return checkResult{}, FacilitatorCheckError{Reason: x402.ReasonInvalidTiming}
	}

	asset, err := x402.ParseEvmAddress(string(reqs.Asset))
	if err != nil {
		return checkResult{}, FacilitatorCheckError{Reason: x402.ReasonInvalidScheme, Err: err}
	}
	from, err := x402.ParseEvmAddress(string(evmPayload.Authorization.From))
	if err != nil {
		return checkResult{}, FacilitatorCheckError{Reason: x402.ReasonInvalidSignature, Err: err}
	}

	sig, err := x402.ParseEvmSignature(evmPayload.Signature)
	if err != nil {
		return checkResult{}, FacilitatorCheckError{Reason: x402.ReasonInvalidSignature, Err: err}
	}

	nonceBytes, err := nonceTo32Bytes(evmPayload.Authorization.Nonce)
	if err != nil {
		return checkResult{}, FacilitatorCheckError{Reason: x402.ReasonInvalidSignature, Err: err}
	}

	digest, err := HashEIP3009Authorization(
		TokenDomain{
			Name:              entry.Config.AssetName,
			Version:           entry.Config.AssetVersion,
			ChainID:           entry.Config.ChainID,
			VerifyingContract: common.HexToAddress(string(asset)),
		},
		common.HexToAddress(string(from)),
		common.HexToAddress(string(evmPayload.Authorization.To)),
		evmPayload.Authorization.Value.Big(),
		evmPayload.Authorization.ValidAfter,
		evmPayload.Authorization.ValidBefore,
		nonceBytes,
	)
	if err != nil {
		return checkResult{}, FacilitatorCheckError{Reason: x402.ReasonInvalidSignature, Err: err, Payer: string(from)}
	}

	recovered, err := RecoverSigner(digest, sig.R, sig.S, sig.V)
	if err != nil || !EqualAddress(recovered, common.HexToAddress(string(from))) {
		return checkResult{}, FacilitatorCheckError{Reason: x402.ReasonInvalidSignature, Payer: string(from), Err: err}
	}

	return checkResult{
		payer:       from,
		payload:     evmPayload,
		entry:       entry,
		valueWei:    evmPayload.Authorization.Value.Big(),
		nonceBytes:  nonceBytes,
		validBefore: evmPayload.Authorization.ValidBefore,
	}, FacilitatorCheckError{}
}

// FacilitatorCheckError carries a failed check's wire reason plus whatever
// context (payer, underlying error) was available when it failed.
type FacilitatorCheckError struct {
	Reason x402.FacilitatorErrorReason
	Payer  string
	Err    error
}

// IsZero reports whether no error occurred.
func (e FacilitatorCheckError) IsZero() bool { return e.Reason == "" }

func nonceTo32Bytes(n x402.HexEncodedNonce) ([32]byte, error) {
	var out [32]byte
	s := strings.TrimPrefix(string(n), "0x")
	if len(s) != 64 {
		return out, fmt.Errorf("evm: nonce must be 32 bytes")
	}
	b := make([]byte, 32)
	if _, err := fmt.Sscanf(s, "%x", &b); err != nil {
		return out, err
	}
	copy(out[:], b)
	return out, nil
}

// Verify implements x402.ChainAdapter. On success it reserves the nonce;
// a repeated verify for the same (network, nonce) therefore fails with
// invalid_signature, matching nonce-replay semantics.
func (a *Adapter) Verify(ctx context.Context, req x402.VerifyRequest) (x402.VerifyResponse, *x402.VerifyError) {
	result, checkErr := a.runChecks(ctx, req.PaymentPayload, req.PaymentRequirements)
	if !checkErr.IsZero() {
		return x402.VerifyResponse{IsValid: false, InvalidReason: checkErr.Reason, Payer: checkErr.Payer},
			x402.NewVerifyError(checkErr.Reason, checkErr.Payer, req.PaymentPayload.Network, checkErr.Err)
	}

	reserved, err := a.nonces.Reserve(req.PaymentPayload.Network, result.payload.Authorization.Nonce, time.Unix(result.validBefore, 0))
	if err != nil {
		return x402.VerifyResponse{InvalidReason: x402.ReasonUnexpectedSettleError, Payer: string(result.payer)}, x402.NewVerifyError(x402.ReasonUnexpectedSettleError, string(result.payer), req.PaymentPayload.Network, err)
	}
	if !reserved {
		return x402.VerifyResponse{IsValid: false, InvalidReason: x402.ReasonInvalidSignature, Payer: string(result.payer)},
			x402.NewVerifyError(x402.ReasonInvalidSignature, string(result.payer), req.PaymentPayload.Network, nil)
	}

	return x402.VerifyResponse{IsValid: true, Payer: string(result.payer)}, nil
}

// Settle implements x402.ChainAdapter. It re-runs the shared checks but,
// unlike Verify, does not touch the nonce store: the nonce was already
// reserved by the Verify call this Settle follows, and the on-chain
// authorizationState/nonce tracking in the ERC-3009 contract is the
// backstop against a duplicate submission actually landing twice.
func (a *Adapter) Settle(ctx context.Context, req x402.SettleRequest) (x402.SettleResponse, *x402.SettleError) {
	result, checkErr := a.runChecks(ctx, req.PaymentPayload, req.PaymentRequirements)
	if !checkErr.IsZero() {
		return x402.SettleResponse{Success: false, ErrorReason: checkErr.Reason, Payer: checkErr.Payer, Network: req.PaymentPayload.Network},
			x402.NewSettleError(checkErr.Reason, checkErr.Payer, req.PaymentPayload.Network, "", checkErr.Err)
	}

	signer := result.entry.Signer
	auth := result.payload.Authorization
	sig, err := x402.ParseEvmSignature(result.payload.Signature)
	if err != nil {
		return x402.SettleResponse{Success: false, ErrorReason: x402.ReasonInvalidSignature, Payer: string(result.payer), Network: req.PaymentPayload.Network},
			x402.NewSettleError(x402.ReasonInvalidSignature, string(result.payer), req.PaymentPayload.Network, "", err)
	}

	var txHash string
	from := common.HexToAddress(string(result.payer))
	to := common.HexToAddress(string(auth.To))
	value := result.valueWei
	validAfter := big.NewInt(auth.ValidAfter)
	validBefore := big.NewInt(auth.ValidBefore)

	if result.entry.Config.VaultAddress != nil {
		txHash, err = signer.WriteContract(ctx, *result.entry.Config.VaultAddress, DepositWithAuthorizationABI, "depositWithAuthorization",
			result.nonceBytes, from, value, validAfter, validBefore, result.nonceBytes, sig.V, sig.R, sig.S)
	} else {
		asset := common.HexToAddress(string(req.PaymentRequirements.Asset))
		txHash, err = signer.WriteContract(ctx, asset, TransferWithAuthorizationABI, "transferWithAuthorization",
			from, to, value, validAfter, validBefore, result.nonceBytes, sig.V, sig.R, sig.S)
	}
	if err != nil {
		return x402.SettleResponse{Success: false, ErrorReason: x402.ReasonUnexpectedSettleError, Payer: string(result.payer), Network: req.PaymentPayload.Network},
			x402.NewSettleError(x402.ReasonUnexpectedSettleError, string(result.payer), req.PaymentPayload.Network, "", err)
	}

	return x402.SettleResponse{
		Success:     true,
		Payer:       string(result.payer),
		Transaction: x402.NewEvmTransactionHash(txHash).String(),
		Network:     req.PaymentPayload.Network,
	}, nil
}
