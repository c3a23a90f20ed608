package sui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/longcipher/ledgerflow/x402"
)

const timingGraceSeconds = 6

// Entry binds one network's configuration to the transport client that
// talks to it.
type Entry struct {
	Config NetworkConfig
	Client CheckpointClient
}

// Adapter is the Sui x402.ChainAdapter.
type Adapter struct {
	entries map[x402.Network]Entry
	nonces  x402.NonceStore
}

// NewAdapter builds a Sui adapter from one Entry per supported network.
func NewAdapter(nonces x402.NonceStore, entries ...Entry) (*Adapter, error) {
	m := make(map[x402.Network]Entry, len(entries))
	for _, e := range entries {
		if err := e.Config.validate(); err != nil {
			return nil, err
		}
		if !e.Config.Network.IsSui() {
			return nil, fmt.Errorf("sui: network %s is not a Sui network", e.Config.Network)
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

type checkResult struct {
	payer   x402.SuiAddress
	payload x402.SuiPayload
	entry   Entry
}

// checkErr mirrors the EVM adapter's FacilitatorCheckError shape.
type checkErr struct {
	reason x402.FacilitatorErrorReason
	payer  string
	err    error
}

func (e checkErr) isZero() bool { return e.reason == "" }

// runChecks implements spec steps 1-5 (shared with EVM, Sui addressing)
// plus the Sui-specific steps 6-7: signature blob sanity and full
// cryptographic verification against the canonical authorization message.
func (a *Adapter) runChecks(payload x402.PaymentPayload, reqs x402.PaymentRequirements) (checkResult, checkErr) {
	if payload.Scheme != x402.SchemeExact || reqs.Scheme != x402.SchemeExact {
		return checkResult{}, checkErr{reason: x402.ReasonInvalidScheme}
	}
	if payload.Network != reqs.Network {
		return checkResult{}, checkErr{reason: x402.ReasonInvalidNetwork}
	}
	entry, ok := a.entries[payload.Network]
	if !ok {
		return checkResult{}, checkErr{reason: x402.ReasonInvalidNetwork}
	}

	suiPayload, err := payload.Sui()
	if err != nil {
		return checkResult{}, checkErr{reason: x402.ReasonInvalidScheme, err: err}
	}

	payTo, err := x402.ParseSuiAddress(string(reqs.PayTo))
	if err != nil {
		return checkResult{}, checkErr{reason: x402.ReasonInvalidScheme, err: err}
	}
	if !suiPayload.Authorization.To.Equal(payTo) {
		return checkResult{}, checkErr{reason: x402.ReasonInvalidScheme}
	}

	if suiPayload.Authorization.Value.Cmp(reqs.MaxAmountRequired) < 0 {
		return checkResult{}, checkErr{reason: x402.ReasonInvalidScheme}
	}

	now := time.Now().Unix()
	if suiPayload.Authorization.ValidBefore < now+timingGraceSeconds || suiPayload.Authorization.ValidAfter > now {
		return checkResult{}, checkErr{reason: x402.ReasonInvalidTiming}
	}

	from, err := x402.ParseSuiAddress(string(suiPayload.Authorization.From))
	if err != nil {
		return checkResult{}, checkErr{reason: x402.ReasonInvalidSignature, err: err}
	}

	blob, err := parseSignatureBlob(suiPayload.Signature)
	if err != nil {
		return checkResult{}, checkErr{reason: x402.ReasonInvalidSignature, payer: string(from), err: err}
	}

	message, err := canonicalAuthorizationJSON(suiPayload.Authorization)
	if err != nil {
		return checkResult{}, checkErr{reason: x402.ReasonInvalidSignature, payer: string(from), err: err}
	}
	if err := blob.verify([]byte(message)); err != nil {
		return checkResult{}, checkErr{reason: x402.ReasonInvalidSignature, payer: string(from), err: err}
	}

	derivedAddr, err := deriveAddress(blob.Scheme, blob.PublicKey)
	if err != nil || !strings.EqualFold(derivedAddr, string(from)) {
		return checkResult{}, checkErr{reason: x402.ReasonInvalidSignature, payer: string(from), err: err}
	}

	return checkResult{payer: from, payload: suiPayload, entry: entry}, checkErr{}
}

// Verify implements x402.ChainAdapter.
func (a *Adapter) Verify(ctx context.Context, req x402.VerifyRequest) (x402.VerifyResponse, *x402.VerifyError) {
	result, cerr := a.runChecks(req.PaymentPayload, req.PaymentRequirements)
	if !cerr.isZero() {
		return x402.VerifyResponse{IsValid: false, InvalidReason: cerr.reason, Payer: cerr.payer},
			x402.NewVerifyError(cerr.reason, cerr.payer, req.PaymentPayload.Network, cerr.err)
	}

	expiry := time.Unix(result.payload.Authorization.ValidBefore, 0)
	reserved, err := a.nonces.Reserve(req.PaymentPayload.Network, result.payload.Authorization.Nonce, expiry)
	if err != nil {
		return x402.VerifyResponse{InvalidReason: x402.ReasonUnexpectedSettleError, Payer: string(result.payer)}, x402.NewVerifyError(x402.ReasonUnexpectedSettleError, string(result.payer), req.PaymentPayload.Network, err)
	}
	if !reserved {
		return x402.VerifyResponse{IsValid: false, InvalidReason: x402.ReasonInvalidSignature, Payer: string(result.payer)},
			x402.NewVerifyError(x402.ReasonInvalidSignature, string(result.payer), req.PaymentPayload.Network, nil)
	}

	return x402.VerifyResponse{IsValid: true, Payer: string(result.payer)}, nil
}

// Settle implements x402.ChainAdapter: it re-runs the shared checks (without
// touching the nonce store, for the same reason as the EVM adapter — the
// reservation already happened in the preceding Verify call), then submits
// a coin-transfer Programmable Transaction Block sponsored by the
// facilitator when the network is configured with a GasPayer.
func (a *Adapter) Settle(ctx context.Context, req x402.SettleRequest) (x402.SettleResponse, *x402.SettleError) {
	result, cerr := a.runChecks(req.PaymentPayload, req.PaymentRequirements)
	if !cerr.isZero() {
		return x402.SettleResponse{Success: false, ErrorReason: cerr.reason, Payer: cerr.payer, Network: req.PaymentPayload.Network},
			x402.NewSettleError(cerr.reason, cerr.payer, req.PaymentPayload.Network, "", cerr.err)
	}

	client := result.entry.Client
	auth := result.payload.Authorization

	coins, err := client.Coins(ctx, string(auth.From), auth.CoinType)
	if err != nil || len(coins) == 0 {
		return x402.SettleResponse{Success: false, ErrorReason: x402.ReasonUnexpectedSettleError, Payer: string(result.payer), Network: req.PaymentPayload.Network},
			x402.NewSettleError(x402.ReasonUnexpectedSettleError, string(result.payer), req.PaymentPayload.Network, "", err)
	}

	inputCoins := make([]string, 0, len(coins))
	for _, c := range coins {
		inputCoins = append(inputCoins, c.ObjectID)
	}

	txBytes, err := client.BuildPayTransaction(ctx, PayTransactionRequest{
		Sender:     string(auth.From),
		InputCoins: inputCoins,
		Recipients: []string{string(auth.To)},
		Amounts:    []string{auth.Value.String()},
		GasPayer:   result.entry.Config.GasPayer,
		GasBudget:  result.entry.Config.GasBudget,
	})
	if err != nil {
		return x402.SettleResponse{Success: false, ErrorReason: x402.ReasonUnexpectedSettleError, Payer: string(result.payer), Network: req.PaymentPayload.Network},
			x402.NewSettleError(x402.ReasonUnexpectedSettleError, string(result.payer), req.PaymentPayload.Network, "", err)
	}

	digest, err := client.Execute(ctx, txBytes, []string{result.payload.Signature})
	if err != nil {
		return x402.SettleResponse{Success: false, ErrorReason: x402.ReasonUnexpectedSettleError, Payer: string(result.payer), Network: req.PaymentPayload.Network},
			x402.NewSettleError(x402.ReasonUnexpectedSettleError, string(result.payer), req.PaymentPayload.Network, "", err)
	}

	return x402.SettleResponse{
		Success:     true,
		Payer:       string(result.payer),
		Transaction: x402.NewSuiTransactionHash(digest).String(),
		Network:     req.PaymentPayload.Network,
	}, nil
}
