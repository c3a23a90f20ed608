package x402

import "context"

// ChainAdapter is the closed capability contract a chain family (EVM, Sui)
// implements to participate in the facilitator. Unlike the open
// scheme/network registration model, a facilitator holds exactly one
// adapter per supported Network.
type ChainAdapter interface {
	// SupportedNetworks lists the networks this adapter serves.
	SupportedNetworks() []Network

	// Verify checks a payment payload against requirements without moving
	// funds. It returns a VerifyError (never a bare error) on any business
	// or system failure so the caller always has a wire-safe reason.
	Verify(ctx context.Context, req VerifyRequest) (VerifyResponse, *VerifyError)

	// Settle submits the authorized transfer on-chain. Implementations
	// re-run the verify checks before submitting.
	Settle(ctx context.Context, req SettleRequest) (SettleResponse, *SettleError)
}
