package x402

import (
	"context"
	"fmt"
	"sync"
)

// Facilitator dispatches verify/settle calls to the ChainAdapter registered
// for a request's network. There is exactly one adapter per Network; there
// is no wildcard or namespace matching.
type Facilitator struct {
	mu       sync.RWMutex
	adapters map[Network]ChainAdapter
}

// NewFacilitator constructs an empty dispatcher. Call Register for each
// adapter before serving traffic.
func NewFacilitator() *Facilitator {
	return &Facilitator{adapters: make(map[Network]ChainAdapter)}
}

// Register binds adapter to every network it declares support for. It
// panics on startup if two adapters claim the same network, since that is
// a wiring bug, not a runtime condition.
func (f *Facilitator) Register(adapter ChainAdapter) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range adapter.SupportedNetworks() {
		if existing, ok := f.adapters[n]; ok {
			panic(fmt.Sprintf("x402: network %s already registered to %T", n, existing))
		}
		f.adapters[n] = adapter
	}
}

func (f *Facilitator) lookup(network Network) (ChainAdapter, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	a, ok := f.adapters[network]
	return a, ok
}

// Verify routes to the adapter registered for req.PaymentPayload.Network.
// An unregistered or mismatched network always yields invalid_network,
// never a 500-class error.
func (f *Facilitator) Verify(ctx context.Context, req VerifyRequest) (VerifyResponse, *VerifyError) {
	if req.X402Version != CurrentX402Version {
		return VerifyResponse{InvalidReason: ReasonInvalidScheme}, NewVerifyError(ReasonInvalidScheme, "", req.PaymentPayload.Network, nil)
	}
	if req.PaymentPayload.Scheme != SchemeExact || req.PaymentRequirements.Scheme != SchemeExact {
		return VerifyResponse{InvalidReason: ReasonInvalidScheme}, NewVerifyError(ReasonInvalidScheme, "", req.PaymentPayload.Network, nil)
	}
	if req.PaymentPayload.Network != req.PaymentRequirements.Network {
		return VerifyResponse{InvalidReason: ReasonInvalidNetwork}, NewVerifyError(ReasonInvalidNetwork, "", req.PaymentPayload.Network, nil)
	}
	adapter, ok := f.lookup(req.PaymentPayload.Network)
	if !ok {
		return VerifyResponse{InvalidReason: ReasonInvalidNetwork}, NewVerifyError(ReasonInvalidNetwork, "", req.PaymentPayload.Network, nil)
	}
	return adapter.Verify(ctx, req)
}

// Settle routes to the adapter registered for req.PaymentPayload.Network.
func (f *Facilitator) Settle(ctx context.Context, req SettleRequest) (SettleResponse, *SettleError) {
	if req.X402Version != CurrentX402Version {
		return SettleResponse{ErrorReason: ReasonInvalidScheme, Network: req.PaymentPayload.Network}, NewSettleError(ReasonInvalidScheme, "", req.PaymentPayload.Network, "", nil)
	}
	if req.PaymentPayload.Scheme != SchemeExact || req.PaymentRequirements.Scheme != SchemeExact {
		return SettleResponse{ErrorReason: ReasonInvalidScheme, Network: req.PaymentPayload.Network}, NewSettleError(ReasonInvalidScheme, "", req.PaymentPayload.Network, "", nil)
	}
	if req.PaymentPayload.Network != req.PaymentRequirements.Network {
		return SettleResponse{ErrorReason: ReasonInvalidNetwork, Network: req.PaymentPayload.Network}, NewSettleError(ReasonInvalidNetwork, "", req.PaymentPayload.Network, "", nil)
	}
	adapter, ok := f.lookup(req.PaymentPayload.Network)
	if !ok {
		return SettleResponse{ErrorReason: ReasonInvalidNetwork, Network: req.PaymentPayload.Network}, NewSettleError(ReasonInvalidNetwork, "", req.PaymentPayload.Network, "", nil)
	}
	return adapter.Settle(ctx, req)
}

// GetSupported enumerates every (x402Version, scheme, network) triple
// currently registered.
func (f *Facilitator) GetSupported() SupportedResponse {
	f.mu.RLock()
	defer f.mu.RUnlock()
	kinds := make([]SupportedKind, 0, len(f.adapters))
	for n := range f.adapters {
		kinds = append(kinds, SupportedKind{
			X402Version: CurrentX402Version,
			Scheme:      SchemeExact,
			Network:     n,
		})
	}
	return SupportedResponse{Kinds: kinds}
}
