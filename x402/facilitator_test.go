package x402

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAdapter is a minimal ChainAdapter stub used to exercise Facilitator
// dispatch logic without depending on any real chain mechanism package.
type fakeAdapter struct {
	networks []Network
	verify   func(ctx context.Context, req VerifyRequest) (VerifyResponse, *VerifyError)
	settle   func(ctx context.Context, req SettleRequest) (SettleResponse, *SettleError)
}

func (f *fakeAdapter) SupportedNetworks() []Network { return f.networks }

func (f *fakeAdapter) Verify(ctx context.Context, req VerifyRequest) (VerifyResponse, *VerifyError) {
	return f.verify(ctx, req)
}

func (f *fakeAdapter) Settle(ctx context.Context, req SettleRequest) (SettleResponse, *SettleError) {
	return f.settle(ctx, req)
}

func validVerifyRequest(network Network) VerifyRequest {
	return VerifyRequest{
		X402Version: CurrentX402Version,
		PaymentPayload: PaymentPayload{
			X402Version: CurrentX402Version,
			Scheme:      SchemeExact,
			Network:     network,
		},
		PaymentRequirements: PaymentRequirements{
			Scheme:  SchemeExact,
			Network: network,
		},
	}
}

func TestFacilitatorRegisterPanicsOnDuplicateNetwork(t *testing.T) {
	f := NewFacilitator()
	f.Register(&fakeAdapter{networks: []Network{NetworkBase}})
	assert.Panics(t, func() {
		f.Register(&fakeAdapter{networks: []Network{NetworkBase}})
	})
}

func TestFacilitatorVerifyRoutesToRegisteredAdapter(t *testing.T) {
	f := NewFacilitator()
	called := false
	f.Register(&fakeAdapter{
		networks: []Network{NetworkBase},
		verify: func(ctx context.Context, req VerifyRequest) (VerifyResponse, *VerifyError) {
			called = true
			return VerifyResponse{IsValid: true, Payer: "0xabc"}, nil
		},
	})

	resp, vErr := f.Verify(context.Background(), validVerifyRequest(NetworkBase))
	require.Nil(t, vErr)
	assert.True(t, called)
	assert.True(t, resp.IsValid)
	assert.Equal(t, "0xabc", resp.Payer)
}

func TestFacilitatorVerifyUnregisteredNetworkYieldsInvalidNetwork(t *testing.T) {
	f := NewFacilitator()
	resp, vErr := f.Verify(context.Background(), validVerifyRequest(NetworkBase))
	require.NotNil(t, vErr)
	assert.Equal(t, ReasonInvalidNetwork, vErr.Reason)
	assert.False(t, resp.IsValid)
}

func TestFacilitatorVerifyRejectsUnsupportedVersion(t *testing.T) {
	f := NewFacilitator()
	f.Register(&fakeAdapter{networks: []Network{NetworkBase}})

	req := validVerifyRequest(NetworkBase)
	req.X402Version = 2

	_, vErr := f.Verify(context.Background(), req)
	require.NotNil(t, vErr)
	assert.Equal(t, ReasonInvalidScheme, vErr.Reason)
}

func TestFacilitatorVerifyRejectsSchemeMismatch(t *testing.T) {
	f := NewFacilitator()
	f.Register(&fakeAdapter{networks: []Network{NetworkBase}})

	req := validVerifyRequest(NetworkBase)
	req.PaymentPayload.Scheme = "upto"

	_, vErr := f.Verify(context.Background(), req)
	require.NotNil(t, vErr)
	assert.Equal(t, ReasonInvalidScheme, vErr.Reason)
}

func TestFacilitatorVerifyRejectsNetworkMismatchBetweenPayloadAndRequirements(t *testing.T) {
	f := NewFacilitator()
	f.Register(&fakeAdapter{networks: []Network{NetworkBase, NetworkAvalanche}})

	req := validVerifyRequest(NetworkBase)
	req.PaymentRequirements.Network = NetworkAvalanche

	_, vErr := f.Verify(context.Background(), req)
	require.NotNil(t, vErr)
	assert.Equal(t, ReasonInvalidNetwork, vErr.Reason)
}

func TestFacilitatorSettleRoutesToRegisteredAdapter(t *testing.T) {
	f := NewFacilitator()
	f.Register(&fakeAdapter{
		networks: []Network{NetworkBase},
		settle: func(ctx context.Context, req SettleRequest) (SettleResponse, *SettleError) {
			return SettleResponse{Success: true, Transaction: "0xdeadbeef"}, nil
		},
	})

	req := SettleRequest{
		X402Version: CurrentX402Version,
		PaymentPayload: PaymentPayload{
			Scheme:  SchemeExact,
			Network: NetworkBase,
		},
		PaymentRequirements: PaymentRequirements{
			Scheme:  SchemeExact,
			Network: NetworkBase,
		},
	}

	resp, sErr := f.Settle(context.Background(), req)
	require.Nil(t, sErr)
	assert.True(t, resp.Success)
	assert.Equal(t, "0xdeadbeef", resp.Transaction)
}

func TestFacilitatorGetSupportedEnumeratesRegisteredNetworks(t *testing.T) {
	f := NewFacilitator()
	f.Register(&fakeAdapter{networks: []Network{NetworkBase, NetworkAvalanche}})
	f.Register(&fakeAdapter{networks: []Network{NetworkSuiMainnet}})

	supported := f.GetSupported()
	assert.Len(t, supported.Kinds, 3)
	seen := make(map[Network]bool)
	for _, k := range supported.Kinds {
		assert.Equal(t, CurrentX402Version, k.X402Version)
		assert.Equal(t, SchemeExact, k.Scheme)
		seen[k.Network] = true
	}
	assert.True(t, seen[NetworkBase])
	assert.True(t, seen[NetworkAvalanche])
	assert.True(t, seen[NetworkSuiMainnet])
}
