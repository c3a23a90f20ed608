package evm

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/longcipher/ledgerflow/x402"
)

// NetworkConfig describes everything the adapter needs to know about one
// EVM network: where to reach it, which chain it is, and how settlement is
// routed for it.
type NetworkConfig struct {
	Network x402.Network
	ChainID *big.Int
	RPCURL  string

	// VaultAddress, when set, routes settlement through the vault's
	// depositWithAuthorization instead of the token's
	// transferWithAuthorization. orderId is always set to the
	// authorization's nonce on the vault path.
	VaultAddress *common.Address

	// AssetName/AssetVersion are the EIP-712 domain name/version the
	// configured asset contract was deployed with (e.g. USDC: "USD Coin",
	// "2"). These cannot be derived on-chain without an extra call this
	// facilitator does not make, so they are supplied per network.
	AssetName    string
	AssetVersion string
}

func (c NetworkConfig) validate() error {
	if c.ChainID == nil {
		return fmt.Errorf("evm: network %s missing chain id", c.Network)
	}
	if c.RPCURL == "" {
		return fmt.Errorf("evm: network %s missing rpc url", c.Network)
	}
	if c.AssetName == "" || c.AssetVersion == "" {
		return fmt.Errorf("evm: network %s missing asset EIP-712 domain name/version", c.Network)
	}
	return nil
}
