package sui

import (
	"fmt"

	"github.com/longcipher/ledgerflow/x402"
)

// NetworkConfig describes one Sui network the adapter can serve.
type NetworkConfig struct {
	Network x402.Network

	// RPCURL is the full node JSON-RPC endpoint.
	RPCURL string

	// VaultPackageID is the vault Move package for this network. The
	// adapter does not read it: Settle always submits a plain coin
	// transfer.
	VaultPackageID string

	// GasPayer, when set, is the address the facilitator sponsors gas
	// from instead of the payer.
	GasPayer string

	// GasBudget is the MIST budget attached to settlement transactions.
	GasBudget uint64
}

func (c NetworkConfig) validate() error {
	if c.RPCURL == "" {
		return fmt.Errorf("sui: network %s missing rpc url", c.Network)
	}
	if c.GasBudget == 0 {
		return fmt.Errorf("sui: network %s missing gas budget", c.Network)
	}
	return nil
}
