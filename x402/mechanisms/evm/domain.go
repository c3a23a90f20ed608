// Package evm implements the x402 ChainAdapter for EVM chains, verifying
// and settling ERC-3009 transferWithAuthorization-style payments.
package evm

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// authorizationTypes is the EIP-712 type set for the ERC-3009
// TransferWithAuthorization message, plus the mandatory EIP712Domain type.
var authorizationTypes = apitypes.Types{
	"EIP712Domain": {
		{Name: "name", Type: "string"},
		{Name: "version", Type: "string"},
		{Name: "chainId", Type: "uint256"},
		{Name: "verifyingContract", Type: "address"},
	},
	"TransferWithAuthorization": {
		{Name: "from", Type: "address"},
		{Name: "to", Type: "address"},
		{Name: "value", Type: "uint256"},
		{Name: "validAfter", Type: "uint256"},
		{Name: "validBefore", Type: "uint256"},
		{Name: "nonce", Type: "bytes32"},
	},
}

// TokenDomain identifies the EIP-712 signing domain of an ERC-3009 token
// contract. Name and Version are the values the token's EIP-712 domain was
// deployed with (USDC uses "USD Coin" / "2"); callers obtain them from
// per-network asset configuration since they are not recoverable on-chain
// without a contract call this facilitator does not make.
type TokenDomain struct {
	Name              string
	Version           string
	ChainID           *big.Int
	VerifyingContract common.Address
}

// HashEIP3009Authorization computes the EIP-712 digest
// keccak256(0x1901 ‖ domainSeparator ‖ hashStruct(message)) for a
// TransferWithAuthorization message, mirroring the signing-side
// construction the payer's wallet uses, but for recovery rather than
// signing.
func HashEIP3009Authorization(domain TokenDomain, from, to common.Address, value *big.Int, validAfter, validBefore int64, nonce [32]byte) ([32]byte, error) {
	typedData := apitypes.TypedData{
		Types:       authorizationTypes,
		PrimaryType: "TransferWithAuthorization",
		Domain: apitypes.TypedDataDomain{
			Name:              domain.Name,
			Version:           domain.Version,
			ChainId:           (*math.HexOrDecimal256)(domain.ChainID),
			VerifyingContract: domain.VerifyingContract.Hex(),
		},
		Message: apitypes.TypedDataMessage{
			"from":        from.Hex(),
			"to":          to.Hex(),
			"value":       value.String(),
			"validAfter":  new(big.Int).SetInt64(validAfter).String(),
			"validBefore": new(big.Int).SetInt64(validBefore).String(),
			"nonce":       nonce[:],
		},
	}

	domainSeparator, err := typedData.HashStruct("EIP712Domain", typedData.Domain.Map())
	if err != nil {
		return [32]byte{}, err
	}
	dataHash, err := typedData.HashStruct(typedData.PrimaryType, typedData.Message)
	if err != nil {
		return [32]byte{}, err
	}

	raw := append([]byte{0x19, 0x01}, domainSeparator...)
	raw = append(raw, dataHash...)
	return [32]byte(crypto.Keccak256(raw)), nil
}
