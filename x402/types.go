// Package x402 implements the LedgerFlow payment facilitator: the
// network-agnostic verify/settle surface for the x402 off-chain payment
// protocol, version 1.
package x402

import (
	"encoding/json"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/mr-tron/base58"
)

// Network is the closed set of chains the facilitator can serve. Wire form
// is kebab-case; there is no wildcard or namespace matching.
type Network string

const (
	NetworkBase          Network = "base"
	NetworkBaseSepolia   Network = "base-sepolia"
	NetworkAvalanche     Network = "avalanche"
	NetworkAvalancheFuji Network = "avalanche-fuji"
	NetworkXDCMainnet    Network = "xdc-mainnet"
	NetworkSuiMainnet    Network = "sui-mainnet"
	NetworkSuiTestnet    Network = "sui-testnet"
	NetworkSuiDevnet     Network = "sui-devnet"
)

// IsEVM reports whether the network is served by the EVM adapter.
func (n Network) IsEVM() bool {
	switch n {
	case NetworkBase, NetworkBaseSepolia, NetworkAvalanche, NetworkAvalancheFuji, NetworkXDCMainnet:
		return true
	}
	return false
}

// IsSui reports whether the network is served by the Sui adapter.
func (n Network) IsSui() bool {
	switch n {
	case NetworkSuiMainnet, NetworkSuiTestnet, NetworkSuiDevnet:
		return true
	}
	return false
}

// Valid reports whether n is a member of the closed Network enum.
func (n Network) Valid() bool {
	return n.IsEVM() || n.IsSui()
}

// Scheme is the payment scheme name. Only "exact" is defined.
type Scheme string

// SchemeExact is the only supported payment scheme.
const SchemeExact Scheme = "exact"

// X402Version is the protocol version. Only 1 is accepted.
type X402Version int

// CurrentX402Version is the only version this facilitator accepts.
const CurrentX402Version X402Version = 1

// FacilitatorErrorReason is the closed, snake_case error taxonomy returned
// on the wire for both verify and settle business failures.
type FacilitatorErrorReason string

const (
	ReasonInvalidScheme         FacilitatorErrorReason = "invalid_scheme"
	ReasonInvalidNetwork        FacilitatorErrorReason = "invalid_network"
	ReasonInvalidSignature      FacilitatorErrorReason = "invalid_signature"
	ReasonInvalidTiming         FacilitatorErrorReason = "invalid_timing"
	ReasonInsufficientFunds     FacilitatorErrorReason = "insufficient_funds"
	ReasonUnexpectedSettleError FacilitatorErrorReason = "unexpected_settle_error"
)

var hexNonceRe = regexp.MustCompile(`^0x[0-9a-f]{64}$`)

// HexEncodedNonce is exactly "0x" followed by 64 lowercase hex characters.
type HexEncodedNonce string

// Valid reports whether the nonce has the required shape.
func (n HexEncodedNonce) Valid() bool {
	return hexNonceRe.MatchString(string(n))
}

// TokenAmount is an unsigned 256-bit integer carried on the wire as a
// decimal string. Comparisons are numeric, never lexicographic.
type TokenAmount struct {
	v *big.Int
}

// ParseTokenAmount parses a decimal string, rejecting overflow, negative
// values, and non-digit characters.
func ParseTokenAmount(s string) (TokenAmount, error) {
	if s == "" || strings.ContainsAny(s, " \t\n+-") {
		return TokenAmount{}, fmt.Errorf("x402: invalid token amount %q", s)
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return TokenAmount{}, fmt.Errorf("x402: invalid token amount %q", s)
		}
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.BitLen() > 256 {
		return TokenAmount{}, fmt.Errorf("x402: token amount overflow %q", s)
	}
	return TokenAmount{v: v}, nil
}

// MustTokenAmount is ParseTokenAmount that panics on error; intended for
// tests and literals known to be valid.
func MustTokenAmount(s string) TokenAmount {
	a, err := ParseTokenAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

// String renders the amount as a decimal string.
func (a TokenAmount) String() string {
	if a.v == nil {
		return "0"
	}
	return a.v.String()
}

// Cmp compares two amounts numerically.
func (a TokenAmount) Cmp(b TokenAmount) int {
	av, bv := a.big(), b.big()
	return av.Cmp(bv)
}

func (a TokenAmount) big() *big.Int {
	if a.v == nil {
		return big.NewInt(0)
	}
	return a.v
}

// Big returns the underlying big.Int, never mutated by the caller.
func (a TokenAmount) Big() *big.Int {
	return new(big.Int).Set(a.big())
}

func (a TokenAmount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

func (a *TokenAmount) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseTokenAmount(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

var evmAddrRe = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// EvmAddress is a 20-byte address. Input may carry EIP-55 checksum casing;
// it is normalized to lowercase for storage and comparison.
type EvmAddress string

// ParseEvmAddress validates and normalizes an EVM address.
func ParseEvmAddress(s string) (EvmAddress, error) {
	if !evmAddrRe.MatchString(s) {
		return "", fmt.Errorf("x402: invalid evm address %q", s)
	}
	return EvmAddress(strings.ToLower(s)), nil
}

// Equal compares two addresses case-insensitively.
func (a EvmAddress) Equal(b EvmAddress) bool {
	return strings.EqualFold(string(a), string(b))
}

var suiAddrRe = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)

// SuiAddress is a 32-byte hex address with "0x" prefix.
type SuiAddress string

// ParseSuiAddress validates a Sui address.
func ParseSuiAddress(s string) (SuiAddress, error) {
	if !suiAddrRe.MatchString(s) {
		return "", fmt.Errorf("x402: invalid sui address %q", s)
	}
	return SuiAddress(strings.ToLower(s)), nil
}

// Equal compares two addresses case-insensitively.
func (a SuiAddress) Equal(b SuiAddress) bool {
	return strings.EqualFold(string(a), string(b))
}

// EvmSignature is 65 raw bytes (r ‖ s ‖ v) encoded as "0x" + 130 hex chars.
// v is normalized to {27,28}; inputs of 0/1 are accepted and shifted by 27.
type EvmSignature struct {
	R [32]byte
	S [32]byte
	V byte
}

// ParseEvmSignature decodes and normalizes a hex-encoded 65-byte signature.
func ParseEvmSignature(hexSig string) (EvmSignature, error) {
	hexSig = strings.TrimPrefix(hexSig, "0x")
	if len(hexSig) != 130 {
		return EvmSignature{}, fmt.Errorf("x402: invalid signature length")
	}
	raw := make([]byte, 65)
	if _, err := fmt.Sscanf(hexSig, "%x", &raw); err != nil {
		return EvmSignature{}, fmt.Errorf("x402: invalid signature hex: %w", err)
	}
	var sig EvmSignature
	copy(sig.R[:], raw[0:32])
	copy(sig.S[:], raw[32:64])
	v := raw[64]
	if v == 0 || v == 1 {
		v += 27
	}
	sig.V = v
	return sig, nil
}

// Bytes returns the r‖s‖v encoding with v in {27,28}.
func (s EvmSignature) Bytes() []byte {
	out := make([]byte, 65)
	copy(out[0:32], s.R[:])
	copy(out[32:64], s.S[:])
	out[64] = s.V
	return out
}

// TransactionHash holds either an EVM ("0x" + 64 hex) or a Sui (base58)
// transaction identifier. The variant is detected heuristically on
// deserialize: "0x" + 64 hex chars is EVM, anything else is Sui.
type TransactionHash struct {
	value string
	isEvm bool
}

// NewEvmTransactionHash constructs an EVM-variant transaction hash.
func NewEvmTransactionHash(hexHash string) TransactionHash {
	return TransactionHash{value: hexHash, isEvm: true}
}

// NewSuiTransactionHash constructs a Sui-variant (base58 digest) transaction hash.
func NewSuiTransactionHash(digest string) TransactionHash {
	return TransactionHash{value: digest, isEvm: false}
}

// ParseTransactionHash applies the EVM/Sui heuristic: "0x" + 64 hex chars is
// EVM, anything else is treated as a Sui base58 digest.
func ParseTransactionHash(s string) TransactionHash {
	if regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`).MatchString(s) {
		return TransactionHash{value: strings.ToLower(s), isEvm: true}
	}
	return TransactionHash{value: s, isEvm: false}
}

// String renders the hash in its native form.
func (h TransactionHash) String() string { return h.value }

// IsEVM reports whether this is an EVM-style hex hash.
func (h TransactionHash) IsEVM() bool { return h.isEvm }

// base58Valid reports whether s decodes as base58.
func base58Valid(s string) bool {
	_, err := base58.Decode(s)
	return err == nil
}

// EvmAuthorization is the ERC-3009 transferWithAuthorization argument tuple
// signed by the payer under the token contract's EIP-712 domain.
type EvmAuthorization struct {
	From        EvmAddress      `json:"from"`
	To          EvmAddress      `json:"to"`
	Value       TokenAmount     `json:"value"`
	ValidAfter  int64           `json:"validAfter,string"`
	ValidBefore int64           `json:"validBefore,string"`
	Nonce       HexEncodedNonce `json:"nonce"`
}

// SuiAuthorization is the payload signed under the Sui personal-message
// intent. It additionally carries the coin type being transferred.
type SuiAuthorization struct {
	From        SuiAddress      `json:"from"`
	To          SuiAddress      `json:"to"`
	Value       TokenAmount     `json:"value"`
	ValidAfter  int64           `json:"validAfter"`
	ValidBefore int64           `json:"validBefore"`
	Nonce       HexEncodedNonce `json:"nonce"`
	CoinType    string          `json:"coinType"`
}

// EvmPayload is the EVM variant of PaymentPayload.payload.
type EvmPayload struct {
	Signature     string           `json:"signature"`
	Authorization EvmAuthorization `json:"authorization"`
}

// SuiPayload is the Sui variant of PaymentPayload.payload.
type SuiPayload struct {
	Signature     string           `json:"signature"`
	Authorization SuiAuthorization `json:"authorization"`
}

// PaymentPayload is carried base64-JSON in the X-PAYMENT header or request
// body. Payload is the union {EvmPayload, SuiPayload} selected by Network.
type PaymentPayload struct {
	X402Version X402Version     `json:"x402Version"`
	Scheme      Scheme          `json:"scheme"`
	Network     Network         `json:"network"`
	Payload     json.RawMessage `json:"payload"`
}

// EVM decodes Payload as the EVM variant. Callers must check Network.IsEVM()
// before calling.
func (p PaymentPayload) EVM() (EvmPayload, error) {
	var out EvmPayload
	if err := json.Unmarshal(p.Payload, &out); err != nil {
		return EvmPayload{}, fmt.Errorf("x402: invalid evm payload: %w", err)
	}
	return out, nil
}

// Sui decodes Payload as the Sui variant. Callers must check Network.IsSui()
// before calling.
func (p PaymentPayload) Sui() (SuiPayload, error) {
	var out SuiPayload
	if err := json.Unmarshal(p.Payload, &out); err != nil {
		return SuiPayload{}, fmt.Errorf("x402: invalid sui payload: %w", err)
	}
	return out, nil
}

// PayToAddress is the union {EvmAddress, SuiAddress}; requirements carry a
// plain string and adapters interpret it against their own address family.
type PayToAddress string

// AssetId identifies the token/coin being transferred: an EVM contract
// address or a Sui coin type string.
type AssetId string

// PaymentRequirements is constructed by the merchant per resource and
// consumed immutably by the facilitator.
type PaymentRequirements struct {
	Scheme            Scheme                 `json:"scheme"`
	Network           Network                `json:"network"`
	MaxAmountRequired TokenAmount            `json:"maxAmountRequired"`
	Resource          string                 `json:"resource"`
	Description       string                 `json:"description,omitempty"`
	MimeType          string                 `json:"mimeType,omitempty"`
	PayTo             PayToAddress           `json:"payTo"`
	Asset             AssetId                `json:"asset"`
	MaxTimeoutSeconds int                    `json:"maxTimeoutSeconds"`
	Extra             map[string]interface{} `json:"extra,omitempty"`
}

// VerifyRequest is the body of POST /verify.
type VerifyRequest struct {
	X402Version         X402Version         `json:"x402Version"`
	PaymentPayload      PaymentPayload      `json:"paymentPayload"`
	PaymentRequirements PaymentRequirements `json:"paymentRequirements"`
}

// SettleRequest is the body of POST /settle.
type SettleRequest struct {
	X402Version         X402Version         `json:"x402Version"`
	PaymentPayload      PaymentPayload      `json:"paymentPayload"`
	PaymentRequirements PaymentRequirements `json:"paymentRequirements"`
}

// VerifyResponse is the result of a verify call: either valid with a payer,
// or invalid with a reason and (if known) the payer.
type VerifyResponse struct {
	IsValid       bool                   `json:"isValid"`
	InvalidReason FacilitatorErrorReason `json:"invalidReason,omitempty"`
	Payer         string                 `json:"payer,omitempty"`
}

// SettleResponse is the result of a settle call. Transaction is a plain
// string on the wire, matching the x402 protocol's response shape; adapters
// populate it via NewEvmTransactionHash/NewSuiTransactionHash and
// TransactionHash.String(), which keep the signer- or node-supplied hash
// string unchanged.
type SettleResponse struct {
	Success     bool                   `json:"success"`
	ErrorReason FacilitatorErrorReason `json:"errorReason,omitempty"`
	Payer       string                 `json:"payer,omitempty"`
	Transaction string                 `json:"transaction,omitempty"`
	Network     Network                `json:"network,omitempty"`
}

// SupportedKind is one (x402Version, scheme, network) triple the
// facilitator can serve.
type SupportedKind struct {
	X402Version X402Version `json:"x402Version"`
	Scheme      Scheme      `json:"scheme"`
	Network     Network     `json:"network"`
}

// SupportedResponse is the body of GET /supported.
type SupportedResponse struct {
	Kinds []SupportedKind `json:"kinds"`
}
