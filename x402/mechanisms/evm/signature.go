package evm

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// secp256k1HalfN is half the secp256k1 curve order. An S value above this
// is the malleable (non-canonical) counterpart of a valid signature and
// must be rejected, matching the check Ethereum clients apply to
// transaction signatures.
var secp256k1HalfN, _ = new(big.Int).SetString("7FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFF5D576E7357A4501DDFE92F46681B20A0", 16)

// NormalizeV maps a raw recovery id of 0/1/27/28 to the canonical 27/28
// form wallets and go-ethereum's Ecrecover helpers expect.
func NormalizeV(v byte) (byte, error) {
	switch v {
	case 0, 1:
		return v + 27, nil
	case 27, 28:
		return v, nil
	default:
		return 0, fmt.Errorf("evm: invalid recovery id %d", v)
	}
}

// RecoverSigner recovers the signer address from an EIP-712 digest and a
// (r, s, v) signature, rejecting malleable (high-S) signatures and
// canonicalizing v first.
func RecoverSigner(digest [32]byte, r, s [32]byte, v byte) (common.Address, error) {
	normV, err := NormalizeV(v)
	if err != nil {
		return common.Address{}, err
	}
	if isHighS(s) {
		return common.Address{}, fmt.Errorf("evm: malleable signature (high S)")
	}

	sig := make([]byte, 65)
	copy(sig[0:32], r[:])
	copy(sig[32:64], s[:])
	sig[64] = normV - 27

	pubKeyBytes, err := crypto.Ecrecover(digest[:], sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("evm: signature recovery failed: %w", err)
	}
	pubKey, err := crypto.UnmarshalPubkey(pubKeyBytes)
	if err != nil {
		return common.Address{}, fmt.Errorf("evm: invalid recovered public key: %w", err)
	}
	return crypto.PubkeyToAddress(*pubKey), nil
}

func isHighS(s [32]byte) bool {
	sInt := new(big.Int).SetBytes(s[:])
	return sInt.Cmp(secp256k1HalfN) > 0
}

// EqualAddress compares two hex-ish EVM addresses case-insensitively; kept
// alongside the signature helpers since recovery and receiver matching are
// always performed together in the verify algorithm.
func EqualAddress(a, b common.Address) bool {
	return bytes.Equal(a.Bytes(), b.Bytes())
}
