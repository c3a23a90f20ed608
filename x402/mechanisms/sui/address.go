package sui

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// deriveAddress computes the Sui address for a (scheme flag, public key)
// pair: blake2b-256(flag ‖ pubkey), hex-encoded with a "0x" prefix. This is
// the standard Sui address derivation and is how the adapter checks that a
// signature's embedded public key actually belongs to authorization.from.
func deriveAddress(flag SchemeFlag, pubKey []byte) (string, error) {
	h, err := blake2b.New256(nil)
	if err != nil {
		return "", err
	}
	h.Write([]byte{byte(flag)})
	h.Write(pubKey)
	sum := h.Sum(nil)
	return "0x" + hex.EncodeToString(sum), nil
}
