package sui

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"math/big"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	dcrecdsa "github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
)

// SchemeFlag identifies the curve/scheme a Sui signature blob was produced
// with, carried as the final byte of the blob.
type SchemeFlag byte

const (
	SchemeEd25519   SchemeFlag = 0
	SchemeSecp256k1 SchemeFlag = 1
	SchemeSecp256r1 SchemeFlag = 2
	SchemeMultiSig  SchemeFlag = 3
)

const (
	ed25519SigLen    = 64
	ed25519PubKeyLen = 32
	ecdsaSigLen      = 64
	ecdsaPubKeyLen   = 33 // compressed
)

// signatureBlob is a decoded [signature ‖ publicKey ‖ schemeFlag] envelope.
type signatureBlob struct {
	Scheme    SchemeFlag
	Signature []byte
	PublicKey []byte
}

// parseSignatureBlob decodes and sanity-checks a base64 Sui intent
// signature: total length 65-200 bytes, scheme flag in [0,3], and a length
// consistent with the claimed scheme.
func parseSignatureBlob(b64 string) (signatureBlob, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return signatureBlob{}, fmt.Errorf("sui: invalid base64 signature: %w", err)
	}
	if len(raw) < 65 || len(raw) > 200 {
		return signatureBlob{}, fmt.Errorf("sui: signature length %d out of range", len(raw))
	}

	flag := SchemeFlag(raw[len(raw)-1])
	if flag > SchemeMultiSig {
		return signatureBlob{}, fmt.Errorf("sui: unknown scheme flag %d", flag)
	}
	if flag == SchemeMultiSig {
		return signatureBlob{}, fmt.Errorf("sui: multisig not supported")
	}

	body := raw[:len(raw)-1]

	var pubKeyLen int
	switch flag {
	case SchemeEd25519:
		pubKeyLen = ed25519PubKeyLen
	case SchemeSecp256k1, SchemeSecp256r1:
		pubKeyLen = ecdsaPubKeyLen
	}

	wantLen := ed25519SigLen + pubKeyLen
	if flag != SchemeEd25519 {
		wantLen = ecdsaSigLen + pubKeyLen
	}
	if len(body) != wantLen {
		return signatureBlob{}, fmt.Errorf("sui: scheme %d expects body length %d, got %d", flag, wantLen, len(body))
	}

	sigLen := len(body) - pubKeyLen
	return signatureBlob{
		Scheme:    flag,
		Signature: body[:sigLen],
		PublicKey: body[sigLen:],
	}, nil
}

// verify checks blob.Signature against message under the curve blob.Scheme
// names, using sha256(message) as the signed digest for the ECDSA schemes
// (Ed25519 signs the message directly, per the standard).
func (b signatureBlob) verify(message []byte) error {
	switch b.Scheme {
	case SchemeEd25519:
		if len(b.PublicKey) != ed25519.PublicKeySize {
			return fmt.Errorf("sui: bad ed25519 public key length")
		}
		if !ed25519.Verify(ed25519.PublicKey(b.PublicKey), message, b.Signature) {
			return fmt.Errorf("sui: ed25519 signature verification failed")
		}
		return nil

	case SchemeSecp256k1:
		pub, err := secp256k1.ParsePubKey(b.PublicKey)
		if err != nil {
			return fmt.Errorf("sui: bad secp256k1 public key: %w", err)
		}
		var r, s secp256k1.ModNScalar
		r.SetByteSlice(b.Signature[:32])
		s.SetByteSlice(b.Signature[32:64])
		sig := dcrecdsa.NewSignature(&r, &s)
		digest := sha256.Sum256(message)
		if !sig.Verify(digest[:], pub) {
			return fmt.Errorf("sui: secp256k1 signature verification failed")
		}
		return nil

	case SchemeSecp256r1:
		x, y := elliptic.UnmarshalCompressed(elliptic.P256(), b.PublicKey)
		if x == nil {
			return fmt.Errorf("sui: bad secp256r1 public key")
		}
		pub := &ecdsa.PublicKey{Curve: elliptic.P256(), X: x, Y: y}
		digest := sha256.Sum256(message)
		r := new(big.Int).SetBytes(b.Signature[:32])
		s := new(big.Int).SetBytes(b.Signature[32:64])
		if !ecdsa.Verify(pub, digest[:], r, s) {
			return fmt.Errorf("sui: secp256r1 signature verification failed")
		}
		return nil

	default:
		return fmt.Errorf("sui: unsupported scheme %d", b.Scheme)
	}
}
