package sui

import (
	"crypto/ed25519"
	"crypto/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveAddressIsDeterministic(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	a, err := deriveAddress(SchemeEd25519, pub)
	require.NoError(t, err)
	b, err := deriveAddress(SchemeEd25519, pub)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.True(t, strings.HasPrefix(a, "0x"))
	assert.Len(t, a, 66) // "0x" + 64 hex chars
}

func TestDeriveAddressDiffersBySchemeFlag(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	a, err := deriveAddress(SchemeEd25519, pub)
	require.NoError(t, err)
	b, err := deriveAddress(SchemeSecp256k1, pub)
	require.NoError(t, err)
	assert.NotEqual(t, a, b, "the scheme flag must be domain-separated into the address")
}

func TestDeriveAddressDiffersByPublicKey(t *testing.T) {
	pubA, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	pubB, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	a, err := deriveAddress(SchemeEd25519, pubA)
	require.NoError(t, err)
	b, err := deriveAddress(SchemeEd25519, pubB)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
