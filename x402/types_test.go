package x402

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNetworkClassification(t *testing.T) {
	evmNetworks := []Network{NetworkBase, NetworkBaseSepolia, NetworkAvalanche, NetworkAvalancheFuji, NetworkXDCMainnet}
	for _, n := range evmNetworks {
		assert.True(t, n.IsEVM(), "%s should be EVM", n)
		assert.False(t, n.IsSui(), "%s should not be Sui", n)
		assert.True(t, n.Valid())
	}

	suiNetworks := []Network{NetworkSuiMainnet, NetworkSuiTestnet, NetworkSuiDevnet}
	for _, n := range suiNetworks {
		assert.True(t, n.IsSui(), "%s should be Sui", n)
		assert.False(t, n.IsEVM(), "%s should not be EVM", n)
		assert.True(t, n.Valid())
	}

	assert.False(t, Network("ethereum-mainnet").Valid())
}

func TestParseTokenAmount(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"zero", "0", false},
		{"plain digits", "1000000", false},
		{"empty", "", true},
		{"negative", "-1", true},
		{"leading plus", "+1", true},
		{"non-digit", "1e6", true},
		{"whitespace", "10 00", true},
		{"overflow", strings.Repeat("9", 100), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTokenAmount(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTokenAmountCmp(t *testing.T) {
	a := MustTokenAmount("100")
	b := MustTokenAmount("200")
	assert.Equal(t, -1, a.Cmp(b))
	assert.Equal(t, 1, b.Cmp(a))
	assert.Equal(t, 0, a.Cmp(MustTokenAmount("100")))
}

func TestTokenAmountJSONRoundTrip(t *testing.T) {
	a := MustTokenAmount("123456789")
	data, err := json.Marshal(a)
	require.NoError(t, err)
	assert.Equal(t, `"123456789"`, string(data))

	var b TokenAmount
	require.NoError(t, json.Unmarshal(data, &b))
	assert.Equal(t, 0, a.Cmp(b))
}

func TestTokenAmountZeroValueStringsAsZero(t *testing.T) {
	var a TokenAmount
	assert.Equal(t, "0", a.String())
}

func TestParseEvmAddressNormalizesCase(t *testing.T) {
	addr, err := ParseEvmAddress("0xAbCdEf0123456789AbCdEf0123456789aBcDeF01")
	require.NoError(t, err)
	assert.Equal(t, EvmAddress("0xabcdef0123456789abcdef0123456789abcdef01"), addr)

	_, err = ParseEvmAddress("not-an-address")
	assert.Error(t, err)
}

func TestEvmAddressEqualIsCaseInsensitive(t *testing.T) {
	a := EvmAddress("0xabcdef0123456789abcdef0123456789abcdef01")
	b := EvmAddress("0xABCDEF0123456789ABCDEF0123456789ABCDEF01")
	assert.True(t, a.Equal(b))
}

func TestParseSuiAddressRejectsWrongLength(t *testing.T) {
	_, err := ParseSuiAddress("0x1234")
	assert.Error(t, err)

	addr, err := ParseSuiAddress("0x" + strings.Repeat("AB", 32))
	require.NoError(t, err)
	assert.Equal(t, strings.ToLower("0x"+strings.Repeat("AB", 32)), string(addr))
}

func TestParseEvmSignatureNormalizesRecoveryID(t *testing.T) {
	raw := make([]byte, 65)
	raw[64] = 0
	sig, err := ParseEvmSignature("0x" + hexEncode(raw))
	require.NoError(t, err)
	assert.Equal(t, byte(27), sig.V)

	raw[64] = 1
	sig, err = ParseEvmSignature("0x" + hexEncode(raw))
	require.NoError(t, err)
	assert.Equal(t, byte(28), sig.V)

	raw[64] = 27
	sig, err = ParseEvmSignature("0x" + hexEncode(raw))
	require.NoError(t, err)
	assert.Equal(t, byte(27), sig.V)
}

func TestParseEvmSignatureRejectsWrongLength(t *testing.T) {
	_, err := ParseEvmSignature("0x1234")
	assert.Error(t, err)
}

func TestEvmSignatureBytesRoundTrip(t *testing.T) {
	raw := make([]byte, 65)
	for i := range raw {
		raw[i] = byte(i)
	}
	raw[64] = 27
	sig, err := ParseEvmSignature("0x" + hexEncode(raw))
	require.NoError(t, err)
	assert.Equal(t, raw, sig.Bytes())
}

func TestHexEncodedNonceValid(t *testing.T) {
	valid := HexEncodedNonce("0x" + strings.Repeat("a", 64))
	assert.True(t, valid.Valid())

	assert.False(t, HexEncodedNonce("0xabc").Valid())
	assert.False(t, HexEncodedNonce(strings.Repeat("a", 64)).Valid())
	assert.False(t, HexEncodedNonce("0x"+strings.Repeat("A", 64)).Valid())
}

func TestParseTransactionHashDetectsEvmVsSui(t *testing.T) {
	evm := ParseTransactionHash("0x" + strings.Repeat("a", 64))
	assert.True(t, evm.IsEVM())

	sui := ParseTransactionHash("3vQB7B6MrGQZaxCuFg4oh")
	assert.False(t, sui.IsEVM())
}

func TestParseTransactionHashLowercasesEvmHex(t *testing.T) {
	h := ParseTransactionHash("0x" + strings.Repeat("AB", 32))
	assert.Equal(t, "0x"+strings.Repeat("ab", 32), h.String())
}

func hexEncode(b []byte) string {
	const hexDigits = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, v := range b {
		out[i*2] = hexDigits[v>>4]
		out[i*2+1] = hexDigits[v&0xf]
	}
	return string(out)
}
