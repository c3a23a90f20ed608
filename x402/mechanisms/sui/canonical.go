// Package sui implements the x402 ChainAdapter for Sui, verifying payments
// signed under the Sui personal-message intent scheme and settling them as
// programmable transaction blocks.
package sui

import (
	"fmt"
	"strings"

	"github.com/longcipher/ledgerflow/x402"
)

// intent is the fixed {scope, version, appId} triple every LedgerFlow Sui
// authorization is signed under.
type intent struct {
	Scope   string `json:"scope"`
	Version string `json:"version"`
	AppId   string `json:"appId"`
}

var fixedIntent = intent{Scope: "PersonalMessage", Version: "V0", AppId: "Sui"}

// canonicalAuthorizationJSON rebuilds the exact byte sequence the payer
// signed: intent before authorization, and within authorization the fixed
// field order from, to, value, validAfter, validBefore, nonce, coinType.
// This is assembled by hand (not json.Marshal of a struct) because field
// order and number-vs-string formatting must match byte for byte, and
// encoding/json does not guarantee map key order or let a struct mix
// quoted/unquoted numeric fields per field.
func canonicalAuthorizationJSON(auth x402.SuiAuthorization) (string, error) {
	if !strings.HasPrefix(string(auth.From), "0x") || !strings.HasPrefix(string(auth.To), "0x") {
		return "", fmt.Errorf("sui: addresses must be 0x-prefixed")
	}
	if !auth.Nonce.Valid() {
		return "", fmt.Errorf("sui: invalid nonce shape")
	}

	var b strings.Builder
	b.WriteString(`{"intent":{"scope":"`)
	b.WriteString(fixedIntent.Scope)
	b.WriteString(`","version":"`)
	b.WriteString(fixedIntent.Version)
	b.WriteString(`","appId":"`)
	b.WriteString(fixedIntent.AppId)
	b.WriteString(`"},"authorization":{"from":"`)
	b.WriteString(strings.ToLower(string(auth.From)))
	b.WriteString(`","to":"`)
	b.WriteString(strings.ToLower(string(auth.To)))
	b.WriteString(`","value":"`)
	b.WriteString(auth.Value.String())
	b.WriteString(`","validAfter":`)
	fmt.Fprintf(&b, "%d", auth.ValidAfter)
	b.WriteString(`,"validBefore":`)
	fmt.Fprintf(&b, "%d", auth.ValidBefore)
	b.WriteString(`,"nonce":"`)
	b.WriteString(strings.ToLower(string(auth.Nonce)))
	b.WriteString(`","coinType":"`)
	b.WriteString(auth.CoinType)
	b.WriteString(`"}}`)

	return b.String(), nil
}
