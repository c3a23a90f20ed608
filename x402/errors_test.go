package x402

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerifyErrorUnwrapsUnderlyingError(t *testing.T) {
	underlying := errors.New("rpc timeout")
	vErr := NewVerifyError(ReasonUnexpectedSettleError, "0xabc", NetworkBase, underlying)

	assert.ErrorIs(t, vErr, underlying)
	assert.Contains(t, vErr.Error(), "rpc timeout")
	assert.Contains(t, vErr.Error(), string(ReasonUnexpectedSettleError))
}

func TestVerifyErrorWithoutUnderlyingErrorStillFormats(t *testing.T) {
	vErr := NewVerifyError(ReasonInvalidSignature, "", NetworkBase, nil)
	assert.Contains(t, vErr.Error(), string(ReasonInvalidSignature))
	assert.Nil(t, vErr.Unwrap())
}

func TestSettleErrorUnwrapsUnderlyingError(t *testing.T) {
	underlying := errors.New("nonce already used")
	sErr := NewSettleError(ReasonInvalidTiming, "0xabc", NetworkBase, "", underlying)

	assert.ErrorIs(t, sErr, underlying)
	assert.Contains(t, sErr.Error(), "nonce already used")
}

func TestSettleErrorCarriesTransactionHash(t *testing.T) {
	sErr := NewSettleError(ReasonUnexpectedSettleError, "0xabc", NetworkBase, "0xdeadbeef", errors.New("broadcast failed"))
	assert.Equal(t, "0xdeadbeef", sErr.Transaction)
}
