package x402

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryNonceStoreReserveIsOneShot(t *testing.T) {
	store := NewMemoryNonceStore()
	nonce := HexEncodedNonce("0x" + repeatHex("ab", 32))

	ok, err := store.Reserve(NetworkBase, nonce, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Reserve(NetworkBase, nonce, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, ok, "second reservation of the same nonce must fail")
}

func TestMemoryNonceStoreScopesNonceByNetwork(t *testing.T) {
	store := NewMemoryNonceStore()
	nonce := HexEncodedNonce("0x" + repeatHex("cd", 32))

	ok, err := store.Reserve(NetworkBase, nonce, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Reserve(NetworkAvalanche, nonce, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, ok, "same nonce on a different network must be reservable")
}

func TestMemoryNonceStoreAllowsReReservationAfterExpiry(t *testing.T) {
	store := NewMemoryNonceStore()
	nonce := HexEncodedNonce("0x" + repeatHex("ef", 32))

	ok, err := store.Reserve(NetworkBase, nonce, time.Now().Add(-time.Minute))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Reserve(NetworkBase, nonce, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, ok, "an expired reservation must not block a fresh one")
}

func TestMemoryNonceStoreReserveIsConcurrencySafe(t *testing.T) {
	store := NewMemoryNonceStore()
	nonce := HexEncodedNonce("0x" + repeatHex("01", 32))

	const attempts = 50
	var wg sync.WaitGroup
	successes := make(chan bool, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, _ := store.Reserve(NetworkBase, nonce, time.Now().Add(time.Hour))
			successes <- ok
		}()
	}
	wg.Wait()
	close(successes)

	trueCount := 0
	for ok := range successes {
		if ok {
			trueCount++
		}
	}
	assert.Equal(t, 1, trueCount, "exactly one concurrent reservation may succeed")
}

func repeatHex(pair string, n int) string {
	out := make([]byte, 0, len(pair)*n)
	for i := 0; i < n; i++ {
		out = append(out, pair...)
	}
	return string(out)
}
