package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreRoundTrip(t *testing.T) {
	store := NewStore(Options{})
	ctx := t.Context()

	require.NoError(t, store.SetString(ctx, "greeting", "hello", time.Minute))
	value, ok := store.GetString(ctx, "greeting")
	require.True(t, ok)
	assert.Equal(t, "hello", value)

	_, ok = store.GetString(ctx, "missing")
	assert.False(t, ok)

	store.Delete(ctx, "greeting")
	_, ok = store.GetString(ctx, "greeting")
	assert.False(t, ok)
}

func TestStoreJSON(t *testing.T) {
	store := NewStore(Options{})
	ctx := t.Context()

	type bank struct {
		Name string `json:"name"`
		Code string `json:"code"`
	}
	banks := []bank{{Name: "GTBank", Code: "058"}, {Name: "Zenith", Code: "057"}}
	require.NoError(t, store.SetJSON(ctx, "banks", banks, time.Minute))

	var out []bank
	found, err := store.GetJSON(ctx, "banks", &out)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, banks, out)

	found, err = store.GetJSON(ctx, "absent", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestStoreBytesAreCopied(t *testing.T) {
	store := NewStore(Options{})
	ctx := t.Context()

	buf := []byte("original")
	require.NoError(t, store.SetBytes(ctx, "blob", buf, time.Minute))
	buf[0] = 'X'

	stored, ok := store.GetBytes(ctx, "blob")
	require.True(t, ok)
	assert.Equal(t, []byte("original"), stored)

	// Mutating the returned slice must not corrupt the cached copy.
	stored[0] = 'Y'
	again, ok := store.GetBytes(ctx, "blob")
	require.True(t, ok)
	assert.Equal(t, []byte("original"), again)
}

func TestStoreNamespaceIsolation(t *testing.T) {
	store := NewStore(Options{Prefix: "app"})
	ctx := t.Context()
	otp := store.Namespace("otp")
	rate := store.Namespace("rate")

	require.NoError(t, otp.SetString(ctx, "k", "one", time.Minute))
	require.NoError(t, rate.SetString(ctx, "k", "two", time.Minute))

	value, ok := otp.GetString(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "one", value)

	value, ok = rate.GetString(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "two", value)

	_, ok = store.GetString(ctx, "k")
	assert.False(t, ok)
}

func TestStoreIncrement(t *testing.T) {
	store := NewStore(Options{})
	ctx := t.Context()

	n, err := store.Increment(ctx, "hits", 1, time.Minute)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = store.Increment(ctx, "hits", 4, time.Minute)
	require.NoError(t, err)
	assert.EqualValues(t, 5, n)

	n, err = store.Increment(ctx, "  ", 1, time.Minute)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStoreTTL(t *testing.T) {
	store := NewStore(Options{})
	ctx := t.Context()

	require.NoError(t, store.SetString(ctx, "timed", "x", time.Hour))
	ttl, ok := store.TTL(ctx, "timed")
	require.True(t, ok)
	assert.Greater(t, ttl, 59*time.Minute)

	_, ok = store.TTL(ctx, "missing")
	assert.False(t, ok)
}
