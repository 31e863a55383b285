package objectstore

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runBackendContract exercises the semantics every Backend implementation
// must satisfy: exact byte round-trips, absent-as-value gets, idempotent
// deletes, and exact prefix listing. It runs here against the reference
// backend and the decorators; the vendor adapters satisfy the same contract
// against live buckets.
func runBackendContract(t *testing.T, newBackend func() Backend) {
	t.Helper()
	ctx := context.Background()

	t.Run("put then get returns exact bytes", func(t *testing.T) {
		b := newBackend()
		payload := []byte(`{"name":"测试"}`)
		require.NoError(t, b.Put(ctx, "profiles/u1.json", payload, "application/json"))

		data, found, err := b.Get(ctx, "profiles/u1.json")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, payload, data)
	})

	t.Run("get never-written key is absent not error", func(t *testing.T) {
		b := newBackend()
		data, found, err := b.Get(ctx, "profiles/missing.json")
		require.NoError(t, err)
		assert.False(t, found)
		assert.Nil(t, data)
	})

	t.Run("put overwrites whole value", func(t *testing.T) {
		b := newBackend()
		require.NoError(t, b.Put(ctx, "k", []byte("first"), ""))
		require.NoError(t, b.Put(ctx, "k", []byte("second"), ""))

		data, found, err := b.Get(ctx, "k")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, []byte("second"), data)
	})

	t.Run("get after delete is absent", func(t *testing.T) {
		b := newBackend()
		require.NoError(t, b.Put(ctx, "k", []byte("v"), ""))
		require.NoError(t, b.Delete(ctx, "k"))

		_, found, err := b.Get(ctx, "k")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("delete non-existent key succeeds", func(t *testing.T) {
		b := newBackend()
		assert.NoError(t, b.Delete(ctx, "never-written"))
	})

	t.Run("list returns exactly the live keys under prefix", func(t *testing.T) {
		b := newBackend()
		require.NoError(t, b.Put(ctx, "profiles/u1.json", []byte("{}"), ""))
		require.NoError(t, b.Put(ctx, "profiles/u2.json", []byte("{}"), ""))
		require.NoError(t, b.Put(ctx, "knowledge/u1.jsonl", nil, ""))
		require.NoError(t, b.Put(ctx, "profiles/u3.json", []byte("{}"), ""))
		require.NoError(t, b.Delete(ctx, "profiles/u3.json"))

		keys, err := b.List(ctx, "profiles/")
		require.NoError(t, err)
		sort.Strings(keys)
		assert.Equal(t, []string{"profiles/u1.json", "profiles/u2.json"}, keys)
	})

	t.Run("list with empty prefix returns everything", func(t *testing.T) {
		b := newBackend()
		require.NoError(t, b.Put(ctx, "a", []byte("1"), ""))
		require.NoError(t, b.Put(ctx, "b", []byte("2"), ""))

		keys, err := b.List(ctx, "")
		require.NoError(t, err)
		assert.Len(t, keys, 2)
	})
}

func TestMemoryBackendContract(t *testing.T) {
	runBackendContract(t, func() Backend { return NewMemory() })
}

func TestBreakerBackendContract(t *testing.T) {
	runBackendContract(t, func() Backend {
		return WithBreaker(NewMemory(), BreakerConfig{})
	})
}

func TestRateLimitedBackendContract(t *testing.T) {
	runBackendContract(t, func() Backend {
		return WithRateLimit(NewMemory(), 10_000, 100)
	})
}

func TestMemoryGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Put(ctx, "k", []byte("abc"), ""))

	data, _, err := m.Get(ctx, "k")
	require.NoError(t, err)
	data[0] = 'X'

	again, _, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), again, "mutating a returned slice must not corrupt the store")
}

func TestMemoryLen(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	assert.Equal(t, 0, m.Len())

	require.NoError(t, m.Put(ctx, "a", []byte("1"), ""))
	require.NoError(t, m.Put(ctx, "b", []byte("2"), ""))
	require.NoError(t, m.Put(ctx, "a", []byte("3"), "")) // overwrite, not a new object
	assert.Equal(t, 2, m.Len())

	require.NoError(t, m.Delete(ctx, "a"))
	assert.Equal(t, 1, m.Len())
}
