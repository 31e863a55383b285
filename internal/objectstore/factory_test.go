package objectstore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/membase/internal/config"
)

func TestFactoryDegradesToMemoryWithoutCredentials(t *testing.T) {
	cases := []config.ObjectStoreConfig{
		{},
		{Provider: "s3", Bucket: "b"},
		{Provider: "bos", Endpoint: "bj.bcebos.com", Bucket: "b", AccessKeyID: "ak"},
		{Provider: "oss", Endpoint: "oss-cn-hangzhou.aliyuncs.com", AccessKeyID: "ak", SecretAccessKey: "sk"},
	}

	for _, cfg := range cases {
		backend := NewFromConfig(cfg)
		_, ok := backend.(*Memory)
		assert.True(t, ok, "incomplete config %+v should yield the in-memory backend", cfg)
	}
}

func TestFactoryProviderSelection(t *testing.T) {
	full := config.ObjectStoreConfig{
		Endpoint:        "store.example.com",
		Bucket:          "memories",
		AccessKeyID:     "ak",
		SecretAccessKey: "sk",
	}

	full.Provider = "s3"
	_, isS3 := NewFromConfig(full).(*S3)
	assert.True(t, isS3)

	full.Provider = "" // default
	_, isS3 = NewFromConfig(full).(*S3)
	assert.True(t, isS3)

	full.Provider = "BOS" // case-insensitive
	_, isBOS := NewFromConfig(full).(*BOS)
	assert.True(t, isBOS)

	full.Provider = "oss"
	_, isOSS := NewFromConfig(full).(*OSS)
	assert.True(t, isOSS)

	full.Provider = "gcs" // unknown providers degrade rather than raise
	_, isMem := NewFromConfig(full).(*Memory)
	assert.True(t, isMem)
}

func TestNormalizeEndpoint(t *testing.T) {
	assert.Equal(t, "https://bj.bcebos.com", normalizeEndpoint("bj.bcebos.com"))
	assert.Equal(t, "http://localhost:9000", normalizeEndpoint("http://localhost:9000"))
	assert.Equal(t, "https://s3.example.com", normalizeEndpoint("https://s3.example.com"))
}

// failingBackend always errors; used to drive the breaker open.
type failingBackend struct{ err error }

func (f *failingBackend) Put(context.Context, string, []byte, string) error { return f.err }
func (f *failingBackend) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, f.err
}
func (f *failingBackend) Delete(context.Context, string) error        { return f.err }
func (f *failingBackend) List(context.Context, string) ([]string, error) { return nil, f.err }

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("transport down")
	b := WithBreaker(&failingBackend{err: boom}, BreakerConfig{MaxFailures: 3})

	// First failures propagate the original error unmodified.
	for i := 0; i < 3; i++ {
		_, _, err := b.Get(ctx, "k")
		require.ErrorIs(t, err, boom)
	}

	// Circuit is now open: calls short-circuit with ErrCircuitOpen.
	_, _, err := b.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCircuitOpen)

	err = b.Put(ctx, "k", nil, "")
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestBreakerNotFoundIsNotAFailure(t *testing.T) {
	ctx := context.Background()
	b := WithBreaker(NewMemory(), BreakerConfig{MaxFailures: 2})

	// Absent keys are values, not errors; they must never trip the circuit.
	for i := 0; i < 10; i++ {
		_, found, err := b.Get(ctx, "missing")
		require.NoError(t, err)
		require.False(t, found)
	}
}

func TestRateLimitHonorsCancelledContext(t *testing.T) {
	b := WithRateLimit(NewMemory(), 0.0001, 1)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, b.Put(ctx, "k", []byte("v"), "")) // consumes the burst
	cancel()

	err := b.Put(ctx, "k2", []byte("v"), "")
	assert.Error(t, err, "a cancelled context should abort the limiter wait")
}
