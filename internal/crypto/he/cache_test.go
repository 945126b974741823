package he

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/S-Corkum/secureann/internal/observability"
)

func TestContextCache_PutGetEvict(t *testing.T) {
	cache, err := NewContextCache(2, observability.NoopLogger{}, observability.NoopMetrics{})
	require.NoError(t, err)

	params, err := NewLocalKeyMaterial(4)
	require.NoError(t, err)
	ctx, err := CreateContext("tenant-a", params)
	require.NoError(t, err)

	_, ok := cache.Get("tenant-a")
	assert.False(t, ok)

	cache.Put("tenant-a", ctx)
	got, ok := cache.Get("tenant-a")
	assert.True(t, ok)
	assert.Same(t, ctx, got)

	cache.Evict("tenant-a")
	_, ok = cache.Get("tenant-a")
	assert.False(t, ok)
}

func TestContextCache_EvictsLeastRecentlyUsed(t *testing.T) {
	cache, err := NewContextCache(1, observability.NoopLogger{}, observability.NoopMetrics{})
	require.NoError(t, err)

	params, err := NewLocalKeyMaterial(4)
	require.NoError(t, err)
	ctxA, err := CreateContext("tenant-a", params)
	require.NoError(t, err)
	ctxB, err := CreateContext("tenant-b", params)
	require.NoError(t, err)

	cache.Put("tenant-a", ctxA)
	cache.Put("tenant-b", ctxB)

	_, ok := cache.Get("tenant-a")
	assert.False(t, ok, "tenant-a should have been evicted once capacity was exceeded")

	got, ok := cache.Get("tenant-b")
	assert.True(t, ok)
	assert.Same(t, ctxB, got)
}
