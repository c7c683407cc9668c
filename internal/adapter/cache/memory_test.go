package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryAdapter_SetGet(t *testing.T) {
	a := NewMemoryAdapter()
	ctx := context.Background()

	_, ok, err := a.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, a.Set(ctx, "k", []byte("v"), time.Minute))

	data, ok, err := a.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v"), data)
}

func TestMemoryAdapter_LazyExpiry(t *testing.T) {
	now := time.Unix(1000, 0)
	a := NewMemoryAdapterWithClock(func() time.Time { return now })
	ctx := context.Background()

	require.NoError(t, a.Set(ctx, "k", []byte("v"), 10*time.Second))

	_, ok, err := a.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	now = now.Add(11 * time.Second)

	_, ok, err = a.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok, "expired entry must behave as absent")

	// the expired read evicted the entry; a fresh Set takes over cleanly
	require.NoError(t, a.Set(ctx, "k", []byte("v2"), 10*time.Second))
	data, ok, err := a.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v2"), data)
}

func TestMemoryAdapter_Overwrite(t *testing.T) {
	a := NewMemoryAdapter()
	ctx := context.Background()

	require.NoError(t, a.Set(ctx, "k", []byte("old"), time.Minute))
	require.NoError(t, a.Set(ctx, "k", []byte("new"), time.Minute))

	data, ok, err := a.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("new"), data)
}

func TestMemoryAdapter_Delete(t *testing.T) {
	a := NewMemoryAdapter()
	ctx := context.Background()

	require.NoError(t, a.Set(ctx, "k", []byte("v"), time.Minute))
	require.NoError(t, a.Delete(ctx, "k"))

	_, ok, err := a.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}
