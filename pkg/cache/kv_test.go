package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryKV_SetGet(t *testing.T) {
	kv := NewMemoryKV()
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "locations", `[{"id":"a99"}]`, 0))

	val, err := kv.Get(ctx, "locations")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"a99"}]`, val)
}

func TestMemoryKV_Miss(t *testing.T) {
	kv := NewMemoryKV()

	_, err := kv.Get(context.Background(), "absent")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestMemoryKV_Expiry(t *testing.T) {
	kv := NewMemoryKV()
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "stats:a99", "{}", time.Nanosecond))
	time.Sleep(5 * time.Millisecond)

	_, err := kv.Get(ctx, "stats:a99")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestMemoryKV_Delete(t *testing.T) {
	kv := NewMemoryKV()
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "info:a99", "{}", 0))
	require.NoError(t, kv.Delete(ctx, "info:a99"))

	_, err := kv.Get(ctx, "info:a99")
	assert.ErrorIs(t, err, ErrMiss)
}
