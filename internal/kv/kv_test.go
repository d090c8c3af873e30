package kv

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	store, err := NewRedis(context.Background(), mr.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func TestGetSetRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", "v", time.Minute))

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}

func TestGetMissing(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Get(context.Background(), "absent")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetTTLExpires(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", "v", 30*time.Second))
	mr.FastForward(31 * time.Second)

	_, err := store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListWindow(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.LPush(ctx, "recent", "a", "b", "c"))
	require.NoError(t, store.LTrim(ctx, "recent", 0, 1))

	got, err := store.LRange(ctx, "recent", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b"}, got)
}

func TestKeysMatchesPattern(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "cache:src_a", "1", 0))
	require.NoError(t, store.Set(ctx, "cache:src_b", "1", 0))
	require.NoError(t, store.Set(ctx, "other", "1", 0))

	got, err := store.Keys(ctx, "cache:*")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestJSONHelpers(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}
	in := payload{Name: "fuel_shortage", Count: 3}

	require.NoError(t, SetJSON(ctx, store, "p", in, time.Minute))

	var out payload
	require.NoError(t, GetJSON(ctx, store, "p", &out))
	assert.Equal(t, in, out)
}
