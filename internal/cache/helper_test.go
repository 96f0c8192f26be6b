package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	SetClient(rdb)
	t.Cleanup(func() {
		SetClient(nil)
		_ = rdb.Close()
		mr.Close()
	})
	return mr
}

type cachedThing struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestGetSetJSON(t *testing.T) {
	setupMiniredis(t)
	ctx := context.Background()

	found, err := GetJSON(ctx, "missing", &cachedThing{})
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, SetJSON(ctx, "thing", cachedThing{Name: "yume", Count: 2}, time.Minute))

	var got cachedThing
	found, err = GetJSON(ctx, "thing", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, cachedThing{Name: "yume", Count: 2}, got)
}

func TestAside(t *testing.T) {
	mr := setupMiniredis(t)
	ctx := context.Background()

	fetches := 0
	fetch := func(dest *cachedThing) func() error {
		return func() error {
			fetches++
			*dest = cachedThing{Name: "fetched", Count: fetches}
			return nil
		}
	}

	var first cachedThing
	require.NoError(t, Aside(ctx, "aside", &first, time.Minute, fetch(&first)))
	assert.Equal(t, 1, fetches)
	assert.Equal(t, "fetched", first.Name)

	// Second read is served from the cache; fetch does not run again.
	var second cachedThing
	require.NoError(t, Aside(ctx, "aside", &second, time.Minute, fetch(&second)))
	assert.Equal(t, 1, fetches)
	assert.Equal(t, first, second)

	// Expiry brings the fetcher back.
	mr.FastForward(2 * time.Minute)
	var third cachedThing
	require.NoError(t, Aside(ctx, "aside", &third, time.Minute, fetch(&third)))
	assert.Equal(t, 2, fetches)
}

func TestAsideFetchErrorPropagates(t *testing.T) {
	setupMiniredis(t)

	wantErr := assert.AnError
	var dest cachedThing
	err := Aside(context.Background(), "bad", &dest, time.Minute, func() error {
		return wantErr
	})
	assert.ErrorIs(t, err, wantErr)

	// Nothing was cached for the failed fetch.
	found, err := GetJSON(context.Background(), "bad", &dest)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestInvalidateGameLists(t *testing.T) {
	setupMiniredis(t)
	ctx := context.Background()

	require.NoError(t, SetJSON(ctx, GameListKey("recent"), []int{1}, time.Minute))
	require.NoError(t, SetJSON(ctx, GameListKey("most_commented"), []int{2}, time.Minute))
	require.NoError(t, SetJSON(ctx, GameKey(7), cachedThing{Name: "keep"}, time.Minute))

	InvalidateGameLists(ctx)

	var dest []int
	found, err := GetJSON(ctx, GameListKey("recent"), &dest)
	require.NoError(t, err)
	assert.False(t, found)
	found, err = GetJSON(ctx, GameListKey("most_commented"), &dest)
	require.NoError(t, err)
	assert.False(t, found)

	// Unrelated keys survive.
	var thing cachedThing
	found, err = GetJSON(ctx, GameKey(7), &thing)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestNilClientDegradesToNoop(t *testing.T) {
	SetClient(nil)
	ctx := context.Background()

	require.NoError(t, SetJSON(ctx, "k", cachedThing{}, time.Minute))
	found, err := GetJSON(ctx, "k", &cachedThing{})
	require.NoError(t, err)
	assert.False(t, found)

	// Aside always falls through to the fetcher.
	fetched := false
	var dest cachedThing
	require.NoError(t, Aside(ctx, "k", &dest, time.Minute, func() error {
		fetched = true
		dest.Name = "direct"
		return nil
	}))
	assert.True(t, fetched)
	assert.Equal(t, "direct", dest.Name)

	Invalidate(ctx, "k") // must not panic
}
