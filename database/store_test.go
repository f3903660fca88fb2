package database

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doc struct {
	Name string `json:"name"`
}

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewStore(client), mr
}

func TestKey(t *testing.T) {
	assert.Equal(t, "da:agent:42", Key("agent", "42"))
	assert.Equal(t, "da:users", Key("users"))
}

func TestStoreJSONRoundTrip(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	found, err := store.GetJSON(ctx, Key("doc", "1"), &doc{})
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.SetJSON(ctx, Key("doc", "1"), doc{Name: "first"}, time.Minute))

	var got doc
	found, err = store.GetJSON(ctx, Key("doc", "1"), &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "first", got.Name)
	assert.Equal(t, time.Minute, mr.TTL(Key("doc", "1")))

	require.NoError(t, store.Delete(ctx, Key("doc", "1")))
	found, err = store.GetJSON(ctx, Key("doc", "1"), &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestStoreSetNX(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	ok, err := store.SetNX(ctx, "k", "a", 0)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.SetNX(ctx, "k", "b", 0)
	require.NoError(t, err)
	assert.False(t, ok)

	val, found, err := store.GetString(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "a", val)
}

func TestStoreTimelinePage(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c", "d"} {
		require.NoError(t, store.AddToTimeline(ctx, "tl", id, base.Add(time.Duration(i)*time.Minute)))
	}

	ids, total, err := store.TimelinePage(ctx, "tl", 0, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	assert.Equal(t, []string{"d", "c"}, ids)

	ids, _, err = store.TimelinePage(ctx, "tl", 2, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, ids)
}

func TestLoadManySkipsMissing(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetJSON(ctx, "x", doc{Name: "x"}, 0))
	require.NoError(t, store.SetJSON(ctx, "z", doc{Name: "z"}, 0))

	docs, err := LoadMany[doc](ctx, store, []string{"x", "y", "z"})
	require.NoError(t, err)
	assert.Equal(t, []doc{{Name: "x"}, {Name: "z"}}, docs)

	docs, err = LoadMany[doc](ctx, store, nil)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestIndexes(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AddToIndex(ctx, "idx", "a", "b"))
	require.NoError(t, store.RemoveFromIndex(ctx, "idx", "a"))

	members, err := store.IndexMembers(ctx, "idx")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"b"}, members)
}

func TestStoreGetDel(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.SetString(ctx, "once", "u1", time.Hour))

	val, found, err := store.GetDel(ctx, "once")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "u1", val)
	assert.False(t, mr.Exists("once"))

	_, found, err = store.GetDel(ctx, "once")
	require.NoError(t, err)
	assert.False(t, found)
}
