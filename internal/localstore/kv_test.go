package localstore

import (
	"context"
	"fmt"
	"testing"
	"time"

	redisclient "github.com/angelmondragon/storefront-edge/pkg/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func exerciseKV(t *testing.T, kv KV) {
	t.Helper()
	ctx := context.Background()

	_, err := kv.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, kv.Set(ctx, "cart", "v1"))
	got, err := kv.Get(ctx, "cart")
	require.NoError(t, err)
	assert.Equal(t, "v1", got)

	require.NoError(t, kv.Set(ctx, "cart", "v2"))
	got, err = kv.Get(ctx, "cart")
	require.NoError(t, err)
	assert.Equal(t, "v2", got)

	require.NoError(t, kv.Delete(ctx, "cart"))
	_, err = kv.Get(ctx, "cart")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, kv.Delete(ctx, "cart"), "deleting a missing key is not an error")
}

func TestMemoryKV(t *testing.T) {
	exerciseKV(t, NewMemory())
}

func TestRedisKV(t *testing.T) {
	fake := newFakeCmdable()
	exerciseKV(t, NewRedis(redisclient.NewWithCmdable(fake), time.Hour))

	kv := NewRedis(redisclient.NewWithCmdable(fake), time.Hour)
	require.NoError(t, kv.Set(context.Background(), "sess:cart", "[]"))
	_, ok := fake.data["sf:local:sess:cart"]
	assert.True(t, ok, "keys are namespaced under sf:local")
	assert.Equal(t, time.Hour, fake.ttl["sf:local:sess:cart"])
}

func TestSQLKV(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:localstore_sql_test?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	store := NewSQL(db)
	require.NoError(t, store.Migrate(context.Background()))
	exerciseKV(t, store)
}

func TestNamespaceIsolatesSessions(t *testing.T) {
	ctx := context.Background()
	base := NewMemory()
	a := Namespace(base, "sess-a")
	b := Namespace(base, "sess-b")

	require.NoError(t, a.Set(ctx, "cart", "a"))
	require.NoError(t, b.Set(ctx, "cart", "b"))

	got, err := a.Get(ctx, "cart")
	require.NoError(t, err)
	assert.Equal(t, "a", got)

	raw, err := base.Get(ctx, "sess-b:cart")
	require.NoError(t, err)
	assert.Equal(t, "b", raw)

	require.NoError(t, a.Delete(ctx, "cart"))
	_, err = b.Get(ctx, "cart")
	require.NoError(t, err, "deleting one session must not touch another")
}

func TestMemoryIncrWithTTL(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	now := time.Unix(1000, 0)
	m.now = func() time.Time { return now }

	for want := int64(1); want <= 3; want++ {
		got, err := m.IncrWithTTL(ctx, "k", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	now = now.Add(2 * time.Minute)
	got, err := m.IncrWithTTL(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got, "window should reset after ttl")
}

type fakeCmdable struct {
	data map[string]string
	ttl  map[string]time.Duration
}

func newFakeCmdable() *fakeCmdable {
	return &fakeCmdable{data: map[string]string{}, ttl: map[string]time.Duration{}}
}

func (f *fakeCmdable) Ping(context.Context) *goredis.StatusCmd {
	return goredis.NewStatusResult("PONG", nil)
}

func (f *fakeCmdable) Set(_ context.Context, key string, value any, ttl time.Duration) *goredis.StatusCmd {
	f.data[key] = fmt.Sprint(value)
	f.ttl[key] = ttl
	return goredis.NewStatusResult("OK", nil)
}

func (f *fakeCmdable) Get(_ context.Context, key string) *goredis.StringCmd {
	v, ok := f.data[key]
	if !ok {
		return goredis.NewStringResult("", goredis.Nil)
	}
	return goredis.NewStringResult(v, nil)
}

func (f *fakeCmdable) Incr(context.Context, string) *goredis.IntCmd {
	return goredis.NewIntResult(1, nil)
}

func (f *fakeCmdable) Expire(context.Context, string, time.Duration) *goredis.BoolCmd {
	return goredis.NewBoolResult(true, nil)
}

func (f *fakeCmdable) Del(_ context.Context, keys ...string) *goredis.IntCmd {
	for _, k := range keys {
		delete(f.data, k)
	}
	return goredis.NewIntResult(int64(len(keys)), nil)
}
