package cart

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type fakeKV struct {
	values map[string]string
	ttls   map[string]time.Duration
	getErr error
}

func newFakeKV() *fakeKV {
	return &fakeKV{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeKV) Get(_ context.Context, key string) (string, error) {
	if f.getErr != nil {
		return "", f.getErr
	}
	v, ok := f.values[key]
	if !ok {
		return "", goredis.Nil
	}
	return v, nil
}

func (f *fakeKV) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	f.values[key] = value.(string)
	f.ttls[key] = ttl
	return nil
}

func (f *fakeKV) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.values, k)
	}
	return nil
}

func (f *fakeKV) CartKey(sessionID, name string) string { return "cart:" + sessionID + ":" + name }

func TestRedisSessionsScopeKeysAndTTL(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	sessions := NewRedisSessions(kv, time.Hour)

	first := sessions.For("acme:s1")
	second := sessions.For("acme:s2")

	_, ok, err := first.Get(ctx, "qty")
	require.NoError(t, err)
	require.False(t, ok, "unwritten key reads as absent")

	require.NoError(t, first.Set(ctx, "qty", `{"a":2}`))
	require.Equal(t, time.Hour, kv.ttls["cart:acme:s1:qty"])

	v, ok, err := first.Get(ctx, "qty")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, `{"a":2}`, v)

	_, ok, err = second.Get(ctx, "qty")
	require.NoError(t, err)
	require.False(t, ok, "sessions must not share state")

	require.NoError(t, first.Delete(ctx, "qty"))
	_, ok, _ = first.Get(ctx, "qty")
	require.False(t, ok)
}

func TestRedisStorageSurfacesBackendErrors(t *testing.T) {
	kv := newFakeKV()
	kv.getErr = errors.New("connection reset")
	_, _, err := NewRedisSessions(kv, time.Hour).For("s").Get(context.Background(), "qty")
	require.Error(t, err)
}

func TestMemorySessionsReuseStoragePerSession(t *testing.T) {
	ctx := context.Background()
	sessions := NewMemorySessions(0, nil)
	require.NoError(t, sessions.For("s1").Set(ctx, "k", "v"))

	v, ok, err := sessions.For("s1").Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v", v)

	_, ok, _ = sessions.For("s2").Get(ctx, "k")
	require.False(t, ok)
}

type steppedClock struct{ now time.Time }

func (c *steppedClock) Now() time.Time          { return c.now }
func (c *steppedClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func TestMemorySessionsDropAnonymousSessions(t *testing.T) {
	ctx := context.Background()
	clock := &steppedClock{now: time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)}
	sessions := NewMemorySessions(24*time.Hour, clock.Now)

	for i := 0; i < 1000; i++ {
		New(ctx, catalogItems(), sessions.For(fmt.Sprintf("acme:anon-%d", i)))
	}
	shopper := New(ctx, catalogItems(), sessions.For("acme:shopper"))
	shopper.Set(ctx, "a", 3)
	require.Equal(t, 1001, sessions.Len())

	clock.Advance(abandonedAfter)
	sessions.For("acme:next")
	require.Equal(t, 2, sessions.Len(), "only the shopper with quantities and the new session remain")

	again := New(ctx, catalogItems(), sessions.For("acme:shopper"))
	require.Equal(t, 3, again.Quantity("a"))
}

func TestMemorySessionsExpireAfterTTL(t *testing.T) {
	ctx := context.Background()
	clock := &steppedClock{now: time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)}
	sessions := NewMemorySessions(time.Hour, clock.Now)

	c := New(ctx, catalogItems(), sessions.For("acme:s1"))
	c.Set(ctx, "b", 2)

	clock.Advance(59 * time.Minute)
	sessions.For("acme:other")
	require.Equal(t, 2, sessions.Len(), "a touched session with quantities survives inside the TTL")

	clock.Advance(time.Hour)
	sessions.For("acme:other")
	require.Equal(t, 1, sessions.Len())

	fresh := New(ctx, catalogItems(), sessions.For("acme:s1"))
	require.Equal(t, 0, fresh.Quantity("b"))
}
