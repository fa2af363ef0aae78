package cron

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type fakeLockStore struct {
	mu     sync.Mutex
	values map[string]string
	ttls   map[string]time.Duration
	getErr error
}

func newFakeLockStore() *fakeLockStore {
	return &fakeLockStore{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeLockStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.values[key]; ok {
		return false, nil
	}
	f.values[key] = value.(string)
	f.ttls[key] = ttl
	return true, nil
}

func (f *fakeLockStore) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return "", f.getErr
	}
	v, ok := f.values[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (f *fakeLockStore) Del(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.values, k)
	}
	return nil
}

func (f *fakeLockStore) LockKey(name string) string { return "test:lock:" + name }

func TestRedisLockAcquireAndRelease(t *testing.T) {
	t.Setenv("WORKER_ID", "warmer-7")
	store := newFakeLockStore()
	lock, err := NewRedisLock(store, "catalog-warm", 0)
	if err != nil {
		t.Fatalf("new lock: %v", err)
	}
	if lock.Key() != "test:lock:catalog-warm" {
		t.Fatalf("unexpected key %q", lock.Key())
	}

	ok, err := lock.Acquire(context.Background())
	if err != nil || !ok {
		t.Fatalf("expected acquire, got %v %v", ok, err)
	}
	if !strings.HasPrefix(store.values[lock.Key()], "warmer-7:") {
		t.Fatalf("expected owner to carry the instance id, got %q", store.values[lock.Key()])
	}
	if store.ttls[lock.Key()] != defaultLockTTL {
		t.Fatalf("expected default ttl, got %v", store.ttls[lock.Key()])
	}

	other, _ := NewRedisLock(store, "catalog-warm", time.Minute)
	if ok, _ := other.Acquire(context.Background()); ok {
		t.Fatalf("second holder must not acquire")
	}

	if err := lock.Release(context.Background()); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, held := store.values[lock.Key()]; held {
		t.Fatalf("expected key to be deleted")
	}
}

func TestRedisLockReleaseLeavesForeignOwner(t *testing.T) {
	store := newFakeLockStore()
	lock, _ := NewRedisLock(store, "catalog-warm", time.Minute)
	if ok, _ := lock.Acquire(context.Background()); !ok {
		t.Fatalf("expected acquire")
	}
	// the TTL expired and another instance took over
	store.values[lock.Key()] = "someone-else"

	if err := lock.Release(context.Background()); err != nil {
		t.Fatalf("release: %v", err)
	}
	if store.values[lock.Key()] != "someone-else" {
		t.Fatalf("foreign lock must stay in place")
	}
}

func TestRedisLockReleaseErrors(t *testing.T) {
	store := newFakeLockStore()
	lock, _ := NewRedisLock(store, "catalog-warm", time.Minute)
	if err := lock.Release(context.Background()); err != nil {
		t.Fatalf("release without acquire should be a no-op: %v", err)
	}
	if ok, _ := lock.Acquire(context.Background()); !ok {
		t.Fatalf("expected acquire")
	}
	store.getErr = errors.New("timeout")
	if err := lock.Release(context.Background()); err == nil {
		t.Fatalf("expected read error")
	}
}

func TestNewRedisLockValidates(t *testing.T) {
	if _, err := NewRedisLock(nil, "x", 0); err == nil {
		t.Fatalf("expected nil client error")
	}
	if _, err := NewRedisLock(newFakeLockStore(), "", 0); err == nil {
		t.Fatalf("expected blank name error")
	}
}

func TestMemoryLockIsExclusive(t *testing.T) {
	lock := NewMemoryLock()
	ctx := context.Background()
	if ok, _ := lock.Acquire(ctx); !ok {
		t.Fatalf("expected acquire")
	}
	if ok, _ := lock.Acquire(ctx); ok {
		t.Fatalf("expected second acquire to fail")
	}
	_ = lock.Release(ctx)
	if ok, _ := lock.Acquire(ctx); !ok {
		t.Fatalf("expected acquire after release")
	}
}
