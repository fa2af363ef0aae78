package cart

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/catalogo-presupuesto/pkg/redis"
)

// Storage is the key-value surface the cart persists through. Get reports ok=false for a
// key that was never written.
type Storage interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Sessions hands out the storage scoped to one shopper session.
type Sessions interface {
	For(sessionID string) Storage
}

// MemoryStorage keeps cart state in process.
type MemoryStorage struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{data: map[string]string{}}
}

func (m *MemoryStorage) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *MemoryStorage) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	m.data[key] = value
	m.mu.Unlock()
	return nil
}

func (m *MemoryStorage) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
	return nil
}

const (
	// DefaultSessionTTL matches CATALOG_CART_TTL's default.
	DefaultSessionTTL = 30 * 24 * time.Hour

	abandonedAfter = 15 * time.Minute
	sweepEvery     = time.Minute
)

type memorySession struct {
	storage *MemoryStorage
	touched time.Time
}

// MemorySessions keeps one MemoryStorage per session id. Sessions idle for the TTL are
// dropped, and so are sessions that never stored a quantity once they have been idle for
// a short while, so anonymous page loads do not accumulate.
type MemorySessions struct {
	mu        sync.Mutex
	sessions  map[string]*memorySession
	ttl       time.Duration
	now       func() time.Time
	lastSweep time.Time
}

func NewMemorySessions(ttl time.Duration, now func() time.Time) *MemorySessions {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if now == nil {
		now = time.Now
	}
	return &MemorySessions{sessions: map[string]*memorySession{}, ttl: ttl, now: now}
}

func (m *MemorySessions) For(sessionID string) Storage {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	m.sweep(now)
	s, ok := m.sessions[sessionID]
	if !ok {
		s = &memorySession{storage: NewMemoryStorage()}
		m.sessions[sessionID] = s
	}
	s.touched = now
	return s.storage
}

// Len reports the sessions currently retained.
func (m *MemorySessions) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *MemorySessions) sweep(now time.Time) {
	if now.Sub(m.lastSweep) < min(sweepEvery, m.ttl) {
		return
	}
	m.lastSweep = now
	empty := min(abandonedAfter, m.ttl)
	for id, s := range m.sessions {
		idle := now.Sub(s.touched)
		if idle >= m.ttl || (idle >= empty && !s.storage.hasQuantities()) {
			delete(m.sessions, id)
		}
	}
}

// hasQuantities reports whether anything beyond the version marker was stored.
func (m *MemoryStorage) hasQuantities() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[QuantitiesKey]
	if !ok {
		return false
	}
	v = strings.TrimSpace(v)
	return v != "" && v != "{}" && v != "null"
}

type redisKV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	CartKey(sessionID, name string) string
}

// RedisStorage persists one session's cart in redis; every write refreshes the TTL.
type RedisStorage struct {
	client  redisKV
	session string
	ttl     time.Duration
}

func (r *RedisStorage) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.client.Get(ctx, r.client.CartKey(r.session, key))
	if err != nil {
		if redis.IsNil(err) {
			return "", false, nil
		}
		return "", false, err
	}
	return v, true, nil
}

func (r *RedisStorage) Set(ctx context.Context, key, value string) error {
	return r.client.Set(ctx, r.client.CartKey(r.session, key), value, r.ttl)
}

func (r *RedisStorage) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.client.CartKey(r.session, key))
}

// RedisSessions scopes RedisStorage by session id.
type RedisSessions struct {
	client redisKV
	ttl    time.Duration
}

func NewRedisSessions(client redisKV, ttl time.Duration) *RedisSessions {
	return &RedisSessions{client: client, ttl: ttl}
}

func (r *RedisSessions) For(sessionID string) Storage {
	return &RedisStorage{client: r.client, session: sessionID, ttl: r.ttl}
}
