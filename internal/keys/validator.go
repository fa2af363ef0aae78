package keys

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/catalogo-presupuesto/internal/companies"
	"github.com/angelmondragon/catalogo-presupuesto/pkg/logger"
	"github.com/angelmondragon/catalogo-presupuesto/pkg/security"
	"github.com/angelmondragon/catalogo-presupuesto/pkg/slug"
)

// DefaultTTL is how long a fetched key is trusted before it is read again.
const DefaultTTL = time.Hour

// KeyResolver is the part of the company resolver that exposes stored keys.
type KeyResolver interface {
	ResolveKeyed(ctx context.Context, companySlug string) (companies.Record, error)
}

type cachedKey struct {
	key       string
	fetchedAt time.Time
}

// Validator checks order keys against the key stored on the company record.
type Validator struct {
	resolver KeyResolver
	ttl      time.Duration
	now      func() time.Time
	logg     *logger.Logger

	mu   sync.RWMutex
	keys map[string]cachedKey
}

// Option configures optional validator behavior.
type Option func(*Validator)

func WithTTL(ttl time.Duration) Option {
	return func(v *Validator) {
		if ttl > 0 {
			v.ttl = ttl
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(v *Validator) {
		if now != nil {
			v.now = now
		}
	}
}

func WithLogger(logg *logger.Logger) Option {
	return func(v *Validator) {
		if logg != nil {
			v.logg = logg
		}
	}
}

func NewValidator(resolver KeyResolver, opts ...Option) *Validator {
	v := &Validator{
		resolver: resolver,
		ttl:      DefaultTTL,
		now:      time.Now,
		logg:     logger.Nop(),
		keys:     map[string]cachedKey{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}
	return v
}

// Validate reports whether input matches the company's stored key. Blank input and
// companies without a stored key never validate. Resolution errors are returned with a
// false result.
func (v *Validator) Validate(ctx context.Context, companySlug, input string) (bool, error) {
	candidate := strings.TrimSpace(input)
	if candidate == "" {
		return false, nil
	}
	key := slug.Make(companySlug)

	stored, err := v.storedKey(ctx, key)
	if err != nil {
		return false, err
	}
	if stored == "" {
		v.logg.Warn(v.logg.WithCompanySlug(ctx, key), "company has no order key configured")
		return false, nil
	}
	return security.Equal(stored, candidate), nil
}

// Forget drops a cached key so the next validation reads it again.
func (v *Validator) Forget(companySlug string) {
	v.mu.Lock()
	delete(v.keys, slug.Make(companySlug))
	v.mu.Unlock()
}

func (v *Validator) storedKey(ctx context.Context, companySlug string) (string, error) {
	v.mu.RLock()
	entry, ok := v.keys[companySlug]
	v.mu.RUnlock()
	if ok && v.now().Sub(entry.fetchedAt) < v.ttl {
		return entry.key, nil
	}

	record, err := v.resolver.ResolveKeyed(ctx, companySlug)
	if err != nil {
		return "", err
	}
	key := strings.TrimSpace(record.Key)

	v.mu.Lock()
	v.keys[companySlug] = cachedKey{key: key, fetchedAt: v.now()}
	v.mu.Unlock()
	return key, nil
}
