package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/angelmondragon/catalogo-presupuesto/internal/companies"
	"github.com/angelmondragon/catalogo-presupuesto/internal/products"
	pkgerrors "github.com/angelmondragon/catalogo-presupuesto/pkg/errors"
	"github.com/angelmondragon/catalogo-presupuesto/pkg/logger"
	"github.com/angelmondragon/catalogo-presupuesto/pkg/metrics"
	"github.com/angelmondragon/catalogo-presupuesto/pkg/slug"
	"golang.org/x/sync/singleflight"
)

// ServiceParams wire the catalog service.
type ServiceParams struct {
	Companies   companies.Resolver
	Products    products.Resolver
	Cache       Cache
	Logger      *logger.Logger
	Metrics     *metrics.CatalogMetrics
	CurrentSlug string
}

// Service serves company catalogs from the cache and resolves them upstream on a miss.
type Service struct {
	companies   companies.Resolver
	products    products.Resolver
	cache       Cache
	logg        *logger.Logger
	metrics     *metrics.CatalogMetrics
	currentSlug string
	group       singleflight.Group
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Companies == nil {
		return nil, errors.New("company resolver required")
	}
	if params.Products == nil {
		return nil, errors.New("product resolver required")
	}
	cache := params.Cache
	if cache == nil {
		cache = NewMemoryCache(DefaultTTL, nil)
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{
		companies:   params.Companies,
		products:    params.Products,
		cache:       cache,
		logg:        logg,
		metrics:     params.Metrics,
		currentSlug: slug.Make(params.CurrentSlug),
	}, nil
}

// CurrentSlug returns the normalized slug of the configured company.
func (s *Service) CurrentSlug() string {
	return s.currentSlug
}

// Current loads the configured company's catalog.
func (s *Service) Current(ctx context.Context) (*Data, error) {
	return s.Load(ctx, s.currentSlug)
}

// Load returns the cached catalog for companySlug or resolves it. Concurrent misses for the
// same slug share one resolution, which keeps running if the waiting caller goes away.
func (s *Service) Load(ctx context.Context, companySlug string) (*Data, error) {
	key := slug.Make(companySlug)
	if key == "" {
		return nil, pkgerrors.New(pkgerrors.CodeCompanyMissing, "company slug is required")
	}

	if data, ok := s.cache.Get(ctx, key); ok {
		s.metrics.CacheResult(metrics.CacheHit)
		return data, nil
	}
	s.metrics.CacheResult(metrics.CacheMiss)

	ch := s.group.DoChan(key, func() (any, error) {
		return s.resolve(context.WithoutCancel(ctx), key)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Data), nil
	}
}

// Invalidate drops the cached catalog so the next Load re-resolves it.
func (s *Service) Invalidate(ctx context.Context, companySlug string) {
	key := slug.Make(companySlug)
	if key == "" {
		return
	}
	s.cache.Invalidate(ctx, key)
	s.logg.Info(s.logg.WithCompanySlug(ctx, key), "catalog cache invalidated")
}

// Refresh re-resolves a catalog regardless of cache state. A failed refresh leaves the
// cached entry in place. Loads may join the resolution, so it outlives ctx.
func (s *Service) Refresh(ctx context.Context, companySlug string) (*Data, error) {
	key := slug.Make(companySlug)
	if key == "" {
		return nil, pkgerrors.New(pkgerrors.CodeCompanyMissing, "company slug is required")
	}
	v, err, _ := s.group.Do(key, func() (any, error) {
		return s.resolve(context.WithoutCancel(ctx), key)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Data), nil
}

func (s *Service) resolve(ctx context.Context, key string) (*Data, error) {
	ctx = s.logg.WithCompanySlug(ctx, key)
	start := time.Now()

	data, err := s.fetch(ctx, key)
	s.metrics.ObserveResolve(time.Since(start), err)
	if err != nil {
		return nil, err
	}

	if len(data.Products) == 0 {
		s.metrics.CacheResult(metrics.CacheSkip)
		s.logg.Warn(ctx, "catalog resolved without products; not caching")
	}
	s.cache.Put(ctx, key, data)
	s.logg.Info(s.logg.WithField(ctx, "products", len(data.Products)), "catalog resolved")
	return data, nil
}

func (s *Service) fetch(ctx context.Context, key string) (*Data, error) {
	company, err := s.companies.Resolve(ctx, key)
	if err != nil {
		return nil, err
	}
	items, err := s.products.Resolve(ctx, company)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []products.Product{}
	}
	return &Data{Company: company, Products: items}, nil
}
