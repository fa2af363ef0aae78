package cron

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/angelmondragon/catalogo-presupuesto/internal/catalog"
	"github.com/angelmondragon/catalogo-presupuesto/pkg/logger"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

const (
	CatalogWarmJobName     = "catalog-warm"
	defaultWarmConcurrency = 4
)

// CatalogRefresher re-resolves one company catalog and stores it in the shared cache.
type CatalogRefresher interface {
	Refresh(ctx context.Context, companySlug string) (*catalog.Data, error)
}

type CatalogWarmParams struct {
	Refresher   CatalogRefresher
	Slugs       []string
	Logger      *logger.Logger
	Concurrency int
}

// CatalogWarmJob refreshes every configured company before its cached catalog expires.
type CatalogWarmJob struct {
	refresher   CatalogRefresher
	slugs       []string
	logg        *logger.Logger
	concurrency int
}

func NewCatalogWarmJob(params CatalogWarmParams) (*CatalogWarmJob, error) {
	if params.Refresher == nil {
		return nil, errors.New("catalog refresher required")
	}
	if len(params.Slugs) == 0 {
		return nil, errors.New("at least one company slug required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	concurrency := params.Concurrency
	if concurrency <= 0 {
		concurrency = defaultWarmConcurrency
	}
	return &CatalogWarmJob{
		refresher:   params.Refresher,
		slugs:       append([]string(nil), params.Slugs...),
		logg:        logg,
		concurrency: concurrency,
	}, nil
}

func (j *CatalogWarmJob) Name() string { return CatalogWarmJobName }

// Run refreshes all slugs; one company failing does not stop the others.
func (j *CatalogWarmJob) Run(ctx context.Context) error {
	var (
		mu   sync.Mutex
		errs error
		g    errgroup.Group
	)
	g.SetLimit(j.concurrency)

	for _, companySlug := range j.slugs {
		g.Go(func() error {
			slugCtx := j.logg.WithCompanySlug(ctx, companySlug)
			data, err := j.refresher.Refresh(slugCtx, companySlug)
			if err != nil {
				j.logg.WarnErr(slugCtx, "catalog warm failed", err)
				mu.Lock()
				errs = multierr.Append(errs, fmt.Errorf("%s: %w", companySlug, err))
				mu.Unlock()
				return nil
			}
			j.logg.Info(j.logg.WithField(slugCtx, "products", len(data.Products)), "catalog warmed")
			return nil
		})
	}
	_ = g.Wait()
	return errs
}
