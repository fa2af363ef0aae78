package companies

import (
	"context"
	"strings"

	"github.com/angelmondragon/catalogo-presupuesto/internal/notion"
	pkgerrors "github.com/angelmondragon/catalogo-presupuesto/pkg/errors"
	"github.com/angelmondragon/catalogo-presupuesto/pkg/logger"
	"github.com/angelmondragon/catalogo-presupuesto/pkg/slug"
)

// Querier is the slice of the Notion client the resolver needs.
type Querier interface {
	CompaniesDatabase() (string, error)
	QueryDatabase(ctx context.Context, databaseID string, req notion.QueryRequest) (*notion.QueryResponse, error)
	QueryAll(ctx context.Context, databaseID string, filter *notion.Filter) ([]notion.Page, error)
}

type Resolver interface {
	Resolve(ctx context.Context, companySlug string) (Company, error)
	ResolveKeyed(ctx context.Context, companySlug string) (Record, error)
}

// strategy looks up one company row. A nil page with a nil error means "no match, try
// the next one". Errors from tolerant strategies are logged and skipped.
type strategy struct {
	name     string
	tolerant bool
	find     func(ctx context.Context, databaseID, target string) (*notion.Page, error)
}

type resolver struct {
	querier    Querier
	logg       *logger.Logger
	strategies []strategy
}

func NewResolver(querier Querier, logg *logger.Logger) Resolver {
	if logg == nil {
		logg = logger.Nop()
	}
	r := &resolver{querier: querier, logg: logg}
	for _, prop := range SlugProperties {
		r.strategies = append(r.strategies, r.exactMatch(prop))
	}
	r.strategies = append(r.strategies, r.fullScan())
	return r
}

func (r *resolver) Resolve(ctx context.Context, companySlug string) (Company, error) {
	record, err := r.ResolveKeyed(ctx, companySlug)
	if err != nil {
		return Company{}, err
	}
	return record.Company, nil
}

func (r *resolver) ResolveKeyed(ctx context.Context, companySlug string) (Record, error) {
	if r == nil || r.querier == nil {
		return Record{}, pkgerrors.New(pkgerrors.CodeConfig, "company resolver not configured")
	}
	target := strings.TrimSpace(companySlug)
	if target == "" {
		return Record{}, pkgerrors.New(pkgerrors.CodeCompanyMissing, "company slug is required")
	}
	databaseID, err := r.querier.CompaniesDatabase()
	if err != nil {
		return Record{}, err
	}

	ctx = r.logg.WithCompanySlug(ctx, target)
	for _, s := range r.strategies {
		page, err := s.find(ctx, databaseID, target)
		if err != nil {
			if s.tolerant {
				r.logg.WarnErr(r.logg.WithField(ctx, "strategy", s.name), "company lookup strategy failed", err)
				continue
			}
			return Record{}, err
		}
		if page != nil {
			r.logg.Debug(r.logg.WithField(ctx, "strategy", s.name), "company resolved")
			return mapRecord(*page, target), nil
		}
	}
	return Record{}, pkgerrors.New(pkgerrors.CodeCompanyMissing, "company "+target+" not found")
}

func (r *resolver) exactMatch(property string) strategy {
	return strategy{
		name:     "exact:" + property,
		tolerant: true,
		find: func(ctx context.Context, databaseID, target string) (*notion.Page, error) {
			resp, err := r.querier.QueryDatabase(ctx, databaseID, notion.QueryRequest{
				Filter:   notion.TextEquals(property, target),
				PageSize: 1,
			})
			if err != nil {
				return nil, err
			}
			if resp == nil || len(resp.Results) == 0 {
				return nil, nil
			}
			return &resp.Results[0], nil
		},
	}
}

// fullScan compares the normalized slug or name of every row to the normalized target.
// Its errors propagate: when the safety net itself fails the lookup has failed.
func (r *resolver) fullScan() strategy {
	return strategy{
		name: "scan",
		find: func(ctx context.Context, databaseID, target string) (*notion.Page, error) {
			pages, err := r.querier.QueryAll(ctx, databaseID, nil)
			if err != nil {
				return nil, err
			}
			want := slug.Make(target)
			if want == "" {
				return nil, nil
			}
			for i := range pages {
				props := pages[i].Properties
				if slug.Make(notion.Text(props, SlugProperties...)) == want ||
					slug.Make(notion.Text(props, NameProperties...)) == want {
					return &pages[i], nil
				}
			}
			return nil, nil
		},
	}
}

func mapRecord(page notion.Page, target string) Record {
	props := page.Properties
	name := notion.Text(props, NameProperties...)

	companySlug := slug.Make(notion.Text(props, SlugProperties...))
	if companySlug == "" {
		companySlug = slug.Make(name)
	}
	if companySlug == "" {
		companySlug = slug.Make(target)
	}

	return Record{
		Company: Company{
			ID:   page.ID,
			Name: name,
			Slug: companySlug,
			URL:  notion.Text(props, URLProperties...),
			Logo: notion.Image(props, LogoProperties...),
		},
		Key: strings.TrimSpace(notion.Text(props, KeyProperties...)),
	}
}
