package products

import (
	"context"
	"sort"
	"strings"

	"github.com/angelmondragon/catalogo-presupuesto/internal/companies"
	"github.com/angelmondragon/catalogo-presupuesto/internal/notion"
	pkgerrors "github.com/angelmondragon/catalogo-presupuesto/pkg/errors"
	"github.com/angelmondragon/catalogo-presupuesto/pkg/logger"
)

// Querier is the slice of the Notion client the catalog resolver needs.
type Querier interface {
	CompaniesDatabase() (string, error)
	ProductsDatabase() (string, error)
	RetrieveDatabase(ctx context.Context, databaseID string) (*notion.Database, error)
	QueryAll(ctx context.Context, databaseID string, filter *notion.Filter) ([]notion.Page, error)
}

type Resolver interface {
	Resolve(ctx context.Context, company companies.Company) ([]Product, error)
}

type resolver struct {
	querier Querier
	logg    *logger.Logger
}

func NewResolver(querier Querier, logg *logger.Logger) Resolver {
	if logg == nil {
		logg = logger.Nop()
	}
	return &resolver{querier: querier, logg: logg}
}

// Resolve returns every product related to company. Relation queries on discovered and
// aliased property names run first; when none of them returns rows the whole table is
// scanned and relations are matched by id on this side.
func (r *resolver) Resolve(ctx context.Context, company companies.Company) ([]Product, error) {
	if r == nil || r.querier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConfig, "catalog resolver not configured")
	}
	if strings.TrimSpace(company.ID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeCompanyMissing, "company id is required")
	}
	productsDB, err := r.querier.ProductsDatabase()
	if err != nil {
		return nil, err
	}
	ctx = r.logg.WithCompanySlug(ctx, company.Slug)

	candidates := mergeNames(r.discover(ctx, productsDB), RelationAliases)

	if pages := r.queryCandidates(ctx, productsDB, candidates, company.ID); len(pages) > 0 {
		return mapProducts(pages, company), nil
	}

	pages, err := r.scan(ctx, productsDB, candidates, company.ID)
	if err != nil {
		return nil, err
	}
	return mapProducts(pages, company), nil
}

// discover lists relation properties in the products schema that point at the companies
// database. Failures leave the list empty.
func (r *resolver) discover(ctx context.Context, productsDB string) []string {
	companiesDB, err := r.querier.CompaniesDatabase()
	if err != nil {
		r.logg.WarnErr(ctx, "relation discovery skipped", err)
		return nil
	}
	schema, err := r.querier.RetrieveDatabase(ctx, productsDB)
	if err != nil {
		r.logg.WarnErr(ctx, "relation discovery failed", err)
		return nil
	}
	if schema == nil {
		return nil
	}

	want := notion.NormalizeID(companiesDB)
	var names []string
	for key, prop := range schema.Properties {
		if prop.Type != notion.TypeRelation || prop.Relation == nil {
			continue
		}
		if notion.NormalizeID(prop.Relation.DatabaseID) != want {
			continue
		}
		name := prop.Name
		if name == "" {
			name = key
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *resolver) queryCandidates(ctx context.Context, productsDB string, candidates []string, companyID string) []notion.Page {
	variants := notion.IDVariants(companyID)
	for _, name := range candidates {
		for _, id := range variants {
			pages, err := r.querier.QueryAll(ctx, productsDB, notion.RelationContains(name, id))
			if err != nil {
				r.logg.WarnErr(r.logg.WithField(ctx, "property", name), "relation query failed", err)
				continue
			}
			if len(pages) > 0 {
				r.logg.Debug(r.logg.WithField(ctx, "property", name), "products resolved by relation query")
				return pages
			}
		}
	}
	return nil
}

// scan keeps rows whose candidate-named relations, or any relation at all, reference the
// company, even when the schema declares no such link.
func (r *resolver) scan(ctx context.Context, productsDB string, candidates []string, companyID string) ([]notion.Page, error) {
	pages, err := r.querier.QueryAll(ctx, productsDB, nil)
	if err != nil {
		return nil, err
	}

	want := map[string]struct{}{}
	for _, v := range notion.IDVariants(companyID) {
		want[notion.NormalizeID(v)] = struct{}{}
	}

	var matched []notion.Page
	for _, page := range pages {
		ids := append(notion.RelationIDs(page.Properties, candidates...), notion.AllRelationIDs(page.Properties)...)
		for _, id := range ids {
			if _, ok := want[notion.NormalizeID(id)]; ok {
				matched = append(matched, page)
				break
			}
		}
	}
	r.logg.Debug(r.logg.WithFields(ctx, map[string]any{"scanned": len(pages), "matched": len(matched)}), "products resolved by full scan")
	return matched, nil
}

func mergeNames(lists ...[]string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, list := range lists {
		for _, name := range list {
			if _, ok := seen[name]; ok || name == "" {
				continue
			}
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}
	return out
}

func mapProducts(pages []notion.Page, company companies.Company) []Product {
	owner := company
	out := make([]Product, 0, len(pages))
	for _, page := range pages {
		props := page.Properties
		out = append(out, Product{
			ID:          page.ID,
			Name:        notion.Text(props, nameProperties...),
			Category:    notion.Text(props, categoryProperties...),
			Price:       notion.Number(props, priceProperties...),
			PriceX10:    notion.Number(props, priceX10Properties...),
			PriceX50:    notion.Number(props, priceX50Properties...),
			PriceX100:   notion.Number(props, priceX100Properties...),
			Description: notion.Text(props, descriptionProperties...),
			Image:       notion.Image(props, imageProperties...),
			Company:     &owner,
		})
	}
	return out
}
