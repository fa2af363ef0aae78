package notion

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/angelmondragon/catalogo-presupuesto/pkg/config"
	pkgerrors "github.com/angelmondragon/catalogo-presupuesto/pkg/errors"
	"github.com/angelmondragon/catalogo-presupuesto/pkg/httpretry"
	"github.com/angelmondragon/catalogo-presupuesto/pkg/pagination"
)

const (
	defaultBaseURL          = "https://api.notion.com/v1"
	defaultVersion          = "2022-06-28"
	responseBodyLimit int64 = 1024
)

// Client talks to the Notion database API through the retrying HTTP client.
type Client struct {
	http        *httpretry.Client
	baseURL     string
	token       string
	version     string
	companiesDB string
	productsDB  string
	pageSize    int
}

// Option configures optional client behavior.
type Option func(*Client)

// WithPageSize sets the page size requested during full scans.
func WithPageSize(n int) Option {
	return func(c *Client) {
		c.pageSize = pagination.NormalizeLimit(n)
	}
}

// NewClient never fails: missing credentials are reported as CONFIG_ERROR on first use so
// routes that do not touch the catalog keep serving.
func NewClient(cfg config.NotionConfig, httpClient *httpretry.Client, opts ...Option) *Client {
	if httpClient == nil {
		httpClient = httpretry.New()
	}
	client := &Client{
		http:        httpClient,
		baseURL:     strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		token:       strings.TrimSpace(cfg.Token),
		version:     strings.TrimSpace(cfg.Version),
		companiesDB: strings.TrimSpace(cfg.CompaniesDatabase),
		productsDB:  strings.TrimSpace(cfg.ProductsDatabase),
		pageSize:    pagination.DefaultLimit,
	}
	if client.baseURL == "" {
		client.baseURL = defaultBaseURL
	}
	if client.version == "" {
		client.version = defaultVersion
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client
}

// CompaniesDatabase returns the configured companies database id or CONFIG_ERROR.
func (c *Client) CompaniesDatabase() (string, error) {
	if c == nil || c.companiesDB == "" {
		return "", pkgerrors.New(pkgerrors.CodeConfig, "notion companies database id is not configured")
	}
	return c.companiesDB, nil
}

// ProductsDatabase returns the configured products database id or CONFIG_ERROR.
func (c *Client) ProductsDatabase() (string, error) {
	if c == nil || c.productsDB == "" {
		return "", pkgerrors.New(pkgerrors.CodeConfig, "notion products database id is not configured")
	}
	return c.productsDB, nil
}

// QueryDatabase runs one filtered query page.
func (c *Client) QueryDatabase(ctx context.Context, databaseID string, req QueryRequest) (*QueryResponse, error) {
	if err := c.ready(databaseID); err != nil {
		return nil, err
	}
	if req.PageSize > 0 {
		req.PageSize = pagination.NormalizeLimit(req.PageSize)
	}

	endpoint := c.buildURL("databases", databaseID, "query")
	resp, err := c.http.PostJSON(ctx, endpoint, c.headers(), req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	var out QueryResponse
	if err := decode(resp, "query database", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// QueryAll pages through every row matching filter (nil means the whole table).
func (c *Client) QueryAll(ctx context.Context, databaseID string, filter *Filter) ([]Page, error) {
	return pagination.Collect(ctx, c.pageSize, func(ctx context.Context, p pagination.Params) (pagination.Page[Page], error) {
		resp, err := c.QueryDatabase(ctx, databaseID, QueryRequest{
			Filter:      filter,
			StartCursor: p.Cursor,
			PageSize:    p.Limit,
		})
		if err != nil {
			return pagination.Page[Page]{}, err
		}
		page := pagination.Page[Page]{Items: resp.Results, HasMore: resp.HasMore}
		if resp.NextCursor != nil {
			page.NextCursor = *resp.NextCursor
		}
		return page, nil
	})
}

// RetrieveDatabase fetches a database schema.
func (c *Client) RetrieveDatabase(ctx context.Context, databaseID string) (*Database, error) {
	if err := c.ready(databaseID); err != nil {
		return nil, err
	}

	resp, err := c.http.Get(ctx, c.buildURL("databases", databaseID), c.headers())
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	var out Database
	if err := decode(resp, "retrieve database", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ready(databaseID string) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeConfig, "notion client not configured")
	}
	if c.token == "" {
		return pkgerrors.New(pkgerrors.CodeConfig, "notion token is not configured")
	}
	if strings.TrimSpace(databaseID) == "" {
		return pkgerrors.New(pkgerrors.CodeConfig, "notion database id is required")
	}
	return nil
}

func (c *Client) headers() http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+c.token)
	h.Set("Notion-Version", c.version)
	h.Set("Accept", "application/json")
	return h
}

func (c *Client) buildURL(parts ...string) string {
	escaped := make([]string, 0, len(parts))
	for _, p := range parts {
		escaped = append(escaped, url.PathEscape(strings.TrimSpace(p)))
	}
	return fmt.Sprintf("%s/%s", c.baseURL, strings.Join(escaped, "/"))
}

func decode(resp *http.Response, op string, dst any) error {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyLimit))
		return pkgerrors.Wrap(pkgerrors.CodeNetwork, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), op+" failed")
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeNetwork, err, "decode "+op+" response")
	}
	return nil
}
