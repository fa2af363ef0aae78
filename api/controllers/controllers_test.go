package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/catalogo-presupuesto/internal/catalog"
	"github.com/angelmondragon/catalogo-presupuesto/internal/companies"
	"github.com/angelmondragon/catalogo-presupuesto/internal/orders"
	"github.com/angelmondragon/catalogo-presupuesto/internal/products"
	"github.com/angelmondragon/catalogo-presupuesto/pkg/config"
	pkgerrors "github.com/angelmondragon/catalogo-presupuesto/pkg/errors"
	"github.com/angelmondragon/catalogo-presupuesto/pkg/logger"
)

var testLogger = logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("debug"), Output: io.Discard})

type envelope struct {
	Success bool            `json:"success"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Details json.RawMessage `json:"details"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return env
}

type stubCatalogService struct {
	data      *catalog.Data
	err       error
	loaded    []string
	current   string
	dropped   []string
	forgotten []string
}

func (s *stubCatalogService) Current(ctx context.Context) (*catalog.Data, error) {
	return s.Load(ctx, s.current)
}

func (s *stubCatalogService) Load(_ context.Context, companySlug string) (*catalog.Data, error) {
	s.loaded = append(s.loaded, companySlug)
	return s.data, s.err
}

func (s *stubCatalogService) CurrentSlug() string { return s.current }

func (s *stubCatalogService) Invalidate(_ context.Context, companySlug string) {
	s.dropped = append(s.dropped, companySlug)
}

func (s *stubCatalogService) Forget(companySlug string) {
	s.forgotten = append(s.forgotten, companySlug)
}

func sampleCatalog() *catalog.Data {
	company := companies.Company{ID: "c1", Name: "Acme", Slug: "acme"}
	return &catalog.Data{
		Company:  company,
		Products: []products.Product{{ID: "p1", Name: "Tornillo", Price: 10, Company: &company}},
	}
}

func TestCatalogCurrent(t *testing.T) {
	svc := &stubCatalogService{data: sampleCatalog(), current: "acme"}
	rec := httptest.NewRecorder()
	CatalogCurrent(svc, testLogger).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/catalog", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	env := decodeEnvelope(t, rec)
	var data catalog.Data
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if data.Company.Slug != "acme" || len(data.Products) != 1 || data.Products[0].Name != "Tornillo" {
		t.Fatalf("unexpected catalog %+v", data)
	}
}

func TestCatalogBySlug(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		svc := &stubCatalogService{data: sampleCatalog()}
		req := httptest.NewRequest(http.MethodGet, "/api/v1/catalog/acme", nil)
		rc := chi.NewRouteContext()
		rc.URLParams.Add("slug", " acme ")
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
		rec := httptest.NewRecorder()
		CatalogBySlug(svc, testLogger).ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200 got %d", rec.Code)
		}
		if len(svc.loaded) != 1 || svc.loaded[0] != "acme" {
			t.Fatalf("expected trimmed slug, got %v", svc.loaded)
		}
	})

	t.Run("missing company", func(t *testing.T) {
		svc := &stubCatalogService{err: pkgerrors.New(pkgerrors.CodeCompanyMissing, "company not found")}
		req := httptest.NewRequest(http.MethodGet, "/api/v1/catalog/nope", nil)
		rc := chi.NewRouteContext()
		rc.URLParams.Add("slug", "nope")
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
		rec := httptest.NewRecorder()
		CatalogBySlug(svc, testLogger).ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404 got %d", rec.Code)
		}
		if env := decodeEnvelope(t, rec); env.Success || env.Code != string(pkgerrors.CodeCompanyMissing) {
			t.Fatalf("unexpected envelope %+v", env)
		}
	})

	t.Run("upstream down", func(t *testing.T) {
		svc := &stubCatalogService{err: pkgerrors.New(pkgerrors.CodeNetwork, "status 503")}
		req := httptest.NewRequest(http.MethodGet, "/api/v1/catalog/acme", nil)
		rc := chi.NewRouteContext()
		rc.URLParams.Add("slug", "acme")
		req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
		rec := httptest.NewRecorder()
		CatalogBySlug(svc, testLogger).ServeHTTP(rec, req)
		if rec.Code != http.StatusBadGateway {
			t.Fatalf("expected 502 got %d", rec.Code)
		}
	})
}

type stubOrders struct {
	err error
	got *orders.SubmitRequest
}

func (s *stubOrders) Submit(_ context.Context, req orders.SubmitRequest) error {
	s.got = &req
	return s.err
}

const submitBody = `{"key":"k3y","presupuesto":{"companyName":"Acme","companySlug":"acme","items":[{"id":"p1","name":"Tornillo","qty":2,"unitPrice":10,"baseUnitPrice":10,"subtotal":20}],"subtotal":20,"discount":0,"total":20}}`

func TestSubmitPresupuesto(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		err    error
		status int
		code   string
	}{
		{name: "accepted", body: submitBody, status: http.StatusOK},
		{name: "malformed json", body: `{"key":`, status: http.StatusBadRequest, code: "INVALID_PAYLOAD"},
		{name: "missing presupuesto", body: `{"key":"k3y"}`, status: http.StatusBadRequest, code: "INVALID_PAYLOAD"},
		{name: "unknown field", body: `{"key":"k3y","extra":1}`, status: http.StatusBadRequest, code: "INVALID_PAYLOAD"},
		{name: "empty items", body: `{"key":"k3y","presupuesto":{"companySlug":"acme","items":[]}}`, status: http.StatusBadRequest, code: "INVALID_PAYLOAD"},
		{name: "bad key", body: submitBody, err: pkgerrors.New(pkgerrors.CodeInvalidKey, "key mismatch"), status: http.StatusUnauthorized, code: "INVALID_KEY"},
		{name: "webhook down", body: submitBody, err: pkgerrors.New(pkgerrors.CodeWebhook, "status 500"), status: http.StatusBadGateway, code: "WEBHOOK_ERROR"},
		{name: "unexpected", body: submitBody, err: errors.New("boom"), status: http.StatusInternalServerError, code: "INTERNAL_ERROR"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubOrders{err: tc.err}
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/presupuesto", strings.NewReader(tc.body))
			SubmitPresupuesto(svc, testLogger).ServeHTTP(rec, req)

			if rec.Code != tc.status {
				t.Fatalf("expected %d got %d: %s", tc.status, rec.Code, rec.Body.String())
			}
			env := decodeEnvelope(t, rec)
			if tc.code == "" {
				if !env.Success {
					t.Fatalf("expected success envelope, got %+v", env)
				}
				if svc.got == nil || svc.got.Presupuesto.CompanySlug != "acme" || svc.got.Key != "k3y" {
					t.Fatalf("unexpected submission %+v", svc.got)
				}
				return
			}
			if env.Success || env.Code != tc.code {
				t.Fatalf("expected %s, got %+v", tc.code, env)
			}
		})
	}
}

func TestRevalidate(t *testing.T) {
	fixed := time.UnixMilli(1_700_000_000_000)
	svc := &stubCatalogService{current: "acme"}
	handler := Revalidate(RevalidateParams{
		Secret:  "s3cret",
		Catalog: svc,
		Keys:    svc,
		Logger:  testLogger,
		Now:     func() time.Time { return fixed },
	})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/revalidate?secret=wrong", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
	if len(svc.dropped) != 0 {
		t.Fatalf("cache must not be touched on mismatch")
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/revalidate?secret=s3cret", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	var body struct {
		Data revalidateResponse `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Data.Revalidated || body.Data.Now != fixed.UnixMilli() {
		t.Fatalf("unexpected body %+v", body.Data)
	}
	if len(svc.dropped) != 1 || svc.dropped[0] != "acme" || len(svc.forgotten) != 1 {
		t.Fatalf("expected current company invalidated, got %v %v", svc.dropped, svc.forgotten)
	}
}

func TestRevalidateWithoutConfiguredSecretRejects(t *testing.T) {
	rec := httptest.NewRecorder()
	Revalidate(RevalidateParams{}).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/revalidate?secret=", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
}

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

func TestHealthReady(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "dev"}}

	rec := httptest.NewRecorder()
	HealthReady(cfg, nil, testLogger).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 without redis, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	HealthReady(cfg, stubPinger{err: errors.New("down")}, testLogger).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when redis is down, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	HealthLive(cfg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if rec.Code != http.StatusOK || rec.Header().Get("X-Catalogo-Env") != "dev" {
		t.Fatalf("unexpected live response %d %v", rec.Code, rec.Header())
	}
}
