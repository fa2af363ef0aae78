package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/catalogo-presupuesto/api/responses"
	pkgerrors "github.com/angelmondragon/catalogo-presupuesto/pkg/errors"
	"github.com/angelmondragon/catalogo-presupuesto/pkg/logger"
	"github.com/angelmondragon/catalogo-presupuesto/pkg/slug"
)

const maxPeekBytes int64 = 1 << 20

// RateLimitStore counts requests per scope.
type RateLimitStore interface {
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
	RateLimitKey(scope string) string
}

// RateLimitPolicy defines the throttling parameters for a traffic surface.
type RateLimitPolicy struct {
	name         string
	window       time.Duration
	ipLimit      int
	companyLimit int
}

// NewRateLimitPolicy builds a policy with the supplied window and limits.
func NewRateLimitPolicy(name string, window time.Duration, ipLimit, companyLimit int) RateLimitPolicy {
	return RateLimitPolicy{
		name:         strings.ToLower(strings.TrimSpace(name)),
		window:       window,
		ipLimit:      ipLimit,
		companyLimit: companyLimit,
	}
}

func (p RateLimitPolicy) enabled() bool {
	return p.window > 0 && (p.ipLimit > 0 || p.companyLimit > 0)
}

func (p RateLimitPolicy) normalizedName() string {
	if p.name == "" {
		return "presupuesto"
	}
	return p.name
}

func (p RateLimitPolicy) scope(kind, value string) string {
	if value == "" {
		return ""
	}
	return p.normalizedName() + ":" + kind + ":" + value
}

// RateLimit enforces per-IP and per-company counters. Counter failures are logged and the
// request is let through.
func RateLimit(policy RateLimitPolicy, store RateLimitStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || store == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if policy.ipLimit > 0 {
				ip := clientIP(r)
				if !check(ctx, w, store, logg, policy, "ip", ip, policy.ipLimit) {
					return
				}
			}

			if policy.companyLimit > 0 {
				body, err := io.ReadAll(io.LimitReader(r.Body, maxPeekBytes))
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInvalidPayload, err, "read request"))
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(body))

				if company := slug.Make(extractCompanySlug(body)); company != "" {
					if !check(ctx, w, store, logg, policy, "company", company, policy.companyLimit) {
						return
					}
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// check reports whether the request may continue; it writes the 429 itself.
func check(ctx context.Context, w http.ResponseWriter, store RateLimitStore, logg *logger.Logger, policy RateLimitPolicy, kind, value string, limit int) bool {
	scope := policy.scope(kind, value)
	if scope == "" {
		return true
	}
	count, err := store.IncrWithTTL(ctx, store.RateLimitKey(scope), policy.window)
	if err != nil {
		if logg != nil {
			logg.WarnErr(ctx, "rate_limit.store_failed", err)
		}
		return true
	}
	if count <= int64(limit) {
		return true
	}
	if logg != nil {
		logCtx := logg.WithFields(ctx, map[string]any{
			"scope":          kind,
			"value":          value,
			"policy":         policy.normalizedName(),
			"attempts":       count,
			"limit":          limit,
			"window_seconds": int(policy.window.Seconds()),
		})
		logg.Warn(logCtx, "rate_limit.blocked")
	}
	responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded"))
	return false
}

func extractCompanySlug(payload []byte) string {
	var body struct {
		Presupuesto struct {
			CompanySlug string `json:"companySlug"`
		} `json:"presupuesto"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return ""
	}
	return body.Presupuesto.CompanySlug
}
