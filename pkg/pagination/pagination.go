package pagination

import (
	"context"
	"fmt"
	"strings"
)

const (
	// DefaultLimit is the page size used when a limit is not provided.
	DefaultLimit = 100
	// MaxLimit caps how many rows any cursor query can request.
	MaxLimit = 100
	// MaxPages bounds a full scan so a misbehaving upstream cannot loop forever.
	MaxPages = 1000
)

// Params holds cursor pagination inputs for one page request.
type Params struct {
	Limit  int
	Cursor string
}

// Page is one cursor page returned by an upstream.
type Page[T any] struct {
	Items      []T
	HasMore    bool
	NextCursor string
}

// FetchFunc loads a single page.
type FetchFunc[T any] func(ctx context.Context, params Params) (Page[T], error)

// NormalizeLimit enforces the configured default and maximum limits.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// Collect follows has_more/next_cursor until the upstream is exhausted and returns every
// item in order. A repeated or missing cursor while more pages are announced is an error.
func Collect[T any](ctx context.Context, limit int, fetch FetchFunc[T]) ([]T, error) {
	params := Params{Limit: NormalizeLimit(limit)}
	seen := map[string]struct{}{}
	var out []T

	for page := 0; page < MaxPages; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result, err := fetch(ctx, params)
		if err != nil {
			return nil, err
		}
		out = append(out, result.Items...)
		if !result.HasMore {
			return out, nil
		}

		next := strings.TrimSpace(result.NextCursor)
		if next == "" {
			return nil, fmt.Errorf("page %d announced more results without a cursor", page+1)
		}
		if _, dup := seen[next]; dup {
			return nil, fmt.Errorf("cursor %q repeated", next)
		}
		seen[next] = struct{}{}
		params.Cursor = next
	}
	return nil, fmt.Errorf("exceeded %d pages", MaxPages)
}
