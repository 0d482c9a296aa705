package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/goliatone/go-custody/core"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

const dispatchEntryCacheKeyPrefix = "go-custody::dispatch_entry::v1"

// DispatchEntryGetter reads a single dispatch entry by id.
type DispatchEntryGetter interface {
	Get(ctx context.Context, id string) (core.DispatchEntry, error)
}

// CachedDispatchLogReader serves entry lookups through a cache. Dispatch
// entries are never updated once written, so cached values need no
// invalidation beyond the cache TTL. List always reads through.
type CachedDispatchLogReader struct {
	base  *DispatchLogStore
	cache repositorycache.CacheService
}

func NewCachedDispatchLogReader(
	base *DispatchLogStore,
	cacheService repositorycache.CacheService,
) (*CachedDispatchLogReader, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base dispatch log store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: dispatch log cache service is required")
	}
	return &CachedDispatchLogReader{base: base, cache: cacheService}, nil
}

// DispatchEntryCacheKey returns go-custody::dispatch_entry::v1::<id> with the
// id URL-path escaped.
func DispatchEntryCacheKey(id string) (string, error) {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return "", fmt.Errorf("sqlstore: dispatch entry id is required")
	}
	return dispatchEntryCacheKeyPrefix + "::" + url.PathEscape(trimmed), nil
}

func (r *CachedDispatchLogReader) Get(ctx context.Context, id string) (core.DispatchEntry, error) {
	if r == nil || r.base == nil || r.cache == nil {
		return core.DispatchEntry{}, fmt.Errorf("sqlstore: cached dispatch log reader is not configured")
	}
	cacheKey, err := DispatchEntryCacheKey(id)
	if err != nil {
		return core.DispatchEntry{}, err
	}
	return repositorycache.GetOrFetch(ctx, r.cache, cacheKey, func(ctx context.Context) (core.DispatchEntry, error) {
		return r.base.Get(ctx, strings.TrimSpace(id))
	})
}

func (r *CachedDispatchLogReader) List(ctx context.Context, filter core.DispatchLogFilter) (core.DispatchLogPage, error) {
	if r == nil || r.base == nil {
		return core.DispatchLogPage{}, fmt.Errorf("sqlstore: cached dispatch log reader is not configured")
	}
	return r.base.List(ctx, filter)
}
