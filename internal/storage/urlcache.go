package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	ristretto_store "github.com/eko/gocache/store/ristretto/v4"
)

// Cached URLs expire slightly before the presign signature does.
const urlCacheTTL = 12 * time.Minute

// URLCache memoizes presigned download URLs so hot assets do not re-sign
// on every request.
type URLCache struct {
	cache *cache.LoadableCache[string]
}

// NewURLCache wraps the loader in a loadable Ristretto cache.
func NewURLCache(load func(ctx context.Context, key string) (string, error)) (*URLCache, error) {
	ristrettoCache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e5,
		MaxCost:     1 << 24,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: create ristretto cache: %w", err)
	}
	ristrettoStore := ristretto_store.NewRistretto(ristrettoCache)

	loadFunction := func(ctx context.Context, key any) (string, []store.Option, error) {
		objectKey, ok := key.(string)
		if !ok {
			return "", nil, fmt.Errorf("storage: invalid url cache key type %T", key)
		}
		url, err := load(ctx, objectKey)
		return url, []store.Option{store.WithExpiration(urlCacheTTL)}, err
	}

	return &URLCache{
		cache: cache.NewLoadable[string](loadFunction, cache.New[string](ristrettoStore)),
	}, nil
}

// Get returns the cached URL for the key, loading it on a miss.
func (c *URLCache) Get(ctx context.Context, key string) (string, error) {
	return c.cache.Get(ctx, key)
}
