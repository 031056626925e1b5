// Package market caches market-context lookups so repeated purchase
// questions about the same item do not hit the model each time.
package market

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/dvloznov/monomind/internal/logger"
	"github.com/dvloznov/monomind/internal/pipeline"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultTTL        = 6 * time.Hour
	DefaultMaxEntries = 1000
)

// Options configures a CachedProvider.
type Options struct {
	TTL        time.Duration
	MaxEntries int64
}

// CachedProvider wraps a MarketContextProvider with a TTL cache. Concurrent
// lookups of the same item share one upstream call. Failed lookups are not
// cached.
type CachedProvider struct {
	next  pipeline.MarketContextProvider
	cache *ristretto.Cache[string, string]
	group singleflight.Group
	ttl   time.Duration
}

// NewCachedProvider creates a CachedProvider in front of next.
func NewCachedProvider(next pipeline.MarketContextProvider, opts Options) (*CachedProvider, error) {
	if next == nil {
		return nil, fmt.Errorf("NewCachedProvider: provider is nil")
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = DefaultMaxEntries
	}

	cache, err := ristretto.NewCache(&ristretto.Config[string, string]{
		NumCounters: opts.MaxEntries * 10, // number of keys to track frequency of
		MaxCost:     opts.MaxEntries,
		BufferItems: 64, // number of keys per Get buffer
	})
	if err != nil {
		return nil, fmt.Errorf("NewCachedProvider: create cache: %w", err)
	}

	return &CachedProvider{next: next, cache: cache, ttl: opts.TTL}, nil
}

// Lookup implements pipeline.MarketContextProvider.
func (p *CachedProvider) Lookup(ctx context.Context, itemName string) (string, error) {
	key := cacheKey(itemName)
	if key == "" {
		return p.next.Lookup(ctx, itemName)
	}

	if text, ok := p.cache.Get(key); ok {
		log := logger.FromContext(ctx)
		log.Debug().Str("item", key).Msg("Market context cache hit")
		return text, nil
	}

	v, err, shared := p.group.Do(key, func() (any, error) {
		text, err := p.next.Lookup(ctx, itemName)
		if err != nil {
			return "", err
		}
		p.cache.SetWithTTL(key, text, 1, p.ttl)
		p.cache.Wait()
		return text, nil
	})
	if err != nil {
		return "", err
	}
	if shared {
		log := logger.FromContext(ctx)
		log.Debug().Str("item", key).Msg("Market context lookup shared")
	}
	return v.(string), nil
}

// Invalidate drops a cached entry.
func (p *CachedProvider) Invalidate(itemName string) {
	p.cache.Del(cacheKey(itemName))
}

// Close releases the cache's background goroutines.
func (p *CachedProvider) Close() {
	p.cache.Close()
}

// cacheKey lower-cases and collapses whitespace so "MacBook  Air" and
// "macbook air" share an entry.
func cacheKey(itemName string) string {
	return strings.Join(strings.Fields(strings.ToLower(itemName)), " ")
}

var _ pipeline.MarketContextProvider = (*CachedProvider)(nil)
