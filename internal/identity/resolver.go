package identity

import (
	"chathelper/internal/providers"

	json "github.com/goccy/go-json"
)

// Resolver derives the current channel identity from the host page. Hits
// are cached (time-bounded by the cache provider's TTL) so repeated calls
// do not re-scan the document; misses are not cached.
type Resolver struct {
	page       PageContext
	strategies []Strategy
	cache      providers.CacheProviderInterface
	logger     providers.Logger
	cacheKey   string
}

func NewResolver(page PageContext, strategies []Strategy, cache providers.CacheProviderInterface, logger providers.Logger, frameID string) *Resolver {
	return &Resolver{
		page:       page,
		strategies: strategies,
		cache:      cache,
		logger:     logger,
		cacheKey:   "identity:" + frameID,
	}
}

// Resolve returns the current identity or nil when every strategy misses.
// A nil result is not an error; callers fall back to the global bucket.
func (r *Resolver) Resolve() *ChannelIdentity {
	if data, ok := r.cache.Get(r.cacheKey); ok {
		var id ChannelIdentity
		if err := json.Unmarshal(data, &id); err == nil && id.Name != "" {
			return &id
		}
	}

	for _, strat := range r.strategies {
		id := strat.Resolve(r.page)
		if id == nil || id.Name == "" {
			continue
		}
		r.logger.Debugf(providers.TypeApp, "Resolved channel %q via %s strategy", id.Name, strat.Name())
		if data, err := json.Marshal(id); err == nil {
			r.cache.Set(r.cacheKey, data)
		}
		return id
	}

	r.logger.Debugf(providers.TypeApp, "No identity strategy succeeded")
	return nil
}

// InvalidateCache drops the cached identity, used on frame lifecycle
// resets so the next resolution re-scans the new page.
func (r *Resolver) InvalidateCache() {
	r.cache.Del(r.cacheKey)
}
