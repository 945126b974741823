package he

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/S-Corkum/secureann/internal/observability"
)

// ContextCache is the process-wide, thread-safe cache of per-tenant HE
// contexts. It never owns the authority to recreate a
// context — on a miss the caller (the tenant registry, which retains the
// tenant's durable scheme params) is expected to call CreateContext again
// and Put the result back.
type ContextCache struct {
	cache   *lru.Cache[string, *Context]
	logger  observability.Logger
	metrics observability.MetricsClient
}

// NewContextCache creates a cache bounded to capacity entries. Eviction is
// plain LRU; an evicted context is simply dropped, never destroyed in a way
// that would make it unsafe to have dangling references to.
func NewContextCache(capacity int, logger observability.Logger, metrics observability.MetricsClient) (*ContextCache, error) {
	if logger == nil {
		logger = observability.NoopLogger{}
	}
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}

	c, err := lru.NewWithEvict(capacity, func(tenantID string, _ *Context) {
		logger.Debug("evicted cached HE context", map[string]interface{}{"tenant_id": tenantID})
		metrics.RecordCounter("he_context_cache_evictions_total", 1, nil)
	})
	if err != nil {
		return nil, err
	}

	return &ContextCache{cache: c, logger: logger, metrics: metrics}, nil
}

// Put caches context for tenantID, replacing any existing entry.
func (cc *ContextCache) Put(tenantID string, ctx *Context) {
	cc.cache.Add(tenantID, ctx)
}

// Get returns the cached context for tenantID, if present.
func (cc *ContextCache) Get(tenantID string) (*Context, bool) {
	ctx, ok := cc.cache.Get(tenantID)
	if ok {
		cc.metrics.RecordCounter("he_context_cache_hits_total", 1, nil)
	} else {
		cc.metrics.RecordCounter("he_context_cache_misses_total", 1, nil)
	}
	return ctx, ok
}

// Evict removes tenantID's cached context, e.g. on teardown.
func (cc *ContextCache) Evict(tenantID string) {
	cc.cache.Remove(tenantID)
}
