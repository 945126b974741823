// Package tenant ties the per-tenant collaborators (HE context, LSH planes,
// ciphertext store, LSH index) into one isolated unit and enforces a
// readers-writer access pattern: add/teardown take the writer lock,
// search/stats take the reader lock.
package tenant

import (
	"sync"
	"time"

	"github.com/S-Corkum/secureann/internal/apperrors"
	"github.com/S-Corkum/secureann/internal/crypto/he"
	"github.com/S-Corkum/secureann/internal/index"
	"github.com/S-Corkum/secureann/internal/lsh"
	"github.com/S-Corkum/secureann/internal/models"
	"github.com/S-Corkum/secureann/internal/observability"
	"github.com/S-Corkum/secureann/internal/store"
)

// State is one tenant's fully isolated world: its HE context, hyperplanes,
// ciphertext store and LSH index, guarded by a single readers-writer lock
// so that a Search never observes an Add half-applied, and so two
// concurrent Adds never interleave an index insert with a store append.
type State struct {
	mu sync.RWMutex

	Tenant *models.Tenant
	Planes *lsh.PlaneSet
	Store  *store.Store
	Index  *index.Index

	// heContext is populated lazily from the process-wide cache. It is
	// guarded by heMu rather than mu, because HEContext runs while searches
	// hold mu as readers; the *he.Context itself is immutable after creation.
	heMu      sync.Mutex
	heContext *he.Context
}

// Lock/Unlock/RLock/RUnlock expose the writer/reader gate directly so the
// orchestrator can hold it across a multi-step add or search without State
// needing to know what "add" or "search" means.
func (s *State) Lock()    { s.mu.Lock() }
func (s *State) Unlock()  { s.mu.Unlock() }
func (s *State) RLock()   { s.mu.RLock() }
func (s *State) RUnlock() { s.mu.RUnlock() }

// HEContext returns the cached HE context, or rebuilds and caches it on a
// miss using the tenant's durable scheme params: an evicted context must
// be reconstructible, never a hard failure.
func (s *State) HEContext(cache *he.ContextCache) (*he.Context, error) {
	s.heMu.Lock()
	defer s.heMu.Unlock()
	if s.heContext != nil {
		return s.heContext, nil
	}
	if cached, ok := cache.Get(s.Tenant.TenantID); ok {
		s.heContext = cached
		return cached, nil
	}
	ctx, err := he.CreateContext(s.Tenant.TenantID, s.Tenant.Scheme)
	if err != nil {
		return nil, err
	}
	cache.Put(s.Tenant.TenantID, ctx)
	s.heContext = ctx
	return ctx, nil
}

// NewState assembles a State from already-rebuilt collaborators, for use
// by the recovery path (persistence.Store.Recover) which reads store and
// index contents straight from the database rather than through
// Registry.Initialize's create-from-scratch path.
func NewState(t *models.Tenant, planes *lsh.PlaneSet, st *store.Store, idx *index.Index) *State {
	return &State{Tenant: t, Planes: planes, Store: st, Index: idx}
}

// Registry is the process-wide map of tenant_id -> *State, plus the shared
// HE context cache every tenant's State reads through.
type Registry struct {
	mu       sync.RWMutex
	tenants  map[string]*State
	heCache  *he.ContextCache
	logger   observability.Logger
	metrics  observability.MetricsClient
}

// NewRegistry creates an empty registry. heContextCapacity bounds the
// process-wide LRU of decoded HE contexts.
func NewRegistry(heContextCapacity int, logger observability.Logger, metrics observability.MetricsClient) (*Registry, error) {
	if logger == nil {
		logger = observability.NoopLogger{}
	}
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	cache, err := he.NewContextCache(heContextCapacity, logger, metrics)
	if err != nil {
		return nil, err
	}
	return &Registry{
		tenants: make(map[string]*State),
		heCache: cache,
		logger:  logger,
		metrics: metrics,
	}, nil
}

// HECache exposes the shared context cache so collaborators (e.g. State)
// can read or repopulate it.
func (r *Registry) HECache() *he.ContextCache { return r.heCache }

// Initialize creates a new tenant's State. It fails with
// apperrors.TenantAlreadyInitialized if the tenant_id is already present;
// initialize is never an upsert.
func (r *Registry) Initialize(t *models.Tenant) (*State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tenants[t.TenantID]; exists {
		return nil, apperrors.TenantAlreadyInitialized(t.TenantID)
	}

	planes, err := lsh.CreatePlanes(t.TenantID, t.LSH.NumTables, t.LSH.HashBits, t.EmbeddingDim)
	if err != nil {
		return nil, apperrors.Validation("bad_lsh_params", err.Error())
	}

	heCtx, err := he.CreateContext(t.TenantID, t.Scheme)
	if err != nil {
		return nil, err
	}
	r.heCache.Put(t.TenantID, heCtx)

	now := time.Now()
	t.CreatedAt = now
	t.LastActiveAt = now

	st := &State{
		Tenant:    t,
		Planes:    planes,
		Store:     store.New(t.TenantID, t.MaxItems),
		Index:     index.New(),
		heContext: heCtx,
	}
	r.tenants[t.TenantID] = st

	r.logger.Info("tenant initialized", map[string]interface{}{
		"tenant_id": t.TenantID, "embedding_dim": t.EmbeddingDim,
		"num_tables": t.LSH.NumTables, "hash_bits": t.LSH.HashBits,
	})
	r.metrics.RecordCounter("tenants_initialized_total", 1, nil)

	return st, nil
}

// Get returns the tenant's State, or apperrors.TenantNotFound.
func (r *Registry) Get(tenantID string) (*State, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st, ok := r.tenants[tenantID]
	if !ok {
		return nil, apperrors.TenantNotFound(tenantID)
	}
	return st, nil
}

// Restore re-inserts a State rebuilt from durable storage (used by
// recovery), without the already-initialized check Initialize performs.
func (r *Registry) Restore(st *State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tenants[st.Tenant.TenantID] = st
	if st.heContext != nil {
		r.heCache.Put(st.Tenant.TenantID, st.heContext)
	}
}

// Teardown permanently removes a tenant and evicts its cached HE context.
func (r *Registry) Teardown(tenantID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tenants[tenantID]; !ok {
		return apperrors.TenantNotFound(tenantID)
	}
	delete(r.tenants, tenantID)
	r.heCache.Evict(tenantID)
	r.logger.Info("tenant torn down", map[string]interface{}{"tenant_id": tenantID})
	r.metrics.RecordCounter("tenants_torn_down_total", 1, nil)
	return nil
}

// TenantIDs returns every currently registered tenant id, for maintenance
// loops (e.g. a periodic store.Purge sweep).
func (r *Registry) TenantIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.tenants))
	for id := range r.tenants {
		ids = append(ids, id)
	}
	return ids
}
