// Package search implements the Search Orchestrator: the only surface the
// rest of the core exposes outward. It coordinates the HE Context Service,
// LSH Service, Ciphertext Store and LSH Index behind a single per-tenant
// lock discipline.
package search

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/S-Corkum/secureann/internal/apperrors"
	"github.com/S-Corkum/secureann/internal/lsh"
	"github.com/S-Corkum/secureann/internal/models"
	"github.com/S-Corkum/secureann/internal/observability"
	"github.com/S-Corkum/secureann/internal/tenant"
)

// ServerMax bounds rerank_cap regardless of what a tenant or request asks
// for.
const ServerMax = 2000

// AddStatus values returned in an AddResult.
const (
	StatusCreated   = "created"
	StatusDuplicate = "duplicate"
)

// InitializeParams carries everything a client supplies on initialize.
type InitializeParams struct {
	EmbeddingDim int
	Scheme       models.SchemeParams
	LSH          models.LSHParams
	MaxItems     int
}

// InitializeResult is returned to the caller so it can hash queries
// identically to the server.
type InitializeResult struct {
	TenantID    string
	PlanesBytes []byte
	LSH         models.LSHParams
	MaxDBSize   int
}

// AddResult is the orchestrator's response to add.
type AddResult struct {
	EmbeddingID string
	Position    int
	Status      string
}

// SearchParams carries a search request.
type SearchParams struct {
	TenantID        string
	QueryCiphertext []byte
	QueryCodes      []int
	TopK            int
	RerankCap       int
	// MinMatches is the number of tables a candidate must share with the
	// query; values <= 0 mean 1.
	MinMatches int
}

// SearchResponse is the orchestrator's response to search.
type SearchResponse struct {
	Results           []models.SearchResult
	CandidatesFound   int
	CandidatesChecked int
	Timing            models.SearchTiming
}

// Persister is the subset of the durable mirror the orchestrator writes
// through on every mutating call. Left nil, the orchestrator is purely
// in-memory — useful for tests and for the recovery path, which rebuilds
// in-memory state directly from the database instead.
type Persister interface {
	SaveTenant(ctx context.Context, t *models.Tenant, planes []byte) error
	SaveEmbedding(ctx context.Context, e *models.Embedding, codes []int) error
	SoftDeleteEmbedding(ctx context.Context, tenantID, embeddingID string) error
	DeleteTenant(ctx context.Context, tenantID string) error
}

// Orchestrator is the public entry point used by the HTTP transport.
type Orchestrator struct {
	registry   *tenant.Registry
	persister  Persister
	logger     observability.Logger
	metrics    observability.MetricsClient
	maxWorkers int
}

// New creates an Orchestrator. persister may be nil to disable durability.
func New(registry *tenant.Registry, persister Persister, maxWorkers int, logger observability.Logger, metrics observability.MetricsClient) *Orchestrator {
	if logger == nil {
		logger = observability.NoopLogger{}
	}
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	return &Orchestrator{
		registry:   registry,
		persister:  persister,
		logger:     logger.WithPrefix("orchestrator"),
		metrics:    metrics,
		maxWorkers: maxWorkers,
	}
}

// Initialize creates a new tenant.
func (o *Orchestrator) Initialize(ctx context.Context, p InitializeParams) (*InitializeResult, error) {
	if p.EmbeddingDim <= 0 {
		return nil, apperrors.Validation("bad_embedding_dim", "embedding_dim must be positive")
	}
	if p.LSH.NumTables <= 0 || p.LSH.HashBits <= 0 {
		return nil, apperrors.Validation("bad_lsh_config", "num_tables and hash_size must both be positive")
	}

	t := &models.Tenant{
		TenantID:     uuid.NewString(),
		EmbeddingDim: p.EmbeddingDim,
		Scheme:       p.Scheme,
		LSH:          p.LSH,
		MaxItems:     p.MaxItems,
	}

	st, err := o.registry.Initialize(t)
	if err != nil {
		return nil, err
	}

	planesBytes := lsh.Serialize(st.Planes)

	if o.persister != nil {
		if err := o.persister.SaveTenant(ctx, t, planesBytes); err != nil {
			o.logger.Error("failed to persist new tenant", map[string]interface{}{"tenant_id": t.TenantID, "error": err.Error()})
		}
	}

	return &InitializeResult{
		TenantID:    t.TenantID,
		PlanesBytes: planesBytes,
		LSH:         p.LSH,
		MaxDBSize:   p.MaxItems,
	}, nil
}

// Add appends a new embedding. It is atomic across the
// ciphertext store and the LSH index: both succeed, or neither is mutated.
func (o *Orchestrator) Add(ctx context.Context, tenantID string, ctBytes []byte, codes []int, metadata map[string]interface{}, externalID string) (*AddResult, error) {
	st, err := o.registry.Get(tenantID)
	if err != nil {
		return nil, err
	}

	st.Lock()
	defer st.Unlock()

	if len(codes) != st.Tenant.LSH.NumTables {
		return nil, apperrors.Validation("bad_hash_count", "number of hash codes must equal the tenant's num_tables")
	}
	maxCode := 1 << uint(st.Tenant.LSH.HashBits)
	for _, c := range codes {
		if c < 0 || c >= maxCode {
			return nil, apperrors.Validation("bad_hash_value", "hash value out of range for hash_bits")
		}
	}

	if externalID != "" {
		if existingID, ok := st.Store.LookupExternal(externalID); ok {
			return &AddResult{EmbeddingID: existingID, Status: StatusDuplicate}, nil
		}
	}

	e := &models.Embedding{
		EmbeddingID: uuid.NewString(),
		TenantID:    tenantID,
		ExternalID:  externalID,
		Ciphertext:  ctBytes,
		ByteLength:  len(ctBytes),
		Metadata:    metadata,
		CreatedAt:   time.Now(),
	}

	if err := st.Store.Append(e); err != nil {
		return nil, err
	}
	st.Index.Insert(e.EmbeddingID, codes)
	st.Tenant.LastActiveAt = time.Now()

	if o.persister != nil {
		if err := o.persister.SaveEmbedding(ctx, e, codes); err != nil {
			o.logger.Error("failed to persist new embedding", map[string]interface{}{
				"tenant_id": tenantID, "embedding_id": e.EmbeddingID, "error": err.Error(),
			})
		}
	}

	position := st.Store.LiveCount() - 1
	o.metrics.RecordCounter("embeddings_added_total", 1, map[string]string{"tenant_id": tenantID})
	o.logger.Info("embedding added", map[string]interface{}{
		"tenant_id": tenantID, "embedding_id": e.EmbeddingID, "position": position, "byte_length": e.ByteLength,
	})

	return &AddResult{EmbeddingID: e.EmbeddingID, Position: position, Status: StatusCreated}, nil
}

// Search runs the two-stage retrieval pipeline.
func (o *Orchestrator) Search(ctx context.Context, p SearchParams) (*SearchResponse, error) {
	st, err := o.registry.Get(p.TenantID)
	if err != nil {
		return nil, err
	}

	if p.TopK < 1 || p.RerankCap < p.TopK || p.RerankCap > ServerMax {
		return nil, apperrors.Validation("bad_top_k_rerank_cap", "must satisfy 1 <= top_k <= rerank_cap <= server_max")
	}

	st.RLock()
	defer st.RUnlock()

	if len(p.QueryCodes) != st.Tenant.LSH.NumTables {
		return nil, apperrors.Validation("bad_hash_count", "number of query hash codes must equal the tenant's num_tables")
	}
	maxCode := 1 << uint(st.Tenant.LSH.HashBits)
	for _, c := range p.QueryCodes {
		if c < 0 || c >= maxCode {
			return nil, apperrors.Validation("bad_hash_value", "hash value out of range for hash_bits")
		}
	}

	start := time.Now()

	if st.Store.LiveCount() == 0 {
		resp := &SearchResponse{
			Results: []models.SearchResult{},
			Timing:  models.SearchTiming{TotalMillis: msSince(start)},
		}
		o.logSearchEvent(p, resp, start)
		return resp, nil
	}

	lshStart := time.Now()
	candidateIDs, candidatesFound := lsh.FindCandidates(p.QueryCodes, st.Index, p.MinMatches, p.RerankCap)
	lshMillis := msSince(lshStart)

	heCtx, err := st.HEContext(o.registry.HECache())
	if err != nil {
		return nil, err
	}
	queryCt, err := heCtx.DeserializeCiphertext(p.QueryCiphertext)
	if err != nil {
		return nil, err
	}

	live := make([]*models.Embedding, 0, len(candidateIDs))
	for _, id := range candidateIDs {
		e, ok := st.Store.Lookup(id)
		if !ok {
			// Index referenced an id the store no longer has live; the
			// index should have been updated on delete, but self-heal by
			// skipping rather than failing the whole search.
			o.logger.Warn("candidate present in index but missing from store", map[string]interface{}{
				"tenant_id": p.TenantID, "embedding_id": id,
			})
			continue
		}
		live = append(live, e)
	}

	heStart := time.Now()
	results, checked := scoreCandidates(ctx, heCtx, queryCt, live, o.maxWorkers, o.logger)
	heMillis := msSince(heStart)

	labels := map[string]string{"tenant_id": p.TenantID}
	o.metrics.RecordCounter("searches_total", 1, labels)
	o.metrics.RecordLatency("search", time.Since(start), labels)
	o.metrics.RecordHistogram("search_lsh_millis", lshMillis, labels)
	o.metrics.RecordHistogram("search_he_millis", heMillis, labels)

	resp := &SearchResponse{
		Results:           results,
		CandidatesFound:   candidatesFound,
		CandidatesChecked: checked,
		Timing: models.SearchTiming{
			LSHMillis:   lshMillis,
			HEMillis:    heMillis,
			TotalMillis: msSince(start),
		},
	}
	o.logSearchEvent(p, resp, start)
	return resp, nil
}

// logSearchEvent builds the append-only audit record for one search call and
// emits it as a structured log line. It never carries ciphertext plaintext
// or decrypted scores — only hash codes, counts, and timings.
func (o *Orchestrator) logSearchEvent(p SearchParams, resp *SearchResponse, start time.Time) {
	event := models.SearchEvent{
		SearchID:          uuid.NewString(),
		TenantID:          p.TenantID,
		QueryHashCodes:    p.QueryCodes,
		TopK:              p.TopK,
		RerankCap:         p.RerankCap,
		CandidatesFound:   resp.CandidatesFound,
		CandidatesChecked: resp.CandidatesChecked,
		ResultCount:       len(resp.Results),
		Timing:            resp.Timing,
		CreatedAt:         start,
	}
	o.logger.Info("search completed", map[string]interface{}{
		"search_id":          event.SearchID,
		"tenant_id":          event.TenantID,
		"query_hash_codes":   event.QueryHashCodes,
		"top_k":              event.TopK,
		"rerank_cap":         event.RerankCap,
		"candidates_found":   event.CandidatesFound,
		"candidates_checked": event.CandidatesChecked,
		"result_count":       event.ResultCount,
		"lsh_millis":         event.Timing.LSHMillis,
		"he_millis":          event.Timing.HEMillis,
		"total_millis":       event.Timing.TotalMillis,
	})
}

// Stats returns counts without ever touching ciphertext content.
func (o *Orchestrator) Stats(tenantID string) (itemCount, bucketCount int, lastActive time.Time, err error) {
	st, err := o.registry.Get(tenantID)
	if err != nil {
		return 0, 0, time.Time{}, err
	}
	st.RLock()
	defer st.RUnlock()
	return st.Store.LiveCount(), st.Index.BucketCount(), st.Tenant.LastActiveAt, nil
}

// Teardown frees a tenant's state.
func (o *Orchestrator) Teardown(ctx context.Context, tenantID string) error {
	st, err := o.registry.Get(tenantID)
	if err != nil {
		return err
	}
	st.Lock()
	defer st.Unlock()

	if err := o.registry.Teardown(tenantID); err != nil {
		return err
	}
	if o.persister != nil {
		if err := o.persister.DeleteTenant(ctx, tenantID); err != nil {
			o.logger.Error("failed to persist tenant teardown", map[string]interface{}{"tenant_id": tenantID, "error": err.Error()})
		}
	}
	return nil
}

func msSince(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
