// Package store implements the per-tenant append-only ciphertext store:
// opaque ciphertext bytes plus optional metadata, soft-deletion, and a
// size cap enforced against a tenant's max_items.
package store

import (
	"sync"
	"time"

	"github.com/S-Corkum/secureann/internal/apperrors"
	"github.com/S-Corkum/secureann/internal/models"
)

// Store is one tenant's ciphertext store. It is safe for concurrent use;
// Append is expected to be called under the tenant's writer lock so that it
// stays atomic with the corresponding LSH index insert.
type Store struct {
	mu       sync.RWMutex
	tenantID string
	maxItems int

	byID       map[string]*models.Embedding
	byExternal map[string]string // external_id -> embedding_id, live records only
	order      []string          // insertion order, for stats/iteration
	liveCount  int
}

// New creates an empty store bounded to maxItems live embeddings.
func New(tenantID string, maxItems int) *Store {
	return &Store{
		tenantID:   tenantID,
		maxItems:   maxItems,
		byID:       make(map[string]*models.Embedding),
		byExternal: make(map[string]string),
	}
}

// LookupExternal returns the embedding_id already stored under externalID,
// if any live record has it. Used by Add for idempotency.
func (s *Store) LookupExternal(externalID string) (string, bool) {
	if externalID == "" {
		return "", false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byExternal[externalID]
	return id, ok
}

// Append stores a new embedding. It rejects the write with
// apperrors.StoreQuotaExceeded if the tenant is already at max_items live
// embeddings.
func (s *Store) Append(e *models.Embedding) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[e.EmbeddingID]; exists {
		return apperrors.StoreIDCollision(e.EmbeddingID)
	}
	if s.maxItems > 0 && s.liveCount >= s.maxItems {
		return apperrors.StoreQuotaExceeded(s.tenantID, s.maxItems)
	}

	s.byID[e.EmbeddingID] = e
	s.order = append(s.order, e.EmbeddingID)
	s.liveCount++
	if e.ExternalID != "" {
		s.byExternal[e.ExternalID] = e.EmbeddingID
	}
	return nil
}

// Lookup returns the embedding, or ok=false if it does not exist or has
// been soft-deleted.
func (s *Store) Lookup(embeddingID string) (*models.Embedding, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.byID[embeddingID]
	if !ok || e.Deleted() {
		return nil, false
	}
	return e, true
}

// SoftDelete hides embeddingID from subsequent Lookup/search results. It is
// a no-op if the id is already deleted or unknown.
func (s *Store) SoftDelete(embeddingID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byID[embeddingID]
	if !ok || e.Deleted() {
		return
	}
	now := time.Now()
	e.DeletedAt = &now
	if e.ExternalID != "" {
		delete(s.byExternal, e.ExternalID)
	}
	s.liveCount--
}

// LiveCount returns the number of live (non-deleted) embeddings.
func (s *Store) LiveCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.liveCount
}

// All returns every live embedding, in insertion order; callers must not
// mutate the returned records.
func (s *Store) All() []*models.Embedding {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Embedding, 0, s.liveCount)
	for _, id := range s.order {
		if e := s.byID[id]; !e.Deleted() {
			out = append(out, e)
		}
	}
	return out
}

// Purge physically removes soft-deleted embeddings older than olderThan.
// The orchestrator never calls this on its own; the maintenance schedule
// is left to the deployment. It exists so an operator-driven
// maintenance loop has somewhere to call.
func (s *Store) Purge(olderThan time.Duration) (purged int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-olderThan)
	remaining := s.order[:0]
	for _, id := range s.order {
		e := s.byID[id]
		if e.DeletedAt != nil && e.DeletedAt.Before(cutoff) {
			delete(s.byID, id)
			purged++
			continue
		}
		remaining = append(remaining, id)
	}
	s.order = remaining
	return purged
}
