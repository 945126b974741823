// Package index implements the per-tenant inverted index from
// (table_index, hash_value) to the set of embedding ids occupying that
// bucket.
package index

import "sync"

type bucketKey struct {
	table int
	hash  int
}

// Index is one tenant's LSH inverted index. It is safe for concurrent use;
// callers that also need to coordinate with the tenant's ciphertext store
// (so that an add is atomic across both) should still take the tenant-level
// writer lock before calling Insert/Remove.
type Index struct {
	mu      sync.RWMutex
	buckets map[bucketKey]map[string]struct{}
}

// New creates an empty index.
func New() *Index {
	return &Index{buckets: make(map[bucketKey]map[string]struct{})}
}

// Insert adds embeddingID to the bucket for every (table, code) pair.
// len(codes) must equal the tenant's T; the caller validates this upstream.
func (idx *Index) Insert(embeddingID string, codes []int) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	for t, h := range codes {
		key := bucketKey{table: t, hash: h}
		bucket, ok := idx.buckets[key]
		if !ok {
			bucket = make(map[string]struct{})
			idx.buckets[key] = bucket
		}
		bucket[embeddingID] = struct{}{}
	}
}

// Remove drops embeddingID from every bucket it occupies under codes.
// Buckets that become empty are dropped.
func (idx *Index) Remove(embeddingID string, codes []int) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	for t, h := range codes {
		key := bucketKey{table: t, hash: h}
		bucket, ok := idx.buckets[key]
		if !ok {
			continue
		}
		delete(bucket, embeddingID)
		if len(bucket) == 0 {
			delete(idx.buckets, key)
		}
	}
}

// BucketsFor returns a snapshot of the embedding ids in bucket (t, h). The
// returned slice is a copy; mutating the index afterwards does not affect
// it.
func (idx *Index) BucketsFor(t, h int) []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	bucket, ok := idx.buckets[bucketKey{table: t, hash: h}]
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(bucket))
	for id := range bucket {
		ids = append(ids, id)
	}
	return ids
}

// BucketCount returns the number of non-empty buckets, used by Stats.
func (idx *Index) BucketCount() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.buckets)
}

// Contains reports whether embeddingID is present in the bucket for
// (t, h). Used by recovery's invariant checks.
func (idx *Index) Contains(t, h int, embeddingID string) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	bucket, ok := idx.buckets[bucketKey{table: t, hash: h}]
	if !ok {
		return false
	}
	_, ok = bucket[embeddingID]
	return ok
}
