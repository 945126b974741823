package search

import (
	"context"
	"runtime"

	"github.com/tuneinsight/lattigo/v6/core/rlwe"
	"golang.org/x/sync/errgroup"

	"github.com/S-Corkum/secureann/internal/crypto/he"
	"github.com/S-Corkum/secureann/internal/models"
	"github.com/S-Corkum/secureann/internal/observability"
)

// scoredCandidate pairs an embedding with its encrypted score; ok is false
// when scoring failed for that one candidate only.
type scoredCandidate struct {
	result models.SearchResult
	ok     bool
}

// scoreCandidates runs HE inner products over a bounded worker pool, capped
// by default to the number of available cores. A per-candidate
// deserialization or scoring failure is logged and the candidate is
// dropped; it never aborts the rest of the batch.
func scoreCandidates(ctx context.Context, heCtx *he.Context, queryCt *rlwe.Ciphertext, candidates []*models.Embedding, maxWorkers int, logger observability.Logger) ([]models.SearchResult, int) {
	if maxWorkers <= 0 {
		maxWorkers = runtime.GOMAXPROCS(0)
	}

	out := make([]scoredCandidate, len(candidates))

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(maxWorkers)

	for i, e := range candidates {
		i, e := i, e
		g.Go(func() error {
			ct, err := heCtx.DeserializeCiphertext(e.Ciphertext)
			if err != nil {
				logger.Warn("skipping candidate with unparsable ciphertext", map[string]interface{}{
					"embedding_id": e.EmbeddingID, "error": err.Error(),
				})
				return nil
			}
			score, err := heCtx.InnerProduct(queryCt, ct)
			if err != nil {
				logger.Warn("skipping candidate after HE scoring failure", map[string]interface{}{
					"embedding_id": e.EmbeddingID, "error": err.Error(),
				})
				return nil
			}
			out[i] = scoredCandidate{
				result: models.SearchResult{
					EmbeddingID:         e.EmbeddingID,
					EncryptedSimilarity: score,
					Metadata:            e.Metadata,
				},
				ok: true,
			}
			return nil
		})
	}
	_ = g.Wait()

	results := make([]models.SearchResult, 0, len(candidates))
	checked := 0
	for _, sc := range out {
		checked++
		if sc.ok {
			results = append(results, sc.result)
		}
	}
	return results, checked
}
