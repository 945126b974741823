package he

import (
	"fmt"
	"runtime"

	"github.com/tuneinsight/lattigo/v6/core/rlwe"
	"golang.org/x/sync/errgroup"

	"github.com/S-Corkum/secureann/internal/apperrors"
)

// InnerProduct computes an encrypted dot product of two equal-length
// vectors already encrypted into queryCt and storedCt: elementwise
// multiply under encryption, relinearize, sum all slots via a log-depth
// rotation sum, then rescale so the result is at a usable level for the
// client's eventual decryption. It returns the serialized result
// ciphertext.
//
// Vectors are normalized and, where cosine similarity is wanted, that
// normalization happens client-side before encryption — this function
// only ever computes a dot product.
func (c *Context) InnerProduct(queryCt, storedCt *rlwe.Ciphertext) ([]byte, error) {
	if queryCt.Level() == 0 || storedCt.Level() == 0 {
		return nil, apperrors.ContextNoiseExhausted("ciphertext has no levels left for a multiplication")
	}

	product, err := c.Evaluator.MulRelinNew(queryCt, storedCt)
	if err != nil {
		return nil, apperrors.ContextNoiseExhausted(fmt.Sprintf("multiply-relinearize failed: %v", err))
	}

	summed := rlwe.NewCiphertext(c.Params, product.Degree(), product.Level())
	if err := c.Evaluator.InnerSum(product, 1, c.slots, summed); err != nil {
		return nil, apperrors.ContextNoiseExhausted(fmt.Sprintf("rotation sum failed: %v", err))
	}

	if err := c.Evaluator.Rescale(summed, summed); err != nil {
		return nil, apperrors.ContextNoiseExhausted(fmt.Sprintf("rescale failed: %v", err))
	}

	out, err := summed.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.KindInternal, "marshal_ciphertext", "failed to serialize result ciphertext")
	}
	return out, nil
}

// BatchInnerProduct is equivalent to K scalar InnerProduct calls, run over a
// bounded worker pool sized to the number of available cores by default. A
// failure scoring one candidate does not abort the others; its slot in the
// result is nil and the error is returned alongside it so the caller can
// log-and-skip it.
func (c *Context) BatchInnerProduct(queryCt *rlwe.Ciphertext, storedCts []*rlwe.Ciphertext, maxWorkers int) ([][]byte, []error) {
	if maxWorkers <= 0 {
		maxWorkers = runtime.GOMAXPROCS(0)
	}

	results := make([][]byte, len(storedCts))
	errs := make([]error, len(storedCts))

	var g errgroup.Group
	g.SetLimit(maxWorkers)

	for i, ct := range storedCts {
		i, ct := i, ct
		g.Go(func() error {
			score, err := c.InnerProduct(queryCt, ct)
			if err != nil {
				errs[i] = err
				return nil
			}
			results[i] = score
			return nil
		})
	}
	_ = g.Wait() // the inner closures never return an error themselves

	return results, errs
}
