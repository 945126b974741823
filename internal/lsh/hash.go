package lsh

import (
	"fmt"
	"math"

	"github.com/S-Corkum/secureann/internal/apperrors"
)

// HashVector normalizes v to unit length and computes one hash code per
// table: sign(⟨v, plane⟩) packed little-endian into an integer in
// [0, 2^Bits), using the convention dot >= 0 => bit 1. Client and server
// must use this exact convention or recall collapses.
func HashVector(p *PlaneSet, v []float64) ([]int, error) {
	if len(v) != p.Dim {
		return nil, apperrors.Validation("dimension_mismatch", fmt.Sprintf("vector has dimension %d, planes expect %d", len(v), p.Dim))
	}

	unit, err := normalize(v)
	if err != nil {
		return nil, err
	}

	codes := make([]int, p.Tables)
	for t := 0; t < p.Tables; t++ {
		var code int
		for b := 0; b < p.Bits; b++ {
			dot := dotProduct(unit, p.Planes[t][b])
			if dot >= 0 {
				code |= 1 << uint(b)
			}
		}
		codes[t] = code
	}
	return codes, nil
}

// normalize rescales v to unit length. Zero-norm vectors are rejected by
// both the hashing and encryption paths.
func normalize(v []float64) ([]float64, error) {
	var normSq float64
	for _, x := range v {
		normSq += x * x
	}
	if normSq == 0 {
		return nil, apperrors.Validation("zero_norm_vector", "cannot hash a zero-norm vector")
	}
	norm := math.Sqrt(normSq)
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = x / norm
	}
	return out, nil
}

func dotProduct(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
