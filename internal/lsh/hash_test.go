package lsh

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/S-Corkum/secureann/internal/apperrors"
)

func TestHashVector_DeterministicAndInRange(t *testing.T) {
	p, err := CreatePlanes("tenant-a", 4, 6, 8)
	require.NoError(t, err)

	v := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	codes1, err := HashVector(p, v)
	require.NoError(t, err)
	codes2, err := HashVector(p, v)
	require.NoError(t, err)

	assert.Equal(t, codes1, codes2)
	require.Len(t, codes1, 4)
	for _, c := range codes1 {
		assert.GreaterOrEqual(t, c, 0)
		assert.Less(t, c, 1<<6)
	}
}

func TestHashVector_ScaleInvariant(t *testing.T) {
	p, err := CreatePlanes("tenant-a", 4, 6, 8)
	require.NoError(t, err)

	v := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	scaled := make([]float64, len(v))
	for i, x := range v {
		scaled[i] = x * 10
	}

	codes1, err := HashVector(p, v)
	require.NoError(t, err)
	codes2, err := HashVector(p, scaled)
	require.NoError(t, err)
	assert.Equal(t, codes1, codes2)
}

func TestHashVector_RejectsDimMismatch(t *testing.T) {
	p, err := CreatePlanes("tenant-a", 2, 3, 4)
	require.NoError(t, err)

	_, err = HashVector(p, []float64{1, 2, 3})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))
}

func TestHashVector_RejectsZeroNormVector(t *testing.T) {
	p, err := CreatePlanes("tenant-a", 2, 3, 4)
	require.NoError(t, err)

	_, err = HashVector(p, []float64{0, 0, 0, 0})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))
}
