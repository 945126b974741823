package lsh

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePlanes_DeterministicPerTenant(t *testing.T) {
	a, err := CreatePlanes("tenant-a", 4, 8, 16)
	require.NoError(t, err)
	b, err := CreatePlanes("tenant-a", 4, 8, 16)
	require.NoError(t, err)

	assert.Equal(t, a.Planes, b.Planes)
}

func TestCreatePlanes_DiffersAcrossTenants(t *testing.T) {
	a, err := CreatePlanes("tenant-a", 4, 8, 16)
	require.NoError(t, err)
	b, err := CreatePlanes("tenant-b", 4, 8, 16)
	require.NoError(t, err)

	assert.NotEqual(t, a.Planes, b.Planes)
}

func TestCreatePlanes_RowsAreUnitVectors(t *testing.T) {
	p, err := CreatePlanes("tenant-a", 2, 4, 8)
	require.NoError(t, err)

	for t_ := range p.Planes {
		for b := range p.Planes[t_] {
			var normSq float64
			for _, x := range p.Planes[t_][b] {
				normSq += x * x
			}
			assert.InDelta(t, 1.0, normSq, 1e-9)
		}
	}
}

func TestCreatePlanes_RejectsNonPositiveDims(t *testing.T) {
	_, err := CreatePlanes("tenant-a", 0, 8, 16)
	assert.Error(t, err)
	_, err = CreatePlanes("tenant-a", 4, 0, 16)
	assert.Error(t, err)
	_, err = CreatePlanes("tenant-a", 4, 8, 0)
	assert.Error(t, err)
}

func TestPlaneSetSerializeRoundTrip(t *testing.T) {
	p, err := CreatePlanes("tenant-a", 3, 5, 7)
	require.NoError(t, err)

	blob := Serialize(p)
	got, err := Deserialize(blob)
	require.NoError(t, err)

	assert.Equal(t, p.Tables, got.Tables)
	assert.Equal(t, p.Bits, got.Bits)
	assert.Equal(t, p.Dim, got.Dim)
	assert.Equal(t, p.Planes, got.Planes)
}

func TestDeserialize_RejectsShortBlob(t *testing.T) {
	_, err := Deserialize([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestDeserialize_RejectsWrongVersion(t *testing.T) {
	p, err := CreatePlanes("tenant-a", 1, 1, 1)
	require.NoError(t, err)
	blob := Serialize(p)
	blob[0] = 0xFF
	_, err = Deserialize(blob)
	assert.Error(t, err)
}

func TestDeserialize_RejectsSizeMismatch(t *testing.T) {
	p, err := CreatePlanes("tenant-a", 1, 1, 1)
	require.NoError(t, err)
	blob := Serialize(p)
	_, err = Deserialize(blob[:len(blob)-1])
	assert.Error(t, err)
}
