// Package lsh implements the signed-random-projection (SimHash) locality
// sensitive hashing used for approximate candidate selection: deterministic
// per-tenant hyperplanes, bit-identical hash codes on client and server, and
// table-wise candidate intersection.
package lsh

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"
	"math/rand/v2"
)

// PlaneSet is a tenant's dense [T][B][D] array of unit hyperplane normals.
type PlaneSet struct {
	Tables int // T
	Bits   int // B
	Dim    int // D
	// Planes[t][b] is a unit vector of length Dim.
	Planes [][][]float64
}

// planesFormatVersion is bumped whenever the serialized byte layout changes.
const planesFormatVersion = 1

// seedFromTenantID derives a deterministic 128-bit PRNG seed from a
// tenant_id so that client and server, given the same tenant_id, generate
// bit-identical planes. SHA-256 rather than a faster non-cryptographic hash is used
// deliberately: tenant IDs are chosen by callers (not random on our side),
// and a hash with no practical collision structure keeps two different
// tenant IDs from ever colliding onto the same plane set.
func seedFromTenantID(tenantID string) (seed1, seed2 uint64) {
	sum := sha256.Sum256([]byte(tenantID))
	seed1 = binary.LittleEndian.Uint64(sum[0:8])
	seed2 = binary.LittleEndian.Uint64(sum[8:16])
	return seed1, seed2
}

// CreatePlanes generates the deterministic plane set for a tenant. Calling
// it twice with the same tenantID, T, B, D always produces bit-identical
// output.
func CreatePlanes(tenantID string, tables, bits, dim int) (*PlaneSet, error) {
	if tables <= 0 || bits <= 0 || dim <= 0 {
		return nil, fmt.Errorf("lsh: tables, bits, and dim must all be positive (got T=%d B=%d D=%d)", tables, bits, dim)
	}

	s1, s2 := seedFromTenantID(tenantID)
	rng := rand.New(rand.NewPCG(s1, s2))

	planes := make([][][]float64, tables)
	for t := 0; t < tables; t++ {
		planes[t] = make([][]float64, bits)
		for b := 0; b < bits; b++ {
			row := make([]float64, dim)
			var normSq float64
			for d := 0; d < dim; d++ {
				v := rng.NormFloat64()
				row[d] = v
				normSq += v * v
			}
			norm := math.Sqrt(normSq)
			if norm > 0 {
				for d := range row {
					row[d] /= norm
				}
			}
			planes[t][b] = row
		}
	}

	return &PlaneSet{Tables: tables, Bits: bits, Dim: dim, Planes: planes}, nil
}

// Serialize encodes a PlaneSet as little-endian IEEE-754 doubles, row-major
// [T][B][D], preceded by a (version, T, B, D) header.
func Serialize(p *PlaneSet) []byte {
	header := make([]byte, 16)
	binary.LittleEndian.PutUint32(header[0:4], planesFormatVersion)
	binary.LittleEndian.PutUint32(header[4:8], uint32(p.Tables))
	binary.LittleEndian.PutUint32(header[8:12], uint32(p.Bits))
	binary.LittleEndian.PutUint32(header[12:16], uint32(p.Dim))

	body := make([]byte, p.Tables*p.Bits*p.Dim*8)
	offset := 0
	for t := 0; t < p.Tables; t++ {
		for b := 0; b < p.Bits; b++ {
			for d := 0; d < p.Dim; d++ {
				binary.LittleEndian.PutUint64(body[offset:offset+8], math.Float64bits(p.Planes[t][b][d]))
				offset += 8
			}
		}
	}

	return append(header, body...)
}

// Deserialize decodes bytes produced by Serialize.
func Deserialize(data []byte) (*PlaneSet, error) {
	if len(data) < 16 {
		return nil, fmt.Errorf("lsh: plane blob too short to contain a header (%d bytes)", len(data))
	}

	version := binary.LittleEndian.Uint32(data[0:4])
	if version != planesFormatVersion {
		return nil, fmt.Errorf("lsh: unsupported plane blob version %d", version)
	}

	tables := int(binary.LittleEndian.Uint32(data[4:8]))
	bits := int(binary.LittleEndian.Uint32(data[8:12]))
	dim := int(binary.LittleEndian.Uint32(data[12:16]))

	want := 16 + tables*bits*dim*8
	if len(data) != want {
		return nil, fmt.Errorf("lsh: plane blob has %d bytes, expected %d for T=%d B=%d D=%d", len(data), want, tables, bits, dim)
	}

	planes := make([][][]float64, tables)
	offset := 16
	for t := 0; t < tables; t++ {
		planes[t] = make([][]float64, bits)
		for b := 0; b < bits; b++ {
			row := make([]float64, dim)
			for d := 0; d < dim; d++ {
				row[d] = math.Float64frombits(binary.LittleEndian.Uint64(data[offset : offset+8]))
				offset += 8
			}
			planes[t][b] = row
		}
	}

	return &PlaneSet{Tables: tables, Bits: bits, Dim: dim, Planes: planes}, nil
}
