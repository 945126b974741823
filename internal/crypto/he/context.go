// Package he implements the HE Context Service: creating and caching a
// per-tenant CKKS context from client-supplied public parameters,
// deserializing ciphertexts, and computing encrypted inner products. The
// server only ever holds public key material; it can never decrypt.
package he

import (
	"encoding/base64"
	"fmt"

	"github.com/tuneinsight/lattigo/v6/core/rlwe"
	"github.com/tuneinsight/lattigo/v6/schemes/ckks"

	"github.com/S-Corkum/secureann/internal/apperrors"
	"github.com/S-Corkum/secureann/internal/models"
)

// defaultCoeffModulusBits is the default coefficient-modulus bit schedule
// applied when a tenant doesn't supply its own.
var defaultCoeffModulusBits = []int{60, 40, 40, 60}

const defaultPolyModulusDegree = 8192
const defaultLogScale = 40

// Context wraps one tenant's CKKS parameters and the public evaluation
// material (relinearization + Galois keys) needed to score candidates. It
// never holds a secret key.
type Context struct {
	TenantID   string
	Params     ckks.Parameters
	Encoder    *ckks.Encoder
	Evaluator  *ckks.Evaluator
	evalKeySet *rlwe.MemEvaluationKeySet
	// slots is the number of usable CKKS slots, i.e. the longest vector
	// this context can score in one shot.
	slots int
}

// CreateContext builds a Context from a tenant's scheme parameters. It
// fails with a ContextError (apperrors.KindContext) if the scheme is
// unsupported, the degree isn't a supported power of two, or the supplied
// key material doesn't parse.
func CreateContext(tenantID string, p models.SchemeParams) (*Context, error) {
	if p.Scheme != "" && p.Scheme != "ckks" && p.Scheme != "CKKS" {
		return nil, apperrors.ContextBadParameters(fmt.Sprintf("unsupported scheme %q", p.Scheme))
	}

	degree := p.PolyModulusDegree
	if degree == 0 {
		degree = defaultPolyModulusDegree
	}
	logN := log2(degree)
	if logN < 0 || 1<<uint(logN) != degree {
		return nil, apperrors.ContextBadParameters(fmt.Sprintf("poly_modulus_degree %d is not a power of two", degree))
	}

	logQ := p.CoeffModulusBits
	if len(logQ) == 0 {
		logQ = defaultCoeffModulusBits
	}
	// A usable level budget needs one multiplication level plus a
	// log-depth rotation sum over the slots.
	minLevels := 1 + log2(degree/2)
	if len(logQ) < minLevels {
		return nil, apperrors.ContextBadParameters(
			fmt.Sprintf("coefficient modulus has %d levels, need at least %d for one multiplication plus the rotation sum", len(logQ), minLevels))
	}

	logScale := defaultLogScale
	if p.Scale > 0 {
		logScale = log2(int(p.Scale))
	}

	params, err := ckks.NewParametersFromLiteral(ckks.ParametersLiteral{
		LogN:            logN,
		LogQ:            logQ,
		LogP:            []int{60},
		LogDefaultScale: logScale,
	})
	if err != nil {
		return nil, apperrors.ContextBadParameters(fmt.Sprintf("invalid CKKS parameters: %v", err))
	}

	if p.PublicKeyBase64 == "" {
		return nil, apperrors.ContextBadParameters("public key material is required; the server never accepts a secret key")
	}
	pkRaw, err := base64.StdEncoding.DecodeString(p.PublicKeyBase64)
	if err == nil {
		err = new(rlwe.PublicKey).UnmarshalBinary(pkRaw)
	}
	if err != nil {
		return nil, apperrors.ContextBadParameters(fmt.Sprintf("invalid public key: %v", err))
	}

	rlk, err := decodeRelinKey(p.RelinKeyBase64)
	if err != nil {
		return nil, apperrors.ContextBadParameters(fmt.Sprintf("invalid relinearization key: %v", err))
	}
	galKeys, err := decodeGaloisKeys(p.GaloisKeysBase64)
	if err != nil {
		return nil, apperrors.ContextBadParameters(fmt.Sprintf("invalid Galois keys: %v", err))
	}
	if rlk == nil || len(galKeys) == 0 {
		return nil, apperrors.ContextBadParameters("relinearization key and Galois/rotation keys are both required")
	}

	evk := rlwe.NewMemEvaluationKeySet(rlk, galKeys...)

	return &Context{
		TenantID:   tenantID,
		Params:     params,
		Encoder:    ckks.NewEncoder(params),
		Evaluator:  ckks.NewEvaluator(params, evk),
		evalKeySet: evk,
		slots:      params.MaxSlots(),
	}, nil
}

func decodeRelinKey(b64 string) (*rlwe.RelinearizationKey, error) {
	if b64 == "" {
		return nil, nil
	}
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, err
	}
	rlk := new(rlwe.RelinearizationKey)
	if err := rlk.UnmarshalBinary(raw); err != nil {
		return nil, err
	}
	return rlk, nil
}

func decodeGaloisKeys(b64 string) ([]*rlwe.GaloisKey, error) {
	if b64 == "" {
		return nil, nil
	}
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, err
	}
	var blobs [][]byte
	if err := unmarshalLenPrefixed(raw, &blobs); err != nil {
		return nil, err
	}
	keys := make([]*rlwe.GaloisKey, 0, len(blobs))
	for _, blob := range blobs {
		gk := new(rlwe.GaloisKey)
		if err := gk.UnmarshalBinary(blob); err != nil {
			return nil, err
		}
		keys = append(keys, gk)
	}
	return keys, nil
}

// DeserializeCiphertext parses opaque ciphertext bytes supplied over the
// wire. It fails with ContextBadCiphertext on a parse error; a scheme
// mismatch surfaces the same way because UnmarshalBinary validates the
// ring degree embedded in the blob against c.Params.
func (c *Context) DeserializeCiphertext(data []byte) (*rlwe.Ciphertext, error) {
	ct := new(rlwe.Ciphertext)
	if err := ct.UnmarshalBinary(data); err != nil {
		return nil, apperrors.ContextBadCiphertext(fmt.Sprintf("failed to parse ciphertext: %v", err))
	}
	if ct.Level() > c.Params.MaxLevel() {
		return nil, apperrors.ContextBadCiphertext("ciphertext level exceeds this context's modulus chain")
	}
	return ct, nil
}

func log2(n int) int {
	if n <= 0 {
		return -1
	}
	bits := 0
	for n > 1 {
		if n&1 != 0 {
			return -1
		}
		n >>= 1
		bits++
	}
	return bits
}
