package he

import (
	"encoding/base64"

	"github.com/tuneinsight/lattigo/v6/core/rlwe"
	"github.com/tuneinsight/lattigo/v6/schemes/ckks"

	"github.com/S-Corkum/secureann/internal/models"
)

// NewLocalKeyMaterial generates a throwaway CKKS keypair entirely in
// memory and returns the public SchemeParams a client would upload on
// initialize. It exists for tests and local development fixtures: the
// secret key it generates is discarded immediately and never reaches the
// returned value, so it cannot be used to smuggle decryption capability
// into the server.
func NewLocalKeyMaterial(dim int) (models.SchemeParams, error) {
	degree := defaultPolyModulusDegree
	logN := log2(degree)
	logQ := defaultCoeffModulusBits

	params, err := ckks.NewParametersFromLiteral(ckks.ParametersLiteral{
		LogN:            logN,
		LogQ:            logQ,
		LogP:            []int{60},
		LogDefaultScale: defaultLogScale,
	})
	if err != nil {
		return models.SchemeParams{}, err
	}

	kgen := rlwe.NewKeyGenerator(params)
	sk := kgen.GenSecretKeyNew()
	pk := kgen.GenPublicKeyNew(sk)
	rlk := kgen.GenRelinearizationKeyNew(sk)

	galEls := params.GaloisElementsForInnerSum(1, params.MaxSlots())
	galKeys := kgen.GenGaloisKeysNew(galEls, sk)

	pkBytes, err := pk.MarshalBinary()
	if err != nil {
		return models.SchemeParams{}, err
	}
	rlkBytes, err := rlk.MarshalBinary()
	if err != nil {
		return models.SchemeParams{}, err
	}

	blobs := make([][]byte, len(galKeys))
	for i, gk := range galKeys {
		b, err := gk.MarshalBinary()
		if err != nil {
			return models.SchemeParams{}, err
		}
		blobs[i] = b
	}

	return models.SchemeParams{
		Scheme:            "ckks",
		PolyModulusDegree: degree,
		CoeffModulusBits:  logQ,
		PublicKeyBase64:   base64.StdEncoding.EncodeToString(pkBytes),
		RelinKeyBase64:    base64.StdEncoding.EncodeToString(rlkBytes),
		GaloisKeysBase64:  base64.StdEncoding.EncodeToString(marshalLenPrefixed(blobs)),
	}, nil
}

// NewLocalEncryptor is a test/fixture helper pairing NewLocalKeyMaterial:
// it re-derives the same params and a fresh encryptor bound to a throwaway
// secret key, so tests can encrypt query/candidate vectors without a real
// client SDK. It also returns a decrypt closure bound to the same secret
// key, so tests can check the numeric correctness of an encrypted
// computation's result — something the server itself can never do, since
// it never holds the secret key. The secret key lives only inside these
// two closures and is never written to any return value.
func NewLocalEncryptor(dim int) (encryptVector func(v []float64) (*rlwe.Ciphertext, error), decryptVector func(ct *rlwe.Ciphertext) ([]float64, error), params models.SchemeParams, err error) {
	degree := defaultPolyModulusDegree
	logN := log2(degree)
	logQ := defaultCoeffModulusBits

	ckksParams, err := ckks.NewParametersFromLiteral(ckks.ParametersLiteral{
		LogN:            logN,
		LogQ:            logQ,
		LogP:            []int{60},
		LogDefaultScale: defaultLogScale,
	})
	if err != nil {
		return nil, nil, models.SchemeParams{}, err
	}

	kgen := rlwe.NewKeyGenerator(ckksParams)
	sk := kgen.GenSecretKeyNew()
	pk := kgen.GenPublicKeyNew(sk)
	rlk := kgen.GenRelinearizationKeyNew(sk)
	galEls := ckksParams.GaloisElementsForInnerSum(1, ckksParams.MaxSlots())
	galKeys := kgen.GenGaloisKeysNew(galEls, sk)

	encoder := ckks.NewEncoder(ckksParams)
	encryptor := rlwe.NewEncryptor(ckksParams, pk)
	decryptor := rlwe.NewDecryptor(ckksParams, sk)

	encrypt := func(v []float64) (*rlwe.Ciphertext, error) {
		values := make([]float64, ckksParams.MaxSlots())
		copy(values, v)
		pt := ckks.NewPlaintext(ckksParams, ckksParams.MaxLevel())
		if err := encoder.Encode(values, pt); err != nil {
			return nil, err
		}
		ct, err := encryptor.EncryptNew(pt)
		if err != nil {
			return nil, err
		}
		return ct, nil
	}

	decrypt := func(ct *rlwe.Ciphertext) ([]float64, error) {
		pt := ckks.NewPlaintext(ckksParams, ct.Level())
		decryptor.Decrypt(ct, pt)
		values := make([]float64, ckksParams.MaxSlots())
		if err := encoder.Decode(pt, values); err != nil {
			return nil, err
		}
		return values, nil
	}

	pkBytes, err := pk.MarshalBinary()
	if err != nil {
		return nil, nil, models.SchemeParams{}, err
	}
	rlkBytes, err := rlk.MarshalBinary()
	if err != nil {
		return nil, nil, models.SchemeParams{}, err
	}
	blobs := make([][]byte, len(galKeys))
	for i, gk := range galKeys {
		b, err := gk.MarshalBinary()
		if err != nil {
			return nil, nil, models.SchemeParams{}, err
		}
		blobs[i] = b
	}

	return encrypt, decrypt, models.SchemeParams{
		Scheme:            "ckks",
		PolyModulusDegree: degree,
		CoeffModulusBits:  logQ,
		PublicKeyBase64:   base64.StdEncoding.EncodeToString(pkBytes),
		RelinKeyBase64:    base64.StdEncoding.EncodeToString(rlkBytes),
		GaloisKeysBase64:  base64.StdEncoding.EncodeToString(marshalLenPrefixed(blobs)),
	}, nil
}
