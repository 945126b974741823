package he

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/S-Corkum/secureann/internal/apperrors"
	"github.com/S-Corkum/secureann/internal/models"
)

func TestCreateContext_RejectsUnsupportedScheme(t *testing.T) {
	_, err := CreateContext("tenant-a", models.SchemeParams{Scheme: "bfv", PublicKeyBase64: "x"})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindContext))
}

func TestCreateContext_RequiresPublicKey(t *testing.T) {
	_, err := CreateContext("tenant-a", models.SchemeParams{})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindContext))
}

func TestCreateContext_RejectsNonPowerOfTwoDegree(t *testing.T) {
	_, err := CreateContext("tenant-a", models.SchemeParams{
		PolyModulusDegree: 1000,
		PublicKeyBase64:   "x",
	})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindContext))
}

func TestCreateContext_RejectsShallowModulusChain(t *testing.T) {
	_, err := CreateContext("tenant-a", models.SchemeParams{
		PolyModulusDegree: 8192,
		CoeffModulusBits:  []int{60},
		PublicKeyBase64:   "x",
	})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindContext))
}

func TestCreateContext_SucceedsWithRealKeyMaterial(t *testing.T) {
	params, err := NewLocalKeyMaterial(8)
	require.NoError(t, err)

	ctx, err := CreateContext("tenant-a", params)
	require.NoError(t, err)
	assert.Equal(t, "tenant-a", ctx.TenantID)
	assert.Greater(t, ctx.slots, 0)
}

func TestDeserializeCiphertext_RejectsGarbage(t *testing.T) {
	params, err := NewLocalKeyMaterial(8)
	require.NoError(t, err)
	ctx, err := CreateContext("tenant-a", params)
	require.NoError(t, err)

	_, err = ctx.DeserializeCiphertext([]byte("not a ciphertext"))
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindContext))
}
