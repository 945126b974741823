package tenant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/S-Corkum/secureann/internal/apperrors"
	"github.com/S-Corkum/secureann/internal/crypto/he"
	"github.com/S-Corkum/secureann/internal/models"
	"github.com/S-Corkum/secureann/internal/observability"
)

func newTestTenant(t *testing.T, id string, dim int) *models.Tenant {
	t.Helper()
	params, err := he.NewLocalKeyMaterial(dim)
	require.NoError(t, err)
	return &models.Tenant{
		TenantID:     id,
		EmbeddingDim: dim,
		Scheme:       params,
		LSH:          models.LSHParams{NumTables: 4, HashBits: 6, EmbeddingDim: dim, RerankCapDefault: 50},
		MaxItems:     1000,
	}
}

func TestRegistry_InitializeAndGet(t *testing.T) {
	reg, err := NewRegistry(8, observability.NoopLogger{}, observability.NoopMetrics{})
	require.NoError(t, err)

	tn := newTestTenant(t, "tenant-a", 8)
	st, err := reg.Initialize(tn)
	require.NoError(t, err)
	assert.Equal(t, "tenant-a", st.Tenant.TenantID)

	got, err := reg.Get("tenant-a")
	require.NoError(t, err)
	assert.Same(t, st, got)
}

func TestRegistry_InitializeRejectsDuplicate(t *testing.T) {
	reg, err := NewRegistry(8, observability.NoopLogger{}, observability.NoopMetrics{})
	require.NoError(t, err)

	tn := newTestTenant(t, "tenant-a", 8)
	_, err = reg.Initialize(tn)
	require.NoError(t, err)

	_, err = reg.Initialize(newTestTenant(t, "tenant-a", 8))
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindTenant))
}

func TestRegistry_GetUnknownTenant(t *testing.T) {
	reg, err := NewRegistry(8, observability.NoopLogger{}, observability.NoopMetrics{})
	require.NoError(t, err)

	_, err = reg.Get("nope")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindTenant))
}

func TestRegistry_Teardown(t *testing.T) {
	reg, err := NewRegistry(8, observability.NoopLogger{}, observability.NoopMetrics{})
	require.NoError(t, err)

	tn := newTestTenant(t, "tenant-a", 8)
	_, err = reg.Initialize(tn)
	require.NoError(t, err)

	require.NoError(t, reg.Teardown("tenant-a"))
	_, err = reg.Get("tenant-a")
	assert.True(t, apperrors.Is(err, apperrors.KindTenant))

	err = reg.Teardown("tenant-a")
	assert.True(t, apperrors.Is(err, apperrors.KindTenant))
}

func TestState_HEContext_ReusesCachedInstance(t *testing.T) {
	reg, err := NewRegistry(8, observability.NoopLogger{}, observability.NoopMetrics{})
	require.NoError(t, err)

	tn := newTestTenant(t, "tenant-a", 8)
	st, err := reg.Initialize(tn)
	require.NoError(t, err)

	ctx1, err := st.HEContext(reg.HECache())
	require.NoError(t, err)
	ctx2, err := st.HEContext(reg.HECache())
	require.NoError(t, err)
	assert.Same(t, ctx1, ctx2)
}

func TestRegistry_TenantIDs(t *testing.T) {
	reg, err := NewRegistry(8, observability.NoopLogger{}, observability.NoopMetrics{})
	require.NoError(t, err)

	_, err = reg.Initialize(newTestTenant(t, "tenant-a", 8))
	require.NoError(t, err)
	_, err = reg.Initialize(newTestTenant(t, "tenant-b", 8))
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"tenant-a", "tenant-b"}, reg.TenantIDs())
}
