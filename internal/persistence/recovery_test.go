package persistence

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/S-Corkum/secureann/internal/lsh"
)

func TestRecover_RebuildsStoreAndIndex(t *testing.T) {
	s, mock := newMockStore(t)

	planes, err := lsh.CreatePlanes("tenant-a", 2, 2, 2)
	require.NoError(t, err)
	planesBlob := lsh.Serialize(planes)

	schemeJSON, err := json.Marshal(map[string]interface{}{"scheme": "ckks"})
	require.NoError(t, err)

	tenantRows := sqlmock.NewRows([]string{
		"tenant_id", "embedding_dim", "scheme_params", "num_tables", "hash_bits",
		"rerank_cap_default", "planes_blob", "max_items", "created_at", "last_active_at",
	}).AddRow("tenant-a", 2, schemeJSON, 2, 2, 50, planesBlob, 100, time.Now(), time.Now())
	mock.ExpectQuery("SELECT \\* FROM tenants").WithArgs("tenant-a").WillReturnRows(tenantRows)

	embRows := sqlmock.NewRows([]string{
		"embedding_id", "tenant_id", "external_id", "ciphertext_blob", "byte_length", "metadata", "created_at", "deleted_at",
	}).
		AddRow("emb-1", "tenant-a", nil, []byte("ct1"), 3, nil, time.Now(), nil).
		AddRow("emb-2", "tenant-a", nil, []byte("ct2"), 3, nil, time.Now(), nil)
	mock.ExpectQuery("SELECT embedding_id, tenant_id, external_id").WithArgs("tenant-a").WillReturnRows(embRows)

	entryRows := sqlmock.NewRows([]string{"embedding_id", "table_index", "hash_value"}).
		AddRow("emb-1", 0, 1).
		AddRow("emb-1", 1, 2).
		AddRow("emb-2", 0, 1).
		// emb-3 is an orphan: no matching embedding row.
		AddRow("emb-3", 0, 1)
	mock.ExpectQuery("SELECT embedding_id, table_index, hash_value").WithArgs("tenant-a").WillReturnRows(entryRows)

	recovered, err := s.Recover(context.Background(), "tenant-a")
	require.NoError(t, err)

	assert.Equal(t, "tenant-a", recovered.Tenant.TenantID)
	assert.Equal(t, 1, recovered.OrphanEntries)
	assert.Equal(t, 1, recovered.CorruptRecords) // emb-2 only has 1/2 entries
	assert.Equal(t, 1, recovered.Store.LiveCount())
	assert.True(t, recovered.Index.Contains(0, 1, "emb-1"))
	assert.True(t, recovered.Index.Contains(1, 2, "emb-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecoverAll_ListsTenantIDs(t *testing.T) {
	s, mock := newMockStore(t)
	rows := sqlmock.NewRows([]string{"tenant_id"}).AddRow("tenant-a").AddRow("tenant-b")
	mock.ExpectQuery("SELECT tenant_id FROM tenants").WillReturnRows(rows)

	ids, err := s.RecoverAll(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"tenant-a", "tenant-b"}, ids)
	require.NoError(t, mock.ExpectationsWereMet())
}
