package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/S-Corkum/secureann/internal/models"
	"github.com/S-Corkum/secureann/internal/observability"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	return New(sqlxDB, observability.NoopLogger{}), mock
}

func TestStore_SaveTenant(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO tenants").WillReturnResult(sqlmock.NewResult(1, 1))

	tn := &models.Tenant{
		TenantID:     "tenant-a",
		EmbeddingDim: 4,
		Scheme:       models.SchemeParams{Scheme: "ckks"},
		LSH:          models.LSHParams{NumTables: 4, HashBits: 4},
		MaxItems:     100,
		CreatedAt:    time.Now(),
		LastActiveAt: time.Now(),
	}

	err := s.SaveTenant(context.Background(), tn, []byte("planes"))
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_SaveEmbedding_CommitsAtomically(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO embeddings").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO lsh_entries").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO lsh_entries").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	e := &models.Embedding{
		EmbeddingID: "emb-1",
		TenantID:    "tenant-a",
		Ciphertext:  []byte("ct"),
		ByteLength:  2,
		CreatedAt:   time.Now(),
	}

	err := s.SaveEmbedding(context.Background(), e, []int{1, 2})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_SaveEmbedding_RollsBackOnFailure(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO embeddings").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO lsh_entries").WillReturnError(assertError{"boom"})
	mock.ExpectRollback()

	e := &models.Embedding{EmbeddingID: "emb-1", TenantID: "tenant-a", Ciphertext: []byte("ct")}

	err := s.SaveEmbedding(context.Background(), e, []int{1})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_SoftDeleteEmbedding(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("UPDATE embeddings SET deleted_at").WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.SoftDeleteEmbedding(context.Background(), "tenant-a", "emb-1")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_DeleteTenant(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("DELETE FROM tenants").WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.DeleteTenant(context.Background(), "tenant-a")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

type assertError struct{ msg string }

func (e assertError) Error() string { return e.msg }

func TestAssertErrorSatisfiesError(t *testing.T) {
	var err error = assertError{"x"}
	assert.Equal(t, "x", err.Error())
}
