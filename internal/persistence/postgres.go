// Package persistence is the durable mirror of per-tenant state: three
// tables (tenants, embeddings, lsh_entries) that the in-memory core can be
// rebuilt from after a restart. It sits behind the search.Persister
// interface rather than inside the core itself.
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/S-Corkum/secureann/internal/models"
	"github.com/S-Corkum/secureann/internal/observability"
)

// Store is a sqlx/lib-pq backed implementation of search.Persister plus
// the recovery scan used at startup.
type Store struct {
	db     *sqlx.DB
	logger observability.Logger
}

// New wraps an already-open *sqlx.DB. Callers own migrating the schema
// (see cmd/migrate) before passing it in.
func New(db *sqlx.DB, logger observability.Logger) *Store {
	if logger == nil {
		logger = observability.NoopLogger{}
	}
	return &Store{db: db, logger: logger.WithPrefix("persistence")}
}

type tenantRow struct {
	TenantID          string `db:"tenant_id"`
	EmbeddingDim      int    `db:"embedding_dim"`
	SchemeParamsJSON  []byte `db:"scheme_params"`
	NumTables         int    `db:"num_tables"`
	HashBits          int    `db:"hash_bits"`
	RerankCapDefault  int    `db:"rerank_cap_default"`
	PlanesBlob        []byte `db:"planes_blob"`
	MaxItems          int    `db:"max_items"`
	CreatedAt         sql.NullTime `db:"created_at"`
	LastActiveAt      sql.NullTime `db:"last_active_at"`
}

// SaveTenant inserts a new row into the tenants table.
func (s *Store) SaveTenant(ctx context.Context, t *models.Tenant, planes []byte) error {
	schemeJSON, err := json.Marshal(t.Scheme)
	if err != nil {
		return errors.Wrap(err, "marshal scheme params")
	}

	const query = `
		INSERT INTO tenants
			(tenant_id, embedding_dim, scheme_params, num_tables, hash_bits,
			 rerank_cap_default, planes_blob, max_items, created_at, last_active_at)
		VALUES
			(:tenant_id, :embedding_dim, :scheme_params, :num_tables, :hash_bits,
			 :rerank_cap_default, :planes_blob, :max_items, :created_at, :last_active_at)
	`
	_, err = s.db.NamedExecContext(ctx, query, map[string]interface{}{
		"tenant_id":           t.TenantID,
		"embedding_dim":       t.EmbeddingDim,
		"scheme_params":       schemeJSON,
		"num_tables":          t.LSH.NumTables,
		"hash_bits":           t.LSH.HashBits,
		"rerank_cap_default":  t.LSH.RerankCapDefault,
		"planes_blob":         planes,
		"max_items":           t.MaxItems,
		"created_at":          t.CreatedAt,
		"last_active_at":      t.LastActiveAt,
	})
	if err != nil {
		s.logger.Error("failed to save tenant", map[string]interface{}{"tenant_id": t.TenantID, "error": err.Error()})
		return errors.Wrap(err, "save tenant")
	}
	return nil
}

// DeleteTenant removes a tenant and (via ON DELETE CASCADE) its embeddings
// and lsh_entries.
func (s *Store) DeleteTenant(ctx context.Context, tenantID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM tenants WHERE tenant_id = $1`, tenantID)
	if err != nil {
		return errors.Wrap(err, "delete tenant")
	}
	return nil
}

// SaveEmbedding inserts an embedding row plus its T lsh_entries rows inside
// one transaction, matching the atomicity the in-memory store and index
// give the orchestrator.
func (s *Store) SaveEmbedding(ctx context.Context, e *models.Embedding, codes []int) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback() }()

	var metadataJSON []byte
	if e.Metadata != nil {
		metadataJSON, err = json.Marshal(e.Metadata)
		if err != nil {
			return errors.Wrap(err, "marshal metadata")
		}
	}

	const insertEmbedding = `
		INSERT INTO embeddings
			(embedding_id, tenant_id, external_id, ciphertext_blob, byte_length, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	var externalID interface{}
	if e.ExternalID != "" {
		externalID = e.ExternalID
	}
	if _, err := tx.ExecContext(ctx, insertEmbedding,
		e.EmbeddingID, e.TenantID, externalID, e.Ciphertext, e.ByteLength, metadataJSON, e.CreatedAt,
	); err != nil {
		return errors.Wrap(err, "insert embedding")
	}

	const insertEntry = `
		INSERT INTO lsh_entries (tenant_id, embedding_id, table_index, hash_value)
		VALUES ($1, $2, $3, $4)
	`
	for t, h := range codes {
		if _, err := tx.ExecContext(ctx, insertEntry, e.TenantID, e.EmbeddingID, t, h); err != nil {
			return errors.Wrap(err, "insert lsh entry")
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "commit tx")
	}
	return nil
}

// SoftDeleteEmbedding marks an embedding deleted without removing its row;
// space is reclaimed lazily by Purge.
func (s *Store) SoftDeleteEmbedding(ctx context.Context, tenantID, embeddingID string) error {
	const query = `
		UPDATE embeddings SET deleted_at = now()
		WHERE tenant_id = $1 AND embedding_id = $2 AND deleted_at IS NULL
	`
	_, err := s.db.ExecContext(ctx, query, tenantID, embeddingID)
	if err != nil {
		return errors.Wrap(err, "soft delete embedding")
	}
	return nil
}

// Purge physically removes embeddings soft-deleted more than olderThan ago.
// It is a hook for an operator-driven maintenance loop; no default
// schedule is assumed.
func (s *Store) Purge(ctx context.Context, olderThan string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM embeddings WHERE deleted_at IS NOT NULL AND deleted_at < now() - $1::interval`, olderThan)
	if err != nil {
		return 0, errors.Wrap(err, "purge embeddings")
	}
	n, _ := res.RowsAffected()
	return n, nil
}
