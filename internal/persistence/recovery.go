package persistence

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/S-Corkum/secureann/internal/index"
	"github.com/S-Corkum/secureann/internal/lsh"
	"github.com/S-Corkum/secureann/internal/models"
	"github.com/S-Corkum/secureann/internal/store"
)

type embeddingRow struct {
	EmbeddingID    string  `db:"embedding_id"`
	TenantID       string  `db:"tenant_id"`
	ExternalID     *string `db:"external_id"`
	CiphertextBlob []byte  `db:"ciphertext_blob"`
	ByteLength     int     `db:"byte_length"`
	MetadataJSON   []byte  `db:"metadata"`
	CreatedAt      interface{} `db:"created_at"`
	DeletedAt      interface{} `db:"deleted_at"`
}

type lshEntryRow struct {
	EmbeddingID string `db:"embedding_id"`
	TableIndex  int    `db:"table_index"`
	HashValue   int    `db:"hash_value"`
}

// RecoveredTenant is the in-memory rebuild of one tenant's state, ready to
// hand to tenant.Registry.Restore.
type RecoveredTenant struct {
	Tenant         *models.Tenant
	Planes         *lsh.PlaneSet
	Store          *store.Store
	Index          *index.Index
	OrphanEntries  int // lsh_entries discarded because their embedding was missing
	CorruptRecords int // embeddings with fewer than T entries, excluded from search
}

// Recover rebuilds one tenant's in-memory state by scanning the durable
// tables. Index entries referencing a missing embedding are discarded;
// embeddings with fewer than T entries cannot have their hashes
// regenerated (that requires the plaintext) and are excluded from
// search instead.
func (s *Store) Recover(ctx context.Context, tenantID string) (*RecoveredTenant, error) {
	var tr tenantRow
	if err := s.db.GetContext(ctx, &tr, `SELECT * FROM tenants WHERE tenant_id = $1`, tenantID); err != nil {
		return nil, errors.Wrap(err, "load tenant row")
	}

	var scheme models.SchemeParams
	if err := json.Unmarshal(tr.SchemeParamsJSON, &scheme); err != nil {
		return nil, errors.Wrap(err, "unmarshal scheme params")
	}

	planes, err := lsh.Deserialize(tr.PlanesBlob)
	if err != nil {
		return nil, errors.Wrap(err, "deserialize planes")
	}

	tenant := &models.Tenant{
		TenantID:     tr.TenantID,
		EmbeddingDim: tr.EmbeddingDim,
		Scheme:       scheme,
		LSH: models.LSHParams{
			NumTables:        tr.NumTables,
			HashBits:         tr.HashBits,
			EmbeddingDim:     tr.EmbeddingDim,
			RerankCapDefault: tr.RerankCapDefault,
		},
		MaxItems: tr.MaxItems,
	}

	var embRows []embeddingRow
	if err := s.db.SelectContext(ctx, &embRows,
		`SELECT embedding_id, tenant_id, external_id, ciphertext_blob, byte_length, metadata, created_at, deleted_at
		 FROM embeddings WHERE tenant_id = $1 AND deleted_at IS NULL`, tenantID); err != nil {
		return nil, errors.Wrap(err, "load embedding rows")
	}

	st := store.New(tenantID, tr.MaxItems)
	byID := make(map[string]*models.Embedding, len(embRows))
	for _, row := range embRows {
		e := &models.Embedding{
			EmbeddingID: row.EmbeddingID,
			TenantID:    row.TenantID,
			Ciphertext:  row.CiphertextBlob,
			ByteLength:  row.ByteLength,
		}
		if row.ExternalID != nil {
			e.ExternalID = *row.ExternalID
		}
		if len(row.MetadataJSON) > 0 {
			_ = json.Unmarshal(row.MetadataJSON, &e.Metadata)
		}
		byID[e.EmbeddingID] = e
	}

	var entryRows []lshEntryRow
	if err := s.db.SelectContext(ctx, &entryRows,
		`SELECT embedding_id, table_index, hash_value FROM lsh_entries WHERE tenant_id = $1`, tenantID); err != nil {
		return nil, errors.Wrap(err, "load lsh entry rows")
	}

	codesByEmbedding := make(map[string]map[int]int) // embedding_id -> table_index -> hash_value
	orphanEntries := 0
	for _, row := range entryRows {
		if _, ok := byID[row.EmbeddingID]; !ok {
			orphanEntries++
			continue
		}
		m, ok := codesByEmbedding[row.EmbeddingID]
		if !ok {
			m = make(map[int]int)
			codesByEmbedding[row.EmbeddingID] = m
		}
		m[row.TableIndex] = row.HashValue
	}

	idx := index.New()
	corrupt := 0
	for id, e := range byID {
		codesMap := codesByEmbedding[id]
		if len(codesMap) != tr.NumTables {
			corrupt++
			s.logger.Warn("embedding has fewer LSH entries than num_tables, excluding from search", map[string]interface{}{
				"tenant_id": tenantID, "embedding_id": id, "entries": len(codesMap), "expected": tr.NumTables,
			})
			continue
		}
		codes := make([]int, tr.NumTables)
		for t := 0; t < tr.NumTables; t++ {
			codes[t] = codesMap[t]
		}
		if err := st.Append(e); err != nil {
			// Only reachable if two embeddings somehow share an id; skip
			// rather than abort the whole recovery.
			s.logger.Warn("failed to restore embedding into store", map[string]interface{}{
				"tenant_id": tenantID, "embedding_id": id, "error": err.Error(),
			})
			continue
		}
		idx.Insert(id, codes)
	}

	return &RecoveredTenant{
		Tenant:         tenant,
		Planes:         planes,
		Store:          st,
		Index:          idx,
		OrphanEntries:  orphanEntries,
		CorruptRecords: corrupt,
	}, nil
}

// RecoverAll returns every tenant_id with a durable row, for startup to
// iterate over.
func (s *Store) RecoverAll(ctx context.Context) ([]string, error) {
	var ids []string
	if err := s.db.SelectContext(ctx, &ids, `SELECT tenant_id FROM tenants`); err != nil {
		return nil, errors.Wrap(err, "list tenant ids")
	}
	return ids, nil
}
