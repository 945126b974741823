// Package models holds the data-model types shared across the search core:
// scheme and LSH parameters, Tenant, Embedding Record, search results and
// timings, and Search Event.
package models

import "time"

// SchemeParams describes the client-supplied CKKS-like scheme parameters a
// tenant initializes its HE context with.
type SchemeParams struct {
	Scheme              string `json:"scheme"`
	PolyModulusDegree   int    `json:"poly_modulus_degree"`
	CoeffModulusBits    []int  `json:"coeff_modulus_bits"`
	Scale               float64
	PublicKeyBase64     string `json:"public_key_base64"`
	RelinKeyBase64      string `json:"relin_key_base64,omitempty"`
	GaloisKeysBase64    string `json:"galois_keys_base64,omitempty"`
}

// LSHParams describes a tenant's fixed LSH configuration.
type LSHParams struct {
	NumTables        int `json:"num_tables"`
	HashBits         int `json:"hash_bits"`
	EmbeddingDim     int `json:"embedding_dim"`
	RerankCapDefault int `json:"rerank_cap_default"`
}

// Tenant is the root of one tenant's isolated state. EmbeddingDim and
// LSHParams are immutable after creation.
type Tenant struct {
	TenantID     string
	EmbeddingDim int
	Scheme       SchemeParams
	LSH          LSHParams
	MaxItems     int
	CreatedAt    time.Time
	LastActiveAt time.Time
}

// Embedding is one stored ciphertext record. The ciphertext is opaque
// bytes; the server never inspects it.
type Embedding struct {
	EmbeddingID string
	TenantID    string
	ExternalID  string // optional client-supplied idempotency key
	Ciphertext  []byte
	ByteLength  int
	Metadata    map[string]interface{}
	CreatedAt   time.Time
	DeletedAt   *time.Time
}

// Deleted reports whether this is a soft-deleted record.
func (e *Embedding) Deleted() bool { return e.DeletedAt != nil }

// SearchResult is one unranked candidate returned from a search.
// EncryptedSimilarity is the encrypted dot product; only the client can
// decrypt it.
type SearchResult struct {
	EmbeddingID        string
	EncryptedSimilarity []byte
	Metadata           map[string]interface{}
}

// SearchTiming breaks down where time in a search call went.
type SearchTiming struct {
	LSHMillis   float64
	HEMillis    float64
	TotalMillis float64
}

// SearchEvent is the append-only audit record for one search call. It never
// contains ciphertext plaintext or decrypted scores.
type SearchEvent struct {
	SearchID         string
	TenantID         string
	QueryHashCodes   []int
	TopK             int
	RerankCap        int
	CandidatesFound  int
	CandidatesChecked int
	ResultCount      int
	Timing           SearchTiming
	CreatedAt        time.Time
}
