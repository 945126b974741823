package http

// dto.go holds the request/response wire shapes for the tenant-facing HTTP
// surface. All binary payloads travel as base64 strings.

type contextParamsDTO struct {
	Scheme            string  `json:"scheme"`
	PolyModulusDegree int     `json:"poly_modulus_degree"`
	CoeffModulusBits  []int   `json:"coeff_modulus_bits,omitempty"`
	Scale             float64 `json:"scale"`
	PublicKeyBase64   string  `json:"public_key_base64"`
	RelinKeyBase64    string  `json:"relin_key_base64,omitempty"`
	GaloisKeysBase64  string  `json:"galois_keys_base64,omitempty"`
}

type lshConfigDTO struct {
	NumTables     int `json:"num_tables"`
	HashSize      int `json:"hash_size"`
	NumCandidates int `json:"num_candidates"`
}

type initializeRequest struct {
	ContextParams contextParamsDTO `json:"context_params" binding:"required"`
	EmbeddingDim  int              `json:"embedding_dim" binding:"required"`
	LSHConfig     lshConfigDTO     `json:"lsh_config" binding:"required"`
	MaxItems      int              `json:"max_items"`
}

type initializeResponse struct {
	TenantID            string       `json:"tenant_id"`
	ServerID             string       `json:"server_id"`
	MaxDBSize            int          `json:"max_db_size"`
	SupportedOperations  []string     `json:"supported_operations"`
	LSHConfig            lshConfigDTO `json:"lsh_config"`
	RandomPlanesBase64   string       `json:"random_planes_base64"`
}

type addRequest struct {
	TenantID               string                 `json:"tenant_id" binding:"required"`
	EncryptedEmbeddingB64  string                 `json:"encrypted_embedding_base64" binding:"required"`
	LSHHashes              []int                  `json:"lsh_hashes" binding:"required"`
	Metadata               map[string]interface{} `json:"metadata,omitempty"`
	ExternalID             string                 `json:"external_id,omitempty"`
}

type addResponse struct {
	EmbeddingID   string `json:"embedding_id"`
	IndexPosition int    `json:"index_position"`
	Status        string `json:"status"`
}

type searchRequest struct {
	TenantID           string `json:"tenant_id" binding:"required"`
	EncryptedQueryB64  string `json:"encrypted_query_base64" binding:"required"`
	LSHHashes          []int  `json:"lsh_hashes" binding:"required"`
	TopK               int    `json:"top_k" binding:"required"`
	RerankCandidates   int    `json:"rerank_candidates" binding:"required"`
}

type searchResultDTO struct {
	EmbeddingID             string                 `json:"embedding_id"`
	EncryptedSimilarityB64  string                 `json:"encrypted_similarity_base64"`
	Metadata                map[string]interface{} `json:"metadata,omitempty"`
}

type searchResponse struct {
	Results           []searchResultDTO `json:"results"`
	CandidatesChecked int               `json:"candidates_checked"`
	SearchTimeMillis  float64           `json:"search_time_ms"`
}

type statsResponse struct {
	ItemCount      int    `json:"item_count"`
	BucketCount    int    `json:"bucket_count"`
	LastActiveUnix int64  `json:"last_active_unix"`
}

type errorResponse struct {
	Kind    string `json:"kind"`
	Code    string `json:"code"`
	Message string `json:"message"`
}
