package http

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/S-Corkum/secureann/internal/crypto/he"
	"github.com/S-Corkum/secureann/internal/lsh"
	"github.com/S-Corkum/secureann/internal/observability"
	"github.com/S-Corkum/secureann/internal/search"
	"github.com/S-Corkum/secureann/internal/tenant"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	reg, err := tenant.NewRegistry(8, observability.NoopLogger{}, observability.NoopMetrics{})
	require.NoError(t, err)
	orch := search.New(reg, nil, 2, observability.NoopLogger{}, observability.NoopMetrics{})
	h := NewHandler(orch, 0, observability.NoopLogger{})

	r := gin.New()
	h.Register(r)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}, principalTenant string) *httptest.ResponseRecorder {
	t.Helper()
	buf, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(method, path, bytes.NewReader(buf))
	req.Header.Set("Content-Type", "application/json")
	if principalTenant != "" {
		req.Header.Set("Authorization", "Bearer "+principalTenant)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHTTP_InitializeAddSearch(t *testing.T) {
	r := newTestRouter(t)

	encryptFn, _, params, err := he.NewLocalEncryptor(4)
	require.NoError(t, err)

	initBody := initializeRequest{
		ContextParams: contextParamsDTO{
			Scheme: params.Scheme, PolyModulusDegree: params.PolyModulusDegree,
			CoeffModulusBits: params.CoeffModulusBits, PublicKeyBase64: params.PublicKeyBase64,
			RelinKeyBase64: params.RelinKeyBase64, GaloisKeysBase64: params.GaloisKeysBase64,
		},
		EmbeddingDim: 4,
		LSHConfig:    lshConfigDTO{NumTables: 4, HashSize: 4, NumCandidates: 20},
		MaxItems:     100,
	}
	rec := doJSON(t, r, "POST", "/v1/initialize", initBody, "")
	require.Equal(t, 200, rec.Code)

	var initResp initializeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &initResp))
	assert.NotEmpty(t, initResp.TenantID)

	planesBytes, err := base64.StdEncoding.DecodeString(initResp.RandomPlanesBase64)
	require.NoError(t, err)
	planes, err := lsh.Deserialize(planesBytes)
	require.NoError(t, err)

	v := []float64{1, 0, 0, 0}
	ct, err := encryptFn(v)
	require.NoError(t, err)
	ctBytes, err := ct.MarshalBinary()
	require.NoError(t, err)
	codes, err := lsh.HashVector(planes, v)
	require.NoError(t, err)

	addBody := addRequest{
		TenantID:              initResp.TenantID,
		EncryptedEmbeddingB64: base64.StdEncoding.EncodeToString(ctBytes),
		LSHHashes:             codes,
	}
	rec = doJSON(t, r, "POST", "/v1/add", addBody, initResp.TenantID)
	require.Equal(t, 200, rec.Code)

	var addResp addResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &addResp))
	assert.Equal(t, "created", addResp.Status)

	queryCt, err := encryptFn(v)
	require.NoError(t, err)
	queryCtBytes, err := queryCt.MarshalBinary()
	require.NoError(t, err)

	searchBody := searchRequest{
		TenantID:          initResp.TenantID,
		EncryptedQueryB64: base64.StdEncoding.EncodeToString(queryCtBytes),
		LSHHashes:         codes,
		TopK:              1,
		RerankCandidates:  10,
	}
	rec = doJSON(t, r, "POST", "/v1/search", searchBody, initResp.TenantID)
	require.Equal(t, 200, rec.Code)

	var searchResp searchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &searchResp))
	assert.Len(t, searchResp.Results, 1)
	assert.Equal(t, addResp.EmbeddingID, searchResp.Results[0].EmbeddingID)
}

func TestHTTP_Add_RejectsPrincipalMismatch(t *testing.T) {
	r := newTestRouter(t)

	addBody := addRequest{TenantID: "tenant-a", EncryptedEmbeddingB64: "", LSHHashes: []int{1}}
	rec := doJSON(t, r, "POST", "/v1/add", addBody, "someone-else")
	assert.Equal(t, 403, rec.Code)
}

func TestHTTP_Stats_UnknownTenantReturns404(t *testing.T) {
	r := newTestRouter(t)
	req := httptest.NewRequest("GET", "/v1/tenants/nope/stats", nil)
	req.Header.Set("Authorization", "Bearer nope")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, 404, rec.Code)
}
