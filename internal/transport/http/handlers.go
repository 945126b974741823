// Package http is the thin tenant-facing transport: three operations
// (initialize/add/search) plus stats/teardown, all binary payloads as
// base64. Authentication is assumed already performed upstream; this layer
// only compares the authenticated principal against the tenant_id in the
// body.
package http

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/S-Corkum/secureann/internal/apperrors"
	"github.com/S-Corkum/secureann/internal/models"
	"github.com/S-Corkum/secureann/internal/observability"
	"github.com/S-Corkum/secureann/internal/search"
)

// Handler wires the Search Orchestrator to gin routes.
type Handler struct {
	orch            *search.Orchestrator
	logger          observability.Logger
	requestDeadline time.Duration
}

// NewHandler creates a Handler. requestDeadline bounds every request's
// context with a per-request deadline; zero disables it.
func NewHandler(orch *search.Orchestrator, requestDeadline time.Duration, logger observability.Logger) *Handler {
	if logger == nil {
		logger = observability.NoopLogger{}
	}
	return &Handler{orch: orch, requestDeadline: requestDeadline, logger: logger.WithPrefix("http")}
}

// Register mounts the five routes onto router.
func (h *Handler) Register(router gin.IRouter) {
	router.Use(h.withDeadline())
	router.POST("/v1/initialize", h.initialize)
	router.POST("/v1/add", h.principalMatchesTenant(), h.add)
	router.POST("/v1/search", h.principalMatchesTenant(), h.search)
	router.GET("/v1/tenants/:tenant_id/stats", h.principalMatchesPathTenant(), h.stats)
	router.DELETE("/v1/tenants/:tenant_id", h.principalMatchesPathTenant(), h.teardown)
}

func (h *Handler) withDeadline() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.requestDeadline <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), h.requestDeadline)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// principal returns the bearer token carried on the request, treated as
// the authenticated principal already validated upstream; this layer does
// not re-authenticate it.
func principal(c *gin.Context) string {
	auth := c.GetHeader("Authorization")
	return strings.TrimPrefix(auth, "Bearer ")
}

func (h *Handler) principalMatchesTenant() gin.HandlerFunc {
	return func(c *gin.Context) {
		var body struct {
			TenantID string `json:"tenant_id"`
		}
		if err := c.ShouldBindBodyWith(&body, binding.JSON); err == nil && body.TenantID != "" {
			if principal(c) != body.TenantID {
				c.AbortWithStatusJSON(http.StatusForbidden, errorResponse{Kind: "TenantError", Code: "principal_mismatch", Message: "authenticated principal does not match tenant_id"})
				return
			}
		}
		c.Next()
	}
}

func (h *Handler) principalMatchesPathTenant() gin.HandlerFunc {
	return func(c *gin.Context) {
		if principal(c) != c.Param("tenant_id") {
			c.AbortWithStatusJSON(http.StatusForbidden, errorResponse{Kind: "TenantError", Code: "principal_mismatch", Message: "authenticated principal does not match tenant_id"})
			return
		}
		c.Next()
	}
}

func (h *Handler) initialize(c *gin.Context) {
	var req initializeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Kind: "ValidationError", Code: "bad_request", Message: err.Error()})
		return
	}

	result, err := h.orch.Initialize(c.Request.Context(), search.InitializeParams{
		EmbeddingDim: req.EmbeddingDim,
		Scheme: models.SchemeParams{
			Scheme:            req.ContextParams.Scheme,
			PolyModulusDegree: req.ContextParams.PolyModulusDegree,
			CoeffModulusBits:  req.ContextParams.CoeffModulusBits,
			Scale:             req.ContextParams.Scale,
			PublicKeyBase64:   req.ContextParams.PublicKeyBase64,
			RelinKeyBase64:    req.ContextParams.RelinKeyBase64,
			GaloisKeysBase64:  req.ContextParams.GaloisKeysBase64,
		},
		LSH: models.LSHParams{
			NumTables:        req.LSHConfig.NumTables,
			HashBits:         req.LSHConfig.HashSize,
			RerankCapDefault: req.LSHConfig.NumCandidates,
		},
		MaxItems: req.MaxItems,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, initializeResponse{
		TenantID:            result.TenantID,
		ServerID:             "secureann",
		MaxDBSize:            result.MaxDBSize,
		SupportedOperations:  []string{"add", "search", "stats", "teardown"},
		LSHConfig:            lshConfigDTO{NumTables: result.LSH.NumTables, HashSize: result.LSH.HashBits, NumCandidates: result.LSH.RerankCapDefault},
		RandomPlanesBase64:   base64.StdEncoding.EncodeToString(result.PlanesBytes),
	})
}

func (h *Handler) add(c *gin.Context) {
	var req addRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Kind: "ValidationError", Code: "bad_request", Message: err.Error()})
		return
	}

	ctBytes, err := base64.StdEncoding.DecodeString(req.EncryptedEmbeddingB64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Kind: "ValidationError", Code: "bad_base64", Message: "encrypted_embedding_base64 is not valid base64"})
		return
	}

	result, err := h.orch.Add(c.Request.Context(), req.TenantID, ctBytes, req.LSHHashes, req.Metadata, req.ExternalID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, addResponse{EmbeddingID: result.EmbeddingID, IndexPosition: result.Position, Status: result.Status})
}

func (h *Handler) search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Kind: "ValidationError", Code: "bad_request", Message: err.Error()})
		return
	}

	queryCt, err := base64.StdEncoding.DecodeString(req.EncryptedQueryB64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Kind: "ValidationError", Code: "bad_base64", Message: "encrypted_query_base64 is not valid base64"})
		return
	}

	resp, err := h.orch.Search(c.Request.Context(), search.SearchParams{
		TenantID:        req.TenantID,
		QueryCiphertext: queryCt,
		QueryCodes:      req.LSHHashes,
		TopK:            req.TopK,
		RerankCap:       req.RerankCandidates,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	results := make([]searchResultDTO, len(resp.Results))
	for i, r := range resp.Results {
		results[i] = searchResultDTO{
			EmbeddingID:            r.EmbeddingID,
			EncryptedSimilarityB64: base64.StdEncoding.EncodeToString(r.EncryptedSimilarity),
			Metadata:               r.Metadata,
		}
	}

	c.JSON(http.StatusOK, searchResponse{
		Results:           results,
		CandidatesChecked: resp.CandidatesChecked,
		SearchTimeMillis:  resp.Timing.TotalMillis,
	})
}

func (h *Handler) stats(c *gin.Context) {
	tenantID := c.Param("tenant_id")
	itemCount, bucketCount, lastActive, err := h.orch.Stats(tenantID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, statsResponse{ItemCount: itemCount, BucketCount: bucketCount, LastActiveUnix: lastActive.Unix()})
}

func (h *Handler) teardown(c *gin.Context) {
	tenantID := c.Param("tenant_id")
	if err := h.orch.Teardown(c.Request.Context(), tenantID); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func writeError(c *gin.Context, err error) {
	ae, ok := err.(*apperrors.Error)
	if !ok {
		c.JSON(http.StatusInternalServerError, errorResponse{Kind: "InternalError", Code: "unknown", Message: err.Error()})
		return
	}

	status := http.StatusInternalServerError
	switch ae.Kind {
	case apperrors.KindTenant:
		status = http.StatusNotFound
	case apperrors.KindValidation:
		status = http.StatusBadRequest
	case apperrors.KindStore:
		status = http.StatusConflict
	case apperrors.KindContext:
		status = http.StatusUnprocessableEntity
	case apperrors.KindTimeout:
		status = http.StatusGatewayTimeout
	}
	c.JSON(status, errorResponse{Kind: ae.Kind.String(), Code: ae.Code, Message: ae.Message})
}
