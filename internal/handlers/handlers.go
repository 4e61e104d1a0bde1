package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/alexiguazio/mask-detection/internal/detector"
	"github.com/alexiguazio/mask-detection/internal/repository"
	"github.com/alexiguazio/mask-detection/internal/usecase"
)

// MaxBodySize caps the JSON request body (base64-encoded image batch).
const MaxBodySize = 10 << 20

// PredictionService is the use-case surface the HTTP layer depends on.
type PredictionService interface {
	Run(ctx context.Context, req *detector.PredictRequest) (string, *detector.PredictResponse, error)
	GetResult(ctx context.Context, requestID string) (*repository.PredictionLog, error)
	GetMetricsSummary(ctx context.Context) (*usecase.MetricsSummary, error)
}

// HealthInfo is reported by the liveness endpoint.
type HealthInfo struct {
	Artifact    string `json:"artifact"`
	ImageWidth  int    `json:"image_width"`
	ImageHeight int    `json:"image_height"`
}

// RegisterRoutes wires the HTTP handlers to the Gin router. The prediction
// endpoint is open; result lookup and metrics require authentication.
func RegisterRoutes(router *gin.Engine, svc PredictionService, info HealthInfo, authMiddleware gin.HandlerFunc) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"model":  info,
		})
	})

	router.POST("/predict", func(c *gin.Context) {
		contentType := c.GetHeader("Content-Type")
		if contentType != "" && !strings.HasPrefix(contentType, "application/json") {
			c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": "expected application/json"})
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxBodySize)

		var req detector.PredictRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		requestID, resp, err := svc.Run(c.Request.Context(), &req)
		if requestID != "" {
			c.Header("X-Request-ID", requestID)
		}
		if err != nil {
			var preErr *detector.PreprocessError
			if errors.As(err, &preErr) {
				c.JSON(http.StatusBadRequest, gin.H{"error": preErr.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		// The response body is exactly the output contract; the request id
		// travels in the header only.
		c.JSON(http.StatusOK, resp)
	})

	router.GET("/result/:id", authMiddleware, func(c *gin.Context) {
		requestID := c.Param("id")
		if requestID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "id is required"})
			return
		}

		log, err := svc.GetResult(c.Request.Context(), requestID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "result not found"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"request_id":       log.RequestID,
			"batch_size":       log.BatchSize,
			"mask_probability": log.MaskProbability,
			"sha1_hash":        log.SHA1Hash,
			"latency_ms":       log.LatencyMillis,
			"created_at":       log.CreatedAt,
		})
	})

	router.GET("/metrics/summary", authMiddleware, func(c *gin.Context) {
		summary, err := svc.GetMetricsSummary(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, summary)
	})
}
