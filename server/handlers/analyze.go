package handlers

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/MateoRommel12/pineapple-cv/server/history"
	"github.com/MateoRommel12/pineapple-cv/server/ml"
	"github.com/MateoRommel12/pineapple-cv/server/models"
	"github.com/MateoRommel12/pineapple-cv/server/processor"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AnalyzeHandler struct {
	pipeline *processor.Pipeline
	mlClient *ml.Client
	store    history.Store
	logger   *zap.Logger
}

func NewAnalyzeHandler(pipeline *processor.Pipeline, mlClient *ml.Client, store history.Store, logger *zap.Logger) *AnalyzeHandler {
	return &AnalyzeHandler{
		pipeline: pipeline,
		mlClient: mlClient,
		store:    store,
		logger:   logger,
	}
}

// Analyze accepts a multipart photo upload and returns the analysis
// outcome. The outcome itself carries the success/no_pineapple/error
// status; HTTP errors are reserved for malformed requests.
func (h *AnalyzeHandler) Analyze(c *gin.Context) {
	file, header, err := c.Request.FormFile("image")
	if err != nil {
		h.logger.Warn("Analysis request without image", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "No image uploaded"})
		return
	}
	defer file.Close()

	imageData, err := io.ReadAll(file)
	if err != nil {
		h.logger.Error("Failed to read uploaded image", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read image"})
		return
	}
	if len(imageData) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Empty image upload"})
		return
	}

	req := &models.AnalysisRequest{
		ImageData: imageData,
		Filename:  header.Filename,
		ClientID:  c.ClientIP(),
		Timestamp: time.Now().Unix(),
	}

	outcome := h.pipeline.Analyze(c.Request.Context(), req)
	c.JSON(http.StatusOK, outcome)
}

func (h *AnalyzeHandler) GetHistory(c *gin.Context) {
	limit := history.DefaultListLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = parsed
	}

	records, err := h.store.List(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to list history", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"records": records,
		"count":   len(records),
	})
}

func (h *AnalyzeHandler) ClearHistory(c *gin.Context) {
	if err := h.store.Clear(c.Request.Context()); err != nil {
		h.logger.Error("Failed to clear history", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "History cleared"})
}

func (h *AnalyzeHandler) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"pipeline": h.pipeline.GetStats(),
	})
}

// Health reports this service plus the upstream inference service.
func (h *AnalyzeHandler) Health(c *gin.Context) {
	response := gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
		"service":   "pineapple-cv-backend",
	}

	upstream, err := h.mlClient.Health(c.Request.Context())
	if err != nil {
		response["inference"] = gin.H{"status": "unreachable", "error": err.Error()}
	} else {
		response["inference"] = upstream
	}

	c.JSON(http.StatusOK, response)
}
