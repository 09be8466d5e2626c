package handler

import (
	"errors"
	"net/http"
	"strconv"

	"dashboard/internal/middleware"
	"dashboard/internal/models"
	"dashboard/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// APIHandler serves the dashboard flow as JSON.
type APIHandler struct {
	dashboard      service.DashboardService
	maxUploadBytes int64
	logger         *zap.Logger
}

func NewAPIHandler(dashboard service.DashboardService, maxUploadBytes int64, logger *zap.Logger) *APIHandler {
	return &APIHandler{dashboard: dashboard, maxUploadBytes: maxUploadBytes, logger: logger}
}

// RegisterRoutes registers the authenticated JSON routes on group.
func (h *APIHandler) RegisterRoutes(api *gin.RouterGroup) {
	api.POST("/uploads", h.Upload)
	api.GET("/uploads", h.ListUploads)
	api.GET("/uploads/current", h.CurrentUpload)
	api.POST("/uploads/current/inference", h.Confirm)

	api.GET("/results/stages", h.Stages)
	api.GET("/results/risk-counts", h.RiskCounts)
	api.GET("/results/discarded", h.Discarded)
	api.GET("/results/ranked", h.Ranked)
}

// Upload handles POST /api/uploads
func (h *APIHandler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fileTooLargeMessage})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": missingFileMessage})
		return
	}
	defer file.Close()

	ws, err := h.dashboard.Upload(c.Request.Context(), middleware.SessionID(c), middleware.Username(c), header.Filename, file)
	if err != nil {
		status, msg := uploadError(err)
		if status == 0 {
			return
		}
		if status >= http.StatusInternalServerError {
			h.logger.Error("Failed to process upload", zap.String("filename", header.Filename), zap.Error(err))
		}
		c.JSON(status, gin.H{"error": msg})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":   uploadSuccessMessage,
		"workspace": ws,
	})
}

// ListUploads handles GET /api/uploads
func (h *APIHandler) ListUploads(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 || limit > 200 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit (must be 1-200)"})
		return
	}

	uploads, err := h.dashboard.RecentUploads(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to list uploads", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list uploads"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"uploads": uploads,
		"total":   len(uploads),
	})
}

// CurrentUpload handles GET /api/uploads/current
func (h *APIHandler) CurrentUpload(c *gin.Context) {
	ws, err := h.dashboard.Current(middleware.SessionID(c))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, ws)
}

// Confirm handles POST /api/uploads/current/inference
func (h *APIHandler) Confirm(c *gin.Context) {
	var req models.InferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ws, err := h.dashboard.Confirm(c.Request.Context(), middleware.SessionID(c), req.Confirm)
	if err != nil {
		switch {
		case isCancelled(err):
		case errors.Is(err, service.ErrNoUpload):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			h.logger.Error("Failed to confirm inference", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to confirm inference"})
		}
		return
	}

	switch req.Confirm {
	case models.DecisionNo:
		c.JSON(http.StatusOK, gin.H{"message": reuploadMessage})
	case models.DecisionYes:
		c.JSON(http.StatusOK, gin.H{
			"workspace": ws,
			"stages":    h.dashboard.Stages(),
		})
	default:
		c.JSON(http.StatusOK, gin.H{"workspace": ws})
	}
}

// Stages handles GET /api/results/stages
func (h *APIHandler) Stages(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"stages": h.dashboard.Stages()})
}

// RiskCounts handles GET /api/results/risk-counts
func (h *APIHandler) RiskCounts(c *gin.Context) {
	counts, err := h.dashboard.RiskCounts()
	if err != nil {
		h.logger.Error("Failed to count risk categories", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": resultsErrorMessage})
		return
	}
	c.JSON(http.StatusOK, gin.H{"counts": counts})
}

// Discarded handles GET /api/results/discarded
func (h *APIHandler) Discarded(c *gin.Context) {
	table, err := h.dashboard.Discarded()
	if err != nil {
		h.logger.Error("Failed to load discarded records", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": resultsErrorMessage})
		return
	}
	c.JSON(http.StatusOK, gin.H{"table": table, "total": table.Len()})
}

// Ranked handles GET /api/results/ranked?risk=
func (h *APIHandler) Ranked(c *gin.Context) {
	view, err := h.dashboard.Ranked(middleware.SessionID(c), c.Query("risk"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoUpload), errors.Is(err, service.ErrInferenceNotConfirmed):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			h.logger.Error("Failed to load ranked results", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": resultsErrorMessage})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"options":  view.Options,
		"selected": view.Selected,
		"table":    view.Table,
		"total":    view.Table.Len(),
	})
}
