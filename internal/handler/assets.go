package handler

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"os"

	"dashboard/internal/charts"
	"dashboard/internal/results"
	"dashboard/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AssetsHandler serves charts, result downloads and the logo.
type AssetsHandler struct {
	dashboard service.DashboardService
	results   *results.Store
	logoPath  string
	logger    *zap.Logger
}

func NewAssetsHandler(dashboard service.DashboardService, store *results.Store, logoPath string, logger *zap.Logger) *AssetsHandler {
	return &AssetsHandler{dashboard: dashboard, results: store, logoPath: logoPath, logger: logger}
}

// FilteringChart handles GET /charts/filtering.png
func (h *AssetsHandler) FilteringChart(c *gin.Context) {
	var buf bytes.Buffer
	if err := charts.FilteringFunnel(&buf, h.dashboard.Stages()); err != nil {
		h.logger.Error("Failed to render filtering chart", zap.Error(err))
		c.Status(http.StatusInternalServerError)
		return
	}
	c.Data(http.StatusOK, charts.ContentType, buf.Bytes())
}

// RiskChart handles GET /charts/risk.png?style=bar|stacked
func (h *AssetsHandler) RiskChart(c *gin.Context) {
	counts, err := h.dashboard.RiskCounts()
	if err != nil {
		h.logger.Error("Failed to count risk categories", zap.Error(err))
		c.Status(http.StatusInternalServerError)
		return
	}

	render := charts.RiskBar
	if chartStyle(c) == "stacked" {
		render = charts.RiskStacked
	}

	var buf bytes.Buffer
	if err := render(&buf, counts); err != nil {
		if errors.Is(err, charts.ErrNoData) {
			c.Status(http.StatusNoContent)
			return
		}
		h.logger.Error("Failed to render risk chart", zap.Error(err))
		c.Status(http.StatusInternalServerError)
		return
	}
	c.Data(http.StatusOK, charts.ContentType, buf.Bytes())
}

// Download handles GET /downloads/:kind and streams the file verbatim.
func (h *AssetsHandler) Download(c *gin.Context) {
	kind := results.Kind(c.Param("kind"))
	if kind != results.Discarded && kind != results.Ranked {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown download"})
		return
	}

	rc, size, err := h.results.Open(kind)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			c.JSON(http.StatusNotFound, gin.H{"error": "file not available"})
			return
		}
		h.logger.Error("Failed to open result file", zap.String("kind", string(kind)), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to open file"})
		return
	}
	defer rc.Close()

	c.DataFromReader(http.StatusOK, size, results.XLSXContentType, rc, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", h.results.Filename(kind)),
	})
}

// Logo handles GET /static/logo
func (h *AssetsHandler) Logo(c *gin.Context) {
	if _, err := os.Stat(h.logoPath); err != nil {
		c.Status(http.StatusNotFound)
		return
	}
	c.File(h.logoPath)
}
