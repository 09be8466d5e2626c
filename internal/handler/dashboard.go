package handler

import (
	"context"
	"errors"
	"html/template"
	"net/http"

	"dashboard/internal/config"
	"dashboard/internal/dataset"
	"dashboard/internal/middleware"
	"dashboard/internal/models"
	"dashboard/internal/results"
	"dashboard/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	uploadSuccessMessage = "Arquivo carregado com sucesso!"
	reuploadMessage      = "Faça o upload do arquivo no qual você deseja realizar a inferência clicando em 'Browse files' acima."
	missingFileMessage   = "Escolha um arquivo CSV ou XLSX"
	fileTooLargeMessage  = "Arquivo muito grande."
	resultsErrorMessage  = "Não foi possível carregar os resultados da inferência."
)

var decisions = []string{models.DecisionPending, models.DecisionYes, models.DecisionNo}

// pageData feeds every HTML template.
type pageData struct {
	Branding config.Branding
	Username string
	Error    string
	Success  string
	Info     string

	Workspace *service.Workspace
	Decisions []string

	Stages        []models.FilteringStage
	Ranked        *service.RankedView
	ChartStyle    string
	DiscardedURI  template.URL
	DiscardedName string
	RankedURI     template.URL
	RankedName    string
}

type DashboardHandler interface {
	Index(c *gin.Context)
	Upload(c *gin.Context)
	Inference(c *gin.Context)
}

type dashboardHandler struct {
	dashboard      service.DashboardService
	results        *results.Store
	branding       config.Branding
	maxUploadBytes int64
	logger         *zap.Logger
}

func NewDashboardHandler(dashboard service.DashboardService, store *results.Store, branding config.Branding, maxUploadBytes int64, logger *zap.Logger) DashboardHandler {
	return &dashboardHandler{
		dashboard:      dashboard,
		results:        store,
		branding:       branding,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

func (h *dashboardHandler) newPage(c *gin.Context) *pageData {
	return &pageData{
		Branding:  h.branding,
		Username:  middleware.Username(c),
		Decisions: decisions,
	}
}

// render fills in the session's workspace and, once inference is confirmed, the results.
func (h *dashboardHandler) render(c *gin.Context, status int, data *pageData) {
	if ws, err := h.dashboard.Current(middleware.SessionID(c)); err == nil {
		data.Workspace = &ws
		if ws.Confirmed {
			if err := h.fillResults(c, data); err != nil {
				h.logger.Error("Failed to load inference results", zap.Error(err))
				data.Error = resultsErrorMessage
				if status < http.StatusBadRequest {
					status = http.StatusInternalServerError
				}
			}
		}
	}
	c.HTML(status, "dashboard.html", data)
}

func (h *dashboardHandler) fillResults(c *gin.Context, data *pageData) error {
	ranked, err := h.dashboard.Ranked(middleware.SessionID(c), c.Query("risk"))
	if err != nil {
		return err
	}

	discardedURI, err := h.results.DataURI(results.Discarded)
	if err != nil {
		return err
	}
	rankedURI, err := h.results.DataURI(results.Ranked)
	if err != nil {
		return err
	}

	data.Ranked = ranked
	data.Stages = h.dashboard.Stages()
	data.ChartStyle = chartStyle(c)
	// Both URIs are built from local files, never from request input.
	data.DiscardedURI = template.URL(discardedURI)
	data.DiscardedName = h.results.Filename(results.Discarded)
	data.RankedURI = template.URL(rankedURI)
	data.RankedName = h.results.Filename(results.Ranked)
	return nil
}

// Index handles GET /
func (h *dashboardHandler) Index(c *gin.Context) {
	data := h.newPage(c)
	if c.Query("login") == "ok" {
		data.Success = loginSuccessMessage
	}
	h.render(c, http.StatusOK, data)
}

// Upload handles POST /upload
func (h *dashboardHandler) Upload(c *gin.Context) {
	data := h.newPage(c)

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			data.Error = fileTooLargeMessage
			h.render(c, http.StatusRequestEntityTooLarge, data)
			return
		}
		data.Error = missingFileMessage
		h.render(c, http.StatusBadRequest, data)
		return
	}
	defer file.Close()

	_, err = h.dashboard.Upload(c.Request.Context(), middleware.SessionID(c), middleware.Username(c), header.Filename, file)
	if err != nil {
		status, msg := uploadError(err)
		if status == 0 {
			return
		}
		if status >= http.StatusInternalServerError {
			h.logger.Error("Failed to process upload", zap.String("filename", header.Filename), zap.Error(err))
		}
		data.Error = msg
		h.render(c, status, data)
		return
	}

	data.Success = uploadSuccessMessage
	h.render(c, http.StatusOK, data)
}

// Inference handles POST /inference
func (h *dashboardHandler) Inference(c *gin.Context) {
	data := h.newPage(c)

	var req models.InferenceRequest
	if err := c.ShouldBind(&req); err != nil {
		data.Error = "Selecione uma opção válida."
		h.render(c, http.StatusBadRequest, data)
		return
	}

	_, err := h.dashboard.Confirm(c.Request.Context(), middleware.SessionID(c), req.Confirm)
	if err != nil {
		switch {
		case isCancelled(err):
			return
		case errors.Is(err, service.ErrNoUpload):
			data.Error = err.Error()
			h.render(c, http.StatusConflict, data)
		default:
			h.logger.Error("Failed to confirm inference", zap.Error(err))
			data.Error = resultsErrorMessage
			h.render(c, http.StatusInternalServerError, data)
		}
		return
	}

	if req.Confirm == models.DecisionNo {
		data.Info = reuploadMessage
	}
	h.render(c, http.StatusOK, data)
}

// uploadError maps an upload failure to a status and operator-facing message.
// A zero status means the client went away and nothing should be written.
func uploadError(err error) (int, string) {
	var maxBytes *http.MaxBytesError
	switch {
	case isCancelled(err):
		return 0, ""
	case errors.Is(err, dataset.ErrUnsupportedFormat), errors.Is(err, dataset.ErrEmptyDataset):
		return http.StatusBadRequest, err.Error()
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge, fileTooLargeMessage
	case errors.Is(err, service.ErrUploadUnreadable):
		return http.StatusBadRequest, "Não foi possível ler o arquivo enviado."
	default:
		return http.StatusInternalServerError, "Não foi possível processar o arquivo."
	}
}

func isCancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func chartStyle(c *gin.Context) string {
	if c.Query("style") == "stacked" {
		return "stacked"
	}
	return "bar"
}
