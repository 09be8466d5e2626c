package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"dashboard/internal/dataset"
	"dashboard/internal/models"
	"dashboard/internal/pipeline"
	"dashboard/internal/repository"
	"dashboard/internal/results"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrNoUpload              = errors.New("nenhum arquivo carregado")
	ErrInferenceNotConfirmed = errors.New("inferência não confirmada para os dados carregados")
	ErrInvalidDecision       = errors.New("invalid inference decision")
	ErrUploadUnreadable      = errors.New("uploaded file could not be parsed")
)

// RankedView is the ranked table filtered by one risk category.
type RankedView struct {
	Options  []string       `json:"options"`
	Selected string         `json:"selected"`
	Table    *dataset.Table `json:"table"`
}

type DashboardService interface {
	SessionCloser
	// Upload waits out the loading stage, parses the file, waits out the processing stage
	// and only then keeps it in the session's workspace. A failed parse clears the workspace.
	Upload(ctx context.Context, sessionID, username, filename string, r io.Reader) (Workspace, error)
	Current(sessionID string) (Workspace, error)
	// Confirm applies the operator's answer: Sim runs the transform and inference stages,
	// Não drops the uploaded data, Selecione changes nothing.
	Confirm(ctx context.Context, sessionID, decision string) (Workspace, error)
	Ranked(sessionID, risk string) (*RankedView, error)
	Stages() []models.FilteringStage
	RiskCounts() ([]models.RiskCount, error)
	Discarded() (*dataset.Table, error)
	RecentUploads(ctx context.Context, limit int) ([]models.Upload, error)
}

type dashboardService struct {
	workspaces *workspaceStore
	uploads    repository.UploadRepository
	results    *results.Store
	simulator  *pipeline.Simulator
	logger     *zap.Logger
	now        func() time.Time
}

func NewDashboardService(uploads repository.UploadRepository, store *results.Store, simulator *pipeline.Simulator, logger *zap.Logger) DashboardService {
	return &dashboardService{
		workspaces: newWorkspaceStore(),
		uploads:    uploads,
		results:    store,
		simulator:  simulator,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *dashboardService) Upload(ctx context.Context, sessionID, username, filename string, r io.Reader) (Workspace, error) {
	if err := s.simulator.Run(ctx, pipeline.Loading); err != nil {
		return Workspace{}, err
	}

	format, err := dataset.Format(filename)
	if err != nil {
		s.workspaces.delete(sessionID)
		return Workspace{}, err
	}

	table, err := dataset.Read(filename, r)
	if err != nil {
		s.workspaces.delete(sessionID)
		s.logger.Warn("Failed to parse uploaded file", zap.String("filename", filename), zap.Error(err))
		if errors.Is(err, dataset.ErrEmptyDataset) {
			return Workspace{}, err
		}
		return Workspace{}, fmt.Errorf("%w: %v", ErrUploadUnreadable, err)
	}

	if err := s.simulator.Run(ctx, pipeline.Processing); err != nil {
		return Workspace{}, err
	}

	upload := &models.Upload{
		ID:          uuid.NewString(),
		SessionID:   sessionID,
		Username:    username,
		Filename:    filename,
		Format:      format,
		RowCount:    table.Len(),
		ColumnCount: len(table.Columns),
		Decision:    models.DecisionPending,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.uploads.Create(ctx, upload); err != nil {
		return Workspace{}, fmt.Errorf("failed to record upload: %w", err)
	}

	ws := Workspace{Upload: *upload, Table: table}
	s.workspaces.put(sessionID, ws)

	s.logger.Info("Spreadsheet uploaded",
		zap.String("upload_id", upload.ID),
		zap.String("filename", filename),
		zap.Int("rows", upload.RowCount),
		zap.Int("columns", upload.ColumnCount))

	return ws, nil
}

func (s *dashboardService) Current(sessionID string) (Workspace, error) {
	ws, ok := s.workspaces.get(sessionID)
	if !ok {
		return Workspace{}, ErrNoUpload
	}
	return ws, nil
}

func (s *dashboardService) Confirm(ctx context.Context, sessionID, decision string) (Workspace, error) {
	ws, ok := s.workspaces.get(sessionID)
	if !ok {
		return Workspace{}, ErrNoUpload
	}

	switch decision {
	case models.DecisionPending:
		return ws, nil
	case models.DecisionNo:
		s.workspaces.delete(sessionID)
		s.recordDecision(ctx, ws.Upload.ID, decision)
		return Workspace{}, nil
	case models.DecisionYes:
		if err := s.simulator.RunAll(ctx, pipeline.Transforming, pipeline.Inferring); err != nil {
			return Workspace{}, err
		}
		ws, ok = s.workspaces.update(sessionID, ws.Upload.ID, func(w *Workspace) {
			w.Confirmed = true
			w.Upload.Decision = decision
		})
		if !ok {
			// Replaced or cleared while the stages ran.
			return Workspace{}, ErrNoUpload
		}
		s.recordDecision(ctx, ws.Upload.ID, decision)
		return ws, nil
	default:
		return Workspace{}, fmt.Errorf("%w: %q", ErrInvalidDecision, decision)
	}
}

func (s *dashboardService) recordDecision(ctx context.Context, uploadID, decision string) {
	if err := s.uploads.UpdateDecision(ctx, uploadID, decision); err != nil {
		s.logger.Warn("Failed to record inference decision", zap.String("upload_id", uploadID), zap.Error(err))
	}
}

func (s *dashboardService) Ranked(sessionID, risk string) (*RankedView, error) {
	ws, ok := s.workspaces.get(sessionID)
	if !ok {
		return nil, ErrNoUpload
	}
	if !ws.Confirmed {
		return nil, ErrInferenceNotConfirmed
	}

	options, err := s.results.RiskOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to load ranked results: %w", err)
	}
	if risk == "" && len(options) > 0 {
		risk = options[0]
	}

	table, err := s.results.FilterRanked(risk)
	if err != nil {
		return nil, fmt.Errorf("failed to filter ranked results: %w", err)
	}

	return &RankedView{Options: options, Selected: risk, Table: table}, nil
}

func (s *dashboardService) Stages() []models.FilteringStage {
	return results.FilteringStages()
}

func (s *dashboardService) RiskCounts() ([]models.RiskCount, error) {
	// Tallied from the static ranked artifact, never from the session's upload.
	return s.results.RiskCounts()
}

func (s *dashboardService) Discarded() (*dataset.Table, error) {
	return s.results.Table(results.Discarded)
}

func (s *dashboardService) RecentUploads(ctx context.Context, limit int) ([]models.Upload, error) {
	return s.uploads.ListRecent(ctx, limit)
}

func (s *dashboardService) CloseSession(sessionID string) {
	s.workspaces.delete(sessionID)
}
