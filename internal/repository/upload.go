package repository

import (
	"context"

	"dashboard/internal/models"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// UploadRepository keeps the metadata of received spreadsheets.
type UploadRepository interface {
	Create(ctx context.Context, upload *models.Upload) error
	UpdateDecision(ctx context.Context, id, decision string) error
	ListRecent(ctx context.Context, limit int) ([]models.Upload, error)
}

type uploadRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewUploadRepository(db *sqlx.DB, logger *zap.Logger) UploadRepository {
	return &uploadRepository{db: db, logger: logger}
}

func (r *uploadRepository) Create(ctx context.Context, u *models.Upload) error {
	query := r.db.Rebind(`
		INSERT INTO uploads (id, session_id, username, filename, format, row_count, column_count, decision, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := r.db.ExecContext(ctx, query,
		u.ID,
		u.SessionID,
		u.Username,
		u.Filename,
		u.Format,
		u.RowCount,
		u.ColumnCount,
		u.Decision,
		u.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to save upload", zap.String("filename", u.Filename), zap.Error(err))
	}
	return err
}

func (r *uploadRepository) UpdateDecision(ctx context.Context, id, decision string) error {
	query := r.db.Rebind(`UPDATE uploads SET decision = ? WHERE id = ?`)
	res, err := r.db.ExecContext(ctx, query, decision, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *uploadRepository) ListRecent(ctx context.Context, limit int) ([]models.Upload, error) {
	uploads := []models.Upload{}
	query := r.db.Rebind(`
		SELECT id, session_id, username, filename, format, row_count, column_count, decision, created_at
		FROM uploads
		ORDER BY created_at DESC
		LIMIT ?
	`)
	if err := r.db.SelectContext(ctx, &uploads, query, limit); err != nil {
		return nil, err
	}
	return uploads, nil
}
