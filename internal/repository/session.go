package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"dashboard/internal/models"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// SessionRepository stores authenticated sessions and the login audit trail.
type SessionRepository interface {
	Create(ctx context.Context, session *models.Session) error
	GetByID(ctx context.Context, id string) (*models.Session, error)
	Revoke(ctx context.Context, id string, at time.Time) error
	RevokeAllExcept(ctx context.Context, username string, at time.Time) (int64, error)
	RecordLoginAttempt(ctx context.Context, attempt *models.LoginAttempt) error
	CountLoginAttempts(ctx context.Context, username string, success bool) (int, error)
}

type sessionRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *sqlx.DB, logger *zap.Logger) SessionRepository {
	return &sessionRepository{db: db, logger: logger}
}

func (r *sessionRepository) Create(ctx context.Context, s *models.Session) error {
	query := r.db.Rebind(`INSERT INTO sessions (id, username, created_at, expires_at) VALUES (?, ?, ?, ?)`)
	_, err := r.db.ExecContext(ctx, query, s.ID, s.Username, s.CreatedAt, s.ExpiresAt)
	if err != nil {
		r.logger.Error("Failed to create session", zap.String("username", s.Username), zap.Error(err))
	}
	return err
}

func (r *sessionRepository) GetByID(ctx context.Context, id string) (*models.Session, error) {
	var s models.Session
	query := r.db.Rebind(`SELECT id, username, created_at, expires_at, revoked_at FROM sessions WHERE id = ?`)
	if err := r.db.GetContext(ctx, &s, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *sessionRepository) Revoke(ctx context.Context, id string, at time.Time) error {
	query := r.db.Rebind(`UPDATE sessions SET revoked_at = ? WHERE id = ? AND revoked_at IS NULL`)
	res, err := r.db.ExecContext(ctx, query, at, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// RevokeAllExcept revokes the live sessions of every user other than username.
func (r *sessionRepository) RevokeAllExcept(ctx context.Context, username string, at time.Time) (int64, error) {
	query := r.db.Rebind(`UPDATE sessions SET revoked_at = ? WHERE username <> ? AND revoked_at IS NULL`)
	res, err := r.db.ExecContext(ctx, query, at, username)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *sessionRepository) RecordLoginAttempt(ctx context.Context, a *models.LoginAttempt) error {
	query := r.db.Rebind(`INSERT INTO login_attempts (id, username, success, remote_addr, created_at) VALUES (?, ?, ?, ?, ?)`)
	_, err := r.db.ExecContext(ctx, query, a.ID, a.Username, a.Success, a.RemoteAddr, a.CreatedAt)
	return err
}

func (r *sessionRepository) CountLoginAttempts(ctx context.Context, username string, success bool) (int, error) {
	var count int
	query := r.db.Rebind(`SELECT COUNT(*) FROM login_attempts WHERE username = ? AND success = ?`)
	if err := r.db.GetContext(ctx, &count, query, username, success); err != nil {
		return 0, err
	}
	return count, nil
}
