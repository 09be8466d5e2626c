package models

import (
	"database/sql"
	"time"
)

// Session is one authenticated browser session. It stays active until it expires or is revoked.
type Session struct {
	ID        string       `db:"id"`
	Username  string       `db:"username"`
	CreatedAt time.Time    `db:"created_at"`
	ExpiresAt time.Time    `db:"expires_at"`
	RevokedAt sql.NullTime `db:"revoked_at"`
}

// Active reports whether the session may still be used at now.
func (s *Session) Active(now time.Time) bool {
	return !s.RevokedAt.Valid && now.Before(s.ExpiresAt)
}

// LoginAttempt is an audit record of a submitted credential pair.
type LoginAttempt struct {
	ID         string    `db:"id"`
	Username   string    `db:"username"`
	Success    bool      `db:"success"`
	RemoteAddr string    `db:"remote_addr"`
	CreatedAt  time.Time `db:"created_at"`
}
