package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"dashboard/internal/models"
	"dashboard/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/argon2"
)

var (
	ErrInvalidCredentials = errors.New("Usuário ou senha incorretos")
	ErrSessionNotFound    = errors.New("session not found or revoked")
	ErrTokenExpired       = errors.New("token expired")
	ErrInvalidToken       = errors.New("invalid token")
)

const operatorRole = "operator"

type AuthService interface {
	// EnsureOperator makes username the only account, rehashing if the password changed.
	// Other accounts are removed and their sessions revoked.
	EnsureOperator(ctx context.Context, username, password string) error
	// Login returns a signed session token and its expiration time.
	Login(ctx context.Context, username, password, remoteAddr string) (string, time.Time, error)
	Authenticate(ctx context.Context, token string) (*models.Claims, error)
	Logout(ctx context.Context, sessionID string) error
	FailedLogins(ctx context.Context, username string) (int, error)
}

// SessionCloser is notified when a session ends so per-session state can be dropped.
type SessionCloser interface {
	CloseSession(sessionID string)
}

type authService struct {
	users    repository.AuthRepository
	sessions repository.SessionRepository
	closer   SessionCloser
	secret   []byte
	ttl      time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

func NewAuthService(users repository.AuthRepository, sessions repository.SessionRepository, closer SessionCloser, secret []byte, ttl time.Duration, logger *zap.Logger) AuthService {
	return &authService{
		users:    users,
		sessions: sessions,
		closer:   closer,
		secret:   secret,
		ttl:      ttl,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *authService) EnsureOperator(ctx context.Context, username, password string) error {
	removed, err := s.users.DeleteUsersExcept(ctx, username)
	if err != nil {
		return fmt.Errorf("failed to remove stale accounts: %w", err)
	}
	if removed > 0 {
		revoked, err := s.sessions.RevokeAllExcept(ctx, username, s.now().UTC())
		if err != nil {
			return fmt.Errorf("failed to revoke stale sessions: %w", err)
		}
		s.logger.Warn("Removed accounts other than the operator",
			zap.String("username", username),
			zap.Int64("accounts", removed),
			zap.Int64("sessions", revoked))
	}

	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("failed to look up operator: %w", err)
	}

	if user != nil && verifyPassword(user.PasswordHash, password) {
		return nil
	}

	hash, err := hashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if user != nil {
		s.logger.Info("Operator password changed, updating hash", zap.String("username", username))
		return s.users.UpdatePasswordHash(ctx, user.ID, hash)
	}

	err = s.users.CreateUser(ctx, &models.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
		Role:         operatorRole,
		CreatedAt:    s.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to create operator: %w", err)
	}

	s.logger.Info("Operator account created", zap.String("username", username))
	return nil
}

func (s *authService) Login(ctx context.Context, username, password, remoteAddr string) (string, time.Time, error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		s.logger.Error("Failed to get user by username", zap.Error(err))
		return "", time.Time{}, fmt.Errorf("failed to retrieve user: %w", err)
	}

	ok := user != nil && verifyPassword(user.PasswordHash, password)
	s.recordAttempt(ctx, username, ok, remoteAddr)
	if !ok {
		return "", time.Time{}, ErrInvalidCredentials
	}

	now := s.now().UTC()
	session := &models.Session{
		ID:        uuid.NewString(),
		Username:  user.Username,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return "", time.Time{}, fmt.Errorf("failed to create session: %w", err)
	}

	claims := &models.Claims{
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        session.ID,
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		s.logger.Error("Failed to generate JWT token", zap.Error(err))
		return "", time.Time{}, fmt.Errorf("failed to generate token: %w", err)
	}

	s.logger.Info("User logged in successfully.", zap.String("username", user.Username), zap.String("session_id", session.ID))
	return tokenString, session.ExpiresAt, nil
}

func (s *authService) recordAttempt(ctx context.Context, username string, success bool, remoteAddr string) {
	err := s.sessions.RecordLoginAttempt(ctx, &models.LoginAttempt{
		ID:         uuid.NewString(),
		Username:   username,
		Success:    success,
		RemoteAddr: remoteAddr,
		CreatedAt:  s.now().UTC(),
	})
	if err != nil {
		s.logger.Warn("Failed to record login attempt", zap.String("username", username), zap.Error(err))
	}
}

func (s *authService) Authenticate(ctx context.Context, tokenString string) (*models.Claims, error) {
	claims := &models.Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.SessionID() == "" {
		return nil, ErrInvalidToken
	}

	session, err := s.sessions.GetByID(ctx, claims.SessionID())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if !session.Active(s.now()) {
		return nil, ErrSessionNotFound
	}

	return claims, nil
}

func (s *authService) Logout(ctx context.Context, sessionID string) error {
	err := s.sessions.Revoke(ctx, sessionID, s.now().UTC())
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("failed to revoke session: %w", err)
	}

	if s.closer != nil {
		s.closer.CloseSession(sessionID)
	}

	s.logger.Info("User logged out successfully.", zap.String("session_id", sessionID))
	return nil
}

func (s *authService) FailedLogins(ctx context.Context, username string) (int, error) {
	n, err := s.sessions.CountLoginAttempts(ctx, username, false)
	if err != nil {
		return 0, fmt.Errorf("failed to count login attempts: %w", err)
	}
	return n, nil
}

const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
)

// hashPassword uses Argon2id and encodes as $argon2id$v=19$m=65536,t=1,p=4$SALT$HASH.
func hashPassword(password string) (string, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	encodedSalt := base64.RawStdEncoding.EncodeToString(salt)
	encodedHash := base64.RawStdEncoding.EncodeToString(hash)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s", argon2.Version, argonMemory, argonTime, argonThreads, encodedSalt, encodedHash), nil
}

// verifyPassword compares a plaintext password with an encoded Argon2id hash.
func verifyPassword(encoded, password string) bool {
	// ["", "argon2id", "v=19", "m=65536,t=1,p=4", salt, hash]
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return false
	}

	var m, t uint32
	var p uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &m, &t, &p); err != nil {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false
	}

	got := argon2.IDKey([]byte(password), salt, t, m, p, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1
}
