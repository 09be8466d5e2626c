package middleware

import (
	"errors"
	"net/http"
	"strings"

	"dashboard/internal/models"
	"dashboard/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Context keys set by the session gate.
const (
	ClaimsKey    = "claims"
	UsernameKey  = "username"
	SessionIDKey = "session_id"
)

// tokenFrom prefers the Authorization header and falls back to the session cookie.
func tokenFrom(c *gin.Context, cookieName string) (string, error) {
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return "", errors.New("Authorization header format must be Bearer <token>")
		}
		return parts[1], nil
	}

	token, err := c.Cookie(cookieName)
	if err != nil || token == "" {
		return "", errors.New("Authorization header required")
	}
	return token, nil
}

func authenticate(c *gin.Context, auth service.AuthService, cookieName string, logger *zap.Logger) (*models.Claims, error) {
	token, err := tokenFrom(c, cookieName)
	if err != nil {
		return nil, err
	}

	claims, err := auth.Authenticate(c.Request.Context(), token)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTokenExpired):
			return nil, errors.New("Token expired")
		case errors.Is(err, service.ErrSessionNotFound):
			return nil, errors.New("Session ended")
		case errors.Is(err, service.ErrInvalidToken):
			logger.Debug("Invalid JWT token", zap.Error(err))
			return nil, errors.New("Invalid token")
		default:
			logger.Error("Failed to authenticate session", zap.Error(err))
			return nil, errors.New("Failed to authenticate")
		}
	}

	c.Set(ClaimsKey, claims)
	c.Set(UsernameKey, claims.Username)
	c.Set(SessionIDKey, claims.SessionID())
	return claims, nil
}

// AuthMiddleware guards JSON routes: unauthenticated requests get 401.
func AuthMiddleware(auth service.AuthService, cookieName string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := authenticate(c, auth, cookieName, logger); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			c.Abort()
			return
		}
		c.Next()
	}
}

// PageAuthMiddleware guards HTML pages: unauthenticated requests are sent to the login form.
func PageAuthMiddleware(auth service.AuthService, cookieName string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := authenticate(c, auth, cookieName, logger); err != nil {
			c.Redirect(http.StatusSeeOther, "/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

// SessionID returns the session set by the auth middleware.
func SessionID(c *gin.Context) string {
	return c.GetString(SessionIDKey)
}

// Username returns the operator set by the auth middleware.
func Username(c *gin.Context) string {
	return c.GetString(UsernameKey)
}
