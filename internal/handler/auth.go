package handler

import (
	"errors"
	"net/http"
	"time"

	"dashboard/internal/config"
	"dashboard/internal/middleware"
	"dashboard/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AuthHandler interface {
	LoginPage(c *gin.Context)
	LoginForm(c *gin.Context)
	LogoutForm(c *gin.Context)
	Login(c *gin.Context)
	Logout(c *gin.Context)
	Session(c *gin.Context)
}

// CookieConfig describes the session cookie.
type CookieConfig struct {
	Name   string
	Secure bool
}

type authHandler struct {
	authService service.AuthService
	cookie      CookieConfig
	branding    config.Branding
	logger      *zap.Logger
}

func NewAuthHandler(authService service.AuthService, cookie CookieConfig, branding config.Branding, logger *zap.Logger) AuthHandler {
	return &authHandler{authService: authService, cookie: cookie, branding: branding, logger: logger}
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

const loginSuccessMessage = "Login bem-sucedido!"

// LoginPage handles GET /login
func (h *authHandler) LoginPage(c *gin.Context) {
	c.HTML(http.StatusOK, "login.html", &pageData{Branding: h.branding})
}

// LoginForm handles POST /login
func (h *authHandler) LoginForm(c *gin.Context) {
	username := c.PostForm("username")
	password := c.PostForm("password")

	token, expiresAt, err := h.authService.Login(c.Request.Context(), username, password, c.ClientIP())
	if err != nil {
		data := &pageData{Branding: h.branding, Username: username}
		if errors.Is(err, service.ErrInvalidCredentials) {
			data.Error = err.Error()
			c.HTML(http.StatusUnauthorized, "login.html", data)
			return
		}
		h.logger.Error("Failed to login user", zap.Error(err))
		data.Error = "Não foi possível fazer login. Tente novamente."
		c.HTML(http.StatusInternalServerError, "login.html", data)
		return
	}

	h.setSessionCookie(c, token, expiresAt)
	c.Redirect(http.StatusSeeOther, "/?login=ok")
}

// LogoutForm handles POST /logout
func (h *authHandler) LogoutForm(c *gin.Context) {
	if err := h.authService.Logout(c.Request.Context(), middleware.SessionID(c)); err != nil {
		h.logger.Error("Failed to logout user", zap.String("username", middleware.Username(c)), zap.Error(err))
	}
	h.clearSessionCookie(c)
	c.Redirect(http.StatusSeeOther, "/login")
}

// Login handles POST /api/auth/login
func (h *authHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, expiresAt, err := h.authService.Login(c.Request.Context(), req.Username, req.Password, c.ClientIP())
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("Failed to login user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to login"})
		return
	}

	h.setSessionCookie(c, token, expiresAt)
	c.JSON(http.StatusOK, gin.H{
		"message":    loginSuccessMessage,
		"token":      token,
		"expires_at": expiresAt,
	})
}

// Logout handles POST /api/auth/logout
func (h *authHandler) Logout(c *gin.Context) {
	username := middleware.Username(c)

	if err := h.authService.Logout(c.Request.Context(), middleware.SessionID(c)); err != nil {
		h.logger.Error("Failed to logout user", zap.String("username", username), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to logout"})
		return
	}

	h.clearSessionCookie(c)
	c.JSON(http.StatusOK, gin.H{"message": "Logout successful"})
}

// Session handles GET /api/session
func (h *authHandler) Session(c *gin.Context) {
	username := middleware.Username(c)

	failed, err := h.authService.FailedLogins(c.Request.Context(), username)
	if err != nil {
		h.logger.Error("Failed to count login attempts", zap.String("username", username), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"authenticated":         true,
		"username":              username,
		"failed_login_attempts": failed,
	})
}

func (h *authHandler) setSessionCookie(c *gin.Context, token string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, token, maxAge, "/", "", h.cookie.Secure, true)
}

func (h *authHandler) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, "", -1, "/", "", h.cookie.Secure, true)
}
