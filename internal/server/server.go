package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"dashboard/internal/config"
	"dashboard/internal/handler"
	"dashboard/internal/middleware"
	"dashboard/internal/results"
	"dashboard/internal/service"
	"dashboard/internal/web"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
)

type Server struct {
	router    *gin.Engine
	cfg       *config.Config
	auth      service.AuthService
	dashboard service.DashboardService
	results   *results.Store
	logger    *zap.Logger
	accessLog *logrus.Logger
}

func NewServer(cfg *config.Config, auth service.AuthService, dashboard service.DashboardService, store *results.Store, logger *zap.Logger, accessLog *logrus.Logger) (*Server, error) {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(accessLog))

	tmpl, err := web.Templates()
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	router.SetHTMLTemplate(tmpl)
	router.MaxMultipartMemory = cfg.MaxUploadBytes()

	s := &Server{
		router:    router,
		cfg:       cfg,
		auth:      auth,
		dashboard: dashboard,
		results:   store,
		logger:    logger,
		accessLog: accessLog,
	}

	s.setupRoutes()

	return s, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	cookieName := s.cfg.Auth.CookieName
	maxUpload := s.cfg.MaxUploadBytes()

	authHandler := handler.NewAuthHandler(s.auth, handler.CookieConfig{
		Name:   cookieName,
		Secure: s.cfg.Auth.SecureCookie,
	}, s.cfg.Branding, s.logger)
	dashboardHandler := handler.NewDashboardHandler(s.dashboard, s.results, s.cfg.Branding, maxUpload, s.logger)
	assetsHandler := handler.NewAssetsHandler(s.dashboard, s.results, s.cfg.Branding.LogoPath, s.logger)
	apiHandler := handler.NewAPIHandler(s.dashboard, maxUpload, s.logger)

	// Ping route for health check
	s.router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	s.router.GET("/login", authHandler.LoginPage)
	s.router.POST("/login", authHandler.LoginForm)
	s.router.GET("/static/logo", assetsHandler.Logo)
	s.router.POST("/api/auth/login", authHandler.Login)

	pages := s.router.Group("/")
	pages.Use(middleware.PageAuthMiddleware(s.auth, cookieName, s.logger))
	{
		pages.GET("/", dashboardHandler.Index)
		pages.POST("/upload", dashboardHandler.Upload)
		pages.POST("/inference", dashboardHandler.Inference)
		pages.POST("/logout", authHandler.LogoutForm)
		pages.GET("/charts/filtering.png", assetsHandler.FilteringChart)
		pages.GET("/charts/risk.png", assetsHandler.RiskChart)
		pages.GET("/downloads/:kind", assetsHandler.Download)
	}

	api := s.router.Group("/api")
	api.Use(middleware.AuthMiddleware(s.auth, cookieName, s.logger))
	{
		api.GET("/session", authHandler.Session)
		api.POST("/auth/logout", authHandler.Logout)
		apiHandler.RegisterRoutes(api)
	}
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf(":%s", s.cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Server starting", zap.String("address", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout())
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	s.logger.Info("Server exited")
	return nil
}
