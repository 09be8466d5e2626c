package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"dashboard/internal/config"
	"dashboard/internal/pipeline"
	"dashboard/internal/repository"
	"dashboard/internal/results"
	"dashboard/internal/server"
	"dashboard/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func (c *CLI) newServeCmd() *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the dashboard HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.loadConfig(); err != nil {
				return err
			}
			if port != "" {
				c.cfg.Server.Port = port
			}
			return c.runServe(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "listen port (overrides config)")
	return cmd
}

func newLogger(cfg *config.Config) (*zap.Logger, *logrus.Logger, error) {
	accessLog := logrus.New()
	accessLog.SetOutput(os.Stdout)

	if cfg.Log.Format == "json" {
		gin.SetMode(gin.ReleaseMode)
		accessLog.SetFormatter(&logrus.JSONFormatter{})
		logger, err := zap.NewProduction()
		return logger, accessLog, err
	}

	accessLog.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logger, err := zap.NewDevelopment()
	return logger, accessLog, err
}

func (c *CLI) runServe(parent context.Context) error {
	cfg := c.cfg

	logger, accessLog, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	if cfg.Auth.JWTSecret == config.DevJWTSecret {
		logger.Warn("Using the built-in JWT secret; set auth.jwt_secret outside local runs")
	}

	db, err := repository.NewDB(cfg.Database.Type, cfg.Database.URL, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := repository.MigrateDB(db, cfg.Database.Type, logger); err != nil {
		return err
	}

	store := results.NewStore(cfg.Results.DiscardedPath, cfg.Results.RankedPath, cfg.Results.RiskColumn)
	for _, kind := range []results.Kind{results.Discarded, results.Ranked} {
		if path, _ := store.Path(kind); !fileExists(path) {
			logger.Warn("Result file not found; run `dashboard seed` or configure results paths",
				zap.String("kind", string(kind)), zap.String("path", path))
		}
	}

	simulator := pipeline.NewSimulator(cfg.Delays.Durations(), logger)
	dashboard := service.NewDashboardService(repository.NewUploadRepository(db, logger), store, simulator, logger)
	auth := service.NewAuthService(
		repository.NewAuthRepository(db, logger),
		repository.NewSessionRepository(db, logger),
		dashboard,
		[]byte(cfg.Auth.JWTSecret),
		cfg.TokenTTL(),
		logger,
	)

	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := auth.EnsureOperator(ctx, cfg.Auth.Username, cfg.Auth.Password); err != nil {
		return fmt.Errorf("failed to provision operator account: %w", err)
	}

	srv, err := server.NewServer(cfg, auth, dashboard, store, logger, accessLog)
	if err != nil {
		return err
	}

	if err := srv.Run(ctx); err != nil {
		return err
	}
	logger.Info("Application stopped.")
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
