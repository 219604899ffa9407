package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tablero/internal/config"
	"tablero/internal/handler"
	"tablero/internal/service"
	"tablero/internal/session"
)

const shutdownTimeout = 10 * time.Second

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Example: `  # Serve the built-in catalog on port 8080
  tablero serve --port 8080`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg.Port = resolveString(servePort, cfg.Port)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runServe(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "", "listen port (default: PORT)")
}

func runServe(ctx context.Context) error {
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}

	cat, err := loadCatalog(cfg.CatalogFile)
	if err != nil {
		return err
	}

	db := service.NewPostgresClient(cfg.QueryTimeout)
	if err := db.Connect(cfg.DatabaseDriver, cfg.DatabaseURL); err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer func() { _ = db.Disconnect() }()

	if err := db.EnsureAccounts(ctx); err != nil {
		return fmt.Errorf("preparing accounts table: %w", err)
	}

	store, closeStore, err := newSessionStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	h := handler.New(db, cat, store, logger, handler.Options{
		SessionTTL:   cfg.SessionTTL,
		CookieSecure: cfg.CookieSecure,
	})
	r, err := handler.NewRouter(h, logger, handler.RouterOptions{
		LoginRate:  cfg.LoginRate,
		LoginBurst: cfg.LoginBurst,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logger.Info("Server started",
		zap.String("addr", srv.Addr),
		zap.String("driver", cfg.DatabaseDriver),
		zap.String("session_backend", cfg.SessionBackend),
		zap.Int("tables", len(cat.All())),
	)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newSessionStore(ctx context.Context, cfg *config.Config) (session.Store, func(), error) {
	if cfg.SessionBackend == config.SessionBackendRedis {
		rs, err := session.NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.SessionTTL)
		if err != nil {
			return nil, nil, err
		}
		return rs, func() { _ = rs.Close() }, nil
	}
	return session.NewMemoryStore(cfg.SessionCapacity, cfg.SessionTTL), func() {}, nil
}
