package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"selenex/internal/api/handlers"
	"selenex/internal/api/routes"
	"selenex/internal/recorder"
	"selenex/internal/services"
	"selenex/pkg/auth"
	"selenex/pkg/database"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP control surface",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func runServe() error {
	db, err := database.InitDatabase(cfg, logger)
	if err != nil {
		return err
	}
	store := database.NewSessionStore(db)
	manager := recorder.NewManager(recorderOptions(cfg), logger)

	statusSync := services.NewStatusSyncService(store, manager, cfg.Retention.StatusSyncInterval, logger)
	statusSync.Start()
	defer statusSync.Stop()

	if cfg.Retention.Enabled {
		retention, err := services.NewRetentionService(cfg.Retention.Schedule, cfg.Retention.MaxAge, cfg.Retention.ReapAfter, store, manager, logger)
		if err != nil {
			return err
		}
		retention.Start()
		defer retention.Stop()
	}

	var issuer *auth.Issuer
	if cfg.JWT.Enabled {
		issuer = auth.NewIssuer(cfg.JWT.Secret, time.Duration(cfg.JWT.ExpireTime)*time.Second)
	}

	gin.SetMode(cfg.Server.Mode)
	h := handlers.NewRecordingHandler(manager, store, cfg.Chrome.Device, logger)
	router := routes.SetupRoutes(h, issuer, logger)

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr), zap.Bool("auth", issuer != nil))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown", zap.Error(err))
	}
	manager.Shutdown()
	logger.Info("server shutdown complete")
	return nil
}
