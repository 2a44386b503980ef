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
	_ "github.com/shenikar/incident_triage/docs"
	"github.com/shenikar/incident_triage/internal/config"
	v1 "github.com/shenikar/incident_triage/internal/handler/http/v1"
	"github.com/shenikar/incident_triage/pkg/postgres"
	"github.com/spf13/cobra"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API, live event stream and alert worker",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command) error {
	// Контекст для graceful shutdown
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.StoreDriver == config.StoreDriverPostgres {
		if err := applyMigrations(); err != nil {
			return err
		}
	}

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.startRelay(ctx); err != nil {
		return fmt.Errorf("failed to start event relay: %w", err)
	}

	// Инициализация и запуск воркера оповещений
	worker, err := a.newNotifyWorker(ctx)
	if err != nil {
		return err
	}
	worker.Start(ctx)

	handler := v1.NewHandler(a.service, a.hub, log)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), v1.RequestLoggerMiddleware(log))
	handler.RegisterRoutes(router.Group(""))

	// Добавление маршрута для Swagger UI
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()
	log.Infof("HTTP server started on port %s", cfg.HTTPPort)

	select {
	case <-ctx.Done():
		log.Info("Received shutdown signal, shutting down server...")
	case err := <-serverErr:
		stop()
		worker.Wait()
		return fmt.Errorf("error starting HTTP server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// SSE соединения не завершаются сами, поэтому после таймаута закрываем принудительно
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("Server forced to shutdown")
		_ = srv.Close()
	}

	worker.Wait()
	log.Info("Server gracefully stopped")
	return nil
}

func applyMigrations() error {
	log.Info("Running database migrations...")
	applied, err := postgres.Migrate(cfg.MigrationsPath, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	if applied {
		log.Info("Database migrations applied successfully")
	} else {
		log.Info("Database schema is up to date")
	}
	return nil
}
