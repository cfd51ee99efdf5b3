package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"narsus/internal/app"
	"narsus/internal/config"
	"narsus/internal/logger"
	"narsus/internal/transport/rest"
	"narsus/internal/transport/rest/middleware"
)

// @title Narsus API
// @version 1.0
// @description Survey scoring: courses, questions, surveys, and scored attempts.
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	zlog, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer zlog.Sync()

	if cfg.UsesDefaultSecret() {
		if cfg.IsDebug() {
			zlog.Warn("JWT_SECRET not set, using development key")
		} else {
			zlog.Error("JWT_SECRET not set in release mode, tokens are signed with the public development key")
		}
	}

	ctx := context.Background()
	application, err := app.New(ctx, cfg, zlog)
	if err != nil {
		zlog.Fatal("startup failed", zap.Error(err))
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimit.LoginPerMinute, time.Minute)
	stopCleanup := make(chan struct{})
	go limiter.Cleanup(stopCleanup)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           rest.NewRouter(application.Container(limiter)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zlog.Info("server starting",
			zap.String("addr", srv.Addr),
			zap.String("mode", cfg.Server.Mode),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("listen", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("server forced to shutdown", zap.Error(err))
	}
	close(stopCleanup)
	application.Close(shutdownCtx)

	zlog.Info("server exited")
}
