package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/scidatahub/platform/internal/api"
	"github.com/scidatahub/platform/internal/auth"
	"github.com/scidatahub/platform/internal/config"
	"github.com/scidatahub/platform/internal/db"
	"github.com/scidatahub/platform/internal/logger"
	"github.com/scidatahub/platform/internal/metrics"
	"github.com/scidatahub/platform/internal/repository/postgres"
	"github.com/scidatahub/platform/internal/services"
	"github.com/scidatahub/platform/internal/worker"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("db connect", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if os.Getenv("APP_MIGRATE") == "true" {
		if err := db.RunMigrations(ctx, pool); err != nil {
			log.Error("migrations", "err", err)
			os.Exit(1)
		}
	}

	repos := postgres.NewRepositories(pool)
	wp := worker.NewPool(cfg.WorkerCount)
	defer wp.Stop()

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, time.Duration(cfg.TokenTTLHrs)*time.Hour)
	userSvc := services.NewUserService(repos.Users, tokens)
	subSvc := services.NewSubmissionService(repos.Submissions)
	reviewSvc := services.NewReviewService(repos.Submissions, repos.Users, repos.AuditLogs, wp)

	metrics.Init()
	r := api.NewRouter(api.RouterDeps{
		Cfg:       cfg,
		Tokens:    tokens,
		UserSvc:   userSvc,
		SubSvc:    subSvc,
		ReviewSvc: reviewSvc,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server", "err", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
