package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/imena-mn/nmflow/internal/config"
	"github.com/imena-mn/nmflow/internal/domain/room"
	v1 "github.com/imena-mn/nmflow/internal/handler/v1"
	"github.com/imena-mn/nmflow/internal/repository/gormrepo"
	"github.com/imena-mn/nmflow/internal/service"
	"github.com/imena-mn/nmflow/internal/workflow"
	"github.com/imena-mn/nmflow/pkg/auth"
	"github.com/imena-mn/nmflow/pkg/database"
	"github.com/imena-mn/nmflow/pkg/logger"
	"github.com/imena-mn/nmflow/pkg/metrics"
	"github.com/imena-mn/nmflow/pkg/tracer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("loading config: " + err.Error())
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		panic("building logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server exited with error", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	tp, err := tracer.Init(cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Warn("tracer shutdown failed", zap.Error(err))
		}
	}()

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return err
	}
	if err := database.Migrate(db, log); err != nil {
		return err
	}

	collector := metrics.NewCollector("nmflow")
	jwtManager := auth.NewJWTManager(cfg.JWT)
	rooms := room.DefaultGraph()
	engine := workflow.NewEngine(rooms, nil)

	patientRepo := gormrepo.NewPatientRepository(db)
	userRepo := gormrepo.NewUserRepository(db)
	auditRepo := gormrepo.NewAuditRepository(db)
	hotLabRepo := gormrepo.NewHotLabRepository(db)

	auditSvc := service.NewAuditService(auditRepo, log, collector)
	defer auditSvc.Shutdown()

	deps := v1.RouterDeps{
		Config:      cfg,
		Log:         log,
		JWTManager:  jwtManager,
		Metrics:     collector,
		AuthSvc:     service.NewAuthService(userRepo, jwtManager, auditSvc, log),
		WorkflowSvc: service.NewWorkflowService(patientRepo, engine, rooms, auditSvc, collector, log),
		StatsSvc:    service.NewStatsService(patientRepo, log),
		HotLabSvc:   service.NewHotLabService(hotLabRepo, auditSvc, collector, log),
	}

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      v1.NewRouter(deps),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening",
			zap.String("addr", srv.Addr),
			zap.String("env", cfg.App.Environment),
			zap.String("version", cfg.App.Version),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return err
	}

	log.Info("server stopped")
	return nil
}
