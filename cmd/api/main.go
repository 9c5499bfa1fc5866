package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/medhq/hms-core/internal/config"
	assignmentHandler "github.com/medhq/hms-core/internal/handler/assignment"
	authorizationHandler "github.com/medhq/hms-core/internal/handler/authorization"
	healthHandler "github.com/medhq/hms-core/internal/handler/health"
	inventoryHandler "github.com/medhq/hms-core/internal/handler/inventory"
	packHandler "github.com/medhq/hms-core/internal/handler/pack"
	rbacHandler "github.com/medhq/hms-core/internal/handler/rbac"
	recordsHandler "github.com/medhq/hms-core/internal/handler/records"
	transferHandler "github.com/medhq/hms-core/internal/handler/transfer"
	"github.com/medhq/hms-core/internal/middleware"
	"github.com/medhq/hms-core/internal/repository/postgres"
	"github.com/medhq/hms-core/internal/router"
	authorizationService "github.com/medhq/hms-core/internal/service/authorization"
	inventoryService "github.com/medhq/hms-core/internal/service/inventory"
	packService "github.com/medhq/hms-core/internal/service/pack"
	rbacService "github.com/medhq/hms-core/internal/service/rbac"
	recordsService "github.com/medhq/hms-core/internal/service/records"
	transferService "github.com/medhq/hms-core/internal/service/transfer"
	"github.com/medhq/hms-core/pkg/auth"
	"github.com/medhq/hms-core/pkg/logger"
	"github.com/medhq/hms-core/pkg/messaging"
	messagingRedis "github.com/medhq/hms-core/pkg/messaging/redis"
	"github.com/medhq/hms-core/pkg/metrics"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(&logger.Config{
		Level:   logger.ParseLevel(cfg.Logger.Level),
		Console: cfg.Logger.Console,
	})
	zl := *appLogger.Zerolog()

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	var broker messaging.Broker = messaging.NopBroker{}
	if cfg.Redis.Enabled {
		broker, err = messagingRedis.NewBroker(messagingRedis.Config{URL: cfg.Redis.URL}, &zl)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to Redis")
		}
	}
	defer broker.Close()

	m := metrics.NewMetrics(cfg.Monitoring.Namespace)

	rbacRepo := postgres.NewRBACRepository(db)
	userRepo := postgres.NewUserRepository(db)
	patientRepo := postgres.NewPatientRepository(db)
	pharmacyRepo := postgres.NewPharmacyRepository(db)
	assignmentRepo := postgres.NewAssignmentRepository(db)
	inventoryRepo := postgres.NewInventoryRepository(db)
	transferRepo := postgres.NewTransferRepository(db)
	prescriptionRepo := postgres.NewPrescriptionRepository(db)
	packRepo := postgres.NewPackRepository(db)
	authorizationRepo := postgres.NewAuthorizationRepository(db)
	clinicalRepo := postgres.NewClinicalRepository(db)

	rbacSvc := rbacService.NewService(rbacRepo, userRepo, zl)
	inventorySvc := inventoryService.NewService(inventoryRepo, pharmacyRepo, zl)
	transferSvc := transferService.NewService(transferRepo, inventoryRepo, inventorySvc, pharmacyRepo, broker, m, zl)
	packSvc := packService.NewService(packRepo, pharmacyRepo, assignmentRepo, inventoryRepo, inventorySvc, transferSvc, prescriptionRepo, m, zl)
	recordsSvc := recordsService.NewService(patientRepo, clinicalRepo, zl)
	authorizationSvc := authorizationService.NewService(authorizationRepo, clinicalRepo, patientRepo, prescriptionRepo, pharmacyRepo, zl)

	tokenSvc := auth.NewTokenService(cfg.JWT.Secret, cfg.JWT.ExpiryHours)
	authMw := middleware.NewAuthMiddleware(tokenSvc, userRepo)
	accessMw := middleware.NewAccessMiddleware(rbacSvc, cfg.AccessControl, m, zl)
	scopeMw := middleware.NewPharmacyScopeMiddleware(rbacSvc, assignmentRepo, zl)
	auditMw := middleware.NewAuditMiddleware(broker, cfg.AccessControl.PermissionAuditEnabled, zl)

	r := router.New(cfg, zl, authMw, accessMw, scopeMw, auditMw,
		healthHandler.NewHandler(db),
		rbacHandler.NewHandler(rbacSvc, accessMw),
		authorizationHandler.NewHandler(authorizationSvc),
		inventoryHandler.NewHandler(inventorySvc),
		transferHandler.NewHandler(transferSvc),
		packHandler.NewHandler(packSvc),
		assignmentHandler.NewHandler(assignmentRepo, pharmacyRepo, userRepo),
		recordsHandler.NewHandler(recordsSvc),
	)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		zl.Info().Int("port", cfg.Server.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zl.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
	zl.Info().Msg("server stopped")
}
