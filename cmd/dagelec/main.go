package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/dagelec/dagelec-erp/cmd/dagelec/cli"
	"github.com/dagelec/dagelec-erp/internal/app"
	"github.com/dagelec/dagelec-erp/internal/auth"
	"github.com/dagelec/dagelec-erp/internal/inventory"
	"github.com/dagelec/dagelec-erp/internal/masterdata/clients"
	"github.com/dagelec/dagelec-erp/internal/masterdata/ingredients"
	"github.com/dagelec/dagelec-erp/internal/masterdata/personnel"
	"github.com/dagelec/dagelec-erp/internal/masterdata/vendors"
	"github.com/dagelec/dagelec-erp/internal/observability"
	"github.com/dagelec/dagelec-erp/internal/platform/cache"
	"github.com/dagelec/dagelec-erp/internal/platform/db"
	"github.com/dagelec/dagelec-erp/internal/platform/storage"
	"github.com/dagelec/dagelec-erp/internal/rbac"
	"github.com/dagelec/dagelec-erp/internal/realtime"
	"github.com/dagelec/dagelec-erp/internal/requisition"
	"github.com/dagelec/dagelec-erp/internal/shared"
	"github.com/dagelec/dagelec-erp/jobs"
	"github.com/dagelec/dagelec-erp/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	if len(os.Args) > 1 && os.Args[1] == "jobs" {
		os.Exit(cli.RunJobs(ctx, cfg.RedisAddr, os.Args[2:], os.Stdout))
	}

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("dagelec", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		return err
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	objects, err := storage.New(storage.Config{
		Endpoint:  cfg.MinIOEndpoint,
		AccessKey: cfg.MinIOAccessKey,
		SecretKey: cfg.MinIOSecretKey,
		Bucket:    cfg.MinIOBucket,
		UseSSL:    cfg.MinIOUseSSL,
	})
	if err != nil {
		return fmt.Errorf("init object storage: %w", err)
	}
	if err := objects.EnsureBucket(ctx); err != nil {
		logger.Warn("object storage bucket", slog.Any("error", err))
	}

	sessionManager := shared.NewSessionManager(redisClient, "dagelec_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	auditLogger := shared.NewAuditLogger(dbpool)
	approvalRecorder := shared.NewApprovalRecorder(dbpool, logger)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)
	locks := shared.NewLockManager(redisClient, cfg.LockTTL())
	metrics := observability.NewMetrics()

	catalog := rbac.DefaultCatalog()
	permissions := rbac.NewService(rbac.NewRepository(dbpool), cfg.PermissionsTimeout)
	rbacMiddleware := rbac.Middleware{Service: permissions, Catalog: catalog, Logger: logger}

	tokens := auth.NewTokens(cfg.TokenSecret, cfg.TokenTTL)
	authService := auth.NewService(auth.NewRepository(dbpool), tokens)
	authHandler := auth.NewHandler(logger, authService, authService, permissions, catalog, sessionManager, csrfManager)

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	jobClient, err := jobs.NewClient(redisOpts)
	if err != nil {
		return fmt.Errorf("init job client: %w", err)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	machine := requisition.DefaultMachine()
	gateway := requisition.NewRepository(dbpool)
	// The hub decorates rows through the service, which in turn publishes to
	// the hub; the publisher is attached once both exist.
	var hub *realtime.Hub
	publisher := publisherFunc(func(ctx context.Context, r requisition.Requisition) {
		hub.PublishRequisition(ctx, r)
	})
	requisitionService := requisition.NewService(gateway, machine, objects, publisher, auditLogger, logger)
	hub = realtime.NewHub(requisitionService.Decorate, logger)
	metrics.WatchConnections(func() int64 { return int64(hub.Connected()) })
	go hub.Run(ctx)

	orchestrator := requisition.NewOrchestrator(machine, gateway, locks, logger,
		requisition.WithApprovals(approvalRecorder),
		requisition.WithPublisher(hub),
		requisition.WithNotifier(jobClient),
		requisition.WithObserver(metrics),
		requisition.WithTimeout(cfg.TransitionTimeout),
	)

	reportClient := report.NewClient(cfg.GotenbergURL)
	printer, err := report.NewRequisitionPrinter(reportClient)
	if err != nil {
		return err
	}
	requisitionHandler := requisition.NewHandler(logger, requisitionService, orchestrator, printer, jobClient, rbacMiddleware).
		WithIdempotency(idempotencyStore)

	inventoryService := inventory.NewService(inventory.NewRepository(dbpool), auditLogger, idempotencyStore,
		inventory.ServiceConfig{AllowNegativeStock: cfg.AllowNegativeStock}, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		SessionManager:     sessionManager,
		CSRFManager:        csrfManager,
		Tokens:             tokens,
		RBACMiddleware:     rbacMiddleware,
		Metrics:            metrics,
		AuthHandler:        authHandler,
		PermissionsHandler: rbac.NewHandler(logger, rbacMiddleware),
		RequisitionHandler: requisitionHandler,
		ClientsHandler:     clients.NewHandler(logger, clients.NewService(clients.NewRepository(dbpool)), rbacMiddleware),
		VendorsHandler:     vendors.NewHandler(logger, vendors.NewService(vendors.NewRepository(dbpool)), rbacMiddleware),
		PersonnelHandler:   personnel.NewHandler(logger, personnel.NewService(personnel.NewRepository(dbpool)), rbacMiddleware),
		IngredientsHandler: ingredients.NewHandler(logger, ingredients.NewService(ingredients.NewRepository(dbpool)), rbacMiddleware),
		InventoryHandler:   inventory.NewHandler(logger, inventoryService, rbacMiddleware),
		Hub:                hub,
		ReportHandler:      report.NewHandler(reportClient, logger),
		JobHandler:         jobs.NewHandler(inspector, objects, logger),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

type publisherFunc func(ctx context.Context, r requisition.Requisition)

func (f publisherFunc) PublishRequisition(ctx context.Context, r requisition.Requisition) {
	f(ctx, r)
}
