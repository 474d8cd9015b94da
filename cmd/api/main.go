package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/doorcraft-as/takeoff-api/docs"
	"github.com/doorcraft-as/takeoff-api/internal/accounting"
	"github.com/doorcraft-as/takeoff-api/internal/auth"
	"github.com/doorcraft-as/takeoff-api/internal/config"
	"github.com/doorcraft-as/takeoff-api/internal/database"
	"github.com/doorcraft-as/takeoff-api/internal/http/handler"
	"github.com/doorcraft-as/takeoff-api/internal/http/middleware"
	"github.com/doorcraft-as/takeoff-api/internal/http/router"
	"github.com/doorcraft-as/takeoff-api/internal/jobs"
	"github.com/doorcraft-as/takeoff-api/internal/logger"
	"github.com/doorcraft-as/takeoff-api/internal/pdf"
	"github.com/doorcraft-as/takeoff-api/internal/repository"
	"github.com/doorcraft-as/takeoff-api/internal/service"
	"github.com/doorcraft-as/takeoff-api/internal/session"
	"github.com/doorcraft-as/takeoff-api/internal/storage"
	"go.uber.org/zap"
)

// paymentSyncTimeout caps how long a single payment reconciliation run may take.
const paymentSyncTimeout = 5 * time.Minute

// @title Doorcraft Takeoff API
// @version 1.0
// @description Multi-tenant API for door installation takeoffs, invoicing and material requests
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.email support@doorcraft.io

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Bearer token

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name x-api-key
// @description API Key for system operations
// @Security BearerAuth
// @Security ApiKeyAuth

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// Load basic configuration first (for logging setup)
	basicCfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	log, err := logger.NewLogger(&basicCfg.Logging, &basicCfg.App)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting application",
		zap.String("app", basicCfg.App.Name),
		zap.String("env", basicCfg.App.Environment),
		zap.Int("port", basicCfg.App.Port),
	)

	// Configure Swagger host based on environment
	switch basicCfg.App.Environment {
	case "staging":
		docs.SwaggerInfo.Host = "takeoff-staging.doorcraft.io"
	case "production":
		docs.SwaggerInfo.Host = "api.doorcraft.io"
	default:
		docs.SwaggerInfo.Host = fmt.Sprintf("localhost:%d", basicCfg.App.Port)
	}

	// Load full configuration with secrets
	// In development: uses environment variables
	// In staging/production: fetches from Azure Key Vault
	cfg, err := config.LoadWithSecrets(ctx, log)
	if err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}

	// Connect to database
	db, err := database.NewDatabase(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	// Initialize storage
	fileStorage, err := storage.NewStorage(&cfg.Storage, log)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	log.Info("Storage initialized", zap.String("mode", cfg.Storage.Mode))

	// Initialize accounting connection (optional - for payment sync)
	// The connection is read-only and the app continues without it.
	accountingClient, err := accounting.NewClient(&cfg.Accounting, log)
	if err != nil {
		log.Warn("Accounting connection failed, continuing without it",
			zap.Error(err),
		)
		accountingClient = nil
	} else if accountingClient != nil {
		log.Info("Accounting system connected",
			zap.Int("max_open_conns", cfg.Accounting.MaxOpenConns),
			zap.Int("query_timeout_seconds", cfg.Accounting.QueryTimeout),
		)
	}

	// PDF rendering client (invoice PDFs degrade gracefully when disabled)
	pdfClient := pdf.NewClient(&cfg.PDF, log)

	// Initialize repositories
	takeoffRepo := repository.NewTakeoffRepository(db)
	historyRepo := repository.NewStatusHistoryRepository(db)
	userRepo := repository.NewUserRepository(db)
	companyRepo := repository.NewCompanyRepository(db)
	fileRepo := repository.NewFileRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	materialRequestRepo := repository.NewMaterialRequestRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	auditLogRepo := repository.NewAuditLogRepository(db)
	numberSequenceRepo := repository.NewNumberSequenceRepository(db)

	// Company context resolution and switch notifications.
	// The resolver drops its own cache before listeners run; subscribers
	// here only observe switches.
	resolver := session.NewResolver(userRepo, log)
	switchNotifier := session.NewSwitchNotifier()
	switchNotifier.Subscribe(func(event session.SwitchEvent) {
		log.Info("Company switched",
			zap.String("user_id", event.UserID.String()),
			zap.String("company_id", event.CompanyID.String()),
		)
	})

	tokenService := auth.NewTokenService(&cfg.Security)

	// Initialize services
	numberSequenceService := service.NewNumberSequenceService(numberSequenceRepo, companyRepo, log)
	takeoffService := service.NewTakeoffService(takeoffRepo, historyRepo, userRepo, fileRepo, notificationRepo, numberSequenceService, log)
	authService := service.NewAuthService(userRepo, companyRepo, auditLogRepo, tokenService, resolver, switchNotifier, log)
	fileService := service.NewFileService(fileRepo, takeoffRepo, invoiceRepo, fileStorage, log)
	invoiceService := service.NewInvoiceService(invoiceRepo, takeoffRepo, notificationRepo, numberSequenceService, pdfClient, fileService, log)
	materialRequestService := service.NewMaterialRequestService(materialRequestRepo, takeoffRepo, notificationRepo, log)
	notificationService := service.NewNotificationService(notificationRepo, log)
	companyService := service.NewCompanyService(companyRepo, userRepo, log)
	userService := service.NewUserService(userRepo, log)
	auditLogService := service.NewAuditLogService(auditLogRepo, log)
	paymentSyncService := service.NewPaymentSyncService(invoiceRepo, invoiceService, accountingClient, log)

	// Initialize middleware
	authMiddleware := auth.NewMiddleware(cfg, tokenService, log)
	tenantMiddleware := middleware.NewTenantMiddleware(resolver, log)
	rateLimiter := middleware.NewRateLimiter(&cfg.RateLimit, log)
	auditMiddleware := middleware.NewAuditMiddleware(auditLogService, nil, log)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authService, log)
	takeoffHandler := handler.NewTakeoffHandler(takeoffService, fileService, cfg.Storage.MaxUploadSizeMB, log)
	companyHandler := handler.NewCompanyHandler(companyService, log)
	userHandler := handler.NewUserHandler(userService, log)
	invoiceHandler := handler.NewInvoiceHandler(invoiceService, log)
	materialRequestHandler := handler.NewMaterialRequestHandler(materialRequestService, log)
	fileHandler := handler.NewFileHandler(fileService, log)
	notificationHandler := handler.NewNotificationHandler(notificationService, log)
	auditHandler := handler.NewAuditHandler(auditLogService, log)

	// Setup router
	rt := router.NewRouter(
		cfg,
		log,
		db,
		accountingClient,
		authMiddleware,
		tenantMiddleware,
		rateLimiter,
		auditMiddleware,
		authHandler,
		takeoffHandler,
		companyHandler,
		userHandler,
		invoiceHandler,
		materialRequestHandler,
		fileHandler,
		notificationHandler,
		auditHandler,
	)

	// Initialize and start scheduler for background jobs
	var scheduler *jobs.Scheduler
	if cfg.Accounting.Enabled && accountingClient != nil {
		scheduler = jobs.NewScheduler(log)

		// runOnStartup=true reconciles payments that landed while the
		// API was down, without blocking startup.
		if err := jobs.RegisterPaymentSyncJob(
			scheduler,
			paymentSyncService,
			log,
			cfg.Accounting.SyncSchedule,
			paymentSyncTimeout,
			true,
		); err != nil {
			log.Error("Failed to register payment sync job", zap.Error(err))
		} else {
			scheduler.Start()
			log.Info("Scheduler started with payment sync job",
				zap.String("cron_expr", cfg.Accounting.SyncSchedule),
				zap.Duration("timeout", paymentSyncTimeout),
			)
		}
	} else {
		log.Info("Payment sync disabled",
			zap.Bool("accounting_enabled", cfg.Accounting.Enabled),
			zap.Bool("accounting_client_available", accountingClient != nil),
		)
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      rt.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
	}

	// Start server in goroutine
	serverErrors := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	// Wait for interrupt signal
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		// Stop scheduler if running
		if scheduler != nil {
			ctx := scheduler.Stop()
			<-ctx.Done()
			log.Info("Scheduler stopped")
		}

		// Graceful shutdown with timeout
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("Failed to shutdown gracefully", zap.Error(err))
			return err
		}

		// Close accounting connection if initialized
		if accountingClient != nil {
			if err := accountingClient.Close(); err != nil {
				log.Warn("Error closing accounting connection", zap.Error(err))
			}
		}

		log.Info("Server stopped gracefully")
	}

	return nil
}
