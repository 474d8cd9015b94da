package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/doorcraft-as/takeoff-api/internal/accounting"
	"github.com/doorcraft-as/takeoff-api/internal/auth"
	"github.com/doorcraft-as/takeoff-api/internal/config"
	"github.com/doorcraft-as/takeoff-api/internal/database"
	"github.com/doorcraft-as/takeoff-api/internal/domain"
	"github.com/doorcraft-as/takeoff-api/internal/http/handler"
	"github.com/doorcraft-as/takeoff-api/internal/http/middleware"

	_ "github.com/doorcraft-as/takeoff-api/docs" // Import generated swagger docs
)

type Router struct {
	cfg              *config.Config
	logger           *zap.Logger
	db               *gorm.DB
	accountingClient *accounting.Client
	authMiddleware   *auth.Middleware
	tenantMiddleware *middleware.TenantMiddleware
	rateLimiter      *middleware.RateLimiter
	auditMiddleware  *middleware.AuditMiddleware

	authHandler            *handler.AuthHandler
	takeoffHandler         *handler.TakeoffHandler
	companyHandler         *handler.CompanyHandler
	userHandler            *handler.UserHandler
	invoiceHandler         *handler.InvoiceHandler
	materialRequestHandler *handler.MaterialRequestHandler
	fileHandler            *handler.FileHandler
	notificationHandler    *handler.NotificationHandler
	auditHandler           *handler.AuditHandler
}

func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	db *gorm.DB,
	accountingClient *accounting.Client,
	authMiddleware *auth.Middleware,
	tenantMiddleware *middleware.TenantMiddleware,
	rateLimiter *middleware.RateLimiter,
	auditMiddleware *middleware.AuditMiddleware,
	authHandler *handler.AuthHandler,
	takeoffHandler *handler.TakeoffHandler,
	companyHandler *handler.CompanyHandler,
	userHandler *handler.UserHandler,
	invoiceHandler *handler.InvoiceHandler,
	materialRequestHandler *handler.MaterialRequestHandler,
	fileHandler *handler.FileHandler,
	notificationHandler *handler.NotificationHandler,
	auditHandler *handler.AuditHandler,
) *Router {
	return &Router{
		cfg:                    cfg,
		logger:                 logger,
		db:                     db,
		accountingClient:       accountingClient,
		authMiddleware:         authMiddleware,
		tenantMiddleware:       tenantMiddleware,
		rateLimiter:            rateLimiter,
		auditMiddleware:        auditMiddleware,
		authHandler:            authHandler,
		takeoffHandler:         takeoffHandler,
		companyHandler:         companyHandler,
		userHandler:            userHandler,
		invoiceHandler:         invoiceHandler,
		materialRequestHandler: materialRequestHandler,
		fileHandler:            fileHandler,
		notificationHandler:    notificationHandler,
		auditHandler:           auditHandler,
	}
}

func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(rt.logger))
	r.Use(middleware.Logging(rt.logger))
	r.Use(middleware.SecurityHeaders(&rt.cfg.Security))
	r.Use(middleware.CORS(&rt.cfg.CORS, rt.cfg.App.Environment, rt.logger))
	r.Use(rt.rateLimiter.LimitByIP) // Apply IP-based rate limiting globally

	// Health check (basic liveness probe)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Database health check (readiness probe with detailed stats)
	r.Get("/health/db", func(w http.ResponseWriter, r *http.Request) {
		stats, err := database.HealthCheckWithStats(rt.db)
		if err != nil {
			rt.logger.Error("Database health check failed", zap.Error(err))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status":  "unhealthy",
				"error":   err.Error(),
				"service": "database",
			})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  "healthy",
			"service": "database",
			"stats": map[string]interface{}{
				"max_open_connections": stats.MaxOpenConnections,
				"open_connections":     stats.OpenConnections,
				"in_use":               stats.InUse,
				"idle":                 stats.Idle,
				"wait_count":           stats.WaitCount,
				"wait_duration_ms":     stats.WaitDuration.Milliseconds(),
				"max_idle_closed":      stats.MaxIdleClosed,
				"max_lifetime_closed":  stats.MaxLifetimeClosed,
			},
		})
	})

	// Combined readiness check (checks all dependencies)
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		checks := make(map[string]interface{})
		allHealthy := true

		// Check database
		if err := database.HealthCheck(rt.db); err != nil {
			rt.logger.Error("Database health check failed", zap.Error(err))
			checks["database"] = map[string]interface{}{
				"status": "unhealthy",
				"error":  err.Error(),
			}
			allHealthy = false
		} else {
			checks["database"] = map[string]interface{}{
				"status": "healthy",
			}
		}

		// Check accounting connection. A disabled or unhealthy accounting
		// link does not fail readiness; payment sync degrades gracefully.
		checks["accounting"] = rt.accountingClient.HealthCheck(r.Context())

		w.Header().Set("Content-Type", "application/json")
		if allHealthy {
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status": "healthy",
				"checks": checks,
			})
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status": "unhealthy",
				"checks": checks,
			})
		}
	})

	// Swagger documentation
	if rt.cfg.Server.EnableSwagger {
		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		))
	}

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public routes (no auth required)
		r.Post("/auth/login", rt.authHandler.Login)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(rt.authMiddleware.Authenticate)
			r.Use(rt.tenantMiddleware.Resolve)
			r.Use(rt.auditMiddleware.Audit) // Audit all modifications

			// Auth
			r.Post("/auth/logout", rt.authHandler.Logout)
			r.Post("/auth/select-company", rt.authHandler.SelectCompany)
			r.Get("/auth/my-companies", rt.authHandler.MyCompanies)
			r.Get("/auth/me", rt.authHandler.Me)

			// Takeoffs
			r.Route("/takeoffs", func(r chi.Router) {
				r.Get("/", rt.takeoffHandler.List)
				r.Post("/", rt.takeoffHandler.Create)
				r.Get("/{id}", rt.takeoffHandler.GetByID)
				r.Put("/{id}", rt.takeoffHandler.Update)
				r.Delete("/{id}", rt.takeoffHandler.Delete)

				// Workflow endpoints
				r.Patch("/{id}/status", rt.takeoffHandler.ChangeStatus)
				r.Post("/{id}/assign", rt.takeoffHandler.AssignCarpenter)
				r.Get("/{id}/history", rt.takeoffHandler.GetStatusHistory)

				// Sub-resources
				r.Post("/{id}/delivery-photo", rt.takeoffHandler.UploadDeliveryPhoto)
				r.Get("/{id}/files", rt.takeoffHandler.ListFiles)
				r.Get("/{id}/material-requests", rt.materialRequestHandler.ListByTakeoff)
			})

			// Invoices
			r.Route("/invoices", func(r chi.Router) {
				r.Get("/", rt.invoiceHandler.List)
				r.Post("/", rt.invoiceHandler.Create)
				r.Get("/{id}", rt.invoiceHandler.GetByID)
				r.Post("/{id}/send", rt.invoiceHandler.Send)
			})

			// Material requests
			r.Route("/material-requests", func(r chi.Router) {
				r.Post("/", rt.materialRequestHandler.Create)
				r.Get("/pending", rt.materialRequestHandler.ListPending)
				r.Post("/{id}/decide", rt.materialRequestHandler.Decide)
			})

			// Files
			r.Route("/files", func(r chi.Router) {
				r.Get("/{id}", rt.fileHandler.GetByID)
				r.Get("/{id}/download", rt.fileHandler.Download)
				r.Delete("/{id}", rt.fileHandler.Delete)
			})

			// Notifications
			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", rt.notificationHandler.List)
				r.Get("/count", rt.notificationHandler.GetUnreadCount)
				r.Put("/read-all", rt.notificationHandler.MarkAllAsRead)
				r.Get("/{id}", rt.notificationHandler.GetByID)
				r.Put("/{id}/read", rt.notificationHandler.MarkAsRead)
			})

			// Users (company admins and managers manage their own staff)
			r.Route("/users", func(r chi.Router) {
				r.Use(rt.authMiddleware.RequireRole(domain.RoleCompany, domain.RoleManager))
				r.Get("/", rt.userHandler.List)
				r.Post("/", rt.userHandler.Create)
				r.Get("/{id}", rt.userHandler.GetByID)
				r.Put("/{id}", rt.userHandler.Update)
				r.Put("/{id}/password", rt.userHandler.ChangePassword)
			})

			// Companies (super admin only)
			r.Route("/companies", func(r chi.Router) {
				r.Use(rt.authMiddleware.RequireSuperAdmin)
				r.Get("/", rt.companyHandler.List)
				r.Post("/", rt.companyHandler.Create)
				r.Get("/{id}", rt.companyHandler.GetByID)
				r.Put("/{id}", rt.companyHandler.Update)
			})

			// Audit logs (super admin only)
			r.Route("/audit", func(r chi.Router) {
				r.Use(rt.authMiddleware.RequireSuperAdmin)
				r.Get("/", rt.auditHandler.List)
				r.Get("/stats", rt.auditHandler.GetStats)
				r.Get("/export", rt.auditHandler.Export)
				r.Get("/entity/{entityType}/{entityId}", rt.auditHandler.GetByEntity)
				r.Get("/{id}", rt.auditHandler.GetByID)
			})
		})
	})

	return r
}
