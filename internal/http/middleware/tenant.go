package middleware

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/doorcraft-as/takeoff-api/internal/auth"
	"github.com/doorcraft-as/takeoff-api/internal/session"
)

// CompanyHeader is the header a multi-company user sends to scope a
// single request to one of their companies.
const CompanyHeader = "x-company-id"

// TenantMiddleware resolves the effective company for each request and
// stores it in the context so repositories can filter by it.
type TenantMiddleware struct {
	resolver *session.Resolver
	logger   *zap.Logger
}

// NewTenantMiddleware creates a new tenant middleware
func NewTenantMiddleware(resolver *session.Resolver, logger *zap.Logger) *TenantMiddleware {
	return &TenantMiddleware{
		resolver: resolver,
		logger:   logger,
	}
}

// Resolve runs the company resolver for the authenticated user and adds
// the resulting scope to the request context.
//   - Super admins get an unscoped context and see all companies
//   - An x-company-id header scopes the single request, after a
//     membership check
//   - Otherwise the user's selected or only company applies
//   - Multi-company users without a selection are rejected with 403
func (m *TenantMiddleware) Resolve(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userCtx, ok := auth.FromContext(r.Context())
		if !ok {
			// Authentication middleware rejects unauthenticated requests
			// before this point.
			next.ServeHTTP(w, r)
			return
		}

		scope, err := m.resolver.Resolve(r.Context(), userCtx, r.Header.Get(CompanyHeader))
		if err != nil {
			switch {
			case errors.Is(err, session.ErrSelectionRequired):
				http.Error(w, "Forbidden: select a company before accessing company data", http.StatusForbidden)
			case errors.Is(err, session.ErrCompanyAccessDenied):
				http.Error(w, "Forbidden: you cannot access data for this company", http.StatusForbidden)
			default:
				m.logger.Error("company resolution failed",
					zap.String("user_id", userCtx.UserID.String()),
					zap.Error(err))
				http.Error(w, "Internal server error", http.StatusInternalServerError)
			}
			return
		}

		ctx := auth.WithCompanyScope(r.Context(), scope)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
