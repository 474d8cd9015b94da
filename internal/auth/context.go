package auth

import (
	"context"

	"github.com/google/uuid"

	"github.com/doorcraft-as/takeoff-api/internal/domain"
)

// UserContext holds authenticated user information for the request.
// ActiveCompanyID carries the company claim from the token; Memberships
// and LegacyCompanyID mirror the user record at token issue time.
type UserContext struct {
	UserID          uuid.UUID
	DisplayName     string
	Email           string
	Roles           []domain.Role
	Memberships     []uuid.UUID
	LegacyCompanyID *uuid.UUID
	ActiveCompanyID *uuid.UUID
}

type contextKey string

const userContextKey contextKey = "userContext"
const companyScopeKey contextKey = "companyScope"

// WithUserContext adds user context to the context
func WithUserContext(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// FromContext extracts user context from the context
func FromContext(ctx context.Context) (*UserContext, bool) {
	user, ok := ctx.Value(userContextKey).(*UserContext)
	return user, ok
}

// MustFromContext extracts user context or panics
func MustFromContext(ctx context.Context) *UserContext {
	user, ok := FromContext(ctx)
	if !ok {
		panic("user context not found in context")
	}
	return user
}

// HasRole checks if user has a specific role
func (u *UserContext) HasRole(role domain.Role) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasAnyRole checks if user has any of the specified roles
func (u *UserContext) HasAnyRole(roles ...domain.Role) bool {
	for _, role := range roles {
		if u.HasRole(role) {
			return true
		}
	}
	return false
}

// IsSuperAdmin checks if user is a super admin (has access to all companies)
func (u *UserContext) IsSuperAdmin() bool {
	return u.HasRole(domain.RoleSuperAdmin)
}

// IsMemberOf checks if the user belongs to a specific company
func (u *UserContext) IsMemberOf(companyID uuid.UUID) bool {
	for _, id := range u.Memberships {
		if id == companyID {
			return true
		}
	}
	return u.LegacyCompanyID != nil && *u.LegacyCompanyID == companyID
}

// CanAccessCompany checks if user can access data for a specific company
func (u *UserContext) CanAccessCompany(companyID uuid.UUID) bool {
	if u.IsSuperAdmin() {
		return true
	}
	return u.IsMemberOf(companyID)
}

// RolesAsStrings returns roles as a slice of strings
func (u *UserContext) RolesAsStrings() []string {
	result := make([]string, len(u.Roles))
	for i, role := range u.Roles {
		result[i] = string(role)
	}
	return result
}

// CompanyScope is the resolved tenant scope for the request.
// It is set by the tenant middleware after running the resolver.
type CompanyScope struct {
	// CompanyID is the company to filter queries by. Nil means no
	// tenant filter is applied (super admin).
	CompanyID *uuid.UUID
}

// WithCompanyScope adds the resolved company scope to the context
func WithCompanyScope(ctx context.Context, scope *CompanyScope) context.Context {
	return context.WithValue(ctx, companyScopeKey, scope)
}

// CompanyScopeFromContext extracts the company scope from the context
func CompanyScopeFromContext(ctx context.Context) (*CompanyScope, bool) {
	scope, ok := ctx.Value(companyScopeKey).(*CompanyScope)
	return scope, ok
}

// EffectiveCompanyID returns the company ID repositories should filter
// queries by, or nil when no filtering applies. Used by the shared
// repository tenant helpers.
func EffectiveCompanyID(ctx context.Context) *uuid.UUID {
	if scope, ok := CompanyScopeFromContext(ctx); ok && scope != nil {
		return scope.CompanyID
	}
	return nil
}
