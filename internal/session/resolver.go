// Package session resolves which company a request acts on behalf of
// and tracks company switches.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/doorcraft-as/takeoff-api/internal/auth"
	"github.com/doorcraft-as/takeoff-api/internal/domain"
)

var (
	// ErrSelectionRequired is returned when a user belongs to several
	// companies and has not selected one.
	ErrSelectionRequired = errors.New("company selection required")
	// ErrCompanyAccessDenied is returned when a user requests a company
	// they are not a member of.
	ErrCompanyAccessDenied = errors.New("no access to requested company")
)

// DefaultCacheTTL is how long a cached resolution stays valid.
const DefaultCacheTTL = 24 * time.Hour

// UserLoader loads the current user record. Resolution reads the user
// from the database rather than trusting token claims so membership
// changes take effect without re-login.
type UserLoader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

type cacheEntry struct {
	companyID  *uuid.UUID
	roles      []domain.Role
	resolvedAt time.Time
}

// Resolver determines the effective company for a request.
//
// Precedence: super admins are never scoped; an explicit x-company-id
// header wins next (validated against membership, never cached); then
// the user's selected active company; then the legacy single-company
// field; then the sole membership when there is exactly one. A user
// with several memberships and nothing selected gets
// ErrSelectionRequired.
type Resolver struct {
	users  UserLoader
	logger *zap.Logger
	ttl    time.Duration

	mu    sync.RWMutex
	cache map[uuid.UUID]cacheEntry

	// now is replaceable in tests
	now func() time.Time
}

// NewResolver creates a resolver with the default cache TTL.
func NewResolver(users UserLoader, logger *zap.Logger) *Resolver {
	return &Resolver{
		users:  users,
		logger: logger,
		ttl:    DefaultCacheTTL,
		cache:  make(map[uuid.UUID]cacheEntry),
		now:    time.Now,
	}
}

// Resolve returns the company scope for the request.
// requestedCompany is the raw x-company-id header value, empty when absent.
func (r *Resolver) Resolve(ctx context.Context, userCtx *auth.UserContext, requestedCompany string) (*auth.CompanyScope, error) {
	// Super admins bypass tenant scoping entirely, header included.
	if userCtx.IsSuperAdmin() {
		return &auth.CompanyScope{CompanyID: nil}, nil
	}

	if requestedCompany != "" {
		companyID, err := uuid.Parse(requestedCompany)
		if err != nil {
			return nil, ErrCompanyAccessDenied
		}
		if !userCtx.IsMemberOf(companyID) {
			r.logger.Warn("company header rejected",
				zap.String("user_id", userCtx.UserID.String()),
				zap.String("company_id", companyID.String()))
			return nil, ErrCompanyAccessDenied
		}
		// Header scoping is per request and never cached.
		return &auth.CompanyScope{CompanyID: &companyID}, nil
	}

	if entry, ok := r.cached(userCtx.UserID); ok {
		return &auth.CompanyScope{CompanyID: entry.companyID}, nil
	}

	user, err := r.users.GetByID(ctx, userCtx.UserID)
	if err != nil {
		return nil, err
	}

	companyID, err := resolveFromUser(user)
	if err != nil {
		return nil, err
	}

	roles := make([]domain.Role, 0, len(user.Roles))
	for _, raw := range user.Roles {
		if role, ok := domain.ParseRole(raw); ok {
			roles = append(roles, role)
		}
	}

	r.mu.Lock()
	r.cache[userCtx.UserID] = cacheEntry{
		companyID:  companyID,
		roles:      roles,
		resolvedAt: r.now(),
	}
	r.mu.Unlock()

	return &auth.CompanyScope{CompanyID: companyID}, nil
}

// resolveFromUser picks the company from the user record alone.
func resolveFromUser(user *domain.User) (*uuid.UUID, error) {
	if user.ActiveCompanyID != nil {
		id := *user.ActiveCompanyID
		return &id, nil
	}
	if user.CompanyID != nil {
		id := *user.CompanyID
		return &id, nil
	}

	memberships := user.MembershipIDs()
	switch len(memberships) {
	case 0:
		// No memberships at all: scope to the zero company so
		// tenant-owned queries match nothing.
		id := uuid.Nil
		return &id, nil
	case 1:
		id := memberships[0]
		return &id, nil
	default:
		return nil, ErrSelectionRequired
	}
}

// cached returns a fresh cache entry if one exists.
func (r *Resolver) cached(userID uuid.UUID) (cacheEntry, bool) {
	r.mu.RLock()
	entry, ok := r.cache[userID]
	r.mu.RUnlock()
	if !ok {
		return cacheEntry{}, false
	}
	if r.now().Sub(entry.resolvedAt) > r.ttl {
		r.Invalidate(userID)
		return cacheEntry{}, false
	}
	return entry, true
}

// Invalidate drops the cached resolution for a user. Called on logout
// and on company switch.
func (r *Resolver) Invalidate(userID uuid.UUID) {
	r.mu.Lock()
	delete(r.cache, userID)
	r.mu.Unlock()
}

// CachedCompanyID exposes the cached company for a user, primarily for
// diagnostics and tests.
func (r *Resolver) CachedCompanyID(userID uuid.UUID) (*uuid.UUID, bool) {
	entry, ok := r.cached(userID)
	if !ok {
		return nil, false
	}
	return entry.companyID, true
}
