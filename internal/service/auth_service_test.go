package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/doorcraft-as/takeoff-api/internal/auth"
	"github.com/doorcraft-as/takeoff-api/internal/config"
	"github.com/doorcraft-as/takeoff-api/internal/domain"
	"github.com/doorcraft-as/takeoff-api/internal/repository"
	"github.com/doorcraft-as/takeoff-api/internal/session"
)

type authFixture struct {
	svc      *AuthService
	db       *gorm.DB
	tokens   *auth.TokenService
	resolver *session.Resolver
	notifier *session.SwitchNotifier
	userRepo *repository.UserRepository
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	db := newTestDB(t)
	userRepo := repository.NewUserRepository(db)
	companyRepo := repository.NewCompanyRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)
	tokens := auth.NewTokenService(&config.SecurityConfig{
		JWTSecret:      "test-secret-do-not-use",
		JWTIssuer:      "takeoff-api-test",
		JWTAudience:    "takeoff-api",
		JWTExpiryHours: 1,
	})
	resolver := session.NewResolver(userRepo, zap.NewNop())
	notifier := session.NewSwitchNotifier()

	return &authFixture{
		svc:      NewAuthService(userRepo, companyRepo, auditRepo, tokens, resolver, notifier, zap.NewNop()),
		db:       db,
		tokens:   tokens,
		resolver: resolver,
		notifier: notifier,
		userRepo: userRepo,
	}
}

func (f *authFixture) seedCompany(t *testing.T, name string, active bool) *domain.Company {
	t.Helper()
	company := &domain.Company{Name: name, NumberPrefix: "DT", IsActive: active}
	require.NoError(t, f.db.Create(company).Error)
	return company
}

func (f *authFixture) seedMember(t *testing.T, password string, roles []string, companies ...uuid.UUID) *domain.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	ids := make(domain.StringList, len(companies))
	for i, c := range companies {
		ids[i] = c.String()
	}
	user := &domain.User{
		Email:        fmt.Sprintf("%s@example.com", uuid.NewString()[:8]),
		PasswordHash: string(hash),
		FirstName:    "Ola",
		LastName:     "Hansen",
		Roles:        domain.StringList(roles),
		Companies:    ids,
		IsActive:     true,
	}
	require.NoError(t, f.db.Create(user).Error)
	return user
}

func ctxForUser(user *domain.User) context.Context {
	roles := make([]domain.Role, 0, len(user.Roles))
	for _, raw := range user.Roles {
		if role, ok := domain.ParseRole(raw); ok {
			roles = append(roles, role)
		}
	}
	return auth.WithUserContext(context.Background(), &auth.UserContext{
		UserID:      user.ID,
		DisplayName: user.FullName(),
		Email:       user.Email,
		Roles:       roles,
		Memberships: user.MembershipIDs(),
	})
}

func TestLogin(t *testing.T) {
	f := newAuthFixture(t)
	company := f.seedCompany(t, "Doors & Trim AS", true)
	user := f.seedMember(t, "hunter2-hunter2", []string{"carpenter"}, company.ID)
	ctx := context.Background()

	t.Run("valid credentials issue a token", func(t *testing.T) {
		resp, err := f.svc.Login(ctx, &domain.LoginRequest{Email: user.Email, Password: "hunter2-hunter2"})
		require.NoError(t, err)
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, user.Email, resp.User.Email)

		claims, err := f.tokens.ValidateToken(resp.Token)
		require.NoError(t, err)
		assert.Equal(t, user.ID, claims.UserID)
	})

	t.Run("wrong password is rejected", func(t *testing.T) {
		_, err := f.svc.Login(ctx, &domain.LoginRequest{Email: user.Email, Password: "wrong-password"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown email is rejected with the same error", func(t *testing.T) {
		_, err := f.svc.Login(ctx, &domain.LoginRequest{Email: "nobody@example.com", Password: "hunter2-hunter2"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("deactivated account is rejected", func(t *testing.T) {
		inactive := f.seedMember(t, "hunter2-hunter2", []string{"carpenter"}, company.ID)
		require.NoError(t, f.db.Model(inactive).Update("is_active", false).Error)

		_, err := f.svc.Login(ctx, &domain.LoginRequest{Email: inactive.Email, Password: "hunter2-hunter2"})
		assert.ErrorIs(t, err, ErrUserInactive)
	})
}

func TestSelectCompany(t *testing.T) {
	f := newAuthFixture(t)
	companyA := f.seedCompany(t, "Company A", true)
	companyB := f.seedCompany(t, "Company B", true)
	inactiveCompany := f.seedCompany(t, "Defunct AS", false)
	outsideCompany := f.seedCompany(t, "Somebody Else AS", true)

	t.Run("switch persists, reissues the token, clears the cache and notifies in order", func(t *testing.T) {
		user := f.seedMember(t, "hunter2-hunter2", []string{"manager"}, companyA.ID, companyB.ID)
		require.NoError(t, f.db.Model(user).Update("active_company_id", companyA.ID).Error)
		ctx := ctxForUser(user)

		// Warm the resolver cache with company A.
		scope, err := f.resolver.Resolve(ctx, auth.MustFromContext(ctx), "")
		require.NoError(t, err)
		require.NotNil(t, scope.CompanyID)
		require.Equal(t, companyA.ID, *scope.CompanyID)
		_, cached := f.resolver.CachedCompanyID(user.ID)
		require.True(t, cached)

		var order []string
		var received []session.SwitchEvent
		f.notifier.Subscribe(func(event session.SwitchEvent) {
			order = append(order, "first")
			received = append(received, event)
		})
		f.notifier.Subscribe(func(event session.SwitchEvent) {
			order = append(order, "second")
		})

		resp, err := f.svc.SelectCompany(ctx, &domain.SelectCompanyRequest{CompanyID: companyB.ID})
		require.NoError(t, err)
		assert.NotEmpty(t, resp.Token)

		// The new credential is scoped to company B.
		claims, err := f.tokens.ValidateToken(resp.Token)
		require.NoError(t, err)
		require.NotNil(t, claims.ActiveCompanyID)
		assert.Equal(t, companyB.ID, *claims.ActiveCompanyID)

		// The selection is persisted.
		stored, err := f.userRepo.GetByID(context.Background(), user.ID)
		require.NoError(t, err)
		require.NotNil(t, stored.ActiveCompanyID)
		assert.Equal(t, companyB.ID, *stored.ActiveCompanyID)

		// The stale cache entry for company A is gone.
		_, cached = f.resolver.CachedCompanyID(user.ID)
		assert.False(t, cached, "switch must drop the cached resolution")

		// Listeners ran synchronously in subscription order.
		assert.Equal(t, []string{"first", "second"}, order)
		require.Len(t, received, 1)
		assert.Equal(t, session.SwitchEvent{UserID: user.ID, CompanyID: companyB.ID}, received[0])

		// The next resolution lands on company B.
		scope, err = f.resolver.Resolve(ctx, auth.MustFromContext(ctx), "")
		require.NoError(t, err)
		require.NotNil(t, scope.CompanyID)
		assert.Equal(t, companyB.ID, *scope.CompanyID)
	})

	t.Run("non-member selection is rejected without side effects", func(t *testing.T) {
		user := f.seedMember(t, "hunter2-hunter2", []string{"manager"}, companyA.ID)
		ctx := ctxForUser(user)

		notified := false
		f.notifier.Subscribe(func(session.SwitchEvent) { notified = true })

		_, err := f.svc.SelectCompany(ctx, &domain.SelectCompanyRequest{CompanyID: outsideCompany.ID})
		assert.ErrorIs(t, err, ErrCompanyAccessDenied)

		stored, err := f.userRepo.GetByID(context.Background(), user.ID)
		require.NoError(t, err)
		assert.Nil(t, stored.ActiveCompanyID)
		assert.False(t, notified, "a rejected switch must not notify")
	})

	t.Run("deactivated company cannot be selected", func(t *testing.T) {
		user := f.seedMember(t, "hunter2-hunter2", []string{"manager"}, companyA.ID, inactiveCompany.ID)
		ctx := ctxForUser(user)

		_, err := f.svc.SelectCompany(ctx, &domain.SelectCompanyRequest{CompanyID: inactiveCompany.ID})
		assert.ErrorIs(t, err, ErrCompanyAccessDenied)
	})

	t.Run("unknown company is not found", func(t *testing.T) {
		user := f.seedMember(t, "hunter2-hunter2", []string{"super_admin"})
		ctx := ctxForUser(user)

		_, err := f.svc.SelectCompany(ctx, &domain.SelectCompanyRequest{CompanyID: uuid.New()})
		assert.ErrorIs(t, err, ErrCompanyNotFound)
	})

	t.Run("super admin may select any active company", func(t *testing.T) {
		user := f.seedMember(t, "hunter2-hunter2", []string{"super_admin"})
		ctx := ctxForUser(user)

		resp, err := f.svc.SelectCompany(ctx, &domain.SelectCompanyRequest{CompanyID: outsideCompany.ID})
		require.NoError(t, err)
		assert.NotEmpty(t, resp.Token)
	})
}

func TestMyCompanies(t *testing.T) {
	f := newAuthFixture(t)
	companyA := f.seedCompany(t, "Company A", true)
	companyB := f.seedCompany(t, "Company B", true)
	inactiveCompany := f.seedCompany(t, "Defunct AS", false)

	t.Run("members see their active companies only", func(t *testing.T) {
		user := f.seedMember(t, "hunter2-hunter2", []string{"carpenter"}, companyA.ID, inactiveCompany.ID)

		companies, err := f.svc.MyCompanies(ctxForUser(user))
		require.NoError(t, err)
		require.Len(t, companies, 1)
		assert.Equal(t, companyA.ID, companies[0].ID)
	})

	t.Run("super admin sees every active company", func(t *testing.T) {
		admin := f.seedMember(t, "hunter2-hunter2", []string{"super_admin"})

		companies, err := f.svc.MyCompanies(ctxForUser(admin))
		require.NoError(t, err)

		ids := make([]uuid.UUID, len(companies))
		for i, c := range companies {
			ids[i] = c.ID
		}
		assert.Contains(t, ids, companyA.ID)
		assert.Contains(t, ids, companyB.ID)
		assert.NotContains(t, ids, inactiveCompany.ID)
	})
}

func TestLogoutDropsCachedResolution(t *testing.T) {
	f := newAuthFixture(t)
	company := f.seedCompany(t, "Company A", true)
	user := f.seedMember(t, "hunter2-hunter2", []string{"carpenter"}, company.ID)
	ctx := ctxForUser(user)

	_, err := f.resolver.Resolve(ctx, auth.MustFromContext(ctx), "")
	require.NoError(t, err)
	_, cached := f.resolver.CachedCompanyID(user.ID)
	require.True(t, cached)

	require.NoError(t, f.svc.Logout(ctx))

	_, cached = f.resolver.CachedCompanyID(user.ID)
	assert.False(t, cached)
}
