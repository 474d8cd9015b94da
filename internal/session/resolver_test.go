package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/doorcraft-as/takeoff-api/internal/auth"
	"github.com/doorcraft-as/takeoff-api/internal/domain"
)

type fakeUserLoader struct {
	users map[uuid.UUID]*domain.User
	calls int
}

func (f *fakeUserLoader) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	f.calls++
	user, ok := f.users[id]
	if !ok {
		return nil, errors.New("user not found")
	}
	return user, nil
}

func newTestUser(roles []string, companies []uuid.UUID) *domain.User {
	ids := make(domain.StringList, len(companies))
	for i, c := range companies {
		ids[i] = c.String()
	}
	return &domain.User{
		BaseModel: domain.BaseModel{ID: uuid.New()},
		Email:     "carpenter@example.com",
		Roles:     domain.StringList(roles),
		Companies: ids,
		IsActive:  true,
	}
}

func userContextFor(user *domain.User) *auth.UserContext {
	roles := make([]domain.Role, 0, len(user.Roles))
	for _, r := range user.Roles {
		role, _ := domain.ParseRole(r)
		roles = append(roles, role)
	}
	return &auth.UserContext{
		UserID:          user.ID,
		Email:           user.Email,
		Roles:           roles,
		Memberships:     user.MembershipIDs(),
		LegacyCompanyID: user.CompanyID,
		ActiveCompanyID: user.ActiveCompanyID,
	}
}

func TestResolver(t *testing.T) {
	ctx := context.Background()
	companyA := uuid.New()
	companyB := uuid.New()

	t.Run("super admin is never scoped, header or not", func(t *testing.T) {
		user := newTestUser([]string{"super_admin"}, nil)
		loader := &fakeUserLoader{users: map[uuid.UUID]*domain.User{user.ID: user}}
		resolver := NewResolver(loader, zap.NewNop())

		scope, err := resolver.Resolve(ctx, userContextFor(user), "")
		require.NoError(t, err)
		assert.Nil(t, scope.CompanyID)

		scope, err = resolver.Resolve(ctx, userContextFor(user), companyA.String())
		require.NoError(t, err)
		assert.Nil(t, scope.CompanyID, "header must not scope a super admin")
		assert.Zero(t, loader.calls, "super admin resolution never hits the database")
	})

	t.Run("header wins when user is a member", func(t *testing.T) {
		user := newTestUser([]string{"manager"}, []uuid.UUID{companyA, companyB})
		loader := &fakeUserLoader{users: map[uuid.UUID]*domain.User{user.ID: user}}
		resolver := NewResolver(loader, zap.NewNop())

		scope, err := resolver.Resolve(ctx, userContextFor(user), companyB.String())
		require.NoError(t, err)
		require.NotNil(t, scope.CompanyID)
		assert.Equal(t, companyB, *scope.CompanyID)
	})

	t.Run("header for a foreign company is rejected", func(t *testing.T) {
		user := newTestUser([]string{"manager"}, []uuid.UUID{companyA})
		loader := &fakeUserLoader{users: map[uuid.UUID]*domain.User{user.ID: user}}
		resolver := NewResolver(loader, zap.NewNop())

		_, err := resolver.Resolve(ctx, userContextFor(user), companyB.String())
		assert.ErrorIs(t, err, ErrCompanyAccessDenied)

		_, err = resolver.Resolve(ctx, userContextFor(user), "not-a-uuid")
		assert.ErrorIs(t, err, ErrCompanyAccessDenied)
	})

	t.Run("active company beats legacy company", func(t *testing.T) {
		user := newTestUser([]string{"carpenter"}, []uuid.UUID{companyA, companyB})
		user.CompanyID = &companyA
		user.ActiveCompanyID = &companyB
		loader := &fakeUserLoader{users: map[uuid.UUID]*domain.User{user.ID: user}}
		resolver := NewResolver(loader, zap.NewNop())

		scope, err := resolver.Resolve(ctx, userContextFor(user), "")
		require.NoError(t, err)
		require.NotNil(t, scope.CompanyID)
		assert.Equal(t, companyB, *scope.CompanyID)
	})

	t.Run("legacy company used when nothing selected", func(t *testing.T) {
		user := newTestUser([]string{"carpenter"}, []uuid.UUID{companyA, companyB})
		user.CompanyID = &companyA
		loader := &fakeUserLoader{users: map[uuid.UUID]*domain.User{user.ID: user}}
		resolver := NewResolver(loader, zap.NewNop())

		scope, err := resolver.Resolve(ctx, userContextFor(user), "")
		require.NoError(t, err)
		require.NotNil(t, scope.CompanyID)
		assert.Equal(t, companyA, *scope.CompanyID)
	})

	t.Run("multiple memberships without selection is ambiguous", func(t *testing.T) {
		user := newTestUser([]string{"manager"}, []uuid.UUID{companyA, companyB})
		loader := &fakeUserLoader{users: map[uuid.UUID]*domain.User{user.ID: user}}
		resolver := NewResolver(loader, zap.NewNop())

		_, err := resolver.Resolve(ctx, userContextFor(user), "")
		assert.ErrorIs(t, err, ErrSelectionRequired)
	})

	t.Run("single membership resolves without selection", func(t *testing.T) {
		user := newTestUser([]string{"carpenter"}, []uuid.UUID{companyA})
		loader := &fakeUserLoader{users: map[uuid.UUID]*domain.User{user.ID: user}}
		resolver := NewResolver(loader, zap.NewNop())

		scope, err := resolver.Resolve(ctx, userContextFor(user), "")
		require.NoError(t, err)
		require.NotNil(t, scope.CompanyID)
		assert.Equal(t, companyA, *scope.CompanyID)
	})

	t.Run("no memberships scopes to nothing", func(t *testing.T) {
		user := newTestUser([]string{"carpenter"}, nil)
		loader := &fakeUserLoader{users: map[uuid.UUID]*domain.User{user.ID: user}}
		resolver := NewResolver(loader, zap.NewNop())

		scope, err := resolver.Resolve(ctx, userContextFor(user), "")
		require.NoError(t, err)
		require.NotNil(t, scope.CompanyID)
		assert.Equal(t, uuid.Nil, *scope.CompanyID)
	})

	t.Run("resolution is cached until invalidated", func(t *testing.T) {
		user := newTestUser([]string{"carpenter"}, []uuid.UUID{companyA})
		loader := &fakeUserLoader{users: map[uuid.UUID]*domain.User{user.ID: user}}
		resolver := NewResolver(loader, zap.NewNop())

		_, err := resolver.Resolve(ctx, userContextFor(user), "")
		require.NoError(t, err)
		_, err = resolver.Resolve(ctx, userContextFor(user), "")
		require.NoError(t, err)
		assert.Equal(t, 1, loader.calls, "second resolution must come from cache")

		resolver.Invalidate(user.ID)
		_, err = resolver.Resolve(ctx, userContextFor(user), "")
		require.NoError(t, err)
		assert.Equal(t, 2, loader.calls)
	})

	t.Run("cache expires after the TTL", func(t *testing.T) {
		user := newTestUser([]string{"carpenter"}, []uuid.UUID{companyA})
		loader := &fakeUserLoader{users: map[uuid.UUID]*domain.User{user.ID: user}}
		resolver := NewResolver(loader, zap.NewNop())

		current := time.Now()
		resolver.now = func() time.Time { return current }

		_, err := resolver.Resolve(ctx, userContextFor(user), "")
		require.NoError(t, err)

		current = current.Add(DefaultCacheTTL + time.Minute)
		_, err = resolver.Resolve(ctx, userContextFor(user), "")
		require.NoError(t, err)
		assert.Equal(t, 2, loader.calls, "expired entry must be re-resolved")
	})
}

func TestSwitchNotifier(t *testing.T) {
	t.Run("delivers to listeners in subscription order", func(t *testing.T) {
		notifier := NewSwitchNotifier()
		var order []string

		notifier.Subscribe(func(event SwitchEvent) { order = append(order, "first") })
		notifier.Subscribe(func(event SwitchEvent) { order = append(order, "second") })
		notifier.Subscribe(func(event SwitchEvent) { order = append(order, "third") })

		notifier.Notify(SwitchEvent{UserID: uuid.New(), CompanyID: uuid.New()})

		assert.Equal(t, []string{"first", "second", "third"}, order)
	})

	t.Run("listeners receive the switched-to company", func(t *testing.T) {
		notifier := NewSwitchNotifier()
		userID := uuid.New()
		companyB := uuid.New()

		var got SwitchEvent
		notifier.Subscribe(func(event SwitchEvent) { got = event })

		notifier.Notify(SwitchEvent{UserID: userID, CompanyID: companyB})

		assert.Equal(t, userID, got.UserID)
		assert.Equal(t, companyB, got.CompanyID)
	})

	t.Run("notify with no listeners is a no-op", func(t *testing.T) {
		notifier := NewSwitchNotifier()
		assert.NotPanics(t, func() {
			notifier.Notify(SwitchEvent{UserID: uuid.New(), CompanyID: uuid.New()})
		})
	})
}
