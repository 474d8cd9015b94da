package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/doorcraft-as/takeoff-api/internal/auth"
	"github.com/doorcraft-as/takeoff-api/internal/database"
	"github.com/doorcraft-as/takeoff-api/internal/domain"
	"github.com/doorcraft-as/takeoff-api/internal/repository"
)

// newTestDB opens an isolated in-memory database with the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	return db
}

type takeoffFixture struct {
	svc         *TakeoffService
	db          *gorm.DB
	takeoffRepo *repository.TakeoffRepository
	historyRepo *repository.StatusHistoryRepository
	userRepo    *repository.UserRepository
	fileRepo    *repository.FileRepository
	company     *domain.Company
}

func newTakeoffFixture(t *testing.T) *takeoffFixture {
	t.Helper()

	db := newTestDB(t)
	takeoffRepo := repository.NewTakeoffRepository(db)
	historyRepo := repository.NewStatusHistoryRepository(db)
	userRepo := repository.NewUserRepository(db)
	fileRepo := repository.NewFileRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	sequences := NewNumberSequenceService(
		repository.NewNumberSequenceRepository(db),
		repository.NewCompanyRepository(db),
		zap.NewNop(),
	)

	company := &domain.Company{Name: "Doors & Trim AS", NumberPrefix: "DT"}
	require.NoError(t, db.Create(company).Error)

	return &takeoffFixture{
		svc:         NewTakeoffService(takeoffRepo, historyRepo, userRepo, fileRepo, notificationRepo, sequences, zap.NewNop()),
		db:          db,
		takeoffRepo: takeoffRepo,
		historyRepo: historyRepo,
		userRepo:    userRepo,
		fileRepo:    fileRepo,
		company:     company,
	}
}

// seedTakeoff inserts a takeoff directly at the given status.
func (f *takeoffFixture) seedTakeoff(t *testing.T, status domain.TakeoffStatus) *domain.Takeoff {
	t.Helper()

	takeoff := &domain.Takeoff{
		TakeoffNumber: fmt.Sprintf("DT-2026-%s", uuid.NewString()[:8]),
		CompanyID:     f.company.ID,
		CustomerName:  "Kari Nordmann",
		Address:       "Storgata 1",
		Status:        status,
		CreatedByID:   uuid.New(),
	}
	require.NoError(t, f.db.Create(takeoff).Error)
	return takeoff
}

// seedUser inserts a user holding the given roles.
func (f *takeoffFixture) seedUser(t *testing.T, roles ...string) *domain.User {
	t.Helper()

	user := &domain.User{
		Email:        fmt.Sprintf("%s@example.com", uuid.NewString()[:8]),
		PasswordHash: "x",
		Roles:        domain.StringList(roles),
		Companies:    domain.StringList{f.company.ID.String()},
		IsActive:     true,
	}
	require.NoError(t, f.db.Create(user).Error)
	return user
}

// ctxWithRoles builds a request context for a caller with the given roles.
func ctxWithRoles(roles ...domain.Role) context.Context {
	return auth.WithUserContext(context.Background(), &auth.UserContext{
		UserID:      uuid.New(),
		DisplayName: "Test Caller",
		Email:       "caller@example.com",
		Roles:       roles,
	})
}

func (f *takeoffFixture) historyCount(t *testing.T, takeoffID uuid.UUID) int {
	t.Helper()
	history, err := f.historyRepo.GetByTakeoffID(context.Background(), takeoffID)
	require.NoError(t, err)
	return len(history)
}

func (f *takeoffFixture) reload(t *testing.T, id uuid.UUID) *domain.Takeoff {
	t.Helper()
	takeoff, err := f.takeoffRepo.GetByID(context.Background(), id)
	require.NoError(t, err)
	return takeoff
}

func TestChangeStatusOnlyAllowsTheImmediateSuccessor(t *testing.T) {
	f := newTakeoffFixture(t)
	ctx := ctxWithRoles(domain.RoleCompany)

	t.Run("skipping a step is rejected without writes", func(t *testing.T) {
		takeoff := f.seedTakeoff(t, domain.TakeoffStatusCreated)

		_, err := f.svc.ChangeStatus(ctx, takeoff.ID, &domain.ChangeStatusRequest{Status: domain.TakeoffStatusUnderReview})
		assert.ErrorIs(t, err, ErrInvalidTransition)
		assert.Equal(t, domain.TakeoffStatusCreated, f.reload(t, takeoff.ID).Status)
		assert.Zero(t, f.historyCount(t, takeoff.ID))
	})

	t.Run("going backwards is rejected", func(t *testing.T) {
		takeoff := f.seedTakeoff(t, domain.TakeoffStatusUnderReview)

		_, err := f.svc.ChangeStatus(ctx, takeoff.ID, &domain.ChangeStatusRequest{Status: domain.TakeoffStatusToMeasure})
		assert.ErrorIs(t, err, ErrInvalidTransition)
		assert.Equal(t, domain.TakeoffStatusUnderReview, f.reload(t, takeoff.ID).Status)
	})

	t.Run("closed is terminal", func(t *testing.T) {
		takeoff := f.seedTakeoff(t, domain.TakeoffStatusClosed)

		for _, target := range domain.AllStatuses() {
			_, err := f.svc.ChangeStatus(ctx, takeoff.ID, &domain.ChangeStatusRequest{Status: target})
			assert.ErrorIs(t, err, ErrInvalidTransition, "closed must not advance to %s", target)
		}
	})

	t.Run("staying on the current status is rejected", func(t *testing.T) {
		takeoff := f.seedTakeoff(t, domain.TakeoffStatusToMeasure)

		_, err := f.svc.ChangeStatus(ctx, takeoff.ID, &domain.ChangeStatusRequest{Status: domain.TakeoffStatusToMeasure})
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})
}

func TestChangeStatusRoleGates(t *testing.T) {
	f := newTakeoffFixture(t)

	t.Run("carpenter cannot advance past review", func(t *testing.T) {
		takeoff := f.seedTakeoff(t, domain.TakeoffStatusUnderReview)

		_, err := f.svc.ChangeStatus(ctxWithRoles(domain.RoleCarpenter), takeoff.ID, &domain.ChangeStatusRequest{Status: domain.TakeoffStatusReadyToShip})
		assert.ErrorIs(t, err, ErrTransitionDenied)
		assert.Equal(t, domain.TakeoffStatusUnderReview, f.reload(t, takeoff.ID).Status)
		assert.Zero(t, f.historyCount(t, takeoff.ID), "a denied change must leave no history")
	})

	t.Run("delivery may only move ready_to_ship to shipped", func(t *testing.T) {
		ctx := ctxWithRoles(domain.RoleDelivery)
		for _, status := range domain.AllStatuses() {
			if status == domain.TakeoffStatusReadyToShip {
				continue
			}
			next, ok := status.Successor()
			if !ok {
				continue
			}
			takeoff := f.seedTakeoff(t, status)
			_, err := f.svc.ChangeStatus(ctx, takeoff.ID, &domain.ChangeStatusRequest{Status: next})
			assert.ErrorIs(t, err, ErrTransitionDenied, "delivery must not advance from %s", status)
		}

		takeoff := f.seedTakeoff(t, domain.TakeoffStatusReadyToShip)
		result, err := f.svc.ChangeStatus(ctx, takeoff.ID, &domain.ChangeStatusRequest{Status: domain.TakeoffStatusShipped, SkipPhoto: true})
		require.NoError(t, err)
		assert.Equal(t, domain.TakeoffStatusShipped, result.Status)
	})

	t.Run("super admin may advance anything except closed", func(t *testing.T) {
		takeoff := f.seedTakeoff(t, domain.TakeoffStatusBackTrimCompleted)

		result, err := f.svc.ChangeStatus(ctxWithRoles(domain.RoleSuperAdmin), takeoff.ID, &domain.ChangeStatusRequest{Status: domain.TakeoffStatusClosed})
		require.NoError(t, err)
		assert.Equal(t, domain.TakeoffStatusClosed, result.Status)
		assert.NotNil(t, f.reload(t, takeoff.ID).ClosedAt)
	})
}

func TestChangeStatusMeasurementConfirmationGate(t *testing.T) {
	f := newTakeoffFixture(t)
	ctx := ctxWithRoles(domain.RoleCarpenter)

	takeoff := f.seedTakeoff(t, domain.TakeoffStatusToMeasure)

	_, err := f.svc.ChangeStatus(ctx, takeoff.ID, &domain.ChangeStatusRequest{Status: domain.TakeoffStatusUnderReview})
	assert.ErrorIs(t, err, ErrConfirmationRequired)
	assert.Equal(t, domain.TakeoffStatusToMeasure, f.reload(t, takeoff.ID).Status)

	result, err := f.svc.ChangeStatus(ctx, takeoff.ID, &domain.ChangeStatusRequest{
		Status:               domain.TakeoffStatusUnderReview,
		MeasurementConfirmed: true,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TakeoffStatusUnderReview, result.Status)

	reloaded := f.reload(t, takeoff.ID)
	assert.NotNil(t, reloaded.MeasuredAt, "reaching review stamps the measurement time")
	assert.Equal(t, 1, f.historyCount(t, takeoff.ID))
}

func TestChangeStatusDeliveryPhotoGate(t *testing.T) {
	f := newTakeoffFixture(t)
	ctx := ctxWithRoles(domain.RoleManager)

	t.Run("shipping without a photo is rejected", func(t *testing.T) {
		takeoff := f.seedTakeoff(t, domain.TakeoffStatusReadyToShip)

		_, err := f.svc.ChangeStatus(ctx, takeoff.ID, &domain.ChangeStatusRequest{Status: domain.TakeoffStatusShipped})
		assert.ErrorIs(t, err, ErrPhotoRequired)
		assert.Equal(t, domain.TakeoffStatusReadyToShip, f.reload(t, takeoff.ID).Status)
	})

	t.Run("an uploaded delivery photo satisfies the gate", func(t *testing.T) {
		takeoff := f.seedTakeoff(t, domain.TakeoffStatusReadyToShip)
		photo := &domain.File{
			Filename:    "door.jpg",
			ContentType: "image/jpeg",
			Size:        1024,
			StoragePath: fmt.Sprintf("takeoffs/%s/door.jpg", takeoff.ID),
			Kind:        domain.FileKindDeliveryPhoto,
			TakeoffID:   &takeoff.ID,
			CompanyID:   f.company.ID,
		}
		require.NoError(t, f.db.Create(photo).Error)

		result, err := f.svc.ChangeStatus(ctx, takeoff.ID, &domain.ChangeStatusRequest{Status: domain.TakeoffStatusShipped})
		require.NoError(t, err)
		assert.Equal(t, domain.TakeoffStatusShipped, result.Status)
		assert.NotNil(t, f.reload(t, takeoff.ID).ShippedAt)
	})

	t.Run("skipPhoto ships without a photo and annotates the history", func(t *testing.T) {
		takeoff := f.seedTakeoff(t, domain.TakeoffStatusReadyToShip)

		_, err := f.svc.ChangeStatus(ctx, takeoff.ID, &domain.ChangeStatusRequest{Status: domain.TakeoffStatusShipped, SkipPhoto: true})
		require.NoError(t, err)

		history, err := f.historyRepo.GetByTakeoffID(context.Background(), takeoff.ID)
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.Contains(t, history[0].Notes, "without delivery photo")
	})
}

func TestAssignCarpenter(t *testing.T) {
	f := newTakeoffFixture(t)
	ctx := ctxWithRoles(domain.RoleManager)

	t.Run("assigning a measure carpenter advances created to to_measure", func(t *testing.T) {
		takeoff := f.seedTakeoff(t, domain.TakeoffStatusCreated)
		carpenter := f.seedUser(t, "carpenter")

		result, err := f.svc.AssignCarpenter(ctx, takeoff.ID, &domain.AssignCarpenterRequest{CarpenterID: carpenter.ID})
		require.NoError(t, err)
		assert.Equal(t, domain.TakeoffStatusToMeasure, result.Status)

		history, err := f.historyRepo.GetByTakeoffID(context.Background(), takeoff.ID)
		require.NoError(t, err)
		require.Len(t, history, 1)
		require.NotNil(t, history[0].FromStatus)
		assert.Equal(t, domain.TakeoffStatusCreated, *history[0].FromStatus)
		assert.Equal(t, domain.TakeoffStatusToMeasure, history[0].ToStatus)
	})

	t.Run("assigning a trim carpenter never advances", func(t *testing.T) {
		takeoff := f.seedTakeoff(t, domain.TakeoffStatusCreated)
		carpenter := f.seedUser(t, "carpenter")

		result, err := f.svc.AssignCarpenter(ctx, takeoff.ID, &domain.AssignCarpenterRequest{CarpenterID: carpenter.ID, Trim: true})
		require.NoError(t, err)
		assert.Equal(t, domain.TakeoffStatusCreated, result.Status)
		require.NotNil(t, result.TrimCarpenterID)
		assert.Equal(t, carpenter.ID, *result.TrimCarpenterID)
	})

	t.Run("reassigning past created keeps the current status", func(t *testing.T) {
		takeoff := f.seedTakeoff(t, domain.TakeoffStatusUnderReview)
		carpenter := f.seedUser(t, "carpenter")

		result, err := f.svc.AssignCarpenter(ctx, takeoff.ID, &domain.AssignCarpenterRequest{CarpenterID: carpenter.ID})
		require.NoError(t, err)
		assert.Equal(t, domain.TakeoffStatusUnderReview, result.Status)
	})

	t.Run("assignee must hold the carpenter role", func(t *testing.T) {
		takeoff := f.seedTakeoff(t, domain.TakeoffStatusCreated)
		officeUser := f.seedUser(t, "manager")

		_, err := f.svc.AssignCarpenter(ctx, takeoff.ID, &domain.AssignCarpenterRequest{CarpenterID: officeUser.ID})
		assert.ErrorIs(t, err, ErrCarpenterRoleRequired)
		assert.Equal(t, domain.TakeoffStatusCreated, f.reload(t, takeoff.ID).Status)
	})

	t.Run("carpenters may not assign", func(t *testing.T) {
		takeoff := f.seedTakeoff(t, domain.TakeoffStatusCreated)
		carpenter := f.seedUser(t, "carpenter")

		_, err := f.svc.AssignCarpenter(ctxWithRoles(domain.RoleCarpenter), takeoff.ID, &domain.AssignCarpenterRequest{CarpenterID: carpenter.ID})
		assert.ErrorIs(t, err, ErrForbidden)
	})
}

func TestChangeStatusNotifiesAssignedCarpenters(t *testing.T) {
	f := newTakeoffFixture(t)
	carpenter := f.seedUser(t, "carpenter")

	takeoff := f.seedTakeoff(t, domain.TakeoffStatusToMeasure)
	takeoff.MeasureCarpenterID = &carpenter.ID
	require.NoError(t, f.db.Save(takeoff).Error)

	_, err := f.svc.ChangeStatus(ctxWithRoles(domain.RoleCarpenter), takeoff.ID, &domain.ChangeStatusRequest{
		Status:               domain.TakeoffStatusUnderReview,
		MeasurementConfirmed: true,
	})
	require.NoError(t, err)

	var notifications []domain.Notification
	require.NoError(t, f.db.Where("user_id = ?", carpenter.ID).Find(&notifications).Error)
	require.Len(t, notifications, 1)
	assert.Equal(t, string(domain.NotificationTypeStatusChanged), notifications[0].Type)
}
