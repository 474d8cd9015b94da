package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/doorcraft-as/takeoff-api/internal/auth"
	"github.com/doorcraft-as/takeoff-api/internal/domain"
	"github.com/doorcraft-as/takeoff-api/internal/mapper"
	"github.com/doorcraft-as/takeoff-api/internal/repository"
)

// TakeoffService owns the takeoff workflow. Status changes move exactly
// one step forward, are gated on the caller's roles, and leave a history
// entry. Nothing is written when a change is rejected.
type TakeoffService struct {
	takeoffRepo      *repository.TakeoffRepository
	historyRepo      *repository.StatusHistoryRepository
	userRepo         *repository.UserRepository
	fileRepo         *repository.FileRepository
	notificationRepo *repository.NotificationRepository
	sequences        *NumberSequenceService
	logger           *zap.Logger
}

func NewTakeoffService(
	takeoffRepo *repository.TakeoffRepository,
	historyRepo *repository.StatusHistoryRepository,
	userRepo *repository.UserRepository,
	fileRepo *repository.FileRepository,
	notificationRepo *repository.NotificationRepository,
	sequences *NumberSequenceService,
	logger *zap.Logger,
) *TakeoffService {
	return &TakeoffService{
		takeoffRepo:      takeoffRepo,
		historyRepo:      historyRepo,
		userRepo:         userRepo,
		fileRepo:         fileRepo,
		notificationRepo: notificationRepo,
		sequences:        sequences,
		logger:           logger,
	}
}

// Create registers a new takeoff in status created. When a measure
// carpenter is assigned on creation the takeoff advances straight to
// to_measure, with both steps recorded in the history.
func (s *TakeoffService) Create(ctx context.Context, companyID uuid.UUID, req *domain.CreateTakeoffRequest) (*domain.TakeoffDTO, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}

	number, err := s.sequences.GenerateTakeoffNumber(ctx, companyID)
	if err != nil {
		return nil, err
	}

	if req.MeasureCarpenterID != nil {
		if err := s.requireCarpenter(ctx, *req.MeasureCarpenterID); err != nil {
			return nil, err
		}
	}

	takeoff := &domain.Takeoff{
		TakeoffNumber:      number,
		CompanyID:          companyID,
		CustomerName:       req.CustomerName,
		CustomerPhone:      req.CustomerPhone,
		CustomerEmail:      req.CustomerEmail,
		Address:            req.Address,
		City:               req.City,
		PostalCode:         req.PostalCode,
		Description:        req.Description,
		Status:             domain.TakeoffStatusCreated,
		DoorCount:          req.DoorCount,
		MeasureCarpenterID: req.MeasureCarpenterID,
		ScheduledMeasureAt: req.ScheduledMeasureAt,
		Notes:              req.Notes,
		CreatedByID:        userCtx.UserID,
	}

	if err := s.takeoffRepo.Create(ctx, takeoff); err != nil {
		return nil, fmt.Errorf("failed to create takeoff: %w", err)
	}

	changedByID := userCtx.UserID
	if err := s.historyRepo.RecordTransition(ctx, takeoff.ID, nil, domain.TakeoffStatusCreated, &changedByID, userCtx.DisplayName, "Takeoff created"); err != nil {
		s.logger.Warn("failed to record initial status history", zap.Error(err))
	}

	// Assigning a carpenter means measuring can start.
	if takeoff.MeasureCarpenterID != nil {
		if err := s.advance(ctx, takeoff, domain.TakeoffStatusToMeasure, userCtx, "Carpenter assigned on creation"); err != nil {
			return nil, err
		}
		s.notifyAssignment(ctx, takeoff, *takeoff.MeasureCarpenterID, false)
	}

	takeoff, err = s.takeoffRepo.GetByIDWithHistory(ctx, takeoff.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload takeoff: %w", err)
	}

	dto := mapper.ToTakeoffDTO(takeoff)
	return &dto, nil
}

func (s *TakeoffService) GetByID(ctx context.Context, id uuid.UUID) (*domain.TakeoffDTO, error) {
	takeoff, err := s.takeoffRepo.GetByIDWithHistory(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTakeoffNotFound
		}
		return nil, fmt.Errorf("failed to get takeoff: %w", err)
	}

	dto := mapper.ToTakeoffDTO(takeoff)
	return &dto, nil
}

func (s *TakeoffService) Update(ctx context.Context, id uuid.UUID, req *domain.UpdateTakeoffRequest) (*domain.TakeoffDTO, error) {
	takeoff, err := s.takeoffRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTakeoffNotFound
		}
		return nil, fmt.Errorf("failed to get takeoff: %w", err)
	}

	if req.CustomerName != nil {
		takeoff.CustomerName = *req.CustomerName
	}
	if req.CustomerPhone != nil {
		takeoff.CustomerPhone = *req.CustomerPhone
	}
	if req.CustomerEmail != nil {
		takeoff.CustomerEmail = *req.CustomerEmail
	}
	if req.Address != nil {
		takeoff.Address = *req.Address
	}
	if req.City != nil {
		takeoff.City = *req.City
	}
	if req.PostalCode != nil {
		takeoff.PostalCode = *req.PostalCode
	}
	if req.Description != nil {
		takeoff.Description = *req.Description
	}
	if req.DoorCount != nil {
		takeoff.DoorCount = *req.DoorCount
	}
	if req.ScheduledMeasureAt != nil {
		takeoff.ScheduledMeasureAt = req.ScheduledMeasureAt
	}
	if req.MeasurementNotes != nil {
		takeoff.MeasurementNotes = *req.MeasurementNotes
	}
	if req.Notes != nil {
		takeoff.Notes = *req.Notes
	}

	if err := s.takeoffRepo.Update(ctx, takeoff); err != nil {
		return nil, fmt.Errorf("failed to update takeoff: %w", err)
	}

	dto := mapper.ToTakeoffDTO(takeoff)
	return &dto, nil
}

func (s *TakeoffService) Delete(ctx context.Context, id uuid.UUID) error {
	takeoff, err := s.takeoffRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTakeoffNotFound
		}
		return fmt.Errorf("failed to get takeoff: %w", err)
	}

	if userCtx, ok := auth.FromContext(ctx); ok {
		if !userCtx.HasAnyRole(domain.RoleCompany, domain.RoleManager, domain.RoleSuperAdmin) {
			return ErrForbidden
		}
	}

	if err := s.takeoffRepo.Delete(ctx, takeoff.ID); err != nil {
		return fmt.Errorf("failed to delete takeoff: %w", err)
	}
	return nil
}

func (s *TakeoffService) List(ctx context.Context, page, pageSize int, filters *repository.TakeoffFilters, sortBy repository.TakeoffSortOption) (*domain.PaginatedResponse, error) {
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 200 {
		pageSize = 200
	}
	if page < 1 {
		page = 1
	}

	takeoffs, total, err := s.takeoffRepo.List(ctx, page, pageSize, filters, sortBy)
	if err != nil {
		return nil, fmt.Errorf("failed to list takeoffs: %w", err)
	}

	dtos := make([]domain.TakeoffDTO, len(takeoffs))
	for i, t := range takeoffs {
		dtos[i] = mapper.ToTakeoffDTO(&t)
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return &domain.PaginatedResponse{
		Data:       dtos,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

// ChangeStatus moves a takeoff to the requested status. The request is
// rejected, without touching the database, when the target is not the
// immediate successor, when none of the caller's roles may advance out
// of the current status, or when a side-effect gate is not met.
func (s *TakeoffService) ChangeStatus(ctx context.Context, id uuid.UUID, req *domain.ChangeStatusRequest) (*domain.TakeoffDTO, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}

	takeoff, err := s.takeoffRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTakeoffNotFound
		}
		return nil, fmt.Errorf("failed to get takeoff: %w", err)
	}

	if !domain.CanChangeStatus(takeoff.Status, req.Status) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, takeoff.Status, req.Status)
	}

	if !s.callerMayAdvance(userCtx, takeoff.Status) {
		return nil, fmt.Errorf("%w: %s", ErrTransitionDenied, takeoff.Status)
	}

	switch req.Status {
	case domain.TakeoffStatusUnderReview:
		if !req.MeasurementConfirmed {
			return nil, ErrConfirmationRequired
		}
	case domain.TakeoffStatusShipped:
		if !req.SkipPhoto {
			hasPhoto, err := s.fileRepo.HasDeliveryPhoto(ctx, takeoff.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to check delivery photo: %w", err)
			}
			if !hasPhoto {
				return nil, ErrPhotoRequired
			}
		}
	}

	notes := req.Notes
	if req.Status == domain.TakeoffStatusShipped && req.SkipPhoto {
		if notes != "" {
			notes += " "
		}
		notes += "(shipped without delivery photo)"
	}

	if err := s.advance(ctx, takeoff, req.Status, userCtx, notes); err != nil {
		return nil, err
	}

	s.notifyStatusChange(ctx, takeoff, userCtx)

	takeoff, err = s.takeoffRepo.GetByIDWithHistory(ctx, takeoff.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload takeoff: %w", err)
	}

	dto := mapper.ToTakeoffDTO(takeoff)
	return &dto, nil
}

// AssignCarpenter assigns a carpenter for measuring or trimming. The
// assignee must hold the carpenter role. Assigning a measure carpenter
// to a freshly created takeoff advances it to to_measure.
func (s *TakeoffService) AssignCarpenter(ctx context.Context, id uuid.UUID, req *domain.AssignCarpenterRequest) (*domain.TakeoffDTO, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}
	if !userCtx.HasAnyRole(domain.RoleCompany, domain.RoleManager, domain.RoleSuperAdmin) {
		return nil, ErrForbidden
	}

	takeoff, err := s.takeoffRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTakeoffNotFound
		}
		return nil, fmt.Errorf("failed to get takeoff: %w", err)
	}

	if err := s.requireCarpenter(ctx, req.CarpenterID); err != nil {
		return nil, err
	}

	carpenterID := req.CarpenterID
	if req.Trim {
		takeoff.TrimCarpenterID = &carpenterID
	} else {
		takeoff.MeasureCarpenterID = &carpenterID
	}

	if err := s.takeoffRepo.Update(ctx, takeoff); err != nil {
		return nil, fmt.Errorf("failed to assign carpenter: %w", err)
	}

	if !req.Trim && takeoff.Status == domain.TakeoffStatusCreated {
		if err := s.advance(ctx, takeoff, domain.TakeoffStatusToMeasure, userCtx, "Carpenter assigned"); err != nil {
			return nil, err
		}
	}

	s.notifyAssignment(ctx, takeoff, carpenterID, req.Trim)

	takeoff, err = s.takeoffRepo.GetByIDWithHistory(ctx, takeoff.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload takeoff: %w", err)
	}

	dto := mapper.ToTakeoffDTO(takeoff)
	return &dto, nil
}

// GetStatusHistory returns the status history for a takeoff, oldest first
func (s *TakeoffService) GetStatusHistory(ctx context.Context, takeoffID uuid.UUID) ([]domain.TakeoffStatusHistoryDTO, error) {
	if _, err := s.takeoffRepo.GetByID(ctx, takeoffID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTakeoffNotFound
		}
		return nil, fmt.Errorf("failed to get takeoff: %w", err)
	}

	history, err := s.historyRepo.GetByTakeoffID(ctx, takeoffID)
	if err != nil {
		return nil, fmt.Errorf("failed to get status history: %w", err)
	}

	dtos := make([]domain.TakeoffStatusHistoryDTO, len(history))
	for i, h := range history {
		dtos[i] = mapper.ToTakeoffStatusHistoryDTO(&h)
	}
	return dtos, nil
}

// advance persists a single forward step and its history entry, stamping
// the workflow timestamps as statuses are reached.
func (s *TakeoffService) advance(ctx context.Context, takeoff *domain.Takeoff, to domain.TakeoffStatus, userCtx *auth.UserContext, notes string) error {
	from := takeoff.Status
	now := time.Now()

	takeoff.Status = to
	switch to {
	case domain.TakeoffStatusUnderReview:
		takeoff.MeasuredAt = &now
	case domain.TakeoffStatusShipped:
		takeoff.ShippedAt = &now
	case domain.TakeoffStatusClosed:
		takeoff.ClosedAt = &now
	}

	if err := s.takeoffRepo.Update(ctx, takeoff); err != nil {
		return fmt.Errorf("failed to update takeoff status: %w", err)
	}

	changedByID := userCtx.UserID
	if err := s.historyRepo.RecordTransition(ctx, takeoff.ID, &from, to, &changedByID, userCtx.DisplayName, notes); err != nil {
		s.logger.Warn("failed to record status history",
			zap.String("takeoff_id", takeoff.ID.String()),
			zap.Error(err))
	}

	s.logger.Info("takeoff status changed",
		zap.String("takeoff_id", takeoff.ID.String()),
		zap.String("takeoff_number", takeoff.TakeoffNumber),
		zap.String("from", from.String()),
		zap.String("to", to.String()),
		zap.String("changed_by", userCtx.UserID.String()))

	return nil
}

// callerMayAdvance reports whether any of the caller's roles may move a
// takeoff out of the given status.
func (s *TakeoffService) callerMayAdvance(userCtx *auth.UserContext, from domain.TakeoffStatus) bool {
	if userCtx.IsSuperAdmin() {
		return !from.IsTerminal()
	}
	for _, role := range userCtx.Roles {
		if domain.RoleCanAdvance(from, role) {
			return true
		}
	}
	return false
}

// requireCarpenter verifies the user exists and holds the carpenter role
func (s *TakeoffService) requireCarpenter(ctx context.Context, userID uuid.UUID) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to get user: %w", err)
	}
	if !user.HasRole(domain.RoleCarpenter) {
		return ErrCarpenterRoleRequired
	}
	return nil
}

// notifyStatusChange tells the assigned carpenters about a status change
func (s *TakeoffService) notifyStatusChange(ctx context.Context, takeoff *domain.Takeoff, userCtx *auth.UserContext) {
	if s.notificationRepo == nil {
		return
	}

	recipients := make(map[uuid.UUID]bool)
	if takeoff.MeasureCarpenterID != nil {
		recipients[*takeoff.MeasureCarpenterID] = true
	}
	if takeoff.TrimCarpenterID != nil {
		recipients[*takeoff.TrimCarpenterID] = true
	}
	delete(recipients, userCtx.UserID)

	for userID := range recipients {
		notification := &domain.Notification{
			UserID:     userID,
			Type:       string(domain.NotificationTypeStatusChanged),
			Title:      "Takeoff status changed",
			Message:    fmt.Sprintf("Takeoff %s is now %s", takeoff.TakeoffNumber, takeoff.Status.Label()),
			EntityID:   &takeoff.ID,
			EntityType: "takeoff",
		}
		if err := s.notificationRepo.Create(ctx, notification); err != nil {
			s.logger.Warn("failed to create status change notification", zap.Error(err))
		}
	}
}

// notifyAssignment tells a carpenter they were assigned to a takeoff
func (s *TakeoffService) notifyAssignment(ctx context.Context, takeoff *domain.Takeoff, carpenterID uuid.UUID, trim bool) {
	if s.notificationRepo == nil {
		return
	}

	task := "measuring"
	if trim {
		task = "trimming"
	}
	notification := &domain.Notification{
		UserID:     carpenterID,
		Type:       string(domain.NotificationTypeAssigned),
		Title:      "Assigned to takeoff",
		Message:    fmt.Sprintf("You were assigned to takeoff %s for %s at %s", takeoff.TakeoffNumber, task, takeoff.Address),
		EntityID:   &takeoff.ID,
		EntityType: "takeoff",
	}
	if err := s.notificationRepo.Create(ctx, notification); err != nil {
		s.logger.Warn("failed to create assignment notification", zap.Error(err))
	}
}
