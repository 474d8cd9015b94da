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

// MaterialRequestService lets carpenters ask for materials on a takeoff
// and company or manager users approve or reject the requests.
type MaterialRequestService struct {
	requestRepo      *repository.MaterialRequestRepository
	takeoffRepo      *repository.TakeoffRepository
	notificationRepo *repository.NotificationRepository
	logger           *zap.Logger
}

func NewMaterialRequestService(
	requestRepo *repository.MaterialRequestRepository,
	takeoffRepo *repository.TakeoffRepository,
	notificationRepo *repository.NotificationRepository,
	logger *zap.Logger,
) *MaterialRequestService {
	return &MaterialRequestService{
		requestRepo:      requestRepo,
		takeoffRepo:      takeoffRepo,
		notificationRepo: notificationRepo,
		logger:           logger,
	}
}

// Create registers a pending material request on a takeoff.
func (s *MaterialRequestService) Create(ctx context.Context, req *domain.CreateMaterialRequestRequest) (*domain.MaterialRequestDTO, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}

	takeoff, err := s.takeoffRepo.GetByID(ctx, req.TakeoffID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTakeoffNotFound
		}
		return nil, fmt.Errorf("failed to get takeoff: %w", err)
	}

	request := &domain.MaterialRequest{
		TakeoffID:     takeoff.ID,
		CompanyID:     takeoff.CompanyID,
		RequestedByID: userCtx.UserID,
		Description:   req.Description,
		Quantity:      req.Quantity,
		Status:        domain.MaterialRequestPending,
	}

	if err := s.requestRepo.Create(ctx, request); err != nil {
		return nil, fmt.Errorf("failed to create material request: %w", err)
	}

	s.logger.Info("material request created",
		zap.String("request_id", request.ID.String()),
		zap.String("takeoff_id", takeoff.ID.String()),
		zap.String("requested_by", userCtx.UserID.String()))

	dto := mapper.ToMaterialRequestDTO(request)
	return &dto, nil
}

// Decide approves or rejects a pending request and tells the requester.
func (s *MaterialRequestService) Decide(ctx context.Context, id uuid.UUID, req *domain.DecideMaterialRequestRequest) (*domain.MaterialRequestDTO, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}
	if !userCtx.HasAnyRole(domain.RoleCompany, domain.RoleManager, domain.RoleSuperAdmin) {
		return nil, ErrForbidden
	}

	request, err := s.requestRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMaterialRequestNotFound
		}
		return nil, fmt.Errorf("failed to get material request: %w", err)
	}

	if request.Status != domain.MaterialRequestPending {
		return nil, ErrMaterialRequestDecided
	}

	now := time.Now()
	deciderID := userCtx.UserID
	if req.Approve {
		request.Status = domain.MaterialRequestApproved
	} else {
		request.Status = domain.MaterialRequestRejected
	}
	request.DecidedByID = &deciderID
	request.DecidedAt = &now
	request.DecisionNotes = req.Notes

	if err := s.requestRepo.Update(ctx, request); err != nil {
		return nil, fmt.Errorf("failed to update material request: %w", err)
	}

	s.logger.Info("material request decided",
		zap.String("request_id", request.ID.String()),
		zap.String("status", string(request.Status)),
		zap.String("decided_by", deciderID.String()))

	if s.notificationRepo != nil {
		verdict := "approved"
		if !req.Approve {
			verdict = "rejected"
		}
		notification := &domain.Notification{
			UserID:     request.RequestedByID,
			Type:       string(domain.NotificationTypeMaterialDecided),
			Title:      "Material request " + verdict,
			Message:    fmt.Sprintf("Your request for %q was %s", request.Description, verdict),
			EntityID:   &request.ID,
			EntityType: "material_request",
		}
		if err := s.notificationRepo.Create(ctx, notification); err != nil {
			s.logger.Warn("failed to create decision notification", zap.Error(err))
		}
	}

	dto := mapper.ToMaterialRequestDTO(request)
	return &dto, nil
}

// ListByTakeoff returns the material requests on a takeoff, newest first.
func (s *MaterialRequestService) ListByTakeoff(ctx context.Context, takeoffID uuid.UUID) ([]domain.MaterialRequestDTO, error) {
	if _, err := s.takeoffRepo.GetByID(ctx, takeoffID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTakeoffNotFound
		}
		return nil, fmt.Errorf("failed to get takeoff: %w", err)
	}

	requests, err := s.requestRepo.ListByTakeoff(ctx, takeoffID)
	if err != nil {
		return nil, fmt.Errorf("failed to list material requests: %w", err)
	}
	return toMaterialRequestDTOs(requests), nil
}

// ListPending returns the pending requests visible to the caller.
func (s *MaterialRequestService) ListPending(ctx context.Context) ([]domain.MaterialRequestDTO, error) {
	requests, err := s.requestRepo.ListPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending material requests: %w", err)
	}
	return toMaterialRequestDTOs(requests), nil
}

func toMaterialRequestDTOs(requests []domain.MaterialRequest) []domain.MaterialRequestDTO {
	dtos := make([]domain.MaterialRequestDTO, len(requests))
	for i := range requests {
		dtos[i] = mapper.ToMaterialRequestDTO(&requests[i])
	}
	return dtos
}
