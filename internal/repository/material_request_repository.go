package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/doorcraft-as/takeoff-api/internal/domain"
)

type MaterialRequestRepository struct {
	db *gorm.DB
}

func NewMaterialRequestRepository(db *gorm.DB) *MaterialRequestRepository {
	return &MaterialRequestRepository{db: db}
}

func (r *MaterialRequestRepository) Create(ctx context.Context, request *domain.MaterialRequest) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(request).Error
}

func (r *MaterialRequestRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.MaterialRequest, error) {
	var request domain.MaterialRequest
	query := r.db.WithContext(ctx).
		Preload("Takeoff").
		Where("id = ?", id)
	query = ApplyCompanyFilter(ctx, query)
	err := query.First(&request).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *MaterialRequestRepository) Update(ctx context.Context, request *domain.MaterialRequest) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(request).Error
}

// ListByTakeoff returns all material requests for a takeoff
func (r *MaterialRequestRepository) ListByTakeoff(ctx context.Context, takeoffID uuid.UUID) ([]domain.MaterialRequest, error) {
	var requests []domain.MaterialRequest
	query := r.db.WithContext(ctx).Where("takeoff_id = ?", takeoffID)
	query = ApplyCompanyFilter(ctx, query)
	err := query.Order("created_at DESC").Find(&requests).Error
	return requests, err
}

// ListPending returns pending material requests, newest first
func (r *MaterialRequestRepository) ListPending(ctx context.Context) ([]domain.MaterialRequest, error) {
	var requests []domain.MaterialRequest
	query := r.db.WithContext(ctx).
		Preload("Takeoff").
		Where("status = ?", domain.MaterialRequestPending)
	query = ApplyCompanyFilter(ctx, query)
	err := query.Order("created_at DESC").Find(&requests).Error
	return requests, err
}
