package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/doorcraft-as/takeoff-api/internal/domain"
)

type StatusHistoryRepository struct {
	db *gorm.DB
}

func NewStatusHistoryRepository(db *gorm.DB) *StatusHistoryRepository {
	return &StatusHistoryRepository{db: db}
}

// Create records a new status transition
func (r *StatusHistoryRepository) Create(ctx context.Context, history *domain.TakeoffStatusHistory) error {
	return r.db.WithContext(ctx).Create(history).Error
}

// GetByTakeoffID returns all status history for a takeoff, oldest first
func (r *StatusHistoryRepository) GetByTakeoffID(ctx context.Context, takeoffID uuid.UUID) ([]domain.TakeoffStatusHistory, error) {
	var history []domain.TakeoffStatusHistory
	err := r.db.WithContext(ctx).
		Where("takeoff_id = ?", takeoffID).
		Order("changed_at ASC").
		Find(&history).Error
	return history, err
}

// GetLatestByTakeoffID returns the most recent status change for a takeoff
func (r *StatusHistoryRepository) GetLatestByTakeoffID(ctx context.Context, takeoffID uuid.UUID) (*domain.TakeoffStatusHistory, error) {
	var history domain.TakeoffStatusHistory
	err := r.db.WithContext(ctx).
		Where("takeoff_id = ?", takeoffID).
		Order("changed_at DESC").
		First(&history).Error
	if err != nil {
		return nil, err
	}
	return &history, nil
}

// GetTransitionsToStatus returns all transitions into a status within a date range
func (r *StatusHistoryRepository) GetTransitionsToStatus(ctx context.Context, status domain.TakeoffStatus, from, to time.Time) ([]domain.TakeoffStatusHistory, error) {
	var history []domain.TakeoffStatusHistory
	err := r.db.WithContext(ctx).
		Preload("Takeoff").
		Where("to_status = ?", status).
		Where("changed_at >= ? AND changed_at <= ?", from, to).
		Order("changed_at DESC").
		Find(&history).Error
	return history, err
}

// RecordTransition is a convenience method to create a status history record
func (r *StatusHistoryRepository) RecordTransition(
	ctx context.Context,
	takeoffID uuid.UUID,
	fromStatus *domain.TakeoffStatus,
	toStatus domain.TakeoffStatus,
	changedByID *uuid.UUID,
	changedByName string,
	notes string,
) error {
	history := &domain.TakeoffStatusHistory{
		TakeoffID:     takeoffID,
		FromStatus:    fromStatus,
		ToStatus:      toStatus,
		ChangedByID:   changedByID,
		ChangedByName: changedByName,
		Notes:         notes,
		ChangedAt:     time.Now(),
	}
	return r.Create(ctx, history)
}
