package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/doorcraft-as/takeoff-api/internal/domain"
)

type FileRepository struct {
	db *gorm.DB
}

func NewFileRepository(db *gorm.DB) *FileRepository {
	return &FileRepository{db: db}
}

func (r *FileRepository) Create(ctx context.Context, file *domain.File) error {
	return r.db.WithContext(ctx).Create(file).Error
}

func (r *FileRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.File, error) {
	var file domain.File
	query := r.db.WithContext(ctx).Where("id = ?", id)
	query = ApplyCompanyFilter(ctx, query)
	err := query.First(&file).Error
	if err != nil {
		return nil, err
	}
	return &file, nil
}

func (r *FileRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&domain.File{}, "id = ?", id).Error
}

// ListByTakeoff returns all files attached to a takeoff
func (r *FileRepository) ListByTakeoff(ctx context.Context, takeoffID uuid.UUID) ([]domain.File, error) {
	var files []domain.File
	err := r.db.WithContext(ctx).
		Where("takeoff_id = ?", takeoffID).
		Order("created_at DESC").
		Find(&files).Error
	return files, err
}

// ListByTakeoffAndKind returns files of one kind attached to a takeoff
func (r *FileRepository) ListByTakeoffAndKind(ctx context.Context, takeoffID uuid.UUID, kind domain.FileKind) ([]domain.File, error) {
	var files []domain.File
	err := r.db.WithContext(ctx).
		Where("takeoff_id = ? AND kind = ?", takeoffID, kind).
		Order("created_at DESC").
		Find(&files).Error
	return files, err
}

// HasDeliveryPhoto reports whether a takeoff has at least one delivery photo
func (r *FileRepository) HasDeliveryPhoto(ctx context.Context, takeoffID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.File{}).
		Where("takeoff_id = ? AND kind = ?", takeoffID, domain.FileKindDeliveryPhoto).
		Count(&count).Error
	return count > 0, err
}

// ListByInvoice returns all files attached to an invoice
func (r *FileRepository) ListByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]domain.File, error) {
	var files []domain.File
	err := r.db.WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		Order("created_at DESC").
		Find(&files).Error
	return files, err
}
