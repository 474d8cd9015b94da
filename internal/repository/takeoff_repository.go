package repository

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/doorcraft-as/takeoff-api/internal/domain"
)

// TakeoffFilters contains all filter options for listing takeoffs
type TakeoffFilters struct {
	Status        *domain.TakeoffStatus
	CompanyID     *uuid.UUID
	CarpenterID   *uuid.UUID
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
	SearchQuery   *string
}

// TakeoffSortOption represents available sort options
type TakeoffSortOption string

const (
	TakeoffSortByCreatedDesc TakeoffSortOption = "created_desc"
	TakeoffSortByCreatedAsc  TakeoffSortOption = "created_asc"
	TakeoffSortByStatusAsc   TakeoffSortOption = "status_asc"
	TakeoffSortByStatusDesc  TakeoffSortOption = "status_desc"
	TakeoffSortByNumberAsc   TakeoffSortOption = "number_asc"
	TakeoffSortByNumberDesc  TakeoffSortOption = "number_desc"
)

type TakeoffRepository struct {
	db *gorm.DB
}

func NewTakeoffRepository(db *gorm.DB) *TakeoffRepository {
	return &TakeoffRepository{db: db}
}

func (r *TakeoffRepository) Create(ctx context.Context, takeoff *domain.Takeoff) error {
	// Omit associations to avoid GORM trying to validate related records
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(takeoff).Error
}

func (r *TakeoffRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Takeoff, error) {
	var takeoff domain.Takeoff
	query := r.db.WithContext(ctx).
		Preload("Company").
		Where("id = ?", id)
	query = ApplyCompanyFilter(ctx, query)
	err := query.First(&takeoff).Error
	if err != nil {
		return nil, err
	}
	return &takeoff, nil
}

// GetByIDWithHistory loads a takeoff together with its ordered status
// history and files.
func (r *TakeoffRepository) GetByIDWithHistory(ctx context.Context, id uuid.UUID) (*domain.Takeoff, error) {
	var takeoff domain.Takeoff
	query := r.db.WithContext(ctx).
		Preload("Company").
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB {
			return db.Order("changed_at ASC")
		}).
		Preload("Files").
		Where("id = ?", id)
	query = ApplyCompanyFilter(ctx, query)
	err := query.First(&takeoff).Error
	if err != nil {
		return nil, err
	}
	return &takeoff, nil
}

func (r *TakeoffRepository) Update(ctx context.Context, takeoff *domain.Takeoff) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(takeoff).Error
}

func (r *TakeoffRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&domain.Takeoff{}, "id = ?", id).Error
}

func (r *TakeoffRepository) List(ctx context.Context, page, pageSize int, filters *TakeoffFilters, sortBy TakeoffSortOption) ([]domain.Takeoff, int64, error) {
	var takeoffs []domain.Takeoff
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.Takeoff{}).Preload("Company")

	// Apply multi-tenant company filter from context
	query = ApplyCompanyFilter(ctx, query)

	// Apply additional filters
	query = r.applyFilters(query, filters)

	// Count total matching records
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// Apply sorting
	query = r.applySorting(query, sortBy)

	// Apply pagination
	offset := (page - 1) * pageSize
	err := query.Offset(offset).Limit(pageSize).Find(&takeoffs).Error

	return takeoffs, total, err
}

// GetByStatus returns all takeoffs in a specific status for board views
func (r *TakeoffRepository) GetByStatus(ctx context.Context, status domain.TakeoffStatus) ([]domain.Takeoff, error) {
	var takeoffs []domain.Takeoff
	query := r.db.WithContext(ctx).
		Preload("Company").
		Where("status = ?", status)
	query = ApplyCompanyFilter(ctx, query)
	err := query.Order("updated_at DESC").Find(&takeoffs).Error
	return takeoffs, err
}

// GetByCarpenter returns takeoffs assigned to a carpenter for either
// measuring or trimming.
func (r *TakeoffRepository) GetByCarpenter(ctx context.Context, carpenterID uuid.UUID) ([]domain.Takeoff, error) {
	var takeoffs []domain.Takeoff
	query := r.db.WithContext(ctx).
		Preload("Company").
		Where("measure_carpenter_id = ? OR trim_carpenter_id = ?", carpenterID, carpenterID)
	query = ApplyCompanyFilter(ctx, query)
	err := query.Order("created_at DESC").Find(&takeoffs).Error
	return takeoffs, err
}

// CountByStatus returns the number of takeoffs per status
func (r *TakeoffRepository) CountByStatus(ctx context.Context) (map[domain.TakeoffStatus]int64, error) {
	type result struct {
		Status domain.TakeoffStatus
		Count  int64
	}
	var results []result

	query := r.db.WithContext(ctx).Model(&domain.Takeoff{}).
		Select("status, COUNT(*) as count").
		Group("status")
	query = ApplyCompanyFilter(ctx, query)
	if err := query.Scan(&results).Error; err != nil {
		return nil, err
	}

	counts := make(map[domain.TakeoffStatus]int64)
	for _, row := range results {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

func (r *TakeoffRepository) applyFilters(query *gorm.DB, filters *TakeoffFilters) *gorm.DB {
	if filters == nil {
		return query
	}

	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.CompanyID != nil {
		query = query.Where("company_id = ?", *filters.CompanyID)
	}
	if filters.CarpenterID != nil {
		query = query.Where("measure_carpenter_id = ? OR trim_carpenter_id = ?", *filters.CarpenterID, *filters.CarpenterID)
	}
	if filters.CreatedAfter != nil {
		query = query.Where("created_at >= ?", *filters.CreatedAfter)
	}
	if filters.CreatedBefore != nil {
		query = query.Where("created_at <= ?", *filters.CreatedBefore)
	}
	if filters.SearchQuery != nil && *filters.SearchQuery != "" {
		search := "%" + strings.ToLower(*filters.SearchQuery) + "%"
		query = query.Where(
			"LOWER(customer_name) LIKE ? OR LOWER(address) LIKE ? OR LOWER(takeoff_number) LIKE ?",
			search, search, search,
		)
	}

	return query
}

func (r *TakeoffRepository) applySorting(query *gorm.DB, sortBy TakeoffSortOption) *gorm.DB {
	switch sortBy {
	case TakeoffSortByCreatedAsc:
		return query.Order("created_at ASC")
	case TakeoffSortByStatusAsc:
		return query.Order("status ASC, created_at DESC")
	case TakeoffSortByStatusDesc:
		return query.Order("status DESC, created_at DESC")
	case TakeoffSortByNumberAsc:
		return query.Order("takeoff_number ASC")
	case TakeoffSortByNumberDesc:
		return query.Order("takeoff_number DESC")
	default:
		return query.Order("created_at DESC")
	}
}
