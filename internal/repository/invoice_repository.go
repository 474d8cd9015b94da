package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/doorcraft-as/takeoff-api/internal/domain"
)

// InvoiceFilters contains filter options for listing invoices
type InvoiceFilters struct {
	Status    *domain.InvoiceStatus
	TakeoffID *uuid.UUID
	CompanyID *uuid.UUID
}

type InvoiceRepository struct {
	db *gorm.DB
}

func NewInvoiceRepository(db *gorm.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

func (r *InvoiceRepository) Create(ctx context.Context, invoice *domain.Invoice) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(invoice).Error
}

func (r *InvoiceRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Invoice, error) {
	var invoice domain.Invoice
	query := r.db.WithContext(ctx).
		Preload("Takeoff").
		Where("id = ?", id)
	query = ApplyCompanyFilter(ctx, query)
	err := query.First(&invoice).Error
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *InvoiceRepository) Update(ctx context.Context, invoice *domain.Invoice) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(invoice).Error
}

func (r *InvoiceRepository) List(ctx context.Context, page, pageSize int, filters *InvoiceFilters) ([]domain.Invoice, int64, error) {
	var invoices []domain.Invoice
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.Invoice{})
	query = ApplyCompanyFilter(ctx, query)

	if filters != nil {
		if filters.Status != nil {
			query = query.Where("status = ?", *filters.Status)
		}
		if filters.TakeoffID != nil {
			query = query.Where("takeoff_id = ?", *filters.TakeoffID)
		}
		if filters.CompanyID != nil {
			query = query.Where("company_id = ?", *filters.CompanyID)
		}
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Offset(offset).Limit(pageSize).Order("created_at DESC").Find(&invoices).Error

	return invoices, total, err
}

// ListUnpaidWithExternalRef returns sent invoices that carry an
// accounting reference. The payment sync job polls these.
func (r *InvoiceRepository) ListUnpaidWithExternalRef(ctx context.Context) ([]domain.Invoice, error) {
	var invoices []domain.Invoice
	err := r.db.WithContext(ctx).
		Where("status = ? AND external_ref <> ''", domain.InvoiceStatusSent).
		Find(&invoices).Error
	return invoices, err
}

// MarkPaid marks an invoice paid at the given time.
func (r *InvoiceRepository) MarkPaid(ctx context.Context, id uuid.UUID, paidAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&domain.Invoice{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":  domain.InvoiceStatusPaid,
			"paid_at": paidAt,
		}).Error
}
