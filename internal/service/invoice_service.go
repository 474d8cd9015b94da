package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/doorcraft-as/takeoff-api/internal/domain"
	"github.com/doorcraft-as/takeoff-api/internal/mapper"
	"github.com/doorcraft-as/takeoff-api/internal/pdf"
	"github.com/doorcraft-as/takeoff-api/internal/repository"
)

// InvoiceService manages invoices through draft, sent and paid. Drafts
// are created from a takeoff; sending stamps the issue date and renders
// the PDF; payment is recorded by the accounting sync job.
type InvoiceService struct {
	invoiceRepo      *repository.InvoiceRepository
	takeoffRepo      *repository.TakeoffRepository
	notificationRepo *repository.NotificationRepository
	sequences        *NumberSequenceService
	pdfClient        *pdf.Client
	files            *FileService
	logger           *zap.Logger
}

func NewInvoiceService(
	invoiceRepo *repository.InvoiceRepository,
	takeoffRepo *repository.TakeoffRepository,
	notificationRepo *repository.NotificationRepository,
	sequences *NumberSequenceService,
	pdfClient *pdf.Client,
	files *FileService,
	logger *zap.Logger,
) *InvoiceService {
	return &InvoiceService{
		invoiceRepo:      invoiceRepo,
		takeoffRepo:      takeoffRepo,
		notificationRepo: notificationRepo,
		sequences:        sequences,
		pdfClient:        pdfClient,
		files:            files,
		logger:           logger,
	}
}

// Create registers a draft invoice for a takeoff. The invoice number is
// drawn from the same company/year sequence as takeoff numbers.
func (s *InvoiceService) Create(ctx context.Context, req *domain.CreateInvoiceRequest) (*domain.InvoiceDTO, error) {
	takeoff, err := s.takeoffRepo.GetByID(ctx, req.TakeoffID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTakeoffNotFound
		}
		return nil, fmt.Errorf("failed to get takeoff: %w", err)
	}

	// Invoicing starts once the trim work is done.
	if takeoff.Status != domain.TakeoffStatusBackTrimCompleted && takeoff.Status != domain.TakeoffStatusClosed {
		return nil, fmt.Errorf("%w: status is %s", ErrTakeoffNotBillable, takeoff.Status)
	}

	number, err := s.sequences.GenerateInvoiceNumber(ctx, takeoff.CompanyID)
	if err != nil {
		return nil, err
	}

	currency := req.Currency
	if currency == "" {
		currency = "NOK"
	}

	invoice := &domain.Invoice{
		InvoiceNumber: number,
		TakeoffID:     takeoff.ID,
		CompanyID:     takeoff.CompanyID,
		Status:        domain.InvoiceStatusDraft,
		Amount:        req.Amount,
		Currency:      currency,
		DueDate:       req.DueDate,
		Notes:         req.Notes,
	}

	if err := s.invoiceRepo.Create(ctx, invoice); err != nil {
		return nil, fmt.Errorf("failed to create invoice: %w", err)
	}

	s.logger.Info("invoice created",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.String("takeoff_id", takeoff.ID.String()),
		zap.Float64("amount", invoice.Amount))

	dto := mapper.ToInvoiceDTO(invoice)
	return &dto, nil
}

func (s *InvoiceService) GetByID(ctx context.Context, id uuid.UUID) (*domain.InvoiceDTO, error) {
	invoice, err := s.invoiceRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}

	dto := mapper.ToInvoiceDTO(invoice)
	return &dto, nil
}

func (s *InvoiceService) List(ctx context.Context, page, pageSize int, filters *repository.InvoiceFilters) (*domain.PaginatedResponse, error) {
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 200 {
		pageSize = 200
	}
	if page < 1 {
		page = 1
	}

	invoices, total, err := s.invoiceRepo.List(ctx, page, pageSize, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}

	dtos := make([]domain.InvoiceDTO, len(invoices))
	for i := range invoices {
		dtos[i] = mapper.ToInvoiceDTO(&invoices[i])
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

// Send moves a draft invoice to sent, stamping the issue date.
// externalRef links the invoice to the accounting system so the payment
// sync job can match it. The PDF is rendered and attached when the
// render service is enabled; a render failure does not block sending.
func (s *InvoiceService) Send(ctx context.Context, id uuid.UUID, externalRef string) (*domain.InvoiceDTO, error) {
	invoice, err := s.invoiceRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}

	if invoice.Status != domain.InvoiceStatusDraft {
		return nil, ErrInvoiceNotDraft
	}

	now := time.Now()
	invoice.Status = domain.InvoiceStatusSent
	invoice.IssuedAt = &now
	invoice.ExternalRef = externalRef

	if s.pdfClient != nil && s.pdfClient.Enabled() {
		data, err := s.pdfClient.RenderInvoice(ctx, invoice)
		if err != nil {
			s.logger.Warn("failed to render invoice PDF",
				zap.String("invoice_id", invoice.ID.String()),
				zap.Error(err))
		} else {
			filename := fmt.Sprintf("%s.pdf", invoice.InvoiceNumber)
			fileDTO, err := s.files.AttachToInvoice(ctx, invoice.ID, domain.FileKindInvoicePDF, filename, "application/pdf", bytes.NewReader(data))
			if err != nil {
				s.logger.Warn("failed to attach invoice PDF",
					zap.String("invoice_id", invoice.ID.String()),
					zap.Error(err))
			} else {
				invoice.PDFFileID = &fileDTO.ID
			}
		}
	}

	if err := s.invoiceRepo.Update(ctx, invoice); err != nil {
		return nil, fmt.Errorf("failed to send invoice: %w", err)
	}

	s.logger.Info("invoice sent",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.String("external_ref", externalRef))

	dto := mapper.ToInvoiceDTO(invoice)
	return &dto, nil
}

// MarkPaid records a payment for an invoice and tells the takeoff's
// creator. Called by the accounting sync job.
func (s *InvoiceService) MarkPaid(ctx context.Context, id uuid.UUID, paidAt time.Time) error {
	invoice, err := s.invoiceRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvoiceNotFound
		}
		return fmt.Errorf("failed to get invoice: %w", err)
	}

	if invoice.Status == domain.InvoiceStatusPaid {
		return nil
	}

	if err := s.invoiceRepo.MarkPaid(ctx, id, paidAt); err != nil {
		return fmt.Errorf("failed to mark invoice paid: %w", err)
	}

	s.logger.Info("invoice paid",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.Time("paid_at", paidAt))

	if s.notificationRepo != nil && invoice.Takeoff != nil {
		notification := &domain.Notification{
			UserID:     invoice.Takeoff.CreatedByID,
			Type:       string(domain.NotificationTypeInvoicePaid),
			Title:      "Invoice paid",
			Message:    fmt.Sprintf("Invoice %s (%s %.2f) has been paid", invoice.InvoiceNumber, invoice.Currency, invoice.Amount),
			EntityID:   &invoice.ID,
			EntityType: "invoice",
		}
		if err := s.notificationRepo.Create(ctx, notification); err != nil {
			s.logger.Warn("failed to create payment notification", zap.Error(err))
		}
	}

	return nil
}
