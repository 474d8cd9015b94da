package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/doorcraft-as/takeoff-api/internal/config"
	"github.com/doorcraft-as/takeoff-api/internal/domain"
	"github.com/doorcraft-as/takeoff-api/internal/pdf"
	"github.com/doorcraft-as/takeoff-api/internal/repository"
)

type invoiceFixture struct {
	svc     *InvoiceService
	db      *gorm.DB
	company *domain.Company
}

func newInvoiceFixture(t *testing.T) *invoiceFixture {
	t.Helper()

	db := newTestDB(t)
	invoiceRepo := repository.NewInvoiceRepository(db)
	takeoffRepo := repository.NewTakeoffRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	sequences := NewNumberSequenceService(
		repository.NewNumberSequenceRepository(db),
		repository.NewCompanyRepository(db),
		zap.NewNop(),
	)
	pdfClient := pdf.NewClient(&config.PDFConfig{Enabled: false}, zap.NewNop())

	company := &domain.Company{Name: "Doors & Trim AS", NumberPrefix: "DT"}
	require.NoError(t, db.Create(company).Error)

	return &invoiceFixture{
		svc:     NewInvoiceService(invoiceRepo, takeoffRepo, notificationRepo, sequences, pdfClient, nil, zap.NewNop()),
		db:      db,
		company: company,
	}
}

func (f *invoiceFixture) seedTakeoff(t *testing.T, status domain.TakeoffStatus) *domain.Takeoff {
	t.Helper()
	takeoff := &domain.Takeoff{
		TakeoffNumber: fmt.Sprintf("DT-2026-%d", time.Now().UnixNano()),
		CompanyID:     f.company.ID,
		CustomerName:  "Kari Nordmann",
		Address:       "Storgata 1",
		Status:        status,
		CreatedByID:   f.company.ID, // any uuid works as creator here
	}
	require.NoError(t, f.db.Create(takeoff).Error)
	return takeoff
}

func TestCreateInvoiceRequiresFinishedTrim(t *testing.T) {
	f := newInvoiceFixture(t)
	ctx := context.Background()

	t.Run("unfinished takeoff cannot be invoiced", func(t *testing.T) {
		takeoff := f.seedTakeoff(t, domain.TakeoffStatusUnderReview)

		_, err := f.svc.Create(ctx, &domain.CreateInvoiceRequest{TakeoffID: takeoff.ID, Amount: 12500})
		assert.ErrorIs(t, err, ErrTakeoffNotBillable)
	})

	t.Run("back trim completed takeoff gets a numbered draft", func(t *testing.T) {
		takeoff := f.seedTakeoff(t, domain.TakeoffStatusBackTrimCompleted)

		invoice, err := f.svc.Create(ctx, &domain.CreateInvoiceRequest{TakeoffID: takeoff.ID, Amount: 12500})
		require.NoError(t, err)
		assert.Equal(t, domain.InvoiceStatusDraft, invoice.Status)
		assert.Equal(t, "NOK", invoice.Currency)
		assert.Equal(t, fmt.Sprintf("DT-%d-001", time.Now().Year()), invoice.InvoiceNumber)
	})

	t.Run("closed takeoff can still be invoiced", func(t *testing.T) {
		takeoff := f.seedTakeoff(t, domain.TakeoffStatusClosed)

		invoice, err := f.svc.Create(ctx, &domain.CreateInvoiceRequest{TakeoffID: takeoff.ID, Amount: 900, Currency: "EUR"})
		require.NoError(t, err)
		assert.Equal(t, "EUR", invoice.Currency)
	})
}

func TestSendInvoice(t *testing.T) {
	f := newInvoiceFixture(t)
	ctx := context.Background()
	takeoff := f.seedTakeoff(t, domain.TakeoffStatusBackTrimCompleted)

	invoice, err := f.svc.Create(ctx, &domain.CreateInvoiceRequest{TakeoffID: takeoff.ID, Amount: 12500})
	require.NoError(t, err)

	sent, err := f.svc.Send(ctx, invoice.ID, "ACC-4711")
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceStatusSent, sent.Status)
	assert.Equal(t, "ACC-4711", sent.ExternalRef)
	assert.NotNil(t, sent.IssuedAt)

	_, err = f.svc.Send(ctx, invoice.ID, "ACC-4711")
	assert.ErrorIs(t, err, ErrInvoiceNotDraft, "an invoice leaves draft exactly once")
}

func TestMarkPaid(t *testing.T) {
	f := newInvoiceFixture(t)
	ctx := context.Background()
	takeoff := f.seedTakeoff(t, domain.TakeoffStatusBackTrimCompleted)

	invoice, err := f.svc.Create(ctx, &domain.CreateInvoiceRequest{TakeoffID: takeoff.ID, Amount: 12500})
	require.NoError(t, err)
	_, err = f.svc.Send(ctx, invoice.ID, "ACC-4711")
	require.NoError(t, err)

	paidAt := time.Now()
	require.NoError(t, f.svc.MarkPaid(ctx, invoice.ID, paidAt))

	stored, err := f.svc.GetByID(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceStatusPaid, stored.Status)
	assert.NotNil(t, stored.PaidAt)

	// A second payment report is a no-op.
	require.NoError(t, f.svc.MarkPaid(ctx, invoice.ID, paidAt.Add(time.Hour)))

	var notifications []domain.Notification
	require.NoError(t, f.db.Where("type = ?", domain.NotificationTypeInvoicePaid).Find(&notifications).Error)
	assert.Len(t, notifications, 1, "duplicate payment reports must not re-notify")
}
