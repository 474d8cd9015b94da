package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/doorcraft-as/takeoff-api/internal/accounting"
	"github.com/doorcraft-as/takeoff-api/internal/repository"
)

// PaymentSyncService reconciles sent invoices against the accounting
// system. Invoices whose external reference shows up as paid are marked
// paid locally.
type PaymentSyncService struct {
	invoiceRepo *repository.InvoiceRepository
	invoices    *InvoiceService
	client      *accounting.Client
	logger      *zap.Logger
}

func NewPaymentSyncService(
	invoiceRepo *repository.InvoiceRepository,
	invoices *InvoiceService,
	client *accounting.Client,
	logger *zap.Logger,
) *PaymentSyncService {
	return &PaymentSyncService{
		invoiceRepo: invoiceRepo,
		invoices:    invoices,
		client:      client,
		logger:      logger,
	}
}

// SyncPayments polls the accounting system for payments on all sent
// invoices that carry an external reference. Returns how many invoices
// were marked paid and how many updates failed.
func (s *PaymentSyncService) SyncPayments(ctx context.Context) (synced int, failed int, err error) {
	if !s.client.IsEnabled() {
		return 0, 0, nil
	}

	unpaid, err := s.invoiceRepo.ListUnpaidWithExternalRef(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to list unpaid invoices: %w", err)
	}
	if len(unpaid) == 0 {
		return 0, 0, nil
	}

	refs := make([]string, len(unpaid))
	for i := range unpaid {
		refs[i] = unpaid[i].ExternalRef
	}

	payments, err := s.client.FetchPayments(ctx, refs)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to fetch payments: %w", err)
	}

	paidByRef := make(map[string]accounting.Payment, len(payments))
	for _, p := range payments {
		paidByRef[p.ExternalRef] = p
	}

	for i := range unpaid {
		payment, ok := paidByRef[unpaid[i].ExternalRef]
		if !ok {
			continue
		}
		if err := s.invoices.MarkPaid(ctx, unpaid[i].ID, payment.PaidAt); err != nil {
			s.logger.Error("failed to mark invoice paid",
				zap.String("invoice_id", unpaid[i].ID.String()),
				zap.String("external_ref", unpaid[i].ExternalRef),
				zap.Error(err))
			failed++
			continue
		}
		synced++
	}

	s.logger.Info("payment sync completed",
		zap.Int("checked", len(unpaid)),
		zap.Int("synced", synced),
		zap.Int("failed", failed))

	return synced, failed, nil
}
