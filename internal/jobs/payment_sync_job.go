package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// PaymentSyncJobName is the name of the invoice payment sync job
const PaymentSyncJobName = "payment_sync"

// PaymentSyncService defines the interface for reconciling invoice
// payments against the accounting system. The interface lets the job
// run without importing the service package directly.
type PaymentSyncService interface {
	// SyncPayments marks sent invoices paid when the accounting system
	// reports a payment. Returns counts for synced and failed invoices.
	SyncPayments(ctx context.Context) (synced int, failed int, err error)
}

// PaymentSyncJob polls the accounting system for invoice payments.
type PaymentSyncJob struct {
	payments PaymentSyncService
	logger   *zap.Logger
	timeout  time.Duration
}

// NewPaymentSyncJob creates a new payment sync job.
// The timeout controls how long one sync run is allowed to take.
func NewPaymentSyncJob(payments PaymentSyncService, logger *zap.Logger, timeout time.Duration) *PaymentSyncJob {
	return &PaymentSyncJob{
		payments: payments,
		logger:   logger,
		timeout:  timeout,
	}
}

// Run executes the payment sync job.
// This is called by the scheduler according to the cron expression.
func (j *PaymentSyncJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	start := time.Now()
	j.logger.Info("starting payment sync job")

	synced, failed, err := j.payments.SyncPayments(ctx)
	if err != nil {
		j.logger.Error("payment sync failed",
			zap.Error(err),
			zap.Duration("duration", time.Since(start)))
		return
	}

	j.logger.Info("payment sync job completed",
		zap.Int("synced", synced),
		zap.Int("failed", failed),
		zap.Duration("duration", time.Since(start)))
}

// RegisterPaymentSyncJob registers the payment sync job with the scheduler.
// The cronExpr should be a valid cron expression (e.g., "0 15 * * * *"
// for 15 minutes past every hour). If runOnStartup is true a sync runs
// immediately in a background goroutine so it doesn't block API startup.
func RegisterPaymentSyncJob(scheduler *Scheduler, payments PaymentSyncService, logger *zap.Logger, cronExpr string, timeout time.Duration, runOnStartup bool) error {
	job := NewPaymentSyncJob(payments, logger, timeout)

	if runOnStartup {
		go job.Run()
	}

	return scheduler.AddJob(PaymentSyncJobName, cronExpr, job.Run)
}
