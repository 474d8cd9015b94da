package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/doorcraft-as/takeoff-api/internal/repository"
)

// NumberSequenceService handles generation of unique, formatted numbers
// for takeoffs and invoices. Both draw from the same sequence counter
// per company/year so numbers never collide.
//
// Format: {PREFIX}-{YEAR}-{SEQUENCE}
// Example: DC-2026-001, OS-2026-042
type NumberSequenceService struct {
	repo        *repository.NumberSequenceRepository
	companyRepo *repository.CompanyRepository
	logger      *zap.Logger
}

// NewNumberSequenceService creates a new NumberSequenceService
func NewNumberSequenceService(
	repo *repository.NumberSequenceRepository,
	companyRepo *repository.CompanyRepository,
	logger *zap.Logger,
) *NumberSequenceService {
	return &NumberSequenceService{
		repo:        repo,
		companyRepo: companyRepo,
		logger:      logger,
	}
}

// GenerateTakeoffNumber generates a unique takeoff number for a company.
// Called when a new takeoff is created.
func (s *NumberSequenceService) GenerateTakeoffNumber(ctx context.Context, companyID uuid.UUID) (string, error) {
	return s.generateNumber(ctx, companyID, "takeoff")
}

// GenerateInvoiceNumber generates a unique invoice number for a company.
// The sequence is SHARED with takeoffs per company/year.
func (s *NumberSequenceService) GenerateInvoiceNumber(ctx context.Context, companyID uuid.UUID) (string, error) {
	return s.generateNumber(ctx, companyID, "invoice")
}

// generateNumber is the internal method that generates a formatted number.
// entityType is used only for logging purposes.
func (s *NumberSequenceService) generateNumber(ctx context.Context, companyID uuid.UUID, entityType string) (string, error) {
	company, err := s.companyRepo.GetByID(ctx, companyID)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrCompanyNotFound, companyID)
	}

	year := time.Now().Year()

	// Get the next sequence number (atomic operation)
	nextSeq, err := s.repo.GetNextNumber(ctx, companyID, year)
	if err != nil {
		s.logger.Error("failed to get next sequence number",
			zap.String("companyID", companyID.String()),
			zap.Int("year", year),
			zap.String("entityType", entityType),
			zap.Error(err))
		return "", fmt.Errorf("failed to generate %s number: %w", entityType, err)
	}

	// Format: PREFIX-YYYY-NNN (zero-padded to 3 digits)
	number := fmt.Sprintf("%s-%d-%03d", company.NumberPrefix, year, nextSeq)

	s.logger.Info("generated number",
		zap.String("number", number),
		zap.String("companyID", companyID.String()),
		zap.Int("year", year),
		zap.Int("sequence", nextSeq),
		zap.String("entityType", entityType))

	return number, nil
}

// GetCurrentSequence returns the current sequence value for a company/year
// without incrementing it. Returns 0 if no sequence exists.
func (s *NumberSequenceService) GetCurrentSequence(ctx context.Context, companyID uuid.UUID, year int) (int, error) {
	return s.repo.GetCurrentSequence(ctx, companyID, year)
}

// InitializeSequence sets the sequence to a specific value.
// This is useful for data migrations to ensure the sequence
// accounts for existing numbered entities.
// The value should be the LAST USED sequence number.
func (s *NumberSequenceService) InitializeSequence(ctx context.Context, companyID uuid.UUID, year int, value int) error {
	return s.repo.SetSequence(ctx, companyID, year, value)
}
