package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/doorcraft-as/takeoff-api/internal/auth"
	"github.com/doorcraft-as/takeoff-api/internal/domain"
	"github.com/doorcraft-as/takeoff-api/internal/mapper"
	"github.com/doorcraft-as/takeoff-api/internal/repository"
	"github.com/doorcraft-as/takeoff-api/internal/storage"
)

// FileService handles uploads and downloads. Files live in blob storage;
// the database keeps the metadata and the link to a takeoff or invoice.
type FileService struct {
	fileRepo    *repository.FileRepository
	takeoffRepo *repository.TakeoffRepository
	invoiceRepo *repository.InvoiceRepository
	storage     storage.Storage
	logger      *zap.Logger
}

func NewFileService(
	fileRepo *repository.FileRepository,
	takeoffRepo *repository.TakeoffRepository,
	invoiceRepo *repository.InvoiceRepository,
	storage storage.Storage,
	logger *zap.Logger,
) *FileService {
	return &FileService{
		fileRepo:    fileRepo,
		takeoffRepo: takeoffRepo,
		invoiceRepo: invoiceRepo,
		storage:     storage,
		logger:      logger,
	}
}

// UploadToTakeoff uploads a file and attaches it to a takeoff. The file
// inherits the takeoff's company.
func (s *FileService) UploadToTakeoff(ctx context.Context, takeoffID uuid.UUID, kind domain.FileKind, filename, contentType string, data io.Reader) (*domain.FileDTO, error) {
	takeoff, err := s.takeoffRepo.GetByID(ctx, takeoffID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTakeoffNotFound
		}
		return nil, fmt.Errorf("failed to get takeoff: %w", err)
	}

	file := &domain.File{
		Kind:      kind,
		TakeoffID: &takeoff.ID,
		CompanyID: takeoff.CompanyID,
	}
	if userCtx, ok := auth.FromContext(ctx); ok {
		userID := userCtx.UserID
		file.UploadedBy = &userID
	}

	return s.uploadFile(ctx, file, filename, contentType, data)
}

// UploadDeliveryPhoto attaches a delivery photo to a takeoff. The photo
// is what allows shipping without an explicit skip.
func (s *FileService) UploadDeliveryPhoto(ctx context.Context, takeoffID uuid.UUID, filename, contentType string, data io.Reader) (*domain.FileDTO, error) {
	return s.UploadToTakeoff(ctx, takeoffID, domain.FileKindDeliveryPhoto, filename, contentType, data)
}

// AttachToInvoice uploads a file and attaches it to an invoice.
func (s *FileService) AttachToInvoice(ctx context.Context, invoiceID uuid.UUID, kind domain.FileKind, filename, contentType string, data io.Reader) (*domain.FileDTO, error) {
	invoice, err := s.invoiceRepo.GetByID(ctx, invoiceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}

	file := &domain.File{
		Kind:      kind,
		InvoiceID: &invoice.ID,
		CompanyID: invoice.CompanyID,
	}
	if userCtx, ok := auth.FromContext(ctx); ok {
		userID := userCtx.UserID
		file.UploadedBy = &userID
	}

	return s.uploadFile(ctx, file, filename, contentType, data)
}

// uploadFile handles the common upload logic
func (s *FileService) uploadFile(ctx context.Context, file *domain.File, filename, contentType string, data io.Reader) (*domain.FileDTO, error) {
	storagePath, size, err := s.storage.Upload(ctx, filename, contentType, data)
	if err != nil {
		return nil, fmt.Errorf("failed to upload file: %w", err)
	}

	file.Filename = filename
	file.ContentType = contentType
	file.Size = size
	file.StoragePath = storagePath

	if err := s.fileRepo.Create(ctx, file); err != nil {
		// Best effort cleanup so storage does not accumulate orphans.
		if delErr := s.storage.Delete(ctx, storagePath); delErr != nil {
			s.logger.Warn("failed to cleanup file from storage after DB error",
				zap.Error(delErr),
				zap.String("storagePath", storagePath),
			)
		}
		return nil, fmt.Errorf("failed to create file record: %w", err)
	}

	s.logger.Info("file uploaded",
		zap.String("file_id", file.ID.String()),
		zap.String("filename", filename),
		zap.String("kind", string(file.Kind)))

	dto := mapper.ToFileDTO(file)
	return &dto, nil
}

// ListByTakeoff returns all files attached to a takeoff
func (s *FileService) ListByTakeoff(ctx context.Context, takeoffID uuid.UUID) ([]domain.FileDTO, error) {
	if _, err := s.takeoffRepo.GetByID(ctx, takeoffID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTakeoffNotFound
		}
		return nil, fmt.Errorf("failed to get takeoff: %w", err)
	}

	files, err := s.fileRepo.ListByTakeoff(ctx, takeoffID)
	if err != nil {
		return nil, fmt.Errorf("failed to list takeoff files: %w", err)
	}

	dtos := make([]domain.FileDTO, len(files))
	for i := range files {
		dtos[i] = mapper.ToFileDTO(&files[i])
	}
	return dtos, nil
}

// GetByID retrieves a file by its ID
func (s *FileService) GetByID(ctx context.Context, id uuid.UUID) (*domain.FileDTO, error) {
	file, err := s.fileRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get file: %w", err)
	}

	dto := mapper.ToFileDTO(file)
	return &dto, nil
}

// Download retrieves a file's content for download
// Returns: reader, filename, content-type, error
func (s *FileService) Download(ctx context.Context, id uuid.UUID) (io.ReadCloser, string, string, error) {
	file, err := s.fileRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", "", ErrNotFound
		}
		return nil, "", "", fmt.Errorf("failed to get file: %w", err)
	}

	reader, err := s.storage.Download(ctx, file.StoragePath)
	if err != nil {
		return nil, "", "", fmt.Errorf("failed to download file: %w", err)
	}

	return reader, file.Filename, file.ContentType, nil
}

// Delete removes a file from both storage and database
func (s *FileService) Delete(ctx context.Context, id uuid.UUID) error {
	file, err := s.fileRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to get file: %w", err)
	}

	// Delete from storage (log warning if fails, continue)
	if err := s.storage.Delete(ctx, file.StoragePath); err != nil {
		s.logger.Warn("failed to delete file from storage",
			zap.Error(err),
			zap.String("storagePath", file.StoragePath),
			zap.String("fileID", id.String()),
		)
	}

	if err := s.fileRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete file record: %w", err)
	}

	return nil
}
