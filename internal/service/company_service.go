package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/doorcraft-as/takeoff-api/internal/domain"
	"github.com/doorcraft-as/takeoff-api/internal/mapper"
	"github.com/doorcraft-as/takeoff-api/internal/repository"
)

// CompanyService manages companies. Creation and deactivation are super
// admin operations; deactivating a company can cascade to its users.
type CompanyService struct {
	companyRepo *repository.CompanyRepository
	userRepo    *repository.UserRepository
	logger      *zap.Logger
}

func NewCompanyService(
	companyRepo *repository.CompanyRepository,
	userRepo *repository.UserRepository,
	logger *zap.Logger,
) *CompanyService {
	return &CompanyService{
		companyRepo: companyRepo,
		userRepo:    userRepo,
		logger:      logger,
	}
}

func (s *CompanyService) Create(ctx context.Context, req *domain.CreateCompanyRequest) (*domain.CompanyDTO, error) {
	country := req.Country
	if country == "" {
		country = "Norway"
	}

	company := &domain.Company{
		Name:         req.Name,
		NumberPrefix: strings.ToUpper(req.NumberPrefix),
		OrgNumber:    req.OrgNumber,
		Email:        req.Email,
		Phone:        req.Phone,
		Address:      req.Address,
		City:         req.City,
		PostalCode:   req.PostalCode,
		Country:      country,
		IsActive:     true,
	}

	if err := s.companyRepo.Create(ctx, company); err != nil {
		return nil, fmt.Errorf("failed to create company: %w", err)
	}

	s.logger.Info("company created",
		zap.String("company_id", company.ID.String()),
		zap.String("name", company.Name),
		zap.String("prefix", company.NumberPrefix))

	dto := mapper.ToCompanyDTO(company)
	return &dto, nil
}

func (s *CompanyService) GetByID(ctx context.Context, id uuid.UUID) (*domain.CompanyDTO, error) {
	company, err := s.companyRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCompanyNotFound
		}
		return nil, fmt.Errorf("failed to get company: %w", err)
	}

	dto := mapper.ToCompanyDTO(company)
	return &dto, nil
}

// List returns active companies. includeInactive widens it to all
// companies, for super admin views.
func (s *CompanyService) List(ctx context.Context, includeInactive bool) ([]domain.CompanyDTO, error) {
	var companies []domain.Company
	var err error
	if includeInactive {
		companies, err = s.companyRepo.ListAll(ctx)
	} else {
		companies, err = s.companyRepo.List(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}

	dtos := make([]domain.CompanyDTO, len(companies))
	for i := range companies {
		dtos[i] = mapper.ToCompanyDTO(&companies[i])
	}
	return dtos, nil
}

// Update changes company fields. Setting IsActive to false with
// DeactivateUsers also deactivates the company's users, which locks
// them out on their next login.
func (s *CompanyService) Update(ctx context.Context, id uuid.UUID, req *domain.UpdateCompanyRequest) (*domain.CompanyDTO, error) {
	company, err := s.companyRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCompanyNotFound
		}
		return nil, fmt.Errorf("failed to get company: %w", err)
	}

	if req.Name != nil {
		company.Name = *req.Name
	}
	if req.OrgNumber != nil {
		company.OrgNumber = *req.OrgNumber
	}
	if req.Email != nil {
		company.Email = *req.Email
	}
	if req.Phone != nil {
		company.Phone = *req.Phone
	}
	if req.Address != nil {
		company.Address = *req.Address
	}
	if req.City != nil {
		company.City = *req.City
	}
	if req.PostalCode != nil {
		company.PostalCode = *req.PostalCode
	}
	if req.Country != nil {
		company.Country = *req.Country
	}

	deactivating := req.IsActive != nil && !*req.IsActive && company.IsActive
	if req.IsActive != nil {
		company.IsActive = *req.IsActive
	}

	if err := s.companyRepo.Update(ctx, company); err != nil {
		return nil, fmt.Errorf("failed to update company: %w", err)
	}

	if deactivating && req.DeactivateUsers {
		if err := s.userRepo.DeactivateByCompany(ctx, company.ID); err != nil {
			s.logger.Error("failed to deactivate company users",
				zap.String("company_id", company.ID.String()),
				zap.Error(err))
		} else {
			s.logger.Info("company users deactivated",
				zap.String("company_id", company.ID.String()))
		}
	}

	dto := mapper.ToCompanyDTO(company)
	return &dto, nil
}
