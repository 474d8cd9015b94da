package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/doorcraft-as/takeoff-api/internal/auth"
	"github.com/doorcraft-as/takeoff-api/internal/domain"
	"github.com/doorcraft-as/takeoff-api/internal/mapper"
	"github.com/doorcraft-as/takeoff-api/internal/repository"
	"github.com/doorcraft-as/takeoff-api/internal/session"
)

// AuthService handles login, logout and company selection. Switching
// company persists the choice, issues a fresh token scoped to the new
// company, drops the cached resolution and then tells subscribers, in
// the order they subscribed.
type AuthService struct {
	userRepo    *repository.UserRepository
	companyRepo *repository.CompanyRepository
	auditRepo   *repository.AuditLogRepository
	tokens      *auth.TokenService
	resolver    *session.Resolver
	notifier    *session.SwitchNotifier
	logger      *zap.Logger
}

func NewAuthService(
	userRepo *repository.UserRepository,
	companyRepo *repository.CompanyRepository,
	auditRepo *repository.AuditLogRepository,
	tokens *auth.TokenService,
	resolver *session.Resolver,
	notifier *session.SwitchNotifier,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		userRepo:    userRepo,
		companyRepo: companyRepo,
		auditRepo:   auditRepo,
		tokens:      tokens,
		resolver:    resolver,
		notifier:    notifier,
		logger:      logger,
	}
}

// Login verifies credentials and issues a token. The token keeps the
// user's previously selected company, if any.
func (s *AuthService) Login(ctx context.Context, req *domain.LoginRequest) (*domain.LoginResponse, error) {
	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, ErrUserInactive
	}

	token, err := s.tokens.IssueToken(user, user.ActiveCompanyID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	if err := s.userRepo.TouchLastLogin(ctx, user.ID); err != nil {
		s.logger.Warn("failed to record login time", zap.Error(err))
	}

	s.audit(ctx, user.ID, user.Email, domain.AuditActionLogin, nil)

	s.logger.Info("user logged in",
		zap.String("user_id", user.ID.String()),
		zap.String("email", user.Email))

	dto := mapper.ToUserDTO(user)
	return &domain.LoginResponse{Token: token, User: dto}, nil
}

// Logout drops the cached company resolution for the caller. The token
// itself stays valid until it expires.
func (s *AuthService) Logout(ctx context.Context) error {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return ErrUnauthorized
	}

	s.resolver.Invalidate(userCtx.UserID)
	s.audit(ctx, userCtx.UserID, userCtx.Email, domain.AuditActionLogout, nil)

	s.logger.Info("user logged out", zap.String("user_id", userCtx.UserID.String()))
	return nil
}

// SelectCompany switches the caller's active company. The selection is
// rejected when the user is not a member of the company or the company
// is deactivated. On success the choice is persisted, a token scoped to
// the new company is issued, the cached resolution is dropped and
// switch subscribers are notified in subscription order.
func (s *AuthService) SelectCompany(ctx context.Context, req *domain.SelectCompanyRequest) (*domain.SelectCompanyResponse, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}

	user, err := s.userRepo.GetByID(ctx, userCtx.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if !user.HasRole(domain.RoleSuperAdmin) && !user.IsMemberOf(req.CompanyID) {
		s.logger.Warn("company selection rejected",
			zap.String("user_id", user.ID.String()),
			zap.String("company_id", req.CompanyID.String()))
		return nil, ErrCompanyAccessDenied
	}

	company, err := s.companyRepo.GetByID(ctx, req.CompanyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCompanyNotFound
		}
		return nil, fmt.Errorf("failed to look up company: %w", err)
	}
	if !company.IsActive {
		return nil, ErrCompanyAccessDenied
	}

	if err := s.userRepo.SetActiveCompany(ctx, user.ID, &req.CompanyID); err != nil {
		return nil, fmt.Errorf("failed to persist company selection: %w", err)
	}
	user.ActiveCompanyID = &req.CompanyID

	token, err := s.tokens.IssueToken(user, &req.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	s.resolver.Invalidate(user.ID)
	s.notifier.Notify(session.SwitchEvent{UserID: user.ID, CompanyID: req.CompanyID})

	s.audit(ctx, user.ID, user.Email, domain.AuditActionSelectCompany, &req.CompanyID)

	s.logger.Info("active company selected",
		zap.String("user_id", user.ID.String()),
		zap.String("company_id", req.CompanyID.String()),
		zap.String("company_name", company.Name))

	dto := mapper.ToUserDTO(user)
	return &domain.SelectCompanyResponse{Token: token, User: dto}, nil
}

// MyCompanies lists the companies the caller can select. Super admins
// get every active company.
func (s *AuthService) MyCompanies(ctx context.Context) ([]domain.CompanyDTO, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}

	user, err := s.userRepo.GetByID(ctx, userCtx.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	var companies []domain.Company
	if user.HasRole(domain.RoleSuperAdmin) {
		companies, err = s.companyRepo.List(ctx)
	} else {
		companies, err = s.companyRepo.GetByIDs(ctx, user.MembershipIDs())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}

	dtos := make([]domain.CompanyDTO, 0, len(companies))
	for i := range companies {
		if !companies[i].IsActive {
			continue
		}
		dtos = append(dtos, mapper.ToCompanyDTO(&companies[i]))
	}
	return dtos, nil
}

// Profile returns the caller's own user record.
func (s *AuthService) Profile(ctx context.Context) (*domain.UserDTO, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}

	user, err := s.userRepo.GetByID(ctx, userCtx.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	dto := mapper.ToUserDTO(user)
	return &dto, nil
}

func (s *AuthService) audit(ctx context.Context, userID uuid.UUID, email string, action domain.AuditAction, companyID *uuid.UUID) {
	if s.auditRepo == nil {
		return
	}
	entry := &domain.AuditLog{
		UserID:      &userID,
		UserEmail:   email,
		Action:      action,
		EntityType:  "user",
		EntityID:    &userID,
		CompanyID:   companyID,
		PerformedAt: time.Now(),
	}
	if err := s.auditRepo.Create(ctx, entry); err != nil {
		s.logger.Warn("failed to write audit entry",
			zap.String("action", string(action)),
			zap.Error(err))
	}
}
