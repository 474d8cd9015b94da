package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/doorcraft-as/takeoff-api/internal/config"
	"github.com/doorcraft-as/takeoff-api/internal/domain"
)

var (
	// ErrInvalidToken is returned when a token fails validation for any reason
	ErrInvalidToken = errors.New("invalid token")
)

// Claims is the JWT payload issued at login and on company selection.
// ActiveCompanyID is the company the credential is scoped to; it is
// empty for users who have not selected a company and for super admins.
type Claims struct {
	Email           string   `json:"email"`
	Name            string   `json:"name,omitempty"`
	Roles           []string `json:"roles"`
	Companies       []string `json:"companies,omitempty"`
	LegacyCompanyID string   `json:"legacyCompanyId,omitempty"`
	ActiveCompanyID string   `json:"activeCompanyId,omitempty"`
	jwt.RegisteredClaims
}

// TokenService issues and validates the API's own HS256 tokens.
type TokenService struct {
	secret   []byte
	issuer   string
	audience string
	expiry   time.Duration
}

// NewTokenService creates a token service from security configuration
func NewTokenService(cfg *config.SecurityConfig) *TokenService {
	return &TokenService{
		secret:   []byte(cfg.JWTSecret),
		issuer:   cfg.JWTIssuer,
		audience: cfg.JWTAudience,
		expiry:   time.Duration(cfg.JWTExpiryHours) * time.Hour,
	}
}

// IssueToken creates a signed token for the user. activeCompany scopes
// the credential to a company; pass nil when no company is selected.
func (s *TokenService) IssueToken(user *domain.User, activeCompany *uuid.UUID) (string, error) {
	now := time.Now()

	claims := Claims{
		Email:     user.Email,
		Name:      user.FullName(),
		Roles:     []string(user.Roles),
		Companies: []string(user.Companies),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
			ID:        uuid.NewString(),
		},
	}
	if user.CompanyID != nil {
		claims.LegacyCompanyID = user.CompanyID.String()
	}
	if activeCompany != nil {
		claims.ActiveCompanyID = activeCompany.String()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and verifies a token and builds the user context.
func (s *TokenService) ValidateToken(tokenString string) (*UserContext, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid subject", ErrInvalidToken)
	}

	roles := make([]domain.Role, 0, len(claims.Roles))
	for _, raw := range claims.Roles {
		role, ok := domain.ParseRole(raw)
		if !ok {
			continue
		}
		roles = append(roles, role)
	}

	memberships := make([]uuid.UUID, 0, len(claims.Companies))
	for _, raw := range claims.Companies {
		id, err := uuid.Parse(raw)
		if err != nil {
			continue
		}
		memberships = append(memberships, id)
	}

	userCtx := &UserContext{
		UserID:      userID,
		DisplayName: claims.Name,
		Email:       claims.Email,
		Roles:       roles,
		Memberships: memberships,
	}
	if claims.LegacyCompanyID != "" {
		if id, err := uuid.Parse(claims.LegacyCompanyID); err == nil {
			userCtx.LegacyCompanyID = &id
		}
	}
	if claims.ActiveCompanyID != "" {
		if id, err := uuid.Parse(claims.ActiveCompanyID); err == nil {
			userCtx.ActiveCompanyID = &id
		}
	}

	return userCtx, nil
}
