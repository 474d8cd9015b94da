package domain

import (
	"time"

	"github.com/google/uuid"
)

// DTOs for API responses

type CompanyDTO struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	NumberPrefix string    `json:"numberPrefix"`
	OrgNumber    string    `json:"orgNumber,omitempty"`
	Email        string    `json:"email,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	Address      string    `json:"address,omitempty"`
	City         string    `json:"city,omitempty"`
	PostalCode   string    `json:"postalCode,omitempty"`
	Country      string    `json:"country"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    string    `json:"createdAt"` // ISO 8601
	UpdatedAt    string    `json:"updatedAt"` // ISO 8601
}

type UserDTO struct {
	ID              uuid.UUID  `json:"id"`
	Email           string     `json:"email"`
	FirstName       string     `json:"firstName,omitempty"`
	LastName        string     `json:"lastName,omitempty"`
	FullName        string     `json:"fullName"`
	Phone           string     `json:"phone,omitempty"`
	Roles           []string   `json:"roles"`
	CompanyID       *uuid.UUID `json:"companyId,omitempty"`
	Companies       []string   `json:"companies"`
	ActiveCompanyID *uuid.UUID `json:"activeCompanyId,omitempty"`
	IsActive        bool       `json:"isActive"`
	LastLoginAt     *string    `json:"lastLoginAt,omitempty"`
	CreatedAt       string     `json:"createdAt"`
	UpdatedAt       string     `json:"updatedAt"`
}

type TakeoffDTO struct {
	ID                 uuid.UUID                 `json:"id"`
	TakeoffNumber      string                    `json:"takeoffNumber"`
	CompanyID          uuid.UUID                 `json:"companyId"`
	CustomerName       string                    `json:"customerName"`
	CustomerPhone      string                    `json:"customerPhone,omitempty"`
	CustomerEmail      string                    `json:"customerEmail,omitempty"`
	Address            string                    `json:"address"`
	City               string                    `json:"city,omitempty"`
	PostalCode         string                    `json:"postalCode,omitempty"`
	Description        string                    `json:"description,omitempty"`
	Status             TakeoffStatus             `json:"status"`
	StatusName         string                    `json:"statusName"`
	StatusLabel        string                    `json:"statusLabel"`
	NextStatuses       []StatusOption            `json:"nextStatuses"`
	DoorCount          int                       `json:"doorCount"`
	MeasureCarpenterID *uuid.UUID                `json:"measureCarpenterId,omitempty"`
	TrimCarpenterID    *uuid.UUID                `json:"trimCarpenterId,omitempty"`
	ScheduledMeasureAt *string                   `json:"scheduledMeasureAt,omitempty"`
	MeasuredAt         *string                   `json:"measuredAt,omitempty"`
	ShippedAt          *string                   `json:"shippedAt,omitempty"`
	ClosedAt           *string                   `json:"closedAt,omitempty"`
	MeasurementNotes   string                    `json:"measurementNotes,omitempty"`
	Notes              string                    `json:"notes,omitempty"`
	CreatedByID        uuid.UUID                 `json:"createdById"`
	StatusHistory      []TakeoffStatusHistoryDTO `json:"statusHistory,omitempty"`
	Files              []FileDTO                 `json:"files,omitempty"`
	CreatedAt          string                    `json:"createdAt"`
	UpdatedAt          string                    `json:"updatedAt"`
}

type TakeoffStatusHistoryDTO struct {
	ID            uuid.UUID      `json:"id"`
	TakeoffID     uuid.UUID      `json:"takeoffId"`
	FromStatus    *TakeoffStatus `json:"fromStatus,omitempty"`
	ToStatus      TakeoffStatus  `json:"toStatus"`
	ChangedByID   *uuid.UUID     `json:"changedById,omitempty"`
	ChangedByName string         `json:"changedByName,omitempty"`
	Notes         string         `json:"notes,omitempty"`
	ChangedAt     string         `json:"changedAt"`
}

type FileDTO struct {
	ID          uuid.UUID  `json:"id"`
	Filename    string     `json:"filename"`
	ContentType string     `json:"contentType"`
	Size        int64      `json:"size"`
	Kind        FileKind   `json:"kind"`
	TakeoffID   *uuid.UUID `json:"takeoffId,omitempty"`
	InvoiceID   *uuid.UUID `json:"invoiceId,omitempty"`
	CreatedAt   string     `json:"createdAt"`
}

type InvoiceDTO struct {
	ID            uuid.UUID     `json:"id"`
	InvoiceNumber string        `json:"invoiceNumber"`
	TakeoffID     uuid.UUID     `json:"takeoffId"`
	CompanyID     uuid.UUID     `json:"companyId"`
	Status        InvoiceStatus `json:"status"`
	Amount        float64       `json:"amount"`
	Currency      string        `json:"currency"`
	IssuedAt      *string       `json:"issuedAt,omitempty"`
	DueDate       *string       `json:"dueDate,omitempty"`
	PaidAt        *string       `json:"paidAt,omitempty"`
	ExternalRef   string        `json:"externalRef,omitempty"`
	PDFFileID     *uuid.UUID    `json:"pdfFileId,omitempty"`
	Notes         string        `json:"notes,omitempty"`
	CreatedAt     string        `json:"createdAt"`
	UpdatedAt     string        `json:"updatedAt"`
}

type MaterialRequestDTO struct {
	ID            uuid.UUID             `json:"id"`
	TakeoffID     uuid.UUID             `json:"takeoffId"`
	CompanyID     uuid.UUID             `json:"companyId"`
	RequestedByID uuid.UUID             `json:"requestedById"`
	Description   string                `json:"description"`
	Quantity      int                   `json:"quantity"`
	Status        MaterialRequestStatus `json:"status"`
	DecidedByID   *uuid.UUID            `json:"decidedById,omitempty"`
	DecidedAt     *string               `json:"decidedAt,omitempty"`
	DecisionNotes string                `json:"decisionNotes,omitempty"`
	CreatedAt     string                `json:"createdAt"`
	UpdatedAt     string                `json:"updatedAt"`
}

type NotificationDTO struct {
	ID         uuid.UUID  `json:"id"`
	Type       string     `json:"type"`
	Title      string     `json:"title"`
	Message    string     `json:"message"`
	Read       bool       `json:"read"`
	ReadAt     *string    `json:"readAt,omitempty"`
	EntityID   *uuid.UUID `json:"entityId,omitempty"`
	EntityType string     `json:"entityType,omitempty"`
	CreatedAt  string     `json:"createdAt"`
}

// UnreadCountDTO carries the unread notification count
type UnreadCountDTO struct {
	Count int64 `json:"count"`
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}

// Request DTOs

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type LoginResponse struct {
	Token string  `json:"token"`
	User  UserDTO `json:"user"`
}

type SelectCompanyRequest struct {
	CompanyID uuid.UUID `json:"companyId" validate:"required"`
}

// SelectCompanyResponse carries the new credential scoped to the
// selected company together with the updated user.
type SelectCompanyResponse struct {
	Token string  `json:"token"`
	User  UserDTO `json:"user"`
}

type CreateTakeoffRequest struct {
	CustomerName       string     `json:"customerName" validate:"required,max=200"`
	CustomerPhone      string     `json:"customerPhone" validate:"omitempty,max=50"`
	CustomerEmail      string     `json:"customerEmail" validate:"omitempty,email"`
	Address            string     `json:"address" validate:"required,max=500"`
	City               string     `json:"city" validate:"omitempty,max=100"`
	PostalCode         string     `json:"postalCode" validate:"omitempty,max=20"`
	Description        string     `json:"description" validate:"omitempty,max=5000"`
	DoorCount          int        `json:"doorCount" validate:"gte=0"`
	MeasureCarpenterID *uuid.UUID `json:"measureCarpenterId"`
	ScheduledMeasureAt *time.Time `json:"scheduledMeasureAt"`
	Notes              string     `json:"notes" validate:"omitempty,max=5000"`
}

type UpdateTakeoffRequest struct {
	CustomerName       *string    `json:"customerName" validate:"omitempty,max=200"`
	CustomerPhone      *string    `json:"customerPhone" validate:"omitempty,max=50"`
	CustomerEmail      *string    `json:"customerEmail" validate:"omitempty,email"`
	Address            *string    `json:"address" validate:"omitempty,max=500"`
	City               *string    `json:"city" validate:"omitempty,max=100"`
	PostalCode         *string    `json:"postalCode" validate:"omitempty,max=20"`
	Description        *string    `json:"description" validate:"omitempty,max=5000"`
	DoorCount          *int       `json:"doorCount" validate:"omitempty,gte=0"`
	ScheduledMeasureAt *time.Time `json:"scheduledMeasureAt"`
	MeasurementNotes   *string    `json:"measurementNotes" validate:"omitempty,max=5000"`
	Notes              *string    `json:"notes" validate:"omitempty,max=5000"`
}

// ChangeStatusRequest moves a takeoff one step forward in the workflow.
// MeasurementConfirmed must be set when moving into under_review;
// SkipPhoto acknowledges shipping without a delivery photo.
type ChangeStatusRequest struct {
	Status               TakeoffStatus `json:"status" validate:"required"`
	Notes                string        `json:"notes" validate:"omitempty,max=2000"`
	MeasurementConfirmed bool          `json:"measurementConfirmed"`
	SkipPhoto            bool          `json:"skipPhoto"`
}

type AssignCarpenterRequest struct {
	CarpenterID uuid.UUID `json:"carpenterId" validate:"required"`
	// Trim assigns the carpenter for trimming instead of measuring.
	Trim bool `json:"trim"`
}

type CreateInvoiceRequest struct {
	TakeoffID uuid.UUID  `json:"takeoffId" validate:"required"`
	Amount    float64    `json:"amount" validate:"required,gt=0"`
	Currency  string     `json:"currency" validate:"omitempty,len=3"`
	DueDate   *time.Time `json:"dueDate"`
	Notes     string     `json:"notes" validate:"omitempty,max=5000"`
}

type CreateMaterialRequestRequest struct {
	TakeoffID   uuid.UUID `json:"takeoffId" validate:"required"`
	Description string    `json:"description" validate:"required,max=5000"`
	Quantity    int       `json:"quantity" validate:"required,gt=0"`
}

type DecideMaterialRequestRequest struct {
	Approve bool   `json:"approve"`
	Notes   string `json:"notes" validate:"omitempty,max=2000"`
}

type CreateCompanyRequest struct {
	Name         string `json:"name" validate:"required,max=200"`
	NumberPrefix string `json:"numberPrefix" validate:"required,max=10,alphanum"`
	OrgNumber    string `json:"orgNumber" validate:"omitempty,max=20"`
	Email        string `json:"email" validate:"omitempty,email"`
	Phone        string `json:"phone" validate:"omitempty,max=50"`
	Address      string `json:"address" validate:"omitempty,max=500"`
	City         string `json:"city" validate:"omitempty,max=100"`
	PostalCode   string `json:"postalCode" validate:"omitempty,max=20"`
	Country      string `json:"country" validate:"omitempty,max=100"`
}

type UpdateCompanyRequest struct {
	Name       *string `json:"name" validate:"omitempty,max=200"`
	OrgNumber  *string `json:"orgNumber" validate:"omitempty,max=20"`
	Email      *string `json:"email" validate:"omitempty,email"`
	Phone      *string `json:"phone" validate:"omitempty,max=50"`
	Address    *string `json:"address" validate:"omitempty,max=500"`
	City       *string `json:"city" validate:"omitempty,max=100"`
	PostalCode *string `json:"postalCode" validate:"omitempty,max=20"`
	Country    *string `json:"country" validate:"omitempty,max=100"`
	IsActive   *bool   `json:"isActive"`
	// DeactivateUsers also deactivates the company's users when
	// IsActive is being set to false.
	DeactivateUsers bool `json:"deactivateUsers"`
}

type CreateUserRequest struct {
	Email     string      `json:"email" validate:"required,email"`
	Password  string      `json:"password" validate:"required,min=8,max=72"`
	FirstName string      `json:"firstName" validate:"omitempty,max=100"`
	LastName  string      `json:"lastName" validate:"omitempty,max=100"`
	Phone     string      `json:"phone" validate:"omitempty,max=50"`
	Roles     []string    `json:"roles" validate:"required,min=1,dive,oneof=company manager carpenter delivery super_admin"`
	Companies []uuid.UUID `json:"companies"`
}

type UpdateUserRequest struct {
	FirstName *string     `json:"firstName" validate:"omitempty,max=100"`
	LastName  *string     `json:"lastName" validate:"omitempty,max=100"`
	Phone     *string     `json:"phone" validate:"omitempty,max=50"`
	Roles     []string    `json:"roles" validate:"omitempty,min=1,dive,oneof=company manager carpenter delivery super_admin"`
	Companies []uuid.UUID `json:"companies"`
	IsActive  *bool       `json:"isActive"`
}

// PaginatedResponse wraps list responses with pagination metadata
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"pageSize"`
	TotalPages int         `json:"totalPages"`
}
