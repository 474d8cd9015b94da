package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// BeforeCreate assigns an ID when the caller did not provide one.
// Done in the application rather than the database so the same models
// work on PostgreSQL and on the SQLite test database.
func (m *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// Role represents a user role. The set is closed: every switch over Role
// in this codebase enumerates all five values.
type Role string

const (
	RoleCompany    Role = "company"
	RoleManager    Role = "manager"
	RoleCarpenter  Role = "carpenter"
	RoleDelivery   Role = "delivery"
	RoleSuperAdmin Role = "super_admin"
)

// IsValid checks if the Role is a valid enum value
func (r Role) IsValid() bool {
	switch r {
	case RoleCompany, RoleManager, RoleCarpenter, RoleDelivery, RoleSuperAdmin:
		return true
	}
	return false
}

// ParseRole converts a raw string into a Role, rejecting unknown values.
func ParseRole(s string) (Role, bool) {
	r := Role(s)
	return r, r.IsValid()
}

// Company represents a tenant company (a door/carpentry business)
type Company struct {
	BaseModel
	Name         string `gorm:"type:varchar(200);not null;index" json:"name"`
	NumberPrefix string `gorm:"type:varchar(10);not null;column:number_prefix" json:"numberPrefix"`
	OrgNumber    string `gorm:"type:varchar(20);column:org_number" json:"orgNumber,omitempty"`
	Email        string `gorm:"type:varchar(255)" json:"email,omitempty"`
	Phone        string `gorm:"type:varchar(50)" json:"phone,omitempty"`
	Address      string `gorm:"type:varchar(500)" json:"address,omitempty"`
	City         string `gorm:"type:varchar(100)" json:"city,omitempty"`
	PostalCode   string `gorm:"type:varchar(20)" json:"postalCode,omitempty"`
	Country      string `gorm:"type:varchar(100);not null;default:'Norway'" json:"country"`
	IsActive     bool   `gorm:"not null;default:true;column:is_active" json:"isActive"`
}

// User represents a user in the system.
// Companies holds the IDs of every company the user is a member of.
// CompanyID is the legacy single-company field kept for accounts created
// before multi-company membership existed; ActiveCompanyID is the
// company the user last selected.
type User struct {
	BaseModel
	Email           string     `gorm:"type:varchar(255);not null;unique" json:"email"`
	PasswordHash    string     `gorm:"type:varchar(100);not null;column:password_hash" json:"-"`
	FirstName       string     `gorm:"type:varchar(100);column:first_name" json:"firstName,omitempty"`
	LastName        string     `gorm:"type:varchar(100);column:last_name" json:"lastName,omitempty"`
	Phone           string     `gorm:"type:varchar(50)" json:"phone,omitempty"`
	Roles           StringList `gorm:"type:text;not null" json:"roles"`
	CompanyID       *uuid.UUID `gorm:"type:uuid;column:company_id" json:"companyId,omitempty"`
	Companies       StringList `gorm:"type:text;column:companies" json:"companies"`
	ActiveCompanyID *uuid.UUID `gorm:"type:uuid;column:active_company_id" json:"activeCompanyId,omitempty"`
	IsActive        bool       `gorm:"not null;default:true;column:is_active" json:"isActive"`
	LastLoginAt     *time.Time `gorm:"column:last_login_at" json:"lastLoginAt,omitempty"`
}

// FullName returns the user's full name, or email if names are not set
func (u *User) FullName() string {
	if u.FirstName != "" && u.LastName != "" {
		return u.FirstName + " " + u.LastName
	}
	return u.Email
}

// HasRole reports whether the user holds the given role.
func (u *User) HasRole(role Role) bool {
	for _, r := range u.Roles {
		if Role(r) == role {
			return true
		}
	}
	return false
}

// IsMemberOf reports whether the user belongs to the given company,
// either through the membership list or the legacy single-company field.
func (u *User) IsMemberOf(companyID uuid.UUID) bool {
	for _, id := range u.Companies {
		if id == companyID.String() {
			return true
		}
	}
	return u.CompanyID != nil && *u.CompanyID == companyID
}

// MembershipIDs returns the user's company memberships as UUIDs,
// including the legacy single-company field when it is not already listed.
func (u *User) MembershipIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(u.Companies)+1)
	seen := make(map[uuid.UUID]bool)
	for _, raw := range u.Companies {
		id, err := uuid.Parse(raw)
		if err != nil || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	if u.CompanyID != nil && !seen[*u.CompanyID] {
		ids = append(ids, *u.CompanyID)
	}
	return ids
}

// Takeoff represents a door measurement and installation work order
type Takeoff struct {
	BaseModel
	TakeoffNumber      string                 `gorm:"type:varchar(50);unique;index;column:takeoff_number" json:"takeoffNumber"`
	CompanyID          uuid.UUID              `gorm:"type:uuid;not null;index;column:company_id" json:"companyId"`
	Company            *Company               `gorm:"foreignKey:CompanyID" json:"company,omitempty"`
	CustomerName       string                 `gorm:"type:varchar(200);not null;column:customer_name" json:"customerName"`
	CustomerPhone      string                 `gorm:"type:varchar(50);column:customer_phone" json:"customerPhone,omitempty"`
	CustomerEmail      string                 `gorm:"type:varchar(255);column:customer_email" json:"customerEmail,omitempty"`
	Address            string                 `gorm:"type:varchar(500);not null" json:"address"`
	City               string                 `gorm:"type:varchar(100)" json:"city,omitempty"`
	PostalCode         string                 `gorm:"type:varchar(20)" json:"postalCode,omitempty"`
	Description        string                 `gorm:"type:text" json:"description,omitempty"`
	Status             TakeoffStatus          `gorm:"type:int;not null;default:1;index" json:"status"`
	DoorCount          int                    `gorm:"not null;default:0;column:door_count" json:"doorCount"`
	MeasureCarpenterID *uuid.UUID             `gorm:"type:uuid;index;column:measure_carpenter_id" json:"measureCarpenterId,omitempty"`
	MeasureCarpenter   *User                  `gorm:"foreignKey:MeasureCarpenterID" json:"measureCarpenter,omitempty"`
	TrimCarpenterID    *uuid.UUID             `gorm:"type:uuid;index;column:trim_carpenter_id" json:"trimCarpenterId,omitempty"`
	TrimCarpenter      *User                  `gorm:"foreignKey:TrimCarpenterID" json:"trimCarpenter,omitempty"`
	ScheduledMeasureAt *time.Time             `gorm:"column:scheduled_measure_at" json:"scheduledMeasureAt,omitempty"`
	MeasuredAt         *time.Time             `gorm:"column:measured_at" json:"measuredAt,omitempty"`
	ShippedAt          *time.Time             `gorm:"column:shipped_at" json:"shippedAt,omitempty"`
	ClosedAt           *time.Time             `gorm:"column:closed_at" json:"closedAt,omitempty"`
	MeasurementNotes   string                 `gorm:"type:text;column:measurement_notes" json:"measurementNotes,omitempty"`
	Notes              string                 `gorm:"type:text" json:"notes,omitempty"`
	CreatedByID        uuid.UUID              `gorm:"type:uuid;not null;column:created_by_id" json:"createdById"`
	StatusHistory      []TakeoffStatusHistory `gorm:"foreignKey:TakeoffID;constraint:OnDelete:CASCADE" json:"statusHistory,omitempty"`
	Files              []File                 `gorm:"foreignKey:TakeoffID" json:"files,omitempty"`
}

// TakeoffStatusHistory tracks status changes for audit purposes
type TakeoffStatusHistory struct {
	ID            uuid.UUID      `gorm:"type:uuid;primary_key" json:"id"`
	TakeoffID     uuid.UUID      `gorm:"type:uuid;not null;index;column:takeoff_id" json:"takeoffId"`
	Takeoff       *Takeoff       `gorm:"foreignKey:TakeoffID" json:"-"`
	FromStatus    *TakeoffStatus `gorm:"type:int;column:from_status" json:"fromStatus,omitempty"`
	ToStatus      TakeoffStatus  `gorm:"type:int;not null;column:to_status" json:"toStatus"`
	ChangedByID   *uuid.UUID     `gorm:"type:uuid;column:changed_by_id" json:"changedById,omitempty"`
	ChangedByName string         `gorm:"type:varchar(200);column:changed_by_name" json:"changedByName,omitempty"`
	Notes         string         `gorm:"type:text" json:"notes,omitempty"`
	ChangedAt     time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP;column:changed_at" json:"changedAt"`
}

// TableName overrides the default table name to match the migration
func (TakeoffStatusHistory) TableName() string {
	return "takeoff_status_history"
}

// BeforeCreate assigns an ID when the caller did not provide one.
func (h *TakeoffStatusHistory) BeforeCreate(tx *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}

// FileKind classifies what an uploaded file is used for
type FileKind string

const (
	FileKindDeliveryPhoto FileKind = "delivery_photo"
	FileKindInvoicePDF    FileKind = "invoice_pdf"
	FileKindAttachment    FileKind = "attachment"
)

// File represents an uploaded file
type File struct {
	BaseModel
	Filename    string     `gorm:"type:varchar(255);not null" json:"filename"`
	ContentType string     `gorm:"type:varchar(100);not null;column:content_type" json:"contentType"`
	Size        int64      `gorm:"not null" json:"size"`
	StoragePath string     `gorm:"type:varchar(500);not null;unique;column:storage_path" json:"-"`
	Kind        FileKind   `gorm:"type:varchar(50);not null;default:'attachment'" json:"kind"`
	TakeoffID   *uuid.UUID `gorm:"type:uuid;index;column:takeoff_id" json:"takeoffId,omitempty"`
	InvoiceID   *uuid.UUID `gorm:"type:uuid;index;column:invoice_id" json:"invoiceId,omitempty"`
	CompanyID   uuid.UUID  `gorm:"type:uuid;not null;index;column:company_id" json:"companyId"`
	UploadedBy  *uuid.UUID `gorm:"type:uuid;column:uploaded_by" json:"uploadedBy,omitempty"`
}

// InvoiceStatus represents the billing state of an invoice
type InvoiceStatus string

const (
	InvoiceStatusDraft InvoiceStatus = "draft"
	InvoiceStatusSent  InvoiceStatus = "sent"
	InvoiceStatusPaid  InvoiceStatus = "paid"
)

// Invoice represents a customer invoice generated from a finished takeoff
type Invoice struct {
	BaseModel
	InvoiceNumber string        `gorm:"type:varchar(50);unique;index;column:invoice_number" json:"invoiceNumber"`
	TakeoffID     uuid.UUID     `gorm:"type:uuid;not null;index;column:takeoff_id" json:"takeoffId"`
	Takeoff       *Takeoff      `gorm:"foreignKey:TakeoffID" json:"takeoff,omitempty"`
	CompanyID     uuid.UUID     `gorm:"type:uuid;not null;index;column:company_id" json:"companyId"`
	Status        InvoiceStatus `gorm:"type:varchar(50);not null;default:'draft';index" json:"status"`
	Amount        float64       `gorm:"type:decimal(15,2);not null;default:0" json:"amount"`
	Currency      string        `gorm:"type:varchar(3);not null;default:'NOK'" json:"currency"`
	IssuedAt      *time.Time    `gorm:"column:issued_at" json:"issuedAt,omitempty"`
	DueDate       *time.Time    `gorm:"type:date;column:due_date" json:"dueDate,omitempty"`
	PaidAt        *time.Time    `gorm:"column:paid_at" json:"paidAt,omitempty"`
	ExternalRef   string        `gorm:"type:varchar(100);column:external_ref" json:"externalRef,omitempty"`
	PDFFileID     *uuid.UUID    `gorm:"type:uuid;column:pdf_file_id" json:"pdfFileId,omitempty"`
	Notes         string        `gorm:"type:text" json:"notes,omitempty"`
}

// MaterialRequestStatus represents the approval state of a material request
type MaterialRequestStatus string

const (
	MaterialRequestPending  MaterialRequestStatus = "pending"
	MaterialRequestApproved MaterialRequestStatus = "approved"
	MaterialRequestRejected MaterialRequestStatus = "rejected"
)

// MaterialRequest represents a carpenter's request for materials on a takeoff
type MaterialRequest struct {
	BaseModel
	TakeoffID     uuid.UUID             `gorm:"type:uuid;not null;index;column:takeoff_id" json:"takeoffId"`
	Takeoff       *Takeoff              `gorm:"foreignKey:TakeoffID" json:"takeoff,omitempty"`
	CompanyID     uuid.UUID             `gorm:"type:uuid;not null;index;column:company_id" json:"companyId"`
	RequestedByID uuid.UUID             `gorm:"type:uuid;not null;column:requested_by_id" json:"requestedById"`
	Description   string                `gorm:"type:text;not null" json:"description"`
	Quantity      int                   `gorm:"not null;default:1" json:"quantity"`
	Status        MaterialRequestStatus `gorm:"type:varchar(50);not null;default:'pending';index" json:"status"`
	DecidedByID   *uuid.UUID            `gorm:"type:uuid;column:decided_by_id" json:"decidedById,omitempty"`
	DecidedAt     *time.Time            `gorm:"column:decided_at" json:"decidedAt,omitempty"`
	DecisionNotes string                `gorm:"type:text;column:decision_notes" json:"decisionNotes,omitempty"`
}

// NotificationType represents the type of notification
type NotificationType string

const (
	NotificationTypeStatusChanged   NotificationType = "takeoff_status_changed"
	NotificationTypeAssigned        NotificationType = "takeoff_assigned"
	NotificationTypeMaterialDecided NotificationType = "material_request_decided"
	NotificationTypeInvoicePaid     NotificationType = "invoice_paid"
)

// Notification represents a user notification
type Notification struct {
	BaseModel
	UserID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"userId"`
	Type       string     `gorm:"type:varchar(50);not null" json:"type"`
	Title      string     `gorm:"type:varchar(200);not null" json:"title"`
	Message    string     `gorm:"type:varchar(500);not null" json:"message"`
	Read       bool       `gorm:"column:read;not null;default:false;index" json:"read"`
	ReadAt     *time.Time `json:"readAt,omitempty"`
	EntityID   *uuid.UUID `gorm:"type:uuid" json:"entityId,omitempty"`
	EntityType string     `gorm:"type:varchar(50)" json:"entityType,omitempty"`
}

// AuditAction represents the type of audit action
type AuditAction string

const (
	AuditActionCreate        AuditAction = "create"
	AuditActionUpdate        AuditAction = "update"
	AuditActionDelete        AuditAction = "delete"
	AuditActionLogin         AuditAction = "login"
	AuditActionLogout        AuditAction = "logout"
	AuditActionSelectCompany AuditAction = "select_company"
	AuditActionStatusChange  AuditAction = "status_change"
)

// AuditLog represents an audit trail entry
type AuditLog struct {
	ID          uuid.UUID   `gorm:"type:uuid;primary_key" json:"id"`
	UserID      *uuid.UUID  `gorm:"type:uuid;column:user_id" json:"userId,omitempty"`
	UserEmail   string      `gorm:"type:varchar(255);column:user_email" json:"userEmail,omitempty"`
	Action      AuditAction `gorm:"type:varchar(50);not null" json:"action"`
	EntityType  string      `gorm:"type:varchar(50);not null;column:entity_type" json:"entityType"`
	EntityID    *uuid.UUID  `gorm:"type:uuid;column:entity_id" json:"entityId,omitempty"`
	CompanyID   *uuid.UUID  `gorm:"type:uuid;column:company_id" json:"companyId,omitempty"`
	Method      string      `gorm:"type:varchar(10)" json:"method,omitempty"`
	Path        string      `gorm:"type:varchar(500)" json:"path,omitempty"`
	StatusCode  int         `gorm:"column:status_code" json:"statusCode,omitempty"`
	IPAddress   string      `gorm:"type:varchar(50);column:ip_address" json:"ipAddress,omitempty"`
	UserAgent   string      `gorm:"type:text;column:user_agent" json:"userAgent,omitempty"`
	RequestID   string      `gorm:"type:varchar(100);column:request_id" json:"requestId,omitempty"`
	PerformedAt time.Time   `gorm:"not null;default:CURRENT_TIMESTAMP;column:performed_at" json:"performedAt"`
	CreatedAt   time.Time   `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
}

// BeforeCreate assigns an ID when the caller did not provide one.
func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// NumberSequence tracks the last issued sequence number per company/year.
// Takeoffs and invoices share the counter so numbers are unique across both.
type NumberSequence struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key"`
	CompanyID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_number_seq_company_year;column:company_id"`
	Year         int       `gorm:"not null;uniqueIndex:idx_number_seq_company_year"`
	LastSequence int       `gorm:"not null;default:0;column:last_sequence"`
	CreatedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// BeforeCreate assigns an ID when the caller did not provide one.
func (n *NumberSequence) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
