package mapper

import (
	"time"

	"github.com/doorcraft-as/takeoff-api/internal/domain"
)

const timeFormat = "2006-01-02T15:04:05Z"

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(timeFormat)
	return &s
}

// ToCompanyDTO converts Company to CompanyDTO
func ToCompanyDTO(company *domain.Company) domain.CompanyDTO {
	return domain.CompanyDTO{
		ID:           company.ID,
		Name:         company.Name,
		NumberPrefix: company.NumberPrefix,
		OrgNumber:    company.OrgNumber,
		Email:        company.Email,
		Phone:        company.Phone,
		Address:      company.Address,
		City:         company.City,
		PostalCode:   company.PostalCode,
		Country:      company.Country,
		IsActive:     company.IsActive,
		CreatedAt:    company.CreatedAt.Format(timeFormat),
		UpdatedAt:    company.UpdatedAt.Format(timeFormat),
	}
}

// ToUserDTO converts User to UserDTO
func ToUserDTO(user *domain.User) domain.UserDTO {
	return domain.UserDTO{
		ID:              user.ID,
		Email:           user.Email,
		FirstName:       user.FirstName,
		LastName:        user.LastName,
		FullName:        user.FullName(),
		Phone:           user.Phone,
		Roles:           []string(user.Roles),
		CompanyID:       user.CompanyID,
		Companies:       []string(user.Companies),
		ActiveCompanyID: user.ActiveCompanyID,
		IsActive:        user.IsActive,
		LastLoginAt:     formatTimePtr(user.LastLoginAt),
		CreatedAt:       user.CreatedAt.Format(timeFormat),
		UpdatedAt:       user.UpdatedAt.Format(timeFormat),
	}
}

// ToTakeoffDTO converts Takeoff to TakeoffDTO. NextStatuses reflects
// where the workflow can go from the current status; role checks happen
// at transition time.
func ToTakeoffDTO(takeoff *domain.Takeoff) domain.TakeoffDTO {
	history := make([]domain.TakeoffStatusHistoryDTO, len(takeoff.StatusHistory))
	for i, h := range takeoff.StatusHistory {
		history[i] = ToTakeoffStatusHistoryDTO(&h)
	}

	files := make([]domain.FileDTO, len(takeoff.Files))
	for i, f := range takeoff.Files {
		files[i] = ToFileDTO(&f)
	}

	return domain.TakeoffDTO{
		ID:                 takeoff.ID,
		TakeoffNumber:      takeoff.TakeoffNumber,
		CompanyID:          takeoff.CompanyID,
		CustomerName:       takeoff.CustomerName,
		CustomerPhone:      takeoff.CustomerPhone,
		CustomerEmail:      takeoff.CustomerEmail,
		Address:            takeoff.Address,
		City:               takeoff.City,
		PostalCode:         takeoff.PostalCode,
		Description:        takeoff.Description,
		Status:             takeoff.Status,
		StatusName:         takeoff.Status.String(),
		StatusLabel:        takeoff.Status.Label(),
		NextStatuses:       domain.NextStatuses(takeoff.Status),
		DoorCount:          takeoff.DoorCount,
		MeasureCarpenterID: takeoff.MeasureCarpenterID,
		TrimCarpenterID:    takeoff.TrimCarpenterID,
		ScheduledMeasureAt: formatTimePtr(takeoff.ScheduledMeasureAt),
		MeasuredAt:         formatTimePtr(takeoff.MeasuredAt),
		ShippedAt:          formatTimePtr(takeoff.ShippedAt),
		ClosedAt:           formatTimePtr(takeoff.ClosedAt),
		MeasurementNotes:   takeoff.MeasurementNotes,
		Notes:              takeoff.Notes,
		CreatedByID:        takeoff.CreatedByID,
		StatusHistory:      history,
		Files:              files,
		CreatedAt:          takeoff.CreatedAt.Format(timeFormat),
		UpdatedAt:          takeoff.UpdatedAt.Format(timeFormat),
	}
}

// ToTakeoffStatusHistoryDTO converts TakeoffStatusHistory to its DTO
func ToTakeoffStatusHistoryDTO(h *domain.TakeoffStatusHistory) domain.TakeoffStatusHistoryDTO {
	return domain.TakeoffStatusHistoryDTO{
		ID:            h.ID,
		TakeoffID:     h.TakeoffID,
		FromStatus:    h.FromStatus,
		ToStatus:      h.ToStatus,
		ChangedByID:   h.ChangedByID,
		ChangedByName: h.ChangedByName,
		Notes:         h.Notes,
		ChangedAt:     h.ChangedAt.Format(timeFormat),
	}
}

// ToFileDTO converts File to FileDTO
func ToFileDTO(file *domain.File) domain.FileDTO {
	return domain.FileDTO{
		ID:          file.ID,
		Filename:    file.Filename,
		ContentType: file.ContentType,
		Size:        file.Size,
		Kind:        file.Kind,
		TakeoffID:   file.TakeoffID,
		InvoiceID:   file.InvoiceID,
		CreatedAt:   file.CreatedAt.Format(timeFormat),
	}
}

// ToInvoiceDTO converts Invoice to InvoiceDTO
func ToInvoiceDTO(invoice *domain.Invoice) domain.InvoiceDTO {
	return domain.InvoiceDTO{
		ID:            invoice.ID,
		InvoiceNumber: invoice.InvoiceNumber,
		TakeoffID:     invoice.TakeoffID,
		CompanyID:     invoice.CompanyID,
		Status:        invoice.Status,
		Amount:        invoice.Amount,
		Currency:      invoice.Currency,
		IssuedAt:      formatTimePtr(invoice.IssuedAt),
		DueDate:       formatTimePtr(invoice.DueDate),
		PaidAt:        formatTimePtr(invoice.PaidAt),
		ExternalRef:   invoice.ExternalRef,
		PDFFileID:     invoice.PDFFileID,
		Notes:         invoice.Notes,
		CreatedAt:     invoice.CreatedAt.Format(timeFormat),
		UpdatedAt:     invoice.UpdatedAt.Format(timeFormat),
	}
}

// ToMaterialRequestDTO converts MaterialRequest to MaterialRequestDTO
func ToMaterialRequestDTO(request *domain.MaterialRequest) domain.MaterialRequestDTO {
	return domain.MaterialRequestDTO{
		ID:            request.ID,
		TakeoffID:     request.TakeoffID,
		CompanyID:     request.CompanyID,
		RequestedByID: request.RequestedByID,
		Description:   request.Description,
		Quantity:      request.Quantity,
		Status:        request.Status,
		DecidedByID:   request.DecidedByID,
		DecidedAt:     formatTimePtr(request.DecidedAt),
		DecisionNotes: request.DecisionNotes,
		CreatedAt:     request.CreatedAt.Format(timeFormat),
		UpdatedAt:     request.UpdatedAt.Format(timeFormat),
	}
}

// ToNotificationDTO converts Notification to NotificationDTO
func ToNotificationDTO(n *domain.Notification) domain.NotificationDTO {
	return domain.NotificationDTO{
		ID:         n.ID,
		Type:       n.Type,
		Title:      n.Title,
		Message:    n.Message,
		Read:       n.Read,
		ReadAt:     formatTimePtr(n.ReadAt),
		EntityID:   n.EntityID,
		EntityType: n.EntityType,
		CreatedAt:  n.CreatedAt.Format(timeFormat),
	}
}
