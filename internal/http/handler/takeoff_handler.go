package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/doorcraft-as/takeoff-api/internal/auth"
	"github.com/doorcraft-as/takeoff-api/internal/domain"
	"github.com/doorcraft-as/takeoff-api/internal/repository"
	"github.com/doorcraft-as/takeoff-api/internal/service"
)

type TakeoffHandler struct {
	takeoffService *service.TakeoffService
	fileService    *service.FileService
	maxUploadMB    int64
	logger         *zap.Logger
}

func NewTakeoffHandler(
	takeoffService *service.TakeoffService,
	fileService *service.FileService,
	maxUploadMB int64,
	logger *zap.Logger,
) *TakeoffHandler {
	return &TakeoffHandler{
		takeoffService: takeoffService,
		fileService:    fileService,
		maxUploadMB:    maxUploadMB,
		logger:         logger,
	}
}

// @Summary List takeoffs
// @Description List takeoffs for the effective company with optional filters
// @Tags Takeoffs
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Page size" default(20)
// @Param status query string false "Filter by status (number or name, e.g. 3 or measured)"
// @Param carpenterId query string false "Filter by assigned carpenter ID"
// @Param createdAfter query string false "Created after date (YYYY-MM-DD)"
// @Param createdBefore query string false "Created before date (YYYY-MM-DD)"
// @Param q query string false "Search in number, customer name and address"
// @Param sort query string false "Sort by (created_desc, created_asc, status_asc, status_desc, number_asc, number_desc)"
// @Success 200 {object} domain.PaginatedResponse
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /takeoffs [get]
func (h *TakeoffHandler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))
	if pageSize < 1 {
		pageSize = 20
	}

	filters := &repository.TakeoffFilters{}

	if s := r.URL.Query().Get("status"); s != "" {
		status, ok := parseStatusParam(s)
		if !ok {
			respondWithError(w, http.StatusBadRequest, "Invalid status filter: unknown status")
			return
		}
		filters.Status = &status
	}

	if cid := r.URL.Query().Get("carpenterId"); cid != "" {
		if id, err := uuid.Parse(cid); err == nil {
			filters.CarpenterID = &id
		}
	}

	if ca := r.URL.Query().Get("createdAfter"); ca != "" {
		if t, err := time.Parse("2006-01-02", ca); err == nil {
			filters.CreatedAfter = &t
		}
	}
	if cb := r.URL.Query().Get("createdBefore"); cb != "" {
		if t, err := time.Parse("2006-01-02", cb); err == nil {
			filters.CreatedBefore = &t
		}
	}

	if q := r.URL.Query().Get("q"); q != "" {
		filters.SearchQuery = &q
	}

	sortBy := repository.TakeoffSortByCreatedDesc
	if s := r.URL.Query().Get("sort"); s != "" {
		sortBy = repository.TakeoffSortOption(s)
	}

	result, err := h.takeoffService.List(r.Context(), page, pageSize, filters, sortBy)
	if err != nil {
		h.logger.Error("failed to list takeoffs", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to list takeoffs")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// @Summary Create takeoff
// @Description Create a new takeoff in the effective company. Assigning a measure carpenter moves it straight to to_measure.
// @Tags Takeoffs
// @Accept json
// @Produce json
// @Param request body domain.CreateTakeoffRequest true "Takeoff data"
// @Success 201 {object} domain.TakeoffDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /takeoffs [post]
func (h *TakeoffHandler) Create(w http.ResponseWriter, r *http.Request) {
	companyID := auth.EffectiveCompanyID(r.Context())
	if companyID == nil {
		// Super admins must pick a company for writes via the x-company-id header.
		respondWithError(w, http.StatusBadRequest, "A company scope is required to create a takeoff: set the x-company-id header")
		return
	}

	var req domain.CreateTakeoffRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: malformed JSON")
		return
	}

	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	takeoff, err := h.takeoffService.Create(r.Context(), *companyID, &req)
	if err != nil {
		if errors.Is(err, service.ErrCarpenterRoleRequired) {
			respondWithError(w, http.StatusBadRequest, "Assigned user must have the carpenter role")
			return
		}
		if errors.Is(err, service.ErrUserNotFound) {
			respondWithError(w, http.StatusBadRequest, "Assigned carpenter not found")
			return
		}
		h.logger.Error("failed to create takeoff", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to create takeoff")
		return
	}

	w.Header().Set("Location", "/api/v1/takeoffs/"+takeoff.ID.String())
	respondJSON(w, http.StatusCreated, takeoff)
}

// @Summary Get takeoff
// @Description Get a takeoff by ID with status history and files
// @Tags Takeoffs
// @Produce json
// @Param id path string true "Takeoff ID"
// @Success 200 {object} domain.TakeoffDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /takeoffs/{id} [get]
func (h *TakeoffHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid takeoff ID: must be a valid UUID")
		return
	}

	takeoff, err := h.takeoffService.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrTakeoffNotFound) {
			respondWithError(w, http.StatusNotFound, "Takeoff not found")
			return
		}
		h.logger.Error("failed to get takeoff", zap.Error(err), zap.String("takeoff_id", id.String()))
		respondWithError(w, http.StatusInternalServerError, "Failed to get takeoff")
		return
	}

	respondJSON(w, http.StatusOK, takeoff)
}

// @Summary Update takeoff
// @Description Update takeoff details. Status changes go through the status endpoint.
// @Tags Takeoffs
// @Accept json
// @Produce json
// @Param id path string true "Takeoff ID"
// @Param request body domain.UpdateTakeoffRequest true "Takeoff data"
// @Success 200 {object} domain.TakeoffDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /takeoffs/{id} [put]
func (h *TakeoffHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid takeoff ID: must be a valid UUID")
		return
	}

	var req domain.UpdateTakeoffRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: malformed JSON")
		return
	}

	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	takeoff, err := h.takeoffService.Update(r.Context(), id, &req)
	if err != nil {
		if errors.Is(err, service.ErrTakeoffNotFound) {
			respondWithError(w, http.StatusNotFound, "Takeoff not found")
			return
		}
		h.logger.Error("failed to update takeoff", zap.Error(err), zap.String("takeoff_id", id.String()))
		respondWithError(w, http.StatusInternalServerError, "Failed to update takeoff")
		return
	}

	respondJSON(w, http.StatusOK, takeoff)
}

// @Summary Delete takeoff
// @Description Delete a takeoff. Requires company, manager or super admin role.
// @Tags Takeoffs
// @Param id path string true "Takeoff ID"
// @Success 204 "No Content"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /takeoffs/{id} [delete]
func (h *TakeoffHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid takeoff ID: must be a valid UUID")
		return
	}

	if err := h.takeoffService.Delete(r.Context(), id); err != nil {
		if errors.Is(err, service.ErrForbidden) {
			respondWithError(w, http.StatusForbidden, "Insufficient permissions to delete this takeoff")
			return
		}
		if errors.Is(err, service.ErrTakeoffNotFound) {
			respondWithError(w, http.StatusNotFound, "Takeoff not found")
			return
		}
		h.logger.Error("failed to delete takeoff", zap.Error(err), zap.String("takeoff_id", id.String()))
		respondWithError(w, http.StatusInternalServerError, "Failed to delete takeoff")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// @Summary Change takeoff status
// @Description Advance a takeoff one step in the workflow. Moving to under_review requires measurementConfirmed; moving to shipped requires a delivery photo or skipPhoto.
// @Tags Takeoffs
// @Accept json
// @Produce json
// @Param id path string true "Takeoff ID"
// @Param request body domain.ChangeStatusRequest true "Target status"
// @Success 200 {object} domain.TakeoffDTO
// @Failure 400 {object} domain.APIError "Missing confirmation or delivery photo"
// @Failure 403 {object} domain.APIError "Role may not perform this transition"
// @Failure 409 {object} domain.APIError "Not the next status in the workflow"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /takeoffs/{id}/status [patch]
func (h *TakeoffHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid takeoff ID: must be a valid UUID")
		return
	}

	var req domain.ChangeStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: malformed JSON")
		return
	}

	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	takeoff, err := h.takeoffService.ChangeStatus(r.Context(), id, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTakeoffNotFound):
			respondWithError(w, http.StatusNotFound, "Takeoff not found")
		case errors.Is(err, service.ErrInvalidTransition):
			respondWithError(w, http.StatusConflict, "Invalid status transition: statuses advance one step at a time")
		case errors.Is(err, service.ErrTransitionDenied):
			respondWithError(w, http.StatusForbidden, "Your role may not perform this status change")
		case errors.Is(err, service.ErrConfirmationRequired):
			respondWithError(w, http.StatusBadRequest, "Measurement confirmation is required before review")
		case errors.Is(err, service.ErrPhotoRequired):
			respondWithError(w, http.StatusBadRequest, "A delivery photo is required before shipping; set skipPhoto to ship without one")
		default:
			h.logger.Error("failed to change takeoff status",
				zap.Error(err),
				zap.String("takeoff_id", id.String()),
				zap.Int("target_status", int(req.Status)))
			respondWithError(w, http.StatusInternalServerError, "Failed to change status")
		}
		return
	}

	respondJSON(w, http.StatusOK, takeoff)
}

// @Summary Assign carpenter
// @Description Assign a measure or trim carpenter to a takeoff. Assigning a measure carpenter to a newly created takeoff moves it to to_measure.
// @Tags Takeoffs
// @Accept json
// @Produce json
// @Param id path string true "Takeoff ID"
// @Param request body domain.AssignCarpenterRequest true "Carpenter assignment"
// @Success 200 {object} domain.TakeoffDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /takeoffs/{id}/assign [post]
func (h *TakeoffHandler) AssignCarpenter(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid takeoff ID: must be a valid UUID")
		return
	}

	var req domain.AssignCarpenterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: malformed JSON")
		return
	}

	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	takeoff, err := h.takeoffService.AssignCarpenter(r.Context(), id, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTakeoffNotFound):
			respondWithError(w, http.StatusNotFound, "Takeoff not found")
		case errors.Is(err, service.ErrForbidden):
			respondWithError(w, http.StatusForbidden, "Insufficient permissions to assign carpenters")
		case errors.Is(err, service.ErrCarpenterRoleRequired):
			respondWithError(w, http.StatusBadRequest, "Assigned user must have the carpenter role")
		case errors.Is(err, service.ErrUserNotFound):
			respondWithError(w, http.StatusBadRequest, "Carpenter not found")
		default:
			h.logger.Error("failed to assign carpenter",
				zap.Error(err),
				zap.String("takeoff_id", id.String()),
				zap.String("carpenter_id", req.CarpenterID.String()))
			respondWithError(w, http.StatusInternalServerError, "Failed to assign carpenter")
		}
		return
	}

	respondJSON(w, http.StatusOK, takeoff)
}

// @Summary Get takeoff status history
// @Description Returns all recorded status transitions for a takeoff, oldest first
// @Tags Takeoffs
// @Produce json
// @Param id path string true "Takeoff ID"
// @Success 200 {array} domain.TakeoffStatusHistoryDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /takeoffs/{id}/history [get]
func (h *TakeoffHandler) GetStatusHistory(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid takeoff ID: must be a valid UUID")
		return
	}

	history, err := h.takeoffService.GetStatusHistory(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrTakeoffNotFound) {
			respondWithError(w, http.StatusNotFound, "Takeoff not found")
			return
		}
		h.logger.Error("failed to get status history", zap.Error(err), zap.String("takeoff_id", id.String()))
		respondWithError(w, http.StatusInternalServerError, "Failed to get status history")
		return
	}

	respondJSON(w, http.StatusOK, history)
}

// @Summary Upload delivery photo
// @Description Upload a delivery photo for a takeoff. A delivery photo satisfies the shipping gate.
// @Tags Takeoffs
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Takeoff ID"
// @Param deliveryPhoto formData file true "Photo file"
// @Success 201 {object} domain.FileDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /takeoffs/{id}/delivery-photo [post]
func (h *TakeoffHandler) UploadDeliveryPhoto(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid takeoff ID: must be a valid UUID")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadMB*1024*1024)

	if err := r.ParseMultipartForm(h.maxUploadMB * 1024 * 1024); err != nil {
		respondWithError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("File too large: maximum size is %dMB", h.maxUploadMB))
		return
	}

	file, header, err := r.FormFile("deliveryPhoto")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid file upload: deliveryPhoto field is required")
		return
	}
	defer file.Close()

	fileDTO, err := h.fileService.UploadDeliveryPhoto(r.Context(), id, header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		if errors.Is(err, service.ErrTakeoffNotFound) {
			respondWithError(w, http.StatusNotFound, "Takeoff not found")
			return
		}
		h.logger.Error("failed to upload delivery photo", zap.Error(err), zap.String("takeoff_id", id.String()))
		respondWithError(w, http.StatusInternalServerError, "Failed to upload delivery photo")
		return
	}

	respondJSON(w, http.StatusCreated, fileDTO)
}

// @Summary List takeoff files
// @Description Returns all files attached to a takeoff
// @Tags Takeoffs
// @Produce json
// @Param id path string true "Takeoff ID"
// @Success 200 {array} domain.FileDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /takeoffs/{id}/files [get]
func (h *TakeoffHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid takeoff ID: must be a valid UUID")
		return
	}

	files, err := h.fileService.ListByTakeoff(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrTakeoffNotFound) {
			respondWithError(w, http.StatusNotFound, "Takeoff not found")
			return
		}
		h.logger.Error("failed to list takeoff files", zap.Error(err), zap.String("takeoff_id", id.String()))
		respondWithError(w, http.StatusInternalServerError, "Failed to list files")
		return
	}

	respondJSON(w, http.StatusOK, files)
}

// parseStatusParam accepts either the numeric status value or its name.
func parseStatusParam(s string) (domain.TakeoffStatus, bool) {
	if n, err := strconv.Atoi(s); err == nil {
		status := domain.TakeoffStatus(n)
		return status, status.IsValid()
	}
	for _, status := range domain.AllStatuses() {
		if status.String() == s {
			return status, true
		}
	}
	return 0, false
}
