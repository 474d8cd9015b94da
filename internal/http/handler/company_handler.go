package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/doorcraft-as/takeoff-api/internal/domain"
	"github.com/doorcraft-as/takeoff-api/internal/service"
)

// CompanyHandler manages companies. All routes require super admin.
type CompanyHandler struct {
	companyService *service.CompanyService
	logger         *zap.Logger
}

func NewCompanyHandler(companyService *service.CompanyService, logger *zap.Logger) *CompanyHandler {
	return &CompanyHandler{
		companyService: companyService,
		logger:         logger,
	}
}

// @Summary List companies
// @Tags Companies
// @Produce json
// @Param includeInactive query bool false "Include deactivated companies" default(false)
// @Success 200 {array} domain.CompanyDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /companies [get]
func (h *CompanyHandler) List(w http.ResponseWriter, r *http.Request) {
	includeInactive := r.URL.Query().Get("includeInactive") == "true"

	companies, err := h.companyService.List(r.Context(), includeInactive)
	if err != nil {
		h.logger.Error("failed to list companies", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to list companies")
		return
	}

	respondJSON(w, http.StatusOK, companies)
}

// @Summary Create company
// @Tags Companies
// @Accept json
// @Produce json
// @Param request body domain.CreateCompanyRequest true "Company data"
// @Success 201 {object} domain.CompanyDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /companies [post]
func (h *CompanyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateCompanyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: malformed JSON")
		return
	}

	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	company, err := h.companyService.Create(r.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrConflict) {
			respondWithError(w, http.StatusConflict, "A company with this number prefix already exists")
			return
		}
		h.logger.Error("failed to create company", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to create company")
		return
	}

	w.Header().Set("Location", "/api/v1/companies/"+company.ID.String())
	respondJSON(w, http.StatusCreated, company)
}

// @Summary Get company
// @Tags Companies
// @Produce json
// @Param id path string true "Company ID"
// @Success 200 {object} domain.CompanyDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /companies/{id} [get]
func (h *CompanyHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid company ID: must be a valid UUID")
		return
	}

	company, err := h.companyService.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrCompanyNotFound) {
			respondWithError(w, http.StatusNotFound, "Company not found")
			return
		}
		h.logger.Error("failed to get company", zap.Error(err), zap.String("company_id", id.String()))
		respondWithError(w, http.StatusInternalServerError, "Failed to get company")
		return
	}

	respondJSON(w, http.StatusOK, company)
}

// @Summary Update company
// @Description Update company details. Setting isActive to false with deactivateUsers also deactivates its users.
// @Tags Companies
// @Accept json
// @Produce json
// @Param id path string true "Company ID"
// @Param request body domain.UpdateCompanyRequest true "Company data"
// @Success 200 {object} domain.CompanyDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /companies/{id} [put]
func (h *CompanyHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid company ID: must be a valid UUID")
		return
	}

	var req domain.UpdateCompanyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: malformed JSON")
		return
	}

	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	company, err := h.companyService.Update(r.Context(), id, &req)
	if err != nil {
		if errors.Is(err, service.ErrCompanyNotFound) {
			respondWithError(w, http.StatusNotFound, "Company not found")
			return
		}
		h.logger.Error("failed to update company", zap.Error(err), zap.String("company_id", id.String()))
		respondWithError(w, http.StatusInternalServerError, "Failed to update company")
		return
	}

	respondJSON(w, http.StatusOK, company)
}
