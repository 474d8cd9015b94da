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

type MaterialRequestHandler struct {
	materialService *service.MaterialRequestService
	logger          *zap.Logger
}

func NewMaterialRequestHandler(materialService *service.MaterialRequestService, logger *zap.Logger) *MaterialRequestHandler {
	return &MaterialRequestHandler{
		materialService: materialService,
		logger:          logger,
	}
}

// @Summary Create material request
// @Description Request materials for a takeoff. Typically used by carpenters on site.
// @Tags MaterialRequests
// @Accept json
// @Produce json
// @Param request body domain.CreateMaterialRequestRequest true "Material request data"
// @Success 201 {object} domain.MaterialRequestDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /material-requests [post]
func (h *MaterialRequestHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateMaterialRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: malformed JSON")
		return
	}

	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	request, err := h.materialService.Create(r.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrUnauthorized) {
			respondWithError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		if errors.Is(err, service.ErrTakeoffNotFound) {
			respondWithError(w, http.StatusBadRequest, "Takeoff not found")
			return
		}
		h.logger.Error("failed to create material request", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to create material request")
		return
	}

	w.Header().Set("Location", "/api/v1/material-requests/"+request.ID.String())
	respondJSON(w, http.StatusCreated, request)
}

// @Summary List pending material requests
// @Description Lists material requests awaiting a decision in the effective company
// @Tags MaterialRequests
// @Produce json
// @Success 200 {array} domain.MaterialRequestDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /material-requests/pending [get]
func (h *MaterialRequestHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	requests, err := h.materialService.ListPending(r.Context())
	if err != nil {
		h.logger.Error("failed to list pending material requests", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to list material requests")
		return
	}

	respondJSON(w, http.StatusOK, requests)
}

// @Summary List material requests for a takeoff
// @Tags MaterialRequests
// @Produce json
// @Param id path string true "Takeoff ID"
// @Success 200 {array} domain.MaterialRequestDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /takeoffs/{id}/material-requests [get]
func (h *MaterialRequestHandler) ListByTakeoff(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid takeoff ID: must be a valid UUID")
		return
	}

	requests, err := h.materialService.ListByTakeoff(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrTakeoffNotFound) {
			respondWithError(w, http.StatusNotFound, "Takeoff not found")
			return
		}
		h.logger.Error("failed to list material requests", zap.Error(err), zap.String("takeoff_id", id.String()))
		respondWithError(w, http.StatusInternalServerError, "Failed to list material requests")
		return
	}

	respondJSON(w, http.StatusOK, requests)
}

// @Summary Decide material request
// @Description Approve or reject a pending material request. Requires company, manager or super admin role.
// @Tags MaterialRequests
// @Accept json
// @Produce json
// @Param id path string true "Material request ID"
// @Param request body domain.DecideMaterialRequestRequest true "Decision"
// @Success 200 {object} domain.MaterialRequestDTO
// @Failure 409 {object} domain.APIError "Request already decided"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /material-requests/{id}/decide [post]
func (h *MaterialRequestHandler) Decide(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid material request ID: must be a valid UUID")
		return
	}

	var req domain.DecideMaterialRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: malformed JSON")
		return
	}

	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	request, err := h.materialService.Decide(r.Context(), id, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMaterialRequestNotFound):
			respondWithError(w, http.StatusNotFound, "Material request not found")
		case errors.Is(err, service.ErrForbidden):
			respondWithError(w, http.StatusForbidden, "Insufficient permissions to decide material requests")
		case errors.Is(err, service.ErrMaterialRequestDecided):
			respondWithError(w, http.StatusConflict, "Material request has already been decided")
		default:
			h.logger.Error("failed to decide material request", zap.Error(err), zap.String("request_id", id.String()))
			respondWithError(w, http.StatusInternalServerError, "Failed to decide material request")
		}
		return
	}

	respondJSON(w, http.StatusOK, request)
}
