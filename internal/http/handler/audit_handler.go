package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/doorcraft-as/takeoff-api/internal/domain"
	"github.com/doorcraft-as/takeoff-api/internal/service"
)

// AuditHandler handles audit log related HTTP requests.
// All routes are restricted to super admins by the router.
type AuditHandler struct {
	auditService *service.AuditLogService
	logger       *zap.Logger
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(auditService *service.AuditLogService, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{
		auditService: auditService,
		logger:       logger,
	}
}

// AuditLogListResponse represents a paginated list of audit logs
type AuditLogListResponse struct {
	Data       []domain.AuditLog `json:"data"`
	Total      int64             `json:"total"`
	Page       int               `json:"page"`
	PageSize   int               `json:"pageSize"`
	TotalPages int               `json:"totalPages"`
}

// AuditStatsResponse represents audit log statistics
type AuditStatsResponse struct {
	ActionCounts map[string]int64 `json:"actionCounts"`
	StartTime    string           `json:"startTime"`
	EndTime      string           `json:"endTime"`
}

// List godoc
// @Summary List audit logs
// @Description Returns a paginated list of audit log entries with optional filters
// @Tags Audit
// @Produce json
// @Param page query int false "Page number (default: 1)"
// @Param pageSize query int false "Page size (default: 20, max: 100)"
// @Param userId query string false "Filter by user ID"
// @Param action query string false "Filter by action type"
// @Param entityType query string false "Filter by entity type"
// @Param entityId query string false "Filter by entity ID"
// @Param companyId query string false "Filter by company ID"
// @Param startTime query string false "Filter by start time (RFC3339)"
// @Param endTime query string false "Filter by end time (RFC3339)"
// @Success 200 {object} AuditLogListResponse
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /audit [get]
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	page := parseIntQuery(r, "page", 1)
	pageSize := parseIntQuery(r, "pageSize", 20)
	if pageSize > 100 {
		pageSize = 100
	}

	params := service.AuditLogQueryParams{
		EntityType: r.URL.Query().Get("entityType"),
		Page:       page,
		PageSize:   pageSize,
	}

	if userIDStr := r.URL.Query().Get("userId"); userIDStr != "" {
		if userID, err := uuid.Parse(userIDStr); err == nil {
			params.UserID = &userID
		}
	}

	if actionStr := r.URL.Query().Get("action"); actionStr != "" {
		action := domain.AuditAction(actionStr)
		params.Action = &action
	}

	if entityIDStr := r.URL.Query().Get("entityId"); entityIDStr != "" {
		if entityID, err := uuid.Parse(entityIDStr); err == nil {
			params.EntityID = &entityID
		}
	}

	if companyIDStr := r.URL.Query().Get("companyId"); companyIDStr != "" {
		if companyID, err := uuid.Parse(companyIDStr); err == nil {
			params.CompanyID = &companyID
		}
	}

	if startStr := r.URL.Query().Get("startTime"); startStr != "" {
		if startTime, err := time.Parse(time.RFC3339, startStr); err == nil {
			params.StartTime = &startTime
		}
	}

	if endStr := r.URL.Query().Get("endTime"); endStr != "" {
		if endTime, err := time.Parse(time.RFC3339, endStr); err == nil {
			params.EndTime = &endTime
		}
	}

	logs, total, err := h.auditService.List(r.Context(), params)
	if err != nil {
		h.logger.Error("failed to list audit logs", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve audit logs")
		return
	}

	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}

	respondJSON(w, http.StatusOK, AuditLogListResponse{
		Data:       logs,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	})
}

// GetByID godoc
// @Summary Get audit log by ID
// @Description Returns a specific audit log entry
// @Tags Audit
// @Produce json
// @Param id path string true "Audit log ID"
// @Success 200 {object} domain.AuditLog
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /audit/{id} [get]
func (h *AuditHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid audit log ID: must be a valid UUID")
		return
	}

	log, err := h.auditService.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get audit log", zap.String("id", idStr), zap.Error(err))
		respondWithError(w, http.StatusNotFound, "Audit log not found")
		return
	}

	respondJSON(w, http.StatusOK, log)
}

// GetByEntity godoc
// @Summary Get audit logs for an entity
// @Description Returns audit logs for a specific entity
// @Tags Audit
// @Produce json
// @Param entityType path string true "Entity type (e.g., takeoff, invoice)"
// @Param entityId path string true "Entity ID"
// @Param limit query int false "Maximum number of entries (default: 50)"
// @Success 200 {array} domain.AuditLog
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /audit/entity/{entityType}/{entityId} [get]
func (h *AuditHandler) GetByEntity(w http.ResponseWriter, r *http.Request) {
	entityType := chi.URLParam(r, "entityType")
	entityIDStr := chi.URLParam(r, "entityId")

	entityID, err := uuid.Parse(entityIDStr)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid entity ID: must be a valid UUID")
		return
	}

	limit := parseIntQuery(r, "limit", 50)
	if limit > 200 {
		limit = 200
	}

	logs, err := h.auditService.GetByEntity(r.Context(), entityType, entityID, limit)
	if err != nil {
		h.logger.Error("failed to get entity audit logs",
			zap.String("entity_type", entityType),
			zap.String("entity_id", entityIDStr),
			zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve audit logs")
		return
	}

	respondJSON(w, http.StatusOK, logs)
}

// GetStats godoc
// @Summary Get audit log statistics
// @Description Returns statistics about audit log actions for a time range
// @Tags Audit
// @Produce json
// @Param startTime query string true "Start time (RFC3339)"
// @Param endTime query string true "End time (RFC3339)"
// @Success 200 {object} AuditStatsResponse
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /audit/stats [get]
func (h *AuditHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	startTime, endTime, ok := parseTimeRange(w, r)
	if !ok {
		return
	}

	stats, err := h.auditService.GetStats(r.Context(), startTime, endTime)
	if err != nil {
		h.logger.Error("failed to get audit stats", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve statistics")
		return
	}

	actionCounts := make(map[string]int64)
	for action, count := range stats {
		actionCounts[string(action)] = count
	}

	respondJSON(w, http.StatusOK, AuditStatsResponse{
		ActionCounts: actionCounts,
		StartTime:    startTime.Format(time.RFC3339),
		EndTime:      endTime.Format(time.RFC3339),
	})
}

// Export godoc
// @Summary Export audit logs
// @Description Exports audit logs for a time range as JSON
// @Tags Audit
// @Produce application/json
// @Param startTime query string true "Start time (RFC3339)"
// @Param endTime query string true "End time (RFC3339)"
// @Success 200 {array} domain.AuditLog
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /audit/export [get]
func (h *AuditHandler) Export(w http.ResponseWriter, r *http.Request) {
	startTime, endTime, ok := parseTimeRange(w, r)
	if !ok {
		return
	}

	data, err := h.auditService.ExportLogs(r.Context(), startTime, endTime)
	if err != nil {
		h.logger.Error("failed to export audit logs", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to export audit logs")
		return
	}

	filename := "audit_logs_" + startTime.Format("2006-01-02") + "_" + endTime.Format("2006-01-02") + ".json"
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// parseTimeRange reads the required startTime/endTime query parameters.
func parseTimeRange(w http.ResponseWriter, r *http.Request) (time.Time, time.Time, bool) {
	startStr := r.URL.Query().Get("startTime")
	endStr := r.URL.Query().Get("endTime")

	if startStr == "" || endStr == "" {
		respondWithError(w, http.StatusBadRequest, "startTime and endTime are required")
		return time.Time{}, time.Time{}, false
	}

	startTime, err := time.Parse(time.RFC3339, startStr)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid startTime format: expected RFC3339")
		return time.Time{}, time.Time{}, false
	}

	endTime, err := time.Parse(time.RFC3339, endStr)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid endTime format: expected RFC3339")
		return time.Time{}, time.Time{}, false
	}

	return startTime, endTime, true
}

// parseIntQuery parses an integer query parameter with a default value
func parseIntQuery(r *http.Request, key string, defaultVal int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}
	intVal, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return intVal
}
