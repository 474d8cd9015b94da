package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/doorcraft-as/takeoff-api/internal/domain"
	"github.com/doorcraft-as/takeoff-api/internal/repository"
	"github.com/doorcraft-as/takeoff-api/internal/service"
)

type InvoiceHandler struct {
	invoiceService *service.InvoiceService
	logger         *zap.Logger
}

func NewInvoiceHandler(invoiceService *service.InvoiceService, logger *zap.Logger) *InvoiceHandler {
	return &InvoiceHandler{
		invoiceService: invoiceService,
		logger:         logger,
	}
}

// @Summary List invoices
// @Tags Invoices
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Page size" default(20)
// @Param status query string false "Filter by status (draft, sent, paid)"
// @Param takeoffId query string false "Filter by takeoff ID"
// @Success 200 {object} domain.PaginatedResponse
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /invoices [get]
func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))
	if pageSize < 1 {
		pageSize = 20
	}

	filters := &repository.InvoiceFilters{}

	if s := r.URL.Query().Get("status"); s != "" {
		status := domain.InvoiceStatus(s)
		filters.Status = &status
	}

	if tid := r.URL.Query().Get("takeoffId"); tid != "" {
		if id, err := uuid.Parse(tid); err == nil {
			filters.TakeoffID = &id
		}
	}

	result, err := h.invoiceService.List(r.Context(), page, pageSize, filters)
	if err != nil {
		h.logger.Error("failed to list invoices", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to list invoices")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// @Summary Create invoice
// @Description Create a draft invoice for a takeoff
// @Tags Invoices
// @Accept json
// @Produce json
// @Param request body domain.CreateInvoiceRequest true "Invoice data"
// @Success 201 {object} domain.InvoiceDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /invoices [post]
func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: malformed JSON")
		return
	}

	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	invoice, err := h.invoiceService.Create(r.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrTakeoffNotFound) {
			respondWithError(w, http.StatusBadRequest, "Takeoff not found")
			return
		}
		if errors.Is(err, service.ErrTakeoffNotBillable) {
			respondWithError(w, http.StatusConflict, "Takeoff must complete back trim before it can be invoiced")
			return
		}
		h.logger.Error("failed to create invoice", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to create invoice")
		return
	}

	w.Header().Set("Location", "/api/v1/invoices/"+invoice.ID.String())
	respondJSON(w, http.StatusCreated, invoice)
}

// @Summary Get invoice
// @Tags Invoices
// @Produce json
// @Param id path string true "Invoice ID"
// @Success 200 {object} domain.InvoiceDTO
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /invoices/{id} [get]
func (h *InvoiceHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid invoice ID: must be a valid UUID")
		return
	}

	invoice, err := h.invoiceService.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrInvoiceNotFound) {
			respondWithError(w, http.StatusNotFound, "Invoice not found")
			return
		}
		h.logger.Error("failed to get invoice", zap.Error(err), zap.String("invoice_id", id.String()))
		respondWithError(w, http.StatusInternalServerError, "Failed to get invoice")
		return
	}

	respondJSON(w, http.StatusOK, invoice)
}

// SendInvoiceRequest carries the accounting reference used when issuing an invoice
type SendInvoiceRequest struct {
	ExternalRef string `json:"externalRef" validate:"omitempty,max=100"`
}

// @Summary Send invoice
// @Description Issue a draft invoice: stamps the issue date, renders the PDF and registers the external accounting reference
// @Tags Invoices
// @Accept json
// @Produce json
// @Param id path string true "Invoice ID"
// @Param request body SendInvoiceRequest true "Send options"
// @Success 200 {object} domain.InvoiceDTO
// @Failure 409 {object} domain.APIError "Invoice is not a draft"
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /invoices/{id}/send [post]
func (h *InvoiceHandler) Send(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid invoice ID: must be a valid UUID")
		return
	}

	var req SendInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: malformed JSON")
		return
	}

	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	invoice, err := h.invoiceService.Send(r.Context(), id, req.ExternalRef)
	if err != nil {
		if errors.Is(err, service.ErrInvoiceNotFound) {
			respondWithError(w, http.StatusNotFound, "Invoice not found")
			return
		}
		if errors.Is(err, service.ErrInvoiceNotDraft) {
			respondWithError(w, http.StatusConflict, "Only draft invoices can be sent")
			return
		}
		h.logger.Error("failed to send invoice", zap.Error(err), zap.String("invoice_id", id.String()))
		respondWithError(w, http.StatusInternalServerError, "Failed to send invoice")
		return
	}

	respondJSON(w, http.StatusOK, invoice)
}
