package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/doorcraft-as/takeoff-api/internal/domain"
	"github.com/doorcraft-as/takeoff-api/internal/service"
)

type AuthHandler struct {
	authService *service.AuthService
	logger      *zap.Logger
}

func NewAuthHandler(authService *service.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// Login godoc
// @Summary Log in with email and password
// @Description Authenticates a user and returns a JWT together with the user profile
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body domain.LoginRequest true "Credentials"
// @Success 200 {object} domain.LoginResponse
// @Failure 401 {object} domain.APIError "Invalid credentials"
// @Failure 403 {object} domain.APIError "Account deactivated"
// @Router /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: malformed JSON")
		return
	}

	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	resp, err := h.authService.Login(r.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			respondWithError(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		if errors.Is(err, service.ErrUserInactive) {
			respondWithError(w, http.StatusForbidden, "Account is deactivated")
			return
		}
		h.logger.Error("login failed", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to log in")
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

// Logout godoc
// @Summary Log out
// @Description Drops the cached company resolution for the current user
// @Tags Auth
// @Produce json
// @Success 204 "No Content"
// @Failure 401 {object} domain.APIError "Unauthorized"
// @Security BearerAuth
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.authService.Logout(r.Context()); err != nil {
		if errors.Is(err, service.ErrUnauthorized) {
			respondWithError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		h.logger.Error("logout failed", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to log out")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SelectCompany godoc
// @Summary Select the active company
// @Description Switches the user's active company and returns a token scoped to it
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body domain.SelectCompanyRequest true "Company to activate"
// @Success 200 {object} domain.SelectCompanyResponse
// @Failure 401 {object} domain.APIError "Unauthorized"
// @Failure 403 {object} domain.APIError "Not a member of the company"
// @Security BearerAuth
// @Router /auth/select-company [post]
func (h *AuthHandler) SelectCompany(w http.ResponseWriter, r *http.Request) {
	var req domain.SelectCompanyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body: malformed JSON")
		return
	}

	if err := validate.Struct(req); err != nil {
		respondValidationError(w, err)
		return
	}

	resp, err := h.authService.SelectCompany(r.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrUnauthorized) {
			respondWithError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		if errors.Is(err, service.ErrCompanyAccessDenied) {
			respondWithError(w, http.StatusForbidden, "You are not a member of this company")
			return
		}
		if errors.Is(err, service.ErrCompanyNotFound) {
			respondWithError(w, http.StatusNotFound, "Company not found")
			return
		}
		h.logger.Error("company selection failed", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to select company")
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

// MyCompanies godoc
// @Summary List companies available to the current user
// @Description Returns the active companies the user is a member of; super admins get all active companies
// @Tags Auth
// @Produce json
// @Success 200 {array} domain.CompanyDTO
// @Failure 401 {object} domain.APIError "Unauthorized"
// @Security BearerAuth
// @Router /auth/my-companies [get]
func (h *AuthHandler) MyCompanies(w http.ResponseWriter, r *http.Request) {
	companies, err := h.authService.MyCompanies(r.Context())
	if err != nil {
		if errors.Is(err, service.ErrUnauthorized) {
			respondWithError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		h.logger.Error("failed to list companies for user", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to list companies")
		return
	}

	respondJSON(w, http.StatusOK, companies)
}

// Me godoc
// @Summary Get current authenticated user
// @Description Returns the profile of the authenticated user
// @Tags Auth
// @Produce json
// @Success 200 {object} domain.UserDTO
// @Failure 401 {object} domain.APIError "Unauthorized"
// @Security BearerAuth
// @Router /auth/me [get]
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	profile, err := h.authService.Profile(r.Context())
	if err != nil {
		if errors.Is(err, service.ErrUnauthorized) {
			respondWithError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		if errors.Is(err, service.ErrUserNotFound) {
			respondWithError(w, http.StatusNotFound, "User not found")
			return
		}
		h.logger.Error("failed to load profile", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to load profile")
		return
	}

	respondJSON(w, http.StatusOK, profile)
}
