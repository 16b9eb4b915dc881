package handler

import (
	"errors"
	"net/http"

	"github.com/taskmanager/taskmanager-go/internal/middleware"
	"github.com/taskmanager/taskmanager-go/internal/model"
	"github.com/taskmanager/taskmanager-go/internal/service"
)

// AuthHandler handles HTTP requests for authentication.
type AuthHandler struct {
	responder
	service *service.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(svc *service.AuthService, rs responder) *AuthHandler {
	return &AuthHandler{responder: rs, service: svc}
}

// HandleRegister handles POST /api/v1/auth/register requests.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req model.CreateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.service.Register(r.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			h.logger(r).InfoContext(r.Context(), "registration rejected", "reason", "email taken")
		}
		if writeValidation(w, err) {
			return
		}
		h.serverError(w, r, "An internal error occurred. Please try again later.", err)
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

// HandleLogin handles POST /api/v1/auth/login requests.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.service.Login(r.Context(), req)
	if err != nil {
		if writeValidation(w, err) {
			return
		}
		h.serverError(w, r, "An error occurred while trying to log in.", err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleToken handles POST /api/v1/auth/token requests, issuing a named device token.
func (h *AuthHandler) HandleToken(w http.ResponseWriter, r *http.Request) {
	var req model.TokenRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.service.IssueDeviceToken(r.Context(), req)
	if err != nil {
		if writeValidation(w, err) {
			return
		}
		h.serverError(w, r, "An error occurred while issuing the token.", err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleLogout handles POST /api/v1/auth/logout requests.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, messageBody("Unauthenticated."))
		return
	}

	if err := h.service.Logout(r.Context(), identity); err != nil {
		if errors.Is(err, service.ErrTokenNotFound) {
			// Revoked concurrently by another request.
			writeJSON(w, http.StatusUnauthorized, messageBody("Unauthenticated."))
			return
		}
		h.serverError(w, r, "An error occurred while logging out.", err)
		return
	}

	writeJSON(w, http.StatusOK, messageBody("Logged out successfully"))
}

// HandleMe handles GET /api/v1/auth/me requests.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, messageBody("Unauthenticated."))
		return
	}

	resp, err := h.service.GetUser(r.Context(), userID)
	if err != nil {
		h.serverError(w, r, "An error occurred while loading the user.", err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
