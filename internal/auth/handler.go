package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/monkeyscms/monkeys/internal/audit"
	"github.com/monkeyscms/monkeys/internal/server"
)

// maxRequestBodySize caps JSON request bodies at 1 MB.
const maxRequestBodySize = 1 << 20

// Handler provides the authentication endpoints.
type Handler struct {
	service      *Service
	auditService *audit.Service
}

// NewHandler creates an auth Handler. The audit service is optional; if
// nil, audit events are skipped.
func NewHandler(service *Service, auditService *audit.Service) *Handler {
	return &Handler{service: service, auditService: auditService}
}

// loginRequest is the expected body for POST /auth/login.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles POST /auth/login, returning an access token on success.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		server.Error(w, http.StatusBadRequest, "INVALID_JSON", "request body is not valid JSON", nil)
		return
	}
	if req.Email == "" || req.Password == "" {
		server.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "email and password are required", nil)
		return
	}

	adminID, accessToken, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			h.logAudit(r.Context(), audit.Event{
				Action:  "admin.login.failure",
				Payload: map[string]any{"email": req.Email},
			})
			server.Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid email or password", nil)
			return
		}
		slog.Error("login failed", "error", err)
		server.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error", nil)
		return
	}

	h.logAudit(r.Context(), audit.Event{
		Action:  "admin.login.success",
		ActorID: adminID,
	})

	server.JSON(w, http.StatusOK, map[string]string{
		"access_token": accessToken,
	})
}

// Me handles GET /auth/me, echoing the authenticated identity from the
// validated token.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	server.JSON(w, http.StatusOK, map[string]string{
		"id":    AdminIDFromContext(r.Context()),
		"email": EmailFromContext(r.Context()),
	})
}

func (h *Handler) logAudit(ctx context.Context, event audit.Event) {
	if h.auditService != nil {
		h.auditService.Log(ctx, event)
	}
}
