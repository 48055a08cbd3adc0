package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dashkit/admin-dashboard/internal/http/middleware"
	"github.com/dashkit/admin-dashboard/internal/http/response"
	"github.com/dashkit/admin-dashboard/internal/observability"
	"github.com/dashkit/admin-dashboard/internal/security"
	"github.com/dashkit/admin-dashboard/internal/service"
)

type AuthHandler struct {
	auth         service.AuthServiceInterface
	logger       *slog.Logger
	secureCookie bool
}

func NewAuthHandler(auth service.AuthServiceInterface, logger *slog.Logger, secureCookie bool) *AuthHandler {
	return &AuthHandler{auth: auth, logger: loggerOrDefault(logger), secureCookie: secureCookie}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	UserID    uint      `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, r, "invalid JSON body")
		return
	}
	res, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		observability.Audit(r, "login", "outcome", "rejected", "username", req.Username)
		writeError(w, r, h.logger, err)
		return
	}
	security.SetSessionCookie(w, res.Token, time.Until(res.ExpiresAt), h.secureCookie)
	observability.Audit(r, "login", "outcome", "success", "user_id", res.UserID)
	response.JSON(w, r, http.StatusOK, loginResponse{UserID: res.UserID, ExpiresAt: res.ExpiresAt})
}

// VerifyToken reports whether the caller's token is still usable: 400 when
// absent, 401 when forged, expired or mismatched, 404 when the signature is
// fine but the session record is gone.
func (h *AuthHandler) VerifyToken(w http.ResponseWriter, r *http.Request) {
	raw := middleware.SessionToken(r)
	if raw == "" {
		badRequest(w, r, "missing session token")
		return
	}
	v, err := h.auth.Verify(r.Context(), raw)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	switch v.Status {
	case service.VerifyValid:
		response.JSON(w, r, http.StatusOK, v.Identity)
	case service.VerifyRevoked:
		h.logger.DebugContext(r.Context(), "session record absent")
		response.Error(w, r, response.CodeNotFound, "session not found", nil)
	default:
		h.logger.DebugContext(r.Context(), "session rejected", "status", string(v.Status))
		response.Error(w, r, response.CodeUnauthorized, "invalid session", nil)
	}
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFromContext(r.Context())
	if err := h.auth.Logout(r.Context(), middleware.TokenFromContext(r.Context()), identity); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	security.ClearSessionCookie(w, h.secureCookie)
	observability.Audit(r, "logout", "scope", "current", "user_id", identity.UserID)
	response.JSON(w, r, http.StatusOK, map[string]any{"revoked": 1})
}

func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFromContext(r.Context())
	n, err := h.auth.LogoutAll(r.Context(), identity)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	security.ClearSessionCookie(w, h.secureCookie)
	observability.Audit(r, "logout", "scope", "all", "user_id", identity.UserID, "revoked", n)
	response.JSON(w, r, http.StatusOK, map[string]any{"revoked": n})
}
