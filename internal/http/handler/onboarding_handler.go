package handler

import (
	"log/slog"
	"net/http"

	"github.com/dashkit/admin-dashboard/internal/http/response"
	"github.com/dashkit/admin-dashboard/internal/service"
)

type OnboardingHandler struct {
	onboarding *service.OnboardingService
	logger     *slog.Logger
}

func NewOnboardingHandler(onboarding *service.OnboardingService, logger *slog.Logger) *OnboardingHandler {
	return &OnboardingHandler{onboarding: onboarding, logger: loggerOrDefault(logger)}
}

func (h *OnboardingHandler) Status(w http.ResponseWriter, r *http.Request) {
	done, err := h.onboarding.Status(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]bool{"done": done})
}

func (h *OnboardingHandler) Complete(w http.ResponseWriter, r *http.Request) {
	var req service.OnboardingRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, r, "invalid JSON body")
		return
	}
	if err := h.onboarding.Complete(r.Context(), req); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]bool{"done": true})
}
