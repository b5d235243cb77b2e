package handler

import (
	"net/http"

	"github.com/xcellar/xcellar/internal/service"
	"github.com/xcellar/xcellar/internal/support/i18n"
)

// AutomationHandler receives workflow callbacks. The route sits behind the
// shared automation token guard.
type AutomationHandler struct {
	automation service.AutomationService
	i18n       *i18n.Manager
}

func NewAutomationHandler(automation service.AutomationService, i18nMgr *i18n.Manager) *AutomationHandler {
	return &AutomationHandler{automation: automation, i18n: i18nMgr}
}

func (h *AutomationHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var action service.AutomationAction
	if err := decodeJSON(r, &action); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "error.bad_request", h.i18n)
		return
	}
	result, err := h.automation.Dispatch(ctx, action)
	if err != nil {
		respondServiceError(ctx, w, err, h.i18n)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, "success.ok", result, h.i18n)
}
