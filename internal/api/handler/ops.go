package handler

import (
	"net/http"

	"github.com/xcellar/xcellar/internal/service"
	"github.com/xcellar/xcellar/internal/support/i18n"
)

// OpsHandler serves operator endpoints behind the server token guard.
type OpsHandler struct {
	ops  service.OpsService
	i18n *i18n.Manager
}

func NewOpsHandler(ops service.OpsService, i18nMgr *i18n.Manager) *OpsHandler {
	return &OpsHandler{ops: ops, i18n: i18nMgr}
}

func (h *OpsHandler) System(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	snapshot, err := h.ops.System(ctx)
	if err != nil {
		respondServiceError(ctx, w, err, h.i18n)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, "success.ok", snapshot, h.i18n)
}

func (h *OpsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats, err := h.ops.Stats(ctx)
	if err != nil {
		respondServiceError(ctx, w, err, h.i18n)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, "success.ok", stats, h.i18n)
}
