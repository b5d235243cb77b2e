package handler

import (
	"net/http"

	"github.com/xcellar/xcellar/internal/api/requestctx"
	"github.com/xcellar/xcellar/internal/service"
	"github.com/xcellar/xcellar/internal/support/i18n"
)

// HelpHandler serves the help desk and FAQ endpoints. Submission is open to
// anonymous callers; listing requires authentication.
type HelpHandler struct {
	help service.HelpDeskService
	faq  service.FAQService
	i18n *i18n.Manager
}

func NewHelpHandler(help service.HelpDeskService, faq service.FAQService, i18nMgr *i18n.Manager) *HelpHandler {
	return &HelpHandler{help: help, faq: faq, i18n: i18nMgr}
}

type helpRequestRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
	Subject     string `json:"subject"`
	Message     string `json:"message"`
	Category    string `json:"category"`
	Priority    string `json:"priority"`
}

func (h *HelpHandler) Submit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var payload helpRequestRequest
	if err := decodeJSON(r, &payload); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "error.bad_request", h.i18n)
		return
	}
	input := service.HelpRequestInput{
		Name:        payload.Name,
		Email:       payload.Email,
		PhoneNumber: payload.PhoneNumber,
		Subject:     payload.Subject,
		Message:     payload.Message,
		Category:    payload.Category,
		Priority:    payload.Priority,
	}
	if claims := requestctx.UserFromContext(ctx); claims.UserID != 0 {
		id := claims.UserID
		input.UserID = &id
		if input.Email == "" {
			input.Email = claims.Email
		}
	}
	request, err := h.help.Submit(ctx, input)
	if err != nil {
		respondServiceError(ctx, w, err, h.i18n)
		return
	}
	respondSuccess(ctx, w, http.StatusCreated, "success.created", newHelpRequestView(request), h.i18n)
}

func (h *HelpHandler) MyRequests(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := requestctx.UserFromContext(ctx)
	limit, offset := pagination(r)
	requests, total, err := h.help.MyRequests(ctx, claims.UserID, limit, offset)
	if err != nil {
		respondServiceError(ctx, w, err, h.i18n)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, "success.ok", map[string]any{
		"requests": newHelpRequestViews(requests),
		"total":    total,
	}, h.i18n)
}

func (h *HelpHandler) FAQs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var category *string
	if raw := r.URL.Query().Get("category"); raw != "" {
		category = &raw
	}
	faqs, err := h.faq.List(ctx, category)
	if err != nil {
		respondServiceError(ctx, w, err, h.i18n)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, "success.ok", newFAQViews(faqs), h.i18n)
}

func (h *HelpHandler) FAQ(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r, "id")
	if err != nil {
		respondError(ctx, w, http.StatusNotFound, "error.not_found", h.i18n)
		return
	}
	faq, err := h.faq.Get(ctx, id)
	if err != nil {
		respondServiceError(ctx, w, err, h.i18n)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, "success.ok", newFAQView(faq), h.i18n)
}
