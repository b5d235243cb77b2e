package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/xcellar/xcellar/internal/api/requestctx"
	"github.com/xcellar/xcellar/internal/repository"
	"github.com/xcellar/xcellar/internal/service"
	"github.com/xcellar/xcellar/internal/support/i18n"
)

// PaymentHandler runs the wallet endpoints plus the provider webhook.
type PaymentHandler struct {
	payments service.PaymentService
	webhooks service.WebhookService
	i18n     *i18n.Manager
}

func NewPaymentHandler(payments service.PaymentService, webhooks service.WebhookService, i18nMgr *i18n.Manager) *PaymentHandler {
	return &PaymentHandler{payments: payments, webhooks: webhooks, i18n: i18nMgr}
}

func (h *PaymentHandler) Balance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := requestctx.UserFromContext(ctx)
	balance, err := h.payments.Balance(ctx, claims.UserID)
	if err != nil {
		respondServiceError(ctx, w, err, h.i18n)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, "success.ok", map[string]any{
		"balance":  naira(balance),
		"currency": "NGN",
	}, h.i18n)
}

type initializeRequest struct {
	Amount float64 `json:"amount"`
}

func (h *PaymentHandler) Initialize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := requestctx.UserFromContext(ctx)
	var payload initializeRequest
	if err := decodeJSON(r, &payload); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "error.bad_request", h.i18n)
		return
	}
	result, err := h.payments.InitializeDeposit(ctx, claims.UserID, kobo(payload.Amount))
	if err != nil {
		respondServiceError(ctx, w, err, h.i18n)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, "success.ok", map[string]string{
		"authorization_url": result.AuthorizationURL,
		"access_code":       result.AccessCode,
		"reference":         result.Reference,
	}, h.i18n)
}

type verifyRequest struct {
	Reference string `json:"reference"`
}

func (h *PaymentHandler) Verify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := requestctx.UserFromContext(ctx)
	var payload verifyRequest
	if err := decodeJSON(r, &payload); err != nil || payload.Reference == "" {
		respondError(ctx, w, http.StatusBadRequest, "error.bad_request", h.i18n)
		return
	}
	txn, err := h.payments.VerifyDeposit(ctx, claims.UserID, payload.Reference)
	if err != nil {
		respondServiceError(ctx, w, err, h.i18n)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, "success.ok", newTransactionView(txn), h.i18n)
}

func (h *PaymentHandler) CreateDVA(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := requestctx.UserFromContext(ctx)
	dva, err := h.payments.CreateDVA(ctx, claims.UserID)
	if err != nil {
		respondServiceError(ctx, w, err, h.i18n)
		return
	}
	respondSuccess(ctx, w, http.StatusCreated, "success.created", newDVAView(dva), h.i18n)
}

func (h *PaymentHandler) DVA(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := requestctx.UserFromContext(ctx)
	dva, err := h.payments.DVA(ctx, claims.UserID)
	if err != nil {
		respondServiceError(ctx, w, err, h.i18n)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, "success.ok", newDVAView(dva), h.i18n)
}

type recipientRequest struct {
	Name          string `json:"name"`
	AccountNumber string `json:"account_number"`
	BankCode      string `json:"bank_code"`
	BankName      string `json:"bank_name"`
}

func (h *PaymentHandler) CreateRecipient(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := requestctx.UserFromContext(ctx)
	var payload recipientRequest
	if err := decodeJSON(r, &payload); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "error.bad_request", h.i18n)
		return
	}
	recipient, err := h.payments.CreateRecipient(ctx, claims.UserID, service.RecipientInput{
		Name:          payload.Name,
		AccountNumber: payload.AccountNumber,
		BankCode:      payload.BankCode,
		BankName:      payload.BankName,
	})
	if err != nil {
		respondServiceError(ctx, w, err, h.i18n)
		return
	}
	respondSuccess(ctx, w, http.StatusCreated, "success.created", newRecipientView(recipient), h.i18n)
}

func (h *PaymentHandler) Recipients(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := requestctx.UserFromContext(ctx)
	recipients, err := h.payments.Recipients(ctx, claims.UserID)
	if err != nil {
		respondServiceError(ctx, w, err, h.i18n)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, "success.ok", newRecipientViews(recipients), h.i18n)
}

type transferRequest struct {
	RecipientID int64   `json:"recipient_id"`
	Amount      float64 `json:"amount"`
	Reason      string  `json:"reason"`
}

func (h *PaymentHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := requestctx.UserFromContext(ctx)
	var payload transferRequest
	if err := decodeJSON(r, &payload); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "error.bad_request", h.i18n)
		return
	}
	result, err := h.payments.Transfer(ctx, claims.UserID, payload.RecipientID, kobo(payload.Amount), payload.Reason)
	if err != nil {
		respondServiceError(ctx, w, err, h.i18n)
		return
	}
	data := map[string]any{
		"transaction": newTransactionView(result.Transaction),
		"status":      result.Status,
	}
	if result.TransferCode != "" {
		data["transfer_code"] = result.TransferCode
	}
	respondSuccess(ctx, w, http.StatusOK, "success.ok", data, h.i18n)
}

type finalizeRequest struct {
	TransferCode string `json:"transfer_code"`
	OTP          string `json:"otp"`
}

func (h *PaymentHandler) FinalizeTransfer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := requestctx.UserFromContext(ctx)
	var payload finalizeRequest
	if err := decodeJSON(r, &payload); err != nil || payload.TransferCode == "" {
		respondError(ctx, w, http.StatusBadRequest, "error.bad_request", h.i18n)
		return
	}
	if err := h.payments.FinalizeTransfer(ctx, claims.UserID, payload.TransferCode, payload.OTP); err != nil {
		respondServiceError(ctx, w, err, h.i18n)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, "success.ok", nil, h.i18n)
}

// Webhook receives provider events. The signature covers the raw body, so
// the body has to be read before any decoding.
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	body, err := io.ReadAll(r.Body)
	if err != nil {
		respondError(ctx, w, http.StatusBadRequest, "error.bad_request", h.i18n)
		return
	}
	defer r.Body.Close()

	signature := r.Header.Get("x-paystack-signature")
	outcome, err := h.webhooks.Process(ctx, body, signature)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			respondError(ctx, w, http.StatusBadRequest, "error.bad_request", h.i18n)
			return
		}
		respondServiceError(ctx, w, err, h.i18n)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": outcome})
}

func (h *PaymentHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := requestctx.UserFromContext(ctx)
	query := r.URL.Query()
	limit, offset := pagination(r)
	filter := repository.TransactionFilter{
		UserID: claims.UserID,
		Limit:  limit,
		Offset: offset,
	}
	if raw := query.Get("type"); raw != "" {
		filter.Type = &raw
	}
	if raw := query.Get("status"); raw != "" {
		filter.Status = &raw
	}
	if ts, ok := queryUnix(r, "start"); ok {
		filter.StartAt = &ts
	}
	if ts, ok := queryUnix(r, "end"); ok {
		filter.EndAt = &ts
	}
	txns, total, err := h.payments.Transactions(ctx, filter)
	if err != nil {
		respondServiceError(ctx, w, err, h.i18n)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, "success.ok", map[string]any{
		"transactions": newTransactionViews(txns),
		"total":        total,
	}, h.i18n)
}

func (h *PaymentHandler) Transaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := requestctx.UserFromContext(ctx)
	txnID, err := pathID(r, "id")
	if err != nil {
		respondError(ctx, w, http.StatusNotFound, "error.not_found", h.i18n)
		return
	}
	txn, err := h.payments.Transaction(ctx, claims.UserID, txnID)
	if err != nil {
		respondServiceError(ctx, w, err, h.i18n)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, "success.ok", newTransactionView(txn), h.i18n)
}

func (h *PaymentHandler) Notifications(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := requestctx.UserFromContext(ctx)
	query := r.URL.Query()
	limit, offset := pagination(r)
	filter := repository.NotificationFilter{
		UserID: claims.UserID,
		Limit:  limit,
		Offset: offset,
	}
	if raw := query.Get("is_read"); raw != "" {
		isRead := raw == "true" || raw == "1"
		filter.IsRead = &isRead
	}
	if raw := query.Get("type"); raw != "" {
		filter.Type = &raw
	}
	notifications, total, err := h.payments.Notifications(ctx, filter)
	if err != nil {
		respondServiceError(ctx, w, err, h.i18n)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, "success.ok", map[string]any{
		"notifications": newNotificationViews(notifications),
		"total":         total,
	}, h.i18n)
}

func (h *PaymentHandler) Notification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := requestctx.UserFromContext(ctx)
	noticeID, err := pathID(r, "id")
	if err != nil {
		respondError(ctx, w, http.StatusNotFound, "error.not_found", h.i18n)
		return
	}
	notification, err := h.payments.Notification(ctx, claims.UserID, noticeID)
	if err != nil {
		respondServiceError(ctx, w, err, h.i18n)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, "success.ok", newNotificationView(notification), h.i18n)
}

func (h *PaymentHandler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := requestctx.UserFromContext(ctx)
	noticeID, err := pathID(r, "id")
	if err != nil {
		respondError(ctx, w, http.StatusNotFound, "error.not_found", h.i18n)
		return
	}
	if err := h.payments.MarkNotificationRead(ctx, claims.UserID, noticeID); err != nil {
		respondServiceError(ctx, w, err, h.i18n)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, "success.updated", nil, h.i18n)
}

func (h *PaymentHandler) MarkAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := requestctx.UserFromContext(ctx)
	updated, err := h.payments.MarkAllNotificationsRead(ctx, claims.UserID)
	if err != nil {
		respondServiceError(ctx, w, err, h.i18n)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, "success.updated", map[string]int64{"updated": updated}, h.i18n)
}

// queryUnix parses a date filter, accepting unix seconds, a plain date or
// an RFC 3339 timestamp.
func queryUnix(r *http.Request, name string) (int64, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, false
	}
	if ts, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return ts, true
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t.Unix(), true
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.Unix(), true
	}
	return 0, false
}
