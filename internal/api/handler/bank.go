package handler

import (
	"net/http"

	"github.com/xcellar/xcellar/internal/service"
	"github.com/xcellar/xcellar/internal/support/i18n"
)

// BankHandler serves the bank directory and account resolution endpoints.
type BankHandler struct {
	banks service.BankService
	i18n  *i18n.Manager
}

func NewBankHandler(banks service.BankService, i18nMgr *i18n.Manager) *BankHandler {
	return &BankHandler{banks: banks, i18n: i18nMgr}
}

func (h *BankHandler) Banks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	banks, err := h.banks.Banks(ctx)
	if err != nil {
		respondServiceError(ctx, w, err, h.i18n)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, "success.ok", banks, h.i18n)
}

type verifyAccountRequest struct {
	AccountNumber string `json:"account_number"`
	BankCode      string `json:"bank_code"`
}

func (h *BankHandler) VerifyAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var payload verifyAccountRequest
	if err := decodeJSON(r, &payload); err != nil || payload.AccountNumber == "" || payload.BankCode == "" {
		respondError(ctx, w, http.StatusBadRequest, "error.bad_request", h.i18n)
		return
	}
	account, err := h.banks.VerifyAccount(ctx, payload.AccountNumber, payload.BankCode)
	if err != nil {
		respondServiceError(ctx, w, err, h.i18n)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, "success.ok", account, h.i18n)
}
