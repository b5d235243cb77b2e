package handler

import (
	"errors"
	"net/http"

	"github.com/xcellar/xcellar/internal/api/requestctx"
	"github.com/xcellar/xcellar/internal/service"
	"github.com/xcellar/xcellar/internal/support/i18n"
)

// VerificationHandler runs the phone OTP endpoints. The provider owns code
// generation and checking; we surface cooldown and attempt budgets.
type VerificationHandler struct {
	verifications service.PhoneVerificationService
	accounts      service.AccountService
	i18n          *i18n.Manager
}

func NewVerificationHandler(verifications service.PhoneVerificationService, accounts service.AccountService, i18nMgr *i18n.Manager) *VerificationHandler {
	return &VerificationHandler{verifications: verifications, accounts: accounts, i18n: i18nMgr}
}

type sendOTPRequest struct {
	PhoneNumber string `json:"phone_number"`
	Method      string `json:"method"`
}

type verifyOTPRequest struct {
	PhoneNumber string `json:"phone_number"`
	Code        string `json:"code"`
}

func (h *VerificationHandler) SendOTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var payload sendOTPRequest
	if err := decodeJSON(r, &payload); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "error.bad_request", h.i18n)
		return
	}
	phone, err := h.resolvePhone(r, payload.PhoneNumber)
	if err != nil {
		respondServiceError(ctx, w, err, h.i18n)
		return
	}
	result, err := h.verifications.SendCode(ctx, phone, payload.Method)
	if err != nil {
		var cooldown *service.CooldownError
		if errors.As(err, &cooldown) {
			respondJSON(w, http.StatusTooManyRequests, map[string]any{
				"error":       cooldown.Error(),
				"retry_after": cooldown.RetryAfter,
			})
			return
		}
		respondServiceError(ctx, w, err, h.i18n)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, "success.ok", map[string]any{
		"phone_number": result.PhoneNumber,
		"method":       result.Method,
		"expires_at":   result.ExpiresAt,
	}, h.i18n)
}

func (h *VerificationHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var payload verifyOTPRequest
	if err := decodeJSON(r, &payload); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "error.bad_request", h.i18n)
		return
	}
	phone, err := h.resolvePhone(r, payload.PhoneNumber)
	if err != nil {
		respondServiceError(ctx, w, err, h.i18n)
		return
	}
	if err := h.verifications.CheckCode(ctx, phone, payload.Code); err != nil {
		var attempt *service.CodeAttemptError
		if errors.As(err, &attempt) {
			respondJSON(w, http.StatusBadRequest, map[string]any{
				"error":              attempt.Error(),
				"remaining_attempts": attempt.Remaining,
			})
			return
		}
		respondServiceError(ctx, w, err, h.i18n)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, "success.ok", map[string]any{
		"phone_number": phone,
		"verified":     true,
	}, h.i18n)
}

// resolvePhone falls back to the account's phone number when the request
// does not carry one.
func (h *VerificationHandler) resolvePhone(r *http.Request, phone string) (string, error) {
	if phone != "" {
		return phone, nil
	}
	claims := requestctx.UserFromContext(r.Context())
	profile, err := h.accounts.Profile(r.Context(), claims.UserID)
	if err != nil {
		return "", err
	}
	return profile.User.PhoneNumber, nil
}
