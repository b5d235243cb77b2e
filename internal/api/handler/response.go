package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"encoding/json"

	"github.com/xcellar/xcellar/internal/api/requestctx"
	"github.com/xcellar/xcellar/internal/service"
	"github.com/xcellar/xcellar/internal/support/i18n"
)

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Warn("failed to encode response JSON", "error", err)
	}
}

// respondSuccess writes the {"message": …, "data": …} envelope. The message
// is translated when it matches a catalog key.
func respondSuccess(ctx context.Context, w http.ResponseWriter, status int, message string, data any, translator *i18n.Manager) {
	resp := map[string]any{
		"message": translate(ctx, translator, message),
	}
	if data != nil {
		resp["data"] = data
	}
	respondJSON(w, status, resp)
}

// respondError writes the {"error": …} envelope.
func respondError(ctx context.Context, w http.ResponseWriter, status int, message string, translator *i18n.Manager) {
	respondJSON(w, status, map[string]any{
		"error": translate(ctx, translator, message),
	})
}

func translate(ctx context.Context, translator *i18n.Manager, message string) string {
	if translator == nil {
		return message
	}
	return translator.Translate(requestctx.GetLanguage(ctx), message)
}

// respondServiceError maps service sentinels onto HTTP statuses. Handlers
// call this for any error they do not translate themselves.
func respondServiceError(ctx context.Context, w http.ResponseWriter, err error, translator *i18n.Manager) {
	switch {
	case errors.Is(err, service.ErrNotFound),
		errors.Is(err, service.ErrProductUnavailable):
		respondError(ctx, w, http.StatusNotFound, "error.not_found", translator)

	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidRefreshToken),
		errors.Is(err, service.ErrUnauthorized),
		errors.Is(err, service.ErrInvalidSignature):
		respondError(ctx, w, http.StatusUnauthorized, "error.unauthorized", translator)

	case errors.Is(err, service.ErrAccountDisabled),
		errors.Is(err, service.ErrForbidden),
		errors.Is(err, service.ErrCourierNotApproved):
		respondError(ctx, w, http.StatusForbidden, "error.forbidden", translator)

	case errors.Is(err, service.ErrRateLimited),
		errors.Is(err, service.ErrCooldownActive),
		errors.Is(err, service.ErrTooManyAttempts):
		respondError(ctx, w, http.StatusTooManyRequests, "error.rate_limited", translator)

	case errors.Is(err, service.ErrProviderFailure):
		respondError(ctx, w, http.StatusInternalServerError, "error.service_unavailable", translator)

	case errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrInvalidEmail),
		errors.Is(err, service.ErrInvalidPhone),
		errors.Is(err, service.ErrInvalidPassword),
		errors.Is(err, service.ErrInvalidToken),
		errors.Is(err, service.ErrTokenExpired),
		errors.Is(err, service.ErrTokenUsed),
		errors.Is(err, service.ErrInvalidVerificationCode),
		errors.Is(err, service.ErrEmailExists),
		errors.Is(err, service.ErrPhoneExists),
		errors.Is(err, service.ErrCartEmpty),
		errors.Is(err, service.ErrInsufficientStock),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrOrderNotAvailable),
		errors.Is(err, service.ErrOrderNotCancellable),
		errors.Is(err, service.ErrPaymentRequired),
		errors.Is(err, service.ErrNoOffer),
		errors.Is(err, service.ErrDuplicatePlate),
		errors.Is(err, service.ErrInsufficientBalance),
		errors.Is(err, service.ErrAmountTooSmall),
		errors.Is(err, service.ErrDuplicateReference):
		respondJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})

	default:
		slog.ErrorContext(ctx, "unhandled service error", "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "error.internal_server_error", translator)
	}
}

func decodeJSON(r *http.Request, dest any) error {
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	return decoder.Decode(dest)
}

// naira converts kobo to the naira floats the API carries.
func naira(kobo int64) float64 { return float64(kobo) / 100 }

// kobo converts inbound naira amounts to the internal representation.
func kobo(nairaAmount float64) int64 { return int64(nairaAmount*100 + 0.5) }
