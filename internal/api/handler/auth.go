package handler

import (
	"net/http"

	"github.com/xcellar/xcellar/internal/api/requestctx"
	"github.com/xcellar/xcellar/internal/service"
	"github.com/xcellar/xcellar/internal/support/i18n"
)

// AuthHandler exposes registration, login, token refresh, profile and
// password reset endpoints.
type AuthHandler struct {
	accounts  service.AccountService
	passwords service.PasswordResetService
	dashboard service.DashboardService
	i18n      *i18n.Manager
}

func NewAuthHandler(accounts service.AccountService, passwords service.PasswordResetService, dashboard service.DashboardService, i18nMgr *i18n.Manager) *AuthHandler {
	return &AuthHandler{accounts: accounts, passwords: passwords, dashboard: dashboard, i18n: i18nMgr}
}

type registerUserRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	PhoneNumber string `json:"phone_number"`
	FullName    string `json:"full_name"`
	Address     string `json:"address"`
}

type registerCourierRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	PhoneNumber string `json:"phone_number"`
	FullName    string `json:"full_name"`
	VehicleType string `json:"vehicle_type"`
	Address     string `json:"address"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type resetRequestRequest struct {
	Email string `json:"email"`
}

type resetConfirmRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

type profileUpdateRequest struct {
	FullName        *string `json:"full_name"`
	Address         *string `json:"address"`
	ProfileImageURL *string `json:"profile_image_url"`
	PhoneNumber     *string `json:"phone_number"`

	VehicleType       *string `json:"vehicle_type"`
	BVN               *string `json:"bvn"`
	BankAccountNumber *string `json:"bank_account_number"`
	BankCode          *string `json:"bank_code"`
	BankName          *string `json:"bank_name"`
	AccountName       *string `json:"account_name"`
	IsAvailable       *bool   `json:"is_available"`
}

func (h *AuthHandler) RegisterUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var payload registerUserRequest
	if err := decodeJSON(r, &payload); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "error.bad_request", h.i18n)
		return
	}
	result, err := h.accounts.RegisterCustomer(ctx, service.CustomerRegistration{
		Email:       payload.Email,
		Password:    payload.Password,
		PhoneNumber: payload.PhoneNumber,
		FullName:    payload.FullName,
		Address:     payload.Address,
	})
	if err != nil {
		respondServiceError(ctx, w, err, h.i18n)
		return
	}
	respondSuccess(ctx, w, http.StatusCreated, "success.created", authResultView(result), h.i18n)
}

func (h *AuthHandler) RegisterCourier(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var payload registerCourierRequest
	if err := decodeJSON(r, &payload); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "error.bad_request", h.i18n)
		return
	}
	result, err := h.accounts.RegisterCourier(ctx, service.CourierRegistration{
		Email:       payload.Email,
		Password:    payload.Password,
		PhoneNumber: payload.PhoneNumber,
		FullName:    payload.FullName,
		VehicleType: payload.VehicleType,
		Address:     payload.Address,
	})
	if err != nil {
		respondServiceError(ctx, w, err, h.i18n)
		return
	}
	respondSuccess(ctx, w, http.StatusCreated, "success.created", authResultView(result), h.i18n)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var payload loginRequest
	if err := decodeJSON(r, &payload); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "error.bad_request", h.i18n)
		return
	}
	if payload.Email == "" || payload.Password == "" {
		respondError(ctx, w, http.StatusBadRequest, "error.bad_request", h.i18n)
		return
	}
	result, err := h.accounts.Login(ctx, service.LoginInput{
		Email:     payload.Email,
		Password:  payload.Password,
		IP:        clientIP(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		respondServiceError(ctx, w, err, h.i18n)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, "success.ok", authResultView(result), h.i18n)
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var payload refreshRequest
	if err := decodeJSON(r, &payload); err != nil || payload.Refresh == "" {
		respondError(ctx, w, http.StatusBadRequest, "error.bad_request", h.i18n)
		return
	}
	pair, err := h.accounts.Refresh(ctx, payload.Refresh)
	if err != nil {
		respondServiceError(ctx, w, err, h.i18n)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, "success.ok", newTokenView(pair), h.i18n)
}

func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := requestctx.UserFromContext(ctx)
	view, err := h.accounts.Profile(ctx, claims.UserID)
	if err != nil {
		respondServiceError(ctx, w, err, h.i18n)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, "success.ok", newProfileView(view), h.i18n)
}

func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := requestctx.UserFromContext(ctx)
	var payload profileUpdateRequest
	if err := decodeJSON(r, &payload); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "error.bad_request", h.i18n)
		return
	}
	view, err := h.accounts.UpdateProfile(ctx, claims.UserID, service.ProfileUpdate{
		FullName:          payload.FullName,
		Address:           payload.Address,
		ProfileImageURL:   payload.ProfileImageURL,
		PhoneNumber:       payload.PhoneNumber,
		VehicleType:       payload.VehicleType,
		BVN:               payload.BVN,
		BankAccountNumber: payload.BankAccountNumber,
		BankCode:          payload.BankCode,
		BankName:          payload.BankName,
		AccountName:       payload.AccountName,
		IsAvailable:       payload.IsAvailable,
	})
	if err != nil {
		respondServiceError(ctx, w, err, h.i18n)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, "success.updated", newProfileView(view), h.i18n)
}

func (h *AuthHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var payload resetRequestRequest
	if err := decodeJSON(r, &payload); err != nil || payload.Email == "" {
		respondError(ctx, w, http.StatusBadRequest, "error.bad_request", h.i18n)
		return
	}
	result, err := h.passwords.RequestReset(ctx, payload.Email, clientIP(r))
	if err != nil {
		respondServiceError(ctx, w, err, h.i18n)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, "success.ok", map[string]string{
		"email": result.MaskedEmail,
	}, h.i18n)
}

func (h *AuthHandler) ConfirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var payload resetConfirmRequest
	if err := decodeJSON(r, &payload); err != nil || payload.Token == "" {
		respondError(ctx, w, http.StatusBadRequest, "error.bad_request", h.i18n)
		return
	}
	if err := h.passwords.ConfirmReset(ctx, payload.Token, payload.NewPassword, clientIP(r)); err != nil {
		respondServiceError(ctx, w, err, h.i18n)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, "success.updated", nil, h.i18n)
}

func (h *AuthHandler) UserDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := requestctx.UserFromContext(ctx)
	dash, err := h.dashboard.UserDashboard(ctx, claims.UserID)
	if err != nil {
		respondServiceError(ctx, w, err, h.i18n)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, "success.ok", map[string]any{
		"profile": &userProfileView{
			FullName:        dash.Profile.FullName,
			Address:         dash.Profile.Address,
			ProfileImageURL: dash.Profile.ProfileImageURL,
		},
		"order_counts":         dash.StatusCounts,
		"unread_notifications": dash.UnreadNotifications,
		"balance":              naira(dash.BalanceKobo),
	}, h.i18n)
}

func authResultView(result *service.AuthResult) map[string]any {
	if result == nil {
		return nil
	}
	return map[string]any{
		"user":   newUserView(result.User),
		"tokens": newTokenView(result.Tokens),
	}
}
