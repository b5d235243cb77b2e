package handler

import (
	"net/http"

	"github.com/xcellar/xcellar/internal/api/requestctx"
	"github.com/xcellar/xcellar/internal/service"
	"github.com/xcellar/xcellar/internal/support/i18n"
)

// OrderHandler runs the parcel order lifecycle endpoints for senders and
// couriers.
type OrderHandler struct {
	orders service.OrderService
	i18n   *i18n.Manager
}

func NewOrderHandler(orders service.OrderService, i18nMgr *i18n.Manager) *OrderHandler {
	return &OrderHandler{orders: orders, i18n: i18nMgr}
}

type orderCreateRequest struct {
	PickupAddress             string   `json:"pickup_address"`
	PickupLatitude            *float64 `json:"pickup_latitude"`
	PickupLongitude           *float64 `json:"pickup_longitude"`
	DropoffAddress            string   `json:"dropoff_address"`
	DropoffLatitude           *float64 `json:"dropoff_latitude"`
	DropoffLongitude          *float64 `json:"dropoff_longitude"`
	RecipientName             string   `json:"recipient_name"`
	RecipientEmail            string   `json:"recipient_email"`
	RecipientPhone            string   `json:"recipient_phone"`
	RecipientAlternatePhone   string   `json:"recipient_alternate_phone"`
	DeliveryInstructions      string   `json:"delivery_instructions"`
	RequireRecipientSignature bool     `json:"require_recipient_signature"`
	ParcelType                string   `json:"parcel_type"`
	ParcelDescription         string   `json:"parcel_description"`
	ParcelCondition           string   `json:"parcel_condition"`
	ParcelQuantity            int64    `json:"parcel_quantity"`
	ParcelWeightKG            float64  `json:"parcel_weight_kg"`
	ParcelWorth               float64  `json:"parcel_worth"`
	ParcelImages              []string `json:"parcel_images"`
	DeliveryFee               float64  `json:"delivery_fee"`
	ServiceCharge             float64  `json:"service_charge"`
	InsuranceFee              float64  `json:"insurance_fee"`
}

type statusUpdateRequest struct {
	Status    string   `json:"status"`
	Location  string   `json:"location"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Notes     string   `json:"notes"`
}

func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := requestctx.UserFromContext(ctx)
	var payload orderCreateRequest
	if err := decodeJSON(r, &payload); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "error.bad_request", h.i18n)
		return
	}
	order, err := h.orders.Create(ctx, claims.UserID, service.OrderInput{
		PickupAddress:             payload.PickupAddress,
		PickupLatitude:            payload.PickupLatitude,
		PickupLongitude:           payload.PickupLongitude,
		DropoffAddress:            payload.DropoffAddress,
		DropoffLatitude:           payload.DropoffLatitude,
		DropoffLongitude:          payload.DropoffLongitude,
		RecipientName:             payload.RecipientName,
		RecipientEmail:            payload.RecipientEmail,
		RecipientPhone:            payload.RecipientPhone,
		RecipientAlternatePhone:   payload.RecipientAlternatePhone,
		DeliveryInstructions:      payload.DeliveryInstructions,
		RequireRecipientSignature: payload.RequireRecipientSignature,
		ParcelType:                payload.ParcelType,
		ParcelDescription:         payload.ParcelDescription,
		ParcelCondition:           payload.ParcelCondition,
		ParcelQuantity:            payload.ParcelQuantity,
		ParcelWeightKG:            payload.ParcelWeightKG,
		ParcelWorthKobo:           kobo(payload.ParcelWorth),
		ParcelImages:              payload.ParcelImages,
		DeliveryFeeKobo:           kobo(payload.DeliveryFee),
		ServiceChargeKobo:         kobo(payload.ServiceCharge),
		InsuranceFeeKobo:          kobo(payload.InsuranceFee),
	})
	if err != nil {
		respondServiceError(ctx, w, err, h.i18n)
		return
	}
	respondSuccess(ctx, w, http.StatusCreated, "success.created", newOrderView(order), h.i18n)
}

func (h *OrderHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := requestctx.UserFromContext(ctx)
	orderID, err := pathID(r, "id")
	if err != nil {
		respondError(ctx, w, http.StatusNotFound, "error.not_found", h.i18n)
		return
	}
	order, err := h.orders.Confirm(ctx, claims.UserID, orderID)
	if err != nil {
		respondServiceError(ctx, w, err, h.i18n)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, "success.updated", newOrderView(order), h.i18n)
}

func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := requestctx.UserFromContext(ctx)
	limit, offset := pagination(r)
	var status *string
	if raw := r.URL.Query().Get("status"); raw != "" {
		status = &raw
	}
	orders, err := h.orders.List(ctx, claims.UserID, claims.UserType, status, limit, offset)
	if err != nil {
		respondServiceError(ctx, w, err, h.i18n)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, "success.ok", newOrderViews(orders), h.i18n)
}

func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := requestctx.UserFromContext(ctx)
	orderID, err := pathID(r, "id")
	if err != nil {
		respondError(ctx, w, http.StatusNotFound, "error.not_found", h.i18n)
		return
	}
	detail, err := h.orders.Get(ctx, claims.UserID, claims.UserType, orderID)
	if err != nil {
		respondServiceError(ctx, w, err, h.i18n)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, "success.ok", map[string]any{
		"order":    newOrderView(detail.Order),
		"tracking": newTrackingViews(detail.Tracking),
	}, h.i18n)
}

func (h *OrderHandler) Track(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := requestctx.UserFromContext(ctx)
	orderID, err := pathID(r, "id")
	if err != nil {
		respondError(ctx, w, http.StatusNotFound, "error.not_found", h.i18n)
		return
	}
	entries, err := h.orders.Track(ctx, claims.UserID, claims.UserType, orderID)
	if err != nil {
		respondServiceError(ctx, w, err, h.i18n)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, "success.ok", newTrackingViews(entries), h.i18n)
}

func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := requestctx.UserFromContext(ctx)
	orderID, err := pathID(r, "id")
	if err != nil {
		respondError(ctx, w, http.StatusNotFound, "error.not_found", h.i18n)
		return
	}
	order, err := h.orders.Cancel(ctx, claims.UserID, orderID)
	if err != nil {
		respondServiceError(ctx, w, err, h.i18n)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, "success.updated", newOrderView(order), h.i18n)
}

func (h *OrderHandler) Available(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := requestctx.UserFromContext(ctx)
	orders, err := h.orders.Available(ctx, claims.UserID)
	if err != nil {
		respondServiceError(ctx, w, err, h.i18n)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, "success.ok", newOrderViews(orders), h.i18n)
}

func (h *OrderHandler) Accept(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := requestctx.UserFromContext(ctx)
	orderID, err := pathID(r, "id")
	if err != nil {
		respondError(ctx, w, http.StatusNotFound, "error.not_found", h.i18n)
		return
	}
	order, err := h.orders.Accept(ctx, claims.UserID, orderID)
	if err != nil {
		respondServiceError(ctx, w, err, h.i18n)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, "success.updated", newOrderView(order), h.i18n)
}

func (h *OrderHandler) Reject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := requestctx.UserFromContext(ctx)
	orderID, err := pathID(r, "id")
	if err != nil {
		respondError(ctx, w, http.StatusNotFound, "error.not_found", h.i18n)
		return
	}
	if err := h.orders.Reject(ctx, claims.UserID, orderID); err != nil {
		respondServiceError(ctx, w, err, h.i18n)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, "success.updated", nil, h.i18n)
}

func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := requestctx.UserFromContext(ctx)
	orderID, err := pathID(r, "id")
	if err != nil {
		respondError(ctx, w, http.StatusNotFound, "error.not_found", h.i18n)
		return
	}
	var payload statusUpdateRequest
	if err := decodeJSON(r, &payload); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "error.bad_request", h.i18n)
		return
	}
	order, err := h.orders.UpdateStatus(ctx, claims.UserID, orderID, service.StatusUpdateInput{
		Status:    payload.Status,
		Location:  payload.Location,
		Latitude:  payload.Latitude,
		Longitude: payload.Longitude,
		Notes:     payload.Notes,
	})
	if err != nil {
		respondServiceError(ctx, w, err, h.i18n)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, "success.updated", newOrderView(order), h.i18n)
}
