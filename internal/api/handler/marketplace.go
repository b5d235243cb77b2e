package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/xcellar/xcellar/internal/api/requestctx"
	"github.com/xcellar/xcellar/internal/repository"
	"github.com/xcellar/xcellar/internal/service"
	"github.com/xcellar/xcellar/internal/support/i18n"
)

// MarketplaceHandler serves the catalog plus cart and checkout endpoints.
type MarketplaceHandler struct {
	marketplace service.MarketplaceService
	i18n        *i18n.Manager
}

func NewMarketplaceHandler(marketplace service.MarketplaceService, i18nMgr *i18n.Manager) *MarketplaceHandler {
	return &MarketplaceHandler{marketplace: marketplace, i18n: i18nMgr}
}

func (h *MarketplaceHandler) Categories(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	categories, err := h.marketplace.Categories(ctx)
	if err != nil {
		respondServiceError(ctx, w, err, h.i18n)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, "success.ok", newCategoryViews(categories), h.i18n)
}

func (h *MarketplaceHandler) Stores(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()
	limit, offset := pagination(r)
	filter := repository.ShopFilter{
		Keyword: query.Get("search"),
		Limit:   limit,
		Offset:  offset,
	}
	if raw := query.Get("category"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			filter.CategoryID = &id
		}
	}
	if raw := query.Get("verified"); raw != "" {
		verified := raw == "true" || raw == "1"
		filter.Verified = &verified
	}
	shops, total, err := h.marketplace.Shops(ctx, filter)
	if err != nil {
		respondServiceError(ctx, w, err, h.i18n)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, "success.ok", map[string]any{
		"stores": newShopViews(shops),
		"total":  total,
	}, h.i18n)
}

func (h *MarketplaceHandler) Store(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r, "id")
	if err != nil {
		respondError(ctx, w, http.StatusNotFound, "error.not_found", h.i18n)
		return
	}
	shop, err := h.marketplace.Shop(ctx, id)
	if err != nil {
		respondServiceError(ctx, w, err, h.i18n)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, "success.ok", newShopView(shop), h.i18n)
}

func (h *MarketplaceHandler) Products(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()
	limit, offset := pagination(r)
	filter := repository.ProductFilter{
		Keyword: query.Get("search"),
		Limit:   limit,
		Offset:  offset,
	}
	if raw := query.Get("store"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			filter.ShopID = &id
		}
	}
	if raw := query.Get("category"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			filter.CategoryID = &id
		}
	}
	if raw := query.Get("featured"); raw != "" {
		featured := raw == "true" || raw == "1"
		filter.Featured = &featured
	}
	products, total, err := h.marketplace.Products(ctx, filter)
	if err != nil {
		respondServiceError(ctx, w, err, h.i18n)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, "success.ok", map[string]any{
		"products": newProductViews(products),
		"total":    total,
	}, h.i18n)
}

func (h *MarketplaceHandler) Product(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r, "id")
	if err != nil {
		respondError(ctx, w, http.StatusNotFound, "error.not_found", h.i18n)
		return
	}
	product, err := h.marketplace.Product(ctx, id)
	if err != nil {
		respondServiceError(ctx, w, err, h.i18n)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, "success.ok", newProductView(product), h.i18n)
}

func (h *MarketplaceHandler) Cart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := requestctx.UserFromContext(ctx)
	cart, err := h.marketplace.Cart(ctx, claims.UserID)
	if err != nil {
		respondServiceError(ctx, w, err, h.i18n)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, "success.ok", newCartView(cart), h.i18n)
}

type cartAddRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

func (h *MarketplaceHandler) AddToCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := requestctx.UserFromContext(ctx)
	var payload cartAddRequest
	if err := decodeJSON(r, &payload); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "error.bad_request", h.i18n)
		return
	}
	cart, err := h.marketplace.AddToCart(ctx, claims.UserID, payload.ProductID, payload.Quantity)
	if err != nil {
		respondServiceError(ctx, w, err, h.i18n)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, "success.updated", newCartView(cart), h.i18n)
}

func (h *MarketplaceHandler) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := requestctx.UserFromContext(ctx)
	itemID, err := pathID(r, "itemID")
	if err != nil {
		respondError(ctx, w, http.StatusNotFound, "error.not_found", h.i18n)
		return
	}
	cart, err := h.marketplace.RemoveFromCart(ctx, claims.UserID, itemID)
	if err != nil {
		respondServiceError(ctx, w, err, h.i18n)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, "success.deleted", newCartView(cart), h.i18n)
}

type checkoutRequest struct {
	PickupAddress        string  `json:"pickup_address"`
	DropoffAddress       string  `json:"dropoff_address"`
	RecipientName        string  `json:"recipient_name"`
	RecipientPhone       string  `json:"recipient_phone"`
	RecipientEmail       string  `json:"recipient_email"`
	DeliveryInstructions string  `json:"delivery_instructions"`
	DeliveryFee          float64 `json:"delivery_fee"`
	ServiceCharge        float64 `json:"service_charge"`
	InsuranceFee         float64 `json:"insurance_fee"`
}

func (h *MarketplaceHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := requestctx.UserFromContext(ctx)
	var payload checkoutRequest
	if err := decodeJSON(r, &payload); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "error.bad_request", h.i18n)
		return
	}
	order, err := h.marketplace.Checkout(ctx, claims.UserID, service.CheckoutInput{
		PickupAddress:        payload.PickupAddress,
		DropoffAddress:       payload.DropoffAddress,
		RecipientName:        payload.RecipientName,
		RecipientPhone:       payload.RecipientPhone,
		RecipientEmail:       payload.RecipientEmail,
		DeliveryInstructions: payload.DeliveryInstructions,
		DeliveryFeeKobo:      kobo(payload.DeliveryFee),
		ServiceChargeKobo:    kobo(payload.ServiceCharge),
		InsuranceFeeKobo:     kobo(payload.InsuranceFee),
	})
	if err != nil {
		respondServiceError(ctx, w, err, h.i18n)
		return
	}
	respondSuccess(ctx, w, http.StatusCreated, "success.created", newOrderView(order), h.i18n)
}

// pathID parses a numeric chi URL parameter.
func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}

// pagination reads limit/offset query parameters with sane bounds.
func pagination(r *http.Request) (limit, offset int) {
	limit = 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed >= 0 {
			offset = parsed
		}
	}
	return limit, offset
}
