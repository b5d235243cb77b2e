package handler

import (
	"net/http"

	"github.com/xcellar/xcellar/internal/api/requestctx"
	"github.com/xcellar/xcellar/internal/repository"
	"github.com/xcellar/xcellar/internal/service"
	"github.com/xcellar/xcellar/internal/support/i18n"
)

// CourierHandler manages courier vehicles, the licence document and the
// courier dashboard.
type CourierHandler struct {
	couriers service.CourierService
	i18n     *i18n.Manager
}

func NewCourierHandler(couriers service.CourierService, i18nMgr *i18n.Manager) *CourierHandler {
	return &CourierHandler{couriers: couriers, i18n: i18nMgr}
}

type vehicleRequest struct {
	VehicleType        *string `json:"vehicle_type"`
	OwnershipCondition *string `json:"ownership_condition"`
	Manufacturer       *string `json:"manufacturer"`
	Model              *string `json:"model"`
	YearOfManufacture  *int64  `json:"year_of_manufacture"`
	LicensePlate       *string `json:"license_plate"`
	RegistrationProof  *string `json:"registration_proof_url"`
	InsuranceProof     *string `json:"insurance_proof_url"`
	RoadWorthiness     *string `json:"road_worthiness_proof_url"`
}

func (p *vehicleRequest) toInput() service.VehicleInput {
	return service.VehicleInput{
		VehicleType:        p.VehicleType,
		OwnershipCondition: p.OwnershipCondition,
		Manufacturer:       p.Manufacturer,
		Model:              p.Model,
		YearOfManufacture:  p.YearOfManufacture,
		LicensePlate:       p.LicensePlate,
		RegistrationProof:  p.RegistrationProof,
		InsuranceProof:     p.InsuranceProof,
		RoadWorthiness:     p.RoadWorthiness,
	}
}

func (h *CourierHandler) Vehicles(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := requestctx.UserFromContext(ctx)
	vehicles, err := h.couriers.Vehicles(ctx, claims.UserID)
	if err != nil {
		respondServiceError(ctx, w, err, h.i18n)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, "success.ok", newVehicleViews(vehicles), h.i18n)
}

func (h *CourierHandler) Vehicle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := requestctx.UserFromContext(ctx)
	vehicleID, err := pathID(r, "id")
	if err != nil {
		respondError(ctx, w, http.StatusNotFound, "error.not_found", h.i18n)
		return
	}
	vehicle, err := h.couriers.Vehicle(ctx, claims.UserID, vehicleID)
	if err != nil {
		respondServiceError(ctx, w, err, h.i18n)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, "success.ok", newVehicleView(vehicle), h.i18n)
}

func (h *CourierHandler) AddVehicle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := requestctx.UserFromContext(ctx)
	var payload vehicleRequest
	if err := decodeJSON(r, &payload); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "error.bad_request", h.i18n)
		return
	}
	vehicle, err := h.couriers.AddVehicle(ctx, claims.UserID, payload.toInput())
	if err != nil {
		respondServiceError(ctx, w, err, h.i18n)
		return
	}
	respondSuccess(ctx, w, http.StatusCreated, "success.created", newVehicleView(vehicle), h.i18n)
}

func (h *CourierHandler) UpdateVehicle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := requestctx.UserFromContext(ctx)
	vehicleID, err := pathID(r, "id")
	if err != nil {
		respondError(ctx, w, http.StatusNotFound, "error.not_found", h.i18n)
		return
	}
	var payload vehicleRequest
	if err := decodeJSON(r, &payload); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "error.bad_request", h.i18n)
		return
	}
	vehicle, err := h.couriers.UpdateVehicle(ctx, claims.UserID, vehicleID, payload.toInput())
	if err != nil {
		respondServiceError(ctx, w, err, h.i18n)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, "success.updated", newVehicleView(vehicle), h.i18n)
}

func (h *CourierHandler) RemoveVehicle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := requestctx.UserFromContext(ctx)
	vehicleID, err := pathID(r, "id")
	if err != nil {
		respondError(ctx, w, http.StatusNotFound, "error.not_found", h.i18n)
		return
	}
	if err := h.couriers.RemoveVehicle(ctx, claims.UserID, vehicleID); err != nil {
		respondServiceError(ctx, w, err, h.i18n)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, "success.deleted", nil, h.i18n)
}

func (h *CourierHandler) ActivateVehicle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := requestctx.UserFromContext(ctx)
	vehicleID, err := pathID(r, "id")
	if err != nil {
		respondError(ctx, w, http.StatusNotFound, "error.not_found", h.i18n)
		return
	}
	vehicle, err := h.couriers.ActivateVehicle(ctx, claims.UserID, vehicleID)
	if err != nil {
		respondServiceError(ctx, w, err, h.i18n)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, "success.updated", newVehicleView(vehicle), h.i18n)
}

func (h *CourierHandler) License(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := requestctx.UserFromContext(ctx)
	license, err := h.couriers.License(ctx, claims.UserID)
	if err != nil {
		respondServiceError(ctx, w, err, h.i18n)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, "success.ok", newLicenseView(license), h.i18n)
}

type licenseRequest struct {
	LicenseNumber          string  `json:"license_number"`
	IssueDate              *int64  `json:"issue_date"`
	ExpiryDate             *int64  `json:"expiry_date"`
	IssuingAuthority       string  `json:"issuing_authority"`
	FrontPageURL           *string `json:"front_page_url"`
	BackPageURL            *string `json:"back_page_url"`
	VehicleInsuranceURL    *string `json:"vehicle_insurance_url"`
	VehicleRegistrationURL *string `json:"vehicle_registration_url"`
}

func (h *CourierHandler) SaveLicense(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := requestctx.UserFromContext(ctx)
	var payload licenseRequest
	if err := decodeJSON(r, &payload); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "error.bad_request", h.i18n)
		return
	}
	license, err := h.couriers.SaveLicense(ctx, &repository.DriverLicense{
		CourierID:              claims.UserID,
		LicenseNumber:          payload.LicenseNumber,
		IssueDate:              payload.IssueDate,
		ExpiryDate:             payload.ExpiryDate,
		IssuingAuthority:       payload.IssuingAuthority,
		FrontPageURL:           payload.FrontPageURL,
		BackPageURL:            payload.BackPageURL,
		VehicleInsuranceURL:    payload.VehicleInsuranceURL,
		VehicleRegistrationURL: payload.VehicleRegistrationURL,
	})
	if err != nil {
		respondServiceError(ctx, w, err, h.i18n)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, "success.updated", newLicenseView(license), h.i18n)
}

func (h *CourierHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims := requestctx.UserFromContext(ctx)
	dash, err := h.couriers.Dashboard(ctx, claims.UserID)
	if err != nil {
		respondServiceError(ctx, w, err, h.i18n)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, "success.ok", map[string]any{
		"profile": &courierProfileView{
			FullName:          dash.Profile.FullName,
			VehicleType:       dash.Profile.VehicleType,
			LicenseNumber:     dash.Profile.LicenseNumber,
			IsAvailable:       dash.Profile.IsAvailable,
			Address:           dash.Profile.Address,
			ProfileImageURL:   dash.Profile.ProfileImageURL,
			BankAccountNumber: dash.Profile.BankAccountNumber,
			BankCode:          dash.Profile.BankCode,
			BankName:          dash.Profile.BankName,
			AccountName:       dash.Profile.AccountName,
			ApprovalStatus:    dash.Profile.ApprovalStatus,
			ApprovedAt:        dash.Profile.ApprovedAt,
		},
		"order_counts": dash.StatusCounts,
		"deliveries":   dash.Deliveries,
		"balance":      naira(dash.BalanceKobo),
	}, h.i18n)
}
