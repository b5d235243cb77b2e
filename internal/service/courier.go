package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xcellar/xcellar/internal/repository"
)

var vehicleTypes = map[string]bool{
	"BICYCLE":    true,
	"MOTORCYCLE": true,
	"CAR":        true,
	"VAN":        true,
	"TRUCK":      true,
}

// VehicleInput creates or patches a courier vehicle. Nil pointers on the
// patch path leave the field alone.
type VehicleInput struct {
	VehicleType        *string
	OwnershipCondition *string
	Manufacturer       *string
	Model              *string
	YearOfManufacture  *int64
	LicensePlate       *string
	RegistrationProof  *string
	InsuranceProof     *string
	RoadWorthiness     *string
}

// CourierDashboard aggregates what the courier app's home screen shows.
type CourierDashboard struct {
	Profile      *repository.CourierProfile
	StatusCounts map[string]int64
	Deliveries   int64
	BalanceKobo  int64
}

// CourierService manages courier vehicles, licences and the dashboard.
type CourierService interface {
	Vehicles(ctx context.Context, courierID int64) ([]*repository.Vehicle, error)
	Vehicle(ctx context.Context, courierID, vehicleID int64) (*repository.Vehicle, error)
	AddVehicle(ctx context.Context, courierID int64, input VehicleInput) (*repository.Vehicle, error)
	UpdateVehicle(ctx context.Context, courierID, vehicleID int64, input VehicleInput) (*repository.Vehicle, error)
	RemoveVehicle(ctx context.Context, courierID, vehicleID int64) error
	ActivateVehicle(ctx context.Context, courierID, vehicleID int64) (*repository.Vehicle, error)
	License(ctx context.Context, courierID int64) (*repository.DriverLicense, error)
	SaveLicense(ctx context.Context, license *repository.DriverLicense) (*repository.DriverLicense, error)
	Dashboard(ctx context.Context, courierID int64) (*CourierDashboard, error)
}

type courierService struct {
	vehicles repository.VehicleRepository
	licenses repository.DriverLicenseRepository
	profiles repository.ProfileRepository
	orders   repository.OrderRepository
	users    repository.UserRepository
}

// NewCourierService assembles vehicle and dashboard flows.
func NewCourierService(
	vehicles repository.VehicleRepository,
	licenses repository.DriverLicenseRepository,
	profiles repository.ProfileRepository,
	orders repository.OrderRepository,
	users repository.UserRepository,
) CourierService {
	return &courierService{
		vehicles: vehicles,
		licenses: licenses,
		profiles: profiles,
		orders:   orders,
		users:    users,
	}
}

func (s *courierService) Vehicles(ctx context.Context, courierID int64) ([]*repository.Vehicle, error) {
	return s.vehicles.List(ctx, repository.VehicleFilter{CourierID: courierID})
}

func (s *courierService) Vehicle(ctx context.Context, courierID, vehicleID int64) (*repository.Vehicle, error) {
	vehicle, err := s.vehicles.FindByID(ctx, vehicleID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if vehicle.CourierID != courierID {
		return nil, ErrNotFound
	}
	return vehicle, nil
}

func (s *courierService) AddVehicle(ctx context.Context, courierID int64, input VehicleInput) (*repository.Vehicle, error) {
	if input.VehicleType == nil || input.LicensePlate == nil {
		return nil, fmt.Errorf("%w: vehicle type and licence plate are required", ErrValidation)
	}
	vehicleType := strings.ToUpper(strings.TrimSpace(*input.VehicleType))
	if !vehicleTypes[vehicleType] {
		return nil, fmt.Errorf("%w: unknown vehicle type %q", ErrValidation, vehicleType)
	}
	plate := normalizePlate(*input.LicensePlate)
	if plate == "" {
		return nil, fmt.Errorf("%w: licence plate is required", ErrValidation)
	}
	if err := s.ensurePlateFree(ctx, plate, 0); err != nil {
		return nil, err
	}

	vehicle := &repository.Vehicle{
		CourierID:    courierID,
		VehicleType:  vehicleType,
		LicensePlate: plate,
		IsActive:     true,
	}
	applyVehiclePatch(vehicle, input)

	created, err := s.vehicles.Create(ctx, vehicle)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicatePlate
		}
		return nil, fmt.Errorf("create vehicle: %w", err)
	}
	return created, nil
}

func (s *courierService) UpdateVehicle(ctx context.Context, courierID, vehicleID int64, input VehicleInput) (*repository.Vehicle, error) {
	vehicle, err := s.Vehicle(ctx, courierID, vehicleID)
	if err != nil {
		return nil, err
	}

	if input.VehicleType != nil {
		vehicleType := strings.ToUpper(strings.TrimSpace(*input.VehicleType))
		if !vehicleTypes[vehicleType] {
			return nil, fmt.Errorf("%w: unknown vehicle type %q", ErrValidation, vehicleType)
		}
		vehicle.VehicleType = vehicleType
	}
	if input.LicensePlate != nil {
		plate := normalizePlate(*input.LicensePlate)
		if plate != vehicle.LicensePlate {
			if err := s.ensurePlateFree(ctx, plate, vehicle.ID); err != nil {
				return nil, err
			}
			vehicle.LicensePlate = plate
		}
	}
	applyVehiclePatch(vehicle, input)

	if err := s.vehicles.Save(ctx, vehicle); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicatePlate
		}
		return nil, fmt.Errorf("save vehicle: %w", err)
	}
	return vehicle, nil
}

func applyVehiclePatch(vehicle *repository.Vehicle, input VehicleInput) {
	if input.OwnershipCondition != nil {
		vehicle.OwnershipCondition = strings.ToUpper(strings.TrimSpace(*input.OwnershipCondition))
	}
	if input.Manufacturer != nil {
		vehicle.Manufacturer = sanitizeText(*input.Manufacturer)
	}
	if input.Model != nil {
		vehicle.Model = sanitizeText(*input.Model)
	}
	if input.YearOfManufacture != nil {
		vehicle.YearOfManufacture = *input.YearOfManufacture
	}
	if input.RegistrationProof != nil {
		vehicle.RegistrationProofURL = input.RegistrationProof
	}
	if input.InsuranceProof != nil {
		vehicle.InsuranceProofURL = input.InsuranceProof
	}
	if input.RoadWorthiness != nil {
		vehicle.RoadWorthinessProofURL = input.RoadWorthiness
	}
}

func (s *courierService) ensurePlateFree(ctx context.Context, plate string, exceptID int64) error {
	existing, err := s.vehicles.FindByPlate(ctx, plate)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return err
	}
	if existing.IsActive && existing.ID != exceptID {
		return ErrDuplicatePlate
	}
	return nil
}

// RemoveVehicle soft deletes: the row stays but drops out of listings and
// frees its plate for reuse.
func (s *courierService) RemoveVehicle(ctx context.Context, courierID, vehicleID int64) error {
	vehicle, err := s.Vehicle(ctx, courierID, vehicleID)
	if err != nil {
		return err
	}
	return s.vehicles.SetActive(ctx, vehicle.ID, false, time.Now().Unix())
}

// ActivateVehicle marks one vehicle active and deactivates the courier's
// others, so at most one vehicle is in service at a time.
func (s *courierService) ActivateVehicle(ctx context.Context, courierID, vehicleID int64) (*repository.Vehicle, error) {
	vehicle, err := s.Vehicle(ctx, courierID, vehicleID)
	if err != nil {
		return nil, err
	}

	now := time.Now().Unix()
	others, err := s.vehicles.List(ctx, repository.VehicleFilter{CourierID: courierID})
	if err != nil {
		return nil, err
	}
	for _, other := range others {
		if other.ID != vehicle.ID && other.IsActive {
			if err := s.vehicles.SetActive(ctx, other.ID, false, now); err != nil {
				return nil, err
			}
		}
	}
	if err := s.vehicles.SetActive(ctx, vehicle.ID, true, now); err != nil {
		return nil, err
	}
	vehicle.IsActive = true
	return vehicle, nil
}

func (s *courierService) License(ctx context.Context, courierID int64) (*repository.DriverLicense, error) {
	license, err := s.licenses.FindByCourier(ctx, courierID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return license, nil
}

func (s *courierService) SaveLicense(ctx context.Context, license *repository.DriverLicense) (*repository.DriverLicense, error) {
	if license.LicenseNumber == "" {
		return nil, fmt.Errorf("%w: licence number is required", ErrValidation)
	}
	return s.licenses.Upsert(ctx, license)
}

func (s *courierService) Dashboard(ctx context.Context, courierID int64) (*CourierDashboard, error) {
	profile, err := s.profiles.CourierProfileByUser(ctx, courierID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	counts, err := s.orders.StatusCountsForCourier(ctx, courierID)
	if err != nil {
		return nil, err
	}
	balance, err := s.users.Balance(ctx, courierID)
	if err != nil {
		return nil, err
	}
	return &CourierDashboard{
		Profile:      profile,
		StatusCounts: counts,
		Deliveries:   counts[repository.OrderDelivered],
		BalanceKobo:  balance,
	}, nil
}

func normalizePlate(plate string) string {
	return strings.ToUpper(strings.Join(strings.Fields(plate), ""))
}
