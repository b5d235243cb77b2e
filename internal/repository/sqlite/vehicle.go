package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/xcellar/xcellar/internal/repository"
)

// vehicleRepo owns the vehicles table.
type vehicleRepo struct {
	db *sql.DB
}

const vehicleColumns = `id, courier_id, vehicle_type, ownership_condition, manufacturer, model,
		year_of_manufacture, license_plate, registration_proof_url, insurance_proof_url,
		road_worthiness_proof_url, is_active, created_at, updated_at`

func (r *vehicleRepo) List(ctx context.Context, filter repository.VehicleFilter) ([]*repository.Vehicle, error) {
	conds := []string{"courier_id = ?"}
	args := []any{filter.CourierID}

	if filter.VehicleType != nil {
		conds = append(conds, "vehicle_type = ?")
		args = append(args, *filter.VehicleType)
	}
	if filter.OwnershipCondition != nil {
		conds = append(conds, "ownership_condition = ?")
		args = append(args, *filter.OwnershipCondition)
	}
	if filter.IsActive != nil {
		conds = append(conds, "is_active = ?")
		args = append(args, boolToInt(*filter.IsActive))
	}
	if filter.Keyword != "" {
		like := "%" + filter.Keyword + "%"
		conds = append(conds, "(license_plate LIKE ? OR manufacturer LIKE ? OR model LIKE ?)")
		args = append(args, like, like, like)
	}

	query := "SELECT " + vehicleColumns + " FROM vehicles WHERE " + strings.Join(conds, " AND ") +
		" ORDER BY created_at DESC, id DESC"
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var vehicles []*repository.Vehicle
	for rows.Next() {
		vehicle, err := scanVehicle(rows)
		if err != nil {
			return nil, err
		}
		vehicles = append(vehicles, vehicle)
	}
	return vehicles, rows.Err()
}

func (r *vehicleRepo) FindByID(ctx context.Context, id int64) (*repository.Vehicle, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+vehicleColumns+" FROM vehicles WHERE id = ?", id)
	return scanVehicle(row)
}

func (r *vehicleRepo) FindByPlate(ctx context.Context, plate string) (*repository.Vehicle, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+vehicleColumns+" FROM vehicles WHERE license_plate = ?", plate)
	return scanVehicle(row)
}

func (r *vehicleRepo) Create(ctx context.Context, vehicle *repository.Vehicle) (*repository.Vehicle, error) {
	const stmt = `INSERT INTO vehicles(
		courier_id,
		vehicle_type,
		ownership_condition,
		manufacturer,
		model,
		year_of_manufacture,
		license_plate,
		registration_proof_url,
		insurance_proof_url,
		road_worthiness_proof_url,
		is_active,
		created_at,
		updated_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now().Unix()
	vehicle.CreatedAt = now
	vehicle.UpdatedAt = now

	res, err := r.db.ExecContext(ctx, stmt,
		vehicle.CourierID,
		vehicle.VehicleType,
		vehicle.OwnershipCondition,
		vehicle.Manufacturer,
		vehicle.Model,
		vehicle.YearOfManufacture,
		vehicle.LicensePlate,
		nullableStr(vehicle.RegistrationProofURL),
		nullableStr(vehicle.InsuranceProofURL),
		nullableStr(vehicle.RoadWorthinessProofURL),
		boolToInt(vehicle.IsActive),
		vehicle.CreatedAt,
		vehicle.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, repository.ErrDuplicate
		}
		return nil, err
	}
	if id, err := res.LastInsertId(); err == nil {
		vehicle.ID = id
	}
	return vehicle, nil
}

func (r *vehicleRepo) Save(ctx context.Context, vehicle *repository.Vehicle) error {
	const stmt = `UPDATE vehicles SET
		vehicle_type = ?,
		ownership_condition = ?,
		manufacturer = ?,
		model = ?,
		year_of_manufacture = ?,
		license_plate = ?,
		registration_proof_url = ?,
		insurance_proof_url = ?,
		road_worthiness_proof_url = ?,
		is_active = ?,
		updated_at = ?
		WHERE id = ?`
	vehicle.UpdatedAt = time.Now().Unix()
	res, err := r.db.ExecContext(ctx, stmt,
		vehicle.VehicleType,
		vehicle.OwnershipCondition,
		vehicle.Manufacturer,
		vehicle.Model,
		vehicle.YearOfManufacture,
		vehicle.LicensePlate,
		nullableStr(vehicle.RegistrationProofURL),
		nullableStr(vehicle.InsuranceProofURL),
		nullableStr(vehicle.RoadWorthinessProofURL),
		boolToInt(vehicle.IsActive),
		vehicle.UpdatedAt,
		vehicle.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *vehicleRepo) SetActive(ctx context.Context, id int64, active bool, at int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE vehicles SET is_active = ?, updated_at = ? WHERE id = ?`, boolToInt(active), at, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

type vehicleScanner interface {
	Scan(dest ...any) error
}

func scanVehicle(row vehicleScanner) (*repository.Vehicle, error) {
	var v repository.Vehicle
	var regProof, insProof, roadProof sql.NullString

	if err := row.Scan(
		&v.ID,
		&v.CourierID,
		&v.VehicleType,
		&v.OwnershipCondition,
		&v.Manufacturer,
		&v.Model,
		&v.YearOfManufacture,
		&v.LicensePlate,
		&regProof,
		&insProof,
		&roadProof,
		&v.IsActive,
		&v.CreatedAt,
		&v.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	v.RegistrationProofURL = nullableStrPtr(regProof)
	v.InsuranceProofURL = nullableStrPtr(insProof)
	v.RoadWorthinessProofURL = nullableStrPtr(roadProof)
	return &v, nil
}
