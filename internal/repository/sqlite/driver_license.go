package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/xcellar/xcellar/internal/repository"
)

// driverLicenseRepo owns the driver_licenses table, one row per courier.
type driverLicenseRepo struct {
	db *sql.DB
}

const driverLicenseColumns = `id, courier_id, license_number, issue_date, expiry_date, issuing_authority,
		front_page_url, back_page_url, vehicle_insurance_url, vehicle_registration_url, created_at, updated_at`

func (r *driverLicenseRepo) FindByCourier(ctx context.Context, courierID int64) (*repository.DriverLicense, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+driverLicenseColumns+" FROM driver_licenses WHERE courier_id = ?", courierID)
	return scanDriverLicense(row)
}

func (r *driverLicenseRepo) Upsert(ctx context.Context, license *repository.DriverLicense) (*repository.DriverLicense, error) {
	const stmt = `INSERT INTO driver_licenses(
		courier_id,
		license_number,
		issue_date,
		expiry_date,
		issuing_authority,
		front_page_url,
		back_page_url,
		vehicle_insurance_url,
		vehicle_registration_url,
		created_at,
		updated_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(courier_id) DO UPDATE SET
			license_number = excluded.license_number,
			issue_date = excluded.issue_date,
			expiry_date = excluded.expiry_date,
			issuing_authority = excluded.issuing_authority,
			front_page_url = excluded.front_page_url,
			back_page_url = excluded.back_page_url,
			vehicle_insurance_url = excluded.vehicle_insurance_url,
			vehicle_registration_url = excluded.vehicle_registration_url,
			updated_at = excluded.updated_at`
	now := time.Now().Unix()
	if license.CreatedAt == 0 {
		license.CreatedAt = now
	}
	license.UpdatedAt = now

	if _, err := r.db.ExecContext(ctx, stmt,
		license.CourierID,
		license.LicenseNumber,
		nullableInt(license.IssueDate),
		nullableInt(license.ExpiryDate),
		license.IssuingAuthority,
		nullableStr(license.FrontPageURL),
		nullableStr(license.BackPageURL),
		nullableStr(license.VehicleInsuranceURL),
		nullableStr(license.VehicleRegistrationURL),
		license.CreatedAt,
		license.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return r.FindByCourier(ctx, license.CourierID)
}

type driverLicenseScanner interface {
	Scan(dest ...any) error
}

func scanDriverLicense(row driverLicenseScanner) (*repository.DriverLicense, error) {
	var l repository.DriverLicense
	var issueDate, expiryDate sql.NullInt64
	var front, back, insurance, registration sql.NullString

	if err := row.Scan(
		&l.ID,
		&l.CourierID,
		&l.LicenseNumber,
		&issueDate,
		&expiryDate,
		&l.IssuingAuthority,
		&front,
		&back,
		&insurance,
		&registration,
		&l.CreatedAt,
		&l.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	l.IssueDate = nullableIntPtr(issueDate)
	l.ExpiryDate = nullableIntPtr(expiryDate)
	l.FrontPageURL = nullableStrPtr(front)
	l.BackPageURL = nullableStrPtr(back)
	l.VehicleInsuranceURL = nullableStrPtr(insurance)
	l.VehicleRegistrationURL = nullableStrPtr(registration)
	return &l, nil
}
