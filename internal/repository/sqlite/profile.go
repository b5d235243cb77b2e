package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/xcellar/xcellar/internal/repository"
)

// profileRepo owns the user_profiles and courier_profiles tables.
type profileRepo struct {
	db *sql.DB
}

const userProfileColumns = `id, user_id, full_name, address, profile_image_url, created_at, updated_at`

const courierProfileColumns = `id, user_id, full_name, license_number, vehicle_type, vehicle_registration,
		is_available, current_location, address, profile_image_url, bvn, bank_account_number, bank_code,
		bank_name, account_name, approval_status, approval_notes, approved_at, approved_by_id, created_at, updated_at`

func (r *profileRepo) UserProfileByUser(ctx context.Context, userID int64) (*repository.UserProfile, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+userProfileColumns+" FROM user_profiles WHERE user_id = ?", userID)
	return scanUserProfile(row)
}

func (r *profileRepo) CourierProfileByUser(ctx context.Context, userID int64) (*repository.CourierProfile, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+courierProfileColumns+" FROM courier_profiles WHERE user_id = ?", userID)
	return scanCourierProfile(row)
}

func (r *profileRepo) CreateUserProfile(ctx context.Context, profile *repository.UserProfile) (*repository.UserProfile, error) {
	const stmt = `INSERT INTO user_profiles(user_id, full_name, address, profile_image_url, created_at, updated_at)
		VALUES(?, ?, ?, ?, ?, ?)`
	now := time.Now().Unix()
	profile.CreatedAt = now
	profile.UpdatedAt = now

	res, err := r.db.ExecContext(ctx, stmt,
		profile.UserID,
		profile.FullName,
		nullableStr(profile.Address),
		nullableStr(profile.ProfileImageURL),
		profile.CreatedAt,
		profile.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, repository.ErrDuplicate
		}
		return nil, err
	}
	if id, err := res.LastInsertId(); err == nil {
		profile.ID = id
	}
	return profile, nil
}

func (r *profileRepo) CreateCourierProfile(ctx context.Context, profile *repository.CourierProfile) (*repository.CourierProfile, error) {
	const stmt = `INSERT INTO courier_profiles(
		user_id,
		full_name,
		license_number,
		vehicle_type,
		vehicle_registration,
		is_available,
		current_location,
		address,
		profile_image_url,
		bvn,
		bank_account_number,
		bank_code,
		bank_name,
		account_name,
		approval_status,
		approval_notes,
		approved_at,
		approved_by_id,
		created_at,
		updated_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now().Unix()
	profile.CreatedAt = now
	profile.UpdatedAt = now
	if profile.ApprovalStatus == "" {
		profile.ApprovalStatus = repository.ApprovalPending
	}

	res, err := r.db.ExecContext(ctx, stmt,
		profile.UserID,
		profile.FullName,
		nullableStr(profile.LicenseNumber),
		nullableStr(profile.VehicleType),
		nullableStr(profile.VehicleRegistration),
		boolToInt(profile.IsAvailable),
		encodeJSON(profile.CurrentLocation),
		nullableStr(profile.Address),
		nullableStr(profile.ProfileImageURL),
		nullableStr(profile.BVN),
		nullableStr(profile.BankAccountNumber),
		nullableStr(profile.BankCode),
		nullableStr(profile.BankName),
		nullableStr(profile.AccountName),
		profile.ApprovalStatus,
		nullableStr(profile.ApprovalNotes),
		nullableInt(profile.ApprovedAt),
		nullableInt(profile.ApprovedByID),
		profile.CreatedAt,
		profile.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, repository.ErrDuplicate
		}
		return nil, err
	}
	if id, err := res.LastInsertId(); err == nil {
		profile.ID = id
	}
	return profile, nil
}

func (r *profileRepo) SaveUserProfile(ctx context.Context, profile *repository.UserProfile) error {
	const stmt = `UPDATE user_profiles SET
		full_name = ?,
		address = ?,
		profile_image_url = ?,
		updated_at = ?
		WHERE id = ?`
	profile.UpdatedAt = time.Now().Unix()
	res, err := r.db.ExecContext(ctx, stmt,
		profile.FullName,
		nullableStr(profile.Address),
		nullableStr(profile.ProfileImageURL),
		profile.UpdatedAt,
		profile.ID,
	)
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

func (r *profileRepo) SaveCourierProfile(ctx context.Context, profile *repository.CourierProfile) error {
	const stmt = `UPDATE courier_profiles SET
		full_name = ?,
		license_number = ?,
		vehicle_type = ?,
		vehicle_registration = ?,
		is_available = ?,
		current_location = ?,
		address = ?,
		profile_image_url = ?,
		bvn = ?,
		bank_account_number = ?,
		bank_code = ?,
		bank_name = ?,
		account_name = ?,
		approval_status = ?,
		approval_notes = ?,
		approved_at = ?,
		approved_by_id = ?,
		updated_at = ?
		WHERE id = ?`
	profile.UpdatedAt = time.Now().Unix()
	res, err := r.db.ExecContext(ctx, stmt,
		profile.FullName,
		nullableStr(profile.LicenseNumber),
		nullableStr(profile.VehicleType),
		nullableStr(profile.VehicleRegistration),
		boolToInt(profile.IsAvailable),
		encodeJSON(profile.CurrentLocation),
		nullableStr(profile.Address),
		nullableStr(profile.ProfileImageURL),
		nullableStr(profile.BVN),
		nullableStr(profile.BankAccountNumber),
		nullableStr(profile.BankCode),
		nullableStr(profile.BankName),
		nullableStr(profile.AccountName),
		profile.ApprovalStatus,
		nullableStr(profile.ApprovalNotes),
		nullableInt(profile.ApprovedAt),
		nullableInt(profile.ApprovedByID),
		profile.UpdatedAt,
		profile.ID,
	)
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

func (r *profileRepo) SetCourierAvailability(ctx context.Context, userID int64, available bool, at int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE courier_profiles SET is_available = ?, updated_at = ? WHERE user_id = ?`,
		boolToInt(available), at, userID)
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

type profileScanner interface {
	Scan(dest ...any) error
}

func scanUserProfile(row profileScanner) (*repository.UserProfile, error) {
	var p repository.UserProfile
	var address, imageURL sql.NullString

	if err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.FullName,
		&address,
		&imageURL,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	p.Address = nullableStrPtr(address)
	p.ProfileImageURL = nullableStrPtr(imageURL)
	return &p, nil
}

func scanCourierProfile(row profileScanner) (*repository.CourierProfile, error) {
	var p repository.CourierProfile
	var license, vehicleType, vehicleReg, location, address, imageURL sql.NullString
	var bvn, acctNo, bankCode, bankName, acctName, notes sql.NullString
	var approvedAt, approvedBy sql.NullInt64

	if err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.FullName,
		&license,
		&vehicleType,
		&vehicleReg,
		&p.IsAvailable,
		&location,
		&address,
		&imageURL,
		&bvn,
		&acctNo,
		&bankCode,
		&bankName,
		&acctName,
		&p.ApprovalStatus,
		&notes,
		&approvedAt,
		&approvedBy,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	p.LicenseNumber = nullableStrPtr(license)
	p.VehicleType = nullableStrPtr(vehicleType)
	p.VehicleRegistration = nullableStrPtr(vehicleReg)
	p.CurrentLocation = decodeJSON(location)
	p.Address = nullableStrPtr(address)
	p.ProfileImageURL = nullableStrPtr(imageURL)
	p.BVN = nullableStrPtr(bvn)
	p.BankAccountNumber = nullableStrPtr(acctNo)
	p.BankCode = nullableStrPtr(bankCode)
	p.BankName = nullableStrPtr(bankName)
	p.AccountName = nullableStrPtr(acctName)
	p.ApprovalNotes = nullableStrPtr(notes)
	p.ApprovedAt = nullableIntPtr(approvedAt)
	p.ApprovedByID = nullableIntPtr(approvedBy)
	return &p, nil
}
