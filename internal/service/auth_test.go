package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"

	"github.com/xcellar/xcellar/internal/auth/token"
	"github.com/xcellar/xcellar/internal/migrations"
	"github.com/xcellar/xcellar/internal/repository"
	sqliterepo "github.com/xcellar/xcellar/internal/repository/sqlite"
	"github.com/xcellar/xcellar/internal/security"
	"github.com/xcellar/xcellar/internal/support/hash"
)

func newaccount(t *testing.T) (AccountService, *sqliterepo.Store) {
	t.Helper()
	db, err := sql.Open("sqlite", "file::memory:?_pragma=foreign_keys(1)")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, migrations.Up(db))

	store := sqliterepo.NewStore(db)
	hasher, err := hash.NewBcryptHasher(bcrypt.MinCost)
	require.NoError(t, err)
	tokens, err := token.NewManager(token.Options{SigningKey: []byte("test-key-0123456789")})
	require.NoError(t, err)

	svc := NewAccountService(
		store.Users(), store.Profiles(), store.LoginLogs(),
		hasher, tokens, security.NewLoggerRecorder(nil),
	)
	return svc, store
}

func customerInput() CustomerRegistration {
	return CustomerRegistration{
		Email:       "Jane@Example.com",
		Password:    "sw0rdfish!",
		PhoneNumber: "08031234567",
		FullName:    "Jane Doe",
		Address:     "12 Marina Rd, Lagos",
	}
}

func TestRegisterCustomer(t *testing.T) {
	svc, store := newaccount(t)

	result, err := svc.RegisterCustomer(context.Background(), customerInput())
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", result.User.Email)
	assert.Equal(t, "+2348031234567", result.User.PhoneNumber)
	assert.Equal(t, repository.UserTypeCustomer, result.User.UserType)
	assert.NotEmpty(t, result.Tokens.Access)
	assert.NotEmpty(t, result.Tokens.Refresh)
	// The plaintext never reaches storage.
	assert.NotEqual(t, "sw0rdfish!", result.User.Password)

	profile, err := store.Profiles().UserProfileByUser(context.Background(), result.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", profile.FullName)
}

func TestRegisterCustomerValidation(t *testing.T) {
	svc, _ := newaccount(t)
	ctx := context.Background()

	input := customerInput()
	input.Email = "not-an-email"
	_, err := svc.RegisterCustomer(ctx, input)
	assert.ErrorIs(t, err, ErrInvalidEmail)

	input = customerInput()
	input.Password = "short"
	_, err = svc.RegisterCustomer(ctx, input)
	assert.ErrorIs(t, err, ErrInvalidPassword)

	input = customerInput()
	input.PhoneNumber = "12345"
	_, err = svc.RegisterCustomer(ctx, input)
	assert.ErrorIs(t, err, ErrInvalidPhone)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newaccount(t)
	ctx := context.Background()

	_, err := svc.RegisterCustomer(ctx, customerInput())
	require.NoError(t, err)

	// Same address in a different case still collides.
	dup := customerInput()
	dup.Email = "JANE@EXAMPLE.COM"
	dup.PhoneNumber = "08099998888"
	_, err = svc.RegisterCustomer(ctx, dup)
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestRegisterDuplicatePhone(t *testing.T) {
	svc, _ := newaccount(t)
	ctx := context.Background()

	_, err := svc.RegisterCustomer(ctx, customerInput())
	require.NoError(t, err)

	dup := customerInput()
	dup.Email = "other@example.com"
	_, err = svc.RegisterCustomer(ctx, dup)
	assert.ErrorIs(t, err, ErrPhoneExists)
}

func TestRegisterCourierStartsPending(t *testing.T) {
	svc, store := newaccount(t)

	result, err := svc.RegisterCourier(context.Background(), CourierRegistration{
		Email:       "rider@example.com",
		Password:    "sw0rdfish!",
		PhoneNumber: "08022223333",
		FullName:    "Ade Rider",
		VehicleType: "MOTORCYCLE",
	})
	require.NoError(t, err)
	assert.Equal(t, repository.UserTypeCourier, result.User.UserType)

	profile, err := store.Profiles().CourierProfileByUser(context.Background(), result.User.ID)
	require.NoError(t, err)
	assert.Equal(t, repository.ApprovalPending, profile.ApprovalStatus)
	require.NotNil(t, profile.VehicleType)
	assert.Equal(t, "MOTORCYCLE", *profile.VehicleType)
}

func TestLogin(t *testing.T) {
	svc, store := newaccount(t)
	ctx := context.Background()
	_, err := svc.RegisterCustomer(ctx, customerInput())
	require.NoError(t, err)

	result, err := svc.Login(ctx, LoginInput{
		Email: "jane@example.com", Password: "sw0rdfish!",
		IP: "203.0.113.9", UserAgent: "test-agent",
	})
	require.NoError(t, err)
	assert.Equal(t, repository.UserTypeCustomer, result.Tokens.AccessClaims.UserType)

	logs, err := store.LoginLogs().ListRecent(ctx, 10)
	require.NoError(t, err)
	require.NotEmpty(t, logs)
	assert.True(t, logs[0].Success)
	assert.Equal(t, "203.0.113.9", logs[0].IP)
}

func TestLoginWrongPassword(t *testing.T) {
	svc, store := newaccount(t)
	ctx := context.Background()
	_, err := svc.RegisterCustomer(ctx, customerInput())
	require.NoError(t, err)

	_, err = svc.Login(ctx, LoginInput{Email: "jane@example.com", Password: "wrong-password"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// Unknown accounts get the same error so callers cannot probe emails.
	_, err = svc.Login(ctx, LoginInput{Email: "ghost@example.com", Password: "whatever"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	logs, err := store.LoginLogs().ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.False(t, logs[0].Success)
	assert.False(t, logs[1].Success)
}

func TestLoginDisabledAccount(t *testing.T) {
	svc, store := newaccount(t)
	ctx := context.Background()
	result, err := svc.RegisterCustomer(ctx, customerInput())
	require.NoError(t, err)

	result.User.IsActive = false
	require.NoError(t, store.Users().Save(ctx, result.User))

	_, err = svc.Login(ctx, LoginInput{Email: "jane@example.com", Password: "sw0rdfish!"})
	assert.ErrorIs(t, err, ErrAccountDisabled)
}

func TestRefreshTokens(t *testing.T) {
	svc, store := newaccount(t)
	ctx := context.Background()
	result, err := svc.RegisterCustomer(ctx, customerInput())
	require.NoError(t, err)

	pair, err := svc.Refresh(ctx, result.Tokens.Refresh)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.Access)

	// Access tokens are not exchangeable.
	_, err = svc.Refresh(ctx, result.Tokens.Access)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	// Disabling the account revokes refresh.
	result.User.IsActive = false
	require.NoError(t, store.Users().Save(ctx, result.User))
	_, err = svc.Refresh(ctx, result.Tokens.Refresh)
	assert.ErrorIs(t, err, ErrAccountDisabled)
}

func TestUpdateProfileBankEditResetsApproval(t *testing.T) {
	svc, store := newaccount(t)
	ctx := context.Background()

	result, err := svc.RegisterCourier(ctx, CourierRegistration{
		Email:    "rider@example.com",
		Password: "sw0rdfish!",
		FullName: "Ade Rider",
	})
	require.NoError(t, err)

	profile, err := store.Profiles().CourierProfileByUser(ctx, result.User.ID)
	require.NoError(t, err)
	profile.ApprovalStatus = repository.ApprovalApproved
	require.NoError(t, store.Profiles().SaveCourierProfile(ctx, profile))

	account := "0123456789"
	view, err := svc.UpdateProfile(ctx, result.User.ID, ProfileUpdate{BankAccountNumber: &account})
	require.NoError(t, err)
	assert.Equal(t, repository.ApprovalPending, view.CourierProfile.ApprovalStatus)

	// A name-only edit leaves the review alone.
	profile.ApprovalStatus = repository.ApprovalApproved
	require.NoError(t, store.Profiles().SaveCourierProfile(ctx, profile))
	name := "Adewale Rider"
	view, err = svc.UpdateProfile(ctx, result.User.ID, ProfileUpdate{FullName: &name})
	require.NoError(t, err)
	assert.Equal(t, repository.ApprovalApproved, view.CourierProfile.ApprovalStatus)
	assert.Equal(t, "Adewale Rider", view.CourierProfile.FullName)
}

func TestUpdateProfilePhoneResetsVerification(t *testing.T) {
	svc, store := newaccount(t)
	ctx := context.Background()

	result, err := svc.RegisterCustomer(ctx, customerInput())
	require.NoError(t, err)
	result.User.PhoneVerified = true
	require.NoError(t, store.Users().Save(ctx, result.User))

	phone := "08055556666"
	view, err := svc.UpdateProfile(ctx, result.User.ID, ProfileUpdate{PhoneNumber: &phone})
	require.NoError(t, err)
	assert.Equal(t, "+2348055556666", view.User.PhoneNumber)
	assert.False(t, view.User.PhoneVerified)
}
