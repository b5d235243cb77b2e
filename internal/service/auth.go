package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xcellar/xcellar/internal/auth/token"
	"github.com/xcellar/xcellar/internal/repository"
	"github.com/xcellar/xcellar/internal/security"
	"github.com/xcellar/xcellar/internal/support/hash"
)

// CustomerRegistration is the request data for a customer signup.
type CustomerRegistration struct {
	Email       string
	Password    string
	PhoneNumber string
	FullName    string
	Address     string
}

// CourierRegistration is the request data for a courier signup. Couriers
// start unapproved and cannot take orders until reviewed.
type CourierRegistration struct {
	Email       string
	Password    string
	PhoneNumber string
	FullName    string
	VehicleType string
	Address     string
}

// LoginInput carries credentials plus request metadata for the login log.
type LoginInput struct {
	Email     string
	Password  string
	IP        string
	UserAgent string
}

// AuthResult bundles the account with its issued token pair.
type AuthResult struct {
	User   *repository.User
	Tokens *token.Pair
}

// ProfileView joins the account row with the type-specific profile.
type ProfileView struct {
	User           *repository.User
	UserProfile    *repository.UserProfile
	CourierProfile *repository.CourierProfile
}

// ProfileUpdate patches profile fields. Nil pointers leave a field alone.
type ProfileUpdate struct {
	FullName        *string
	Address         *string
	ProfileImageURL *string
	PhoneNumber     *string

	// Courier-only fields. Changing any bank detail or the BVN resets the
	// approval status to PENDING for re-review.
	VehicleType       *string
	BVN               *string
	BankAccountNumber *string
	BankCode          *string
	BankName          *string
	AccountName       *string
	IsAvailable       *bool
}

// AccountService handles registration, login and profile management.
type AccountService interface {
	RegisterCustomer(ctx context.Context, input CustomerRegistration) (*AuthResult, error)
	RegisterCourier(ctx context.Context, input CourierRegistration) (*AuthResult, error)
	Login(ctx context.Context, input LoginInput) (*AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (*token.Pair, error)
	Profile(ctx context.Context, userID int64) (*ProfileView, error)
	UpdateProfile(ctx context.Context, userID int64, patch ProfileUpdate) (*ProfileView, error)
}

type accountService struct {
	users    repository.UserRepository
	profiles repository.ProfileRepository
	logins   repository.LoginLogRepository
	hasher   hash.Hasher
	tokens   *token.Manager
	audit    security.Recorder
}

// NewAccountService assembles the repository-backed account flows.
func NewAccountService(
	users repository.UserRepository,
	profiles repository.ProfileRepository,
	logins repository.LoginLogRepository,
	hasher hash.Hasher,
	tokens *token.Manager,
	audit security.Recorder,
) AccountService {
	return &accountService{
		users:    users,
		profiles: profiles,
		logins:   logins,
		hasher:   hasher,
		tokens:   tokens,
		audit:    audit,
	}
}

func (s *accountService) RegisterCustomer(ctx context.Context, input CustomerRegistration) (*AuthResult, error) {
	user, err := s.createUser(ctx, input.Email, input.Password, input.PhoneNumber, repository.UserTypeCustomer)
	if err != nil {
		return nil, err
	}

	fullName := sanitizeText(input.FullName)
	profile := &repository.UserProfile{UserID: user.ID, FullName: fullName}
	if addr := sanitizeText(input.Address); addr != "" {
		profile.Address = &addr
	}
	if _, err := s.profiles.CreateUserProfile(ctx, profile); err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}

	return s.issueFor(user)
}

func (s *accountService) RegisterCourier(ctx context.Context, input CourierRegistration) (*AuthResult, error) {
	user, err := s.createUser(ctx, input.Email, input.Password, input.PhoneNumber, repository.UserTypeCourier)
	if err != nil {
		return nil, err
	}

	profile := &repository.CourierProfile{
		UserID:         user.ID,
		FullName:       sanitizeText(input.FullName),
		ApprovalStatus: repository.ApprovalPending,
	}
	if vt := strings.TrimSpace(input.VehicleType); vt != "" {
		profile.VehicleType = &vt
	}
	if addr := sanitizeText(input.Address); addr != "" {
		profile.Address = &addr
	}
	if _, err := s.profiles.CreateCourierProfile(ctx, profile); err != nil {
		return nil, fmt.Errorf("create courier profile: %w", err)
	}

	return s.issueFor(user)
}

func (s *accountService) createUser(ctx context.Context, email, password, phone, userType string) (*repository.User, error) {
	email = normalizeEmail(email)
	if !isValidEmail(email) {
		return nil, ErrInvalidEmail
	}
	if !isValidPassword(password) {
		return nil, ErrInvalidPassword
	}
	phone = normalizePhone(phone)
	if phone != "" && !isValidPhone(phone) {
		return nil, ErrInvalidPhone
	}

	if existing, err := s.users.FindByEmail(ctx, email); err == nil && existing != nil {
		return nil, ErrEmailExists
	} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("lookup email: %w", err)
	}
	if phone != "" {
		if existing, err := s.users.FindByPhone(ctx, phone); err == nil && existing != nil {
			return nil, ErrPhoneExists
		} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("lookup phone: %w", err)
		}
	}

	hashed, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	user, err := s.users.Create(ctx, &repository.User{
		Email:       email,
		Password:    hashed,
		PhoneNumber: phone,
		UserType:    userType,
		IsActive:    true,
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func (s *accountService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	email := normalizeEmail(input.Email)
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.recordLogin(ctx, nil, email, input, false, "unknown email")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if err := s.hasher.Compare(user.Password, input.Password); err != nil {
		if errors.Is(err, hash.ErrPasswordMismatch) {
			s.recordLogin(ctx, &user.ID, email, input, false, "wrong password")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.IsActive {
		s.recordLogin(ctx, &user.ID, email, input, false, "account disabled")
		return nil, ErrAccountDisabled
	}

	if s.hasher.NeedsRehash(user.Password) {
		if rehashed, err := s.hasher.Hash(input.Password); err == nil {
			user.Password = rehashed
			_ = s.users.Save(ctx, user)
		}
	}

	now := time.Now().Unix()
	_ = s.users.UpdateLastLogin(ctx, user.ID, now)
	s.recordLogin(ctx, &user.ID, email, input, true, "")
	if s.audit != nil {
		s.audit.Record(ctx, security.Event{
			Kind:      "auth.login",
			ActorID:   strconv.FormatInt(user.ID, 10),
			IP:        input.IP,
			UserAgent: input.UserAgent,
		})
	}

	return s.issueFor(user)
}

func (s *accountService) recordLogin(ctx context.Context, userID *int64, email string, input LoginInput, success bool, reason string) {
	if s.logins == nil {
		return
	}
	entry := &repository.LoginLog{
		UserID:    userID,
		Email:     email,
		IP:        input.IP,
		UserAgent: input.UserAgent,
		Success:   success,
	}
	if reason != "" {
		entry.Reason = &reason
	}
	_ = s.logins.Create(ctx, entry)
}

func (s *accountService) Refresh(ctx context.Context, refreshToken string) (*token.Pair, error) {
	claims, err := s.tokens.ParseOfType(refreshToken, token.TypeRefresh)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}
	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if !user.IsActive {
		return nil, ErrAccountDisabled
	}
	return s.tokens.Refresh(claims)
}

func (s *accountService) issueFor(user *repository.User) (*AuthResult, error) {
	pair, err := s.tokens.IssuePair(strconv.FormatInt(user.ID, 10), user.UserType, user.Email)
	if err != nil {
		return nil, fmt.Errorf("issue tokens: %w", err)
	}
	return &AuthResult{User: user, Tokens: pair}, nil
}

func (s *accountService) Profile(ctx context.Context, userID int64) (*ProfileView, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	view := &ProfileView{User: user}
	switch user.UserType {
	case repository.UserTypeCourier:
		profile, err := s.profiles.CourierProfileByUser(ctx, userID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("lookup courier profile: %w", err)
		}
		view.CourierProfile = profile
	default:
		profile, err := s.profiles.UserProfileByUser(ctx, userID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("lookup profile: %w", err)
		}
		view.UserProfile = profile
	}
	return view, nil
}

func (s *accountService) UpdateProfile(ctx context.Context, userID int64, patch ProfileUpdate) (*ProfileView, error) {
	view, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}

	if patch.PhoneNumber != nil {
		phone := normalizePhone(*patch.PhoneNumber)
		if !isValidPhone(phone) {
			return nil, ErrInvalidPhone
		}
		if phone != view.User.PhoneNumber {
			if existing, err := s.users.FindByPhone(ctx, phone); err == nil && existing != nil && existing.ID != userID {
				return nil, ErrPhoneExists
			} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
				return nil, fmt.Errorf("lookup phone: %w", err)
			}
			view.User.PhoneNumber = phone
			view.User.PhoneVerified = false
			if err := s.users.Save(ctx, view.User); err != nil {
				return nil, fmt.Errorf("save user: %w", err)
			}
		}
	}

	switch view.User.UserType {
	case repository.UserTypeCourier:
		if err := s.applyCourierPatch(ctx, view, patch); err != nil {
			return nil, err
		}
	default:
		if err := s.applyCustomerPatch(ctx, view, patch); err != nil {
			return nil, err
		}
	}
	return view, nil
}

func (s *accountService) applyCustomerPatch(ctx context.Context, view *ProfileView, patch ProfileUpdate) error {
	profile := view.UserProfile
	if profile == nil {
		profile = &repository.UserProfile{UserID: view.User.ID}
		created, err := s.profiles.CreateUserProfile(ctx, profile)
		if err != nil {
			return fmt.Errorf("create profile: %w", err)
		}
		profile = created
		view.UserProfile = profile
	}

	if patch.FullName != nil {
		profile.FullName = sanitizeText(*patch.FullName)
	}
	if patch.Address != nil {
		addr := sanitizeText(*patch.Address)
		profile.Address = &addr
	}
	if patch.ProfileImageURL != nil {
		profile.ProfileImageURL = patch.ProfileImageURL
	}
	return s.profiles.SaveUserProfile(ctx, profile)
}

func (s *accountService) applyCourierPatch(ctx context.Context, view *ProfileView, patch ProfileUpdate) error {
	profile := view.CourierProfile
	if profile == nil {
		return ErrNotFound
	}

	if patch.FullName != nil {
		profile.FullName = sanitizeText(*patch.FullName)
	}
	if patch.Address != nil {
		addr := sanitizeText(*patch.Address)
		profile.Address = &addr
	}
	if patch.ProfileImageURL != nil {
		profile.ProfileImageURL = patch.ProfileImageURL
	}
	if patch.VehicleType != nil {
		profile.VehicleType = patch.VehicleType
	}
	if patch.IsAvailable != nil {
		profile.IsAvailable = *patch.IsAvailable
	}

	// Bank detail edits invalidate the prior review.
	bankChanged := false
	if patch.BVN != nil && !equalPtr(profile.BVN, patch.BVN) {
		profile.BVN = patch.BVN
		bankChanged = true
	}
	if patch.BankAccountNumber != nil && !equalPtr(profile.BankAccountNumber, patch.BankAccountNumber) {
		profile.BankAccountNumber = patch.BankAccountNumber
		bankChanged = true
	}
	if patch.BankCode != nil && !equalPtr(profile.BankCode, patch.BankCode) {
		profile.BankCode = patch.BankCode
		bankChanged = true
	}
	if patch.BankName != nil && !equalPtr(profile.BankName, patch.BankName) {
		profile.BankName = patch.BankName
		bankChanged = true
	}
	if patch.AccountName != nil && !equalPtr(profile.AccountName, patch.AccountName) {
		profile.AccountName = patch.AccountName
		bankChanged = true
	}
	if bankChanged && profile.ApprovalStatus == repository.ApprovalApproved {
		profile.ApprovalStatus = repository.ApprovalPending
		profile.ApprovedAt = nil
		profile.ApprovedByID = nil
	}

	return s.profiles.SaveCourierProfile(ctx, profile)
}

func equalPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
