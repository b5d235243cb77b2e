package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xcellar/xcellar/internal/repository"
	"github.com/xcellar/xcellar/internal/twilio"
)

// VerificationSender is the slice of the Twilio client the service needs.
type VerificationSender interface {
	StartVerification(ctx context.Context, phone string, channel twilio.Channel) (*twilio.Verification, error)
	CheckVerification(ctx context.Context, phone, code string) (*twilio.CheckResult, error)
}

// SendCodeResult reports a started verification back to the caller.
type SendCodeResult struct {
	PhoneNumber string
	Method      string
	ExpiresAt   int64
}

// CooldownError tells the caller how long to wait before requesting
// another code. Unwraps to ErrCooldownActive.
type CooldownError struct {
	RetryAfter int64
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("verification cooldown active, retry in %ds", e.RetryAfter)
}

func (e *CooldownError) Unwrap() error { return ErrCooldownActive }

// CodeAttemptError reports a rejected code along with the attempts left in
// the session. Unwraps to ErrInvalidVerificationCode.
type CodeAttemptError struct {
	Remaining int64
}

func (e *CodeAttemptError) Error() string {
	return fmt.Sprintf("invalid verification code, %d attempts remaining", e.Remaining)
}

func (e *CodeAttemptError) Unwrap() error { return ErrInvalidVerificationCode }

// PhoneVerificationService runs the OTP round-trip for phone numbers. The
// provider generates and checks the code; we track the session, cooldown
// and attempt budget.
type PhoneVerificationService interface {
	SendCode(ctx context.Context, phone, method string) (*SendCodeResult, error)
	CheckCode(ctx context.Context, phone, code string) error
}

type phoneVerificationService struct {
	verifications repository.PhoneVerificationRepository
	users         repository.UserRepository
	sender        VerificationSender
	expiry        time.Duration
	cooldown      time.Duration
	maxAttempts   int64
}

// NewPhoneVerificationService assembles the OTP flow. Zero durations fall
// back to a ten minute expiry and sixty second cooldown.
func NewPhoneVerificationService(
	verifications repository.PhoneVerificationRepository,
	users repository.UserRepository,
	sender VerificationSender,
	expiry, cooldown time.Duration,
	maxAttempts int,
) PhoneVerificationService {
	if expiry <= 0 {
		expiry = 10 * time.Minute
	}
	if cooldown <= 0 {
		cooldown = 60 * time.Second
	}
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &phoneVerificationService{
		verifications: verifications,
		users:         users,
		sender:        sender,
		expiry:        expiry,
		cooldown:      cooldown,
		maxAttempts:   int64(maxAttempts),
	}
}

func (s *phoneVerificationService) SendCode(ctx context.Context, phone, method string) (*SendCodeResult, error) {
	phone = normalizePhone(phone)
	if !isValidPhone(phone) {
		return nil, ErrInvalidPhone
	}

	channel := twilio.ChannelSMS
	switch method {
	case "", "sms":
		method = "sms"
	case "call":
		channel = twilio.ChannelCall
	default:
		return nil, fmt.Errorf("%w: unsupported method %q", ErrValidation, method)
	}

	now := time.Now()
	latest, err := s.verifications.LatestForPhone(ctx, phone)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("lookup verification: %w", err)
	}
	if latest != nil {
		elapsed := now.Unix() - latest.CreatedAt
		if wait := int64(s.cooldown.Seconds()) - elapsed; wait > 0 {
			return nil, &CooldownError{RetryAfter: wait}
		}
	}

	verification, err := s.sender.StartVerification(ctx, phone, channel)
	if err != nil {
		// Provider-side failures must never look like a problem with the
		// caller's request.
		if errors.Is(err, twilio.ErrInvalidInput) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPhone, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrProviderFailure, err)
	}

	if _, err := s.verifications.DeactivateForPhone(ctx, phone); err != nil {
		return nil, fmt.Errorf("deactivate prior sessions: %w", err)
	}
	expiresAt := now.Add(s.expiry).Unix()
	if _, err := s.verifications.Create(ctx, &repository.PhoneVerification{
		PhoneNumber: phone,
		ProviderSID: verification.SID,
		Method:      method,
		ExpiresAt:   expiresAt,
		MaxAttempts: s.maxAttempts,
		IsActive:    true,
	}); err != nil {
		return nil, fmt.Errorf("store verification: %w", err)
	}

	return &SendCodeResult{PhoneNumber: phone, Method: method, ExpiresAt: expiresAt}, nil
}

func (s *phoneVerificationService) CheckCode(ctx context.Context, phone, code string) error {
	phone = normalizePhone(phone)
	if !isValidPhone(phone) {
		return ErrInvalidPhone
	}
	if code == "" {
		return ErrInvalidVerificationCode
	}

	session, err := s.verifications.LatestActiveForPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidVerificationCode
		}
		return fmt.Errorf("lookup verification: %w", err)
	}

	now := time.Now()
	if session.ExpiresAt < now.Unix() {
		return ErrInvalidVerificationCode
	}
	if session.Attempts >= session.MaxAttempts {
		return ErrTooManyAttempts
	}

	result, err := s.sender.CheckVerification(ctx, phone, code)
	if err != nil {
		if errors.Is(err, twilio.ErrInvalidInput) {
			return s.failAttempt(ctx, session)
		}
		return fmt.Errorf("%w: %v", ErrProviderFailure, err)
	}
	if !result.Approved() {
		return s.failAttempt(ctx, session)
	}

	if err := s.verifications.MarkVerified(ctx, session.ID, now.Unix()); err != nil {
		return fmt.Errorf("mark verified: %w", err)
	}
	if err := s.users.SetPhoneVerified(ctx, phone, now.Unix()); err != nil {
		return fmt.Errorf("flag user phone: %w", err)
	}
	return nil
}

func (s *phoneVerificationService) failAttempt(ctx context.Context, session *repository.PhoneVerification) error {
	attempts, err := s.verifications.IncrementAttempts(ctx, session.ID)
	if err != nil {
		return fmt.Errorf("count attempt: %w", err)
	}
	if attempts >= session.MaxAttempts {
		_, _ = s.verifications.DeactivateForPhone(ctx, session.PhoneNumber)
		return ErrTooManyAttempts
	}
	return &CodeAttemptError{Remaining: session.MaxAttempts - attempts}
}
