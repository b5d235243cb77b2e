package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xcellar/xcellar/internal/repository"
	"github.com/xcellar/xcellar/internal/twilio"
)

// fakeVerifications keeps OTP sessions in memory, newest first.
type fakeVerifications struct {
	repository.PhoneVerificationRepository
	sessions []*repository.PhoneVerification
	nextID   int64
}

func (f *fakeVerifications) Create(_ context.Context, v *repository.PhoneVerification) (*repository.PhoneVerification, error) {
	f.nextID++
	clone := *v
	clone.ID = f.nextID
	if clone.CreatedAt == 0 {
		clone.CreatedAt = time.Now().Unix()
	}
	f.sessions = append([]*repository.PhoneVerification{&clone}, f.sessions...)
	return &clone, nil
}

func (f *fakeVerifications) LatestForPhone(_ context.Context, phone string) (*repository.PhoneVerification, error) {
	for _, s := range f.sessions {
		if s.PhoneNumber == phone {
			return s, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeVerifications) LatestActiveForPhone(_ context.Context, phone string) (*repository.PhoneVerification, error) {
	for _, s := range f.sessions {
		if s.PhoneNumber == phone && s.IsActive {
			return s, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeVerifications) DeactivateForPhone(_ context.Context, phone string) (int64, error) {
	var n int64
	for _, s := range f.sessions {
		if s.PhoneNumber == phone && s.IsActive {
			s.IsActive = false
			n++
		}
	}
	return n, nil
}

func (f *fakeVerifications) IncrementAttempts(_ context.Context, id int64) (int64, error) {
	for _, s := range f.sessions {
		if s.ID == id {
			s.Attempts++
			return s.Attempts, nil
		}
	}
	return 0, repository.ErrNotFound
}

func (f *fakeVerifications) MarkVerified(_ context.Context, id int64, at int64) error {
	for _, s := range f.sessions {
		if s.ID == id {
			s.IsVerified = true
			s.IsActive = false
			s.VerifiedAt = &at
			return nil
		}
	}
	return repository.ErrNotFound
}

// fakeVerifyUsers records the phone flagged as verified.
type fakeVerifyUsers struct {
	repository.UserRepository
	verifiedPhone string
}

func (f *fakeVerifyUsers) SetPhoneVerified(_ context.Context, phone string, _ int64) error {
	f.verifiedPhone = phone
	return nil
}

// fakeSender scripts the provider responses.
type fakeSender struct {
	startErr    error
	checkStatus string
	checkErr    error
	startCalls  int
}

func (f *fakeSender) StartVerification(_ context.Context, phone string, channel twilio.Channel) (*twilio.Verification, error) {
	f.startCalls++
	if f.startErr != nil {
		return nil, f.startErr
	}
	return &twilio.Verification{SID: "VE123", To: phone, Channel: string(channel), Status: "pending"}, nil
}

func (f *fakeSender) CheckVerification(_ context.Context, phone, _ string) (*twilio.CheckResult, error) {
	if f.checkErr != nil {
		return nil, f.checkErr
	}
	status := f.checkStatus
	if status == "" {
		status = "approved"
	}
	return &twilio.CheckResult{SID: "VE123", To: phone, Status: status}, nil
}

func newVerificationFixture(sender *fakeSender) (PhoneVerificationService, *fakeVerifications, *fakeVerifyUsers) {
	verifications := &fakeVerifications{}
	users := &fakeVerifyUsers{}
	svc := NewPhoneVerificationService(verifications, users, sender, 10*time.Minute, 60*time.Second, 3)
	return svc, verifications, users
}

func TestSendCodeStartsSession(t *testing.T) {
	svc, verifications, _ := newVerificationFixture(&fakeSender{})

	result, err := svc.SendCode(context.Background(), "08031234567", "")
	require.NoError(t, err)
	assert.Equal(t, "+2348031234567", result.PhoneNumber)
	assert.Equal(t, "sms", result.Method)
	assert.Greater(t, result.ExpiresAt, time.Now().Unix())

	session, err := verifications.LatestActiveForPhone(context.Background(), "+2348031234567")
	require.NoError(t, err)
	assert.Equal(t, "VE123", session.ProviderSID)
	assert.EqualValues(t, 3, session.MaxAttempts)
}

func TestSendCodeRejectsBadInput(t *testing.T) {
	svc, _, _ := newVerificationFixture(&fakeSender{})

	_, err := svc.SendCode(context.Background(), "12345", "")
	assert.ErrorIs(t, err, ErrInvalidPhone)

	_, err = svc.SendCode(context.Background(), "08031234567", "carrier-pigeon")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSendCodeCooldown(t *testing.T) {
	sender := &fakeSender{}
	svc, _, _ := newVerificationFixture(sender)

	_, err := svc.SendCode(context.Background(), "08031234567", "sms")
	require.NoError(t, err)

	_, err = svc.SendCode(context.Background(), "08031234567", "sms")
	require.ErrorIs(t, err, ErrCooldownActive)

	var cooldown *CooldownError
	require.ErrorAs(t, err, &cooldown)
	assert.Greater(t, cooldown.RetryAfter, int64(0))
	assert.LessOrEqual(t, cooldown.RetryAfter, int64(60))
	assert.Equal(t, 1, sender.startCalls)
}

func TestSendCodeProviderFailure(t *testing.T) {
	svc, _, _ := newVerificationFixture(&fakeSender{startErr: twilio.ErrUnavailable})

	_, err := svc.SendCode(context.Background(), "08031234567", "sms")
	assert.ErrorIs(t, err, ErrProviderFailure)
}

func TestSendCodeProviderRejectsPhone(t *testing.T) {
	svc, _, _ := newVerificationFixture(&fakeSender{
		startErr: fmt.Errorf("%w: invalid To", twilio.ErrInvalidInput),
	})

	_, err := svc.SendCode(context.Background(), "08031234567", "sms")
	assert.ErrorIs(t, err, ErrInvalidPhone)
}

func TestCheckCodeSuccess(t *testing.T) {
	svc, verifications, users := newVerificationFixture(&fakeSender{checkStatus: "approved"})

	_, err := svc.SendCode(context.Background(), "08031234567", "sms")
	require.NoError(t, err)

	require.NoError(t, svc.CheckCode(context.Background(), "08031234567", "123456"))
	assert.Equal(t, "+2348031234567", users.verifiedPhone)

	session := verifications.sessions[0]
	assert.True(t, session.IsVerified)
	assert.False(t, session.IsActive)
}

func TestCheckCodeWrongCodeCountsAttempts(t *testing.T) {
	svc, _, _ := newVerificationFixture(&fakeSender{checkStatus: "pending"})

	_, err := svc.SendCode(context.Background(), "08031234567", "sms")
	require.NoError(t, err)

	err = svc.CheckCode(context.Background(), "08031234567", "000000")
	require.ErrorIs(t, err, ErrInvalidVerificationCode)

	var attempt *CodeAttemptError
	require.ErrorAs(t, err, &attempt)
	assert.EqualValues(t, 2, attempt.Remaining)

	err = svc.CheckCode(context.Background(), "08031234567", "000000")
	require.ErrorAs(t, err, &attempt)
	assert.EqualValues(t, 1, attempt.Remaining)

	// Third failure exhausts the budget and closes the session.
	err = svc.CheckCode(context.Background(), "08031234567", "000000")
	assert.ErrorIs(t, err, ErrTooManyAttempts)

	err = svc.CheckCode(context.Background(), "08031234567", "000000")
	assert.ErrorIs(t, err, ErrInvalidVerificationCode)
}

func TestCheckCodeNoActiveSession(t *testing.T) {
	svc, _, _ := newVerificationFixture(&fakeSender{})

	err := svc.CheckCode(context.Background(), "08031234567", "123456")
	assert.ErrorIs(t, err, ErrInvalidVerificationCode)
}

func TestCheckCodeExpiredSession(t *testing.T) {
	sender := &fakeSender{}
	verifications := &fakeVerifications{}
	users := &fakeVerifyUsers{}
	svc := NewPhoneVerificationService(verifications, users, sender, 10*time.Minute, time.Second, 3)

	_, err := verifications.Create(context.Background(), &repository.PhoneVerification{
		PhoneNumber: "+2348031234567",
		ExpiresAt:   time.Now().Add(-time.Minute).Unix(),
		MaxAttempts: 3,
		IsActive:    true,
	})
	require.NoError(t, err)

	err = svc.CheckCode(context.Background(), "08031234567", "123456")
	assert.ErrorIs(t, err, ErrInvalidVerificationCode)
	var attempt *CodeAttemptError
	assert.False(t, errors.As(err, &attempt))
}
