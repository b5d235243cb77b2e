package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/xcellar/xcellar/internal/notifier"
	"github.com/xcellar/xcellar/internal/repository"
	"github.com/xcellar/xcellar/internal/security"
	"github.com/xcellar/xcellar/internal/support/hash"
)

const (
	resetRequestsPerIP   = 5
	resetRequestsPerUser = 3
	resetConfirmsPerIP   = 10
	resetRequestWindow   = time.Hour
)

// ResetRequestResult tells the caller where the reset email went without
// confirming whether the address is registered.
type ResetRequestResult struct {
	MaskedEmail string
}

// PasswordResetService issues and redeems single-use reset tokens.
type PasswordResetService interface {
	RequestReset(ctx context.Context, email, ip string) (*ResetRequestResult, error)
	ConfirmReset(ctx context.Context, rawToken, newPassword, ip string) error
}

type passwordResetService struct {
	users    repository.UserRepository
	resets   repository.PasswordResetRepository
	hasher   hash.Hasher
	notify   notifier.Service
	limiter  *security.RateLimiter
	tokenTTL time.Duration
}

// NewPasswordResetService assembles the reset flow. tokenTTL of zero
// defaults to fifteen minutes.
func NewPasswordResetService(
	users repository.UserRepository,
	resets repository.PasswordResetRepository,
	hasher hash.Hasher,
	notify notifier.Service,
	limiter *security.RateLimiter,
	tokenTTL time.Duration,
) PasswordResetService {
	if tokenTTL <= 0 {
		tokenTTL = 15 * time.Minute
	}
	return &passwordResetService{
		users:    users,
		resets:   resets,
		hasher:   hasher,
		notify:   notify,
		limiter:  limiter,
		tokenTTL: tokenTTL,
	}
}

func (s *passwordResetService) RequestReset(ctx context.Context, email, ip string) (*ResetRequestResult, error) {
	email = normalizeEmail(email)
	if !isValidEmail(email) {
		return nil, ErrInvalidEmail
	}

	if s.limiter != nil && ip != "" {
		result, err := s.limiter.Allow(ctx, "pwreset:ip:"+ip, resetRequestsPerIP, resetRequestWindow)
		if err == nil && !result.Allowed {
			return nil, ErrRateLimited
		}
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Same response shape as a hit so the endpoint cannot be used
			// to probe which emails are registered.
			return &ResetRequestResult{MaskedEmail: maskEmail(email)}, nil
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	since := time.Now().Add(-resetRequestWindow).Unix()
	recent, err := s.resets.CountRecentForUser(ctx, user.ID, since)
	if err != nil {
		return nil, fmt.Errorf("count recent resets: %w", err)
	}
	if recent >= resetRequestsPerUser {
		return nil, ErrRateLimited
	}

	raw, tokenHash, err := newResetToken()
	if err != nil {
		return nil, err
	}

	if _, err := s.resets.InvalidateUnusedForUser(ctx, user.ID); err != nil {
		return nil, fmt.Errorf("invalidate prior tokens: %w", err)
	}
	if _, err := s.resets.Create(ctx, &repository.PasswordResetToken{
		UserID:    user.ID,
		TokenHash: tokenHash,
		ExpiresAt: time.Now().Add(s.tokenTTL).Unix(),
	}); err != nil {
		return nil, fmt.Errorf("store reset token: %w", err)
	}

	if s.notify != nil {
		_ = s.notify.SendEmail(ctx, notifier.EmailRequest{
			To:       user.Email,
			Subject:  "Reset your password",
			Template: "password_reset",
			Data: map[string]any{
				"token":          raw,
				"expiry_minutes": int(s.tokenTTL.Minutes()),
			},
		})
	}

	return &ResetRequestResult{MaskedEmail: maskEmail(email)}, nil
}

func (s *passwordResetService) ConfirmReset(ctx context.Context, rawToken, newPassword, ip string) error {
	if s.limiter != nil && ip != "" {
		result, err := s.limiter.Allow(ctx, "pwconfirm:ip:"+ip, resetConfirmsPerIP, resetRequestWindow)
		if err == nil && !result.Allowed {
			return ErrRateLimited
		}
	}

	if !isValidPassword(newPassword) {
		return ErrInvalidPassword
	}
	if rawToken == "" {
		return ErrInvalidToken
	}

	record, err := s.resets.FindByHash(ctx, hashResetToken(rawToken))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidToken
		}
		return fmt.Errorf("lookup token: %w", err)
	}

	now := time.Now()
	if record.UsedAt != nil {
		return ErrTokenUsed
	}
	if record.ExpiresAt < now.Unix() {
		return ErrTokenExpired
	}

	user, err := s.users.FindByID(ctx, record.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidToken
		}
		return fmt.Errorf("lookup user: %w", err)
	}

	hashed, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	user.Password = hashed
	if err := s.users.Save(ctx, user); err != nil {
		return fmt.Errorf("save password: %w", err)
	}

	if err := s.resets.MarkUsed(ctx, record.ID, now.Unix()); err != nil {
		return fmt.Errorf("mark token used: %w", err)
	}
	_, _ = s.resets.InvalidateUnusedForUser(ctx, user.ID)
	return nil
}

func newResetToken() (raw, tokenHash string, err error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("generate token: %w", err)
	}
	raw = hex.EncodeToString(buf)
	return raw, hashResetToken(raw), nil
}

func hashResetToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
