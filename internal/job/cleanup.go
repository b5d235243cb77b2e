package job

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xcellar/xcellar/internal/repository"
)

const (
	staleCartAge     = 30 * 24 * time.Hour
	loginLogRetainer = 90 * 24 * time.Hour
)

// StaleCartCleanup deletes carts nobody touched for thirty days.
type StaleCartCleanup struct {
	carts  repository.CartRepository
	logger *slog.Logger
}

func NewStaleCartCleanup(carts repository.CartRepository, logger *slog.Logger) *StaleCartCleanup {
	if logger == nil {
		logger = slog.Default()
	}
	return &StaleCartCleanup{carts: carts, logger: logger}
}

func (j *StaleCartCleanup) Name() string { return "stale_cart_cleanup" }

func (j *StaleCartCleanup) Run(ctx context.Context) error {
	cutoff := time.Now().Add(-staleCartAge).Unix()
	removed, err := j.carts.DeleteStale(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("delete stale carts: %w", err)
	}
	if removed > 0 {
		j.logger.Info("stale carts removed", "count", removed)
	}
	return nil
}

// LoginLogCleanup trims the login audit trail to ninety days.
type LoginLogCleanup struct {
	logins repository.LoginLogRepository
	logger *slog.Logger
}

func NewLoginLogCleanup(logins repository.LoginLogRepository, logger *slog.Logger) *LoginLogCleanup {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoginLogCleanup{logins: logins, logger: logger}
}

func (j *LoginLogCleanup) Name() string { return "login_log_cleanup" }

func (j *LoginLogCleanup) Run(ctx context.Context) error {
	cutoff := time.Now().Add(-loginLogRetainer).Unix()
	removed, err := j.logins.DeleteBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("delete old login logs: %w", err)
	}
	if removed > 0 {
		j.logger.Info("old login logs removed", "count", removed)
	}
	return nil
}
