package service

import (
	"context"
	"errors"

	"github.com/xcellar/xcellar/internal/repository"
)

// UserDashboard is the customer home screen aggregate.
type UserDashboard struct {
	Profile             *repository.UserProfile
	StatusCounts        map[string]int64
	UnreadNotifications int64
	BalanceKobo         int64
}

// DashboardService builds the customer dashboard aggregate.
type DashboardService interface {
	UserDashboard(ctx context.Context, userID int64) (*UserDashboard, error)
}

type dashboardService struct {
	profiles repository.ProfileRepository
	orders   repository.OrderRepository
	notices  repository.NotificationRepository
	users    repository.UserRepository
}

// NewDashboardService assembles the aggregate reads.
func NewDashboardService(
	profiles repository.ProfileRepository,
	orders repository.OrderRepository,
	notices repository.NotificationRepository,
	users repository.UserRepository,
) DashboardService {
	return &dashboardService{profiles: profiles, orders: orders, notices: notices, users: users}
}

func (s *dashboardService) UserDashboard(ctx context.Context, userID int64) (*UserDashboard, error) {
	profile, err := s.profiles.UserProfileByUser(ctx, userID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	counts, err := s.orders.StatusCountsForSender(ctx, userID)
	if err != nil {
		return nil, err
	}
	unread, err := s.notices.CountUnread(ctx, userID)
	if err != nil {
		return nil, err
	}
	balance, err := s.users.Balance(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &UserDashboard{
		Profile:             profile,
		StatusCounts:        counts,
		UnreadNotifications: unread,
		BalanceKobo:         balance,
	}, nil
}
