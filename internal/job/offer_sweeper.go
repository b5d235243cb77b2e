package job

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xcellar/xcellar/internal/service"
)

const offerSweepBatch = 50

// OfferSweeper re-offers AVAILABLE orders whose courier offer window has
// lapsed without an acceptance.
type OfferSweeper struct {
	orders service.OrderService
	logger *slog.Logger
}

func NewOfferSweeper(orders service.OrderService, logger *slog.Logger) *OfferSweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &OfferSweeper{orders: orders, logger: logger}
}

func (j *OfferSweeper) Name() string { return "order_offer_sweeper" }

func (j *OfferSweeper) Run(ctx context.Context) error {
	count, err := j.orders.ReofferExpired(ctx, offerSweepBatch)
	if err != nil {
		return fmt.Errorf("reoffer expired orders: %w", err)
	}
	if count > 0 {
		j.logger.Info("re-offered expired orders", "count", count)
	}
	return nil
}
