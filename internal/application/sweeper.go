package application

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

const sweepBatchSize = 100

// Sweeper actively closes auctions whose deadline has passed. Without it,
// deadline expiry is only enforced lazily when the auction is next read
// or bid on.
type Sweeper struct {
	Auctions *AuctionService
	Interval time.Duration
	Logger   *logrus.Logger
}

func NewSweeper(auctions *AuctionService, interval time.Duration, logger *logrus.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{Auctions: auctions, Interval: interval, Logger: logger}
}

// Run blocks until ctx is cancelled, sweeping once per interval.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	ids, err := s.Auctions.Auctions.ExpiredActive(ctx, time.Now().UTC(), sweepBatchSize)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).Error("expired auction scan failed")
		}
		return
	}
	for _, id := range ids {
		if err := s.Auctions.CloseExpired(ctx, id); err != nil {
			if s.Logger != nil {
				s.Logger.WithError(err).WithField("product_id", id).Error("deadline closure failed")
			}
			continue
		}
		if s.Logger != nil {
			s.Logger.WithField("product_id", id).Info("auction closed at deadline")
		}
	}
}
