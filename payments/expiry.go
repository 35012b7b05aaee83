package payments

import (
	"context"
	"time"

	"cosmossdk.io/log"

	"github.com/Mrinallcx/payagent-core/types"
)

// ExpirySweeper transitions pending payments past their deadline to
// expired and emits the corresponding event. Each transition goes through
// the status-checked update so a sweep can never clobber a concurrent
// settlement.
type ExpirySweeper struct {
	store      types.Store
	dispatcher EventDispatcher
	logger     log.Logger
	interval   time.Duration
}

func NewExpirySweeper(store types.Store, dispatcher EventDispatcher, logger log.Logger, interval time.Duration) *ExpirySweeper {
	if interval == 0 {
		interval = time.Minute
	}
	return &ExpirySweeper{
		store:      store,
		dispatcher: dispatcher,
		logger:     logger.With("component", "expiry-sweeper"),
		interval:   interval,
	}
}

func (s *ExpirySweeper) Start(ctx context.Context) {
	s.logger.Info("Starting payment expiry sweeping", "interval", s.interval)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Stopping payment expiry sweeping")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *ExpirySweeper) sweep(ctx context.Context) {
	pending, err := s.store.PaymentsByStatus(ctx, types.PaymentPending)
	if err != nil {
		s.logger.Error("Unable to list pending payments", "error", err)
		return
	}

	now := time.Now()
	for _, p := range pending {
		if p.ExpiresAt.IsZero() || now.Before(p.ExpiresAt) {
			continue
		}

		updated, err := s.store.UpdatePaymentIfStatus(ctx, p.ID, types.PaymentPending, func(pm *types.Payment) {
			pm.Status = types.PaymentExpired
			pm.Updated = now
		})
		if err != nil {
			s.logger.Error("Unable to expire payment", "payment", p.ID, "error", err)
			continue
		}
		if !updated {
			continue
		}

		p.Status = types.PaymentExpired
		p.Updated = now
		s.dispatcher.Dispatch(types.EventPaymentExpired, p)
		s.logger.Info("Payment expired", "payment", p.ID, "expired_at", p.ExpiresAt)
	}
}
