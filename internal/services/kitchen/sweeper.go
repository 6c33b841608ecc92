package kitchen

import (
	"context"
	"time"

	"cafe-backoffice/internal/config"
	"cafe-backoffice/internal/logger"
)

// Sweeper periodically re-enqueues tickets whose print job never reached
// the queue. It runs under the supervisor as a suture.Service.
type Sweeper struct {
	service  *Service
	logger   *logger.Logger
	interval time.Duration
	after    time.Duration
	batch    int
}

func NewSweeper(service *Service, cfg config.PrinterConfig, log *logger.Logger) *Sweeper {
	return &Sweeper{
		service:  service,
		logger:   log,
		interval: cfg.SweepInterval,
		after:    cfg.SweepAfter,
		batch:    cfg.SweepBatch,
	}
}

func (s *Sweeper) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("sweeper_started", "KOT dispatch sweeper started", "", map[string]interface{}{
		"interval_seconds": s.interval.Seconds(),
		"after_seconds":    s.after.Seconds(),
		"batch":            s.batch,
	})

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sweeper_stopped", "KOT dispatch sweeper stopped", "", nil)
			return ctx.Err()
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	requestID := logger.GenerateRequestID()
	sent, err := s.service.SweepUndispatched(logger.WithRequestID(ctx, requestID), s.after, s.batch)
	if err != nil {
		s.logger.Error("sweep_failed", "Failed to sweep undispatched tickets", requestID, err, nil)
		return
	}
	if sent > 0 {
		s.logger.Info("sweep_completed", "Re-enqueued undispatched tickets", requestID,
			map[string]interface{}{"count": sent})
	}
}

func (s *Sweeper) String() string {
	return "kot-sweeper"
}
