package application

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper periodically reclaims capacity from holds nobody confirmed or
// released in time. It does not tell the booking saga; a saga waiting on an
// expired hold keeps waiting.
type Sweeper struct {
	log      *slog.Logger
	engine   *Engine
	interval time.Duration
}

func NewSweeper(log *slog.Logger, engine *Engine, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Sweeper{log: log, engine: engine, interval: interval}
}

func (s *Sweeper) Run(ctx context.Context) error {
	t := time.NewTicker(s.interval)
	defer t.Stop()

	s.log.Info("hold expiry sweeper started", "interval", s.interval)
	for {
		select {
		case <-ctx.Done():
			s.log.Info("hold expiry sweeper stopping")
			return nil
		case <-t.C:
			if _, err := s.engine.ProcessExpiredHolds(ctx); err != nil && ctx.Err() == nil {
				s.log.Error("hold expiry sweep failed", "err", err)
			}
		}
	}
}
