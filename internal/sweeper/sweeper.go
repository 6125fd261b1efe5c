package sweeper

import (
	"context"
	"log/slog"
	"time"
)

// Sweepable is any store that can delete its expired records.
type Sweepable interface {
	SweepExpired(ctx context.Context) (int64, error)
}

// Sweeper periodically deletes expired token records. It only ever
// touches records already past their expiry, so it is safe to run
// alongside request handling.
type Sweeper struct {
	interval time.Duration
	stores   map[string]Sweepable
	logger   *slog.Logger
}

func New(interval time.Duration, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		interval: interval,
		stores:   make(map[string]Sweepable),
		logger:   logger,
	}
}

// Register adds a store under a name used for logging.
func (s *Sweeper) Register(name string, store Sweepable) {
	s.stores[name] = store
}

// Run sweeps on the configured interval until the context is done.
// The first sweep happens immediately.
func (s *Sweeper) Run(ctx context.Context) {
	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sweeper stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	for name, store := range s.stores {
		n, err := store.SweepExpired(ctx)
		if err != nil {
			s.logger.Error("sweep failed", "store", name, "error", err)
			continue
		}
		if n > 0 {
			s.logger.Info("sweep completed", "store", name, "deleted", n)
		}
	}
}
