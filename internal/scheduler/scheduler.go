package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/crucial707/webdemo/internal/metrics"
	"github.com/crucial707/webdemo/internal/session"
	"github.com/robfig/cron/v3"
)

// DefaultSpec sweeps every five minutes.
const DefaultSpec = "@every 5m"

// Sweeper periodically removes expired sessions from a session store.
type Sweeper struct {
	store  session.Store
	spec   string
	cron   *cron.Cron
	logger *slog.Logger

	mu      sync.Mutex
	started bool
}

// NewSweeper validates spec (standard five-field cron or a descriptor such as
// "@every 5m") and registers the sweep job. Call Start to run it.
func NewSweeper(store session.Store, spec string) (*Sweeper, error) {
	if spec == "" {
		spec = DefaultSpec
	}
	s := &Sweeper{
		store:  store,
		spec:   spec,
		cron:   cron.New(),
		logger: slog.Default().With("component", "scheduler"),
	}
	if _, err := s.cron.AddFunc(spec, func() {
		_, _ = s.Sweep(context.Background())
	}); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", spec, err)
	}
	return s, nil
}

// Sweep runs one pass and returns the number of sessions removed.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	n, err := s.store.DeleteExpired(ctx)
	if err != nil {
		s.logger.Error("session sweep failed", "error", err)
		return 0, err
	}
	metrics.AddSessionsSwept(n)
	if n > 0 {
		s.logger.Info("expired sessions removed", "count", n)
	}
	return n, nil
}

func (s *Sweeper) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	s.cron.Start()
	s.logger.Info("session sweeper started", "schedule", s.spec)
}

// Stop stops scheduling and waits for a running sweep to finish or ctx to end.
func (s *Sweeper) Stop(ctx context.Context) {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	s.mu.Unlock()

	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}
