// Package scheduler runs periodic maintenance: pruning old listing views and
// delivered match events.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// ViewPruner deletes listing_views rows older than cutoff.
type ViewPruner interface {
	PruneViews(ctx context.Context, cutoff time.Time) (int64, error)
}

// EventPruner deletes sent match events older than cutoff.
type EventPruner interface {
	PruneSent(ctx context.Context, cutoff time.Time) (int64, error)
}

type Config struct {
	Spec           string // cron spec, e.g. "@every 6h"
	ViewRetention  time.Duration
	EventRetention time.Duration
}

// Scheduler wraps robfig/cron and owns the prune job.
type Scheduler struct {
	cron   *cron.Cron
	views  ViewPruner
	events EventPruner
	cfg    Config
	now    func() time.Time
}

func New(views ViewPruner, events EventPruner, cfg Config) *Scheduler {
	if cfg.Spec == "" {
		cfg.Spec = "@every 6h"
	}
	return &Scheduler{
		cron:   cron.New(),
		views:  views,
		events: events,
		cfg:    cfg,
		now:    time.Now,
	}
}

// Start registers the prune job and starts the cron loop.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.cfg.Spec, func() { s.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("cron.AddFunc(%q): %w", s.cfg.Spec, err)
	}
	s.cron.Start()
	slog.Info("scheduler started", "spec", s.cfg.Spec)
	return nil
}

// Stop waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	slog.Info("scheduler stopped")
}

// RunOnce performs one prune cycle. Failures are logged; one failing step
// does not skip the other.
func (s *Scheduler) RunOnce(ctx context.Context) {
	now := s.now().UTC()

	if s.views != nil && s.cfg.ViewRetention > 0 {
		n, err := s.views.PruneViews(ctx, now.Add(-s.cfg.ViewRetention))
		if err != nil {
			slog.Error("prune listing views failed", "err", err)
		} else {
			slog.Info("pruned listing views", "rows", n)
		}
	}

	if s.events != nil && s.cfg.EventRetention > 0 {
		n, err := s.events.PruneSent(ctx, now.Add(-s.cfg.EventRetention))
		if err != nil {
			slog.Error("prune match events failed", "err", err)
		} else {
			slog.Info("pruned sent match events", "rows", n)
		}
	}
}
