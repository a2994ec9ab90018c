package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

const cleanupJobTimeout = 2 * time.Minute

// overrideCleaner is the part of PricingService the scheduler drives.
type overrideCleaner interface {
	CleanupPastOverrides(ctx context.Context, tenant string) (int64, error)
}

// Scheduler runs periodic maintenance jobs in UTC.
type Scheduler struct {
	cron    *cron.Cron
	pricing overrideCleaner
	tenants *TenantRegistry
}

// NewScheduler registers the past-override cleanup on schedule, a standard
// five-field cron expression. An empty schedule yields a scheduler with no jobs.
func NewScheduler(schedule string, pricing overrideCleaner, tenants *TenantRegistry) (*Scheduler, error) {
	s := &Scheduler{
		cron:    cron.New(cron.WithLocation(time.UTC)),
		pricing: pricing,
		tenants: tenants,
	}
	if schedule == "" {
		return s, nil
	}
	if _, err := s.cron.AddFunc(schedule, s.RunCleanup); err != nil {
		return nil, fmt.Errorf("schedule cleanup %q: %w", schedule, err)
	}
	return s, nil
}

// Start runs the scheduler in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the scheduler and waits for a running job until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

// RunCleanup removes past overrides for every tenant. A failing tenant is
// logged and does not stop the others.
func (s *Scheduler) RunCleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupJobTimeout)
	defer cancel()

	var total int64
	for _, slug := range s.tenants.Slugs() {
		n, err := s.pricing.CleanupPastOverrides(ctx, slug)
		if err != nil {
			slog.Error("scheduled cleanup failed", "tenant", slug, "error", err)
			continue
		}
		total += n
	}
	slog.Info("scheduled cleanup finished", "deleted", total)
}
