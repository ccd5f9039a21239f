package session

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// DefaultSweepSchedule runs maintenance every ten minutes.
const DefaultSweepSchedule = "@every 10m"

// Janitor sweeps a Store on a cron schedule so idle stores still expire.
type Janitor struct {
	store    *Store
	schedule string
}

// NewJanitor returns a janitor for store. An empty schedule uses
// DefaultSweepSchedule.
func NewJanitor(store *Store, schedule string) *Janitor {
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}
	return &Janitor{store: store, schedule: schedule}
}

// Run sweeps on schedule until ctx is cancelled.
func (j *Janitor) Run(ctx context.Context) error {
	c := cron.New()
	if _, err := c.AddFunc(j.schedule, j.sweep); err != nil {
		return fmt.Errorf("session janitor: invalid schedule %q: %w", j.schedule, err)
	}

	c.Start()
	slog.Info("Session janitor started", "schedule", j.schedule)

	<-ctx.Done()
	<-c.Stop().Done()
	slog.Info("Session janitor stopped")
	return nil
}

func (j *Janitor) sweep() {
	if n := j.store.Sweep(); n > 0 {
		slog.Info("Session sweep", "removed", n, "remaining", j.store.Len())
	}
}
