package scheduler

import (
	"context"
	"log/slog"
	"time"
)

// Daily invokes a job once a day at a fixed UTC hour. The job itself stays a
// plain function so it can also be triggered on demand (admin endpoint,
// tests) without going through the schedule.
type Daily struct {
	hourUTC int
	name    string
	job     func(context.Context) error
}

func NewDaily(name string, hourUTC int, job func(context.Context) error) *Daily {
	return &Daily{hourUTC: hourUTC, name: name, job: job}
}

// Run blocks until ctx is cancelled, firing the job at each scheduled time.
// A job error is logged and the next run retries; it never stops the loop.
func (d *Daily) Run(ctx context.Context) {
	for {
		now := time.Now().UTC()
		next := nextRunAfter(now, d.hourUTC)
		timer := time.NewTimer(next.Sub(now))
		slog.Info("scheduled job", "job", d.name, "next_run", next)

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		if err := d.job(ctx); err != nil {
			slog.Error("scheduled job failed", "job", d.name, "err", err)
		}
	}
}

// nextRunAfter returns the first instant strictly after now whose UTC hour
// matches hourUTC, on the hour.
func nextRunAfter(now time.Time, hourUTC int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hourUTC, 0, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
