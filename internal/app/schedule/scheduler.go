package schedule

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Periodic runs a job on a fixed interval until the context is cancelled.
// Job errors are logged and do not stop the loop.
type Periodic struct {
	Job      Job
	Interval time.Duration
	Logger   *slog.Logger
}

var ErrJobRequired = errors.New("schedule: job required")

func (p *Periodic) Run(ctx context.Context) error {
	if p.Job == nil {
		return ErrJobRequired
	}
	interval := p.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := p.Job.Run(ctx); err != nil && p.Logger != nil && ctx.Err() == nil {
				p.Logger.Error("scheduled job failed", "job", p.Job.Name(), "error", err)
			}
		}
	}
}
