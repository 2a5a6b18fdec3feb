package schedule

import (
	"context"
	"log/slog"
)

// Purger deletes records whose retention has run out.
type Purger interface {
	Purge(ctx context.Context) (int64, error)
}

// PurgeExpired runs a store's Purge on schedule.
type PurgeExpired struct {
	Store  Purger
	Label  string
	Logger *slog.Logger
}

func (p PurgeExpired) Name() string { return p.Label + ".purge" }

func (p PurgeExpired) Run(ctx context.Context) error {
	n, err := p.Store.Purge(ctx)
	if err != nil {
		return err
	}
	if n > 0 && p.Logger != nil {
		p.Logger.Debug("purged expired records", "store", p.Label, "count", n)
	}
	return nil
}
