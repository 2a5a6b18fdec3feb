package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"lendit/internal/app/commands"
	"lendit/internal/app/outbox"
	"lendit/internal/app/uow"
)

type TxOptionsProvider func(cmd commands.Command) uow.TxOptions

// TxRetryPolicy bounds how long units aborted with uow.ErrTransient are
// retried. Delays double from BaseDelay up to MaxDelay.
type TxRetryPolicy struct {
	Budget    time.Duration
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

var DefaultTxRetry = TxRetryPolicy{
	Budget:    5 * time.Second,
	BaseDelay: 10 * time.Millisecond,
	MaxDelay:  250 * time.Millisecond,
}

func (p TxRetryPolicy) withDefaults() TxRetryPolicy {
	if p.Budget <= 0 {
		p.Budget = DefaultTxRetry.Budget
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = DefaultTxRetry.BaseDelay
	}
	if p.MaxDelay < p.BaseDelay {
		p.MaxDelay = p.BaseDelay
	}
	return p
}

// Transaction runs each command inside a fresh unit of work, committing on success.
// Units aborted with uow.ErrTransient are retried from scratch under DefaultTxRetry.
func Transaction(factory uow.UoWFactory, optsProvider TxOptionsProvider, logger *slog.Logger) CommandMiddleware {
	return TransactionWithRetry(factory, optsProvider, DefaultTxRetry, logger)
}

// TransactionWithRetry is Transaction with an explicit retry policy. Retries
// stop when the budget is spent or ctx is done, whichever comes first.
func TransactionWithRetry(factory uow.UoWFactory, optsProvider TxOptionsProvider, policy TxRetryPolicy, logger *slog.Logger) CommandMiddleware {
	if factory == nil {
		panic("middleware: uow factory required")
	}
	policy = policy.withDefaults()
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			opts := uow.TxOptions{}
			if optsProvider != nil {
				opts = optsProvider(cmd)
			}
			deadline := time.Now().Add(policy.Budget)
			delay := policy.BaseDelay
			for attempt := 1; ; attempt++ {
				res, err := runInUnit(ctx, factory, opts, cmd, nextFn, logger)
				if err == nil || !errors.Is(err, uow.ErrTransient) {
					return res, err
				}
				if time.Now().Add(delay).After(deadline) {
					if logger != nil {
						logger.Warn("transaction retry budget spent", "command", cmd.Key(), "attempts", attempt)
					}
					return nil, err
				}
				if logger != nil {
					logger.Debug("retrying transient transaction", "command", cmd.Key(), "attempt", attempt, "delay", delay)
				}
				timer := time.NewTimer(delay)
				select {
				case <-ctx.Done():
					timer.Stop()
					return nil, ctx.Err()
				case <-timer.C:
				}
				delay *= 2
				if delay > policy.MaxDelay {
					delay = policy.MaxDelay
				}
			}
		})
	}
}

func runInUnit(ctx context.Context, factory uow.UoWFactory, opts uow.TxOptions, cmd commands.Command, next commandFunc, logger *slog.Logger) (any, error) {
	unit, err := factory.Begin(ctx, opts)
	if err != nil {
		return nil, err
	}
	execCtx := uow.Bind(ctx, unit)
	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := unit.Rollback(execCtx); rbErr != nil && logger != nil {
			logger.Warn("rollback failed", "command", cmd.Key(), "error", rbErr)
		}
	}()

	res, err := next(execCtx, cmd)
	if err != nil {
		return nil, err
	}
	if err := unit.Commit(execCtx); err != nil {
		return nil, err
	}
	committed = true
	return res, nil
}

// OutboxFlush writes buffered event records after a successful handler. It must
// run inside Transaction so the records commit with the aggregate.
func OutboxFlush(box outbox.Outbox) CommandMiddleware {
	if box == nil {
		panic("middleware: outbox required")
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			res, err := next.Dispatch(ctx, cmd)
			if err == nil {
				err = box.Flush(ctx)
			}
			if err != nil {
				return nil, err
			}
			return res, nil
		})
	}
}
