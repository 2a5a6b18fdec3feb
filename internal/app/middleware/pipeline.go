package middleware

import (
	"context"
	"log/slog"

	"lendit/internal/app/commands"
	"lendit/internal/app/outbox"
	"lendit/internal/app/queries"
	"lendit/internal/app/uow"
)

type CommandMiddleware func(next commands.Bus) commands.Bus

type QueryMiddleware func(next queries.Bus) queries.Bus

// ChainCommands wraps base with mws, outermost first.
func ChainCommands(base commands.Bus, mws ...CommandMiddleware) commands.Bus {
	wrapped := base
	for i := len(mws) - 1; i >= 0; i-- {
		wrapped = mws[i](wrapped)
	}
	return wrapped
}

func ChainQueries(base queries.Bus, mws ...QueryMiddleware) queries.Bus {
	wrapped := base
	for i := len(mws) - 1; i >= 0; i-- {
		wrapped = mws[i](wrapped)
	}
	return wrapped
}

type PipelineDeps struct {
	Logger      *slog.Logger
	Validator   Validator
	Idempotency IdempotencyStore
	IdempOpts   IdempotencyOptions
	UoW         uow.UoWFactory
	Outbox      outbox.Outbox
	TxRetry     TxRetryPolicy
}

// CommandPipeline returns the standard write path:
// logging, actor check, validation, idempotency, transaction, outbox flush.
func CommandPipeline(deps PipelineDeps) []CommandMiddleware {
	mws := []CommandMiddleware{Logging(deps.Logger), Authorization(RequireActor)}
	if deps.Validator != nil {
		mws = append(mws, Validation(deps.Validator))
	}
	if deps.Idempotency != nil {
		mws = append(mws, Idempotency(deps.Idempotency, deps.IdempOpts))
	}
	mws = append(mws, TransactionWithRetry(deps.UoW, nil, deps.TxRetry, deps.Logger))
	if deps.Outbox != nil {
		mws = append(mws, OutboxFlush(deps.Outbox))
	}
	return mws
}

func QueryPipeline(deps PipelineDeps) []QueryMiddleware {
	mws := []QueryMiddleware{QueryLogging(deps.Logger), QueryAuthorization(RequireActor)}
	if deps.Validator != nil {
		mws = append(mws, QueryValidation(deps.Validator))
	}
	return mws
}

type commandFunc func(ctx context.Context, cmd commands.Command) (any, error)

func (f commandFunc) Dispatch(ctx context.Context, cmd commands.Command) (any, error) {
	return f(ctx, cmd)
}

func wrapCommand(next commands.Bus) commandFunc {
	return func(ctx context.Context, cmd commands.Command) (any, error) {
		return next.Dispatch(ctx, cmd)
	}
}

type queryFunc func(ctx context.Context, query queries.Query) (any, error)

func (f queryFunc) Ask(ctx context.Context, q queries.Query) (any, error) {
	return f(ctx, q)
}

func wrapQuery(next queries.Bus) queryFunc {
	return func(ctx context.Context, q queries.Query) (any, error) {
		return next.Ask(ctx, q)
	}
}
