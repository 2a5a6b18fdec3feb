package uow

import (
	"context"
	"errors"

	"lendit/internal/domain/booking"
	"lendit/internal/domain/items"
)

var (
	ErrUnitOfWorkMissing = errors.New("uow: unit of work missing from context")
	// ErrTransient marks a unit aborted by a concurrent writer. The whole
	// unit may be retried.
	ErrTransient = errors.New("uow: transient transaction conflict")
)

// UnitOfWork groups item and booking writes into one transaction.
type UnitOfWork interface {
	Items() items.Repository
	Bookings() booking.Repository

	// LockItem serializes booking writes for one item until Commit or Rollback.
	// Returns items.ErrItemNotFound for unknown items.
	LockItem(ctx context.Context, id items.ItemID) error

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

type UoWFactory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

type TxOptions struct {
	ReadOnly bool
}

// ContextInjector is implemented by units whose repositories find the
// driver transaction in the context.
type ContextInjector interface {
	InjectContext(ctx context.Context) context.Context
}

type ctxKey struct{}

func FromContext(ctx context.Context) (UnitOfWork, bool) {
	unit, ok := ctx.Value(ctxKey{}).(UnitOfWork)
	return unit, ok
}

// Bind returns a context carrying unit and, when it has one, its driver transaction.
func Bind(ctx context.Context, unit UnitOfWork) context.Context {
	if injector, ok := unit.(ContextInjector); ok {
		ctx = injector.InjectContext(ctx)
	}
	return context.WithValue(ctx, ctxKey{}, unit)
}

// Open joins the unit already bound to ctx or begins a new one. The release
// func rolls back a unit begun here and does nothing for a joined one; it is
// never nil.
func Open(ctx context.Context, factory UoWFactory, opts TxOptions) (UnitOfWork, context.Context, func(), error) {
	if unit, ok := FromContext(ctx); ok {
		return unit, ctx, func() {}, nil
	}
	if factory == nil {
		return nil, ctx, func() {}, ErrUnitOfWorkMissing
	}
	unit, err := factory.Begin(ctx, opts)
	if err != nil {
		return nil, ctx, func() {}, err
	}
	execCtx := Bind(ctx, unit)
	return unit, execCtx, func() { _ = unit.Rollback(execCtx) }, nil
}

// Within runs fn in the unit bound to ctx, or in a fresh unit committed when
// fn succeeds.
func Within(ctx context.Context, factory UoWFactory, fn func(ctx context.Context, unit UnitOfWork) error) error {
	if unit, ok := FromContext(ctx); ok {
		return fn(ctx, unit)
	}
	if factory == nil {
		return ErrUnitOfWorkMissing
	}
	unit, err := factory.Begin(ctx, TxOptions{})
	if err != nil {
		return err
	}
	execCtx := Bind(ctx, unit)
	if err := fn(execCtx, unit); err != nil {
		_ = unit.Rollback(execCtx)
		return err
	}
	return unit.Commit(execCtx)
}
