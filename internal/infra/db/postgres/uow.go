package postgres

import (
	"context"
	"errors"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"lendit/internal/app/uow"
	domainbooking "lendit/internal/domain/booking"
	domainitems "lendit/internal/domain/items"
)

var ErrUnitOfWorkNotConfigured = errors.New("postgres: unit of work factory missing pool")

// Factory opens one pgx transaction per unit of work.
type Factory struct {
	Pool         *pgxpool.Pool
	ItemsRepo    *ItemRepository
	BookingsRepo *BookingRepository
}

func NewFactory(pool *pgxpool.Pool) Factory {
	return Factory{Pool: pool, ItemsRepo: NewItemRepository(pool), BookingsRepo: NewBookingRepository(pool)}
}

func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.Pool == nil || f.ItemsRepo == nil || f.BookingsRepo == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	txOpts := pgx.TxOptions{IsoLevel: pgx.ReadCommitted}
	if opts.ReadOnly {
		txOpts.AccessMode = pgx.ReadOnly
	}
	tx, err := f.Pool.BeginTx(ctx, txOpts)
	if err != nil {
		return nil, err
	}
	return &Unit{tx: tx, items: f.ItemsRepo, bookings: f.BookingsRepo}, nil
}

type Unit struct {
	tx       pgx.Tx
	items    *ItemRepository
	bookings *BookingRepository

	mu   sync.Mutex
	done bool
}

func (u *Unit) Items() domainitems.Repository {
	return u.items
}

func (u *Unit) Bookings() domainbooking.Repository {
	return u.bookings
}

// LockItem takes a row lock on the item that lasts until the transaction ends.
func (u *Unit) LockItem(ctx context.Context, id domainitems.ItemID) error {
	var locked string
	err := u.tx.QueryRow(ctx, `SELECT id FROM items WHERE id = $1 FOR UPDATE`, string(id)).Scan(&locked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domainitems.ErrItemNotFound
		}
		return translate(err)
	}
	return nil
}

func (u *Unit) Commit(ctx context.Context) error {
	if !u.finish() {
		return nil
	}
	return translate(u.tx.Commit(ctx))
}

func (u *Unit) Rollback(ctx context.Context) error {
	if !u.finish() {
		return nil
	}
	return u.tx.Rollback(ctx)
}

func (u *Unit) finish() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.done {
		return false
	}
	u.done = true
	return true
}

// InjectContext exposes the transaction to repositories sharing this unit.
func (u *Unit) InjectContext(ctx context.Context) context.Context {
	return contextWithTx(ctx, u.tx)
}
