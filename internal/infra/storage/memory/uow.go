package memory

import (
	"context"
	"errors"
	"sync"

	"lendit/internal/app/uow"
	domainbooking "lendit/internal/domain/booking"
	domainitems "lendit/internal/domain/items"
)

var ErrFactoryMisconfigured = errors.New("memory: unit of work factory misconfigured")

// Factory wires in-memory repositories into a unit-of-work boundary.
// Writes are applied immediately and are not undone on Rollback; item locks
// are the only state a unit owns.
type Factory struct {
	ItemsRepo    *ItemRepository
	BookingsRepo *BookingRepository
	Locks        *ItemLocks
}

// NewFactory builds a factory over fresh repositories.
func NewFactory() Factory {
	return Factory{
		ItemsRepo:    NewItemRepository(),
		BookingsRepo: NewBookingRepository(),
		Locks:        NewItemLocks(),
	}
}

func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.ItemsRepo == nil || f.BookingsRepo == nil || f.Locks == nil {
		return nil, ErrFactoryMisconfigured
	}
	return &Unit{
		items:    f.ItemsRepo,
		bookings: f.BookingsRepo,
		locks:    f.Locks,
		held:     make(map[domainitems.ItemID]func()),
	}, nil
}

type Unit struct {
	items    *ItemRepository
	bookings *BookingRepository
	locks    *ItemLocks

	mu   sync.Mutex
	held map[domainitems.ItemID]func()
}

func (u *Unit) Items() domainitems.Repository {
	return u.items
}

func (u *Unit) Bookings() domainbooking.Repository {
	return u.bookings
}

// LockItem is re-entrant within a unit.
func (u *Unit) LockItem(ctx context.Context, id domainitems.ItemID) error {
	if !u.items.exists(id) {
		return domainitems.ErrItemNotFound
	}
	u.mu.Lock()
	_, already := u.held[id]
	u.mu.Unlock()
	if already {
		return nil
	}
	release, err := u.locks.Acquire(ctx, id)
	if err != nil {
		return err
	}
	u.mu.Lock()
	u.held[id] = release
	u.mu.Unlock()
	return nil
}

func (u *Unit) Commit(ctx context.Context) error {
	u.release()
	return nil
}

func (u *Unit) Rollback(ctx context.Context) error {
	u.release()
	return nil
}

func (u *Unit) release() {
	u.mu.Lock()
	defer u.mu.Unlock()
	for id, release := range u.held {
		release()
		delete(u.held, id)
	}
}
