package memory

import (
	"context"
	"sync"

	domainitems "lendit/internal/domain/items"
)

// ItemLocks hands out one exclusive lock per item. Waiting honours context cancellation.
type ItemLocks struct {
	mu    sync.Mutex
	slots map[domainitems.ItemID]chan struct{}
}

func NewItemLocks() *ItemLocks {
	return &ItemLocks{slots: make(map[domainitems.ItemID]chan struct{})}
}

func (l *ItemLocks) slot(id domainitems.ItemID) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.slots[id]
	if !ok {
		ch = make(chan struct{}, 1)
		l.slots[id] = ch
	}
	return ch
}

// Acquire blocks until the item lock is free and returns its release function.
func (l *ItemLocks) Acquire(ctx context.Context, id domainitems.ItemID) (func(), error) {
	ch := l.slot(id)
	select {
	case ch <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-ch }) }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
