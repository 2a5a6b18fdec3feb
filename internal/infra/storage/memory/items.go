package memory

import (
	"context"
	"sync"

	domainitems "lendit/internal/domain/items"
)

// ItemRepository keeps items in memory. Callers always receive copies, so an
// item changes only through Save.
type ItemRepository struct {
	mu    sync.RWMutex
	items map[domainitems.ItemID]*domainitems.Item
}

func NewItemRepository() *ItemRepository {
	return &ItemRepository{items: make(map[domainitems.ItemID]*domainitems.Item)}
}

func (r *ItemRepository) ByID(ctx context.Context, id domainitems.ItemID) (*domainitems.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	item, ok := r.items[id]
	if !ok {
		return nil, domainitems.ErrItemNotFound
	}
	return item.Clone(), nil
}

// Save stores the item if its version matches the stored one and bumps the version.
func (r *ItemRepository) Save(ctx context.Context, item *domainitems.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, exists := r.items[item.ID]
	if exists && current.Version != item.Version {
		return domainitems.ErrConcurrentUpdate
	}
	if !exists && item.Version != 0 {
		return domainitems.ErrConcurrentUpdate
	}
	item.Version++
	r.items[item.ID] = item.Clone()
	return nil
}

func (r *ItemRepository) ListByOwner(ctx context.Context, owner domainitems.OwnerID) ([]*domainitems.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domainitems.Item, 0)
	for _, item := range r.items {
		if item.Owner == owner {
			out = append(out, item.Clone())
		}
	}
	return out, nil
}

func (r *ItemRepository) exists(id domainitems.ItemID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.items[id]
	return ok
}

var _ domainitems.Repository = (*ItemRepository)(nil)
