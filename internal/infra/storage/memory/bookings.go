package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	domainbooking "lendit/internal/domain/booking"
	domainitems "lendit/internal/domain/items"
	"lendit/internal/domain/shared/daterange"
)

type BookingRepository struct {
	mu       sync.RWMutex
	bookings map[domainbooking.BookingID]*domainbooking.Booking
	byItem   map[domainitems.ItemID][]domainbooking.BookingID
}

func NewBookingRepository() *BookingRepository {
	return &BookingRepository{
		bookings: make(map[domainbooking.BookingID]*domainbooking.Booking),
		byItem:   make(map[domainitems.ItemID][]domainbooking.BookingID),
	}
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, domainbooking.ErrBookingNotFound
	}
	return b.Clone(), nil
}

// Save performs a compare-and-swap on Version.
func (r *BookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, exists := r.bookings[b.ID]
	if exists && current.Version != b.Version {
		return domainbooking.ErrConcurrentUpdate
	}
	if !exists {
		if b.Version != 0 {
			return domainbooking.ErrConcurrentUpdate
		}
		r.byItem[b.ItemID] = append(r.byItem[b.ItemID], b.ID)
	}
	b.Version++
	r.bookings[b.ID] = b.Clone()
	return nil
}

func (r *BookingRepository) Overlapping(ctx context.Context, itemID domainitems.ItemID, dr daterange.DateRange, statuses []domainbooking.Status) ([]*domainbooking.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domainbooking.Booking, 0)
	for _, id := range r.byItem[itemID] {
		b := r.bookings[id]
		if !statusIn(b.Status, statuses) || !b.Range.Overlaps(dr) {
			continue
		}
		out = append(out, b.Clone())
	}
	return out, nil
}

func (r *BookingRepository) ListByBorrower(ctx context.Context, borrowerID string) ([]*domainbooking.Booking, error) {
	return r.filter(func(b *domainbooking.Booking) bool { return b.BorrowerID == borrowerID }, 0), nil
}

func (r *BookingRepository) ListByLender(ctx context.Context, lenderID string) ([]*domainbooking.Booking, error) {
	return r.filter(func(b *domainbooking.Booking) bool { return b.LenderID == lenderID }, 0), nil
}

func (r *BookingRepository) ListEndedBefore(ctx context.Context, status domainbooking.Status, end time.Time, limit int) ([]*domainbooking.Booking, error) {
	return r.filter(func(b *domainbooking.Booking) bool {
		return b.Status == status && b.Range.End.Before(end)
	}, limit), nil
}

func (r *BookingRepository) filter(keep func(*domainbooking.Booking) bool, limit int) []*domainbooking.Booking {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domainbooking.Booking, 0)
	for _, b := range r.bookings {
		if keep(b) {
			out = append(out, b.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Range.Start.Equal(out[j].Range.Start) {
			return out[i].ID < out[j].ID
		}
		return out[i].Range.Start.Before(out[j].Range.Start)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func statusIn(status domainbooking.Status, statuses []domainbooking.Status) bool {
	if len(statuses) == 0 {
		return true
	}
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

var _ domainbooking.Repository = (*BookingRepository)(nil)
