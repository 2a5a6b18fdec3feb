package items

import (
	"context"
	"errors"
	"strings"
	"time"

	"lendit/internal/domain/shared/events"
	"lendit/internal/domain/shared/money"
)

var (
	ErrItemNotFound     = errors.New("items: not found")
	ErrNameRequired     = errors.New("items: name is required")
	ErrOwnerRequired    = errors.New("items: owner is required")
	ErrNegativeRate     = errors.New("items: daily rate must be non-negative")
	ErrNotOwner         = errors.New("items: not owned by user")
	ErrItemArchived     = errors.New("items: item is archived")
	ErrItemUnavailable  = errors.New("items: item is not available for booking")
	ErrActiveBookings   = errors.New("items: item has active bookings")
	ErrConcurrentUpdate = errors.New("items: concurrent update detected")
)

type ItemID string
type OwnerID string

type ItemState string

const (
	ItemActive   ItemState = "ACTIVE"
	ItemArchived ItemState = "ARCHIVED"
)

// Item is a rentable object listed by its owner. The catalog is its only writer.
type Item struct {
	ID          ItemID
	Owner       OwnerID
	Name        string
	Description string
	DailyRate   money.Money
	Available   bool
	Photos      []string
	State       ItemState
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Version     int64
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id ItemID) (*Item, error)
	Save(ctx context.Context, item *Item) error
	ListByOwner(ctx context.Context, owner OwnerID) ([]*Item, error)
}

type CreateParams struct {
	ID          ItemID
	Owner       OwnerID
	Name        string
	Description string
	DailyRate   money.Money
	Now         time.Time
}

func NewItem(params CreateParams) (*Item, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, errors.New("items: id is required")
	}
	if strings.TrimSpace(string(params.Owner)) == "" {
		return nil, ErrOwnerRequired
	}
	if strings.TrimSpace(params.Name) == "" {
		return nil, ErrNameRequired
	}
	if params.DailyRate.IsNegative() {
		return nil, ErrNegativeRate
	}
	if params.DailyRate.Currency == "" {
		return nil, money.ErrInvalidCurrency
	}
	now := params.Now.UTC()
	item := &Item{
		ID:          params.ID,
		Owner:       params.Owner,
		Name:        strings.TrimSpace(params.Name),
		Description: strings.TrimSpace(params.Description),
		DailyRate:   params.DailyRate,
		Available:   true,
		State:       ItemActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	item.Record(ItemListed{ItemID: item.ID, Owner: item.Owner, DailyRate: item.DailyRate, At: now})
	return item, nil
}

// UpdateParams carries optional changes; nil fields are left untouched.
type UpdateParams struct {
	Name        *string
	Description *string
	DailyRate   *money.Money
	Available   *bool
	Now         time.Time
}

func (i *Item) Update(params UpdateParams) error {
	if i.State == ItemArchived {
		return ErrItemArchived
	}
	if params.Name != nil && strings.TrimSpace(*params.Name) == "" {
		return ErrNameRequired
	}
	if params.DailyRate != nil {
		if params.DailyRate.IsNegative() {
			return ErrNegativeRate
		}
		if params.DailyRate.Currency == "" {
			return money.ErrInvalidCurrency
		}
	}

	if params.Name != nil {
		i.Name = strings.TrimSpace(*params.Name)
	}
	if params.Description != nil {
		i.Description = strings.TrimSpace(*params.Description)
	}
	if params.DailyRate != nil {
		i.DailyRate = *params.DailyRate
	}
	if params.Available != nil {
		i.Available = *params.Available
	}
	i.UpdatedAt = params.Now.UTC()
	i.Record(ItemUpdated{ItemID: i.ID, DailyRate: i.DailyRate, Available: i.Available, At: i.UpdatedAt})
	return nil
}

func (i *Item) AddPhoto(url string, now time.Time) error {
	if i.State == ItemArchived {
		return ErrItemArchived
	}
	url = strings.TrimSpace(url)
	if url == "" {
		return errors.New("items: photo url is required")
	}
	i.Photos = append(i.Photos, url)
	i.UpdatedAt = now.UTC()
	return nil
}

// Archive soft-deletes the item. Callers check for active bookings first.
func (i *Item) Archive(now time.Time) error {
	if i.State == ItemArchived {
		return ErrItemArchived
	}
	i.State = ItemArchived
	i.Available = false
	i.UpdatedAt = now.UTC()
	i.Record(ItemArchivedEvent{ItemID: i.ID, At: i.UpdatedAt})
	return nil
}

// Bookable reports whether new bookings may be placed on the item.
func (i *Item) Bookable() bool {
	return i.State == ItemActive && i.Available
}

func (i *Item) OwnedBy(user string) bool {
	return string(i.Owner) == strings.TrimSpace(user)
}

// Clone returns a copy without pending events, used by stores that hand out snapshots.
func (i *Item) Clone() *Item {
	if i == nil {
		return nil
	}
	clone := *i
	clone.Photos = append([]string(nil), i.Photos...)
	clone.EventRecorder = events.EventRecorder{}
	return &clone
}
