package dto

import (
	"time"

	"lendit/internal/domain/items"
)

type Item struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	DailyRate   MoneyDTO  `json:"daily_rate"`
	Available   bool      `json:"available"`
	Archived    bool      `json:"archived"`
	Photos      []string  `json:"photos"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type ItemCollection struct {
	Items []Item `json:"items"`
}

func MapItem(item *items.Item) Item {
	photos := append([]string{}, item.Photos...)
	return Item{
		ID:          string(item.ID),
		OwnerID:     string(item.Owner),
		Name:        item.Name,
		Description: item.Description,
		DailyRate:   MapMoney(item.DailyRate),
		Available:   item.Bookable(),
		Archived:    item.State == items.ItemArchived,
		Photos:      photos,
		CreatedAt:   item.CreatedAt,
		UpdatedAt:   item.UpdatedAt,
	}
}

func MapItems(list []*items.Item) ItemCollection {
	out := make([]Item, 0, len(list))
	for _, item := range list {
		out = append(out, MapItem(item))
	}
	return ItemCollection{Items: out}
}
