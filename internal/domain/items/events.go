package items

import (
	"time"

	"lendit/internal/domain/shared/money"
)

type ItemListed struct {
	ItemID    ItemID      `json:"item_id"`
	Owner     OwnerID     `json:"owner"`
	DailyRate money.Money `json:"daily_rate"`
	At        time.Time   `json:"at"`
}

func (e ItemListed) EventName() string     { return "item.listed" }
func (e ItemListed) AggregateID() string   { return string(e.ItemID) }
func (e ItemListed) OccurredAt() time.Time { return e.At }

type ItemUpdated struct {
	ItemID    ItemID      `json:"item_id"`
	DailyRate money.Money `json:"daily_rate"`
	Available bool        `json:"available"`
	At        time.Time   `json:"at"`
}

func (e ItemUpdated) EventName() string     { return "item.updated" }
func (e ItemUpdated) AggregateID() string   { return string(e.ItemID) }
func (e ItemUpdated) OccurredAt() time.Time { return e.At }

type ItemArchivedEvent struct {
	ItemID ItemID    `json:"item_id"`
	At     time.Time `json:"at"`
}

func (e ItemArchivedEvent) EventName() string     { return "item.archived" }
func (e ItemArchivedEvent) AggregateID() string   { return string(e.ItemID) }
func (e ItemArchivedEvent) OccurredAt() time.Time { return e.At }
