package items

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"lendit/internal/app/commands"
	"lendit/internal/app/dto"
	"lendit/internal/app/outbox"
	"lendit/internal/app/uow"
	"lendit/internal/clock"
	"lendit/internal/domain/booking"
	domainitems "lendit/internal/domain/items"
	"lendit/internal/domain/shared/daterange"
)

var farFuture = time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC)

type ArchiveItemCommand struct {
	OwnerID string `validate:"required"`
	ItemID  string `validate:"required"`
}

func (c ArchiveItemCommand) Key() string { return archiveItemKey }

func (c ArchiveItemCommand) Actor() string { return c.OwnerID }

type ArchiveItemHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Clock      clock.Clock
	Logger     *slog.Logger
}

// Handle soft-deletes an item. Items with pending or confirmed bookings that
// have not yet ended cannot be archived.
func (h *ArchiveItemHandler) Handle(ctx context.Context, cmd ArchiveItemCommand) (*dto.Item, error) {
	now := clock.OrSystem(h.Clock).Now()
	var archived *domainitems.Item
	err := uow.Within(ctx, h.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) error {
		item, err := loadOwned(ctx, unit, cmd.ItemID, cmd.OwnerID)
		if err != nil {
			return err
		}
		if err := unit.LockItem(ctx, item.ID); err != nil {
			return err
		}
		upcoming := daterange.DateRange{Start: daterange.StartOfDay(now), End: farFuture}
		active, err := unit.Bookings().Overlapping(ctx, item.ID, upcoming, booking.BlockingStatuses)
		if err != nil {
			return err
		}
		if len(active) > 0 {
			return fmt.Errorf("%w: %d open", domainitems.ErrActiveBookings, len(active))
		}
		if err := item.Archive(now); err != nil {
			return err
		}
		if err := unit.Items().Save(ctx, item); err != nil {
			return err
		}
		archived = item
		return outbox.Record(ctx, h.Outbox, h.Encoder, item)
	})
	if err != nil {
		return nil, err
	}
	if h.Logger != nil {
		h.Logger.Info("item archived", "item_id", archived.ID, "owner_id", archived.Owner)
	}
	result := dto.MapItem(archived)
	return &result, nil
}

var _ commands.Handler[ArchiveItemCommand, *dto.Item] = (*ArchiveItemHandler)(nil)
