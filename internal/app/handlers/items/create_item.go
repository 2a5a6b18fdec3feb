package items

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"lendit/internal/app/commands"
	"lendit/internal/app/dto"
	"lendit/internal/app/outbox"
	"lendit/internal/app/uow"
	"lendit/internal/clock"
	domainitems "lendit/internal/domain/items"
	"lendit/internal/domain/shared/money"
)

const (
	createItemKey  = "items.create"
	updateItemKey  = "items.update"
	archiveItemKey = "items.archive"
)

type CreateItemCommand struct {
	OwnerID        string `validate:"required"`
	Name           string `validate:"required,max=200"`
	Description    string `validate:"max=5000"`
	DailyRateCents int64  `validate:"gte=0"`
	Currency       string
}

func (c CreateItemCommand) Key() string { return createItemKey }

func (c CreateItemCommand) Actor() string { return c.OwnerID }

type CreateItemHandler struct {
	UoWFactory      uow.UoWFactory
	Outbox          outbox.Outbox
	Encoder         outbox.EventEncoder
	Clock           clock.Clock
	DefaultCurrency string
	Logger          *slog.Logger
}

func (h *CreateItemHandler) Handle(ctx context.Context, cmd CreateItemCommand) (*dto.Item, error) {
	rate, err := money.New(cmd.DailyRateCents, currencyOr(cmd.Currency, h.DefaultCurrency))
	if err != nil {
		return nil, err
	}
	item, err := domainitems.NewItem(domainitems.CreateParams{
		ID:          domainitems.ItemID(uuid.NewString()),
		Owner:       domainitems.OwnerID(strings.TrimSpace(cmd.OwnerID)),
		Name:        cmd.Name,
		Description: cmd.Description,
		DailyRate:   rate,
		Now:         clock.OrSystem(h.Clock).Now(),
	})
	if err != nil {
		return nil, err
	}
	err = uow.Within(ctx, h.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) error {
		if err := unit.Items().Save(ctx, item); err != nil {
			return err
		}
		return outbox.Record(ctx, h.Outbox, h.Encoder, item)
	})
	if err != nil {
		return nil, err
	}
	if h.Logger != nil {
		h.Logger.Info("item created", "item_id", item.ID, "owner_id", item.Owner)
	}
	result := dto.MapItem(item)
	return &result, nil
}

type UpdateItemCommand struct {
	OwnerID        string  `validate:"required"`
	ItemID         string  `validate:"required"`
	Name           *string `validate:"omitempty,max=200"`
	Description    *string `validate:"omitempty,max=5000"`
	DailyRateCents *int64  `validate:"omitempty,gte=0"`
	Currency       *string
	Available      *bool
}

func (c UpdateItemCommand) Key() string { return updateItemKey }

func (c UpdateItemCommand) Actor() string { return c.OwnerID }

type UpdateItemHandler struct {
	UoWFactory      uow.UoWFactory
	Outbox          outbox.Outbox
	Encoder         outbox.EventEncoder
	Clock           clock.Clock
	DefaultCurrency string
	Logger          *slog.Logger
}

func (h *UpdateItemHandler) Handle(ctx context.Context, cmd UpdateItemCommand) (*dto.Item, error) {
	var updated *domainitems.Item
	err := uow.Within(ctx, h.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) error {
		item, err := loadOwned(ctx, unit, cmd.ItemID, cmd.OwnerID)
		if err != nil {
			return err
		}
		params := domainitems.UpdateParams{
			Name:        cmd.Name,
			Description: cmd.Description,
			Available:   cmd.Available,
			Now:         clock.OrSystem(h.Clock).Now(),
		}
		if cmd.DailyRateCents != nil || cmd.Currency != nil {
			amount := item.DailyRate.Amount
			if cmd.DailyRateCents != nil {
				amount = *cmd.DailyRateCents
			}
			currency := item.DailyRate.Currency
			if cmd.Currency != nil {
				currency = currencyOr(*cmd.Currency, h.DefaultCurrency)
			}
			rate, err := money.New(amount, currency)
			if err != nil {
				return err
			}
			params.DailyRate = &rate
		}
		if err := item.Update(params); err != nil {
			return err
		}
		if err := unit.Items().Save(ctx, item); err != nil {
			return err
		}
		updated = item
		return outbox.Record(ctx, h.Outbox, h.Encoder, item)
	})
	if err != nil {
		return nil, err
	}
	if h.Logger != nil {
		h.Logger.Info("item updated", "item_id", updated.ID, "owner_id", updated.Owner)
	}
	result := dto.MapItem(updated)
	return &result, nil
}

func loadOwned(ctx context.Context, unit uow.UnitOfWork, itemID, ownerID string) (*domainitems.Item, error) {
	item, err := unit.Items().ByID(ctx, domainitems.ItemID(strings.TrimSpace(itemID)))
	if err != nil {
		return nil, err
	}
	if !item.OwnedBy(ownerID) {
		return nil, domainitems.ErrNotOwner
	}
	return item, nil
}

func currencyOr(currency, fallback string) string {
	if strings.TrimSpace(currency) != "" {
		return currency
	}
	if strings.TrimSpace(fallback) != "" {
		return fallback
	}
	return "USD"
}

var (
	_ commands.Handler[CreateItemCommand, *dto.Item] = (*CreateItemHandler)(nil)
	_ commands.Handler[UpdateItemCommand, *dto.Item] = (*UpdateItemHandler)(nil)
)
