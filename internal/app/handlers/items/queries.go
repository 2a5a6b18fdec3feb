package items

import (
	"context"
	"sort"
	"strings"

	"lendit/internal/app/dto"
	"lendit/internal/app/queries"
	"lendit/internal/app/uow"
	domainitems "lendit/internal/domain/items"
)

const (
	getItemKey        = "items.get"
	listOwnerItemsKey = "items.list_owner"
)

type GetItemQuery struct {
	ItemID string `validate:"required"`
}

func (q GetItemQuery) Key() string { return getItemKey }

type GetItemHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetItemHandler) Handle(ctx context.Context, q GetItemQuery) (dto.Item, error) {
	unit, execCtx, release, err := uow.Open(ctx, h.UoWFactory, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return dto.Item{}, err
	}
	defer release()
	item, err := unit.Items().ByID(execCtx, domainitems.ItemID(strings.TrimSpace(q.ItemID)))
	if err != nil {
		return dto.Item{}, err
	}
	return dto.MapItem(item), nil
}

type ListOwnerItemsQuery struct {
	OwnerID         string `validate:"required"`
	IncludeArchived bool
}

func (q ListOwnerItemsQuery) Key() string   { return listOwnerItemsKey }
func (q ListOwnerItemsQuery) Actor() string { return q.OwnerID }

type ListOwnerItemsHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ListOwnerItemsHandler) Handle(ctx context.Context, q ListOwnerItemsQuery) (dto.ItemCollection, error) {
	unit, execCtx, release, err := uow.Open(ctx, h.UoWFactory, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return dto.ItemCollection{}, err
	}
	defer release()
	list, err := unit.Items().ListByOwner(execCtx, domainitems.OwnerID(strings.TrimSpace(q.OwnerID)))
	if err != nil {
		return dto.ItemCollection{}, err
	}
	kept := make([]*domainitems.Item, 0, len(list))
	for _, item := range list {
		if item.State == domainitems.ItemArchived && !q.IncludeArchived {
			continue
		}
		kept = append(kept, item)
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].CreatedAt.After(kept[j].CreatedAt) })
	return dto.MapItems(kept), nil
}

var (
	_ queries.Handler[GetItemQuery, dto.Item]                  = (*GetItemHandler)(nil)
	_ queries.Handler[ListOwnerItemsQuery, dto.ItemCollection] = (*ListOwnerItemsHandler)(nil)
)
