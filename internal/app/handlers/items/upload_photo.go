package items

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/google/uuid"

	"lendit/internal/app/commands"
	"lendit/internal/app/dto"
	"lendit/internal/app/policies"
	"lendit/internal/app/uow"
	"lendit/internal/clock"
)

const uploadItemPhotoKey = "items.photos.upload"

var ErrPhotoStoreUnavailable = errors.New("items: photo storage is not configured")

type UploadItemPhotoCommand struct {
	OwnerID     string `validate:"required"`
	ItemID      string `validate:"required"`
	FileName    string
	ContentType string
	Size        int64
	Reader      io.Reader `validate:"required"`
}

func (c UploadItemPhotoCommand) Key() string { return uploadItemPhotoKey }

func (c UploadItemPhotoCommand) Actor() string { return c.OwnerID }

type UploadItemPhotoHandler struct {
	UoWFactory uow.UoWFactory
	Photos     policies.PhotoStore
	Clock      clock.Clock
	Logger     *slog.Logger
}

func (h *UploadItemPhotoHandler) Handle(ctx context.Context, cmd UploadItemPhotoCommand) (*dto.Item, error) {
	if h.Photos == nil {
		return nil, ErrPhotoStoreUnavailable
	}
	var result dto.Item
	err := uow.Within(ctx, h.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) error {
		item, err := loadOwned(ctx, unit, cmd.ItemID, cmd.OwnerID)
		if err != nil {
			return err
		}
		key := objectKey(string(item.ID), cmd.FileName)
		publicURL, err := h.Photos.Upload(ctx, key, cmd.Reader, cmd.Size, cmd.ContentType)
		if err != nil {
			return fmt.Errorf("upload photo: %w", err)
		}
		if err := item.AddPhoto(publicURL, clock.OrSystem(h.Clock).Now()); err != nil {
			return err
		}
		if err := unit.Items().Save(ctx, item); err != nil {
			return err
		}
		if h.Logger != nil {
			h.Logger.Info("item photo added", "item_id", item.ID, "object_key", key)
		}
		result = dto.MapItem(item)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func objectKey(itemID, fileName string) string {
	ext := strings.ToLower(path.Ext(strings.TrimSpace(fileName)))
	if len(ext) > 8 {
		ext = ""
	}
	return fmt.Sprintf("items/%s/%s%s", itemID, uuid.NewString(), ext)
}

var _ commands.Handler[UploadItemPhotoCommand, *dto.Item] = (*UploadItemPhotoHandler)(nil)
