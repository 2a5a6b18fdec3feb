package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"lendit/internal/app/uow"
	domainitems "lendit/internal/domain/items"
	"lendit/internal/domain/shared/money"
)

type itemFixture struct {
	ID             string   `json:"id"`
	Owner          string   `json:"owner"`
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	DailyRateCents int64    `json:"daily_rate_cents"`
	Currency       string   `json:"currency"`
	Photos         []string `json:"photos"`
}

// loadItemFixtures seeds items that do not exist yet. A missing file is not an error.
func loadItemFixtures(ctx context.Context, factory uow.UoWFactory, path, defaultCurrency string, logger *slog.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Debug("item fixtures file not found, skipping", "path", path)
			return nil
		}
		return fmt.Errorf("read fixtures: %w", err)
	}
	if len(data) == 0 {
		logger.Warn("item fixtures file empty", "path", path)
		return nil
	}

	var fixtures []itemFixture
	if err := json.Unmarshal(data, &fixtures); err != nil {
		return fmt.Errorf("decode fixtures: %w", err)
	}

	now := time.Now().UTC()
	for _, fx := range fixtures {
		currency := strings.ToUpper(strings.TrimSpace(fx.Currency))
		if currency == "" {
			currency = defaultCurrency
		}
		rate, err := money.New(fx.DailyRateCents, currency)
		if err != nil {
			logger.Error("fixture invalid", "item_id", fx.ID, "error", err)
			continue
		}
		item, err := domainitems.NewItem(domainitems.CreateParams{
			ID:          domainitems.ItemID(fx.ID),
			Owner:       domainitems.OwnerID(fx.Owner),
			Name:        fx.Name,
			Description: fx.Description,
			DailyRate:   rate,
			Now:         now,
		})
		if err != nil {
			logger.Error("fixture invalid", "item_id", fx.ID, "error", err)
			continue
		}
		for _, url := range fx.Photos {
			if err := item.AddPhoto(url, now); err != nil {
				logger.Warn("fixture photo skipped", "item_id", fx.ID, "error", err)
			}
		}
		created, err := saveIfMissing(ctx, factory, item)
		if err != nil {
			logger.Error("cannot store fixture item", "item_id", fx.ID, "error", err)
			continue
		}
		if created {
			logger.Info("item fixture imported", "item_id", item.ID)
		}
	}
	return nil
}

func saveIfMissing(ctx context.Context, factory uow.UoWFactory, item *domainitems.Item) (bool, error) {
	unit, err := factory.Begin(ctx, uow.TxOptions{})
	if err != nil {
		return false, err
	}
	execCtx := uow.Bind(ctx, unit)
	if _, err := unit.Items().ByID(execCtx, item.ID); err == nil {
		_ = unit.Rollback(execCtx)
		return false, nil
	} else if !errors.Is(err, domainitems.ErrItemNotFound) {
		_ = unit.Rollback(execCtx)
		return false, err
	}
	if err := unit.Items().Save(execCtx, item); err != nil {
		_ = unit.Rollback(execCtx)
		return false, err
	}
	return true, unit.Commit(execCtx)
}

func defaultItemFixturesPath() string {
	candidates := []string{
		filepath.Join("data", "items.json"),
		filepath.Join("..", "data", "items.json"),
	}
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return candidates[0]
}
