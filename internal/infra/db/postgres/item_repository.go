package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domainitems "lendit/internal/domain/items"
)

type ItemRepository struct {
	conn
}

func NewItemRepository(pool *pgxpool.Pool) *ItemRepository {
	return &ItemRepository{conn{pool: pool}}
}

const itemColumns = `id, owner_id, name, description, rate_amount, currency, available, photos, state, created_at, updated_at, version`

func (r *ItemRepository) ByID(ctx context.Context, id domainitems.ItemID) (*domainitems.Item, error) {
	item, err := scanItem(r.queryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE id = $1`, string(id)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainitems.ErrItemNotFound
		}
		return nil, fmt.Errorf("get item: %w", translate(err))
	}
	return item, nil
}

func (r *ItemRepository) Save(ctx context.Context, item *domainitems.Item) error {
	photos := item.Photos
	if photos == nil {
		photos = []string{}
	}
	next := item.Version + 1
	if item.Version == 0 {
		const stmt = `
INSERT INTO items (id, owner_id, name, description, rate_amount, currency, available, photos, state, created_at, updated_at, version)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
		_, err := r.exec(ctx, stmt,
			string(item.ID),
			string(item.Owner),
			item.Name,
			item.Description,
			item.DailyRate.Amount,
			item.DailyRate.Currency,
			item.Available,
			photos,
			string(item.State),
			item.CreatedAt.UTC(),
			item.UpdatedAt.UTC(),
			next,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return domainitems.ErrConcurrentUpdate
			}
			return fmt.Errorf("insert item: %w", translate(err))
		}
		item.Version = next
		return nil
	}

	const stmt = `
UPDATE items
SET name = $3, description = $4, rate_amount = $5, currency = $6, available = $7, photos = $8, state = $9, updated_at = $10, version = $11
WHERE id = $1 AND version = $2`
	tag, err := r.exec(ctx, stmt,
		string(item.ID),
		item.Version,
		item.Name,
		item.Description,
		item.DailyRate.Amount,
		item.DailyRate.Currency,
		item.Available,
		photos,
		string(item.State),
		item.UpdatedAt.UTC(),
		next,
	)
	if err != nil {
		return fmt.Errorf("update item: %w", translate(err))
	}
	if tag.RowsAffected() == 0 {
		return domainitems.ErrConcurrentUpdate
	}
	item.Version = next
	return nil
}

func (r *ItemRepository) ListByOwner(ctx context.Context, owner domainitems.OwnerID) ([]*domainitems.Item, error) {
	rows, err := r.query(ctx, `SELECT `+itemColumns+` FROM items WHERE owner_id = $1 ORDER BY created_at, id`, string(owner))
	if err != nil {
		return nil, fmt.Errorf("list items: %w", translate(err))
	}
	defer rows.Close()
	out := make([]*domainitems.Item, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func scanItem(row pgx.Row) (*domainitems.Item, error) {
	var (
		item  domainitems.Item
		id    string
		owner string
		state string
	)
	err := row.Scan(
		&id,
		&owner,
		&item.Name,
		&item.Description,
		&item.DailyRate.Amount,
		&item.DailyRate.Currency,
		&item.Available,
		&item.Photos,
		&state,
		&item.CreatedAt,
		&item.UpdatedAt,
		&item.Version,
	)
	if err != nil {
		return nil, err
	}
	item.ID = domainitems.ItemID(id)
	item.Owner = domainitems.OwnerID(owner)
	item.State = domainitems.ItemState(state)
	item.CreatedAt = item.CreatedAt.UTC()
	item.UpdatedAt = item.UpdatedAt.UTC()
	return &item, nil
}

var _ domainitems.Repository = (*ItemRepository)(nil)
