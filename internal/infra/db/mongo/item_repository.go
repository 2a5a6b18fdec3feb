package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainitems "lendit/internal/domain/items"
	"lendit/internal/domain/shared/money"
)

type ItemRepository struct {
	col *mongo.Collection
}

func NewItemRepository(db *mongo.Database) *ItemRepository {
	return &ItemRepository{col: db.Collection(itemsCollection)}
}

func (r *ItemRepository) ByID(ctx context.Context, id domainitems.ItemID) (*domainitems.Item, error) {
	var doc itemDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainitems.ErrItemNotFound
		}
		return nil, translate(err)
	}
	return doc.toAggregate(), nil
}

// Save inserts version 0 items and otherwise updates only when the stored
// version still matches. booking_seq is left untouched.
func (r *ItemRepository) Save(ctx context.Context, item *domainitems.Item) error {
	doc := newItemDocument(item)
	doc.Version = item.Version + 1
	if item.Version == 0 {
		if _, err := r.col.InsertOne(ctx, doc); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return domainitems.ErrConcurrentUpdate
			}
			return translate(err)
		}
		item.Version = doc.Version
		return nil
	}
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": doc.ID, "version": item.Version}, bson.M{"$set": doc})
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return domainitems.ErrConcurrentUpdate
	}
	item.Version = doc.Version
	return nil
}

func (r *ItemRepository) ListByOwner(ctx context.Context, owner domainitems.OwnerID) ([]*domainitems.Item, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.col.Find(ctx, bson.M{"owner_id": string(owner)}, opts)
	if err != nil {
		return nil, translate(err)
	}
	var docs []itemDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, translate(err)
	}
	out := make([]*domainitems.Item, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toAggregate())
	}
	return out, nil
}

type itemDocument struct {
	ID          string    `bson:"_id"`
	OwnerID     string    `bson:"owner_id"`
	Name        string    `bson:"name"`
	Description string    `bson:"description"`
	RateAmount  int64     `bson:"rate_amount"`
	Currency    string    `bson:"currency"`
	Available   bool      `bson:"available"`
	Photos      []string  `bson:"photos"`
	State       string    `bson:"state"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
	Version     int64     `bson:"version"`
}

func newItemDocument(item *domainitems.Item) itemDocument {
	return itemDocument{
		ID:          string(item.ID),
		OwnerID:     string(item.Owner),
		Name:        item.Name,
		Description: item.Description,
		RateAmount:  item.DailyRate.Amount,
		Currency:    item.DailyRate.Currency,
		Available:   item.Available,
		Photos:      append([]string{}, item.Photos...),
		State:       string(item.State),
		CreatedAt:   item.CreatedAt.UTC(),
		UpdatedAt:   item.UpdatedAt.UTC(),
		Version:     item.Version,
	}
}

func (d itemDocument) toAggregate() *domainitems.Item {
	return &domainitems.Item{
		ID:          domainitems.ItemID(d.ID),
		Owner:       domainitems.OwnerID(d.OwnerID),
		Name:        d.Name,
		Description: d.Description,
		DailyRate:   money.Money{Amount: d.RateAmount, Currency: d.Currency},
		Available:   d.Available,
		Photos:      d.Photos,
		State:       domainitems.ItemState(d.State),
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
		Version:     d.Version,
	}
}

var _ domainitems.Repository = (*ItemRepository)(nil)
