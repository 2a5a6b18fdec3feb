package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	itemsCollection    = "items"
	bookingsCollection = "bookings"
)

type Client struct {
	DB *mongo.Database
}

func New(ctx context.Context, uri, database string) (*Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	opts := options.Client().ApplyURI(uri).SetRetryWrites(true)
	m, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := m.Ping(ctx, nil); err != nil {
		_ = m.Disconnect(context.Background())
		return nil, err
	}
	return &Client{DB: m.Database(database)}, nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.DB.Client().Ping(ctx, nil)
}

func (c *Client) Close(ctx context.Context) error {
	return c.DB.Client().Disconnect(ctx)
}

// EnsureIndexes creates the indexes the repositories query by.
func (c *Client) EnsureIndexes(ctx context.Context) error {
	if _, err := c.DB.Collection(itemsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "created_at", Value: 1}},
	}); err != nil {
		return err
	}
	_, err := c.DB.Collection(bookingsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "item_id", Value: 1}, {Key: "status", Value: 1}, {Key: "start", Value: 1}}},
		{Keys: bson.D{{Key: "borrower_id", Value: 1}, {Key: "start", Value: 1}}},
		{Keys: bson.D{{Key: "lender_id", Value: 1}, {Key: "start", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "end", Value: 1}}},
	})
	return err
}
