package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// inboxRetention bounds how long a processed message id is remembered.
const inboxRetention = 30 * 24 * time.Hour

// Inbox records which broker messages a consumer has already applied. The
// document id is "<consumer>/<event id>".
type Inbox struct {
	col      *mongo.Collection
	consumer string
}

func NewInbox(ctx context.Context, db *mongo.Database, consumer string) (*Inbox, error) {
	col := db.Collection("app_inbox")
	_, err := col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "received_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(int32(inboxRetention / time.Second)),
	})
	if err != nil {
		return nil, err
	}
	return &Inbox{col: col, consumer: consumer}, nil
}

func (i *Inbox) Processed(ctx context.Context, eventID string) (bool, error) {
	err := i.col.FindOne(ctx, bson.M{"_id": i.docID(eventID)}).Err()
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return false, nil
	default:
		return false, err
	}
}

func (i *Inbox) MarkProcessed(ctx context.Context, eventID string) error {
	_, err := i.col.InsertOne(ctx, bson.M{
		"_id":         i.docID(eventID),
		"consumer":    i.consumer,
		"event_id":    eventID,
		"received_at": time.Now().UTC(),
	})
	if mongo.IsDuplicateKeyError(err) {
		return nil
	}
	return err
}

func (i *Inbox) docID(eventID string) string {
	return i.consumer + "/" + eventID
}
