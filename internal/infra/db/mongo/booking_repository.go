package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainbooking "lendit/internal/domain/booking"
	domainitems "lendit/internal/domain/items"
	"lendit/internal/domain/shared/daterange"
	"lendit/internal/domain/shared/money"
)

type BookingRepository struct {
	col *mongo.Collection
}

func NewBookingRepository(db *mongo.Database) *BookingRepository {
	return &BookingRepository{col: db.Collection(bookingsCollection)}
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	var doc bookingDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainbooking.ErrBookingNotFound
		}
		return nil, translate(err)
	}
	return doc.toAggregate(), nil
}

// Save performs a compare-and-swap on version.
func (r *BookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	doc := newBookingDocument(b)
	doc.Version = b.Version + 1
	if b.Version == 0 {
		if _, err := r.col.InsertOne(ctx, doc); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return domainbooking.ErrConcurrentUpdate
			}
			return translate(err)
		}
		b.Version = doc.Version
		return nil
	}
	res, err := r.col.UpdateOne(ctx, bson.M{"_id": doc.ID, "version": b.Version}, bson.M{"$set": doc})
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return domainbooking.ErrConcurrentUpdate
	}
	b.Version = doc.Version
	return nil
}

func (r *BookingRepository) Overlapping(ctx context.Context, itemID domainitems.ItemID, dr daterange.DateRange, statuses []domainbooking.Status) ([]*domainbooking.Booking, error) {
	filter := bson.M{
		"item_id": string(itemID),
		"start":   bson.M{"$lt": dr.End.UTC()},
		"end":     bson.M{"$gt": dr.Start.UTC()},
	}
	if len(statuses) > 0 {
		filter["status"] = bson.M{"$in": statusValues(statuses)}
	}
	return r.find(ctx, filter, 0)
}

func (r *BookingRepository) ListByBorrower(ctx context.Context, borrowerID string) ([]*domainbooking.Booking, error) {
	return r.find(ctx, bson.M{"borrower_id": borrowerID}, 0)
}

func (r *BookingRepository) ListByLender(ctx context.Context, lenderID string) ([]*domainbooking.Booking, error) {
	return r.find(ctx, bson.M{"lender_id": lenderID}, 0)
}

func (r *BookingRepository) ListEndedBefore(ctx context.Context, status domainbooking.Status, end time.Time, limit int) ([]*domainbooking.Booking, error) {
	return r.find(ctx, bson.M{"status": string(status), "end": bson.M{"$lt": end.UTC()}}, limit)
}

func (r *BookingRepository) find(ctx context.Context, filter bson.M, limit int) ([]*domainbooking.Booking, error) {
	opts := options.Find().SetSort(bson.D{{Key: "start", Value: 1}, {Key: "_id", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, translate(err)
	}
	var docs []bookingDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, translate(err)
	}
	out := make([]*domainbooking.Booking, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toAggregate())
	}
	return out, nil
}

func statusValues(statuses []domainbooking.Status) bson.A {
	out := make(bson.A, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, string(s))
	}
	return out
}

type bookingDocument struct {
	ID            string    `bson:"_id"`
	ItemID        string    `bson:"item_id"`
	BorrowerID    string    `bson:"borrower_id"`
	LenderID      string    `bson:"lender_id"`
	Start         time.Time `bson:"start"`
	End           time.Time `bson:"end"`
	RateAmount    int64     `bson:"rate_amount"`
	TotalAmount   int64     `bson:"total_amount"`
	Currency      string    `bson:"currency"`
	Status        string    `bson:"status"`
	PaymentStatus string    `bson:"payment_status"`
	CancelledBy   string    `bson:"cancelled_by,omitempty"`
	CreatedAt     time.Time `bson:"created_at"`
	UpdatedAt     time.Time `bson:"updated_at"`
	Version       int64     `bson:"version"`
}

func newBookingDocument(b *domainbooking.Booking) bookingDocument {
	return bookingDocument{
		ID:            string(b.ID),
		ItemID:        string(b.ItemID),
		BorrowerID:    b.BorrowerID,
		LenderID:      b.LenderID,
		Start:         b.Range.Start.UTC(),
		End:           b.Range.End.UTC(),
		RateAmount:    b.DailyRate.Amount,
		TotalAmount:   b.Total.Amount,
		Currency:      b.Total.Currency,
		Status:        string(b.Status),
		PaymentStatus: string(b.PaymentStatus),
		CancelledBy:   b.CancelledBy,
		CreatedAt:     b.CreatedAt.UTC(),
		UpdatedAt:     b.UpdatedAt.UTC(),
		Version:       b.Version,
	}
}

func (d bookingDocument) toAggregate() *domainbooking.Booking {
	return &domainbooking.Booking{
		ID:            domainbooking.BookingID(d.ID),
		ItemID:        domainitems.ItemID(d.ItemID),
		BorrowerID:    d.BorrowerID,
		LenderID:      d.LenderID,
		Range:         daterange.DateRange{Start: d.Start.UTC(), End: d.End.UTC()},
		DailyRate:     money.Money{Amount: d.RateAmount, Currency: d.Currency},
		Total:         money.Money{Amount: d.TotalAmount, Currency: d.Currency},
		Status:        domainbooking.Status(d.Status),
		PaymentStatus: domainbooking.PaymentStatus(d.PaymentStatus),
		CancelledBy:   d.CancelledBy,
		CreatedAt:     d.CreatedAt.UTC(),
		UpdatedAt:     d.UpdatedAt.UTC(),
		Version:       d.Version,
	}
}

var _ domainbooking.Repository = (*BookingRepository)(nil)
