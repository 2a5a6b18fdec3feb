package mongo

import (
	"context"
	"errors"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"

	"lendit/internal/app/uow"
	domainbooking "lendit/internal/domain/booking"
	domainitems "lendit/internal/domain/items"
)

// Factory wires Mongo transactions into the generic UnitOfWork interface.
type Factory struct {
	DB *mongo.Database

	ItemsRepo    *ItemRepository
	BookingsRepo *BookingRepository
}

func NewFactory(db *mongo.Database) Factory {
	return Factory{DB: db, ItemsRepo: NewItemRepository(db), BookingsRepo: NewBookingRepository(db)}
}

var ErrUnitOfWorkNotConfigured = errors.New("mongo: unit of work factory missing database")

// Begin starts a MongoDB session/transaction with snapshot reads and majority writes.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.DB == nil || f.ItemsRepo == nil || f.BookingsRepo == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	session, err := f.DB.Client().StartSession()
	if err != nil {
		return nil, err
	}
	txnOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())
	if err := session.StartTransaction(txnOpts); err != nil {
		session.EndSession(ctx)
		return nil, err
	}
	return &Unit{
		db:       f.DB,
		session:  session,
		items:    f.ItemsRepo,
		bookings: f.BookingsRepo,
		readOnly: opts.ReadOnly,
		locked:   make(map[domainitems.ItemID]struct{}),
	}, nil
}

type Unit struct {
	db       *mongo.Database
	session  mongo.Session
	items    *ItemRepository
	bookings *BookingRepository
	readOnly bool

	mu     sync.Mutex
	locked map[domainitems.ItemID]struct{}
	done   bool
}

func (u *Unit) Items() domainitems.Repository {
	return u.items
}

func (u *Unit) Bookings() domainbooking.Repository {
	return u.bookings
}

// LockItem bumps booking_seq on the item inside the transaction. A second
// transaction touching the same item aborts with a write conflict, which
// surfaces as uow.ErrTransient.
func (u *Unit) LockItem(ctx context.Context, id domainitems.ItemID) error {
	u.mu.Lock()
	_, held := u.locked[id]
	u.mu.Unlock()
	if held {
		return nil
	}
	sessCtx := mongo.NewSessionContext(ctx, u.session)
	res, err := u.db.Collection(itemsCollection).UpdateOne(sessCtx,
		bson.M{"_id": string(id)},
		bson.M{"$inc": bson.M{"booking_seq": 1}})
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return domainitems.ErrItemNotFound
	}
	u.mu.Lock()
	u.locked[id] = struct{}{}
	u.mu.Unlock()
	return nil
}

func (u *Unit) Commit(ctx context.Context) error {
	if !u.finish() {
		return nil
	}
	defer u.session.EndSession(ctx)
	if u.readOnly {
		return u.session.AbortTransaction(ctx)
	}
	return translate(u.session.CommitTransaction(ctx))
}

func (u *Unit) Rollback(ctx context.Context) error {
	if !u.finish() {
		return nil
	}
	defer u.session.EndSession(ctx)
	return u.session.AbortTransaction(ctx)
}

// finish reports whether the unit was still open.
func (u *Unit) finish() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.done {
		return false
	}
	u.done = true
	return true
}

// InjectContext ensures Mongo session is available in context for downstream repos.
func (u *Unit) InjectContext(ctx context.Context) context.Context {
	return mongo.NewSessionContext(ctx, u.session)
}
