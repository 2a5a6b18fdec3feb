package bootstrap_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lendit/internal/app/bootstrap"
	"lendit/internal/app/commands"
	"lendit/internal/app/dto"
	availabilityapp "lendit/internal/app/handlers/availability"
	bookingapp "lendit/internal/app/handlers/booking"
	"lendit/internal/app/queries"
	"lendit/internal/app/schedule"
	"lendit/internal/app/uow"
	domainbooking "lendit/internal/domain/booking"
	domainitems "lendit/internal/domain/items"
	"lendit/internal/domain/shared/daterange"
	"lendit/internal/domain/shared/money"
	"lendit/internal/infra/storage/memory"
	"lendit/internal/infra/validation"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

type fixture struct {
	buses   bootstrap.Buses
	factory memory.Factory
	outbox  *memory.Outbox
	clock   *manualClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clk := &manualClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	factory := memory.NewFactory()
	box := memory.NewOutbox()
	item, err := domainitems.NewItem(domainitems.CreateParams{
		ID:        "item-1",
		Owner:     "lender",
		Name:      "Pressure washer",
		DailyRate: money.Must(2000, "EUR"),
		Now:       clk.Now(),
	})
	require.NoError(t, err)
	require.NoError(t, factory.ItemsRepo.Save(context.Background(), item))

	buses, err := bootstrap.Build(bootstrap.Deps{
		UoW:         factory,
		Outbox:      box,
		Idempotency: memory.NewIdempotencyStore(clk),
		Validator:   validation.New(),
		Clock:       clk,
	})
	require.NoError(t, err)
	return &fixture{buses: buses, factory: factory, outbox: box, clock: clk}
}

func march(day int) time.Time {
	return time.Date(2026, 3, day, 0, 0, 0, 0, time.UTC)
}

func (f *fixture) request(ctx context.Context, borrower string, from, to int, key string) (*dto.Booking, error) {
	return requestVia(ctx, f.buses.Commands, borrower, from, to, key)
}

func requestVia(ctx context.Context, bus commands.Bus, borrower string, from, to int, key string) (*dto.Booking, error) {
	return commands.Dispatch[bookingapp.RequestBookingCommand, *dto.Booking](ctx, bus, bookingapp.RequestBookingCommand{
		ItemID:          "item-1",
		BorrowerID:      borrower,
		StartDate:       march(from),
		EndDate:         march(to),
		IdempotencyKeyV: key,
	})
}

func (f *fixture) eventNames() []string {
	records := f.outbox.Records()
	names := make([]string, 0, len(records))
	for _, r := range records {
		names = append(names, r.Name)
	}
	return names
}

func TestBuildRequiresStorage(t *testing.T) {
	_, err := bootstrap.Build(bootstrap.Deps{})
	assert.ErrorIs(t, err, bootstrap.ErrMissingDependency)
}

func TestConcurrentOverlappingRequestsAdmitOne(t *testing.T) {
	f := newFixture(t)
	const workers = 16

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.request(context.Background(), fmt.Sprintf("borrower-%d", i), 10, 12+i%3, "")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, domainbooking.ErrBookingConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, workers-1, conflicts)
	stored, err := f.factory.BookingsRepo.Overlapping(context.Background(), "item-1", daterange.Month(2026, time.March), nil)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestDistinctItemsDoNotBlockEachOther(t *testing.T) {
	f := newFixture(t)
	other, err := domainitems.NewItem(domainitems.CreateParams{
		ID:        "item-2",
		Owner:     "lender",
		Name:      "Ladder",
		DailyRate: money.Must(500, "EUR"),
		Now:       f.clock.Now(),
	})
	require.NoError(t, err)
	require.NoError(t, f.factory.ItemsRepo.Save(context.Background(), other))

	_, err = f.request(context.Background(), "alice", 10, 12, "")
	require.NoError(t, err)
	_, err = commands.Dispatch[bookingapp.RequestBookingCommand, *dto.Booking](context.Background(), f.buses.Commands, bookingapp.RequestBookingCommand{
		ItemID:     "item-2",
		BorrowerID: "bob",
		StartDate:  march(10),
		EndDate:    march(12),
	})
	assert.NoError(t, err)
}

func TestIdempotentRequestReplaysResult(t *testing.T) {
	f := newFixture(t)

	first, err := f.request(context.Background(), "alice", 10, 12, "req-1")
	require.NoError(t, err)
	second, err := f.request(context.Background(), "alice", 10, 12, "req-1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	stored, err := f.factory.BookingsRepo.Overlapping(context.Background(), "item-1", daterange.Month(2026, time.March), nil)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestRequestBookingRecordsEvent(t *testing.T) {
	f := newFixture(t)
	b, err := f.request(context.Background(), "alice", 10, 13, "")
	require.NoError(t, err)

	assert.Equal(t, "pending", b.Status)
	assert.Equal(t, 3, b.Days)
	assert.Equal(t, int64(6000), b.TotalPrice.Amount)
	assert.Equal(t, "EUR", b.TotalPrice.Currency)
	assert.Contains(t, f.eventNames(), "booking.requested")
}

func TestRequestBookingValidation(t *testing.T) {
	f := newFixture(t)
	_, err := commands.Dispatch[bookingapp.RequestBookingCommand, *dto.Booking](context.Background(), f.buses.Commands, bookingapp.RequestBookingCommand{
		ItemID:     "item-1",
		BorrowerID: "alice",
	})
	assert.ErrorIs(t, err, validation.ErrInvalid)
}

func TestSettlePaymentConfirmsPendingBooking(t *testing.T) {
	f := newFixture(t)
	b, err := f.request(context.Background(), "alice", 10, 12, "")
	require.NoError(t, err)

	settled, err := commands.Dispatch[bookingapp.SettlePaymentCommand, *dto.Booking](context.Background(), f.buses.Commands, bookingapp.SettlePaymentCommand{
		BookingID: b.ID,
		Outcome:   "paid",
		Reference: "pay_123",
	})
	require.NoError(t, err)
	assert.Equal(t, "confirmed", settled.Status)
	assert.Equal(t, string(domainbooking.PaymentPaid), settled.PaymentStatus)
	assert.Contains(t, f.eventNames(), "booking.payment_settled")
	assert.Contains(t, f.eventNames(), "booking.confirmed")

	_, err = commands.Dispatch[bookingapp.SettlePaymentCommand, *dto.Booking](context.Background(), f.buses.Commands, bookingapp.SettlePaymentCommand{
		BookingID: b.ID,
		Outcome:   "refunded",
	})
	assert.ErrorIs(t, err, bookingapp.ErrUnknownPaymentOutcome)
}

func TestCompletionSweepCompletesElapsedBookings(t *testing.T) {
	f := newFixture(t)
	b, err := f.request(context.Background(), "alice", 10, 12, "")
	require.NoError(t, err)
	_, err = commands.Dispatch[bookingapp.UpdateBookingStatusCommand, *dto.Booking](context.Background(), f.buses.Commands, bookingapp.UpdateBookingStatusCommand{
		BookingID: b.ID,
		Status:    "confirmed",
		ActorID:   "lender",
	})
	require.NoError(t, err)

	sweep := schedule.CompletionSweep{Bus: f.buses.Commands, BatchSize: 10}
	require.NoError(t, sweep.Run(context.Background()))
	stored, err := f.factory.BookingsRepo.ByID(context.Background(), domainbooking.BookingID(b.ID))
	require.NoError(t, err)
	assert.Equal(t, domainbooking.StatusConfirmed, stored.Status)

	f.clock.Set(march(12).Add(time.Hour))
	require.NoError(t, sweep.Run(context.Background()))
	stored, err = f.factory.BookingsRepo.ByID(context.Background(), domainbooking.BookingID(b.ID))
	require.NoError(t, err)
	assert.Equal(t, domainbooking.StatusCompleted, stored.Status)
}

// contendedFactory makes LockItem fail at once with uow.ErrTransient while
// another unit holds the lock, as a Mongo write conflict does. Units holding
// the lock wait hold before committing.
type contendedFactory struct {
	inner  memory.Factory
	hold   time.Duration
	mu     sync.Mutex
	locked chan struct{}
}

func newContendedFactory(inner memory.Factory, hold time.Duration) *contendedFactory {
	return &contendedFactory{inner: inner, hold: hold, locked: make(chan struct{}, 1)}
}

func (f *contendedFactory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	unit, err := f.inner.Begin(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &contendedUnit{UnitOfWork: unit, f: f}, nil
}

type contendedUnit struct {
	uow.UnitOfWork
	f    *contendedFactory
	held bool
}

func (u *contendedUnit) LockItem(ctx context.Context, id domainitems.ItemID) error {
	if u.held {
		return nil
	}
	if !u.f.mu.TryLock() {
		return fmt.Errorf("write conflict on %s: %w", id, uow.ErrTransient)
	}
	if err := u.UnitOfWork.LockItem(ctx, id); err != nil {
		u.f.mu.Unlock()
		return err
	}
	u.held = true
	select {
	case u.f.locked <- struct{}{}:
	default:
	}
	return nil
}

func (u *contendedUnit) Commit(ctx context.Context) error {
	if u.held {
		time.Sleep(u.f.hold)
	}
	err := u.UnitOfWork.Commit(ctx)
	u.unlock()
	return err
}

func (u *contendedUnit) Rollback(ctx context.Context) error {
	err := u.UnitOfWork.Rollback(ctx)
	u.unlock()
	return err
}

func (u *contendedUnit) unlock() {
	if u.held {
		u.held = false
		u.f.mu.Unlock()
	}
}

func TestLockContentionEndsInConflictOrBooking(t *testing.T) {
	f := newFixture(t)
	contended := newContendedFactory(f.factory, 100*time.Millisecond)
	buses, err := bootstrap.Build(bootstrap.Deps{
		UoW:       contended,
		Outbox:    f.outbox,
		Validator: validation.New(),
		Clock:     f.clock,
	})
	require.NoError(t, err)
	ctx := context.Background()

	first := make(chan error, 1)
	go func() {
		_, err := requestVia(ctx, buses.Commands, "u1", 10, 12, "")
		first <- err
	}()
	select {
	case <-contended.locked:
	case <-time.After(2 * time.Second):
		t.Fatal("first request never took the item lock")
	}

	_, err = requestVia(ctx, buses.Commands, "u2", 11, 13, "")
	assert.ErrorIs(t, err, domainbooking.ErrBookingConflict)
	assert.NotErrorIs(t, err, uow.ErrTransient)

	// Touching but not overlapping: waits out the holder instead of failing.
	adjacent, err := requestVia(ctx, buses.Commands, "u3", 12, 14, "")
	require.NoError(t, err)
	assert.Equal(t, "pending", adjacent.Status)

	require.NoError(t, <-first)
	stored, err := f.factory.BookingsRepo.Overlapping(ctx, "item-1", daterange.Month(2026, time.March), domainbooking.BlockingStatuses)
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestCreateBookingRechecksAfterLosingLock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	existing, err := f.request(ctx, "alice", 10, 12, "")
	require.NoError(t, err)

	contended := newContendedFactory(f.factory, 0)
	holder, err := contended.Begin(ctx, uow.TxOptions{})
	require.NoError(t, err)
	require.NoError(t, holder.LockItem(ctx, "item-1"))

	create := &bookingapp.CreateBookingHandler{UoWFactory: contended, Outbox: memory.NewOutbox(), Clock: f.clock}
	cmd := func(borrower string, from, to int) bookingapp.CreateBookingCommand {
		return bookingapp.CreateBookingCommand{ItemID: "item-1", BorrowerID: borrower, StartDate: march(from), EndDate: march(to)}
	}

	_, err = create.Handle(ctx, cmd("bob", 11, 13))
	assert.ErrorIs(t, err, domainbooking.ErrBookingConflict)
	assert.Equal(t, []domainbooking.BookingID{domainbooking.BookingID(existing.ID)}, domainbooking.ConflictIDs(err))

	_, err = create.Handle(ctx, cmd("carol", 12, 14))
	assert.ErrorIs(t, err, uow.ErrTransient)

	require.NoError(t, holder.Rollback(ctx))
	b, err := create.Handle(ctx, cmd("carol", 12, 14))
	require.NoError(t, err)
	assert.Equal(t, domainbooking.StatusPending, b.Status)
}

func TestAvailabilityCheckIsRepeatableRead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	existing, err := f.request(ctx, "alice", 10, 12, "")
	require.NoError(t, err)
	bookingsBefore, err := f.factory.BookingsRepo.Overlapping(ctx, "item-1", daterange.Month(2026, time.March), domainbooking.BlockingStatuses)
	require.NoError(t, err)
	eventsBefore := len(f.outbox.Records())

	query := availabilityapp.CheckAvailabilityQuery{ItemID: "item-1", StartDate: march(11), EndDate: march(15)}
	first, err := queries.Ask[availabilityapp.CheckAvailabilityQuery, dto.AvailabilityCheck](ctx, f.buses.Queries, query)
	require.NoError(t, err)
	second, err := queries.Ask[availabilityapp.CheckAvailabilityQuery, dto.AvailabilityCheck](ctx, f.buses.Queries, query)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.False(t, first.Available)
	assert.Equal(t, []string{existing.ID}, first.ConflictingBookingIDs)

	bookingsAfter, err := f.factory.BookingsRepo.Overlapping(ctx, "item-1", daterange.Month(2026, time.March), domainbooking.BlockingStatuses)
	require.NoError(t, err)
	assert.Len(t, bookingsAfter, len(bookingsBefore))
	assert.Len(t, f.outbox.Records(), eventsBefore)
}

type unreachableFactory struct{}

func (unreachableFactory) Begin(context.Context, uow.TxOptions) (uow.UnitOfWork, error) {
	return nil, errors.New("connection refused")
}

func TestDemoModePricesFallbackCalendar(t *testing.T) {
	buses, err := bootstrap.Build(bootstrap.Deps{
		UoW:             unreachableFactory{},
		Outbox:          memory.NewOutbox(),
		Validator:       validation.New(),
		Clock:           &manualClock{now: march(1)},
		DefaultCurrency: "EUR",
		DemoMode:        true,
		DemoDailyRate:   3200,
	})
	require.NoError(t, err)

	cal, err := queries.Ask[availabilityapp.MonthCalendarQuery, dto.Calendar](context.Background(), buses.Queries, availabilityapp.MonthCalendarQuery{
		ItemID: "item-1",
		Year:   2026,
		Month:  3,
	})
	require.NoError(t, err)
	assert.True(t, cal.Demo)
	require.NotEmpty(t, cal.Days)
	assert.Equal(t, dto.MoneyDTO{Amount: 3200, Currency: "EUR"}, cal.Days[0].Price)

	_, err = bootstrap.Build(bootstrap.Deps{
		UoW:             unreachableFactory{},
		Outbox:          memory.NewOutbox(),
		DefaultCurrency: "EURO",
		DemoMode:        true,
	})
	assert.ErrorIs(t, err, money.ErrInvalidCurrency)
}
