package payments

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lendit/internal/app/bootstrap"
	"lendit/internal/app/commands"
	"lendit/internal/app/dto"
	bookingapp "lendit/internal/app/handlers/booking"
	"lendit/internal/clock"
	domainbooking "lendit/internal/domain/booking"
	domainitems "lendit/internal/domain/items"
	"lendit/internal/domain/shared/money"
	"lendit/internal/infra/storage/memory"
	"lendit/internal/infra/validation"
)

type listenerFixture struct {
	listener *Listener
	factory  memory.Factory
	booking  *dto.Booking
}

func newListenerFixture(t *testing.T) *listenerFixture {
	t.Helper()
	clk := clock.NewFixed(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	factory := memory.NewFactory()
	item, err := domainitems.NewItem(domainitems.CreateParams{
		ID:        "item-1",
		Owner:     "lender",
		Name:      "Canoe",
		DailyRate: money.Must(1000, "USD"),
		Now:       clk.Now(),
	})
	require.NoError(t, err)
	require.NoError(t, factory.ItemsRepo.Save(context.Background(), item))

	buses, err := bootstrap.Build(bootstrap.Deps{
		UoW:       factory,
		Outbox:    memory.NewOutbox(),
		Validator: validation.New(),
		Clock:     clk,
	})
	require.NoError(t, err)
	b, err := commands.Dispatch[bookingapp.RequestBookingCommand, *dto.Booking](context.Background(), buses.Commands, bookingapp.RequestBookingCommand{
		ItemID:     "item-1",
		BorrowerID: "alice",
		StartDate:  time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		EndDate:    time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return &listenerFixture{
		listener: &Listener{Commands: buses.Commands, Inbox: memory.NewInbox()},
		factory:  factory,
		booking:  b,
	}
}

func (f *listenerFixture) stored(t *testing.T) *domainbooking.Booking {
	t.Helper()
	b, err := f.factory.BookingsRepo.ByID(context.Background(), domainbooking.BookingID(f.booking.ID))
	require.NoError(t, err)
	return b
}

func encode(t *testing.T, evt Event) []byte {
	t.Helper()
	body, err := json.Marshal(evt)
	require.NoError(t, err)
	return body
}

func TestListenerSettlesPayment(t *testing.T) {
	f := newListenerFixture(t)
	body := encode(t, Event{EventID: "evt-1", BookingID: f.booking.ID, Status: "paid", Reference: "ch_1"})

	require.NoError(t, f.listener.HandleMessage(context.Background(), "fallback", body))
	b := f.stored(t)
	assert.Equal(t, domainbooking.StatusConfirmed, b.Status)
	assert.Equal(t, domainbooking.PaymentPaid, b.PaymentStatus)

	seen, err := f.listener.Inbox.Processed(context.Background(), "evt-1")
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestListenerSkipsDuplicates(t *testing.T) {
	f := newListenerFixture(t)
	body := encode(t, Event{EventID: "evt-1", BookingID: f.booking.ID, Status: "paid"})

	require.NoError(t, f.listener.HandleMessage(context.Background(), "m-1", body))
	// A second capture would be an invalid transition; the inbox stops it first.
	require.NoError(t, f.listener.HandleMessage(context.Background(), "m-2", body))
	assert.Equal(t, domainbooking.PaymentPaid, f.stored(t).PaymentStatus)
}

func TestListenerDropsUnusableEvents(t *testing.T) {
	f := newListenerFixture(t)
	cases := map[string][]byte{
		"malformed":       []byte("{not json"),
		"missing booking": encode(t, Event{EventID: "e1", Status: "paid"}),
		"unknown booking": encode(t, Event{EventID: "e2", BookingID: "nope", Status: "paid"}),
		"unknown outcome": encode(t, Event{EventID: "e3", BookingID: f.booking.ID, Status: "refunded"}),
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			assert.NoError(t, f.listener.HandleMessage(context.Background(), name, body))
		})
	}
	assert.Equal(t, domainbooking.StatusPending, f.stored(t).Status)
}

type rejectingBus struct {
	err   error
	calls int
}

func (b *rejectingBus) Dispatch(context.Context, commands.Command) (any, error) {
	b.calls++
	return nil, b.err
}

func TestListenerAcknowledgesRejectedCommands(t *testing.T) {
	bus := &rejectingBus{err: &validation.Error{Fields: []validation.FieldError{{Field: "Outcome", Rule: "required"}}}}
	l := &Listener{Commands: bus, Inbox: memory.NewInbox()}
	body := encode(t, Event{EventID: "evt-9", BookingID: "b-1", Status: "paid"})

	require.NoError(t, l.HandleMessage(context.Background(), "m-9", body))
	seen, err := l.Inbox.Processed(context.Background(), "evt-9")
	require.NoError(t, err)
	assert.True(t, seen)

	// Redelivery stops at the inbox.
	require.NoError(t, l.HandleMessage(context.Background(), "m-9", body))
	assert.Equal(t, 1, bus.calls)
}

func TestListenerRedeliversTransientFailures(t *testing.T) {
	bus := &rejectingBus{err: errors.New("broker down")}
	l := &Listener{Commands: bus, Inbox: memory.NewInbox()}
	body := encode(t, Event{EventID: "evt-10", BookingID: "b-1", Status: "paid"})

	require.Error(t, l.HandleMessage(context.Background(), "m-10", body))
	seen, err := l.Inbox.Processed(context.Background(), "evt-10")
	require.NoError(t, err)
	assert.False(t, seen)
}
