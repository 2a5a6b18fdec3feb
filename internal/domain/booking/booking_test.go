package booking

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lendit/internal/domain/shared/daterange"
	"lendit/internal/domain/shared/money"
)

func day(m time.Month, d int) time.Time {
	return time.Date(2026, m, d, 0, 0, 0, 0, time.UTC)
}

func newPending(t *testing.T) *Booking {
	t.Helper()
	dr, err := daterange.New(day(3, 10), day(3, 13))
	require.NoError(t, err)
	b, err := NewBooking(CreateParams{
		ID:         "bk-1",
		ItemID:     "item-1",
		BorrowerID: "borrower",
		LenderID:   "lender",
		Range:      dr,
		DailyRate:  money.Must(500, "USD"),
		CreatedAt:  day(3, 1),
	})
	require.NoError(t, err)
	b.Drain()
	return b
}

func TestNewBookingSnapshotsPrice(t *testing.T) {
	b := newPending(t)
	assert.Equal(t, StatusPending, b.Status)
	assert.Equal(t, PaymentPending, b.PaymentStatus)
	assert.Equal(t, int64(1500), b.Total.Amount)
	assert.Equal(t, "USD", b.Total.Currency)

	dr, _ := daterange.New(day(3, 10), day(3, 11))
	_, err := NewBooking(CreateParams{ID: "x", ItemID: "i", BorrowerID: "same", LenderID: "same", Range: dr, DailyRate: money.Must(1, "USD")})
	assert.ErrorIs(t, err, ErrSelfBooking)

	_, err = NewBooking(CreateParams{ID: "x", ItemID: "i", BorrowerID: "a", LenderID: "b", Range: daterange.DateRange{Start: day(3, 11), End: day(3, 10)}, DailyRate: money.Must(1, "USD")})
	assert.ErrorIs(t, err, daterange.ErrInvalidRange)
}

func TestTransitionRules(t *testing.T) {
	before := day(3, 5)
	after := day(3, 14)

	cases := []struct {
		name    string
		prepare func(b *Booking)
		to      Status
		actor   string
		now     time.Time
		want    Status
		wantErr error
	}{
		{name: "lender confirms", to: StatusConfirmed, actor: "lender", now: before, want: StatusConfirmed},
		{name: "borrower cannot approve", to: StatusConfirmed, actor: "borrower", now: before, wantErr: ErrForbidden},
		{name: "stranger is forbidden", to: StatusCancelled, actor: "someone", now: before, wantErr: ErrForbidden},
		{name: "borrower cancels pending", to: StatusCancelled, actor: "borrower", now: before, want: StatusCancelled},
		{name: "pending cannot be cancelled after start", to: StatusCancelled, actor: "borrower", now: day(3, 10), wantErr: ErrInvalidStateTransition},
		{name: "pending cannot complete", to: StatusCompleted, actor: "lender", now: after, wantErr: ErrInvalidStateTransition},
		{name: "back to pending is illegal", to: StatusPending, actor: "lender", now: before, wantErr: ErrInvalidStateTransition},
		{
			name:    "confirmed completes after end",
			prepare: func(b *Booking) { require.NoError(t, b.Confirm(before)) },
			to:      StatusCompleted, actor: "borrower", now: after, want: StatusCompleted,
		},
		{
			name:    "confirmed cannot complete early",
			prepare: func(b *Booking) { require.NoError(t, b.Confirm(before)) },
			to:      StatusCompleted, actor: "lender", now: day(3, 12), wantErr: ErrInvalidStateTransition,
		},
		{
			name:    "confirmed cancels mid rental",
			prepare: func(b *Booking) { require.NoError(t, b.Confirm(before)) },
			to:      StatusCancelled, actor: "lender", now: day(3, 11), want: StatusCancelled,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := newPending(t)
			if tc.prepare != nil {
				tc.prepare(b)
			}
			snapshot := *b
			err := b.Transition(tc.to, tc.actor, tc.now)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				assert.Equal(t, snapshot.Status, b.Status)
				assert.Equal(t, snapshot.UpdatedAt, b.UpdatedAt)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, b.Status)
		})
	}
}

func TestTerminalStatesAreClosed(t *testing.T) {
	cancelled := newPending(t)
	require.NoError(t, cancelled.Cancel("borrower", day(3, 5)))

	completed := newPending(t)
	require.NoError(t, completed.Confirm(day(3, 5)))
	require.NoError(t, completed.Complete(day(3, 13)))

	for _, b := range []*Booking{cancelled, completed} {
		for _, to := range []Status{StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted} {
			err := b.Transition(to, "lender", day(3, 20))
			assert.ErrorIs(t, err, ErrInvalidStateTransition, "%s -> %s", b.Status, to)
		}
	}
}

func TestTransitionRecordsEvents(t *testing.T) {
	b := newPending(t)
	require.NoError(t, b.Transition(StatusConfirmed, "lender", day(3, 5)))
	require.NoError(t, b.Transition(StatusCancelled, "borrower", day(3, 6)))

	names := make([]string, 0)
	for _, evt := range b.Drain() {
		names = append(names, evt.EventName())
	}
	assert.Equal(t, []string{"booking.confirmed", "booking.cancelled"}, names)
	assert.Equal(t, "borrower", b.CancelledBy)
}

func TestPaymentStatus(t *testing.T) {
	b := newPending(t)
	require.NoError(t, b.MarkPaymentFailed("card declined", day(3, 2)))
	assert.Equal(t, PaymentFailed, b.PaymentStatus)
	require.NoError(t, b.MarkPaid("ref-1", day(3, 3)))
	assert.Equal(t, PaymentPaid, b.PaymentStatus)
	assert.ErrorIs(t, b.MarkPaid("ref-2", day(3, 3)), ErrInvalidStateTransition)
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus(" Confirmed ")
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, s)

	_, err = ParseStatus("archived")
	assert.ErrorIs(t, err, ErrUnknownStatus)
}

func TestValidateNotPast(t *testing.T) {
	now := time.Date(2026, 3, 10, 18, 30, 0, 0, time.UTC)
	today, _ := daterange.New(day(3, 10), day(3, 11))
	yesterday, _ := daterange.New(day(3, 9), day(3, 11))

	assert.NoError(t, ValidateNotPast(today, now))
	assert.ErrorIs(t, ValidateNotPast(yesterday, now), ErrPastDateRange)
}

func TestConflictErrorUnwraps(t *testing.T) {
	err := fmt.Errorf("create: %w", &ConflictError{Conflicts: []BookingID{"b1", "b2"}})
	assert.ErrorIs(t, err, ErrBookingConflict)
	assert.Equal(t, []BookingID{"b1", "b2"}, ConflictIDs(err))
	assert.Nil(t, ConflictIDs(ErrBookingNotFound))
}
