package mongo

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"

	"lendit/internal/app/uow"
	domainbooking "lendit/internal/domain/booking"
	domainitems "lendit/internal/domain/items"
	"lendit/internal/domain/shared/daterange"
	"lendit/internal/domain/shared/money"
)

func TestTranslateWriteConflict(t *testing.T) {
	conflict := mongo.CommandError{Code: writeConflictCode, Name: "WriteConflict"}
	assert.ErrorIs(t, translate(conflict), uow.ErrTransient)

	labelled := mongo.CommandError{Code: 251, Labels: []string{"TransientTransactionError"}}
	assert.ErrorIs(t, translate(fmt.Errorf("commit: %w", labelled)), uow.ErrTransient)

	other := errors.New("boom")
	assert.Same(t, other, translate(other))
	assert.NoError(t, translate(nil))
}

func TestBookingDocumentRoundTrip(t *testing.T) {
	start := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	b := &domainbooking.Booking{
		ID:            "bk-1",
		ItemID:        "item-1",
		BorrowerID:    "bob",
		LenderID:      "alice",
		Range:         daterange.DateRange{Start: start, End: start.AddDate(0, 0, 2)},
		DailyRate:     money.Must(500, "USD"),
		Total:         money.Must(1000, "USD"),
		Status:        domainbooking.StatusConfirmed,
		PaymentStatus: domainbooking.PaymentPaid,
		CreatedAt:     start,
		UpdatedAt:     start,
		Version:       3,
	}

	got := newBookingDocument(b).toAggregate()
	assert.Equal(t, b.ID, got.ID)
	assert.Equal(t, b.Range, got.Range)
	assert.Equal(t, b.Total, got.Total)
	assert.Equal(t, b.DailyRate, got.DailyRate)
	assert.Equal(t, b.Status, got.Status)
	assert.Equal(t, b.PaymentStatus, got.PaymentStatus)
	assert.Equal(t, int64(3), got.Version)
}

func TestItemDocumentRoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	item, err := domainitems.NewItem(domainitems.CreateParams{
		ID: "item-1", Owner: "alice", Name: "Drill", DailyRate: money.Must(500, "USD"), Now: now,
	})
	require.NoError(t, err)

	got := newItemDocument(item).toAggregate()
	assert.Equal(t, item.ID, got.ID)
	assert.Equal(t, item.Owner, got.Owner)
	assert.Equal(t, item.DailyRate, got.DailyRate)
	assert.True(t, got.Bookable())
	assert.Empty(t, got.Events())
}
