package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"lendit/internal/app/commands"
	"lendit/internal/app/dto"
	bookinghandlers "lendit/internal/app/handlers/booking"
	domainbooking "lendit/internal/domain/booking"
	"lendit/internal/infra/validation"
)

// Inbox deduplicates redelivered broker messages.
type Inbox interface {
	Processed(ctx context.Context, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, eventID string) error
}

// Event is the payment outcome published by the payments service.
type Event struct {
	EventID   string `json:"event_id"`
	BookingID string `json:"booking_id"`
	Status    string `json:"status"`
	Reference string `json:"reference,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

var ErrMalformedEvent = errors.New("payments: malformed event")

// Listener turns payment events into SettlePaymentCommand dispatches.
type Listener struct {
	Commands commands.Bus
	Inbox    Inbox
	Logger   *slog.Logger
}

// HandleMessage applies one event. fallbackID identifies the message when the
// payload carries no event_id. Events that can never apply are acknowledged
// and logged; other errors are returned so the broker redelivers.
func (l *Listener) HandleMessage(ctx context.Context, fallbackID string, body []byte) error {
	var evt Event
	if err := json.Unmarshal(body, &evt); err != nil {
		l.drop(fallbackID, fmt.Errorf("%w: %v", ErrMalformedEvent, err))
		return nil
	}
	if strings.TrimSpace(evt.BookingID) == "" || strings.TrimSpace(evt.Status) == "" {
		l.drop(fallbackID, fmt.Errorf("%w: booking_id and status are required", ErrMalformedEvent))
		return nil
	}
	id := strings.TrimSpace(evt.EventID)
	if id == "" {
		id = fallbackID
	}
	if l.Inbox != nil {
		seen, err := l.Inbox.Processed(ctx, id)
		if err != nil {
			return err
		}
		if seen {
			return nil
		}
	}

	_, err := commands.Dispatch[bookinghandlers.SettlePaymentCommand, *dto.Booking](ctx, l.Commands, bookinghandlers.SettlePaymentCommand{
		BookingID: evt.BookingID,
		Outcome:   evt.Status,
		Reference: evt.Reference,
		Reason:    evt.Reason,
	})
	switch {
	case err == nil:
	case errors.Is(err, domainbooking.ErrBookingNotFound),
		errors.Is(err, domainbooking.ErrInvalidStateTransition),
		errors.Is(err, bookinghandlers.ErrUnknownPaymentOutcome),
		errors.Is(err, validation.ErrInvalid):
		l.drop(id, err)
	default:
		return err
	}
	if l.Inbox != nil {
		return l.Inbox.MarkProcessed(ctx, id)
	}
	return nil
}

func (l *Listener) drop(id string, err error) {
	if l.Logger != nil {
		l.Logger.Warn("payment event skipped", "event_id", id, "error", err)
	}
}
