package schedule

import (
	"context"

	"lendit/internal/app/commands"
	bookinghandlers "lendit/internal/app/handlers/booking"
)

// CompletionSweep moves confirmed bookings past their return day to completed.
type CompletionSweep struct {
	Bus       commands.Bus
	BatchSize int
}

func (CompletionSweep) Name() string { return "booking.completion_sweep" }

func (s CompletionSweep) Run(ctx context.Context) error {
	_, err := commands.Dispatch[bookinghandlers.CompleteElapsedCommand, bookinghandlers.CompleteElapsedResult](
		ctx, s.Bus, bookinghandlers.CompleteElapsedCommand{Limit: s.BatchSize},
	)
	return err
}
