package bootstrap

import (
	"errors"
	"log/slog"
	"time"

	"lendit/internal/app/commands"
	availabilityapp "lendit/internal/app/handlers/availability"
	bookingapp "lendit/internal/app/handlers/booking"
	itemsapp "lendit/internal/app/handlers/items"
	meapp "lendit/internal/app/handlers/me"
	"lendit/internal/app/middleware"
	"lendit/internal/app/outbox"
	"lendit/internal/app/policies"
	"lendit/internal/app/queries"
	"lendit/internal/app/uow"
	"lendit/internal/clock"
	"lendit/internal/domain/shared/money"
)

var ErrMissingDependency = errors.New("bootstrap: unit of work factory and outbox are required")

// Deps are the adapters the application layer runs on.
type Deps struct {
	UoW             uow.UoWFactory
	Outbox          outbox.Outbox
	Encoder         outbox.EventEncoder
	Idempotency     middleware.IdempotencyStore
	IdempotencyTTL  time.Duration
	Validator       middleware.Validator
	Photos          policies.PhotoStore
	Clock           clock.Clock
	IDGenerator     func() string
	DefaultCurrency string
	DemoMode        bool

	// DemoDailyRate prices demo calendar days, in minor units of DefaultCurrency.
	DemoDailyRate int64
	TxRetryBudget time.Duration
	Logger        *slog.Logger
}

// Buses are the middleware-wrapped entry points used by adapters.
type Buses struct {
	Commands commands.Bus
	Queries  queries.Bus
}

// Build registers every command and query handler and wraps the buses in the
// standard pipelines.
func Build(d Deps) (Buses, error) {
	if d.UoW == nil || d.Outbox == nil {
		return Buses{}, ErrMissingDependency
	}
	if d.Encoder == nil {
		d.Encoder = outbox.JSONEventEncoder{}
	}
	if d.DefaultCurrency == "" {
		d.DefaultCurrency = "USD"
	}
	clk := clock.OrSystem(d.Clock)

	commandBus := commands.NewInMemoryBus()
	queryBus := queries.NewInMemoryBus()

	checkHandler := &availabilityapp.CheckAvailabilityHandler{UoWFactory: d.UoW, Clock: clk}
	calendarHandler := &availabilityapp.MonthCalendarHandler{UoWFactory: d.UoW, Clock: clk, Logger: d.Logger}
	if d.DemoMode {
		rate, err := money.New(d.DemoDailyRate, d.DefaultCurrency)
		if err != nil {
			return Buses{}, err
		}
		calendarHandler.Fallback = availabilityapp.DemoCalendarStrategy{DailyRate: rate}
	}
	queries.RegisterHandler(queryBus, availabilityapp.CheckAvailabilityQuery{}.Key(), checkHandler)
	queries.RegisterHandler(queryBus, availabilityapp.MonthCalendarQuery{}.Key(), calendarHandler)

	createBooking := &bookingapp.CreateBookingHandler{
		UoWFactory:  d.UoW,
		Outbox:      d.Outbox,
		Encoder:     d.Encoder,
		Clock:       clk,
		IDGenerator: d.IDGenerator,
		Logger:      d.Logger,
	}
	commands.RegisterHandler(commandBus, bookingapp.RequestBookingCommand{}.Key(), &bookingapp.RequestBookingHandler{
		Availability: checkHandler,
		Create:       createBooking,
	})
	commands.RegisterHandler(commandBus, bookingapp.UpdateBookingStatusCommand{}.Key(), &bookingapp.UpdateBookingStatusHandler{
		UoWFactory: d.UoW, Outbox: d.Outbox, Encoder: d.Encoder, Clock: clk, Logger: d.Logger,
	})
	commands.RegisterHandler(commandBus, bookingapp.SettlePaymentCommand{}.Key(), &bookingapp.SettlePaymentHandler{
		UoWFactory: d.UoW, Outbox: d.Outbox, Encoder: d.Encoder, Clock: clk, Logger: d.Logger,
	})
	commands.RegisterHandler(commandBus, bookingapp.CompleteElapsedCommand{}.Key(), &bookingapp.CompleteElapsedHandler{
		UoWFactory: d.UoW, Outbox: d.Outbox, Encoder: d.Encoder, Clock: clk, Logger: d.Logger,
	})
	queries.RegisterHandler(queryBus, bookingapp.GetBookingQuery{}.Key(), &bookingapp.GetBookingHandler{UoWFactory: d.UoW})

	commands.RegisterHandler(commandBus, itemsapp.CreateItemCommand{}.Key(), &itemsapp.CreateItemHandler{
		UoWFactory: d.UoW, Outbox: d.Outbox, Encoder: d.Encoder, Clock: clk, DefaultCurrency: d.DefaultCurrency, Logger: d.Logger,
	})
	commands.RegisterHandler(commandBus, itemsapp.UpdateItemCommand{}.Key(), &itemsapp.UpdateItemHandler{
		UoWFactory: d.UoW, Outbox: d.Outbox, Encoder: d.Encoder, Clock: clk, DefaultCurrency: d.DefaultCurrency, Logger: d.Logger,
	})
	commands.RegisterHandler(commandBus, itemsapp.ArchiveItemCommand{}.Key(), &itemsapp.ArchiveItemHandler{
		UoWFactory: d.UoW, Outbox: d.Outbox, Encoder: d.Encoder, Clock: clk, Logger: d.Logger,
	})
	commands.RegisterHandler(commandBus, itemsapp.UploadItemPhotoCommand{}.Key(), &itemsapp.UploadItemPhotoHandler{
		UoWFactory: d.UoW, Photos: d.Photos, Clock: clk, Logger: d.Logger,
	})
	queries.RegisterHandler(queryBus, itemsapp.GetItemQuery{}.Key(), &itemsapp.GetItemHandler{UoWFactory: d.UoW})
	queries.RegisterHandler(queryBus, itemsapp.ListOwnerItemsQuery{}.Key(), &itemsapp.ListOwnerItemsHandler{UoWFactory: d.UoW})

	queries.RegisterHandler(queryBus, meapp.ListBorrowerBookingsQuery{}.Key(), &meapp.ListBorrowerBookingsHandler{UoWFactory: d.UoW, Logger: d.Logger})
	queries.RegisterHandler(queryBus, meapp.ListLenderBookingsQuery{}.Key(), &meapp.ListLenderBookingsHandler{UoWFactory: d.UoW, Logger: d.Logger})

	pipeline := middleware.PipelineDeps{
		Logger:      d.Logger,
		Validator:   d.Validator,
		Idempotency: d.Idempotency,
		IdempOpts:   middleware.IdempotencyOptions{Clock: clk, TTL: d.IdempotencyTTL},
		UoW:         d.UoW,
		Outbox:      d.Outbox,
		TxRetry:     middleware.TxRetryPolicy{Budget: d.TxRetryBudget},
	}
	return Buses{
		Commands: middleware.ChainCommands(commandBus, middleware.CommandPipeline(pipeline)...),
		Queries:  middleware.ChainQueries(queryBus, middleware.QueryPipeline(pipeline)...),
	}, nil
}
