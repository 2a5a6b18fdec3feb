package ginserver

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	gin "github.com/gin-gonic/gin"

	"lendit/internal/app/commands"
	"lendit/internal/app/dto"
	bookingapp "lendit/internal/app/handlers/booking"
	"lendit/internal/app/queries"
)

type BookingHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type createBookingRequest struct {
	ItemID    string `json:"item_id" binding:"required"`
	StartDate string `json:"start_date" binding:"required"`
	EndDate   string `json:"end_date" binding:"required"`
}

type updateBookingStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h BookingHandler) Create(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	start, end, ok := parseDates(c, req.StartDate, req.EndDate)
	if !ok {
		return
	}
	cmd := bookingapp.RequestBookingCommand{
		ItemID:          strings.TrimSpace(req.ItemID),
		BorrowerID:      userID,
		StartDate:       start,
		EndDate:         end,
		IdempotencyKeyV: c.GetHeader("Idempotency-Key"),
	}
	result, err := commands.Dispatch[bookingapp.RequestBookingCommand, *dto.Booking](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h BookingHandler) UpdateStatus(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var req updateBookingStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	cmd := bookingapp.UpdateBookingStatusCommand{
		BookingID: c.Param("id"),
		Status:    req.Status,
		ActorID:   userID,
	}
	result, err := commands.Dispatch[bookingapp.UpdateBookingStatusCommand, *dto.Booking](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) Get(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	query := bookingapp.GetBookingQuery{BookingID: c.Param("id"), ActorID: userID}
	result, err := queries.Ask[bookingapp.GetBookingQuery, dto.Booking](c.Request.Context(), h.Queries, query)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// parseDates reads two calendar dates and writes a 400 when either is malformed.
func parseDates(c *gin.Context, rawStart, rawEnd string) (time.Time, time.Time, bool) {
	start, err := time.Parse(dto.DateLayout, strings.TrimSpace(rawStart))
	if err != nil {
		badRequest(c, "start_date must be YYYY-MM-DD")
		return time.Time{}, time.Time{}, false
	}
	end, err := time.Parse(dto.DateLayout, strings.TrimSpace(rawEnd))
	if err != nil {
		badRequest(c, "end_date must be YYYY-MM-DD")
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

var _ BookingHTTP = BookingHandler{}
