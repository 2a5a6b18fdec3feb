package ginserver

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	gin "github.com/gin-gonic/gin"

	"lendit/internal/app/dto"
	availabilityapp "lendit/internal/app/handlers/availability"
	"lendit/internal/app/queries"
	"lendit/internal/clock"
)

type AvailabilityHandler struct {
	Queries queries.Bus
	Clock   clock.Clock
	Logger  *slog.Logger
}

// Calendar serves ?month=&year=; missing values default to the current month.
func (h AvailabilityHandler) Calendar(c *gin.Context) {
	now := clock.OrSystem(h.Clock).Now().UTC()
	year, ok := intParam(c, "year", now.Year())
	if !ok {
		return
	}
	month, ok := intParam(c, "month", int(now.Month()))
	if !ok {
		return
	}
	query := availabilityapp.MonthCalendarQuery{ItemID: c.Param("id"), Year: year, Month: month}
	result, err := queries.Ask[availabilityapp.MonthCalendarQuery, dto.Calendar](c.Request.Context(), h.Queries, query)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h AvailabilityHandler) Check(c *gin.Context) {
	start, end, ok := parseDates(c, c.Query("start"), c.Query("end"))
	if !ok {
		return
	}
	query := availabilityapp.CheckAvailabilityQuery{ItemID: c.Param("id"), StartDate: start, EndDate: end}
	result, err := queries.Ask[availabilityapp.CheckAvailabilityQuery, dto.AvailabilityCheck](c.Request.Context(), h.Queries, query)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func intParam(c *gin.Context, name string, fallback int) (int, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return fallback, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		badRequest(c, name+" must be an integer")
		return 0, false
	}
	return v, true
}

var _ AvailabilityHTTP = AvailabilityHandler{}
