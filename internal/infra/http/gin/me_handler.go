package ginserver

import (
	"log/slog"
	"net/http"
	"strconv"

	gin "github.com/gin-gonic/gin"

	"lendit/internal/app/dto"
	itemsapp "lendit/internal/app/handlers/items"
	meapp "lendit/internal/app/handlers/me"
	"lendit/internal/app/queries"
)

type MeHTTP interface {
	ListBookings(c *gin.Context)
	ListLendings(c *gin.Context)
	ListItems(c *gin.Context)
}

type MeHandler struct {
	Queries queries.Bus
	Logger  *slog.Logger
}

func (h MeHandler) ListBookings(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	query := meapp.ListBorrowerBookingsQuery{BorrowerID: userID}
	result, err := queries.Ask[meapp.ListBorrowerBookingsQuery, dto.BookingCollection](c.Request.Context(), h.Queries, query)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ListLendings defaults to pending requests; ?status=all lists everything.
func (h MeHandler) ListLendings(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	query := meapp.ListLenderBookingsQuery{LenderID: userID, Status: c.Query("status")}
	result, err := queries.Ask[meapp.ListLenderBookingsQuery, dto.BookingCollection](c.Request.Context(), h.Queries, query)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h MeHandler) ListItems(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	includeArchived, _ := strconv.ParseBool(c.Query("include_archived"))
	query := itemsapp.ListOwnerItemsQuery{OwnerID: userID, IncludeArchived: includeArchived}
	result, err := queries.Ask[itemsapp.ListOwnerItemsQuery, dto.ItemCollection](c.Request.Context(), h.Queries, query)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ MeHTTP = MeHandler{}
