package ginserver

import (
	"errors"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	availabilityapp "lendit/internal/app/handlers/availability"
	itemsapp "lendit/internal/app/handlers/items"
	meapp "lendit/internal/app/handlers/me"
	"lendit/internal/app/middleware"
	"lendit/internal/app/uow"
	domainbooking "lendit/internal/domain/booking"
	domainitems "lendit/internal/domain/items"
	"lendit/internal/domain/shared/daterange"
	"lendit/internal/domain/shared/money"
	"lendit/internal/infra/storage/s3"
	"lendit/internal/infra/validation"
)

type errorMapping struct {
	target error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{domainbooking.ErrBookingConflict, http.StatusConflict, "booking_conflict"},
	{domainbooking.ErrBookingNotFound, http.StatusNotFound, "booking_not_found"},
	{domainitems.ErrItemNotFound, http.StatusNotFound, "item_not_found"},
	{daterange.ErrInvalidRange, http.StatusBadRequest, "invalid_range"},
	{domainbooking.ErrPastDateRange, http.StatusBadRequest, "past_date_range"},
	{domainbooking.ErrUnknownStatus, http.StatusBadRequest, "unknown_status"},
	{domainbooking.ErrForbidden, http.StatusForbidden, "forbidden"},
	{domainitems.ErrNotOwner, http.StatusForbidden, "forbidden"},
	{domainbooking.ErrInvalidStateTransition, http.StatusConflict, "invalid_state_transition"},
	{domainbooking.ErrSelfBooking, http.StatusConflict, "self_booking"},
	{domainbooking.ErrConcurrentUpdate, http.StatusConflict, "concurrent_update"},
	{domainitems.ErrConcurrentUpdate, http.StatusConflict, "concurrent_update"},
	{uow.ErrTransient, http.StatusConflict, "concurrent_update"},
	{domainitems.ErrItemUnavailable, http.StatusConflict, "item_unavailable"},
	{domainitems.ErrItemArchived, http.StatusConflict, "item_archived"},
	{domainitems.ErrActiveBookings, http.StatusConflict, "active_bookings"},
	{domainitems.ErrNameRequired, http.StatusBadRequest, "invalid_item"},
	{domainitems.ErrNegativeRate, http.StatusBadRequest, "invalid_item"},
	{money.ErrInvalidCurrency, http.StatusBadRequest, "invalid_currency"},
	{availabilityapp.ErrInvalidMonth, http.StatusBadRequest, "invalid_month"},
	{validation.ErrInvalid, http.StatusBadRequest, "validation_failed"},
	{middleware.ErrUnauthenticated, http.StatusUnauthorized, "unauthenticated"},
	{middleware.ErrIdempotencyKeyReused, http.StatusUnprocessableEntity, "idempotency_key_reused"},
	{meapp.ErrUserRequired, http.StatusUnauthorized, "unauthenticated"},
	{s3.ErrPhotoTooLarge, http.StatusRequestEntityTooLarge, "photo_too_large"},
	{s3.ErrUnsupportedPhoto, http.StatusUnsupportedMediaType, "unsupported_photo"},
	{itemsapp.ErrPhotoStoreUnavailable, http.StatusServiceUnavailable, "photos_unavailable"},
}

// writeError renders a domain error as {"error", "code"}. Booking conflicts
// also list the ids of the bookings they collided with.
func writeError(c *gin.Context, logger *slog.Logger, err error) {
	for _, m := range errorMappings {
		if !errors.Is(err, m.target) {
			continue
		}
		body := gin.H{"error": err.Error(), "code": m.code}
		if ids := domainbooking.ConflictIDs(err); len(ids) > 0 {
			out := make([]string, 0, len(ids))
			for _, id := range ids {
				out = append(out, string(id))
			}
			body["conflicting_booking_ids"] = out
		}
		if fields := validationFields(err); len(fields) > 0 {
			body["fields"] = fields
		}
		c.JSON(m.status, body)
		return
	}
	if logger != nil {
		logger.Error("request failed", "path", c.FullPath(), "error", err)
	}
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "code": "internal"})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg, "code": "bad_request"})
}

func validationFields(err error) []validation.FieldError {
	var verr *validation.Error
	if errors.As(err, &verr) {
		return verr.Fields
	}
	return nil
}
