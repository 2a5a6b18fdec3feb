package booking

import (
	"errors"
	"fmt"
)

var (
	ErrBookingNotFound        = errors.New("booking: not found")
	ErrBookingConflict        = errors.New("booking: requested range overlaps an existing booking")
	ErrPastDateRange          = errors.New("booking: start date is in the past")
	ErrForbidden              = errors.New("booking: actor is not a party to the booking")
	ErrInvalidStateTransition = errors.New("booking: invalid state transition")
	ErrUnknownStatus          = errors.New("booking: unknown status")
	ErrSelfBooking            = errors.New("booking: borrower cannot book own item")
	ErrConcurrentUpdate       = errors.New("booking: concurrent update detected")
)

// ConflictError is an ErrBookingConflict naming the bookings in the way.
type ConflictError struct {
	Conflicts []BookingID
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: %v", ErrBookingConflict.Error(), e.Conflicts)
}

func (e *ConflictError) Unwrap() error { return ErrBookingConflict }

// ConflictIDs returns the conflicting booking ids carried by err, if any.
func ConflictIDs(err error) []BookingID {
	var ce *ConflictError
	if errors.As(err, &ce) {
		return ce.Conflicts
	}
	return nil
}
