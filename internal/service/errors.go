package service

import (
	"errors"

	"hotelbooking/internal/booking"
	"hotelbooking/internal/database"
)

// storeError translates storage sentinels into classified booking errors.
// notFound is the sentinel reported when the row is missing.
func storeError(err error, notFound error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, database.ErrNotFound):
		return booking.NotFound(notFound, "")
	case errors.Is(err, database.ErrNotAvailable):
		return booking.Conflict(booking.ErrDatesUnavailable, "")
	case errors.Is(err, database.ErrConcurrentModification):
		return booking.Conflict(booking.ErrConcurrentModification, "booking was modified concurrently, reload and retry")
	case errors.Is(err, database.ErrDuplicate):
		return booking.Conflict(err, "")
	}
	return err
}

var (
	ErrRoomHasBookings = errors.New("room has bookings and cannot be deleted")
	ErrEmailTaken      = errors.New("email is already registered")
	ErrReviewExists    = errors.New("room already reviewed by this user")
	ErrStayRequired    = errors.New("only guests who checked out can review the room")
)
