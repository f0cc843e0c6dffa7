package booking

import (
	"errors"
	"fmt"

	"hotelbooking/internal/models"
)

// Kind classifies a booking failure so transports can map it to a response.
type Kind string

const (
	KindValidation Kind = "validation"
	KindConflict   Kind = "conflict"
	KindNotFound   Kind = "not_found"
	KindCapacity   Kind = "capacity"
	KindForbidden  Kind = "forbidden"
	KindRateLimit  Kind = "rate_limited"
)

var (
	ErrInvalidDateRange       = errors.New("check-out must be after check-in")
	ErrPastCheckIn            = errors.New("check-in date is in the past")
	ErrDateTooFar             = errors.New("check-in date is too far in the future")
	ErrInvalidGuests          = errors.New("guests must be a positive number")
	ErrInvalidStatus          = errors.New("unknown booking status")
	ErrDeniedReasonRequired   = errors.New("denied reason is required")
	ErrIllegalTransition      = errors.New("illegal status transition")
	ErrDatesUnavailable       = errors.New("room is already booked for the selected dates")
	ErrRoomUnavailable        = errors.New("room unavailable")
	ErrRoomNotFound           = errors.New("room not found")
	ErrBookingNotFound        = errors.New("booking not found")
	ErrUserNotFound           = errors.New("user not found")
	ErrCapacityExceeded       = errors.New("guests exceed room capacity")
	ErrConcurrentModification = errors.New("booking was modified concurrently")
	ErrNotModifiable          = errors.New("booking can no longer be modified")
	ErrForbidden              = errors.New("not allowed to access this booking")
	ErrTooManyBookings        = errors.New("too many booking requests")
)

// Error is a classified failure. Allowed is set for illegal transitions and
// holds the legal successors of the current status.
type Error struct {
	Kind    Kind
	Reason  string
	Allowed []models.BookingStatus
	Err     error
}

func (e *Error) Error() string {
	if e.Reason != "" {
		return e.Reason
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, err error, format string, args ...interface{}) *Error {
	reason := ""
	if format != "" {
		reason = fmt.Sprintf(format, args...)
	}
	return &Error{Kind: kind, Reason: reason, Err: err}
}

func Validation(err error, format string, args ...interface{}) *Error {
	return newError(KindValidation, err, format, args...)
}

func Conflict(err error, format string, args ...interface{}) *Error {
	return newError(KindConflict, err, format, args...)
}

func NotFound(err error, format string, args ...interface{}) *Error {
	return newError(KindNotFound, err, format, args...)
}

func Capacity(err error, format string, args ...interface{}) *Error {
	return newError(KindCapacity, err, format, args...)
}

func Forbidden(err error, format string, args ...interface{}) *Error {
	return newError(KindForbidden, err, format, args...)
}

func RateLimited(err error, format string, args ...interface{}) *Error {
	return newError(KindRateLimit, err, format, args...)
}

// IllegalTransition builds the conflict returned when to is not a successor of from.
func IllegalTransition(from, to models.BookingStatus) *Error {
	e := Conflict(ErrIllegalTransition, "cannot change status from %s to %s", from, to)
	e.Allowed = Successors(from)
	return e
}

// KindOf returns the kind of a classified error, or "" for anything else.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// AllowedOf returns the legal successor set carried by err, if any.
func AllowedOf(err error) []models.BookingStatus {
	var e *Error
	if errors.As(err, &e) {
		return e.Allowed
	}
	return nil
}
