package booking

import (
	"fmt"

	"hotelbooking/internal/models"
)

// CanTransition reports whether to is a direct successor of from.
// Every (from, to) pair is matched explicitly; a status without a case here
// has no successors and is caught by TestEveryStatusHandled.
func CanTransition(from, to models.BookingStatus) bool {
	switch from {
	case models.StatusPending:
		switch to {
		case models.StatusApproved, models.StatusDenied, models.StatusCancelled:
			return true
		}
	case models.StatusApproved:
		switch to {
		case models.StatusBooked, models.StatusDenied, models.StatusCancelled:
			return true
		}
	case models.StatusBooked:
		switch to {
		case models.StatusCheckedIn, models.StatusCancelled, models.StatusNoShow:
			return true
		}
	case models.StatusCheckedIn:
		switch to {
		case models.StatusCheckedOut:
			return true
		}
	case models.StatusCheckedOut, models.StatusCancelled, models.StatusDenied, models.StatusNoShow:
		return false
	}
	return false
}

// Successors returns the legal next statuses of from in lifecycle order.
func Successors(from models.BookingStatus) []models.BookingStatus {
	var next []models.BookingStatus
	for _, to := range models.AllBookingStatuses {
		if CanTransition(from, to) {
			next = append(next, to)
		}
	}
	return next
}

func IsTerminal(s models.BookingStatus) bool {
	return s.Valid() && len(Successors(s)) == 0
}

// IsActive reports whether a booking in status s occupies its room.
func IsActive(s models.BookingStatus) bool {
	for _, inactive := range models.InactiveStatuses {
		if s == inactive {
			return false
		}
	}
	return true
}

// ParseStatus validates a status coming from the outside.
func ParseStatus(s string) (models.BookingStatus, error) {
	status := models.BookingStatus(s)
	if !status.Valid() {
		return "", Validation(ErrInvalidStatus, "unknown booking status %q", s)
	}
	return status, nil
}

// Label is a human readable status name for notifications and exports.
func Label(s models.BookingStatus) string {
	switch s {
	case models.StatusPending:
		return "Pending"
	case models.StatusApproved:
		return "Approved"
	case models.StatusBooked:
		return "Booked"
	case models.StatusCheckedIn:
		return "Checked in"
	case models.StatusCheckedOut:
		return "Checked out"
	case models.StatusCancelled:
		return "Cancelled"
	case models.StatusNoShow:
		return "No-show"
	case models.StatusDenied:
		return "Denied"
	default:
		return fmt.Sprintf("Unknown (%s)", string(s))
	}
}
