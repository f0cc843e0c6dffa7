package booking

import (
	"math"
	"time"

	"hotelbooking/internal/models"
)

const day = 24 * time.Hour

// Stay is the half-open interval [CheckIn, CheckOut). CheckOut is the
// vacating date, not an occupied night.
type Stay struct {
	CheckIn  time.Time
	CheckOut time.Time
}

// NewStay normalises both ends to UTC midnight.
func NewStay(checkIn, checkOut time.Time) Stay {
	return Stay{CheckIn: NormalizeDate(checkIn), CheckOut: NormalizeDate(checkOut)}
}

// NormalizeDate drops the time of day, keeping the calendar date of t.
func NormalizeDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate accepts YYYY-MM-DD or RFC 3339.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(models.DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, Validation(err, "invalid date %q, expected YYYY-MM-DD", s)
	}
	return NormalizeDate(t), nil
}

func (s Stay) Validate() error {
	if s.CheckIn.IsZero() || s.CheckOut.IsZero() {
		return Validation(ErrInvalidDateRange, "check-in and check-out dates are required")
	}
	if !s.CheckOut.After(s.CheckIn) {
		return Validation(ErrInvalidDateRange, "check-out must be after check-in")
	}
	return nil
}

// Nights is ceil((CheckOut - CheckIn) / 1 day).
func (s Stay) Nights() int {
	d := s.CheckOut.Sub(s.CheckIn)
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(float64(d) / float64(day)))
}

// Overlaps reports whether [a,b) and [c,d) intersect: a < d && c < b.
// Adjacent stays do not overlap.
func (s Stay) Overlaps(other Stay) bool {
	return s.CheckIn.Before(other.CheckOut) && other.CheckIn.Before(s.CheckOut)
}

// Contains reports whether night (a calendar date) is occupied by the stay.
func (s Stay) Contains(night time.Time) bool {
	night = NormalizeDate(night)
	return !night.Before(s.CheckIn) && night.Before(s.CheckOut)
}

func StayOf(b *models.Booking) Stay {
	return NewStay(b.CheckIn, b.CheckOut)
}

// TotalAmount is nights * nightly price.
func TotalAmount(s Stay, price float64) float64 {
	return float64(s.Nights()) * price
}

// CheckCapacity returns a capacity error when guests do not fit the room.
func CheckCapacity(guests, capacity int) error {
	if guests <= 0 {
		return Validation(ErrInvalidGuests, "guests must be a positive number")
	}
	if guests > capacity {
		return Capacity(ErrCapacityExceeded, "room fits %d guests, requested %d", capacity, guests)
	}
	return nil
}
