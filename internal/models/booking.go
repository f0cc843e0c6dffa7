package models

import "time"

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	StatusPending    BookingStatus = "pending"
	StatusApproved   BookingStatus = "approved"
	StatusBooked     BookingStatus = "booked"
	StatusCheckedIn  BookingStatus = "checked-in"
	StatusCheckedOut BookingStatus = "checked-out"
	StatusCancelled  BookingStatus = "cancelled"
	StatusNoShow     BookingStatus = "no-show"
	StatusDenied     BookingStatus = "denied"
)

// AllBookingStatuses lists every status in lifecycle order.
var AllBookingStatuses = []BookingStatus{
	StatusPending,
	StatusApproved,
	StatusBooked,
	StatusCheckedIn,
	StatusCheckedOut,
	StatusCancelled,
	StatusNoShow,
	StatusDenied,
}

// InactiveStatuses never block a room.
var InactiveStatuses = []BookingStatus{StatusCancelled, StatusDenied, StatusNoShow}

func (s BookingStatus) String() string { return string(s) }

// Valid reports whether s is one of the known statuses.
func (s BookingStatus) Valid() bool {
	for _, known := range AllBookingStatuses {
		if s == known {
			return true
		}
	}
	return false
}

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

type Booking struct {
	ID              int64          `json:"id"`
	UserID          int64          `json:"user_id"`
	RoomID          int64          `json:"room_id"`
	CheckIn         time.Time      `json:"check_in"`
	CheckOut        time.Time      `json:"check_out"`
	Guests          int            `json:"guests"`
	TotalAmount     float64        `json:"total_amount"`
	Status          BookingStatus  `json:"status"`
	PaymentStatus   PaymentStatus  `json:"payment_status"`
	SpecialRequests string         `json:"special_requests,omitempty"`
	AdminNotes      string         `json:"admin_notes,omitempty"`
	ApprovedBy      *int64         `json:"approved_by,omitempty"`
	ApprovedAt      *time.Time     `json:"approved_at,omitempty"`
	DeniedReason    string         `json:"denied_reason,omitempty"`
	CheckedInAt     *time.Time     `json:"checked_in_at,omitempty"`
	CheckedOutAt    *time.Time     `json:"checked_out_at,omitempty"`
	CancelledAt     *time.Time     `json:"cancelled_at,omitempty"`
	ContactHistory  []ContactEntry `json:"contact_history"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	Version         int64          `json:"version"`
}

// ContactEntry is one append-only record of an admin reaching out to a guest.
type ContactEntry struct {
	ID          int64     `json:"id"`
	BookingID   int64     `json:"booking_id"`
	Method      string    `json:"method"`
	Note        string    `json:"note"`
	ContactedBy int64     `json:"contacted_by"`
	ContactedAt time.Time `json:"contacted_at"`
}

type UserSummary struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

type RoomSummary struct {
	ID     int64   `json:"id"`
	Number string  `json:"number"`
	Name   string  `json:"name"`
	Type   string  `json:"type"`
	Price  float64 `json:"price"`
}

// BookingDetails is a booking with its guest and room resolved for display.
type BookingDetails struct {
	Booking
	User *UserSummary `json:"user,omitempty"`
	Room *RoomSummary `json:"room,omitempty"`
}

// BookingFilter narrows booking listings. Zero values mean "any".
type BookingFilter struct {
	Status BookingStatus
	RoomID int64
	UserID int64
	From   time.Time
	To     time.Time
	Limit  int
	Offset int
}

// NightAvailability describes one night of a room calendar.
type NightAvailability struct {
	Date      time.Time     `json:"date"`
	RoomID    int64         `json:"room_id"`
	Booked    bool          `json:"booked"`
	BookingID int64         `json:"booking_id,omitempty"`
	Status    BookingStatus `json:"status,omitempty"`
}
