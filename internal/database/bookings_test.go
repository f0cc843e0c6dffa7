package database

import (
	"context"
	"testing"

	"hotelbooking/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBooking(userID, roomID int64, checkIn, checkOut string) *models.Booking {
	return &models.Booking{
		UserID:        userID,
		RoomID:        roomID,
		CheckIn:       day(checkIn),
		CheckOut:      day(checkOut),
		Guests:        2,
		TotalAmount:   100,
		Status:        models.StatusPending,
		PaymentStatus: models.PaymentPending,
	}
}

func TestCreateBookingWithLock(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "a@example.com")
	room := createTestRoom(t, db, "101", 100, 2)

	first := newBooking(user.ID, room.ID, "2025-08-01", "2025-08-05")
	require.NoError(t, db.CreateBookingWithLock(ctx, first))
	assert.NotZero(t, first.ID)
	assert.Equal(t, int64(1), first.Version)

	t.Run("Overlap", func(t *testing.T) {
		err := db.CreateBookingWithLock(ctx, newBooking(user.ID, room.ID, "2025-08-04", "2025-08-06"))
		assert.ErrorIs(t, err, ErrNotAvailable)
	})

	t.Run("Adjacent", func(t *testing.T) {
		assert.NoError(t, db.CreateBookingWithLock(ctx, newBooking(user.ID, room.ID, "2025-08-05", "2025-08-07")))
	})

	t.Run("OtherRoom", func(t *testing.T) {
		other := createTestRoom(t, db, "102", 100, 2)
		assert.NoError(t, db.CreateBookingWithLock(ctx, newBooking(user.ID, other.ID, "2025-08-02", "2025-08-03")))
	})

	t.Run("InactiveDoesNotBlock", func(t *testing.T) {
		for i, status := range models.InactiveStatuses {
			b := newBooking(user.ID, room.ID, "2025-09-01", "2025-09-03")
			b.Status = status
			require.NoError(t, db.CreateBookingWithLock(ctx, b), "booking %d", i)
		}
		busy, err := db.HasOverlappingBooking(ctx, room.ID, day("2025-09-01"), day("2025-09-03"), 0)
		require.NoError(t, err)
		assert.False(t, busy)
	})
}

func TestHasOverlappingBooking_ExcludesSelf(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "a@example.com")
	room := createTestRoom(t, db, "101", 100, 2)

	b := newBooking(user.ID, room.ID, "2025-08-01", "2025-08-05")
	require.NoError(t, db.CreateBookingWithLock(ctx, b))

	busy, err := db.HasOverlappingBooking(ctx, room.ID, day("2025-08-02"), day("2025-08-06"), 0)
	require.NoError(t, err)
	assert.True(t, busy)

	busy, err = db.HasOverlappingBooking(ctx, room.ID, day("2025-08-02"), day("2025-08-06"), b.ID)
	require.NoError(t, err)
	assert.False(t, busy)
}

func TestGetBooking(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "a@example.com")
	room := createTestRoom(t, db, "101", 100, 2)

	b := newBooking(user.ID, room.ID, "2025-08-01", "2025-08-03")
	b.SpecialRequests = "late arrival"
	require.NoError(t, db.CreateBookingWithLock(ctx, b))

	got, err := db.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, day("2025-08-01"), got.CheckIn)
	assert.Equal(t, day("2025-08-03"), got.CheckOut)
	assert.Equal(t, "late arrival", got.SpecialRequests)
	assert.Nil(t, got.ApprovedBy)
	assert.Nil(t, got.ApprovedAt)
	assert.Empty(t, got.ContactHistory)

	_, err = db.GetBooking(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateBookingDetailsWithLock(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "a@example.com")
	room := createTestRoom(t, db, "101", 100, 2)

	a := newBooking(user.ID, room.ID, "2025-08-01", "2025-08-05")
	require.NoError(t, db.CreateBookingWithLock(ctx, a))
	b := newBooking(user.ID, room.ID, "2025-08-10", "2025-08-12")
	require.NoError(t, db.CreateBookingWithLock(ctx, b))

	t.Run("ShiftWithinOwnRange", func(t *testing.T) {
		a.CheckIn = day("2025-08-02")
		a.CheckOut = day("2025-08-06")
		a.TotalAmount = 400
		require.NoError(t, db.UpdateBookingDetailsWithLock(ctx, a))
		assert.Equal(t, int64(2), a.Version)

		got, err := db.GetBooking(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, day("2025-08-06"), got.CheckOut)
		assert.Equal(t, 400.0, got.TotalAmount)
	})

	t.Run("CollidesWithOther", func(t *testing.T) {
		moved := *a
		moved.CheckOut = day("2025-08-11")
		assert.ErrorIs(t, db.UpdateBookingDetailsWithLock(ctx, &moved), ErrNotAvailable)
	})

	t.Run("StaleVersion", func(t *testing.T) {
		stale := *b
		stale.Version = 99
		assert.ErrorIs(t, db.UpdateBookingDetailsWithLock(ctx, &stale), ErrConcurrentModification)
	})
}

func TestUpdateBookingLifecycle(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "a@example.com")
	room := createTestRoom(t, db, "101", 100, 2)

	b := newBooking(user.ID, room.ID, "2025-08-01", "2025-08-05")
	require.NoError(t, db.CreateBookingWithLock(ctx, b))

	approver := user.ID
	approvedAt := day("2025-07-20")
	updated := *b
	updated.Status = models.StatusApproved
	updated.ApprovedBy = &approver
	updated.ApprovedAt = &approvedAt
	updated.AdminNotes = "ok"
	require.NoError(t, db.UpdateBookingLifecycle(ctx, &updated, b.Version))
	assert.Equal(t, int64(2), updated.Version)

	got, err := db.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, got.Status)
	require.NotNil(t, got.ApprovedBy)
	assert.Equal(t, approver, *got.ApprovedBy)
	require.NotNil(t, got.ApprovedAt)
	assert.True(t, approvedAt.Equal(*got.ApprovedAt))
	assert.Equal(t, "ok", got.AdminNotes)

	// second writer still holds version 1
	lost := *b
	lost.Status = models.StatusCancelled
	assert.ErrorIs(t, db.UpdateBookingLifecycle(ctx, &lost, b.Version), ErrConcurrentModification)

	got, err = db.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, got.Status)
}

func TestListBookings(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	anna := createTestUser(t, db, "anna@example.com")
	bob := createTestUser(t, db, "bob@example.com")
	r1 := createTestRoom(t, db, "101", 100, 2)
	r2 := createTestRoom(t, db, "102", 100, 2)

	require.NoError(t, db.CreateBookingWithLock(ctx, newBooking(anna.ID, r1.ID, "2025-08-01", "2025-08-03")))
	require.NoError(t, db.CreateBookingWithLock(ctx, newBooking(bob.ID, r2.ID, "2025-08-02", "2025-08-04")))
	cancelled := newBooking(bob.ID, r1.ID, "2025-09-01", "2025-09-02")
	cancelled.Status = models.StatusCancelled
	require.NoError(t, db.CreateBookingWithLock(ctx, cancelled))

	all, err := db.ListBookings(ctx, models.BookingFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	byUser, err := db.ListBookings(ctx, models.BookingFilter{UserID: bob.ID})
	require.NoError(t, err)
	assert.Len(t, byUser, 2)

	byStatus, err := db.ListBookings(ctx, models.BookingFilter{Status: models.StatusCancelled})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, cancelled.ID, byStatus[0].ID)

	inAugust, err := db.ListBookings(ctx, models.BookingFilter{From: day("2025-08-03"), To: day("2025-08-31")})
	require.NoError(t, err)
	require.Len(t, inAugust, 1)
	assert.Equal(t, r2.ID, inAugust[0].RoomID)

	page, err := db.ListBookings(ctx, models.BookingFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Len(t, page, 1)

	mine, err := db.GetUserBookings(ctx, anna.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}

func TestGetRoomCalendar(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "a@example.com")
	room := createTestRoom(t, db, "101", 100, 2)

	b := newBooking(user.ID, room.ID, "2025-08-02", "2025-08-04")
	require.NoError(t, db.CreateBookingWithLock(ctx, b))

	nights, err := db.GetRoomCalendar(ctx, room.ID, day("2025-08-01"), 4)
	require.NoError(t, err)
	require.Len(t, nights, 4)

	assert.False(t, nights[0].Booked)
	assert.True(t, nights[1].Booked)
	assert.Equal(t, b.ID, nights[1].BookingID)
	assert.True(t, nights[2].Booked)
	assert.False(t, nights[3].Booked, "check-out day is free")
}

func TestBookingContacts(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "a@example.com")
	room := createTestRoom(t, db, "101", 100, 2)

	b := newBooking(user.ID, room.ID, "2025-08-01", "2025-08-03")
	require.NoError(t, db.CreateBookingWithLock(ctx, b))

	require.NoError(t, db.AddBookingContact(ctx, &models.ContactEntry{BookingID: b.ID, Method: "phone", Note: "no answer", ContactedBy: user.ID}))
	require.NoError(t, db.AddBookingContact(ctx, &models.ContactEntry{BookingID: b.ID, Method: "email", Note: "sent confirmation", ContactedBy: user.ID}))

	got, err := db.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, got.ContactHistory, 2)
	assert.Equal(t, "phone", got.ContactHistory[0].Method)
	assert.Equal(t, "email", got.ContactHistory[1].Method)
}

func TestRoomBookingHelpers(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "a@example.com")
	room := createTestRoom(t, db, "101", 100, 2)

	count, err := db.CountRoomBookings(ctx, room.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	b := newBooking(user.ID, room.ID, "2025-08-01", "2025-08-03")
	b.Status = models.StatusCheckedOut
	require.NoError(t, db.CreateBookingWithLock(ctx, b))

	count, err = db.CountRoomBookings(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	stayed, err := db.HasCompletedStay(ctx, user.ID, room.ID)
	require.NoError(t, err)
	assert.True(t, stayed)
}
