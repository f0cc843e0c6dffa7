package database

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"hotelbooking/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConcurrentBooking(t *testing.T) {
	logger := zerolog.Nop()
	dbPath := filepath.Join(t.TempDir(), "concurrency.db")
	db, err := NewDB(dbPath, &logger)
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	user := createTestUser(t, db, "race@example.com")
	room := createTestRoom(t, db, "301", 100, 2)

	const numGoroutines = 10
	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	results := make(chan error, numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func(i int) {
			defer wg.Done()
			// every request overlaps the night of 08-03
			checkIn := day("2025-08-01").AddDate(0, 0, i%3)
			booking := &models.Booking{
				UserID:        user.ID,
				RoomID:        room.ID,
				CheckIn:       checkIn,
				CheckOut:      day("2025-08-04"),
				Guests:        1,
				Status:        models.StatusPending,
				PaymentStatus: models.PaymentPending,
			}
			results <- db.CreateBookingWithLock(ctx, booking)
		}(i)
	}

	wg.Wait()
	close(results)

	successCount := 0
	for err := range results {
		if err == nil {
			successCount++
		} else {
			assert.ErrorIs(t, err, ErrNotAvailable)
		}
	}

	assert.Equal(t, 1, successCount, "Only one overlapping booking should succeed")

	bookings, err := db.ListBookings(ctx, models.BookingFilter{RoomID: room.ID})
	require.NoError(t, err)
	assert.Len(t, bookings, 1)
}
