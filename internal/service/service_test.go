package service

import (
	"context"
	"testing"
	"time"

	"hotelbooking/internal/auth"
	"hotelbooking/internal/config"
	"hotelbooking/internal/database"
	"hotelbooking/internal/events"
	"hotelbooking/internal/models"
	"hotelbooking/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// today is the fixed clock used by service tests.
var today = time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)

type testEnv struct {
	db        *database.DB
	bus       *events.EventBus
	cache     *repository.MemoryCacheRepository
	bookings  *BookingService
	rooms     *RoomService
	users     *UserService
	reviews   *ReviewService
	dashboard *DashboardService
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zerolog.Nop()
	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	bus := events.NewEventBus(&logger)
	cache := repository.NewMemoryCacheRepository()

	bookings := NewBookingService(db, cache, bus, config.BookingConfig{MaxAdvanceDays: 365}, &logger)
	bookings.now = func() time.Time { return today }

	dashboard := NewDashboardService(db, cache, time.Minute, &logger)
	dashboard.now = func() time.Time { return today }

	return &testEnv{
		db:        db,
		bus:       bus,
		cache:     cache,
		bookings:  bookings,
		rooms:     NewRoomService(db, bus, &logger),
		users:     NewUserService(db, auth.NewPasswordHasher(bcrypt.MinCost), auth.NewTokenManager("test-secret-0123456789", "hotel", time.Hour), &logger),
		reviews:   NewReviewService(db, bus, &logger),
		dashboard: dashboard,
	}
}

func (e *testEnv) user(t *testing.T, email string) *models.User {
	t.Helper()
	u := &models.User{Email: email, Name: "Guest " + email, PasswordHash: "x"}
	require.NoError(t, e.db.CreateUser(context.Background(), u))
	return u
}

func (e *testEnv) room(t *testing.T, number string, price float64, capacity int) *models.Room {
	t.Helper()
	r := &models.Room{Number: number, Name: "Room " + number, Type: "double", Price: price, Capacity: capacity}
	require.NoError(t, e.db.CreateRoom(context.Background(), r))
	return r
}

func (e *testEnv) book(t *testing.T, userID, roomID int64, in, out string) *models.BookingDetails {
	t.Helper()
	d, err := e.bookings.CreateBooking(context.Background(), CreateBookingRequest{
		UserID:   userID,
		RoomID:   roomID,
		CheckIn:  date(in),
		CheckOut: date(out),
		Guests:   1,
	})
	require.NoError(t, err)
	return d
}

func date(s string) time.Time {
	t, err := time.Parse(models.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}
