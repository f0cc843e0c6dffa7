package domain

import (
	"context"
	"time"

	"hotelbooking/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type BookingRepository interface {
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	ListBookings(ctx context.Context, filter models.BookingFilter) ([]*models.Booking, error)
	GetUserBookings(ctx context.Context, userID int64) ([]*models.Booking, error)
	CreateBookingWithLock(ctx context.Context, booking *models.Booking) error
	UpdateBookingDetailsWithLock(ctx context.Context, booking *models.Booking) error
	UpdateBookingLifecycle(ctx context.Context, booking *models.Booking, fromVersion int64) error
	HasOverlappingBooking(ctx context.Context, roomID int64, checkIn, checkOut time.Time, excludeID int64) (bool, error)
	GetRoomCalendar(ctx context.Context, roomID int64, startDate time.Time, days int) ([]*models.NightAvailability, error)
	AddBookingContact(ctx context.Context, entry *models.ContactEntry) error
	HasCompletedStay(ctx context.Context, userID, roomID int64) (bool, error)
	CountRoomBookings(ctx context.Context, roomID int64) (int, error)
}

type RoomRepository interface {
	CreateRoom(ctx context.Context, room *models.Room) error
	UpdateRoom(ctx context.Context, room *models.Room) error
	UpsertRoomByNumber(ctx context.Context, room *models.Room) (bool, error)
	SetRoomStatus(ctx context.Context, id int64, status models.RoomStatus) error
	DeleteRoom(ctx context.Context, id int64) error
	GetRoom(ctx context.Context, id int64) (*models.Room, error)
	GetRoomByNumber(ctx context.Context, number string) (*models.Room, error)
	ListRooms(ctx context.Context, filter models.RoomFilter) ([]*models.Room, error)
	GetRoomRatings(ctx context.Context) (map[int64]float64, error)
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetAllUsers(ctx context.Context) ([]*models.User, error)
	UpdateUserRole(ctx context.Context, id int64, role string) error
	UpdateUserPassword(ctx context.Context, id int64, passwordHash string) error
}

type ReviewRepository interface {
	CreateReview(ctx context.Context, review *models.Review) error
	GetReview(ctx context.Context, id int64) (*models.Review, error)
	ListRoomReviews(ctx context.Context, roomID int64) ([]*models.Review, error)
	DeleteReview(ctx context.Context, id int64) error
}

type StatsRepository interface {
	GetDashboardStats(ctx context.Context, today time.Time) (*models.DashboardStats, error)
}

type SyncQueueRepository interface {
	CreateSyncTask(ctx context.Context, task *models.SyncTask) error
	GetPendingSyncTasks(ctx context.Context, limit int) ([]models.SyncTask, error)
	UpdateSyncTaskStatus(ctx context.Context, id int64, status, errMsg string, nextRetryAt *time.Time) error
	GetFailedSyncTasks(ctx context.Context) ([]models.SyncTask, error)
	RequeueFailedSyncTasks(ctx context.Context) (int64, error)
}

// Store is everything the booking core reads and writes.
type Store interface {
	BookingRepository
	RoomRepository
	UserRepository
}

// Repository is the full persistence surface implemented by database.DB.
type Repository interface {
	Store
	ReviewRepository
	StatsRepository
	SyncQueueRepository
	Health(ctx context.Context) error
}

// CacheRepository is a small key/value store with TTLs and fixed-window counters.
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	// ReleaseRateLimit gives back one hit counted by CheckRateLimit.
	ReleaseRateLimit(ctx context.Context, key string) error
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type SheetsWriter interface {
	UpsertBooking(ctx context.Context, booking *models.BookingDetails) error
	UpdateBookingStatus(ctx context.Context, bookingID int64, status models.BookingStatus, payment models.PaymentStatus) error
	ReplaceBookingsSheet(ctx context.Context, bookings []*models.BookingDetails) error
}
