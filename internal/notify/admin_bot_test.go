package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"hotelbooking/internal/booking"
	"hotelbooking/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fakeUpdatesClient struct {
	mu        sync.Mutex
	updates   chan tgbotapi.Update
	sent      []tgbotapi.Chattable
	callbacks []tgbotapi.CallbackConfig
	stopped   bool
}

func newFakeUpdatesClient() *fakeUpdatesClient {
	return &fakeUpdatesClient{updates: make(chan tgbotapi.Update, 4)}
}

func (f *fakeUpdatesClient) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeUpdatesClient) StopReceivingUpdates() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
}

func (f *fakeUpdatesClient) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeUpdatesClient) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cb, ok := c.(tgbotapi.CallbackConfig); ok {
		f.callbacks = append(f.callbacks, cb)
	}
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeUpdatesClient) messages() []tgbotapi.MessageConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.MessageConfig
	for _, c := range f.sent {
		if m, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, m)
		}
	}
	return out
}

type mockBookingConsole struct {
	mock.Mock
}

func (m *mockBookingConsole) ListBookings(ctx context.Context, filter models.BookingFilter) ([]*models.BookingDetails, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]*models.BookingDetails), args.Error(1)
}

func (m *mockBookingConsole) ExportBookings(ctx context.Context, from, to time.Time) ([]*models.BookingDetails, error) {
	args := m.Called(ctx, from, to)
	return args.Get(0).([]*models.BookingDetails), args.Error(1)
}

func (m *mockBookingConsole) Transition(ctx context.Context, id int64, target models.BookingStatus, tctx booking.TransitionContext) (*models.BookingDetails, error) {
	args := m.Called(ctx, id, target, tctx)
	d, _ := args.Get(0).(*models.BookingDetails)
	return d, args.Error(1)
}

type stubStats struct {
	stats *models.DashboardStats
	err   error
}

func (s stubStats) Stats(context.Context) (*models.DashboardStats, error) {
	return s.stats, s.err
}

const adminChat = int64(100)

func command(chatID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Text:     text,
		Chat:     &tgbotapi.Chat{ID: chatID},
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(text)}},
	}}
}

func callback(chatID int64, data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb-1",
		Data:    data,
		From:    &tgbotapi.User{ID: 7, UserName: "frontdesk"},
		Message: &tgbotapi.Message{MessageID: 55, Chat: &tgbotapi.Chat{ID: chatID}},
	}}
}

func details(id int64, status models.BookingStatus, checkIn time.Time) *models.BookingDetails {
	return &models.BookingDetails{
		Booking: models.Booking{
			ID: id, RoomID: 3, Status: status, Guests: 2, TotalAmount: 300,
			CheckIn: checkIn, CheckOut: checkIn.AddDate(0, 0, 2),
		},
		User: &models.UserSummary{Name: "Anna"},
		Room: &models.RoomSummary{Number: "301"},
	}
}

func TestParseDecision(t *testing.T) {
	tests := []struct {
		data   string
		action string
		id     int64
		ok     bool
	}{
		{"approve:12", callbackApprove, 12, true},
		{"deny:3", callbackDeny, 3, true},
		{"approve:", "", 0, false},
		{"approve:-1", "", 0, false},
		{"delete:4", "", 0, false},
		{"garbage", "", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.data, func(t *testing.T) {
			action, id, err := parseDecision(tt.data)
			if !tt.ok {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.action, action)
			assert.Equal(t, tt.id, id)
		})
	}
}

func TestAdminConsole_IgnoresUnknownChat(t *testing.T) {
	client := newFakeUpdatesClient()
	bookings := new(mockBookingConsole)
	c := NewAdminConsole(client, bookings, stubStats{}, []int64{adminChat}, nil)

	c.processUpdate(context.Background(), command(999, "/pending"))

	assert.Empty(t, client.messages())
	bookings.AssertNotCalled(t, "ListBookings", mock.Anything, mock.Anything)
}

func TestAdminConsole_Pending(t *testing.T) {
	client := newFakeUpdatesClient()
	bookings := new(mockBookingConsole)
	checkIn := time.Date(2026, 11, 2, 0, 0, 0, 0, time.UTC)
	bookings.On("ListBookings", mock.Anything, models.BookingFilter{Status: models.StatusPending, Limit: pendingListLimit}).
		Return([]*models.BookingDetails{details(8, models.StatusPending, checkIn)}, nil)

	c := NewAdminConsole(client, bookings, stubStats{}, []int64{adminChat}, nil)
	c.processUpdate(context.Background(), command(adminChat, "/pending"))

	msgs := client.messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "#8 room 301, Anna, 2026-11-02 - 2026-11-04, 2 guests")
	kb, ok := msgs[0].ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	require.Len(t, kb.InlineKeyboard[0], 2)
	assert.Equal(t, "approve:8", *kb.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, "deny:8", *kb.InlineKeyboard[0][1].CallbackData)

	t.Run("Empty", func(t *testing.T) {
		client := newFakeUpdatesClient()
		bookings := new(mockBookingConsole)
		bookings.On("ListBookings", mock.Anything, mock.Anything).Return([]*models.BookingDetails{}, nil)
		c := NewAdminConsole(client, bookings, stubStats{}, []int64{adminChat}, nil)
		c.processUpdate(context.Background(), command(adminChat, "/pending"))

		msgs := client.messages()
		require.Len(t, msgs, 1)
		assert.Equal(t, "No pending bookings", msgs[0].Text)
	})

	t.Run("Failure", func(t *testing.T) {
		client := newFakeUpdatesClient()
		bookings := new(mockBookingConsole)
		bookings.On("ListBookings", mock.Anything, mock.Anything).Return([]*models.BookingDetails(nil), errors.New("db down"))
		c := NewAdminConsole(client, bookings, stubStats{}, []int64{adminChat}, nil)
		c.processUpdate(context.Background(), command(adminChat, "/pending"))

		msgs := client.messages()
		require.Len(t, msgs, 1)
		assert.Contains(t, msgs[0].Text, "Request failed")
	})
}

func TestAdminConsole_Today(t *testing.T) {
	client := newFakeUpdatesClient()
	bookings := new(mockBookingConsole)
	day := time.Date(2026, 11, 2, 0, 0, 0, 0, time.UTC)
	bookings.On("ExportBookings", mock.Anything, day.AddDate(0, 0, -1), day).Return([]*models.BookingDetails{
		details(1, models.StatusBooked, day),
		details(2, models.StatusPending, day),
		details(3, models.StatusCheckedIn, day.AddDate(0, 0, -2)),
		details(4, models.StatusCheckedIn, day.AddDate(0, 0, -1)),
	}, nil)

	c := NewAdminConsole(client, bookings, stubStats{}, []int64{adminChat}, nil)
	c.now = func() time.Time { return day.Add(9 * time.Hour) }
	c.processUpdate(context.Background(), command(adminChat, "/today"))

	msgs := client.messages()
	require.Len(t, msgs, 1)
	text := msgs[0].Text
	assert.Contains(t, text, "Arrivals: 1\n#1 room 301")
	assert.Contains(t, text, "Departures: 1\n#3 room 301")
	assert.NotContains(t, text, "#2 ")
	assert.NotContains(t, text, "#4 ")
}

func TestAdminConsole_Stats(t *testing.T) {
	client := newFakeUpdatesClient()
	stats := stubStats{stats: &models.DashboardStats{TotalRooms: 4, AvailableRooms: 3, MaintenanceRooms: 1, PendingApprovals: 2, OccupancyRate: 50}}
	c := NewAdminConsole(client, new(mockBookingConsole), stats, []int64{adminChat}, nil)

	c.processUpdate(context.Background(), command(adminChat, "/stats"))

	msgs := client.messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "Rooms: 4 (3 available, 1 maintenance)")
	assert.Contains(t, msgs[0].Text, "pending 2")
	assert.Contains(t, msgs[0].Text, "(50%)")
}

func TestAdminConsole_Decisions(t *testing.T) {
	checkIn := time.Date(2026, 11, 2, 0, 0, 0, 0, time.UTC)

	t.Run("Approve", func(t *testing.T) {
		client := newFakeUpdatesClient()
		bookings := new(mockBookingConsole)
		bookings.On("Transition", mock.Anything, int64(8), models.StatusApproved,
			booking.TransitionContext{AdminNotes: "via Telegram by @frontdesk"}).
			Return(details(8, models.StatusApproved, checkIn), nil)

		c := NewAdminConsole(client, bookings, stubStats{}, []int64{adminChat}, nil)
		c.processUpdate(context.Background(), callback(adminChat, "approve:8"))

		bookings.AssertExpectations(t)
		require.Len(t, client.callbacks, 1)
		assert.Equal(t, "cb-1", client.callbacks[0].CallbackQueryID)
		require.Len(t, client.sent, 1)
		edit, ok := client.sent[0].(tgbotapi.EditMessageTextConfig)
		require.True(t, ok)
		assert.Equal(t, 55, edit.MessageID)
		assert.Contains(t, edit.Text, "by @frontdesk")
	})

	t.Run("Deny", func(t *testing.T) {
		client := newFakeUpdatesClient()
		bookings := new(mockBookingConsole)
		bookings.On("Transition", mock.Anything, int64(9), models.StatusDenied, mock.MatchedBy(func(tctx booking.TransitionContext) bool {
			return tctx.DeniedReason == consoleDeniedReason
		})).Return(details(9, models.StatusDenied, checkIn), nil)

		c := NewAdminConsole(client, bookings, stubStats{}, []int64{adminChat}, nil)
		c.processUpdate(context.Background(), callback(adminChat, "deny:9"))

		bookings.AssertExpectations(t)
	})

	t.Run("Conflict", func(t *testing.T) {
		client := newFakeUpdatesClient()
		bookings := new(mockBookingConsole)
		bookings.On("Transition", mock.Anything, int64(10), models.StatusApproved, mock.Anything).
			Return(nil, booking.IllegalTransition(models.StatusDenied, models.StatusApproved))

		c := NewAdminConsole(client, bookings, stubStats{}, []int64{adminChat}, nil)
		c.processUpdate(context.Background(), callback(adminChat, "approve:10"))

		require.Len(t, client.callbacks, 1)
		assert.Equal(t, "Already decided or overlaps another booking", client.callbacks[0].Text)
		assert.Empty(t, client.sent)
	})

	t.Run("ForeignChat", func(t *testing.T) {
		client := newFakeUpdatesClient()
		bookings := new(mockBookingConsole)
		c := NewAdminConsole(client, bookings, stubStats{}, []int64{adminChat}, nil)
		c.processUpdate(context.Background(), callback(5, "approve:8"))

		bookings.AssertNotCalled(t, "Transition", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		require.Len(t, client.callbacks, 1)
		assert.Equal(t, "Not allowed", client.callbacks[0].Text)
	})
}

func TestAdminConsole_StartStops(t *testing.T) {
	client := newFakeUpdatesClient()
	c := NewAdminConsole(client, new(mockBookingConsole), stubStats{}, []int64{adminChat}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Start(ctx)
		close(done)
	}()

	client.updates <- command(adminChat, "/help")
	require.Eventually(t, func() bool { return len(client.messages()) == 1 }, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("console did not stop")
	}
	client.mu.Lock()
	defer client.mu.Unlock()
	assert.True(t, client.stopped)
}
