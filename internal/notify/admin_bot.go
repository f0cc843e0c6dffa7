package notify

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"hotelbooking/internal/booking"
	"hotelbooking/internal/metrics"
	"hotelbooking/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	callbackApprove = "approve"
	callbackDeny    = "deny"

	pendingListLimit = 10
	updateTimeout    = 30 * time.Second

	consoleDeniedReason = "declined by administrator"
)

// UpdatesClient is the part of the Bot API the admin console needs.
type UpdatesClient interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// BookingConsole is the booking service surface used from the chat.
type BookingConsole interface {
	ListBookings(ctx context.Context, filter models.BookingFilter) ([]*models.BookingDetails, error)
	ExportBookings(ctx context.Context, from, to time.Time) ([]*models.BookingDetails, error)
	Transition(ctx context.Context, id int64, target models.BookingStatus, tctx booking.TransitionContext) (*models.BookingDetails, error)
}

type StatsSource interface {
	Stats(ctx context.Context) (*models.DashboardStats, error)
}

// AdminConsole answers commands from admin chats and applies
// approve/deny decisions sent through inline buttons.
type AdminConsole struct {
	client   UpdatesClient
	bookings BookingConsole
	stats    StatsSource
	chatIDs  []int64
	now      func() time.Time
	logger   *zerolog.Logger
}

func NewAdminConsole(client UpdatesClient, bookings BookingConsole, stats StatsSource, chatIDs []int64, logger *zerolog.Logger) *AdminConsole {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &AdminConsole{
		client:   client,
		bookings: bookings,
		stats:    stats,
		chatIDs:  chatIDs,
		now:      time.Now,
		logger:   logger,
	}
}

// Start polls updates until ctx is done.
func (c *AdminConsole) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := c.client.GetUpdatesChan(u)

	c.logger.Info().Int("chats", len(c.chatIDs)).Msg("Telegram admin console started")
	for {
		select {
		case <-ctx.Done():
			c.client.StopReceivingUpdates()
			c.logger.Info().Msg("Telegram admin console stopped")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			c.processUpdate(ctx, update)
		}
	}
}

func (c *AdminConsole) processUpdate(ctx context.Context, update tgbotapi.Update) {
	ctx, cancel := context.WithTimeout(ctx, updateTimeout)
	defer cancel()

	logger := c.logger.With().Str("request_id", uuid.NewString()).Int("update_id", update.UpdateID).Logger()
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("Recovered from panic in update handler")
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		c.handleCallback(ctx, update.CallbackQuery, &logger)
	case update.Message != nil && update.Message.IsCommand():
		if !c.isAdminChat(update.Message.Chat.ID) {
			logger.Warn().Int64("chat_id", update.Message.Chat.ID).Msg("Command from unknown chat ignored")
			return
		}
		c.handleCommand(ctx, update.Message, &logger)
	}
}

func (c *AdminConsole) isAdminChat(chatID int64) bool {
	return slices.Contains(c.chatIDs, chatID)
}

func (c *AdminConsole) handleCommand(ctx context.Context, msg *tgbotapi.Message, logger *zerolog.Logger) {
	command := msg.Command()
	metrics.IncBotCommand(command)

	var err error
	switch command {
	case "pending":
		err = c.sendPending(ctx, msg.Chat.ID)
	case "today":
		err = c.sendToday(ctx, msg.Chat.ID)
	case "stats":
		err = c.sendStats(ctx, msg.Chat.ID)
	case "start", "help":
		c.reply(msg.Chat.ID, "/pending - bookings awaiting a decision\n/today - arrivals and departures\n/stats - dashboard", logger)
	default:
		c.reply(msg.Chat.ID, "Unknown command. Try /help", logger)
	}
	if err != nil {
		logger.Error().Err(err).Str("command", command).Msg("Admin command failed")
		c.reply(msg.Chat.ID, "Request failed, see server logs", logger)
	}
}

func (c *AdminConsole) sendPending(ctx context.Context, chatID int64) error {
	list, err := c.bookings.ListBookings(ctx, models.BookingFilter{Status: models.StatusPending, Limit: pendingListLimit})
	if err != nil {
		return err
	}
	if len(list) == 0 {
		_, err = c.client.Send(tgbotapi.NewMessage(chatID, "No pending bookings"))
		return err
	}

	for _, b := range list {
		msg := tgbotapi.NewMessage(chatID, formatBookingLine(b))
		msg.ReplyMarkup = decisionKeyboard(b.ID)
		if _, err := c.client.Send(msg); err != nil {
			return err
		}
	}
	return nil
}

func (c *AdminConsole) sendToday(ctx context.Context, chatID int64) error {
	day := booking.NormalizeDate(c.now())
	list, err := c.bookings.ExportBookings(ctx, day.AddDate(0, 0, -1), day)
	if err != nil {
		return err
	}

	var arrivals, departures []*models.BookingDetails
	for _, b := range list {
		switch {
		case booking.NormalizeDate(b.CheckIn).Equal(day) && (b.Status == models.StatusApproved || b.Status == models.StatusBooked):
			arrivals = append(arrivals, b)
		case booking.NormalizeDate(b.CheckOut).Equal(day) && b.Status == models.StatusCheckedIn:
			departures = append(departures, b)
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\nArrivals: %d", day.Format(models.DateLayout), len(arrivals))
	for _, b := range arrivals {
		sb.WriteString("\n" + formatBookingLine(b))
	}
	fmt.Fprintf(&sb, "\n\nDepartures: %d", len(departures))
	for _, b := range departures {
		sb.WriteString("\n" + formatBookingLine(b))
	}
	_, err = c.client.Send(tgbotapi.NewMessage(chatID, sb.String()))
	return err
}

func (c *AdminConsole) sendStats(ctx context.Context, chatID int64) error {
	st, err := c.stats.Stats(ctx)
	if err != nil {
		return err
	}
	text := fmt.Sprintf("Rooms: %d (%d available, %d maintenance)\n"+
		"Bookings: %d, active %d, pending %d\n"+
		"Today: %d check-ins, %d check-outs\n"+
		"Occupied tonight: %d (%.0f%%)\n"+
		"Revenue: %.2f, rating %.1f",
		st.TotalRooms, st.AvailableRooms, st.MaintenanceRooms,
		st.TotalBookings, st.ActiveBookings, st.PendingApprovals,
		st.TodayCheckIns, st.TodayCheckOuts,
		st.OccupiedTonight, st.OccupancyRate,
		st.Revenue, st.AverageRating)
	_, err = c.client.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

func (c *AdminConsole) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery, logger *zerolog.Logger) {
	if cb.Message == nil || !c.isAdminChat(cb.Message.Chat.ID) {
		c.answer(cb.ID, "Not allowed", logger)
		return
	}

	action, id, err := parseDecision(cb.Data)
	if err != nil {
		c.answer(cb.ID, "Unknown action", logger)
		return
	}
	metrics.IncBotCommand(action)

	tctx := booking.TransitionContext{AdminNotes: "via Telegram by " + telegramUser(cb.From)}
	target := models.StatusApproved
	if action == callbackDeny {
		target = models.StatusDenied
		tctx.DeniedReason = consoleDeniedReason
	}

	details, err := c.bookings.Transition(ctx, id, target, tctx)
	if err != nil {
		logger.Warn().Err(err).Int64("booking_id", id).Str("action", action).Msg("Telegram decision rejected")
		c.answer(cb.ID, decisionError(err), logger)
		return
	}

	c.answer(cb.ID, "Booking #"+strconv.FormatInt(id, 10)+" "+booking.Label(details.Status), logger)
	edit := tgbotapi.NewEditMessageText(cb.Message.Chat.ID, cb.Message.MessageID,
		formatBookingLine(details)+"\n"+booking.Label(details.Status)+" by "+telegramUser(cb.From))
	if _, err := c.client.Send(edit); err != nil {
		logger.Error().Err(err).Msg("Failed to update decision message")
	}
}

func (c *AdminConsole) answer(callbackID, text string, logger *zerolog.Logger) {
	if _, err := c.client.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		logger.Error().Err(err).Msg("Failed to answer callback")
	}
}

func (c *AdminConsole) reply(chatID int64, text string, logger *zerolog.Logger) {
	if _, err := c.client.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to send reply")
	}
}

func decisionKeyboard(id int64) tgbotapi.InlineKeyboardMarkup {
	sid := strconv.FormatInt(id, 10)
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Approve", callbackApprove+":"+sid),
			tgbotapi.NewInlineKeyboardButtonData("Deny", callbackDeny+":"+sid),
		),
	)
}

func parseDecision(data string) (string, int64, error) {
	action, raw, ok := strings.Cut(data, ":")
	if !ok || (action != callbackApprove && action != callbackDeny) {
		return "", 0, errors.New("unknown callback")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return "", 0, errors.New("invalid booking id")
	}
	return action, id, nil
}

func decisionError(err error) string {
	switch booking.KindOf(err) {
	case booking.KindNotFound:
		return "Booking not found"
	case booking.KindConflict:
		return "Already decided or overlaps another booking"
	}
	return "Failed, see server logs"
}

func formatBookingLine(b *models.BookingDetails) string {
	room := fmt.Sprintf("#%d", b.RoomID)
	if b.Room != nil {
		room = b.Room.Number
	}
	guest := fmt.Sprintf("user %d", b.UserID)
	if b.User != nil {
		guest = b.User.Name
		if b.User.Phone != "" {
			guest += " (" + b.User.Phone + ")"
		}
	}
	return fmt.Sprintf("#%d room %s, %s, %s - %s, %d guests, %.2f",
		b.ID, room, guest,
		b.CheckIn.Format(models.DateLayout), b.CheckOut.Format(models.DateLayout),
		b.Guests, b.TotalAmount)
}

func telegramUser(u *tgbotapi.User) string {
	if u == nil {
		return "unknown"
	}
	if u.UserName != "" {
		return "@" + u.UserName
	}
	return strconv.FormatInt(u.ID, 10)
}
