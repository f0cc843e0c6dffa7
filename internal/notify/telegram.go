package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"hotelbooking/internal/booking"
	"hotelbooking/internal/config"
	"hotelbooking/internal/domain"
	"hotelbooking/internal/events"
	"hotelbooking/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Telegram allows about 30 messages per second per bot.
const sendRate = 20

// ArrivalsSource lists bookings overlapping a period.
type ArrivalsSource interface {
	ExportBookings(ctx context.Context, from, to time.Time) ([]*models.BookingDetails, error)
}

// NewBot connects to the Bot API.
func NewBot(cfg config.TelegramConfig) (*tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	bot.Debug = cfg.Debug
	return bot, nil
}

// TelegramNotifier sends booking notifications to admin chats.
type TelegramNotifier struct {
	sender  domain.TelegramSender
	chatIDs []int64
	queue   chan tgbotapi.Chattable
	limiter *rate.Limiter
	logger  *zerolog.Logger
}

func NewTelegramNotifier(sender domain.TelegramSender, chatIDs []int64, logger *zerolog.Logger) *TelegramNotifier {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &TelegramNotifier{
		sender:  sender,
		chatIDs: chatIDs,
		queue:   make(chan tgbotapi.Chattable, models.WorkerQueueSize),
		limiter: rate.NewLimiter(rate.Limit(sendRate), 1),
		logger:  logger,
	}
}

// Subscribe formats booking events into admin messages.
func (n *TelegramNotifier) Subscribe(bus *events.EventBus) {
	handle := func(format func(events.BookingEventPayload) string) events.EventHandler {
		return func(event *events.Event) error {
			var payload events.BookingEventPayload
			if err := event.Decode(&payload); err != nil {
				return err
			}
			n.Notify(format(payload))
			return nil
		}
	}

	bus.Subscribe(events.EventBookingCreated, handle(formatCreated))
	bus.Subscribe(events.EventBookingStatusChanged, handle(formatStatusChanged))
	bus.Subscribe(events.EventBookingUpdated, handle(formatUpdated))
}

// Notify queues text for every admin chat. Messages beyond the queue size are dropped.
func (n *TelegramNotifier) Notify(text string) {
	for _, chatID := range n.chatIDs {
		msg := tgbotapi.NewMessage(chatID, text)
		msg.DisableWebPagePreview = true
		select {
		case n.queue <- msg:
		default:
			n.logger.Warn().Int64("chat_id", chatID).Msg("Notification queue full, message dropped")
		}
	}
}

// Start sends queued messages until ctx is done.
func (n *TelegramNotifier) Start(ctx context.Context) {
	n.logger.Info().Int("chats", len(n.chatIDs)).Msg("Telegram notifier started")
	defer n.logger.Info().Msg("Telegram notifier stopped")

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-n.queue:
			if err := n.limiter.Wait(ctx); err != nil {
				return
			}
			if _, err := n.sender.Send(msg); err != nil {
				n.logger.Error().Err(err).Msg("Failed to send telegram notification")
			}
		}
	}
}

// StartDailyDigest sends the list of tomorrow's arrivals every day at hour (local time).
func (n *TelegramNotifier) StartDailyDigest(ctx context.Context, source ArrivalsSource, hour int) {
	timer := time.NewTimer(timeUntilNextHour(time.Now(), hour))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			if err := n.SendArrivalsDigest(ctx, source, time.Now().AddDate(0, 0, 1)); err != nil {
				n.logger.Error().Err(err).Msg("Failed to build arrivals digest")
			}
			timer.Reset(24 * time.Hour)
		}
	}
}

// SendArrivalsDigest queues a summary of confirmed check-ins on day.
func (n *TelegramNotifier) SendArrivalsDigest(ctx context.Context, source ArrivalsSource, day time.Time) error {
	day = booking.NormalizeDate(day)
	list, err := source.ExportBookings(ctx, day, day)
	if err != nil {
		return err
	}

	var arrivals []*models.BookingDetails
	for _, b := range list {
		if !booking.NormalizeDate(b.CheckIn).Equal(day) {
			continue
		}
		if b.Status == models.StatusApproved || b.Status == models.StatusBooked {
			arrivals = append(arrivals, b)
		}
	}
	if len(arrivals) == 0 {
		return nil
	}

	n.Notify(formatArrivals(day, arrivals))
	return nil
}

func formatCreated(p events.BookingEventPayload) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "New booking #%d\n", p.BookingID)
	fmt.Fprintf(&sb, "Room: %s\n", roomText(p))
	fmt.Fprintf(&sb, "Guest: %s\n", guestText(p))
	fmt.Fprintf(&sb, "Stay: %s - %s (%d guests)\n", p.CheckIn.Format(models.DateLayout), p.CheckOut.Format(models.DateLayout), p.Guests)
	fmt.Fprintf(&sb, "Total: %.2f", p.TotalAmount)
	return sb.String()
}

func formatStatusChanged(p events.BookingEventPayload) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Booking #%d: %s -> %s\n",
		p.BookingID,
		booking.Label(models.BookingStatus(p.PreviousStatus)),
		booking.Label(models.BookingStatus(p.Status)))
	fmt.Fprintf(&sb, "Room: %s, guest: %s\n", roomText(p), guestText(p))
	fmt.Fprintf(&sb, "Payment: %s", p.PaymentStatus)
	if p.DeniedReason != "" {
		fmt.Fprintf(&sb, "\nReason: %s", p.DeniedReason)
	}
	return sb.String()
}

func formatUpdated(p events.BookingEventPayload) string {
	return fmt.Sprintf("Booking #%d changed: room %s, %s - %s, %d guests, total %.2f",
		p.BookingID, roomText(p),
		p.CheckIn.Format(models.DateLayout), p.CheckOut.Format(models.DateLayout),
		p.Guests, p.TotalAmount)
}

func formatArrivals(day time.Time, arrivals []*models.BookingDetails) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Arrivals on %s: %d\n", day.Format(models.DateLayout), len(arrivals))
	for _, b := range arrivals {
		fmt.Fprintf(&sb, "\n%s, %s", formatBookingLine(b), booking.Label(b.Status))
	}
	return sb.String()
}

func roomText(p events.BookingEventPayload) string {
	if p.RoomNumber != "" {
		return p.RoomNumber
	}
	return fmt.Sprintf("#%d", p.RoomID)
}

func guestText(p events.BookingEventPayload) string {
	switch {
	case p.UserName != "" && p.UserEmail != "":
		return p.UserName + " <" + p.UserEmail + ">"
	case p.UserName != "":
		return p.UserName
	case p.UserEmail != "":
		return p.UserEmail
	}
	return fmt.Sprintf("user %d", p.UserID)
}

// timeUntilNextHour returns the wait until the next occurrence of hour
func timeUntilNextHour(now time.Time, hour int) time.Duration {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(now)
}
