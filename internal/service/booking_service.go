package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"hotelbooking/internal/booking"
	"hotelbooking/internal/config"
	"hotelbooking/internal/database"
	"hotelbooking/internal/domain"
	"hotelbooking/internal/events"
	"hotelbooking/internal/metrics"
	"hotelbooking/internal/models"

	"github.com/rs/zerolog"
)

// Actor вызывающий пользователь операции с бронью
type Actor struct {
	UserID int64
	Admin  bool
}

type CreateBookingRequest struct {
	UserID          int64
	RoomID          int64
	CheckIn         time.Time
	CheckOut        time.Time
	Guests          int
	SpecialRequests string
}

// UpdateBookingRequest изменения брони, nil поля не трогаются
type UpdateBookingRequest struct {
	RoomID          *int64
	CheckIn         *time.Time
	CheckOut        *time.Time
	Guests          *int
	SpecialRequests *string
	AdminNotes      *string
}

type BookingService struct {
	repo     domain.Store
	cache    domain.CacheRepository
	eventBus domain.EventPublisher
	cfg      config.BookingConfig
	logger   *zerolog.Logger
	now      func() time.Time
}

func NewBookingService(repo domain.Store, cache domain.CacheRepository, eventBus domain.EventPublisher, cfg config.BookingConfig, logger *zerolog.Logger) *BookingService {
	if cfg.MaxAdvanceDays <= 0 {
		cfg.MaxAdvanceDays = models.DefaultMaxAdvanceDays
	}
	return &BookingService{
		repo:     repo,
		cache:    cache,
		eventBus: eventBus,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// IsAvailable проверяет, что ни одна активная бронь номера не пересекает [checkIn, checkOut).
// excludeID исключает редактируемую бронь, 0 если такой нет
func (s *BookingService) IsAvailable(ctx context.Context, roomID int64, checkIn, checkOut time.Time, excludeID int64) (bool, error) {
	stay := booking.NewStay(checkIn, checkOut)
	if err := stay.Validate(); err != nil {
		return false, err
	}

	room, err := s.bookableRoom(ctx, roomID)
	if err != nil {
		return false, err
	}

	overlap, err := s.repo.HasOverlappingBooking(ctx, room.ID, stay.CheckIn, stay.CheckOut, excludeID)
	if err != nil {
		return false, fmt.Errorf("failed to check availability: %w", err)
	}
	return !overlap, nil
}

func (s *BookingService) CreateBooking(ctx context.Context, req CreateBookingRequest) (*models.BookingDetails, error) {
	details, err := s.createBooking(ctx, req)
	if err != nil {
		metrics.IncBookingRejected(string(booking.KindOf(err)))
		return nil, err
	}
	metrics.IncBookingCreated()
	return details, nil
}

func (s *BookingService) createBooking(ctx context.Context, req CreateBookingRequest) (*models.BookingDetails, error) {
	stay := booking.NewStay(req.CheckIn, req.CheckOut)
	if err := stay.Validate(); err != nil {
		return nil, err
	}
	if err := s.validateCheckIn(stay.CheckIn); err != nil {
		return nil, err
	}
	if req.Guests <= 0 {
		return nil, booking.Validation(booking.ErrInvalidGuests, "guests must be a positive number")
	}

	user, err := s.repo.GetUserByID(ctx, req.UserID)
	if err != nil {
		return nil, storeError(err, booking.ErrUserNotFound)
	}

	room, err := s.bookableRoom(ctx, req.RoomID)
	if err != nil {
		return nil, err
	}

	// Вместимость проверяется до пересечений
	if err := booking.CheckCapacity(req.Guests, room.Capacity); err != nil {
		return nil, err
	}

	if err := s.checkQuota(ctx, req.UserID); err != nil {
		return nil, err
	}

	b := &models.Booking{
		UserID:          req.UserID,
		RoomID:          room.ID,
		CheckIn:         stay.CheckIn,
		CheckOut:        stay.CheckOut,
		Guests:          req.Guests,
		TotalAmount:     booking.TotalAmount(stay, room.Price),
		Status:          models.StatusPending,
		PaymentStatus:   models.PaymentPending,
		SpecialRequests: strings.TrimSpace(req.SpecialRequests),
		ContactHistory:  []models.ContactEntry{},
	}
	if err := s.repo.CreateBookingWithLock(ctx, b); err != nil {
		s.releaseQuota(ctx, req.UserID)
		return nil, storeError(err, booking.ErrRoomNotFound)
	}

	details := detailsOf(b, user, room)
	s.publishEvent(events.EventBookingCreated, details, "", req.UserID)

	s.logger.Info().
		Int64("booking_id", b.ID).
		Int64("room_id", b.RoomID).
		Int64("user_id", b.UserID).
		Str("check_in", b.CheckIn.Format(models.DateLayout)).
		Str("check_out", b.CheckOut.Format(models.DateLayout)).
		Msg("Booking created")

	return details, nil
}

// UpdateBooking меняет номер, даты, гостей и текстовые поля.
// Статус меняется только через Transition
func (s *BookingService) UpdateBooking(ctx context.Context, id int64, actor Actor, req UpdateBookingRequest) (*models.BookingDetails, error) {
	current, err := s.repo.GetBooking(ctx, id)
	if err != nil {
		return nil, storeError(err, booking.ErrBookingNotFound)
	}
	if !actor.Admin && current.UserID != actor.UserID {
		return nil, booking.Forbidden(booking.ErrForbidden, "")
	}
	if !modifiableBy(current.Status, actor.Admin) {
		return nil, booking.Conflict(booking.ErrNotModifiable, "booking in status %s can no longer be modified", current.Status)
	}
	if req.AdminNotes != nil && !actor.Admin {
		return nil, booking.Forbidden(booking.ErrForbidden, "only admins can edit admin notes")
	}

	updated := *current
	if req.RoomID != nil {
		updated.RoomID = *req.RoomID
	}
	if req.CheckIn != nil {
		updated.CheckIn = *req.CheckIn
	}
	if req.CheckOut != nil {
		updated.CheckOut = *req.CheckOut
	}
	if req.Guests != nil {
		updated.Guests = *req.Guests
	}
	if req.SpecialRequests != nil {
		updated.SpecialRequests = strings.TrimSpace(*req.SpecialRequests)
	}
	if req.AdminNotes != nil {
		updated.AdminNotes = strings.TrimSpace(*req.AdminNotes)
	}

	stay := booking.NewStay(updated.CheckIn, updated.CheckOut)
	if err := stay.Validate(); err != nil {
		return nil, err
	}
	updated.CheckIn, updated.CheckOut = stay.CheckIn, stay.CheckOut

	roomChanged := updated.RoomID != current.RoomID
	datesChanged := !stay.CheckIn.Equal(current.CheckIn) || !stay.CheckOut.Equal(current.CheckOut)
	if !stay.CheckIn.Equal(current.CheckIn) {
		if err := s.validateCheckIn(stay.CheckIn); err != nil {
			return nil, err
		}
	}

	var room *models.Room
	if roomChanged || datesChanged {
		room, err = s.bookableRoom(ctx, updated.RoomID)
	} else {
		room, err = s.room(ctx, updated.RoomID)
	}
	if err != nil {
		return nil, err
	}

	if err := booking.CheckCapacity(updated.Guests, room.Capacity); err != nil {
		return nil, err
	}
	if roomChanged || datesChanged {
		updated.TotalAmount = booking.TotalAmount(stay, room.Price)
	}

	if err := s.repo.UpdateBookingDetailsWithLock(ctx, &updated); err != nil {
		return nil, storeError(err, booking.ErrBookingNotFound)
	}

	details, err := s.details(ctx, &updated)
	if err != nil {
		return nil, err
	}
	s.publishEvent(events.EventBookingUpdated, details, "", actor.UserID)
	return details, nil
}

// Transition переводит бронь в статус target.
// Переход в текущий статус ничего не пишет
func (s *BookingService) Transition(ctx context.Context, id int64, target models.BookingStatus, tctx booking.TransitionContext) (*models.BookingDetails, error) {
	current, err := s.repo.GetBooking(ctx, id)
	if err != nil {
		return nil, storeError(err, booking.ErrBookingNotFound)
	}
	return s.transition(ctx, current, target, tctx)
}

// CancelOwnBooking отмена брони самим гостем
func (s *BookingService) CancelOwnBooking(ctx context.Context, userID, id int64) (*models.BookingDetails, error) {
	current, err := s.repo.GetBooking(ctx, id)
	if err != nil {
		return nil, storeError(err, booking.ErrBookingNotFound)
	}
	if current.UserID != userID {
		return nil, booking.Forbidden(booking.ErrForbidden, "")
	}
	return s.transition(ctx, current, models.StatusCancelled, booking.TransitionContext{ActorID: userID})
}

func (s *BookingService) transition(ctx context.Context, current *models.Booking, target models.BookingStatus, tctx booking.TransitionContext) (*models.BookingDetails, error) {
	patch, changed, err := booking.Plan(current, target, tctx, s.now().UTC())
	if err != nil {
		metrics.IncBookingRejected(string(booking.KindOf(err)))
		return nil, err
	}
	if !changed {
		return s.details(ctx, current)
	}

	updated := *current
	patch.Apply(&updated)
	if err := s.repo.UpdateBookingLifecycle(ctx, &updated, current.Version); err != nil {
		return nil, storeError(err, booking.ErrBookingNotFound)
	}
	metrics.IncTransition(string(current.Status), string(updated.Status))

	details, err := s.details(ctx, &updated)
	if err != nil {
		return nil, err
	}
	s.publishEvent(events.EventBookingStatusChanged, details, current.Status, tctx.ActorID)

	s.logger.Info().
		Int64("booking_id", updated.ID).
		Str("from", string(current.Status)).
		Str("to", string(updated.Status)).
		Int64("actor_id", tctx.ActorID).
		Msg("Booking status changed")

	return details, nil
}

// AddContact добавляет запись в историю контактов
func (s *BookingService) AddContact(ctx context.Context, id, actorID int64, method, note string) (*models.BookingDetails, error) {
	method = strings.TrimSpace(strings.ToLower(method))
	if !slices.Contains(models.ContactMethods, method) {
		return nil, booking.Validation(nil, "contact method must be one of %s", strings.Join(models.ContactMethods, ", "))
	}

	if _, err := s.repo.GetBooking(ctx, id); err != nil {
		return nil, storeError(err, booking.ErrBookingNotFound)
	}

	entry := &models.ContactEntry{
		BookingID:   id,
		Method:      method,
		Note:        strings.TrimSpace(note),
		ContactedBy: actorID,
		ContactedAt: s.now().UTC(),
	}
	if err := s.repo.AddBookingContact(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to add contact: %w", err)
	}

	b, err := s.repo.GetBooking(ctx, id)
	if err != nil {
		return nil, storeError(err, booking.ErrBookingNotFound)
	}
	details, err := s.details(ctx, b)
	if err != nil {
		return nil, err
	}
	s.publishEvent(events.EventBookingContacted, details, "", actorID)
	return details, nil
}

// GetBooking возвращает бронь владельцу или администратору
func (s *BookingService) GetBooking(ctx context.Context, id int64, actor Actor) (*models.BookingDetails, error) {
	b, err := s.repo.GetBooking(ctx, id)
	if err != nil {
		return nil, storeError(err, booking.ErrBookingNotFound)
	}
	if !actor.Admin && b.UserID != actor.UserID {
		return nil, booking.Forbidden(booking.ErrForbidden, "")
	}
	return s.details(ctx, b)
}

func (s *BookingService) ListBookings(ctx context.Context, filter models.BookingFilter) ([]*models.BookingDetails, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, booking.Validation(booking.ErrInvalidStatus, "unknown booking status %q", string(filter.Status))
	}
	if filter.Limit <= 0 {
		filter.Limit = models.DefaultPageSize
	}
	if filter.Limit > models.MaxPageSize {
		filter.Limit = models.MaxPageSize
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	list, err := s.repo.ListBookings(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return s.detailsList(ctx, list)
}

// ExportBookings все брони периода [from, to] без пагинации
func (s *BookingService) ExportBookings(ctx context.Context, from, to time.Time) ([]*models.BookingDetails, error) {
	list, err := s.repo.ListBookings(ctx, models.BookingFilter{From: from, To: to})
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return s.detailsList(ctx, list)
}

func (s *BookingService) GetUserBookings(ctx context.Context, userID int64) ([]*models.BookingDetails, error) {
	list, err := s.repo.GetUserBookings(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user bookings: %w", err)
	}
	return s.detailsList(ctx, list)
}

// Details бронь с данными гостя и номера
func (s *BookingService) Details(ctx context.Context, id int64) (*models.BookingDetails, error) {
	b, err := s.repo.GetBooking(ctx, id)
	if err != nil {
		return nil, storeError(err, booking.ErrBookingNotFound)
	}
	return s.details(ctx, b)
}

func (s *BookingService) validateCheckIn(checkIn time.Time) error {
	today := booking.NormalizeDate(s.now())
	if checkIn.Before(today) {
		return booking.Validation(booking.ErrPastCheckIn, "")
	}
	if checkIn.After(today.AddDate(0, 0, s.cfg.MaxAdvanceDays)) {
		return booking.Validation(booking.ErrDateTooFar, "check-in must be within %d days from today", s.cfg.MaxAdvanceDays)
	}
	return nil
}

func quotaKey(userID int64) string {
	return fmt.Sprintf("booking_create:%d", userID)
}

func (s *BookingService) checkQuota(ctx context.Context, userID int64) error {
	if s.cache == nil || s.cfg.CreationLimit <= 0 {
		return nil
	}
	key := quotaKey(userID)
	allowed, err := s.cache.CheckRateLimit(ctx, key, s.cfg.CreationLimit, s.cfg.CreationWindow)
	if err != nil {
		s.logger.Warn().Err(err).Int64("user_id", userID).Msg("Booking quota check failed")
		return nil
	}
	if !allowed {
		return booking.RateLimited(booking.ErrTooManyBookings, "at most %d bookings per %s", s.cfg.CreationLimit, s.cfg.CreationWindow)
	}
	return nil
}

// releaseQuota возвращает попытку в квоту, если бронь не сохранилась
func (s *BookingService) releaseQuota(ctx context.Context, userID int64) {
	if s.cache == nil || s.cfg.CreationLimit <= 0 {
		return
	}
	if err := s.cache.ReleaseRateLimit(ctx, quotaKey(userID)); err != nil {
		s.logger.Warn().Err(err).Int64("user_id", userID).Msg("Booking quota release failed")
	}
}

func (s *BookingService) room(ctx context.Context, roomID int64) (*models.Room, error) {
	room, err := s.repo.GetRoom(ctx, roomID)
	if err != nil {
		return nil, storeError(err, booking.ErrRoomNotFound)
	}
	return room, nil
}

// bookableRoom загружает номер, номера на обслуживании не бронируются
func (s *BookingService) bookableRoom(ctx context.Context, roomID int64) (*models.Room, error) {
	room, err := s.room(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.Status == models.RoomMaintenance {
		return nil, booking.Conflict(booking.ErrRoomUnavailable, "")
	}
	return room, nil
}

func (s *BookingService) details(ctx context.Context, b *models.Booking) (*models.BookingDetails, error) {
	user, err := s.repo.GetUserByID(ctx, b.UserID)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("failed to load booking user: %w", err)
	}
	room, err := s.repo.GetRoom(ctx, b.RoomID)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("failed to load booking room: %w", err)
	}
	return detailsOf(b, user, room), nil
}

func (s *BookingService) detailsList(ctx context.Context, list []*models.Booking) ([]*models.BookingDetails, error) {
	users := make(map[int64]*models.User)
	rooms := make(map[int64]*models.Room)
	result := make([]*models.BookingDetails, 0, len(list))

	for _, b := range list {
		user, ok := users[b.UserID]
		if !ok {
			u, err := s.repo.GetUserByID(ctx, b.UserID)
			if err != nil && !errors.Is(err, database.ErrNotFound) {
				return nil, fmt.Errorf("failed to load booking user: %w", err)
			}
			user = u
			users[b.UserID] = u
		}
		room, ok := rooms[b.RoomID]
		if !ok {
			r, err := s.repo.GetRoom(ctx, b.RoomID)
			if err != nil && !errors.Is(err, database.ErrNotFound) {
				return nil, fmt.Errorf("failed to load booking room: %w", err)
			}
			room = r
			rooms[b.RoomID] = r
		}
		result = append(result, detailsOf(b, user, room))
	}
	return result, nil
}

func detailsOf(b *models.Booking, user *models.User, room *models.Room) *models.BookingDetails {
	d := &models.BookingDetails{Booking: *b}
	if d.ContactHistory == nil {
		d.ContactHistory = []models.ContactEntry{}
	}
	if user != nil {
		d.User = user.Summary()
	}
	if room != nil {
		d.Room = room.Summary()
	}
	return d
}

// modifiableBy гость правит только pending, администратор всё до заезда
func modifiableBy(status models.BookingStatus, admin bool) bool {
	switch status {
	case models.StatusPending:
		return true
	case models.StatusApproved, models.StatusBooked:
		return admin
	default:
		return false
	}
}

func (s *BookingService) publishEvent(eventType string, d *models.BookingDetails, previous models.BookingStatus, changedByID int64) {
	if s.eventBus == nil {
		return
	}

	payload := events.BookingEventPayload{
		BookingID:      d.ID,
		UserID:         d.UserID,
		RoomID:         d.RoomID,
		Status:         string(d.Status),
		PreviousStatus: string(previous),
		PaymentStatus:  string(d.PaymentStatus),
		CheckIn:        d.CheckIn,
		CheckOut:       d.CheckOut,
		Guests:         d.Guests,
		TotalAmount:    d.TotalAmount,
		DeniedReason:   d.DeniedReason,
		ChangedByID:    changedByID,
	}
	if d.User != nil {
		payload.UserName = d.User.Name
		payload.UserEmail = d.User.Email
	}
	if d.Room != nil {
		payload.RoomNumber = d.Room.Number
	}

	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Int64("booking_id", d.ID).Msg("publish event error")
	}
}
