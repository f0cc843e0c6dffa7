package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"hotelbooking/internal/booking"
	"hotelbooking/internal/domain"
	"hotelbooking/internal/events"
	"hotelbooking/internal/models"

	"github.com/rs/zerolog"
)

const maxCalendarDays = 366

// RoomQuery filters room listings. When both dates are set only rooms free
// for the whole stay are returned.
type RoomQuery struct {
	models.RoomFilter
	CheckIn  time.Time
	CheckOut time.Time
}

type RoomService struct {
	repo     domain.Store
	eventBus domain.EventPublisher
	logger   *zerolog.Logger
}

func NewRoomService(repo domain.Store, eventBus domain.EventPublisher, logger *zerolog.Logger) *RoomService {
	return &RoomService{
		repo:     repo,
		eventBus: eventBus,
		logger:   logger,
	}
}

func (s *RoomService) ListRooms(ctx context.Context, q RoomQuery) ([]*models.Room, error) {
	if q.Status != "" && !q.Status.Valid() {
		return nil, booking.Validation(nil, "unknown room status %q", string(q.Status))
	}

	var stay *booking.Stay
	if !q.CheckIn.IsZero() || !q.CheckOut.IsZero() {
		st := booking.NewStay(q.CheckIn, q.CheckOut)
		if err := st.Validate(); err != nil {
			return nil, err
		}
		stay = &st
	}

	rooms, err := s.repo.ListRooms(ctx, q.RoomFilter)
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	ratings, err := s.repo.GetRoomRatings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load room ratings: %w", err)
	}

	result := make([]*models.Room, 0, len(rooms))
	for _, room := range rooms {
		if stay != nil {
			if room.Status == models.RoomMaintenance {
				continue
			}
			overlap, err := s.repo.HasOverlappingBooking(ctx, room.ID, stay.CheckIn, stay.CheckOut, 0)
			if err != nil {
				return nil, fmt.Errorf("failed to check availability: %w", err)
			}
			if overlap {
				continue
			}
		}
		room.Rating = ratings[room.ID]
		result = append(result, room)
	}
	return result, nil
}

func (s *RoomService) GetRoom(ctx context.Context, id int64) (*models.Room, error) {
	room, err := s.repo.GetRoom(ctx, id)
	if err != nil {
		return nil, storeError(err, booking.ErrRoomNotFound)
	}
	ratings, err := s.repo.GetRoomRatings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load room ratings: %w", err)
	}
	room.Rating = ratings[room.ID]
	return room, nil
}

func (s *RoomService) CreateRoom(ctx context.Context, room *models.Room) error {
	if err := validateRoom(room); err != nil {
		return err
	}
	if err := s.repo.CreateRoom(ctx, room); err != nil {
		return storeError(err, booking.ErrRoomNotFound)
	}
	s.publishEvent(room.ID, "created")
	return nil
}

func (s *RoomService) UpdateRoom(ctx context.Context, room *models.Room) error {
	if err := validateRoom(room); err != nil {
		return err
	}
	if err := s.repo.UpdateRoom(ctx, room); err != nil {
		return storeError(err, booking.ErrRoomNotFound)
	}
	s.publishEvent(room.ID, "updated")
	return nil
}

func (s *RoomService) SetRoomStatus(ctx context.Context, id int64, status models.RoomStatus) error {
	if !status.Valid() {
		return booking.Validation(nil, "unknown room status %q", string(status))
	}
	if err := s.repo.SetRoomStatus(ctx, id, status); err != nil {
		return storeError(err, booking.ErrRoomNotFound)
	}
	s.publishEvent(id, "status")
	return nil
}

// DeleteRoom refuses while any booking references the room.
func (s *RoomService) DeleteRoom(ctx context.Context, id int64) error {
	if _, err := s.repo.GetRoom(ctx, id); err != nil {
		return storeError(err, booking.ErrRoomNotFound)
	}
	count, err := s.repo.CountRoomBookings(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return booking.Conflict(ErrRoomHasBookings, "room has %d bookings and cannot be deleted", count)
	}
	if err := s.repo.DeleteRoom(ctx, id); err != nil {
		return storeError(err, booking.ErrRoomNotFound)
	}
	s.publishEvent(id, "deleted")
	return nil
}

// GetCalendar returns days nights starting at from, each marked free or booked.
func (s *RoomService) GetCalendar(ctx context.Context, roomID int64, from time.Time, days int) ([]*models.NightAvailability, error) {
	if days <= 0 {
		days = models.DefaultCalendarDays
	}
	if days > maxCalendarDays {
		return nil, booking.Validation(nil, "calendar is limited to %d days", maxCalendarDays)
	}
	if _, err := s.repo.GetRoom(ctx, roomID); err != nil {
		return nil, storeError(err, booking.ErrRoomNotFound)
	}
	return s.repo.GetRoomCalendar(ctx, roomID, booking.NormalizeDate(from), days)
}

// SeedRooms upserts rooms by number.
func (s *RoomService) SeedRooms(ctx context.Context, rooms []*models.Room) (created, updated int, err error) {
	for _, room := range rooms {
		if err := validateRoom(room); err != nil {
			return created, updated, fmt.Errorf("room %q: %w", room.Number, err)
		}
		isNew, err := s.repo.UpsertRoomByNumber(ctx, room)
		if err != nil {
			return created, updated, fmt.Errorf("failed to seed room %q: %w", room.Number, err)
		}
		if isNew {
			created++
		} else {
			updated++
		}
	}
	if created+updated > 0 {
		s.publishEvent(0, "seeded")
	}
	return created, updated, nil
}

func validateRoom(room *models.Room) error {
	room.Number = strings.TrimSpace(room.Number)
	room.Name = strings.TrimSpace(room.Name)
	room.Type = strings.TrimSpace(strings.ToLower(room.Type))

	switch {
	case room.Number == "":
		return booking.Validation(nil, "room number is required")
	case room.Name == "":
		return booking.Validation(nil, "room name is required")
	case room.Type == "":
		return booking.Validation(nil, "room type is required")
	case room.Price <= 0:
		return booking.Validation(nil, "room price must be positive")
	case room.Capacity <= 0:
		return booking.Validation(nil, "room capacity must be positive")
	case room.Status != "" && !room.Status.Valid():
		return booking.Validation(nil, "unknown room status %q", string(room.Status))
	}
	return nil
}

func (s *RoomService) publishEvent(id int64, action string) {
	if s.eventBus == nil {
		return
	}
	if err := s.eventBus.PublishJSON(events.EventRoomChanged, events.EntityEventPayload{ID: id, Action: action}); err != nil {
		s.logger.Error().Err(err).Int64("room_id", id).Msg("publish event error")
	}
}
