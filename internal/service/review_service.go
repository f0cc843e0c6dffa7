package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"hotelbooking/internal/booking"
	"hotelbooking/internal/database"
	"hotelbooking/internal/domain"
	"hotelbooking/internal/events"
	"hotelbooking/internal/models"

	"github.com/rs/zerolog"
)

type ReviewService struct {
	bookings domain.BookingRepository
	rooms    domain.RoomRepository
	reviews  domain.ReviewRepository
	eventBus domain.EventPublisher
	logger   *zerolog.Logger
}

func NewReviewService(repo domain.Repository, eventBus domain.EventPublisher, logger *zerolog.Logger) *ReviewService {
	return &ReviewService{
		bookings: repo,
		rooms:    repo,
		reviews:  repo,
		eventBus: eventBus,
		logger:   logger,
	}
}

// CreateReview requires a checked-out stay in the room; one review per guest and room.
func (s *ReviewService) CreateReview(ctx context.Context, userID, roomID int64, rating int, comment string) (*models.Review, error) {
	if rating < 1 || rating > 5 {
		return nil, booking.Validation(nil, "rating must be between 1 and 5")
	}
	if _, err := s.rooms.GetRoom(ctx, roomID); err != nil {
		return nil, storeError(err, booking.ErrRoomNotFound)
	}

	stayed, err := s.bookings.HasCompletedStay(ctx, userID, roomID)
	if err != nil {
		return nil, err
	}
	if !stayed {
		return nil, booking.Forbidden(ErrStayRequired, "")
	}

	review := &models.Review{
		UserID:  userID,
		RoomID:  roomID,
		Rating:  rating,
		Comment: strings.TrimSpace(comment),
	}
	if err := s.reviews.CreateReview(ctx, review); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, booking.Conflict(ErrReviewExists, "")
		}
		return nil, fmt.Errorf("failed to create review: %w", err)
	}

	s.publishEvent(review.ID, "created")
	return review, nil
}

func (s *ReviewService) ListRoomReviews(ctx context.Context, roomID int64) ([]*models.Review, error) {
	if _, err := s.rooms.GetRoom(ctx, roomID); err != nil {
		return nil, storeError(err, booking.ErrRoomNotFound)
	}
	reviews, err := s.reviews.ListRoomReviews(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if reviews == nil {
		reviews = []*models.Review{}
	}
	return reviews, nil
}

func (s *ReviewService) DeleteReview(ctx context.Context, id int64) error {
	if err := s.reviews.DeleteReview(ctx, id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return booking.NotFound(nil, "review not found")
		}
		return err
	}
	s.publishEvent(id, "deleted")
	return nil
}

func (s *ReviewService) publishEvent(id int64, action string) {
	if s.eventBus == nil {
		return
	}
	if err := s.eventBus.PublishJSON(events.EventReviewChanged, events.EntityEventPayload{ID: id, Action: action}); err != nil {
		s.logger.Error().Err(err).Int64("review_id", id).Msg("publish event error")
	}
}
