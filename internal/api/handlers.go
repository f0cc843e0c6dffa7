package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"hotelbooking/internal/booking"
	"hotelbooking/internal/export"
	"hotelbooking/internal/models"
	"hotelbooking/internal/service"
)

const maxBodyBytes = 1 << 20

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.svc.Health != nil {
		if err := s.svc.Health(r.Context()); err != nil {
			writeMessage(w, http.StatusServiceUnavailable, "unavailable", err.Error())
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// Auth

type registerRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

func (s *HTTPServer) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user, err := s.svc.Users.Register(r.Context(), service.RegisterRequest{
		Email:    req.Email,
		Name:     req.Name,
		Phone:    req.Phone,
		Password: req.Password,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *HTTPServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	session, err := s.svc.Users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// Rooms

func (s *HTTPServer) handleListRooms(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := service.RoomQuery{
		RoomFilter: models.RoomFilter{
			Type:   strings.TrimSpace(q.Get("type")),
			Status: models.RoomStatus(strings.TrimSpace(q.Get("status"))),
		},
	}

	var err error
	if query.MinCapacity, err = queryInt(q.Get("min_capacity")); err != nil {
		badRequest(w, "invalid min_capacity")
		return
	}
	if raw := q.Get("max_price"); raw != "" {
		if query.MaxPrice, err = strconv.ParseFloat(raw, 64); err != nil || query.MaxPrice < 0 {
			badRequest(w, "invalid max_price")
			return
		}
	}
	if query.CheckIn, err = queryDate(q.Get("check_in")); err != nil {
		badRequest(w, "invalid check_in")
		return
	}
	if query.CheckOut, err = queryDate(q.Get("check_out")); err != nil {
		badRequest(w, "invalid check_out")
		return
	}

	rooms, err := s.svc.Rooms.ListRooms(r.Context(), query)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rooms": rooms})
}

func (s *HTTPServer) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	room, err := s.svc.Rooms.GetRoom(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

type availabilityResponse struct {
	RoomID      int64   `json:"room_id"`
	CheckIn     string  `json:"check_in"`
	CheckOut    string  `json:"check_out"`
	Nights      int     `json:"nights"`
	Available   bool    `json:"available"`
	TotalAmount float64 `json:"total_amount"`
}

func (s *HTTPServer) handleRoomAvailability(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	checkIn, err := booking.ParseDate(q.Get("check_in"))
	if err != nil {
		badRequest(w, "check_in is required (YYYY-MM-DD)")
		return
	}
	checkOut, err := booking.ParseDate(q.Get("check_out"))
	if err != nil {
		badRequest(w, "check_out is required (YYYY-MM-DD)")
		return
	}
	exclude, err := queryInt64(q.Get("exclude_booking_id"))
	if err != nil {
		badRequest(w, "invalid exclude_booking_id")
		return
	}

	available, err := s.svc.Bookings.IsAvailable(r.Context(), id, checkIn, checkOut, exclude)
	if err != nil {
		writeError(w, r, err)
		return
	}
	room, err := s.svc.Rooms.GetRoom(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	stay := booking.NewStay(checkIn, checkOut)
	writeJSON(w, http.StatusOK, availabilityResponse{
		RoomID:      id,
		CheckIn:     stay.CheckIn.Format(models.DateLayout),
		CheckOut:    stay.CheckOut.Format(models.DateLayout),
		Nights:      stay.Nights(),
		Available:   available,
		TotalAmount: booking.TotalAmount(stay, room.Price),
	})
}

func (s *HTTPServer) handleRoomCalendar(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	from := time.Now()
	if raw := q.Get("from"); raw != "" {
		parsed, err := booking.ParseDate(raw)
		if err != nil {
			badRequest(w, "invalid from date")
			return
		}
		from = parsed
	}
	days, err := queryInt(q.Get("days"))
	if err != nil {
		badRequest(w, "invalid days")
		return
	}

	nights, err := s.svc.Rooms.GetCalendar(r.Context(), id, from, days)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"room_id": id, "nights": nights})
}

// Reviews

func (s *HTTPServer) handleListReviews(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	reviews, err := s.svc.Reviews.ListRoomReviews(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reviews": reviews})
}

type reviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

func (s *HTTPServer) handleCreateReview(w http.ResponseWriter, r *http.Request) {
	roomID, ok := pathID(w, r)
	if !ok {
		return
	}
	var req reviewRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	review, err := s.svc.Reviews.CreateReview(r.Context(), actorFrom(r).UserID, roomID, req.Rating, req.Comment)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, review)
}

func (s *HTTPServer) handleDeleteReview(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.svc.Reviews.DeleteReview(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Users

func (s *HTTPServer) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := s.svc.Users.GetUser(r.Context(), actorFrom(r).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *HTTPServer) handleMyBookings(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.Bookings.GetUserBookings(r.Context(), actorFrom(r).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": list})
}

func (s *HTTPServer) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.svc.Users.ListUsers(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

type roleRequest struct {
	Role string `json:"role"`
}

func (s *HTTPServer) handleSetRole(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req roleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.svc.Users.SetRole(r.Context(), id, req.Role); err != nil {
		writeError(w, r, err)
		return
	}
	user, err := s.svc.Users.GetUser(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// Bookings

type createBookingRequest struct {
	RoomID          int64  `json:"room_id"`
	CheckIn         string `json:"check_in"`
	CheckOut        string `json:"check_out"`
	Guests          int    `json:"guests"`
	SpecialRequests string `json:"special_requests"`
}

func (s *HTTPServer) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	var req createBookingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	checkIn, err := booking.ParseDate(req.CheckIn)
	if err != nil {
		badRequest(w, "invalid check_in")
		return
	}
	checkOut, err := booking.ParseDate(req.CheckOut)
	if err != nil {
		badRequest(w, "invalid check_out")
		return
	}

	details, err := s.svc.Bookings.CreateBooking(r.Context(), service.CreateBookingRequest{
		UserID:          actorFrom(r).UserID,
		RoomID:          req.RoomID,
		CheckIn:         checkIn,
		CheckOut:        checkOut,
		Guests:          req.Guests,
		SpecialRequests: req.SpecialRequests,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, details)
}

func (s *HTTPServer) handleGetBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	details, err := s.svc.Bookings.GetBooking(r.Context(), id, actorFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

type updateBookingRequest struct {
	RoomID          *int64  `json:"room_id"`
	CheckIn         *string `json:"check_in"`
	CheckOut        *string `json:"check_out"`
	Guests          *int    `json:"guests"`
	SpecialRequests *string `json:"special_requests"`
}

type adminUpdateBookingRequest struct {
	updateBookingRequest
	AdminNotes *string `json:"admin_notes"`
}

func (s *HTTPServer) handleUpdateBooking(w http.ResponseWriter, r *http.Request) {
	var req updateBookingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s.updateBooking(w, r, req, nil)
}

func (s *HTTPServer) handleAdminUpdateBooking(w http.ResponseWriter, r *http.Request) {
	var req adminUpdateBookingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s.updateBooking(w, r, req.updateBookingRequest, req.AdminNotes)
}

func (s *HTTPServer) updateBooking(w http.ResponseWriter, r *http.Request, req updateBookingRequest, adminNotes *string) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	upd := service.UpdateBookingRequest{
		RoomID:          req.RoomID,
		Guests:          req.Guests,
		SpecialRequests: req.SpecialRequests,
		AdminNotes:      adminNotes,
	}
	var err error
	if upd.CheckIn, err = optionalDate(req.CheckIn); err != nil {
		badRequest(w, "invalid check_in")
		return
	}
	if upd.CheckOut, err = optionalDate(req.CheckOut); err != nil {
		badRequest(w, "invalid check_out")
		return
	}

	details, err := s.svc.Bookings.UpdateBooking(r.Context(), id, actorFrom(r), upd)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

func (s *HTTPServer) handleCancelBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	details, err := s.svc.Bookings.CancelOwnBooking(r.Context(), actorFrom(r).UserID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

type transitionRequest struct {
	Status       string `json:"status"`
	DeniedReason string `json:"denied_reason"`
	AdminNotes   string `json:"admin_notes"`
}

func (s *HTTPServer) handleTransition(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req transitionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	target, err := booking.ParseStatus(req.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}

	details, err := s.svc.Bookings.Transition(r.Context(), id, target, booking.TransitionContext{
		ActorID:      actorFrom(r).UserID,
		DeniedReason: req.DeniedReason,
		AdminNotes:   req.AdminNotes,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

type contactRequest struct {
	Method string `json:"method"`
	Note   string `json:"note"`
}

func (s *HTTPServer) handleAddContact(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req contactRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	details, err := s.svc.Bookings.AddContact(r.Context(), id, actorFrom(r).UserID, req.Method, req.Note)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, details)
}

func (s *HTTPServer) handleAdminListBookings(w http.ResponseWriter, r *http.Request) {
	filter, ok := bookingFilter(w, r)
	if !ok {
		return
	}
	list, err := s.svc.Bookings.ListBookings(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": list, "limit": filter.Limit, "offset": filter.Offset})
}

func (s *HTTPServer) handleExportBookings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, err := queryDate(q.Get("from"))
	if err != nil {
		badRequest(w, "invalid from")
		return
	}
	to, err := queryDate(q.Get("to"))
	if err != nil {
		badRequest(w, "invalid to")
		return
	}

	list, err := s.svc.Bookings.ExportBookings(r.Context(), from, to)
	if err != nil {
		writeError(w, r, err)
		return
	}

	report := export.Report{From: from, To: to, Bookings: list}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName(report, time.Now())))
	if err := export.Write(w, report); err != nil {
		s.logger.Error().Err(err).Msg("Failed to write bookings export")
	}
}

func (s *HTTPServer) handleDashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.Dashboard.Stats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *HTTPServer) handleSheetsSync(w http.ResponseWriter, r *http.Request) {
	if s.svc.Sheets == nil {
		writeMessage(w, http.StatusServiceUnavailable, "unavailable", "google sheets sync is disabled")
		return
	}
	if err := s.svc.Sheets.EnqueueFullSync(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

// Admin rooms

type roomRequest struct {
	Number      string   `json:"number"`
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Description string   `json:"description"`
	Price       float64  `json:"price"`
	Capacity    int      `json:"capacity"`
	Status      string   `json:"status"`
	Amenities   []string `json:"amenities"`
	Images      []string `json:"images"`
}

func (req roomRequest) room(id int64) *models.Room {
	return &models.Room{
		ID:          id,
		Number:      req.Number,
		Name:        req.Name,
		Type:        req.Type,
		Description: req.Description,
		Price:       req.Price,
		Capacity:    req.Capacity,
		Status:      models.RoomStatus(req.Status),
		Amenities:   req.Amenities,
		Images:      req.Images,
	}
}

func (s *HTTPServer) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req roomRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	room := req.room(0)
	if err := s.svc.Rooms.CreateRoom(r.Context(), room); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, room)
}

func (s *HTTPServer) handleUpdateRoom(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req roomRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	room := req.room(id)
	if err := s.svc.Rooms.UpdateRoom(r.Context(), room); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

type roomStatusRequest struct {
	Status string `json:"status"`
}

func (s *HTTPServer) handleSetRoomStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req roomStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.svc.Rooms.SetRoomStatus(r.Context(), id, models.RoomStatus(req.Status)); err != nil {
		writeError(w, r, err)
		return
	}
	room, err := s.svc.Rooms.GetRoom(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

func (s *HTTPServer) handleDeleteRoom(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := s.svc.Rooms.DeleteRoom(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// helpers

func actorFrom(r *http.Request) service.Actor {
	claims := claimsFrom(r.Context())
	if claims == nil {
		return service.Actor{}
	}
	id, _ := claims.UserID()
	return service.Actor{UserID: id, Admin: claims.IsAdmin()}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			writeMessage(w, http.StatusRequestEntityTooLarge, string(booking.KindValidation), "request body too large")
		case errors.Is(err, io.EOF):
			badRequest(w, "request body is empty")
		default:
			badRequest(w, "invalid JSON body: "+err.Error())
		}
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(w, "invalid id")
		return 0, false
	}
	return id, true
}

func bookingFilter(w http.ResponseWriter, r *http.Request) (models.BookingFilter, bool) {
	q := r.URL.Query()
	filter := models.BookingFilter{Status: models.BookingStatus(strings.TrimSpace(q.Get("status")))}

	var err error
	fields := []struct {
		name string
		dst  *int64
	}{
		{"room_id", &filter.RoomID},
		{"user_id", &filter.UserID},
	}
	for _, f := range fields {
		if *f.dst, err = queryInt64(q.Get(f.name)); err != nil {
			badRequest(w, "invalid "+f.name)
			return filter, false
		}
	}
	if filter.From, err = queryDate(q.Get("from")); err != nil {
		badRequest(w, "invalid from")
		return filter, false
	}
	if filter.To, err = queryDate(q.Get("to")); err != nil {
		badRequest(w, "invalid to")
		return filter, false
	}
	if filter.Limit, err = queryInt(q.Get("limit")); err != nil {
		badRequest(w, "invalid limit")
		return filter, false
	}
	if filter.Offset, err = queryInt(q.Get("offset")); err != nil {
		badRequest(w, "invalid offset")
		return filter, false
	}
	if filter.Limit <= 0 {
		filter.Limit = models.DefaultPageSize
	}
	if filter.Limit > models.MaxPageSize {
		filter.Limit = models.MaxPageSize
	}
	return filter, true
}

func queryDate(raw string) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return time.Time{}, nil
	}
	return booking.ParseDate(strings.TrimSpace(raw))
}

func optionalDate(raw *string) (*time.Time, error) {
	if raw == nil {
		return nil, nil
	}
	t, err := booking.ParseDate(strings.TrimSpace(*raw))
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func queryInt(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid number %q", raw)
	}
	return v, nil
}

func queryInt64(raw string) (int64, error) {
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid number %q", raw)
	}
	return v, nil
}
