package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"hotelbooking/internal/auth"
	"hotelbooking/internal/config"
	"hotelbooking/internal/service"

	"github.com/rs/zerolog"
)

// SheetsSync schedules a full rewrite of the bookings sheet.
type SheetsSync interface {
	EnqueueFullSync(ctx context.Context) error
}

// Services is everything the HTTP API serves.
type Services struct {
	Bookings  *service.BookingService
	Rooms     *service.RoomService
	Users     *service.UserService
	Reviews   *service.ReviewService
	Dashboard *service.DashboardService
	// Sheets is nil when Google Sheets sync is disabled.
	Sheets SheetsSync
	Health func(ctx context.Context) error
}

// HTTPServer exposes the JSON API.
type HTTPServer struct {
	cfg     config.APIConfig
	svc     Services
	tokens  *auth.TokenManager
	limiter *rateLimiter
	server  *http.Server
	logger  *zerolog.Logger
}

func NewHTTPServer(cfg config.APIConfig, svc Services, tokens *auth.TokenManager, logger *zerolog.Logger) *HTTPServer {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	srv := &HTTPServer{
		cfg:     cfg,
		svc:     svc,
		tokens:  tokens,
		limiter: newRateLimiter(cfg.RateLimit),
		logger:  logger,
	}

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
	}
	return srv
}

// Handler builds the routed handler with the middleware chain.
func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()
	s.routes(mux)
	return requestID(s.logger, recoverer(accessLog(rateLimit(s.limiter, mux))))
}

func (s *HTTPServer) routes(mux *http.ServeMux) {
	user := func(h http.HandlerFunc) http.HandlerFunc { return authenticate(s.tokens, h) }
	admin := func(h http.HandlerFunc) http.HandlerFunc { return authenticate(s.tokens, requireAdmin(h)) }

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)

	mux.HandleFunc("GET /api/rooms", s.handleListRooms)
	mux.HandleFunc("GET /api/rooms/{id}", s.handleGetRoom)
	mux.HandleFunc("GET /api/rooms/{id}/availability", s.handleRoomAvailability)
	mux.HandleFunc("GET /api/rooms/{id}/calendar", s.handleRoomCalendar)
	mux.HandleFunc("GET /api/rooms/{id}/reviews", s.handleListReviews)
	mux.HandleFunc("POST /api/rooms/{id}/reviews", user(s.handleCreateReview))

	mux.HandleFunc("GET /api/users/me", user(s.handleMe))
	mux.HandleFunc("GET /api/users/me/bookings", user(s.handleMyBookings))

	mux.HandleFunc("POST /api/bookings", user(s.handleCreateBooking))
	mux.HandleFunc("GET /api/bookings/{id}", user(s.handleGetBooking))
	mux.HandleFunc("PATCH /api/bookings/{id}", user(s.handleUpdateBooking))
	mux.HandleFunc("POST /api/bookings/{id}/cancel", user(s.handleCancelBooking))

	mux.HandleFunc("GET /api/admin/dashboard", admin(s.handleDashboard))
	mux.HandleFunc("GET /api/admin/bookings", admin(s.handleAdminListBookings))
	mux.HandleFunc("GET /api/admin/bookings/export", admin(s.handleExportBookings))
	mux.HandleFunc("PATCH /api/admin/bookings/{id}", admin(s.handleAdminUpdateBooking))
	mux.HandleFunc("POST /api/admin/bookings/{id}/transition", admin(s.handleTransition))
	mux.HandleFunc("POST /api/admin/bookings/{id}/contacts", admin(s.handleAddContact))
	mux.HandleFunc("POST /api/admin/rooms", admin(s.handleCreateRoom))
	mux.HandleFunc("PUT /api/admin/rooms/{id}", admin(s.handleUpdateRoom))
	mux.HandleFunc("PATCH /api/admin/rooms/{id}/status", admin(s.handleSetRoomStatus))
	mux.HandleFunc("DELETE /api/admin/rooms/{id}", admin(s.handleDeleteRoom))
	mux.HandleFunc("GET /api/admin/users", admin(s.handleListUsers))
	mux.HandleFunc("PATCH /api/admin/users/{id}/role", admin(s.handleSetRole))
	mux.HandleFunc("DELETE /api/admin/reviews/{id}", admin(s.handleDeleteReview))
	mux.HandleFunc("POST /api/admin/sync/sheets", admin(s.handleSheetsSync))
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
