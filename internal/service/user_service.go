package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"hotelbooking/internal/auth"
	"hotelbooking/internal/booking"
	"hotelbooking/internal/database"
	"hotelbooking/internal/domain"
	"hotelbooking/internal/models"

	"github.com/rs/zerolog"
)

type RegisterRequest struct {
	Email    string
	Name     string
	Phone    string
	Password string
}

// Session is a successful login.
type Session struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

type UserService struct {
	repo   domain.UserRepository
	hasher *auth.PasswordHasher
	tokens *auth.TokenManager
	logger *zerolog.Logger
}

func NewUserService(repo domain.UserRepository, hasher *auth.PasswordHasher, tokens *auth.TokenManager, logger *zerolog.Logger) *UserService {
	return &UserService{
		repo:   repo,
		hasher: hasher,
		tokens: tokens,
		logger: logger,
	}
}

func (s *UserService) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	return s.createUser(ctx, req, models.RoleUser)
}

func (s *UserService) createUser(ctx context.Context, req RegisterRequest, role string) (*models.User, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, booking.Validation(nil, "name is required")
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, booking.Validation(err, "%s", err.Error())
	}

	user := &models.User{
		Email:        email,
		Name:         name,
		Phone:        strings.TrimSpace(req.Phone),
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, booking.Conflict(ErrEmailTaken, "")
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info().Int64("user_id", user.ID).Str("role", user.Role).Msg("User registered")
	return user, nil
}

// Login checks the password and issues an access token.
func (s *UserService) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.repo.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, database.ErrNotFound) {
		return nil, auth.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if err := s.hasher.Check(user.PasswordHash, password); err != nil {
		return nil, err
	}

	token, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

func (s *UserService) GetUser(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, storeError(err, booking.ErrUserNotFound)
	}
	return user, nil
}

func (s *UserService) ListUsers(ctx context.Context) ([]*models.User, error) {
	return s.repo.GetAllUsers(ctx)
}

func (s *UserService) SetRole(ctx context.Context, id int64, role string) error {
	if role != models.RoleUser && role != models.RoleAdmin {
		return booking.Validation(nil, "role must be %s or %s", models.RoleUser, models.RoleAdmin)
	}
	if err := s.repo.UpdateUserRole(ctx, id, role); err != nil {
		return storeError(err, booking.ErrUserNotFound)
	}
	s.logger.Info().Int64("user_id", id).Str("role", role).Msg("User role changed")
	return nil
}

// EnsureAdmin creates an admin account, or promotes an existing user with the
// same email and resets their password.
func (s *UserService) EnsureAdmin(ctx context.Context, req RegisterRequest) (*models.User, bool, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, false, err
	}

	existing, err := s.repo.GetUserByEmail(ctx, email)
	switch {
	case errors.Is(err, database.ErrNotFound):
		user, err := s.createUser(ctx, req, models.RoleAdmin)
		return user, true, err
	case err != nil:
		return nil, false, fmt.Errorf("failed to load user: %w", err)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, false, booking.Validation(err, "%s", err.Error())
	}
	if err := s.repo.UpdateUserPassword(ctx, existing.ID, hash); err != nil {
		return nil, false, err
	}
	if err := s.repo.UpdateUserRole(ctx, existing.ID, models.RoleAdmin); err != nil {
		return nil, false, err
	}
	existing.Role = models.RoleAdmin
	existing.PasswordHash = hash
	return existing, false, nil
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", booking.Validation(err, "invalid email %q", raw)
	}
	return email, nil
}
