package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/ec-storefront/internal/apperr"
	"github.com/example/ec-storefront/internal/auth"
	"github.com/google/uuid"
)

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

var (
	ErrUserNotFound       = apperr.New(apperr.NotFound, "user not found")
	ErrSessionNotFound    = apperr.New(apperr.Unauthorized, "session not found")
	ErrInvalidEmail       = apperr.New(apperr.InvalidArgument, "a valid email is required")
	ErrInvalidName        = apperr.New(apperr.InvalidArgument, "name is required")
	ErrWeakPassword       = apperr.New(apperr.InvalidArgument, "password must be between 8 and 72 bytes")
	ErrEmailTaken         = apperr.New(apperr.Conflict, "email already registered")
	ErrInvalidCredentials = apperr.New(apperr.Unauthorized, "invalid email or password")
	ErrUserDeactivated    = apperr.New(apperr.Forbidden, "user account is deactivated")
)

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Session ties a refresh token (stored hashed) to a user.
type Session struct {
	ID               string    `json:"id"`
	UserID           string    `json:"userId"`
	RefreshTokenHash string    `json:"-"`
	ExpiresAt        time.Time `json:"expiresAt"`
	CreatedAt        time.Time `json:"createdAt"`
	IPAddress        string    `json:"ipAddress"`
	UserAgent        string    `json:"userAgent"`
}

// Repository persists users and their refresh sessions. CreateUser returns
// ErrEmailTaken when the email is already registered.
type Repository interface {
	CreateUser(ctx context.Context, u *User) error
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	CreateSession(ctx context.Context, s *Session) error
	GetSession(ctx context.Context, id string) (*Session, error)
	DeleteSession(ctx context.Context, id string) error
	DeleteSessionsByUser(ctx context.Context, userID string) error
}

// Service handles user domain operations
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a new user service
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Register creates a new customer
func (s *Service) Register(ctx context.Context, email, password, name string) (*User, error) {
	return s.RegisterWithRole(ctx, email, password, name, RoleCustomer)
}

// RegisterWithRole creates a new user with a specific role
func (s *Service) RegisterWithRole(ctx context.Context, email, password, name, role string) (*User, error) {
	email = normalizeEmail(email)
	if !strings.Contains(email, "@") {
		return nil, ErrInvalidEmail
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}

	hash, err := auth.HashPassword(password)
	if errors.Is(err, auth.ErrPasswordTooShort) || errors.Is(err, auth.ErrPasswordTooLong) {
		return nil, ErrWeakPassword
	}
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	u := &User{
		ID:           uuid.New().String(),
		Email:        email,
		Username:     strings.SplitN(email, "@", 2)[0],
		Name:         name,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Authenticate checks credentials and returns the active user.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	u, err := s.repo.GetUserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !auth.CheckPassword(password, u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	if !u.IsActive {
		return nil, ErrUserDeactivated
	}
	return u, nil
}

func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	return s.repo.GetUser(ctx, id)
}

// EnsureAdmin creates the bootstrap admin account unless the email is already registered.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) (*User, bool, error) {
	existing, err := s.repo.GetUserByEmail(ctx, normalizeEmail(email))
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, false, err
	}
	u, err := s.RegisterWithRole(ctx, email, password, "Administrator", RoleAdmin)
	if err != nil {
		return nil, false, err
	}
	return u, true, nil
}

// StartSession records a refresh session for u.
func (s *Service) StartSession(ctx context.Context, u *User, refreshToken string, expiresAt time.Time, ip, userAgent string) (*Session, error) {
	sess := &Session{
		ID:               uuid.New().String(),
		UserID:           u.ID,
		RefreshTokenHash: auth.HashToken(refreshToken),
		ExpiresAt:        expiresAt,
		CreatedAt:        s.now().UTC(),
		IPAddress:        ip,
		UserAgent:        userAgent,
	}
	if err := s.repo.CreateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return sess, nil
}

// ResumeSession validates a refresh token against its stored session and
// consumes the session. The caller starts a new one.
func (s *Service) ResumeSession(ctx context.Context, sessionID, refreshToken string) (*User, error) {
	sess, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	_ = s.repo.DeleteSession(ctx, sessionID)

	if s.now().After(sess.ExpiresAt) || auth.HashToken(refreshToken) != sess.RefreshTokenHash {
		return nil, ErrSessionNotFound
	}

	u, err := s.repo.GetUser(ctx, sess.UserID)
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	if !u.IsActive {
		return nil, ErrUserDeactivated
	}
	return u, nil
}

// EndSessions removes every refresh session of userID.
func (s *Service) EndSessions(ctx context.Context, userID string) error {
	return s.repo.DeleteSessionsByUser(ctx, userID)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
