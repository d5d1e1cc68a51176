// Package auth implements credential sign-up and sign-in backed by
// database sessions, and the middleware that resolves the caller of a request.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"marquee/models"
	"marquee/repository"
)

// DefaultCost is the bcrypt cost used for new passwords
const DefaultCost = 12

var (
	// ErrMissingCredentials is returned when email or password is empty
	ErrMissingCredentials = errors.New("Email and password are required")
	// ErrInvalidEmail is returned when the email is not a valid address
	ErrInvalidEmail = errors.New("Invalid email address")
	// ErrEmailTaken is returned when signing up with an email that already has an account
	ErrEmailTaken = errors.New("User with this email already exists")
	// ErrInvalidCredentials is returned for any sign-in mismatch
	ErrInvalidCredentials = errors.New("Invalid credentials")
	// ErrNoSession is returned when a token does not resolve to a live session
	ErrNoSession = errors.New("no active session")
)

// UserStore persists user accounts
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// SessionStore persists login sessions
type SessionStore interface {
	Create(ctx context.Context, session *models.Session) error
	Get(ctx context.Context, token string) (*models.Session, error)
	Delete(ctx context.Context, token string) error
}

// Service signs users up and in
type Service struct {
	users    UserStore
	sessions SessionStore
	ttl      time.Duration
	cost     int
	now      func() time.Time
	validate *validator.Validate
}

// Option configures a Service
type Option func(*Service)

// WithCost overrides the bcrypt cost
func WithCost(cost int) Option {
	return func(s *Service) { s.cost = cost }
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates an auth service whose sessions live for ttl
func NewService(users UserStore, sessions SessionStore, ttl time.Duration, opts ...Option) *Service {
	s := &Service{
		users:    users,
		sessions: sessions,
		ttl:      ttl,
		cost:     DefaultCost,
		now:      time.Now,
		validate: validator.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SignUpInput is the body of a sign-up request
type SignUpInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// SignInInput is the body of a sign-in request
type SignInInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignUp creates a new account
func (s *Service) SignUp(ctx context.Context, in SignUpInput) (*models.User, error) {
	email := strings.TrimSpace(in.Email)
	if email == "" || in.Password == "" {
		return nil, ErrMissingCredentials
	}
	if err := s.validate.Var(email, "email"); err != nil {
		return nil, ErrInvalidEmail
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         strings.TrimSpace(in.Name),
		PasswordHash: string(hash),
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	log.Info("User signed up", "user_id", user.ID)
	return user, nil
}

// SignIn verifies credentials and opens a new session
func (s *Service) SignIn(ctx context.Context, in SignInInput) (*models.Session, *models.User, error) {
	email := strings.TrimSpace(in.Email)
	if email == "" || in.Password == "" {
		return nil, nil, ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if user.PasswordHash == "" {
		return nil, nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	now := s.now().UTC()
	session := &models.Session{
		Token:     uuid.NewString(),
		UserID:    user.ID,
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, nil, fmt.Errorf("failed to create session: %w", err)
	}

	log.Info("User signed in", "user_id", user.ID)
	return session, user, nil
}

// SignOut ends the session identified by token. Unknown tokens are ignored.
func (s *Service) SignOut(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.sessions.Delete(ctx, token); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Resolve returns the user owning a live session for token
func (s *Service) Resolve(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, ErrNoSession
	}

	session, err := s.sessions.Get(ctx, token)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if session.Expired(s.now()) {
		return nil, ErrNoSession
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return user, nil
}
