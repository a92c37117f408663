// Package auth provides email and anonymous sign-in backed by opaque session tokens.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/applyo/prospector/internal/apperr"
	"github.com/applyo/prospector/internal/persistence"
	"github.com/applyo/prospector/pkg/log"
)

const (
	MinPasswordLength = 8
	tokenBytes        = 32
)

// Store is the user and session side of persistence.
type Store interface {
	CreateUser(ctx context.Context, user *persistence.User) error
	GetUserByEmail(ctx context.Context, email string) (*persistence.User, error)
	CreateSession(ctx context.Context, session *persistence.Session) error
	GetSession(ctx context.Context, token string, now time.Time) (*persistence.Session, *persistence.User, error)
	DeleteSession(ctx context.Context, token string) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

// Client describes where a sign-in came from.
type Client struct {
	IPAddress string
	UserAgent string
}

type SignUp struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type Service struct {
	store      Store
	sessionTTL time.Duration
	bcryptCost int
	now        func() time.Time
}

type Option func(*Service)

// WithBcryptCost lowers the hashing cost, mainly for tests.
func WithBcryptCost(cost int) Option {
	return func(s *Service) { s.bcryptCost = cost }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store Store, sessionTTL time.Duration, opts ...Option) *Service {
	s := &Service{
		store:      store,
		sessionTTL: sessionTTL,
		bcryptCost: bcrypt.DefaultCost,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SignUpEmail creates an account and signs it in.
func (s *Service) SignUpEmail(ctx context.Context, req SignUp, client Client) (*persistence.Session, *persistence.User, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, nil, err
	}
	if len(req.Password) < MinPasswordLength {
		return nil, nil, apperr.Newf(apperr.ErrInvalidInput, "password must be at least %d characters", MinPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, nil, fmt.Errorf("hash password: %w", err)
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}
	now := s.now()
	user := &persistence.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, persistence.ErrDuplicate) {
			return nil, nil, apperr.New(apperr.ErrConflict, "email already registered")
		}
		return nil, nil, fmt.Errorf("create user: %w", err)
	}

	log.Info("Auth: user %s signed up", user.ID)
	return s.startSession(ctx, user, client)
}

// SignInEmail checks the password and opens a new session.
func (s *Service) SignInEmail(ctx context.Context, email, password string, client Client) (*persistence.Session, *persistence.User, error) {
	invalid := apperr.New(apperr.ErrUnauthorized, "invalid email or password")

	user, err := s.store.GetUserByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, persistence.ErrNotFound) {
		return nil, nil, invalid
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load user: %w", err)
	}
	if user.PasswordHash == "" {
		return nil, nil, invalid
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, nil, invalid
	}
	return s.startSession(ctx, user, client)
}

// SignInAnonymous creates a passwordless user and signs it in.
func (s *Service) SignInAnonymous(ctx context.Context, client Client) (*persistence.Session, *persistence.User, error) {
	now := s.now()
	id := uuid.NewString()
	user := &persistence.User{
		ID:          id,
		Name:        "anon-" + id[len(id)-8:],
		IsAnonymous: true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, nil, fmt.Errorf("create anonymous user: %w", err)
	}
	return s.startSession(ctx, user, client)
}

// SignOut drops the session. Unknown tokens are not an error.
func (s *Service) SignOut(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.store.DeleteSession(ctx, token)
}

// Authenticate resolves a token to its live session and user.
func (s *Service) Authenticate(ctx context.Context, token string) (*persistence.Session, *persistence.User, error) {
	if token == "" {
		return nil, nil, apperr.New(apperr.ErrUnauthorized, "authentication required")
	}
	sess, user, err := s.store.GetSession(ctx, token, s.now())
	if errors.Is(err, persistence.ErrNotFound) {
		return nil, nil, apperr.New(apperr.ErrUnauthorized, "session expired or invalid")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load session: %w", err)
	}
	return sess, user, nil
}

// PurgeExpired deletes every session past its expiry.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.store.DeleteExpiredSessions(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	if n > 0 {
		log.Info("Auth: purged %d expired sessions", n)
	}
	return n, nil
}

func (s *Service) startSession(ctx context.Context, user *persistence.User, client Client) (*persistence.Session, *persistence.User, error) {
	token, err := newToken()
	if err != nil {
		return nil, nil, err
	}
	now := s.now()
	sess := &persistence.Session{
		Token:     token,
		UserID:    user.ID,
		ExpiresAt: now.Add(s.sessionTTL),
		CreatedAt: now,
		IPAddress: client.IPAddress,
		UserAgent: client.UserAgent,
	}
	if err := s.store.CreateSession(ctx, sess); err != nil {
		return nil, nil, fmt.Errorf("create session: %w", err)
	}
	return sess, user, nil
}

func newToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func normalizeEmail(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	addr, err := mail.ParseAddress(raw)
	if err != nil || addr.Address != raw {
		return "", apperr.New(apperr.ErrInvalidInput, "a valid email is required")
	}
	return strings.ToLower(addr.Address), nil
}
