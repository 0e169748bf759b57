// Package session holds the authenticated identity of the running client:
// the bearer token, the user profile it belongs to and whether the backend
// has confirmed it.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/taskkeeper/internal/client/client"
	"github.com/dmitrijs2005/taskkeeper/internal/client/models"
	"github.com/dmitrijs2005/taskkeeper/internal/logging"
)

// ErrSuperseded is returned by Login when the session changed (logout or
// another login) while the request was in flight.
var ErrSuperseded = errors.New("session changed during login")

// API is the subset of the backend client the store needs.
type API interface {
	Login(ctx context.Context, username, password string) (string, error)
	Signup(ctx context.Context, req models.SignupRequest) (*models.User, error)
	TestToken(ctx context.Context) (*models.User, error)
}

type Store struct {
	api     API
	storage Storage
	log     logging.Logger
	now     func() time.Time

	mu    sync.Mutex
	token string
	user  *models.User
	state State
	// epoch advances on every applied change; in-flight work compares it
	// before writing back.
	epoch uint64
}

type Option func(*Store)

func WithLogger(l logging.Logger) Option {
	return func(s *Store) { s.log = l }
}

// WithClock overrides the time source used for JWT expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func NewStore(api API, storage Storage, opts ...Option) *Store {
	s := &Store{
		api:     api,
		storage: storage,
		log:     logging.Discard(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("component", "session")
	return s
}

// Init seeds the session from storage. The loaded values are unverified
// until CheckAuth succeeds.
func (s *Store) Init(ctx context.Context) error {
	token, user, err := s.storage.Load(ctx)
	if err != nil {
		s.log.Warn(ctx, "stored session unreadable, discarding", "error", err)
		if cerr := s.storage.Clear(ctx); cerr != nil {
			return fmt.Errorf("clear session storage: %w", cerr)
		}
		token, user = "", nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
	s.token, s.user = token, user
	if token == "" {
		s.state = Unauthenticated
	} else {
		s.state = PendingValidation
		s.log.Debug(ctx, "restored session", "token", logging.MaskToken(token))
	}
	return nil
}

// Login obtains a token for identifier (email or username), fetches the
// profile with it and persists both. On failure the session is unchanged.
func (s *Store) Login(ctx context.Context, identifier string, password []byte) error {
	s.mu.Lock()
	epoch := s.epoch
	s.mu.Unlock()

	token, err := s.api.Login(ctx, identifier, string(password))
	if err != nil {
		s.log.Info(ctx, "login failed", "user", identifier, "error", err)
		return err
	}

	user, err := s.api.TestToken(client.WithAccessToken(ctx, token))
	if err != nil {
		s.log.Warn(ctx, "profile fetch after login failed", "error", err)
		return fmt.Errorf("fetch profile: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return ErrSuperseded
	}
	if err := s.storage.Save(ctx, token, user); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	s.epoch++
	s.token, s.user, s.state = token, user, Authenticated
	s.log.Info(ctx, "logged in", "user", user.Username)
	return nil
}

// Signup registers an account and logs into it. Backend rejections keep
// their detail message (client.Detail).
func (s *Store) Signup(ctx context.Context, email, username string, password []byte) error {
	_, err := s.api.Signup(ctx, models.SignupRequest{
		Email:    email,
		Username: username,
		Password: string(password),
	})
	if err != nil {
		s.log.Info(ctx, "signup failed", "email", email, "error", err)
		return err
	}
	return s.Login(ctx, email, password)
}

// Logout drops the session. The in-memory state is always cleared; a
// storage error is still reported.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked(Unauthenticated)
	if err := s.storage.Clear(ctx); err != nil {
		return fmt.Errorf("clear session storage: %w", err)
	}
	return nil
}

// CheckAuth validates the held token against the backend. It returns false
// without network I/O when there is no token, and clears the session when
// validation fails. A check abandoned because ctx ended returns false and
// leaves the session as it was.
func (s *Store) CheckAuth(ctx context.Context) bool {
	s.mu.Lock()
	if s.token == "" {
		s.restoreLocked(ctx)
	}
	token, epoch, prev := s.token, s.epoch, s.state
	if token == "" {
		s.mu.Unlock()
		return false
	}
	if s.state != Authenticated {
		s.state = PendingValidation
	}
	if tokenExpired(token, s.now()) {
		s.log.Info(ctx, "token expired locally")
		s.invalidateLocked(ctx)
		s.mu.Unlock()
		return false
	}
	s.mu.Unlock()

	user, err := s.api.TestToken(client.WithAccessToken(ctx, token))

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch || s.token != token {
		s.log.Debug(ctx, "discarding stale validation result")
		return s.state == Authenticated
	}
	if err != nil && ctx.Err() != nil {
		s.log.Debug(ctx, "validation abandoned", "error", err)
		s.state = prev
		return false
	}
	if err != nil {
		s.log.Info(ctx, "token validation failed", "error", err)
		s.invalidateLocked(ctx)
		return false
	}
	if err := s.storage.Save(ctx, token, user); err != nil {
		s.log.Warn(ctx, "persist refreshed profile", "error", err)
	}
	s.epoch++
	s.user, s.state = user, Authenticated
	return true
}

// HandleUnauthorized reacts to a backend 401 for the token carried in ctx.
// It reports whether the current session was cleared. A rejection of a
// token that is no longer held, or of a call that carried none, is ignored.
func (s *Store) HandleUnauthorized(ctx context.Context) bool {
	rejected := client.AccessTokenFrom(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if rejected == "" || rejected != s.token {
		return false
	}
	s.invalidateLocked(ctx)
	return true
}

func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// User returns the confirmed profile, or nil before a successful login or
// validation.
func (s *Store) User() *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Authenticated || s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Store) IsAuthenticated() bool {
	return s.State() == Authenticated
}

func (s *Store) restoreLocked(ctx context.Context) {
	token, user, err := s.storage.Load(ctx)
	if err != nil {
		s.log.Warn(ctx, "load stored session", "error", err)
		return
	}
	if token == "" {
		return
	}
	s.epoch++
	s.token, s.user, s.state = token, user, PendingValidation
}

func (s *Store) invalidateLocked(ctx context.Context) {
	s.clearLocked(Invalid)
	if err := s.storage.Clear(ctx); err != nil {
		s.log.Warn(ctx, "clear session storage", "error", err)
	}
}

func (s *Store) clearLocked(state State) {
	s.epoch++
	s.token, s.user, s.state = "", nil, state
}
