package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"example.com/naborly/internal/logger"
	"example.com/naborly/internal/models"
	"example.com/naborly/internal/store"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var logg = logger.New()

var (
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrSessionNotFound    = errors.New("auth: session not found")
	ErrSessionExpired     = errors.New("auth: session expired")
)

var (
	usernameRegex = regexp.MustCompile(`^[\p{L}0-9_.]{3,20}$`) // letters, numbers, underscore, dot
	passwordRegex = regexp.MustCompile(`^.{1,72}$`)            // non-empty; 72 is the bcrypt input cap
)

const defaultAvatar = "👤"

// Service validates credentials and owns the session registry. Sessions
// live in memory only: a token is valid until logout, expiry, or
// process exit. Validation is a local map lookup, never I/O.
type Service struct {
	store store.StoreInterface
	ttl   time.Duration
	cost  int

	mu       sync.Mutex
	sessions map[string]models.Session

	// dummyHash keeps the bcrypt cost identical whether or not the
	// username exists, so login timing does not leak membership.
	dummyHash []byte
}

func New(st store.StoreInterface, ttl time.Duration, cost int) *Service {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	dummy, _ := bcrypt.GenerateFromPassword([]byte("naborly-dummy-password"), cost)
	return &Service{
		store:     st,
		ttl:       ttl,
		cost:      cost,
		sessions:  make(map[string]models.Session),
		dummyHash: dummy,
	}
}

// ValidateCredentials checks the registration input shape.
func ValidateCredentials(username, displayName, password string) error {
	if !usernameRegex.MatchString(username) {
		return fmt.Errorf("%w: username must be 3-20 characters (letters, numbers, underscore, dot)", models.ErrValidation)
	}
	if name := strings.TrimSpace(displayName); name == "" || len(name) > 50 {
		return fmt.Errorf("%w: display name must be 1-50 characters", models.ErrValidation)
	}
	if !passwordRegex.MatchString(password) {
		return fmt.Errorf("%w: password must be 1-72 characters", models.ErrValidation)
	}
	return nil
}

// Register creates a new user and returns its id. The raw password is
// hashed before it reaches the store and never kept anywhere.
func (s *Service) Register(ctx context.Context, username, displayName, password string) (string, error) {
	if err := ValidateCredentials(username, displayName, password); err != nil {
		return "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", fmt.Errorf("auth: failed to hash password: %w", err)
	}

	user := models.User{
		ID:           uuid.NewString(),
		Username:     username,
		Name:         strings.TrimSpace(displayName),
		Avatar:       defaultAvatar,
		PasswordHash: string(hash),
	}

	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicateUsername) {
			return "", err
		}
		logg.Error("auth", "Failed to create user", err)
		return "", fmt.Errorf("auth: create user: %w", err)
	}

	logg.Info("auth", "User registered (username anonymized)")
	return user.ID, nil
}

// Authenticate verifies the password and opens a fresh session. Unknown
// usernames and wrong passwords return the same error.
func (s *Service) Authenticate(ctx context.Context, username, password string) (string, error) {
	user, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Burn the same bcrypt work as a real comparison.
			_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
			return "", ErrInvalidCredentials
		}
		logg.Error("auth", "Failed to look up user for login", err)
		return "", fmt.Errorf("auth: query user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	session := models.Session{
		Token:   uuid.NewString(),
		UserID:  user.ID,
		Expires: time.Now().Add(s.ttl),
	}

	s.mu.Lock()
	s.sessions[session.Token] = session
	s.mu.Unlock()

	logg.Info("auth", "Session opened for user_id="+user.ID)
	return session.Token, nil
}

// ValidateSession resolves a token to a user id. Expired sessions are
// removed on detection.
func (s *Service) ValidateSession(token string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[token]
	if !ok {
		return "", ErrSessionNotFound
	}
	if time.Now().After(session.Expires) {
		delete(s.sessions, token)
		return "", ErrSessionExpired
	}
	return session.UserID, nil
}

// Logout invalidates the session immediately. Unknown tokens are a
// no-op, which makes logout idempotent.
func (s *Service) Logout(token string) {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
}

// Profile returns a user with counters derived from follow edges.
func (s *Service) Profile(ctx context.Context, username string) (models.Profile, error) {
	user, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		return models.Profile{}, err
	}
	followers, following, err := s.store.FollowCounts(ctx, user.ID)
	if err != nil {
		return models.Profile{}, err
	}
	user.PasswordHash = ""
	return models.Profile{User: user, Followers: followers, Following: following}, nil
}
