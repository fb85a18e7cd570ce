// Package auth implements registration and login on top of the credential
// store. Passwords are hashed with bcrypt (salted, cost-configurable) and
// verified with bcrypt's constant-time comparison, so authentication does
// not reveal whether a username exists.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"waterqual/internal/store"
)

const minPasswordLen = 6

var (
	// ErrAuthFailure covers both unknown usernames and wrong passwords;
	// callers must not be able to tell the two apart.
	ErrAuthFailure = errors.New("invalid username or password")

	ErrWeakPassword = fmt.Errorf("password must be at least %d characters", minPasswordLen)
	ErrEmptyField   = errors.New("username and email must be non-empty")
)

// Service handles credential operations. The admin identity is a fixed
// credential pair held outside the user table; it mirrors the legacy
// deployment and is deliberately not a stored role flag.
type Service struct {
	store      *store.Store
	bcryptCost int
	adminUser  string
	adminPass  string
}

func NewService(s *store.Store, bcryptCost int, adminUser, adminPass string) *Service {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{store: s, bcryptCost: bcryptCost, adminUser: adminUser, adminPass: adminPass}
}

// Register creates a new user. Fails with store.ErrDuplicateUsername or
// store.ErrDuplicateEmail when either identity is taken. The returned User
// carries no password hash.
func (svc *Service) Register(username, email, password string) (store.User, error) {
	if username == "" || email == "" {
		return store.User{}, ErrEmptyField
	}
	if len(password) < minPasswordLen {
		return store.User{}, ErrWeakPassword
	}
	if username == svc.adminUser {
		// The reserved admin identity can never be claimed as a user.
		return store.User{}, store.ErrDuplicateUsername
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), svc.bcryptCost)
	if err != nil {
		return store.User{}, fmt.Errorf("hash password: %w", err)
	}

	u := store.User{
		UserID:           uuid.NewString(),
		Username:         username,
		Email:            email,
		PasswordHash:     string(hash),
		RegistrationDate: time.Now().UTC(),
	}
	if err := svc.store.CreateUser(u); err != nil {
		return store.User{}, err
	}

	log.Info().Str("username", username).Str("user_id", u.UserID).Msg("user registered")

	u.PasswordHash = ""
	return u, nil
}

// Authenticate returns the matching user when the password is correct and
// ErrAuthFailure otherwise. A bcrypt comparison runs even when the username
// is unknown, to keep the two failure paths indistinguishable by timing.
func (svc *Service) Authenticate(username, password string) (store.User, error) {
	u, found, err := svc.store.UserByName(username)
	if err != nil {
		log.Error().Err(err).Msg("credential lookup failed")
		return store.User{}, ErrAuthFailure
	}
	if !found {
		// Burn a comparison against a dummy hash.
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return store.User{}, ErrAuthFailure
	}

	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return store.User{}, ErrAuthFailure
	}

	u.PasswordHash = ""
	return u, nil
}

// IsAdmin reports whether the supplied credentials are the reserved admin
// pair. Admin is never a stored user record.
func (svc *Service) IsAdmin(username, password string) bool {
	return svc.adminUser != "" && username == svc.adminUser && password == svc.adminPass
}

// dummyHash is a bcrypt digest of an unguessable value, used to equalize
// work on the unknown-username path.
var dummyHash = func() []byte {
	h, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcrypt.MinCost)
	if err != nil {
		return []byte("$2a$04$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy")
	}
	return h
}()
