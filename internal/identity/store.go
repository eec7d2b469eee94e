// Package identity holds the current authenticated user and the fixed
// credential directory. There is one user at a time; the record survives
// restarts through the durable KV storage.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"campusevents/internal/kv"
)

const userKey = "user"

// ErrInvalidCredentials is returned when no directory entry matches the
// email/password pair exactly.
var ErrInvalidCredentials = errors.New("invalid email or password")

// Role determines what a user can do. It never changes after creation.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleStudent Role = "student"
)

// User is the authenticated identity. Password material never appears on
// this type; credentials live only in the directory.
type User struct {
	ID               int64  `json:"id"`
	Email            string `json:"email"`
	Name             string `json:"name"`
	Role             Role   `json:"role"`
	Avatar           string `json:"avatar,omitempty"`
	StudentID        string `json:"student_id,omitempty"`
	Grade            string `json:"grade,omitempty"`
	RegisteredEvents int    `json:"registered_events"`
	Achievements     int    `json:"achievements"`
}

// Credential pairs a directory user with its password. The directory is
// fixed at construction; this is deliberately not an account system.
type Credential struct {
	User     User
	Password string
}

// SignupProfile carries the caller-supplied attributes for a new student
// account.
type SignupProfile struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Grade    string `json:"grade"`
}

// Store owns the current user.
type Store struct {
	mu        sync.RWMutex
	kv        kv.Store
	directory []Credential
	current   *User
	lastID    int64
}

// NewStore builds an identity store over the given credential directory and
// restores any persisted user. A malformed persisted record is treated as
// absent.
func NewStore(ctx context.Context, store kv.Store, directory []Credential) *Store {
	s := &Store{kv: store, directory: directory}

	data, err := store.Get(ctx, userKey)
	if err != nil {
		if !errors.Is(err, kv.ErrKeyNotFound) {
			log.WithError(err).Warn("could not load persisted user, starting signed out")
		}
		return s
	}
	var user User
	if err := json.Unmarshal(data, &user); err != nil || user.ID == 0 {
		log.Warn("malformed persisted user payload, starting signed out")
		return s
	}
	s.current = &user
	return s
}

// DefaultDirectory returns the built-in demo credentials.
func DefaultDirectory() []Credential {
	return []Credential{
		{
			User: User{
				ID:     1,
				Email:  "admin@school.com",
				Name:   "Admin User",
				Role:   RoleAdmin,
				Avatar: avatarFor("Admin User"),
			},
			Password: "admin123",
		},
		{
			User: User{
				ID:               2,
				Email:            "student@school.com",
				Name:             "John Doe",
				Role:             RoleStudent,
				Avatar:           avatarFor("John Doe"),
				StudentID:        "STU2024001",
				Grade:            "10th Grade",
				RegisteredEvents: 5,
				Achievements:     12,
			},
			Password: "student123",
		},
	}
}

// Login matches email and password exactly (case-sensitive) against the
// directory. On success the matched user becomes current and is persisted;
// on failure the current user is untouched.
func (s *Store) Login(ctx context.Context, email, password string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, cred := range s.directory {
		if cred.User.Email == email && cred.Password == password {
			user := cred.User
			s.current = &user
			s.persistCurrent(ctx)
			return user, nil
		}
	}
	return User{}, ErrInvalidCredentials
}

// Signup fabricates a new student identity and makes it current. It always
// succeeds; duplicate emails are not checked.
func (s *Store) Signup(ctx context.Context, profile SignupProfile) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID()
	user := User{
		ID:               id,
		Email:            profile.Email,
		Name:             profile.Name,
		Role:             RoleStudent,
		Avatar:           avatarFor(profile.Name),
		StudentID:        fmt.Sprintf("STU%d", id),
		Grade:            profile.Grade,
		RegisteredEvents: 0,
		Achievements:     0,
	}
	s.current = &user
	s.persistCurrent(ctx)
	return user, nil
}

// EmailInDirectory reports whether an email collides with a directory
// entry. Signup stays permissive either way; this only exists so callers
// can surface the known gap.
func (s *Store) EmailInDirectory(email string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, cred := range s.directory {
		if cred.User.Email == email {
			return true
		}
	}
	return false
}

// Logout clears the current user and its persisted copy. Logging out while
// signed out is a no-op.
func (s *Store) Logout(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return
	}
	s.current = nil
	if err := s.kv.Delete(ctx, userKey); err != nil {
		log.WithError(err).Warn("could not clear persisted user")
	}
}

// CurrentUser returns the signed-in user, if any.
func (s *Store) CurrentUser() (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return User{}, false
	}
	return *s.current, true
}

// IsAuthenticated reports whether a user is signed in.
func (s *Store) IsAuthenticated() bool {
	_, ok := s.CurrentUser()
	return ok
}

// IsAdmin reports whether the current user holds the admin role.
func (s *Store) IsAdmin() bool {
	user, ok := s.CurrentUser()
	return ok && user.Role == RoleAdmin
}

// IsStudent reports whether the current user holds the student role.
func (s *Store) IsStudent() bool {
	user, ok := s.CurrentUser()
	return ok && user.Role == RoleStudent
}

// persistCurrent writes the current user through the KV port, best-effort.
// Callers hold the lock.
func (s *Store) persistCurrent(ctx context.Context) {
	data, err := json.Marshal(s.current)
	if err != nil {
		log.WithError(err).Error("could not encode current user")
		return
	}
	if err := s.kv.Set(ctx, userKey, data); err != nil {
		log.WithError(err).Warn("could not persist current user")
	}
}

// nextID derives IDs from the clock, bumping past the last issued ID.
// Callers hold the lock.
func (s *Store) nextID() int64 {
	id := time.Now().UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return id
}

func avatarFor(name string) string {
	return "https://ui-avatars.com/api/?name=" + url.QueryEscape(name) + "&background=d946ef&color=fff"
}
