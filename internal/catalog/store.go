package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"campusevents/internal/kv"
)

const registeredEventsKey = "registeredEvents"

// Store owns the event collection, the notification list, and the set of
// event IDs the current session has registered for. Only the registration
// set is persisted; events and notifications live for the process lifetime.
type Store struct {
	mu            sync.RWMutex
	kv            kv.Store
	events        []Event
	notifications []Notification
	registered    []int64
	lastID        int64
}

// NewStore builds a catalog store and restores the persisted registration
// set. Malformed or missing stored state is treated as empty, never as an
// error.
func NewStore(ctx context.Context, store kv.Store) *Store {
	s := &Store{kv: store}

	data, err := store.Get(ctx, registeredEventsKey)
	if err != nil {
		if !errors.Is(err, kv.ErrKeyNotFound) {
			log.WithError(err).Warn("could not load registered events, starting empty")
		}
		return s
	}
	var ids []int64
	if err := json.Unmarshal(data, &ids); err != nil {
		log.WithError(err).Warn("malformed registered events payload, starting empty")
		return s
	}
	s.registered = ids
	return s
}

// CreateEvent appends a new event. The registered count and status are
// assigned here regardless of caller input.
func (s *Store) CreateEvent(fields EventFields) Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	event := Event{
		ID:          s.nextID(),
		Title:       fields.Title,
		Description: fields.Description,
		Category:    fields.Category,
		Date:        fields.Date,
		Time:        fields.Time,
		Location:    fields.Location,
		Capacity:    fields.Capacity,
		Registered:  0,
		Status:      StatusUpcoming,
		Organizer:   fields.Organizer,
		Image:       fields.Image,
	}
	s.events = append(s.events, event)
	return event
}

// nextID derives IDs from the clock, bumping past the last issued ID so
// two creations in the same millisecond stay unique. Callers hold the lock.
func (s *Store) nextID() int64 {
	id := time.Now().UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return id
}

// UpdateEvent merges the non-nil patch fields into the matching event.
func (s *Store) UpdateEvent(id int64, patch EventPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	event := s.find(id)
	if event == nil {
		return ErrEventNotFound
	}
	if patch.Title != nil {
		event.Title = *patch.Title
	}
	if patch.Description != nil {
		event.Description = *patch.Description
	}
	if patch.Category != nil {
		event.Category = *patch.Category
	}
	if patch.Date != nil {
		event.Date = *patch.Date
	}
	if patch.Time != nil {
		event.Time = *patch.Time
	}
	if patch.Location != nil {
		event.Location = *patch.Location
	}
	if patch.Capacity != nil {
		event.Capacity = *patch.Capacity
	}
	if patch.Status != nil {
		event.Status = *patch.Status
	}
	if patch.Organizer != nil {
		event.Organizer = *patch.Organizer
	}
	if patch.Image != nil {
		event.Image = *patch.Image
	}
	return nil
}

// DeleteEvent removes the matching event. Deleting an absent ID is a no-op.
func (s *Store) DeleteEvent(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.events {
		if s.events[i].ID == id {
			s.events = append(s.events[:i], s.events[i+1:]...)
			return
		}
	}
}

// Register books one capacity slot of the event for the current session.
// The error checks run in a fixed order so callers receive the most
// specific failure: existence, then duplicate membership, then capacity.
func (s *Store) Register(ctx context.Context, eventID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	event := s.find(eventID)
	if event == nil {
		return ErrEventNotFound
	}
	if s.isRegistered(eventID) {
		return ErrAlreadyRegistered
	}
	if event.IsFull() {
		return ErrEventFull
	}

	event.Registered++
	s.registered = append(s.registered, eventID)
	s.persistRegistered(ctx)

	s.prependNotification(Notification{
		Title:   "Registration Successful",
		Message: fmt.Sprintf("You have been registered for %s", event.Title),
		Type:    NotificationSuccess,
	})
	return nil
}

// Unregister releases the session's registration for the event. The
// registered count never drops below zero, and a registration for a
// since-deleted event is still cleaned out of the set.
func (s *Store) Unregister(ctx context.Context, eventID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRegistered(eventID) {
		return ErrNotRegistered
	}
	if event := s.find(eventID); event != nil && event.Registered > 0 {
		event.Registered--
	}
	for i, id := range s.registered {
		if id == eventID {
			s.registered = append(s.registered[:i], s.registered[i+1:]...)
			break
		}
	}
	s.persistRegistered(ctx)
	return nil
}

// persistRegistered writes the registration set through the KV port.
// Failure is logged and swallowed: the in-memory mutation stands and the
// next successful write repairs the stored copy. Callers hold the lock.
func (s *Store) persistRegistered(ctx context.Context) {
	data, err := json.Marshal(s.registered)
	if err != nil {
		log.WithError(err).Error("could not encode registered events")
		return
	}
	if err := s.kv.Set(ctx, registeredEventsKey, data); err != nil {
		log.WithError(err).Warn("could not persist registered events")
	}
}

// find returns a pointer into the events slice. Callers hold the lock.
func (s *Store) find(id int64) *Event {
	for i := range s.events {
		if s.events[i].ID == id {
			return &s.events[i]
		}
	}
	return nil
}

func (s *Store) isRegistered(id int64) bool {
	for _, r := range s.registered {
		if r == id {
			return true
		}
	}
	return false
}

// AddNotification prepends a notification with a fresh ID and timestamp.
// The read flag is forced to false whatever the caller supplied.
func (s *Store) AddNotification(title, message string, typ NotificationType) Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prependNotification(Notification{Title: title, Message: message, Type: typ})
}

// prependNotification assigns identity and ordering. Callers hold the lock.
func (s *Store) prependNotification(n Notification) Notification {
	n.ID = uuid.NewString()
	n.Read = false
	n.Timestamp = time.Now().UTC()
	s.notifications = append([]Notification{n}, s.notifications...)
	return n
}

// MarkRead flags the matching notification as read; absent IDs are a no-op.
func (s *Store) MarkRead(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.notifications {
		if s.notifications[i].ID == id {
			s.notifications[i].Read = true
			return
		}
	}
}

// MarkAllRead flags every notification as read.
func (s *Store) MarkAllRead() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.notifications {
		s.notifications[i].Read = true
	}
}

// UnreadCount recounts the unread notifications on every call so it can
// never drift from the list.
func (s *Store) UnreadCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, n := range s.notifications {
		if !n.Read {
			count++
		}
	}
	return count
}

// Notifications returns the notification list, newest first.
func (s *Store) Notifications() []Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Notification, len(s.notifications))
	copy(out, s.notifications)
	return out
}

// EventFilter narrows the Events listing. Zero values mean "no filter".
type EventFilter struct {
	Status         Status
	Category       Category
	Search         string
	RegisteredOnly bool
	AvailableOnly  bool
}

// Events returns a snapshot of the events matching the filter, in
// insertion order.
func (s *Store) Events(filter EventFilter) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Event, 0, len(s.events))
	for _, e := range s.events {
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		if filter.Category != "" && e.Category != filter.Category {
			continue
		}
		if filter.RegisteredOnly && !s.isRegistered(e.ID) {
			continue
		}
		if filter.AvailableOnly && (s.isRegistered(e.ID) || e.Status != StatusUpcoming) {
			continue
		}
		if filter.Search != "" {
			needle := strings.ToLower(filter.Search)
			if !strings.Contains(strings.ToLower(e.Title), needle) &&
				!strings.Contains(strings.ToLower(string(e.Category)), needle) {
				continue
			}
		}
		out = append(out, e)
	}
	return out
}

// Event returns the event matching id.
func (s *Store) Event(id int64) (Event, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e := s.find(id); e != nil {
		return *e, true
	}
	return Event{}, false
}

// RegisteredIDs returns the session's registration set in insertion order.
func (s *Store) RegisteredIDs() []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]int64, len(s.registered))
	copy(out, s.registered)
	return out
}

// IsRegistered reports whether the session holds a registration for id.
func (s *Store) IsRegistered(id int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRegistered(id)
}

// Stats aggregates the catalog for the admin dashboard.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{
		TotalEvents: len(s.events),
		ByCategory:  make(map[Category]int),
	}
	for _, e := range s.events {
		switch e.Status {
		case StatusUpcoming:
			stats.Upcoming++
		case StatusOngoing:
			stats.Ongoing++
		case StatusCompleted:
			stats.Completed++
		}
		stats.TotalRegistrations += e.Registered
		stats.TotalCapacity += e.Capacity
		stats.ByCategory[e.Category]++
	}
	return stats
}
