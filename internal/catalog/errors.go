package catalog

import "errors"

var (
	// ErrEventNotFound is returned when no event matches the given ID.
	ErrEventNotFound = errors.New("event not found")

	// ErrAlreadyRegistered is returned when the session already holds a
	// registration for the event.
	ErrAlreadyRegistered = errors.New("already registered for this event")

	// ErrEventFull is returned when an event has no capacity left.
	ErrEventFull = errors.New("event is full")

	// ErrNotRegistered is returned by Unregister when the session holds no
	// registration for the event.
	ErrNotRegistered = errors.New("not registered for this event")
)
