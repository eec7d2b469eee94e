// Package catalog holds the application state for events, notifications,
// and the current session's registrations.
package catalog

import "time"

// Category classifies an event. The set is fixed; the admin UI offers no
// free-form categories.
type Category string

const (
	CategorySports           Category = "Sports"
	CategoryArts             Category = "Arts"
	CategoryTechnology       Category = "Technology"
	CategoryMusic            Category = "Music"
	CategoryDrama            Category = "Drama"
	CategoryCommunityService Category = "Community Service"
	CategoryScience          Category = "Science"
)

// Categories lists every valid category, in display order.
func Categories() []Category {
	return []Category{
		CategorySports,
		CategoryArts,
		CategoryTechnology,
		CategoryMusic,
		CategoryDrama,
		CategoryCommunityService,
		CategoryScience,
	}
}

// Status is the lifecycle state of an event.
type Status string

const (
	StatusUpcoming  Status = "upcoming"
	StatusOngoing   Status = "ongoing"
	StatusCompleted Status = "completed"
)

// Event represents a schedulable activity with finite capacity.
type Event struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    Category `json:"category"`
	Date        string   `json:"date"`
	Time        string   `json:"time"`
	Location    string   `json:"location"`
	Capacity    int      `json:"capacity"`
	Registered  int      `json:"registered"`
	Status      Status   `json:"status"`
	Organizer   string   `json:"organizer"`
	Image       string   `json:"image,omitempty"`
}

// AvailableSpots returns the number of open capacity slots.
func (e *Event) AvailableSpots() int {
	return e.Capacity - e.Registered
}

// IsFull returns true when no slots remain.
func (e *Event) IsFull() bool {
	return e.Registered >= e.Capacity
}

// EventFields carries the caller-supplied attributes for a new event.
// Registered count and status are always assigned by the store.
type EventFields struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    Category `json:"category"`
	Date        string   `json:"date"`
	Time        string   `json:"time"`
	Location    string   `json:"location"`
	Capacity    int      `json:"capacity"`
	Organizer   string   `json:"organizer"`
	Image       string   `json:"image"`
}

// EventPatch is a field-level merge for UpdateEvent. Nil fields are left
// untouched on the target event.
type EventPatch struct {
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	Category    *Category `json:"category"`
	Date        *string   `json:"date"`
	Time        *string   `json:"time"`
	Location    *string   `json:"location"`
	Capacity    *int      `json:"capacity"`
	Status      *Status   `json:"status"`
	Organizer   *string   `json:"organizer"`
	Image       *string   `json:"image"`
}

// NotificationType tags a notification for presentation.
type NotificationType string

const (
	NotificationInfo    NotificationType = "info"
	NotificationSuccess NotificationType = "success"
	NotificationWarning NotificationType = "warning"
)

// Notification is a message shown to the current user. Notifications are
// never evicted; only the read flag transitions.
type Notification struct {
	ID        string           `json:"id"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Type      NotificationType `json:"type"`
	Read      bool             `json:"read"`
	Timestamp time.Time        `json:"timestamp"`
}

// Stats summarises the catalog for the admin dashboard.
type Stats struct {
	TotalEvents        int              `json:"total_events"`
	Upcoming           int              `json:"upcoming"`
	Ongoing            int              `json:"ongoing"`
	Completed          int              `json:"completed"`
	TotalRegistrations int              `json:"total_registrations"`
	TotalCapacity      int              `json:"total_capacity"`
	ByCategory         map[Category]int `json:"by_category"`
}
