package catalog

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusevents/internal/kv"
)

func newTestStore(t *testing.T) (*Store, kv.Store) {
	t.Helper()
	fileStore, err := kv.NewFileStore(t.TempDir())
	require.NoError(t, err)
	return NewStore(context.Background(), fileStore), fileStore
}

func hackathonFields() EventFields {
	return EventFields{
		Title:     "Coding Hackathon",
		Category:  CategoryTechnology,
		Date:      "2026-09-12",
		Time:      "10:00 AM",
		Location:  "Computer Lab",
		Capacity:  50,
		Organizer: "CS Department",
	}
}

func TestCreateEvent_ForcesInitialState(t *testing.T) {
	store, _ := newTestStore(t)

	event := store.CreateEvent(hackathonFields())

	assert.Equal(t, 0, event.Registered)
	assert.Equal(t, StatusUpcoming, event.Status)
	assert.NotZero(t, event.ID)
}

func TestCreateEvent_UniqueIDs(t *testing.T) {
	store, _ := newTestStore(t)

	seen := make(map[int64]bool)
	for i := 0; i < 100; i++ {
		event := store.CreateEvent(hackathonFields())
		require.False(t, seen[event.ID], "duplicate id %d", event.ID)
		seen[event.ID] = true
	}
}

func TestRegister_ErrorOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("missing event wins over everything", func(t *testing.T) {
		store, _ := newTestStore(t)
		assert.ErrorIs(t, store.Register(ctx, 404), ErrEventNotFound)
	})

	t.Run("duplicate wins over full", func(t *testing.T) {
		store, _ := newTestStore(t)
		fields := hackathonFields()
		fields.Capacity = 1
		event := store.CreateEvent(fields)

		require.NoError(t, store.Register(ctx, event.ID))
		// Event is now both full and already registered; duplicate is the
		// more specific error.
		assert.ErrorIs(t, store.Register(ctx, event.ID), ErrAlreadyRegistered)
	})

	t.Run("full event", func(t *testing.T) {
		store, _ := newTestStore(t)
		event := store.CreateEvent(hackathonFields())
		capZero := 0
		require.NoError(t, store.UpdateEvent(event.ID, EventPatch{Capacity: &capZero}))

		assert.ErrorIs(t, store.Register(ctx, event.ID), ErrEventFull)
	})
}

func TestRegister_DuplicateLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	event := store.CreateEvent(hackathonFields())

	require.NoError(t, store.Register(ctx, event.ID))
	notifications := len(store.Notifications())

	assert.ErrorIs(t, store.Register(ctx, event.ID), ErrAlreadyRegistered)

	got, ok := store.Event(event.ID)
	require.True(t, ok)
	assert.Equal(t, 1, got.Registered)
	assert.Len(t, store.RegisteredIDs(), 1)
	assert.Len(t, store.Notifications(), notifications)
}

func TestRegister_FullEventDoesNotMutate(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	event := store.CreateEvent(hackathonFields())
	capZero := 0
	require.NoError(t, store.UpdateEvent(event.ID, EventPatch{Capacity: &capZero}))

	assert.ErrorIs(t, store.Register(ctx, event.ID), ErrEventFull)

	got, _ := store.Event(event.ID)
	assert.Equal(t, 0, got.Registered)
	assert.Empty(t, store.RegisteredIDs())
	assert.Empty(t, store.Notifications())
}

func TestRegister_NearCapacityScenario(t *testing.T) {
	// Capacity 50 with 48 registered: the 49th registration succeeds and
	// one spot remains.
	ctx := context.Background()
	store, _ := newTestStore(t)
	event := store.CreateEvent(hackathonFields())

	// Simulate 48 prior registrations from other sessions.
	store.mu.Lock()
	store.find(event.ID).Registered = 48
	store.mu.Unlock()

	require.NoError(t, store.Register(ctx, event.ID))

	got, _ := store.Event(event.ID)
	assert.Equal(t, 49, got.Registered)
	assert.Equal(t, 1, got.AvailableSpots())

	notifications := store.Notifications()
	require.NotEmpty(t, notifications)
	first := notifications[0]
	assert.Equal(t, NotificationSuccess, first.Type)
	assert.Contains(t, first.Message, "Coding Hackathon")
}

func TestRegisterUnregister_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	event := store.CreateEvent(hackathonFields())
	before, _ := store.Event(event.ID)

	require.NoError(t, store.Register(ctx, event.ID))
	require.NoError(t, store.Unregister(ctx, event.ID))

	after, _ := store.Event(event.ID)
	assert.Equal(t, before.Registered, after.Registered)
	assert.Empty(t, store.RegisteredIDs())
}

func TestUnregister_NotRegistered(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	event := store.CreateEvent(hackathonFields())

	assert.ErrorIs(t, store.Unregister(ctx, event.ID), ErrNotRegistered)

	got, _ := store.Event(event.ID)
	assert.Equal(t, 0, got.Registered)
}

func TestUnregister_DeletedEventStillClearsSet(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	event := store.CreateEvent(hackathonFields())

	require.NoError(t, store.Register(ctx, event.ID))
	store.DeleteEvent(event.ID)

	require.NoError(t, store.Unregister(ctx, event.ID))
	assert.Empty(t, store.RegisteredIDs())
}

func TestUnregister_NeverBelowZero(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	event := store.CreateEvent(hackathonFields())

	require.NoError(t, store.Register(ctx, event.ID))
	// Zero the count behind the store's back; the decrement must floor.
	store.mu.Lock()
	store.find(event.ID).Registered = 0
	store.mu.Unlock()

	require.NoError(t, store.Unregister(ctx, event.ID))
	got, _ := store.Event(event.ID)
	assert.Equal(t, 0, got.Registered)
}

func TestUpdateEvent_MergesOnlyProvidedFields(t *testing.T) {
	store, _ := newTestStore(t)
	event := store.CreateEvent(hackathonFields())

	title := "Winter Hackathon"
	require.NoError(t, store.UpdateEvent(event.ID, EventPatch{Title: &title}))

	got, _ := store.Event(event.ID)
	assert.Equal(t, "Winter Hackathon", got.Title)
	assert.Equal(t, CategoryTechnology, got.Category)
	assert.Equal(t, "Computer Lab", got.Location)
}

func TestUpdateEvent_EmptyPatchIsNoOp(t *testing.T) {
	store, _ := newTestStore(t)
	event := store.CreateEvent(hackathonFields())

	require.NoError(t, store.UpdateEvent(event.ID, EventPatch{}))

	got, _ := store.Event(event.ID)
	assert.Equal(t, event, got)
}

func TestUpdateEvent_MissingTarget(t *testing.T) {
	store, _ := newTestStore(t)
	title := "ghost"
	assert.ErrorIs(t, store.UpdateEvent(404, EventPatch{Title: &title}), ErrEventNotFound)
}

func TestDeleteEvent_Idempotent(t *testing.T) {
	store, _ := newTestStore(t)
	store.CreateEvent(hackathonFields())

	store.DeleteEvent(404)
	store.DeleteEvent(404)

	assert.Len(t, store.Events(EventFilter{}), 1)
}

func TestNotifications_NewestFirst(t *testing.T) {
	store, _ := newTestStore(t)

	store.AddNotification("A", "first", NotificationInfo)
	b := store.AddNotification("B", "second", NotificationInfo)

	notifications := store.Notifications()
	require.Len(t, notifications, 2)
	assert.Equal(t, b.ID, notifications[0].ID)
	assert.Equal(t, "B", notifications[0].Title)
}

func TestNotifications_ForcedUnreadAndTimestamp(t *testing.T) {
	store, _ := newTestStore(t)

	n := store.AddNotification("Reminder", "starts today", NotificationInfo)

	assert.False(t, n.Read)
	assert.False(t, n.Timestamp.IsZero())
	assert.NotEmpty(t, n.ID)
}

func TestUnreadCount_TracksList(t *testing.T) {
	store, _ := newTestStore(t)
	a := store.AddNotification("A", "one", NotificationInfo)
	store.AddNotification("B", "two", NotificationSuccess)

	assert.Equal(t, 2, store.UnreadCount())

	store.MarkRead(a.ID)
	assert.Equal(t, 1, store.UnreadCount())

	store.MarkRead("no-such-id")
	assert.Equal(t, 1, store.UnreadCount())

	store.MarkAllRead()
	assert.Equal(t, 0, store.UnreadCount())
}

func TestRegistrationSet_Persistence(t *testing.T) {
	ctx := context.Background()
	fileStore, err := kv.NewFileStore(t.TempDir())
	require.NoError(t, err)

	store := NewStore(ctx, fileStore)
	event := store.CreateEvent(hackathonFields())
	require.NoError(t, store.Register(ctx, event.ID))

	data, err := fileStore.Get(ctx, "registeredEvents")
	require.NoError(t, err)
	var ids []int64
	require.NoError(t, json.Unmarshal(data, &ids))
	assert.Equal(t, []int64{event.ID}, ids)

	// A fresh store over the same backend restores the set.
	restored := NewStore(ctx, fileStore)
	assert.Equal(t, []int64{event.ID}, restored.RegisteredIDs())
	assert.True(t, restored.IsRegistered(event.ID))
}

func TestNewStore_MalformedPayloadFailsClosed(t *testing.T) {
	ctx := context.Background()
	fileStore, err := kv.NewFileStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, fileStore.Set(ctx, "registeredEvents", []byte("{not json")))

	store := NewStore(ctx, fileStore)
	assert.Empty(t, store.RegisteredIDs())
}

type failingKV struct{}

func (failingKV) Get(context.Context, string) ([]byte, error) {
	return nil, kv.ErrKeyNotFound
}
func (failingKV) Set(context.Context, string, []byte) error {
	return assert.AnError
}
func (failingKV) Delete(context.Context, string) error {
	return assert.AnError
}

func TestRegister_PersistFailureIsBestEffort(t *testing.T) {
	ctx := context.Background()
	store := NewStore(ctx, failingKV{})
	event := store.CreateEvent(hackathonFields())

	require.NoError(t, store.Register(ctx, event.ID))

	got, _ := store.Event(event.ID)
	assert.Equal(t, 1, got.Registered)
	assert.True(t, store.IsRegistered(event.ID))
}

func TestEvents_Filters(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	hack := store.CreateEvent(hackathonFields())
	concert := store.CreateEvent(EventFields{
		Title: "Music Concert", Category: CategoryMusic, Capacity: 300,
	})
	completed := StatusCompleted
	require.NoError(t, store.UpdateEvent(concert.ID, EventPatch{Status: &completed}))
	require.NoError(t, store.Register(ctx, hack.ID))

	assert.Len(t, store.Events(EventFilter{Status: StatusUpcoming}), 1)
	assert.Len(t, store.Events(EventFilter{Category: CategoryMusic}), 1)
	assert.Len(t, store.Events(EventFilter{Search: "hackathon"}), 1)
	assert.Len(t, store.Events(EventFilter{RegisteredOnly: true}), 1)
	assert.Empty(t, store.Events(EventFilter{AvailableOnly: true}))
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	hack := store.CreateEvent(hackathonFields())
	store.CreateEvent(EventFields{Title: "Art Exhibition", Category: CategoryArts, Capacity: 100})
	require.NoError(t, store.Register(ctx, hack.ID))

	stats := store.Stats()
	assert.Equal(t, 2, stats.TotalEvents)
	assert.Equal(t, 2, stats.Upcoming)
	assert.Equal(t, 1, stats.TotalRegistrations)
	assert.Equal(t, 150, stats.TotalCapacity)
	assert.Equal(t, 1, stats.ByCategory[CategoryTechnology])
	assert.Equal(t, 1, stats.ByCategory[CategoryArts])
}
