package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusevents/internal/kv"
)

func newTestStore(t *testing.T) (*Store, kv.Store) {
	t.Helper()
	fileStore, err := kv.NewFileStore(t.TempDir())
	require.NoError(t, err)
	return NewStore(context.Background(), fileStore, DefaultDirectory()), fileStore
}

func TestLogin_Success(t *testing.T) {
	ctx := context.Background()
	store, fileStore := newTestStore(t)

	user, err := store.Login(ctx, "student@school.com", "student123")
	require.NoError(t, err)

	assert.Equal(t, RoleStudent, user.Role)
	assert.Equal(t, "John Doe", user.Name)
	assert.True(t, store.IsAuthenticated())
	assert.True(t, store.IsStudent())
	assert.False(t, store.IsAdmin())

	// The persisted record must not carry password material.
	data, err := fileStore.Get(ctx, "user")
	require.NoError(t, err)
	assert.NotContains(t, string(data), "student123")
	assert.NotContains(t, string(data), "password")
}

func TestLogin_UnknownEmail(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Login(context.Background(), "nobody@school.com", "student123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.False(t, store.IsAuthenticated())
}

func TestLogin_WrongPasswordLeavesCurrentUser(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	_, err := store.Login(ctx, "admin@school.com", "admin123")
	require.NoError(t, err)

	_, err = store.Login(ctx, "admin@school.com", "ADMIN123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	user, ok := store.CurrentUser()
	require.True(t, ok)
	assert.Equal(t, RoleAdmin, user.Role)
}

func TestSignup_AlwaysSucceeds(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	user, err := store.Signup(ctx, SignupProfile{
		Name:     "Jane Roe",
		Email:    "jane@school.com",
		Password: "secret",
		Grade:    "9th Grade",
	})
	require.NoError(t, err)

	assert.Equal(t, RoleStudent, user.Role)
	assert.Zero(t, user.RegisteredEvents)
	assert.Zero(t, user.Achievements)
	assert.NotEmpty(t, user.StudentID)
	assert.True(t, store.IsAuthenticated())
}

func TestSignup_PermitsDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	user, err := store.Signup(ctx, SignupProfile{
		Name:  "Imposter",
		Email: "student@school.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "student@school.com", user.Email)
	assert.True(t, store.EmailInDirectory(user.Email))
}

func TestSignup_UniqueIDs(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	seen := make(map[int64]bool)
	for i := 0; i < 50; i++ {
		user, err := store.Signup(ctx, SignupProfile{Name: "A", Email: "a@school.com"})
		require.NoError(t, err)
		require.False(t, seen[user.ID], "duplicate id %d", user.ID)
		seen[user.ID] = true
	}
}

func TestLogout_Idempotent(t *testing.T) {
	ctx := context.Background()
	store, fileStore := newTestStore(t)

	_, err := store.Login(ctx, "admin@school.com", "admin123")
	require.NoError(t, err)

	store.Logout(ctx)
	store.Logout(ctx)

	assert.False(t, store.IsAuthenticated())
	_, err = fileStore.Get(ctx, "user")
	assert.ErrorIs(t, err, kv.ErrKeyNotFound)
}

func TestNewStore_RestoresPersistedUser(t *testing.T) {
	ctx := context.Background()
	fileStore, err := kv.NewFileStore(t.TempDir())
	require.NoError(t, err)

	first := NewStore(ctx, fileStore, DefaultDirectory())
	_, err = first.Login(ctx, "student@school.com", "student123")
	require.NoError(t, err)

	restored := NewStore(ctx, fileStore, DefaultDirectory())
	user, ok := restored.CurrentUser()
	require.True(t, ok)
	assert.Equal(t, "student@school.com", user.Email)
}

func TestNewStore_MalformedUserFailsClosed(t *testing.T) {
	ctx := context.Background()
	fileStore, err := kv.NewFileStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, fileStore.Set(ctx, "user", []byte("{broken")))

	store := NewStore(ctx, fileStore, DefaultDirectory())
	assert.False(t, store.IsAuthenticated())
}
