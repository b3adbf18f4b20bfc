package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"correspondent/internal/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestAddAndListUsers(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	user, err := domain.NewUser("Ada", "ada@example.org",
		[]string{"Rust", "rust", "wasm"},
		[]string{"https://a.example.org", "https://a.example.org", "https://b.example.org"})
	require.NoError(t, err)

	created, err := store.AddUser(ctx, user)
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	users, err := store.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)

	got := users[0]
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "Ada", got.Name)
	assert.Equal(t, []string{"rust", "wasm"}, got.Interests)
	assert.Equal(t, []string{"https://a.example.org", "https://b.example.org"}, got.Sites)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestAddUserDuplicateEmail(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	user, err := domain.NewUser("Ada", "ada@example.org",
		[]string{"rust"}, []string{"https://a.example.org"})
	require.NoError(t, err)

	_, err = store.AddUser(ctx, user)
	require.NoError(t, err)

	again, err := domain.NewUser("Other Ada", "ada@example.org",
		[]string{"wasm"}, []string{"https://b.example.org"})
	require.NoError(t, err)

	_, err = store.AddUser(ctx, again)
	assert.ErrorIs(t, err, domain.ErrEmailTaken)

	users, err := store.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestSeenRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	seen, err := store.Seen(ctx, "u1", []string{"item-1", "item-2"})
	require.NoError(t, err)
	assert.Empty(t, seen)

	require.NoError(t, store.MarkDelivered(ctx, "u1", []string{"item-1"}, now))

	seen, err = store.Seen(ctx, "u1", []string{"item-1", "item-2"})
	require.NoError(t, err)
	assert.True(t, seen["item-1"])
	assert.False(t, seen["item-2"])

	// records are keyed per user
	seen, err = store.Seen(ctx, "u2", []string{"item-1"})
	require.NoError(t, err)
	assert.Empty(t, seen)
}

func TestMarkDeliveredIdempotent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, store.MarkDelivered(ctx, "u1", []string{"item-1"}, now))
	require.NoError(t, store.MarkDelivered(ctx, "u1", []string{"item-1"}, now.Add(time.Hour)))

	seen, err := store.Seen(ctx, "u1", []string{"item-1"})
	require.NoError(t, err)
	assert.True(t, seen["item-1"])
}

func TestSeenEmptyInput(t *testing.T) {
	store := openTestStore(t)

	seen, err := store.Seen(context.Background(), "u1", nil)
	require.NoError(t, err)
	assert.Empty(t, seen)
}

func TestPruneRetentionWindow(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, store.MarkDelivered(ctx, "u1", []string{"old-item"}, now.Add(-40*24*time.Hour)))
	require.NoError(t, store.MarkDelivered(ctx, "u1", []string{"fresh-item"}, now.Add(-time.Hour)))

	deleted, err := store.Prune(ctx, now.Add(-30*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	seen, err := store.Seen(ctx, "u1", []string{"old-item", "fresh-item"})
	require.NoError(t, err)
	assert.False(t, seen["old-item"])
	assert.True(t, seen["fresh-item"], "records inside the window are never pruned")
}
