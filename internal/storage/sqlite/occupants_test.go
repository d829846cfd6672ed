package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studio3d/scenesync/internal/storage"
)

func newTestStore(t *testing.T) *OccupantStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "relay.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteJoinIdempotence(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.Join(ctx, "r1", "u1", "Alice")
	require.NoError(t, err)
	second, err := s.Join(ctx, "r1", "u1", "Alice Updated")
	require.NoError(t, err)

	count, err := s.Count(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	assert.Equal(t, first.JoinedAt, second.JoinedAt)
	assert.False(t, second.UpdatedAt.Before(first.UpdatedAt))

	users, err := s.Roster(ctx, "r1", 3)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "Alice Updated", users[0].UserName)
}

func TestSQLiteRosterBound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		_, err := s.Join(ctx, "r1", fmt.Sprintf("u%d", i), fmt.Sprintf("User%d", i))
		require.NoError(t, err)
	}

	users, err := s.Roster(ctx, "r1", 3)
	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.Equal(t, "u1", users[0].UserID)
	assert.Equal(t, "u2", users[1].UserID)
	assert.Equal(t, "u3", users[2].UserID)

	count, err := s.Count(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, 5, count)
}

func TestSQLiteLeave(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Join(ctx, "r1", "u1", "Alice")
	require.NoError(t, err)
	_, err = s.Join(ctx, "r1", "u2", "Bob")
	require.NoError(t, err)

	require.NoError(t, s.Leave(ctx, "r1", "u1"))
	assert.ErrorIs(t, s.Leave(ctx, "r1", "u1"), storage.ErrNotFound)
	assert.ErrorIs(t, s.Leave(ctx, "r9", "u2"), storage.ErrNotFound)

	users, err := s.Roster(ctx, "r1", 3)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "u2", users[0].UserID)
}

func TestSQLiteIsMember(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Join(ctx, "r1", "u1", "Alice")
	require.NoError(t, err)

	ok, err := s.IsMember(ctx, "r1", "u1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.IsMember(ctx, "r2", "u1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLiteRoomsAreIsolated(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Join(ctx, "r1", "u1", "Alice")
	require.NoError(t, err)
	_, err = s.Join(ctx, "r2", "u1", "Alice")
	require.NoError(t, err)

	require.NoError(t, s.Leave(ctx, "r1", "u1"))

	ok, err := s.IsMember(ctx, "r2", "u1")
	require.NoError(t, err)
	assert.True(t, ok)
}
