package storage

import (
	"context"
	"errors"

	"github.com/studio3d/scenesync/internal/models"
)

// ErrNotFound is returned when a leave targets a (room, user) pair that
// has no occupant row. Callers treat it as a no-op, not a failure.
var ErrNotFound = errors.New("occupant not found")

// OccupantStore persists room membership for the relay. Implementations
// must keep at most one row per (roomID, userID): a repeated Join bumps
// UpdatedAt and preserves the original JoinedAt, so roster ordering is
// stable across rejoins.
type OccupantStore interface {
	// Join upserts the occupant and returns the stored row.
	Join(ctx context.Context, roomID, userID, userName string) (*models.RoomOccupant, error)

	// Leave deletes the occupant row. Returns ErrNotFound if absent.
	Leave(ctx context.Context, roomID, userID string) error

	// Roster returns up to limit occupants ordered by join time ascending.
	Roster(ctx context.Context, roomID string, limit int) ([]models.RoomUser, error)

	// Count returns the number of occupants currently in the room.
	Count(ctx context.Context, roomID string) (int, error)

	// IsMember reports whether the user has an occupant row in the room.
	IsMember(ctx context.Context, roomID, userID string) (bool, error)
}
