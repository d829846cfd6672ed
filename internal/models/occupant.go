package models

import "time"

// DefaultRosterLimit bounds the occupant snapshot attached to membership
// broadcasts. Late joiners reconstruct presence from this snapshot alone.
const DefaultRosterLimit = 3

// RoomOccupant is one user's membership row in a room. At most one row
// exists per (RoomID, UserID); a rejoin bumps UpdatedAt instead of
// inserting a duplicate.
type RoomOccupant struct {
	RoomID    string    `json:"roomId"`
	UserID    string    `json:"userId"`
	UserName  string    `json:"userName"`
	JoinedAt  time.Time `json:"joinedAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// RoomUser is the wire form of an occupant inside roster snapshots.
type RoomUser struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
}
