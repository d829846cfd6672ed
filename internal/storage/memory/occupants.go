package memory

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/studio3d/scenesync/internal/models"
	"github.com/studio3d/scenesync/internal/storage"
)

// OccupantStore keeps room membership in process memory. It is the
// default backend for single-node deployments and for tests.
type OccupantStore struct {
	mu    sync.RWMutex
	rooms map[string]map[string]*models.RoomOccupant // roomID -> userID -> occupant
}

func NewOccupantStore() *OccupantStore {
	return &OccupantStore{
		rooms: make(map[string]map[string]*models.RoomOccupant),
	}
}

func (s *OccupantStore) Join(_ context.Context, roomID, userID, userName string) (*models.RoomOccupant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()

	room := s.rooms[roomID]
	if room == nil {
		room = make(map[string]*models.RoomOccupant)
		s.rooms[roomID] = room
	}

	if existing, ok := room[userID]; ok {
		// Rejoin: keep the original join time so roster order is stable.
		existing.UserName = userName
		existing.UpdatedAt = now
		log.Printf("[Store] User %s already in room %s, updated timestamp", userID, roomID)
		copied := *existing
		return &copied, nil
	}

	occupant := &models.RoomOccupant{
		RoomID:    roomID,
		UserID:    userID,
		UserName:  userName,
		JoinedAt:  now,
		UpdatedAt: now,
	}
	room[userID] = occupant

	log.Printf("[Store] User %s joined room %s. Total occupants: %d", userID, roomID, len(room))
	copied := *occupant
	return &copied, nil
}

func (s *OccupantStore) Leave(_ context.Context, roomID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[roomID]
	if !ok {
		return storage.ErrNotFound
	}
	if _, ok := room[userID]; !ok {
		return storage.ErrNotFound
	}

	delete(room, userID)
	if len(room) == 0 {
		delete(s.rooms, roomID)
	}

	log.Printf("[Store] User %s left room %s. Total occupants: %d", userID, roomID, len(room))
	return nil
}

func (s *OccupantStore) Roster(_ context.Context, roomID string, limit int) ([]models.RoomUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	room := s.rooms[roomID]
	occupants := make([]*models.RoomOccupant, 0, len(room))
	for _, o := range room {
		occupants = append(occupants, o)
	}
	sort.Slice(occupants, func(i, j int) bool {
		if occupants[i].JoinedAt.Equal(occupants[j].JoinedAt) {
			return occupants[i].UserID < occupants[j].UserID
		}
		return occupants[i].JoinedAt.Before(occupants[j].JoinedAt)
	})

	if limit > 0 && len(occupants) > limit {
		occupants = occupants[:limit]
	}

	users := make([]models.RoomUser, 0, len(occupants))
	for _, o := range occupants {
		users = append(users, models.RoomUser{UserID: o.UserID, UserName: o.UserName})
	}
	return users, nil
}

func (s *OccupantStore) Count(_ context.Context, roomID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms[roomID]), nil
}

func (s *OccupantStore) IsMember(_ context.Context, roomID, userID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.rooms[roomID][userID]
	return ok, nil
}
