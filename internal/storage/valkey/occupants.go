package valkey

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	valkeygo "github.com/valkey-io/valkey-go"

	"github.com/studio3d/scenesync/internal/models"
	"github.com/studio3d/scenesync/internal/storage"
)

// OccupantStore persists room membership in Valkey so multiple relay
// nodes can share one roster. Layout per room:
//
//	room:<id>:occupants  hash   userID -> occupant JSON
//	room:<id>:order      zset   userID scored by join time (ns)
//
// The zset score is only written with NX, which preserves the original
// join time across rejoins.
type OccupantStore struct {
	client valkeygo.Client
}

func New(addr string) (*OccupantStore, error) {
	client, err := valkeygo.NewClient(valkeygo.ClientOption{InitAddress: []string{addr}})
	if err != nil {
		return nil, fmt.Errorf("connect to valkey: %w", err)
	}
	return &OccupantStore{client: client}, nil
}

func occupantsKey(roomID string) string { return "room:" + roomID + ":occupants" }
func orderKey(roomID string) string     { return "room:" + roomID + ":order" }

func (s *OccupantStore) Join(ctx context.Context, roomID, userID, userName string) (*models.RoomOccupant, error) {
	now := time.Now()
	occupant := models.RoomOccupant{
		RoomID:    roomID,
		UserID:    userID,
		UserName:  userName,
		JoinedAt:  now,
		UpdatedAt: now,
	}

	raw, err := s.client.Do(ctx, s.client.B().Hget().
		Key(occupantsKey(roomID)).Field(userID).Build()).ToString()
	switch {
	case err == nil:
		// Rejoin: keep the stored join time, bump updatedAt only.
		var existing models.RoomOccupant
		if uerr := json.Unmarshal([]byte(raw), &existing); uerr == nil {
			occupant.JoinedAt = existing.JoinedAt
		}
	case !valkeygo.IsValkeyNil(err):
		return nil, err
	}

	encoded, err := json.Marshal(occupant)
	if err != nil {
		return nil, err
	}
	if err := s.client.Do(ctx, s.client.B().Hset().
		Key(occupantsKey(roomID)).FieldValue().
		FieldValue(userID, string(encoded)).Build()).Error(); err != nil {
		return nil, err
	}
	if err := s.client.Do(ctx, s.client.B().Zadd().
		Key(orderKey(roomID)).Nx().ScoreMember().
		ScoreMember(float64(occupant.JoinedAt.UnixNano()), userID).Build()).Error(); err != nil {
		return nil, err
	}
	return &occupant, nil
}

func (s *OccupantStore) Leave(ctx context.Context, roomID, userID string) error {
	removed, err := s.client.Do(ctx, s.client.B().Hdel().
		Key(occupantsKey(roomID)).Field(userID).Build()).AsInt64()
	if err != nil {
		return err
	}
	if err := s.client.Do(ctx, s.client.B().Zrem().
		Key(orderKey(roomID)).Member(userID).Build()).Error(); err != nil {
		return err
	}
	if removed == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *OccupantStore) Roster(ctx context.Context, roomID string, limit int) ([]models.RoomUser, error) {
	ids, err := s.client.Do(ctx, s.client.B().Zrange().
		Key(orderKey(roomID)).Min("0").Max(strconv.Itoa(limit-1)).Build()).AsStrSlice()
	if err != nil {
		return nil, err
	}

	users := make([]models.RoomUser, 0, len(ids))
	for _, id := range ids {
		raw, err := s.client.Do(ctx, s.client.B().Hget().
			Key(occupantsKey(roomID)).Field(id).Build()).ToString()
		if err != nil {
			if valkeygo.IsValkeyNil(err) {
				continue
			}
			return nil, err
		}
		var occupant models.RoomOccupant
		if err := json.Unmarshal([]byte(raw), &occupant); err != nil {
			continue
		}
		users = append(users, models.RoomUser{UserID: occupant.UserID, UserName: occupant.UserName})
	}
	return users, nil
}

func (s *OccupantStore) Count(ctx context.Context, roomID string) (int, error) {
	n, err := s.client.Do(ctx, s.client.B().Zcard().
		Key(orderKey(roomID)).Build()).AsInt64()
	return int(n), err
}

func (s *OccupantStore) IsMember(ctx context.Context, roomID, userID string) (bool, error) {
	_, err := s.client.Do(ctx, s.client.B().Hget().
		Key(occupantsKey(roomID)).Field(userID).Build()).ToString()
	if err != nil {
		if valkeygo.IsValkeyNil(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *OccupantStore) Close() {
	s.client.Close()
}
