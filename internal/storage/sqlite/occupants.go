package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/studio3d/scenesync/internal/models"
	"github.com/studio3d/scenesync/internal/storage"
)

//go:embed schema.sql
var embeddedSchema embed.FS

// OccupantStore persists room membership in SQLite. Suitable for a
// single relay node that must survive restarts.
type OccupantStore struct {
	db *sql.DB
}

func New(db *sql.DB) *OccupantStore {
	return &OccupantStore{db: db}
}

// Open opens (or creates) the database at path and applies the schema.
func Open(path string) (*OccupantStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	s := New(db)
	if err := s.InitSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *OccupantStore) InitSchema() error {
	b, err := embeddedSchema.ReadFile("schema.sql")
	if err != nil {
		return err
	}
	_, err = s.db.Exec(strings.TrimSpace(string(b)))
	return err
}

func (s *OccupantStore) Join(ctx context.Context, roomID, userID, userName string) (*models.RoomOccupant, error) {
	now := time.Now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO room_users (room_id, user_id, user_name, joined_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (room_id, user_id)
		DO UPDATE SET user_name = excluded.user_name, updated_at = excluded.updated_at`,
		roomID, userID, userName, now.UnixNano(), now.UnixNano())
	if err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT joined_at, updated_at FROM room_users WHERE room_id = ? AND user_id = ?`,
		roomID, userID)
	var joined, updated int64
	if err := row.Scan(&joined, &updated); err != nil {
		return nil, err
	}
	return &models.RoomOccupant{
		RoomID:    roomID,
		UserID:    userID,
		UserName:  userName,
		JoinedAt:  time.Unix(0, joined),
		UpdatedAt: time.Unix(0, updated),
	}, nil
}

func (s *OccupantStore) Leave(ctx context.Context, roomID, userID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM room_users WHERE room_id = ? AND user_id = ?`, roomID, userID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *OccupantStore) Roster(ctx context.Context, roomID string, limit int) ([]models.RoomUser, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, user_name FROM room_users
		WHERE room_id = ?
		ORDER BY joined_at ASC, user_id ASC
		LIMIT ?`, roomID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.RoomUser
	for rows.Next() {
		var u models.RoomUser
		if err := rows.Scan(&u.UserID, &u.UserName); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *OccupantStore) Count(ctx context.Context, roomID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM room_users WHERE room_id = ?`, roomID).Scan(&n)
	return n, err
}

func (s *OccupantStore) IsMember(ctx context.Context, roomID, userID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM room_users WHERE room_id = ? AND user_id = ?`,
		roomID, userID).Scan(&n)
	return n > 0, err
}

func (s *OccupantStore) Close() error {
	return s.db.Close()
}
