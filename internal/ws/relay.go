package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/studio3d/scenesync/internal/models"
	"github.com/studio3d/scenesync/internal/storage"
)

// RelayHandler upgrades sockets and dispatches room-scoped events:
// membership (joinRoom/leaveRoom with roster snapshots), the transform
// stream, chat and liveness pings. Per-message it is stateless; the
// occupant roster lives in the injected store.
type RelayHandler struct {
	Hub         *Hub
	Store       storage.OccupantStore
	RosterLimit int

	upgrader websocket.Upgrader
}

func NewRelayHandler(hub *Hub, store storage.OccupantStore, rosterLimit int) *RelayHandler {
	if rosterLimit <= 0 {
		rosterLimit = models.DefaultRosterLimit
	}
	return &RelayHandler{
		Hub:         hub,
		Store:       store,
		RosterLimit: rosterLimit,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *RelayHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Relay] Failed to upgrade websocket: %v", err)
		return
	}

	client := &Client{
		ConnID: uuid.NewString(),
		Send:   make(chan []byte, 256),
		Conn:   conn,
	}
	log.Printf("[Relay] Client connected: %s", client.ConnID)

	go client.writePump()
	h.readPump(client)
}

func (h *RelayHandler) readPump(client *Client) {
	defer func() {
		h.disconnect(client)
		h.Hub.Unregister <- client
		client.Conn.Close()
		log.Printf("[Relay] Client disconnected: %s", client.ConnID)
	}()

	for {
		_, data, err := client.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[Relay] Read error for client %s: %v", client.ConnID, err)
			}
			return
		}

		var env models.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			log.Printf("[Relay] Dropping malformed frame from %s: %v", client.ConnID, err)
			continue
		}

		switch env.Event {
		case models.EventJoinRoom:
			h.handleJoin(client, env.Data)
		case models.EventLeaveRoom:
			h.handleLeave(client, env.Data)
		case models.EventTransformUpdate:
			h.handleTransform(client, env.Data)
		case models.EventSendMessage:
			h.handleChat(client, env.Data)
		case models.EventPing:
			h.send(client, models.EventPong, "pong")
		default:
			log.Printf("[Relay] Unknown event %q from %s", env.Event, client.ConnID)
		}
	}
}

func (h *RelayHandler) handleJoin(client *Client, data json.RawMessage) {
	var payload models.JoinRoomPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		log.Printf("[Relay] Bad joinRoom payload from %s: %v", client.ConnID, err)
		return
	}
	if payload.RoomID == "" || payload.UserID == "" {
		log.Printf("[Relay] joinRoom missing roomId or userId from %s", client.ConnID)
		return
	}

	ctx, cancel := opCtx()
	defer cancel()
	if _, err := h.Store.Join(ctx, payload.RoomID, payload.UserID, payload.UserName); err != nil {
		log.Printf("[Relay] Failed to persist join for %s in room %s: %v", payload.UserID, payload.RoomID, err)
		return
	}

	// Cache the association for abrupt-disconnect cleanup.
	client.RoomID = payload.RoomID
	client.UserID = payload.UserID
	client.UserName = payload.UserName
	h.Hub.Join <- Subscription{Client: client, RoomID: payload.RoomID}

	users := h.roster(payload.RoomID)

	// Private snapshot to the joining socket, then the join broadcast
	// (carrying the same snapshot) to the rest of the room.
	h.send(client, models.EventRoomUsers, models.RoomUsersPayload{Users: users})
	h.broadcast(payload.RoomID, client, models.EventUserJoined, models.PresencePayload{
		UserID:   payload.UserID,
		UserName: payload.UserName,
		Message:  payload.UserName + " joined the room",
		Users:    users,
	})
	log.Printf("[Relay] User %s joined room %s", payload.UserName, payload.RoomID)
}

func (h *RelayHandler) handleLeave(client *Client, data json.RawMessage) {
	var payload models.JoinRoomPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		log.Printf("[Relay] Bad leaveRoom payload from %s: %v", client.ConnID, err)
		return
	}
	if payload.RoomID == "" || payload.UserID == "" {
		return
	}
	h.leave(client, payload.RoomID, payload.UserID, payload.UserName)
}

// leave is shared by explicit leaveRoom and disconnect cleanup. A leave
// for a user not in the room is a logged no-op.
func (h *RelayHandler) leave(client *Client, roomID, userID, userName string) {
	ctx, cancel := opCtx()
	defer cancel()
	if err := h.Store.Leave(ctx, roomID, userID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			log.Printf("[Relay] User %s not found in room %s for removal", userID, roomID)
		} else {
			log.Printf("[Relay] Failed to remove %s from room %s: %v", userID, roomID, err)
			return
		}
	}

	h.Hub.Leave <- Subscription{Client: client, RoomID: roomID}
	if client.RoomID == roomID {
		client.RoomID = ""
		client.UserID = ""
		client.UserName = ""
	}

	h.broadcast(roomID, client, models.EventUserLeft, models.PresencePayload{
		UserID:   userID,
		UserName: userName,
		Message:  userName + " left the room",
		Users:    h.roster(roomID),
	})
	log.Printf("[Relay] User %s left room %s", userID, roomID)
}

func (h *RelayHandler) handleTransform(client *Client, data json.RawMessage) {
	var msg models.TransformMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Printf("[Relay] Bad transformUpdate payload from %s: %v", client.ConnID, err)
		return
	}
	if msg.Name == "" || (msg.Quaternion == nil && msg.Rotation == nil) {
		log.Printf("[Relay] Dropping malformed transform update from %s", client.ConnID)
		return
	}

	roomID := msg.RoomID
	if roomID == "" {
		roomID = client.RoomID
	}
	if roomID == "" {
		log.Printf("[Relay] Transform update from %s outside any room", client.ConnID)
		return
	}

	// Pure fan-out, sender excluded. The relay never interprets poses.
	h.broadcast(roomID, client, models.EventTransformUpdate, msg)
}

func (h *RelayHandler) handleChat(client *Client, data json.RawMessage) {
	var payload models.ChatPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		log.Printf("[Relay] Bad sendMessage payload from %s: %v", client.ConnID, err)
		return
	}
	roomID := payload.RoomID
	if roomID == "" {
		roomID = client.RoomID
	}
	if roomID == "" {
		return
	}

	message := models.ChatMessage{
		ID:        strconv.FormatInt(time.Now().UnixMilli(), 10),
		Type:      "message",
		UserID:    payload.UserID,
		UserName:  payload.UserName,
		Message:   payload.Message,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Users:     h.roster(roomID),
	}
	// Chat goes to the whole room, sender included.
	h.broadcast(roomID, nil, models.EventNewMessage, message)
}

// disconnect replays a leave using whatever association was cached at
// join time. If the client never joined, nothing to clean up.
func (h *RelayHandler) disconnect(client *Client) {
	if client.RoomID == "" || client.UserID == "" {
		return
	}
	log.Printf("[Relay] Replaying leave for %s after abrupt disconnect", client.UserID)
	h.leave(client, client.RoomID, client.UserID, client.UserName)
}

// ListOccupants serves GET /api/v1/rooms/{roomID}/occupants with the
// persisted roster plus live socket count.
func (h *RelayHandler) ListOccupants(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["roomID"]
	if roomID == "" {
		http.Error(w, "Room ID is required", http.StatusBadRequest)
		return
	}

	ctx, cancel := opCtx()
	defer cancel()
	users, err := h.Store.Roster(ctx, roomID, h.RosterLimit)
	if err != nil {
		log.Printf("[Relay] Failed to load roster for room %s: %v", roomID, err)
		http.Error(w, "Failed to load roster", http.StatusInternalServerError)
		return
	}
	total, err := h.Store.Count(ctx, roomID)
	if err != nil {
		log.Printf("[Relay] Failed to count room %s: %v", roomID, err)
		http.Error(w, "Failed to load roster", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"roomId":      roomID,
		"users":       users,
		"occupants":   total,
		"activeUsers": h.Hub.ActiveRoomCount(roomID),
	})
}

func (h *RelayHandler) roster(roomID string) []models.RoomUser {
	ctx, cancel := opCtx()
	defer cancel()
	users, err := h.Store.Roster(ctx, roomID, h.RosterLimit)
	if err != nil {
		log.Printf("[Relay] Failed to load roster for room %s: %v", roomID, err)
		return []models.RoomUser{}
	}
	if users == nil {
		users = []models.RoomUser{}
	}
	return users
}

func (h *RelayHandler) send(client *Client, event string, data any) {
	frame, err := models.NewEnvelope(event, data)
	if err != nil {
		log.Printf("[Relay] Failed to encode %s frame: %v", event, err)
		return
	}
	h.Hub.Direct <- DirectMessage{Client: client, Data: frame}
}

func (h *RelayHandler) broadcast(roomID string, exclude *Client, event string, data any) {
	frame, err := models.NewEnvelope(event, data)
	if err != nil {
		log.Printf("[Relay] Failed to encode %s frame: %v", event, err)
		return
	}
	h.Hub.Broadcast <- BroadcastMessage{RoomID: roomID, Data: frame, Exclude: exclude}
}

func opCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}
