package ws

import (
	"sync"
)

// Hub fans room-scoped frames out to every socket joined to the room.
// It keeps no message state of its own: each frame is forwarded once
// and forgotten, which is what makes the relay stateless.
type Hub struct {
	Clients    map[string]map[*Client]bool // roomID -> clients
	Join       chan Subscription
	Leave      chan Subscription
	Unregister chan *Client
	Broadcast  chan BroadcastMessage
	Direct     chan DirectMessage
	mu         sync.RWMutex
}

// Subscription binds a client to a room.
type Subscription struct {
	Client *Client
	RoomID string
}

// BroadcastMessage is one frame for every socket in a room. Exclude
// suppresses echo back to the sender; transform and leave events always
// set it, global announcements may not.
type BroadcastMessage struct {
	RoomID  string
	Data    []byte
	Exclude *Client
}

// DirectMessage is a private frame for a single socket (roomUsers
// snapshot, pong). Routed through the hub so Send channel closes stay
// single-threaded.
type DirectMessage struct {
	Client *Client
	Data   []byte
}

func NewHub() *Hub {
	return &Hub{
		Clients:    make(map[string]map[*Client]bool),
		Join:       make(chan Subscription),
		Leave:      make(chan Subscription),
		Unregister: make(chan *Client),
		Broadcast:  make(chan BroadcastMessage),
		Direct:     make(chan DirectMessage),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case sub := <-h.Join:
			h.mu.Lock()
			if h.Clients[sub.RoomID] == nil {
				h.Clients[sub.RoomID] = make(map[*Client]bool)
			}
			h.Clients[sub.RoomID][sub.Client] = true
			h.mu.Unlock()
		case sub := <-h.Leave:
			// Room leave only; the socket stays alive.
			h.mu.Lock()
			if clients, ok := h.Clients[sub.RoomID]; ok {
				delete(clients, sub.Client)
				if len(clients) == 0 {
					delete(h.Clients, sub.RoomID)
				}
			}
			h.mu.Unlock()
		case client := <-h.Unregister:
			h.mu.Lock()
			for roomID, clients := range h.Clients {
				if _, ok := clients[client]; ok {
					delete(clients, client)
					if len(clients) == 0 {
						delete(h.Clients, roomID)
					}
				}
			}
			close(client.Send)
			h.mu.Unlock()
		case msg := <-h.Broadcast:
			h.mu.RLock()
			for client := range h.Clients[msg.RoomID] {
				if client == msg.Exclude {
					continue
				}
				select {
				case client.Send <- msg.Data:
				default:
					// Slow consumer; drop the frame rather than stall
					// the fan-out.
				}
			}
			h.mu.RUnlock()
		case msg := <-h.Direct:
			select {
			case msg.Client.Send <- msg.Data:
			default:
			}
		}
	}
}

// ActiveRoomCount reports how many sockets are currently joined to the
// room, independent of the persisted occupant roster.
func (h *Hub) ActiveRoomCount(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.Clients[roomID])
}
