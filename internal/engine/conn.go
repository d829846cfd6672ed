// Package engine is the client-side half of the sync protocol: the
// connection manager, the transform publisher/subscriber and the room
// membership manager. The render host owns the scene tree and the
// manipulation tool; this package only observes them and exchanges wire
// events through a single shared connection.
package engine

import (
	"encoding/json"
	"errors"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/studio3d/scenesync/internal/models"
)

// ErrNotConnected is returned by Emit when no websocket is established.
var ErrNotConnected = errors.New("connection not established")

// Connection is the transport surface the publisher and membership
// manager depend on. *Manager is the production implementation.
type Connection interface {
	Connect() error
	Connected() bool
	ConnectionID() string
	Emit(event string, data any) error
}

// Handler receives the raw data payload of one wire event.
type Handler func(data json.RawMessage)

// Manager owns the process-wide websocket connection: created lazily on
// first Connect, torn down explicitly, never recycled implicitly while
// in use. A fresh connection id is assigned per successful dial so
// consumers can tell a reconnect apart from the original session.
type Manager struct {
	mu       sync.Mutex
	url      string
	conn     *websocket.Conn
	connID   string
	handlers map[string][]Handler
	status   []func(connected bool)
}

func NewManager(url string) *Manager {
	return &Manager{
		url:      url,
		handlers: make(map[string][]Handler),
	}
}

// Connect dials the relay if no connection is live. Idempotent.
func (m *Manager) Connect() error {
	m.mu.Lock()
	if m.conn != nil {
		m.mu.Unlock()
		return nil
	}

	conn, _, err := websocket.DefaultDialer.Dial(m.url, nil)
	if err != nil {
		m.mu.Unlock()
		log.Printf("[Conn] Dial %s failed: %v", m.url, err)
		return err
	}
	m.conn = conn
	m.connID = uuid.NewString()
	m.mu.Unlock()

	go m.readLoop(conn)
	m.notifyStatus(true)
	log.Printf("[Conn] Connected to %s (connection id %s)", m.url, m.ConnectionID())
	return nil
}

func (m *Manager) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conn != nil
}

// ConnectionID identifies the current dial; it changes on reconnect and
// is empty before the first Connect.
func (m *Manager) ConnectionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connID
}

// Emit sends one event frame. Fire-and-forget: delivery is only as
// reliable as the underlying stream.
func (m *Manager) Emit(event string, data any) error {
	frame, err := models.NewEnvelope(event, data)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn == nil {
		return ErrNotConnected
	}
	return m.conn.WriteMessage(websocket.TextMessage, frame)
}

// On registers a handler for an incoming event. Handlers run on the
// read loop goroutine and must do bounded, non-blocking work.
func (m *Manager) On(event string, h Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[event] = append(m.handlers[event], h)
}

// OnStatus registers a connectivity callback (true on connect, false on
// loss). Used for passive status indicators and re-join triggers.
func (m *Manager) OnStatus(f func(connected bool)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = append(m.status, f)
}

// Teardown closes the connection explicitly (logout path). Status
// callbacks are not invoked; this is a deliberate shutdown, not a loss.
func (m *Manager) Teardown() error {
	m.mu.Lock()
	conn := m.conn
	m.conn = nil
	m.mu.Unlock()

	if conn == nil {
		return nil
	}
	return conn.Close()
}

func (m *Manager) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}

		var env models.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			log.Printf("[Conn] Dropping malformed frame: %v", err)
			continue
		}
		for _, h := range m.handlersFor(env.Event) {
			h(env.Data)
		}
	}

	m.mu.Lock()
	lost := m.conn == conn
	if lost {
		m.conn = nil
	}
	m.mu.Unlock()

	if lost {
		log.Printf("[Conn] Connection lost")
		m.notifyStatus(false)
	}
}

func (m *Manager) handlersFor(event string) []Handler {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Handler(nil), m.handlers[event]...)
}

func (m *Manager) notifyStatus(connected bool) {
	m.mu.Lock()
	callbacks := make([]func(bool), len(m.status))
	copy(callbacks, m.status)
	m.mu.Unlock()
	for _, f := range callbacks {
		f(connected)
	}
}
