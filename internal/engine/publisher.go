package engine

import (
	"log"
	"sync"
	"time"

	"github.com/studio3d/scenesync/internal/models"
	"github.com/studio3d/scenesync/internal/scene"
)

// Publisher turns local manipulation ticks into transformUpdate events.
// This is a streaming contract, not a commit protocol: the render host
// invokes OnManipulationChange once per drag tick and OnManipulationEnd
// on release. Intermediate ticks may be coalesced under MinInterval;
// the end tick is always sent. The publisher never mutates the scene —
// the manipulation tool already owns the dragged node's transform.
type Publisher struct {
	conn    Connection
	session *scene.ManipulationSession

	// RoomID is stamped onto outgoing messages when set.
	RoomID string

	// RetryDelay is the wait before the single best-effort resend when
	// the connection was down at tick time.
	RetryDelay time.Duration

	// MinInterval drops intermediate ticks arriving faster than this.
	// Zero sends every tick.
	MinInterval time.Duration

	mu       sync.Mutex
	lastSent time.Time
}

func NewPublisher(conn Connection, session *scene.ManipulationSession) *Publisher {
	return &Publisher{
		conn:       conn,
		session:    session,
		RetryDelay: 100 * time.Millisecond,
	}
}

// OnManipulationChange publishes the current gesture state. Fired
// continuously while dragging.
func (p *Publisher) OnManipulationChange() {
	p.publish(false)
}

// OnManipulationEnd publishes the final pose of a gesture, bypassing
// interval coalescing.
func (p *Publisher) OnManipulationEnd() {
	p.publish(true)
}

func (p *Publisher) publish(final bool) {
	target := p.session.Target()
	if target == nil {
		log.Printf("[Publisher] No object attached to manipulation tool")
		return
	}
	if target.Name == "" {
		// Unnamed objects cannot be round-tripped by the receiver.
		log.Printf("[Publisher] Attached object has no name, dropping transform update")
		return
	}

	if !final && p.MinInterval > 0 {
		p.mu.Lock()
		if time.Since(p.lastSent) < p.MinInterval {
			p.mu.Unlock()
			return
		}
		p.mu.Unlock()
	}

	msg := p.buildMessage(target)

	if !p.conn.Connected() {
		log.Printf("[Publisher] Connection down, reconnecting before send")
		if err := p.conn.Connect(); err != nil {
			log.Printf("[Publisher] Reconnect failed: %v", err)
		}
		// Single bounded retry; this is a best-effort channel, not a queue.
		time.AfterFunc(p.RetryDelay, func() {
			if !p.conn.Connected() {
				log.Printf("[Publisher] Still disconnected, skipping transform update for %q", msg.Name)
				return
			}
			p.send(msg)
		})
		return
	}

	p.send(msg)
}

func (p *Publisher) buildMessage(target *scene.Node) models.TransformMessage {
	pose := scene.Encode(target)
	euler := scene.EulerFromQuat(pose.Rotation)

	return models.TransformMessage{
		Name: target.Name,
		Position: models.Vector3{
			X: pose.Position.X(), Y: pose.Position.Y(), Z: pose.Position.Z(),
		},
		Rotation: &models.Vector3{
			X: euler.X(), Y: euler.Y(), Z: euler.Z(),
		},
		Quaternion: &models.Quaternion{
			X: pose.Rotation.X(), Y: pose.Rotation.Y(), Z: pose.Rotation.Z(), W: pose.Rotation.W,
		},
		Scale: models.Vector3{
			X: pose.Scale.X(), Y: pose.Scale.Y(), Z: pose.Scale.Z(),
		},
		Mode:   p.session.Mode(),
		RoomID: p.RoomID,
	}
}

func (p *Publisher) send(msg models.TransformMessage) {
	if err := p.conn.Emit(models.EventTransformUpdate, msg); err != nil {
		log.Printf("[Publisher] Failed to send transform update for %q: %v", msg.Name, err)
		return
	}
	p.mu.Lock()
	p.lastSent = time.Now()
	p.mu.Unlock()
}
