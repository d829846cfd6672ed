package engine

import (
	"encoding/json"
	"log"

	"github.com/studio3d/scenesync/internal/models"
	"github.com/studio3d/scenesync/internal/scene"
)

// Subscriber applies incoming transformUpdate events to the local scene
// graph. It is the only path that mutates remote-originated geometry.
// Every failure mode degrades to "that one remote edit was missed":
// echoes are skipped, unknown names are logged and dropped, malformed
// payloads are dropped with a warning.
type Subscriber struct {
	root  *scene.Node
	index *scene.Index
	guard *scene.EchoGuard
}

func NewSubscriber(root *scene.Node, index *scene.Index, guard *scene.EchoGuard) *Subscriber {
	return &Subscriber{root: root, index: index, guard: guard}
}

// Bind registers the subscriber on the connection's transformUpdate
// stream.
func (s *Subscriber) Bind(conn *Manager) {
	conn.On(models.EventTransformUpdate, func(data json.RawMessage) {
		var msg models.TransformMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("[Subscriber] Dropping undecodable transform update: %v", err)
			return
		}
		s.HandleTransform(msg)
	})
}

// HandleTransform applies one message. Applying the identical message
// twice yields the same pose, provided no ancestor moved in between
// (see scene.Decode).
func (s *Subscriber) HandleTransform(msg models.TransformMessage) {
	if msg.Name == "" {
		log.Printf("[Subscriber] Dropping transform update without object name")
		return
	}

	pose, ok := scene.PoseFromMessage(msg)
	if !ok {
		log.Printf("[Subscriber] Dropping transform update for %q: no quaternion or rotation", msg.Name)
		return
	}

	if s.guard.ShouldIgnore(msg.Name) {
		log.Printf("[Subscriber] Ignoring own transform update for %q", msg.Name)
		return
	}

	node := s.index.Resolve(msg.Name)
	if node == nil {
		log.Printf("[Subscriber] Object %q not found in scene, dropping update", msg.Name)
		return
	}

	scene.Decode(node, pose, s.root)
}
