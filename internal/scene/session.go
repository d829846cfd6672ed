package scene

import (
	"sync"

	"github.com/studio3d/scenesync/internal/models"
)

// ManipulationSession tracks the node currently attached to the local
// transform tool. It exists only while a drag gesture is active; its
// presence is what the echo guard consults.
type ManipulationSession struct {
	mu       sync.Mutex
	attached *Node
	mode     models.TransformMode
}

func NewManipulationSession() *ManipulationSession {
	return &ManipulationSession{mode: models.ModeTranslate}
}

// Attach binds a node (or a synthetic handle group wrapping the real
// selection) to the session for the duration of a gesture.
func (s *ManipulationSession) Attach(n *Node, mode models.TransformMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attached = n
	s.mode = mode
}

func (s *ManipulationSession) Detach() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attached = nil
}

func (s *ManipulationSession) Attached() *Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attached
}

func (s *ManipulationSession) Mode() models.TransformMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

func (s *ManipulationSession) Active() bool {
	return s.Attached() != nil
}

// Target resolves the actual manipulated object, unwrapping one level
// when the tool attached a synthetic (unnamed) group wrapper. A named
// group is a real scene object and is returned as-is.
func (s *ManipulationSession) Target() *Node {
	attached := s.Attached()
	if attached == nil {
		return nil
	}
	if attached.Name == "" && len(attached.Children()) > 0 {
		return attached.Children()[0]
	}
	return attached
}

// EchoGuard suppresses re-application of transforms that originated
// from the local client's own active gesture. The local client is the
// authority for its gesture; applying a relayed echo mid-drag causes
// jitter against the input handler.
type EchoGuard struct {
	session *ManipulationSession
}

func NewEchoGuard(session *ManipulationSession) *EchoGuard {
	return &EchoGuard{session: session}
}

// ShouldIgnore reports whether a message naming the given object refers
// to the node (or a descendant of the handle group) currently under
// local manipulation. Evaluated against the live session on every call;
// the attachment changes across gestures.
func (g *EchoGuard) ShouldIgnore(name string) bool {
	attached := g.session.Attached()
	if attached == nil || name == "" {
		return false
	}
	if attached.Name == name {
		return true
	}
	return findInSubtree(attached, name) != nil
}
