package scene

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/studio3d/scenesync/internal/models"
)

func TestEchoGuardIgnoresAttachedObject(t *testing.T) {
	session := NewManipulationSession()
	guard := NewEchoGuard(session)

	box := NewNode("Box")
	session.Attach(box, models.ModeTranslate)

	assert.True(t, guard.ShouldIgnore("Box"))
	assert.False(t, guard.ShouldIgnore("Other"))
}

func TestEchoGuardIgnoresHandleGroupChildren(t *testing.T) {
	session := NewManipulationSession()
	guard := NewEchoGuard(session)

	handle := NewNode("")
	box := NewNode("Box")
	sphere := NewNode("Sphere")
	handle.Add(box)
	handle.Add(sphere)
	session.Attach(handle, models.ModeRotate)

	assert.True(t, guard.ShouldIgnore("Box"))
	assert.True(t, guard.ShouldIgnore("Sphere"))
	assert.False(t, guard.ShouldIgnore("Cone"))
}

func TestEchoGuardReevaluatesPerGesture(t *testing.T) {
	session := NewManipulationSession()
	guard := NewEchoGuard(session)

	box := NewNode("Box")
	session.Attach(box, models.ModeTranslate)
	assert.True(t, guard.ShouldIgnore("Box"))

	// New gesture on a different node: the old name passes again.
	sphere := NewNode("Sphere")
	session.Attach(sphere, models.ModeTranslate)
	assert.False(t, guard.ShouldIgnore("Box"))
	assert.True(t, guard.ShouldIgnore("Sphere"))

	session.Detach()
	assert.False(t, guard.ShouldIgnore("Sphere"))
}

func TestSessionTargetUnwrapsSyntheticWrapper(t *testing.T) {
	session := NewManipulationSession()

	handle := NewNode("")
	box := NewNode("Box")
	handle.Add(box)
	session.Attach(handle, models.ModeTranslate)
	assert.Same(t, box, session.Target())

	// A named group is a real scene object, not a wrapper.
	group := NewNode("Group1")
	group.Add(NewNode("Child"))
	session.Attach(group, models.ModeScale)
	assert.Same(t, group, session.Target())

	session.Detach()
	assert.Nil(t, session.Target())
	assert.False(t, session.Active())
}
