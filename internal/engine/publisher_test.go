package engine

import (
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studio3d/scenesync/internal/models"
	"github.com/studio3d/scenesync/internal/scene"
)

func TestPublisherSendsWorldPose(t *testing.T) {
	conn := newFakeConn()
	session := scene.NewManipulationSession()
	pub := NewPublisher(conn, session)
	pub.RoomID = "r1"

	root := scene.NewNode("")
	group := scene.NewNode("Group1")
	group.LocalPosition = mgl64.Vec3{2, 0, 0}
	root.Add(group)
	box := scene.NewNode("Box")
	box.LocalPosition = mgl64.Vec3{1, 0, 0}
	group.Add(box)

	session.Attach(box, models.ModeTranslate)
	pub.OnManipulationChange()

	rec, ok := conn.lastEvent(models.EventTransformUpdate)
	require.True(t, ok)
	msg := transformOf(rec)
	assert.Equal(t, "Box", msg.Name)
	assert.Equal(t, "r1", msg.RoomID)
	assert.Equal(t, models.ModeTranslate, msg.Mode)
	// World-space, not the (1,0,0) local position.
	assert.InDelta(t, 3.0, msg.Position.X, 1e-9)
	require.NotNil(t, msg.Quaternion)
	require.NotNil(t, msg.Rotation)
}

func TestPublisherUnwrapsHandleGroup(t *testing.T) {
	conn := newFakeConn()
	session := scene.NewManipulationSession()
	pub := NewPublisher(conn, session)

	handle := scene.NewNode("")
	handle.LocalPosition = mgl64.Vec3{5, 0, 0}
	box := scene.NewNode("Box")
	handle.Add(box)

	session.Attach(handle, models.ModeTranslate)
	pub.OnManipulationChange()

	rec, ok := conn.lastEvent(models.EventTransformUpdate)
	require.True(t, ok)
	msg := transformOf(rec)
	assert.Equal(t, "Box", msg.Name)
	// Handle transform composes into the child's world pose.
	assert.InDelta(t, 5.0, msg.Position.X, 1e-9)
}

func TestPublisherDropsUnnamedObject(t *testing.T) {
	conn := newFakeConn()
	session := scene.NewManipulationSession()
	pub := NewPublisher(conn, session)

	session.Attach(scene.NewNode(""), models.ModeTranslate)
	pub.OnManipulationChange()

	assert.Zero(t, conn.countEvent(models.EventTransformUpdate))
}

func TestPublisherNoActiveSession(t *testing.T) {
	conn := newFakeConn()
	pub := NewPublisher(conn, scene.NewManipulationSession())

	pub.OnManipulationChange()
	assert.Empty(t, conn.recorded())
}

func TestPublisherRetriesOnceAfterReconnect(t *testing.T) {
	conn := newFakeConn()
	conn.setConnected(false, "")
	session := scene.NewManipulationSession()
	pub := NewPublisher(conn, session)
	pub.RetryDelay = 10 * time.Millisecond

	session.Attach(scene.NewNode("Box"), models.ModeTranslate)
	pub.OnManipulationChange()

	// Nothing sent synchronously while disconnected.
	assert.Zero(t, conn.countEvent(models.EventTransformUpdate))

	// fakeConn.Connect succeeded, so the single retry lands.
	assert.Eventually(t, func() bool {
		return conn.countEvent(models.EventTransformUpdate) == 1
	}, time.Second, 5*time.Millisecond)

	// Exactly one retry; nothing queued beyond it.
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 1, conn.countEvent(models.EventTransformUpdate))
}

func TestPublisherCoalescesIntermediateTicks(t *testing.T) {
	conn := newFakeConn()
	session := scene.NewManipulationSession()
	pub := NewPublisher(conn, session)
	pub.MinInterval = time.Minute

	session.Attach(scene.NewNode("Box"), models.ModeTranslate)

	for i := 0; i < 5; i++ {
		pub.OnManipulationChange()
	}
	assert.Equal(t, 1, conn.countEvent(models.EventTransformUpdate))

	// The end-of-gesture tick bypasses coalescing.
	pub.OnManipulationEnd()
	assert.Equal(t, 2, conn.countEvent(models.EventTransformUpdate))
}
