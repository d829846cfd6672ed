package scene

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/require"

	"github.com/studio3d/scenesync/internal/models"
)

const eps = 1e-9

func requireVec3(t *testing.T, want, got mgl64.Vec3) {
	t.Helper()
	require.InDelta(t, want.X(), got.X(), eps)
	require.InDelta(t, want.Y(), got.Y(), eps)
	require.InDelta(t, want.Z(), got.Z(), eps)
}

// Rotations compare via their action on basis vectors, which sidesteps
// the q / -q double-cover.
func requireQuat(t *testing.T, want, got mgl64.Quat) {
	t.Helper()
	for _, v := range []mgl64.Vec3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}} {
		requireVec3(t, want.Rotate(v), got.Rotate(v))
	}
}

func requirePose(t *testing.T, want, got WorldPose) {
	t.Helper()
	requireVec3(t, want.Position, got.Position)
	requireQuat(t, want.Rotation, got.Rotation)
	requireVec3(t, want.Scale, got.Scale)
}

func TestEncodeRootChild(t *testing.T) {
	root := NewNode("")
	box := NewNode("Box")
	box.LocalPosition = mgl64.Vec3{1, 2, 3}
	box.LocalRotation = mgl64.QuatRotate(math.Pi/3, mgl64.Vec3{0, 1, 0})
	box.LocalScale = mgl64.Vec3{2, 2, 2}
	root.Add(box)

	pose := Encode(box)
	requireVec3(t, box.LocalPosition, pose.Position)
	requireQuat(t, box.LocalRotation, pose.Rotation)
	requireVec3(t, box.LocalScale, pose.Scale)
}

func TestEncodeNested(t *testing.T) {
	root := NewNode("")
	group := NewNode("Group1")
	group.LocalPosition = mgl64.Vec3{2, 0, 0}
	root.Add(group)

	box := NewNode("Box")
	box.LocalPosition = mgl64.Vec3{1, 0, 0}
	group.Add(box)

	pose := Encode(box)
	requireVec3(t, mgl64.Vec3{3, 0, 0}, pose.Position)
}

func TestEncodeNestedRotatedScaled(t *testing.T) {
	root := NewNode("")
	group := NewNode("Group1")
	group.LocalPosition = mgl64.Vec3{0, 1, 0}
	group.LocalRotation = mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 0, 1})
	group.LocalScale = mgl64.Vec3{2, 2, 2}
	root.Add(group)

	box := NewNode("Box")
	box.LocalPosition = mgl64.Vec3{1, 0, 0}
	group.Add(box)

	pose := Encode(box)
	// (1,0,0) scaled to (2,0,0), rotated 90deg about Z to (0,2,0),
	// translated by (0,1,0).
	requireVec3(t, mgl64.Vec3{0, 3, 0}, pose.Position)
	requireVec3(t, mgl64.Vec3{2, 2, 2}, pose.Scale)
}

func TestRoundTripIdentity(t *testing.T) {
	build := func() (root, box *Node) {
		root = NewNode("")

		outer := NewNode("Outer")
		outer.LocalPosition = mgl64.Vec3{-1, 4, 2}
		outer.LocalRotation = mgl64.QuatRotate(0.7, mgl64.Vec3{0, 1, 0})
		outer.LocalScale = mgl64.Vec3{2, 2, 2}
		root.Add(outer)

		inner := NewNode("Inner")
		inner.LocalPosition = mgl64.Vec3{0.5, 0, -3}
		inner.LocalRotation = mgl64.QuatRotate(-0.3, mgl64.Vec3{1, 0, 0})
		inner.LocalScale = mgl64.Vec3{0.5, 0.5, 0.5}
		outer.Add(inner)

		box = NewNode("Box")
		box.LocalPosition = mgl64.Vec3{1, 2, 3}
		box.LocalRotation = mgl64.QuatRotate(1.1, mgl64.Vec3{0, 0, 1})
		box.LocalScale = mgl64.Vec3{3, 3, 3}
		return root, box
	}

	tests := []struct {
		name   string
		attach func(root, box *Node)
	}{
		{"at scene root", func(root, box *Node) {
			root.Add(box)
		}},
		{"nested one level", func(root, box *Node) {
			root.Children()[0].Add(box)
		}},
		{"nested two levels", func(root, box *Node) {
			root.Children()[0].Children()[0].Add(box)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root, box := build()
			tt.attach(root, box)

			before := Encode(box)
			Decode(box, before, root)
			requirePose(t, before, Encode(box))
		})
	}
}

func TestDecodeNestedConvertsToLocal(t *testing.T) {
	root := NewNode("")
	group := NewNode("Group1")
	group.LocalPosition = mgl64.Vec3{2, 0, 0}
	root.Add(group)

	box := NewNode("Box")
	box.LocalPosition = mgl64.Vec3{1, 0, 0}
	group.Add(box)

	Decode(box, WorldPose{
		Position: mgl64.Vec3{5, 0, 0},
		Rotation: mgl64.QuatIdent(),
		Scale:    mgl64.Vec3{1, 1, 1},
	}, root)

	requireVec3(t, mgl64.Vec3{3, 0, 0}, box.LocalPosition)
	requireVec3(t, mgl64.Vec3{5, 0, 0}, Encode(box).Position)
}

func TestDecodeRootLevelSetsLocalDirectly(t *testing.T) {
	root := NewNode("")
	box := NewNode("Box")
	root.Add(box)

	want := WorldPose{
		Position: mgl64.Vec3{4, 5, 6},
		Rotation: mgl64.QuatRotate(0.4, mgl64.Vec3{0, 1, 0}),
		Scale:    mgl64.Vec3{2, 3, 4},
	}
	Decode(box, want, root)

	requireVec3(t, want.Position, box.LocalPosition)
	requireQuat(t, want.Rotation, box.LocalRotation)
	requireVec3(t, want.Scale, box.LocalScale)
}

func TestDecodeRestoresAutoUpdate(t *testing.T) {
	root := NewNode("")
	box := NewNode("Box")
	root.Add(box)
	box.AutoUpdate = false

	Decode(box, WorldPose{
		Position: mgl64.Vec3{1, 1, 1},
		Rotation: mgl64.QuatIdent(),
		Scale:    mgl64.Vec3{1, 1, 1},
	}, root)

	require.False(t, box.AutoUpdate, "auto-update flag must be restored")

	// The world matrix was still refreshed before the flag came back.
	world := box.WorldMatrix().Mul4x1(mgl64.Vec4{0, 0, 0, 1}).Vec3()
	requireVec3(t, mgl64.Vec3{1, 1, 1}, world)
}

func TestPoseFromMessagePrefersQuaternion(t *testing.T) {
	quat := mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 1, 0})
	msg := models.TransformMessage{
		Name:     "Box",
		Position: models.Vector3{X: 1},
		Scale:    models.Vector3{X: 1, Y: 1, Z: 1},
		// Euler says "no rotation"; quaternion says 90deg about Y.
		Rotation:   &models.Vector3{},
		Quaternion: &models.Quaternion{X: quat.X(), Y: quat.Y(), Z: quat.Z(), W: quat.W},
	}

	pose, ok := PoseFromMessage(msg)
	require.True(t, ok)
	requireQuat(t, quat, pose.Rotation)
}

func TestPoseFromMessageEulerFallback(t *testing.T) {
	msg := models.TransformMessage{
		Name:     "Box",
		Scale:    models.Vector3{X: 1, Y: 1, Z: 1},
		Rotation: &models.Vector3{Y: math.Pi / 2},
	}

	pose, ok := PoseFromMessage(msg)
	require.True(t, ok)
	requireQuat(t, mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 1, 0}), pose.Rotation)
}

func TestPoseFromMessageMissingRotationForms(t *testing.T) {
	_, ok := PoseFromMessage(models.TransformMessage{Name: "Box"})
	require.False(t, ok)
}

func TestEulerFromQuatRoundTrip(t *testing.T) {
	angles := []mgl64.Vec3{
		{0, 0, 0},
		{0.3, -0.4, 0.5},
		{math.Pi / 4, math.Pi / 6, -math.Pi / 3},
	}
	for _, want := range angles {
		q := mgl64.AnglesToQuat(want.X(), want.Y(), want.Z(), mgl64.XYZ)
		got := EulerFromQuat(q)
		requireQuat(t, q, mgl64.AnglesToQuat(got.X(), got.Y(), got.Z(), mgl64.XYZ))
	}
}
