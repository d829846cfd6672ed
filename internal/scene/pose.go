package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/studio3d/scenesync/internal/models"
)

// WorldPose is a node's position, rotation and scale expressed in the
// scene's global coordinate space, independent of parenting.
type WorldPose struct {
	Position mgl64.Vec3
	Rotation mgl64.Quat
	Scale    mgl64.Vec3
}

// Matrix composes the pose as T * R * S.
func (p WorldPose) Matrix() mgl64.Mat4 {
	t := mgl64.Translate3D(p.Position.X(), p.Position.Y(), p.Position.Z())
	r := p.Rotation.Mat4()
	s := mgl64.Scale3D(p.Scale.X(), p.Scale.Y(), p.Scale.Z())
	return t.Mul4(r).Mul4(s)
}

// Encode computes the node's world pose by composing every ancestor's
// local transform. Groups used purely as manipulation handles compose
// like any other ancestor, so they never leak into the wire format.
func Encode(n *Node) WorldPose {
	pos := n.LocalPosition
	rot := n.LocalRotation
	scale := n.LocalScale

	for p := n.parent; p != nil; p = p.parent {
		pos = p.LocalPosition.Add(p.LocalRotation.Rotate(compMul(p.LocalScale, pos)))
		rot = p.LocalRotation.Mul(rot)
		scale = compMul(p.LocalScale, scale)
	}
	return WorldPose{Position: pos, Rotation: rot, Scale: scale}
}

// Decode writes the world pose into the node's local transform. When
// the node sits directly under root (or has no parent) the world pose
// is the local pose; otherwise position goes through the inverse parent
// world matrix, rotation through the inverse parent world quaternion
// and scale through component-wise division. The node's world matrix is
// recomputed before Decode returns.
//
// Decode is a pure function of the pose and the current ancestor state:
// applying the same pose twice yields the same result only as long as
// no ancestor moved in between.
func Decode(n *Node, pose WorldPose, root *Node) {
	WithAutoUpdate(n, func() {
		if n.parent == nil || n.parent == root {
			n.LocalPosition = pose.Position
			n.LocalRotation = pose.Rotation
			n.LocalScale = pose.Scale
			return
		}

		parentPose := Encode(n.parent)
		inv := parentPose.Matrix().Inv()

		world4 := pose.Position.Vec4(1)
		n.LocalPosition = inv.Mul4x1(world4).Vec3()
		n.LocalRotation = parentPose.Rotation.Inverse().Mul(pose.Rotation).Normalize()
		n.LocalScale = compDiv(pose.Scale, parentPose.Scale)
	})
}

// PoseFromMessage converts wire fields to a pose. The quaternion always
// wins over the Euler rotation; the Euler path exists only for legacy
// senders. Returns false when neither rotation form is present.
func PoseFromMessage(msg models.TransformMessage) (WorldPose, bool) {
	if msg.Quaternion == nil && msg.Rotation == nil {
		return WorldPose{}, false
	}

	pose := WorldPose{
		Position: mgl64.Vec3{msg.Position.X, msg.Position.Y, msg.Position.Z},
		Scale:    mgl64.Vec3{msg.Scale.X, msg.Scale.Y, msg.Scale.Z},
	}
	if msg.Quaternion != nil {
		q := msg.Quaternion
		pose.Rotation = mgl64.Quat{W: q.W, V: mgl64.Vec3{q.X, q.Y, q.Z}}
	} else {
		r := msg.Rotation
		pose.Rotation = mgl64.AnglesToQuat(r.X, r.Y, r.Z, mgl64.XYZ)
	}
	return pose, true
}

// EulerFromQuat extracts XYZ-order Euler angles from a quaternion.
// mathgl provides AnglesToQuat but not the inverse.
func EulerFromQuat(q mgl64.Quat) mgl64.Vec3 {
	m := q.Normalize().Mat4()

	m13 := m.At(0, 2)
	y := math.Asin(clamp(m13, -1, 1))

	var x, z float64
	if math.Abs(m13) < 0.9999999 {
		x = math.Atan2(-m.At(1, 2), m.At(2, 2))
		z = math.Atan2(-m.At(0, 1), m.At(0, 0))
	} else {
		x = math.Atan2(m.At(2, 1), m.At(1, 1))
		z = 0
	}
	return mgl64.Vec3{x, y, z}
}

func compMul(a, b mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{a.X() * b.X(), a.Y() * b.Y(), a.Z() * b.Z()}
}

func compDiv(a, b mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{a.X() / b.X(), a.Y() / b.Y(), a.Z() / b.Z()}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
