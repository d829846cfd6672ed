// Package scene holds the client-side scene graph primitives the sync
// engine operates on: the node tree, the name index, the world/local
// pose codec and the manipulation session. The engine never creates or
// destroys nodes on behalf of the render host; it only reads and writes
// transform fields on nodes it is handed.
package scene

import "github.com/go-gl/mathgl/mgl64"

// Node is one element of the scene tree. Name is treated as a lookup
// key for sync purposes even though the tree does not enforce
// uniqueness. A node may be reparented (e.g. pulled under a
// manipulation handle) without losing its name-based identity.
type Node struct {
	Name string

	LocalPosition mgl64.Vec3
	LocalRotation mgl64.Quat
	LocalScale    mgl64.Vec3

	// AutoUpdate mirrors the renderer's matrix auto-update flag: when
	// false the cached world matrix is managed manually and
	// UpdateWorldMatrix leaves it untouched.
	AutoUpdate bool

	parent      *Node
	children    []*Node
	worldMatrix mgl64.Mat4
}

func NewNode(name string) *Node {
	return &Node{
		Name:          name,
		LocalRotation: mgl64.QuatIdent(),
		LocalScale:    mgl64.Vec3{1, 1, 1},
		AutoUpdate:    true,
		worldMatrix:   mgl64.Ident4(),
	}
}

func (n *Node) Parent() *Node { return n.parent }

func (n *Node) Children() []*Node { return n.children }

// Add appends child to n, detaching it from any previous parent first.
func (n *Node) Add(child *Node) {
	if child.parent != nil {
		child.parent.Remove(child)
	}
	child.parent = n
	n.children = append(n.children, child)
}

func (n *Node) Remove(child *Node) {
	for i, c := range n.children {
		if c == child {
			n.children = append(n.children[:i], n.children[i+1:]...)
			child.parent = nil
			return
		}
	}
}

// LocalMatrix composes the node's local transform as T * R * S.
func (n *Node) LocalMatrix() mgl64.Mat4 {
	t := mgl64.Translate3D(n.LocalPosition.X(), n.LocalPosition.Y(), n.LocalPosition.Z())
	r := n.LocalRotation.Mat4()
	s := mgl64.Scale3D(n.LocalScale.X(), n.LocalScale.Y(), n.LocalScale.Z())
	return t.Mul4(r).Mul4(s)
}

// WorldMatrix returns the cached world matrix. Call UpdateWorldMatrix
// after mutating local fields to refresh it.
func (n *Node) WorldMatrix() mgl64.Mat4 { return n.worldMatrix }

// UpdateWorldMatrix recomputes the cached world matrix from the local
// transform and the ancestor chain. Ancestors are refreshed first; when
// recursive is true the whole subtree below n is refreshed as well.
// Nodes with AutoUpdate disabled keep whatever matrix was set manually.
func (n *Node) UpdateWorldMatrix(recursive bool) {
	if n.parent != nil {
		n.parent.UpdateWorldMatrix(false)
	}
	n.refresh(recursive)
}

func (n *Node) refresh(recursive bool) {
	if n.AutoUpdate {
		if n.parent == nil {
			n.worldMatrix = n.LocalMatrix()
		} else {
			n.worldMatrix = n.parent.worldMatrix.Mul4(n.LocalMatrix())
		}
	}
	if recursive {
		for _, c := range n.children {
			c.refresh(true)
		}
	}
}

// WithAutoUpdate runs fn with n's auto-update flag forced on, then
// recomputes the subtree's world matrices and restores the previous
// flag. The recompute and the restore happen on every exit path, so
// dependent reads (echo checks, outline redraw) always see a world
// matrix consistent with the just-written local fields.
func WithAutoUpdate(n *Node, fn func()) {
	prev := n.AutoUpdate
	n.AutoUpdate = true
	defer func() {
		n.UpdateWorldMatrix(true)
		n.AutoUpdate = prev
	}()
	fn()
}
