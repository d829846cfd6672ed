package scene

// Index resolves object names to live nodes. Search order:
//
//  1. direct children of the scene root,
//  2. the manipulation attachment and its subtree (a dragged node may
//     be temporarily reparented under a handle group and invisible to
//     a root scan),
//  3. full recursive traversal of the scene.
//
// Resolve returns nil when nothing matches; callers drop the message
// rather than treating the miss as fatal, since remote scenes can name
// objects not yet loaded locally.
type Index struct {
	root    *Node
	session *ManipulationSession
}

func NewIndex(root *Node, session *ManipulationSession) *Index {
	return &Index{root: root, session: session}
}

func (x *Index) Resolve(name string) *Node {
	if name == "" {
		return nil
	}

	for _, c := range x.root.Children() {
		if c.Name == name {
			return c
		}
	}

	if attached := x.session.Attached(); attached != nil {
		if attached.Name == name {
			return attached
		}
		if n := findInSubtree(attached, name); n != nil {
			return n
		}
	}

	return findInSubtree(x.root, name)
}

func findInSubtree(n *Node, name string) *Node {
	for _, c := range n.Children() {
		if c.Name == name {
			return c
		}
		if found := findInSubtree(c, name); found != nil {
			return found
		}
	}
	return nil
}
