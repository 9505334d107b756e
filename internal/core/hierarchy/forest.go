package hierarchy

import "errors"

// ErrCycleDetected is returned when an ancestor walk revisits a node. The
// write path is supposed to keep the stored tree acyclic, but traversal never
// trusts that: a corrupt row must not hang a request.
var ErrCycleDetected = errors.New("cycle detected in hierarchy")

// Forest is an in-memory snapshot of a self-referencing tree: node id to
// parent id, nil parent meaning root. The same type serves the department
// tree and the user manager forest; traversal works on adjacency only and
// never touches storage.
type Forest struct {
	parent   map[int64]*int64
	children map[int64][]int64
}

// NewForest builds a forest from an id -> parent adjacency map. The child
// index is materialized once so descendant walks do not rescan the map.
func NewForest(parent map[int64]*int64) *Forest {
	f := &Forest{
		parent:   make(map[int64]*int64, len(parent)),
		children: make(map[int64][]int64),
	}
	for id, p := range parent {
		f.parent[id] = p
		if p != nil {
			f.children[*p] = append(f.children[*p], id)
		}
	}
	return f
}

// Contains reports whether the node is part of the snapshot.
func (f *Forest) Contains(id int64) bool {
	_, ok := f.parent[id]
	return ok
}

// Size returns the number of nodes in the snapshot.
func (f *Forest) Size() int {
	return len(f.parent)
}

// ParentOf returns the node's parent id, or nil for roots and unknown ids.
func (f *Forest) ParentOf(id int64) *int64 {
	return f.parent[id]
}

// ChildrenOf returns direct children only. Call sites that need one level
// must use this instead of DescendantsOf.
func (f *Forest) ChildrenOf(id int64) []int64 {
	kids := f.children[id]
	out := make([]int64, len(kids))
	copy(out, kids)
	return out
}

// DescendantsOf returns the transitive descendant set of id, excluding id
// itself. The visited set bounds the walk, so even a corrupted snapshot with
// a parent cycle terminates; order of the result is unspecified.
func (f *Forest) DescendantsOf(id int64) map[int64]struct{} {
	visited := map[int64]struct{}{id: {}}
	result := make(map[int64]struct{})

	queue := append([]int64(nil), f.children[id]...)
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if _, seen := visited[next]; seen {
			continue
		}
		visited[next] = struct{}{}
		result[next] = struct{}{}
		queue = append(queue, f.children[next]...)
	}
	return result
}

// AncestorChainOf walks parent links from id up to the root, returning the
// ordered chain from immediate parent to root. A node with no parent yields
// an empty chain, not an error. Revisiting any id fails with
// ErrCycleDetected.
func (f *Forest) AncestorChainOf(id int64) ([]int64, error) {
	visited := map[int64]struct{}{id: {}}
	chain := []int64{}

	current := f.parent[id]
	for current != nil {
		if _, seen := visited[*current]; seen {
			return nil, ErrCycleDetected
		}
		visited[*current] = struct{}{}
		chain = append(chain, *current)
		current = f.parent[*current]
	}
	return chain, nil
}

// Roots returns every node without a parent.
func (f *Forest) Roots() []int64 {
	var roots []int64
	for id, p := range f.parent {
		if p == nil {
			roots = append(roots, id)
		}
	}
	return roots
}

// WouldCycle reports whether reattaching id under newParent would make id
// its own ancestor: true when newParent is id itself or any transitive
// descendant of id. A nil newParent (detach to root) never cycles.
func (f *Forest) WouldCycle(id int64, newParent *int64) bool {
	if newParent == nil {
		return false
	}
	if *newParent == id {
		return true
	}
	_, isDescendant := f.DescendantsOf(id)[*newParent]
	return isDescendant
}
