package formats

import "fmt"

// Skeleton is a forest of named nodes stored as an arena.
// Nodes are append-only: a node's parent always has a lower index.
type Skeleton struct {
	Nodes []SkeletonNode
	Roots []int

	byName map[string][]int
}

// SkeletonNode is one bone or object in the hierarchy.
type SkeletonNode struct {
	Name      string
	Parent    int // -1 for roots
	Children  []int
	Mesh      string // associated mesh name, if any
	Transform [10]float32
}

// NewSkeleton returns an empty hierarchy.
func NewSkeleton() *Skeleton {
	return &Skeleton{byName: make(map[string][]int)}
}

// Len returns the number of nodes.
func (s *Skeleton) Len() int {
	return len(s.Nodes)
}

// Add appends name under parent. An empty parent creates a new root.
// The parent must already be present.
func (s *Skeleton) Add(name, parent string) (int, error) {
	p := -1
	if parent != "" {
		idx, ok := s.Find(parent)
		if !ok {
			return -1, fmt.Errorf("%w: %q (child %q)", ErrUnresolvedTreeParent, parent, name)
		}
		p = idx
	}

	idx := len(s.Nodes)
	s.Nodes = append(s.Nodes, SkeletonNode{Name: name, Parent: p})
	if p < 0 {
		s.Roots = append(s.Roots, idx)
	} else {
		s.Nodes[p].Children = append(s.Nodes[p].Children, idx)
	}
	if s.byName == nil {
		s.byName = make(map[string][]int)
	}
	s.byName[name] = append(s.byName[name], idx)
	return idx, nil
}

// Find returns the node named name. When several nodes share the name the
// first one in depth-first pre-order wins.
func (s *Skeleton) Find(name string) (int, bool) {
	cands := s.byName[name]
	switch len(cands) {
	case 0:
		return -1, false
	case 1:
		return cands[0], true
	}

	found := -1
	s.Walk(func(idx, _ int) bool {
		if s.Nodes[idx].Name == name {
			found = idx
			return false
		}
		return true
	})
	return found, found >= 0
}

// Path returns the names from the root down to the node named name.
func (s *Skeleton) Path(name string) []string {
	idx, ok := s.Find(name)
	if !ok {
		return nil
	}
	var rev []string
	for ; idx >= 0; idx = s.Nodes[idx].Parent {
		rev = append(rev, s.Nodes[idx].Name)
	}
	path := make([]string, len(rev))
	for i, n := range rev {
		path[len(rev)-1-i] = n
	}
	return path
}

// ParentName returns the parent's name, or "" for roots and unknown names.
func (s *Skeleton) ParentName(name string) string {
	idx, ok := s.Find(name)
	if !ok || s.Nodes[idx].Parent < 0 {
		return ""
	}
	return s.Nodes[s.Nodes[idx].Parent].Name
}

// Walk visits nodes depth-first in pre-order. Returning false from fn stops the walk.
func (s *Skeleton) Walk(fn func(idx, depth int) bool) {
	var visit func(idx, depth int) bool
	visit = func(idx, depth int) bool {
		if !fn(idx, depth) {
			return false
		}
		for _, c := range s.Nodes[idx].Children {
			if !visit(c, depth+1) {
				return false
			}
		}
		return true
	}
	for _, r := range s.Roots {
		if !visit(r, 0) {
			return
		}
	}
}
