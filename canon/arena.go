package canon

import "gopkg.in/yaml.v3"

// NodeID is the stable opaque index of a Document node within one Context.
// The zero value means "not assigned".
type NodeID uint32

// arena assigns NodeIDs on first visit. Memoization tables are keyed by
// NodeID rather than by node pointer.
type arena struct {
	ids   map[*yaml.Node]NodeID
	nodes []*yaml.Node
}

func newArena() *arena {
	return &arena{
		ids:   make(map[*yaml.Node]NodeID, 256),
		nodes: make([]*yaml.Node, 1, 256), // slot 0 is reserved
	}
}

// id returns the NodeID of n, assigning the next index on first visit.
// Callers pass unwrapped nodes so an alias and its target share one id.
func (a *arena) id(n *yaml.Node) NodeID {
	if n == nil {
		return 0
	}
	if id, ok := a.ids[n]; ok {
		return id
	}
	id := NodeID(len(a.nodes))
	a.nodes = append(a.nodes, n)
	a.ids[n] = id
	return id
}

// node returns the node registered under id, or nil.
func (a *arena) node(id NodeID) *yaml.Node {
	if id == 0 || int(id) >= len(a.nodes) {
		return nil
	}
	return a.nodes[id]
}

func (a *arena) len() int {
	return len(a.nodes) - 1
}
