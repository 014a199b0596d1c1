package core

import "time"

// tree.go implements the recursive primitives of the workspace tree store.
//
// All mutations are copy-on-write: the matched node and its ancestors are
// rebuilt, siblings are carried by reference, so a reader holding an earlier
// snapshot never observes a half-applied mutation. Traversal is
// deterministic depth-first in slice order; if ids were ever duplicated the
// first match wins (duplicates are a caller error, not validated here).

// findNode returns the first node with the given id, depth-first.
func findNode(nodes []Node, id string) *Node {
	for i := range nodes {
		if nodes[i].ID == id {
			return &nodes[i]
		}
		if found := findNode(nodes[i].Children, id); found != nil {
			return found
		}
	}
	return nil
}

// insertChild appends child under parentID, rebuilding the path from the
// parent to the root. Returns the new root slice and whether the parent was
// found. Inserting under a file is the caller's error to detect (via
// findNode) before calling; insertChild only matches folders structurally,
// so a file parent is reported as not found here.
func insertChild(nodes []Node, parentID string, child Node) ([]Node, bool) {
	for i := range nodes {
		if nodes[i].ID == parentID && nodes[i].Kind == KindFolder {
			out := make([]Node, len(nodes))
			copy(out, nodes)
			parent := nodes[i]
			parent.Children = append(append([]Node(nil), nodes[i].Children...), child)
			parent.Expanded = true
			parent.UpdatedAt = child.CreatedAt
			out[i] = parent
			return out, true
		}
		if updated, ok := insertChild(nodes[i].Children, parentID, child); ok {
			out := make([]Node, len(nodes))
			copy(out, nodes)
			node := nodes[i]
			node.Children = updated
			out[i] = node
			return out, true
		}
	}
	return nodes, false
}

// updateNode applies fn to the first node with the given id, rebuilding the
// path from the match to the root. Returns the new root slice and whether a
// node was updated.
func updateNode(nodes []Node, id string, now time.Time, fn func(*Node)) ([]Node, bool) {
	for i := range nodes {
		if nodes[i].ID == id {
			out := make([]Node, len(nodes))
			copy(out, nodes)
			node := nodes[i]
			fn(&node)
			node.UpdatedAt = now
			out[i] = node
			return out, true
		}
		if updated, ok := updateNode(nodes[i].Children, id, now, fn); ok {
			out := make([]Node, len(nodes))
			copy(out, nodes)
			node := nodes[i]
			node.Children = updated
			out[i] = node
			return out, true
		}
	}
	return nodes, false
}

// removeNode removes every node with the given id together with its entire
// subtree. Returns the new root slice and whether anything was removed.
// Children are only ever appended, never cross-linked, so removal cannot
// encounter a cycle.
func removeNode(nodes []Node, id string) ([]Node, bool) {
	out := make([]Node, 0, len(nodes))
	removed := false
	for i := range nodes {
		if nodes[i].ID == id {
			removed = true
			continue
		}
		node := nodes[i]
		if updated, ok := removeNode(node.Children, id); ok {
			node.Children = updated
			removed = true
		}
		out = append(out, node)
	}
	if !removed {
		return nodes, false
	}
	return out, true
}

// countNodes returns the total number of nodes in the tree.
func countNodes(nodes []Node) int {
	n := len(nodes)
	for i := range nodes {
		n += countNodes(nodes[i].Children)
	}
	return n
}
