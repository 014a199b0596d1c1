package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/omixflow/workbench/internal/store"
)

// loadWorkspace fetches the owner's workspace, materializing an empty one
// on first access. Owners get exactly one workspace each.
func (s *Service) loadWorkspace(ctx context.Context, owner string) (*Workspace, error) {
	if strings.TrimSpace(owner) == "" {
		return nil, invalidf("workspace owner is required")
	}

	doc, err := s.store.Get(ctx, collWorkspaces, owner)
	if errors.Is(err, store.ErrNotFound) {
		now := s.now()
		ws := &Workspace{Owner: owner, Tree: []Node{}, CreatedAt: now, UpdatedAt: now}
		if err := s.putDoc(ctx, collWorkspaces, owner, ws); err != nil {
			return nil, err
		}
		return ws, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load workspace %s: %w", owner, err)
	}

	var ws Workspace
	if err := fromDoc(doc, &ws); err != nil {
		return nil, fmt.Errorf("load workspace %s: %w", owner, err)
	}
	if ws.Tree == nil {
		ws.Tree = []Node{}
	}
	return &ws, nil
}

func (s *Service) saveWorkspace(ctx context.Context, ws *Workspace) error {
	ws.UpdatedAt = s.now()
	return s.putDoc(ctx, collWorkspaces, ws.Owner, ws)
}

// GetTree returns the owner's root node sequence and current selection.
// The tree is never nil; a missing workspace reads as empty.
func (s *Service) GetTree(ctx context.Context, owner string) (*Workspace, error) {
	return s.loadWorkspace(ctx, owner)
}

// CreateNode creates a file or folder. With no parentID the node is
// appended at root; otherwise it is appended to the children of the
// matching folder. Creating a file moves the selection to it; folders do
// not become selected.
func (s *Service) CreateNode(ctx context.Context, owner, parentID string, kind NodeKind, label string) (*Node, error) {
	if !kind.Valid() {
		return nil, invalidf("invalid node type %q", kind)
	}
	if strings.TrimSpace(label) == "" {
		switch kind {
		case KindFolder:
			label = "New Folder"
		default:
			label = "New File"
		}
	}

	ws, err := s.loadWorkspace(ctx, owner)
	if err != nil {
		return nil, err
	}

	now := s.now()
	node := Node{
		ID:        string(kind) + "-" + uuid.New().String(),
		Label:     label,
		Kind:      kind,
		CreatedAt: now,
		UpdatedAt: now,
	}
	switch kind {
	case KindFolder:
		node.Expanded = true
		node.Children = []Node{}
	case KindFile:
		node.Content = Payload{}
	}

	if parentID == "" {
		ws.Tree = append(ws.Tree, node)
	} else {
		parent := findNode(ws.Tree, parentID)
		if parent == nil {
			return nil, notFoundf("parent node %s", parentID)
		}
		if parent.Kind != KindFolder {
			return nil, fmt.Errorf("node %s is a file and cannot contain children: %w", parentID, ErrInvalidParent)
		}
		tree, ok := insertChild(ws.Tree, parentID, node)
		if !ok {
			return nil, notFoundf("parent node %s", parentID)
		}
		ws.Tree = tree
	}

	if kind == KindFile {
		ws.SelectedNodeID = node.ID
	}

	if err := s.saveWorkspace(ctx, ws); err != nil {
		return nil, err
	}
	return &node, nil
}

// GetNode returns a node by id. Reading a file marks it selected ("read
// implies open"); folders leave the selection untouched.
func (s *Service) GetNode(ctx context.Context, owner, id string) (*Node, error) {
	ws, err := s.loadWorkspace(ctx, owner)
	if err != nil {
		return nil, err
	}

	node := findNode(ws.Tree, id)
	if node == nil {
		return nil, notFoundf("node %s", id)
	}

	if node.Kind == KindFile && ws.SelectedNodeID != id {
		ws.SelectedNodeID = id
		if err := s.saveWorkspace(ctx, ws); err != nil {
			return nil, err
		}
	}

	result := *node
	return &result, nil
}

// UpdateNode applies a patch to a node's content and/or label.
func (s *Service) UpdateNode(ctx context.Context, owner, id string, patch NodePatch) error {
	ws, err := s.loadWorkspace(ctx, owner)
	if err != nil {
		return err
	}

	tree, ok := updateNode(ws.Tree, id, s.now(), func(n *Node) {
		if patch.Content != nil {
			n.Content = *patch.Content
		}
		if patch.Label != nil {
			n.Label = *patch.Label
		}
	})
	if !ok {
		return notFoundf("node %s", id)
	}

	ws.Tree = tree
	return s.saveWorkspace(ctx, ws)
}

// DeleteNode removes a node and its entire subtree. Deleting an id that
// does not exist is a silent no-op. If the removed node was selected, the
// selection becomes absent.
func (s *Service) DeleteNode(ctx context.Context, owner, id string) error {
	ws, err := s.loadWorkspace(ctx, owner)
	if err != nil {
		return err
	}

	tree, removed := removeNode(ws.Tree, id)
	if !removed {
		return nil
	}

	ws.Tree = tree
	if ws.SelectedNodeID == id {
		ws.SelectedNodeID = ""
	}
	// A dangling selection from an earlier delete reads as "none
	// selected"; clear it while we are writing anyway.
	if ws.SelectedNodeID != "" && findNode(ws.Tree, ws.SelectedNodeID) == nil {
		ws.SelectedNodeID = ""
	}
	return s.saveWorkspace(ctx, ws)
}

// ToggleExpanded sets a node's expanded flag.
func (s *Service) ToggleExpanded(ctx context.Context, owner, id string, expanded bool) error {
	ws, err := s.loadWorkspace(ctx, owner)
	if err != nil {
		return err
	}

	tree, ok := updateNode(ws.Tree, id, s.now(), func(n *Node) {
		n.Expanded = expanded
	})
	if !ok {
		return notFoundf("node %s", id)
	}

	ws.Tree = tree
	return s.saveWorkspace(ctx, ws)
}

// RenameNode sets a node's label. Empty or whitespace-only labels are
// rejected and the prior label is left unchanged.
func (s *Service) RenameNode(ctx context.Context, owner, id, label string) error {
	label = strings.TrimSpace(label)
	if label == "" {
		return invalidf("label cannot be empty")
	}
	return s.UpdateNode(ctx, owner, id, NodePatch{Label: &label})
}
