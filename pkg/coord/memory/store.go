/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package memory implements coord.Store on an in-process node tree. Several sessions can
// share one Tree, which makes ephemeral ownership and session expiry observable in tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/carverauto/zkconfig/pkg/coord"
	"github.com/carverauto/zkconfig/pkg/treepath"
)

type znode struct {
	name     string
	data     []byte
	mode     coord.CreateMode
	owner    string
	children map[string]*znode
}

func newZNode(name string, data []byte, mode coord.CreateMode, owner string) *znode {
	return &znode{
		name:     name,
		data:     append([]byte(nil), data...),
		mode:     mode,
		owner:    owner,
		children: map[string]*znode{},
	}
}

// Tree is the node tree shared by all sessions connected to it.
type Tree struct {
	mu          sync.RWMutex
	root        *znode
	lastSession int64
}

// NewTree returns a tree that only contains the root node.
func NewTree() *Tree {
	return &Tree{root: newZNode("", nil, coord.Persistent, "")}
}

// New returns a session on a fresh tree.
func New() *Store {
	return NewTree().Connect()
}

// Connect opens a new session on the tree.
func (t *Tree) Connect() *Store {
	id := atomic.AddInt64(&t.lastSession, 1)

	return &Store{
		tree:      t,
		sessionID: fmt.Sprintf("0x%x", 0x100000000+id),
	}
}

// Expire removes every ephemeral node owned by sessionID, as the coordination service
// does when a session times out.
func (t *Tree) Expire(sessionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	expire(t.root, sessionID)
}

func expire(node *znode, sessionID string) {
	for name, child := range node.children {
		if child.mode == coord.Ephemeral && child.owner == sessionID {
			delete(node.children, name)

			continue
		}

		expire(child, sessionID)
	}
}

func (t *Tree) lookup(path string) *znode {
	node := t.root
	for _, segment := range treepath.Segments(path) {
		child, ok := node.children[segment]
		if !ok {
			return nil
		}

		node = child
	}

	return node
}

// Store is one session on a Tree.
type Store struct {
	tree      *Tree
	sessionID string
	closed    atomic.Bool
}

var _ coord.Store = (*Store)(nil)

func (s *Store) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if s.closed.Load() {
		return coord.ErrClosed
	}

	return nil
}

// Exists implements coord.Store.
func (s *Store) Exists(ctx context.Context, path string) (bool, error) {
	if err := s.check(ctx); err != nil {
		return false, err
	}

	s.tree.mu.RLock()
	defer s.tree.mu.RUnlock()

	return s.tree.lookup(path) != nil, nil
}

// Get implements coord.Store.
func (s *Store) Get(ctx context.Context, path string) (coord.Node, bool, error) {
	if err := s.check(ctx); err != nil {
		return coord.Node{}, false, err
	}

	s.tree.mu.RLock()
	defer s.tree.mu.RUnlock()

	node := s.tree.lookup(path)
	if node == nil {
		return coord.Node{}, false, nil
	}

	return coord.Node{
		Data:        append([]byte(nil), node.data...),
		NumChildren: len(node.children),
	}, true, nil
}

// Set implements coord.Store.
func (s *Store) Set(ctx context.Context, path string, data []byte) error {
	if err := s.check(ctx); err != nil {
		return err
	}

	s.tree.mu.Lock()
	defer s.tree.mu.Unlock()

	node := s.tree.lookup(path)
	if node == nil {
		return fmt.Errorf("%w: %s", coord.ErrNoNode, path)
	}

	node.data = append([]byte(nil), data...)

	return nil
}

// Create implements coord.Store.
func (s *Store) Create(ctx context.Context, path string, data []byte, mode coord.CreateMode) (coord.CreateResult, error) {
	if err := s.check(ctx); err != nil {
		return coord.Failed, err
	}

	path = treepath.Clean(path)
	if treepath.IsRoot(path) {
		return coord.AlreadyExists, nil
	}

	name := treepath.Base(path)
	if err := treepath.ValidateSegment(name); err != nil {
		return coord.Failed, err
	}

	s.tree.mu.Lock()
	defer s.tree.mu.Unlock()

	parent := s.tree.lookup(treepath.Parent(path))
	if parent == nil {
		return coord.Failed, fmt.Errorf("%w: parent of %s", coord.ErrNoNode, path)
	}

	if _, ok := parent.children[name]; ok {
		return coord.AlreadyExists, nil
	}

	if parent.mode == coord.Ephemeral {
		return coord.Failed, fmt.Errorf("%w: %s", coord.ErrNoChildrenForEphemerals, path)
	}

	owner := ""
	if mode == coord.Ephemeral {
		owner = s.sessionID
	}

	parent.children[name] = newZNode(name, data, mode, owner)

	return coord.Created, nil
}

// Children implements coord.Store.
func (s *Store) Children(ctx context.Context, path string) ([]string, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	s.tree.mu.RLock()
	defer s.tree.mu.RUnlock()

	node := s.tree.lookup(path)
	if node == nil {
		return nil, fmt.Errorf("%w: %s", coord.ErrNoNode, path)
	}

	names := make([]string, 0, len(node.children))
	for name := range node.children {
		names = append(names, name)
	}

	sort.Strings(names)

	return names, nil
}

// DeleteTree implements coord.Store.
func (s *Store) DeleteTree(ctx context.Context, path string) error {
	if err := s.check(ctx); err != nil {
		return err
	}

	path = treepath.Clean(path)
	if treepath.IsRoot(path) {
		return fmt.Errorf("%w: the root node cannot be deleted", coord.ErrBadArguments)
	}

	s.tree.mu.Lock()
	defer s.tree.mu.Unlock()

	parent := s.tree.lookup(treepath.Parent(path))
	if parent == nil {
		return nil
	}

	delete(parent.children, treepath.Base(path))

	return nil
}

// SessionID implements coord.Store.
func (s *Store) SessionID() string {
	return s.sessionID
}

// Tree returns the tree this session is connected to.
func (s *Store) Tree() *Tree {
	return s.tree
}

// Close ends the session and removes its ephemeral nodes.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}

	s.tree.Expire(s.sessionID)

	return nil
}
