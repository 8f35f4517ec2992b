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

//go:generate mockgen -destination=mock_store.go -package=coord github.com/carverauto/zkconfig/pkg/coord Store

// Package coord defines the primitive node operations of a hierarchical coordination store.
package coord

import (
	"context"
)

// CreateMode selects the lifetime of a created node.
type CreateMode int

const (
	// Persistent nodes live until they are deleted.
	Persistent CreateMode = iota
	// Ephemeral nodes are removed by the store when the owning session ends.
	Ephemeral
)

func (m CreateMode) String() string {
	switch m {
	case Persistent:
		return "persistent"
	case Ephemeral:
		return "ephemeral"
	default:
		return "unknown"
	}
}

// CreateResult is the outcome of Store.Create.
type CreateResult int

const (
	// Failed means the node was not created; the accompanying error says why.
	Failed CreateResult = iota
	// Created means the node did not exist and has been created.
	Created
	// AlreadyExists means a node already existed at the path and was left untouched.
	AlreadyExists
)

func (r CreateResult) String() string {
	switch r {
	case Created:
		return "created"
	case AlreadyExists:
		return "already_exists"
	default:
		return "failed"
	}
}

// Node is the payload of a node together with the number of its children.
type Node struct {
	Data        []byte
	NumChildren int
}

// HasData reports whether the node carries a non-empty payload.
func (n Node) HasData() bool {
	return len(n.Data) > 0
}

// Store defines the primitive operations of a hierarchical coordination store.
// Paths are absolute and "/"-separated. A node can only be created below an existing parent.
type Store interface {
	// Exists reports whether a node exists at path.
	Exists(ctx context.Context, path string) (bool, error)

	// Get returns the node at path. The boolean is false if the node does not exist.
	Get(ctx context.Context, path string) (Node, bool, error)

	// Set replaces the payload of an existing node. It returns ErrNoNode if the node is missing.
	Set(ctx context.Context, path string, data []byte) error

	// Create creates a node. An existing node yields AlreadyExists with a nil error,
	// any other failure yields Failed with the error.
	Create(ctx context.Context, path string, data []byte, mode CreateMode) (CreateResult, error)

	// Children returns the names of the children of path in lexical order.
	// It returns ErrNoNode if the node is missing.
	Children(ctx context.Context, path string) ([]string, error)

	// DeleteTree deletes path and all of its descendants. A missing node is not an error.
	DeleteTree(ctx context.Context, path string) error

	// SessionID identifies the client session that owns ephemeral nodes created through this store.
	SessionID() string

	// Close releases the session. Ephemeral nodes owned by the session disappear.
	Close() error
}
