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

package coord

import (
	"errors"
)

var (
	// ErrNoNode is returned when an operation requires a node that does not exist.
	ErrNoNode = errors.New("node does not exist")
	// ErrNotEmpty is returned when deleting a node that still has children.
	ErrNotEmpty = errors.New("node has children")
	// ErrNoChildrenForEphemerals is returned when creating a node below an ephemeral node.
	ErrNoChildrenForEphemerals = errors.New("ephemeral nodes may not have children")
	// ErrBadArguments is returned for operations the store rejects outright, such as deleting the root.
	ErrBadArguments = errors.New("invalid arguments")
	// ErrClosed is returned once the store has been closed.
	ErrClosed = errors.New("store is closed")
)
