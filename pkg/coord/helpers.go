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
	"context"
	"fmt"

	"github.com/carverauto/zkconfig/pkg/treepath"
)

// EnsureNode makes sure a persistent node exists at path, creating missing ancestors
// with empty payloads. Existing nodes and their children are left untouched.
func EnsureNode(ctx context.Context, store Store, path string) error {
	path = treepath.Clean(path)

	exists, err := store.Exists(ctx, path)
	if err != nil {
		return fmt.Errorf("failed to check node %s: %w", path, err)
	}

	if exists {
		return nil
	}

	current := treepath.Root
	for _, segment := range treepath.Segments(path) {
		current = treepath.Combine(current, segment)

		if _, err := store.Create(ctx, current, nil, Persistent); err != nil {
			return fmt.Errorf("failed to create node %s: %w", current, err)
		}
	}

	return nil
}

// ChildPaths returns the absolute paths of the children of path.
func ChildPaths(ctx context.Context, store Store, path string) ([]string, error) {
	names, err := store.Children(ctx, path)
	if err != nil {
		return nil, err
	}

	paths := make([]string, len(names))
	for i, name := range names {
		paths[i] = treepath.Combine(path, name)
	}

	return paths, nil
}
