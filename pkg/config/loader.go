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

package config

import (
	"context"
	"fmt"

	"github.com/carverauto/zkconfig/pkg/coord"
	"github.com/carverauto/zkconfig/pkg/logger"
	"github.com/carverauto/zkconfig/pkg/treepath"
)

// TreeLoader flattens a subtree into properties keyed by their path relative to a base.
type TreeLoader struct {
	store  coord.Store
	logger logger.Logger
}

// NewTreeLoader creates a loader reading from store.
func NewTreeLoader(store coord.Store, log logger.Logger) *TreeLoader {
	return &TreeLoader{store: store, logger: logger.OrNop(log)}
}

// Load walks the subtree at base breadth first and returns every value node with its
// placeholders expanded. Nodes without data that have children are containers and are
// not emitted. A missing base yields an empty map.
func (l *TreeLoader) Load(ctx context.Context, base string) (map[string]string, error) {
	base = treepath.Clean(base)
	properties := map[string]string{}

	exists, err := l.store.Exists(ctx, base)
	if err != nil {
		return nil, fmt.Errorf("failed to check base path %s: %w", base, err)
	}

	if !exists {
		l.logger.Warn().Str("base_path", base).Msg("Base path does not exist")

		return properties, nil
	}

	l.logger.Info().Str("base_path", base).Msg("Reading properties")

	r := newResolver(l.store, base)
	queue := []string{base}

	for len(queue) > 0 {
		path := queue[0]
		queue = queue[1:]

		children, err := coord.ChildPaths(ctx, l.store, path)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", path, err)
		}

		for _, child := range children {
			node, found, err := l.store.Get(ctx, child)
			if err != nil {
				return nil, fmt.Errorf("failed to read %s: %w", child, err)
			}

			if !found {
				continue
			}

			if node.NumChildren > 0 {
				queue = append(queue, child)

				if !node.HasData() {
					continue
				}
			}

			value, err := r.leaf(ctx, child, string(node.Data))
			if err != nil {
				return nil, err
			}

			properties[treepath.Relative(base, child)] = value
		}
	}

	l.logger.Info().
		Str("base_path", base).
		Int("count", len(properties)).
		Msg("Loaded properties")

	return properties, nil
}
