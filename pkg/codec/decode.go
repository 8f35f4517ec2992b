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

package codec

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/carverauto/zkconfig/pkg/coord"
	"github.com/carverauto/zkconfig/pkg/treepath"
)

// Decode reads the subtree at path back into a Value shaped by t. The stored shape must
// match t. A missing node decodes to Null.
func Decode(ctx context.Context, store coord.Store, path string, t Type) (Value, error) {
	if _, err := Classify(t); err != nil {
		return nil, &PathError{Path: treepath.Clean(path), Err: err}
	}

	return decode(ctx, store, treepath.Clean(path), t)
}

func decode(ctx context.Context, store coord.Store, path string, t Type) (Value, error) {
	node, found, err := store.Get(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read node %s: %w", path, err)
	}

	if !found {
		return Null{}, nil
	}

	switch t.Category {
	case CategoryNull:
		return Null{}, nil
	case CategorySimple:
		if node.NumChildren > 0 {
			return nil, mismatch(path, t.String(), fmt.Sprintf("node with %d children", node.NumChildren))
		}

		return parseScalar(path, t.Scalar, string(node.Data))
	case CategoryMapping:
		if err := expectContainer(path, node, t); err != nil {
			return nil, err
		}

		return decodeMapping(ctx, store, path, *t.Elem)
	case CategorySequence, CategoryArray:
		if err := expectContainer(path, node, t); err != nil {
			return nil, err
		}

		return decodeSequence(ctx, store, path, t)
	case CategorySet:
		if err := expectContainer(path, node, t); err != nil {
			return nil, err
		}

		return decodeSet(ctx, store, path, *t.Elem)
	case CategoryComposite:
		if node.NumChildren == 0 {
			if node.HasData() {
				return nil, mismatch(path, t.String(), "leaf")
			}

			return Null{}, nil
		}

		return decodeComposite(ctx, store, path, t)
	default:
		return nil, mismatch(path, t.String(), "node")
	}
}

// expectContainer rejects leaves carrying a scalar where children are expected. An
// existing node without data or children is an empty container.
func expectContainer(path string, node coord.Node, t Type) error {
	if node.NumChildren == 0 && node.HasData() {
		return mismatch(path, t.String(), "leaf")
	}

	return nil
}

func children(ctx context.Context, store coord.Store, path string) ([]string, error) {
	names, err := store.Children(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to list children of %s: %w", path, err)
	}

	return names, nil
}

func decodeMapping(ctx context.Context, store coord.Store, path string, elem Type) (Value, error) {
	names, err := children(ctx, store, path)
	if err != nil {
		return nil, err
	}

	entries := make(map[string]Value, len(names))

	for _, name := range names {
		v, err := decode(ctx, store, treepath.Combine(path, name), elem)
		if err != nil {
			return nil, err
		}

		entries[name] = v
	}

	return Mapping{Entries: entries}, nil
}

// indexOrder sorts child names numerically and reports whether they are exactly 0..n-1.
func indexOrder(names []string) ([]string, bool) {
	indices := make([]int, len(names))

	for i, name := range names {
		n, err := strconv.Atoi(name)
		if err != nil || n < 0 || strconv.Itoa(n) != name {
			return nil, false
		}

		indices[i] = n
	}

	sort.Ints(indices)

	ordered := make([]string, len(indices))

	for i, n := range indices {
		if n != i {
			return nil, false
		}

		ordered[i] = strconv.Itoa(n)
	}

	return ordered, true
}

func decodeSequence(ctx context.Context, store coord.Store, path string, t Type) (Value, error) {
	names, err := children(ctx, store, path)
	if err != nil {
		return nil, err
	}

	ordered, ok := indexOrder(names)
	if !ok {
		return nil, mismatch(path, t.String()+" indexed 0..n-1", fmt.Sprintf("children %v", names))
	}

	elements := make([]Value, len(ordered))

	for i, name := range ordered {
		v, err := decode(ctx, store, treepath.Combine(path, name), *t.Elem)
		if err != nil {
			return nil, err
		}

		elements[i] = v
	}

	return Sequence{Elements: elements}, nil
}

func decodeSet(ctx context.Context, store coord.Store, path string, elem Type) (Value, error) {
	names, err := children(ctx, store, path)
	if err != nil {
		return nil, err
	}

	if ordered, ok := indexOrder(names); ok {
		names = ordered
	}

	elements := make([]Value, 0, len(names))
	seen := make(map[Simple]struct{}, len(names))

	for _, name := range names {
		v, err := decode(ctx, store, treepath.Combine(path, name), elem)
		if err != nil {
			return nil, err
		}

		if s, ok := v.(Simple); ok {
			if _, dup := seen[s]; dup {
				continue
			}

			seen[s] = struct{}{}
		}

		elements = append(elements, v)
	}

	return Set{Elements: elements}, nil
}

func decodeComposite(ctx context.Context, store coord.Store, path string, t Type) (Value, error) {
	fields, err := t.Fields()
	if err != nil {
		return nil, &PathError{Path: path, Err: fmt.Errorf("%w: %w", ErrIncompatibleType, err)}
	}

	values := make(map[string]Value, len(fields))

	for _, field := range fields {
		v, err := decode(ctx, store, treepath.Combine(path, field.Name), field.Type)
		if err != nil {
			return nil, err
		}

		values[field.Name] = v
	}

	return Composite{Fields: values}, nil
}
