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

// Encode writes v under path, shaped by t. Every call creates at least the node at path;
// existing children are preserved and nothing is ever deleted. Read-only composite fields
// are skipped. A failed primitive operation aborts the write and may leave a partial
// subtree behind.
func Encode(ctx context.Context, store coord.Store, path string, v Value, t Type) error {
	if _, err := Classify(t); err != nil {
		return &PathError{Path: treepath.Clean(path), Err: err}
	}

	return encode(ctx, store, treepath.Clean(path), v, t)
}

func encode(ctx context.Context, store coord.Store, path string, v Value, t Type) error {
	if err := coord.EnsureNode(ctx, store, path); err != nil {
		return err
	}

	if IsNull(v) {
		return writeLeaf(ctx, store, path, "")
	}

	switch t.Category {
	case CategorySimple:
		s, ok := v.(Simple)
		if !ok {
			return mismatch(path, t.String(), v.Category().String())
		}

		return writeLeaf(ctx, store, path, s.Raw)
	case CategoryMapping:
		m, ok := v.(Mapping)
		if !ok {
			return mismatch(path, t.String(), v.Category().String())
		}

		return encodeMapping(ctx, store, path, m, *t.Elem)
	case CategorySequence, CategorySet, CategoryArray:
		var elements []Value

		switch list := v.(type) {
		case Sequence:
			elements = list.Elements
		case Set:
			elements = list.Elements
		default:
			return mismatch(path, t.String(), v.Category().String())
		}

		for i, element := range elements {
			if err := encode(ctx, store, treepath.Combine(path, strconv.Itoa(i)), element, *t.Elem); err != nil {
				return err
			}
		}

		return nil
	case CategoryComposite:
		c, ok := v.(Composite)
		if !ok {
			return mismatch(path, t.String(), v.Category().String())
		}

		return encodeComposite(ctx, store, path, c, t)
	default:
		return mismatch(path, t.String(), v.Category().String())
	}
}

func encodeMapping(ctx context.Context, store coord.Store, path string, m Mapping, elem Type) error {
	keys := make([]string, 0, len(m.Entries))
	for key := range m.Entries {
		if err := treepath.ValidateSegment(key); err != nil {
			return &PathError{Path: path, Err: fmt.Errorf("%w: mapping key: %w", ErrIncompatibleType, err)}
		}

		keys = append(keys, key)
	}

	sort.Strings(keys)

	for _, key := range keys {
		if err := encode(ctx, store, treepath.Combine(path, key), m.Entries[key], elem); err != nil {
			return err
		}
	}

	return nil
}

func encodeComposite(ctx context.Context, store coord.Store, path string, c Composite, t Type) error {
	fields, err := t.Fields()
	if err != nil {
		return &PathError{Path: path, Err: fmt.Errorf("%w: %w", ErrIncompatibleType, err)}
	}

	for _, field := range fields {
		if field.ReadOnly {
			continue
		}

		value, ok := c.Fields[field.Name]
		if !ok {
			value = Null{}
		}

		if err := encode(ctx, store, treepath.Combine(path, field.Name), value, field.Type); err != nil {
			return err
		}
	}

	return nil
}

func writeLeaf(ctx context.Context, store coord.Store, path, text string) error {
	if err := store.Set(ctx, path, []byte(text)); err != nil {
		return fmt.Errorf("failed to write node %s: %w", path, err)
	}

	return nil
}
