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
	"errors"

	"github.com/carverauto/zkconfig/pkg/coord"
	"github.com/carverauto/zkconfig/pkg/treepath"
)

// Write converts v with conv and encodes it under path.
func Write[T any](ctx context.Context, store coord.Store, path string, v T, conv Converter[T]) error {
	value, err := conv.To(v)
	if err != nil {
		return &PathError{Path: treepath.Clean(path), Err: err}
	}

	return Encode(ctx, store, path, value, conv.Type)
}

// Read decodes the subtree at path and converts it with conv. found is false when the
// node at path does not exist; that case is not an error.
func Read[T any](ctx context.Context, store coord.Store, path string, conv Converter[T]) (T, bool, error) {
	var zero T

	if _, err := Classify(conv.Type); err != nil {
		return zero, false, &PathError{Path: treepath.Clean(path), Err: err}
	}

	exists, err := store.Exists(ctx, treepath.Clean(path))
	if err != nil {
		return zero, false, err
	}

	if !exists {
		return zero, false, nil
	}

	value, err := Decode(ctx, store, path, conv.Type)
	if err != nil {
		return zero, true, err
	}

	out, err := conv.From(value)
	if err != nil {
		var pathErr *PathError
		if errors.As(err, &pathErr) {
			return zero, true, err
		}

		return zero, true, &PathError{Path: treepath.Clean(path), Err: err}
	}

	return out, true, nil
}
