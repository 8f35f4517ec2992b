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
	"strings"

	"github.com/carverauto/zkconfig/pkg/coord"
	"github.com/carverauto/zkconfig/pkg/treepath"
)

const (
	placeholderStart = "${zk:"
	placeholderEnd   = "}"
)

// resolver expands ${zk:<path>} placeholders. One resolver serves one configuration load;
// its cache holds every path resolved so far.
type resolver struct {
	store coord.Store
	base  string
	cache map[string]string
}

func newResolver(store coord.Store, base string) *resolver {
	return &resolver{
		store: store,
		base:  treepath.Clean(base),
		cache: map[string]string{},
	}
}

// absolute resolves a placeholder reference. References without a leading separator are
// relative to the base path.
func (r *resolver) absolute(reference string) string {
	if strings.HasPrefix(reference, treepath.Separator) {
		return treepath.Clean(reference)
	}

	return treepath.Combine(r.base, reference)
}

// expand substitutes placeholders in text left to right until none remains. chain holds
// the paths whose values are being expanded and is used to detect cycles.
func (r *resolver) expand(ctx context.Context, text string, chain []string) (string, error) {
	offset := 0

	for {
		start := strings.Index(text[offset:], placeholderStart)
		if start < 0 {
			return text, nil
		}

		start += offset

		end := strings.Index(text[start:], placeholderEnd)
		if end < 0 {
			// unterminated placeholders are kept literally
			return text, nil
		}

		end += start

		reference := text[start+len(placeholderStart) : end]

		value, err := r.resolve(ctx, reference, chain)
		if err != nil {
			return "", err
		}

		// rescan from the substitution: the value may complete a placeholder with the
		// text that follows it, and each such completion consumes one terminator
		text = text[:start] + value + text[end+len(placeholderEnd):]
		offset = start
	}
}

// resolve returns the fully expanded value stored at reference.
func (r *resolver) resolve(ctx context.Context, reference string, chain []string) (string, error) {
	path := r.absolute(reference)

	if value, ok := r.cache[path]; ok {
		return value, nil
	}

	for _, visiting := range chain {
		if visiting == path {
			return "", &PlaceholderError{Reference: path, Chain: chain, Err: ErrPlaceholderCycle}
		}
	}

	raw, ok, err := r.read(ctx, path)
	if err != nil {
		return "", err
	}

	if !ok {
		return "", &PlaceholderError{Reference: reference, Chain: chain, Err: ErrUnresolvedPlaceholder}
	}

	value, err := r.expand(ctx, raw, append(chain[:len(chain):len(chain)], path))
	if err != nil {
		return "", err
	}

	r.cache[path] = value

	return value, nil
}

// read returns the raw text of a value node. A node without data is an empty value when
// it has no children; a missing node or a container holds no value.
func (r *resolver) read(ctx context.Context, path string) (string, bool, error) {
	node, found, err := r.store.Get(ctx, path)
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s: %w", path, err)
	}

	switch {
	case !found:
		return "", false, nil
	case node.HasData():
		return string(node.Data), true, nil
	case node.NumChildren == 0:
		return "", true, nil
	default:
		return "", false, nil
	}
}

// leaf expands the raw text read from the value node at path.
func (r *resolver) leaf(ctx context.Context, path, raw string) (string, error) {
	if value, ok := r.cache[path]; ok {
		return value, nil
	}

	value, err := r.expand(ctx, raw, []string{path})
	if err != nil {
		return "", err
	}

	r.cache[path] = value

	return value, nil
}
