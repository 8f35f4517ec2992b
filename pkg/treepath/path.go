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

// Package treepath provides helpers for slash separated node paths.
package treepath

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// Separator separates path segments.
	Separator = "/"
	// Root is the path of the root node.
	Root = "/"
)

var (
	// ErrInvalidSegment is returned when a segment cannot be used as a node name.
	ErrInvalidSegment = errors.New("invalid path segment")
)

// Combine joins the given parts with the separator. Duplicate separators collapse and
// the result is always absolute, so Combine("/", "a/", "/b") == "/a/b".
func Combine(parts ...string) string {
	segments := make([]string, 0, len(parts))
	for _, part := range parts {
		segments = append(segments, Segments(part)...)
	}

	if len(segments) == 0 {
		return Root
	}

	return Separator + strings.Join(segments, Separator)
}

// Clean returns the canonical form of path.
func Clean(path string) string {
	return Combine(path)
}

// Segments splits path into its non-empty segments.
func Segments(path string) []string {
	fields := strings.Split(path, Separator)

	segments := make([]string, 0, len(fields))
	for _, field := range fields {
		if field != "" {
			segments = append(segments, field)
		}
	}

	return segments
}

// IsRoot reports whether path denotes the root node.
func IsRoot(path string) bool {
	return len(Segments(path)) == 0
}

// Parent returns the parent of path. The parent of the root is the root.
func Parent(path string) string {
	segments := Segments(path)
	if len(segments) <= 1 {
		return Root
	}

	return Separator + strings.Join(segments[:len(segments)-1], Separator)
}

// Base returns the last segment of path, or an empty string for the root.
func Base(path string) string {
	segments := Segments(path)
	if len(segments) == 0 {
		return ""
	}

	return segments[len(segments)-1]
}

// Relative returns path relative to base without a leading separator. Paths outside of
// base are returned in canonical form.
func Relative(base, path string) string {
	base = Clean(base)
	path = Clean(path)

	if base == Root {
		return strings.TrimPrefix(path, Separator)
	}

	if path == base {
		return ""
	}

	if strings.HasPrefix(path, base+Separator) {
		return path[len(base)+1:]
	}

	return path
}

// ValidateSegment checks that name can be used as a single node name.
func ValidateSegment(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty name", ErrInvalidSegment)
	case name == "." || name == "..":
		return fmt.Errorf("%w: %q is reserved", ErrInvalidSegment, name)
	case strings.Contains(name, Separator):
		return fmt.Errorf("%w: %q contains %q", ErrInvalidSegment, name, Separator)
	case strings.ContainsRune(name, 0):
		return fmt.Errorf("%w: %q contains a NUL character", ErrInvalidSegment, name)
	}

	return nil
}
