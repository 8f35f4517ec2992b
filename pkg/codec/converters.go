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
	"fmt"
	"sort"
	"strconv"
	"time"

	"golang.org/x/exp/constraints"
)

// Converter translates between a Go type and the Value union.
type Converter[T any] struct {
	Type Type
	To   func(T) (Value, error)
	From func(Value) (T, error)
}

func unexpected(expected string, v Value) error {
	return fmt.Errorf("%w: expected %s, got %s", ErrStructuralMismatch, expected, v.Category())
}

func simpleText(kind ScalarKind, v Value) (string, bool, error) {
	if IsNull(v) {
		return "", false, nil
	}

	s, ok := v.(Simple)
	if !ok {
		return "", false, unexpected(kind.String(), v)
	}

	return s.Raw, s.Raw != "" || kind == ScalarString, nil
}

// String converts string leaves.
func String() Converter[string] {
	return Converter[string]{
		Type: StringType(),
		To: func(s string) (Value, error) {
			return Simple{Scalar: ScalarString, Raw: s}, nil
		},
		From: func(v Value) (string, error) {
			text, _, err := simpleText(ScalarString, v)
			return text, err
		},
	}
}

// Integer converts any integer type to canonical decimal text.
func Integer[T constraints.Integer]() Converter[T] {
	var zero T

	unsigned := zero-1 > zero

	return Converter[T]{
		Type: ScalarType(ScalarInteger),
		To: func(n T) (Value, error) {
			if unsigned {
				return Simple{Scalar: ScalarInteger, Raw: strconv.FormatUint(uint64(n), 10)}, nil
			}

			return Simple{Scalar: ScalarInteger, Raw: strconv.FormatInt(int64(n), 10)}, nil
		},
		From: func(v Value) (T, error) {
			text, ok, err := simpleText(ScalarInteger, v)
			if err != nil || !ok {
				return zero, err
			}

			if unsigned {
				u, err := strconv.ParseUint(text, 10, 64)
				if err != nil || uint64(T(u)) != u {
					return zero, fmt.Errorf("%w: %q out of range", ErrUnparsableValue, text)
				}

				return T(u), nil
			}

			i, err := strconv.ParseInt(text, 10, 64)
			if err != nil || int64(T(i)) != i {
				return zero, fmt.Errorf("%w: %q out of range", ErrUnparsableValue, text)
			}

			return T(i), nil
		},
	}
}

// Float converts floating point values using the shortest representation that round trips.
func Float[T constraints.Float]() Converter[T] {
	return Converter[T]{
		Type: ScalarType(ScalarFloat),
		To: func(f T) (Value, error) {
			return Simple{Scalar: ScalarFloat, Raw: strconv.FormatFloat(float64(f), 'g', -1, 64)}, nil
		},
		From: func(v Value) (T, error) {
			text, ok, err := simpleText(ScalarFloat, v)
			if err != nil || !ok {
				return 0, err
			}

			f, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return 0, fmt.Errorf("%w: %w", ErrUnparsableValue, err)
			}

			return T(f), nil
		},
	}
}

// Bool converts booleans to "true" and "false".
func Bool() Converter[bool] {
	return Converter[bool]{
		Type: ScalarType(ScalarBoolean),
		To: func(b bool) (Value, error) {
			return Simple{Scalar: ScalarBoolean, Raw: strconv.FormatBool(b)}, nil
		},
		From: func(v Value) (bool, error) {
			text, ok, err := simpleText(ScalarBoolean, v)
			if err != nil || !ok {
				return false, err
			}

			b, err := strconv.ParseBool(text)
			if err != nil {
				return false, fmt.Errorf("%w: %w", ErrUnparsableValue, err)
			}

			return b, nil
		},
	}
}

// Time converts instants to UTC ISO-8601 text. The zero time is stored as an empty leaf.
func Time() Converter[time.Time] {
	return Converter[time.Time]{
		Type: ScalarType(ScalarTemporal),
		To: func(t time.Time) (Value, error) {
			if t.IsZero() {
				return Null{}, nil
			}

			return Simple{Scalar: ScalarTemporal, Raw: t.UTC().Format(TemporalLayout)}, nil
		},
		From: func(v Value) (time.Time, error) {
			text, ok, err := simpleText(ScalarTemporal, v)
			if err != nil || !ok {
				return time.Time{}, err
			}

			t, err := time.Parse(TemporalLayout, text)
			if err != nil {
				return time.Time{}, fmt.Errorf("%w: %w", ErrUnparsableValue, err)
			}

			return t.UTC(), nil
		},
	}
}

// MapOf converts string keyed maps. A nil map is written as an empty mapping.
func MapOf[V any](elem Converter[V]) Converter[map[string]V] {
	key := StringType()
	elemType := elem.Type

	return Converter[map[string]V]{
		Type: Type{Category: CategoryMapping, Key: &key, Elem: &elemType},
		To: func(m map[string]V) (Value, error) {
			entries := make(map[string]Value, len(m))

			for k, item := range m {
				v, err := elem.To(item)
				if err != nil {
					return nil, fmt.Errorf("key %s: %w", k, err)
				}

				entries[k] = v
			}

			return Mapping{Entries: entries}, nil
		},
		From: func(v Value) (map[string]V, error) {
			if IsNull(v) {
				return nil, nil
			}

			mapping, ok := v.(Mapping)
			if !ok {
				return nil, unexpected("mapping", v)
			}

			out := make(map[string]V, len(mapping.Entries))

			for k, entry := range mapping.Entries {
				item, err := elem.From(entry)
				if err != nil {
					return nil, fmt.Errorf("key %s: %w", k, err)
				}

				out[k] = item
			}

			return out, nil
		},
	}
}

// SliceOf converts slices stored as ordered, index named children.
func SliceOf[E any](elem Converter[E]) Converter[[]E] {
	return listOf(CategorySequence, elem)
}

// ArrayOf converts slices whose length is fixed by the number of stored children. An
// empty array is kept distinct from an absent one.
func ArrayOf[E any](elem Converter[E]) Converter[[]E] {
	return listOf(CategoryArray, elem)
}

func listOf[E any](category Category, elem Converter[E]) Converter[[]E] {
	elemType := elem.Type

	return Converter[[]E]{
		Type: Type{Category: category, Elem: &elemType},
		To: func(items []E) (Value, error) {
			elements := make([]Value, len(items))

			for i, item := range items {
				v, err := elem.To(item)
				if err != nil {
					return nil, fmt.Errorf("index %d: %w", i, err)
				}

				elements[i] = v
			}

			return Sequence{Elements: elements}, nil
		},
		From: func(v Value) ([]E, error) {
			if IsNull(v) {
				return nil, nil
			}

			seq, ok := v.(Sequence)
			if !ok {
				return nil, unexpected(category.String(), v)
			}

			out := make([]E, len(seq.Elements))

			for i, element := range seq.Elements {
				item, err := elem.From(element)
				if err != nil {
					return nil, fmt.Errorf("index %d: %w", i, err)
				}

				out[i] = item
			}

			return out, nil
		},
	}
}

// SetOf converts sets represented as map[E]struct{}. Elements are written in the order of
// their encoded text so repeated writes produce the same layout.
func SetOf[E comparable](elem Converter[E]) Converter[map[E]struct{}] {
	elemType := elem.Type

	return Converter[map[E]struct{}]{
		Type: Type{Category: CategorySet, Elem: &elemType},
		To: func(set map[E]struct{}) (Value, error) {
			elements := make([]Value, 0, len(set))

			for item := range set {
				v, err := elem.To(item)
				if err != nil {
					return nil, err
				}

				elements = append(elements, v)
			}

			sort.SliceStable(elements, func(i, j int) bool {
				return sortKey(elements[i]) < sortKey(elements[j])
			})

			return Set{Elements: elements}, nil
		},
		From: func(v Value) (map[E]struct{}, error) {
			if IsNull(v) {
				return nil, nil
			}

			var elements []Value

			switch s := v.(type) {
			case Set:
				elements = s.Elements
			case Sequence:
				elements = s.Elements
			default:
				return nil, unexpected("set", v)
			}

			out := make(map[E]struct{}, len(elements))

			for _, element := range elements {
				item, err := elem.From(element)
				if err != nil {
					return nil, err
				}

				out[item] = struct{}{}
			}

			return out, nil
		},
	}
}

func sortKey(v Value) string {
	if s, ok := v.(Simple); ok {
		return s.Raw
	}

	return ""
}
