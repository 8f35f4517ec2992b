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

	"github.com/carverauto/zkconfig/pkg/treepath"
)

// Describable is implemented by composite types. Bindings returns the fields of the
// receiver in declaration order; each binding reads and writes the receiver directly.
type Describable interface {
	Bindings() []Binding
}

// DecodeHook is implemented by composite types that derive state after being read.
type DecodeHook interface {
	OnDecode()
}

// Binding ties a field name to a location inside a composite value.
type Binding struct {
	Name     string
	Type     Type
	ReadOnly bool
	get      func() (Value, error)
	set      func(Value) error
}

// Bind declares a field stored under name, backed by ptr and converted with conv.
func Bind[T any](name string, ptr *T, conv Converter[T]) Binding {
	return Binding{
		Name: name,
		Type: conv.Type,
		get: func() (Value, error) {
			return conv.To(*ptr)
		},
		set: func(v Value) error {
			decoded, err := conv.From(v)
			if err != nil {
				return err
			}

			*ptr = decoded

			return nil
		},
	}
}

// BindReadOnly declares a field that is read from the tree but never written. Its subtree
// belongs to another writer, such as session markers created by their own sessions.
func BindReadOnly[T any](name string, ptr *T, conv Converter[T]) Binding {
	b := Bind(name, ptr, conv)
	b.ReadOnly = true

	return b
}

// schemaID distinguishes composite schemas by their Go type without reflection.
type schemaID[T any] struct{}

// ObjectOf converts pointers to composite types. A nil pointer is stored as Null.
func ObjectOf[T any, PT interface {
	*T
	Describable
}]() Converter[*T] {
	t := Type{
		Category: CategoryComposite,
		Fields: func() ([]Field, error) {
			var zero T

			return schemaOf(PT(&zero).Bindings())
		},
		id: schemaID[T]{},
	}

	return Converter[*T]{
		Type: t,
		To: func(obj *T) (Value, error) {
			if obj == nil {
				return Null{}, nil
			}

			bindings := PT(obj).Bindings()
			if _, err := schemaOf(bindings); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrIncompatibleType, err)
			}

			fields := make(map[string]Value, len(bindings))

			for _, b := range bindings {
				if b.ReadOnly {
					continue
				}

				v, err := b.get()
				if err != nil {
					return nil, fmt.Errorf("field %s: %w", b.Name, err)
				}

				fields[b.Name] = v
			}

			return Composite{Fields: fields}, nil
		},
		From: func(v Value) (*T, error) {
			if IsNull(v) {
				return nil, nil
			}

			composite, ok := v.(Composite)
			if !ok {
				return nil, unexpected("composite", v)
			}

			obj := new(T)

			for _, b := range PT(obj).Bindings() {
				field, found := composite.Fields[b.Name]
				if !found {
					field = Null{}
				}

				if err := b.set(field); err != nil {
					return nil, fmt.Errorf("field %s: %w", b.Name, err)
				}
			}

			if hook, ok := any(obj).(DecodeHook); ok {
				hook.OnDecode()
			}

			return obj, nil
		},
	}
}

// schemaOf returns the field list of bindings, rejecting duplicate names.
func schemaOf(bindings []Binding) ([]Field, error) {
	fields := make([]Field, 0, len(bindings))
	seen := make(map[string]struct{}, len(bindings))

	for _, b := range bindings {
		if _, ok := seen[b.Name]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateField, b.Name)
		}

		if err := treepath.ValidateSegment(b.Name); err != nil {
			return nil, err
		}

		seen[b.Name] = struct{}{}

		fields = append(fields, Field{Name: b.Name, Type: b.Type, ReadOnly: b.ReadOnly})
	}

	return fields, nil
}
