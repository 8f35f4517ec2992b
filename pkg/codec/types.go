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
)

// Category is the shape of a type or value.
type Category int

const (
	CategoryNull Category = iota
	CategorySimple
	CategoryMapping
	CategorySequence
	CategorySet
	CategoryArray
	CategoryComposite
)

func (c Category) String() string {
	switch c {
	case CategoryNull:
		return "null"
	case CategorySimple:
		return "simple"
	case CategoryMapping:
		return "mapping"
	case CategorySequence:
		return "sequence"
	case CategorySet:
		return "set"
	case CategoryArray:
		return "array"
	case CategoryComposite:
		return "composite"
	default:
		return "unknown"
	}
}

// Type describes the shape a value must have when it is written to or read from the tree.
type Type struct {
	Category Category
	// Scalar is the kind of a Simple type.
	Scalar ScalarKind
	// Key is the key type of a Mapping. Only string keys are supported.
	Key *Type
	// Elem is the element type of a Sequence, Set or Array, or the value type of a Mapping.
	Elem *Type
	// Fields returns the declared fields of a Composite in declaration order.
	Fields func() ([]Field, error)

	// id identifies a composite schema so recursive schemas are validated once.
	id any
}

// Field is a declared field of a composite schema. ReadOnly fields are decoded but never
// encoded.
type Field struct {
	Name     string
	Type     Type
	ReadOnly bool
}

func (t Type) String() string {
	switch t.Category {
	case CategorySimple:
		return t.Scalar.String()
	case CategoryMapping:
		if t.Key == nil || t.Elem == nil {
			return "mapping<?>"
		}

		return fmt.Sprintf("mapping<%s,%s>", t.Key, t.Elem)
	case CategorySequence, CategorySet, CategoryArray:
		if t.Elem == nil {
			return t.Category.String() + "<?>"
		}

		return fmt.Sprintf("%s<%s>", t.Category, t.Elem)
	default:
		return t.Category.String()
	}
}

// StringType is the descriptor of a string leaf.
func StringType() Type {
	return Type{Category: CategorySimple, Scalar: ScalarString}
}

// ScalarType is the descriptor of a leaf of the given kind.
func ScalarType(kind ScalarKind) Type {
	return Type{Category: CategorySimple, Scalar: kind}
}

// Classify returns the category of t after checking that the container parameters of t
// can be resolved. It never touches the store.
func Classify(t Type) (Category, error) {
	if err := validate(t, map[any]struct{}{}); err != nil {
		return CategoryNull, err
	}

	return t.Category, nil
}

func validate(t Type, seen map[any]struct{}) error {
	switch t.Category {
	case CategoryNull:
		return nil
	case CategorySimple:
		if _, ok := scalars[t.Scalar]; !ok {
			return fmt.Errorf("%w: unknown scalar kind %d", ErrIncompatibleType, t.Scalar)
		}

		return nil
	case CategoryMapping:
		if t.Key == nil || t.Elem == nil {
			return fmt.Errorf("%w: mapping without key or value type", ErrIncompatibleType)
		}

		if t.Key.Category != CategorySimple || t.Key.Scalar != ScalarString {
			return fmt.Errorf("%w: mapping keys must be strings, got %s", ErrIncompatibleType, t.Key)
		}

		return validate(*t.Elem, seen)
	case CategorySequence, CategorySet, CategoryArray:
		if t.Elem == nil {
			return fmt.Errorf("%w: %s without element type", ErrIncompatibleType, t.Category)
		}

		return validate(*t.Elem, seen)
	case CategoryComposite:
		return validateComposite(t, seen)
	default:
		return fmt.Errorf("%w: unknown category %d", ErrIncompatibleType, t.Category)
	}
}

func validateComposite(t Type, seen map[any]struct{}) error {
	if t.Fields == nil {
		return fmt.Errorf("%w: composite without schema", ErrIncompatibleType)
	}

	if t.id != nil {
		if _, ok := seen[t.id]; ok {
			return nil
		}

		seen[t.id] = struct{}{}
	}

	fields, err := t.Fields()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIncompatibleType, err)
	}

	for _, field := range fields {
		if err := validate(field.Type, seen); err != nil {
			return fmt.Errorf("field %s: %w", field.Name, err)
		}
	}

	return nil
}
