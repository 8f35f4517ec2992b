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

// Package codec maps typed values to and from subtrees of a hierarchical coordination
// store. Values are described by the Value tagged union and shaped by Type descriptors.
package codec

// ScalarKind identifies the text encoding of a Simple value.
type ScalarKind int

const (
	ScalarString ScalarKind = iota
	ScalarInteger
	ScalarFloat
	ScalarBoolean
	ScalarTemporal
)

func (k ScalarKind) String() string {
	switch k {
	case ScalarString:
		return "string"
	case ScalarInteger:
		return "integer"
	case ScalarFloat:
		return "float"
	case ScalarBoolean:
		return "boolean"
	case ScalarTemporal:
		return "temporal"
	default:
		return "unknown"
	}
}

// Value is one of Null, Simple, Sequence, Set, Mapping or Composite.
type Value interface {
	// Category reports the shape of the value.
	Category() Category
	value()
}

// Null is an absent value. It is encoded as an empty leaf.
type Null struct{}

// Simple is a scalar carried as its canonical text.
type Simple struct {
	Scalar ScalarKind
	Raw    string
}

// Sequence is an ordered list of values.
type Sequence struct {
	Elements []Value
}

// Set is an unordered, duplicate-free list of values.
type Set struct {
	Elements []Value
}

// Mapping is a string keyed collection of values.
type Mapping struct {
	Entries map[string]Value
}

// Composite is a named-field object.
type Composite struct {
	Fields map[string]Value
}

func (Null) Category() Category      { return CategoryNull }
func (Simple) Category() Category    { return CategorySimple }
func (Sequence) Category() Category  { return CategorySequence }
func (Set) Category() Category       { return CategorySet }
func (Mapping) Category() Category   { return CategoryMapping }
func (Composite) Category() Category { return CategoryComposite }

func (Null) value()      {}
func (Simple) value()    {}
func (Sequence) value()  {}
func (Set) value()       {}
func (Mapping) value()   {}
func (Composite) value() {}

// IsNull reports whether v is nil or Null.
func IsNull(v Value) bool {
	if v == nil {
		return true
	}

	_, ok := v.(Null)

	return ok
}
