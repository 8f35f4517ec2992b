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

package treepath

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCombine(t *testing.T) {
	tests := []struct {
		name  string
		parts []string
		want  string
	}{
		{name: "empty", parts: nil, want: "/"},
		{name: "root", parts: []string{"/"}, want: "/"},
		{name: "root and child", parts: []string{"/", "svc1"}, want: "/svc1"},
		{name: "duplicate separators", parts: []string{"/a/", "/b//", "c"}, want: "/a/b/c"},
		{name: "relative parts", parts: []string{"a", "b"}, want: "/a/b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Combine(tt.parts...))
		})
	}
}

func TestCombineIsAssociative(t *testing.T) {
	left := Combine(Combine("/a", "b"), "c")
	right := Combine("/a", Combine("b", "c"))

	assert.Equal(t, left, right)
}

func TestParentAndBase(t *testing.T) {
	assert.Equal(t, "/", Parent("/"))
	assert.Equal(t, "/", Parent("/a"))
	assert.Equal(t, "/a/b", Parent("/a/b/c"))

	assert.Equal(t, "", Base("/"))
	assert.Equal(t, "c", Base("/a/b/c/"))
}

func TestRelative(t *testing.T) {
	assert.Equal(t, "a/b", Relative("/", "/a/b"))
	assert.Equal(t, "db/url", Relative("/svc/properties", "/svc/properties/db/url"))
	assert.Equal(t, "", Relative("/svc", "/svc"))
	assert.Equal(t, "/other/x", Relative("/svc", "/other/x"))
	assert.Equal(t, "/svcx/y", Relative("/svc", "/svcx/y"))
}

func TestValidateSegment(t *testing.T) {
	assert.NoError(t, ValidateSegment("host-1.example.com"))
	assert.ErrorIs(t, ValidateSegment(""), ErrInvalidSegment)
	assert.ErrorIs(t, ValidateSegment("."), ErrInvalidSegment)
	assert.ErrorIs(t, ValidateSegment(".."), ErrInvalidSegment)
	assert.ErrorIs(t, ValidateSegment("a/b"), ErrInvalidSegment)
}
