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

package natskv

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/carverauto/zkconfig/pkg/treepath"
)

const (
	rootKey        = "_"
	tokenSeparator = "."
	escape         = '='
)

// keyFor maps a tree path onto a bucket key. The root is "_" and every segment becomes
// one dot separated token, so "/a/b" is stored as "_.a.b".
func keyFor(path string) string {
	segments := treepath.Segments(path)

	var b strings.Builder

	b.WriteString(rootKey)

	for _, segment := range segments {
		b.WriteString(tokenSeparator)
		b.WriteString(escapeSegment(segment))
	}

	return b.String()
}

// childFilter is the subject filter matching the direct children of path.
func childFilter(path string) string {
	return keyFor(path) + tokenSeparator + "*"
}

func isPlain(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '-' || c == '_'
}

func escapeSegment(segment string) string {
	var b strings.Builder

	for i := 0; i < len(segment); i++ {
		c := segment[i]
		if isPlain(c) {
			b.WriteByte(c)
			continue
		}

		fmt.Fprintf(&b, "%c%02X", escape, c)
	}

	return b.String()
}

func unescapeSegment(token string) (string, error) {
	var b strings.Builder

	for i := 0; i < len(token); i++ {
		c := token[i]
		if c != escape {
			b.WriteByte(c)
			continue
		}

		if i+2 >= len(token) {
			return "", fmt.Errorf("truncated escape in %q", token)
		}

		v, err := strconv.ParseUint(token[i+1:i+3], 16, 8)
		if err != nil {
			return "", fmt.Errorf("invalid escape in %q: %w", token, err)
		}

		b.WriteByte(byte(v))
		i += 2
	}

	return b.String(), nil
}

// lastSegment returns the decoded final segment of key.
func lastSegment(key string) (string, error) {
	idx := strings.LastIndex(key, tokenSeparator)

	return unescapeSegment(key[idx+1:])
}
